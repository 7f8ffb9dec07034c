package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sguter90/sparrowmaestro/pkg/models"
	"github.com/sguter90/sparrowmaestro/pkg/parser/sparrow"
)

type fakeData struct {
	gateways []models.Gateway
	lastNode models.NodeID
	lastIDs  []models.GatewayID
	project  models.ProjectID
}

func (f *fakeData) GetGateway(_ context.Context, id models.GatewayID) (*models.Gateway, error) {
	for i := range f.gateways {
		if f.gateways[i].ID == id {
			return &f.gateways[i], nil
		}
	}
	return nil, models.ErrNotFound
}

func (f *fakeData) GetGateways(context.Context) ([]models.Gateway, error) {
	return f.gateways, nil
}

func (f *fakeData) GetNode(_ context.Context, id models.NodeID) (*models.Node, error) {
	f.lastNode = id
	return &models.Node{ID: id}, nil
}

func (f *fakeData) GetNodes(_ context.Context, ids []models.GatewayID) ([]models.Node, error) {
	f.lastIDs = ids
	return nil, nil
}

func (f *fakeData) GetNodeData(_ context.Context, id models.NodeID, _ int) ([]models.Reading, error) {
	f.lastNode = id
	return []models.Reading{}, nil
}

func (f *fakeData) QueryProjectLatestValues(_ context.Context, id models.ProjectID) (*models.ProjectReadings, error) {
	f.project = id
	return &models.ProjectReadings{Project: models.Project{ID: id}}, nil
}

type fakeStore struct {
	err   error
	calls []string
	ref   *models.DeviceRef
}

func (f *fakeStore) UpdateGatewayName(_ context.Context, gatewayUID, name string) error {
	f.calls = append(f.calls, "gateway:"+gatewayUID+":"+name)
	return f.err
}

func (f *fakeStore) UpdateNodeName(_ context.Context, gatewayUID, nodeID, name string) error {
	f.calls = append(f.calls, "name:"+gatewayUID+"/"+nodeID+":"+name)
	return f.err
}

func (f *fakeStore) UpdateNodeLocation(_ context.Context, gatewayUID, nodeID, location string) error {
	f.calls = append(f.calls, "loc:"+gatewayUID+"/"+nodeID+":"+location)
	return f.err
}

func (f *fakeStore) UpdateDevicePin(context.Context, string, string, string) (*models.DeviceRef, error) {
	return f.ref, f.err
}

type recordingHandler struct {
	events []models.SparrowEvent
	err    error
}

func (h *recordingHandler) HandleEvent(_ context.Context, e models.SparrowEvent) error {
	if h.err != nil {
		return h.err
	}
	h.events = append(h.events, e)
	return nil
}

type recordingMirror struct {
	names map[string]string
}

func (m *recordingMirror) UpdateGatewayName(_ context.Context, gatewayUID, name string) error {
	m.names[gatewayUID] = name
	return nil
}

func (m *recordingMirror) UpdateNodeAttributes(_ context.Context, id models.NodeID, name, _ *string) error {
	if name != nil {
		m.names[id.String()] = *name
	}
	return nil
}

type recordingPublisher struct {
	events []models.SparrowEvent
}

func (p *recordingPublisher) Publish(e models.SparrowEvent) {
	p.events = append(p.events, e)
}

func newService(t *testing.T, store *fakeStore, handler *recordingHandler, opts ...Option) (*AppService, *fakeData) {
	t.Helper()
	data := &fakeData{gateways: []models.Gateway{{ID: models.GatewayID{UID: "dev:1"}}}}
	s, err := NewAppService("app:1", data, store, sparrow.NewRegistry(), handler, opts...)
	require.NoError(t, err)
	return s, data
}

func TestNewAppService_InvalidProject(t *testing.T) {
	_, err := NewAppService("", &fakeData{}, &fakeStore{}, sparrow.NewRegistry(), nil)
	require.True(t, errors.Is(err, models.ErrInvalidIdentifier))
}

func TestSetNodeName_ErrorKeepsCause(t *testing.T) {
	backend := fmt.Errorf("%w: notehub: status 400: node name is reserved", models.ErrRemoteRejected)
	s, _ := newService(t, &fakeStore{err: backend}, &recordingHandler{})

	err := s.SetNodeName(context.Background(), "dev:1", "n1", "x")
	require.Error(t, err)
	require.Contains(t, err.Error(), "could not setNodeName")
	require.Contains(t, err.Error(), "node name is reserved")
	require.True(t, errors.Is(err, backend))
	require.True(t, errors.Is(err, models.ErrRemoteRejected))
}

func TestSetters_DelegateAndMirror(t *testing.T) {
	store := &fakeStore{}
	mirror := &recordingMirror{names: map[string]string{}}
	s, _ := newService(t, store, &recordingHandler{}, WithAttributeMirror(mirror))
	ctx := context.Background()

	require.NoError(t, s.SetGatewayName(ctx, "dev:1", "Office"))
	require.NoError(t, s.SetNodeName(ctx, "dev:1", "n1", "Desk"))
	require.NoError(t, s.SetNodeLocation(ctx, "dev:1", "n1", "Shed"))

	require.Equal(t, []string{"gateway:dev:1:Office", "name:dev:1/n1:Desk", "loc:dev:1/n1:Shed"}, store.calls)
	require.Equal(t, map[string]string{"dev:1": "Office", "dev:1/n1": "Desk"}, mirror.names)
}

func TestSetGatewayName_FailureSkipsMirror(t *testing.T) {
	mirror := &recordingMirror{names: map[string]string{}}
	s, _ := newService(t, &fakeStore{err: models.ErrUpstreamUnavailable}, &recordingHandler{}, WithAttributeMirror(mirror))

	err := s.SetGatewayName(context.Background(), "dev:1", "Office")
	require.True(t, errors.Is(err, models.ErrUpstreamUnavailable))
	require.Empty(t, mirror.names)
}

func TestReads_BuildIdentifiers(t *testing.T) {
	s, data := newService(t, &fakeStore{}, &recordingHandler{})
	ctx := context.Background()

	_, err := s.GetNode(ctx, "dev:1", "n1")
	require.NoError(t, err)
	require.Equal(t, models.NodeID{GatewayUID: "dev:1", NodeID: "n1"}, data.lastNode)

	_, err = s.GetNodes(ctx, []string{"dev:1", "dev:2"})
	require.NoError(t, err)
	require.Equal(t, []models.GatewayID{{UID: "dev:1"}, {UID: "dev:2"}}, data.lastIDs)

	_, err = s.GetGateway(ctx, "bad uid")
	require.True(t, errors.Is(err, models.ErrInvalidIdentifier))

	_, err = s.GetNodeData(ctx, "dev:1", "n1", -5)
	require.Error(t, err)

	latest, err := s.GetLatestProjectReadings(ctx)
	require.NoError(t, err)
	require.Equal(t, "app:1", latest.Project.ID.UID)
}

func TestIngestEvent(t *testing.T) {
	handler := &recordingHandler{}
	publisher := &recordingPublisher{}
	s, _ := newService(t, &fakeStore{}, handler, WithPublisher(publisher))
	ctx := context.Background()

	n, err := s.IngestEvent(ctx, &models.RoutedEvent{
		Project:  &models.RoutedProject{ID: "app:1"},
		Device:   "dev:1",
		File:     "n1#air.qo",
		Captured: "2024-01-01T00:00:00Z",
		Body:     map[string]interface{}{"temperature": 20.5, "humidity": 41.0},
	})
	require.NoError(t, err)
	require.Equal(t, 2, n)
	require.Len(t, handler.events, 2)
	require.Len(t, publisher.events, 2)

	_, err = s.IngestEvent(ctx, &models.RoutedEvent{Device: "dev:1", File: "n1#air.qo"})
	require.True(t, errors.Is(err, models.ErrMissingProjectReference))

	handler.err = fmt.Errorf("%w: connection reset", models.ErrStorageFailure)
	_, err = s.IngestEvent(ctx, &models.RoutedEvent{
		Project:  &models.RoutedProject{ID: "app:1"},
		Device:   "dev:1",
		File:     "n1#motion.qo",
		Captured: "2024-01-01T00:00:00Z",
		Body:     map[string]interface{}{"count": 1.0},
	})
	require.True(t, errors.Is(err, models.ErrStorageFailure))
	require.Len(t, publisher.events, 2)
}

func TestResolvePin(t *testing.T) {
	ref := &models.DeviceRef{GatewayUID: "dev:1", NodeID: "n1"}
	s, _ := newService(t, &fakeStore{ref: ref}, &recordingHandler{})

	got, err := s.ResolvePin(context.Background(), "", "n1", "1234")
	require.NoError(t, err)
	require.Equal(t, ref, got)
}
