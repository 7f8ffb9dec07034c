package live

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/sguter90/sparrowmaestro/pkg/models"
)

func TestHub_PublishReachesClient(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := NewHub(nil)
	go hub.Run(ctx)

	server := httptest.NewServer(http.HandlerFunc(hub.ServeWS))
	defer server.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	node := models.NodeID{GatewayUID: "dev:1", NodeID: "n1"}
	hub.Publish(models.SparrowEvent{
		GatewayID:  models.GatewayID{UID: "dev:1"},
		NodeID:     &node,
		SensorType: models.SensorTypeTemperature,
		Value:      21.5,
		CapturedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Raw:        json.RawMessage(`{"big":"payload"}`),
	})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var msg struct {
		Type    string              `json:"type"`
		Payload models.SparrowEvent `json:"payload"`
	}
	require.NoError(t, json.Unmarshal(data, &msg))
	require.Equal(t, "reading", msg.Type)
	require.Equal(t, 21.5, msg.Payload.Value)
	require.Empty(t, msg.Payload.Raw)
}

func TestHub_RejectsForeignOrigin(t *testing.T) {
	hub := NewHub([]string{"https://dashboard.example"})

	server := httptest.NewServer(http.HandlerFunc(hub.ServeWS))
	defer server.Close()

	header := http.Header{}
	header.Set("Origin", "https://evil.example")
	url := "ws" + strings.TrimPrefix(server.URL, "http")
	_, resp, err := websocket.DefaultDialer.Dial(url, header)
	require.Error(t, err)
	require.NotNil(t, resp)
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestHub_PublishWithoutRunDoesNotBlock(t *testing.T) {
	hub := NewHub(nil)
	done := make(chan struct{})
	go func() {
		for i := 0; i < 1000; i++ {
			hub.Publish(models.SparrowEvent{SensorType: models.SensorTypeCount, Value: float64(i)})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Expected Publish to drop messages instead of blocking")
	}
}
