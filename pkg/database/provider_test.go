package database

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sguter90/sparrowmaestro/pkg/models"
)

func seedReadings(t *testing.T, dm *DatabaseManager, now time.Time) {
	t.Helper()

	handler := NewEventHandler(dm)
	events := []models.SparrowEvent{
		testEvent("node-a", models.SensorTypeTemperature, 20, now.Add(-3*time.Hour)),
		testEvent("node-a", models.SensorTypeTemperature, 21, now.Add(-30*time.Minute)),
		testEvent("node-a", models.SensorTypeHumidity, 40, now.Add(-30*time.Minute)),
		testEvent("node-b", models.SensorTypeCount, 2, now.Add(-10*time.Minute)),
	}
	for _, e := range events {
		if err := handler.HandleEvent(context.Background(), e); err != nil {
			t.Fatalf("Failed to seed event: %v", err)
		}
	}
}

func TestProvider_GetNodeData_Window(t *testing.T) {
	dm := setupTestDatabaseManager(t)
	if dm == nil {
		t.Skip("Skipping test that requires real database connection")
	}
	defer dm.Close()

	now := time.Now().UTC().Truncate(time.Second)
	seedReadings(t, dm, now)

	provider := NewProvider(dm)
	provider.now = func() time.Time { return now }
	id := models.NodeID{GatewayUID: "dev:100", NodeID: "node-a"}

	testCases := []struct {
		name    string
		minutes int
		want    int
	}{
		{"last hour", 60, 2},
		{"last four hours", 240, 3},
		{"default window", 0, 3},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			readings, err := provider.GetNodeData(context.Background(), id, tc.minutes)
			if err != nil {
				t.Fatalf("Expected GetNodeData to succeed: %v", err)
			}
			if len(readings) != tc.want {
				t.Errorf("Expected %d readings, got %d", tc.want, len(readings))
			}
			for i := 1; i < len(readings); i++ {
				if readings[i].CapturedAt.Before(readings[i-1].CapturedAt) {
					t.Error("Expected readings ordered oldest first")
				}
			}
		})
	}
}

func TestProvider_GetNodeData_UnknownNode(t *testing.T) {
	dm := setupTestDatabaseManager(t)
	if dm == nil {
		t.Skip("Skipping test that requires real database connection")
	}
	defer dm.Close()

	_, err := NewProvider(dm).GetNodeData(context.Background(), models.NodeID{GatewayUID: "dev:100", NodeID: "ghost"}, 60)
	if !errors.Is(err, models.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestProvider_GetGatewaysAndNodes(t *testing.T) {
	dm := setupTestDatabaseManager(t)
	if dm == nil {
		t.Skip("Skipping test that requires real database connection")
	}
	defer dm.Close()

	now := time.Now().UTC()
	seedReadings(t, dm, now)
	provider := NewProvider(dm)
	ctx := context.Background()

	gateways, err := provider.GetGateways(ctx)
	if err != nil {
		t.Fatalf("Expected GetGateways to succeed: %v", err)
	}
	if len(gateways) != 1 {
		t.Fatalf("Expected 1 gateway, got %d", len(gateways))
	}
	if len(gateways[0].Nodes) != 2 {
		t.Errorf("Expected 2 nodes, got %d", len(gateways[0].Nodes))
	}

	nodes, err := provider.GetNodes(ctx, []models.GatewayID{{UID: "dev:100"}})
	if err != nil {
		t.Fatalf("Expected GetNodes to succeed: %v", err)
	}
	if len(nodes) != 2 || nodes[0].ID.NodeID != "node-a" {
		t.Errorf("Expected nodes ordered by id, got %+v", nodes)
	}
	if nodes[0].CurrentReadings[models.SensorTypeTemperature].Value != 21 {
		t.Errorf("Expected latest temperature 21, got %+v", nodes[0].CurrentReadings)
	}

	_, err = provider.GetGateway(ctx, models.GatewayID{UID: "dev:404"})
	if !errors.Is(err, models.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}

	latest, err := provider.QueryProjectLatestValues(ctx, models.ProjectID{UID: "app:test"})
	if err != nil {
		t.Fatalf("Expected QueryProjectLatestValues to succeed: %v", err)
	}
	if len(latest.Project.Gateways) != 1 {
		t.Errorf("Expected 1 gateway in project, got %d", len(latest.Project.Gateways))
	}
}

func TestUpdateAttributes(t *testing.T) {
	dm := setupTestDatabaseManager(t)
	if dm == nil {
		t.Skip("Skipping test that requires real database connection")
	}
	defer dm.Close()

	seedReadings(t, dm, time.Now().UTC())
	ctx := context.Background()
	id := models.NodeID{GatewayUID: "dev:100", NodeID: "node-a"}
	name := "Desk"

	if err := dm.UpdateNodeAttributes(ctx, id, &name, nil); err != nil {
		t.Fatalf("Expected UpdateNodeAttributes to succeed: %v", err)
	}
	if err := dm.UpdateGatewayName(ctx, "dev:100", "Office"); err != nil {
		t.Fatalf("Expected UpdateGatewayName to succeed: %v", err)
	}

	node, err := NewProvider(dm).GetNode(ctx, id)
	if err != nil {
		t.Fatalf("Expected GetNode to succeed: %v", err)
	}
	if node.Name == nil || *node.Name != "Desk" {
		t.Errorf("Expected node name Desk, got %v", node.Name)
	}
	if node.Location != nil {
		t.Errorf("Expected location untouched, got %v", *node.Location)
	}

	gateway, err := NewProvider(dm).GetGateway(ctx, id.Gateway())
	if err != nil {
		t.Fatalf("Expected GetGateway to succeed: %v", err)
	}
	if gateway.Name != "Office" {
		t.Errorf("Expected gateway name Office, got %s", gateway.Name)
	}
}
