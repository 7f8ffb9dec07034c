package database

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/sguter90/sparrowmaestro/pkg/models"
)

func testEvent(nodeID string, sensorType string, value float64, capturedAt time.Time) models.SparrowEvent {
	return testEventOn("dev:100", nodeID, sensorType, value, capturedAt)
}

func testEventOn(gatewayUID, nodeID string, sensorType string, value float64, capturedAt time.Time) models.SparrowEvent {
	event := models.SparrowEvent{
		ProjectID:  models.ProjectID{UID: "app:test"},
		GatewayID:  models.GatewayID{UID: gatewayUID},
		SensorType: sensorType,
		Value:      value,
		CapturedAt: capturedAt,
		Raw:        json.RawMessage(`{"file":"x"}`),
	}
	if nodeID != "" {
		event.NodeID = &models.NodeID{GatewayUID: gatewayUID, NodeID: nodeID}
	}
	return event
}

func TestHandleEvent_Idempotent(t *testing.T) {
	dm := setupTestDatabaseManager(t)
	if dm == nil {
		t.Skip("Skipping test that requires real database connection")
	}
	defer dm.Close()

	handler := NewEventHandler(dm)
	ctx := context.Background()
	capturedAt := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	event := testEvent("dev:123", models.SensorTypeCount, 5, capturedAt)
	for i := 0; i < 2; i++ {
		if err := handler.HandleEvent(ctx, event); err != nil {
			t.Fatalf("Expected HandleEvent to succeed on attempt %d: %v", i+1, err)
		}
	}

	count, err := dm.CountReadings(ctx, "dev:100", "dev:123", models.SensorTypeCount)
	if err != nil {
		t.Fatalf("Expected CountReadings to succeed: %v", err)
	}
	if count != 1 {
		t.Errorf("Expected 1 stored reading, got %d", count)
	}
}

func TestHandleEvent_LatestReadingKeepsNewest(t *testing.T) {
	dm := setupTestDatabaseManager(t)
	if dm == nil {
		t.Skip("Skipping test that requires real database connection")
	}
	defer dm.Close()

	handler := NewEventHandler(dm)
	provider := NewProvider(dm)
	ctx := context.Background()
	newer := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	older := newer.Add(-time.Hour)

	if err := handler.HandleEvent(ctx, testEvent("node-a", models.SensorTypeTemperature, 22, newer)); err != nil {
		t.Fatalf("Expected HandleEvent to succeed: %v", err)
	}
	if err := handler.HandleEvent(ctx, testEvent("node-a", models.SensorTypeTemperature, 18, older)); err != nil {
		t.Fatalf("Expected HandleEvent to succeed: %v", err)
	}

	node, err := provider.GetNode(ctx, models.NodeID{GatewayUID: "dev:100", NodeID: "node-a"})
	if err != nil {
		t.Fatalf("Expected GetNode to succeed: %v", err)
	}

	latest := node.CurrentReadings[models.SensorTypeTemperature]
	if latest.Value != 22 {
		t.Errorf("Expected latest temperature 22, got %v", latest.Value)
	}
	if node.LastSeen == nil || !node.LastSeen.Equal(newer) {
		t.Errorf("Expected last seen %v, got %v", newer, node.LastSeen)
	}
}

func TestHandleEvent_GatewayLevelReading(t *testing.T) {
	dm := setupTestDatabaseManager(t)
	if dm == nil {
		t.Skip("Skipping test that requires real database connection")
	}
	defer dm.Close()

	ctx := context.Background()
	capturedAt := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	if err := NewEventHandler(dm).HandleEvent(ctx, testEvent("", models.SensorTypeVoltage, 4.2, capturedAt)); err != nil {
		t.Fatalf("Expected HandleEvent to succeed: %v", err)
	}

	gateway, err := NewProvider(dm).GetGateway(ctx, models.GatewayID{UID: "dev:100"})
	if err != nil {
		t.Fatalf("Expected GetGateway to succeed: %v", err)
	}
	if gateway.CurrentReadings[models.SensorTypeVoltage].Value != 4.2 {
		t.Errorf("Expected gateway voltage reading 4.2, got %+v", gateway.CurrentReadings)
	}
	if len(gateway.Nodes) != 0 {
		t.Errorf("Expected no nodes, got %d", len(gateway.Nodes))
	}
}

func TestHandleEvent_SameNodeIDOnTwoGateways(t *testing.T) {
	dm := setupTestDatabaseManager(t)
	if dm == nil {
		t.Skip("Skipping test that requires real database connection")
	}
	defer dm.Close()

	handler := NewEventHandler(dm)
	ctx := context.Background()
	capturedAt := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	events := []models.SparrowEvent{
		testEventOn("dev:A", "n1", models.SensorTypeTemperature, 20, capturedAt),
		testEventOn("dev:B", "n1", models.SensorTypeTemperature, 25, capturedAt),
		// node id equal to a gateway UID must not collide with that gateway's own readings
		testEventOn("dev:100", "dev:123", models.SensorTypeVoltage, 3.1, capturedAt),
		testEventOn("dev:123", "", models.SensorTypeVoltage, 4.2, capturedAt),
	}
	for _, event := range events {
		if err := handler.HandleEvent(ctx, event); err != nil {
			t.Fatalf("Expected HandleEvent to succeed: %v", err)
		}
	}

	readings, err := dm.GetNodeReadings(ctx, models.NodeID{GatewayUID: "dev:B", NodeID: "n1"}, capturedAt.Add(-time.Minute))
	if err != nil {
		t.Fatalf("Expected GetNodeReadings to succeed: %v", err)
	}
	if len(readings) != 1 || readings[0].Value != 25 {
		t.Errorf("Expected the dev:B reading of 25, got %+v", readings)
	}

	counts := []struct {
		gatewayUID, nodeID, sensorType string
	}{
		{"dev:A", "n1", models.SensorTypeTemperature},
		{"dev:B", "n1", models.SensorTypeTemperature},
		{"dev:100", "dev:123", models.SensorTypeVoltage},
		{"dev:123", "", models.SensorTypeVoltage},
	}
	for _, c := range counts {
		count, err := dm.CountReadings(ctx, c.gatewayUID, c.nodeID, c.sensorType)
		if err != nil {
			t.Fatalf("Expected CountReadings to succeed: %v", err)
		}
		if count != 1 {
			t.Errorf("Expected 1 reading for %s/%q, got %d", c.gatewayUID, c.nodeID, count)
		}
	}
}

func TestHandleEvent_StorageFailure(t *testing.T) {
	dm := setupTestDatabaseManager(t)
	if dm == nil {
		t.Skip("Skipping test that requires real database connection")
	}
	dm.Close()

	err := NewEventHandler(dm).HandleEvent(context.Background(), testEvent("node-a", models.SensorTypeCount, 1, time.Now()))
	if !errors.Is(err, models.ErrStorageFailure) {
		t.Errorf("Expected ErrStorageFailure, got %v", err)
	}
}
