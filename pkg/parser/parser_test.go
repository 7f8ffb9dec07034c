package parser

import (
	"encoding/json"
	"errors"
	"math"
	"testing"

	"github.com/sguter90/sparrowmaestro/pkg/models"
)

func testRegistry() *Registry {
	r := NewRegistry()
	r.Register("#test.qo", Extractor{SensorType: "level", Field: "lvl"})
	r.Register(".qo", Extractor{SensorType: "generic", Field: "v"})
	return r
}

func TestNewRegistry(t *testing.T) {
	registry := NewRegistry()

	if registry == nil {
		t.Fatal("Expected registry to be created, got nil")
	}

	if registry.files == nil {
		t.Fatal("Expected files map to be initialized, got nil")
	}

	if len(registry.files) != 0 {
		t.Errorf("Expected empty registry, got %d files", len(registry.files))
	}
}

func TestRegistry_Register(t *testing.T) {
	registry := NewRegistry()

	registry.Register("#a.qo", Extractor{SensorType: "a", Field: "a"})
	registry.Register("#a.qo", Extractor{SensorType: "b", Field: "b"})
	registry.Register("", Extractor{SensorType: "c", Field: "c"})
	registry.Register("#empty.qo")

	if len(registry.files) != 1 {
		t.Fatalf("Expected 1 registered file, got %d", len(registry.files))
	}

	extractors, ok := registry.Get("#a.qo")
	if !ok {
		t.Fatal("Expected #a.qo to be registered")
	}
	if len(extractors) != 1 || extractors[0].SensorType != "b" {
		t.Errorf("Expected second registration to overwrite first, got %+v", extractors)
	}
}

func TestRegistry_Match_LongestSuffix(t *testing.T) {
	registry := testRegistry()

	prefix, extractors, ok := registry.Match("node1#test.qo")
	if !ok {
		t.Fatal("Expected match")
	}
	if prefix != "node1" {
		t.Errorf("Expected prefix node1, got %q", prefix)
	}
	if extractors[0].SensorType != "level" {
		t.Errorf("Expected longest suffix to win, got %s", extractors[0].SensorType)
	}

	if registry.Recognizes("node1#test.db") {
		t.Error("Expected .db file not to be recognized")
	}
}

func TestExtractor_Extract(t *testing.T) {
	e := Extractor{SensorType: "x", Field: "x"}

	testCases := []struct {
		name   string
		body   map[string]interface{}
		want   float64
		wantOK bool
	}{
		{"float", map[string]interface{}{"x": 1.5}, 1.5, true},
		{"zero is a reading", map[string]interface{}{"x": 0.0}, 0, true},
		{"json number", map[string]interface{}{"x": json.Number("7")}, 7, true},
		{"numeric string", map[string]interface{}{"x": " 3.25 "}, 3.25, true},
		{"absent", map[string]interface{}{}, 0, false},
		{"null", map[string]interface{}{"x": nil}, 0, false},
		{"text", map[string]interface{}{"x": "warm"}, 0, false},
		{"bool", map[string]interface{}{"x": true}, 0, false},
		{"NaN string", map[string]interface{}{"x": "NaN"}, 0, false},
		{"Inf string", map[string]interface{}{"x": "Inf"}, 0, false},
		{"negative Inf string", map[string]interface{}{"x": "-Inf"}, 0, false},
		{"NaN float", map[string]interface{}{"x": math.NaN()}, 0, false},
		{"Inf float", map[string]interface{}{"x": math.Inf(1)}, 0, false},
		{"nil body", nil, 0, false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := e.Extract(tc.body)
			if ok != tc.wantOK || got != tc.want {
				t.Errorf("Expected (%v, %v), got (%v, %v)", tc.want, tc.wantOK, got, ok)
			}
		})
	}
}

func TestRegistry_Parse_MissingProject(t *testing.T) {
	registry := testRegistry()

	_, err := registry.Parse(&models.RoutedEvent{Device: "dev:1", File: "n#test.qo", Captured: "2024-01-01T00:00:00Z"})
	if !errors.Is(err, models.ErrMissingProjectReference) {
		t.Errorf("Expected ErrMissingProjectReference, got %v", err)
	}

	_, err = registry.Parse(&models.RoutedEvent{Project: &models.RoutedProject{}, File: "n#test.qo"})
	if !errors.Is(err, models.ErrMissingProjectReference) {
		t.Errorf("Expected ErrMissingProjectReference for empty id, got %v", err)
	}
}

func TestRegistry_Parse_GatewayLevelFile(t *testing.T) {
	registry := testRegistry()

	events, err := registry.Parse(&models.RoutedEvent{
		Project:  &models.RoutedProject{ID: "app:1"},
		Device:   "dev:1",
		File:     "#test.qo",
		Captured: "2024-01-01T00:00:00Z",
		Body:     map[string]interface{}{"lvl": 2.0},
	})
	if err != nil {
		t.Fatalf("Expected no error: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("Expected 1 event, got %d", len(events))
	}
	if events[0].NodeID != nil {
		t.Errorf("Expected gateway-level event, got node %v", events[0].NodeID)
	}
	if events[0].GatewayID.UID != "dev:1" || events[0].LocalNodeID() != "" {
		t.Errorf("Expected reading of gateway dev:1, got %s/%q", events[0].GatewayID.UID, events[0].LocalNodeID())
	}
}

func TestRegistry_Parse_SkipsNonFiniteValues(t *testing.T) {
	registry := NewRegistry()
	registry.Register("#air.qo",
		Extractor{SensorType: "temperature", Field: "temperature"},
		Extractor{SensorType: "humidity", Field: "humidity"},
		Extractor{SensorType: "pressure", Field: "pressure"},
	)

	events, err := registry.Parse(&models.RoutedEvent{
		Project:  &models.RoutedProject{ID: "app:1"},
		Device:   "dev:1",
		File:     "n1#air.qo",
		Captured: "2024-01-01T00:00:00Z",
		Body:     map[string]interface{}{"temperature": "NaN", "humidity": "Inf", "pressure": 1013.0},
	})
	if err != nil {
		t.Fatalf("Expected no error: %v", err)
	}
	if len(events) != 1 || events[0].SensorType != "pressure" {
		t.Fatalf("Expected only the pressure reading, got %+v", events)
	}

	if _, err := json.Marshal(events[0]); err != nil {
		t.Errorf("Expected event to encode, got %v", err)
	}
}
