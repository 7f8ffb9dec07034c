package models

import (
	"strings"
	"testing"
	"time"
)

func TestNodeDataQuery_Validate(t *testing.T) {
	node := NodeID{GatewayUID: "dev:864475044215258", NodeID: "20323746323650050028000a"}

	testCases := []struct {
		name        string
		query       NodeDataQuery
		expectError bool
		errorMsg    string
	}{
		{
			name:        "Valid without window",
			query:       NodeDataQuery{Node: node},
			expectError: false,
		},
		{
			name:        "Valid with window",
			query:       NodeDataQuery{Node: node, MinutesBeforeNow: 60},
			expectError: false,
		},
		{
			name:        "Valid maximum window",
			query:       NodeDataQuery{Node: node, MinutesBeforeNow: MaxMinutesBeforeNow},
			expectError: false,
		},
		{
			name:        "Invalid window - negative",
			query:       NodeDataQuery{Node: node, MinutesBeforeNow: -1},
			expectError: true,
			errorMsg:    "minutesBeforeNow must be between",
		},
		{
			name:        "Invalid window - too large",
			query:       NodeDataQuery{Node: node, MinutesBeforeNow: MaxMinutesBeforeNow + 1},
			expectError: true,
			errorMsg:    "minutesBeforeNow must be between",
		},
		{
			name:        "Invalid gateway",
			query:       NodeDataQuery{Node: NodeID{GatewayUID: "864475044215258", NodeID: "abc"}},
			expectError: true,
			errorMsg:    "invalid identifier",
		},
		{
			name:        "Missing node",
			query:       NodeDataQuery{Node: NodeID{GatewayUID: "dev:864475044215258"}},
			expectError: true,
			errorMsg:    "invalid identifier",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.query.Validate()
			if tc.expectError {
				if err == nil {
					t.Errorf("Expected error but got none")
				} else if tc.errorMsg != "" && !strings.Contains(err.Error(), tc.errorMsg) {
					t.Errorf("Expected error containing '%s', got '%s'", tc.errorMsg, err.Error())
				}
			} else {
				if err != nil {
					t.Errorf("Expected no error but got: %v", err)
				}
			}
		})
	}
}

func TestNodeDataQuery_Since(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

	q := NodeDataQuery{MinutesBeforeNow: 30}
	if got := q.Since(now); !got.Equal(now.Add(-30 * time.Minute)) {
		t.Errorf("Expected since=%v, got %v", now.Add(-30*time.Minute), got)
	}

	q = NodeDataQuery{}
	if got := q.Since(now); !got.Equal(now.Add(-DefaultMinutesBeforeNow * time.Minute)) {
		t.Errorf("Expected default window, got %v", got)
	}

	q = NodeDataQuery{DefaultMinutes: 4320}
	if got := q.Since(now); !got.Equal(now.Add(-72 * time.Hour)) {
		t.Errorf("Expected configured window of 72h, got %v", got)
	}

	q = NodeDataQuery{MinutesBeforeNow: 10, DefaultMinutes: 4320}
	if got := q.Since(now); !got.Equal(now.Add(-10 * time.Minute)) {
		t.Errorf("Expected explicit window to win over default, got %v", got)
	}
}

func TestCurrentReadings_LastCaptured(t *testing.T) {
	t1 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	t2 := t1.Add(5 * time.Minute)

	var empty CurrentReadings
	if empty.LastCaptured() != nil {
		t.Error("Expected nil last capture for empty readings")
	}

	readings := CurrentReadings{
		SensorTypeTemperature: {SensorType: SensorTypeTemperature, Value: 21.5, CapturedAt: t1},
		SensorTypeHumidity:    {SensorType: SensorTypeHumidity, Value: 40, CapturedAt: t2},
	}

	last := readings.LastCaptured()
	if last == nil || !last.Equal(t2) {
		t.Errorf("Expected last capture %v, got %v", t2, last)
	}

	types := readings.Types()
	if len(types) != 2 || types[0] != SensorTypeHumidity || types[1] != SensorTypeTemperature {
		t.Errorf("Expected sorted types, got %v", types)
	}
}

func TestSortReadings(t *testing.T) {
	t1 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	readings := []Reading{
		{SensorType: SensorTypeVoltage, CapturedAt: t1.Add(time.Minute)},
		{SensorType: SensorTypeTemperature, CapturedAt: t1},
		{SensorType: SensorTypeHumidity, CapturedAt: t1},
	}

	SortReadings(readings)

	if readings[0].SensorType != SensorTypeHumidity || readings[1].SensorType != SensorTypeTemperature || readings[2].SensorType != SensorTypeVoltage {
		t.Errorf("Unexpected order: %+v", readings)
	}
}
