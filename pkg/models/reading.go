package models

import (
	"fmt"
	"sort"
	"time"
)

// MaxMinutesBeforeNow bounds history queries to 31 days
const MaxMinutesBeforeNow = 31 * 24 * 60

// DefaultMinutesBeforeNow is used when neither the query nor the provider gives a window
const DefaultMinutesBeforeNow = 3 * 24 * 60

// Reading represents a single measurement of one sensor type
type Reading struct {
	SensorType string    `json:"sensorType"`
	Value      float64   `json:"value"`
	CapturedAt time.Time `json:"capturedAt"`
}

// CurrentReadings holds the latest reading per sensor type
type CurrentReadings map[string]Reading

// Types returns the sensor types in sorted order
func (c CurrentReadings) Types() []string {
	types := make([]string, 0, len(c))
	for sensorType := range c {
		types = append(types, sensorType)
	}
	sort.Strings(types)
	return types
}

// LastCaptured returns the most recent capture time, nil when empty
func (c CurrentReadings) LastCaptured() *time.Time {
	var last *time.Time
	for _, r := range c {
		if last == nil || r.CapturedAt.After(*last) {
			t := r.CapturedAt
			last = &t
		}
	}
	return last
}

// NodeDataQuery holds the parameters of a node history query
type NodeDataQuery struct {
	Node             NodeID
	MinutesBeforeNow int
	// DefaultMinutes replaces a zero MinutesBeforeNow, usually the configured recency window
	DefaultMinutes int
}

// Validate checks if the query parameters are valid
func (q *NodeDataQuery) Validate() error {
	if _, err := BuildNodeID(q.Node.GatewayUID, q.Node.NodeID); err != nil {
		return err
	}

	if q.MinutesBeforeNow < 0 || q.MinutesBeforeNow > MaxMinutesBeforeNow {
		return fmt.Errorf("%w: minutesBeforeNow must be between 0 and %d", ErrInvalidQuery, MaxMinutesBeforeNow)
	}

	return nil
}

// Since returns the start of the query window relative to now
func (q *NodeDataQuery) Since(now time.Time) time.Time {
	minutes := q.MinutesBeforeNow
	if minutes == 0 {
		minutes = q.DefaultMinutes
	}
	if minutes <= 0 {
		minutes = DefaultMinutesBeforeNow
	}
	return now.Add(-time.Duration(minutes) * time.Minute)
}

// SortReadings orders readings by capture time, oldest first, then by sensor type
func SortReadings(readings []Reading) {
	sort.SliceStable(readings, func(i, j int) bool {
		if readings[i].CapturedAt.Equal(readings[j].CapturedAt) {
			return readings[i].SensorType < readings[j].SensorType
		}
		return readings[i].CapturedAt.Before(readings[j].CapturedAt)
	})
}
