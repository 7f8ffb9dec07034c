package parser

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/sguter90/sparrowmaestro/pkg/models"
)

// Extractor reads the value of one sensor type from an event body
type Extractor struct {
	SensorType string
	Field      string
}

// Extract returns the numeric value of the field.
// Absent, null, non-numeric or non-finite fields report ok=false rather than zero.
func (e Extractor) Extract(body map[string]interface{}) (float64, bool) {
	raw, ok := body[e.Field]
	if !ok || raw == nil {
		return 0, false
	}

	var f float64
	switch v := raw.(type) {
	case float64:
		f = v
	case float32:
		f = float64(v)
	case int:
		f = float64(v)
	case int64:
		f = float64(v)
	case json.Number:
		n, err := v.Float64()
		if err != nil {
			return 0, false
		}
		f = n
	case string:
		n, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, false
		}
		f = n
	default:
		return 0, false
	}

	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// Registry maps notefile suffixes to the sensor types their bodies carry
type Registry struct {
	mu    sync.RWMutex
	files map[string][]Extractor
}

// NewRegistry creates a new parser registry
func NewRegistry() *Registry {
	return &Registry{
		files: make(map[string][]Extractor),
	}
}

// Register adds the extractors for a file suffix, replacing any previous entry
func (r *Registry) Register(suffix string, extractors ...Extractor) {
	if suffix == "" || len(extractors) == 0 {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.files[suffix] = append([]Extractor(nil), extractors...)
}

// Get retrieves the extractors of a file suffix
func (r *Registry) Get(suffix string) ([]Extractor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.files[suffix]
	return e, ok
}

// Suffixes returns all registered suffixes, sorted
func (r *Registry) Suffixes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	suffixes := make([]string, 0, len(r.files))
	for s := range r.files {
		suffixes = append(suffixes, s)
	}
	sort.Strings(suffixes)
	return suffixes
}

// Match finds the suffix a file name ends with and returns the remaining prefix.
// The longest registered suffix wins when several match.
func (r *Registry) Match(file string) (prefix string, extractors []Extractor, ok bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	best := ""
	for suffix := range r.files {
		if strings.HasSuffix(file, suffix) && len(suffix) > len(best) {
			best = suffix
		}
	}
	if best == "" {
		return "", nil, false
	}
	return strings.TrimSuffix(file, best), r.files[best], true
}

// Recognizes reports whether the file name has a registered suffix
func (r *Registry) Recognizes(file string) bool {
	_, _, ok := r.Match(file)
	return ok
}

// Parse converts a routed event into one SparrowEvent per sensor type present in its body.
// Events whose file has no registered suffix yield no events and no error.
func (r *Registry) Parse(ev *models.RoutedEvent) ([]models.SparrowEvent, error) {
	projectUID := ev.ProjectUID()
	if projectUID == "" {
		return nil, models.ErrMissingProjectReference
	}

	projectID, err := models.BuildProjectID(projectUID)
	if err != nil {
		return nil, fmt.Errorf("invalid project reference: %w", err)
	}

	prefix, extractors, ok := r.Match(ev.File)
	if !ok {
		return nil, nil
	}

	if ev.Device == "" {
		return nil, fmt.Errorf("%w: file %s", models.ErrMissingDeviceReference, ev.File)
	}

	gatewayID, err := models.BuildGatewayID(ev.Device)
	if err != nil {
		return nil, fmt.Errorf("invalid device reference: %w", err)
	}

	var nodeID *models.NodeID
	if prefix != "" {
		n, err := models.BuildNodeID(gatewayID.UID, prefix)
		if err != nil {
			return nil, fmt.Errorf("invalid node in file %s: %w", ev.File, err)
		}
		nodeID = &n
	}

	capturedAt, ok := ev.CapturedAt()
	if !ok {
		return nil, fmt.Errorf("%w: file %s", models.ErrMissingCaptureTime, ev.File)
	}

	raw := ev.Raw
	if len(raw) == 0 {
		raw, _ = json.Marshal(ev)
	}

	var events []models.SparrowEvent
	for _, extractor := range extractors {
		value, ok := extractor.Extract(ev.Body)
		if !ok {
			continue
		}

		events = append(events, models.SparrowEvent{
			ProjectID:  projectID,
			GatewayID:  gatewayID,
			NodeID:     nodeID,
			SensorType: extractor.SensorType,
			Value:      value,
			CapturedAt: capturedAt,
			Raw:        raw,
		})
	}

	return events, nil
}
