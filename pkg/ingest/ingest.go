// Package ingest decodes routed Notehub events arriving over any transport
// and hands them to the application service.
package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"github.com/sguter90/sparrowmaestro/pkg/metrics"
	"github.com/sguter90/sparrowmaestro/pkg/models"
)

// Transport labels
const (
	TransportHTTP  = "http"
	TransportMQTT  = "mqtt"
	TransportStdin = "stdin"
)

// ErrInvalidPayload is returned when the payload is not a routed event object
var ErrInvalidPayload = errors.New("invalid payload")

// EventIngester stores the readings of one routed event
type EventIngester interface {
	IngestEvent(ctx context.Context, ev *models.RoutedEvent) (int, error)
}

// Ingestor decodes payloads and records the outcome per transport
type Ingestor struct {
	target EventIngester
}

// NewIngestor creates an ingestor feeding target
func NewIngestor(target EventIngester) *Ingestor {
	return &Ingestor{target: target}
}

// Decode parses a routed event payload and keeps the raw bytes on it
func Decode(payload []byte) (*models.RoutedEvent, error) {
	var ev models.RoutedEvent
	if err := json.Unmarshal(payload, &ev); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	ev.Raw = json.RawMessage(payload)
	return &ev, nil
}

// Ingest decodes payload and stores its readings.
// It returns the number of readings stored.
func (i *Ingestor) Ingest(ctx context.Context, transport string, payload []byte) (int, error) {
	ev, err := Decode(payload)
	if err != nil {
		metrics.IngestedEventCount.WithLabelValues(transport, Outcome(err, 0)).Inc()
		return 0, err
	}

	n, err := i.target.IngestEvent(ctx, ev)
	metrics.IngestedEventCount.WithLabelValues(transport, Outcome(err, n)).Inc()
	if err != nil {
		return n, err
	}

	if n > 0 {
		log.Printf("✓ Ingested %d readings from %s (%s) via %s", n, ev.Device, ev.File, transport)
	}
	return n, nil
}

// IsRejected reports whether err is caused by the payload rather than by storage
func IsRejected(err error) bool {
	return errors.Is(err, ErrInvalidPayload) ||
		errors.Is(err, models.ErrMissingProjectReference) ||
		errors.Is(err, models.ErrMissingDeviceReference) ||
		errors.Is(err, models.ErrMissingCaptureTime) ||
		errors.Is(err, models.ErrInvalidIdentifier)
}

// Outcome returns the metrics label for an ingestion result
func Outcome(err error, stored int) string {
	switch {
	case err == nil && stored == 0:
		return "ignored"
	case err == nil:
		return "stored"
	case IsRejected(err):
		return "rejected"
	default:
		return "failed"
	}
}
