package provider

import (
	"context"
	"errors"
	"fmt"
	"log"
)

// BackfillResult summarizes a backfill run
type BackfillResult struct {
	Events   int
	Readings int
	Skipped  int
}

// Backfill replays the recent remote events through the event handler.
// Readings already stored are ignored by the handler, so repeated runs are safe.
func (c *CompositeDataProvider) Backfill(ctx context.Context) (*BackfillResult, error) {
	if c.source == nil || c.parser == nil {
		return nil, errors.New("backfill requires an event source and parser")
	}

	events, err := c.source.GetRecentEvents(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch recent events: %w", err)
	}

	result := &BackfillResult{Events: len(events)}
	for i := range events {
		parsed, err := c.parser.Parse(&events[i])
		if err != nil {
			log.Printf("⚠ Skipping event %s (%s): %v", events[i].EventUID, events[i].File, err)
			result.Skipped++
			continue
		}

		for _, event := range parsed {
			if err := c.handler.HandleEvent(ctx, event); err != nil {
				return result, fmt.Errorf("failed to store event %s: %w", events[i].EventUID, err)
			}
			result.Readings++
		}
	}

	log.Printf("✓ Backfill: %d events, %d readings stored, %d skipped", result.Events, result.Readings, result.Skipped)
	return result, nil
}
