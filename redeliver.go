package forgehook

import (
	"context"
	"fmt"
)

// Redeliverer triggers redelivery of failed hook deliveries
type Redeliverer interface {
	// RedeliverFailed redelivers recent failed deliveries for a hook and
	// returns how many were requeued
	RedeliverFailed(ctx context.Context, hookID int64, limit int) (int, error)
}

// NoOpRedeliverer is a no-op implementation for providers that expose
// no delivery log
type NoOpRedeliverer struct{}

// NewNoOpRedeliverer creates a new no-op redeliverer
func NewNoOpRedeliverer() *NoOpRedeliverer {
	return &NoOpRedeliverer{}
}

func (r *NoOpRedeliverer) RedeliverFailed(ctx context.Context, hookID int64, limit int) (int, error) {
	return 0, nil
}

// RedeliverFailed scans the hook's recent delivery log and asks the
// provider to send every failed delivery again. Entries that are
// themselves redeliveries are not retried a second time.
func (m *Manager) RedeliverFailed(ctx context.Context, hookID int64, limit int) (int, error) {
	deliveries, err := m.ListDeliveries(ctx, hookID, limit)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch delivery log: %w", err)
	}

	redelivered := 0
	for _, delivery := range deliveries {
		if delivery.StatusCode >= 200 && delivery.StatusCode < 300 {
			continue
		}
		if delivery.Redelivery {
			continue
		}

		if err := m.Redeliver(ctx, hookID, delivery.ID); err != nil {
			return redelivered, fmt.Errorf("failed to redeliver %d: %w", delivery.ID, err)
		}

		m.logger.Info().
			Int64("hook_id", hookID).
			Int64("delivery_id", delivery.ID).
			Str("event", delivery.Event).
			Int("status_code", delivery.StatusCode).
			Msg("Requested redelivery of failed delivery")
		redelivered++
	}

	return redelivered, nil
}
