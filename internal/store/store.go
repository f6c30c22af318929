// Package store persists executed trades. Persistence is a post-trade side
// effect: a failed save is logged by the caller, never propagated into the
// trade path.
package store

import (
	"context"
	"time"

	"vela/internal/domain"
)

// TradeStore persists and retrieves execution records.
type TradeStore interface {
	// SaveTrade persists a single execution record.
	SaveTrade(ctx context.Context, trade *domain.Trade) error

	// ListTrades returns trades for the given symbol within [start, end],
	// ordered by timestamp.
	ListTrades(ctx context.Context, symbol string, start, end time.Time) ([]domain.Trade, error)
}

// Tee is a TradeStore writing to a primary store and a secondary journal.
// Reads are served by the primary. A journal failure does not fail the save;
// it is reported through the returned error only when the primary also
// succeeded, so callers can log it.
type Tee struct {
	Primary TradeStore
	Journal TradeStore
}

// Compile-time interface check.
var _ TradeStore = (*Tee)(nil)

// SaveTrade writes to the primary first, then the journal.
func (t *Tee) SaveTrade(ctx context.Context, trade *domain.Trade) error {
	if err := t.Primary.SaveTrade(ctx, trade); err != nil {
		return err
	}
	return t.Journal.SaveTrade(ctx, trade)
}

// ListTrades reads from the primary store.
func (t *Tee) ListTrades(ctx context.Context, symbol string, start, end time.Time) ([]domain.Trade, error) {
	return t.Primary.ListTrades(ctx, symbol, start, end)
}
