package engine

import (
	"context"
	"time"
)

// runMonitor polls in-flight orders until the engine shuts down. In paper
// mode orders fill synchronously at submission, so the monitor only runs
// reconciliation against the live exchange.
func (e *Engine) runMonitor(ctx context.Context) {
	defer close(e.monitorDone)

	ticker := time.NewTicker(e.monitorInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if e.live {
				e.reconcileOrders(ctx)
			}
		}
	}
}

// reconcileOrders refreshes every tracked order from the exchange, applying
// fills and dropping orders that reached a terminal state without filling.
func (e *Engine) reconcileOrders(ctx context.Context) {
	for _, tracked := range e.ledger.Snapshot() {
		current, err := e.submitter.GetOrderStatus(ctx, tracked.ID)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			e.log.Warn("order status check failed", "id", tracked.ID, "error", err)
			continue
		}
		// The exchange does not know our strategy attribution.
		current.StrategyID = tracked.StrategyID

		switch {
		case current.Filled():
			e.log.Info("order filled",
				"id", current.ID, "symbol", current.Symbol,
				"qty", current.FilledQty, "price", current.FilledAvgPrice)
			e.recordFill(current)
		case current.Terminal():
			if current.FilledQty.IsPositive() {
				// Cancelled or rejected after partial execution: the filled
				// portion already happened on the exchange and must reach
				// the position book.
				e.log.Info("order closed after partial fill",
					"id", current.ID, "status", current.Status,
					"filled_qty", current.FilledQty)
				e.recordFill(current)
			} else {
				e.log.Info("order closed without fill", "id", current.ID, "status", current.Status)
				e.ledger.Untrack(current.ID)
			}
		default:
			// Still working; keep the freshest view, including any partial fill.
			e.ledger.Track(current)
		}
	}
}
