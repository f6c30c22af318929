package broker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"vela/internal/domain"
	"vela/internal/pricing"
)

// Compile-time interface check.
var _ Submitter = (*Paper)(nil)

// Paper simulates order execution for paper trading: every order fills
// immediately and completely at the latest known price, with no latency,
// partial fills, or slippage. When no price is available the configured
// default price is used instead — an explicit approximation, not an error.
type Paper struct {
	prices       pricing.Source
	defaultPrice decimal.Decimal
	log          *slog.Logger

	mu     sync.RWMutex
	orders map[string]*domain.Order // submitted orders by ID
}

// NewPaper creates a Paper submitter filling at prices from the given
// source, with defaultPrice as the fallback.
func NewPaper(prices pricing.Source, defaultPrice decimal.Decimal) *Paper {
	return &Paper{
		prices:       prices,
		defaultPrice: defaultPrice,
		log:          slog.Default().With("submitter", "paper"),
		orders:       make(map[string]*domain.Order),
	}
}

// Name returns "paper".
func (p *Paper) Name() string { return "paper" }

// SubmitOrder fills the order synchronously at the latest price.
func (p *Paper) SubmitOrder(ctx context.Context, order *domain.Order) (*domain.Order, error) {
	price, err := p.prices.LatestPrice(ctx, order.Symbol)
	if err != nil {
		p.log.Warn("no price for symbol, using default",
			"symbol", order.Symbol, "default", p.defaultPrice, "error", err)
		price = p.defaultPrice
	}

	filled := order.Clone()
	filled.Status = domain.OrderStatusFilled
	filled.FilledQty = order.Qty
	filled.FilledAvgPrice = &price
	filled.UpdatedAt = time.Now().UTC()

	p.mu.Lock()
	p.orders[filled.ID] = filled
	p.mu.Unlock()

	p.log.Info("simulated fill",
		"symbol", order.Symbol, "side", order.Side, "qty", order.Qty, "price", price)
	return filled.Clone(), nil
}

// CancelOrder marks the order cancelled. Paper orders reach a terminal state
// at submission, so this is bookkeeping only and never fails for known
// orders.
func (p *Paper) CancelOrder(_ context.Context, orderID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	o, ok := p.orders[orderID]
	if !ok {
		return fmt.Errorf("unknown order %s", orderID)
	}
	if !o.Terminal() {
		o.Status = domain.OrderStatusCancelled
		o.UpdatedAt = time.Now().UTC()
	}
	return nil
}

// GetOrderStatus returns the submitted order's terminal state.
func (p *Paper) GetOrderStatus(_ context.Context, orderID string) (*domain.Order, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	o, ok := p.orders[orderID]
	if !ok {
		return nil, fmt.Errorf("unknown order %s", orderID)
	}
	return o.Clone(), nil
}
