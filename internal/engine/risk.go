package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"vela/internal/domain"
	"vela/internal/pricing"
)

// RiskGate enforces pre-trade risk limits. The notional check is
// per-request: it values the incoming order at the latest price and compares
// against the configured cap. It deliberately does not account for existing
// open positions or concurrently in-flight orders on the same symbol.
type RiskGate struct {
	prices          pricing.Source
	defaultPrice    decimal.Decimal // used when no price is available
	maxPositionSize decimal.Decimal // max notional per order
	maxSessionLoss  decimal.Decimal // realized-loss cap since start, zero disables
	book            *PositionBook
	log             *slog.Logger
}

// NewRiskGate creates a RiskGate. maxSessionLoss may be zero to disable the
// loss cap; book is only consulted when the cap is active.
func NewRiskGate(prices pricing.Source, book *PositionBook, defaultPrice, maxPositionSize, maxSessionLoss decimal.Decimal) *RiskGate {
	return &RiskGate{
		prices:          prices,
		defaultPrice:    defaultPrice,
		maxPositionSize: maxPositionSize,
		maxSessionLoss:  maxSessionLoss,
		book:            book,
		log:             slog.Default().With("component", "risk"),
	}
}

// Check validates a proposed trade against the configured limits. A nil
// return means the trade may be submitted.
func (g *RiskGate) Check(ctx context.Context, symbol string, _ domain.OrderSide, qty decimal.Decimal) error {
	if !qty.IsPositive() {
		return fmt.Errorf("%w: quantity %s must be positive", ErrRiskLimit, qty)
	}

	price := g.latestPrice(ctx, symbol)
	notional := price.Mul(qty)
	if notional.GreaterThan(g.maxPositionSize) {
		return fmt.Errorf("%w: notional %s exceeds max position size %s",
			ErrRiskLimit, notional, g.maxPositionSize)
	}

	if g.maxSessionLoss.IsPositive() {
		if realized := g.book.TotalRealizedPnL(); realized.Neg().GreaterThanOrEqual(g.maxSessionLoss) {
			return fmt.Errorf("%w: session realized loss %s has reached the cap %s",
				ErrRiskLimit, realized.Neg(), g.maxSessionLoss)
		}
	}

	return nil
}

// latestPrice fetches the current price, falling back to the configured
// default when the source has nothing. The fallback is a documented
// approximation: it keeps the gate usable during feed outages at the cost of
// valuing the order at a stale constant.
func (g *RiskGate) latestPrice(ctx context.Context, symbol string) decimal.Decimal {
	price, err := g.prices.LatestPrice(ctx, symbol)
	if err != nil {
		g.log.Warn("no price for risk check, using default",
			"symbol", symbol, "default", g.defaultPrice, "error", err)
		return g.defaultPrice
	}
	return price
}
