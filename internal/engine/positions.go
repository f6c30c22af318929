package engine

import (
	"log/slog"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"vela/internal/domain"
)

// PositionBook owns the symbol→position map and applies executed trades to
// it. Each symbol has its own lock, so trades on unrelated symbols never
// contend; trades on the same symbol are serialized by the entry lock, which
// is what makes the average-cost accounting well defined.
//
// Positions are created lazily on the first trade for a symbol and are never
// deleted — a fully closed position stays in the book at zero quantity.
type PositionBook struct {
	mu      sync.RWMutex // guards the map, not the entries
	entries map[string]*bookEntry
	log     *slog.Logger
}

type bookEntry struct {
	mu  sync.Mutex
	pos domain.Position
}

// NewPositionBook creates an empty PositionBook.
func NewPositionBook() *PositionBook {
	return &PositionBook{
		entries: make(map[string]*bookEntry),
		log:     slog.Default().With("component", "positions"),
	}
}

// entry returns the book entry for symbol, creating a flat one if needed.
func (b *PositionBook) entry(symbol string) *bookEntry {
	b.mu.RLock()
	e, ok := b.entries[symbol]
	b.mu.RUnlock()
	if ok {
		return e
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if e, ok = b.entries[symbol]; ok {
		return e
	}
	e = &bookEntry{pos: domain.Position{
		Symbol: symbol,
		Side:   domain.PositionSideFlat,
	}}
	b.entries[symbol] = e
	return e
}

// Apply folds an executed trade into the symbol's position and returns the
// updated snapshot.
//
// A trade in the position's direction (or into a flat book) accumulates at
// the quantity-weighted average price. An opposing trade closes up to the
// open quantity and realizes P&L on the closed portion. An opposing trade
// larger than the open quantity closes the position and drops the excess —
// it does not flip the position into the other direction. Changing that
// would silently change realized P&L outcomes, so the truncation is kept and
// logged.
func (b *PositionBook) Apply(t *domain.Trade) domain.Position {
	e := b.entry(t.Symbol)

	e.mu.Lock()
	defer e.mu.Unlock()

	pos := &e.pos
	if b.opposes(pos, t.Side) {
		closeQty := decimal.Min(pos.Qty, t.Qty)
		pos.RealizedPnL = pos.RealizedPnL.Add(b.closingPnL(pos, t.Price, closeQty))
		pos.Qty = pos.Qty.Sub(closeQty)

		if excess := t.Qty.Sub(closeQty); excess.IsPositive() {
			b.log.Warn("trade exceeds open quantity, excess dropped",
				"symbol", t.Symbol, "excess", excess)
		}

		if pos.Qty.IsZero() {
			pos.Side = domain.PositionSideFlat
			pos.AvgPrice = decimal.Zero
		}
	} else {
		total := pos.AvgPrice.Mul(pos.Qty).Add(t.Price.Mul(t.Qty))
		pos.Qty = pos.Qty.Add(t.Qty)
		pos.AvgPrice = total.Div(pos.Qty)
		if t.Side == domain.OrderSideBuy {
			pos.Side = domain.PositionSideLong
		} else {
			pos.Side = domain.PositionSideShort
		}
	}

	pos.UpdatedAt = time.Now().UTC()

	b.log.Info("position updated",
		"symbol", pos.Symbol, "side", pos.Side, "qty", pos.Qty,
		"avg_price", pos.AvgPrice, "realized_pnl", pos.RealizedPnL)
	return *pos
}

// opposes reports whether the trade side closes existing exposure.
func (b *PositionBook) opposes(pos *domain.Position, side domain.OrderSide) bool {
	switch pos.Side {
	case domain.PositionSideLong:
		return side == domain.OrderSideSell
	case domain.PositionSideShort:
		return side == domain.OrderSideBuy
	default:
		return false
	}
}

// closingPnL returns the P&L realized by closing closeQty at price.
func (b *PositionBook) closingPnL(pos *domain.Position, price, closeQty decimal.Decimal) decimal.Decimal {
	if pos.Side == domain.PositionSideShort {
		return pos.AvgPrice.Sub(price).Mul(closeQty)
	}
	return price.Sub(pos.AvgPrice).Mul(closeQty)
}

// Get returns a snapshot of the position for symbol.
func (b *PositionBook) Get(symbol string) (domain.Position, bool) {
	b.mu.RLock()
	e, ok := b.entries[symbol]
	b.mu.RUnlock()
	if !ok {
		return domain.Position{}, false
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	return e.pos, true
}

// All returns a snapshot of every position in the book.
func (b *PositionBook) All() map[string]domain.Position {
	b.mu.RLock()
	entries := make([]*bookEntry, 0, len(b.entries))
	for _, e := range b.entries {
		entries = append(entries, e)
	}
	b.mu.RUnlock()

	out := make(map[string]domain.Position, len(entries))
	for _, e := range entries {
		e.mu.Lock()
		out[e.pos.Symbol] = e.pos
		e.mu.Unlock()
	}
	return out
}

// TotalRealizedPnL sums realized P&L across all positions.
func (b *PositionBook) TotalRealizedPnL() decimal.Decimal {
	total := decimal.Zero
	for _, p := range b.All() {
		total = total.Add(p.RealizedPnL)
	}
	return total
}
