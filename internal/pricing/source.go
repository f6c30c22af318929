// Package pricing supplies the latest known price for a symbol. Prices are
// best-effort: a source may not know a symbol, and callers are expected to
// fall back to a configured default.
package pricing

import (
	"context"
	"errors"
	"sync"

	"github.com/shopspring/decimal"
)

// ErrUnavailable is returned when a source has no price for a symbol.
var ErrUnavailable = errors.New("price unavailable")

// Source returns the latest known price for a symbol.
type Source interface {
	LatestPrice(ctx context.Context, symbol string) (decimal.Decimal, error)
}

// Static is an in-memory Source backed by a symbol→price map. It is used in
// tests and offline runs; prices are set explicitly via Set.
type Static struct {
	mu     sync.RWMutex
	prices map[string]decimal.Decimal
}

// Compile-time interface check.
var _ Source = (*Static)(nil)

// NewStatic creates an empty Static source.
func NewStatic() *Static {
	return &Static{prices: make(map[string]decimal.Decimal)}
}

// Set records the latest price for a symbol.
func (s *Static) Set(symbol string, price decimal.Decimal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prices[symbol] = price
}

// LatestPrice returns the recorded price for symbol, or ErrUnavailable.
func (s *Static) LatestPrice(_ context.Context, symbol string) (decimal.Decimal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.prices[symbol]
	if !ok {
		return decimal.Decimal{}, ErrUnavailable
	}
	return p, nil
}
