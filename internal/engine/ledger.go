package engine

import (
	"sync"

	"vela/internal/domain"
)

// OrderLedger tracks active orders by ID. Orders are added on submission and
// removed when they reach a terminal state or are cancelled; at most one
// order per ID is tracked at a time.
type OrderLedger struct {
	mu     sync.RWMutex
	orders map[string]*domain.Order
}

// NewOrderLedger creates an empty OrderLedger.
func NewOrderLedger() *OrderLedger {
	return &OrderLedger{orders: make(map[string]*domain.Order)}
}

// Track inserts or replaces the order under its ID.
func (l *OrderLedger) Track(o *domain.Order) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.orders[o.ID] = o.Clone()
}

// Untrack removes the order with the given ID, reporting whether it was
// present.
func (l *OrderLedger) Untrack(id string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.orders[id]; !ok {
		return false
	}
	delete(l.orders, id)
	return true
}

// Get returns a copy of the tracked order with the given ID.
func (l *OrderLedger) Get(id string) (*domain.Order, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	o, ok := l.orders[id]
	if !ok {
		return nil, false
	}
	return o.Clone(), true
}

// Snapshot returns copies of all currently tracked orders.
func (l *OrderLedger) Snapshot() []*domain.Order {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]*domain.Order, 0, len(l.orders))
	for _, o := range l.orders {
		out = append(out, o.Clone())
	}
	return out
}

// Len returns the number of tracked orders.
func (l *OrderLedger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.orders)
}
