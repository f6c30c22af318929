package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"vela/internal/domain"
	"vela/internal/pricing"
)

// scriptedSubmitter serves canned GetOrderStatus responses keyed by order ID.
type scriptedSubmitter struct {
	statuses map[string]*domain.Order
}

func (s *scriptedSubmitter) Name() string { return "scripted" }

func (s *scriptedSubmitter) SubmitOrder(_ context.Context, o *domain.Order) (*domain.Order, error) {
	return o.Clone(), nil
}

func (s *scriptedSubmitter) CancelOrder(context.Context, string) error { return nil }

func (s *scriptedSubmitter) GetOrderStatus(_ context.Context, id string) (*domain.Order, error) {
	o, ok := s.statuses[id]
	if !ok {
		return nil, errors.New("unknown order")
	}
	return o.Clone(), nil
}

func filledOrder(id string, qty, price int64) *domain.Order {
	p := decimal.NewFromInt(price)
	return &domain.Order{
		ID:             id,
		Symbol:         "BTC/USD",
		Side:           domain.OrderSideBuy,
		Qty:            decimal.NewFromInt(qty),
		FilledQty:      decimal.NewFromInt(qty),
		FilledAvgPrice: &p,
		Status:         domain.OrderStatusFilled,
	}
}

func newMonitorEngine(t *testing.T, sub *scriptedSubmitter) *Engine {
	t.Helper()
	e := New(Options{
		Submitter:       sub,
		Prices:          pricing.NewStatic(),
		Live:            true,
		MaxPositionSize: decimal.NewFromInt(1000000),
		MonitorInterval: time.Hour, // reconciliation driven manually in tests
	})
	if err := e.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(func() { _ = e.Stop() })
	return e
}

func TestReconcileAppliesFill(t *testing.T) {
	sub := &scriptedSubmitter{statuses: map[string]*domain.Order{
		"o1": filledOrder("o1", 2, 100),
	}}
	e := newMonitorEngine(t, sub)

	working := filledOrder("o1", 2, 100)
	working.Status = domain.OrderStatusNew
	working.FilledQty = decimal.Zero
	working.FilledAvgPrice = nil
	working.StrategyID = "momentum"
	e.ledger.Track(working)

	e.reconcileOrders(context.Background())

	pos, ok := e.Position("BTC/USD")
	if !ok || !pos.Qty.Equal(decimal.NewFromInt(2)) {
		t.Fatalf("position after reconcile: %+v", pos)
	}
	if e.ledger.Len() != 0 {
		t.Fatalf("filled order still tracked: %d", e.ledger.Len())
	}
}

func TestReconcileDropsTerminalWithoutFill(t *testing.T) {
	cancelled := testOrder("o1")
	cancelled.Status = domain.OrderStatusCancelled
	sub := &scriptedSubmitter{statuses: map[string]*domain.Order{"o1": cancelled}}
	e := newMonitorEngine(t, sub)

	e.ledger.Track(testOrder("o1"))
	e.reconcileOrders(context.Background())

	if e.ledger.Len() != 0 {
		t.Fatalf("cancelled order still tracked: %d", e.ledger.Len())
	}
	if _, ok := e.Position("BTC/USD"); ok {
		t.Fatal("cancelled order moved the position")
	}
}

func TestReconcileAppliesPartialFillOnCancel(t *testing.T) {
	cancelled := filledOrder("o1", 2, 100)
	cancelled.Status = domain.OrderStatusCancelled
	cancelled.FilledQty = decimal.NewFromInt(1)
	sub := &scriptedSubmitter{statuses: map[string]*domain.Order{"o1": cancelled}}
	e := newMonitorEngine(t, sub)

	e.ledger.Track(testOrder("o1"))
	e.reconcileOrders(context.Background())

	// The executed half must reach the book even though the order died.
	pos, ok := e.Position("BTC/USD")
	if !ok || !pos.Qty.Equal(decimal.NewFromInt(1)) {
		t.Fatalf("position after partial-fill cancel: %+v, want qty 1", pos)
	}
	if e.ledger.Len() != 0 {
		t.Fatalf("cancelled order still tracked: %d", e.ledger.Len())
	}
}

func TestReconcileKeepsWorkingOrder(t *testing.T) {
	partial := testOrder("o1")
	partial.Status = domain.OrderStatusPartiallyFilled
	partial.FilledQty = decimal.NewFromFloat(0.5)
	sub := &scriptedSubmitter{statuses: map[string]*domain.Order{"o1": partial}}
	e := newMonitorEngine(t, sub)

	e.ledger.Track(testOrder("o1"))
	e.reconcileOrders(context.Background())

	got, ok := e.ledger.Get("o1")
	if !ok {
		t.Fatal("working order dropped from ledger")
	}
	if got.Status != domain.OrderStatusPartiallyFilled {
		t.Fatalf("status not refreshed: %s", got.Status)
	}
	if !got.FilledQty.Equal(decimal.NewFromFloat(0.5)) {
		t.Fatalf("filled qty not refreshed: %s", got.FilledQty)
	}
}

func TestReconcileStatusErrorKeepsOrder(t *testing.T) {
	sub := &scriptedSubmitter{statuses: map[string]*domain.Order{}}
	e := newMonitorEngine(t, sub)

	e.ledger.Track(testOrder("o1"))
	e.reconcileOrders(context.Background())

	if e.ledger.Len() != 1 {
		t.Fatal("order dropped after a transient status error")
	}
}
