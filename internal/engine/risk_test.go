package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"vela/internal/domain"
	"vela/internal/pricing"
)

func newTestGate(maxSize, maxLoss int64) (*RiskGate, *PositionBook, *pricing.Static) {
	prices := pricing.NewStatic()
	prices.Set("BTC/USD", decimal.NewFromInt(100))
	book := NewPositionBook()
	gate := NewRiskGate(prices, book,
		decimal.NewFromInt(50000),
		decimal.NewFromInt(maxSize),
		decimal.NewFromInt(maxLoss))
	return gate, book, prices
}

func TestCheckAllows(t *testing.T) {
	gate, _, _ := newTestGate(1000, 0)

	err := gate.Check(context.Background(), "BTC/USD", domain.OrderSideBuy, decimal.NewFromInt(5))
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
}

func TestCheckNotionalLimit(t *testing.T) {
	gate, _, _ := newTestGate(1000, 0)

	// 11 * 100 = 1100 > 1000.
	err := gate.Check(context.Background(), "BTC/USD", domain.OrderSideBuy, decimal.NewFromInt(11))
	if !errors.Is(err, ErrRiskLimit) {
		t.Fatalf("got %v, want ErrRiskLimit", err)
	}

	// 10 * 100 = 1000 sits exactly on the cap and passes.
	err = gate.Check(context.Background(), "BTC/USD", domain.OrderSideBuy, decimal.NewFromInt(10))
	if err != nil {
		t.Fatalf("at-limit Check: %v", err)
	}
}

func TestCheckNonPositiveQty(t *testing.T) {
	gate, _, _ := newTestGate(1000, 0)

	for _, qty := range []decimal.Decimal{decimal.Zero, decimal.NewFromInt(-1)} {
		err := gate.Check(context.Background(), "BTC/USD", domain.OrderSideBuy, qty)
		if !errors.Is(err, ErrRiskLimit) {
			t.Fatalf("qty %s: got %v, want ErrRiskLimit", qty, err)
		}
	}
}

func TestCheckFallbackPrice(t *testing.T) {
	prices := pricing.NewStatic() // empty: lookups fail
	book := NewPositionBook()
	gate := NewRiskGate(prices, book,
		decimal.NewFromInt(50000),
		decimal.NewFromInt(60000),
		decimal.Zero)

	// Valued at the 50000 default: 1 unit passes, 2 units exceed the cap.
	if err := gate.Check(context.Background(), "ETH/USD", domain.OrderSideBuy, decimal.NewFromInt(1)); err != nil {
		t.Fatalf("Check with fallback: %v", err)
	}
	err := gate.Check(context.Background(), "ETH/USD", domain.OrderSideBuy, decimal.NewFromInt(2))
	if !errors.Is(err, ErrRiskLimit) {
		t.Fatalf("got %v, want ErrRiskLimit", err)
	}
}

func TestCheckSessionLossCap(t *testing.T) {
	gate, book, _ := newTestGate(100000, 50)

	// Realize a 60 loss: buy 1@100, sell 1@40.
	book.Apply(&domain.Trade{Symbol: "BTC/USD", Side: domain.OrderSideBuy,
		Qty: decimal.NewFromInt(1), Price: decimal.NewFromInt(100)})
	book.Apply(&domain.Trade{Symbol: "BTC/USD", Side: domain.OrderSideSell,
		Qty: decimal.NewFromInt(1), Price: decimal.NewFromInt(40)})

	err := gate.Check(context.Background(), "BTC/USD", domain.OrderSideBuy, decimal.NewFromInt(1))
	if !errors.Is(err, ErrRiskLimit) {
		t.Fatalf("got %v, want ErrRiskLimit after session loss", err)
	}
}

func TestCheckSessionLossCapDisabled(t *testing.T) {
	gate, book, _ := newTestGate(100000, 0)

	book.Apply(&domain.Trade{Symbol: "BTC/USD", Side: domain.OrderSideBuy,
		Qty: decimal.NewFromInt(1), Price: decimal.NewFromInt(100)})
	book.Apply(&domain.Trade{Symbol: "BTC/USD", Side: domain.OrderSideSell,
		Qty: decimal.NewFromInt(1), Price: decimal.NewFromInt(1)})

	if err := gate.Check(context.Background(), "BTC/USD", domain.OrderSideBuy, decimal.NewFromInt(1)); err != nil {
		t.Fatalf("Check with disabled loss cap: %v", err)
	}
}
