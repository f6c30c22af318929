// Package domain defines the core trading types shared across the system:
// orders, trades (executions), and positions.
package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// ---------------------------------------------------------------------------
// Enums
// ---------------------------------------------------------------------------

// OrderSide is the direction of an order.
type OrderSide string

const (
	OrderSideBuy  OrderSide = "buy"
	OrderSideSell OrderSide = "sell"
)

// OrderType is the execution style of an order.
type OrderType string

const (
	OrderTypeMarket    OrderType = "market"
	OrderTypeLimit     OrderType = "limit"
	OrderTypeStop      OrderType = "stop"
	OrderTypeStopLimit OrderType = "stop_limit"
)

// OrderStatus is the lifecycle state of an order.
type OrderStatus string

const (
	OrderStatusNew             OrderStatus = "new"
	OrderStatusPartiallyFilled OrderStatus = "partially_filled"
	OrderStatusFilled          OrderStatus = "filled"
	OrderStatusCancelled       OrderStatus = "cancelled"
	OrderStatusRejected        OrderStatus = "rejected"
)

// TimeInForce controls how long an order remains working.
type TimeInForce string

const (
	TimeInForceGTC TimeInForce = "gtc"
	TimeInForceDay TimeInForce = "day"
	TimeInForceIOC TimeInForce = "ioc"
	TimeInForceFOK TimeInForce = "fok"
)

// PositionSide is the direction of net exposure for a symbol.
type PositionSide string

const (
	PositionSideLong  PositionSide = "long"
	PositionSideShort PositionSide = "short"
	PositionSideFlat  PositionSide = "flat"
)

// ---------------------------------------------------------------------------
// Order
// ---------------------------------------------------------------------------

// Order is a request to trade. It is owned by the order ledger while active
// and becomes an immutable snapshot once it reaches a terminal status.
type Order struct {
	ID             string
	ClientOrderID  string
	Symbol         string
	Side           OrderSide
	Type           OrderType
	Qty            decimal.Decimal
	LimitPrice     *decimal.Decimal // required for limit orders
	Status         OrderStatus
	FilledQty      decimal.Decimal
	FilledAvgPrice *decimal.Decimal
	TimeInForce    TimeInForce
	StrategyID     string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Terminal reports whether the order can no longer change state.
func (o *Order) Terminal() bool {
	switch o.Status {
	case OrderStatusFilled, OrderStatusCancelled, OrderStatusRejected:
		return true
	}
	return false
}

// Filled reports whether the order has been completely filled.
func (o *Order) Filled() bool {
	return o.Status == OrderStatusFilled && o.FilledQty.IsPositive()
}

// Clone returns a deep copy of the order.
func (o *Order) Clone() *Order {
	c := *o
	if o.LimitPrice != nil {
		p := *o.LimitPrice
		c.LimitPrice = &p
	}
	if o.FilledAvgPrice != nil {
		p := *o.FilledAvgPrice
		c.FilledAvgPrice = &p
	}
	return &c
}

// ---------------------------------------------------------------------------
// Trade
// ---------------------------------------------------------------------------

// Trade is an immutable execution record, created once per fill.
type Trade struct {
	ID          string
	OrderID     string
	Symbol      string
	Side        OrderSide
	Qty         decimal.Decimal
	Price       decimal.Decimal
	Fee         decimal.Decimal
	FeeCurrency string
	Timestamp   time.Time
	StrategyID  string
}

// Notional returns the cash value of the trade (price * qty).
func (t *Trade) Notional() decimal.Decimal {
	return t.Price.Mul(t.Qty)
}

// ---------------------------------------------------------------------------
// Position
// ---------------------------------------------------------------------------

// Position is the per-symbol net exposure aggregate. Qty is always
// non-negative; direction is carried by Side. A position goes flat rather
// than being deleted.
type Position struct {
	Symbol        string
	Side          PositionSide
	Qty           decimal.Decimal
	AvgPrice      decimal.Decimal
	UnrealizedPnL decimal.Decimal
	RealizedPnL   decimal.Decimal
	UpdatedAt     time.Time
}

// Flat reports whether the position has no open exposure.
func (p *Position) Flat() bool {
	return p.Side == PositionSideFlat || p.Qty.IsZero()
}

// UnrealizedAt returns the mark-to-market P&L of the open portion at the
// given price. The engine does not mark positions itself; valuation is an
// external step.
func (p *Position) UnrealizedAt(mark decimal.Decimal) decimal.Decimal {
	switch p.Side {
	case PositionSideLong:
		return mark.Sub(p.AvgPrice).Mul(p.Qty)
	case PositionSideShort:
		return p.AvgPrice.Sub(mark).Mul(p.Qty)
	default:
		return decimal.Zero
	}
}
