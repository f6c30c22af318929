package broker

import (
	"context"
	"fmt"
	"log/slog"

	alpacaapi "github.com/alpacahq/alpaca-trade-api-go/v3/alpaca"
	"github.com/shopspring/decimal"

	"vela/internal/domain"
)

// Compile-time interface check.
var _ Submitter = (*Alpaca)(nil)

// Alpaca submits orders to the Alpaca brokerage API. The returned order
// carries whatever status the exchange reports; market orders are usually
// still "new" when PlaceOrder returns and fill asynchronously.
type Alpaca struct {
	client *alpacaapi.Client
	log    *slog.Logger
}

// NewAlpaca creates an Alpaca submitter with the given credentials. baseURL
// may be empty to use the SDK default (set it to the paper endpoint for
// paper accounts).
func NewAlpaca(apiKey, apiSecret, baseURL string) *Alpaca {
	opts := alpacaapi.ClientOpts{
		APIKey:    apiKey,
		APISecret: apiSecret,
	}
	if baseURL != "" {
		opts.BaseURL = baseURL
	}

	return &Alpaca{
		client: alpacaapi.NewClient(opts),
		log:    slog.Default().With("submitter", "alpaca"),
	}
}

// Name returns "alpaca".
func (a *Alpaca) Name() string { return "alpaca" }

// SubmitOrder places the order via the Alpaca API.
func (a *Alpaca) SubmitOrder(_ context.Context, order *domain.Order) (*domain.Order, error) {
	qty := order.Qty
	req := alpacaapi.PlaceOrderRequest{
		Symbol:        order.Symbol,
		Qty:           &qty,
		Side:          alpacaapi.Side(order.Side),
		Type:          alpacaapi.OrderType(order.Type),
		TimeInForce:   alpacaapi.TimeInForce(order.TimeInForce),
		LimitPrice:    order.LimitPrice,
		ClientOrderID: order.ClientOrderID,
	}

	placed, err := a.client.PlaceOrder(req)
	if err != nil {
		return nil, fmt.Errorf("placing order for %s: %w", order.Symbol, err)
	}

	out := fromAlpacaOrder(placed)
	out.StrategyID = order.StrategyID
	a.log.Info("order placed",
		"id", out.ID, "symbol", out.Symbol, "side", out.Side, "status", out.Status)
	return out, nil
}

// CancelOrder requests cancellation via the Alpaca API.
func (a *Alpaca) CancelOrder(_ context.Context, orderID string) error {
	if err := a.client.CancelOrder(orderID); err != nil {
		return fmt.Errorf("cancelling order %s: %w", orderID, err)
	}
	return nil
}

// GetOrderStatus fetches the current order state from the Alpaca API.
func (a *Alpaca) GetOrderStatus(_ context.Context, orderID string) (*domain.Order, error) {
	o, err := a.client.GetOrder(orderID)
	if err != nil {
		return nil, fmt.Errorf("querying order %s: %w", orderID, err)
	}
	return fromAlpacaOrder(o), nil
}

// ---------------------------------------------------------------------------
// SDK type conversion
// ---------------------------------------------------------------------------

// fromAlpacaOrder converts an SDK order into the domain representation.
func fromAlpacaOrder(o *alpacaapi.Order) *domain.Order {
	qty := decimal.Zero
	if o.Qty != nil {
		qty = *o.Qty
	}

	out := &domain.Order{
		ID:            o.ID,
		ClientOrderID: o.ClientOrderID,
		Symbol:        o.Symbol,
		Side:          domain.OrderSide(o.Side),
		Type:          domain.OrderType(o.Type),
		Qty:           qty,
		LimitPrice:    o.LimitPrice,
		Status:        statusFromAlpaca(string(o.Status)),
		FilledQty:     o.FilledQty,
		TimeInForce:   domain.TimeInForce(o.TimeInForce),
		CreatedAt:     o.CreatedAt,
		UpdatedAt:     o.UpdatedAt,
	}
	if o.FilledAvgPrice != nil {
		p := *o.FilledAvgPrice
		out.FilledAvgPrice = &p
	}
	return out
}

// statusFromAlpaca maps Alpaca order status strings onto the domain order
// lifecycle. Pre-acceptance states collapse into "new"; expiry counts as
// cancellation. A pending cancel is still working: the order can report a
// fill until the exchange confirms "canceled".
func statusFromAlpaca(status string) domain.OrderStatus {
	switch status {
	case "filled":
		return domain.OrderStatusFilled
	case "partially_filled":
		return domain.OrderStatusPartiallyFilled
	case "canceled", "expired", "done_for_day":
		return domain.OrderStatusCancelled
	case "rejected", "suspended", "stopped":
		return domain.OrderStatusRejected
	default:
		// new, accepted, pending_new, pending_cancel, replaced, ...
		return domain.OrderStatusNew
	}
}
