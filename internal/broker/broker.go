// Package broker defines the Submitter interface and provides the two order
// submission paths: a paper simulator and the Alpaca live brokerage.
package broker

import (
	"context"

	"vela/internal/domain"
)

// Submitter abstracts order submission, cancellation, and status queries.
// There are exactly two implementations — Paper and Alpaca — chosen once at
// engine construction from the live/paper configuration flag.
type Submitter interface {
	// Name returns the submitter identifier (e.g. "alpaca", "paper").
	Name() string

	// SubmitOrder sends an order for execution and returns the resulting
	// order state. The returned order may already be terminal (paper) or
	// still working (live).
	SubmitOrder(ctx context.Context, order *domain.Order) (*domain.Order, error)

	// CancelOrder requests cancellation of an open order by its ID.
	CancelOrder(ctx context.Context, orderID string) error

	// GetOrderStatus returns the current state of a previously submitted
	// order.
	GetOrderStatus(ctx context.Context, orderID string) (*domain.Order, error)
}
