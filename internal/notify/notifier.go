// Package notify delivers human-readable trading notifications. Delivery is
// fire-and-forget: the engine never blocks a trade on a notification, and a
// failed send is logged, not propagated.
package notify

import (
	"context"

	"vela/internal/domain"
)

// Level classifies system notifications.
type Level string

const (
	LevelInfo    Level = "info"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
	LevelSuccess Level = "success"
)

// Notifier sends trading event notifications to an external channel.
type Notifier interface {
	// SendTrade announces an executed trade.
	SendTrade(ctx context.Context, trade *domain.Trade) error

	// SendOrder announces a submitted order.
	SendOrder(ctx context.Context, order *domain.Order) error

	// SendPosition announces an updated position.
	SendPosition(ctx context.Context, pos *domain.Position) error

	// SendSystem announces a lifecycle or operational event.
	SendSystem(ctx context.Context, title, message string, level Level) error
}

// Nop is a Notifier that discards everything. Used when notifications are
// disabled.
type Nop struct{}

// Compile-time interface check.
var _ Notifier = (*Nop)(nil)

func (Nop) SendTrade(context.Context, *domain.Trade) error          { return nil }
func (Nop) SendOrder(context.Context, *domain.Order) error          { return nil }
func (Nop) SendPosition(context.Context, *domain.Position) error    { return nil }
func (Nop) SendSystem(context.Context, string, string, Level) error { return nil }
