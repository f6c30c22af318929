package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"vela/internal/domain"
	"vela/internal/util"
)

// Compile-time interface check.
var _ Notifier = (*Discord)(nil)

// Embed colors per level / trade direction.
const (
	colorInfo    = 0x0099FF
	colorWarning = 0xFFCC00
	colorError   = 0xFF0000
	colorSuccess = 0x00FF00
)

// Discord sends notifications to a Discord webhook as rich embeds. Sends are
// rate limited client-side; a message arriving while the bucket is empty is
// dropped, not queued, since stale trading alerts have no value.
type Discord struct {
	webhookURL string
	client     *http.Client
	limiter    *util.RateLimiter
	log        *slog.Logger
}

// NewDiscord creates a Discord notifier for the given webhook URL, allowing
// perMinute messages per minute.
func NewDiscord(webhookURL string, perMinute int) *Discord {
	return &Discord{
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: 10 * time.Second},
		limiter:    util.NewRateLimiter(perMinute, 3),
		log:        slog.Default().With("component", "discord"),
	}
}

// ---------------------------------------------------------------------------
// Webhook message types
// ---------------------------------------------------------------------------

type webhookMessage struct {
	Content string  `json:"content,omitempty"`
	Embeds  []embed `json:"embeds,omitempty"`
}

type embed struct {
	Title       string       `json:"title"`
	Description string       `json:"description,omitempty"`
	Color       int          `json:"color"`
	Fields      []embedField `json:"fields,omitempty"`
	Footer      *embedFooter `json:"footer,omitempty"`
	Timestamp   string       `json:"timestamp,omitempty"`
}

type embedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

type embedFooter struct {
	Text string `json:"text"`
}

// ---------------------------------------------------------------------------
// Notifier implementation
// ---------------------------------------------------------------------------

// SendTrade announces an executed trade.
func (d *Discord) SendTrade(ctx context.Context, t *domain.Trade) error {
	color := colorSuccess
	if t.Side == domain.OrderSideSell {
		color = colorError
	}

	e := embed{
		Title: fmt.Sprintf("Trade Executed: %s", t.Symbol),
		Color: color,
		Fields: []embedField{
			{Name: "Side", Value: string(t.Side), Inline: true},
			{Name: "Quantity", Value: t.Qty.String(), Inline: true},
			{Name: "Price", Value: t.Price.String(), Inline: true},
			{Name: "Notional", Value: t.Notional().String(), Inline: true},
			{Name: "Fee", Value: fmt.Sprintf("%s %s", t.Fee, t.FeeCurrency), Inline: true},
		},
		Footer:    &embedFooter{Text: fmt.Sprintf("order %s", t.OrderID)},
		Timestamp: t.Timestamp.UTC().Format(time.RFC3339),
	}
	if t.StrategyID != "" {
		e.Fields = append(e.Fields, embedField{Name: "Strategy", Value: t.StrategyID, Inline: true})
	}

	return d.post(ctx, webhookMessage{Embeds: []embed{e}})
}

// SendOrder announces a submitted order.
func (d *Discord) SendOrder(ctx context.Context, o *domain.Order) error {
	e := embed{
		Title: fmt.Sprintf("Order %s: %s", o.Status, o.Symbol),
		Color: colorInfo,
		Fields: []embedField{
			{Name: "Side", Value: string(o.Side), Inline: true},
			{Name: "Type", Value: string(o.Type), Inline: true},
			{Name: "Quantity", Value: o.Qty.String(), Inline: true},
		},
		Footer:    &embedFooter{Text: o.ID},
		Timestamp: o.UpdatedAt.UTC().Format(time.RFC3339),
	}
	if o.LimitPrice != nil {
		e.Fields = append(e.Fields, embedField{Name: "Limit", Value: o.LimitPrice.String(), Inline: true})
	}

	return d.post(ctx, webhookMessage{Embeds: []embed{e}})
}

// SendPosition announces an updated position.
func (d *Discord) SendPosition(ctx context.Context, p *domain.Position) error {
	color := colorInfo
	if p.RealizedPnL.IsNegative() {
		color = colorWarning
	}

	e := embed{
		Title: fmt.Sprintf("Position Update: %s", p.Symbol),
		Color: color,
		Fields: []embedField{
			{Name: "Side", Value: string(p.Side), Inline: true},
			{Name: "Quantity", Value: p.Qty.String(), Inline: true},
			{Name: "Avg Price", Value: p.AvgPrice.String(), Inline: true},
			{Name: "Realized P&L", Value: p.RealizedPnL.String(), Inline: true},
		},
		Timestamp: p.UpdatedAt.UTC().Format(time.RFC3339),
	}

	return d.post(ctx, webhookMessage{Embeds: []embed{e}})
}

// SendSystem announces a lifecycle or operational event. Error-level
// messages additionally ping the channel via content so they are hard to
// miss.
func (d *Discord) SendSystem(ctx context.Context, title, message string, level Level) error {
	msg := webhookMessage{
		Embeds: []embed{{
			Title:       title,
			Description: message,
			Color:       levelColor(level),
			Timestamp:   time.Now().UTC().Format(time.RFC3339),
		}},
	}
	if level == LevelError {
		msg.Content = "@here"
	}

	return d.post(ctx, msg)
}

func levelColor(level Level) int {
	switch level {
	case LevelWarning:
		return colorWarning
	case LevelError:
		return colorError
	case LevelSuccess:
		return colorSuccess
	default:
		return colorInfo
	}
}

// post delivers a webhook message, retrying transient failures.
func (d *Discord) post(ctx context.Context, msg webhookMessage) error {
	if !d.limiter.Allow() {
		d.log.Debug("notification dropped by rate limit")
		return nil
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encoding webhook message: %w", err)
	}

	return util.Retry(ctx, 3, 500*time.Millisecond, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.webhookURL, bytes.NewReader(body))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := d.client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 300 {
			return fmt.Errorf("webhook returned %s", resp.Status)
		}
		return nil
	})
}
