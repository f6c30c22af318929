// Package engine is the trading execution core: it turns trade requests into
// submitted orders, applies fills to the position book, enforces pre-trade
// risk limits, and supervises in-flight orders until they reach a terminal
// state.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"vela/internal/broker"
	"vela/internal/domain"
	"vela/internal/notify"
	"vela/internal/pricing"
	"vela/internal/store"
)

// State is the engine lifecycle state.
type State string

const (
	StateStopped  State = "stopped"
	StateStarting State = "starting"
	StateRunning  State = "running"
	StateStopping State = "stopping"
)

const (
	defaultMonitorInterval = 5 * time.Second
	effectQueueSize        = 256
	effectTimeout          = 10 * time.Second
)

// Options configures an Engine.
type Options struct {
	Submitter broker.Submitter
	Prices    pricing.Source
	Trades    store.TradeStore // nil disables persistence
	Notifier  notify.Notifier  // nil disables notifications

	Live            bool // live exchange mode vs paper
	DefaultPrice    decimal.Decimal
	MaxPositionSize decimal.Decimal
	MaxSessionLoss  decimal.Decimal // zero disables
	FeeRate         decimal.Decimal
	FeeCurrency     string
	MonitorInterval time.Duration
	Logger          *slog.Logger
}

// TradeRequest is a trade intent handed to ExecuteTrade.
type TradeRequest struct {
	Symbol     string
	Side       domain.OrderSide
	Qty        decimal.Decimal
	Type       domain.OrderType
	LimitPrice *decimal.Decimal // required for limit orders
	StrategyID string
}

// effect is a post-commit side effect (persistence, notification) executed
// off the trade path.
type effect struct {
	name string
	fn   func(ctx context.Context)
}

// Engine orchestrates the trading lifecycle: risk gate → submission →
// position accounting → order supervision, with persistence and
// notifications as detached side effects.
type Engine struct {
	submitter       broker.Submitter
	risk            *RiskGate
	book            *PositionBook
	ledger          *OrderLedger
	trades          store.TradeStore
	notifier        notify.Notifier
	live            bool
	feeRate         decimal.Decimal
	feeCurrency     string
	monitorInterval time.Duration
	log             *slog.Logger

	mu          sync.RWMutex
	state       State
	cancel      context.CancelFunc
	monitorDone chan struct{}
	effectsDone chan struct{}
	effects     chan effect
}

// New creates a stopped Engine from the given options.
func New(opts Options) *Engine {
	if opts.Notifier == nil {
		opts.Notifier = notify.Nop{}
	}
	if opts.MonitorInterval <= 0 {
		opts.MonitorInterval = defaultMonitorInterval
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	book := NewPositionBook()
	return &Engine{
		submitter:       opts.Submitter,
		risk:            NewRiskGate(opts.Prices, book, opts.DefaultPrice, opts.MaxPositionSize, opts.MaxSessionLoss),
		book:            book,
		ledger:          NewOrderLedger(),
		trades:          opts.Trades,
		notifier:        opts.Notifier,
		live:            opts.Live,
		feeRate:         opts.FeeRate,
		feeCurrency:     opts.FeeCurrency,
		monitorInterval: opts.MonitorInterval,
		log:             opts.Logger.With("component", "engine"),
		state:           StateStopped,
	}
}

// ---------------------------------------------------------------------------
// Lifecycle
// ---------------------------------------------------------------------------

// Start transitions the engine to running and spawns the order monitor and
// the side-effect worker. Starting a running engine returns
// ErrAlreadyRunning and has no side effects.
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	if e.state != StateStopped {
		state := e.state
		e.mu.Unlock()
		return fmt.Errorf("%w: state %s", ErrAlreadyRunning, state)
	}
	e.state = StateStarting

	// The monitor and effect worker outlive the Start call; they stop on
	// engine shutdown, not when the caller's context ends.
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	e.cancel = cancel
	e.monitorDone = make(chan struct{})
	e.effectsDone = make(chan struct{})
	e.effects = make(chan effect, effectQueueSize)
	e.mu.Unlock()

	// Positions are not recovered across restarts; the book starts empty.

	go e.runEffects(runCtx)
	go e.runMonitor(runCtx)

	e.mu.Lock()
	e.state = StateRunning
	e.mu.Unlock()

	e.log.Info("engine started", "submitter", e.submitter.Name(), "live", e.live)
	e.enqueue("start notification", func(ctx context.Context) {
		if err := e.notifier.SendSystem(ctx, "Engine Started",
			fmt.Sprintf("Trading engine running in %s mode.", e.submitter.Name()),
			notify.LevelSuccess); err != nil {
			e.log.Warn("start notification failed", "error", err)
		}
	})
	return nil
}

// Stop cancels all active orders and shuts the engine down. Stopping an
// already-stopped engine is a no-op; the second call issues no duplicate
// cancellations.
func (e *Engine) Stop() error {
	e.mu.Lock()
	if e.state != StateRunning {
		e.mu.Unlock()
		return nil
	}
	e.state = StateStopping
	cancel := e.cancel
	e.mu.Unlock()

	e.log.Info("engine stopping")
	e.cancelAllOrders()

	e.enqueue("stop notification", func(ctx context.Context) {
		if err := e.notifier.SendSystem(ctx, "Engine Stopped",
			"Trading engine shut down cleanly.", notify.LevelInfo); err != nil {
			e.log.Warn("stop notification failed", "error", err)
		}
	})

	// Cancellation stops the monitor immediately and lets the effect worker
	// drain whatever is queued.
	cancel()
	<-e.monitorDone
	<-e.effectsDone

	e.mu.Lock()
	e.state = StateStopped
	e.mu.Unlock()

	e.log.Info("engine stopped")
	return nil
}

// State returns the current lifecycle state.
func (e *Engine) State() State {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.state
}

// Healthy reports whether the engine is running.
func (e *Engine) Healthy() bool {
	return e.State() == StateRunning
}

// cancelAllOrders empties the ledger, requesting exchange cancellation in
// live mode. Paper orders are terminal at submission, so removing them from
// the ledger is pure bookkeeping.
func (e *Engine) cancelAllOrders() {
	orders := e.ledger.Snapshot()
	if len(orders) == 0 {
		return
	}

	e.log.Info("cancelling active orders", "count", len(orders))
	for _, o := range orders {
		if e.live {
			ctx, cancel := context.WithTimeout(context.Background(), effectTimeout)
			if err := e.submitter.CancelOrder(ctx, o.ID); err != nil {
				e.log.Error("cancel failed", "id", o.ID, "error", err)
			}
			cancel()
		}
		e.ledger.Untrack(o.ID)
	}
}

// ---------------------------------------------------------------------------
// Trade execution
// ---------------------------------------------------------------------------

// ExecuteTrade runs the full trade path: risk gate → order construction →
// submission → fill accounting. It returns the submitted order, which in
// live mode may still be working. Errors before submission leave position
// and ledger state untouched; side effects after the fill (persistence,
// notifications) cannot fail the call.
func (e *Engine) ExecuteTrade(ctx context.Context, req TradeRequest) (*domain.Order, error) {
	if e.State() != StateRunning {
		return nil, ErrNotRunning
	}
	if req.Type == domain.OrderTypeLimit && req.LimitPrice == nil {
		return nil, fmt.Errorf("%w: limit order requires a limit price", ErrSubmission)
	}

	if err := e.risk.Check(ctx, req.Symbol, req.Side, req.Qty); err != nil {
		e.log.Warn("trade rejected by risk gate",
			"symbol", req.Symbol, "side", req.Side, "qty", req.Qty, "error", err)
		return nil, err
	}

	now := time.Now().UTC()
	order := &domain.Order{
		ID:            uuid.NewString(),
		ClientOrderID: uuid.NewString(),
		Symbol:        req.Symbol,
		Side:          req.Side,
		Type:          req.Type,
		Qty:           req.Qty,
		LimitPrice:    req.LimitPrice,
		Status:        domain.OrderStatusNew,
		TimeInForce:   domain.TimeInForceGTC,
		StrategyID:    req.StrategyID,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	submitted, err := e.submitter.SubmitOrder(ctx, order)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSubmission, err)
	}
	if submitted.StrategyID == "" {
		submitted.StrategyID = req.StrategyID
	}

	e.ledger.Track(submitted)
	e.log.Info("order submitted",
		"id", submitted.ID, "symbol", submitted.Symbol, "side", submitted.Side,
		"qty", submitted.Qty, "status", submitted.Status)

	if submitted.Filled() {
		e.recordFill(submitted)
	} else if submitted.Terminal() {
		e.ledger.Untrack(submitted.ID)
	}

	e.enqueue("order notification", func(ctx context.Context) {
		if err := e.notifier.SendOrder(ctx, submitted.Clone()); err != nil {
			e.log.Warn("order notification failed", "id", submitted.ID, "error", err)
		}
	})

	return submitted.Clone(), nil
}

// recordFill converts a filled order into a trade, applies it to the book,
// and schedules persistence and notifications. The order leaves the ledger
// here: a fill is terminal.
func (e *Engine) recordFill(o *domain.Order) {
	if o.FilledAvgPrice == nil {
		e.log.Error("filled order has no average price, fill dropped", "id", o.ID)
		e.ledger.Untrack(o.ID)
		return
	}
	price := *o.FilledAvgPrice

	trade := &domain.Trade{
		ID:          uuid.NewString(),
		OrderID:     o.ID,
		Symbol:      o.Symbol,
		Side:        o.Side,
		Qty:         o.FilledQty,
		Price:       price,
		Fee:         price.Mul(o.FilledQty).Mul(e.feeRate),
		FeeCurrency: e.feeCurrency,
		Timestamp:   time.Now().UTC(),
		StrategyID:  o.StrategyID,
	}

	pos := e.book.Apply(trade)
	e.ledger.Untrack(o.ID)

	if e.trades != nil {
		e.enqueue("trade persistence", func(ctx context.Context) {
			if err := e.trades.SaveTrade(ctx, trade); err != nil {
				e.log.Error("saving trade failed", "trade", trade.ID, "error", err)
			}
		})
	}
	e.enqueue("trade notification", func(ctx context.Context) {
		if err := e.notifier.SendTrade(ctx, trade); err != nil {
			e.log.Warn("trade notification failed", "trade", trade.ID, "error", err)
		}
	})
	e.enqueue("position notification", func(ctx context.Context) {
		if err := e.notifier.SendPosition(ctx, &pos); err != nil {
			e.log.Warn("position notification failed", "symbol", pos.Symbol, "error", err)
		}
	})
}

// ---------------------------------------------------------------------------
// Accessors
// ---------------------------------------------------------------------------

// Positions returns a snapshot of all positions.
func (e *Engine) Positions() map[string]domain.Position {
	return e.book.All()
}

// Position returns a snapshot of the position for symbol.
func (e *Engine) Position(symbol string) (domain.Position, bool) {
	return e.book.Get(symbol)
}

// ActiveOrders returns copies of all orders currently tracked by the ledger.
func (e *Engine) ActiveOrders() []*domain.Order {
	return e.ledger.Snapshot()
}

// ---------------------------------------------------------------------------
// Side-effect worker
// ---------------------------------------------------------------------------

// enqueue schedules a post-commit side effect. It never blocks: when the
// queue is full the effect is dropped and logged, because persistence and
// notification outages must not back up into the trade path.
func (e *Engine) enqueue(name string, fn func(ctx context.Context)) {
	e.mu.RLock()
	effects := e.effects
	e.mu.RUnlock()
	if effects == nil {
		return
	}

	select {
	case effects <- effect{name: name, fn: fn}:
	default:
		e.log.Warn("effect queue full, dropping", "effect", name)
	}
}

// runEffects drains the side-effect queue until the engine shuts down, then
// flushes whatever is still queued.
func (e *Engine) runEffects(ctx context.Context) {
	defer close(e.effectsDone)

	run := func(ef effect) {
		effCtx, cancel := context.WithTimeout(context.Background(), effectTimeout)
		defer cancel()
		ef.fn(effCtx)
	}

	for {
		select {
		case ef := <-e.effects:
			run(ef)
		case <-ctx.Done():
			for {
				select {
				case ef := <-e.effects:
					run(ef)
				default:
					return
				}
			}
		}
	}
}
