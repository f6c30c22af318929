package store

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"vela/internal/domain"
)

func sampleTrade(id string, ts time.Time) *domain.Trade {
	return &domain.Trade{
		ID:          id,
		OrderID:     "order-" + id,
		Symbol:      "BTC/USD",
		Side:        domain.OrderSideBuy,
		Qty:         decimal.RequireFromString("0.5"),
		Price:       decimal.RequireFromString("48000.25"),
		Fee:         decimal.RequireFromString("24.000125"),
		FeeCurrency: "USD",
		StrategyID:  "sma-cross",
		Timestamp:   ts,
	}
}

func assertTradeEqual(t *testing.T, got, want domain.Trade) {
	t.Helper()
	if got.ID != want.ID || got.OrderID != want.OrderID || got.Symbol != want.Symbol {
		t.Errorf("identity mismatch: got %+v, want %+v", got, want)
	}
	if got.Side != want.Side {
		t.Errorf("Side = %q, want %q", got.Side, want.Side)
	}
	if !got.Qty.Equal(want.Qty) {
		t.Errorf("Qty = %s, want %s", got.Qty, want.Qty)
	}
	if !got.Price.Equal(want.Price) {
		t.Errorf("Price = %s, want %s", got.Price, want.Price)
	}
	if !got.Fee.Equal(want.Fee) {
		t.Errorf("Fee = %s, want %s", got.Fee, want.Fee)
	}
	if got.StrategyID != want.StrategyID {
		t.Errorf("StrategyID = %q, want %q", got.StrategyID, want.StrategyID)
	}
	if !got.Timestamp.Equal(want.Timestamp) {
		t.Errorf("Timestamp = %s, want %s", got.Timestamp, want.Timestamp)
	}
}

func TestSQLiteStoreSaveList(t *testing.T) {
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "vela.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore returned error: %v", err)
	}
	defer s.Close()

	ctx := context.Background()
	base := time.Date(2026, 8, 20, 14, 0, 0, 0, time.UTC)

	first := sampleTrade("t1", base)
	second := sampleTrade("t2", base.Add(time.Minute))
	for _, tr := range []*domain.Trade{first, second} {
		if err := s.SaveTrade(ctx, tr); err != nil {
			t.Fatalf("SaveTrade(%s) returned error: %v", tr.ID, err)
		}
	}

	// Saving the same ID again must not duplicate.
	if err := s.SaveTrade(ctx, first); err != nil {
		t.Fatalf("replayed SaveTrade returned error: %v", err)
	}

	trades, err := s.ListTrades(ctx, "BTC/USD", base.Add(-time.Hour), base.Add(time.Hour))
	if err != nil {
		t.Fatalf("ListTrades returned error: %v", err)
	}
	if len(trades) != 2 {
		t.Fatalf("ListTrades returned %d trades, want 2", len(trades))
	}
	assertTradeEqual(t, trades[0], *first)
	assertTradeEqual(t, trades[1], *second)

	// Range filter excludes out-of-window trades.
	trades, err = s.ListTrades(ctx, "BTC/USD", base.Add(30*time.Second), base.Add(time.Hour))
	if err != nil {
		t.Fatalf("ListTrades returned error: %v", err)
	}
	if len(trades) != 1 || trades[0].ID != "t2" {
		t.Errorf("windowed ListTrades = %v, want only t2", trades)
	}

	// Unknown symbol yields nothing.
	trades, _ = s.ListTrades(ctx, "ETH/USD", base.Add(-time.Hour), base.Add(time.Hour))
	if len(trades) != 0 {
		t.Errorf("ListTrades for unknown symbol returned %d trades", len(trades))
	}
}

func TestParquetJournalPath(t *testing.T) {
	j := NewParquetJournal("/data")
	ts := time.Date(2026, 8, 20, 14, 0, 0, 0, time.UTC)

	got := j.fillPath("btc/usd", ts)
	want := filepath.Join("/data", "fills", "BTC-USD", "2026-08-20.parquet")
	if got != want {
		t.Errorf("fillPath = %s, want %s", got, want)
	}
	if strings.Count(got, string(filepath.Separator)) != strings.Count(want, string(filepath.Separator)) {
		t.Errorf("fillPath must not leak path separators from the symbol: %s", got)
	}
}

func TestParquetJournalSaveList(t *testing.T) {
	j := NewParquetJournal(t.TempDir())
	ctx := context.Background()
	base := time.Date(2026, 8, 20, 14, 0, 0, 0, time.UTC)

	first := sampleTrade("t1", base)
	second := sampleTrade("t2", base.Add(25*time.Hour)) // next day, separate file
	for _, tr := range []*domain.Trade{first, second} {
		if err := j.SaveTrade(ctx, tr); err != nil {
			t.Fatalf("SaveTrade(%s) returned error: %v", tr.ID, err)
		}
	}

	// Replaying the same trade merges, not duplicates.
	if err := j.SaveTrade(ctx, first); err != nil {
		t.Fatalf("replayed SaveTrade returned error: %v", err)
	}

	trades, err := j.ListTrades(ctx, "BTC/USD", base.Add(-time.Hour), base.Add(48*time.Hour))
	if err != nil {
		t.Fatalf("ListTrades returned error: %v", err)
	}
	if len(trades) != 2 {
		t.Fatalf("ListTrades returned %d trades, want 2", len(trades))
	}
	assertTradeEqual(t, trades[0], *first)
	assertTradeEqual(t, trades[1], *second)
}

func TestParquetJournalListPartialFinalDay(t *testing.T) {
	j := NewParquetJournal(t.TempDir())
	ctx := context.Background()

	// Trade in the morning of the window's final day, earlier than the
	// window's start-of-day clock time.
	tr := sampleTrade("t1", time.Date(2026, 8, 21, 10, 0, 0, 0, time.UTC))
	if err := j.SaveTrade(ctx, tr); err != nil {
		t.Fatalf("SaveTrade returned error: %v", err)
	}

	start := time.Date(2026, 8, 20, 14, 0, 0, 0, time.UTC)
	end := time.Date(2026, 8, 21, 13, 0, 0, 0, time.UTC)
	trades, err := j.ListTrades(ctx, "BTC/USD", start, end)
	if err != nil {
		t.Fatalf("ListTrades returned error: %v", err)
	}
	if len(trades) != 1 {
		t.Fatalf("ListTrades returned %d trades, want 1 (final-day file must be read)", len(trades))
	}
	assertTradeEqual(t, trades[0], *tr)

	// The time filter still applies within the final day's file.
	trades, err = j.ListTrades(ctx, "BTC/USD", start, end.Add(-4*time.Hour))
	if err != nil {
		t.Fatalf("ListTrades returned error: %v", err)
	}
	if len(trades) != 0 {
		t.Fatalf("ListTrades returned %d trades, want 0 (trade is after the window end)", len(trades))
	}
}

type failingStore struct{ err error }

func (f *failingStore) SaveTrade(context.Context, *domain.Trade) error { return f.err }
func (f *failingStore) ListTrades(context.Context, string, time.Time, time.Time) ([]domain.Trade, error) {
	return nil, f.err
}

func TestTee(t *testing.T) {
	primary, err := NewSQLiteStore(filepath.Join(t.TempDir(), "vela.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore returned error: %v", err)
	}
	defer primary.Close()
	journal := NewParquetJournal(t.TempDir())

	tee := &Tee{Primary: primary, Journal: journal}
	ctx := context.Background()
	base := time.Date(2026, 8, 20, 14, 0, 0, 0, time.UTC)

	if err := tee.SaveTrade(ctx, sampleTrade("t1", base)); err != nil {
		t.Fatalf("Tee.SaveTrade returned error: %v", err)
	}

	for name, s := range map[string]TradeStore{"primary": primary, "journal": journal} {
		trades, err := s.ListTrades(ctx, "BTC/USD", base.Add(-time.Hour), base.Add(time.Hour))
		if err != nil {
			t.Fatalf("%s ListTrades returned error: %v", name, err)
		}
		if len(trades) != 1 {
			t.Errorf("%s has %d trades, want 1", name, len(trades))
		}
	}

	// A primary failure surfaces before the journal is touched.
	boom := errors.New("disk full")
	bad := &Tee{Primary: &failingStore{err: boom}, Journal: journal}
	if err := bad.SaveTrade(ctx, sampleTrade("t2", base)); !errors.Is(err, boom) {
		t.Errorf("Tee.SaveTrade with failing primary = %v, want %v", err, boom)
	}
}
