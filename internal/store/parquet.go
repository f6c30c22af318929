package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/parquet-go/parquet-go"
	"github.com/shopspring/decimal"

	"vela/internal/domain"
)

// Compile-time interface check.
var _ TradeStore = (*ParquetJournal)(nil)

// ParquetJournal implements TradeStore using Parquet files on disk, intended
// as an analysis-friendly export alongside the primary store. One file per
// symbol per day, merged on write.
type ParquetJournal struct {
	DataDir string
}

// NewParquetJournal creates a journal rooted at the given data directory.
func NewParquetJournal(dataDir string) *ParquetJournal {
	return &ParquetJournal{DataDir: dataDir}
}

// FillRecord is the Parquet schema for execution records. Decimal fields are
// serialized as strings so values survive the round trip exactly.
type FillRecord struct {
	ID          string `parquet:"id"`
	OrderID     string `parquet:"order_id"`
	Symbol      string `parquet:"symbol"`
	Side        string `parquet:"side"`
	Qty         string `parquet:"qty"`
	Price       string `parquet:"price"`
	Fee         string `parquet:"fee"`
	FeeCurrency string `parquet:"fee_currency"`
	StrategyID  string `parquet:"strategy_id"`
	Timestamp   int64  `parquet:"timestamp,timestamp(millisecond)"` // Unix ms
}

// SaveTrade appends the trade to its symbol/day file, merging with any
// existing records.
func (j *ParquetJournal) SaveTrade(_ context.Context, t *domain.Trade) error {
	path := j.fillPath(t.Symbol, t.Timestamp)

	existing, _ := readParquetFile[FillRecord](path)
	merged := mergeFillRecords(existing, []FillRecord{toFillRecord(t)})

	if err := writeParquetFile(path, merged); err != nil {
		return fmt.Errorf("writing fill journal for %s: %w", t.Symbol, err)
	}
	return nil
}

// ListTrades reads trades for the given symbol and time range.
func (j *ParquetJournal) ListTrades(_ context.Context, symbol string, start, end time.Time) ([]domain.Trade, error) {
	var trades []domain.Trade
	// Walk calendar days, not 24h steps: the end day's file must be read
	// even when end's clock time is earlier than start's.
	first := dayStart(start)
	last := dayStart(end)
	for d := first; !d.After(last); d = d.AddDate(0, 0, 1) {
		records, err := readParquetFile[FillRecord](j.fillPath(symbol, d))
		if err != nil {
			// No file for this day.
			continue
		}
		for _, r := range records {
			ts := time.UnixMilli(r.Timestamp)
			if ts.Before(start) || ts.After(end) {
				continue
			}
			t, err := fromFillRecord(r)
			if err != nil {
				return nil, err
			}
			trades = append(trades, t)
		}
	}
	sort.Slice(trades, func(i, k int) bool { return trades[i].Timestamp.Before(trades[k].Timestamp) })
	return trades, nil
}

// dayStart truncates t to midnight UTC.
func dayStart(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// fillPath returns the journal path for a symbol and day.
// Layout: <dataDir>/fills/<SYMBOL>/<YYYY-MM-DD>.parquet
func (j *ParquetJournal) fillPath(symbol string, t time.Time) string {
	date := t.UTC().Format("2006-01-02")
	// Symbols like "BTC/USD" must not introduce path separators.
	safe := strings.ReplaceAll(strings.ToUpper(symbol), "/", "-")
	return filepath.Join(j.DataDir, "fills", safe, date+".parquet")
}

// ---------------------------------------------------------------------------
// Record conversion
// ---------------------------------------------------------------------------

func toFillRecord(t *domain.Trade) FillRecord {
	return FillRecord{
		ID:          t.ID,
		OrderID:     t.OrderID,
		Symbol:      t.Symbol,
		Side:        string(t.Side),
		Qty:         t.Qty.String(),
		Price:       t.Price.String(),
		Fee:         t.Fee.String(),
		FeeCurrency: t.FeeCurrency,
		StrategyID:  t.StrategyID,
		Timestamp:   t.Timestamp.UnixMilli(),
	}
}

func fromFillRecord(r FillRecord) (domain.Trade, error) {
	qty, err := decimal.NewFromString(r.Qty)
	if err != nil {
		return domain.Trade{}, fmt.Errorf("parsing qty %q: %w", r.Qty, err)
	}
	price, err := decimal.NewFromString(r.Price)
	if err != nil {
		return domain.Trade{}, fmt.Errorf("parsing price %q: %w", r.Price, err)
	}
	fee, err := decimal.NewFromString(r.Fee)
	if err != nil {
		return domain.Trade{}, fmt.Errorf("parsing fee %q: %w", r.Fee, err)
	}
	return domain.Trade{
		ID:          r.ID,
		OrderID:     r.OrderID,
		Symbol:      r.Symbol,
		Side:        domain.OrderSide(r.Side),
		Qty:         qty,
		Price:       price,
		Fee:         fee,
		FeeCurrency: r.FeeCurrency,
		StrategyID:  r.StrategyID,
		Timestamp:   time.UnixMilli(r.Timestamp).UTC(),
	}, nil
}

// ---------------------------------------------------------------------------
// Parquet file helpers
// ---------------------------------------------------------------------------

func writeParquetFile[T any](path string, records []T) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return parquet.WriteFile(path, records)
}

func readParquetFile[T any](path string) ([]T, error) {
	return parquet.ReadFile[T](path)
}

// mergeFillRecords deduplicates fill records by ID, preferring new records
// over existing ones. Results are sorted by timestamp.
func mergeFillRecords(existing, incoming []FillRecord) []FillRecord {
	seen := make(map[string]FillRecord, len(existing)+len(incoming))
	for _, r := range existing {
		seen[r.ID] = r
	}
	for _, r := range incoming {
		seen[r.ID] = r
	}

	merged := make([]FillRecord, 0, len(seen))
	for _, r := range seen {
		merged = append(merged, r)
	}
	sort.Slice(merged, func(i, j int) bool {
		return merged[i].Timestamp < merged[j].Timestamp
	})
	return merged
}
