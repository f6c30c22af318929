package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"vela/internal/domain"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver.
)

// Compile-time interface check.
var _ TradeStore = (*SQLiteStore)(nil)

// SQLiteStore implements TradeStore backed by a SQLite database. Decimal
// values are stored as TEXT so they round-trip exactly.
type SQLiteStore struct {
	db *sql.DB
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS trades (
	id           TEXT PRIMARY KEY,
	order_id     TEXT NOT NULL,
	symbol       TEXT NOT NULL,
	side         TEXT NOT NULL,
	qty          TEXT NOT NULL,
	price        TEXT NOT NULL,
	fee          TEXT NOT NULL,
	fee_currency TEXT NOT NULL,
	strategy_id  TEXT NOT NULL DEFAULT '',
	timestamp    INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_trades_symbol_time ON trades(symbol, timestamp);
`

// NewSQLiteStore opens (or creates) a SQLite database at dbPath, applies the
// schema, and returns a ready-to-use SQLiteStore.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", dbPath, err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("applying schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// SaveTrade inserts a trade. Saving the same trade ID twice is a no-op, so
// replays from the monitor cannot duplicate records.
func (s *SQLiteStore) SaveTrade(ctx context.Context, t *domain.Trade) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO trades
			(id, order_id, symbol, side, qty, price, fee, fee_currency, strategy_id, timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.OrderID, t.Symbol, string(t.Side),
		t.Qty.String(), t.Price.String(), t.Fee.String(), t.FeeCurrency,
		t.StrategyID, t.Timestamp.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("inserting trade %s: %w", t.ID, err)
	}
	return nil
}

// ListTrades returns trades for symbol within [start, end] ordered by time.
func (s *SQLiteStore) ListTrades(ctx context.Context, symbol string, start, end time.Time) ([]domain.Trade, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, order_id, symbol, side, qty, price, fee, fee_currency, strategy_id, timestamp
		FROM trades
		WHERE symbol = ? AND timestamp BETWEEN ? AND ?
		ORDER BY timestamp`,
		symbol, start.UnixMilli(), end.UnixMilli(),
	)
	if err != nil {
		return nil, fmt.Errorf("querying trades for %s: %w", symbol, err)
	}
	defer rows.Close()

	var trades []domain.Trade
	for rows.Next() {
		var (
			t              domain.Trade
			side           string
			qty, price, fee string
			ts             int64
		)
		if err := rows.Scan(&t.ID, &t.OrderID, &t.Symbol, &side,
			&qty, &price, &fee, &t.FeeCurrency, &t.StrategyID, &ts); err != nil {
			return nil, fmt.Errorf("scanning trade row: %w", err)
		}
		t.Side = domain.OrderSide(side)
		if t.Qty, err = decimal.NewFromString(qty); err != nil {
			return nil, fmt.Errorf("parsing qty %q: %w", qty, err)
		}
		if t.Price, err = decimal.NewFromString(price); err != nil {
			return nil, fmt.Errorf("parsing price %q: %w", price, err)
		}
		if t.Fee, err = decimal.NewFromString(fee); err != nil {
			return nil, fmt.Errorf("parsing fee %q: %w", fee, err)
		}
		t.Timestamp = time.UnixMilli(ts).UTC()
		trades = append(trades, t)
	}
	return trades, rows.Err()
}
