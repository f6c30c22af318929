package pricing

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"
	"github.com/shopspring/decimal"
)

// Compile-time interface check.
var _ Source = (*AlpacaSource)(nil)

// AlpacaSource fetches the latest trade price from the Alpaca market-data
// API.
type AlpacaSource struct {
	client *marketdata.Client
	log    *slog.Logger
}

// NewAlpacaSource creates an AlpacaSource with the given credentials.
// dataURL may be empty to use the SDK default endpoint.
func NewAlpacaSource(apiKey, apiSecret, dataURL string) *AlpacaSource {
	opts := marketdata.ClientOpts{
		APIKey:    apiKey,
		APISecret: apiSecret,
	}
	if dataURL != "" {
		opts.BaseURL = dataURL
	}

	return &AlpacaSource{
		client: marketdata.NewClient(opts),
		log:    slog.Default().With("component", "pricing"),
	}
}

// LatestPrice returns the price of the most recent trade for symbol.
func (s *AlpacaSource) LatestPrice(_ context.Context, symbol string) (decimal.Decimal, error) {
	trade, err := s.client.GetLatestTrade(symbol, marketdata.GetLatestTradeRequest{})
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("fetching latest trade for %s: %w", symbol, err)
	}
	if trade == nil || trade.Price <= 0 {
		s.log.Debug("no trade data", "symbol", symbol)
		return decimal.Decimal{}, ErrUnavailable
	}
	return decimal.NewFromFloat(trade.Price), nil
}
