package collector

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"OmniTrade/internal/config"

	"github.com/shopspring/decimal"
)

// PriceFetcher fetches the last traded price of a symbol on one exchange.
type PriceFetcher interface {
	Name() string
	FetchLastPrice(ctx context.Context, symbol string) (decimal.Decimal, error)
}

// NewFetcher builds the adapter for a configured exchange.
func NewFetcher(cfg config.ExchangeConfig, proxyURL string) (PriceFetcher, error) {
	switch strings.ToLower(cfg.Name) {
	case "bybit":
		return NewBybitFetcher(cfg.BaseURL, cfg.Testnet, proxyURL), nil
	case "binance":
		return NewBinanceFetcher(cfg.BaseURL, cfg.Testnet, proxyURL), nil
	case "coinpaprika":
		return NewPaprikaFetcher(cfg.APIKey, proxyURL), nil
	default:
		return nil, fmt.Errorf("unsupported exchange %q (supported: %s)", cfg.Name, strings.Join(Supported, ", "))
	}
}

// Supported lists the exchange names NewFetcher understands.
var Supported = []string{"bybit", "binance", "coinpaprika"}

// MockFetcher returns canned prices for development and testing.
type MockFetcher struct {
	Exchange string
	Prices   map[string]decimal.Decimal
	Err      error

	mu    sync.Mutex
	calls []string
}

func (m *MockFetcher) Name() string { return m.Exchange }

func (m *MockFetcher) FetchLastPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	m.mu.Lock()
	m.calls = append(m.calls, symbol)
	m.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return decimal.Zero, err
	}
	if m.Err != nil {
		return decimal.Zero, m.Err
	}
	p, ok := m.Prices[symbol]
	if !ok {
		return decimal.Zero, fmt.Errorf("%s: no ticker for %s", m.Exchange, symbol)
	}
	return p, nil
}

// Calls returns the symbols requested so far.
func (m *MockFetcher) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}

// SplitSymbol splits "BTC/USDT" (or "BTC-USDT", "BTC/USDT:USDT") into base and quote.
// A symbol without a separator is returned as the base with an empty quote.
func SplitSymbol(symbol string) (base, quote string) {
	s := strings.ToUpper(strings.TrimSpace(symbol))
	if i := strings.Index(s, ":"); i >= 0 {
		s = s[:i]
	}
	for _, sep := range []string{"/", "-", "_"} {
		if parts := strings.SplitN(s, sep, 2); len(parts) == 2 {
			return parts[0], parts[1]
		}
	}
	return s, ""
}

// CompactSymbol renders a symbol the way REST tickers expect it: "BTCUSDT".
func CompactSymbol(symbol string) string {
	base, quote := SplitSymbol(symbol)
	return base + quote
}
