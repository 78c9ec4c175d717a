package collector

import (
	"context"
	"encoding/json"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

const (
	binanceMainnet = "https://api.binance.com"
	binanceTestnet = "https://testnet.binance.vision"
)

// BinanceFetcher reads spot prices from the Binance REST API.
type BinanceFetcher struct {
	client *resty.Client
}

// NewBinanceFetcher creates a fetcher. baseURL overrides the mainnet/testnet host.
func NewBinanceFetcher(baseURL string, testnet bool, proxyURL string) *BinanceFetcher {
	if baseURL == "" {
		baseURL = binanceMainnet
		if testnet {
			baseURL = binanceTestnet
		}
	}
	return &BinanceFetcher{client: newRESTClient(baseURL, proxyURL)}
}

func (f *BinanceFetcher) Name() string { return "binance" }

func (f *BinanceFetcher) FetchLastPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	body, err := getJSON(ctx, f.client, "/api/v3/ticker/price", map[string]string{
		"symbol": CompactSymbol(symbol),
	})
	if err != nil {
		return decimal.Zero, errors.Wrap(err, "binance")
	}

	var out struct {
		Symbol string `json:"symbol"`
		Price  string `json:"price"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return decimal.Zero, errors.Wrap(err, "binance: decode ticker")
	}
	if out.Price == "" {
		return decimal.Zero, errors.Errorf("binance: no ticker for %s", symbol)
	}
	price, err := decimal.NewFromString(out.Price)
	if err != nil {
		return decimal.Zero, errors.Wrapf(err, "binance: parse price %q", out.Price)
	}
	return price, nil
}
