package collector

import (
	"context"
	"encoding/json"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

const (
	bybitMainnet = "https://api.bybit.com"
	bybitTestnet = "https://api-testnet.bybit.com"
)

// BybitFetcher reads spot tickers from the Bybit v5 market API.
type BybitFetcher struct {
	client *resty.Client
}

// NewBybitFetcher creates a fetcher. baseURL overrides the mainnet/testnet host.
func NewBybitFetcher(baseURL string, testnet bool, proxyURL string) *BybitFetcher {
	if baseURL == "" {
		baseURL = bybitMainnet
		if testnet {
			baseURL = bybitTestnet
		}
	}
	return &BybitFetcher{client: newRESTClient(baseURL, proxyURL)}
}

func (f *BybitFetcher) Name() string { return "bybit" }

type bybitTickers struct {
	RetCode int    `json:"retCode"`
	RetMsg  string `json:"retMsg"`
	Result  struct {
		List []struct {
			Symbol    string `json:"symbol"`
			LastPrice string `json:"lastPrice"`
		} `json:"list"`
	} `json:"result"`
}

func (f *BybitFetcher) FetchLastPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	body, err := getJSON(ctx, f.client, "/v5/market/tickers", map[string]string{
		"category": "spot",
		"symbol":   CompactSymbol(symbol),
	})
	if err != nil {
		return decimal.Zero, errors.Wrap(err, "bybit")
	}

	var out bybitTickers
	if err := json.Unmarshal(body, &out); err != nil {
		return decimal.Zero, errors.Wrap(err, "bybit: decode tickers")
	}
	if out.RetCode != 0 {
		return decimal.Zero, errors.Errorf("bybit: retCode %d: %s", out.RetCode, out.RetMsg)
	}
	if len(out.Result.List) == 0 || out.Result.List[0].LastPrice == "" {
		return decimal.Zero, errors.Errorf("bybit: no ticker for %s", symbol)
	}
	price, err := decimal.NewFromString(out.Result.List[0].LastPrice)
	if err != nil {
		return decimal.Zero, errors.Wrapf(err, "bybit: parse last price %q", out.Result.List[0].LastPrice)
	}
	return price, nil
}
