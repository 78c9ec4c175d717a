package collector

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/coinpaprika/coinpaprika-api-go-client/v2/coinpaprika"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// PaprikaFetcher prices symbols from the CoinPaprika aggregator. The quote
// currency is mapped to a fiat quote (USDT/USDC/BUSD count as USD).
type PaprikaFetcher struct {
	client *coinpaprika.Client

	mu    sync.Mutex
	coins map[string]string // base symbol -> coin id
}

// NewPaprikaFetcher creates a fetcher, using the pro API when apiKey is set.
func NewPaprikaFetcher(apiKey, proxyURL string) *PaprikaFetcher {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	return NewPaprikaFetcherWithClient(&http.Client{Timeout: requestTimeout, Transport: transport}, apiKey)
}

// NewPaprikaFetcherWithClient creates a fetcher on a caller-supplied HTTP client.
func NewPaprikaFetcherWithClient(httpClient *http.Client, apiKey string) *PaprikaFetcher {
	var opts []coinpaprika.ClientOptions
	if apiKey != "" {
		opts = append(opts, coinpaprika.WithAPIKey(apiKey))
	}
	return &PaprikaFetcher{
		client: coinpaprika.NewClient(httpClient, opts...),
		coins:  make(map[string]string),
	}
}

func (f *PaprikaFetcher) Name() string { return "coinpaprika" }

func (f *PaprikaFetcher) FetchLastPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	if err := ctx.Err(); err != nil {
		return decimal.Zero, err
	}
	base, quote := SplitSymbol(symbol)
	quote = paprikaQuote(quote)

	id, err := f.coinID(base)
	if err != nil {
		return decimal.Zero, err
	}
	ticker, err := f.client.Tickers.GetByID(id, &coinpaprika.TickersOptions{Quotes: quote})
	if err != nil {
		return decimal.Zero, errors.Wrapf(err, "coinpaprika: ticker %s", id)
	}
	q, ok := ticker.Quotes[quote]
	if !ok || q.Price == nil {
		return decimal.Zero, errors.Errorf("coinpaprika: no %s quote for %s", quote, symbol)
	}
	return decimal.NewFromFloat(*q.Price), nil
}

func (f *PaprikaFetcher) coinID(base string) (string, error) {
	f.mu.Lock()
	id, ok := f.coins[base]
	f.mu.Unlock()
	if ok {
		return id, nil
	}

	result, err := f.client.Search.Search(&coinpaprika.SearchOptions{
		Query:      base,
		Categories: "currencies",
		Modifier:   "symbol_search",
	})
	if err != nil {
		return "", errors.Wrapf(err, "coinpaprika: search %s", base)
	}
	for _, c := range result.Currencies {
		if c.ID != nil && c.Symbol != nil && strings.EqualFold(*c.Symbol, base) {
			id = *c.ID
			break
		}
	}
	if id == "" {
		return "", errors.Errorf("coinpaprika: unknown symbol %s", base)
	}

	f.mu.Lock()
	f.coins[base] = id
	f.mu.Unlock()
	return id, nil
}

func paprikaQuote(quote string) string {
	switch quote {
	case "", "USDT", "USDC", "BUSD", "USD":
		return "USD"
	default:
		return quote
	}
}
