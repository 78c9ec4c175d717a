package collector

import (
	"strings"

	"OmniTrade/internal/config"

	log "github.com/sirupsen/logrus"
)

// Collector is the daemon's fixed set of exchange handles, built once at
// startup and kept in configuration order.
type Collector struct {
	fetchers []PriceFetcher
	byName   map[string]PriceFetcher
}

// NewCollector creates a Collector from ready fetchers.
func NewCollector(fetchers ...PriceFetcher) *Collector {
	c := &Collector{byName: make(map[string]PriceFetcher, len(fetchers))}
	for _, f := range fetchers {
		key := strings.ToLower(f.Name())
		if _, dup := c.byName[key]; dup {
			continue
		}
		c.fetchers = append(c.fetchers, f)
		c.byName[key] = f
	}
	return c
}

// FromConfig initialises every configured exchange, logging and skipping the
// ones that cannot be built.
func FromConfig(cfg *config.Config, logger log.FieldLogger) *Collector {
	var fetchers []PriceFetcher
	for _, ex := range cfg.Exchanges {
		f, err := NewFetcher(ex, cfg.Proxy)
		if err != nil {
			logger.WithError(err).Warnf("Could not initialize exchange: %s", ex.Name)
			continue
		}
		fetchers = append(fetchers, f)
		logger.Infof("Exchange ready: %s", f.Name())
	}
	return NewCollector(fetchers...)
}

func (c *Collector) Len() int { return len(c.fetchers) }

// Names returns the exchange names in evaluation order.
func (c *Collector) Names() []string {
	names := make([]string, len(c.fetchers))
	for i, f := range c.fetchers {
		names[i] = f.Name()
	}
	return names
}

// Get looks up an exchange by name, ignoring case.
func (c *Collector) Get(name string) (PriceFetcher, bool) {
	f, ok := c.byName[strings.ToLower(name)]
	return f, ok
}

// Candidates returns the exchanges to check for an alert: only the pinned
// one when set (possibly none if it is unavailable), otherwise all of them.
func (c *Collector) Candidates(pinned string) []PriceFetcher {
	if pinned == "" {
		return append([]PriceFetcher(nil), c.fetchers...)
	}
	if f, ok := c.Get(pinned); ok {
		return []PriceFetcher{f}
	}
	return nil
}
