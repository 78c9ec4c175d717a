package alerts

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"OmniTrade/internal/model"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s := NewStore(filepath.Join(t.TempDir(), "nested", "alerts.json"))
	s.Now = func() time.Time { return time.UnixMilli(1_700_000_000_000) }
	return s
}

func TestLoadAll_MissingAndCorrupt(t *testing.T) {
	s := newTestStore(t)
	assert.Empty(t, s.LoadAll().Alerts)

	require.NoError(t, os.MkdirAll(filepath.Dir(s.Path), 0o755))
	require.NoError(t, os.WriteFile(s.Path, []byte("{not json"), 0o644))
	assert.Empty(t, s.LoadAll().Alerts)
}

func TestSaveAll_RoundTrip(t *testing.T) {
	s := newTestStore(t)
	triggeredAt := model.NewMillis(time.UnixMilli(1_700_000_100_000))
	price := decimal.RequireFromString("49500.25")

	doc := model.AlertsDocument{Alerts: []model.PriceAlert{
		{
			ID: "pending", Symbol: "BTC/USDT", Condition: model.ConditionBelow,
			TargetPrice: decimal.NewFromInt(50000),
			CreatedAt:   model.NewMillis(time.UnixMilli(1_700_000_000_000)),
		},
		{
			ID: "done", Symbol: "ETH/USDT", Exchange: "binance", Condition: model.ConditionAbove,
			TargetPrice: decimal.RequireFromString("3000.5"),
			CreatedAt:   model.NewMillis(time.UnixMilli(1_700_000_000_500)),
			Triggered:   true, TriggeredAt: &triggeredAt, TriggeredPrice: &price,
		},
	}}
	require.NoError(t, s.SaveAll(doc))

	got := s.LoadAll()
	require.Len(t, got.Alerts, 2)
	for i, want := range doc.Alerts {
		have := got.Alerts[i]
		assert.Equal(t, want.ID, have.ID)
		assert.Equal(t, want.Symbol, have.Symbol)
		assert.Equal(t, want.Exchange, have.Exchange)
		assert.Equal(t, want.Condition, have.Condition)
		assert.True(t, want.TargetPrice.Equal(have.TargetPrice))
		assert.True(t, want.CreatedAt.Equal(have.CreatedAt.Time))
		assert.Equal(t, want.Triggered, have.Triggered)
	}
	require.NotNil(t, got.Alerts[1].TriggeredAt)
	assert.True(t, got.Alerts[1].TriggeredAt.Equal(triggeredAt.Time))
	assert.True(t, got.Alerts[1].TriggeredPrice.Equal(price))
	assert.Nil(t, got.Alerts[0].TriggeredAt)

	active := Active(&got)
	require.Len(t, active, 1)
	assert.Equal(t, "pending", active[0].ID)
}

func TestActive_PointsIntoDocument(t *testing.T) {
	doc := model.AlertsDocument{Alerts: []model.PriceAlert{{ID: "a"}, {ID: "b", Triggered: true}, {ID: "c"}}}
	active := Active(&doc)
	require.Len(t, active, 2)

	active[1].MarkTriggered("bybit", decimal.NewFromInt(1), time.Now())
	assert.True(t, doc.Alerts[2].Triggered)
	assert.Len(t, Active(&doc), 1)
}

func TestAddAndRemove(t *testing.T) {
	s := newTestStore(t)

	a, err := s.Add(" btc/usdt ", model.ConditionAbove, decimal.NewFromInt(70000), "Bybit")
	require.NoError(t, err)
	assert.NotEmpty(t, a.ID)
	assert.Equal(t, "BTC/USDT", a.Symbol)
	assert.Equal(t, "bybit", a.Exchange)
	assert.Equal(t, int64(1_700_000_000_000), a.CreatedAt.UnixMilli())

	_, err = s.Add("ETH/USDT", model.Condition("near"), decimal.NewFromInt(1), "")
	assert.Error(t, err)
	_, err = s.Add("ETH/USDT", model.ConditionBelow, decimal.Zero, "")
	assert.Error(t, err)
	_, err = s.Add("", model.ConditionBelow, decimal.NewFromInt(1), "")
	assert.Error(t, err)

	require.Len(t, s.LoadAll().Alerts, 1)

	assert.True(t, errors.Is(s.Remove("missing"), ErrNotFound))
	require.NoError(t, s.Remove(a.ID))
	assert.Empty(t, s.LoadAll().Alerts)
}
