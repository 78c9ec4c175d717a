package metrics

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveNotification(t *testing.T) {
	m := New()
	m.ObserveNotification("telegram", true)
	m.ObserveNotification("discord", false)
	m.ObserveNotification("discord", false)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Notifications.WithLabelValues("telegram", "success")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Notifications.WithLabelValues("discord", "failure")))
}

func TestHandler(t *testing.T) {
	m := New()
	m.Ticks.Inc()
	m.PriceFetchErrors.WithLabelValues("bybit").Inc()

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	text := string(body)
	assert.True(t, strings.Contains(text, "omnitrade_daemon_ticks_total 1"))
	assert.True(t, strings.Contains(text, `omnitrade_daemon_price_fetch_errors_total{exchange="bybit"} 1`))
}

func TestServe_LogsThroughGivenLogger(t *testing.T) {
	logger, hook := test.NewNullLogger()
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- New().Serve(ctx, "127.0.0.1:0", logger) }()

	assert.Eventually(t, func() bool { return len(hook.AllEntries()) > 0 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, "Launching metrics and health endpoint on 127.0.0.1:0", hook.LastEntry().Message)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
}
