package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
)

const (
	namespace = "omnitrade"
	subsystem = "daemon"
)

// Metrics holds the daemon's Prometheus instruments on a private registry.
type Metrics struct {
	Registry *prometheus.Registry

	Ticks            prometheus.Counter
	TicksSkipped     prometheus.Counter
	ActiveAlerts     prometheus.Gauge
	AlertsTriggered  prometheus.Counter
	PriceFetchErrors *prometheus.CounterVec
	Notifications    *prometheus.CounterVec
	TickDuration     prometheus.Histogram
}

func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		Ticks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "ticks_total",
			Help:      "The total number of completed poll ticks",
		}),
		TicksSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "ticks_skipped_total",
			Help:      "Ticks skipped because the previous one was still running",
		}),
		ActiveAlerts: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "active_alerts",
			Help:      "Untriggered alerts seen by the last tick",
		}),
		AlertsTriggered: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "alerts_triggered_total",
			Help:      "The total number of alerts that transitioned to triggered",
		}),
		PriceFetchErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "price_fetch_errors_total",
				Help:      "Failed price fetches per exchange",
			},
			[]string{"exchange"},
		),
		Notifications: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "notifications_total",
				Help:      "Notification delivery attempts per channel and result",
			},
			[]string{"channel", "result"},
		),
		TickDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "tick_duration_seconds",
			Help:      "Wall time of a poll tick",
			Buckets:   prometheus.DefBuckets,
		}),
	}

	m.Registry.MustRegister(
		m.Ticks,
		m.TicksSkipped,
		m.ActiveAlerts,
		m.AlertsTriggered,
		m.PriceFetchErrors,
		m.Notifications,
		m.TickDuration,
	)
	return m
}

// ObserveNotification counts one channel outcome.
func (m *Metrics) ObserveNotification(channel string, success bool) {
	result := "failure"
	if success {
		result = "success"
	}
	m.Notifications.WithLabelValues(channel, result).Inc()
}

// Handler serves /metrics and /health.
func (m *Metrics) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{}))
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	return mux
}

// Serve exposes Handler on addr until ctx is cancelled. It returns once the
// listener is closed.
func (m *Metrics) Serve(ctx context.Context, addr string, logger log.FieldLogger) error {
	srv := &http.Server{Addr: addr, Handler: m.Handler(), ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Infof("Launching metrics and health endpoint on %s", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
