package scheduler

import (
	"context"
	"fmt"
	"time"

	"OmniTrade/internal/alerts"
	"OmniTrade/internal/collector"
	"OmniTrade/internal/metrics"
	"OmniTrade/internal/model"
	"OmniTrade/internal/notifier"
	"OmniTrade/internal/recorder"

	"github.com/robfig/cron/v3"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

const DefaultInterval = 60 * time.Second

// Deps are the collaborators a Scheduler polls and notifies through.
type Deps struct {
	Store      *alerts.Store
	Collector  *collector.Collector
	Channels   []notifier.Channel
	Dispatcher *notifier.Dispatcher
	Recorder   recorder.Recorder
	Metrics    *metrics.Metrics
	Logger     log.FieldLogger
	Interval   time.Duration
	Now        func() time.Time
}

// Scheduler runs the alert poll on a fixed interval. Ticks never overlap:
// the tick job is wrapped with cron.SkipIfStillRunning and the same wrapped
// job runs the initial tick.
type Scheduler struct {
	Cron *cron.Cron
	Ctx  context.Context
	Deps

	job cron.Job
}

// TickReport summarises one tick.
type TickReport struct {
	Active      int
	Triggered   []string
	FetchErrors int
	Saved       bool
	SaveErr     error
}

// NewScheduler creates a Scheduler. Missing optional deps get no-op defaults.
func NewScheduler(ctx context.Context, deps Deps) *Scheduler {
	if deps.Interval <= 0 {
		deps.Interval = DefaultInterval
	}
	if deps.Logger == nil {
		deps.Logger = log.StandardLogger()
	}
	if deps.Recorder == nil {
		deps.Recorder = recorder.NewNoopRecorder()
	}
	if deps.Metrics == nil {
		deps.Metrics = metrics.New()
	}
	if deps.Dispatcher == nil {
		deps.Dispatcher = notifier.NewDispatcher(0, deps.Logger)
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}

	s := &Scheduler{
		Cron: cron.New(),
		Ctx:  ctx,
		Deps: deps,
	}
	s.job = cron.NewChain(cron.SkipIfStillRunning(cronLogger{s})).Then(cron.FuncJob(s.tick))
	return s
}

// Start schedules the poll every Interval and runs the first tick right away.
func (s *Scheduler) Start() {
	s.Cron.Schedule(cron.Every(s.Interval), s.job)
	s.Cron.Start()
	s.Logger.Infof("Poll interval: %s", s.Interval)
	go s.job.Run()
}

// Stop halts future ticks. A tick already running is not waited for.
func (s *Scheduler) Stop() {
	s.Cron.Stop()
	s.Logger.Debug("scheduler stopped")
}

func (s *Scheduler) tick() {
	defer func() {
		if r := recover(); r != nil {
			s.Logger.Errorf("Poll error: %v", r)
		}
	}()
	s.RunOnce(s.Ctx)
}

// RunOnce performs one full poll: evaluate every active alert, notify on
// triggers and save the document once if anything changed.
func (s *Scheduler) RunOnce(ctx context.Context) TickReport {
	start := time.Now()
	defer func() {
		s.Metrics.Ticks.Inc()
		s.Metrics.TickDuration.Observe(time.Since(start).Seconds())
	}()

	var report TickReport
	doc := s.Store.LoadAll()
	active := alerts.Active(&doc)
	report.Active = len(active)
	s.Metrics.ActiveAlerts.Set(float64(len(active)))

	if len(active) == 0 {
		s.Logger.Info("Poll complete — no active alerts")
		return report
	}
	s.Logger.Infof("Checking %d active alert(s)...", len(active))

	for _, a := range active {
		if ctx.Err() != nil {
			break
		}
		if s.evaluate(ctx, a, &report) {
			report.Triggered = append(report.Triggered, a.ID)
		}
	}

	if len(report.Triggered) == 0 {
		s.Logger.Info("Poll complete — no conditions met")
		return report
	}
	if err := s.Store.SaveAll(doc); err != nil {
		report.SaveErr = err
		s.Logger.WithError(err).Errorf("Failed to save %d triggered alert(s)", len(report.Triggered))
		return report
	}
	report.Saved = true
	s.Logger.Infof("%d alert(s) triggered and saved", len(report.Triggered))
	return report
}

// evaluate checks one alert against its candidate exchanges in order and
// stops at the first one whose price satisfies the condition.
func (s *Scheduler) evaluate(ctx context.Context, a *model.PriceAlert, report *TickReport) bool {
	candidates := s.Collector.Candidates(a.Exchange)
	if len(candidates) == 0 {
		s.Logger.Warnf("Exchange %s for %s is not available, alert %s stays pending", a.Exchange, a.Symbol, a.ID)
		return false
	}

	for _, ex := range candidates {
		price, err := ex.FetchLastPrice(ctx, a.Symbol)
		if err != nil {
			report.FetchErrors++
			s.Metrics.PriceFetchErrors.WithLabelValues(ex.Name()).Inc()
			s.Logger.Warnf("Failed to fetch %s from %s: %v", a.Symbol, ex.Name(), err)
			continue
		}
		if !a.Condition.Met(price, a.TargetPrice) {
			continue
		}
		if !a.MarkTriggered(ex.Name(), price, s.Now()) {
			return false
		}
		s.Metrics.AlertsTriggered.Inc()
		s.Logger.Infof("🚨 ALERT TRIGGERED: %s %s %s on %s (current: %s)",
			a.Symbol, a.Condition, a.TargetPrice, ex.Name(), price)
		s.notify(ctx, a, price, ex.Name())
		return true
	}
	return false
}

func (s *Scheduler) notify(ctx context.Context, a *model.PriceAlert, price decimal.Decimal, exchange string) {
	title, message := notifier.FormatTrigger(a, price, exchange)
	outcomes := s.Dispatcher.Dispatch(ctx, s.Channels, title, message)

	for _, o := range outcomes {
		s.Metrics.ObserveNotification(o.Channel, o.Success)
		if o.Success {
			s.Logger.Infof("  ✓ Notification sent via %s", o.Channel)
		} else {
			s.Logger.Warnf("  ✗ Notification failed via %s: %s", o.Channel, o.Error)
		}
	}
	if len(outcomes) == 0 {
		s.Logger.Info("  ℹ No notification channels configured. Add Telegram, Discord or native in config.yaml.")
	}

	evt := &recorder.TriggerEvent{
		AlertID:     a.ID,
		Symbol:      a.Symbol,
		Exchange:    exchange,
		Condition:   a.Condition,
		TargetPrice: a.TargetPrice,
		Price:       price,
		TriggeredAt: a.TriggeredAt.Time,
		Outcomes:    outcomes,
	}
	if err := s.Recorder.RecordTrigger(evt); err != nil {
		s.Logger.WithError(err).Warn("Failed to record trigger history")
	}
}

// cronLogger routes cron's messages to the scheduler logger and counts
// ticks dropped by SkipIfStillRunning.
type cronLogger struct{ s *Scheduler }

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	if msg == "skip" {
		l.s.Metrics.TicksSkipped.Inc()
		l.s.Logger.Warn("Previous poll still running, skipping tick")
		return
	}
	l.s.Logger.Debugf("cron: %s %v", msg, keysAndValues)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.s.Logger.WithError(err).Error(fmt.Sprintf("cron: %s %v", msg, keysAndValues))
}
