package notifier

import (
	"context"
	"fmt"
	"time"

	"OmniTrade/internal/model"

	log "github.com/sirupsen/logrus"
)

// deadlineGrace is how long past the per-send timeout the dispatcher waits
// for an adapter that ignores its context.
const deadlineGrace = 2 * time.Second

// Dispatcher fans one notification out to every channel concurrently.
type Dispatcher struct {
	Timeout time.Duration
	Logger  log.FieldLogger
}

// NewDispatcher creates a dispatcher bounding each send by timeout.
func NewDispatcher(timeout time.Duration, logger log.FieldLogger) *Dispatcher {
	if timeout <= 0 {
		timeout = defaultSendTimeout
	}
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Dispatcher{Timeout: timeout, Logger: logger}
}

type indexed struct {
	i       int
	outcome model.NotificationOutcome
}

// Dispatch sends title and message on every channel and returns exactly one
// outcome per channel, in channel order. A failing, panicking or hung channel
// never affects the others.
func (d *Dispatcher) Dispatch(ctx context.Context, channels []Channel, title, message string) []model.NotificationOutcome {
	if len(channels) == 0 {
		return nil
	}

	names := make([]string, len(channels))
	for i, ch := range channels {
		names[i] = channelName(ch, i)
	}

	results := make(chan indexed, len(channels))
	for i, ch := range channels {
		go d.send(ctx, i, ch, names[i], title, message, results)
	}

	outcomes := make([]model.NotificationOutcome, len(channels))
	reported := make([]bool, len(channels))
	deadline := time.NewTimer(d.Timeout + deadlineGrace)
	defer deadline.Stop()

	for pending := len(channels); pending > 0; pending-- {
		select {
		case r := <-results:
			outcomes[r.i] = r.outcome
			reported[r.i] = true
		case <-deadline.C:
			for i, ok := range reported {
				if !ok {
					outcomes[i] = model.NotificationOutcome{Channel: names[i], Error: "timed out"}
				}
			}
			d.Logger.Warnf("Notification dispatch deadline exceeded, %d channel(s) did not answer", pending)
			return outcomes
		}
	}
	return outcomes
}

// channelName reads ch.Name, falling back to a positional label if it panics.
func channelName(ch Channel, i int) (name string) {
	defer func() {
		if r := recover(); r != nil {
			name = fmt.Sprintf("channel-%d", i+1)
		}
	}()
	return ch.Name()
}

func (d *Dispatcher) send(ctx context.Context, i int, ch Channel, name, title, message string, out chan<- indexed) {
	defer func() {
		if r := recover(); r != nil {
			out <- indexed{i, model.NotificationOutcome{Channel: name, Error: fmt.Sprintf("panic: %v", r)}}
		}
	}()

	sendCtx, cancel := context.WithTimeout(ctx, d.Timeout)
	defer cancel()

	if err := ch.Send(sendCtx, title, message); err != nil {
		out <- indexed{i, model.NotificationOutcome{Channel: name, Error: err.Error()}}
		return
	}
	out <- indexed{i, model.NotificationOutcome{Channel: name, Success: true}}
}
