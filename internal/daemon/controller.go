package daemon

import (
	"errors"
	"fmt"
	"time"

	"OmniTrade/internal/logging"
	"OmniTrade/internal/registry"
)

// ErrAlreadyRunning is returned by Start when a live daemon is registered.
var ErrAlreadyRunning = errors.New("daemon is already running")

const (
	defaultReadyTimeout = 1500 * time.Millisecond
	defaultStopTimeout  = 5 * time.Second
	defaultPollEvery    = 100 * time.Millisecond
	statusTailLines     = 10
)

// Processes abstracts the OS process operations the controller needs.
type Processes interface {
	Alive(pid int) bool
	Terminate(pid int) error
	Kill(pid int) error
	Spawn(args []string, logFile string) (int, error)
}

// State is the daemon's lifecycle state as seen from the registry.
type State int

const (
	NotRunning State = iota
	Stale
	Running
)

func (s State) String() string {
	switch s {
	case Stale:
		return "stale"
	case Running:
		return "running"
	default:
		return "not running"
	}
}

// Controller starts, stops and inspects the background daemon.
type Controller struct {
	Registry   *registry.Registry
	Procs      Processes
	ConfigPath string
	LogFile    string

	ReadyTimeout time.Duration
	StopTimeout  time.Duration
	PollEvery    time.Duration
	Now          func() time.Time
}

// NewController creates a controller using the OS process implementation.
func NewController(reg *registry.Registry, configPath, logFile string) *Controller {
	return &Controller{
		Registry:     reg,
		Procs:        OSProcesses{},
		ConfigPath:   configPath,
		LogFile:      logFile,
		ReadyTimeout: defaultReadyTimeout,
		StopTimeout:  defaultStopTimeout,
		PollEvery:    defaultPollEvery,
		Now:          time.Now,
	}
}

// StartResult describes a spawn attempt. Ready is a best-effort readiness
// probe: the child registered itself and was alive within ReadyTimeout.
type StartResult struct {
	PID          int
	Ready        bool
	CleanedStale bool
}

// Start spawns a detached daemon unless a live one is already registered.
func (c *Controller) Start() (StartResult, error) {
	var res StartResult
	if rec, ok := c.Registry.Read(); ok {
		if c.Procs.Alive(rec.PID) {
			return StartResult{PID: rec.PID}, fmt.Errorf("%w (PID %d)", ErrAlreadyRunning, rec.PID)
		}
		c.Registry.Remove()
		res.CleanedStale = true
	}

	pid, err := c.Procs.Spawn([]string{"run", "-config", c.ConfigPath}, c.LogFile)
	if err != nil {
		return res, fmt.Errorf("spawn daemon: %w", err)
	}
	res.PID = pid

	for waited := time.Duration(0); waited < c.ReadyTimeout; waited += c.PollEvery {
		time.Sleep(c.PollEvery)
		if rec, ok := c.Registry.Read(); ok && c.Procs.Alive(rec.PID) {
			res.PID = rec.PID
			res.Ready = true
			return res, nil
		}
		if !c.Procs.Alive(pid) {
			break
		}
	}
	return res, nil
}

// StopOutcome says how a Stop call ended.
type StopOutcome int

const (
	StopNotRunning StopOutcome = iota
	StopStaleCleaned
	StopTerminated
	StopKilled
)

type StopResult struct {
	Outcome StopOutcome
	PID     int
	// Err is set when the process could not be signalled or killed.
	Err error
}

// Stop terminates the registered daemon, escalating to a kill after
// StopTimeout. The registry record is always removed.
func (c *Controller) Stop() StopResult {
	rec, ok := c.Registry.Read()
	if !ok {
		return StopResult{Outcome: StopNotRunning}
	}
	defer c.Registry.Remove()

	if !c.Procs.Alive(rec.PID) {
		return StopResult{Outcome: StopStaleCleaned, PID: rec.PID}
	}

	res := StopResult{PID: rec.PID}
	if err := c.Procs.Terminate(rec.PID); err != nil {
		res.Err = err
	}
	for waited := time.Duration(0); waited < c.StopTimeout; waited += c.PollEvery {
		time.Sleep(c.PollEvery)
		if !c.Procs.Alive(rec.PID) {
			res.Outcome = StopTerminated
			res.Err = nil
			return res
		}
	}

	res.Outcome = StopKilled
	if err := c.Procs.Kill(rec.PID); err != nil {
		res.Err = err
	}
	return res
}

// StatusReport is the daemon's observable state.
type StatusReport struct {
	State     State
	PID       int
	StartedAt time.Time
	Uptime    time.Duration
	LogTail   []string
}

// Status reports the daemon state, cleaning up a stale record.
func (c *Controller) Status() StatusReport {
	rec, ok := c.Registry.Read()
	if !ok {
		return StatusReport{State: NotRunning}
	}
	if !c.Procs.Alive(rec.PID) {
		c.Registry.Remove()
		return StatusReport{State: Stale, PID: rec.PID}
	}

	now := time.Now
	if c.Now != nil {
		now = c.Now
	}
	tail, _ := logging.Tail(c.LogFile, statusTailLines)
	return StatusReport{
		State:     Running,
		PID:       rec.PID,
		StartedAt: rec.StartedAt,
		Uptime:    registry.Uptime(rec, now()),
		LogTail:   tail,
	}
}
