package registry

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"OmniTrade/internal/model"

	"github.com/shirou/gopsutil/v4/process"
)

// Registry tracks the running daemon with two small text files: the PID and
// the start time in epoch milliseconds.
type Registry struct {
	PIDFile     string
	StartedFile string
}

// New returns a registry rooted in dir.
func New(dir string) *Registry {
	return &Registry{
		PIDFile:     filepath.Join(dir, "daemon.pid"),
		StartedFile: filepath.Join(dir, "daemon-started.txt"),
	}
}

// Write persists the record, overwriting any previous one.
func (r *Registry) Write(pid int, startedAt time.Time) error {
	if err := os.MkdirAll(filepath.Dir(r.PIDFile), 0o755); err != nil {
		return fmt.Errorf("create registry dir: %w", err)
	}
	if err := os.WriteFile(r.PIDFile, []byte(strconv.Itoa(pid)), 0o644); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	started := strconv.FormatInt(startedAt.UnixMilli(), 10)
	if err := os.WriteFile(r.StartedFile, []byte(started), 0o644); err != nil {
		return fmt.Errorf("write start file: %w", err)
	}
	return nil
}

// Read returns the current record. A missing or corrupt PID file means no
// record, and so does a PID outside the int32 range processes are probed and
// signalled with. A missing start time yields a record with zero StartedAt.
func (r *Registry) Read() (model.ProcessRecord, bool) {
	pid, err := readInt(r.PIDFile)
	if err != nil || pid <= 0 || pid > math.MaxInt32 {
		return model.ProcessRecord{}, false
	}
	rec := model.ProcessRecord{PID: int(pid)}
	if ms, err := readInt(r.StartedFile); err == nil && ms > 0 {
		rec.StartedAt = time.UnixMilli(ms)
	}
	return rec, true
}

// Remove deletes both files. Failures are ignored.
func (r *Registry) Remove() {
	_ = os.Remove(r.PIDFile)
	_ = os.Remove(r.StartedFile)
}

// ValidPID reports whether pid fits the positive int32 range used by the
// process table.
func ValidPID(pid int) bool {
	return pid > 0 && int64(pid) <= math.MaxInt32
}

// IsAlive probes whether a process with this PID exists without signalling it.
func IsAlive(pid int) bool {
	if !ValidPID(pid) {
		return false
	}
	ok, err := process.PidExists(int32(pid))
	return err == nil && ok
}

// Uptime is the wall-clock time since the record's start, or zero when unknown.
func Uptime(rec model.ProcessRecord, now time.Time) time.Duration {
	if rec.StartedAt.IsZero() || now.Before(rec.StartedAt) {
		return 0
	}
	return now.Sub(rec.StartedAt)
}

// FormatUptime renders a duration as "1h 2m 3s", "2m 3s" or "3s".
func FormatUptime(d time.Duration) string {
	secs := int64(d / time.Second)
	h := secs / 3600
	m := (secs % 3600) / 60
	s := secs % 60
	switch {
	case h > 0:
		return fmt.Sprintf("%dh %dm %ds", h, m, s)
	case m > 0:
		return fmt.Sprintf("%dm %ds", m, s)
	default:
		return fmt.Sprintf("%ds", s)
	}
}

func readInt(path string) (int64, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	return strconv.ParseInt(strings.TrimSpace(string(data)), 10, 64)
}
