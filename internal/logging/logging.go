package logging

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/mattn/go-isatty"
	log "github.com/sirupsen/logrus"
)

const timeLayout = "2006-01-02T15:04:05.000Z07:00"

// LineFormatter renders "[2024-01-02T03:04:05.000Z] INFO message k=v".
type LineFormatter struct{}

func (f *LineFormatter) Format(e *log.Entry) ([]byte, error) {
	var b bytes.Buffer
	b.WriteByte('[')
	b.WriteString(e.Time.UTC().Format(timeLayout))
	b.WriteString("] ")
	b.WriteString(strings.ToUpper(e.Level.String()))
	b.WriteByte(' ')
	b.WriteString(e.Message)

	keys := make([]string, 0, len(e.Data))
	for k := range e.Data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		v := e.Data[k]
		if err, ok := v.(error); ok {
			v = err.Error()
		}
		fmt.Fprintf(&b, " %s=%v", k, v)
	}
	b.WriteByte('\n')
	return b.Bytes(), nil
}

// New builds the daemon logger. Lines always go to stderr; when stderr is a
// terminal they are also appended to logFile. The returned func closes the
// file, if one was opened.
func New(level, logFile string) (*log.Logger, func()) {
	return newLogger(level, logFile, os.Stderr, isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd()))
}

func newLogger(level, logFile string, stderr io.Writer, tee bool) (*log.Logger, func()) {
	logger := log.New()
	logger.SetFormatter(&LineFormatter{})
	logger.SetLevel(ParseLevel(level))
	logger.SetOutput(stderr)

	closer := func() {}
	if tee && logFile != "" {
		_ = os.MkdirAll(filepath.Dir(logFile), 0o755)
		if f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644); err == nil {
			logger.SetOutput(io.MultiWriter(stderr, quietWriter{f}))
			closer = func() { _ = f.Close() }
		}
	}
	return logger, closer
}

// Discard returns a logger that drops everything, for CLI paths that report
// through stdout instead.
func Discard() *log.Logger {
	l := log.New()
	l.SetOutput(io.Discard)
	return l
}

// ParseLevel maps a config string to a level, defaulting to info.
func ParseLevel(s string) log.Level {
	lvl, err := log.ParseLevel(strings.TrimSpace(s))
	if err != nil {
		return log.InfoLevel
	}
	return lvl
}

// quietWriter swallows write errors so a broken log file never stops stderr output.
type quietWriter struct{ w io.Writer }

func (q quietWriter) Write(p []byte) (int, error) {
	_, _ = q.w.Write(p)
	return len(p), nil
}

// Tail returns the last n lines of the file at path. A missing file yields no lines.
func Tail(path string, n int) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	lines := strings.Split(strings.TrimRight(string(data), "\r\n"), "\n")
	if len(lines) == 1 && lines[0] == "" {
		return nil, nil
	}
	if n > 0 && len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return lines, nil
}
