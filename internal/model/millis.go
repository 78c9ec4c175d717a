package model

import (
	"bytes"
	"fmt"
	"strconv"
	"time"
)

// Millis is a timestamp stored on disk as Unix epoch milliseconds.
type Millis struct {
	time.Time
}

// NewMillis truncates t to millisecond precision.
func NewMillis(t time.Time) Millis {
	return Millis{Time: time.UnixMilli(t.UnixMilli())}
}

func (m Millis) MarshalJSON() ([]byte, error) {
	if m.IsZero() {
		return []byte("0"), nil
	}
	return []byte(strconv.FormatInt(m.UnixMilli(), 10)), nil
}

func (m *Millis) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*m = Millis{}
		return nil
	}
	ms, err := strconv.ParseFloat(string(data), 64)
	if err != nil {
		return fmt.Errorf("parse epoch millis %q: %w", data, err)
	}
	if ms == 0 {
		*m = Millis{}
		return nil
	}
	*m = Millis{Time: time.UnixMilli(int64(ms))}
	return nil
}
