package recorder

// NoopRecorder is used when trigger history is disabled or unavailable.
type NoopRecorder struct{}

func NewNoopRecorder() *NoopRecorder { return &NoopRecorder{} }

func (n *NoopRecorder) RecordTrigger(_ *TriggerEvent) error { return nil }
func (n *NoopRecorder) Close() error                         { return nil }
