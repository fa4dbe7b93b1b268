package store

// NoopRecorder is a no-op implementation used when the local database is
// disabled or failed to open.
type NoopRecorder struct{}

func NewNoopRecorder() *NoopRecorder { return &NoopRecorder{} }

func (n *NoopRecorder) RecordRefresh(_ *RefreshSnapshot) error   { return nil }
func (n *NoopRecorder) History(_ int) ([]RefreshSnapshot, error) { return nil, nil }
func (n *NoopRecorder) Close() error                             { return nil }
