package sink

import "context"

// ScanFunc is called for each scan, in process.
type ScanFunc func(ctx context.Context, scan *Scan) error

// Callback delivers scans through a Go function call.
type Callback struct {
	fn ScanFunc
}

// NewCallback creates a Callback sink. fn may be nil.
func NewCallback(fn ScanFunc) *Callback { return &Callback{fn: fn} }

func (c *Callback) Send(ctx context.Context, scan *Scan) error {
	if c.fn != nil {
		return c.fn(ctx, scan)
	}
	return nil
}

func (c *Callback) Close() error { return nil }
