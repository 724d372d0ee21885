package watermark

import "sync"

// ProgressFunc receives human-readable status updates with a completion
// fraction in [0,1]. Implementations do not need to be thread-safe; the
// engine serializes calls.
type ProgressFunc func(status string, progress float64)

// Reporter fans progress updates from concurrent workers into a single
// callback, one call at a time. A nil Reporter or a nil callback is a no-op.
type Reporter struct {
	mu sync.Mutex
	fn ProgressFunc
}

// NewReporter wraps fn for serialized delivery.
func NewReporter(fn ProgressFunc) *Reporter {
	return &Reporter{fn: fn}
}

// Report delivers one update.
func (r *Reporter) Report(status string, progress float64) {
	if r == nil || r.fn == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fn(status, progress)
}
