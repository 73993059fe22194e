package script

import (
	"sync"
	"time"

	"github.com/bep/debounce"
	"github.com/google/uuid"
)

// DebounceInterval is how long the runner waits after the last script or
// data change before executing.
const DebounceInterval = 300 * time.Millisecond

// Runner executes scripts debounced, so rapid edits collapse into one
// run. Each submission is tagged with a token; a run only commits its
// result if its token is still the current one, so a superseded
// in-flight execution is discarded instead of clobbering newer output.
type Runner struct {
	apply func(Result)

	mu        sync.Mutex
	debounced func(func())
	current   uuid.UUID
}

// NewRunner creates a Runner that delivers committed results to apply.
func NewRunner(apply func(Result)) *Runner {
	return NewRunnerWithInterval(apply, DebounceInterval)
}

// NewRunnerWithInterval is NewRunner with a custom debounce interval,
// used by tests to avoid slow sleeps.
func NewRunnerWithInterval(apply func(Result), interval time.Duration) *Runner {
	return &Runner{
		apply:     apply,
		debounced: debounce.New(interval),
	}
}

// Submit schedules a script execution. Submissions within the debounce
// interval replace one another; only the most recently scheduled run may
// commit its result.
func (r *Runner) Submit(src string, data any, mode Mode) {
	r.mu.Lock()
	token := uuid.New()
	r.current = token
	r.mu.Unlock()

	r.debounced(func() {
		res := RunSource(src, data, mode)

		r.mu.Lock()
		stale := r.current != token
		r.mu.Unlock()
		if stale {
			return
		}
		r.apply(res)
	})
}
