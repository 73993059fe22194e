package script_test

import (
	"sync"
	"testing"
	"time"

	"github.com/wojo-o/inker-sub000/script"
)

type resultSink struct {
	mu      sync.Mutex
	results []script.Result
}

func (s *resultSink) apply(r script.Result) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results = append(s.results, r)
}

func (s *resultSink) snapshot() []script.Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]script.Result, len(s.results))
	copy(out, s.results)
	return out
}

// TestRunnerCollapsesRapidSubmissions two submissions inside the
// debounce window produce exactly one committed result: the later one.
func TestRunnerCollapsesRapidSubmissions(t *testing.T) {
	var sink resultSink
	r := script.NewRunnerWithInterval(sink.apply, 100*time.Millisecond)

	r.Submit("return 1", nil, script.ModeValue)
	r.Submit("return 2", nil, script.ModeValue)

	waitFor(t, func() bool { return len(sink.snapshot()) > 0 })
	// Give a superseded run the chance to (incorrectly) commit as well.
	time.Sleep(250 * time.Millisecond)

	got := sink.snapshot()
	if len(got) != 1 {
		t.Fatalf("expected exactly one committed result, got %d", len(got))
	}
	if !got[0].Success || got[0].Output != float64(2) {
		t.Fatalf("committed result should be the later submission: %+v", got[0])
	}
}

func TestRunnerAcceptsLaterSubmissions(t *testing.T) {
	var sink resultSink
	r := script.NewRunnerWithInterval(sink.apply, 5*time.Millisecond)

	r.Submit("return 1", nil, script.ModeValue)
	waitFor(t, func() bool { return len(sink.snapshot()) == 1 })

	r.Submit("return 2", nil, script.ModeValue)
	waitFor(t, func() bool { return len(sink.snapshot()) == 2 })

	got := sink.snapshot()
	if got[0].Output != float64(1) || got[1].Output != float64(2) {
		t.Fatalf("unexpected results: %+v", got)
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition never became true")
		}
		time.Sleep(2 * time.Millisecond)
	}
}
