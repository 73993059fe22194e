package script

import (
	"fmt"
	"time"
)

// Mode selects how a script's result is extracted.
type Mode int

const (
	// ModeValue expects the script to return a single value.
	ModeValue Mode = iota
	// ModeTemplate exposes the script's top-level declarations as a
	// variable map for template interpolation.
	ModeTemplate
)

// SoftTimeout is the post-hoc execution budget. The walker cannot be
// preempted mid-run, so runs that finish late are rejected rather than
// interrupted.
const SoftTimeout = 1000 * time.Millisecond

// Result is the transient outcome of one script execution. It is
// recomputed on every script or data change and never persisted.
type Result struct {
	Success   bool           `json:"success"`
	Output    any            `json:"output,omitempty"`
	Variables map[string]any `json:"variables,omitempty"`
	Error     string         `json:"error,omitempty"`
}

func failure(format string, args ...any) Result {
	return Result{Success: false, Error: fmt.Sprintf(format, args...)}
}

// Compile parses script source into a reusable program.
func Compile(src string) (*Program, error) {
	prog, err := ParseString(src)
	if err != nil {
		return nil, fmt.Errorf("compile script: %w", err)
	}
	return prog, nil
}

// Run executes a compiled program against the resolved data root.
// Failures never escape as errors or panics; they are captured in the
// returned Result.
func Run(prog *Program, data any, mode Mode) Result {
	env := newEnvironment(data)
	start := time.Now()
	output, returned, err := env.execute(prog)
	if err != nil {
		return failure("%v", err)
	}
	if elapsed := time.Since(start); elapsed > SoftTimeout {
		return failure("script took %s, exceeding the %s budget", elapsed.Round(time.Millisecond), SoftTimeout)
	}

	switch mode {
	case ModeTemplate:
		names := prog.DeclaredNames()
		vars := make(map[string]any, len(names))
		for _, name := range names {
			vars[name] = env.vars[name]
		}
		return Result{Success: true, Variables: vars}
	default:
		if !returned {
			return failure("script did not return a value")
		}
		return Result{Success: true, Output: output}
	}
}

// RunSource compiles and runs in one step. Parse errors are reported
// through the Result like any other failure.
func RunSource(src string, data any, mode Mode) Result {
	prog, err := Compile(src)
	if err != nil {
		return failure("%v", err)
	}
	return Run(prog, data, mode)
}
