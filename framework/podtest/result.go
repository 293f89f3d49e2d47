package podtest

import (
	"fmt"
	"strings"
	"time"

	"github.com/octopod/octopod/framework/opt"
	"github.com/octopod/octopod/framework/provision"
)

// Outcome is the final state of one test.
type Outcome int

const (
	Pass Outcome = iota
	Fail
	Ignored
)

func (o Outcome) String() string {
	switch o {
	case Pass:
		return "ok"
	case Fail:
		return "FAILED"
	case Ignored:
		return "ignored"
	default:
		return fmt.Sprintf("Outcome(%d)", int(o))
	}
}

// TestID identifies a test as application name followed by test name.
type TestID []string

func (t TestID) String() string {
	return strings.Join(t, "/")
}

func (t TestID) Plus(name string) TestID {
	return append(append(TestID(nil), t...), name)
}

// App returns the application part of the ID.
func (t TestID) App() string {
	if len(t) == 0 {
		return ""
	}
	return t[0]
}

type TestResult struct {
	ID      TestID
	Outcome Outcome
	// Message is the failure message for Fail, or the reason for Ignored.
	Message string
	// Errors holds every failure the test reported through Errorf, in order.
	Errors []error
	// Logs is the output the application's services produced while the test ran. It is
	// undefined if log capture was disabled or the test never ran.
	Logs     opt.Maybe[[]provision.LogLine]
	Duration time.Duration
}

type Results struct {
	Tests    []TestResult
	Failures []TestResult
	// CleanupFailures lists the environments that could not be removed completely. They do not
	// affect OK, but every reporter shows them.
	CleanupFailures []CleanupFailure
}

// CleanupFailure is an error from rolling back the resources of one application.
type CleanupFailure struct {
	App string
	Err error
}

func (f CleanupFailure) Error() string {
	return fmt.Sprintf("cleanup of %s: %s", f.App, f.Err)
}

func (f CleanupFailure) Unwrap() error { return f.Err }

func (r Results) OK() bool {
	return len(r.Failures) == 0
}

func (r *Results) add(result TestResult) {
	r.Tests = append(r.Tests, result)
	if result.Outcome == Fail {
		r.Failures = append(r.Failures, result)
	}
}

// Merge appends the results of another run.
func (r *Results) Merge(other Results) {
	for _, t := range other.Tests {
		r.add(t)
	}
	r.CleanupFailures = append(r.CleanupFailures, other.CleanupFailures...)
}

// Count returns the number of tests with the given outcome.
func (r Results) Count(outcome Outcome) int {
	n := 0
	for _, t := range r.Tests {
		if t.Outcome == outcome {
			n++
		}
	}
	return n
}

type TestFailure struct {
	ID  TestID
	Err error
}

func (f TestFailure) Error() string {
	return fmt.Sprintf("[%s]: %s", f.ID, f.Err)
}

func (f TestFailure) Unwrap() error { return f.Err }
