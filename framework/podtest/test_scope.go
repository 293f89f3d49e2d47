package podtest

import (
	"context"
	"fmt"
	"runtime"
	"strings"

	"github.com/octopod/octopod/framework"
	"github.com/octopod/octopod/framework/provision"
)

// messageWithoutFailure is used when a test stops itself with FailNow without saying why.
const messageWithoutFailure = "test failed with no failure message"

// messageAbnormalTermination is used when a test panics with something that carries no message, or
// its goroutine exits without returning.
const messageAbnormalTermination = "test unit terminated abnormally"

// T represents a test scope. It is similar to Go's testing.T, and can be passed to the
// testify assert and require functions.
//
// A T is only valid while its test function is running.
type T struct {
	ctx       context.Context
	id        TestID
	app       *App
	logger    framework.Logger
	errors    []error
	cleanups  []func()
	helperFns []string
}

// Context returns a context that is cancelled as soon as the test function returns.
func (t *T) Context() context.Context {
	return t.ctx
}

// ID returns the full name of the current test.
func (t *T) ID() TestID {
	return t.id
}

// App returns the environment provisioned for this test.
func (t *T) App() *App {
	return t.app
}

// Service returns the named service of the application. If there is no such service, the test
// fails immediately.
func (t *T) Service(name string) *provision.Service {
	t.Helper()
	s := t.app.Service(name)
	if s == nil {
		t.Errorf("unknown service %q in app %q", name, t.app.Name())
		t.FailNow()
	}
	return s
}

// Errorf reports a test failure. It does not cause the test to terminate, but the test will be
// marked as failed.
//
// You will rarely use this method directly; it is part of this type's implementation of the
// interfaces used by the testify assert and require packages.
func (t *T) Errorf(format string, args ...interface{}) {
	err := transformError(fmt.Errorf(format, args...), getStacktrace(t.helperFns))
	t.errors = append(t.errors, err)
}

// FailNow causes the test to immediately terminate and be marked as failed.
func (t *T) FailNow() {
	panic(t)
}

// Debugf writes a message to the run's debug log, prefixed with the test ID.
func (t *T) Debugf(message string, args ...interface{}) {
	t.logger.Printf("[%s] "+message, append([]interface{}{t.id}, args...)...)
}

// Defer schedules a function to be called when the test function exits for any reason, before
// the environment is torn down. Deferred functions run in reverse order.
func (t *T) Defer(cleanupFn func()) {
	t.cleanups = append(t.cleanups, cleanupFn)
}

// Helper marks the function that calls it as a test helper that shouldn't appear in stacktraces.
func (t *T) Helper() {
	pc, _, _, ok := runtime.Caller(1) // 0 is Helper() itself, 1 is who called it
	if !ok {
		return
	}
	f := runtime.FuncForPC(pc)
	if f == nil {
		return
	}
	t.helperFns = append(t.helperFns, f.Name())
}

func (t *T) failureMessage() string {
	messages := make([]string, 0, len(t.errors))
	for _, e := range t.errors {
		messages = append(messages, e.Error())
	}
	return strings.Join(messages, "\n")
}

// invokeTest runs fn against t and converts whatever happens into an outcome. Nothing that fn
// does, including panicking, escapes from here.
func invokeTest(t *T, fn TestFunc) (outcome Outcome, message string) {
	defer func() {
		if r := recover(); r != nil {
			outcome, message = Fail, faultMessage(t, r)
		}
		if cleanupOutcome, cleanupMessage := t.runCleanups(); cleanupOutcome == Fail && outcome != Fail {
			outcome, message = cleanupOutcome, cleanupMessage
		}
	}()
	fn(t)
	if len(t.errors) != 0 {
		return Fail, t.failureMessage()
	}
	return Pass, ""
}

func (t *T) runCleanups() (outcome Outcome, message string) {
	defer func() {
		if r := recover(); r != nil {
			outcome, message = Fail, faultMessage(t, r)
		}
	}()
	for len(t.cleanups) > 0 {
		fn := t.cleanups[len(t.cleanups)-1]
		t.cleanups = t.cleanups[:len(t.cleanups)-1]
		fn()
	}
	return Pass, ""
}

// faultMessage extracts a failure message from a recovered panic value.
func faultMessage(t *T, r interface{}) string {
	switch v := r.(type) {
	case *T:
		if v == t {
			if len(t.errors) == 0 {
				return messageWithoutFailure
			}
			return t.failureMessage()
		}
	case string:
		return v
	case error:
		return v.Error()
	}
	return messageAbnormalTermination
}
