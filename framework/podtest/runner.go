package podtest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hashicorp/go-multierror"

	"github.com/octopod/octopod/framework"
	"github.com/octopod/octopod/framework/ledger"
	"github.com/octopod/octopod/framework/opt"
	"github.com/octopod/octopod/framework/provision"
)

// State is the phase a SuiteRunner is in.
type State int

const (
	StateIdle State = iota
	StateProvisioning
	StateRunning
	StateDraining
	StateReporting
	StateDone
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateProvisioning:
		return "Provisioning"
	case StateRunning:
		return "Running"
	case StateDraining:
		return "Draining"
	case StateReporting:
		return "Reporting"
	case StateDone:
		return "Done"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// CleanupPolicy controls how long provisioned environments live.
type CleanupPolicy int

const (
	// CleanupPerSuite keeps every test's environment until the last test of the suite has
	// finished, then removes them all.
	CleanupPerSuite CleanupPolicy = iota
	// CleanupPerTest removes each test's environment as soon as the test has finished.
	CleanupPerTest
)

// ProvisioningFailedPrefix starts the failure message of a test whose environment could not be
// provisioned.
const ProvisioningFailedPrefix = "provisioning failed: "

// CleanupTimeout bounds how long removing one environment may take. Cleanup does not stop when
// the context passed to Run is cancelled.
const CleanupTimeout = 2 * time.Minute

// RunnerConfig contains options for running suites.
type RunnerConfig struct {
	Provisioner *provision.Provisioner

	// TestLogger receives the result of each test.
	TestLogger TestLogger

	// Logger receives debug output: state transitions, provisioning progress, cleanup failures.
	Logger framework.Logger

	// Filter is an optional filter for deciding which tests to run.
	Filter Filter

	Cleanup CleanupPolicy

	// CaptureLogs enables collecting service output while each test runs.
	CaptureLogs bool

	Metrics *Metrics
}

// SuiteRunner runs the tests of one suite, in order, each in a freshly provisioned environment.
// A SuiteRunner is used once.
type SuiteRunner struct {
	suite         Suite
	config        RunnerConfig
	logger        framework.Logger
	state         State
	results       Results
	beforeCleanup func(*ledger.Ledger)
}

func NewSuiteRunner(suite Suite, config RunnerConfig) *SuiteRunner {
	if config.TestLogger == nil {
		config.TestLogger = nullTestLogger{}
	}
	return &SuiteRunner{
		suite:  suite,
		config: config,
		logger: framework.LoggerWithPrefix(config.Logger, "["+suite.App.Name+"] "),
	}
}

func (r *SuiteRunner) State() State { return r.state }

func (r *SuiteRunner) Results() Results { return r.results }

func (r *SuiteRunner) setState(s State) {
	r.logger.Printf("%s -> %s", r.state, s)
	r.state = s
}

// Run runs every test of the suite and returns true if none of them failed. Ignored tests do not
// count as failures. All resources provisioned by the suite are removed before Run returns, even
// when ctx has been cancelled.
func (r *SuiteRunner) Run(ctx context.Context) bool {
	var l *ledger.Ledger
	for i, decl := range r.suite.Tests {
		id := TestID{r.suite.App.Name, decl.Name}

		if reason, ignored := r.ignoreReason(id, decl); ignored {
			r.report(TestResult{ID: id, Outcome: Ignored, Message: reason})
			continue
		}

		if l == nil {
			l = ledger.New(r.logger)
		}
		result, provisioned := r.runOne(ctx, id, decl, l)
		r.report(result)

		if !provisioned {
			for _, skipped := range r.suite.Tests[i+1:] {
				r.logger.Printf("Not running %s: environment could not be provisioned", TestID{r.suite.App.Name, skipped.Name})
			}
			break
		}
		if r.config.Cleanup == CleanupPerTest {
			r.cleanup(ctx, l)
			l = nil
		}
	}
	if l != nil {
		r.cleanup(ctx, l)
	}
	r.setState(StateDone)
	return r.results.OK()
}

func (r *SuiteRunner) ignoreReason(id TestID, decl TestDeclaration) (string, bool) {
	if decl.Ignore {
		return "ignored", true
	}
	if r.config.Filter != nil && !r.config.Filter.Match(id) {
		return "excluded by filter parameters", true
	}
	return "", false
}

// runOne provisions an environment into l and runs one test in it. The second return value is
// false if provisioning failed.
func (r *SuiteRunner) runOne(ctx context.Context, id TestID, decl TestDeclaration, l *ledger.Ledger) (TestResult, bool) {
	r.setState(StateProvisioning)
	startTime := time.Now()
	app, err := provisionApp(ctx, r.config.Provisioner, r.suite.App, l)
	if err != nil {
		r.logger.Println(TestFailure{ID: id, Err: err})
		return TestResult{
			ID:       id,
			Outcome:  Fail,
			Message:  ProvisioningFailedPrefix + err.Error(),
			Duration: time.Since(startTime),
		}, false
	}
	r.config.Metrics.provisioned(r.suite.App.Name, time.Since(startTime))

	r.setState(StateRunning)
	testCtx, cancelTest := context.WithCancel(ctx)
	defer cancelTest()
	logCtx, cancelLogs := context.WithCancel(ctx)
	defer cancelLogs()

	var logs <-chan provision.LogLine
	if r.config.CaptureLogs {
		logs = r.streamLogs(logCtx, app)
	}

	t := &T{ctx: testCtx, id: id, app: app, logger: r.logger}
	type testDone struct {
		outcome Outcome
		message string
	}
	done := make(chan testDone, 1)
	testStart := time.Now()
	go func() {
		// stays as is if the test goroutine exits without returning, as with runtime.Goexit
		finished := testDone{Fail, messageAbnormalTermination}
		defer func() { done <- finished }()
		finished.outcome, finished.message = invokeTest(t, decl.Func)
	}()

	var captured []provision.LogLine
	var finished testDone
WaitLoop:
	for {
		select {
		case finished = <-done:
			break WaitLoop
		case line, ok := <-logs:
			if !ok {
				logs = nil // every stream has ended; keep waiting for the test
				continue
			}
			captured = append(captured, line)
		}
	}

	r.setState(StateDraining)
	cancelTest()
	cancelLogs()

	result := TestResult{
		ID:       id,
		Outcome:  finished.outcome,
		Message:  finished.message,
		Errors:   t.errors,
		Duration: time.Since(testStart),
	}
	if r.config.CaptureLogs {
		result.Logs = opt.Some(captured)
	}
	return result, true
}

func (r *SuiteRunner) streamLogs(ctx context.Context, app *App) <-chan provision.LogLine {
	var sources []<-chan provision.LogLine
	for _, s := range app.Services() {
		ch, err := r.config.Provisioner.StreamLogs(ctx, s)
		if err != nil {
			r.logger.Printf("Not capturing output of service %s: %s", s.Name(), err)
			continue
		}
		sources = append(sources, ch)
	}
	return provision.MergeLogs(ctx, sources...)
}

func (r *SuiteRunner) report(result TestResult) {
	r.setState(StateReporting)
	r.results.add(result)
	r.config.Metrics.testFinished(r.suite.App.Name, result.Outcome)
	r.config.TestLogger.TestFinished(result)
}

func (r *SuiteRunner) cleanup(ctx context.Context, l *ledger.Ledger) {
	if r.beforeCleanup != nil {
		r.beforeCleanup(l)
	}
	r.logger.Printf("Removing %d resources", l.Len())
	cleanupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), CleanupTimeout)
	defer cancel()
	err := l.Cleanup(cleanupCtx)
	if err == nil {
		return
	}
	var merr *multierror.Error
	if errors.As(err, &merr) {
		r.config.Metrics.cleanupFailed(r.suite.App.Name, len(merr.Errors))
	}
	r.results.CleanupFailures = append(r.results.CleanupFailures, CleanupFailure{App: r.suite.App.Name, Err: err})
}
