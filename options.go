package octopod

import (
	"io"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/octopod/octopod/framework"
	"github.com/octopod/octopod/framework/backend"
	"github.com/octopod/octopod/framework/helpers"
	"github.com/octopod/octopod/framework/podtest"
	"github.com/octopod/octopod/framework/provision"
)

type engineConfig struct {
	logAll        bool
	backend       backend.Backend
	logger        framework.Logger
	output        io.Writer
	cleanup       podtest.CleanupPolicy
	filter        podtest.Filter
	testLoggers   []podtest.TestLogger
	captureLogs   bool
	pullPolicy    provision.PullPolicy
	healthTimeout time.Duration
	registerer    prometheus.Registerer
}

// Option configures an Engine.
type Option helpers.ConfigOption[engineConfig]

func optionFunc(fn func(*engineConfig)) Option {
	return helpers.OptionFunc[engineConfig](func(c *engineConfig) error {
		fn(c)
		return nil
	})
}

// LogAll makes the console report include the captured output of passing tests, not only of
// failed and ignored ones.
func LogAll() Option {
	return optionFunc(func(c *engineConfig) { c.logAll = true })
}

// WithBackend makes the engine use b instead of connecting to the endpoint given to New.
func WithBackend(b backend.Backend) Option {
	return optionFunc(func(c *engineConfig) { c.backend = b })
}

// WithLogger sets the Logger for debug output.
func WithLogger(logger framework.Logger) Option {
	return optionFunc(func(c *engineConfig) { c.logger = framework.LoggerOrNull(logger) })
}

// WithOutput sets where the console report is written. The default is os.Stdout.
func WithOutput(w io.Writer) Option {
	return optionFunc(func(c *engineConfig) { c.output = w })
}

func WithCleanupPolicy(policy podtest.CleanupPolicy) Option {
	return optionFunc(func(c *engineConfig) { c.cleanup = policy })
}

// WithFilter restricts which tests run. Tests that do not match are reported as ignored.
func WithFilter(filter podtest.Filter) Option {
	return optionFunc(func(c *engineConfig) { c.filter = filter })
}

// WithTestLogger adds a reporter, such as a podtest.JUnitTestLogger, alongside the console one.
func WithTestLogger(testLogger podtest.TestLogger) Option {
	return optionFunc(func(c *engineConfig) { c.testLoggers = append(c.testLoggers, testLogger) })
}

// WithCaptureLogs turns collection of service output on or off. It is on by default.
func WithCaptureLogs(capture bool) Option {
	return optionFunc(func(c *engineConfig) { c.captureLogs = capture })
}

func WithPullPolicy(policy provision.PullPolicy) Option {
	return optionFunc(func(c *engineConfig) { c.pullPolicy = policy })
}

// WithHealthTimeout sets how long to wait for each service's health check.
func WithHealthTimeout(timeout time.Duration) Option {
	return optionFunc(func(c *engineConfig) { c.healthTimeout = timeout })
}

// WithMetrics registers test run metrics with registerer.
func WithMetrics(registerer prometheus.Registerer) Option {
	return optionFunc(func(c *engineConfig) { c.registerer = registerer })
}
