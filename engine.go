package octopod

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/octopod/octopod/framework"
	"github.com/octopod/octopod/framework/backend/docker"
	"github.com/octopod/octopod/framework/helpers"
	"github.com/octopod/octopod/framework/podtest"
	"github.com/octopod/octopod/framework/provision"
	"github.com/octopod/octopod/servicedef"
)

// Engine runs every declared test suite against a single backend.
type Engine struct {
	suites      []podtest.Suite
	config      engineConfig
	provisioner *provision.Provisioner
	testLogger  podtest.TestLogger
	metrics     *podtest.Metrics
	closer      io.Closer
	results     podtest.Results
}

// New validates the applications and tests, then connects to the container backend at endpoint
// (for instance "unix:///run/podman/podman.sock"). An empty endpoint uses the DOCKER_HOST
// environment settings. A configuration error is a *podtest.ConfigError, and is reported before
// any connection is attempted.
func New(
	endpoint string,
	apps []servicedef.ApplicationConfig,
	tests []podtest.TestDeclaration,
	options ...Option,
) (*Engine, error) {
	config := engineConfig{
		logger:        framework.NullLogger(),
		output:        os.Stdout,
		captureLogs:   true,
		healthTimeout: provision.DefaultHealthTimeout,
	}
	if err := helpers.ApplyOptions(&config, options...); err != nil {
		return nil, err
	}

	suites, err := podtest.BuildSuites(apps, tests)
	if err != nil {
		return nil, err
	}

	e := &Engine{suites: suites, config: config}
	b := config.backend
	if b == nil {
		adapter, err := docker.NewAdapter(endpoint, config.logger)
		if err != nil {
			return nil, err
		}
		b, e.closer = adapter, adapter
	}

	e.provisioner, err = provision.NewProvisioner(b,
		provision.WithLogger(config.logger),
		provision.WithPullPolicy(config.pullPolicy),
		provision.WithHealthTimeout(config.healthTimeout),
	)
	if err != nil {
		_ = e.Close()
		return nil, err
	}

	if config.registerer != nil {
		if e.metrics, err = podtest.NewMetrics(config.registerer); err != nil {
			_ = e.Close()
			return nil, fmt.Errorf("failed to register metrics: %w", err)
		}
	}

	var names []string
	for _, s := range suites {
		for _, t := range s.Tests {
			names = append(names, podtest.TestID{s.App.Name, t.Name}.String())
		}
	}
	console := podtest.NewConsoleTestLogger(config.output, names, config.logAll)
	e.testLogger = append(podtest.MultiTestLogger{console}, config.testLoggers...)
	return e, nil
}

// Run runs the suites one after another and returns true if no test failed. Each suite's
// resources are removed before the next suite starts. When all suites are done, every reporter
// writes its summary.
func (e *Engine) Run(ctx context.Context) bool {
	ok := true
	for _, suite := range e.suites {
		runner := podtest.NewSuiteRunner(suite, podtest.RunnerConfig{
			Provisioner: e.provisioner,
			TestLogger:  e.testLogger,
			Logger:      e.config.logger,
			Filter:      e.config.filter,
			Cleanup:     e.config.cleanup,
			CaptureLogs: e.config.captureLogs,
			Metrics:     e.metrics,
		})
		if !runner.Run(ctx) {
			ok = false
		}
		e.results.Merge(runner.Results())
	}
	if err := e.testLogger.EndLog(e.results); err != nil {
		e.config.logger.Printf("Error writing test report: %s", err)
	}
	return ok
}

// Results returns the results of every test run so far.
func (e *Engine) Results() podtest.Results {
	return e.results
}

// Suites returns the suites the engine will run, in order.
func (e *Engine) Suites() []podtest.Suite {
	return helpers.CopyOf(e.suites)
}

// Close releases the backend connection, if New created one.
func (e *Engine) Close() error {
	if e.closer == nil {
		return nil
	}
	return e.closer.Close()
}
