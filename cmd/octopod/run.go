package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/octopod/octopod"
	"github.com/octopod/octopod/config"
	"github.com/octopod/octopod/framework/podtest"
)

// errTestsFailed makes the process exit with a failure status. main does not print it, since the
// test report already shows what failed.
var errTestsFailed = errors.New("some tests failed")

// newRunCommand creates the run command. The extra options are applied after the ones derived
// from flags.
func newRunCommand(extra ...octopod.Option) *cobra.Command {
	var params commandParams
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the smoke tests against every application",
		Example: `  octopod run --config topology.yaml
  octopod run --backend unix:///run/podman/podman.sock -c apps/ --skip 'web/pause' --junit out.xml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTests(cmd, &params, extra)
		},
	}
	params.addFlags(cmd)
	return cmd
}

func runTests(cmd *cobra.Command, params *commandParams, extra []octopod.Option) error {
	logger := newLogger(cmd.ErrOrStderr(), params.debug)

	if err := params.loadSuppressions(); err != nil {
		return err
	}
	cleanup, err := params.cleanupPolicy()
	if err != nil {
		return err
	}
	apps, err := config.Load(params.configPaths...)
	if err != nil {
		return err
	}

	podtest.DescribeFilters(params.filters, logger)

	options := []octopod.Option{
		octopod.WithLogger(logger),
		octopod.WithOutput(cmd.OutOrStdout()),
		octopod.WithCleanupPolicy(cleanup),
		octopod.WithFilter(params.filters),
		octopod.WithCaptureLogs(!params.noCapture),
		octopod.WithPullPolicy(params.pullPolicy()),
	}
	if params.logAll {
		options = append(options, octopod.LogAll())
	}
	if params.jUnitFile != "" {
		options = append(options, octopod.WithTestLogger(
			podtest.NewJUnitTestLogger(params.jUnitFile, params.filters, logger)))
	}

	options = append(options, extra...)

	engine, err := octopod.New(params.backendURL, apps, smokeTests(apps), options...)
	if err != nil {
		return err
	}
	defer func() { _ = engine.Close() }()

	ok := engine.Run(cmd.Context())

	if params.recordFailures != "" {
		if err := writeFailures(params.recordFailures, engine.Results()); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "Error writing failures: %s\n", err)
		}
	}
	if !ok {
		return errTestsFailed
	}
	return nil
}
