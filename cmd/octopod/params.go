package main

import (
	"bufio"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/spf13/cobra"

	"github.com/octopod/octopod/framework/helpers"
	"github.com/octopod/octopod/framework/podtest"
	"github.com/octopod/octopod/framework/provision"
)

type commandParams struct {
	backendURL     string
	configPaths    []string
	filters        podtest.RegexFilters
	logAll         bool
	jUnitFile      string
	skipFile       string
	recordFailures string
	cleanup        string
	pull           bool
	noCapture      bool
	debug          bool
}

func (c *commandParams) addFlags(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.StringVar(&c.backendURL, "backend", "", "container backend endpoint (default: DOCKER_HOST)")
	flags.StringSliceVarP(&c.configPaths, "config", "c", nil, "topology file or directory (repeatable)")
	flags.Var(&c.filters.MustMatch, "run", "regex pattern(s) to select tests to run")
	flags.Var(&c.filters.MustNotMatch, "skip", "regex pattern(s) to select tests not to run")
	flags.BoolVar(&c.logAll, "log-all", false, "show captured service output for passing tests too")
	flags.StringVar(&c.jUnitFile, "junit", "", "write JUnit XML output to the specified path")
	flags.StringVar(&c.skipFile, "skip-from", "", "file listing tests not to run, one per line")
	flags.StringVar(&c.recordFailures, "record-failures", "", "write the IDs of failed tests to the specified path")
	flags.StringVar(&c.cleanup, "cleanup", "per-suite", `when to remove environments: "per-suite" or "per-test"`)
	flags.BoolVar(&c.pull, "pull", false, "pull images that are not present on the backend")
	flags.BoolVar(&c.noCapture, "no-capture", false, "do not collect service output")
	flags.BoolVar(&c.debug, "debug", false, "enable debug logging")
	_ = cmd.MarkFlagRequired("config")
}

func (c *commandParams) cleanupPolicy() (podtest.CleanupPolicy, error) {
	switch c.cleanup {
	case "per-suite", "":
		return podtest.CleanupPerSuite, nil
	case "per-test":
		return podtest.CleanupPerTest, nil
	default:
		return 0, fmt.Errorf(`invalid cleanup policy %q; use "per-suite" or "per-test"`, c.cleanup)
	}
}

func (c *commandParams) pullPolicy() provision.PullPolicy {
	return helpers.IfElse(c.pull, provision.PullIfMissing, provision.PullNever)
}

// loadSuppressions adds every line of the skip file to the filters as an exact-match pattern.
func (c *commandParams) loadSuppressions() error {
	if c.skipFile == "" {
		return nil
	}
	file, err := os.Open(c.skipFile)
	if err != nil {
		return fmt.Errorf("cannot open provided suppression file: %w", err)
	}
	defer func() { _ = file.Close() }()
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		var parts []string
		for _, p := range strings.Split(line, "/") {
			parts = append(parts, "^"+regexp.QuoteMeta(p)+"$")
		}
		if err := c.filters.MustNotMatch.Set(strings.Join(parts, "/")); err != nil {
			return fmt.Errorf("cannot parse suppression: %w", err)
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("while processing suppression file: %w", err)
	}
	return nil
}

func writeFailures(path string, results podtest.Results) error {
	f, err := os.Create(path) //nolint:gosec
	if err != nil {
		return fmt.Errorf("cannot create failure file: %w", err)
	}
	for _, test := range results.Failures {
		_, _ = fmt.Fprintln(f, test.ID)
	}
	return f.Close()
}
