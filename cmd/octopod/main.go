// Command octopod provisions the applications described in topology files and runs a set of
// built-in smoke tests against each of them.
package main

import (
	"context"
	_ "embed" // this is required in order for go:embed to work
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
)

//go:embed VERSION
var versionString string // comes from the VERSION file which we update for each release

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := newRootCommand(strings.TrimSpace(versionString)).ExecuteContext(ctx)
	stop()
	os.Exit(exitCode(err, os.Stderr))
}

// exitCode returns the process status for err, printing err to w unless it only says that tests
// failed.
func exitCode(err error, w io.Writer) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, errTestsFailed):
		return 1
	default:
		fmt.Fprintf(w, "Error: %v\n", err)
		return 1
	}
}
