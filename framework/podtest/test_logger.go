package podtest

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/fatih/color"
	"github.com/hashicorp/go-multierror"
)

var consoleTestPassedColor = color.New(color.FgGreen)          //nolint:gochecknoglobals
var consoleTestFailedColor = color.New(color.FgRed)            //nolint:gochecknoglobals
var consoleTestIgnoredColor = color.New(color.FgYellow)        //nolint:gochecknoglobals
var consoleHeaderColor = color.New(color.Bold)                 //nolint:gochecknoglobals
var consoleFailureMessageColor = color.New(color.FgHiRed)      //nolint:gochecknoglobals
var consoleLogSeparatorColor = color.New(color.Faint)          //nolint:gochecknoglobals
var consoleSummaryColor = color.New(color.Bold, color.FgWhite) //nolint:gochecknoglobals

// TestLogger receives the result of each test as soon as it is known, and the complete results
// at the end of the run.
type TestLogger interface {
	TestFinished(result TestResult)
	EndLog(results Results) error
}

type nullTestLogger struct{}

func (n nullTestLogger) TestFinished(TestResult) {}
func (n nullTestLogger) EndLog(Results) error    { return nil }

// MultiTestLogger sends everything to each of its loggers in turn.
type MultiTestLogger []TestLogger

func (m MultiTestLogger) TestFinished(result TestResult) {
	for _, l := range m {
		l.TestFinished(result)
	}
}

func (m MultiTestLogger) EndLog(results Results) error {
	var result *multierror.Error
	for _, l := range m {
		if err := l.EndLog(results); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result.ErrorOrNil()
}

// ConsoleTestLogger prints a status line for each test as it finishes, and at the end prints the
// failure message and captured service output of each failed or ignored test, followed by a
// summary. With LogAll it prints the details of passing tests too.
type ConsoleTestLogger struct {
	out       io.Writer
	logAll    bool
	nameWidth int
	startTime time.Time
	retained  []TestResult
	lock      sync.Mutex
}

// NewConsoleTestLogger creates a ConsoleTestLogger. Test names are padded to the longest of
// testNames so that the status column lines up.
func NewConsoleTestLogger(out io.Writer, testNames []string, logAll bool) *ConsoleTestLogger {
	width := 0
	for _, n := range testNames {
		if len(n) > width {
			width = len(n)
		}
	}
	return &ConsoleTestLogger{
		out:       out,
		logAll:    logAll,
		nameWidth: width,
		startTime: time.Now(),
	}
}

func (c *ConsoleTestLogger) TestFinished(result TestResult) {
	c.lock.Lock()
	defer c.lock.Unlock()
	_, _ = fmt.Fprintf(c.out, "test %-*s ... %s\n", c.nameWidth, result.ID, outcomeColor(result.Outcome).Sprint(result.Outcome))
	if c.logAll || result.Outcome != Pass {
		c.retained = append(c.retained, result)
	}
}

func (c *ConsoleTestLogger) EndLog(results Results) error {
	c.lock.Lock()
	defer c.lock.Unlock()
	for _, r := range c.retained {
		c.printDetails(r)
	}
	for _, f := range results.CleanupFailures {
		_, _ = fmt.Fprintf(c.out, "\n%s\n", consoleHeaderColor.Sprintf("---- cleanup %s %s ----", f.App, Fail))
		for _, line := range strings.Split(f.Err.Error(), "\n") {
			if line = strings.TrimSpace(line); line != "" {
				_, _ = fmt.Fprintln(c.out, consoleFailureMessageColor.Sprint(line))
			}
		}
	}

	status := Pass
	if !results.OK() {
		status = Fail
	}
	_, _ = fmt.Fprintf(c.out, "\n%s %s. %d passed; %d failed; %d ignored; finished in %.2fs\n",
		consoleSummaryColor.Sprint("test result:"),
		outcomeColor(status).Sprint(status),
		results.Count(Pass), results.Count(Fail), results.Count(Ignored),
		time.Since(c.startTime).Seconds(),
	)
	return nil
}

func (c *ConsoleTestLogger) printDetails(r TestResult) {
	_, _ = fmt.Fprintf(c.out, "\n%s\n", consoleHeaderColor.Sprintf("---- %s %s ----", r.ID, r.Outcome))
	if r.Message != "" {
		for _, line := range strings.Split(r.Message, "\n") {
			_, _ = fmt.Fprintln(c.out, consoleFailureMessageColor.Sprint(line))
		}
	}
	logs := r.Logs.OrElse(nil)
	width := 0
	for _, line := range logs {
		if len(line.Source) > width {
			width = len(line.Source)
		}
	}
	for _, line := range logs {
		name := fmt.Sprintf("%-*s", width, line.Source)
		_, _ = fmt.Fprintf(c.out, "%s %s %s\n",
			serviceColor(line.Source).Sprint(name), consoleLogSeparatorColor.Sprint("|"), line.Text)
	}
}

func outcomeColor(o Outcome) *color.Color {
	switch o {
	case Pass:
		return consoleTestPassedColor
	case Fail:
		return consoleTestFailedColor
	default:
		return consoleTestIgnoredColor
	}
}

// serviceColorCode picks one of the 216 colors of the 256-color palette's color cube. The same
// service name always gets the same color.
func serviceColorCode(name string) int {
	return 16 + int(xxhash.Sum64String(name)%216)
}

func serviceColor(name string) *color.Color {
	return color.New(38, 5, color.Attribute(serviceColorCode(name)))
}
