package podtest

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/octopod/octopod/framework"
)

// Filter determines whether a specific test should run. Tests that do not match are reported as
// ignored.
type Filter interface {
	Match(id TestID) bool
}

// FilterFunc adapts a plain function to Filter.
type FilterFunc func(TestID) bool

func (f FilterFunc) Match(id TestID) bool { return f(id) }

// RegexFilters selects tests by patterns matched against the application and test name.
type RegexFilters struct {
	MustMatch    TestIDPatternList
	MustNotMatch TestIDPatternList
}

func (r RegexFilters) Match(id TestID) bool {
	return (!r.MustMatch.IsDefined() || r.MustMatch.AnyMatch(id, true)) &&
		!r.MustNotMatch.AnyMatch(id, false)
}

// TestIDPattern is a list of regexes, one per TestID component: "web/^reach" matches any test
// whose name starts with "reach" in any application whose name contains "web".
type TestIDPattern []*regexp.Regexp

func (p TestIDPattern) Match(id TestID, includeParents bool) bool {
	n := len(p)
	if n > len(id) {
		if !includeParents {
			return false
		}
		n = len(id)
	}
	for i := 0; i < n; i++ {
		if !p[i].MatchString(id[i]) {
			return false
		}
	}
	return true
}

func (p TestIDPattern) String() string {
	ss := make([]string, 0, len(p))
	for _, c := range p {
		ss = append(ss, c.String())
	}
	return strings.Join(ss, "/")
}

type TestIDPatternList []TestIDPattern

func (l TestIDPatternList) String() string {
	ss := make([]string, 0, len(l))
	for _, p := range l {
		ss = append(ss, `"`+p.String()+`"`)
	}
	return strings.Join(ss, " or ")
}

// Set adds a pattern of "/"-separated regexes. It makes the list usable as a command line flag.
func (l *TestIDPatternList) Set(value string) error {
	var p TestIDPattern
	for _, part := range strings.Split(value, "/") {
		rx, err := regexp.Compile(part)
		if err != nil {
			return fmt.Errorf("invalid regex in %q: %w", value, err)
		}
		p = append(p, rx)
	}
	*l = append(*l, p)
	return nil
}

func (l *TestIDPatternList) Type() string {
	return "pattern"
}

func (l TestIDPatternList) IsDefined() bool {
	return len(l) != 0
}

func (l TestIDPatternList) AnyMatch(id TestID, includeParents bool) bool {
	for _, p := range l {
		if p.Match(id, includeParents) {
			return true
		}
	}
	return false
}

// DescribeFilters logs which tests the filters will exclude.
func DescribeFilters(filters RegexFilters, logger framework.Logger) {
	if !filters.MustMatch.IsDefined() && !filters.MustNotMatch.IsDefined() {
		return
	}
	logger = framework.LoggerOrNull(logger)
	logger.Println("Some tests will be ignored based on the filter criteria for this test run:")
	if filters.MustMatch.IsDefined() {
		logger.Printf("  ignore any not matching %s", filters.MustMatch)
	}
	if filters.MustNotMatch.IsDefined() {
		logger.Printf("  ignore any matching %s", filters.MustNotMatch)
	}
}
