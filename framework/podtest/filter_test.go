package podtest

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/octopod/octopod/framework"
)

type regexFilterTestParams struct {
	run         []string
	skip        []string
	testID      TestID
	shouldMatch bool
}

func TestRegexFilters(t *testing.T) {
	allParams := []regexFilterTestParams{
		// matches everything by default
		{nil, nil, TestID{"web"}, true},
		{nil, nil, TestID{"web", "reachable"}, true},

		// --run with application only
		{[]string{"web"}, nil, TestID{"web", "reachable"}, true},
		{[]string{"web"}, nil, TestID{"cache", "reachable"}, false},
		{[]string{"^we"}, nil, TestID{"web", "reachable"}, true},

		// --run with application and test
		{[]string{"web/reach"}, nil, TestID{"web", "reachable"}, true},
		{[]string{"web/reach"}, nil, TestID{"web", "paused"}, false},
		{[]string{"web/reach"}, nil, TestID{"web"}, true},

		// --run with multiple patterns
		{[]string{"web", "cache"}, nil, TestID{"cache", "x"}, true},
		{[]string{"web", "cache"}, nil, TestID{"db", "x"}, false},

		// --skip
		{nil, []string{"web"}, TestID{"web", "reachable"}, false},
		{nil, []string{"web/paused"}, TestID{"web", "reachable"}, true},
		{nil, []string{"web/paused"}, TestID{"web", "paused"}, false},
		{nil, []string{"web/paused"}, TestID{"web"}, true},

		// --skip overrides --run
		{[]string{"web"}, []string{"web/paused"}, TestID{"web", "paused"}, false},
		{[]string{"web"}, []string{"web/paused"}, TestID{"web", "reachable"}, true},
	}
	for _, params := range allParams {
		var r RegexFilters
		for _, s := range params.run {
			require.NoError(t, r.MustMatch.Set(s))
		}
		for _, s := range params.skip {
			require.NoError(t, r.MustNotMatch.Set(s))
		}
		t.Run(fmt.Sprintf("run=%s, skip=%s, id=%s", r.MustMatch, r.MustNotMatch, params.testID), func(t *testing.T) {
			assert.Equal(t, params.shouldMatch, r.Match(params.testID))
		})
	}
}

func TestInvalidPattern(t *testing.T) {
	var l TestIDPatternList
	assert.Error(t, l.Set("web/(unclosed"))
	assert.False(t, l.IsDefined())
}

func TestDescribeFilters(t *testing.T) {
	var r RegexFilters
	require.NoError(t, r.MustMatch.Set("web"))
	require.NoError(t, r.MustNotMatch.Set("web/slow"))
	logger := &framework.RecordingLogger{}
	DescribeFilters(r, logger)
	assert.Equal(t, []string{
		"Some tests will be ignored based on the filter criteria for this test run:",
		`  ignore any not matching "web"`,
		`  ignore any matching "web/slow"`,
	}, logger.Messages())
}

func TestDescribeFiltersWithNoFilters(t *testing.T) {
	logger := &framework.RecordingLogger{}
	DescribeFilters(RegexFilters{}, logger)
	assert.Empty(t, logger.Messages())
}
