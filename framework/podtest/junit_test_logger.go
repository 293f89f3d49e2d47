package podtest

import (
	"encoding/xml"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/octopod/octopod/framework"
)

// JUnitTestLogger writes a JUnit XML report when the run ends, with one test suite per
// application. Ignored tests are reported as skipped; failures include the captured service
// output.
type JUnitTestLogger struct {
	filePath string
	filters  RegexFilters
	logger   framework.Logger
	results  []TestResult
	lock     sync.Mutex
}

// Struct definitions for the JUnit XML schema - see https://github.com/jstemmer/go-junit-report

type jUnitXMLDocument struct {
	XMLName xml.Name            `xml:"testsuites"`
	Suites  []jUnitXMLTestSuite `xml:"testsuite"`
}

type jUnitXMLTestSuite struct {
	XMLName    xml.Name           `xml:"testsuite"`
	Tests      int                `xml:"tests,attr"`
	Failures   int                `xml:"failures,attr"`
	Skipped    int                `xml:"skipped,attr"`
	Time       string             `xml:"time,attr"`
	Name       string             `xml:"name,attr"`
	Properties []jUnitXMLProperty `xml:"properties>property,omitempty"`
	TestCases  []jUnitXMLTestCase `xml:"testcase"`
}

type jUnitXMLTestCase struct {
	XMLName     xml.Name             `xml:"testcase"`
	Classname   string               `xml:"classname,attr"`
	Name        string               `xml:"name,attr"`
	Time        string               `xml:"time,attr"`
	SkipMessage *jUnitXMLSkipMessage `xml:"skipped,omitempty"`
	Failure     *jUnitXMLFailure     `xml:"failure,omitempty"`
	SystemOut   string               `xml:"system-out,omitempty"`
}

type jUnitXMLSkipMessage struct {
	Message string `xml:"message,attr"`
}

type jUnitXMLProperty struct {
	Name  string `xml:"name,attr"`
	Value string `xml:"value,attr"`
}

type jUnitXMLFailure struct {
	Message  string `xml:"message,attr"`
	Type     string `xml:"type,attr"`
	Contents string `xml:",chardata"`
}

func NewJUnitTestLogger(filePath string, filters RegexFilters, logger framework.Logger) *JUnitTestLogger {
	return &JUnitTestLogger{
		filePath: filePath,
		filters:  filters,
		logger:   framework.LoggerOrNull(logger),
	}
}

func (j *JUnitTestLogger) TestFinished(result TestResult) {
	j.lock.Lock()
	defer j.lock.Unlock()
	j.results = append(j.results, result)
}

func (j *JUnitTestLogger) EndLog(Results) error {
	j.lock.Lock()
	defer j.lock.Unlock()
	j.logger.Printf("Writing JUnit data to %s", j.filePath)

	bytes, err := xml.MarshalIndent(j.buildDocument(), "", "  ")
	if err != nil {
		return err
	}
	bytes = append([]byte(xml.Header), bytes...)
	bytes = append(bytes, '\n')

	return os.WriteFile(j.filePath, bytes, 0644) //nolint:gosec
}

func (j *JUnitTestLogger) buildDocument() jUnitXMLDocument {
	var doc jUnitXMLDocument
	properties := []jUnitXMLProperty{
		{Name: "tests.filter.mustMatch", Value: j.filters.MustMatch.String()},
		{Name: "tests.filter.mustNotMatch", Value: j.filters.MustNotMatch.String()},
	}

	for _, app := range getAppNames(j.results) {
		suite := jUnitXMLTestSuite{
			Name:       fmt.Sprintf("Integration tests: %s", app),
			Properties: properties,
		}
		suiteTotalDuration := time.Duration(0)
		for _, r := range j.results {
			if r.ID.App() != app {
				continue
			}
			suite.Tests++
			suiteTotalDuration += r.Duration

			testCase := jUnitXMLTestCase{
				Classname: app,
				Name:      r.ID.String(),
				Time:      jUnitDurationString(r.Duration),
				SystemOut: formatLogs(r),
			}
			switch r.Outcome {
			case Ignored:
				suite.Skipped++
				testCase.SkipMessage = &jUnitXMLSkipMessage{Message: r.Message}
			case Fail:
				suite.Failures++
				testCase.Failure = &jUnitXMLFailure{
					Message:  r.Message,
					Contents: failureDetails(r),
				}
			}
			suite.TestCases = append(suite.TestCases, testCase)
		}
		suite.Time = jUnitDurationString(suiteTotalDuration)
		doc.Suites = append(doc.Suites, suite)
	}
	return doc
}

func failureDetails(r TestResult) string {
	var messages []string
	for _, e := range r.Errors {
		message := e.Error()
		if es, ok := e.(ErrorWithStacktrace); ok {
			message += "\n  Stacktrace:"
			for _, s := range es.Stacktrace {
				message += "\n    " + s.String()
			}
		}
		messages = append(messages, message)
	}
	if len(messages) == 0 {
		return r.Message
	}
	return strings.Join(messages, "\n")
}

func formatLogs(r TestResult) string {
	var b strings.Builder
	for _, line := range r.Logs.OrElse(nil) {
		b.WriteString(line.Source)
		b.WriteString(" | ")
		b.WriteString(line.Text)
		b.WriteString("\n")
	}
	return b.String()
}

func getAppNames(results []TestResult) []string {
	var ret []string
	seen := make(map[string]bool)
	for _, r := range results {
		if app := r.ID.App(); !seen[app] {
			ret = append(ret, app)
			seen[app] = true
		}
	}
	return ret
}

func jUnitDurationString(d time.Duration) string {
	return fmt.Sprintf("%.3f", d.Seconds())
}
