package podtest

import (
	"errors"
	"fmt"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"github.com/octopod/octopod/servicedef"
)

// TestFunc is the body of an integration test.
type TestFunc func(t *T)

// TestDeclaration binds a test function to the application it runs against.
type TestDeclaration struct {
	Name string
	// App is the name of an ApplicationConfig.
	App  string
	Func TestFunc
	// Ignore causes the test to be reported as ignored without provisioning anything.
	Ignore bool
}

// Suite is an application together with the tests that run against it, in declaration order.
type Suite struct {
	App   servicedef.ApplicationConfig
	Tests []TestDeclaration
}

// ConfigError is returned by BuildSuites when the applications or the test declarations are
// inconsistent. It is always detected before anything is provisioned.
type ConfigError struct {
	Test string
	App  string
	Err  error
}

// ErrUnknownApp is the cause of a ConfigError for a test that names an undefined application.
var ErrUnknownApp = errors.New("unknown app")

func (e *ConfigError) Error() string {
	switch {
	case errors.Is(e.Err, ErrUnknownApp):
		return fmt.Sprintf("unknown app %q in test %q", e.App, e.Test)
	case e.Test != "":
		return fmt.Sprintf("invalid test %q: %s", e.Test, e.Err)
	default:
		return fmt.Sprintf("invalid configuration: %s", e.Err)
	}
}

func (e *ConfigError) Unwrap() error { return e.Err }

// BuildSuites validates the applications and groups the tests by application. Suites are
// returned in application name order; applications without tests have no suite.
func BuildSuites(apps []servicedef.ApplicationConfig, tests []TestDeclaration) ([]Suite, error) {
	if err := servicedef.ValidateApplications(apps); err != nil {
		return nil, &ConfigError{Err: err}
	}
	byName := make(map[string]*Suite, len(apps))
	for _, app := range apps {
		byName[app.Name] = &Suite{App: app.Clone()}
	}
	seen := make(map[string]struct{}, len(tests))
	for _, test := range tests {
		if test.Name == "" {
			return nil, &ConfigError{App: test.App, Err: errors.New("test has no name")}
		}
		if test.Func == nil && !test.Ignore {
			return nil, &ConfigError{Test: test.Name, App: test.App, Err: errors.New("test has no function")}
		}
		suite, ok := byName[test.App]
		if !ok {
			return nil, &ConfigError{Test: test.Name, App: test.App, Err: ErrUnknownApp}
		}
		key := test.App + "/" + test.Name
		if _, dup := seen[key]; dup {
			return nil, &ConfigError{Test: test.Name, App: test.App, Err: errors.New("duplicate test name")}
		}
		seen[key] = struct{}{}
		suite.Tests = append(suite.Tests, test)
	}

	names := maps.Keys(byName)
	slices.Sort(names)
	var ret []Suite
	for _, name := range names {
		if s := byName[name]; len(s.Tests) > 0 {
			ret = append(ret, *s)
		}
	}
	return ret, nil
}
