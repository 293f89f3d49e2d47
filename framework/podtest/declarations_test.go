package podtest

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/octopod/octopod/servicedef"
)

func noop(*T) {}

func webApp() servicedef.ApplicationConfig {
	return servicedef.NewApplication("web",
		servicedef.NewService("api", "example/api:1"),
		servicedef.NewService("db", "postgres:16"),
	)
}

func TestBuildSuites(t *testing.T) {
	apps := []servicedef.ApplicationConfig{
		webApp(),
		servicedef.NewApplication("cache", servicedef.NewService("redis", "redis:7")),
		servicedef.NewApplication("unused", servicedef.NewService("x", "x")),
	}
	tests := []TestDeclaration{
		{Name: "reachable", App: "web", Func: noop},
		{Name: "evicts", App: "cache", Func: noop},
		{Name: "paused", App: "web", Func: noop},
		{Name: "later", App: "web", Ignore: true},
	}
	suites, err := BuildSuites(apps, tests)
	require.NoError(t, err)
	require.Len(t, suites, 2)

	assert.Equal(t, "cache", suites[0].App.Name)
	assert.Equal(t, "web", suites[1].App.Name)
	var names []string
	for _, d := range suites[1].Tests {
		names = append(names, d.Name)
	}
	assert.Equal(t, []string{"reachable", "paused", "later"}, names)
}

func TestBuildSuitesKeepsOwnCopyOfApplications(t *testing.T) {
	apps := []servicedef.ApplicationConfig{webApp()}
	suites, err := BuildSuites(apps, []TestDeclaration{{Name: "a", App: "web", Func: noop}})
	require.NoError(t, err)
	apps[0].Services[0].Image = "changed"
	assert.Equal(t, "example/api:1", suites[0].App.Services[0].Image)
}

func TestBuildSuitesRejectsUnknownApp(t *testing.T) {
	_, err := BuildSuites([]servicedef.ApplicationConfig{webApp()}, []TestDeclaration{
		{Name: "reachable", App: "web", Func: noop},
		{Name: "misconfigured", App: "nope", Func: noop},
	})
	require.Error(t, err)
	var ce *ConfigError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, "misconfigured", ce.Test)
	assert.Equal(t, "nope", ce.App)
	assert.ErrorIs(t, err, ErrUnknownApp)
	assert.Equal(t, `unknown app "nope" in test "misconfigured"`, err.Error())
}

func TestBuildSuitesRejectsBadDeclarations(t *testing.T) {
	apps := []servicedef.ApplicationConfig{webApp()}
	for name, tests := range map[string][]TestDeclaration{
		"no name":     {{App: "web", Func: noop}},
		"no function": {{Name: "a", App: "web"}},
		"duplicate":   {{Name: "a", App: "web", Func: noop}, {Name: "a", App: "web", Func: noop}},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := BuildSuites(apps, tests)
			var ce *ConfigError
			assert.True(t, errors.As(err, &ce))
		})
	}
}

func TestIgnoredTestNeedsNoFunction(t *testing.T) {
	_, err := BuildSuites([]servicedef.ApplicationConfig{webApp()}, []TestDeclaration{{Name: "a", App: "web", Ignore: true}})
	assert.NoError(t, err)
}

func TestBuildSuitesRejectsInvalidApplications(t *testing.T) {
	_, err := BuildSuites([]servicedef.ApplicationConfig{webApp(), webApp()}, nil)
	var ce *ConfigError
	require.True(t, errors.As(err, &ce))
	assert.ErrorIs(t, err, servicedef.ErrDuplicateApplication)
	assert.Contains(t, err.Error(), "invalid configuration")
}
