package servicedef

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func webApp() ApplicationConfig {
	return NewApplication("web",
		NewService("api", "example/api:1").WithEnv("DB_HOST", "db").WithHealth("/healthz", 8080),
		NewService("db", "postgres:16").WithEnv("POSTGRES_PASSWORD", "secret"),
	)
}

func TestValidApplications(t *testing.T) {
	assert.NoError(t, ValidateApplications([]ApplicationConfig{webApp(), NewApplication("cache", NewService("redis", "redis:7"))}))
}

func TestInvalidApplications(t *testing.T) {
	for name, app := range map[string]ApplicationConfig{
		"no name":             NewApplication("", NewService("api", "img")),
		"no services":         NewApplication("web"),
		"missing image":       NewApplication("web", NewService("api", "")),
		"missing svc name":    NewApplication("web", NewService("", "img")),
		"non-DNS svc name":    NewApplication("web", NewService("my_api!", "img")),
		"duplicate svc names": NewApplication("web", NewService("api", "a"), NewService("api", "b")),
		"relative health":     NewApplication("web", NewService("api", "img").WithHealth("healthz", 80)),
		"health without port": NewApplication("web", NewService("api", "img").WithHealth("/healthz", 0)),
		"env without key":     NewApplication("web", NewService("api", "img").WithEnv("", "x")),
	} {
		t.Run(name, func(t *testing.T) {
			err := ValidateApplications([]ApplicationConfig{app})
			require.Error(t, err)
			assert.Contains(t, err.Error(), "invalid application")
		})
	}
}

func TestDuplicateApplicationNames(t *testing.T) {
	err := ValidateApplications([]ApplicationConfig{webApp(), webApp()})
	assert.ErrorIs(t, err, ErrDuplicateApplication)
}

func TestEnvStrings(t *testing.T) {
	s := NewService("api", "img").WithEnv("A", "1").WithEnv("B", "x=y")
	assert.Equal(t, []string{"A=1", "B=x=y"}, s.EnvStrings())
	assert.Nil(t, NewService("api", "img").EnvStrings())
}

func TestBuildersDoNotShareState(t *testing.T) {
	base := NewService("api", "img").WithEnv("A", "1")
	s1 := base.WithEnv("B", "2")
	s2 := base.WithEnv("C", "3")
	assert.Equal(t, []string{"A=1"}, base.EnvStrings())
	assert.Equal(t, []string{"A=1", "B=2"}, s1.EnvStrings())
	assert.Equal(t, []string{"A=1", "C=3"}, s2.EnvStrings())
}

func TestCloneIsDeep(t *testing.T) {
	app := webApp()
	c := app.Clone()
	c.Services[0].Env[0].Value = "changed"
	c.Services[0].Health.Port = 1
	assert.Equal(t, "db", app.Services[0].Env[0].Value)
	assert.Equal(t, uint16(8080), app.Services[0].Health.Port)
}

func TestServiceLookup(t *testing.T) {
	s, ok := webApp().Service("db")
	require.True(t, ok)
	assert.Equal(t, "postgres:16", s.Image)
	_, ok = webApp().Service("nope")
	assert.False(t, ok)
}
