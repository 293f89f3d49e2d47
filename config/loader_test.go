package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/octopod/octopod/servicedef"
)

func TestLoadYAMLFile(t *testing.T) {
	apps, err := LoadFile(filepath.Join("testdata", "web.yaml"))
	require.NoError(t, err)
	require.Len(t, apps, 1)

	web := apps[0]
	assert.Equal(t, "web", web.Name)
	require.Len(t, web.Services, 2)
	assert.Equal(t, servicedef.NewService("api", "example/api:1.4").
		WithEnv("DB_HOST", "db").WithHealth("/healthz", 8080), web.Services[0])
	assert.Equal(t, servicedef.NewService("db", "postgres:16").
		WithEnv("POSTGRES_PASSWORD", "secret"), web.Services[1])
}

func TestLoadDirectory(t *testing.T) {
	apps, err := Load("testdata")
	require.NoError(t, err)
	var names []string
	for _, a := range apps {
		names = append(names, a.Name)
	}
	assert.Equal(t, []string{"cache", "web"}, names)
}

func TestLoadRejectsDuplicatesAcrossFiles(t *testing.T) {
	_, err := Load(filepath.Join("testdata", "web.yaml"), filepath.Join("testdata", "web.yaml"))
	assert.ErrorIs(t, err, servicedef.ErrDuplicateApplication)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join("testdata", "nope.yaml"))
	assert.Error(t, err)
}

func TestParseValidates(t *testing.T) {
	_, err := Parse([]byte(`applications: [{name: web, services: [{name: api}]}]`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), `invalid application "web"`)

	_, err = Parse([]byte(`applications: []`))
	assert.Error(t, err)
}

func TestParseExpandsEnvironment(t *testing.T) {
	t.Setenv("OCTOPOD_TEST_TAG", "2.0")
	apps, err := Parse([]byte(`applications: [{name: web, services: [{name: api, image: "example/api:${OCTOPOD_TEST_TAG}"}]}]`))
	require.NoError(t, err)
	assert.Equal(t, "example/api:2.0", apps[0].Services[0].Image)
}
