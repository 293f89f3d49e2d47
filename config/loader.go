// Package config reads application topologies from YAML or JSON files.
//
// A topology file has a top-level "applications" list; each application has a name and a list
// of services, in the same shape as servicedef.ApplicationConfig:
//
//	applications:
//	  - name: web
//	    services:
//	      - name: api
//	        image: example/api:1.4
//	        env:
//	          - { key: DB_HOST, value: db }
//	        health: { path: /healthz, port: 8080 }
//	      - name: db
//	        image: postgres:16
//
// Environment variable references like ${NAME} in the file are expanded before parsing.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/octopod/octopod/servicedef"
)

// File is the parsed content of one topology file.
type File struct {
	Applications []servicedef.ApplicationConfig `json:"applications"`
}

// Parse parses and validates topology data.
func Parse(data []byte) ([]servicedef.ApplicationConfig, error) {
	var f File
	if err := ParseJSONOrYAML([]byte(os.ExpandEnv(string(data))), &f); err != nil {
		return nil, err
	}
	if len(f.Applications) == 0 {
		return nil, fmt.Errorf("no applications defined")
	}
	if err := servicedef.ValidateApplications(f.Applications); err != nil {
		return nil, err
	}
	return f.Applications, nil
}

// LoadFile reads a single topology file.
func LoadFile(path string) ([]servicedef.ApplicationConfig, error) {
	data, err := os.ReadFile(path) //nolint:gosec
	if err != nil {
		return nil, fmt.Errorf("failed to read %q: %w", path, err)
	}
	apps, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("error parsing %q: %w", filepath.Base(path), err)
	}
	return apps, nil
}

// Load reads each path, which may be a file or a directory, and returns all applications found.
// Directories are scanned (not recursively) for .yaml, .yml and .json files in name order.
// Application names must be unique across everything loaded.
func Load(paths ...string) ([]servicedef.ApplicationConfig, error) {
	var ret []servicedef.ApplicationConfig
	for _, path := range paths {
		files, err := expandPath(path)
		if err != nil {
			return nil, err
		}
		for _, file := range files {
			apps, err := LoadFile(file)
			if err != nil {
				return nil, err
			}
			ret = append(ret, apps...)
		}
	}
	if err := servicedef.ValidateApplications(ret); err != nil {
		return nil, err
	}
	return ret, nil
}

func expandPath(path string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %q: %w", path, err)
	}
	if !info.IsDir() {
		return []string{path}, nil
	}
	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %q: %w", path, err)
	}
	var ret []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".yaml", ".yml", ".json":
			ret = append(ret, filepath.Join(path, e.Name()))
		}
	}
	sort.Strings(ret)
	return ret, nil
}
