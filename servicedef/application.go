package servicedef

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ErrDuplicateApplication is returned by ValidateApplications when two applications share a name.
var ErrDuplicateApplication = errors.New("duplicate application name")

// EnvVar is one environment variable passed to a service container.
type EnvVar struct {
	Key   string `json:"key" yaml:"key" validate:"required,excludes=="`
	Value string `json:"value" yaml:"value"`
}

// HealthCheck describes an HTTP endpoint that returns a 2xx status once the service is ready.
type HealthCheck struct {
	Path string `json:"path" yaml:"path" validate:"required,startswith=/"`
	Port uint16 `json:"port" yaml:"port" validate:"required"`
}

// ServiceConfig describes one container in an application. Name is also the DNS alias other
// services use to reach it.
type ServiceConfig struct {
	Name   string       `json:"name" yaml:"name" validate:"required,hostname_rfc1123"`
	Image  string       `json:"image" yaml:"image" validate:"required"`
	Env    []EnvVar     `json:"env,omitempty" yaml:"env,omitempty" validate:"dive"`
	Health *HealthCheck `json:"health,omitempty" yaml:"health,omitempty"`
}

// ApplicationConfig is a named topology of services. Services are provisioned in the order
// they are listed.
type ApplicationConfig struct {
	Name     string          `json:"name" yaml:"name" validate:"required"`
	Services []ServiceConfig `json:"services" yaml:"services" validate:"required,min=1,unique=Name,dive"`
}

// NewApplication is a shortcut for building an ApplicationConfig in code.
func NewApplication(name string, services ...ServiceConfig) ApplicationConfig {
	return ApplicationConfig{Name: name, Services: services}
}

// NewService creates a ServiceConfig with no environment and no health check.
func NewService(name, image string) ServiceConfig {
	return ServiceConfig{Name: name, Image: image}
}

// WithEnv returns a copy of the ServiceConfig with an additional environment variable.
func (s ServiceConfig) WithEnv(key, value string) ServiceConfig {
	ret := s.Clone()
	ret.Env = append(ret.Env, EnvVar{Key: key, Value: value})
	return ret
}

// WithHealth returns a copy of the ServiceConfig with the given health check.
func (s ServiceConfig) WithHealth(path string, port uint16) ServiceConfig {
	ret := s.Clone()
	ret.Health = &HealthCheck{Path: path, Port: port}
	return ret
}

// EnvStrings returns the environment in KEY=VALUE form.
func (s ServiceConfig) EnvStrings() []string {
	if len(s.Env) == 0 {
		return nil
	}
	ret := make([]string, 0, len(s.Env))
	for _, e := range s.Env {
		ret = append(ret, e.Key+"="+e.Value)
	}
	return ret
}

// Clone returns a deep copy.
func (s ServiceConfig) Clone() ServiceConfig {
	ret := s
	if s.Env != nil {
		ret.Env = append([]EnvVar(nil), s.Env...)
	}
	if s.Health != nil {
		h := *s.Health
		ret.Health = &h
	}
	return ret
}

// Clone returns a deep copy.
func (a ApplicationConfig) Clone() ApplicationConfig {
	ret := ApplicationConfig{Name: a.Name}
	for _, s := range a.Services {
		ret.Services = append(ret.Services, s.Clone())
	}
	return ret
}

// Service returns the service with the given name.
func (a ApplicationConfig) Service(name string) (ServiceConfig, bool) {
	for _, s := range a.Services {
		if s.Name == name {
			return s, true
		}
	}
	return ServiceConfig{}, false
}

// ValidateApplications checks the structure of every application: names and images present,
// service names unique within each application and usable as DNS names, and application names
// unique overall.
func ValidateApplications(apps []ApplicationConfig) error {
	validate := validator.New()
	seen := make(map[string]struct{}, len(apps))
	for _, app := range apps {
		if err := validate.Struct(app); err != nil {
			return fmt.Errorf("invalid application %q: %s", app.Name, describeValidationError(err))
		}
		if _, ok := seen[app.Name]; ok {
			return fmt.Errorf("%w: %q", ErrDuplicateApplication, app.Name)
		}
		seen[app.Name] = struct{}{}
	}
	return nil
}

func describeValidationError(err error) string {
	var fieldErrors validator.ValidationErrors
	if !errors.As(err, &fieldErrors) {
		return err.Error()
	}
	parts := make([]string, 0, len(fieldErrors))
	for _, fe := range fieldErrors {
		if fe.Param() != "" {
			parts = append(parts, fmt.Sprintf("%s failed %q check (%s)", fe.Namespace(), fe.Tag(), fe.Param()))
		} else {
			parts = append(parts, fmt.Sprintf("%s failed %q check", fe.Namespace(), fe.Tag()))
		}
	}
	return strings.Join(parts, "; ")
}
