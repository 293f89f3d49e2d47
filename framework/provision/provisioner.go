// Package provision creates the networks and service containers that make up a test
// environment, and gives tests handles for inspecting and disturbing them.
package provision

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/netip"
	"time"

	"github.com/google/uuid"

	"github.com/octopod/octopod/framework"
	"github.com/octopod/octopod/framework/backend"
	"github.com/octopod/octopod/framework/helpers"
	"github.com/octopod/octopod/framework/ledger"
	"github.com/octopod/octopod/servicedef"
)

const (
	DefaultHealthTimeout  = 30 * time.Second
	DefaultHealthInterval = 250 * time.Millisecond

	// ServiceLabel and NetworkLabel are set on every container so that leftovers can be traced
	// back to the environment that created them.
	ServiceLabel = "io.octopod.service"
	NetworkLabel = "io.octopod.network"
)

// ErrUnhealthy means a service's health check did not succeed before the timeout.
var ErrUnhealthy = errors.New("service did not become healthy")

// PullPolicy says whether images are pulled before a container is created.
type PullPolicy int

const (
	// PullNever assumes every image is already present on the backend.
	PullNever PullPolicy = iota
	// PullIfMissing pulls an image when the backend does not have it.
	PullIfMissing
)

// Provisioner creates environment resources on a backend. Every resource it creates is registered
// in the ledger passed to the create call.
type Provisioner struct {
	backend        backend.Backend
	logger         framework.Logger
	pullPolicy     PullPolicy
	healthTimeout  time.Duration
	healthInterval time.Duration
	httpClient     *http.Client
}

// Option configures a Provisioner.
type Option helpers.ConfigOption[Provisioner]

func optionFunc(fn func(*Provisioner)) Option {
	return helpers.OptionFunc[Provisioner](func(p *Provisioner) error {
		fn(p)
		return nil
	})
}

// WithLogger sets the Logger for progress and teardown messages.
func WithLogger(logger framework.Logger) Option {
	return optionFunc(func(p *Provisioner) { p.logger = framework.LoggerOrNull(logger) })
}

func WithPullPolicy(policy PullPolicy) Option {
	return optionFunc(func(p *Provisioner) { p.pullPolicy = policy })
}

// WithHealthTimeout sets how long CreateService waits for a health check to pass.
func WithHealthTimeout(timeout time.Duration) Option {
	return optionFunc(func(p *Provisioner) { p.healthTimeout = timeout })
}

// WithHealthInterval sets how often a health check is retried.
func WithHealthInterval(interval time.Duration) Option {
	return optionFunc(func(p *Provisioner) { p.healthInterval = interval })
}

// NewProvisioner creates a Provisioner for the given backend.
func NewProvisioner(b backend.Backend, options ...Option) (*Provisioner, error) {
	p := &Provisioner{
		backend:        b,
		logger:         framework.NullLogger(),
		healthTimeout:  DefaultHealthTimeout,
		healthInterval: DefaultHealthInterval,
	}
	if err := helpers.ApplyOptions(p, options...); err != nil {
		return nil, err
	}
	if p.healthTimeout <= 0 || p.healthInterval <= 0 {
		return nil, errors.New("health check timeout and interval must be positive")
	}
	p.httpClient = &http.Client{Timeout: p.healthInterval * 4}
	return p, nil
}

// CreateNetwork creates a network with a unique generated name and registers it in l.
func (p *Provisioner) CreateNetwork(ctx context.Context, l *ledger.Ledger) (*Network, error) {
	name := uuid.NewString()
	id, err := p.backend.CreateNetwork(ctx, name)
	if err != nil {
		return nil, err
	}
	n := &Network{name: name, id: id, backend: p.backend}
	if err := l.Register(n); err != nil {
		// The network exists but nothing else will remove it.
		_ = n.Teardown(ctx)
		return nil, err
	}
	p.logger.Printf("Created network %s", name)
	return n, nil
}

// CreateService creates and starts a container for cfg on network n, and registers it in l.
// If the container was created but could not be started it is still registered, so that the
// ledger removes it. If cfg has a health check, CreateService returns only once the check passes.
func (p *Provisioner) CreateService(
	ctx context.Context,
	cfg servicedef.ServiceConfig,
	n *Network,
	l *ledger.Ledger,
) (*Service, error) {
	if err := p.ensureImage(ctx, cfg.Image); err != nil {
		return nil, fmt.Errorf("service %q: %w", cfg.Name, err)
	}
	id, err := p.backend.CreateContainer(ctx, backend.ContainerSpec{
		Image:   cfg.Image,
		Env:     cfg.EnvStrings(),
		Network: n.name,
		Aliases: []string{cfg.Name},
		Labels:  map[string]string{ServiceLabel: cfg.Name, NetworkLabel: n.name},
	})
	if err != nil {
		return nil, fmt.Errorf("service %q: %w", cfg.Name, err)
	}
	s := &Service{name: cfg.Name, id: id, network: n, provisioner: p}
	startErr := p.backend.StartContainer(ctx, id)
	if err := l.Register(s); err != nil {
		_ = s.Teardown(ctx)
		return nil, fmt.Errorf("service %q: %w", cfg.Name, err)
	}
	if startErr != nil {
		return nil, fmt.Errorf("service %q: %w", cfg.Name, startErr)
	}
	p.logger.Printf("Started service %s (%s) on network %s", cfg.Name, cfg.Image, n.name)

	if cfg.Health != nil {
		if err := p.waitHealthy(ctx, s, *cfg.Health); err != nil {
			return nil, fmt.Errorf("service %q: %w", cfg.Name, err)
		}
	}
	return s, nil
}

func (p *Provisioner) ensureImage(ctx context.Context, image string) error {
	if p.pullPolicy != PullIfMissing {
		return nil
	}
	exists, err := p.backend.ImageExists(ctx, image)
	if err != nil || exists {
		return err
	}
	p.logger.Printf("Pulling image %s", image)
	return p.backend.PullImage(ctx, image)
}

// TeardownNetwork removes a network immediately.
func (p *Provisioner) TeardownNetwork(ctx context.Context, n *Network) error {
	return n.Teardown(ctx)
}

// TeardownService removes a service's container immediately, without waiting for it to stop.
func (p *Provisioner) TeardownService(ctx context.Context, s *Service) error {
	return s.Teardown(ctx)
}

// Address returns the IP address of the service on its own network. It fails if the backend
// reports no usable address there, for instance because the service has been disconnected.
func (p *Provisioner) Address(ctx context.Context, s *Service) (netip.Addr, error) {
	info, err := p.backend.InspectContainer(ctx, s.id)
	if err != nil {
		return netip.Addr{}, err
	}
	endpoint, ok := info.Networks[s.network.name]
	if !ok {
		return netip.Addr{}, backend.Wrap("inspect container", s.id,
			fmt.Errorf("%w: not attached to network %s", backend.ErrUnexpectedState, s.network.name))
	}
	addr, err := netip.ParseAddr(endpoint.IPAddress)
	if err != nil {
		return netip.Addr{}, backend.Wrap("inspect container", s.id,
			fmt.Errorf("%w: bad address %q on network %s", backend.ErrUnexpectedState, endpoint.IPAddress, s.network.name))
	}
	return addr, nil
}

// SetConnected attaches the service to its network (with its name as alias) or detaches it.
func (p *Provisioner) SetConnected(ctx context.Context, s *Service, connected bool) error {
	if connected {
		return p.backend.ConnectNetwork(ctx, s.network.id, s.id, []string{s.name})
	}
	return p.backend.DisconnectNetwork(ctx, s.network.id, s.id)
}

// SetPaused freezes or resumes every process in the service's container.
func (p *Provisioner) SetPaused(ctx context.Context, s *Service, paused bool) error {
	if paused {
		return p.backend.PauseContainer(ctx, s.id)
	}
	return p.backend.UnpauseContainer(ctx, s.id)
}
