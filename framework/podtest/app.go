package podtest

import (
	"context"

	"github.com/octopod/octopod/framework/ledger"
	"github.com/octopod/octopod/framework/provision"
	"github.com/octopod/octopod/servicedef"
)

// App is a fully provisioned environment for one application: its network and a running
// container for every service.
type App struct {
	config   servicedef.ApplicationConfig
	network  *provision.Network
	services map[string]*provision.Service
}

func (a *App) Name() string { return a.config.Name }

func (a *App) Config() servicedef.ApplicationConfig { return a.config.Clone() }

func (a *App) Network() *provision.Network { return a.network }

// Service returns the named service, or nil if the application has no such service.
func (a *App) Service(name string) *provision.Service {
	return a.services[name]
}

// Services returns every service in the order they were declared and provisioned.
func (a *App) Services() []*provision.Service {
	ret := make([]*provision.Service, 0, len(a.config.Services))
	for _, s := range a.config.Services {
		ret = append(ret, a.services[s.Name])
	}
	return ret
}

// provisionApp creates the network and then each service in declared order, registering every
// resource in l as it is created. On error, whatever was created is left in l.
func provisionApp(
	ctx context.Context,
	p *provision.Provisioner,
	config servicedef.ApplicationConfig,
	l *ledger.Ledger,
) (*App, error) {
	network, err := p.CreateNetwork(ctx, l)
	if err != nil {
		return nil, err
	}
	app := &App{config: config, network: network, services: make(map[string]*provision.Service)}
	for _, sc := range config.Services {
		s, err := p.CreateService(ctx, sc, network, l)
		if err != nil {
			return nil, err
		}
		app.services[sc.Name] = s
	}
	return app, nil
}
