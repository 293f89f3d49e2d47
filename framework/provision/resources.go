package provision

import (
	"context"
	"net/netip"

	"github.com/octopod/octopod/framework/backend"
	"github.com/octopod/octopod/framework/ledger"
)

// Network is an isolated network with name resolution, created for one environment.
type Network struct {
	name    string
	id      string
	backend backend.Backend
}

// Name returns the generated, globally unique network name.
func (n *Network) Name() string { return n.name }

func (n *Network) ID() string        { return n.id }
func (n *Network) Kind() ledger.Kind { return ledger.KindNetwork }
func (n *Network) Parent() string    { return "" }
func (n *Network) String() string    { return "network " + n.name }

// Teardown removes the network along with anything still attached to it.
func (n *Network) Teardown(ctx context.Context) error {
	return n.backend.RemoveNetwork(ctx, n.id)
}

// Service is a running container that belongs to an environment. Other services on the same
// network can reach it by its name.
type Service struct {
	name        string
	id          string
	network     *Network
	provisioner *Provisioner
}

// Name returns the service name from the application definition.
func (s *Service) Name() string { return s.name }

// ID returns the backend container ID.
func (s *Service) ID() string { return s.id }

// Network returns the network the service was created on.
func (s *Service) Network() *Network { return s.network }

func (s *Service) Kind() ledger.Kind { return ledger.KindService }
func (s *Service) Parent() string    { return s.network.id }
func (s *Service) String() string    { return "service " + s.name }

func (s *Service) Teardown(ctx context.Context) error {
	return s.provisioner.backend.RemoveContainer(ctx, s.id)
}

// IP returns the service's current address on its network.
func (s *Service) IP(ctx context.Context) (netip.Addr, error) {
	return s.provisioner.Address(ctx, s)
}

// Connect reattaches the service to its network after Disconnect.
func (s *Service) Connect(ctx context.Context) error {
	return s.provisioner.SetConnected(ctx, s, true)
}

// Disconnect detaches the service from its network, so that no other service can reach it.
func (s *Service) Disconnect(ctx context.Context) error {
	return s.provisioner.SetConnected(ctx, s, false)
}

func (s *Service) Pause(ctx context.Context) error {
	return s.provisioner.SetPaused(ctx, s, true)
}

func (s *Service) Unpause(ctx context.Context) error {
	return s.provisioner.SetPaused(ctx, s, false)
}
