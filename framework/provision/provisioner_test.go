package provision

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/octopod/octopod/framework/backend"
	"github.com/octopod/octopod/framework/backend/mockbackend"
	"github.com/octopod/octopod/framework/ledger"
	"github.com/octopod/octopod/servicedef"
)

type provisionerTestParams struct {
	ctx     context.Context
	backend *mockbackend.Backend
	p       *Provisioner
	ledger  *ledger.Ledger
}

func withProvisioner(t *testing.T, action func(provisionerTestParams), options ...Option) {
	b := mockbackend.New()
	p, err := NewProvisioner(b, options...)
	require.NoError(t, err)
	action(provisionerTestParams{ctx: context.Background(), backend: b, p: p, ledger: ledger.New(nil)})
}

func (tp provisionerTestParams) createNetwork(t *testing.T) *Network {
	n, err := tp.p.CreateNetwork(tp.ctx, tp.ledger)
	require.NoError(t, err)
	return n
}

func TestCreateNetwork(t *testing.T) {
	withProvisioner(t, func(tp provisionerTestParams) {
		n := tp.createNetwork(t)
		_, err := uuid.Parse(n.Name())
		assert.NoError(t, err)
		assert.Equal(t, []string{n.Name()}, tp.backend.NetworkNames())
		require.Equal(t, 1, tp.ledger.Len())
		assert.Equal(t, ledger.KindNetwork, tp.ledger.Entries()[0].Kind())
	})
}

func TestNetworkNamesAreUnique(t *testing.T) {
	withProvisioner(t, func(tp provisionerTestParams) {
		n1, n2 := tp.createNetwork(t), tp.createNetwork(t)
		assert.NotEqual(t, n1.Name(), n2.Name())
	})
}

func TestCreateNetworkFailureRegistersNothing(t *testing.T) {
	withProvisioner(t, func(tp provisionerTestParams) {
		tp.backend.FailOn(mockbackend.OpCreateNetwork, "", errors.New("no space"))
		_, err := tp.p.CreateNetwork(tp.ctx, tp.ledger)
		var be *backend.Error
		assert.True(t, errors.As(err, &be))
		assert.Equal(t, 0, tp.ledger.Len())
	})
}

func TestCreateService(t *testing.T) {
	withProvisioner(t, func(tp provisionerTestParams) {
		n := tp.createNetwork(t)
		cfg := servicedef.NewService("db", "postgres:16").WithEnv("POSTGRES_PASSWORD", "secret")
		s, err := tp.p.CreateService(tp.ctx, cfg, n, tp.ledger)
		require.NoError(t, err)

		assert.Equal(t, "db", s.Name())
		assert.Same(t, n, s.Network())
		assert.True(t, tp.backend.Running(s.ID()))
		assert.Equal(t, 2, tp.ledger.Len())
		assert.Equal(t, n.ID(), s.Parent())

		addr, err := s.IP(tp.ctx)
		require.NoError(t, err)
		assert.Equal(t, "10.89.0.2", addr.String())
	})
}

func TestServiceIsRegisteredEvenIfStartFails(t *testing.T) {
	withProvisioner(t, func(tp provisionerTestParams) {
		n := tp.createNetwork(t)
		tp.backend.FailOn(mockbackend.OpStartContainer, "", errors.New("exec format error"))
		_, err := tp.p.CreateService(tp.ctx, servicedef.NewService("api", "img"), n, tp.ledger)
		require.Error(t, err)
		assert.Contains(t, err.Error(), `service "api"`)
		assert.Equal(t, 2, tp.ledger.Len())
		assert.Equal(t, []string{"img"}, tp.backend.ContainerImages())

		require.NoError(t, tp.ledger.Cleanup(tp.ctx))
		assert.Empty(t, tp.backend.ContainerImages())
		assert.Empty(t, tp.backend.NetworkNames())
	})
}

func TestServiceIsNotRegisteredIfCreateFails(t *testing.T) {
	withProvisioner(t, func(tp provisionerTestParams) {
		n := tp.createNetwork(t)
		tp.backend.FailOn(mockbackend.OpCreateContainer, "img", errors.New("no such image"))
		_, err := tp.p.CreateService(tp.ctx, servicedef.NewService("api", "img"), n, tp.ledger)
		require.Error(t, err)
		assert.Equal(t, 1, tp.ledger.Len())
	})
}

func TestPullIfMissing(t *testing.T) {
	withProvisioner(t, func(tp provisionerTestParams) {
		n := tp.createNetwork(t)
		tp.backend.SetImagePresent("missing:1", false)
		_, err := tp.p.CreateService(tp.ctx, servicedef.NewService("a", "missing:1"), n, tp.ledger)
		require.NoError(t, err)
		_, err = tp.p.CreateService(tp.ctx, servicedef.NewService("b", "present:1"), n, tp.ledger)
		require.NoError(t, err)
		assert.Equal(t, []string{"missing:1"}, tp.backend.CallsTo(mockbackend.OpPullImage))
	}, WithPullPolicy(PullIfMissing))
}

func TestNoPullByDefault(t *testing.T) {
	withProvisioner(t, func(tp provisionerTestParams) {
		n := tp.createNetwork(t)
		tp.backend.SetImagePresent("missing:1", false)
		_, err := tp.p.CreateService(tp.ctx, servicedef.NewService("a", "missing:1"), n, tp.ledger)
		require.NoError(t, err)
		assert.Empty(t, tp.backend.CallsTo(mockbackend.OpImageExists))
		assert.Empty(t, tp.backend.CallsTo(mockbackend.OpPullImage))
	})
}

func TestAddressWithMissingNetworkMetadata(t *testing.T) {
	withProvisioner(t, func(tp provisionerTestParams) {
		n := tp.createNetwork(t)
		s, err := tp.p.CreateService(tp.ctx, servicedef.NewService("api", "img"), n, tp.ledger)
		require.NoError(t, err)

		tp.backend.OnInspect(func(info *backend.ContainerInfo) { info.Networks = nil })
		_, err = tp.p.Address(tp.ctx, s)
		assert.ErrorIs(t, err, backend.ErrUnexpectedState)
		var be *backend.Error
		require.True(t, errors.As(err, &be))
		assert.Equal(t, s.ID(), be.Target)
	})
}

func TestAddressWithMalformedIP(t *testing.T) {
	withProvisioner(t, func(tp provisionerTestParams) {
		n := tp.createNetwork(t)
		s, err := tp.p.CreateService(tp.ctx, servicedef.NewService("api", "img"), n, tp.ledger)
		require.NoError(t, err)

		tp.backend.OnInspect(func(info *backend.ContainerInfo) {
			info.Networks[n.Name()] = backend.EndpointInfo{IPAddress: "not-an-ip"}
		})
		_, err = s.IP(tp.ctx)
		assert.ErrorIs(t, err, backend.ErrUnexpectedState)
	})
}

func TestDisconnectAndConnect(t *testing.T) {
	withProvisioner(t, func(tp provisionerTestParams) {
		n := tp.createNetwork(t)
		s, err := tp.p.CreateService(tp.ctx, servicedef.NewService("api", "img"), n, tp.ledger)
		require.NoError(t, err)

		require.NoError(t, s.Disconnect(tp.ctx))
		_, err = s.IP(tp.ctx)
		assert.ErrorIs(t, err, backend.ErrUnexpectedState)

		require.NoError(t, s.Connect(tp.ctx))
		_, err = s.IP(tp.ctx)
		assert.NoError(t, err)
	})
}

func TestPauseAndUnpause(t *testing.T) {
	withProvisioner(t, func(tp provisionerTestParams) {
		n := tp.createNetwork(t)
		s, err := tp.p.CreateService(tp.ctx, servicedef.NewService("api", "img"), n, tp.ledger)
		require.NoError(t, err)

		require.NoError(t, s.Pause(tp.ctx))
		info, err := tp.backend.InspectContainer(tp.ctx, s.ID())
		require.NoError(t, err)
		assert.True(t, info.Paused)

		require.NoError(t, s.Unpause(tp.ctx))
		assert.Error(t, s.Unpause(tp.ctx))
	})
}

func TestTeardown(t *testing.T) {
	withProvisioner(t, func(tp provisionerTestParams) {
		n := tp.createNetwork(t)
		s, err := tp.p.CreateService(tp.ctx, servicedef.NewService("api", "img"), n, tp.ledger)
		require.NoError(t, err)

		require.NoError(t, tp.p.TeardownService(tp.ctx, s))
		assert.Empty(t, tp.backend.ContainerImages())
		require.NoError(t, tp.p.TeardownNetwork(tp.ctx, n))
		assert.Empty(t, tp.backend.NetworkNames())
		assert.ErrorIs(t, tp.p.TeardownNetwork(tp.ctx, n), backend.ErrNotFound)
	})
}

func TestInvalidHealthSettings(t *testing.T) {
	_, err := NewProvisioner(mockbackend.New(), WithHealthTimeout(0))
	assert.Error(t, err)
	_, err = NewProvisioner(mockbackend.New(), WithHealthInterval(-time.Second))
	assert.Error(t, err)
}
