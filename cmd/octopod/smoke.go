package main

import (
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/octopod/octopod/framework/backend"
	"github.com/octopod/octopod/framework/podtest"
	"github.com/octopod/octopod/framework/provision"
	"github.com/octopod/octopod/servicedef"
)

// smokeTests declares the built-in checks for every application: each service gets an address,
// can be cut off from its network and rejoin it, and keeps its address across a pause.
func smokeTests(apps []servicedef.ApplicationConfig) []podtest.TestDeclaration {
	var ret []podtest.TestDeclaration
	for _, app := range apps {
		ret = append(ret,
			podtest.TestDeclaration{Name: "addresses", App: app.Name, Func: checkAddresses},
			podtest.TestDeclaration{Name: "disconnect", App: app.Name, Func: checkDisconnect},
			podtest.TestDeclaration{Name: "pause", App: app.Name, Func: checkPause},
		)
	}
	return ret
}

func requireAddress(t *podtest.T, svc *provision.Service) {
	t.Helper()
	ip, err := svc.IP(t.Context())
	require.NoError(t, err, "service %s has no address", svc.Name())
	t.Debugf("%s is at %s", svc.Name(), ip)
}

func checkAddresses(t *podtest.T) {
	for _, cfg := range t.App().Config().Services {
		requireAddress(t, t.Service(cfg.Name))
	}
}

func checkDisconnect(t *podtest.T) {
	for _, svc := range t.App().Services() {
		require.NoError(t, svc.Disconnect(t.Context()), "disconnecting %s", svc.Name())
		_, err := svc.IP(t.Context())
		assert.ErrorIs(t, err, backend.ErrUnexpectedState, "%s should have no address while disconnected", svc.Name())
		require.NoError(t, svc.Connect(t.Context()), "reconnecting %s", svc.Name())
		requireAddress(t, svc)
	}
}

func checkPause(t *podtest.T) {
	for _, svc := range t.App().Services() {
		before, err := svc.IP(t.Context())
		require.NoError(t, err, "service %s has no address", svc.Name())
		require.NoError(t, svc.Pause(t.Context()), "pausing %s", svc.Name())
		require.NoError(t, svc.Unpause(t.Context()), "resuming %s", svc.Name())
		after, err := svc.IP(t.Context())
		require.NoError(t, err, "service %s lost its address after resuming", svc.Name())
		assert.Equal(t, before, after, "service %s moved across a pause", svc.Name())
	}
}
