package mockbackend

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/octopod/octopod/framework/backend"
)

func createStarted(t *testing.T, b *Backend, networkName, image string) string {
	id, err := b.CreateContainer(context.Background(), backend.ContainerSpec{
		Image: image, Network: networkName, Aliases: []string{"svc"},
	})
	require.NoError(t, err)
	require.NoError(t, b.StartContainer(context.Background(), id))
	return id
}

func TestContainerLifecycle(t *testing.T) {
	ctx := context.Background()
	b := New()
	netID, err := b.CreateNetwork(ctx, "net-a")
	require.NoError(t, err)

	id := createStarted(t, b, "net-a", "img")
	assert.True(t, b.Running(id))

	info, err := b.InspectContainer(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, map[string]backend.EndpointInfo{"net-a": {IPAddress: "10.89.0.2"}}, info.Networks)

	require.NoError(t, b.PauseContainer(ctx, id))
	info, err = b.InspectContainer(ctx, id)
	require.NoError(t, err)
	assert.True(t, info.Paused)
	require.NoError(t, b.UnpauseContainer(ctx, id))

	require.NoError(t, b.DisconnectNetwork(ctx, netID, id))
	info, err = b.InspectContainer(ctx, id)
	require.NoError(t, err)
	assert.Empty(t, info.Networks)
	require.NoError(t, b.ConnectNetwork(ctx, netID, id, []string{"svc"}))

	require.NoError(t, b.RemoveContainer(ctx, id))
	assert.Empty(t, b.ContainerImages())
	require.NoError(t, b.RemoveNetwork(ctx, netID))
	assert.Empty(t, b.NetworkNames())
}

func TestRemoveNetworkRemovesAttachedContainers(t *testing.T) {
	ctx := context.Background()
	b := New()
	netID, err := b.CreateNetwork(ctx, "net-a")
	require.NoError(t, err)
	createStarted(t, b, "net-a", "img1")
	createStarted(t, b, "net-a", "img2")
	assert.Equal(t, []string{"img1", "img2"}, b.ContainerImages())

	require.NoError(t, b.RemoveNetwork(ctx, netID))
	assert.Empty(t, b.ContainerImages())
}

func TestFailOn(t *testing.T) {
	ctx := context.Background()
	b := New()
	boom := errors.New("boom")
	b.FailOn(OpCreateContainer, "bad-image", boom)
	_, err := b.CreateNetwork(ctx, "net-a")
	require.NoError(t, err)

	_, err = b.CreateContainer(ctx, backend.ContainerSpec{Image: "good-image", Network: "net-a"})
	require.NoError(t, err)

	_, err = b.CreateContainer(ctx, backend.ContainerSpec{Image: "bad-image", Network: "net-a"})
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	var be *backend.Error
	require.True(t, errors.As(err, &be))
	assert.Equal(t, "create container", be.Op)

	assert.Equal(t, []string{"good-image", "bad-image"}, b.CallsTo(OpCreateContainer))
}

func TestUnknownObjectsAreNotFound(t *testing.T) {
	ctx := context.Background()
	b := New()
	assert.ErrorIs(t, b.RemoveContainer(ctx, "nope"), backend.ErrNotFound)
	assert.ErrorIs(t, b.RemoveNetwork(ctx, "nope"), backend.ErrNotFound)
	_, err := b.CreateContainer(ctx, backend.ContainerSpec{Image: "img", Network: "nope"})
	assert.ErrorIs(t, err, backend.ErrNotFound)
}

func TestLogsEndWhenConfigured(t *testing.T) {
	ctx := context.Background()
	b := New()
	b.SetLogs("img", "first", "second")
	b.EndLogStreams(true)
	_, err := b.CreateNetwork(ctx, "net-a")
	require.NoError(t, err)
	id := createStarted(t, b, "net-a", "img")

	r, err := b.ContainerLogs(ctx, id)
	require.NoError(t, err)
	data, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "first\nsecond\n", string(data))
}

func TestLogsStayOpenUntilContainerRemoved(t *testing.T) {
	ctx := context.Background()
	b := New()
	b.SetLogs("img", "hello")
	_, err := b.CreateNetwork(ctx, "net-a")
	require.NoError(t, err)
	id := createStarted(t, b, "net-a", "img")

	r, err := b.ContainerLogs(ctx, id)
	require.NoError(t, err)
	done := make(chan []byte)
	go func() {
		data, _ := io.ReadAll(r)
		done <- data
	}()

	select {
	case <-done:
		require.Fail(t, "log stream ended while container was still running")
	case <-time.After(50 * time.Millisecond):
	}

	require.NoError(t, b.RemoveContainer(ctx, id))
	select {
	case data := <-done:
		assert.Equal(t, "hello\n", string(data))
	case <-time.After(time.Second):
		require.Fail(t, "timed out waiting for log stream to end")
	}
}

func TestImagePresence(t *testing.T) {
	ctx := context.Background()
	b := New()
	b.SetImagePresent("img", false)
	exists, err := b.ImageExists(ctx, "img")
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, b.PullImage(ctx, "img"))
	exists, err = b.ImageExists(ctx, "img")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = b.ImageExists(ctx, "other")
	require.NoError(t, err)
	assert.True(t, exists)
}
