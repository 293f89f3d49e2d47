// Package docker implements backend.Backend on top of the Docker Engine API. Podman's
// Docker-compatible socket works as well.
package docker

import (
	"context"
	"fmt"
	"io"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/network"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/stdcopy"

	"github.com/octopod/octopod/framework"
	"github.com/octopod/octopod/framework/backend"
)

// ManagedLabel is set on every network and container this adapter creates.
const ManagedLabel = "io.octopod.managed"

var _ backend.Backend = (*Adapter)(nil)

// Adapter implements backend.Backend using the Docker SDK.
type Adapter struct {
	cli    *client.Client
	logger framework.Logger
}

// NewAdapter creates a Docker adapter for the given endpoint, such as
// "unix:///run/podman/podman.sock" or "tcp://127.0.0.1:2375". An empty endpoint uses the
// standard DOCKER_HOST environment settings.
func NewAdapter(endpoint string, logger framework.Logger) (*Adapter, error) {
	opts := []client.Opt{client.FromEnv, client.WithAPIVersionNegotiation()}
	if endpoint != "" {
		opts = append(opts, client.WithHost(endpoint))
	}
	cli, err := client.NewClientWithOpts(opts...)
	if err != nil {
		return nil, backend.Wrap("connect", endpoint, fmt.Errorf("failed to create docker client: %w", err))
	}
	return &Adapter{cli: cli, logger: framework.LoggerOrNull(logger)}, nil
}

// Close releases the underlying HTTP transport.
func (a *Adapter) Close() error {
	return a.cli.Close()
}

func (a *Adapter) CreateNetwork(ctx context.Context, name string) (string, error) {
	resp, err := a.cli.NetworkCreate(ctx, name, networkCreateOptions())
	if err != nil {
		return "", backend.Wrap("create network", name, err)
	}
	if resp.Warning != "" {
		a.logger.Printf("creating network %s: %s", name, resp.Warning)
	}
	return resp.ID, nil
}

func (a *Adapter) RemoveNetwork(ctx context.Context, id string) error {
	// The Docker API refuses to remove a network with active endpoints, so anything still
	// attached is removed first.
	info, err := a.cli.NetworkInspect(ctx, id, types.NetworkInspectOptions{})
	if err != nil {
		return backend.Wrap("inspect network", id, err)
	}
	for containerID := range info.Containers {
		if err := a.RemoveContainer(ctx, containerID); err != nil && !client.IsErrNotFound(err) {
			a.logger.Printf("removing container %s attached to network %s: %s", containerID, id, err)
		}
	}
	return backend.Wrap("remove network", id, a.cli.NetworkRemove(ctx, id))
}

func (a *Adapter) CreateContainer(ctx context.Context, spec backend.ContainerSpec) (string, error) {
	config, hostConfig, netConfig := containerCreateConfigs(spec)
	resp, err := a.cli.ContainerCreate(ctx, config, hostConfig, netConfig, nil, "")
	if err != nil {
		return "", backend.Wrap("create container", spec.Image, err)
	}
	for _, w := range resp.Warnings {
		a.logger.Printf("creating container from %s: %s", spec.Image, w)
	}
	return resp.ID, nil
}

func (a *Adapter) StartContainer(ctx context.Context, id string) error {
	return backend.Wrap("start container", id, a.cli.ContainerStart(ctx, id, types.ContainerStartOptions{}))
}

func (a *Adapter) RemoveContainer(ctx context.Context, id string) error {
	err := a.cli.ContainerRemove(ctx, id, types.ContainerRemoveOptions{Force: true, RemoveVolumes: true})
	return backend.Wrap("remove container", id, err)
}

func (a *Adapter) InspectContainer(ctx context.Context, id string) (backend.ContainerInfo, error) {
	info, err := a.cli.ContainerInspect(ctx, id)
	if err != nil {
		return backend.ContainerInfo{}, backend.Wrap("inspect container", id, err)
	}
	return containerInfoFromInspect(info), nil
}

func (a *Adapter) ConnectNetwork(ctx context.Context, networkID, containerID string, aliases []string) error {
	err := a.cli.NetworkConnect(ctx, networkID, containerID, &network.EndpointSettings{Aliases: aliases})
	return backend.Wrap("connect", containerID, err)
}

func (a *Adapter) DisconnectNetwork(ctx context.Context, networkID, containerID string) error {
	return backend.Wrap("disconnect", containerID, a.cli.NetworkDisconnect(ctx, networkID, containerID, true))
}

func (a *Adapter) PauseContainer(ctx context.Context, id string) error {
	return backend.Wrap("pause", id, a.cli.ContainerPause(ctx, id))
}

func (a *Adapter) UnpauseContainer(ctx context.Context, id string) error {
	return backend.Wrap("unpause", id, a.cli.ContainerUnpause(ctx, id))
}

func (a *Adapter) ContainerLogs(ctx context.Context, id string) (io.ReadCloser, error) {
	raw, err := a.cli.ContainerLogs(ctx, id, types.ContainerLogsOptions{
		ShowStdout: true,
		ShowStderr: true,
		Follow:     true,
	})
	if err != nil {
		return nil, backend.Wrap("logs", id, err)
	}
	// Containers are created without a TTY, so the stream is multiplexed and has to be split
	// back into plain output.
	pr, pw := io.Pipe()
	go func() {
		_, copyErr := stdcopy.StdCopy(pw, pw, raw)
		_ = raw.Close()
		_ = pw.CloseWithError(copyErr)
	}()
	return &demuxedLogs{PipeReader: pr, raw: raw}, nil
}

func (a *Adapter) ImageExists(ctx context.Context, image string) (bool, error) {
	_, _, err := a.cli.ImageInspectWithRaw(ctx, image)
	if err == nil {
		return true, nil
	}
	if client.IsErrNotFound(err) {
		return false, nil
	}
	return false, backend.Wrap("inspect image", image, err)
}

func (a *Adapter) PullImage(ctx context.Context, image string) error {
	reader, err := a.cli.ImagePull(ctx, image, types.ImagePullOptions{})
	if err != nil {
		return backend.Wrap("pull image", image, err)
	}
	defer reader.Close() //nolint:errcheck
	// The pull is only complete once the progress stream has been read to the end.
	if _, err := io.Copy(io.Discard, reader); err != nil {
		return backend.Wrap("pull image", image, err)
	}
	return nil
}

type demuxedLogs struct {
	*io.PipeReader
	raw io.ReadCloser
}

func (d *demuxedLogs) Close() error {
	_ = d.raw.Close()
	return d.PipeReader.Close()
}

func networkCreateOptions() types.NetworkCreate {
	// User-defined bridge networks always have the embedded DNS server enabled, which is what
	// makes service aliases resolvable.
	return types.NetworkCreate{
		CheckDuplicate: true,
		Driver:         "bridge",
		Labels:         map[string]string{ManagedLabel: "true"},
	}
}

func containerCreateConfigs(spec backend.ContainerSpec) (*container.Config, *container.HostConfig, *network.NetworkingConfig) {
	labels := map[string]string{ManagedLabel: "true"}
	for k, v := range spec.Labels {
		labels[k] = v
	}
	config := &container.Config{
		Image:  spec.Image,
		Env:    spec.Env,
		Labels: labels,
	}
	hostConfig := &container.HostConfig{
		NetworkMode: container.NetworkMode(spec.Network),
	}
	netConfig := &network.NetworkingConfig{
		EndpointsConfig: map[string]*network.EndpointSettings{
			spec.Network: {Aliases: spec.Aliases},
		},
	}
	return config, hostConfig, netConfig
}

func containerInfoFromInspect(info types.ContainerJSON) backend.ContainerInfo {
	ret := backend.ContainerInfo{Networks: map[string]backend.EndpointInfo{}}
	if info.ContainerJSONBase != nil {
		ret.ID = info.ID
		if info.State != nil {
			ret.Running = info.State.Running
			ret.Paused = info.State.Paused
		}
	}
	if info.NetworkSettings != nil {
		for name, endpoint := range info.NetworkSettings.Networks {
			if endpoint == nil {
				continue
			}
			ret.Networks[name] = backend.EndpointInfo{IPAddress: endpoint.IPAddress}
		}
	}
	return ret
}
