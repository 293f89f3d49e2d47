// Package mockbackend provides an in-memory backend.Backend for tests. It keeps track of every
// network and container it creates, records each call, and can be told to fail specific
// operations.
package mockbackend

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/octopod/octopod/framework/backend"
	"github.com/octopod/octopod/framework/helpers"
)

// Op names a backend operation, for call recording and failure injection.
type Op string

const (
	OpCreateNetwork     Op = "create network"
	OpRemoveNetwork     Op = "remove network"
	OpCreateContainer   Op = "create container"
	OpStartContainer    Op = "start container"
	OpRemoveContainer   Op = "remove container"
	OpInspectContainer  Op = "inspect container"
	OpConnectNetwork    Op = "connect"
	OpDisconnectNetwork Op = "disconnect"
	OpPauseContainer    Op = "pause"
	OpUnpauseContainer  Op = "unpause"
	OpContainerLogs     Op = "logs"
	OpImageExists       Op = "inspect image"
	OpPullImage         Op = "pull image"
)

// Call is one recorded backend call. Target is the network name for CreateNetwork, the image
// for CreateContainer and image operations, and the object ID otherwise.
type Call struct {
	Op     Op
	Target string
}

func (c Call) String() string { return fmt.Sprintf("%s %s", c.Op, c.Target) }

type network struct {
	id, name string
}

type container struct {
	id       string
	spec     backend.ContainerSpec
	ip       string
	running  bool
	paused   bool
	networks map[string]struct{} // network IDs
	removed  chan struct{}
}

type failure struct {
	op     Op
	target string
}

var _ backend.Backend = (*Backend)(nil)

// Backend is the in-memory implementation. The zero value is not usable; call New.
type Backend struct {
	mu          sync.Mutex
	networks    map[string]*network
	containers  map[string]*container
	images      map[string]bool
	logs        map[string][]string
	addresses   map[string]string
	failures    map[failure]error
	calls       []Call
	nextID      int
	nextIP      int
	endLogs     bool
	inspectHook func(*backend.ContainerInfo)
}

// New creates an empty Backend. All images are considered present until SetImagePresent says
// otherwise.
func New() *Backend {
	return &Backend{
		networks:   make(map[string]*network),
		containers: make(map[string]*container),
		images:     make(map[string]bool),
		logs:       make(map[string][]string),
		addresses:  make(map[string]string),
		failures:   make(map[failure]error),
		nextIP:     2,
	}
}

// FailOn makes every subsequent call of op fail with err. If target is non-empty, only calls
// with that target fail.
func (b *Backend) FailOn(op Op, target string, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures[failure{op, target}] = err
}

// SetLogs sets the output lines that containers created from image will write.
func (b *Backend) SetLogs(image string, lines ...string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.logs[image] = lines
}

// EndLogStreams controls whether log streams end after the configured lines have been written.
// By default they stay open, as a running container's would, until the container is removed or
// the caller's context is cancelled.
func (b *Backend) EndLogStreams(end bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.endLogs = end
}

// SetAddress makes containers created from image report ip as their address instead of one
// from the simulated 10.89.0.0/24 range.
func (b *Backend) SetAddress(image, ip string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.addresses[image] = ip
}

// SetImagePresent controls what ImageExists reports for image.
func (b *Backend) SetImagePresent(image string, present bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.images[image] = present
}

// OnInspect registers a function that can modify container metadata before InspectContainer
// returns it.
func (b *Backend) OnInspect(fn func(*backend.ContainerInfo)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.inspectHook = fn
}

// Calls returns all recorded calls in order.
func (b *Backend) Calls() []Call {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Call(nil), b.calls...)
}

// CallsTo returns the targets of all recorded calls of op, in order.
func (b *Backend) CallsTo(op Op) []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	var ret []string
	for _, c := range b.calls {
		if c.Op == op {
			ret = append(ret, c.Target)
		}
	}
	return ret
}

// NetworkNames returns the names of all networks that currently exist, sorted.
func (b *Backend) NetworkNames() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	var ret []string
	for _, n := range b.networks {
		ret = append(ret, n.name)
	}
	return helpers.Sorted(ret)
}

// ContainerImages returns the images of all containers that currently exist, sorted.
func (b *Backend) ContainerImages() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	var ret []string
	for _, c := range b.containers {
		ret = append(ret, c.spec.Image)
	}
	return helpers.Sorted(ret)
}

// Running reports whether the container exists and has been started.
func (b *Backend) Running(id string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	c, ok := b.containers[id]
	return ok && c.running
}

// record must be called with the lock held.
func (b *Backend) record(op Op, target string) error {
	b.calls = append(b.calls, Call{op, target})
	if err, ok := b.failures[failure{op, target}]; ok {
		return backend.Wrap(string(op), target, err)
	}
	if err, ok := b.failures[failure{op, ""}]; ok {
		return backend.Wrap(string(op), target, err)
	}
	return nil
}

func (b *Backend) makeID(prefix string) string {
	b.nextID++
	return fmt.Sprintf("%s%04d", prefix, b.nextID)
}

func (b *Backend) findNetwork(idOrName string) *network {
	if n, ok := b.networks[idOrName]; ok {
		return n
	}
	for _, n := range b.networks {
		if n.name == idOrName {
			return n
		}
	}
	return nil
}

func (b *Backend) notFound(op Op, target string) error {
	return backend.Wrap(string(op), target, backend.ErrNotFound)
}

func (b *Backend) CreateNetwork(ctx context.Context, name string) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.record(OpCreateNetwork, name); err != nil {
		return "", err
	}
	if b.findNetwork(name) != nil {
		return "", backend.Wrap(string(OpCreateNetwork), name, errors.New("network already exists"))
	}
	n := &network{id: b.makeID("net"), name: name}
	b.networks[n.id] = n
	return n.id, nil
}

func (b *Backend) RemoveNetwork(ctx context.Context, id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.record(OpRemoveNetwork, id); err != nil {
		return err
	}
	n := b.findNetwork(id)
	if n == nil {
		return b.notFound(OpRemoveNetwork, id)
	}
	for cid, c := range b.containers {
		if _, ok := c.networks[n.id]; ok {
			b.dropContainer(cid)
		}
	}
	delete(b.networks, n.id)
	return nil
}

func (b *Backend) dropContainer(id string) {
	if c, ok := b.containers[id]; ok {
		close(c.removed)
		delete(b.containers, id)
	}
}

func (b *Backend) CreateContainer(ctx context.Context, spec backend.ContainerSpec) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.record(OpCreateContainer, spec.Image); err != nil {
		return "", err
	}
	n := b.findNetwork(spec.Network)
	if n == nil {
		return "", b.notFound(OpCreateContainer, spec.Network)
	}
	ip, ok := b.addresses[spec.Image]
	if !ok {
		ip = fmt.Sprintf("10.89.0.%d", b.nextIP)
		b.nextIP++
	}
	c := &container{
		id:       b.makeID("ctr"),
		spec:     spec,
		ip:       ip,
		networks: map[string]struct{}{n.id: {}},
		removed:  make(chan struct{}),
	}
	b.containers[c.id] = c
	return c.id, nil
}

func (b *Backend) StartContainer(ctx context.Context, id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.record(OpStartContainer, id); err != nil {
		return err
	}
	c, ok := b.containers[id]
	if !ok {
		return b.notFound(OpStartContainer, id)
	}
	c.running = true
	return nil
}

func (b *Backend) RemoveContainer(ctx context.Context, id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.record(OpRemoveContainer, id); err != nil {
		return err
	}
	if _, ok := b.containers[id]; !ok {
		return b.notFound(OpRemoveContainer, id)
	}
	b.dropContainer(id)
	return nil
}

func (b *Backend) InspectContainer(ctx context.Context, id string) (backend.ContainerInfo, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.record(OpInspectContainer, id); err != nil {
		return backend.ContainerInfo{}, err
	}
	c, ok := b.containers[id]
	if !ok {
		return backend.ContainerInfo{}, b.notFound(OpInspectContainer, id)
	}
	info := backend.ContainerInfo{
		ID:       c.id,
		Running:  c.running,
		Paused:   c.paused,
		Networks: make(map[string]backend.EndpointInfo),
	}
	if c.running {
		for nid := range c.networks {
			if n, ok := b.networks[nid]; ok {
				info.Networks[n.name] = backend.EndpointInfo{IPAddress: c.ip}
			}
		}
	}
	if b.inspectHook != nil {
		b.inspectHook(&info)
	}
	return info, nil
}

func (b *Backend) ConnectNetwork(ctx context.Context, networkID, containerID string, aliases []string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.record(OpConnectNetwork, containerID); err != nil {
		return err
	}
	c, n, err := b.endpoint(OpConnectNetwork, networkID, containerID)
	if err != nil {
		return err
	}
	if _, ok := c.networks[n.id]; ok {
		return backend.Wrap(string(OpConnectNetwork), containerID,
			fmt.Errorf("container is already attached to network %s", n.name))
	}
	c.networks[n.id] = struct{}{}
	return nil
}

func (b *Backend) DisconnectNetwork(ctx context.Context, networkID, containerID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.record(OpDisconnectNetwork, containerID); err != nil {
		return err
	}
	c, n, err := b.endpoint(OpDisconnectNetwork, networkID, containerID)
	if err != nil {
		return err
	}
	if _, ok := c.networks[n.id]; !ok {
		return backend.Wrap(string(OpDisconnectNetwork), containerID,
			fmt.Errorf("container is not attached to network %s", n.name))
	}
	delete(c.networks, n.id)
	return nil
}

func (b *Backend) endpoint(op Op, networkID, containerID string) (*container, *network, error) {
	c, ok := b.containers[containerID]
	if !ok {
		return nil, nil, b.notFound(op, containerID)
	}
	n := b.findNetwork(networkID)
	if n == nil {
		return nil, nil, b.notFound(op, networkID)
	}
	return c, n, nil
}

func (b *Backend) PauseContainer(ctx context.Context, id string) error {
	return b.setPaused(OpPauseContainer, id, true)
}

func (b *Backend) UnpauseContainer(ctx context.Context, id string) error {
	return b.setPaused(OpUnpauseContainer, id, false)
}

func (b *Backend) setPaused(op Op, id string, paused bool) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.record(op, id); err != nil {
		return err
	}
	c, ok := b.containers[id]
	if !ok {
		return b.notFound(op, id)
	}
	if !c.running {
		return backend.Wrap(string(op), id, errors.New("container is not running"))
	}
	if c.paused == paused {
		return backend.Wrap(string(op), id, fmt.Errorf("container paused state is already %t", paused))
	}
	c.paused = paused
	return nil
}

func (b *Backend) ContainerLogs(ctx context.Context, id string) (io.ReadCloser, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.record(OpContainerLogs, id); err != nil {
		return nil, err
	}
	c, ok := b.containers[id]
	if !ok {
		return nil, b.notFound(OpContainerLogs, id)
	}
	lines := b.logs[c.spec.Image]
	end := b.endLogs
	pr, pw := io.Pipe()
	go func() {
		for _, line := range lines {
			if _, err := io.WriteString(pw, line+"\n"); err != nil {
				return
			}
		}
		if !end {
			select {
			case <-ctx.Done():
			case <-c.removed:
			}
		}
		_ = pw.Close()
	}()
	return pr, nil
}

func (b *Backend) ImageExists(ctx context.Context, image string) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.record(OpImageExists, image); err != nil {
		return false, err
	}
	present, ok := b.images[image]
	return !ok || present, nil
}

func (b *Backend) PullImage(ctx context.Context, image string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.record(OpPullImage, image); err != nil {
		return err
	}
	if strings.TrimSpace(image) == "" {
		return backend.Wrap(string(OpPullImage), image, errors.New("invalid reference format"))
	}
	b.images[image] = true
	return nil
}
