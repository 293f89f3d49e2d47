// Package backend defines the container/network system that the engine drives. The engine is
// written against the Backend interface only; see the docker subpackage for the real
// implementation and mockbackend for the one used in tests.
package backend

import (
	"context"
	"errors"
	"fmt"
	"io"
)

// ErrUnexpectedState means the backend answered, but with data the engine cannot make sense of,
// such as a running container that has no address on the network it was attached to.
var ErrUnexpectedState = errors.New("unexpected backend state")

// ErrNotFound is returned by backends when the target object does not exist.
var ErrNotFound = errors.New("not found")

// Error wraps every failure that comes from a backend call.
type Error struct {
	Op     string
	Target string
	Err    error
}

func (e *Error) Error() string {
	if e.Target == "" {
		return fmt.Sprintf("backend %s: %s", e.Op, e.Err)
	}
	return fmt.Sprintf("backend %s %s: %s", e.Op, e.Target, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Wrap returns err as a *Error for the given operation, or nil if err is nil. An error that is
// already a *Error is returned unchanged.
func Wrap(op, target string, err error) error {
	if err == nil {
		return nil
	}
	var be *Error
	if errors.As(err, &be) {
		return err
	}
	return &Error{Op: op, Target: target, Err: err}
}

// ContainerSpec describes a container to create.
type ContainerSpec struct {
	Image string
	// Env entries are in KEY=VALUE form.
	Env []string
	// Network is the name of the network to attach the container to at creation time.
	Network string
	// Aliases are the DNS names the container answers to on Network.
	Aliases []string
	Labels  map[string]string
}

// EndpointInfo is what the backend reports about one network attachment of a container.
type EndpointInfo struct {
	IPAddress string
}

// ContainerInfo is the subset of container metadata the engine uses.
type ContainerInfo struct {
	ID      string
	Running bool
	Paused  bool
	// Networks is keyed by network name.
	Networks map[string]EndpointInfo
}

// Backend is the set of operations consumed from the container/network orchestration system.
// Implementations must be safe for concurrent use; the engine follows the logs of several
// containers at once.
type Backend interface {
	// CreateNetwork creates an isolated network with name resolution enabled and returns its ID.
	CreateNetwork(ctx context.Context, name string) (string, error)
	// RemoveNetwork removes a network, including any containers still attached to it.
	RemoveNetwork(ctx context.Context, id string) error

	CreateContainer(ctx context.Context, spec ContainerSpec) (string, error)
	StartContainer(ctx context.Context, id string) error
	// RemoveContainer stops (without grace period) and deletes a container.
	RemoveContainer(ctx context.Context, id string) error
	InspectContainer(ctx context.Context, id string) (ContainerInfo, error)

	ConnectNetwork(ctx context.Context, networkID, containerID string, aliases []string) error
	DisconnectNetwork(ctx context.Context, networkID, containerID string) error

	PauseContainer(ctx context.Context, id string) error
	UnpauseContainer(ctx context.Context, id string) error

	// ContainerLogs follows the combined stdout and stderr of a container. The stream ends when
	// the container's output ends or ctx is cancelled.
	ContainerLogs(ctx context.Context, id string) (io.ReadCloser, error)

	ImageExists(ctx context.Context, image string) (bool, error)
	PullImage(ctx context.Context, image string) error
}
