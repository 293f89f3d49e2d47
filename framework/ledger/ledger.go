// Package ledger records provisioned resources so that they can be torn down in reverse order
// of creation, whatever happens to the test that uses them.
package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/hashicorp/go-multierror"

	"github.com/octopod/octopod/framework"
)

// ErrOrphanResource is returned by Register for a service whose network is not in the ledger.
var ErrOrphanResource = errors.New("resource registered before its parent network")

// ErrConsumed is returned by Register and Cleanup once Cleanup has already run.
var ErrConsumed = errors.New("ledger has already been cleaned up")

// Kind distinguishes the resource variants that can be held in a ledger.
type Kind int

const (
	KindNetwork Kind = iota
	KindService
)

func (k Kind) String() string {
	switch k {
	case KindNetwork:
		return "network"
	case KindService:
		return "service"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Resource is anything that was created on the backend and has to be removed again.
type Resource interface {
	Kind() Kind
	// ID is the backend identifier of the resource.
	ID() string
	// Parent is the ID of the network a service belongs to. It is empty for networks.
	Parent() string
	Teardown(ctx context.Context) error
}

// Ledger is an append-only list of resources. It has a single owner and is not safe for
// concurrent use.
type Ledger struct {
	entries  []Resource
	networks map[string]struct{}
	consumed bool
	logger   framework.Logger
}

// New creates an empty Ledger. Teardown failures are reported to logger.
func New(logger framework.Logger) *Ledger {
	return &Ledger{
		networks: make(map[string]struct{}),
		logger:   framework.LoggerOrNull(logger),
	}
}

// Register appends r to the ledger.
func (l *Ledger) Register(r Resource) error {
	if l.consumed {
		return ErrConsumed
	}
	switch r.Kind() {
	case KindNetwork:
		l.networks[r.ID()] = struct{}{}
	case KindService:
		if _, ok := l.networks[r.Parent()]; !ok {
			return fmt.Errorf("service %s on network %q: %w", r.ID(), r.Parent(), ErrOrphanResource)
		}
	}
	l.entries = append(l.entries, r)
	return nil
}

// Len returns the number of registered resources.
func (l *Ledger) Len() int { return len(l.entries) }

// Entries returns the registered resources in creation order.
func (l *Ledger) Entries() []Resource {
	return append([]Resource(nil), l.entries...)
}

// Cleanup tears down every resource, most recently registered first. Each teardown is attempted
// exactly once even if earlier ones fail; failures are logged and returned together as a
// *multierror.Error. After Cleanup the ledger is empty and cannot be used again.
func (l *Ledger) Cleanup(ctx context.Context) error {
	if l.consumed {
		return ErrConsumed
	}
	l.consumed = true

	var result *multierror.Error
	for i := len(l.entries) - 1; i >= 0; i-- {
		r := l.entries[i]
		if err := r.Teardown(ctx); err != nil {
			l.logger.Printf("Failed to remove %s %s: %s", r.Kind(), r.ID(), err)
			result = multierror.Append(result, fmt.Errorf("removing %s %s: %w", r.Kind(), r.ID(), err))
		}
	}
	l.entries = nil
	l.networks = nil
	return result.ErrorOrNil()
}
