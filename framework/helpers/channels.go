package helpers

import (
	"context"
	"time"

	"github.com/octopod/octopod/framework/opt"
)

// SendOrDone sends value on ch unless ctx is done first. It returns false if the value was not sent.
func SendOrDone[V any](ctx context.Context, ch chan<- V, value V) bool {
	select {
	case ch <- value:
		return true
	case <-ctx.Done():
		return false
	}
}

// TryReceive is a shortcut for using select to do a receive with timeout. It returns a
// Maybe that has a value if one was available, or no value if it timed out or the channel
// was closed.
func TryReceive[V any](ch <-chan V, timeout time.Duration) opt.Maybe[V] {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	select {
	case value, ok := <-ch:
		if !ok {
			return opt.None[V]()
		}
		return opt.Some(value)
	case <-deadline.C:
		return opt.None[V]()
	}
}

// CollectUntilClosed reads values from ch until it is closed or the timeout elapses, and returns
// what it got along with whether the channel was closed.
func CollectUntilClosed[V any](ch <-chan V, timeout time.Duration) ([]V, bool) {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	var ret []V
	for {
		select {
		case value, ok := <-ch:
			if !ok {
				return ret, true
			}
			ret = append(ret, value)
		case <-deadline.C:
			return ret, false
		}
	}
}

// RequireValue tries to receive a value and returns it if successful, or causes the test
// to fail and terminate immediately if it timed out.
func RequireValue[V any](t TestContext, ch <-chan V, timeout time.Duration) V {
	var empty V
	return RequireValueWithMessage(t, ch, timeout, "timed out waiting for value of type %T", empty)
}

// RequireValueWithMessage is the same as RequireValue, but allows customization of the failure message.
func RequireValueWithMessage[V any](
	t TestContext,
	ch <-chan V,
	timeout time.Duration,
	msgFormat string,
	msgArgs ...interface{},
) V {
	maybeValue := TryReceive(ch, timeout)
	if !maybeValue.IsDefined() {
		t.Errorf(msgFormat, msgArgs...)
		t.FailNow()
	}
	return maybeValue.Value()
}

// RequireNoMoreValues tries to receive a value within the given timeout, and causes the test
// to fail and terminate immediately if a value was received.
func RequireNoMoreValues[V any](t TestContext, ch <-chan V, timeout time.Duration) {
	var empty V
	if TryReceive(ch, timeout).IsDefined() {
		t.Errorf("received unexpected extra value of type %T", empty)
		t.FailNow()
	}
}
