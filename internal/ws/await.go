package ws

import (
	"context"
	"errors"
	"time"
)

// ErrWaitTimeout is returned when no event satisfied the predicate in time.
var ErrWaitTimeout = errors.New("ws: timed out waiting for event")

// Predicate inspects every event seen since the subscription was taken,
// oldest first.
type Predicate func(history []Event) bool

// Await reads sub until pred accepts the accumulated history, the timeout
// elapses or ctx ends. The subscription is closed on return. A timeout of
// zero or less waits on ctx alone.
func Await(ctx context.Context, sub *Subscription, pred Predicate, timeout time.Duration) ([]Event, error) {
	defer sub.Close()

	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeoutCause(ctx, timeout, ErrWaitTimeout)
		defer cancel()
	}

	var history []Event
	if pred(history) {
		return history, nil
	}
	for {
		e, err := sub.Next(ctx)
		if err != nil {
			if errors.Is(context.Cause(ctx), ErrWaitTimeout) {
				return history, ErrWaitTimeout
			}
			return history, err
		}
		history = append(history, e)
		if pred(history) {
			return history, nil
		}
	}
}

// WaitUntil subscribes to b and awaits pred. Events published before the
// call are not seen; subscribe first and use Await when the triggering
// action happens before waiting.
func WaitUntil(ctx context.Context, b *Broadcaster, pred Predicate, timeout time.Duration) ([]Event, error) {
	return Await(ctx, b.Subscribe(), pred, timeout)
}

// AnyState matches a history containing a change to one of states.
func AnyState(states ...State) Predicate {
	return func(history []Event) bool {
		for _, e := range history {
			for _, s := range states {
				if e.IsState(s) {
					return true
				}
			}
		}
		return false
	}
}
