// Package race bounds slow calls by a timer without cancelling them.
//
// The operation and the timer both run; whichever settles first decides the
// Outcome. A losing operation keeps running in the background and its result
// is dropped.
package race

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
)

type Kind int

const (
	Ok Kind = iota
	TimedOut
	Failed
)

func (kind Kind) String() string {
	switch kind {
	case Ok:
		return "ok"
	case TimedOut:
		return "timeout"
	default:
		return "failed"
	}
}

var ErrTimedOut = errors.New("operation timed out")

type Outcome[T any] struct {
	Kind  Kind
	Value T
	Err   error
}

// Error returns nil for Ok outcomes and ErrTimedOut for timed out ones.
func (outcome Outcome[T]) Error() error {
	switch outcome.Kind {
	case Ok:
		return nil
	case TimedOut:
		return ErrTimedOut
	default:
		return outcome.Err
	}
}

func WithTimeout[T any](ctx context.Context, timeout time.Duration, operation func(context.Context) (T, error)) Outcome[T] {
	type settled struct {
		value T
		err   error
	}

	// Buffered so the losing operation never blocks on send.
	done := make(chan settled, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- settled{err: fmt.Errorf("operation panicked: %v", r)}
			}
		}()
		value, err := operation(ctx)
		done <- settled{value: value, err: err}
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case result := <-done:
		if result.err != nil {
			return Outcome[T]{Kind: Failed, Err: result.err}
		}
		return Outcome[T]{Kind: Ok, Value: result.value}
	case <-timer.C:
		return Outcome[T]{Kind: TimedOut}
	case <-ctx.Done():
		return Outcome[T]{Kind: Failed, Err: ctx.Err()}
	}
}
