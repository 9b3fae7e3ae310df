package analyzer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sourcegraph/conc/panics"

	"github.com/MimoJanra/DomainReport/internal/checker"
	"github.com/MimoJanra/DomainReport/internal/provider"
)

// PanicError is what a provider call turns into when the provider panics.
type PanicError struct {
	Value any
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("internal error: %v", e.Value)
}

// call runs fn under its own deadline. The select on ctx.Done means a
// provider that ignores its context still yields a timeout on schedule; its
// goroutine finishes in the background and the result is dropped.
func call[T any](ctx context.Context, timeout time.Duration, fn func(context.Context) (T, error)) (T, error) {
	parent := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	type result struct {
		value T
		err   error
	}
	done := make(chan result, 1)

	go func() {
		var r result
		if recovered := panics.Try(func() { r.value, r.err = fn(ctx) }); recovered != nil {
			r.err = &PanicError{Value: recovered.Value}
		}
		done <- r
	}()

	var zero T
	select {
	case r := <-done:
		if r.err != nil && parent.Err() == nil && errors.Is(ctx.Err(), context.DeadlineExceeded) && checker.IsTimeoutError(r.err) {
			return zero, &provider.TimeoutError{Timeout: timeout}
		}
		return r.value, r.err
	case <-ctx.Done():
		if parent.Err() == nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return zero, &provider.TimeoutError{Timeout: timeout}
		}
		return zero, ctx.Err()
	}
}
