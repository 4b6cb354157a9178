package async

import (
	"context"
	"runtime/debug"
	"sync"

	"github.com/m-mizutani/ctxlog"
)

// Dispatcher runs handlers asynchronously with panic recovery and tracks
// them so the owner can drain in-flight work on shutdown.
type Dispatcher struct {
	wg sync.WaitGroup
}

// NewDispatcher creates a Dispatcher
func NewDispatcher() *Dispatcher {
	return &Dispatcher{}
}

// Dispatch executes a handler function asynchronously.
//
// The handler gets a fresh background context carrying the caller's logger:
// values are preserved, but cancelling the caller's context (e.g. the HTTP
// request finishing) does not cancel the handler.
//
// Panics are recovered and logged; handler errors are logged. Neither
// propagates to the caller.
func (d *Dispatcher) Dispatch(ctx context.Context, handler func(ctx context.Context) error) {
	newCtx := newBackgroundContext(ctx)

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				stack := debug.Stack()
				logger := ctxlog.From(newCtx)
				logger.Error("panic in async handler",
					"recover", r,
					"stack", string(stack))
			}
		}()

		if err := handler(newCtx); err != nil {
			logger := ctxlog.From(newCtx)
			logger.Error("error in async handler", "error", err)
		}
	}()
}

// Wait blocks until all dispatched handlers finish or ctx expires. It
// returns ctx.Err() when the deadline wins.
func (d *Dispatcher) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// newBackgroundContext creates a new background context preserving the
// ctxlog logger from the original context
func newBackgroundContext(ctx context.Context) context.Context {
	newCtx := context.Background()
	newCtx = ctxlog.With(newCtx, ctxlog.From(ctx))
	return newCtx
}
