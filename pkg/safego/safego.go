package safego

import (
	"context"
	"fmt"
	"runtime/debug"

	"gitlab.com/fletera/api/facturify-gateway/internal/domain"
)

// Execute launches fn on a new goroutine and turns any panic into an error
// log instead of a process crash. Background tasks such as the token refresh
// loop and the shutdown listener must not take the gateway down with them.
func Execute(ctx context.Context, logger domain.Logger, taskName string, fn func()) {
	go func() {
		defer func() {
			r := recover()
			if r == nil {
				return
			}
			// The task may have outlived its context; fall back to a fresh
			// one so the panic is still recorded.
			logCtx := ctx
			if ctx.Err() != nil {
				logCtx = context.Background()
			}
			logger.Error(logCtx, "Recovered panic in background task",
				"task", taskName,
				"panic", fmt.Sprintf("%v", r),
				"stacktrace", string(debug.Stack()),
			)
		}()
		fn()
	}()
}
