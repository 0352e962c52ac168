// Package xcmd carries small process-lifecycle helpers shared by the
// cmd/ipcd entrypoint.
package xcmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

// Interrupted wraps the signal that ended WaitInterrupted.
type Interrupted struct {
	os.Signal
}

func (m Interrupted) Error() string {
	return m.String()
}

// Is reports any Interrupted as matching, regardless of which signal it
// carries, so callers can write errors.Is(err, xcmd.Interrupted{}).
func (m Interrupted) Is(target error) bool {
	_, ok := target.(Interrupted)
	return ok
}

// WaitInterrupted blocks until SIGINT, SIGTERM, or ctx is canceled.
func WaitInterrupted(ctx context.Context) error {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)

	select {
	case v := <-ch:
		return Interrupted{Signal: v}
	case <-ctx.Done():
		return ctx.Err()
	}
}
