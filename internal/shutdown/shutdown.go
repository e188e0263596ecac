// Package shutdown coordinates graceful process termination across the
// closeable subsystems registered with it (in serve: storage and the auth
// store; the transport stops on its own when its context ends), adapted from the teacher's
// multi-subsystem shutdown coordinator and generalized to this project's
// smaller set of closeable resources.
package shutdown

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Closer is any subsystem that can be shut down. Closers run in reverse
// registration order, all sharing the context bound by the overall
// shutdown timeout.
type Closer func(ctx context.Context) error

// Coordinator collects closers and runs them in reverse registration order
// (last registered, first closed — mirroring resource acquisition order)
// when Shutdown is called.
type Coordinator struct {
	mu      sync.Mutex
	closers []namedCloser
	logger  *zap.SugaredLogger
}

type namedCloser struct {
	name   string
	closer Closer
}

// New constructs an empty coordinator.
func New(logger *zap.SugaredLogger) *Coordinator {
	return &Coordinator{logger: logger}
}

// Register adds a named closer, run during Shutdown.
func (c *Coordinator) Register(name string, closer Closer) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closers = append(c.closers, namedCloser{name: name, closer: closer})
}

// Shutdown runs every registered closer in reverse order, collecting (not
// short-circuiting on) individual failures so one stuck subsystem does not
// prevent the others from closing.
func (c *Coordinator) Shutdown(ctx context.Context, timeout time.Duration) error {
	c.mu.Lock()
	closers := append([]namedCloser(nil), c.closers...)
	c.mu.Unlock()

	shutdownCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var errs []error
	for i := len(closers) - 1; i >= 0; i-- {
		nc := closers[i]
		if c.logger != nil {
			c.logger.Infow("shutting down subsystem", "name", nc.name)
		}
		if err := nc.closer(shutdownCtx); err != nil {
			if c.logger != nil {
				c.logger.Errorw("subsystem shutdown failed", "name", nc.name, "error", err)
			}
			errs = append(errs, fmt.Errorf("%s: %w", nc.name, err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("shutdown: %d subsystem(s) failed: %v", len(errs), errs)
	}
	return nil
}
