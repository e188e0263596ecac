package shutdown

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestCoordinator_Shutdown_RunsInReverseOrder(t *testing.T) {
	c := New(zap.NewNop().Sugar())

	var mu sync.Mutex
	var order []string
	record := func(name string) Closer {
		return func(context.Context) error {
			mu.Lock()
			order = append(order, name)
			mu.Unlock()
			return nil
		}
	}

	c.Register("storage", record("storage"))
	c.Register("auth-store", record("auth-store"))
	c.Register("transport", record("transport"))

	err := c.Shutdown(context.Background(), time.Second)
	assert.NoError(t, err)
	assert.Equal(t, []string{"transport", "auth-store", "storage"}, order)
}

func TestCoordinator_Shutdown_CollectsAllFailures(t *testing.T) {
	c := New(zap.NewNop().Sugar())

	errA := errors.New("a failed")
	errB := errors.New("b failed")
	calledA := false

	c.Register("a", func(context.Context) error { calledA = true; return errA })
	c.Register("b", func(context.Context) error { return errB })

	err := c.Shutdown(context.Background(), time.Second)
	assert.True(t, calledA, "a failing closer must not prevent later closers from running")
	assert.ErrorContains(t, err, "2 subsystem(s) failed")
}

func TestCoordinator_Shutdown_NoClosersIsNoop(t *testing.T) {
	c := New(zap.NewNop().Sugar())
	assert.NoError(t, c.Shutdown(context.Background(), time.Second))
}
