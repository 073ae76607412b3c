package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	testingclock "k8s.io/utils/clock/testing"

	"github.com/netops-tools/invsync/pkg/errors"
	"github.com/netops-tools/invsync/pkg/snapshot"
)

type countingRunner struct {
	calls atomic.Int32
	fail  atomic.Bool
}

func (c *countingRunner) Refresh(_ context.Context, trigger snapshot.Trigger) (*snapshot.Snapshot, error) {
	c.calls.Add(1)
	if trigger != snapshot.TriggerTimer {
		return nil, errors.New(errors.ErrCodeInternal, "unexpected trigger")
	}
	if c.fail.Load() {
		return nil, errors.New(errors.ErrCodeNetwork, "source unreachable")
	}
	return &snapshot.Snapshot{Version: uint64(c.calls.Load())}, nil
}

func TestSchedulerRefreshesOnEveryTick(t *testing.T) {
	fc := testingclock.NewFakeClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	runner := &countingRunner{}
	s := New(time.Minute, runner, WithClock(fc))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	require.Eventually(t, fc.HasWaiters, time.Second, time.Millisecond)
	assert.Zero(t, runner.calls.Load(), "no refresh before the first tick")

	fc.Step(time.Minute)
	require.Eventually(t, func() bool { return runner.calls.Load() == 1 }, time.Second, time.Millisecond)

	// A failed refresh does not stop the loop.
	runner.fail.Store(true)
	fc.Step(time.Minute)
	require.Eventually(t, func() bool { return runner.calls.Load() == 2 }, time.Second, time.Millisecond)

	runner.fail.Store(false)
	fc.Step(time.Minute)
	require.Eventually(t, func() bool { return runner.calls.Load() == 3 }, time.Second, time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop")
	}
}

func TestSchedulerDisabled(t *testing.T) {
	runner := &countingRunner{}
	require.NoError(t, New(0, runner).Run(context.Background()))
	assert.Zero(t, runner.calls.Load())
}
