package bot

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type blockingListener struct{}

func (blockingListener) Start(ctx context.Context) { <-ctx.Done() }

type returningListener struct{}

func (returningListener) Start(context.Context) {}

type fakeScheduler struct {
	startErr error
	started  atomic.Bool
	stopped  atomic.Bool
}

func (f *fakeScheduler) Start() error {
	if f.startErr != nil {
		return f.startErr
	}
	f.started.Store(true)
	return nil
}

func (f *fakeScheduler) Stop() error {
	f.stopped.Store(true)
	return nil
}

func TestBot_RunStopsOnCancel(t *testing.T) {
	t.Parallel()

	sched := &fakeScheduler{}
	b := NewBot(discardLogger(), blockingListener{}, sched)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- b.Run(ctx) }()

	require.Eventually(t, sched.started.Load, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	assert.True(t, sched.stopped.Load())
}

func TestBot_RunListenerExitsEarly(t *testing.T) {
	t.Parallel()

	sched := &fakeScheduler{}
	err := NewBot(discardLogger(), returningListener{}, sched).Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "stopped unexpectedly")
}

func TestBot_RunSchedulerFails(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	err := NewBot(discardLogger(), blockingListener{}, &fakeScheduler{startErr: boom}).Run(context.Background())
	assert.ErrorIs(t, err, boom)
}
