package runloop

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ismaiel54/fix-order-lifecycle/internal/eventqueue"
)

type fakeTransport struct {
	startErr error
	started  atomic.Int32
	stopped  atomic.Int32
}

func (f *fakeTransport) Start() error {
	f.started.Add(1)
	return f.startErr
}

func (f *fakeTransport) Stop() { f.stopped.Add(1) }

func TestRun_ProcessesUntilCancelled(t *testing.T) {
	q := eventqueue.New[string, string, string]()
	transport := &fakeTransport{}

	var delivered atomic.Int32
	q.AppendListener("8", func(string, string) error {
		delivered.Add(1)
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- New(transport, q, zap.NewNop(), WithInterval(5*time.Millisecond)).Run(ctx)
	}()

	require.NoError(t, q.Enqueue("8", "fill", "s1"))
	require.NoError(t, q.Enqueue("8", "fill", "s1"))
	assert.Eventually(t, func() bool { return delivered.Load() == 2 }, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("loop did not stop")
	}

	assert.Equal(t, int32(1), transport.started.Load())
	assert.Equal(t, int32(1), transport.stopped.Load())
	assert.ErrorIs(t, q.Enqueue("8", "late", "s1"), eventqueue.ErrClosed)
}

func TestRun_DrainsPendingOnStop(t *testing.T) {
	q := eventqueue.New[string, string, string]()
	ctx, cancel := context.WithCancel(context.Background())

	var got []string
	q.AppendListener("D", func(msg string, _ string) error {
		got = append(got, msg)
		if msg == "first" {
			// lands after the current drain, then the loop is told to stop
			_ = q.Enqueue("D", "second", "s1")
			cancel()
		}
		return nil
	})
	require.NoError(t, q.Enqueue("D", "first", "s1"))

	transport := &fakeTransport{}
	require.NoError(t, New(transport, q, zap.NewNop()).Run(ctx))

	assert.Equal(t, []string{"first", "second"}, got)
	assert.True(t, q.Empty())
}

func TestRun_StartFailure(t *testing.T) {
	q := eventqueue.New[string, string, string]()
	transport := &fakeTransport{startErr: errors.New("bind: address in use")}

	err := New(transport, q, zap.NewNop()).Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "address in use")
	assert.Equal(t, int32(0), transport.stopped.Load())
}

func TestWithInterval_IgnoresNonPositive(t *testing.T) {
	l := New(&fakeTransport{}, eventqueue.New[string, string, string](), zap.NewNop(), WithInterval(0))
	assert.Equal(t, DefaultInterval, l.interval)

	l = New(&fakeTransport{}, eventqueue.New[string, string, string](), zap.NewNop(), WithInterval(time.Second))
	assert.Equal(t, time.Second, l.interval)
}
