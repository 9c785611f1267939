// Package eventqueue provides a keyed publish/subscribe queue that hands work
// from producer goroutines to a single draining goroutine.
//
// Producers call Enqueue, which only appends under a mutex and never blocks on
// listeners. The consumer calls Process to deliver everything that was pending
// when the call started; listeners always run on the consumer's goroutine.
package eventqueue

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ErrClosed is returned by Enqueue once the queue has been closed.
var ErrClosed = errors.New("event queue closed")

// Listener handles one delivered message. A returned error is logged and does
// not stop delivery to later listeners.
type Listener[M any, S any] func(msg M, session S) error

// Observer receives queue activity, keyed by the string form of the key.
type Observer interface {
	Enqueued(key string, depth int)
	Dropped(key string)
	Delivered(key string)
	ListenerFailed(key string)
	Drained(items int, elapsed time.Duration)
}

type item[K comparable, M any, S any] struct {
	key     K
	msg     M
	session S
}

// Queue dispatches messages to listeners registered under the same key.
type Queue[K comparable, M any, S any] struct {
	mu        sync.Mutex
	listeners map[K][]Listener[M, S]
	pending   []item[K, M, S]
	closed    bool

	// capacity 1: a pending token means "something was enqueued since the
	// last wait".
	wake chan struct{}

	logger   *zap.Logger
	observer Observer
}

// Option configures a Queue.
type Option func(*options)

type options struct {
	logger   *zap.Logger
	observer Observer
}

// WithLogger sets the logger used for drop and listener-failure diagnostics.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithObserver attaches a metrics observer.
func WithObserver(observer Observer) Option {
	return func(o *options) { o.observer = observer }
}

// New creates an empty queue.
func New[K comparable, M any, S any](opts ...Option) *Queue[K, M, S] {
	o := options{logger: zap.NewNop(), observer: nopObserver{}}
	for _, opt := range opts {
		opt(&o)
	}
	return &Queue[K, M, S]{
		listeners: make(map[K][]Listener[M, S]),
		wake:      make(chan struct{}, 1),
		logger:    o.logger,
		observer:  o.observer,
	}
}

// AppendListener registers fn under key. Registration is additive: the same
// function appended twice is called twice per message.
func (q *Queue[K, M, S]) AppendListener(key K, fn Listener[M, S]) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.listeners[key] = append(q.listeners[key], fn)
}

// Enqueue appends a message for later delivery. It fails only after Close,
// in which case the message is dropped.
func (q *Queue[K, M, S]) Enqueue(key K, msg M, session S) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		keyStr := fmt.Sprint(key)
		q.observer.Dropped(keyStr)
		q.logger.Warn("dropping message enqueued after close",
			zap.String("key", keyStr),
			zap.String("session", fmt.Sprint(session)),
		)
		return ErrClosed
	}
	q.pending = append(q.pending, item[K, M, S]{key: key, msg: msg, session: session})
	depth := len(q.pending)
	q.mu.Unlock()

	select {
	case q.wake <- struct{}{}:
	default:
	}

	q.observer.Enqueued(fmt.Sprint(key), depth)
	return nil
}

// Process delivers every message pending at the time of the call, in FIFO
// order, and returns how many were delivered. Messages enqueued while it runs
// are left for the next call.
func (q *Queue[K, M, S]) Process() int {
	q.mu.Lock()
	batch := q.pending
	q.pending = nil
	q.mu.Unlock()

	if len(batch) == 0 {
		return 0
	}

	start := time.Now()
	for _, it := range batch {
		q.dispatch(it)
	}
	q.observer.Drained(len(batch), time.Since(start))

	return len(batch)
}

func (q *Queue[K, M, S]) dispatch(it item[K, M, S]) {
	q.mu.Lock()
	// Copy so listeners appended during delivery don't race with the slice.
	listeners := append([]Listener[M, S](nil), q.listeners[it.key]...)
	q.mu.Unlock()

	keyStr := fmt.Sprint(it.key)
	if len(listeners) == 0 {
		q.logger.Debug("no listener for key", zap.String("key", keyStr))
	}

	for i, fn := range listeners {
		if err := q.invoke(fn, it); err != nil {
			q.observer.ListenerFailed(keyStr)
			q.logger.Error("listener failed",
				zap.String("key", keyStr),
				zap.Int("listener", i),
				zap.String("session", fmt.Sprint(it.session)),
				zap.Error(err),
			)
			continue
		}
		q.observer.Delivered(keyStr)
	}
}

func (q *Queue[K, M, S]) invoke(fn Listener[M, S], it item[K, M, S]) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("listener panic: %v", r)
		}
	}()
	return fn(it.msg, it.session)
}

// Empty reports whether nothing is pending.
func (q *Queue[K, M, S]) Empty() bool {
	return q.Len() == 0
}

// Len returns the number of pending messages.
func (q *Queue[K, M, S]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// WaitFor blocks until a message is enqueued or d elapses. It returns true
// when woken by an enqueue. Pending messages are not touched.
func (q *Queue[K, M, S]) WaitFor(d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-q.wake:
		return true
	case <-timer.C:
		return false
	}
}

// Close stops accepting messages. Already pending messages can still be
// drained with Process.
func (q *Queue[K, M, S]) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
}

type nopObserver struct{}

func (nopObserver) Enqueued(string, int) {}
func (nopObserver) Dropped(string) {}
func (nopObserver) Delivered(string) {}
func (nopObserver) ListenerFailed(string) {}
func (nopObserver) Drained(int, time.Duration) {}
