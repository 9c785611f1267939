// Package runloop drives the processing goroutine: it owns the engine's
// start/stop and drains the event queue until the process is told to stop.
package runloop

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// DefaultInterval bounds how long the loop sleeps on an empty queue.
const DefaultInterval = 100 * time.Millisecond

// Transport is the FIX engine endpoint, a quickfix Initiator or Acceptor.
type Transport interface {
	Start() error
	Stop()
}

// Queue is the part of the event queue the loop drives.
type Queue interface {
	Empty() bool
	WaitFor(d time.Duration) bool
	Process() int
	Close()
}

// Loop runs the engine and the queue's consumer.
type Loop struct {
	transport Transport
	queue     Queue
	logger    *zap.Logger
	interval  time.Duration
}

// Option configures a Loop.
type Option func(*Loop)

// WithInterval sets the idle wait. Non-positive values are ignored.
func WithInterval(d time.Duration) Option {
	return func(l *Loop) {
		if d > 0 {
			l.interval = d
		}
	}
}

// New creates a loop.
func New(transport Transport, queue Queue, logger *zap.Logger, opts ...Option) *Loop {
	l := &Loop{
		transport: transport,
		queue:     queue,
		logger:    logger,
		interval:  DefaultInterval,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Run starts the transport and processes the queue until ctx is done. It
// then stops the transport, closes the queue and delivers whatever was
// still pending.
func (l *Loop) Run(ctx context.Context) error {
	if err := l.transport.Start(); err != nil {
		return fmt.Errorf("failed to start transport: %w", err)
	}
	l.logger.Info("transport started", zap.Duration("wait_interval", l.interval))

	processed := 0
	for ctx.Err() == nil {
		if l.queue.Empty() {
			l.queue.WaitFor(l.interval)
		}
		processed += l.queue.Process()
	}

	l.logger.Info("stopping transport", zap.Int("processed", processed))
	l.transport.Stop()
	l.queue.Close()

	drained := l.queue.Process()
	l.logger.Info("event loop stopped", zap.Int("drained_on_stop", drained))
	return nil
}
