package dropcopy

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/ismaiel54/fix-order-lifecycle/internal/msg"
)

const (
	pingTimeout       = 5 * time.Second
	pingRetryInterval = 5 * time.Second
)

// ServiceConfig selects and locates the drop-copy feed.
type ServiceConfig struct {
	Enabled  bool
	DataDir  string
	Brokers  []string
	ClientID string
}

// KafkaReadiness is told whether the broker is reachable.
type KafkaReadiness interface {
	SetKafkaReady(ready bool)
}

// Service owns the outbox, the producer and the publisher loop. When
// disabled it records nothing.
type Service struct {
	logger    *zap.Logger
	store     *Store
	producer  *msg.Producer
	publisher *Publisher
}

// NewService opens the outbox and the Kafka producer when cfg.Enabled.
func NewService(cfg ServiceConfig, logger *zap.Logger) (*Service, error) {
	s := &Service{logger: logger}
	if !cfg.Enabled {
		logger.Info("drop copy disabled")
		return s, nil
	}

	dbPath := filepath.Join(cfg.DataDir, "dropcopy.db")
	store, err := Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open drop-copy store: %w", err)
	}

	producer, err := msg.NewProducer(msg.NewConfig(cfg.Brokers, cfg.ClientID), logger)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("failed to create kafka producer: %w", err)
	}

	s.store = store
	s.producer = producer
	s.publisher = NewPublisher(store, producer, logger)

	logger.Info("drop copy enabled",
		zap.String("path", dbPath),
		zap.String("topic", msg.TopicLifecycle),
	)
	return s, nil
}

// Recorder returns where handlers should record events.
func (s *Service) Recorder() Recorder {
	if s.store == nil {
		return Nop{}
	}
	return s.store
}

// Run publishes until ctx is done. Broker reachability is reported to
// readiness and re-checked until the broker answers.
func (s *Service) Run(ctx context.Context, readiness KafkaReadiness) error {
	if s.publisher == nil {
		<-ctx.Done()
		return nil
	}

	if !s.ping(ctx, readiness) {
		go s.awaitBroker(ctx, readiness)
	}

	if err := s.publisher.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func (s *Service) ping(ctx context.Context, readiness KafkaReadiness) bool {
	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	err := s.producer.Ping(pingCtx)
	cancel()
	if err != nil {
		s.logger.Warn("kafka not reachable yet, outbox will retry", zap.Error(err))
	}
	if readiness != nil {
		readiness.SetKafkaReady(err == nil)
	}
	return err == nil
}

func (s *Service) awaitBroker(ctx context.Context, readiness KafkaReadiness) {
	ticker := time.NewTicker(pingRetryInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if s.ping(ctx, readiness) {
				s.logger.Info("kafka reachable")
				return
			}
		}
	}
}

// Close releases the producer and the store.
func (s *Service) Close() {
	if s.producer != nil {
		s.producer.Close()
	}
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			s.logger.Warn("failed to close drop-copy store", zap.Error(err))
		}
	}
}
