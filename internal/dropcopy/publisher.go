package dropcopy

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ismaiel54/fix-order-lifecycle/internal/msg"
)

// Producer is the part of msg.Producer the publisher needs.
type Producer interface {
	ProduceJSON(ctx context.Context, topic string, key string, v any) error
}

// Publisher drains the outbox to Kafka
type Publisher struct {
	store     *Store
	producer  Producer
	logger    *zap.Logger
	interval  time.Duration
	batchSize int
}

// NewPublisher creates a new outbox publisher
func NewPublisher(store *Store, producer Producer, logger *zap.Logger) *Publisher {
	return &Publisher{
		store:     store,
		producer:  producer,
		logger:    logger,
		interval:  250 * time.Millisecond,
		batchSize: 100,
	}
}

// Run publishes on every tick until ctx is done
func (p *Publisher) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if _, err := p.PublishBatch(ctx); err != nil {
				p.logger.Error("failed to publish batch", zap.Error(err))
			}
		}
	}
}

// PublishBatch publishes one batch of pending events and returns how many
// were marked published. Failed events stay pending for the next batch.
func (p *Publisher) PublishBatch(ctx context.Context) (int, error) {
	events, err := p.store.ListUnpublished(ctx, p.batchSize)
	if err != nil {
		return 0, fmt.Errorf("failed to list unpublished events: %w", err)
	}

	published := 0
	for _, event := range events {
		var payload msg.LifecycleEventMsg
		if err := json.Unmarshal([]byte(event.PayloadJSON), &payload); err != nil {
			p.logger.Error("failed to unmarshal event payload",
				zap.String("event_id", event.EventID),
				zap.Error(err),
			)
			continue
		}

		if err := p.producer.ProduceJSON(ctx, event.Topic, event.ClOrdID, payload); err != nil {
			p.logger.Error("failed to produce event",
				zap.String("event_id", event.EventID),
				zap.String("cl_ord_id", event.ClOrdID),
				zap.Error(err),
			)
			continue
		}

		// a failure here republishes the event; consumers dedupe on event_id
		if err := p.store.MarkPublished(ctx, event.EventID, time.Now().UnixMilli()); err != nil {
			p.logger.Error("failed to mark event as published",
				zap.String("event_id", event.EventID),
				zap.Error(err),
			)
			continue
		}
		published++
	}

	if published > 0 {
		p.logger.Info("published drop-copy batch",
			zap.Int("published", published),
			zap.Int("total", len(events)),
		)
	}
	return published, nil
}
