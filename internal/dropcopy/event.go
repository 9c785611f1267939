// Package dropcopy records an audit copy of every order lifecycle step and
// forwards it to Kafka through a SQLite outbox. Nothing recorded here is ever
// read back into the lifecycle.
package dropcopy

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ismaiel54/fix-order-lifecycle/internal/msg"
)

// Kind names a lifecycle step.
type Kind string

const (
	KindOrderSent        Kind = "order_sent"
	KindOrderFilled      Kind = "order_filled"
	KindCancelRequested  Kind = "cancel_requested"
	KindCancelRejected   Kind = "cancel_rejected"
	KindExecutionSent    Kind = "execution_sent"
	KindCancelRejectSent Kind = "cancel_reject_sent"
)

// Event is one drop-copy entry.
type Event struct {
	EventID    string
	Kind       Kind
	Session    string
	ClOrdID    string
	OrderID    string
	Symbol     string
	Side       string
	Quantity   decimal.Decimal
	Price      decimal.Decimal
	Text       string
	OccurredAt time.Time
}

// NewEvent stamps a fresh event id and the current time.
func NewEvent(kind Kind, session, clOrdID string) Event {
	return Event{
		EventID:    uuid.NewString(),
		Kind:       kind,
		Session:    session,
		ClOrdID:    clOrdID,
		OccurredAt: time.Now().UTC(),
	}
}

// Msg converts the event to its wire form.
func (e Event) Msg() msg.LifecycleEventMsg {
	m := msg.LifecycleEventMsg{
		EventID:      e.EventID,
		Kind:         string(e.Kind),
		Session:      e.Session,
		ClOrdID:      e.ClOrdID,
		OrderID:      e.OrderID,
		Symbol:       e.Symbol,
		Side:         e.Side,
		Text:         e.Text,
		TsUnixMillis: e.OccurredAt.UnixMilli(),
	}
	if !e.Quantity.IsZero() {
		m.Qty = e.Quantity.String()
	}
	if !e.Price.IsZero() {
		m.Price = e.Price.String()
	}
	return m
}

// Recorder accepts lifecycle events.
type Recorder interface {
	Record(ctx context.Context, ev Event) error
}

// Nop discards every event.
type Nop struct{}

func (Nop) Record(context.Context, Event) error { return nil }
