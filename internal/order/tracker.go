package order

import (
	"fmt"
	"sync"
	"time"
)

// Tracker holds the client's active orders. Orders are dropped once they
// reach a terminal state; nothing is persisted.
type Tracker struct {
	mu     sync.RWMutex
	orders map[string]*Order
	now    func() time.Time
}

// NewTracker creates an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{
		orders: make(map[string]*Order),
		now:    time.Now,
	}
}

// Track registers a newly sent order in StateSent.
func (t *Tracker) Track(o Order) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, exists := t.orders[o.ClOrdID]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateClOrdID, o.ClOrdID)
	}

	o.State = StateSent
	o.UpdatedAt = t.now()
	t.orders[o.ClOrdID] = &o
	return nil
}

// Fill moves the order to StateFilled and records the server's OrderID.
func (t *Tracker) Fill(clOrdID, orderID string) (Order, error) {
	return t.transition(clOrdID, StateFilled, func(o *Order) {
		o.OrderID = orderID
	})
}

// RequestCancel moves the order to StateCancelRequested.
func (t *Tracker) RequestCancel(clOrdID string) (Order, error) {
	return t.transition(clOrdID, StateCancelRequested, nil)
}

// RejectCancel moves the order to StateCancelRejected and forgets it.
func (t *Tracker) RejectCancel(clOrdID string) (Order, error) {
	return t.transition(clOrdID, StateCancelRejected, nil)
}

// AcceptCancel moves the order to StateCancelAccepted and forgets it.
func (t *Tracker) AcceptCancel(clOrdID string) (Order, error) {
	return t.transition(clOrdID, StateCancelAccepted, nil)
}

func (t *Tracker) transition(clOrdID string, to State, update func(*Order)) (Order, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	o, ok := t.orders[clOrdID]
	if !ok {
		return Order{}, fmt.Errorf("%w: %s", ErrUnknownOrder, clOrdID)
	}
	if !CanTransition(o.State, to) {
		return *o, fmt.Errorf("%w: %s %s -> %s", ErrInvalidTransition, clOrdID, o.State, to)
	}

	if update != nil {
		update(o)
	}
	o.State = to
	o.UpdatedAt = t.now()

	if to.Terminal() {
		delete(t.orders, clOrdID)
	}
	return *o, nil
}

// Get returns a copy of the active order for clOrdID.
func (t *Tracker) Get(clOrdID string) (Order, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	o, ok := t.orders[clOrdID]
	if !ok {
		return Order{}, false
	}
	return *o, true
}

// Active returns the number of orders not yet terminal.
func (t *Tracker) Active() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.orders)
}
