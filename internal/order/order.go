package order

import (
	"errors"
	"fmt"
	"time"

	"github.com/quickfixgo/enum"
	"github.com/shopspring/decimal"
)

var (
	// ErrDuplicateClOrdID is returned when an active order already uses the ClOrdID.
	ErrDuplicateClOrdID = errors.New("duplicate active ClOrdID")
	// ErrUnknownOrder is returned for a ClOrdID the tracker does not hold.
	ErrUnknownOrder = errors.New("unknown order")
	// ErrInvalidTransition is returned when a state change is not allowed.
	ErrInvalidTransition = errors.New("invalid order state transition")
	// ErrUnsupportedOrdType is returned for anything but a limit order.
	ErrUnsupportedOrdType = errors.New("unsupported order type")
)

// State is a step in the order lifecycle.
type State int

const (
	StateSent State = iota + 1
	StateFilled
	StateCancelRequested
	StateCancelRejected
	StateCancelAccepted
)

func (s State) String() string {
	switch s {
	case StateSent:
		return "SENT"
	case StateFilled:
		return "FILLED"
	case StateCancelRequested:
		return "CANCEL_REQUESTED"
	case StateCancelRejected:
		return "CANCEL_REJECTED"
	case StateCancelAccepted:
		return "CANCEL_ACCEPTED"
	default:
		return "UNKNOWN"
	}
}

// Terminal reports whether no further transition can follow s.
func (s State) Terminal() bool {
	return s == StateCancelRejected || s == StateCancelAccepted
}

var transitions = map[State][]State{
	StateSent:            {StateFilled, StateCancelRequested},
	StateFilled:          {StateCancelRequested},
	StateCancelRequested: {StateCancelRejected, StateCancelAccepted},
}

// CanTransition reports whether from -> to is a legal lifecycle step.
func CanTransition(from, to State) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Order is the in-memory view of one order, keyed by ClOrdID.
type Order struct {
	ClOrdID   string
	OrderID   string
	Symbol    string
	Side      enum.Side
	OrdType   enum.OrdType
	Quantity  decimal.Decimal
	Price     decimal.Decimal
	State     State
	UpdatedAt time.Time
}

// ValidateOrdType accepts limit orders only.
func ValidateOrdType(ordType enum.OrdType) error {
	if ordType != enum.OrdType_LIMIT {
		return fmt.Errorf("%w: %q", ErrUnsupportedOrdType, string(ordType))
	}
	return nil
}
