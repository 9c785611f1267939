// Package fixmsg defines the closed set of FIX 4.2 application messages the
// client and server exchange, and converts between them and quickfix messages.
package fixmsg

import (
	"time"

	"github.com/quickfixgo/enum"
	"github.com/shopspring/decimal"
)

// Tag is the MsgType(35) value identifying a message kind.
type Tag string

const (
	TagExecutionReport    Tag = "8"
	TagOrderCancelReject  Tag = "9"
	TagNewOrderSingle     Tag = "D"
	TagOrderCancelRequest Tag = "F"
)

func (t Tag) String() string { return string(t) }

// Name returns the FIX message name for logging.
func (t Tag) Name() string {
	switch t {
	case TagExecutionReport:
		return "ExecutionReport"
	case TagOrderCancelReject:
		return "OrderCancelReject"
	case TagNewOrderSingle:
		return "NewOrderSingle"
	case TagOrderCancelRequest:
		return "OrderCancelRequest"
	default:
		return "Unknown(" + string(t) + ")"
	}
}

// Message is implemented only by the four message structs in this package.
type Message interface {
	Tag() Tag
	// CorrelationID is the ClOrdID tying the message to an order lifecycle.
	CorrelationID() string
	sealed()
}

// NewOrderSingle (35=D)
type NewOrderSingle struct {
	ClOrdID          string
	HandlInst        enum.HandlInst
	Symbol           string
	Side             enum.Side
	OrdType          enum.OrdType
	OrderQty         decimal.Decimal
	Price            decimal.Decimal
	HasPrice         bool
	SecurityID       string
	SecurityIDSource string
	TimeInForce      enum.TimeInForce
	TransactTime     time.Time
}

// ExecutionReport (35=8)
type ExecutionReport struct {
	OrderID       string
	ExecID        string
	ClOrdID       string
	ExecTransType enum.ExecTransType
	ExecType      enum.ExecType
	OrdStatus     enum.OrdStatus
	Symbol        string
	Side          enum.Side
	OrderQty      decimal.Decimal
	LeavesQty     decimal.Decimal
	CumQty        decimal.Decimal
	AvgPx         decimal.Decimal
	LastShares    decimal.Decimal
	LastPx        decimal.Decimal
}

// OrderCancelRequest (35=F)
type OrderCancelRequest struct {
	OrigClOrdID  string
	ClOrdID      string
	OrderID      string
	Symbol       string
	Side         enum.Side
	OrderQty     decimal.Decimal
	TransactTime time.Time
}

// OrderCancelReject (35=9)
type OrderCancelReject struct {
	OrderID          string
	ClOrdID          string
	OrigClOrdID      string
	OrdStatus        enum.OrdStatus
	CxlRejResponseTo enum.CxlRejResponseTo
	Text             string
}

func (NewOrderSingle) Tag() Tag     { return TagNewOrderSingle }
func (ExecutionReport) Tag() Tag    { return TagExecutionReport }
func (OrderCancelRequest) Tag() Tag { return TagOrderCancelRequest }
func (OrderCancelReject) Tag() Tag  { return TagOrderCancelReject }

func (m NewOrderSingle) CorrelationID() string     { return m.ClOrdID }
func (m ExecutionReport) CorrelationID() string    { return m.ClOrdID }
func (m OrderCancelRequest) CorrelationID() string { return m.ClOrdID }
func (m OrderCancelReject) CorrelationID() string  { return m.ClOrdID }

func (NewOrderSingle) sealed()     {}
func (ExecutionReport) sealed()    {}
func (OrderCancelRequest) sealed() {}
func (OrderCancelReject) sealed()  {}

// scaleOf returns the number of decimal places needed to write d exactly.
func scaleOf(d decimal.Decimal) int32 {
	if exp := d.Exponent(); exp < 0 {
		return -exp
	}
	return 0
}
