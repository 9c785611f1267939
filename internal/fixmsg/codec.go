package fixmsg

import (
	"github.com/quickfixgo/field"
	"github.com/quickfixgo/fix42/executionreport"
	"github.com/quickfixgo/fix42/newordersingle"
	"github.com/quickfixgo/fix42/ordercancelreject"
	"github.com/quickfixgo/fix42/ordercancelrequest"
	"github.com/quickfixgo/quickfix"
	"github.com/quickfixgo/tag"
)

// tagIDSource is SecurityIDSource(22), named IDSource in FIX 4.2.
const tagIDSource quickfix.Tag = 22

// TagOf reads MsgType(35) from the header.
func TagOf(msg *quickfix.Message) (Tag, quickfix.MessageRejectError) {
	v, err := msg.Header.GetString(tag.MsgType)
	if err != nil {
		return "", err
	}
	return Tag(v), nil
}

// Decode converts an inbound application message into its typed form.
// Missing required fields come back as the engine's reject errors;
// unknown message types as UnsupportedMessageType.
func Decode(msg *quickfix.Message) (Message, quickfix.MessageRejectError) {
	t, err := TagOf(msg)
	if err != nil {
		return nil, err
	}

	switch t {
	case TagNewOrderSingle:
		return decodeNewOrderSingle(newordersingle.FromMessage(msg))
	case TagExecutionReport:
		return decodeExecutionReport(executionreport.FromMessage(msg))
	case TagOrderCancelRequest:
		return decodeOrderCancelRequest(ordercancelrequest.FromMessage(msg))
	case TagOrderCancelReject:
		return decodeOrderCancelReject(ordercancelreject.FromMessage(msg))
	default:
		return nil, quickfix.UnsupportedMessageType()
	}
}

func decodeNewOrderSingle(m newordersingle.NewOrderSingle) (Message, quickfix.MessageRejectError) {
	var (
		out NewOrderSingle
		err quickfix.MessageRejectError
	)

	// OrdType first: a wrong order type is reported before anything else.
	if out.OrdType, err = m.GetOrdType(); err != nil {
		return nil, err
	}
	if out.ClOrdID, err = m.GetClOrdID(); err != nil {
		return nil, err
	}
	if out.Symbol, err = m.GetSymbol(); err != nil {
		return nil, err
	}
	if out.Side, err = m.GetSide(); err != nil {
		return nil, err
	}
	if out.OrderQty, err = m.GetOrderQty(); err != nil {
		return nil, err
	}
	if m.HasPrice() {
		if out.Price, err = m.GetPrice(); err != nil {
			return nil, err
		}
		out.HasPrice = true
	}
	if m.HasHandlInst() {
		out.HandlInst, _ = m.GetHandlInst()
	}
	if m.HasSecurityID() {
		out.SecurityID, _ = m.GetSecurityID()
	}
	if m.Body.Has(tagIDSource) {
		out.SecurityIDSource, _ = m.Body.GetString(tagIDSource)
	}
	if m.HasTimeInForce() {
		out.TimeInForce, _ = m.GetTimeInForce()
	}
	if m.HasTransactTime() {
		out.TransactTime, _ = m.GetTransactTime()
	}

	return out, nil
}

func decodeExecutionReport(m executionreport.ExecutionReport) (Message, quickfix.MessageRejectError) {
	var (
		out ExecutionReport
		err quickfix.MessageRejectError
	)

	if out.OrderID, err = m.GetOrderID(); err != nil {
		return nil, err
	}
	if out.ClOrdID, err = m.GetClOrdID(); err != nil {
		return nil, err
	}
	if out.Symbol, err = m.GetSymbol(); err != nil {
		return nil, err
	}
	if out.Side, err = m.GetSide(); err != nil {
		return nil, err
	}
	if out.OrderQty, err = m.GetOrderQty(); err != nil {
		return nil, err
	}

	if m.HasExecID() {
		out.ExecID, _ = m.GetExecID()
	}
	if m.HasExecTransType() {
		out.ExecTransType, _ = m.GetExecTransType()
	}
	if m.HasExecType() {
		out.ExecType, _ = m.GetExecType()
	}
	if m.HasOrdStatus() {
		out.OrdStatus, _ = m.GetOrdStatus()
	}
	if m.HasLeavesQty() {
		out.LeavesQty, _ = m.GetLeavesQty()
	}
	if m.HasCumQty() {
		out.CumQty, _ = m.GetCumQty()
	}
	if m.HasAvgPx() {
		out.AvgPx, _ = m.GetAvgPx()
	}
	if m.HasLastShares() {
		out.LastShares, _ = m.GetLastShares()
	}
	if m.HasLastPx() {
		out.LastPx, _ = m.GetLastPx()
	}

	return out, nil
}

func decodeOrderCancelRequest(m ordercancelrequest.OrderCancelRequest) (Message, quickfix.MessageRejectError) {
	var (
		out OrderCancelRequest
		err quickfix.MessageRejectError
	)

	if out.OrigClOrdID, err = m.GetOrigClOrdID(); err != nil {
		return nil, err
	}
	if out.ClOrdID, err = m.GetClOrdID(); err != nil {
		return nil, err
	}
	if out.Symbol, err = m.GetSymbol(); err != nil {
		return nil, err
	}
	if out.Side, err = m.GetSide(); err != nil {
		return nil, err
	}

	if m.HasOrderID() {
		out.OrderID, _ = m.GetOrderID()
	}
	if m.HasOrderQty() {
		out.OrderQty, _ = m.GetOrderQty()
	}
	if m.HasTransactTime() {
		out.TransactTime, _ = m.GetTransactTime()
	}

	return out, nil
}

func decodeOrderCancelReject(m ordercancelreject.OrderCancelReject) (Message, quickfix.MessageRejectError) {
	var (
		out OrderCancelReject
		err quickfix.MessageRejectError
	)

	if out.OrderID, err = m.GetOrderID(); err != nil {
		return nil, err
	}
	if out.ClOrdID, err = m.GetClOrdID(); err != nil {
		return nil, err
	}
	if out.OrigClOrdID, err = m.GetOrigClOrdID(); err != nil {
		return nil, err
	}
	if out.OrdStatus, err = m.GetOrdStatus(); err != nil {
		return nil, err
	}
	if m.HasCxlRejResponseTo() {
		out.CxlRejResponseTo, _ = m.GetCxlRejResponseTo()
	}
	if m.HasText() {
		out.Text, _ = m.GetText()
	}

	return out, nil
}

// Build returns the quickfix message for o.
func (o NewOrderSingle) Build() newordersingle.NewOrderSingle {
	m := newordersingle.New(
		field.NewClOrdID(o.ClOrdID),
		field.NewHandlInst(o.HandlInst),
		field.NewSymbol(o.Symbol),
		field.NewSide(o.Side),
		field.NewTransactTime(o.TransactTime),
		field.NewOrdType(o.OrdType),
	)
	m.SetOrderQty(o.OrderQty, scaleOf(o.OrderQty))
	if o.HasPrice {
		m.SetPrice(o.Price, scaleOf(o.Price))
	}
	if o.SecurityID != "" {
		m.SetSecurityID(o.SecurityID)
	}
	if o.SecurityIDSource != "" {
		m.Body.SetString(tagIDSource, o.SecurityIDSource)
	}
	if o.TimeInForce != "" {
		m.SetTimeInForce(o.TimeInForce)
	}
	return m
}

// Build returns the quickfix message for r.
func (r ExecutionReport) Build() executionreport.ExecutionReport {
	m := executionreport.New(
		field.NewOrderID(r.OrderID),
		field.NewExecID(r.ExecID),
		field.NewExecTransType(r.ExecTransType),
		field.NewExecType(r.ExecType),
		field.NewOrdStatus(r.OrdStatus),
		field.NewSymbol(r.Symbol),
		field.NewSide(r.Side),
		field.NewLeavesQty(r.LeavesQty, scaleOf(r.LeavesQty)),
		field.NewCumQty(r.CumQty, scaleOf(r.CumQty)),
		field.NewAvgPx(r.AvgPx, scaleOf(r.AvgPx)),
	)
	m.SetClOrdID(r.ClOrdID)
	m.SetOrderQty(r.OrderQty, scaleOf(r.OrderQty))
	m.SetLastShares(r.LastShares, scaleOf(r.LastShares))
	m.SetLastPx(r.LastPx, scaleOf(r.LastPx))
	return m
}

// Build returns the quickfix message for c.
func (c OrderCancelRequest) Build() ordercancelrequest.OrderCancelRequest {
	m := ordercancelrequest.New(
		field.NewOrigClOrdID(c.OrigClOrdID),
		field.NewClOrdID(c.ClOrdID),
		field.NewSymbol(c.Symbol),
		field.NewSide(c.Side),
		field.NewTransactTime(c.TransactTime),
	)
	if c.OrderID != "" {
		m.SetOrderID(c.OrderID)
	}
	m.SetOrderQty(c.OrderQty, scaleOf(c.OrderQty))
	return m
}

// Build returns the quickfix message for r.
func (r OrderCancelReject) Build() ordercancelreject.OrderCancelReject {
	m := ordercancelreject.New(
		field.NewOrderID(r.OrderID),
		field.NewClOrdID(r.ClOrdID),
		field.NewOrigClOrdID(r.OrigClOrdID),
		field.NewOrdStatus(r.OrdStatus),
		field.NewCxlRejResponseTo(r.CxlRejResponseTo),
	)
	if r.Text != "" {
		m.SetText(r.Text)
	}
	return m
}
