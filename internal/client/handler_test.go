package client

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/quickfixgo/enum"
	"github.com/quickfixgo/quickfix"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ismaiel54/fix-order-lifecycle/internal/dropcopy"
	"github.com/ismaiel54/fix-order-lifecycle/internal/fixmsg"
	"github.com/ismaiel54/fix-order-lifecycle/internal/order"
	"github.com/ismaiel54/fix-order-lifecycle/internal/session"
)

var testSession = quickfix.SessionID{BeginString: "FIX.4.2", SenderCompID: "CLIENT", TargetCompID: "SERVER"}

type recordingSender struct {
	mu   sync.Mutex
	err  error
	sent []fixmsg.Message
}

func (r *recordingSender) Send(m quickfix.Messagable, _ quickfix.SessionID) error {
	if r.err != nil {
		return r.err
	}
	decoded, rej := fixmsg.Decode(m.ToMessage())
	if rej != nil {
		return rej
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, decoded)
	return nil
}

type recordingRecorder struct {
	kinds []dropcopy.Kind
}

func (r *recordingRecorder) Record(_ context.Context, ev dropcopy.Event) error {
	r.kinds = append(r.kinds, ev.Kind)
	return nil
}

func filledReport(clOrdID, orderID string) fixmsg.ExecutionReport {
	return fixmsg.ExecutionReport{
		OrderID:       orderID,
		ExecID:        "E1",
		ClOrdID:       clOrdID,
		ExecTransType: enum.ExecTransType_NEW,
		ExecType:      enum.ExecType_FILL,
		OrdStatus:     enum.OrdStatus_FILLED,
		Symbol:        "ESZ1",
		Side:          enum.Side_BUY,
		OrderQty:      decimal.NewFromInt(33),
		LeavesQty:     decimal.Zero,
		CumQty:        decimal.NewFromInt(33),
		AvgPx:         decimal.NewFromInt(1912),
		LastShares:    decimal.NewFromInt(33),
		LastPx:        decimal.NewFromInt(1912),
	}
}

func TestOnExecutionReport_SendsOneCancel(t *testing.T) {
	sender := &recordingSender{}
	recorder := &recordingRecorder{}
	h := NewHandler(zap.NewNop(), sender, recorder, DefaultProfile())

	require.NoError(t, h.OnExecutionReport(filledReport("C1", "O1"), testSession))

	require.Len(t, sender.sent, 1)
	cancel, ok := sender.sent[0].(fixmsg.OrderCancelRequest)
	require.True(t, ok, "expected an OrderCancelRequest, got %T", sender.sent[0])
	assert.Equal(t, "C1", cancel.OrigClOrdID)
	assert.Equal(t, "C1", cancel.ClOrdID)
	assert.Equal(t, "O1", cancel.OrderID)
	assert.Equal(t, "ESZ1", cancel.Symbol)
	assert.Equal(t, enum.Side_BUY, cancel.Side)
	assert.True(t, cancel.OrderQty.Equal(decimal.NewFromInt(33)))
	assert.False(t, cancel.TransactTime.IsZero())

	assert.Equal(t, []dropcopy.Kind{dropcopy.KindOrderFilled, dropcopy.KindCancelRequested}, recorder.kinds)
}

func TestOnExecutionReport_CancelsEvenWhenNotFilled(t *testing.T) {
	sender := &recordingSender{}
	h := NewHandler(zap.NewNop(), sender, nil, DefaultProfile())

	er := filledReport("C2", "O2")
	er.OrdStatus = enum.OrdStatus_NEW
	require.NoError(t, h.OnExecutionReport(er, testSession))

	require.Len(t, sender.sent, 1)
	assert.Equal(t, fixmsg.TagOrderCancelRequest, sender.sent[0].Tag())
}

func TestSendNewOrderSingle_UsesProfile(t *testing.T) {
	sender := &recordingSender{}
	h := NewHandler(zap.NewNop(), sender, nil, DefaultProfile())

	clOrdID := h.NextClOrdID()
	require.NotEmpty(t, clOrdID)
	assert.NotEqual(t, clOrdID, h.NextClOrdID())

	_, err := h.SendNewOrderSingle(clOrdID, testSession)
	require.NoError(t, err)

	require.Len(t, sender.sent, 1)
	nos, ok := sender.sent[0].(fixmsg.NewOrderSingle)
	require.True(t, ok)
	assert.Equal(t, clOrdID, nos.ClOrdID)
	assert.Equal(t, "ESZ1", nos.Symbol)
	assert.Equal(t, enum.Side_BUY, nos.Side)
	assert.Equal(t, enum.OrdType_LIMIT, nos.OrdType)
	assert.True(t, nos.OrderQty.Equal(decimal.NewFromInt(33)))
	assert.True(t, nos.Price.Equal(decimal.NewFromInt(1912)))
	assert.Equal(t, "123456", nos.SecurityID)
	assert.Equal(t, "8", nos.SecurityIDSource)
	assert.Equal(t, enum.TimeInForce_DAY, nos.TimeInForce)
	assert.Equal(t, enum.HandlInst("1"), nos.HandlInst)

	o, ok := h.Tracker().Get(clOrdID)
	require.True(t, ok)
	assert.Equal(t, order.StateSent, o.State)
}

func TestSendNewOrderSingle_RefusesActiveDuplicate(t *testing.T) {
	sender := &recordingSender{}
	h := NewHandler(zap.NewNop(), sender, nil, DefaultProfile())

	_, err := h.SendNewOrderSingle("C1", testSession)
	require.NoError(t, err)

	_, err = h.SendNewOrderSingle("C1", testSession)
	assert.ErrorIs(t, err, order.ErrDuplicateClOrdID)
	assert.Len(t, sender.sent, 1)
}

func TestSendNewOrderSingle_SendFailureFreesID(t *testing.T) {
	sender := &recordingSender{err: errors.New("session not found")}
	h := NewHandler(zap.NewNop(), sender, nil, DefaultProfile())

	_, err := h.SendNewOrderSingle("C1", testSession)
	require.Error(t, err)
	assert.Equal(t, 0, h.Tracker().Active())

	sender.err = nil
	_, err = h.SendNewOrderSingle("C1", testSession)
	assert.NoError(t, err)
}

func TestLifecycleThroughQueue(t *testing.T) {
	sender := &recordingSender{}
	recorder := &recordingRecorder{}
	h := NewHandler(zap.NewNop(), sender, recorder, DefaultProfile())

	q := session.NewQueue()
	tags := h.Register(q)
	assert.ElementsMatch(t, []fixmsg.Tag{fixmsg.TagExecutionReport, fixmsg.TagOrderCancelReject}, tags)

	_, err := h.SendNewOrderSingle("C1", testSession)
	require.NoError(t, err)

	require.NoError(t, q.Enqueue(fixmsg.TagExecutionReport, filledReport("C1", "O1"), testSession))
	assert.Equal(t, 1, q.Process())

	o, ok := h.Tracker().Get("C1")
	require.True(t, ok)
	assert.Equal(t, order.StateCancelRequested, o.State)
	assert.Equal(t, "O1", o.OrderID)

	reject := fixmsg.OrderCancelReject{
		OrderID:          "O1",
		ClOrdID:          "C1",
		OrigClOrdID:      "C1",
		OrdStatus:        enum.OrdStatus_DONE_FOR_DAY,
		CxlRejResponseTo: enum.CxlRejResponseTo_ORDER_CANCEL_REQUEST,
	}
	require.NoError(t, q.Enqueue(fixmsg.TagOrderCancelReject, reject, testSession))
	assert.Equal(t, 1, q.Process())

	_, ok = h.Tracker().Get("C1")
	assert.False(t, ok, "rejected cancel ends the lifecycle")
	assert.Len(t, sender.sent, 2)
	assert.Equal(t, []dropcopy.Kind{
		dropcopy.KindOrderSent,
		dropcopy.KindOrderFilled,
		dropcopy.KindCancelRequested,
		dropcopy.KindCancelRejected,
	}, recorder.kinds)
}
