package server

import (
	"context"
	"testing"
	"time"

	"github.com/quickfixgo/enum"
	"github.com/quickfixgo/quickfix"
	"github.com/quickfixgo/tag"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/ismaiel54/fix-order-lifecycle/internal/dropcopy"
	"github.com/ismaiel54/fix-order-lifecycle/internal/eventqueue"
	"github.com/ismaiel54/fix-order-lifecycle/internal/fixmsg"
	"github.com/ismaiel54/fix-order-lifecycle/internal/order"
	"github.com/ismaiel54/fix-order-lifecycle/internal/session"
)

// FIX SessionRejectReason 5: value is incorrect for this tag.
const rejectReasonValueIsIncorrect = 5

var testSession = quickfix.SessionID{BeginString: "FIX.4.2", SenderCompID: "SERVER", TargetCompID: "CLIENT"}

type recordingSender struct {
	sent []fixmsg.Message
}

func (r *recordingSender) Send(m quickfix.Messagable, _ quickfix.SessionID) error {
	decoded, rej := fixmsg.Decode(m.ToMessage())
	if rej != nil {
		return rej
	}
	r.sent = append(r.sent, decoded)
	return nil
}

type recordingRecorder struct {
	events []dropcopy.Event
}

func (r *recordingRecorder) Record(_ context.Context, ev dropcopy.Event) error {
	r.events = append(r.events, ev)
	return nil
}

func limitOrder(clOrdID string) fixmsg.NewOrderSingle {
	return fixmsg.NewOrderSingle{
		ClOrdID:      clOrdID,
		HandlInst:    enum.HandlInst("1"),
		Symbol:       "ESZ1",
		Side:         enum.Side_BUY,
		OrdType:      enum.OrdType_LIMIT,
		OrderQty:     decimal.NewFromInt(33),
		Price:        decimal.NewFromInt(1912),
		HasPrice:     true,
		TransactTime: time.Now().UTC(),
	}
}

func TestHandleNewOrderSingle_FillsInFull(t *testing.T) {
	sender := &recordingSender{}
	recorder := &recordingRecorder{}
	h := NewHandler(zap.NewNop(), sender, recorder, order.NewIDGenerator())

	require.NoError(t, h.HandleNewOrderSingle(limitOrder("X1"), testSession))

	require.Len(t, sender.sent, 1)
	er, ok := sender.sent[0].(fixmsg.ExecutionReport)
	require.True(t, ok, "expected an ExecutionReport, got %T", sender.sent[0])
	assert.Equal(t, "X1", er.ClOrdID)
	assert.NotEmpty(t, er.OrderID)
	assert.NotEmpty(t, er.ExecID)
	assert.NotEqual(t, er.OrderID, er.ExecID)
	assert.Equal(t, enum.ExecTransType_NEW, er.ExecTransType)
	assert.Equal(t, enum.ExecType_FILL, er.ExecType)
	assert.Equal(t, enum.OrdStatus_FILLED, er.OrdStatus)
	assert.Equal(t, "ESZ1", er.Symbol)
	assert.Equal(t, enum.Side_BUY, er.Side)
	assert.True(t, er.LeavesQty.IsZero())
	assert.True(t, er.CumQty.Equal(decimal.NewFromInt(33)))
	assert.True(t, er.OrderQty.Equal(decimal.NewFromInt(33)))
	assert.True(t, er.AvgPx.Equal(decimal.NewFromInt(1912)))
	assert.True(t, er.LastShares.Equal(decimal.NewFromInt(33)))
	assert.True(t, er.LastPx.Equal(decimal.NewFromInt(1912)))

	require.Len(t, recorder.events, 1)
	assert.Equal(t, dropcopy.KindExecutionSent, recorder.events[0].Kind)
	assert.Equal(t, er.OrderID, recorder.events[0].OrderID)
}

func TestHandleNewOrderSingle_IDsAreUnique(t *testing.T) {
	sender := &recordingSender{}
	h := NewHandler(zap.NewNop(), sender, nil, nil)

	require.NoError(t, h.HandleNewOrderSingle(limitOrder("X1"), testSession))
	require.NoError(t, h.HandleNewOrderSingle(limitOrder("X2"), testSession))

	require.Len(t, sender.sent, 2)
	first := sender.sent[0].(fixmsg.ExecutionReport)
	second := sender.sent[1].(fixmsg.ExecutionReport)
	assert.NotEqual(t, first.OrderID, second.OrderID)
	assert.NotEqual(t, first.ExecID, second.ExecID)
}

func TestMarketOrder_RejectedWithoutReport(t *testing.T) {
	sender := &recordingSender{}
	h := NewHandler(zap.NewNop(), sender, nil, nil)

	q := session.NewQueue()
	adapter := session.NewAdapter(zap.NewNop(), q, h.Register(q), session.WithValidator(h))

	market := limitOrder("X2")
	market.OrdType = enum.OrdType_MARKET
	market.HasPrice = false

	rej := adapter.FromApp(market.Build().ToMessage(), testSession)
	require.NotNil(t, rej)
	assert.Equal(t, rejectReasonValueIsIncorrect, rej.RejectReason())
	require.NotNil(t, rej.RefTagID())
	assert.Equal(t, tag.OrdType, *rej.RefTagID())

	assert.Equal(t, 0, q.Process())
	assert.Empty(t, sender.sent, "no execution report for a market order")
}

func TestValidate_LimitWithoutPrice(t *testing.T) {
	h := NewHandler(zap.NewNop(), &recordingSender{}, nil, nil)

	nos := limitOrder("X3")
	nos.HasPrice = false

	rej := session.AsReject(h.Validate(nos))
	require.NotNil(t, rej)
	require.NotNil(t, rej.RefTagID())
	assert.Equal(t, tag.Price, *rej.RefTagID())

	assert.NoError(t, h.Validate(limitOrder("X4")))
	assert.NoError(t, h.Validate(fixmsg.OrderCancelRequest{ClOrdID: "X4"}))
}

func TestHandleNewOrderSingle_RefusesInvalidAfterQueue(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	sender := &recordingSender{}
	h := NewHandler(zap.NewNop(), sender, nil, nil)

	q := session.NewQueue(eventqueue.WithLogger(zap.New(core)))
	h.Register(q)

	market := limitOrder("X5")
	market.OrdType = enum.OrdType_MARKET
	require.NoError(t, q.Enqueue(fixmsg.TagNewOrderSingle, market, testSession))

	assert.Equal(t, 1, q.Process())
	assert.Empty(t, sender.sent)
	assert.Equal(t, 1, logs.FilterMessage("listener failed").Len())
}

func TestHandleOrderCancelRequest_AlwaysRejects(t *testing.T) {
	sender := &recordingSender{}
	recorder := &recordingRecorder{}
	h := NewHandler(zap.NewNop(), sender, recorder, nil)

	req := fixmsg.OrderCancelRequest{
		OrigClOrdID:  "X1",
		ClOrdID:      "X1",
		OrderID:      "O1",
		Symbol:       "ESZ1",
		Side:         enum.Side_BUY,
		OrderQty:     decimal.NewFromInt(33),
		TransactTime: time.Now().UTC(),
	}
	require.NoError(t, h.HandleOrderCancelRequest(req, testSession))

	require.Len(t, sender.sent, 1)
	reject, ok := sender.sent[0].(fixmsg.OrderCancelReject)
	require.True(t, ok, "expected an OrderCancelReject, got %T", sender.sent[0])
	assert.Equal(t, "O1", reject.OrderID)
	assert.Equal(t, "X1", reject.ClOrdID)
	assert.Equal(t, "X1", reject.OrigClOrdID)
	assert.Equal(t, enum.OrdStatus_DONE_FOR_DAY, reject.OrdStatus)
	assert.Equal(t, enum.CxlRejResponseTo("1"), reject.CxlRejResponseTo)

	require.Len(t, recorder.events, 1)
	assert.Equal(t, dropcopy.KindCancelRejectSent, recorder.events[0].Kind)
}

func TestHandleOrderCancelRequest_MissingOrderID(t *testing.T) {
	sender := &recordingSender{}
	h := NewHandler(zap.NewNop(), sender, nil, nil)

	req := fixmsg.OrderCancelRequest{
		OrigClOrdID:  "X9",
		ClOrdID:      "X9",
		Symbol:       "ESZ1",
		Side:         enum.Side_SELL,
		TransactTime: time.Now().UTC(),
	}
	require.NoError(t, h.HandleOrderCancelRequest(req, testSession))

	require.Len(t, sender.sent, 1)
	assert.Equal(t, "NONE", sender.sent[0].(fixmsg.OrderCancelReject).OrderID)
}
