// Package client implements the order-submitting side of the lifecycle:
// send a limit order, cancel it once it is reported, and record the
// cancel's rejection.
package client

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/quickfixgo/enum"
	"github.com/quickfixgo/quickfix"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/ismaiel54/fix-order-lifecycle/internal/dropcopy"
	"github.com/ismaiel54/fix-order-lifecycle/internal/fixmsg"
	"github.com/ismaiel54/fix-order-lifecycle/internal/order"
	"github.com/ismaiel54/fix-order-lifecycle/internal/session"
)

const recordTimeout = 2 * time.Second

// automated execution, private, no broker intervention
const handlInstAutomatedPrivate = enum.HandlInst("1")

// Profile is the fixed shape of every order the client submits.
type Profile struct {
	Symbol           string
	Quantity         decimal.Decimal
	Price            decimal.Decimal
	SecurityID       string
	SecurityIDSource string
}

// DefaultProfile is a 33 lot ESZ1 limit buy at 1912.
func DefaultProfile() Profile {
	return Profile{
		Symbol:           "ESZ1",
		Quantity:         decimal.NewFromInt(33),
		Price:            decimal.NewFromInt(1912),
		SecurityID:       "123456",
		SecurityIDSource: "8",
	}
}

// Handler reacts to execution reports and cancel rejects.
type Handler struct {
	logger   *zap.Logger
	sender   session.Sender
	recorder dropcopy.Recorder
	tracker  *order.Tracker
	profile  Profile
	now      func() time.Time
}

// NewHandler creates a client handler. A nil recorder discards drop copies.
func NewHandler(logger *zap.Logger, sender session.Sender, recorder dropcopy.Recorder, profile Profile) *Handler {
	if recorder == nil {
		recorder = dropcopy.Nop{}
	}
	return &Handler{
		logger:   logger,
		sender:   sender,
		recorder: recorder,
		tracker:  order.NewTracker(),
		profile:  profile,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Register subscribes the handler on q and returns the tags it consumes.
func (h *Handler) Register(q *session.Queue) []fixmsg.Tag {
	return []fixmsg.Tag{
		session.Subscribe(q, h.OnExecutionReport),
		session.Subscribe(q, h.OnOrderCancelReject),
	}
}

// Tracker exposes the handler's active orders.
func (h *Handler) Tracker() *order.Tracker {
	return h.tracker
}

// NextClOrdID returns a fresh client order id.
func (h *Handler) NextClOrdID() string {
	return uuid.NewString()
}

// SendNewOrderSingle submits a limit buy built from the profile.
func (h *Handler) SendNewOrderSingle(clOrdID string, sid quickfix.SessionID) (fixmsg.NewOrderSingle, error) {
	nos := fixmsg.NewOrderSingle{
		ClOrdID:          clOrdID,
		HandlInst:        handlInstAutomatedPrivate,
		Symbol:           h.profile.Symbol,
		Side:             enum.Side_BUY,
		OrdType:          enum.OrdType_LIMIT,
		OrderQty:         h.profile.Quantity,
		Price:            h.profile.Price,
		HasPrice:         true,
		SecurityID:       h.profile.SecurityID,
		SecurityIDSource: h.profile.SecurityIDSource,
		TimeInForce:      enum.TimeInForce_DAY,
		TransactTime:     h.now(),
	}

	if err := h.tracker.Track(order.Order{
		ClOrdID:  nos.ClOrdID,
		Symbol:   nos.Symbol,
		Side:     nos.Side,
		OrdType:  nos.OrdType,
		Quantity: nos.OrderQty,
		Price:    nos.Price,
	}); err != nil {
		return fixmsg.NewOrderSingle{}, fmt.Errorf("failed to track order: %w", err)
	}

	if err := h.sender.Send(nos.Build(), sid); err != nil {
		// never reached the wire, so the id is free again
		if _, cerr := h.tracker.RequestCancel(clOrdID); cerr == nil {
			_, _ = h.tracker.AcceptCancel(clOrdID)
		}
		return fixmsg.NewOrderSingle{}, fmt.Errorf("failed to send order %s: %w", clOrdID, err)
	}

	h.logger.Info("order sent",
		zap.String("session", sid.String()),
		zap.String("cl_ord_id", clOrdID),
		zap.String("symbol", nos.Symbol),
		zap.String("qty", nos.OrderQty.String()),
		zap.String("price", nos.Price.String()),
	)

	ev := dropcopy.NewEvent(dropcopy.KindOrderSent, sid.String(), clOrdID)
	ev.Symbol = nos.Symbol
	ev.Side = string(nos.Side)
	ev.Quantity = nos.OrderQty
	ev.Price = nos.Price
	h.record(ev)

	return nos, nil
}

// OnExecutionReport cancels the reported order. The cancel reuses the
// report's ClOrdID as both ClOrdID and OrigClOrdID.
func (h *Handler) OnExecutionReport(er fixmsg.ExecutionReport, sid quickfix.SessionID) error {
	h.logger.Info("execution report received",
		zap.String("session", sid.String()),
		zap.String("cl_ord_id", er.ClOrdID),
		zap.String("order_id", er.OrderID),
		zap.String("ord_status", string(er.OrdStatus)),
		zap.String("exec_id", er.ExecID),
	)

	if er.OrdStatus == enum.OrdStatus_FILLED {
		if _, err := h.tracker.Fill(er.ClOrdID, er.OrderID); err != nil {
			h.logTrackerMiss("fill", er.ClOrdID, err)
		}
		ev := dropcopy.NewEvent(dropcopy.KindOrderFilled, sid.String(), er.ClOrdID)
		ev.OrderID = er.OrderID
		ev.Symbol = er.Symbol
		ev.Side = string(er.Side)
		ev.Quantity = er.CumQty
		ev.Price = er.AvgPx
		h.record(ev)
	}

	cancel := fixmsg.OrderCancelRequest{
		OrigClOrdID:  er.ClOrdID,
		ClOrdID:      er.ClOrdID,
		OrderID:      er.OrderID,
		Symbol:       er.Symbol,
		Side:         er.Side,
		OrderQty:     er.OrderQty,
		TransactTime: h.now(),
	}

	if _, err := h.tracker.RequestCancel(er.ClOrdID); err != nil {
		h.logTrackerMiss("cancel request", er.ClOrdID, err)
	}

	if err := h.sender.Send(cancel.Build(), sid); err != nil {
		return fmt.Errorf("failed to send cancel for %s: %w", er.ClOrdID, err)
	}

	h.logger.Info("cancel requested",
		zap.String("session", sid.String()),
		zap.String("cl_ord_id", cancel.ClOrdID),
		zap.String("order_id", cancel.OrderID),
	)

	ev := dropcopy.NewEvent(dropcopy.KindCancelRequested, sid.String(), cancel.ClOrdID)
	ev.OrderID = cancel.OrderID
	ev.Symbol = cancel.Symbol
	ev.Side = string(cancel.Side)
	ev.Quantity = cancel.OrderQty
	h.record(ev)

	return nil
}

// OnOrderCancelReject closes the order's lifecycle.
func (h *Handler) OnOrderCancelReject(r fixmsg.OrderCancelReject, sid quickfix.SessionID) error {
	h.logger.Info("cancel rejected",
		zap.String("session", sid.String()),
		zap.String("cl_ord_id", r.ClOrdID),
		zap.String("orig_cl_ord_id", r.OrigClOrdID),
		zap.String("order_id", r.OrderID),
		zap.String("ord_status", string(r.OrdStatus)),
		zap.String("text", r.Text),
	)

	if _, err := h.tracker.RejectCancel(r.OrigClOrdID); err != nil {
		h.logTrackerMiss("cancel reject", r.OrigClOrdID, err)
	}

	ev := dropcopy.NewEvent(dropcopy.KindCancelRejected, sid.String(), r.ClOrdID)
	ev.OrderID = r.OrderID
	ev.Text = r.Text
	h.record(ev)

	return nil
}

// Orders that were not sent by this process are still answered; the miss
// is only worth a log line.
func (h *Handler) logTrackerMiss(step, clOrdID string, err error) {
	level := h.logger.Warn
	if errors.Is(err, order.ErrUnknownOrder) {
		level = h.logger.Debug
	}
	level("order tracker not updated",
		zap.String("step", step),
		zap.String("cl_ord_id", clOrdID),
		zap.Error(err),
	)
}

func (h *Handler) record(ev dropcopy.Event) {
	ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
	defer cancel()

	if err := h.recorder.Record(ctx, ev); err != nil {
		h.logger.Warn("failed to record drop copy",
			zap.String("kind", string(ev.Kind)),
			zap.String("cl_ord_id", ev.ClOrdID),
			zap.Error(err),
		)
	}
}
