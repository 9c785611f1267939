// Package server implements the order-accepting side of the lifecycle: every
// valid limit order is filled in full and every cancel is refused.
package server

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/quickfixgo/enum"
	"github.com/quickfixgo/quickfix"
	"github.com/quickfixgo/tag"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/ismaiel54/fix-order-lifecycle/internal/dropcopy"
	"github.com/ismaiel54/fix-order-lifecycle/internal/fixmsg"
	"github.com/ismaiel54/fix-order-lifecycle/internal/order"
	"github.com/ismaiel54/fix-order-lifecycle/internal/session"
)

const (
	recordTimeout = 2 * time.Second

	// OrderID placeholder when the cancel request names none
	unknownOrderID   = "NONE"
	cancelRejectText = "order already done for day"
)

var errMissingPrice = errors.New("limit order without price")

// Handler fills orders and rejects cancels.
type Handler struct {
	logger   *zap.Logger
	sender   session.Sender
	recorder dropcopy.Recorder
	ids      *order.IDGenerator
}

// NewHandler creates a server handler. A nil recorder discards drop copies.
func NewHandler(logger *zap.Logger, sender session.Sender, recorder dropcopy.Recorder, ids *order.IDGenerator) *Handler {
	if recorder == nil {
		recorder = dropcopy.Nop{}
	}
	if ids == nil {
		ids = order.NewIDGenerator()
	}
	return &Handler{
		logger:   logger,
		sender:   sender,
		recorder: recorder,
		ids:      ids,
	}
}

// Register subscribes the handler on q and returns the tags it consumes.
func (h *Handler) Register(q *session.Queue) []fixmsg.Tag {
	return []fixmsg.Tag{
		session.Subscribe(q, h.HandleNewOrderSingle),
		session.Subscribe(q, h.HandleOrderCancelRequest),
	}
}

// Validate implements session.Validator. Orders other than limit orders
// are refused on OrdType; a limit order must carry a price.
func (h *Handler) Validate(m fixmsg.Message) error {
	nos, ok := m.(fixmsg.NewOrderSingle)
	if !ok {
		return nil
	}
	return validateOrder(nos)
}

func validateOrder(nos fixmsg.NewOrderSingle) error {
	if err := order.ValidateOrdType(nos.OrdType); err != nil {
		return session.NewRejection(session.KindBadTagValue, tag.OrdType, err)
	}
	if !nos.HasPrice {
		return session.NewRejection(session.KindMissingField, tag.Price, errMissingPrice)
	}
	return nil
}

// HandleNewOrderSingle fills the order in full at its limit price.
func (h *Handler) HandleNewOrderSingle(nos fixmsg.NewOrderSingle, sid quickfix.SessionID) error {
	if err := validateOrder(nos); err != nil {
		return fmt.Errorf("refusing order %s: %w", nos.ClOrdID, err)
	}

	er := fixmsg.ExecutionReport{
		OrderID:       h.ids.NextOrderID(),
		ExecID:        h.ids.NextExecID(),
		ClOrdID:       nos.ClOrdID,
		ExecTransType: enum.ExecTransType_NEW,
		ExecType:      enum.ExecType_FILL,
		OrdStatus:     enum.OrdStatus_FILLED,
		Symbol:        nos.Symbol,
		Side:          nos.Side,
		OrderQty:      nos.OrderQty,
		LeavesQty:     decimal.Zero,
		CumQty:        nos.OrderQty,
		AvgPx:         nos.Price,
		LastShares:    nos.OrderQty,
		LastPx:        nos.Price,
	}

	if err := h.sender.Send(er.Build(), sid); err != nil {
		return fmt.Errorf("failed to send execution report for %s: %w", nos.ClOrdID, err)
	}

	h.logger.Info("order filled",
		zap.String("session", sid.String()),
		zap.String("cl_ord_id", er.ClOrdID),
		zap.String("order_id", er.OrderID),
		zap.String("exec_id", er.ExecID),
		zap.String("symbol", er.Symbol),
		zap.String("qty", er.CumQty.String()),
		zap.String("price", er.AvgPx.String()),
	)

	ev := dropcopy.NewEvent(dropcopy.KindExecutionSent, sid.String(), er.ClOrdID)
	ev.OrderID = er.OrderID
	ev.Symbol = er.Symbol
	ev.Side = string(er.Side)
	ev.Quantity = er.CumQty
	ev.Price = er.AvgPx
	h.record(ev)

	return nil
}

// HandleOrderCancelRequest refuses the cancel: orders are already done for
// the day once filled.
func (h *Handler) HandleOrderCancelRequest(req fixmsg.OrderCancelRequest, sid quickfix.SessionID) error {
	orderID := req.OrderID
	if orderID == "" {
		orderID = unknownOrderID
	}

	reject := fixmsg.OrderCancelReject{
		OrderID:          orderID,
		ClOrdID:          req.ClOrdID,
		OrigClOrdID:      req.OrigClOrdID,
		OrdStatus:        enum.OrdStatus_DONE_FOR_DAY,
		CxlRejResponseTo: enum.CxlRejResponseTo_ORDER_CANCEL_REQUEST,
		Text:             cancelRejectText,
	}

	if err := h.sender.Send(reject.Build(), sid); err != nil {
		return fmt.Errorf("failed to send cancel reject for %s: %w", req.ClOrdID, err)
	}

	h.logger.Info("cancel rejected",
		zap.String("session", sid.String()),
		zap.String("cl_ord_id", reject.ClOrdID),
		zap.String("orig_cl_ord_id", reject.OrigClOrdID),
		zap.String("order_id", reject.OrderID),
	)

	ev := dropcopy.NewEvent(dropcopy.KindCancelRejectSent, sid.String(), reject.ClOrdID)
	ev.OrderID = reject.OrderID
	ev.Text = reject.Text
	h.record(ev)

	return nil
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
