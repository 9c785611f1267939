// Package session binds the quickfix engine to the event queue: inbound
// application messages are decoded, validated and enqueued, and lifecycle
// callbacks are logged and surfaced to the process.
package session

import (
	"sync"

	"github.com/quickfixgo/quickfix"
	"github.com/quickfixgo/tag"
	"go.uber.org/zap"

	"github.com/ismaiel54/fix-order-lifecycle/internal/fixmsg"
)

const msgTypeLogon = "A"

// Validator checks a decoded message before it is enqueued. It runs on the
// engine's goroutine so its rejection can be answered in-session.
type Validator interface {
	Validate(msg fixmsg.Message) error
}

// Readiness is told whether at least one session is logged on.
type Readiness interface {
	SetSessionReady(ready bool)
}

var _ quickfix.Application = (*Adapter)(nil)

// Adapter implements quickfix.Application.
type Adapter struct {
	logger     *zap.Logger
	queue      *Queue
	subscribed map[fixmsg.Tag]struct{}
	validator  Validator
	readiness  Readiness
	allowed    map[string]struct{}
	logons     chan quickfix.SessionID

	mu       sync.Mutex
	loggedOn map[quickfix.SessionID]struct{}
}

// Option configures an Adapter.
type Option func(*Adapter)

// WithValidator runs v on every decoded message before enqueueing.
func WithValidator(v Validator) Option {
	return func(a *Adapter) { a.validator = v }
}

// WithReadiness reports session logon state to r.
func WithReadiness(r Readiness) Option {
	return func(a *Adapter) { a.readiness = r }
}

// WithAllowedSenderCompIDs rejects logons from any other SenderCompID.
// An empty list allows everyone.
func WithAllowedSenderCompIDs(ids []string) Option {
	return func(a *Adapter) {
		for _, id := range ids {
			a.allowed[id] = struct{}{}
		}
	}
}

// NewAdapter creates an adapter that enqueues the given message kinds on q.
// Any other application message is refused as unsupported.
func NewAdapter(logger *zap.Logger, q *Queue, tags []fixmsg.Tag, opts ...Option) *Adapter {
	a := &Adapter{
		logger:     logger,
		queue:      q,
		subscribed: make(map[fixmsg.Tag]struct{}, len(tags)),
		allowed:    make(map[string]struct{}),
		logons:     make(chan quickfix.SessionID, 16),
		loggedOn:   make(map[quickfix.SessionID]struct{}),
	}
	for _, t := range tags {
		a.subscribed[t] = struct{}{}
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Logons delivers each session as it logs on.
func (a *Adapter) Logons() <-chan quickfix.SessionID {
	return a.logons
}

// OnCreate is called when the engine creates a session.
func (a *Adapter) OnCreate(sid quickfix.SessionID) {
	a.logger.Info("session created", sessionField(sid))
}

// OnLogon is called once the session is established.
func (a *Adapter) OnLogon(sid quickfix.SessionID) {
	a.logger.Info("session logged on", sessionField(sid))

	a.mu.Lock()
	a.loggedOn[sid] = struct{}{}
	a.mu.Unlock()

	if a.readiness != nil {
		a.readiness.SetSessionReady(true)
	}

	select {
	case a.logons <- sid:
	default:
		a.logger.Warn("logon notification dropped, nobody is listening", sessionField(sid))
	}
}

// OnLogout is called when the session goes away, whatever the reason.
func (a *Adapter) OnLogout(sid quickfix.SessionID) {
	a.logger.Info("session logged out", sessionField(sid))

	a.mu.Lock()
	delete(a.loggedOn, sid)
	remaining := len(a.loggedOn)
	a.mu.Unlock()

	if a.readiness != nil && remaining == 0 {
		a.readiness.SetSessionReady(false)
	}
}

// ToAdmin is called before an admin message is sent.
func (a *Adapter) ToAdmin(msg *quickfix.Message, sid quickfix.SessionID) {
	a.logger.Debug("admin message out", sessionField(sid), msgTypeField(msg))
}

// FromAdmin is called for each inbound admin message. Logons from a
// SenderCompID outside the allow-list are refused.
func (a *Adapter) FromAdmin(msg *quickfix.Message, sid quickfix.SessionID) quickfix.MessageRejectError {
	a.logger.Debug("admin message in", sessionField(sid), msgTypeField(msg))

	if len(a.allowed) == 0 {
		return nil
	}
	if msgType, _ := msg.Header.GetString(tag.MsgType); msgType != msgTypeLogon {
		return nil
	}

	sender, _ := msg.Header.GetString(tag.SenderCompID)
	if _, ok := a.allowed[sender]; ok {
		return nil
	}

	a.logger.Warn("rejecting logon", sessionField(sid), zap.String("sender_comp_id", sender))
	return AsReject(&Rejection{Kind: KindLogonRejected, Text: "sender " + sender + " not allowed"})
}

// ToApp is called before an application message is sent. Possible
// duplicates are suppressed rather than resent.
func (a *Adapter) ToApp(msg *quickfix.Message, sid quickfix.SessionID) error {
	if possDup, err := msg.Header.GetBool(tag.PossDupFlag); err == nil && possDup {
		a.logger.Info("suppressing possible duplicate", sessionField(sid), msgTypeField(msg))
		return (&Rejection{Kind: KindDoNotSend, Text: "possible duplicate"}).EngineError()
	}

	a.logger.Debug("application message out", sessionField(sid), msgTypeField(msg))
	return nil
}

// FromApp decodes, validates and enqueues an inbound application message.
// It never blocks on handlers.
func (a *Adapter) FromApp(msg *quickfix.Message, sid quickfix.SessionID) quickfix.MessageRejectError {
	t, rej := fixmsg.TagOf(msg)
	if rej != nil {
		return rej
	}

	if _, ok := a.subscribed[t]; !ok {
		a.logger.Warn("unsupported message type", sessionField(sid), zap.String("msg_type", t.String()))
		return AsReject(&Rejection{Kind: KindUnsupportedMessageType, Text: t.Name()})
	}

	decoded, rej := fixmsg.Decode(msg)
	if rej != nil {
		a.logger.Warn("failed to decode message",
			sessionField(sid),
			zap.String("msg_type", t.String()),
			zap.Error(rej),
		)
		return rej
	}

	if a.validator != nil {
		if err := a.validator.Validate(decoded); err != nil {
			a.logger.Warn("message failed validation",
				sessionField(sid),
				zap.String("msg_type", t.String()),
				zap.String("cl_ord_id", decoded.CorrelationID()),
				zap.Error(err),
			)
			return AsReject(err)
		}
	}

	if err := a.queue.Enqueue(t, decoded, sid); err != nil {
		a.logger.Error("failed to enqueue message",
			sessionField(sid),
			zap.String("msg_type", t.String()),
			zap.String("cl_ord_id", decoded.CorrelationID()),
			zap.Error(err),
		)
	}
	return nil
}

func sessionField(sid quickfix.SessionID) zap.Field {
	return zap.String("session", sid.String())
}

func msgTypeField(msg *quickfix.Message) zap.Field {
	msgType, _ := msg.Header.GetString(tag.MsgType)
	return zap.String("msg_type", msgType)
}
