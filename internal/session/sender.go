package session

import "github.com/quickfixgo/quickfix"

// Sender hands an outbound message to the engine.
type Sender interface {
	Send(msg quickfix.Messagable, sid quickfix.SessionID) error
}

// SenderFunc adapts a function to Sender.
type SenderFunc func(msg quickfix.Messagable, sid quickfix.SessionID) error

func (f SenderFunc) Send(msg quickfix.Messagable, sid quickfix.SessionID) error {
	return f(msg, sid)
}

// EngineSender sends through quickfix.SendToTarget.
type EngineSender struct{}

func (EngineSender) Send(msg quickfix.Messagable, sid quickfix.SessionID) error {
	return quickfix.SendToTarget(msg, sid)
}
