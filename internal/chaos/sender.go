package chaos

import (
	"context"

	"github.com/quickfixgo/quickfix"
	"github.com/quickfixgo/tag"

	"github.com/ismaiel54/fix-order-lifecycle/internal/session"
)

// Sender wraps a session.Sender and loses or delays messages bound for the
// configured counterparty. A dropped message is reported as sent.
type Sender struct {
	next  session.Sender
	chaos *Chaos
}

// NewSender decorates next.
func NewSender(next session.Sender, c *Chaos) *Sender {
	return &Sender{next: next, chaos: c}
}

func (s *Sender) Send(msg quickfix.Messagable, sid quickfix.SessionID) error {
	msgType, _ := msg.ToMessage().Header.GetString(tag.MsgType)

	if s.chaos.MaybeDrop(sid.TargetCompID, msgType) {
		return nil
	}
	if err := s.chaos.MaybeDelay(context.Background(), sid.TargetCompID, msgType); err != nil {
		return err
	}
	return s.next.Send(msg, sid)
}
