package session

import (
	"errors"
	"fmt"

	"github.com/quickfixgo/quickfix"
)

// RejectKind classifies why a message is refused.
type RejectKind int

const (
	KindUnknownField RejectKind = iota + 1
	KindMissingField
	KindBadFormat
	KindBadTagValue
	KindUnsupportedMessageType
	KindLogonRejected
	KindDoNotSend
)

func (k RejectKind) String() string {
	switch k {
	case KindUnknownField:
		return "unknown_field"
	case KindMissingField:
		return "missing_field"
	case KindBadFormat:
		return "bad_format"
	case KindBadTagValue:
		return "bad_tag_value"
	case KindUnsupportedMessageType:
		return "unsupported_message_type"
	case KindLogonRejected:
		return "logon_rejected"
	case KindDoNotSend:
		return "do_not_send"
	default:
		return "unknown"
	}
}

// Rejection is a domain-level refusal that the adapter translates into the
// engine's error values.
type Rejection struct {
	Kind RejectKind
	Tag  quickfix.Tag
	Text string
	Err  error
}

// NewRejection wraps err as a rejection of the given kind on tag.
func NewRejection(kind RejectKind, tag quickfix.Tag, err error) *Rejection {
	r := &Rejection{Kind: kind, Tag: tag, Err: err}
	if err != nil {
		r.Text = err.Error()
	}
	return r
}

func (r *Rejection) Error() string {
	if r.Tag != 0 {
		return fmt.Sprintf("%s on tag %d: %s", r.Kind, r.Tag, r.Text)
	}
	return fmt.Sprintf("%s: %s", r.Kind, r.Text)
}

func (r *Rejection) Unwrap() error { return r.Err }

// EngineError returns the quickfix error value the engine expects for r.
func (r *Rejection) EngineError() error {
	switch r.Kind {
	case KindUnknownField:
		return quickfix.InvalidTagNumber(r.Tag)
	case KindMissingField:
		return quickfix.RequiredTagMissing(r.Tag)
	case KindBadFormat:
		return quickfix.IncorrectDataFormatForValue(r.Tag)
	case KindBadTagValue:
		return quickfix.ValueIsIncorrect(r.Tag)
	case KindUnsupportedMessageType:
		return quickfix.UnsupportedMessageType()
	case KindLogonRejected:
		return quickfix.RejectLogon{Text: r.Text}
	case KindDoNotSend:
		return quickfix.ErrDoNotSend
	default:
		return quickfix.NewBusinessMessageRejectError(r.Error(), 0, nil)
	}
}

// AsReject converts err into a reject the engine can answer with. Errors that
// are neither a Rejection nor an engine reject become a business reject.
func AsReject(err error) quickfix.MessageRejectError {
	if err == nil {
		return nil
	}

	var rej *Rejection
	if errors.As(err, &rej) {
		if mre, ok := rej.EngineError().(quickfix.MessageRejectError); ok {
			return mre
		}
	}

	var mre quickfix.MessageRejectError
	if errors.As(err, &mre) {
		return mre
	}

	return quickfix.NewBusinessMessageRejectError(err.Error(), 0, nil)
}
