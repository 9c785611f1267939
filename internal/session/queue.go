package session

import (
	"fmt"

	"github.com/quickfixgo/quickfix"

	"github.com/ismaiel54/fix-order-lifecycle/internal/eventqueue"
	"github.com/ismaiel54/fix-order-lifecycle/internal/fixmsg"
)

// Queue carries decoded application messages from the engine's goroutines
// to the processing goroutine.
type Queue = eventqueue.Queue[fixmsg.Tag, fixmsg.Message, quickfix.SessionID]

// NewQueue creates an empty Queue.
func NewQueue(opts ...eventqueue.Option) *Queue {
	return eventqueue.New[fixmsg.Tag, fixmsg.Message, quickfix.SessionID](opts...)
}

// Subscribe registers fn for the message kind T and returns T's tag.
func Subscribe[T fixmsg.Message](q *Queue, fn func(T, quickfix.SessionID) error) fixmsg.Tag {
	var zero T
	tag := zero.Tag()

	q.AppendListener(tag, func(m fixmsg.Message, sid quickfix.SessionID) error {
		typed, ok := m.(T)
		if !ok {
			return fmt.Errorf("listener for %s received %T", tag.Name(), m)
		}
		return fn(typed, sid)
	})
	return tag
}
