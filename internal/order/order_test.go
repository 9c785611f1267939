package order

import (
	"sync"
	"testing"

	"github.com/quickfixgo/enum"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newOrder(clOrdID string) Order {
	return Order{
		ClOrdID:  clOrdID,
		Symbol:   "ESZ1",
		Side:     enum.Side_BUY,
		OrdType:  enum.OrdType_LIMIT,
		Quantity: decimal.NewFromInt(33),
		Price:    decimal.NewFromInt(1912),
	}
}

func TestTracker_FullLifecycle(t *testing.T) {
	tr := NewTracker()
	require.NoError(t, tr.Track(newOrder("C1")))

	o, ok := tr.Get("C1")
	require.True(t, ok)
	assert.Equal(t, StateSent, o.State)

	o, err := tr.Fill("C1", "O1")
	require.NoError(t, err)
	assert.Equal(t, StateFilled, o.State)
	assert.Equal(t, "O1", o.OrderID)

	o, err = tr.RequestCancel("C1")
	require.NoError(t, err)
	assert.Equal(t, StateCancelRequested, o.State)

	o, err = tr.RejectCancel("C1")
	require.NoError(t, err)
	assert.Equal(t, StateCancelRejected, o.State)

	_, ok = tr.Get("C1")
	assert.False(t, ok, "terminal orders are forgotten")
	assert.Equal(t, 0, tr.Active())
}

func TestTracker_DuplicateActiveClOrdID(t *testing.T) {
	tr := NewTracker()
	require.NoError(t, tr.Track(newOrder("C1")))

	err := tr.Track(newOrder("C1"))
	assert.ErrorIs(t, err, ErrDuplicateClOrdID)

	// once terminal, the id can be reused
	_, err = tr.RequestCancel("C1")
	require.NoError(t, err)
	_, err = tr.AcceptCancel("C1")
	require.NoError(t, err)
	assert.NoError(t, tr.Track(newOrder("C1")))
}

func TestTracker_InvalidTransitions(t *testing.T) {
	tr := NewTracker()

	_, err := tr.Fill("missing", "O1")
	assert.ErrorIs(t, err, ErrUnknownOrder)

	require.NoError(t, tr.Track(newOrder("C1")))
	_, err = tr.RejectCancel("C1")
	assert.ErrorIs(t, err, ErrInvalidTransition)

	o, ok := tr.Get("C1")
	require.True(t, ok)
	assert.Equal(t, StateSent, o.State, "failed transition leaves state alone")
}

func TestCanTransition(t *testing.T) {
	assert.True(t, CanTransition(StateSent, StateFilled))
	assert.True(t, CanTransition(StateSent, StateCancelRequested))
	assert.False(t, CanTransition(StateFilled, StateSent))
	assert.False(t, CanTransition(StateCancelRejected, StateCancelRequested))
	assert.True(t, StateCancelAccepted.Terminal())
	assert.False(t, StateFilled.Terminal())
	assert.Equal(t, "CANCEL_REQUESTED", StateCancelRequested.String())
}

func TestValidateOrdType(t *testing.T) {
	assert.NoError(t, ValidateOrdType(enum.OrdType_LIMIT))
	assert.ErrorIs(t, ValidateOrdType(enum.OrdType_MARKET), ErrUnsupportedOrdType)
}

func TestIDGenerator_Unique(t *testing.T) {
	g := NewIDGenerator()

	var mu sync.Mutex
	seen := make(map[string]bool)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 500; j++ {
				ids := []string{g.NextOrderID(), g.NextExecID()}
				mu.Lock()
				for _, id := range ids {
					assert.False(t, seen[id], "duplicate id %s", id)
					seen[id] = true
				}
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Len(t, seen, 8*500*2)
	assert.NotEqual(t, g.NextOrderID(), g.NextExecID())
}
