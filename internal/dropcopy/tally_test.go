package dropcopy

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ismaiel54/fix-order-lifecycle/internal/msg"
)

func TestTally(t *testing.T) {
	tally := NewTally()
	tally.Add(msg.LifecycleEventMsg{EventID: "e1", Kind: "order_sent", ClOrdID: "C1"})
	tally.Add(msg.LifecycleEventMsg{EventID: "e2", Kind: "cancel_requested", ClOrdID: "C1"})
	tally.Add(msg.LifecycleEventMsg{EventID: "e2", Kind: "cancel_requested", ClOrdID: "C1"})
	tally.Add(msg.LifecycleEventMsg{EventID: "e3", Kind: "order_sent", ClOrdID: "C2"})

	assert.Equal(t, 4, tally.Total())
	assert.Equal(t, 2, tally.Orders())
	assert.Equal(t, map[string]int{"order_sent": 2, "cancel_requested": 2}, tally.Kinds())
	assert.Equal(t, []string{"e2"}, tally.Duplicates())
	assert.Equal(t, 2, tally.Count("e2"))
}

func TestService_Disabled(t *testing.T) {
	svc, err := NewService(ServiceConfig{Enabled: false}, zap.NewNop())
	require.NoError(t, err)
	defer svc.Close()

	assert.IsType(t, Nop{}, svc.Recorder())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.NoError(t, svc.Run(ctx, nil))
}
