package logging

import (
	"testing"

	"github.com/quickfixgo/quickfix"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewLogger_LevelFallback(t *testing.T) {
	logger, err := NewLogger("fixserver", "not-a-level")
	require.NoError(t, err)
	assert.True(t, logger.Core().Enabled(zapcore.InfoLevel))
	assert.False(t, logger.Core().Enabled(zapcore.DebugLevel))

	logger, err = NewLogger("fixserver", "debug")
	require.NoError(t, err)
	assert.True(t, logger.Core().Enabled(zapcore.DebugLevel))
}

func TestFIXLogFactory_SessionLog(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	factory := NewFIXLogFactory(zap.New(core))

	sid := quickfix.SessionID{BeginString: "FIX.4.2", SenderCompID: "CLIENT", TargetCompID: "SERVER"}
	log, err := factory.CreateSessionLog(sid)
	require.NoError(t, err)

	log.OnIncoming([]byte("8=FIX.4.2\x0135=D\x01"))
	log.OnEventf("Created session: %s", "x")

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, "incoming", entries[0].Message)
	assert.Equal(t, "8=FIX.4.2|35=D|", entries[0].ContextMap()["frame"])
	assert.Equal(t, sid.String(), entries[0].ContextMap()["session"])
	assert.Equal(t, "Created session: x", entries[1].Message)
}
