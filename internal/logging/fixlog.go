package logging

import (
	"fmt"
	"strings"

	"github.com/quickfixgo/quickfix"
	"go.uber.org/zap"
)

// FIXLogFactory routes the engine's message and event logs through zap.
type FIXLogFactory struct {
	logger *zap.Logger
}

// NewFIXLogFactory creates a quickfix.LogFactory backed by logger.
func NewFIXLogFactory(logger *zap.Logger) *FIXLogFactory {
	return &FIXLogFactory{logger: logger.Named("quickfix")}
}

// Create returns the global (non-session) log.
func (f *FIXLogFactory) Create() (quickfix.Log, error) {
	return &fixLog{logger: f.logger}, nil
}

// CreateSessionLog returns a log bound to one session.
func (f *FIXLogFactory) CreateSessionLog(sessionID quickfix.SessionID) (quickfix.Log, error) {
	return &fixLog{logger: f.logger.With(zap.String("session", sessionID.String()))}, nil
}

type fixLog struct {
	logger *zap.Logger
}

func (l *fixLog) OnIncoming(raw []byte) {
	l.logger.Debug("incoming", zap.String("frame", Printable(raw)))
}

func (l *fixLog) OnOutgoing(raw []byte) {
	l.logger.Debug("outgoing", zap.String("frame", Printable(raw)))
}

func (l *fixLog) OnEvent(text string) {
	l.logger.Info(text)
}

func (l *fixLog) OnEventf(format string, a ...interface{}) {
	l.logger.Info(fmt.Sprintf(format, a...))
}

// Printable replaces the SOH field delimiter with '|'.
func Printable(raw []byte) string {
	return strings.ReplaceAll(string(raw), "\x01", "|")
}
