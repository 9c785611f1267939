// Package quotescan audits a FIX message log for quotes whose settlement
// date deviates from the expected one and which later reappear with live
// prices but no settlement date.
package quotescan

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/quickfixgo/quickfix"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	// DefaultExpectedSettlDate is the standard settlement date quotes are checked against.
	DefaultExpectedSettlDate = "20220214"
	// DefaultProgressEvery is the line interval between progress logs.
	DefaultProgressEvery = 10_000_000
	// TimestampPrefixLen is the width of the log timestamp before each frame.
	TimestampPrefixLen = 30

	maxLineBytes = 1 << 20
)

const (
	tagSettlDate  quickfix.Tag = 64
	tagQuoteID    quickfix.Tag = 117
	tagBidPx      quickfix.Tag = 132
	tagOfferPx    quickfix.Tag = 133
	tagBidSize    quickfix.Tag = 134
	tagOfferSize  quickfix.Tag = 135
	tagSecurityID quickfix.Tag = 48
)

var priceTags = []quickfix.Tag{tagBidPx, tagBidSize, tagOfferPx, tagOfferSize}

// Report summarises a scan.
type Report struct {
	Lines       int
	Unparseable int
	SecurityIDs int
	QuoteIDs    int
	NonStandard int
	// Errors holds the offending frames with SOH shown as '|'.
	Errors []string
}

// Scanner accumulates quote statistics across lines.
type Scanner struct {
	logger        *zap.Logger
	expected      string
	progressEvery int

	lines       int
	unparseable int
	securityIDs map[string]struct{}
	quoteIDs    map[string]struct{}
	nonStandard map[string]struct{}
	errors      []string
}

// Option configures a Scanner.
type Option func(*Scanner)

// WithExpectedSettlDate overrides DefaultExpectedSettlDate.
func WithExpectedSettlDate(date string) Option {
	return func(s *Scanner) { s.expected = date }
}

// WithProgressEvery overrides DefaultProgressEvery. Non-positive disables progress logs.
func WithProgressEvery(n int) Option {
	return func(s *Scanner) { s.progressEvery = n }
}

// NewScanner creates an empty scanner.
func NewScanner(logger *zap.Logger, opts ...Option) *Scanner {
	s := &Scanner{
		logger:        logger,
		expected:      DefaultExpectedSettlDate,
		progressEvery: DefaultProgressEvery,
		securityIDs:   make(map[string]struct{}),
		quoteIDs:      make(map[string]struct{}),
		nonStandard:   make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Scan reads r line by line until EOF or ctx is done and returns the
// accumulated report.
func (s *Scanner) Scan(ctx context.Context, r io.Reader) (Report, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	for sc.Scan() {
		if err := ctx.Err(); err != nil {
			return s.Report(), err
		}
		s.ScanLine(sc.Text())
	}
	if err := sc.Err(); err != nil {
		return s.Report(), fmt.Errorf("failed to read log: %w", err)
	}

	return s.Report(), nil
}

// ScanLine processes one log line.
func (s *Scanner) ScanLine(line string) {
	s.lines++
	defer s.maybeLogProgress()

	if line == "" {
		return
	}
	if len(line) <= TimestampPrefixLen {
		s.unparseable++
		return
	}

	frame := line[TimestampPrefixLen:]
	msg := quickfix.NewMessage()
	if err := quickfix.ParseMessage(msg, bytes.NewBufferString(frame)); err != nil {
		s.unparseable++
		s.logger.Debug("skipping unparseable line", zap.Int("line", s.lines), zap.Error(err))
		return
	}

	s.inspect(msg, frame)
}

func (s *Scanner) inspect(msg *quickfix.Message, frame string) {
	quoteID, err := msg.Body.GetString(tagQuoteID)
	if err != nil {
		return
	}
	securityID, err := msg.Body.GetString(tagSecurityID)
	if err != nil {
		return
	}

	s.quoteIDs[quoteID] = struct{}{}
	s.securityIDs[securityID] = struct{}{}

	settlDate, err := msg.Body.GetString(tagSettlDate)
	hasSettlDate := err == nil
	if hasSettlDate && settlDate != s.expected {
		s.nonStandard[quoteID] = struct{}{}
	}

	if _, flagged := s.nonStandard[quoteID]; !flagged || hasSettlDate {
		return
	}

	if hasLivePrice(msg) {
		s.logger.Warn("invalid quote", zap.String("quote_id", quoteID), zap.String("security_id", securityID))
		s.errors = append(s.errors, strings.ReplaceAll(frame, "\x01", "|"))
	}
}

// A garbled price counts as live.
func hasLivePrice(msg *quickfix.Message) bool {
	for _, t := range priceTags {
		raw, err := msg.Body.GetString(t)
		if err != nil {
			continue
		}
		v, perr := decimal.NewFromString(raw)
		if perr != nil || !v.IsZero() {
			return true
		}
	}
	return false
}

func (s *Scanner) maybeLogProgress() {
	if s.progressEvery <= 0 || s.lines%s.progressEvery != 0 {
		return
	}
	r := s.Report()
	s.logger.Info("scan progress",
		zap.Int("lines", r.Lines),
		zap.Int("unique_security_ids", r.SecurityIDs),
		zap.Int("unique_quote_ids", r.QuoteIDs),
		zap.Int("non_standard_quote_ids", r.NonStandard),
		zap.Int("errors", len(r.Errors)),
	)
}

// Report returns the statistics so far.
func (s *Scanner) Report() Report {
	return Report{
		Lines:       s.lines,
		Unparseable: s.unparseable,
		SecurityIDs: len(s.securityIDs),
		QuoteIDs:    len(s.quoteIDs),
		NonStandard: len(s.nonStandard),
		Errors:      append([]string(nil), s.errors...),
	}
}
