package quotescan

import (
	"context"
	"strings"
	"testing"

	"github.com/quickfixgo/quickfix"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

const prefix = "20220214-10:00:00.000000000 : "

func quoteLine(fields map[quickfix.Tag]string) string {
	msg := quickfix.NewMessage()
	msg.Header.SetString(quickfix.Tag(8), "FIX.4.4")
	msg.Header.SetString(quickfix.Tag(35), "S")
	for t, v := range fields {
		msg.Body.SetString(t, v)
	}
	return prefix + msg.String()
}

func TestScan_FlagsPricedNonStandardQuotes(t *testing.T) {
	lines := []string{
		quoteLine(map[quickfix.Tag]string{tagQuoteID: "Q1", tagSecurityID: "A", tagSettlDate: "20220214", tagBidPx: "10"}),
		quoteLine(map[quickfix.Tag]string{tagQuoteID: "Q2", tagSecurityID: "B", tagSettlDate: "20220215"}),
		quoteLine(map[quickfix.Tag]string{tagQuoteID: "Q2", tagSecurityID: "B", tagBidPx: "0", tagOfferPx: "0.00"}),
		quoteLine(map[quickfix.Tag]string{tagQuoteID: "Q2", tagSecurityID: "B", tagBidPx: "101.5", tagBidSize: "0"}),
		"",
		"garbage",
		prefix + "not a fix frame",
		quoteLine(map[quickfix.Tag]string{tagQuoteID: "Q1", tagSecurityID: "A", tagOfferSize: "5"}),
	}

	s := NewScanner(zap.NewNop())
	report, err := s.Scan(context.Background(), strings.NewReader(strings.Join(lines, "\n")))
	require.NoError(t, err)

	assert.Equal(t, 8, report.Lines)
	assert.Equal(t, 2, report.Unparseable)
	assert.Equal(t, 2, report.SecurityIDs)
	assert.Equal(t, 2, report.QuoteIDs)
	assert.Equal(t, 1, report.NonStandard)

	require.Len(t, report.Errors, 1)
	assert.Contains(t, report.Errors[0], "|117=Q2|")
	assert.Contains(t, report.Errors[0], "132=101.5")
	assert.NotContains(t, report.Errors[0], "\x01")
}

func TestScan_CustomSettlDate(t *testing.T) {
	s := NewScanner(zap.NewNop(), WithExpectedSettlDate("20220215"))
	s.ScanLine(quoteLine(map[quickfix.Tag]string{tagQuoteID: "Q1", tagSecurityID: "A", tagSettlDate: "20220214"}))
	s.ScanLine(quoteLine(map[quickfix.Tag]string{tagQuoteID: "Q2", tagSecurityID: "A", tagSettlDate: "20220215"}))

	assert.Equal(t, 1, s.Report().NonStandard)
	assert.Equal(t, 1, s.Report().SecurityIDs)
}

func TestScan_FramesWithoutQuoteIgnored(t *testing.T) {
	s := NewScanner(zap.NewNop())
	s.ScanLine(quoteLine(map[quickfix.Tag]string{tagSecurityID: "A", tagBidPx: "1"}))

	r := s.Report()
	assert.Equal(t, 1, r.Lines)
	assert.Equal(t, 0, r.Unparseable)
	assert.Equal(t, 0, r.SecurityIDs)
}

func TestScan_LogsProgress(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	s := NewScanner(zap.New(core), WithProgressEvery(2))

	for i := 0; i < 5; i++ {
		s.ScanLine("")
	}
	assert.Equal(t, 2, logs.FilterMessage("scan progress").Len())
}

func TestScan_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := NewScanner(zap.NewNop()).Scan(ctx, strings.NewReader("a\nb\n"))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, report.Lines)
}
