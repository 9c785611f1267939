package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/ismaiel54/fix-order-lifecycle/internal/logging"
	"github.com/ismaiel54/fix-order-lifecycle/internal/quotescan"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintf(os.Stderr, "Usage: %s <log-file> [expected-settl-date]\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Example: %s quotes.log %s\n", os.Args[0], quotescan.DefaultExpectedSettlDate)
		os.Exit(1)
	}

	logger, err := logging.NewLogger("fixutil", "info")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	opts := []quotescan.Option{}
	if len(os.Args) >= 3 {
		opts = append(opts, quotescan.WithExpectedSettlDate(os.Args[2]))
	}

	f, err := os.Open(os.Args[1])
	if err != nil {
		logger.Error("failed to open log file", zap.String("path", os.Args[1]), zap.Error(err))
		os.Exit(1)
	}
	defer f.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	report, err := quotescan.NewScanner(logger, opts...).Scan(ctx, f)
	if err != nil {
		logger.Error("scan aborted", zap.Error(err))
	}

	logger.Info("scan complete",
		zap.Int("lines", report.Lines),
		zap.Int("unparseable", report.Unparseable),
		zap.Int("security_ids", report.SecurityIDs),
		zap.Int("quote_ids", report.QuoteIDs),
		zap.Int("non_standard_quote_ids", report.NonStandard),
		zap.Int("errors", len(report.Errors)),
	)

	for _, frame := range report.Errors {
		fmt.Println(frame)
	}

	if err != nil {
		os.Exit(1)
	}
}
