package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ismaiel54/fix-order-lifecycle/internal/config"
	"github.com/ismaiel54/fix-order-lifecycle/internal/dropcopy"
	"github.com/ismaiel54/fix-order-lifecycle/internal/logging"
	"github.com/ismaiel54/fix-order-lifecycle/internal/msg"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintf(os.Stderr, "Usage: %s <duration_seconds> [brokers]\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Example: %s 30 127.0.0.1:9092\n", os.Args[0])
		os.Exit(1)
	}

	var durationSeconds int
	if _, err := fmt.Sscanf(os.Args[1], "%d", &durationSeconds); err != nil || durationSeconds <= 0 {
		fmt.Fprintf(os.Stderr, "Invalid duration: %s\n", os.Args[1])
		os.Exit(1)
	}

	brokers := "127.0.0.1:9092"
	if len(os.Args) >= 3 {
		brokers = os.Args[2]
	}
	brokerList := config.SplitList(brokers)

	logger, err := logging.NewLogger("dropcopy", "info")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("starting drop-copy tail",
		zap.Int("duration_seconds", durationSeconds),
		zap.Strings("brokers", brokerList),
	)

	// A fresh group each run so the whole topic is replayed.
	group := "dropcopy-tail-" + uuid.NewString()
	consumer, err := msg.NewConsumer(msg.NewConfig(brokerList, "dropcopy-tail"), group, []string{msg.TopicLifecycle}, true, logger)
	if err != nil {
		logger.Fatal("failed to create consumer", zap.Error(err))
	}
	defer consumer.Close()

	tally := dropcopy.NewTally()

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(durationSeconds)*time.Second)
	defer cancel()

	err = consumer.Run(ctx, func(ctx context.Context, rec msg.Record) error {
		var ev msg.LifecycleEventMsg
		if err := json.Unmarshal(rec.Value, &ev); err != nil {
			logger.Warn("failed to unmarshal event", zap.Error(err))
			return nil
		}
		tally.Add(ev)

		logger.Debug("consumed event",
			zap.String("event_id", ev.EventID),
			zap.String("kind", ev.Kind),
			zap.String("cl_ord_id", ev.ClOrdID),
			zap.String("session", ev.Session),
			zap.Int32("partition", rec.Partition),
			zap.Int64("offset", rec.Offset),
		)
		return nil
	})
	if err != nil && !errors.Is(err, context.DeadlineExceeded) {
		logger.Error("consumer error", zap.Error(err))
	}

	kinds := tally.Kinds()
	names := make([]string, 0, len(kinds))
	for k := range kinds {
		names = append(names, k)
	}
	sort.Strings(names)

	fmt.Println("\n=== Drop Copy Summary ===")
	fmt.Printf("Total events consumed: %d\n", tally.Total())
	fmt.Printf("Distinct ClOrdIDs: %d\n", tally.Orders())
	for _, k := range names {
		fmt.Printf("  %-20s %d\n", k, kinds[k])
	}

	dups := tally.Duplicates()
	fmt.Printf("Duplicate event IDs: %d\n", len(dups))
	if len(dups) > 0 {
		for _, id := range dups {
			fmt.Printf("  Event ID: %s, Count: %d\n", id, tally.Count(id))
		}
		fmt.Println("\nFAILED: duplicate drop-copy events detected")
		os.Exit(1)
	}

	fmt.Println("\nOK: no duplicate drop-copy events")
}
