// Package chaos injects deterministic message loss and latency into
// outbound FIX traffic.
package chaos

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Chaos provides deterministic failure injection
type Chaos struct {
	cfg      Config
	msgTypes map[string]struct{}
	logger   *zap.Logger
	rng      *rand.Rand
	mu       sync.Mutex
	start    time.Time
}

// New creates a new Chaos instance. A profile overrides the individual
// drop and delay settings it names.
func New(cfg *Config, logger *zap.Logger) *Chaos {
	c := &Chaos{
		cfg:      *cfg,
		msgTypes: make(map[string]struct{}, len(cfg.MsgTypes)),
		logger:   logger,
		rng:      rand.New(rand.NewSource(cfg.Seed)),
		start:    time.Now(),
	}
	for _, t := range cfg.MsgTypes {
		c.msgTypes[t] = struct{}{}
	}

	if cfg.Profile != "" {
		dropPct, delayMin, delayMax, err := ParseProfile(cfg.Profile)
		if err != nil {
			logger.Warn("failed to parse chaos profile", zap.Error(err))
		} else {
			if dropPct > 0 {
				c.cfg.DropPct = dropPct
			}
			if delayMin > 0 || delayMax > 0 {
				c.cfg.DelayMsMin = delayMin
				c.cfg.DelayMsMax = delayMax
			}
		}
	}

	return c
}

// EnabledFor reports whether chaos applies to a message of msgType bound
// for compID.
func (c *Chaos) EnabledFor(compID, msgType string) bool {
	if !c.cfg.Enabled {
		return false
	}

	if c.cfg.WindowMs > 0 && time.Since(c.start).Milliseconds() > int64(c.cfg.WindowMs) {
		return false
	}

	if c.cfg.TargetCompID != "" && c.cfg.TargetCompID != compID {
		return false
	}

	if len(c.msgTypes) > 0 {
		if _, ok := c.msgTypes[msgType]; !ok {
			return false
		}
	}

	return true
}

// MaybeDelay sleeps for a random delay within the configured range
func (c *Chaos) MaybeDelay(ctx context.Context, compID, msgType string) error {
	if !c.EnabledFor(compID, msgType) {
		return nil
	}

	if c.cfg.DelayMsMin == 0 && c.cfg.DelayMsMax == 0 {
		return nil
	}

	c.mu.Lock()
	delayMs := c.cfg.DelayMsMin
	if c.cfg.DelayMsMax > c.cfg.DelayMsMin {
		delayMs += c.rng.Intn(c.cfg.DelayMsMax - c.cfg.DelayMsMin + 1)
	}
	c.mu.Unlock()

	if delayMs <= 0 {
		return nil
	}

	c.logger.Info("chaos delay injected",
		zap.String("comp_id", compID),
		zap.String("msg_type", msgType),
		zap.Int("delay_ms", delayMs),
	)

	timer := time.NewTimer(time.Duration(delayMs) * time.Millisecond)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// MaybeDrop returns true if the message should be dropped
func (c *Chaos) MaybeDrop(compID, msgType string) bool {
	if !c.EnabledFor(compID, msgType) || c.cfg.DropPct == 0 {
		return false
	}

	c.mu.Lock()
	drop := c.rng.Intn(100) < c.cfg.DropPct
	c.mu.Unlock()

	if drop {
		c.logger.Info("chaos drop injected",
			zap.String("comp_id", compID),
			zap.String("msg_type", msgType),
		)
	}

	return drop
}
