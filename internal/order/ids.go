package order

import (
	"strconv"
	"sync/atomic"
	"time"
)

// IDGenerator mints OrderIDs and ExecIDs unique within one process run.
// The start time keeps ids from colliding with a previous run; there is no
// coordination between processes.
type IDGenerator struct {
	epoch string
	seq   atomic.Uint64
}

// NewIDGenerator creates a generator seeded with the current time.
func NewIDGenerator() *IDGenerator {
	return &IDGenerator{epoch: strconv.FormatInt(time.Now().UnixNano(), 10)}
}

// NextOrderID returns a fresh OrderID.
func (g *IDGenerator) NextOrderID() string {
	return g.next("O")
}

// NextExecID returns a fresh ExecID.
func (g *IDGenerator) NextExecID() string {
	return g.next("E")
}

func (g *IDGenerator) next(prefix string) string {
	return prefix + g.epoch + "-" + strconv.FormatUint(g.seq.Add(1), 10)
}
