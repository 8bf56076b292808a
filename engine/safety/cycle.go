// Package safety holds the two guards around the step loop: a cycle
// detector over cheap state fingerprints and a rule-based pause policy.
package safety

import (
	"encoding/binary"

	"github.com/cespare/xxhash/v2"

	"github.com/nathoo/duelcore/types"
)

// DefaultHistory is the number of fingerprints remembered before the
// detector clears itself.
const DefaultHistory = 256

// Snapshot is the partial view of the engine a fingerprint covers.
type Snapshot struct {
	Turn         types.TurnState
	Players      int
	Entities     int
	Zones        int
	CommandQueue int
	IntentQueue  int
	TapeIndex    int
}

// Fingerprint hashes a snapshot.
func Fingerprint(s Snapshot) uint64 {
	d := xxhash.New()
	writeString(d, s.Turn.ActivePlayer)
	writeString(d, s.Turn.Phase)
	writeString(d, s.Turn.Winner)
	for _, n := range []int{s.Turn.Number, s.Players, s.Entities, s.Zones, s.CommandQueue, s.IntentQueue, s.TapeIndex} {
		var buf [8]byte
		binary.LittleEndian.PutUint64(buf[:], uint64(n))
		_, _ = d.Write(buf[:])
	}
	return d.Sum64()
}

func writeString(d *xxhash.Digest, s string) {
	_, _ = d.WriteString(s)
	_, _ = d.Write([]byte{0})
}

// CycleDetector remembers recent fingerprints. Memory is bounded: once the
// history is full it is cleared wholesale, so a cycle longer than the bound
// may go unnoticed.
type CycleDetector struct {
	limit int
	seen  map[uint64]struct{}
}

// NewCycleDetector creates a detector. limit <= 0 uses DefaultHistory.
func NewCycleDetector(limit int) *CycleDetector {
	if limit <= 0 {
		limit = DefaultHistory
	}
	return &CycleDetector{limit: limit, seen: make(map[uint64]struct{}, limit)}
}

// Observe records a fingerprint and reports whether it was seen before.
func (c *CycleDetector) Observe(fp uint64) bool {
	if _, ok := c.seen[fp]; ok {
		return true
	}
	if len(c.seen) >= c.limit {
		c.seen = make(map[uint64]struct{}, c.limit)
	}
	c.seen[fp] = struct{}{}
	return false
}

// Check fingerprints a snapshot and observes it.
func (c *CycleDetector) Check(s Snapshot) bool {
	return c.Observe(Fingerprint(s))
}

// Reset forgets every fingerprint.
func (c *CycleDetector) Reset() {
	c.seen = make(map[uint64]struct{}, c.limit)
}

// Len returns the number of remembered fingerprints.
func (c *CycleDetector) Len() int { return len(c.seen) }

// Limit returns the history bound.
func (c *CycleDetector) Limit() int { return c.limit }
