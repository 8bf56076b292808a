// Package tape implements the random tape: a seeded Mulberry32 source that
// records every draw in live play and replays a fixed draw list afterwards.
package tape

import (
	"errors"
	"math"
)

// ErrTapeExhausted signals a replay asked for more draws than were recorded.
// The recorded and replayed logic have diverged; the session cannot continue.
var ErrTapeExhausted = errors.New("random tape exhausted during replay")

// Mode is the tape's operating mode.
type Mode int

const (
	// ModeRecord draws from the generator and appends to the tape.
	ModeRecord Mode = iota
	// ModeReplay reads draws sequentially from a supplied list.
	ModeReplay
)

func (m Mode) String() string {
	if m == ModeReplay {
		return "replay"
	}
	return "record"
}

// Tape is a deterministic number source with draw tracking.
type Tape struct {
	seed   uint32
	state  uint32
	mode   Mode
	draws  []float64
	cursor int
	err    error
}

// New creates a recording tape from a seed.
func New(seed uint32) *Tape {
	return &Tape{seed: seed, state: seed}
}

// NewReplay creates a tape that returns draws in order.
func NewReplay(seed uint32, draws []float64) *Tape {
	d := make([]float64, len(draws))
	copy(d, draws)
	return &Tape{seed: seed, state: seed, mode: ModeReplay, draws: d}
}

// mulberry32 advances the 32-bit state. Every product and sum wraps at 32
// bits, which keeps the sequence identical to the published Mulberry32.
func (t *Tape) mulberry32() float64 {
	t.state += 0x6D2B79F5
	a := t.state
	x := (a ^ (a >> 15)) * (1 | a)
	x = (x + (x^(x>>7))*(61|x)) ^ x
	return float64(x^(x>>14)) / 4294967296.0
}

// Next returns a float in [0, 1). In replay mode an exhausted tape sets Err
// and returns 0.
func (t *Tape) Next() float64 {
	if t.mode == ModeReplay {
		if t.cursor >= len(t.draws) {
			if t.err == nil {
				t.err = ErrTapeExhausted
			}
			return 0
		}
		v := t.draws[t.cursor]
		t.cursor++
		return v
	}
	v := t.mulberry32()
	t.draws = append(t.draws, v)
	t.cursor++
	return v
}

// NextInt returns an integer in [min, max], inclusive.
func (t *Tape) NextInt(min, max int) int {
	if max < min {
		min, max = max, min
	}
	return min + int(math.Floor(t.Next()*float64(max-min+1)))
}

// Shuffle performs a Fisher-Yates shuffle of n elements through swap.
func (t *Tape) Shuffle(n int, swap func(i, j int)) {
	for i := n - 1; i > 0; i-- {
		j := t.NextInt(0, i)
		swap(i, j)
	}
}

// Index returns how many draws have been consumed.
func (t *Tape) Index() int { return t.cursor }

// Seed returns the seed the tape was built from.
func (t *Tape) Seed() uint32 { return t.seed }

// Mode returns the current mode.
func (t *Tape) Mode() Mode { return t.mode }

// Err returns ErrTapeExhausted once a replay has run dry.
func (t *Tape) Err() error { return t.err }

// Draws returns a copy of the tape contents.
func (t *Tape) Draws() []float64 {
	out := make([]float64, len(t.draws))
	copy(out, t.draws)
	return out
}

// Resume switches a replay tape back to recording. The generator is advanced
// to the replay cursor so subsequent draws continue the original sequence,
// and any unread replay draws are discarded.
func (t *Tape) Resume() {
	if t.mode != ModeReplay {
		return
	}
	t.state = t.seed
	for i := 0; i < t.cursor; i++ {
		t.mulberry32()
	}
	t.draws = t.draws[:t.cursor:t.cursor]
	t.mode = ModeRecord
	t.err = nil
}
