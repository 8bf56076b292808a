package safety

import (
	"testing"

	"github.com/nathoo/duelcore/types"
)

func TestCycleDetector_Repeat(t *testing.T) {
	c := NewCycleDetector(0)
	if c.Limit() != DefaultHistory {
		t.Errorf("limit = %d, want %d", c.Limit(), DefaultHistory)
	}
	snap := Snapshot{Turn: types.TurnState{ActivePlayer: "alice", Number: 1}, Players: 2, IntentQueue: 1}
	if c.Check(snap) {
		t.Fatal("first observation is not a cycle")
	}
	other := snap
	other.TapeIndex = 1
	if c.Check(other) {
		t.Fatal("different tape index is not a repeat")
	}
	if !c.Check(snap) {
		t.Fatal("repeat fingerprint should report a cycle")
	}
}

func TestCycleDetector_ClearsWhenFull(t *testing.T) {
	c := NewCycleDetector(3)
	for i := uint64(1); i <= 3; i++ {
		c.Observe(i)
	}
	if c.Len() != 3 {
		t.Fatalf("len = %d, want 3", c.Len())
	}
	c.Observe(4) // clears, then records 4
	if c.Len() != 1 {
		t.Errorf("len after overflow = %d, want 1", c.Len())
	}
	if c.Observe(1) {
		t.Error("history was cleared; 1 should be new again")
	}
}

func TestCycleDetector_Reset(t *testing.T) {
	c := NewCycleDetector(10)
	c.Observe(7)
	c.Reset()
	if c.Observe(7) {
		t.Error("Reset should forget fingerprints")
	}
}

func TestFingerprint_FieldsMatter(t *testing.T) {
	base := Snapshot{Turn: types.TurnState{ActivePlayer: "alice", Number: 2, Phase: "main"}, Entities: 5}
	variants := []Snapshot{base, base, base, base}
	variants[0].Turn.ActivePlayer = "bob"
	variants[1].Turn.Number = 3
	variants[2].Entities = 4
	variants[3].CommandQueue = 1
	for i, v := range variants {
		if Fingerprint(v) == Fingerprint(base) {
			t.Errorf("variant %d collides with base", i)
		}
	}
	if Fingerprint(base) != Fingerprint(base) {
		t.Error("fingerprint is not stable")
	}
}

func TestPausePolicy_FirstHintWins(t *testing.T) {
	p := NewPausePolicy()
	p.Add("choice", OnEvent(types.EventChoiceRequested, "choice"))
	p.Add("over", OnEvent(types.EventGameOver, "game_over"))

	batch := []types.DomainEvent{{Type: types.EventGameOver}, {Type: types.EventChoiceRequested, Payload: map[string]any{"id": "c1"}}}
	hint := p.Evaluate(batch, nil)
	if hint == nil || hint.Reason != "choice" {
		t.Fatalf("hint = %+v, want choice", hint)
	}
	if hint.Event.Payload["id"] != "c1" {
		t.Errorf("hint event = %+v", hint.Event)
	}

	if p.Evaluate([]types.DomainEvent{{Type: "DAMAGE_DEALT"}}, nil) != nil {
		t.Error("unrelated batch should not pause")
	}
	if p.Evaluate(nil, nil) != nil {
		t.Error("empty batch should not pause")
	}
}

func TestPausePolicy_Remove(t *testing.T) {
	p := NewPausePolicy()
	p.Add("over", OnEvent(types.EventGameOver, "game_over"))
	p.Add("custom", func([]types.DomainEvent, *types.State) *PauseHint { return &PauseHint{Reason: "always"} })
	if !p.Remove("over") || p.Remove("over") {
		t.Error("Remove should succeed once")
	}
	if names := p.Names(); len(names) != 1 || names[0] != "custom" {
		t.Errorf("names = %v", names)
	}
	if h := p.Evaluate([]types.DomainEvent{{Type: types.EventGameOver}}, nil); h == nil || h.Reason != "always" {
		t.Errorf("hint = %+v", h)
	}
}
