package save

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/nathoo/duelcore/engine/state"
	"github.com/nathoo/duelcore/types"
)

func testBlob() Blob {
	s := state.New()
	s.Turn = types.TurnState{ActivePlayer: "alice", Number: 1, Seats: []string{"alice", "bob"}}
	s.Players["alice"] = types.Player{ID: "alice", Attrs: map[string]any{"hp": 30}}
	s.Zones["alice:deck"] = types.Zone{ID: "alice:deck", Type: "deck", Owner: "alice", Entities: []string{"c1"}}
	s.Entities["c1"] = types.Entity{ID: "c1", Kind: "spell", Owner: "alice", Zone: "alice:deck", Attrs: map[string]any{"cost": 2}}
	return Blob{
		Seed: 42,
		Commands: []types.CommandEntry{
			{Type: "DRAW_CARD", Payload: map[string]any{"player": "alice"}},
			{Type: "END_TURN"},
		},
		Draws:   []float64{0.25, 0.5},
		Initial: s,
	}
}

func TestRoundTrip(t *testing.T) {
	data, err := Encode(testBlob())
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	b, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}

	if b.Format != Format {
		t.Errorf("format = %q, want %q", b.Format, Format)
	}
	if b.Seed != 42 {
		t.Errorf("seed = %d, want 42", b.Seed)
	}
	if len(b.Commands) != 2 || b.Commands[0].Type != "DRAW_CARD" {
		t.Fatalf("commands = %+v", b.Commands)
	}
	if b.Commands[0].Payload["player"] != "alice" {
		t.Errorf("payload = %v", b.Commands[0].Payload)
	}
	if b.Commands[1].Payload == nil {
		t.Error("nil payload should be normalized to an empty map")
	}
	if len(b.Draws) != 2 || b.Draws[1] != 0.5 {
		t.Errorf("draws = %v", b.Draws)
	}
	if b.Initial.Turn.ActivePlayer != "alice" || len(b.Initial.Turn.Seats) != 2 {
		t.Errorf("turn = %+v", b.Initial.Turn)
	}
	// Numbers come back as float64.
	if got := state.AttrInt(b.Initial, "c1", "cost"); got != 2 {
		t.Errorf("cost = %d, want 2", got)
	}
	if b.Initial.Visibility == nil {
		t.Error("visibility map should not be nil")
	}
}

func TestEncode_EmptyCollections(t *testing.T) {
	b := Blob{Initial: state.New()}
	data, err := Encode(b)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	got, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if got.Commands == nil || got.Draws == nil {
		t.Error("empty collections should survive as empty, not nil")
	}
}

func TestDecode_Errors(t *testing.T) {
	tests := []struct {
		name string
		data string
		want error
	}{
		{"wrong format", `{"format":"other","initial":{}}`, ErrFormat},
		{"no initial", `{"format":"` + Format + `"}`, ErrNoInitialState},
	}
	for _, tt := range tests {
		if _, err := Decode([]byte(tt.data)); !errors.Is(err, tt.want) {
			t.Errorf("%s: got %v, want %v", tt.name, err, tt.want)
		}
	}
	if _, err := Decode([]byte("{not json")); err == nil {
		t.Error("expected error for invalid JSON")
	}
}

func TestFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "match.json")
	if err := WriteFile(path, testBlob()); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	b, err := ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if len(b.Commands) != 2 {
		t.Errorf("commands = %d, want 2", len(b.Commands))
	}
	if _, err := ReadFile(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Error("expected error for missing file")
	}
}
