package engine

import (
	"encoding/json"
	"fmt"

	"github.com/cespare/xxhash/v2"

	"github.com/nathoo/duelcore/engine/state"
	"github.com/nathoo/duelcore/types"
)

// GetView returns a deep copy of the current state.
func (e *Engine) GetView() *types.State {
	return state.Clone(e.state)
}

// GetViewHash returns a structural hash of the current state.
func (e *Engine) GetViewHash() string {
	h, err := HashState(e.state)
	if err != nil {
		e.log.Error("hash state", "err", err)
		return ""
	}
	return h
}

// HashState hashes the canonical JSON form of a state. encoding/json writes
// map keys sorted and struct fields in declaration order, so equal states
// hash equally regardless of how their maps were built. Numbers that differ
// only in Go type (3 and 3.0) encode identically.
func HashState(s *types.State) (string, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%016x", xxhash.Sum64(data)), nil
}

// ViewFor returns a copy of the state as one player may see it. Entities
// that are hidden, or owner-only and owned by someone else, lose their kind
// and attributes; their ids and positions remain.
func (e *Engine) ViewFor(playerID string) *types.State {
	view := state.Clone(e.state)
	for id, ent := range view.Entities {
		switch e.zones.VisibilityOf(e.state, id) {
		case types.VisibilityHidden:
		case types.VisibilityOwner:
			if ent.Owner == playerID {
				continue
			}
		default:
			continue
		}
		ent.Kind = ""
		ent.Attrs = nil
		view.Entities[id] = ent
	}
	return view
}
