// Package query resolves attributes through continuous modifiers. Nothing
// here writes to state; results are cached per state version.
package query

import (
	"errors"
	"fmt"
	"sort"

	"github.com/nathoo/duelcore/types"
)

var (
	// ErrModifierID indicates a modifier without an id.
	ErrModifierID = errors.New("modifier id is required")
	// ErrModifierExists indicates a second modifier with the same id.
	ErrModifierExists = errors.New("modifier already registered")
)

// Registry holds modifiers sorted by (layer, timestamp).
type Registry struct {
	mods     []types.Modifier
	sorted   []types.Modifier
	revision int
}

// NewRegistry creates an empty modifier registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Add registers a modifier.
func (r *Registry) Add(m types.Modifier) error {
	if m.ID == "" {
		return ErrModifierID
	}
	for _, existing := range r.mods {
		if existing.ID == m.ID {
			return fmt.Errorf("%w: %s", ErrModifierExists, m.ID)
		}
	}
	r.mods = append(r.mods, m)
	r.changed()
	return nil
}

// Remove drops a modifier by id.
func (r *Registry) Remove(id string) bool {
	for i, m := range r.mods {
		if m.ID == id {
			r.mods = append(r.mods[:i:i], r.mods[i+1:]...)
			r.changed()
			return true
		}
	}
	return false
}

// Clear drops every modifier.
func (r *Registry) Clear() {
	r.mods = nil
	r.changed()
}

func (r *Registry) changed() {
	r.sorted = nil
	r.revision++
}

// Revision increments on every add or remove.
func (r *Registry) Revision() int { return r.revision }

// Sorted returns all modifiers by ascending layer, then ascending timestamp.
// Ties keep registration order. The returned slice must not be modified.
func (r *Registry) Sorted() []types.Modifier {
	if r.sorted == nil {
		r.sorted = append([]types.Modifier{}, r.mods...)
		sort.SliceStable(r.sorted, func(i, j int) bool {
			a, b := r.sorted[i], r.sorted[j]
			if a.Layer != b.Layer {
				return a.Layer < b.Layer
			}
			return a.Timestamp < b.Timestamp
		})
	}
	return r.sorted
}

// Len returns the number of registered modifiers.
func (r *Registry) Len() int { return len(r.mods) }
