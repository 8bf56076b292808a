// Package command holds the command log and the command registry used to
// rebuild logged commands during replay.
package command

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/nathoo/duelcore/types"
)

var (
	// ErrTypeRequired indicates a missing command type.
	ErrTypeRequired = errors.New("command type is required")
	// ErrTypeUnknown indicates an unregistered command type.
	ErrTypeUnknown = errors.New("command type is not registered")
	// ErrConstructorRequired indicates a nil constructor.
	ErrConstructorRequired = errors.New("command constructor is required")
)

// Constructor rebuilds a command from its logged payload.
type Constructor func(payload map[string]any) (types.Command, error)

// Registry maps command type strings to constructors.
type Registry struct {
	ctors map[string]Constructor
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{ctors: map[string]Constructor{}}
}

// Register adds a constructor for a command type.
func (r *Registry) Register(typ string, ctor Constructor) error {
	typ = strings.TrimSpace(typ)
	if typ == "" {
		return ErrTypeRequired
	}
	if ctor == nil {
		return ErrConstructorRequired
	}
	if _, exists := r.ctors[typ]; exists {
		return fmt.Errorf("command type already registered: %s", typ)
	}
	r.ctors[typ] = ctor
	return nil
}

// Has reports whether a type is registered.
func (r *Registry) Has(typ string) bool {
	_, ok := r.ctors[typ]
	return ok
}

// Build constructs a live command from a log entry.
func (r *Registry) Build(entry types.CommandEntry) (types.Command, error) {
	ctor, ok := r.ctors[entry.Type]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrTypeUnknown, entry.Type)
	}
	cmd, err := ctor(entry.Payload)
	if err != nil {
		return nil, fmt.Errorf("build %s: %w", entry.Type, err)
	}
	return cmd, nil
}

// Types returns the registered type strings, sorted.
func (r *Registry) Types() []string {
	out := make([]string, 0, len(r.ctors))
	for typ := range r.ctors {
		out = append(out, typ)
	}
	sort.Strings(out)
	return out
}
