// Package resolve maps intents to the commands that carry them out. It is
// the continuation mechanism: a command or trigger asks for follow-up work
// by intent type, and the gameplay layer decides which command that is.
package resolve

import (
	"errors"
	"fmt"
	"sort"

	"github.com/nathoo/duelcore/types"
)

// ErrIntentTypeRequired indicates a registration without a type.
var ErrIntentTypeRequired = errors.New("intent type is required")

// Factory builds the command for an intent. Returning nil drops the intent.
type Factory func(intent types.Intent, s *types.State) types.Command

// Resolver is the per-engine intent type → factory table.
type Resolver struct {
	factories map[string]Factory
}

// New creates an empty resolver.
func New() *Resolver {
	return &Resolver{factories: map[string]Factory{}}
}

// Register installs the factory for an intent type.
func (r *Resolver) Register(intentType string, f Factory) error {
	if intentType == "" {
		return ErrIntentTypeRequired
	}
	if f == nil {
		return fmt.Errorf("factory for %s is nil", intentType)
	}
	if _, exists := r.factories[intentType]; exists {
		return fmt.Errorf("intent type already registered: %s", intentType)
	}
	r.factories[intentType] = f
	return nil
}

// Resolve returns the command for an intent, or nil when no factory is
// registered or the factory declines.
func (r *Resolver) Resolve(in types.Intent, s *types.State) types.Command {
	f, ok := r.factories[in.Type]
	if !ok {
		return nil
	}
	return f(in, s)
}

// Types returns the registered intent types, sorted.
func (r *Resolver) Types() []string {
	out := make([]string, 0, len(r.factories))
	for t := range r.factories {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}
