// Package effects holds the reactive half of the engine: triggers that turn
// events into intents, replacements that intercept a command's outcome, and
// the single pending player choice.
package effects

import (
	"errors"
	"fmt"

	"github.com/nathoo/duelcore/engine/rules"
	"github.com/nathoo/duelcore/types"
)

var (
	// ErrIDRequired indicates a trigger or replacement without an id.
	ErrIDRequired = errors.New("id is required")
	// ErrDuplicateID indicates a second registration under the same id.
	ErrDuplicateID = errors.New("duplicate id")
)

// TriggerEngine matches domain events against registered triggers.
type TriggerEngine struct {
	rules    *rules.Dispatcher
	triggers []types.Trigger
	pending  []types.Intent
}

// NewTriggerEngine creates an empty trigger engine.
func NewTriggerEngine(d *rules.Dispatcher) *TriggerEngine {
	return &TriggerEngine{rules: d}
}

// Register adds a trigger. Triggers fire in registration order.
func (t *TriggerEngine) Register(tr types.Trigger) error {
	if tr.ID == "" {
		return fmt.Errorf("trigger: %w", ErrIDRequired)
	}
	if tr.EventType == "" {
		return fmt.Errorf("trigger %q: event type is required", tr.ID)
	}
	for _, existing := range t.triggers {
		if existing.ID == tr.ID {
			return fmt.Errorf("trigger %q: %w", tr.ID, ErrDuplicateID)
		}
	}
	t.triggers = append(t.triggers, tr)
	return nil
}

// Unregister removes a trigger by id.
func (t *TriggerEngine) Unregister(id string) bool {
	for i, tr := range t.triggers {
		if tr.ID == id {
			t.triggers = append(t.triggers[:i:i], t.triggers[i+1:]...)
			return true
		}
	}
	return false
}

// List returns the registered triggers in firing order.
func (t *TriggerEngine) List() []types.Trigger {
	return append([]types.Trigger(nil), t.triggers...)
}

// ProcessBatch checks every trigger against every event, event-major, and
// queues the produced intents until Flush.
func (t *TriggerEngine) ProcessBatch(events []types.DomainEvent, s *types.State) {
	for i := range events {
		evt := events[i]
		for _, tr := range t.triggers {
			if tr.EventType != evt.Type {
				continue
			}
			env := rules.Env{State: s, Event: &evt, CommandType: evt.Source}
			if self, ok := evt.Payload["entity"].(string); ok {
				env.Self = self
			}
			if !t.rules.EvalAll(tr.When, env) {
				continue
			}
			t.pending = append(t.pending, rules.Instantiate(tr.Intent, tr.ID, env))
		}
	}
}

// Flush drains the queued intents.
func (t *TriggerEngine) Flush() []types.Intent {
	out := t.pending
	t.pending = nil
	return out
}

// Reset drops queued intents. Registrations are kept.
func (t *TriggerEngine) Reset() {
	t.pending = nil
}
