package effects

import (
	"fmt"
	"sort"

	"github.com/nathoo/duelcore/engine/rules"
	"github.com/nathoo/duelcore/types"
)

// Result is what the replacement pipeline hands back. A nil Outcome means
// the command was vetoed.
type Result struct {
	Outcome       *types.Outcome
	Replaced      bool
	ReplacementID string
}

// ReplacementPipeline intercepts command outcomes before patches apply.
type ReplacementPipeline struct {
	rules        *rules.Dispatcher
	replacements []types.Replacement
	sorted       bool
}

// NewReplacementPipeline creates an empty pipeline.
func NewReplacementPipeline(d *rules.Dispatcher) *ReplacementPipeline {
	return &ReplacementPipeline{rules: d, sorted: true}
}

// Register adds a replacement.
func (r *ReplacementPipeline) Register(rep types.Replacement) error {
	if rep.ID == "" {
		return fmt.Errorf("replacement: %w", ErrIDRequired)
	}
	for _, existing := range r.replacements {
		if existing.ID == rep.ID {
			return fmt.Errorf("replacement %q: %w", rep.ID, ErrDuplicateID)
		}
	}
	r.replacements = append(r.replacements, rep)
	r.sorted = false
	return nil
}

// Unregister removes a replacement by id.
func (r *ReplacementPipeline) Unregister(id string) bool {
	for i, rep := range r.replacements {
		if rep.ID == id {
			r.replacements = append(r.replacements[:i:i], r.replacements[i+1:]...)
			return true
		}
	}
	return false
}

// List returns the replacements in evaluation order.
func (r *ReplacementPipeline) List() []types.Replacement {
	r.sort()
	return append([]types.Replacement(nil), r.replacements...)
}

func (r *ReplacementPipeline) sort() {
	if r.sorted {
		return
	}
	// Stable keeps registration order among equal priorities.
	sort.SliceStable(r.replacements, func(i, j int) bool {
		return r.replacements[i].Priority < r.replacements[j].Priority
	})
	r.sorted = true
}

// Process runs the first matching replacement, if any, over a command's
// outcome. At most one replacement fires per command.
func (r *ReplacementPipeline) Process(commandType string, payload map[string]any, out types.Outcome, s *types.State) (Result, error) {
	r.sort()
	env := rules.Env{State: s, CommandType: commandType, Payload: payload, Outcome: &out}
	for _, rep := range r.replacements {
		if rep.Command != "" && rep.Command != commandType {
			continue
		}
		if !r.rules.EvalAll(rep.When, env) {
			continue
		}
		next, err := r.rules.Act(rep.Action, out, env)
		if err != nil {
			return Result{}, fmt.Errorf("replacement %q: %w", rep.ID, err)
		}
		return Result{Outcome: next, Replaced: true, ReplacementID: rep.ID}, nil
	}
	return Result{Outcome: &out}, nil
}
