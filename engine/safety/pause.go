package safety

import "github.com/nathoo/duelcore/types"

// PauseHint explains why the engine stopped.
type PauseHint struct {
	Reason string             `json:"reason"`
	Event  *types.DomainEvent `json:"event,omitempty"`
}

// PauseRule inspects a flushed batch. A nil hint means no pause.
type PauseRule func(batch []types.DomainEvent, s *types.State) *PauseHint

// PausePolicy is an ordered list of rules; the first hint wins.
type PausePolicy struct {
	rules []namedRule
}

type namedRule struct {
	name string
	fn   PauseRule
}

// NewPausePolicy creates an empty policy.
func NewPausePolicy() *PausePolicy {
	return &PausePolicy{}
}

// Add appends a rule.
func (p *PausePolicy) Add(name string, rule PauseRule) {
	p.rules = append(p.rules, namedRule{name: name, fn: rule})
}

// Remove drops every rule with the given name.
func (p *PausePolicy) Remove(name string) bool {
	kept := p.rules[:0:0]
	for _, r := range p.rules {
		if r.name != name {
			kept = append(kept, r)
		}
	}
	removed := len(kept) != len(p.rules)
	p.rules = kept
	return removed
}

// Names lists the rules in evaluation order.
func (p *PausePolicy) Names() []string {
	names := make([]string, len(p.rules))
	for i, r := range p.rules {
		names[i] = r.name
	}
	return names
}

// Evaluate returns the first hint any rule produces, or nil.
func (p *PausePolicy) Evaluate(batch []types.DomainEvent, s *types.State) *PauseHint {
	if len(batch) == 0 {
		return nil
	}
	for _, r := range p.rules {
		if hint := r.fn(batch, s); hint != nil {
			return hint
		}
	}
	return nil
}

// OnEvent pauses when an event of the given type is in the batch.
func OnEvent(eventType, reason string) PauseRule {
	return func(batch []types.DomainEvent, _ *types.State) *PauseHint {
		for i := range batch {
			if batch[i].Type == eventType {
				evt := batch[i]
				return &PauseHint{Reason: reason, Event: &evt}
			}
		}
		return nil
	}
}
