package loader

import (
	"fmt"
	"strings"

	"github.com/nathoo/duelcore/engine/rules"
	"github.com/nathoo/duelcore/ruleset"
	"github.com/nathoo/duelcore/types"
)

// ValidationError collects all validation errors.
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed with %d error(s):\n  %s",
		len(e.Errors), strings.Join(e.Errors, "\n  "))
}

func (e *ValidationError) add(format string, args ...any) {
	e.Errors = append(e.Errors, fmt.Sprintf(format, args...))
}

func (e *ValidationError) err() error {
	if len(e.Errors) == 0 {
		return nil
	}
	return e
}

var visibilities = map[types.Visibility]bool{
	"":                     true,
	types.VisibilityPublic: true,
	types.VisibilityOwner:  true,
	types.VisibilityHidden: true,
}

// validate checks the compiled scenario for referential integrity. Problems
// that still leave a playable match are recorded as warnings.
func validate(sc *Scenario) error {
	ve := &ValidationError{}

	if len(sc.Heroes) == 0 {
		ve.add("at least one Hero is required")
	}

	zoneTypes := map[string]bool{}
	for _, zt := range sc.ZoneTypes {
		if zoneTypes[zt.ID] {
			ve.add("duplicate zone type %q", zt.ID)
		}
		zoneTypes[zt.ID] = true
		if !visibilities[zt.Visibility] {
			ve.add("zone type %q has unknown visibility %q", zt.ID, zt.Visibility)
		}
		if zt.MaxSize < 0 {
			ve.add("zone type %q has negative max_size", zt.ID)
		}
	}

	heroes := map[string]bool{}
	cards := map[string]string{}
	for _, h := range sc.Heroes {
		if heroes[h.ID] {
			ve.add("duplicate hero %q", h.ID)
		}
		heroes[h.ID] = true
		if h.HP <= 0 {
			sc.Warnings = append(sc.Warnings, fmt.Sprintf("hero %q starts with hp %d", h.ID, h.HP))
		}

		zones := map[string][]ruleset.CardSpec{
			ruleset.ZoneDeck:  h.Deck,
			ruleset.ZoneHand:  h.Hand,
			ruleset.ZoneBoard: h.Board,
		}
		for zt, list := range h.Zones {
			if !zoneTypes[zt] {
				ve.add("hero %q places cards in undeclared zone type %q", h.ID, zt)
				continue
			}
			zones[zt] = list
		}
		for zt, list := range zones {
			for _, c := range list {
				where := h.ID + ":" + zt
				if c.ID == "" {
					ve.add("card without id in %s", where)
					continue
				}
				if prev, dup := cards[c.ID]; dup {
					ve.add("card %q defined in both %s and %s", c.ID, prev, where)
				}
				cards[c.ID] = where
				if c.Kind == "" {
					ve.add("card %q has no kind", c.ID)
				}
			}
		}
		if len(h.Hand) > ruleset.HandSize {
			ve.add("hero %q starts with %d cards in hand, max %d", h.ID, len(h.Hand), ruleset.HandSize)
		}
		if len(h.Board) > ruleset.BoardSize {
			ve.add("hero %q starts with %d units on board, max %d", h.ID, len(h.Board), ruleset.BoardSize)
		}
		for _, c := range h.Board {
			if c.Kind != ruleset.KindUnit {
				sc.Warnings = append(sc.Warnings, fmt.Sprintf("card %q on %s's board is not a unit", c.ID, h.ID))
			}
		}
	}
	for id := range cards {
		if heroes[id] {
			ve.add("card id %q collides with a hero", id)
		}
	}
	if sc.First != "" && !heroes[sc.First] {
		ve.add("first player %q is not a hero", sc.First)
	}
	if sc.MaxSteps < 0 {
		ve.add("max_steps must not be negative")
	}

	ids := map[string]bool{}
	for _, tr := range sc.Triggers {
		if ids["trigger:"+tr.ID] {
			ve.add("duplicate trigger %q", tr.ID)
		}
		ids["trigger:"+tr.ID] = true
		if tr.EventType == "" {
			ve.add("trigger %q has no event type (on)", tr.ID)
		}
		if tr.Intent.Type == "" {
			ve.add("trigger %q has no intent", tr.ID)
		}
	}
	for _, rep := range sc.Replacements {
		if ids["replacement:"+rep.ID] {
			ve.add("duplicate replacement %q", rep.ID)
		}
		ids["replacement:"+rep.ID] = true
		if rep.Action.Op == "" {
			ve.add("replacement %q has no action", rep.ID)
		}
	}
	for _, m := range sc.Modifiers {
		if ids["modifier:"+m.ID] {
			ve.add("duplicate modifier %q", m.ID)
		}
		ids["modifier:"+m.ID] = true
		if m.Attribute == "" {
			ve.add("modifier %q has no attribute", m.ID)
		}
		if m.Op.Op == "" {
			ve.add("modifier %q has no op", m.ID)
		}
	}
	for _, p := range sc.Pauses {
		if p.Event == "" {
			ve.add("PauseOn needs an event type")
		}
	}

	return ve.err()
}

// checkDescriptors verifies that every condition, transform and action kind
// is known to the dispatcher and that every scripted command is registered.
func checkDescriptors(sc *Scenario, d *rules.Dispatcher, hasCommand func(string) bool) error {
	ve := &ValidationError{}

	for _, tr := range sc.Triggers {
		checkConditions(tr.When, d, "trigger "+tr.ID, ve)
	}
	for _, rep := range sc.Replacements {
		checkConditions(rep.When, d, "replacement "+rep.ID, ve)
		if rep.Action.Op != "" && !d.KnownAction(rep.Action.Op) {
			ve.add("replacement %s: unknown action %q", rep.ID, rep.Action.Op)
		}
		if rep.Command != "" && !hasCommand(rep.Command) {
			ve.add("replacement %s: unknown command type %q", rep.ID, rep.Command)
		}
	}
	for _, m := range sc.Modifiers {
		checkConditions(m.When, d, "modifier "+m.ID, ve)
		if m.Op.Op != "" && !d.KnownTransform(m.Op.Op) {
			ve.add("modifier %s: unknown transform %q", m.ID, m.Op.Op)
		}
	}
	for i, step := range sc.Script {
		if !step.IsChoice() && !hasCommand(step.Command.Type) {
			ve.add("script step %d: unknown command type %q", i+1, step.Command.Type)
		}
	}
	return ve.err()
}

func checkConditions(conds []types.Condition, d *rules.Dispatcher, where string, ve *ValidationError) {
	for _, c := range conds {
		if !d.KnownCondition(c.Type) {
			ve.add("%s: unknown condition %q", where, c.Type)
		}
		checkConditions(c.Inner, d, where, ve)
	}
}
