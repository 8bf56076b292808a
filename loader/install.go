package loader

import (
	"errors"
	"fmt"

	"github.com/nathoo/duelcore/engine"
	"github.com/nathoo/duelcore/engine/safety"
	"github.com/nathoo/duelcore/ruleset"
)

var (
	// ErrNoPendingChoice indicates a Choose step with nothing to answer.
	ErrNoPendingChoice = errors.New("no choice is pending")
	// ErrChoiceRejected indicates a Choose step the pending choice refused.
	ErrChoiceRejected = errors.New("selection rejected")
	// ErrScriptHalted indicates the engine stopped on a cycle or step budget.
	ErrScriptHalted = errors.New("script halted")
)

// NewEngine creates an engine seeded from the scenario, installs the ruleset
// and sets the scenario up on it.
func (sc *Scenario) NewEngine(opts ...engine.Option) (*engine.Engine, error) {
	e := engine.New(sc.Seed, opts...)
	if err := ruleset.Install(e); err != nil {
		return nil, fmt.Errorf("installing ruleset: %w", err)
	}
	if err := sc.Setup(e); err != nil {
		return nil, err
	}
	return e, nil
}

// Setup registers the scenario's zone types, triggers, replacements,
// modifiers and pause rules on e and initializes it with the starting state.
// Commands and custom kinds the scenario uses must already be registered.
func (sc *Scenario) Setup(e *engine.Engine) error {
	if err := checkDescriptors(sc, e.Rules(), e.Commands().Has); err != nil {
		return err
	}
	for _, zt := range sc.ZoneTypes {
		if err := e.Zones().Register(zt); err != nil {
			return fmt.Errorf("zone type %s: %w", zt.ID, err)
		}
	}
	for _, tr := range sc.Triggers {
		if err := e.Triggers().Register(tr); err != nil {
			return fmt.Errorf("trigger %s: %w", tr.ID, err)
		}
	}
	for _, rep := range sc.Replacements {
		if err := e.Replacements().Register(rep); err != nil {
			return fmt.Errorf("replacement %s: %w", rep.ID, err)
		}
	}
	for _, m := range sc.Modifiers {
		if err := e.Modifiers().Add(m); err != nil {
			return fmt.Errorf("modifier %s: %w", m.ID, err)
		}
	}
	for _, p := range sc.Pauses {
		e.Pauses().Add("scenario:"+p.Event, safety.OnEvent(p.Event, p.Reason))
	}
	return e.Initialize(sc.InitialState())
}

// Play runs the script against e, draining the engine after every step. It
// stops early when the match is over and returns the last run result.
func (sc *Scenario) Play(e *engine.Engine) (engine.RunResult, error) {
	var last engine.RunResult
	for i, step := range sc.Script {
		if e.State().Turn.Winner != "" {
			break
		}
		if step.IsChoice() {
			pending := e.Choices().Pending()
			if pending == nil {
				return last, fmt.Errorf("step %d: %w", i+1, ErrNoPendingChoice)
			}
			if !e.ProvideChoice(pending.ID, step.Choose) {
				return last, fmt.Errorf("step %d: %w: %v", i+1, ErrChoiceRejected, step.Choose)
			}
		} else if err := e.EnqueueEntry(step.Command); err != nil {
			return last, fmt.Errorf("step %d: %w", i+1, err)
		}

		res, err := e.RunUntilIdle(sc.MaxSteps)
		if err != nil {
			return res, fmt.Errorf("step %d: %w", i+1, err)
		}
		last = res
		if res.Status == engine.StatusCycle || res.Status == engine.StatusMaxSteps {
			return res, fmt.Errorf("step %d: %w: %s", i+1, ErrScriptHalted, res.Status)
		}
	}
	return last, nil
}
