package engine

import (
	"fmt"

	"github.com/nathoo/duelcore/engine/events"
	"github.com/nathoo/duelcore/engine/safety"
	"github.com/nathoo/duelcore/engine/state"
	"github.com/nathoo/duelcore/types"
)

// Status is the outcome of one Step or a RunUntilIdle loop.
type Status string

const (
	StatusContinue Status = "continue"
	StatusIdle     Status = "idle"
	StatusPaused   Status = "paused"
	StatusCycle    Status = "cycle"
	StatusMaxSteps Status = "max_steps"
)

// StepResult reports what one Step did.
type StepResult struct {
	Status  Status
	Pause   *safety.PauseHint
	Command string              // type of the executed command, empty when idle
	Events  []types.DomainEvent // the flushed batch
}

// RunResult reports a RunUntilIdle loop.
type RunResult struct {
	Status Status
	Steps  int
	Pause  *safety.PauseHint
}

// Step executes at most one command. A returned error is fatal: the engine
// stops and every later Step returns the same error.
func (e *Engine) Step() (StepResult, error) {
	if e.fatal != nil {
		return StepResult{}, e.fatal
	}
	if !e.initialized {
		return StepResult{}, ErrNotInitialized
	}

	// 1. Resolve intents until a command is available.
	for len(e.cmdQueue) == 0 && len(e.intentQueue) > 0 {
		in := e.intentQueue[0]
		e.intentQueue = e.intentQueue[1:]
		cmd := e.intents.Resolve(in, e.state)
		if cmd == nil {
			e.log.Debug("intent dropped", "intent", in.Type, "source", in.Source)
			e.notifier.Notify(events.Notice{Kind: events.NoticeIntentUnresolved, Step: e.steps, Detail: in.Type})
			continue
		}
		e.cmdQueue = append(e.cmdQueue, cmd)
	}

	// 2. Nothing to do.
	if len(e.cmdQueue) == 0 {
		e.cycles.Reset()
		return StepResult{Status: StatusIdle}, nil
	}

	// 3-6. Execute and log.
	cmd := e.cmdQueue[0]
	e.cmdQueue = e.cmdQueue[1:]
	e.steps++
	batch, err := e.execute(cmd)
	if err != nil {
		e.fatal = err
		e.log.Error("engine halted", "command", cmd.Type(), "step", e.steps, "err", err)
		return StepResult{}, err
	}
	e.cmdLog.Record(cmd)

	result := StepResult{Command: cmd.Type(), Events: batch}

	// 7. Safety nets.
	switch {
	case !e.replaying && e.pause(batch, &result):
	case e.cycles.Check(e.snapshot()):
		result.Status = StatusCycle
		e.log.Warn("cycle detected", "command", cmd.Type(), "step", e.steps)
	case len(e.cmdQueue) > 0 || len(e.intentQueue) > 0:
		result.Status = StatusContinue
	default:
		result.Status = StatusIdle
		e.cycles.Reset()
	}

	e.notifier.Notify(events.Notice{Kind: events.NoticeStep, Step: e.steps, Status: string(result.Status), CommandType: cmd.Type()})
	return result, nil
}

func (e *Engine) pause(batch []types.DomainEvent, result *StepResult) bool {
	hint := e.pauses.Evaluate(batch, e.state)
	if hint == nil {
		return false
	}
	result.Status = StatusPaused
	result.Pause = hint
	e.log.Info("engine paused", "reason", hint.Reason, "step", e.steps)
	return true
}

// execute validates, applies, filters through replacements and commits one
// command. It returns the flushed event batch.
func (e *Engine) execute(cmd types.Command) ([]types.DomainEvent, error) {
	ctx := e.context()

	if v := cmd.Validate(e.state, ctx); !v.Valid {
		e.bus.Emit(types.DomainEvent{
			Type:    types.EventCommandRejected,
			Payload: map[string]any{"command": cmd.Type(), "reason": v.Reason},
			Source:  cmd.Type(),
		})
		e.log.Debug("command rejected", "command", cmd.Type(), "reason", v.Reason)
		e.notifier.Notify(events.Notice{Kind: events.NoticeRejected, Step: e.steps, CommandType: cmd.Type(), Detail: v.Reason})
		return e.bus.Flush(), nil
	}

	hadChoice := e.choices.Pending() != nil
	out, err := cmd.Apply(e.state, ctx)
	if err != nil {
		return nil, fmt.Errorf("apply %s: %w", cmd.Type(), err)
	}
	if err := e.tape.Err(); err != nil {
		return nil, fmt.Errorf("apply %s: %w", cmd.Type(), err)
	}

	res, err := e.replacements.Process(cmd.Type(), cmd.Payload(), out, e.state)
	if err != nil {
		return nil, err
	}
	if res.Outcome == nil {
		if !hadChoice && e.choices.Pending() != nil {
			e.choices.Cancel()
		}
		e.bus.Emit(types.DomainEvent{
			Type:    types.EventCommandVetoed,
			Payload: map[string]any{"command": cmd.Type(), "replacement": res.ReplacementID},
			Source:  cmd.Type(),
		})
		e.log.Debug("command vetoed", "command", cmd.Type(), "replacement", res.ReplacementID)
		e.notifier.Notify(events.Notice{Kind: events.NoticeVetoed, Step: e.steps, CommandType: cmd.Type(), Detail: res.ReplacementID})
		return e.bus.Flush(), nil
	}

	next, err := e.applier.ApplyAll(e.state, res.Outcome.Patches)
	if err != nil {
		return nil, fmt.Errorf("apply %s: %w", cmd.Type(), err)
	}
	e.state = next
	e.query.SetState(next)

	for _, evt := range res.Outcome.Events {
		if evt.Source == "" {
			evt.Source = cmd.Type()
		}
		e.bus.Emit(evt)
	}
	batch := e.bus.Flush()

	// Replayed logs already contain every command these would produce.
	if !e.replaying {
		e.triggers.ProcessBatch(batch, e.state)
		e.intentQueue = append(e.intentQueue, res.Outcome.Intents...)
		e.intentQueue = append(e.intentQueue, e.triggers.Flush()...)
	}
	return batch, nil
}

func (e *Engine) snapshot() safety.Snapshot {
	players, entities, zones := state.Counts(e.state)
	return safety.Snapshot{
		Turn:         e.state.Turn,
		Players:      players,
		Entities:     entities,
		Zones:        zones,
		CommandQueue: len(e.cmdQueue),
		IntentQueue:  len(e.intentQueue),
		TapeIndex:    e.tape.Index(),
	}
}

// RunUntilIdle steps until the engine is idle, paused, cycling, or the
// budget runs out. maxSteps <= 0 uses DefaultMaxSteps.
func (e *Engine) RunUntilIdle(maxSteps int) (RunResult, error) {
	if maxSteps <= 0 {
		maxSteps = DefaultMaxSteps
	}
	var run RunResult
	for run.Steps < maxSteps {
		res, err := e.Step()
		if err != nil {
			return run, err
		}
		if res.Command != "" {
			run.Steps++
		}
		if res.Status != StatusContinue {
			run.Status = res.Status
			run.Pause = res.Pause
			return run, nil
		}
	}
	run.Status = StatusMaxSteps
	e.log.Warn("step budget exhausted", "max_steps", maxSteps)
	return run, nil
}
