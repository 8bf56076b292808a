// Package engine provides the Step() orchestrator that wires together the
// command queue, intent resolution, replacements, patches, events, triggers
// and the safety nets into one deterministic state machine.
package engine

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"

	"github.com/nathoo/duelcore/engine/command"
	"github.com/nathoo/duelcore/engine/effects"
	"github.com/nathoo/duelcore/engine/events"
	"github.com/nathoo/duelcore/engine/query"
	"github.com/nathoo/duelcore/engine/resolve"
	"github.com/nathoo/duelcore/engine/rules"
	"github.com/nathoo/duelcore/engine/safety"
	"github.com/nathoo/duelcore/engine/state"
	"github.com/nathoo/duelcore/engine/tape"
	"github.com/nathoo/duelcore/types"
)

var (
	// ErrNotInitialized indicates Step or EnqueueCommand before Initialize.
	ErrNotInitialized = errors.New("engine is not initialized")
	// ErrUnknownZoneType indicates an initial zone whose type was never registered.
	ErrUnknownZoneType = errors.New("zone type not registered")
	// ErrDanglingEntity indicates an initial entity whose zone does not exist.
	ErrDanglingEntity = errors.New("entity references a missing zone")
)

// DefaultMaxSteps is the RunUntilIdle budget used when none is given.
const DefaultMaxSteps = 1000

// Engine owns the state and every registry for one match. It is not safe
// for concurrent use; independent engines share nothing.
type Engine struct {
	log *slog.Logger

	seed    uint32
	state   *types.State
	initial *types.State

	zones    *state.ZoneTypes
	applier  *state.Applier
	bus      *events.Bus
	notifier *events.Notifier
	tape     *tape.Tape

	commands *command.Registry
	cmdLog   *command.Log
	intents  *resolve.Resolver

	dispatcher   *rules.Dispatcher
	triggers     *effects.TriggerEngine
	replacements *effects.ReplacementPipeline
	choices      *effects.ChoiceSystem
	query        *query.API

	cycles *safety.CycleDetector
	pauses *safety.PausePolicy

	cmdQueue    []types.Command
	intentQueue []types.Intent

	initialized bool
	replaying   bool
	steps       int
	fatal       error
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine's logger. The default discards everything.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.log = l }
}

// WithCycleHistory bounds the cycle detector's memory.
func WithCycleHistory(n int) Option {
	return func(e *Engine) { e.cycles = safety.NewCycleDetector(n) }
}

// New creates an engine with a seed. Zone types, commands, intent factories
// and rules are registered through the accessors before Initialize.
func New(seed uint32, opts ...Option) *Engine {
	zones := state.NewZoneTypes()
	d := rules.NewDispatcher()
	e := &Engine{
		log:          slog.New(slog.NewTextHandler(io.Discard, nil)),
		seed:         seed,
		state:        state.New(),
		zones:        zones,
		applier:      state.NewApplier(zones),
		bus:          events.NewBus(),
		notifier:     &events.Notifier{},
		tape:         tape.New(seed),
		commands:     command.NewRegistry(),
		cmdLog:       command.NewLog(),
		intents:      resolve.New(),
		dispatcher:   d,
		triggers:     effects.NewTriggerEngine(d),
		replacements: effects.NewReplacementPipeline(d),
		choices:      effects.NewChoiceSystem(),
		query:        query.New(d, query.NewRegistry()),
		cycles:       safety.NewCycleDetector(safety.DefaultHistory),
		pauses:       safety.NewPausePolicy(),
	}
	for _, opt := range opts {
		opt(e)
	}

	e.pauses.Add("choice", safety.OnEvent(types.EventChoiceRequested, "choice"))
	e.pauses.Add("game_over", safety.OnEvent(types.EventGameOver, "game_over"))
	// Registration on a fresh registry cannot fail.
	_ = e.commands.Register(CommandResolveChoice, newResolveChoice)
	e.query.SetState(e.state)
	return e
}

// Initialize installs the starting state and freezes the zone types. The
// state is cloned; the caller keeps ownership of s.
func (e *Engine) Initialize(s *types.State) error {
	if s == nil {
		s = state.New()
	}
	start := state.Clone(s)
	if len(start.Turn.Seats) == 0 {
		for id := range start.Players {
			start.Turn.Seats = append(start.Turn.Seats, id)
		}
		sort.Strings(start.Turn.Seats)
	}
	if err := e.checkState(start); err != nil {
		return err
	}

	e.zones.Freeze()
	e.reset()
	e.initial = start
	e.state = state.Clone(start)
	e.query.SetState(e.state)
	e.tape = tape.New(e.seed)
	e.initialized = true
	e.log.Debug("engine initialized",
		"seed", e.seed,
		"players", len(start.Players),
		"entities", len(start.Entities),
		"zones", len(start.Zones))
	return nil
}

func (e *Engine) checkState(s *types.State) error {
	for _, z := range s.Zones {
		if _, ok := e.zones.Get(z.Type); !ok {
			return fmt.Errorf("zone %q: %w: %q", z.ID, ErrUnknownZoneType, z.Type)
		}
	}
	for _, ent := range s.Entities {
		if _, ok := s.Zones[ent.Zone]; !ok {
			return fmt.Errorf("entity %q: %w: %q", ent.ID, ErrDanglingEntity, ent.Zone)
		}
	}
	return nil
}

// reset clears every piece of per-session runtime state. Registrations are kept.
func (e *Engine) reset() {
	e.cmdQueue = nil
	e.intentQueue = nil
	e.cmdLog.Reset()
	e.bus.Reset()
	e.triggers.Reset()
	e.choices.Reset()
	e.cycles.Reset()
	e.query.InvalidateCache()
	e.replaying = false
	e.steps = 0
	e.fatal = nil
}

// EnqueueCommand queues a player or system command.
func (e *Engine) EnqueueCommand(cmd types.Command) error {
	if !e.initialized {
		return ErrNotInitialized
	}
	if cmd == nil {
		return errors.New("nil command")
	}
	e.cmdQueue = append(e.cmdQueue, cmd)
	e.cycles.Reset()
	return nil
}

// EnqueueEntry builds a command from its logged form and queues it.
func (e *Engine) EnqueueEntry(entry types.CommandEntry) error {
	cmd, err := e.commands.Build(entry)
	if err != nil {
		return err
	}
	return e.EnqueueCommand(cmd)
}

// State returns the current state. Callers must treat it as read-only; use
// GetView for a copy that may be modified.
func (e *Engine) State() *types.State { return e.state }

// Seed returns the seed the engine was created with, or the imported one.
func (e *Engine) Seed() uint32 { return e.seed }

// Replaying reports whether the engine is executing an imported log.
func (e *Engine) Replaying() bool { return e.replaying }

// Err returns the fatal error that stopped the engine, if any.
func (e *Engine) Err() error { return e.fatal }

// Steps returns the number of commands executed since Initialize.
func (e *Engine) Steps() int { return e.steps }

// QueueLengths reports the pending command and intent counts.
func (e *Engine) QueueLengths() (commands, intents int) {
	return len(e.cmdQueue), len(e.intentQueue)
}

// Accessors for setup-time registration.

func (e *Engine) Commands() *command.Registry { return e.commands }
func (e *Engine) Log() *command.Log { return e.cmdLog }
func (e *Engine) Intents() *resolve.Resolver { return e.intents }
func (e *Engine) Pauses() *safety.PausePolicy { return e.pauses }
func (e *Engine) Zones() *state.ZoneTypes { return e.zones }
func (e *Engine) Query() *query.API { return e.query }
func (e *Engine) Modifiers() *query.Registry { return e.query.Registry() }
func (e *Engine) Triggers() *effects.TriggerEngine { return e.triggers }
func (e *Engine) Replacements() *effects.ReplacementPipeline { return e.replacements }
func (e *Engine) Choices() *effects.ChoiceSystem { return e.choices }
func (e *Engine) Rules() *rules.Dispatcher { return e.dispatcher }
func (e *Engine) Bus() *events.Bus { return e.bus }
func (e *Engine) Notifier() *events.Notifier { return e.notifier }
func (e *Engine) Tape() *tape.Tape { return e.tape }

func (e *Engine) context() types.Context {
	return types.Context{
		RNG:     e.tape,
		Query:   e.query,
		Choices: e.choices,
		Zones:   e.zones,
	}
}
