package engine

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"testing"

	"github.com/nathoo/duelcore/engine/command"
	"github.com/nathoo/duelcore/engine/events"
	"github.com/nathoo/duelcore/engine/rules"
	"github.com/nathoo/duelcore/engine/save"
	"github.com/nathoo/duelcore/engine/state"
	"github.com/nathoo/duelcore/engine/tape"
	"github.com/nathoo/duelcore/types"
)

// --- Test commands ---

// addCmd adds amount to an attribute.
type addCmd struct {
	target, attr string
	amount       int
}

func newAdd(p map[string]any) (types.Command, error) {
	target, _ := p["target"].(string)
	attr, _ := p["attr"].(string)
	return &addCmd{target: target, attr: attr, amount: state.ToInt(p["amount"])}, nil
}

func (c *addCmd) Type() string { return "ADD" }
func (c *addCmd) Payload() map[string]any {
	return map[string]any{"target": c.target, "attr": c.attr, "amount": c.amount}
}
func (c *addCmd) Validate(s *types.State, _ types.Context) types.Validation {
	if !state.Exists(s, c.target) {
		return types.Validation{Reason: "unknown target"}
	}
	return types.Validation{Valid: true}
}
func (c *addCmd) Apply(s *types.State, _ types.Context) (types.Outcome, error) {
	value := state.AttrInt(s, c.target, c.attr) + c.amount
	return types.Outcome{
		Patches: []types.Patch{{Kind: types.PatchSetAttr, Target: c.target, Payload: map[string]any{"attr": c.attr, "value": value}}},
		Events:  []types.DomainEvent{{Type: "ADDED", Payload: map[string]any{"target": c.target, "value": value}}},
	}, nil
}

// rollCmd stores a die roll on the target.
type rollCmd struct{ target string }

func newRoll(p map[string]any) (types.Command, error) {
	target, _ := p["target"].(string)
	return &rollCmd{target: target}, nil
}

func (c *rollCmd) Type() string { return "ROLL" }
func (c *rollCmd) Payload() map[string]any { return map[string]any{"target": c.target} }
func (c *rollCmd) Validate(*types.State, types.Context) types.Validation {
	return types.Validation{Valid: true}
}
func (c *rollCmd) Apply(_ *types.State, ctx types.Context) (types.Outcome, error) {
	n := ctx.RNG.NextInt(1, 6)
	return types.Outcome{
		Patches: []types.Patch{{Kind: types.PatchSetAttr, Target: c.target, Payload: map[string]any{"attr": "roll", "value": n}}},
		Events:  []types.DomainEvent{{Type: "ROLLED", Payload: map[string]any{"target": c.target, "value": n}}},
	}, nil
}

// pingCmd changes nothing and announces itself.
type pingCmd struct{}

func (pingCmd) Type() string { return "PING" }
func (pingCmd) Payload() map[string]any { return map[string]any{} }
func (pingCmd) Validate(*types.State, types.Context) types.Validation { return types.Validation{Valid: true} }
func (pingCmd) Apply(*types.State, types.Context) (types.Outcome, error) {
	return types.Outcome{Events: []types.DomainEvent{{Type: "PINGED"}}}, nil
}

// countCmd advances the turn number and asks to run again.
type countCmd struct{}

func (countCmd) Type() string { return "COUNT" }
func (countCmd) Payload() map[string]any { return map[string]any{} }
func (countCmd) Validate(*types.State, types.Context) types.Validation { return types.Validation{Valid: true} }
func (countCmd) Apply(s *types.State, _ types.Context) (types.Outcome, error) {
	return types.Outcome{
		Patches: []types.Patch{{Kind: types.PatchSetTurn, Payload: map[string]any{"field": "number", "value": s.Turn.Number + 1}}},
		Intents: []types.Intent{{Type: "COUNT"}},
	}, nil
}

// askCmd opens a choice whose answer becomes an ADD to the asker's hp.
type askCmd struct{ player string }

func newAsk(p map[string]any) (types.Command, error) {
	player, _ := p["player"].(string)
	return &askCmd{player: player}, nil
}

func (c *askCmd) Type() string { return "ASK" }
func (c *askCmd) Payload() map[string]any { return map[string]any{"player": c.player} }
func (c *askCmd) Validate(*types.State, types.Context) types.Validation {
	return types.Validation{Valid: true}
}
func (c *askCmd) Apply(_ *types.State, ctx types.Context) (types.Outcome, error) {
	id, err := ctx.Choices.Request(types.PendingChoice{
		Player:   c.player,
		Selector: types.Selector{Options: []string{"1", "2", "3"}, Min: 1, Max: 1},
		Source:   "ASK",
		Resume:   "BONUS",
		Context:  map[string]any{"target": c.player},
	})
	if err != nil {
		return types.Outcome{}, err
	}
	return types.Outcome{Events: []types.DomainEvent{{Type: types.EventChoiceRequested, Payload: map[string]any{"choice_id": id}}}}, nil
}

// funcCmd lets a test script Apply directly.
type funcCmd struct {
	typ   string
	apply func(*types.State) (types.Outcome, error)
}

func (c funcCmd) Type() string { return c.typ }
func (c funcCmd) Payload() map[string]any { return map[string]any{} }
func (c funcCmd) Validate(*types.State, types.Context) types.Validation {
	return types.Validation{Valid: true}
}
func (c funcCmd) Apply(s *types.State, _ types.Context) (types.Outcome, error) { return c.apply(s) }

// --- Fixtures ---

func testInitial() *types.State {
	s := state.New()
	s.Turn = types.TurnState{ActivePlayer: "alice", Number: 1, Phase: "main", Seats: []string{"alice", "bob"}}
	s.Players["alice"] = types.Player{ID: "alice", Attrs: map[string]any{"hp": 20}}
	s.Players["bob"] = types.Player{ID: "bob", Attrs: map[string]any{"hp": 20}}
	s.Zones["alice:hand"] = types.Zone{ID: "alice:hand", Type: "hand", Owner: "alice", Entities: []string{"c1"}}
	s.Zones["bob:deck"] = types.Zone{ID: "bob:deck", Type: "deck", Owner: "bob", Entities: []string{"c2", "c3"}}
	s.Entities["c1"] = types.Entity{ID: "c1", Kind: "spell", Owner: "alice", Zone: "alice:hand", Attrs: map[string]any{"cost": 1}}
	s.Entities["c2"] = types.Entity{ID: "c2", Kind: "unit", Owner: "bob", Zone: "bob:deck", Attrs: map[string]any{"power": 2}}
	s.Entities["c3"] = types.Entity{ID: "c3", Kind: "unit", Owner: "bob", Zone: "bob:deck", Attrs: map[string]any{"power": 5}}
	return s
}

// newTestEngine registers the test content. It does not initialize.
func newTestEngine(t *testing.T, seed uint32) *Engine {
	t.Helper()
	e := New(seed)
	for _, zt := range []types.ZoneType{
		{ID: "hand", Visibility: types.VisibilityOwner, MaxSize: 10},
		{ID: "deck", Ordered: true, Visibility: types.VisibilityHidden},
	} {
		if err := e.Zones().Register(zt); err != nil {
			t.Fatalf("register zone %s: %v", zt.ID, err)
		}
	}
	ctors := map[string]func(map[string]any) (types.Command, error){
		"ADD":  newAdd,
		"ROLL": newRoll,
		"ASK":  newAsk,
		"PING": func(map[string]any) (types.Command, error) { return pingCmd{}, nil },
	}
	for typ, ctor := range ctors {
		if err := e.Commands().Register(typ, ctor); err != nil {
			t.Fatalf("register %s: %v", typ, err)
		}
	}
	must(t, e.Intents().Register("ADD", func(in types.Intent, _ *types.State) types.Command {
		cmd, _ := newAdd(in.Payload)
		return cmd
	}))
	must(t, e.Intents().Register("PING", func(types.Intent, *types.State) types.Command { return pingCmd{} }))
	must(t, e.Intents().Register("COUNT", func(types.Intent, *types.State) types.Command { return countCmd{} }))
	must(t, e.Intents().Register("BONUS", func(in types.Intent, _ *types.State) types.Command {
		sel, _ := in.Payload["selection"].(string)
		n, err := strconv.Atoi(sel)
		if err != nil {
			return nil
		}
		target, _ := in.Payload["target"].(string)
		return &addCmd{target: target, attr: "hp", amount: n}
	}))
	return e
}

func must(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func initialized(t *testing.T, seed uint32) *Engine {
	t.Helper()
	e := newTestEngine(t, seed)
	must(t, e.Initialize(testInitial()))
	return e
}

func run(t *testing.T, e *Engine) RunResult {
	t.Helper()
	res, err := e.RunUntilIdle(0)
	if err != nil {
		t.Fatalf("RunUntilIdle: %v", err)
	}
	return res
}

// --- Tests ---

func TestStep_IdleWhenEmpty(t *testing.T) {
	e := initialized(t, 1)
	res, err := e.Step()
	must(t, err)
	if res.Status != StatusIdle || res.Command != "" {
		t.Errorf("result = %+v, want idle", res)
	}
}

func TestStep_RequiresInitialize(t *testing.T) {
	e := newTestEngine(t, 1)
	if _, err := e.Step(); !errors.Is(err, ErrNotInitialized) {
		t.Errorf("Step: got %v, want ErrNotInitialized", err)
	}
	if err := e.EnqueueCommand(pingCmd{}); !errors.Is(err, ErrNotInitialized) {
		t.Errorf("EnqueueCommand: got %v, want ErrNotInitialized", err)
	}
}

func TestInitialize_ClonesAndFreezes(t *testing.T) {
	e := newTestEngine(t, 1)
	s := testInitial()
	must(t, e.Initialize(s))

	s.Players["alice"].Attrs["hp"] = 1
	if got := state.AttrInt(e.State(), "alice", "hp"); got != 20 {
		t.Errorf("engine state aliased the caller's state: hp = %d", got)
	}
	if err := e.Zones().Register(types.ZoneType{ID: "board"}); !errors.Is(err, state.ErrZoneTypesFrozen) {
		t.Errorf("register after initialize: got %v, want ErrZoneTypesFrozen", err)
	}
}

func TestInitialize_Errors(t *testing.T) {
	e := newTestEngine(t, 1)
	s := testInitial()
	s.Zones["alice:board"] = types.Zone{ID: "alice:board", Type: "board"}
	if err := e.Initialize(s); !errors.Is(err, ErrUnknownZoneType) {
		t.Errorf("got %v, want ErrUnknownZoneType", err)
	}

	s = testInitial()
	s.Entities["stray"] = types.Entity{ID: "stray", Zone: "nowhere"}
	if err := e.Initialize(s); !errors.Is(err, ErrDanglingEntity) {
		t.Errorf("got %v, want ErrDanglingEntity", err)
	}
}

func TestInitialize_DefaultSeats(t *testing.T) {
	e := newTestEngine(t, 1)
	s := testInitial()
	s.Turn.Seats = nil
	must(t, e.Initialize(s))
	if seats := e.State().Turn.Seats; len(seats) != 2 || seats[0] != "alice" || seats[1] != "bob" {
		t.Errorf("seats = %v", seats)
	}
}

func TestDeterminism(t *testing.T) {
	play := func() string {
		e := initialized(t, 42)
		for _, p := range []string{"alice", "bob", "alice"} {
			must(t, e.EnqueueCommand(&rollCmd{target: p}))
		}
		must(t, e.EnqueueCommand(&addCmd{target: "bob", attr: "hp", amount: -4}))
		run(t, e)
		return e.GetViewHash()
	}
	a, b := play(), play()
	if a == "" || a != b {
		t.Errorf("hashes differ: %q vs %q", a, b)
	}
}

// playSession runs a live session that exercises triggers, intents, the
// tape and a choice.
func playSession(t *testing.T) *Engine {
	t.Helper()
	e := newTestEngine(t, 7)
	must(t, e.Triggers().Register(types.Trigger{
		ID:        "roll-heals",
		EventType: "ROLLED",
		Intent:    types.IntentTemplate{Type: "ADD", Payload: map[string]any{"target": "$event.target", "attr": "hp", "amount": 1}},
	}))
	must(t, e.Initialize(testInitial()))

	must(t, e.EnqueueCommand(&rollCmd{target: "alice"}))
	must(t, e.EnqueueCommand(&rollCmd{target: "bob"}))
	must(t, e.EnqueueCommand(&askCmd{player: "alice"}))

	res := run(t, e)
	if res.Status != StatusPaused || res.Pause == nil || res.Pause.Reason != "choice" {
		t.Fatalf("run = %+v, want paused on choice", res)
	}
	pending := e.Choices().Pending()
	if pending == nil {
		t.Fatal("expected a pending choice")
	}
	if e.ProvideChoice("stale-id", "3") {
		t.Error("stale id should be rejected")
	}
	if e.ProvideChoice(pending.ID, "9") {
		t.Error("selection outside the options should be rejected")
	}
	if !e.ProvideChoice(pending.ID, "3") {
		t.Fatal("ProvideChoice should accept the pending id")
	}
	if res := run(t, e); res.Status != StatusIdle {
		t.Fatalf("run = %+v, want idle", res)
	}
	return e
}

func TestChoiceFlow(t *testing.T) {
	e := playSession(t)
	// 20 + 1 (roll trigger) + 3 (choice)
	if got := state.AttrInt(e.State(), "alice", "hp"); got != 24 {
		t.Errorf("alice hp = %d, want 24", got)
	}
	if got := state.AttrInt(e.State(), "bob", "hp"); got != 21 {
		t.Errorf("bob hp = %d, want 21", got)
	}
	if e.Choices().Pending() != nil {
		t.Error("choice should be resolved")
	}

	var resolved bool
	for _, evt := range e.Bus().History() {
		if evt.Type == types.EventChoiceResolved && evt.Payload["selection"] == "3" {
			resolved = true
		}
	}
	if !resolved {
		t.Error("expected CHOICE_RESOLVED in history")
	}
}

func TestReplayFidelity(t *testing.T) {
	live := playSession(t)
	blob := live.ExportReplay()

	// Round-trip through the file format as a real export would.
	data, err := save.Encode(blob)
	must(t, err)
	decoded, err := save.Decode(data)
	must(t, err)

	replay := newTestEngine(t, 0)
	must(t, replay.ImportReplay(*decoded))
	if !replay.Replaying() {
		t.Fatal("engine should be in replay mode")
	}
	res := run(t, replay)
	if res.Status != StatusIdle {
		t.Fatalf("replay run = %+v, want idle", res)
	}
	if res.Steps != live.Log().Len() {
		t.Errorf("replay executed %d commands, live logged %d", res.Steps, live.Log().Len())
	}
	if replay.GetViewHash() != live.GetViewHash() {
		t.Error("replayed hash differs from live hash")
	}
	if replay.Seed() != 7 {
		t.Errorf("seed = %d, want 7", replay.Seed())
	}

	again := replay.ExportReplay()
	if len(again.Commands) != len(blob.Commands) {
		t.Errorf("re-exported log has %d entries, want %d", len(again.Commands), len(blob.Commands))
	}
}

func TestReplay_TapeExhaustedIsFatal(t *testing.T) {
	live := initialized(t, 3)
	must(t, live.EnqueueCommand(&rollCmd{target: "alice"}))
	must(t, live.EnqueueCommand(&rollCmd{target: "bob"}))
	run(t, live)

	blob := live.ExportReplay()
	blob.Draws = blob.Draws[:1]

	replay := newTestEngine(t, 0)
	must(t, replay.ImportReplay(blob))
	_, err := replay.RunUntilIdle(0)
	if !errors.Is(err, tape.ErrTapeExhausted) {
		t.Fatalf("got %v, want ErrTapeExhausted", err)
	}
	if _, again := replay.Step(); !errors.Is(again, tape.ErrTapeExhausted) {
		t.Errorf("engine should stay halted, got %v", again)
	}
}

func TestReplay_UnknownCommandType(t *testing.T) {
	blob := save.Blob{Initial: testInitial(), Commands: []types.CommandEntry{{Type: "PING"}, {Type: "WARP"}}}
	e := newTestEngine(t, 0)
	err := e.ImportReplay(blob)
	if !errors.Is(err, command.ErrTypeUnknown) {
		t.Fatalf("got %v, want ErrTypeUnknown", err)
	}
	if !strings.Contains(err.Error(), "replay entry 1") {
		t.Errorf("error should name the failing entry: %v", err)
	}
	if err := e.ImportReplay(save.Blob{}); !errors.Is(err, save.ErrNoInitialState) {
		t.Errorf("got %v, want ErrNoInitialState", err)
	}
}

func TestReplay_SkipsTriggersAndResumesLive(t *testing.T) {
	live := newTestEngine(t, 5)
	must(t, live.Triggers().Register(types.Trigger{
		ID: "echo", EventType: "ROLLED",
		Intent: types.IntentTemplate{Type: "ADD", Payload: map[string]any{"target": "alice", "attr": "hp", "amount": 1}},
	}))
	must(t, live.Initialize(testInitial()))
	must(t, live.EnqueueCommand(&rollCmd{target: "alice"}))
	run(t, live)
	if live.Log().Len() != 2 {
		t.Fatalf("live log = %d entries, want ROLL + ADD", live.Log().Len())
	}

	replay := newTestEngine(t, 0)
	must(t, replay.Triggers().Register(types.Trigger{
		ID: "echo", EventType: "ROLLED",
		Intent: types.IntentTemplate{Type: "ADD", Payload: map[string]any{"target": "alice", "attr": "hp", "amount": 1}},
	}))
	must(t, replay.ImportReplay(live.ExportReplay()))
	run(t, replay)
	if got := state.AttrInt(replay.State(), "alice", "hp"); got != 21 {
		t.Errorf("hp = %d, want 21 (trigger must not fire twice)", got)
	}

	replay.ResumeLive()
	if replay.Replaying() || replay.Tape().Mode() != tape.ModeRecord {
		t.Fatal("ResumeLive should leave replay mode")
	}
	must(t, replay.EnqueueCommand(&rollCmd{target: "alice"}))
	run(t, replay)

	must(t, live.EnqueueCommand(&rollCmd{target: "alice"}))
	run(t, live)
	if replay.GetViewHash() != live.GetViewHash() {
		t.Error("resumed session diverged from the live one")
	}
}

func TestVersionMonotonicity(t *testing.T) {
	e := initialized(t, 1)
	v0 := e.State().Version
	for i := 0; i < 5; i++ {
		must(t, e.EnqueueCommand(&addCmd{target: "alice", attr: "hp", amount: 1}))
	}
	must(t, e.EnqueueCommand(funcCmd{typ: "MULTI", apply: func(*types.State) (types.Outcome, error) {
		return types.Outcome{Patches: []types.Patch{
			{Kind: types.PatchSetAttr, Target: "bob", Payload: map[string]any{"attr": "a", "value": 1}},
			{Kind: types.PatchMove, Target: "c2", Payload: map[string]any{"to": "alice:hand"}},
			{Kind: types.PatchSetTurn, Payload: map[string]any{"field": "phase", "value": "end"}},
		}}, nil
	}}))
	must(t, e.EnqueueCommand(&addCmd{target: "ghost", attr: "hp", amount: 1})) // rejected

	versions := []int{v0}
	for {
		res, err := e.Step()
		must(t, err)
		if res.Command == "" {
			break
		}
		versions = append(versions, e.State().Version)
	}
	want := []int{0, 1, 2, 3, 4, 5, 8, 8}
	if fmt.Sprint(versions) != fmt.Sprint(want) {
		t.Errorf("versions = %v, want %v", versions, want)
	}
}

func TestLogParity_RejectedAndVetoed(t *testing.T) {
	e := newTestEngine(t, 1)
	must(t, e.Replacements().Register(types.Replacement{
		ID: "no-pings", Command: "PING", Action: types.Action{Op: "veto"},
	}))
	must(t, e.Initialize(testInitial()))

	must(t, e.EnqueueCommand(&addCmd{target: "ghost", attr: "hp", amount: 1}))
	must(t, e.EnqueueCommand(pingCmd{}))
	must(t, e.EnqueueCommand(&addCmd{target: "alice", attr: "hp", amount: 1}))

	var kinds []string
	e.Bus().Subscribe(func(batch []types.DomainEvent) {
		for _, evt := range batch {
			kinds = append(kinds, evt.Type)
		}
	})
	run(t, e)

	entries := e.Log().Entries()
	if len(entries) != 3 {
		t.Fatalf("log = %d entries, want 3", len(entries))
	}
	wantTypes := []string{"ADD", "PING", "ADD"}
	for i, entry := range entries {
		if entry.Type != wantTypes[i] || entry.Payload == nil {
			t.Errorf("entry %d = %+v", i, entry)
		}
	}
	if entries[0].Payload["target"] != "ghost" {
		t.Errorf("rejected payload = %v", entries[0].Payload)
	}
	want := fmt.Sprint([]string{types.EventCommandRejected, types.EventCommandVetoed, "ADDED"})
	if fmt.Sprint(kinds) != want {
		t.Errorf("events = %v, want %v", kinds, want)
	}
	if e.State().Version != 1 {
		t.Errorf("version = %d, want 1", e.State().Version)
	}
}

func TestReplacement_TransformsOutcome(t *testing.T) {
	e := newTestEngine(t, 1)
	must(t, e.Replacements().Register(types.Replacement{
		ID: "floor", Command: "ADD",
		Action: types.Action{Op: "clamp_attr", Params: map[string]any{"attr": "hp", "min": 1}},
	}))
	must(t, e.Initialize(testInitial()))
	must(t, e.EnqueueCommand(&addCmd{target: "bob", attr: "hp", amount: -50}))
	run(t, e)
	if got := state.AttrInt(e.State(), "bob", "hp"); got != 1 {
		t.Errorf("hp = %d, want 1", got)
	}
}

func TestCycleSafety(t *testing.T) {
	e := newTestEngine(t, 1)
	must(t, e.Triggers().Register(types.Trigger{ID: "loop", EventType: "PINGED", Intent: types.IntentTemplate{Type: "PING"}}))
	must(t, e.Initialize(testInitial()))
	must(t, e.EnqueueCommand(pingCmd{}))

	res, err := e.RunUntilIdle(1000)
	must(t, err)
	if res.Status != StatusCycle {
		t.Fatalf("status = %s, want cycle", res.Status)
	}
	if res.Steps > 256 {
		t.Errorf("cycle took %d steps to detect", res.Steps)
	}
}

func TestRepeatedPlayerCommandsAreNotCycles(t *testing.T) {
	e := initialized(t, 1)
	for i := 0; i < 3; i++ {
		must(t, e.EnqueueCommand(pingCmd{}))
		if res := run(t, e); res.Status != StatusIdle {
			t.Fatalf("round %d: status = %s, want idle", i, res.Status)
		}
	}
}

func TestMaxSteps(t *testing.T) {
	e := initialized(t, 1)
	must(t, e.EnqueueCommand(countCmd{}))
	res, err := e.RunUntilIdle(10)
	must(t, err)
	if res.Status != StatusMaxSteps || res.Steps != 10 {
		t.Errorf("run = %+v, want max_steps after 10", res)
	}
	if e.State().Turn.Number != 11 {
		t.Errorf("turn = %d, want 11", e.State().Turn.Number)
	}
}

func TestFatal_ApplyErrorPoisonsEngine(t *testing.T) {
	e := initialized(t, 1)
	boom := errors.New("boom")
	must(t, e.EnqueueCommand(funcCmd{typ: "BOOM", apply: func(*types.State) (types.Outcome, error) {
		return types.Outcome{}, boom
	}}))
	must(t, e.EnqueueCommand(pingCmd{}))

	_, err := e.Step()
	if !errors.Is(err, boom) {
		t.Fatalf("got %v, want boom", err)
	}
	if _, again := e.Step(); !errors.Is(again, boom) {
		t.Errorf("second Step: got %v", again)
	}
	if e.Err() == nil {
		t.Error("Err should report the fatal error")
	}
	if e.Log().Len() != 0 {
		t.Error("a failed command is not logged")
	}
}

func TestFatal_MissingPatchTarget(t *testing.T) {
	e := initialized(t, 1)
	must(t, e.EnqueueCommand(funcCmd{typ: "BAD", apply: func(*types.State) (types.Outcome, error) {
		return types.Outcome{Patches: []types.Patch{{Kind: types.PatchRemove, Target: "ghost"}}}, nil
	}}))
	if _, err := e.RunUntilIdle(0); !errors.Is(err, state.ErrTargetNotFound) {
		t.Errorf("got %v, want ErrTargetNotFound", err)
	}
	if e.State().Version != 0 {
		t.Error("no patch should be committed")
	}
}

func TestUnresolvedIntentIsDropped(t *testing.T) {
	e := initialized(t, 1)
	var notices []events.Notice
	e.Notifier().Listen(func(n events.Notice) { notices = append(notices, n) })
	must(t, e.EnqueueCommand(funcCmd{typ: "WISH", apply: func(*types.State) (types.Outcome, error) {
		return types.Outcome{Intents: []types.Intent{{Type: "NOBODY_HANDLES_THIS"}, {Type: "PING"}}}, nil
	}}))

	res := run(t, e)
	if res.Status != StatusIdle || res.Steps != 2 {
		t.Errorf("run = %+v, want idle after WISH and PING", res)
	}
	var dropped bool
	for _, n := range notices {
		if n.Kind == events.NoticeIntentUnresolved && n.Detail == "NOBODY_HANDLES_THIS" {
			dropped = true
		}
	}
	if !dropped {
		t.Error("expected an intent_unresolved notice")
	}
}

func TestIntentsAreFIFO(t *testing.T) {
	e := initialized(t, 1)
	must(t, e.EnqueueCommand(funcCmd{typ: "FAN", apply: func(*types.State) (types.Outcome, error) {
		return types.Outcome{Intents: []types.Intent{
			{Type: "ADD", Payload: map[string]any{"target": "alice", "attr": "order", "amount": 1}, Priority: 1},
			{Type: "ADD", Payload: map[string]any{"target": "bob", "attr": "order", "amount": 1}, Priority: 9},
		}}, nil
	}}))
	run(t, e)
	entries := e.Log().Entries()
	if len(entries) != 3 || entries[1].Payload["target"] != "alice" || entries[2].Payload["target"] != "bob" {
		t.Errorf("log = %+v, want FAN, alice, bob", entries)
	}
}

func TestGetView_IsACopy(t *testing.T) {
	e := initialized(t, 1)
	view := e.GetView()
	view.Players["alice"].Attrs["hp"] = 0
	if state.AttrInt(e.State(), "alice", "hp") != 20 {
		t.Error("GetView must not alias engine state")
	}
}

func TestViewFor_RedactsByVisibility(t *testing.T) {
	e := newTestEngine(t, 1)
	s := testInitial()
	s.Visibility["c3"] = types.VisibilityPublic
	must(t, e.Initialize(s))

	bobView := e.ViewFor("bob")
	if bobView.Entities["c1"].Attrs != nil {
		t.Error("bob should not see alice's hand")
	}
	if bobView.Entities["c2"].Attrs != nil {
		t.Error("decks are hidden from everyone")
	}
	if state.AttrInt(bobView, "c3", "power") != 5 {
		t.Error("the public override should reveal c3")
	}
	aliceView := e.ViewFor("alice")
	if aliceView.Entities["c1"].Kind != "spell" {
		t.Error("alice should see her own hand")
	}
}

func TestEnginesAreIndependent(t *testing.T) {
	a := initialized(t, 1)
	b := initialized(t, 1)
	must(t, a.Rules().RegisterCondition("only_a", func(types.Condition, rules.Env) bool { return true }))
	if b.Rules().KnownCondition("only_a") {
		t.Error("rule registrations leaked across engines")
	}
}
