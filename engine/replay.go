package engine

import (
	"fmt"

	"github.com/nathoo/duelcore/engine/command"
	"github.com/nathoo/duelcore/engine/events"
	"github.com/nathoo/duelcore/engine/save"
	"github.com/nathoo/duelcore/engine/state"
	"github.com/nathoo/duelcore/engine/tape"
	"github.com/nathoo/duelcore/types"
)

// ExportReplay returns the command log, the random tape and a deep copy of
// the initial state.
func (e *Engine) ExportReplay() save.Blob {
	return save.Blob{
		Format:   save.Format,
		Seed:     e.seed,
		Commands: e.cmdLog.Entries(),
		Draws:    e.tape.Draws(),
		Initial:  state.Clone(e.initial),
	}
}

// ImportReplay restores the blob's initial state and queues every logged
// command for re-execution. The engine stays in replay mode, with triggers,
// intents and pauses disabled, until ResumeLive.
func (e *Engine) ImportReplay(b save.Blob) error {
	if b.Initial == nil {
		return save.ErrNoInitialState
	}
	source := command.NewLogFrom(b.Commands)
	cmds := make([]types.Command, 0, source.Len())
	for entry, more := source.Next(); more; entry, more = source.Next() {
		cmd, err := e.commands.Build(entry)
		if err != nil {
			return fmt.Errorf("replay entry %d: %w", source.Cursor()-1, err)
		}
		cmds = append(cmds, cmd)
	}
	start := state.Clone(b.Initial)
	if err := e.checkState(start); err != nil {
		return err
	}

	e.zones.Freeze()
	e.reset()
	e.seed = b.Seed
	e.initial = start
	e.state = state.Clone(start)
	e.query.SetState(e.state)
	e.tape = tape.NewReplay(b.Seed, b.Draws)
	e.cmdQueue = cmds
	e.replaying = true
	e.initialized = true

	e.log.Info("replay loaded", "commands", len(cmds), "draws", len(b.Draws), "seed", b.Seed)
	e.notifier.Notify(events.Notice{Kind: events.NoticeReplayLoaded, Detail: fmt.Sprintf("%d commands", len(cmds))})
	return nil
}

// ResumeLive leaves replay mode. The tape continues recording from its
// current position, and triggers and pauses are re-enabled.
func (e *Engine) ResumeLive() {
	if !e.replaying {
		return
	}
	e.tape.Resume()
	e.replaying = false
}
