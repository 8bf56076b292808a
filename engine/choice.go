package engine

import (
	"github.com/nathoo/duelcore/engine/effects"
	"github.com/nathoo/duelcore/engine/state"
	"github.com/nathoo/duelcore/types"
)

// CommandResolveChoice is the built-in command that answers a pending choice.
const CommandResolveChoice = "RESOLVE_CHOICE"

// resolveChoice carries a player's selection through the command log so a
// replayed session answers the same choices in the same order.
type resolveChoice struct {
	choiceID  string
	selection any
}

func newResolveChoice(payload map[string]any) (types.Command, error) {
	id, _ := payload["choice_id"].(string)
	return &resolveChoice{choiceID: id, selection: payload["selection"]}, nil
}

func (c *resolveChoice) Type() string { return CommandResolveChoice }

func (c *resolveChoice) Payload() map[string]any {
	return map[string]any{"choice_id": c.choiceID, "selection": c.selection}
}

func (c *resolveChoice) Validate(_ *types.State, ctx types.Context) types.Validation {
	pending := ctx.Choices.Pending()
	if pending == nil || pending.ID != c.choiceID {
		return types.Validation{Reason: "no matching choice is pending"}
	}
	if !effects.ValidSelection(pending.Selector, c.selection) {
		return types.Validation{Reason: "selection does not satisfy the choice"}
	}
	return types.Validation{Valid: true}
}

func (c *resolveChoice) Apply(_ *types.State, ctx types.Context) (types.Outcome, error) {
	res := ctx.Choices.Provide(c.choiceID, c.selection)
	if !res.Resolved {
		return types.Outcome{}, nil
	}
	out := types.Outcome{Events: []types.DomainEvent{{
		Type: types.EventChoiceResolved,
		Payload: map[string]any{
			"choice_id": c.choiceID,
			"player":    res.Choice.Player,
			"selection": c.selection,
		},
	}}}
	if res.Choice.Resume != "" {
		payload := state.CopyAttrs(res.Choice.Context)
		if payload == nil {
			payload = map[string]any{}
		}
		payload["selection"] = c.selection
		payload["player"] = res.Choice.Player
		payload["choice_id"] = c.choiceID
		out.Intents = append(out.Intents, types.Intent{
			Type:    res.Choice.Resume,
			Payload: payload,
			Source:  res.Choice.Source,
		})
	}
	return out, nil
}

// ProvideChoice answers the pending choice. It queues a RESOLVE_CHOICE
// command and returns false, queueing nothing, when the id is stale or the
// selection does not fit the selector.
func (e *Engine) ProvideChoice(choiceID string, selection any) bool {
	if !e.initialized || e.fatal != nil {
		return false
	}
	pending := e.choices.Pending()
	if pending == nil || pending.ID != choiceID || !effects.ValidSelection(pending.Selector, selection) {
		e.log.Debug("choice ignored", "choice", choiceID)
		return false
	}
	_ = e.EnqueueCommand(&resolveChoice{choiceID: choiceID, selection: selection})
	return true
}
