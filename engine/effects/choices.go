package effects

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/nathoo/duelcore/types"
)

var (
	// ErrChoicePending indicates a request while another choice is outstanding.
	ErrChoicePending = errors.New("a choice is already pending")
	// ErrChoicePlayer indicates a request without a player.
	ErrChoicePlayer = errors.New("choice player is required")
)

// choiceNamespace seeds the name-based choice ids.
var choiceNamespace = uuid.MustParse("6f1d3c3e-0b7a-5d8e-9a51-2c4f8e7b1d90")

// ChoiceSystem holds at most one pending choice. Ids are derived from a
// per-system sequence so a replayed session reproduces them exactly.
type ChoiceSystem struct {
	pending *types.PendingChoice
	seq     int
}

// NewChoiceSystem creates an empty choice system.
func NewChoiceSystem() *ChoiceSystem {
	return &ChoiceSystem{}
}

// Request registers the pending choice and returns its id.
func (c *ChoiceSystem) Request(choice types.PendingChoice) (string, error) {
	if c.pending != nil {
		return "", fmt.Errorf("%w: %s", ErrChoicePending, c.pending.ID)
	}
	if choice.Player == "" {
		return "", ErrChoicePlayer
	}
	c.seq++
	choice.ID = uuid.NewSHA1(choiceNamespace, []byte(fmt.Sprintf("choice/%d", c.seq))).String()
	choice.Selector.Options = append([]string(nil), choice.Selector.Options...)
	c.pending = &choice
	return choice.ID, nil
}

// Pending returns a copy of the outstanding choice, or nil.
func (c *ChoiceSystem) Pending() *types.PendingChoice {
	if c.pending == nil {
		return nil
	}
	cp := *c.pending
	return &cp
}

// Provide resolves the pending choice if the id matches. Stale or unknown
// ids are no-ops.
func (c *ChoiceSystem) Provide(choiceID string, selection any) types.ChoiceResolution {
	if c.pending == nil || c.pending.ID != choiceID {
		return types.ChoiceResolution{}
	}
	choice := c.pending
	c.pending = nil
	return types.ChoiceResolution{Resolved: true, Choice: choice, Selection: selection}
}

// Cancel drops the pending choice without resolving it.
func (c *ChoiceSystem) Cancel() {
	c.pending = nil
}

// Reset clears the pending choice and restarts id generation.
func (c *ChoiceSystem) Reset() {
	c.pending = nil
	c.seq = 0
}

// ValidSelection reports whether selection satisfies a selector. A selection
// is a single option id or a list of them; Max 0 means one.
func ValidSelection(sel types.Selector, selection any) bool {
	var picked []string
	switch v := selection.(type) {
	case string:
		picked = []string{v}
	case []string:
		picked = v
	case []any:
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return false
			}
			picked = append(picked, s)
		}
	default:
		return false
	}

	limit := sel.Max
	if limit == 0 {
		limit = 1
	}
	if len(picked) < sel.Min || len(picked) > limit {
		return false
	}
	seen := map[string]bool{}
	for _, id := range picked {
		if seen[id] {
			return false
		}
		seen[id] = true
		if len(sel.Options) > 0 && !contains(sel.Options, id) {
			return false
		}
	}
	return true
}

func contains(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
