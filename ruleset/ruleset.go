// Package ruleset is the baseline duel: heroes with hp, armor and mana,
// decks, hands, boards and graveyards, and the commands that move cards
// between them. Install registers everything on an engine.
package ruleset

import (
	"fmt"

	"github.com/mitchellh/mapstructure"

	"github.com/nathoo/duelcore/engine"
	"github.com/nathoo/duelcore/engine/state"
	"github.com/nathoo/duelcore/types"
)

// Zone type ids.
const (
	ZoneDeck      = "deck"
	ZoneHand      = "hand"
	ZoneBoard     = "board"
	ZoneGraveyard = "graveyard"
)

// Card kinds.
const (
	KindUnit  = "unit"
	KindSpell = "spell"
)

// Limits.
const (
	MaxMana   = 10
	HandSize  = 10
	BoardSize = 7
)

// Event types emitted by the ruleset.
const (
	EventTurnEnded    = "TURN_ENDED"
	EventTurnStarted  = "TURN_STARTED"
	EventCardDrawn    = "CARD_DRAWN"
	EventCardBurned   = "CARD_BURNED"
	EventCardTaken    = "CARD_TAKEN"
	EventDeckEmpty    = "DECK_EMPTY"
	EventDeckShuffled = "DECK_SHUFFLED"
	EventDamageDealt  = "DAMAGE_DEALT"
	EventUnitDied     = "UNIT_DIED"
	EventUnitPlayed   = "UNIT_PLAYED"
	EventSpellPlayed  = "SPELL_PLAYED"
	EventAttack       = "ATTACK_DECLARED"
)

// ZoneTypes are the four standard zones.
var ZoneTypes = []types.ZoneType{
	{ID: ZoneDeck, Ordered: true, Visibility: types.VisibilityHidden},
	{ID: ZoneHand, Visibility: types.VisibilityOwner, MaxSize: HandSize},
	{ID: ZoneBoard, Ordered: true, Visibility: types.VisibilityPublic, MaxSize: BoardSize},
	{ID: ZoneGraveyard, Ordered: true, Visibility: types.VisibilityPublic},
}

// ZoneID names a player's zone of the given type.
func ZoneID(player, zoneType string) string {
	return player + ":" + zoneType
}

// Install registers the zone types, commands and intent factories. It must
// run before Initialize.
func Install(e *engine.Engine) error {
	for _, zt := range ZoneTypes {
		if err := e.Zones().Register(zt); err != nil {
			return err
		}
	}
	for typ, ctor := range constructors {
		if err := e.Commands().Register(typ, ctor); err != nil {
			return err
		}
	}
	for typ, f := range factories {
		if err := e.Intents().Register(typ, f); err != nil {
			return err
		}
	}
	return nil
}

// CardSpec describes one card in a starting zone.
type CardSpec struct {
	ID    string
	Kind  string
	Attrs map[string]any
}

// HeroSpec describes one player at the start of a match.
type HeroSpec struct {
	ID    string
	HP    int
	Armor int
	Mana  int
	Deck  []CardSpec // top first
	Hand  []CardSpec
	Board []CardSpec
}

// NewMatch builds a starting state. The first hero is active on turn 1.
func NewMatch(heroes ...HeroSpec) *types.State {
	s := state.New()
	s.Turn = types.TurnState{Number: 1, Phase: "main"}
	for _, h := range heroes {
		s.Turn.Seats = append(s.Turn.Seats, h.ID)
		s.Players[h.ID] = types.Player{ID: h.ID, Attrs: map[string]any{
			"hp":       h.HP,
			"armor":    h.Armor,
			"mana":     h.Mana,
			"max_mana": h.Mana,
		}}
		for _, zt := range ZoneTypes {
			id := ZoneID(h.ID, zt.ID)
			s.Zones[id] = types.Zone{ID: id, Type: zt.ID, Owner: h.ID, Entities: []string{}}
		}
		place(s, h.ID, ZoneDeck, h.Deck)
		place(s, h.ID, ZoneHand, h.Hand)
		place(s, h.ID, ZoneBoard, h.Board)
	}
	if len(heroes) > 0 {
		s.Turn.ActivePlayer = heroes[0].ID
	}
	return s
}

func place(s *types.State, owner, zoneType string, cards []CardSpec) {
	zoneID := ZoneID(owner, zoneType)
	z := s.Zones[zoneID]
	for _, c := range cards {
		attrs := state.CopyAttrs(c.Attrs)
		if attrs == nil {
			attrs = map[string]any{}
		}
		s.Entities[c.ID] = types.Entity{ID: c.ID, Kind: c.Kind, Owner: owner, Zone: zoneID, Attrs: attrs}
		z.Entities = append(z.Entities, c.ID)
	}
	s.Zones[zoneID] = z
}

// decode fills a command struct from a payload. Numbers and strings convert
// loosely, since logged payloads come back from JSON as float64.
func decode(payload map[string]any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(payload); err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}
	return nil
}

// encode turns a command struct back into its wire payload.
func encode(in any) map[string]any {
	out := map[string]any{}
	_ = mapstructure.Decode(in, &out)
	return out
}

// --- Validation helpers ---

func ok() types.Validation { return types.Validation{Valid: true} }

func reject(format string, args ...any) types.Validation {
	return types.Validation{Reason: fmt.Sprintf(format, args...)}
}

// playerTurn checks that the game is live and it is player's turn.
func playerTurn(s *types.State, player string) (types.Validation, bool) {
	if s.Turn.Winner != "" {
		return reject("the game is over"), false
	}
	if _, exists := s.Players[player]; !exists {
		return reject("unknown player %q", player), false
	}
	if s.Turn.ActivePlayer != player {
		return reject("it is not %s's turn", player), false
	}
	return ok(), true
}

// inZone reports whether entity id sits in the owner's zone of the given type.
func inZone(s *types.State, id, owner, zoneType string) bool {
	e, exists := s.Entities[id]
	return exists && e.Zone == ZoneID(owner, zoneType)
}

func zoneFull(s *types.State, ctx types.Context, zoneID string) bool {
	z := s.Zones[zoneID]
	zt, _ := ctx.Zones.Get(z.Type)
	return zt.MaxSize > 0 && len(z.Entities) >= zt.MaxSize
}

// --- Patch helpers ---

func setAttr(target, attr string, value any) types.Patch {
	return types.Patch{Kind: types.PatchSetAttr, Target: target, Payload: map[string]any{"attr": attr, "value": value}}
}

func move(entity, to string) types.Patch {
	return types.Patch{Kind: types.PatchMove, Target: entity, Payload: map[string]any{"to": to}}
}

func moveAt(entity, to string, index int) types.Patch {
	return types.Patch{Kind: types.PatchMove, Target: entity, Payload: map[string]any{"to": to, "index": index}}
}

func setTurn(field string, value any) types.Patch {
	return types.Patch{Kind: types.PatchSetTurn, Payload: map[string]any{"field": field, "value": value}}
}

func event(typ string, payload map[string]any) types.DomainEvent {
	return types.DomainEvent{Type: typ, Payload: payload}
}

// damage returns the patches and events for amount damage to target.
// Armor reduces it unless pierce is set; the result never goes below zero.
func damage(s *types.State, ctx types.Context, source, target string, amount int, pierce bool) types.Outcome {
	if !pierce {
		amount -= ctx.Query.QueryInt(target, "armor")
	}
	if amount < 0 {
		amount = 0
	}
	hp := state.AttrInt(s, target, "hp") - amount
	out := types.Outcome{
		Patches: []types.Patch{setAttr(target, "hp", hp)},
		Events: []types.DomainEvent{event(EventDamageDealt, map[string]any{
			"source": source, "target": target, "amount": amount, "hp": hp,
		})},
	}
	if hp <= 0 {
		merge(&out, death(s, target))
	}
	return out
}

// death handles a hero or unit reaching zero hp.
func death(s *types.State, id string) types.Outcome {
	if _, isPlayer := s.Players[id]; isPlayer {
		winner := state.NextSeat(s, id)
		return types.Outcome{
			Patches: []types.Patch{setTurn("winner", winner), setTurn("phase", "over")},
			Events:  []types.DomainEvent{event(types.EventGameOver, map[string]any{"winner": winner, "loser": id})},
		}
	}
	owner := s.Entities[id].Owner
	return types.Outcome{
		Patches: []types.Patch{move(id, ZoneID(owner, ZoneGraveyard))},
		Events:  []types.DomainEvent{event(EventUnitDied, map[string]any{"entity": id, "owner": owner})},
	}
}

func merge(dst *types.Outcome, src types.Outcome) {
	dst.Patches = append(dst.Patches, src.Patches...)
	dst.Events = append(dst.Events, src.Events...)
	dst.Intents = append(dst.Intents, src.Intents...)
}
