package ruleset

import (
	"github.com/nathoo/duelcore/engine/command"
	"github.com/nathoo/duelcore/engine/state"
	"github.com/nathoo/duelcore/types"
)

// Command types.
const (
	CmdEndTurn     = "END_TURN"
	CmdAttack      = "ATTACK"
	CmdPlaySpell   = "PLAY_SPELL"
	CmdPlayUnit    = "PLAY_UNIT"
	CmdDrawCard    = "DRAW_CARD"
	CmdDealDamage  = "DEAL_DAMAGE"
	CmdShuffleDeck = "SHUFFLE_DECK"
	CmdDiscover    = "DISCOVER"
	CmdTakeCard    = "TAKE_CARD"
)

var constructors = map[string]command.Constructor{
	CmdEndTurn:     build[EndTurn],
	CmdAttack:      build[Attack],
	CmdPlaySpell:   build[PlaySpell],
	CmdPlayUnit:    build[PlayUnit],
	CmdDrawCard:    build[DrawCard],
	CmdDealDamage:  build[DealDamage],
	CmdShuffleDeck: build[ShuffleDeck],
	CmdDiscover:    build[Discover],
	CmdTakeCard:    build[TakeCard],
}

// build decodes a payload into a fresh command of type T.
func build[T any, P interface {
	*T
	types.Command
}](payload map[string]any) (types.Command, error) {
	cmd := P(new(T))
	if err := decode(payload, cmd); err != nil {
		return nil, err
	}
	return cmd, nil
}

// Build constructs a ruleset command from its logged form.
func Build(entry types.CommandEntry) (types.Command, error) {
	r := command.NewRegistry()
	for typ, ctor := range constructors {
		_ = r.Register(typ, ctor)
	}
	return r.Build(entry)
}

// EndTurn passes the turn to the next seat. The incoming player gains a
// mana crystal (up to MaxMana), refills, readies their units and draws.
type EndTurn struct {
	Player string `mapstructure:"player"`
}

func (c *EndTurn) Type() string            { return CmdEndTurn }
func (c *EndTurn) Payload() map[string]any { return encode(*c) }

func (c *EndTurn) Validate(s *types.State, _ types.Context) types.Validation {
	v, _ := playerTurn(s, c.Player)
	return v
}

func (c *EndTurn) Apply(s *types.State, _ types.Context) (types.Outcome, error) {
	next := state.NextSeat(s, c.Player)
	maxMana := min(MaxMana, state.AttrInt(s, next, "max_mana")+1)
	number := s.Turn.Number + 1

	out := types.Outcome{
		Patches: []types.Patch{
			setTurn("active_player", next),
			setTurn("number", number),
			setAttr(next, "max_mana", maxMana),
			setAttr(next, "mana", maxMana),
		},
		Events: []types.DomainEvent{
			event(EventTurnEnded, map[string]any{"player": c.Player}),
			event(EventTurnStarted, map[string]any{"player": next, "number": number}),
		},
		Intents: []types.Intent{{Type: CmdDrawCard, Payload: map[string]any{"player": next}, Source: CmdEndTurn}},
	}
	for _, id := range state.ZoneEntities(s, ZoneID(next, ZoneBoard)) {
		if exhausted, _ := s.Entities[id].Attrs["exhausted"].(bool); exhausted {
			out.Patches = append(out.Patches, setAttr(id, "exhausted", false))
		}
	}
	return out, nil
}

// Attack has a ready unit strike an enemy hero or unit. Units strike back.
type Attack struct {
	Attacker string `mapstructure:"attacker"`
	Target   string `mapstructure:"target"`
}

func (c *Attack) Type() string            { return CmdAttack }
func (c *Attack) Payload() map[string]any { return encode(*c) }

func (c *Attack) Validate(s *types.State, ctx types.Context) types.Validation {
	attacker, exists := s.Entities[c.Attacker]
	if !exists {
		return reject("unknown attacker %q", c.Attacker)
	}
	if v, ok := playerTurn(s, attacker.Owner); !ok {
		return v
	}
	if !inZone(s, c.Attacker, attacker.Owner, ZoneBoard) {
		return reject("%s is not on the board", c.Attacker)
	}
	if exhausted, _ := attacker.Attrs["exhausted"].(bool); exhausted {
		return reject("%s is exhausted", c.Attacker)
	}
	if ctx.Query.QueryInt(c.Attacker, "power") <= 0 {
		return reject("%s has no power", c.Attacker)
	}
	if !state.Exists(s, c.Target) || state.OwnerOf(s, c.Target) == attacker.Owner {
		return reject("invalid target %q", c.Target)
	}
	if _, isPlayer := s.Players[c.Target]; !isPlayer && !inZone(s, c.Target, state.OwnerOf(s, c.Target), ZoneBoard) {
		return reject("%s is not on the board", c.Target)
	}
	return ok()
}

func (c *Attack) Apply(s *types.State, ctx types.Context) (types.Outcome, error) {
	out := types.Outcome{
		Patches: []types.Patch{setAttr(c.Attacker, "exhausted", true)},
		Events:  []types.DomainEvent{event(EventAttack, map[string]any{"attacker": c.Attacker, "target": c.Target})},
	}
	merge(&out, damage(s, ctx, c.Attacker, c.Target, ctx.Query.QueryInt(c.Attacker, "power"), false))
	if _, isPlayer := s.Players[c.Target]; !isPlayer {
		if power := ctx.Query.QueryInt(c.Target, "power"); power > 0 {
			merge(&out, damage(s, ctx, c.Target, c.Attacker, power, false))
		}
	}
	return out, nil
}

// PlaySpell casts a spell from hand. A spell may carry "damage" (needs a
// target), "pierce" and "draw" attributes.
type PlaySpell struct {
	Player string `mapstructure:"player"`
	Card   string `mapstructure:"card"`
	Target string `mapstructure:"target,omitempty"`
}

func (c *PlaySpell) Type() string            { return CmdPlaySpell }
func (c *PlaySpell) Payload() map[string]any { return encode(*c) }

func (c *PlaySpell) Validate(s *types.State, ctx types.Context) types.Validation {
	if v, ok := playerTurn(s, c.Player); !ok {
		return v
	}
	if !inZone(s, c.Card, c.Player, ZoneHand) || s.Entities[c.Card].Kind != KindSpell {
		return reject("%s is not a spell in hand", c.Card)
	}
	if cost := ctx.Query.QueryInt(c.Card, "cost"); cost > state.AttrInt(s, c.Player, "mana") {
		return reject("not enough mana for %s", c.Card)
	}
	if ctx.Query.QueryInt(c.Card, "damage") > 0 && !state.Exists(s, c.Target) {
		return reject("%s needs a target", c.Card)
	}
	return ok()
}

func (c *PlaySpell) Apply(s *types.State, ctx types.Context) (types.Outcome, error) {
	mana := state.AttrInt(s, c.Player, "mana") - ctx.Query.QueryInt(c.Card, "cost")
	out := types.Outcome{
		Patches: []types.Patch{
			setAttr(c.Player, "mana", mana),
			move(c.Card, ZoneID(c.Player, ZoneGraveyard)),
		},
		Events: []types.DomainEvent{event(EventSpellPlayed, map[string]any{"player": c.Player, "card": c.Card, "target": c.Target})},
	}
	if dmg := ctx.Query.QueryInt(c.Card, "damage"); dmg > 0 {
		pierce, _ := s.Entities[c.Card].Attrs["pierce"].(bool)
		merge(&out, damage(s, ctx, c.Card, c.Target, dmg, pierce))
	}
	if n := ctx.Query.QueryInt(c.Card, "draw"); n > 0 {
		out.Intents = append(out.Intents, types.Intent{
			Type:    CmdDrawCard,
			Payload: map[string]any{"player": c.Player, "count": n},
			Source:  c.Card,
		})
	}
	return out, nil
}

// PlayUnit puts a unit from hand onto the board. It cannot attack this turn.
type PlayUnit struct {
	Player string `mapstructure:"player"`
	Card   string `mapstructure:"card"`
}

func (c *PlayUnit) Type() string            { return CmdPlayUnit }
func (c *PlayUnit) Payload() map[string]any { return encode(*c) }

func (c *PlayUnit) Validate(s *types.State, ctx types.Context) types.Validation {
	if v, ok := playerTurn(s, c.Player); !ok {
		return v
	}
	if !inZone(s, c.Card, c.Player, ZoneHand) || s.Entities[c.Card].Kind != KindUnit {
		return reject("%s is not a unit in hand", c.Card)
	}
	if cost := ctx.Query.QueryInt(c.Card, "cost"); cost > state.AttrInt(s, c.Player, "mana") {
		return reject("not enough mana for %s", c.Card)
	}
	if zoneFull(s, ctx, ZoneID(c.Player, ZoneBoard)) {
		return reject("the board is full")
	}
	return ok()
}

func (c *PlayUnit) Apply(s *types.State, ctx types.Context) (types.Outcome, error) {
	mana := state.AttrInt(s, c.Player, "mana") - ctx.Query.QueryInt(c.Card, "cost")
	return types.Outcome{
		Patches: []types.Patch{
			setAttr(c.Player, "mana", mana),
			move(c.Card, ZoneID(c.Player, ZoneBoard)),
			setAttr(c.Card, "exhausted", true),
		},
		Events: []types.DomainEvent{event(EventUnitPlayed, map[string]any{"player": c.Player, "card": c.Card})},
	}, nil
}

// DrawCard moves the top Count cards (at least one) of a deck to hand,
// burning each card that finds the hand full. Drawing from an empty deck
// reports DECK_EMPTY and stops.
type DrawCard struct {
	Player string `mapstructure:"player"`
	Count  int    `mapstructure:"count,omitempty"`
}

func (c *DrawCard) Type() string            { return CmdDrawCard }
func (c *DrawCard) Payload() map[string]any { return encode(*c) }

func (c *DrawCard) Validate(s *types.State, _ types.Context) types.Validation {
	if s.Turn.Winner != "" {
		return reject("the game is over")
	}
	if _, exists := s.Players[c.Player]; !exists {
		return reject("unknown player %q", c.Player)
	}
	return ok()
}

func (c *DrawCard) Apply(s *types.State, ctx types.Context) (types.Outcome, error) {
	var out types.Outcome
	deck := state.ZoneEntities(s, ZoneID(c.Player, ZoneDeck))
	handID := ZoneID(c.Player, ZoneHand)
	hand := len(state.ZoneEntities(s, handID))
	limit := 0
	if zt, found := ctx.Zones.Get(s.Zones[handID].Type); found {
		limit = zt.MaxSize
	}

	for i := 0; i < max(c.Count, 1); i++ {
		if i >= len(deck) {
			out.Events = append(out.Events, event(EventDeckEmpty, map[string]any{"player": c.Player}))
			break
		}
		card := deck[i]
		if limit > 0 && hand >= limit {
			out.Patches = append(out.Patches, move(card, ZoneID(c.Player, ZoneGraveyard)))
			out.Events = append(out.Events, event(EventCardBurned, map[string]any{"player": c.Player, "card": card}))
			continue
		}
		hand++
		out.Patches = append(out.Patches, move(card, handID))
		out.Events = append(out.Events, event(EventCardDrawn, map[string]any{"player": c.Player, "card": card}))
	}
	return out, nil
}

// toHand moves a card to its owner's hand, or burns it when the hand is full.
func toHand(s *types.State, ctx types.Context, player, card, eventType string) types.Outcome {
	if zoneFull(s, ctx, ZoneID(player, ZoneHand)) {
		return types.Outcome{
			Patches: []types.Patch{move(card, ZoneID(player, ZoneGraveyard))},
			Events:  []types.DomainEvent{event(EventCardBurned, map[string]any{"player": player, "card": card})},
		}
	}
	return types.Outcome{
		Patches: []types.Patch{move(card, ZoneID(player, ZoneHand))},
		Events:  []types.DomainEvent{event(eventType, map[string]any{"player": player, "card": card})},
	}
}

// DealDamage is system damage from a trigger or effect.
type DealDamage struct {
	Source string `mapstructure:"source,omitempty"`
	Target string `mapstructure:"target"`
	Amount int    `mapstructure:"amount"`
	Pierce bool   `mapstructure:"pierce,omitempty"`
}

func (c *DealDamage) Type() string            { return CmdDealDamage }
func (c *DealDamage) Payload() map[string]any { return encode(*c) }

func (c *DealDamage) Validate(s *types.State, _ types.Context) types.Validation {
	if s.Turn.Winner != "" {
		return reject("the game is over")
	}
	if !state.Exists(s, c.Target) {
		return reject("unknown target %q", c.Target)
	}
	if !damageable(s, c.Target) {
		return reject("%s cannot take damage", c.Target)
	}
	if c.Amount < 0 {
		return reject("negative damage")
	}
	return ok()
}

func (c *DealDamage) Apply(s *types.State, ctx types.Context) (types.Outcome, error) {
	return damage(s, ctx, c.Source, c.Target, c.Amount, c.Pierce), nil
}

// damageable reports whether id is a hero or a unit with hp.
func damageable(s *types.State, id string) bool {
	if _, isPlayer := s.Players[id]; isPlayer {
		return true
	}
	ent := s.Entities[id]
	_, hasHP := ent.Attrs["hp"]
	return ent.Kind == KindUnit && hasHP
}

// ShuffleDeck reorders a deck with a Fisher-Yates pass over the tape.
type ShuffleDeck struct {
	Player string `mapstructure:"player"`
}

func (c *ShuffleDeck) Type() string            { return CmdShuffleDeck }
func (c *ShuffleDeck) Payload() map[string]any { return encode(*c) }

func (c *ShuffleDeck) Validate(s *types.State, _ types.Context) types.Validation {
	if _, exists := s.Players[c.Player]; !exists {
		return reject("unknown player %q", c.Player)
	}
	return ok()
}

func (c *ShuffleDeck) Apply(s *types.State, ctx types.Context) (types.Outcome, error) {
	deckID := ZoneID(c.Player, ZoneDeck)
	order := append([]string(nil), state.ZoneEntities(s, deckID)...)
	for i := len(order) - 1; i > 0; i-- {
		j := ctx.RNG.NextInt(0, i)
		order[i], order[j] = order[j], order[i]
	}

	// Each move pulls the card into position i, so positions before i are
	// already final.
	out := types.Outcome{Events: []types.DomainEvent{event(EventDeckShuffled, map[string]any{"player": c.Player})}}
	cur := append([]string(nil), state.ZoneEntities(s, deckID)...)
	for i, id := range order {
		if cur[i] == id {
			continue
		}
		out.Patches = append(out.Patches, moveAt(id, deckID, i))
		cur = reposition(cur, id, i)
	}
	return out, nil
}

func reposition(ids []string, id string, index int) []string {
	out := make([]string, 0, len(ids))
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	out = append(out[:index], append([]string{id}, out[index:]...)...)
	return out
}

// Discover reveals up to Count random cards from the player's deck and asks
// the player to take one.
type Discover struct {
	Player string `mapstructure:"player"`
	Count  int    `mapstructure:"count,omitempty"`
}

func (c *Discover) Type() string            { return CmdDiscover }
func (c *Discover) Payload() map[string]any { return encode(*c) }

func (c *Discover) Validate(s *types.State, ctx types.Context) types.Validation {
	if v, ok := playerTurn(s, c.Player); !ok {
		return v
	}
	if ctx.Choices.Pending() != nil {
		return reject("a choice is already pending")
	}
	if len(state.ZoneEntities(s, ZoneID(c.Player, ZoneDeck))) == 0 {
		return reject("the deck is empty")
	}
	return ok()
}

func (c *Discover) Apply(s *types.State, ctx types.Context) (types.Outcome, error) {
	count := c.Count
	if count <= 0 {
		count = 3
	}
	pool := append([]string(nil), state.ZoneEntities(s, ZoneID(c.Player, ZoneDeck))...)
	count = min(count, len(pool))
	for i := 0; i < count; i++ {
		j := ctx.RNG.NextInt(i, len(pool)-1)
		pool[i], pool[j] = pool[j], pool[i]
	}
	options := pool[:count]

	id, err := ctx.Choices.Request(types.PendingChoice{
		Player:   c.Player,
		Selector: types.Selector{Options: options, Min: 1, Max: 1},
		Source:   CmdDiscover,
		Resume:   CmdTakeCard,
		Context:  map[string]any{"player": c.Player},
	})
	if err != nil {
		return types.Outcome{}, err
	}
	return types.Outcome{Events: []types.DomainEvent{event(types.EventChoiceRequested, map[string]any{
		"choice_id": id,
		"player":    c.Player,
		"options":   append([]string(nil), options...),
	})}}, nil
}

// TakeCard moves a chosen card from the player's deck to hand. Selection is
// the answer to a Discover choice; Card may name the card directly.
type TakeCard struct {
	Player    string `mapstructure:"player"`
	Card      string `mapstructure:"card,omitempty"`
	Selection any    `mapstructure:"selection,omitempty"`
}

func (c *TakeCard) Type() string { return CmdTakeCard }

func (c *TakeCard) Payload() map[string]any {
	return map[string]any{"player": c.Player, "card": c.card()}
}

func (c *TakeCard) card() string {
	if c.Card != "" {
		return c.Card
	}
	switch v := c.Selection.(type) {
	case string:
		return v
	case []string:
		if len(v) > 0 {
			return v[0]
		}
	case []any:
		if len(v) > 0 {
			s, _ := v[0].(string)
			return s
		}
	}
	return ""
}

func (c *TakeCard) Validate(s *types.State, _ types.Context) types.Validation {
	if s.Turn.Winner != "" {
		return reject("the game is over")
	}
	card := c.card()
	if !inZone(s, card, c.Player, ZoneDeck) {
		return reject("%q is not in %s's deck", card, c.Player)
	}
	return ok()
}

func (c *TakeCard) Apply(s *types.State, ctx types.Context) (types.Outcome, error) {
	return toHand(s, ctx, c.Player, c.card(), EventCardTaken), nil
}
