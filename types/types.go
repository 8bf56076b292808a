// Package types defines the shared data structures for the duelcore engine.
// This package contains only type definitions; it has no logic and no methods.
package types

// Visibility controls who may see an entity's attributes.
type Visibility string

const (
	VisibilityPublic Visibility = "public"
	VisibilityOwner  Visibility = "owner"
	VisibilityHidden Visibility = "hidden"
)

// ZoneType is an immutable descriptor registered before a match starts.
type ZoneType struct {
	ID         string     `json:"id"`
	Ordered    bool       `json:"ordered"`
	Visibility Visibility `json:"visibility"`
	MaxSize    int        `json:"max_size"` // 0 means unbounded
}

// TurnState is the small record of whose turn it is.
type TurnState struct {
	ActivePlayer string   `json:"active_player"`
	Number       int      `json:"number"`
	Phase        string   `json:"phase"`
	Winner       string   `json:"winner"`
	Seats        []string `json:"seats"` // seating order, fixed at initialize
}

// Player is a hero/seat with free-form attributes (hp, armor, mana, ...).
type Player struct {
	ID    string         `json:"id"`
	Attrs map[string]any `json:"attrs"`
}

// Entity is a card or unit. It references its zone and owner by id only.
type Entity struct {
	ID    string         `json:"id"`
	Kind  string         `json:"kind"`
	Owner string         `json:"owner"`
	Zone  string         `json:"zone"`
	Attrs map[string]any `json:"attrs"`
}

// Zone holds entity ids. Order is meaningful for ordered zone types.
type Zone struct {
	ID       string   `json:"id"`
	Type     string   `json:"type"`
	Owner    string   `json:"owner"`
	Entities []string `json:"entities"`
}

// State is the complete game state. Every transition produces a new State.
type State struct {
	Version    int                   `json:"version"`
	Turn       TurnState             `json:"turn"`
	Players    map[string]Player     `json:"players"`
	Entities   map[string]Entity     `json:"entities"`
	Zones      map[string]Zone       `json:"zones"`
	Visibility map[string]Visibility `json:"visibility"` // per-entity overrides
}

// PatchKind enumerates the closed set of state transitions.
type PatchKind string

const (
	PatchSetAttr       PatchKind = "set_attr"
	PatchMove          PatchKind = "move"
	PatchCreate        PatchKind = "create"
	PatchRemove        PatchKind = "remove"
	PatchSetTurn       PatchKind = "set_turn"
	PatchSetVisibility PatchKind = "set_visibility"
)

// Patch is a single typed state transition.
type Patch struct {
	Kind    PatchKind      `json:"kind"`
	Target  string         `json:"target"`
	Payload map[string]any `json:"payload"`
}

// DomainEvent is an immutable fact about something that already happened.
type DomainEvent struct {
	Type    string         `json:"type"`
	Payload map[string]any `json:"payload"`
	Source  string         `json:"source"` // issuing command type
}

// Core event types emitted by the engine itself.
const (
	EventCommandRejected = "COMMAND_REJECTED"
	EventCommandVetoed   = "COMMAND_VETOED"
	EventChoiceRequested = "CHOICE_REQUESTED"
	EventChoiceResolved  = "CHOICE_RESOLVED"
	EventGameOver        = "GAME_OVER"
)

// Intent is a deferred request for a future command.
type Intent struct {
	Type     string         `json:"type"`
	Payload  map[string]any `json:"payload"`
	Source   string         `json:"source"`
	Priority int            `json:"priority,omitempty"`
}

// IntentTemplate is the intent a trigger produces. Payload values may hold
// references ("$event.target") resolved when the trigger fires.
type IntentTemplate struct {
	Type     string         `json:"type"`
	Payload  map[string]any `json:"payload"`
	Priority int            `json:"priority,omitempty"`
}

// CommandEntry is the serialized form of a command in the log.
type CommandEntry struct {
	Type    string         `json:"type"`
	Payload map[string]any `json:"payload"`
}

// Outcome is what a command's Apply produces.
type Outcome struct {
	Patches []Patch
	Events  []DomainEvent
	Intents []Intent
}

// Validation is the result of Command.Validate.
type Validation struct {
	Valid  bool
	Reason string
}

// RandomSource is the deterministic number source exposed to commands.
type RandomSource interface {
	Next() float64
	NextInt(min, max int) int
}

// AttributeReader resolves attributes through the modifier layer.
type AttributeReader interface {
	Query(entityID, attr string) (any, bool)
	QueryInt(entityID, attr string) int
}

// ChoiceRequester lets commands pause for external input.
type ChoiceRequester interface {
	Request(choice PendingChoice) (string, error)
	Pending() *PendingChoice
	Provide(choiceID string, selection any) ChoiceResolution
}

// ZoneTypeLookup resolves registered zone types.
type ZoneTypeLookup interface {
	Get(id string) (ZoneType, bool)
}

// Context carries the engine services a command may use.
type Context struct {
	RNG     RandomSource
	Query   AttributeReader
	Choices ChoiceRequester
	Zones   ZoneTypeLookup
}

// Command is one executable, loggable action.
type Command interface {
	Type() string
	Payload() map[string]any
	Validate(s *State, ctx Context) Validation
	Apply(s *State, ctx Context) (Outcome, error)
}

// Condition is a tagged predicate descriptor.
type Condition struct {
	Type   string         `json:"type"`
	Params map[string]any `json:"params,omitempty"`
	Inner  []Condition    `json:"inner,omitempty"` // for not/any/all
}

// Transform is a tagged attribute transform descriptor.
type Transform struct {
	Op     string         `json:"op"`
	Params map[string]any `json:"params,omitempty"`
}

// Action is a tagged replacement action descriptor.
type Action struct {
	Op     string         `json:"op"`
	Params map[string]any `json:"params,omitempty"`
}

// Modifier is a continuous, read-time-only attribute transform.
type Modifier struct {
	ID        string      `json:"id"`
	Attribute string      `json:"attribute"`
	Layer     int         `json:"layer"`
	Timestamp int         `json:"timestamp"`
	When      []Condition `json:"when,omitempty"`
	Op        Transform   `json:"op"`
}

// Replacement intercepts a command's outcome before patches are applied.
type Replacement struct {
	ID       string      `json:"id"`
	Priority int         `json:"priority"`
	Command  string      `json:"command"` // empty matches any command type
	When     []Condition `json:"when,omitempty"`
	Action   Action      `json:"action"`
}

// Trigger turns a matching domain event into an intent.
type Trigger struct {
	ID        string         `json:"id"`
	EventType string         `json:"event_type"`
	When      []Condition    `json:"when,omitempty"`
	Intent    IntentTemplate `json:"intent"`
}

// Selector describes what a pending choice accepts.
type Selector struct {
	Options []string `json:"options"`
	Min     int      `json:"min"`
	Max     int      `json:"max"`
}

// PendingChoice is the single outstanding request for player input.
type PendingChoice struct {
	ID       string         `json:"id"`
	Player   string         `json:"player"`
	Selector Selector       `json:"selector"`
	Source   string         `json:"source"`
	Resume   string         `json:"resume"` // intent type issued on resolution
	Context  map[string]any `json:"context"`
}

// ChoiceResolution is the outcome of providing a selection.
type ChoiceResolution struct {
	Resolved  bool
	Choice    *PendingChoice
	Selection any
}
