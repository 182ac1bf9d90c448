// Package dynamics manages relationship formation: initiated dynamics, their
// First Windows, and the unit profiles an active dynamic can evolve into.
package dynamics

import (
	"time"

	"github.com/mitchellh/mapstructure"
)

// DynamicType is the user-facing label of a dynamic.
type DynamicType string

const (
	DynamicFirstFlirt     DynamicType = "First Flirt"
	DynamicFirstMeet      DynamicType = "First Meet"
	DynamicFirstCollab    DynamicType = "First Collab"
	DynamicFirstEncounter DynamicType = "First Encounter"
	DynamicFirstSync      DynamicType = "First Sync"
)

// Status is the lifecycle state of a dynamic. Transitions only ever move
// forward: initiated -> active -> evolved, with dormant and ended as terminal
// side exits. A dynamic is never deleted.
type Status string

const (
	StatusInitiated Status = "initiated"
	StatusActive    Status = "active"
	StatusEvolved   Status = "evolved"
	StatusDormant   Status = "dormant"
	StatusEnded     Status = "ended"
)

// Evolution event types recorded on a dynamic's history.
const (
	EventWindowOpened      = "window_opened"
	EventWindowExtended    = "window_extended"
	EventUnitFormed        = "unit_formed"
	EventRelationshipNamed = "relationship_named"
	EventStatusChanged     = "status_changed"
)

// Window statuses.
const (
	WindowOpen      = "open"
	WindowExpired   = "expired"
	WindowConverted = "converted"
	WindowAbandoned = "abandoned"
)

// Window activity types.
const (
	ActivityEntered            = "entered"
	ActivityLeft               = "left"
	ActivityMessageSent        = "message_sent"
	ActivityExtensionRequested = "extension_requested"
	ActivityFormationProposed  = "formation_proposed"
)

// Unit profile enums.
const (
	UnitDuo   = "duo"
	UnitTrio  = "trio"
	UnitGroup = "group"

	VisibilityPublic  = "public"
	VisibilityLimited = "limited"
	VisibilityPrivate = "private"

	StyleSeparate    = "separate"
	StyleUnified     = "unified"
	StyleAlternating = "alternating"

	RolePrimary   = "primary"
	RoleSecondary = "secondary"
	RoleEqual     = "equal"

	PermissionPost    = "post"
	PermissionRespond = "respond"
	PermissionManage  = "manage"
)

// DynamicRelationship is the persisted relationship document.
type DynamicRelationship struct {
	DynamicID        string           `json:"dynamic_id"`
	Users            []string         `json:"users"`
	DynamicType      DynamicType      `json:"dynamic_type"`
	Status           Status           `json:"status"`
	CreatedAt        time.Time        `json:"created_at"`
	ExpiresAt        time.Time        `json:"expires_at"`
	MessagesEnabled  bool             `json:"messages_enabled"`
	EvolutionHistory []EvolutionEvent `json:"evolution_history"`
	UnitProfile      *UnitProfile     `json:"unit_profile,omitempty"`
	InteractionCount int              `json:"interaction_count"`
	LastInteraction  time.Time        `json:"last_interaction"`
}

// EvolutionEvent is one entry of a dynamic's append-only history.
type EvolutionEvent struct {
	EventID     string         `json:"event_id"`
	EventType   string         `json:"event_type"`
	Timestamp   time.Time      `json:"timestamp"`
	Data        map[string]any `json:"data"`
	TriggeredBy string         `json:"triggered_by"`
}

// FirstWindow is the limited-time mutual-presence window opened alongside a
// newly initiated dynamic.
type FirstWindow struct {
	WindowID      string           `json:"window_id"`
	DynamicID     string           `json:"dynamic_id"`
	OpenedAt      time.Time        `json:"opened_at"`
	ExpiresAt     time.Time        `json:"expires_at"`
	DurationHours int              `json:"duration_hours"`
	Participants  []string         `json:"participants"`
	Status        string           `json:"status"`
	ActivityLog   []WindowActivity `json:"activity_log"`
}

// WindowActivity is one logged participant action inside a window. Data is an
// untyped payload whose shape depends on the activity type.
type WindowActivity struct {
	ActivityID    string         `json:"activity_id"`
	ParticipantID string         `json:"participant_id"`
	ActivityType  string         `json:"activity_type"`
	Timestamp     time.Time      `json:"timestamp"`
	Data          map[string]any `json:"data,omitempty"`
}

// DecodeData maps the untyped activity payload onto a typed struct. The
// target's fields use mapstructure tags matching the payload keys.
func (a WindowActivity) DecodeData(out any) error {
	return mapstructure.Decode(a.Data, out)
}

// ExtensionData is the payload recorded with an extension_requested activity.
// NewExpiry carries RFC3339 text so the payload survives a JSON round trip.
type ExtensionData struct {
	AdditionalHours int    `mapstructure:"additional_hours"`
	NewExpiry       string `mapstructure:"new_expiry"`
}

// UnitProfile is the joint profile a pair (or group) presents once the
// dynamic has evolved.
type UnitProfile struct {
	UnitID           string       `json:"unit_id"`
	UnitName         string       `json:"unit_name"`
	JointImage       string       `json:"joint_image,omitempty"`
	SharedBio        string       `json:"shared_bio,omitempty"`
	UnitType         string       `json:"unit_type"`
	Visibility       string       `json:"visibility"`
	InteractionStyle string       `json:"interaction_style"`
	CreatedAt        time.Time    `json:"created_at"`
	Members          []UnitMember `json:"members"`
}

// UnitData carries the caller-supplied fields for a new unit profile. Zero
// values fall back to defaults.
type UnitData struct {
	UnitName         string `json:"unit_name,omitempty"`
	JointImage       string `json:"joint_image,omitempty"`
	SharedBio        string `json:"shared_bio,omitempty"`
	Visibility       string `json:"visibility,omitempty"`
	InteractionStyle string `json:"interaction_style,omitempty"`
}

// UnitMember is one user's membership entry within a unit profile.
type UnitMember struct {
	UserID      string    `json:"user_id"`
	Role        string    `json:"role"`
	Permissions []string  `json:"permissions"`
	JoinDate    time.Time `json:"join_date"`
}
