package dynamics

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/impression-social/impression-engine/internal/logger"
	"github.com/impression-social/impression-engine/internal/store"
)

// ErrWindowNotOpen reports an activity or extension aimed at a missing,
// expired or already converted window. Callers may treat it as non-fatal.
var ErrWindowNotOpen = errors.New("first window is not open")

// Config holds the state machine tunables.
type Config struct {
	// WindowHours is the initial First Window duration. Default 48.
	WindowHours int
}

func (c Config) withDefaults() Config {
	if c.WindowHours == 0 {
		c.WindowHours = 48
	}
	return c
}

// Engine drives the dynamic relationship state machine on top of the store.
// Now is overridable for deterministic tests.
type Engine struct {
	store  store.Store
	logger *zap.Logger
	cfg    Config

	Now func() time.Time
}

func NewEngine(s store.Store, log *zap.Logger, cfg Config) *Engine {
	return &Engine{
		store:  s,
		logger: log,
		cfg:    cfg.withDefaults(),
		Now:    time.Now,
	}
}

// InitiateDynamic creates a dynamic in the initiated state and opens its
// First Window with the initiator already entered.
func (e *Engine) InitiateDynamic(userIDs []string, dynamicType DynamicType, initiatedBy string) (*DynamicRelationship, error) {
	if len(userIDs) < 2 {
		return nil, fmt.Errorf("a dynamic requires at least two users, got %d", len(userIDs))
	}

	now := e.Now().UTC()
	expires := now.Add(time.Duration(e.cfg.WindowHours) * time.Hour)

	dynamic := &DynamicRelationship{
		DynamicID:       "dyn_" + uuid.NewString(),
		Users:           userIDs,
		DynamicType:     dynamicType,
		Status:          StatusInitiated,
		CreatedAt:       now,
		ExpiresAt:       expires,
		MessagesEnabled: true,
		EvolutionHistory: []EvolutionEvent{{
			EventID:   "evt_" + uuid.NewString(),
			EventType: EventWindowOpened,
			Timestamp: now,
			Data: map[string]any{
				"dynamic_type":   string(dynamicType),
				"duration_hours": e.cfg.WindowHours,
			},
			TriggeredBy: initiatedBy,
		}},
		LastInteraction: now,
	}

	if err := e.storeDynamic(dynamic); err != nil {
		return nil, err
	}
	if _, err := e.openFirstWindow(dynamic, initiatedBy); err != nil {
		return nil, err
	}

	e.logger.Info("dynamic initiated",
		zap.String(logger.FieldDynamic, dynamic.DynamicID),
		zap.String("dynamic_type", string(dynamicType)),
		zap.Strings("users", userIDs),
	)

	return dynamic, nil
}

func (e *Engine) openFirstWindow(dynamic *DynamicRelationship, initiatedBy string) (*FirstWindow, error) {
	now := e.Now().UTC()

	window := &FirstWindow{
		WindowID:      "win_" + uuid.NewString(),
		DynamicID:     dynamic.DynamicID,
		OpenedAt:      now,
		ExpiresAt:     dynamic.ExpiresAt,
		DurationHours: e.cfg.WindowHours,
		Participants:  dynamic.Users,
		Status:        WindowOpen,
		ActivityLog: []WindowActivity{{
			ActivityID:    "act_" + uuid.NewString(),
			ParticipantID: initiatedBy,
			ActivityType:  ActivityEntered,
			Timestamp:     now,
			Data: map[string]any{
				"message": fmt.Sprintf("%s opened a %s window", initiatedBy, dynamic.DynamicType),
			},
		}},
	}

	if err := e.storeWindow(window); err != nil {
		return nil, err
	}
	return window, nil
}

// AddWindowActivity appends a participant action to an open window and re-runs
// the formation check. Closed or unknown windows yield ErrWindowNotOpen.
func (e *Engine) AddWindowActivity(windowID, participantID, activityType string, data map[string]any) error {
	window, err := e.Window(windowID)
	if err != nil {
		return err
	}
	if window == nil || window.Status != WindowOpen {
		return fmt.Errorf("%w: %s", ErrWindowNotOpen, windowID)
	}

	window.ActivityLog = append(window.ActivityLog, WindowActivity{
		ActivityID:    "act_" + uuid.NewString(),
		ParticipantID: participantID,
		ActivityType:  activityType,
		Timestamp:     e.Now().UTC(),
		Data:          data,
	})

	if err := e.storeWindow(window); err != nil {
		return err
	}
	return e.checkFormation(window)
}

// checkFormation replays the activity log into a present-set and converts the
// window once every participant is simultaneously entered. This is the single
// automatic status transition in the machine.
func (e *Engine) checkFormation(window *FirstWindow) error {
	entered := make(map[string]struct{})
	for _, activity := range window.ActivityLog {
		switch activity.ActivityType {
		case ActivityEntered:
			entered[activity.ParticipantID] = struct{}{}
		case ActivityLeft:
			delete(entered, activity.ParticipantID)
		}
	}

	if len(entered) != len(window.Participants) {
		return nil
	}

	dynamic, err := e.Dynamic(window.DynamicID)
	if err != nil {
		return err
	}
	if dynamic == nil || dynamic.Status != StatusInitiated {
		return nil
	}

	now := e.Now().UTC()
	dynamic.Status = StatusActive
	dynamic.LastInteraction = now
	dynamic.EvolutionHistory = append(dynamic.EvolutionHistory, EvolutionEvent{
		EventID:   "evt_" + uuid.NewString(),
		EventType: EventStatusChanged,
		Timestamp: now,
		Data: map[string]any{
			"from_status": string(StatusInitiated),
			"to_status":   string(StatusActive),
		},
		TriggeredBy: "system",
	})
	if err := e.storeDynamic(dynamic); err != nil {
		return err
	}

	window.Status = WindowConverted
	if err := e.storeWindow(window); err != nil {
		return err
	}

	e.logger.Info("dynamic formed",
		zap.String(logger.FieldDynamic, dynamic.DynamicID),
		zap.String(logger.FieldWindow, window.WindowID),
	)
	return nil
}

// ExtendWindow pushes an open window's expiry and logs the extension request.
func (e *Engine) ExtendWindow(windowID string, additionalHours int, requestedBy string) error {
	window, err := e.Window(windowID)
	if err != nil {
		return err
	}
	if window == nil || window.Status != WindowOpen {
		return fmt.Errorf("%w: %s", ErrWindowNotOpen, windowID)
	}

	newExpiry := window.ExpiresAt.Add(time.Duration(additionalHours) * time.Hour)
	window.ExpiresAt = newExpiry
	window.DurationHours += additionalHours
	if err := e.storeWindow(window); err != nil {
		return err
	}

	return e.AddWindowActivity(windowID, requestedBy, ActivityExtensionRequested, map[string]any{
		"additional_hours": additionalHours,
		"new_expiry":       newExpiry.Format(time.RFC3339),
	})
}

// CreateUnitProfile evolves an active dynamic into a unit profile. Anything
// other than an active dynamic yields (nil, nil).
func (e *Engine) CreateUnitProfile(dynamicID string, data UnitData, createdBy string) (*UnitProfile, error) {
	dynamic, err := e.Dynamic(dynamicID)
	if err != nil {
		return nil, err
	}
	if dynamic == nil || dynamic.Status != StatusActive {
		return nil, nil
	}

	now := e.Now().UTC()

	name := data.UnitName
	if name == "" {
		name = fmt.Sprintf("%s Unit", dynamic.DynamicType)
	}
	visibility := data.Visibility
	if visibility == "" {
		visibility = VisibilityPublic
	}
	style := data.InteractionStyle
	if style == "" {
		style = StyleUnified
	}

	unit := &UnitProfile{
		UnitID:           "unit_" + uuid.NewString(),
		UnitName:         name,
		JointImage:       data.JointImage,
		SharedBio:        data.SharedBio,
		UnitType:         unitType(len(dynamic.Users)),
		Visibility:       visibility,
		InteractionStyle: style,
		CreatedAt:        now,
		Members:          unitMembers(dynamic.Users, now),
	}

	dynamic.UnitProfile = unit
	dynamic.Status = StatusEvolved
	dynamic.LastInteraction = now
	dynamic.EvolutionHistory = append(dynamic.EvolutionHistory, EvolutionEvent{
		EventID:   "evt_" + uuid.NewString(),
		EventType: EventUnitFormed,
		Timestamp: now,
		Data: map[string]any{
			"unit_id":   unit.UnitID,
			"unit_name": unit.UnitName,
		},
		TriggeredBy: createdBy,
	})

	if err := e.storeDynamic(dynamic); err != nil {
		return nil, err
	}
	if err := e.storeUnit(unit); err != nil {
		return nil, err
	}

	e.logger.Info("unit profile created",
		zap.String(logger.FieldDynamic, dynamicID),
		zap.String("unit_id", unit.UnitID),
		zap.String("unit_type", unit.UnitType),
	)
	return unit, nil
}

// MarkDormant transitions a dynamic sideways into the dormant state.
func (e *Engine) MarkDormant(dynamicID, triggeredBy string) error {
	return e.setStatus(dynamicID, StatusDormant, triggeredBy)
}

// End transitions a dynamic into the terminal ended state. The record itself
// is never deleted.
func (e *Engine) End(dynamicID, triggeredBy string) error {
	return e.setStatus(dynamicID, StatusEnded, triggeredBy)
}

func (e *Engine) setStatus(dynamicID string, to Status, triggeredBy string) error {
	dynamic, err := e.Dynamic(dynamicID)
	if err != nil {
		return err
	}
	if dynamic == nil {
		return fmt.Errorf("dynamic %s not found", dynamicID)
	}
	if dynamic.Status == StatusEnded {
		return fmt.Errorf("dynamic %s already ended", dynamicID)
	}
	if dynamic.Status == to {
		return nil
	}

	now := e.Now().UTC()
	from := dynamic.Status
	dynamic.Status = to
	dynamic.LastInteraction = now
	dynamic.EvolutionHistory = append(dynamic.EvolutionHistory, EvolutionEvent{
		EventID:   "evt_" + uuid.NewString(),
		EventType: EventStatusChanged,
		Timestamp: now,
		Data: map[string]any{
			"from_status": string(from),
			"to_status":   string(to),
		},
		TriggeredBy: triggeredBy,
	})
	return e.storeDynamic(dynamic)
}

// Dynamic returns the stored dynamic, or nil when unknown.
func (e *Engine) Dynamic(dynamicID string) (*DynamicRelationship, error) {
	dynamics, err := e.loadDynamics()
	if err != nil {
		return nil, err
	}
	for _, dynamic := range dynamics {
		if dynamic.DynamicID == dynamicID {
			return dynamic, nil
		}
	}
	return nil, nil
}

// Window returns the stored window, or nil when unknown.
func (e *Engine) Window(windowID string) (*FirstWindow, error) {
	windows, err := e.loadWindows()
	if err != nil {
		return nil, err
	}
	for _, window := range windows {
		if window.WindowID == windowID {
			return window, nil
		}
	}
	return nil, nil
}

// WindowForDynamic returns the window opened for the given dynamic.
func (e *Engine) WindowForDynamic(dynamicID string) (*FirstWindow, error) {
	windows, err := e.loadWindows()
	if err != nil {
		return nil, err
	}
	for _, window := range windows {
		if window.DynamicID == dynamicID {
			return window, nil
		}
	}
	return nil, nil
}

// WindowExtensions decodes the extension payloads logged on the dynamic's
// window, in request order. A dynamic without a window yields an empty slice.
func (e *Engine) WindowExtensions(dynamicID string) ([]ExtensionData, error) {
	window, err := e.WindowForDynamic(dynamicID)
	if err != nil {
		return nil, err
	}

	extensions := make([]ExtensionData, 0)
	if window == nil {
		return extensions, nil
	}

	for _, activity := range window.ActivityLog {
		if activity.ActivityType != ActivityExtensionRequested {
			continue
		}
		var payload ExtensionData
		if err := activity.DecodeData(&payload); err != nil {
			return nil, fmt.Errorf("decode extension %s: %w", activity.ActivityID, err)
		}
		extensions = append(extensions, payload)
	}
	return extensions, nil
}

// UserDynamics lists the user's dynamics in non-terminal states.
func (e *Engine) UserDynamics(userID string) ([]*DynamicRelationship, error) {
	dynamics, err := e.loadDynamics()
	if err != nil {
		return nil, err
	}

	result := make([]*DynamicRelationship, 0)
	for _, dynamic := range dynamics {
		if !containsUser(dynamic.Users, userID) {
			continue
		}
		switch dynamic.Status {
		case StatusInitiated, StatusActive, StatusEvolved:
			result = append(result, dynamic)
		}
	}
	return result, nil
}

// UserUnitProfiles lists every unit profile the user is a member of.
func (e *Engine) UserUnitProfiles(userID string) ([]*UnitProfile, error) {
	units := make([]*UnitProfile, 0)
	if _, err := e.store.Get(store.KeyUnits, &units); err != nil {
		return nil, fmt.Errorf("read unit profiles: %w", err)
	}

	result := make([]*UnitProfile, 0)
	for _, unit := range units {
		for _, member := range unit.Members {
			if member.UserID == userID {
				result = append(result, unit)
				break
			}
		}
	}
	return result, nil
}

func unitType(memberCount int) string {
	switch memberCount {
	case 2:
		return UnitDuo
	case 3:
		return UnitTrio
	default:
		return UnitGroup
	}
}

func unitMembers(userIDs []string, joined time.Time) []UnitMember {
	members := make([]UnitMember, 0, len(userIDs))
	for i, userID := range userIDs {
		role := RoleEqual
		if i == 0 {
			role = RolePrimary
		}
		members = append(members, UnitMember{
			UserID:      userID,
			Role:        role,
			Permissions: []string{PermissionPost, PermissionRespond, PermissionManage},
			JoinDate:    joined,
		})
	}
	return members
}

func containsUser(users []string, userID string) bool {
	for _, u := range users {
		if u == userID {
			return true
		}
	}
	return false
}

func (e *Engine) loadDynamics() ([]*DynamicRelationship, error) {
	dynamics := make([]*DynamicRelationship, 0)
	if _, err := e.store.Get(store.KeyDynamics, &dynamics); err != nil {
		return nil, fmt.Errorf("read dynamics: %w", err)
	}
	return dynamics, nil
}

func (e *Engine) loadWindows() ([]*FirstWindow, error) {
	windows := make([]*FirstWindow, 0)
	if _, err := e.store.Get(store.KeyWindows, &windows); err != nil {
		return nil, fmt.Errorf("read first windows: %w", err)
	}
	return windows, nil
}

func (e *Engine) storeDynamic(dynamic *DynamicRelationship) error {
	dynamics, err := e.loadDynamics()
	if err != nil {
		return err
	}

	replaced := false
	for i, existing := range dynamics {
		if existing.DynamicID == dynamic.DynamicID {
			dynamics[i] = dynamic
			replaced = true
			break
		}
	}
	if !replaced {
		dynamics = append(dynamics, dynamic)
	}

	if err := e.store.Set(store.KeyDynamics, dynamics); err != nil {
		return fmt.Errorf("store dynamics: %w", err)
	}
	return nil
}

func (e *Engine) storeWindow(window *FirstWindow) error {
	windows, err := e.loadWindows()
	if err != nil {
		return err
	}

	replaced := false
	for i, existing := range windows {
		if existing.WindowID == window.WindowID {
			windows[i] = window
			replaced = true
			break
		}
	}
	if !replaced {
		windows = append(windows, window)
	}

	if err := e.store.Set(store.KeyWindows, windows); err != nil {
		return fmt.Errorf("store first windows: %w", err)
	}
	return nil
}

func (e *Engine) storeUnit(unit *UnitProfile) error {
	units := make([]*UnitProfile, 0)
	if _, err := e.store.Get(store.KeyUnits, &units); err != nil {
		return fmt.Errorf("read unit profiles: %w", err)
	}

	replaced := false
	for i, existing := range units {
		if existing.UnitID == unit.UnitID {
			units[i] = unit
			replaced = true
			break
		}
	}
	if !replaced {
		units = append(units, unit)
	}

	if err := e.store.Set(store.KeyUnits, units); err != nil {
		return fmt.Errorf("store unit profiles: %w", err)
	}
	return nil
}
