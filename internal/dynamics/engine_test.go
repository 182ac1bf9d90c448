package dynamics

import (
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/impression-social/impression-engine/internal/store"
)

func newTestEngine() *Engine {
	e := NewEngine(store.NewMemory(), zap.NewNop(), Config{})
	e.Now = func() time.Time { return time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC) }
	return e
}

func TestInitiateDynamicRequiresTwoUsers(t *testing.T) {
	t.Parallel()

	e := newTestEngine()
	if _, err := e.InitiateDynamic([]string{"u1"}, DynamicFirstFlirt, "u1"); err == nil {
		t.Fatalf("expected validation error for a single user")
	}
}

func TestInitiateDynamicOpensWindowWithInitiator(t *testing.T) {
	t.Parallel()

	e := newTestEngine()
	dynamic, err := e.InitiateDynamic([]string{"u1", "u2"}, DynamicFirstFlirt, "u1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if dynamic.Status != StatusInitiated {
		t.Fatalf("expected initiated, got %s", dynamic.Status)
	}
	if !dynamic.MessagesEnabled {
		t.Fatalf("expected messages enabled")
	}
	if want := dynamic.CreatedAt.Add(48 * time.Hour); !dynamic.ExpiresAt.Equal(want) {
		t.Fatalf("expected 48h expiry, got %v", dynamic.ExpiresAt)
	}
	if len(dynamic.EvolutionHistory) != 1 || dynamic.EvolutionHistory[0].EventType != EventWindowOpened {
		t.Fatalf("expected a single window_opened event, got %+v", dynamic.EvolutionHistory)
	}

	window, err := e.WindowForDynamic(dynamic.DynamicID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if window == nil {
		t.Fatalf("expected a first window")
	}
	if window.Status != WindowOpen {
		t.Fatalf("expected open window, got %s", window.Status)
	}
	if len(window.ActivityLog) != 1 || window.ActivityLog[0].ActivityType != ActivityEntered {
		t.Fatalf("expected the initiator entered, got %+v", window.ActivityLog)
	}
	if window.ActivityLog[0].ParticipantID != "u1" {
		t.Fatalf("expected initiator activity, got %s", window.ActivityLog[0].ParticipantID)
	}
}

func TestSecondParticipantEnteringFormsDynamic(t *testing.T) {
	t.Parallel()

	e := newTestEngine()
	dynamic, err := e.InitiateDynamic([]string{"u1", "u2"}, DynamicFirstFlirt, "u1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	window, err := e.WindowForDynamic(dynamic.DynamicID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := e.AddWindowActivity(window.WindowID, "u2", ActivityEntered, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	formed, err := e.Dynamic(dynamic.DynamicID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if formed.Status != StatusActive {
		t.Fatalf("expected active, got %s", formed.Status)
	}
	last := formed.EvolutionHistory[len(formed.EvolutionHistory)-1]
	if last.EventType != EventStatusChanged || last.TriggeredBy != "system" {
		t.Fatalf("expected system status_changed event, got %+v", last)
	}

	converted, err := e.Window(window.WindowID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if converted.Status != WindowConverted {
		t.Fatalf("expected converted window, got %s", converted.Status)
	}
}

func TestLeavingPreventsFormation(t *testing.T) {
	t.Parallel()

	e := newTestEngine()
	dynamic, err := e.InitiateDynamic([]string{"u1", "u2"}, DynamicFirstMeet, "u1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	window, err := e.WindowForDynamic(dynamic.DynamicID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := e.AddWindowActivity(window.WindowID, "u1", ActivityLeft, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := e.AddWindowActivity(window.WindowID, "u2", ActivityEntered, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	current, err := e.Dynamic(dynamic.DynamicID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if current.Status != StatusInitiated {
		t.Fatalf("expected still initiated, got %s", current.Status)
	}
}

func TestActivityOnConvertedWindowIsRejected(t *testing.T) {
	t.Parallel()

	e := newTestEngine()
	dynamic, err := e.InitiateDynamic([]string{"u1", "u2"}, DynamicFirstFlirt, "u1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	window, err := e.WindowForDynamic(dynamic.DynamicID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := e.AddWindowActivity(window.WindowID, "u2", ActivityEntered, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	err = e.AddWindowActivity(window.WindowID, "u1", ActivityMessageSent, map[string]any{"text": "hi"})
	if !errors.Is(err, ErrWindowNotOpen) {
		t.Fatalf("expected ErrWindowNotOpen, got %v", err)
	}
}

func TestExtendWindowPushesExpiryAndLogsActivity(t *testing.T) {
	t.Parallel()

	e := newTestEngine()
	dynamic, err := e.InitiateDynamic([]string{"u1", "u2"}, DynamicFirstCollab, "u1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	window, err := e.WindowForDynamic(dynamic.DynamicID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	originalExpiry := window.ExpiresAt

	if err := e.ExtendWindow(window.WindowID, 24, "u1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	extended, err := e.Window(window.WindowID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := originalExpiry.Add(24 * time.Hour); !extended.ExpiresAt.Equal(want) {
		t.Fatalf("expected expiry %v, got %v", want, extended.ExpiresAt)
	}
	if extended.DurationHours != 72 {
		t.Fatalf("expected 72h duration, got %d", extended.DurationHours)
	}

	last := extended.ActivityLog[len(extended.ActivityLog)-1]
	if last.ActivityType != ActivityExtensionRequested {
		t.Fatalf("expected extension_requested, got %s", last.ActivityType)
	}

	var payload ExtensionData
	if err := last.DecodeData(&payload); err != nil {
		t.Fatalf("unexpected decode error: %v", err)
	}
	if payload.AdditionalHours != 24 {
		t.Fatalf("expected 24 additional hours, got %d", payload.AdditionalHours)
	}
	if payload.NewExpiry == "" {
		t.Fatalf("expected new expiry in payload")
	}
}

func TestWindowExtensionsDecodesLoggedPayloads(t *testing.T) {
	t.Parallel()

	e := newTestEngine()
	dynamic, err := e.InitiateDynamic([]string{"u1", "u2"}, DynamicFirstCollab, "u1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	window, err := e.WindowForDynamic(dynamic.DynamicID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := e.ExtendWindow(window.WindowID, 24, "u1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := e.ExtendWindow(window.WindowID, 12, "u2"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	extensions, err := e.WindowExtensions(dynamic.DynamicID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(extensions) != 2 {
		t.Fatalf("expected 2 extensions, got %d", len(extensions))
	}
	if extensions[0].AdditionalHours != 24 || extensions[1].AdditionalHours != 12 {
		t.Fatalf("expected hours in request order, got %+v", extensions)
	}
	for i, extension := range extensions {
		if extension.NewExpiry == "" {
			t.Fatalf("extension %d is missing its new expiry", i)
		}
	}
}

func TestWindowExtensionsUnknownDynamicIsEmpty(t *testing.T) {
	t.Parallel()

	e := newTestEngine()
	extensions, err := e.WindowExtensions("dyn_missing")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(extensions) != 0 {
		t.Fatalf("expected no extensions, got %d", len(extensions))
	}
}

func TestExtendClosedWindowFails(t *testing.T) {
	t.Parallel()

	e := newTestEngine()
	if err := e.ExtendWindow("win_missing", 24, "u1"); !errors.Is(err, ErrWindowNotOpen) {
		t.Fatalf("expected ErrWindowNotOpen, got %v", err)
	}
}

func TestCreateUnitProfileRequiresActiveDynamic(t *testing.T) {
	t.Parallel()

	e := newTestEngine()
	dynamic, err := e.InitiateDynamic([]string{"u1", "u2"}, DynamicFirstFlirt, "u1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	unit, err := e.CreateUnitProfile(dynamic.DynamicID, UnitData{}, "u1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if unit != nil {
		t.Fatalf("expected nil for an initiated dynamic, got %+v", unit)
	}
}

func TestCreateUnitProfileEvolvesDynamic(t *testing.T) {
	t.Parallel()

	e := newTestEngine()
	dynamic, err := e.InitiateDynamic([]string{"u1", "u2"}, DynamicFirstFlirt, "u1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	window, err := e.WindowForDynamic(dynamic.DynamicID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := e.AddWindowActivity(window.WindowID, "u2", ActivityEntered, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	unit, err := e.CreateUnitProfile(dynamic.DynamicID, UnitData{SharedBio: "us"}, "u1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if unit == nil {
		t.Fatalf("expected a unit profile")
	}
	if unit.UnitType != UnitDuo {
		t.Fatalf("expected duo, got %s", unit.UnitType)
	}
	if unit.UnitName != "First Flirt Unit" {
		t.Fatalf("unexpected default name: %s", unit.UnitName)
	}
	if unit.Visibility != VisibilityPublic || unit.InteractionStyle != StyleUnified {
		t.Fatalf("unexpected defaults: %s/%s", unit.Visibility, unit.InteractionStyle)
	}
	if unit.Members[0].Role != RolePrimary || unit.Members[1].Role != RoleEqual {
		t.Fatalf("unexpected member roles: %+v", unit.Members)
	}
	if len(unit.Members[0].Permissions) != 3 {
		t.Fatalf("expected full permission set, got %v", unit.Members[0].Permissions)
	}

	evolved, err := e.Dynamic(dynamic.DynamicID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if evolved.Status != StatusEvolved {
		t.Fatalf("expected evolved, got %s", evolved.Status)
	}
	if evolved.UnitProfile == nil || evolved.UnitProfile.UnitID != unit.UnitID {
		t.Fatalf("expected unit profile attached to the dynamic")
	}

	// Creating a second unit must fail the active-only precondition.
	again, err := e.CreateUnitProfile(dynamic.DynamicID, UnitData{}, "u1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if again != nil {
		t.Fatalf("evolved dynamic must not produce another unit")
	}
}

func TestUserDynamicsSkipsTerminalStatuses(t *testing.T) {
	t.Parallel()

	e := newTestEngine()
	first, err := e.InitiateDynamic([]string{"u1", "u2"}, DynamicFirstFlirt, "u1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := e.InitiateDynamic([]string{"u1", "u3"}, DynamicFirstMeet, "u1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := e.End(second.DynamicID, "u1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	dynamics, err := e.UserDynamics("u1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(dynamics) != 1 || dynamics[0].DynamicID != first.DynamicID {
		t.Fatalf("expected only the live dynamic, got %+v", dynamics)
	}
}

func TestEndedDynamicRejectsFurtherTransitions(t *testing.T) {
	t.Parallel()

	e := newTestEngine()
	dynamic, err := e.InitiateDynamic([]string{"u1", "u2"}, DynamicFirstFlirt, "u1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := e.End(dynamic.DynamicID, "u1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := e.MarkDormant(dynamic.DynamicID, "u1"); err == nil {
		t.Fatalf("expected error for an ended dynamic")
	}
}

func TestUserUnitProfiles(t *testing.T) {
	t.Parallel()

	e := newTestEngine()
	dynamic, err := e.InitiateDynamic([]string{"u1", "u2"}, DynamicFirstSync, "u1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	window, err := e.WindowForDynamic(dynamic.DynamicID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := e.AddWindowActivity(window.WindowID, "u2", ActivityEntered, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := e.CreateUnitProfile(dynamic.DynamicID, UnitData{}, "u1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	units, err := e.UserUnitProfiles("u2")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(units) != 1 {
		t.Fatalf("expected one unit for a member, got %d", len(units))
	}

	none, err := e.UserUnitProfiles("u9")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(none) != 0 {
		t.Fatalf("expected no units for a non-member")
	}
}
