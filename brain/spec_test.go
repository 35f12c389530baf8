package brain

import (
	"errors"
	"strings"
	"testing"
)

// trainableSpec builds a minimal valid spec: a player with one custom field,
// one global entity, and one float action.
func trainableSpec(t *testing.T) *Spec {
	t.Helper()
	health, err := Float("health", 0, 100)
	if err != nil {
		t.Fatalf("Float: %v", err)
	}
	player, err := NewEntity(PlayerEntityName, health)
	if err != nil {
		t.Fatalf("NewEntity(player): %v", err)
	}
	goal, err := NewEntity("goal")
	if err != nil {
		t.Fatalf("NewEntity(goal): %v", err)
	}
	obs := NewObservations()
	if err := obs.Attach(player); err != nil {
		t.Fatalf("Attach(player): %v", err)
	}
	if err := obs.Attach(goal); err != nil {
		t.Fatalf("Attach(goal): %v", err)
	}

	throttle, err := Float("throttle", -1, 1)
	if err != nil {
		t.Fatalf("Float(throttle): %v", err)
	}
	actions := NewActions()
	if err := actions.Add(throttle); err != nil {
		t.Fatalf("Add(throttle): %v", err)
	}
	return NewSpec(obs, actions)
}

func TestValidateTrainableSpec(t *testing.T) {
	if err := trainableSpec(t).Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestValidateEmptyObservations(t *testing.T) {
	actions := NewActions()
	throttle, _ := Float("throttle", -1, 1)
	actions.Add(throttle)
	spec := NewSpec(NewObservations(), actions)
	if err := spec.Validate(); !errors.Is(err, ErrSpec) {
		t.Fatalf("expected ErrSpec for empty observations, got %v", err)
	}
}

func TestValidateNoLearningSignals(t *testing.T) {
	// No joystick action, no global entity, no custom fields.
	player, _ := NewEntity(PlayerEntityName)
	obs := NewObservations()
	obs.Attach(player)
	throttle, _ := Float("throttle", -1, 1)
	actions := NewActions()
	actions.Add(throttle)

	err := NewSpec(obs, actions).Validate()
	if !errors.Is(err, ErrSpec) {
		t.Fatalf("expected ErrSpec, got %v", err)
	}
	if !strings.Contains(err.Error(), "custom attributes or custom entities") {
		t.Fatalf("expected learning-signal hint, got %q", err)
	}
}

func TestValidateJoystickPlusGlobalIsTrainable(t *testing.T) {
	// No custom fields anywhere, but a joystick action and a global entity.
	player, _ := NewEntity(PlayerEntityName)
	goal, _ := NewEntity("goal")
	obs := NewObservations()
	obs.Attach(player)
	obs.Attach(goal)
	move, _ := Joystick("move", AxesModeDeltaPitchYaw, PlayerEntityName, "")
	actions := NewActions()
	actions.Add(move)

	if err := NewSpec(obs, actions).Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestValidateJoystickReference(t *testing.T) {
	player, _ := NewEntity(PlayerEntityName)
	enemy, _ := NewEntity("enemy")
	obs := NewObservations()
	obs.Attach(player)
	obs.Attach(enemy)
	move, _ := Joystick("move", AxesModeDeltaPitchYaw, "enemy", "")
	actions := NewActions()
	actions.Add(move)

	err := NewSpec(obs, actions).Validate()
	if !errors.Is(err, ErrSpec) {
		t.Fatalf("expected ErrSpec, got %v", err)
	}
	if !strings.Contains(err.Error(), "must be player or camera") {
		t.Fatalf("expected player-or-camera hint, got %q", err)
	}
}

func TestValidateJoystickMissingControlledEntity(t *testing.T) {
	// Joystick controls the camera but only a player is attached.
	player, _ := NewEntity(PlayerEntityName)
	goal, _ := NewEntity("goal")
	obs := NewObservations()
	obs.Attach(player)
	obs.Attach(goal)
	look, _ := Joystick("look", AxesModeDeltaPitchYaw, CameraEntityName, "")
	actions := NewActions()
	actions.Add(look)

	if err := NewSpec(obs, actions).Validate(); !errors.Is(err, ErrSpec) {
		t.Fatalf("expected ErrSpec, got %v", err)
	}
}

func TestObservationsRouting(t *testing.T) {
	obs := NewObservations()
	player, _ := NewEntity(PlayerEntityName)
	camera, _ := NewEntity(CameraEntityName)
	g1, _ := NewEntity("goal")
	g2, _ := NewEntity("hazard")
	for _, e := range []*Entity{g1, player, g2, camera} {
		if err := obs.Attach(e); err != nil {
			t.Fatalf("Attach(%s): %v", e.Name(), err)
		}
	}
	if obs.Player() != player || obs.Camera() != camera {
		t.Fatal("player/camera not routed to their slots")
	}
	globals := obs.Globals()
	if len(globals) != 2 || globals[0] != g1 || globals[1] != g2 {
		t.Fatalf("globals out of order: %v", globals)
	}
	// Entities() orders player, camera, then globals.
	ents := obs.Entities()
	if ents[0] != player || ents[1] != camera || ents[2] != g1 || ents[3] != g2 {
		t.Fatal("Entities() order wrong")
	}
	dup, _ := NewEntity("goal")
	if err := obs.Attach(dup); !errors.Is(err, ErrSpec) {
		t.Fatalf("expected ErrSpec for duplicate entity, got %v", err)
	}
}

func TestActionsDuplicateAndKinds(t *testing.T) {
	actions := NewActions()
	a1, _ := Float("throttle", -1, 1)
	a2, _ := Float("throttle", 0, 1)
	if err := actions.Add(a1); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := actions.Add(a2); !errors.Is(err, ErrSpec) {
		t.Fatalf("expected ErrSpec for duplicate action name, got %v", err)
	}
	feeler, _ := Feelers("f", FeelersLayout{Count: 1, DistanceMin: 0, DistanceMax: 1, YawAngles: []float32{0}})
	if err := actions.Add(feeler); !errors.Is(err, ErrSpec) {
		t.Fatalf("expected ErrSpec for feelers action, got %v", err)
	}
}

func TestUnsetNamesAndReset(t *testing.T) {
	spec := trainableSpec(t)
	unset := spec.UnsetNames()
	// Nothing has been assigned: every attribute reports unset.
	if len(unset) == 0 {
		t.Fatal("expected unset attributes on a fresh spec")
	}

	player := spec.Observations().Player()
	player.Position().SetPosition(Position{})
	player.Rotation().SetRotation(IdentityRotation())
	player.Field("health").SetNumber(50)
	goal := spec.Observations().Entity("goal")
	goal.Position().SetPosition(Position{1, 0, 0})
	goal.Rotation().SetRotation(IdentityRotation())
	spec.Actions().Get("throttle").SetNumber(0.25)

	if unset = spec.UnsetNames(); len(unset) != 0 {
		t.Fatalf("expected all set, still unset: %v", unset)
	}

	spec.Actions().SetSource(SourceHumanDemonstration)
	spec.ResetDirty()
	if got := spec.Actions().Source(); got != SourceInvalid {
		t.Fatalf("expected source reset, got %v", got)
	}
	if unset = spec.UnsetNames(); len(unset) == 0 {
		t.Fatal("expected unset attributes after reset")
	}
}
