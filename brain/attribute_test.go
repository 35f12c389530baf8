package brain

import (
	"errors"
	"math"
	"testing"
)

func TestFloatRange(t *testing.T) {
	a, err := Float("health", 0, 100)
	if err != nil {
		t.Fatalf("Float: %v", err)
	}
	if err := a.SetNumber(55.5); err != nil {
		t.Fatalf("SetNumber: %v", err)
	}
	if got := a.Number(); got != 55.5 {
		t.Fatalf("expected 55.5, got %g", got)
	}
	if !a.Dirty() {
		t.Fatal("expected dirty after set")
	}

	if err := a.SetNumber(100.001); !errors.Is(err, ErrRange) {
		t.Fatalf("expected ErrRange, got %v", err)
	}
	if err := a.SetNumber(math.NaN()); !errors.Is(err, ErrRange) {
		t.Fatalf("expected ErrRange for NaN, got %v", err)
	}
	// Failed sets leave the value untouched.
	if got := a.Number(); got != 55.5 {
		t.Fatalf("value changed on rejected set: %g", got)
	}
}

func TestFloatStartsAtRangeMinimum(t *testing.T) {
	// A range excluding zero must not leave a never-set attribute holding
	// an out-of-range zero.
	a, err := Float("gain", 0.5, 1)
	if err != nil {
		t.Fatalf("Float: %v", err)
	}
	if got := a.Number(); got != 0.5 {
		t.Fatalf("initial value %g, want the range minimum 0.5", got)
	}
	if a.Dirty() {
		t.Fatal("attribute dirty before any set")
	}
}

func TestFloatBadBounds(t *testing.T) {
	if _, err := Float("x", 1, 1); !errors.Is(err, ErrSpec) {
		t.Fatalf("expected ErrSpec for min == max, got %v", err)
	}
	if _, err := Float("x", 2, 1); !errors.Is(err, ErrSpec) {
		t.Fatalf("expected ErrSpec for min > max, got %v", err)
	}
	if _, err := Float("x", math.Inf(-1), 1); !errors.Is(err, ErrSpec) {
		t.Fatalf("expected ErrSpec for infinite bound, got %v", err)
	}
}

func TestCategorical(t *testing.T) {
	a, err := Categorical("weapon", "none", "sword", "bow")
	if err != nil {
		t.Fatalf("Categorical: %v", err)
	}
	if err := a.SetCategory(2); err != nil {
		t.Fatalf("SetCategory: %v", err)
	}
	if got := a.Category(); got != 2 {
		t.Fatalf("expected 2, got %d", got)
	}
	if err := a.SetCategory(5); !errors.Is(err, ErrRange) {
		t.Fatalf("expected ErrRange for index 5 of 3 labels, got %v", err)
	}
	if err := a.SetCategory(-1); !errors.Is(err, ErrRange) {
		t.Fatalf("expected ErrRange for negative index, got %v", err)
	}
}

func TestCategoricalLabels(t *testing.T) {
	if _, err := Categorical("x", "only"); !errors.Is(err, ErrSpec) {
		t.Fatalf("expected ErrSpec for one label, got %v", err)
	}
	if _, err := Categorical("x", "a", "a"); !errors.Is(err, ErrSpec) {
		t.Fatalf("expected ErrSpec for duplicate labels, got %v", err)
	}
	if _, err := Categorical("x", "a", ""); !errors.Is(err, ErrSpec) {
		t.Fatalf("expected ErrSpec for empty label, got %v", err)
	}
}

func TestBool(t *testing.T) {
	a, err := Bool("jumping")
	if err != nil {
		t.Fatalf("Bool: %v", err)
	}
	if got := a.Labels(); len(got) != 2 || got[0] != "false" || got[1] != "true" {
		t.Fatalf("unexpected labels %v", got)
	}
	if err := a.SetBool(true); err != nil {
		t.Fatalf("SetBool: %v", err)
	}
	if !a.Bool() || a.Category() != 1 {
		t.Fatal("expected true/1 after SetBool(true)")
	}
}

func TestFeelers(t *testing.T) {
	layout := FeelersLayout{
		Count:       3,
		DistanceMin: 0,
		DistanceMax: 1,
		YawAngles:   FanYawAngles(3, 90),
		IDLabels:    []string{"wall", "enemy"},
	}
	a, err := Feelers("antenna", layout)
	if err != nil {
		t.Fatalf("Feelers: %v", err)
	}
	if err := a.SetFeelerDistance(1, 0.5); err != nil {
		t.Fatalf("SetFeelerDistance: %v", err)
	}
	if err := a.SetFeelerID(1, 1); err != nil {
		t.Fatalf("SetFeelerID: %v", err)
	}
	if a.FeelerDistance(1) != 0.5 || a.FeelerID(1) != 1 {
		t.Fatal("feeler samples not stored")
	}

	// Distance above the declared max.
	if err := a.SetFeelerDistance(0, 5.0); !errors.Is(err, ErrRange) {
		t.Fatalf("expected ErrRange for distance 5.0 with max 1.0, got %v", err)
	}
	if err := a.SetFeelerID(0, 2); !errors.Is(err, ErrRange) {
		t.Fatalf("expected ErrRange for id 2 of 2 labels, got %v", err)
	}
	if err := a.SetFeelerDistance(3, 0.5); !errors.Is(err, ErrRange) {
		t.Fatalf("expected ErrRange for ray 3 of 3, got %v", err)
	}
}

func TestFeelersLayoutValidation(t *testing.T) {
	bad := FeelersLayout{Count: 0, DistanceMin: 0, DistanceMax: 1}
	if _, err := Feelers("x", bad); !errors.Is(err, ErrSpec) {
		t.Fatalf("expected ErrSpec for zero rays, got %v", err)
	}
	bad = FeelersLayout{Count: 2, DistanceMin: 0, DistanceMax: 1, YawAngles: []float32{0}}
	if _, err := Feelers("x", bad); !errors.Is(err, ErrSpec) {
		t.Fatalf("expected ErrSpec for yaw/count mismatch, got %v", err)
	}
	bad = FeelersLayout{Count: 1, DistanceMin: 1, DistanceMax: 1, YawAngles: []float32{0}}
	if _, err := Feelers("x", bad); !errors.Is(err, ErrSpec) {
		t.Fatalf("expected ErrSpec for empty distance range, got %v", err)
	}
}

func TestFanYawAngles(t *testing.T) {
	angles := FanYawAngles(3, 90)
	want := []float32{-45, 0, 45}
	for i := range want {
		if angles[i] != want[i] {
			t.Fatalf("angle %d: expected %g, got %g", i, want[i], angles[i])
		}
	}
	if got := FanYawAngles(1, 90); got[0] != 0 {
		t.Fatalf("single ray should sit at 0, got %g", got[0])
	}
}

func TestJoystickAxes(t *testing.T) {
	a, err := Joystick("move", AxesModeDirectionXZ, PlayerEntityName, CameraEntityName)
	if err != nil {
		t.Fatalf("Joystick: %v", err)
	}
	if err := a.SetAxes(0.5, -1.0); err != nil {
		t.Fatalf("SetAxes: %v", err)
	}
	x, y := a.Axes()
	if x != 0.5 || y != -1.0 {
		t.Fatalf("expected (0.5, -1), got (%g, %g)", x, y)
	}
	if err := a.SetAxes(1.2, 0); !errors.Is(err, ErrRange) {
		t.Fatalf("expected ErrRange for axis 1.2, got %v", err)
	}
	// Just inside the epsilon slack.
	if err := a.SetAxes(1.0+JoystickEpsilon/2, 0); err != nil {
		t.Fatalf("epsilon slack rejected: %v", err)
	}
}

func TestJoystickConstruction(t *testing.T) {
	if _, err := Joystick("x", AxesModeInvalid, PlayerEntityName, ""); !errors.Is(err, ErrSpec) {
		t.Fatalf("expected ErrSpec for invalid mode, got %v", err)
	}
	if _, err := Joystick("x", AxesModeDeltaPitchYaw, PlayerEntityName, CameraEntityName); !errors.Is(err, ErrSpec) {
		t.Fatalf("expected ErrSpec for control frame outside direction_xz, got %v", err)
	}
	if _, err := Joystick("x", AxesModeDeltaPitchYaw, "", ""); !errors.Is(err, ErrSpec) {
		t.Fatalf("expected ErrSpec for empty controlled entity, got %v", err)
	}
}

func TestPositionRotation(t *testing.T) {
	e, err := NewEntity("player")
	if err != nil {
		t.Fatalf("NewEntity: %v", err)
	}
	if err := e.Position().SetPosition(Position{1, 2, 3}); err != nil {
		t.Fatalf("SetPosition: %v", err)
	}
	if got := e.Position().Position(); got != (Position{1, 2, 3}) {
		t.Fatalf("unexpected position %+v", got)
	}
	if got := e.Rotation().Rotation(); got != IdentityRotation() {
		t.Fatalf("expected identity rotation before set, got %+v", got)
	}
	if err := e.Rotation().SetRotation(Rotation{0, 0, 0, 1}); err != nil {
		t.Fatalf("SetRotation: %v", err)
	}
	bad := Position{float32(math.NaN()), 0, 0}
	if err := e.Position().SetPosition(bad); !errors.Is(err, ErrRange) {
		t.Fatalf("expected ErrRange for NaN component, got %v", err)
	}
}

func TestKindMismatch(t *testing.T) {
	a, _ := Float("speed", 0, 1)
	if err := a.SetCategory(0); !errors.Is(err, ErrSpec) {
		t.Fatalf("expected ErrSpec for SetCategory on float, got %v", err)
	}
	if err := a.SetAxes(0, 0); !errors.Is(err, ErrSpec) {
		t.Fatalf("expected ErrSpec for SetAxes on float, got %v", err)
	}
}
