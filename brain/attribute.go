// Package brain holds the typed schema a game declares to describe its
// observation and action spaces: attributes, entities, and the brain spec
// built from them. Values set here are range-checked eagerly so a bad value
// never reaches the wire.
package brain

import (
	"fmt"
	"math"
)

// #region kinds
// Kind tags the variant of a schema attribute. Every per-kind operation in
// this module switches exhaustively over Kind, so adding a kind forces a
// visit to each of them.
type Kind int

const (
	KindInvalid Kind = iota
	KindFloat
	KindCategorical
	KindBool
	KindPosition
	KindRotation
	KindFeelers
	KindJoystick
)

// String returns the lowercase kind name.
func (k Kind) String() string {
	switch k {
	case KindFloat:
		return "float"
	case KindCategorical:
		return "categorical"
	case KindBool:
		return "bool"
	case KindPosition:
		return "position"
	case KindRotation:
		return "rotation"
	case KindFeelers:
		return "feelers"
	case KindJoystick:
		return "joystick"
	default:
		return "invalid"
	}
}

// #endregion kinds

// #region joystick-modes
// JoystickAxesMode selects how a joystick action's axes are interpreted.
type JoystickAxesMode int

const (
	AxesModeInvalid JoystickAxesMode = iota
	// AxesModeDeltaPitchYaw treats (x, y) as pitch/yaw deltas.
	AxesModeDeltaPitchYaw
	// AxesModeDirectionXZ treats (x, y) as a direction on the XZ plane,
	// optionally relative to a control frame entity.
	AxesModeDirectionXZ
)

// String returns the wire-style mode name.
func (m JoystickAxesMode) String() string {
	switch m {
	case AxesModeDeltaPitchYaw:
		return "delta_pitch_yaw"
	case AxesModeDirectionXZ:
		return "direction_xz"
	default:
		return "invalid"
	}
}

// JoystickEpsilon is the slack allowed beyond 1.0 on joystick axis
// magnitudes, absorbing float error from callers that normalize.
const JoystickEpsilon = 1e-5

// #endregion joystick-modes

// #region value-types
// Position is a point in the game's world space.
type Position struct {
	X, Y, Z float32
}

// Rotation is a quaternion in (x, y, z, w) order. It is carried as declared;
// normalization is the caller's business.
type Rotation struct {
	X, Y, Z, W float32
}

// IdentityRotation returns the identity quaternion.
func IdentityRotation() Rotation {
	return Rotation{W: 1}
}

// FeelersLayout describes a radial distance sensor: Count rays at the given
// yaw angles (degrees), each sampling a distance in [DistanceMin,
// DistanceMax], plus an optional categorical id channel of len(IDLabels)
// categories per ray.
type FeelersLayout struct {
	Count       int
	DistanceMin float32
	DistanceMax float32
	YawAngles   []float32
	Thickness   float32
	IDLabels    []string
}

// FanYawAngles spreads count yaw angles (degrees) evenly across a field of
// view centered on zero. Convenience for the common symmetric feeler fan.
func FanYawAngles(count int, fovDegrees float32) []float32 {
	angles := make([]float32, count)
	if count == 1 {
		return angles
	}
	step := fovDegrees / float32(count-1)
	start := -fovDegrees / 2
	for i := range angles {
		angles[i] = start + step*float32(i)
	}
	return angles
}

// #endregion value-types

// #region attribute
// Attribute is one leaf of the schema: a tagged variant carrying both the
// declared constraints and the current value. An assignment marks the
// attribute dirty; the step path clears the flag after recording.
type Attribute struct {
	name string
	kind Kind

	// Constraints, populated per kind.
	min, max         float64
	labels           []string
	feelers          FeelersLayout
	axesMode         JoystickAxesMode
	controlledEntity string
	controlFrame     string

	// Current value, per kind. Constructors of range-constrained kinds
	// start the value at the range minimum so a never-set attribute still
	// holds an encodable value.
	number    float64
	category  int
	pos       Position
	rot       Rotation
	distances []float32
	ids       []int
	joyX      float64
	joyY      float64

	dirty bool
}

// Name returns the attribute's name within its container.
func (a *Attribute) Name() string { return a.name }

// Kind returns the attribute's variant tag.
func (a *Attribute) Kind() Kind { return a.kind }

// Dirty reports whether the attribute was assigned since the last reset.
func (a *Attribute) Dirty() bool { return a.dirty }

// ResetDirty clears the dirty flag. The step path calls this after a step
// is recorded so the next step's unset-attribute warnings are accurate.
func (a *Attribute) ResetDirty() { a.dirty = false }

// #endregion attribute

// #region constructors
// Float declares a number attribute constrained to the closed interval
// [min, max]. Both bounds must be finite and min < max. The value starts
// at min.
func Float(name string, min, max float64) (*Attribute, error) {
	if err := checkName(name); err != nil {
		return nil, err
	}
	if math.IsNaN(min) || math.IsInf(min, 0) || math.IsNaN(max) || math.IsInf(max, 0) {
		return nil, fmt.Errorf("%w: float %q bounds must be finite", ErrSpec, name)
	}
	if min >= max {
		return nil, fmt.Errorf("%w: float %q requires min < max, got [%g, %g]", ErrSpec, name, min, max)
	}
	return &Attribute{name: name, kind: KindFloat, min: min, max: max, number: min}, nil
}

// Categorical declares an attribute whose value is an index into labels.
// At least two distinct, non-empty labels are required.
func Categorical(name string, labels ...string) (*Attribute, error) {
	if err := checkName(name); err != nil {
		return nil, err
	}
	if len(labels) < 2 {
		return nil, fmt.Errorf("%w: categorical %q needs at least 2 labels", ErrSpec, name)
	}
	seen := make(map[string]bool, len(labels))
	for _, l := range labels {
		if l == "" {
			return nil, fmt.Errorf("%w: categorical %q has an empty label", ErrSpec, name)
		}
		if seen[l] {
			return nil, fmt.Errorf("%w: categorical %q repeats label %q", ErrSpec, name, l)
		}
		seen[l] = true
	}
	cp := make([]string, len(labels))
	copy(cp, labels)
	return &Attribute{name: name, kind: KindCategorical, labels: cp}, nil
}

// Bool declares a two-state attribute, equivalent to a categorical with
// labels ("false", "true").
func Bool(name string) (*Attribute, error) {
	if err := checkName(name); err != nil {
		return nil, err
	}
	return &Attribute{name: name, kind: KindBool, labels: []string{"false", "true"}}, nil
}

// Feelers declares a radial sensor attribute from its layout.
func Feelers(name string, layout FeelersLayout) (*Attribute, error) {
	if err := checkName(name); err != nil {
		return nil, err
	}
	if layout.Count < 1 {
		return nil, fmt.Errorf("%w: feelers %q needs at least 1 ray", ErrSpec, name)
	}
	if len(layout.YawAngles) != layout.Count {
		return nil, fmt.Errorf("%w: feelers %q has %d yaw angles for %d rays",
			ErrSpec, name, len(layout.YawAngles), layout.Count)
	}
	if layout.DistanceMin >= layout.DistanceMax {
		return nil, fmt.Errorf("%w: feelers %q requires distance min < max, got [%g, %g]",
			ErrSpec, name, layout.DistanceMin, layout.DistanceMax)
	}
	if layout.Thickness < 0 {
		return nil, fmt.Errorf("%w: feelers %q thickness must be non-negative", ErrSpec, name)
	}
	for _, l := range layout.IDLabels {
		if l == "" {
			return nil, fmt.Errorf("%w: feelers %q has an empty id label", ErrSpec, name)
		}
	}
	layout.YawAngles = append([]float32(nil), layout.YawAngles...)
	layout.IDLabels = append([]string(nil), layout.IDLabels...)
	a := &Attribute{name: name, kind: KindFeelers, feelers: layout}
	a.distances = make([]float32, layout.Count)
	for i := range a.distances {
		a.distances[i] = layout.DistanceMin
	}
	if len(layout.IDLabels) > 0 {
		a.ids = make([]int, layout.Count)
	}
	return a, nil
}

// Joystick declares a two-axis action. controlledEntity must name "player"
// or "camera"; controlFrame is only meaningful for AxesModeDirectionXZ and
// may be empty.
func Joystick(name string, mode JoystickAxesMode, controlledEntity, controlFrame string) (*Attribute, error) {
	if err := checkName(name); err != nil {
		return nil, err
	}
	if mode != AxesModeDeltaPitchYaw && mode != AxesModeDirectionXZ {
		return nil, fmt.Errorf("%w: joystick %q has invalid axes mode", ErrSpec, name)
	}
	if controlledEntity == "" {
		return nil, fmt.Errorf("%w: joystick %q needs a controlled entity", ErrSpec, name)
	}
	if controlFrame != "" && mode != AxesModeDirectionXZ {
		return nil, fmt.Errorf("%w: joystick %q sets a control frame outside direction_xz mode", ErrSpec, name)
	}
	return &Attribute{
		name:             name,
		kind:             KindJoystick,
		axesMode:         mode,
		controlledEntity: controlledEntity,
		controlFrame:     controlFrame,
	}, nil
}

// newPosition and newRotation back the mandatory entity attributes; they are
// not declared directly by callers.
func newPosition() *Attribute {
	return &Attribute{name: "position", kind: KindPosition}
}

func newRotation() *Attribute {
	return &Attribute{name: "rotation", kind: KindRotation, rot: IdentityRotation()}
}

func checkName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: attribute name must be non-empty", ErrSpec)
	}
	return nil
}

// #endregion constructors

// #region constraint-accessors
// Range returns the declared [min, max] interval of a float attribute.
func (a *Attribute) Range() (min, max float64) { return a.min, a.max }

// Labels returns the category labels of a categorical or bool attribute.
func (a *Attribute) Labels() []string { return a.labels }

// FeelersLayout returns the declared layout of a feelers attribute.
func (a *Attribute) FeelersLayout() FeelersLayout { return a.feelers }

// AxesMode returns the joystick axes interpretation.
func (a *Attribute) AxesMode() JoystickAxesMode { return a.axesMode }

// ControlledEntity returns the entity a joystick action steers.
func (a *Attribute) ControlledEntity() string { return a.controlledEntity }

// ControlFrame returns the joystick's control frame entity, if any.
func (a *Attribute) ControlFrame() string { return a.controlFrame }

// #endregion constraint-accessors

// #region set-get
// SetNumber assigns a float attribute. Values outside [min, max] or
// non-finite values fail with ErrRange and leave the attribute untouched.
func (a *Attribute) SetNumber(v float64) error {
	if a.kind != KindFloat {
		return a.kindMismatch(KindFloat)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) || v < a.min || v > a.max {
		return fmt.Errorf("%w: %s = %g outside [%g, %g]", ErrRange, a.name, v, a.min, a.max)
	}
	a.number = v
	a.dirty = true
	return nil
}

// Number returns the float value, the range minimum if never set.
func (a *Attribute) Number() float64 { return a.number }

// SetCategory assigns a categorical or bool attribute by label index.
func (a *Attribute) SetCategory(idx int) error {
	if a.kind != KindCategorical && a.kind != KindBool {
		return a.kindMismatch(KindCategorical)
	}
	if idx < 0 || idx >= len(a.labels) {
		return fmt.Errorf("%w: %s = %d outside 0..%d", ErrRange, a.name, idx, len(a.labels)-1)
	}
	a.category = idx
	a.dirty = true
	return nil
}

// Category returns the current label index.
func (a *Attribute) Category() int { return a.category }

// SetBool assigns a bool attribute.
func (a *Attribute) SetBool(v bool) error {
	if a.kind != KindBool {
		return a.kindMismatch(KindBool)
	}
	if v {
		a.category = 1
	} else {
		a.category = 0
	}
	a.dirty = true
	return nil
}

// Bool returns the bool value.
func (a *Attribute) Bool() bool { return a.category != 0 }

// SetPosition assigns a position attribute. All components must be finite.
func (a *Attribute) SetPosition(p Position) error {
	if a.kind != KindPosition {
		return a.kindMismatch(KindPosition)
	}
	if !finite32(p.X) || !finite32(p.Y) || !finite32(p.Z) {
		return fmt.Errorf("%w: %s has a non-finite component", ErrRange, a.name)
	}
	a.pos = p
	a.dirty = true
	return nil
}

// Position returns the position value.
func (a *Attribute) Position() Position { return a.pos }

// SetRotation assigns a rotation attribute. All components must be finite.
func (a *Attribute) SetRotation(r Rotation) error {
	if a.kind != KindRotation {
		return a.kindMismatch(KindRotation)
	}
	if !finite32(r.X) || !finite32(r.Y) || !finite32(r.Z) || !finite32(r.W) {
		return fmt.Errorf("%w: %s has a non-finite component", ErrRange, a.name)
	}
	a.rot = r
	a.dirty = true
	return nil
}

// Rotation returns the rotation value.
func (a *Attribute) Rotation() Rotation { return a.rot }

// SetFeelerDistance assigns one ray's distance sample.
func (a *Attribute) SetFeelerDistance(ray int, v float32) error {
	if a.kind != KindFeelers {
		return a.kindMismatch(KindFeelers)
	}
	if ray < 0 || ray >= a.feelers.Count {
		return fmt.Errorf("%w: %s ray %d outside 0..%d", ErrRange, a.name, ray, a.feelers.Count-1)
	}
	if !finite32(v) || v < a.feelers.DistanceMin || v > a.feelers.DistanceMax {
		return fmt.Errorf("%w: %s ray %d = %g outside [%g, %g]",
			ErrRange, a.name, ray, v, a.feelers.DistanceMin, a.feelers.DistanceMax)
	}
	a.distances[ray] = v
	a.dirty = true
	return nil
}

// FeelerDistance returns one ray's distance sample.
func (a *Attribute) FeelerDistance(ray int) float32 {
	if ray < 0 || ray >= len(a.distances) {
		return 0
	}
	return a.distances[ray]
}

// SetFeelerID assigns one ray's id sample. Only valid when the layout
// declares id labels.
func (a *Attribute) SetFeelerID(ray int, id int) error {
	if a.kind != KindFeelers {
		return a.kindMismatch(KindFeelers)
	}
	if len(a.feelers.IDLabels) == 0 {
		return fmt.Errorf("%w: %s declares no id channel", ErrSpec, a.name)
	}
	if ray < 0 || ray >= a.feelers.Count {
		return fmt.Errorf("%w: %s ray %d outside 0..%d", ErrRange, a.name, ray, a.feelers.Count-1)
	}
	if id < 0 || id >= len(a.feelers.IDLabels) {
		return fmt.Errorf("%w: %s ray %d id %d outside 0..%d",
			ErrRange, a.name, ray, id, len(a.feelers.IDLabels)-1)
	}
	a.ids[ray] = id
	a.dirty = true
	return nil
}

// FeelerID returns one ray's id sample.
func (a *Attribute) FeelerID(ray int) int {
	if ray < 0 || ray >= len(a.ids) {
		return 0
	}
	return a.ids[ray]
}

// SetAxes assigns a joystick attribute. Each axis magnitude must be within
// 1 + JoystickEpsilon.
func (a *Attribute) SetAxes(x, y float64) error {
	if a.kind != KindJoystick {
		return a.kindMismatch(KindJoystick)
	}
	if err := CheckAxis(a.name, "x", x); err != nil {
		return err
	}
	if err := CheckAxis(a.name, "y", y); err != nil {
		return err
	}
	a.joyX, a.joyY = x, y
	a.dirty = true
	return nil
}

// Axes returns the joystick value.
func (a *Attribute) Axes() (x, y float64) { return a.joyX, a.joyY }

// CheckAxis validates a single joystick axis magnitude. Shared with the
// codec, which applies the same rule to decoded values.
func CheckAxis(attr, axis string, v float64) error {
	if math.IsNaN(v) || math.Abs(v) > 1+JoystickEpsilon {
		return fmt.Errorf("%w: %s.%s = %g outside [-1, 1]", ErrRange, attr, axis, v)
	}
	return nil
}

func (a *Attribute) kindMismatch(want Kind) error {
	return fmt.Errorf("%w: %s is %s, not %s", ErrSpec, a.name, a.kind, want)
}

func finite32(v float32) bool {
	f := float64(v)
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// #endregion set-get
