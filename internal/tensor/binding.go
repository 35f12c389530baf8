package tensor

import (
	"fmt"
	"strconv"

	"github.com/google-research/falken-go/brain"
)

// Schema-path construction and the fixed attribute → tensor mapping. Paths
// are hierarchical: observations live under 0/observation, actions under
// action/. Global entities are indexed densely among non-player, non-camera
// entities.

// #region path-constants
const (
	observationPrefix = "0/observation/"
	actionPrefix      = "action/"

	// Auxiliary inputs required by service graphs but unused by the client;
	// they are fed zero tensors.
	RewardInput   = "0/reward"
	StepTypeInput = "0/step_type"
	DiscountInput = "0/discount"
)

// #endregion path-constants

// #region spec-derivation
// attrSpec returns the dtype and batch-1 shape for one attribute.
func attrSpec(a *brain.Attribute) (DType, []int) {
	switch a.Kind() {
	case brain.KindFloat:
		return Float32, []int{1, 1}
	case brain.KindCategorical, brain.KindBool:
		return Int32, []int{1, 1}
	case brain.KindPosition:
		return Float32, []int{1, 3}
	case brain.KindRotation:
		return Float32, []int{1, 4}
	case brain.KindJoystick:
		return Float32, []int{1, 2}
	case brain.KindFeelers:
		layout := a.FeelersLayout()
		return Float32, []int{1, layout.Count, 1 + len(layout.IDLabels)}
	case brain.KindInvalid:
	}
	return DTypeInvalid, nil
}

// InputSpecs derives the ordered observation input tensors for a brain
// spec: player, camera, then global entities, each attribute in schema
// order, followed by the auxiliary inputs.
func InputSpecs(s *brain.Spec) []Spec {
	var out []Spec
	obs := s.Observations()
	addEntity := func(prefix string, e *brain.Entity) {
		for _, a := range e.Attributes() {
			dt, shape := attrSpec(a)
			out = append(out, Spec{Name: prefix + a.Name(), DType: dt, Shape: shape})
		}
	}
	if p := obs.Player(); p != nil {
		addEntity(observationPrefix+"player/", p)
	}
	if c := obs.Camera(); c != nil {
		addEntity(observationPrefix+"camera/", c)
	}
	for i, g := range obs.Globals() {
		addEntity(observationPrefix+"global_entities/"+strconv.Itoa(i)+"/", g)
	}
	out = append(out,
		Spec{Name: RewardInput, DType: Float32, Shape: []int{1, 1}},
		Spec{Name: StepTypeInput, DType: Int32, Shape: []int{1, 1}},
		Spec{Name: DiscountInput, DType: Float32, Shape: []int{1, 1}},
	)
	return out
}

// OutputSpecs derives the ordered action output tensors for a brain spec.
func OutputSpecs(s *brain.Spec) []Spec {
	var out []Spec
	for _, a := range s.Actions().List() {
		dt, shape := attrSpec(a)
		out = append(out, Spec{Name: actionPrefix + a.Name(), DType: dt, Shape: shape})
	}
	return out
}

// #endregion spec-derivation

// #region fill
// FillInputs writes the current observation values into tensors allocated
// from InputSpecs, in the same order. Auxiliary inputs stay zero.
func FillInputs(s *brain.Spec, tensors []Tensor) error {
	i := 0
	next := func() *Tensor {
		if i >= len(tensors) {
			return nil
		}
		t := &tensors[i]
		i++
		return t
	}
	obs := s.Observations()
	for _, e := range obs.Entities() {
		for _, a := range e.Attributes() {
			t := next()
			if t == nil {
				return fmt.Errorf("%w: ran out of input tensors at %s/%s", ErrInference, e.Name(), a.Name())
			}
			if err := fillAttribute(a, t); err != nil {
				return err
			}
		}
	}
	// The remaining tensors are the zero-filled auxiliary inputs.
	for ; i < len(tensors); i++ {
		t := &tensors[i]
		for j := range t.Floats {
			t.Floats[j] = 0
		}
		for j := range t.Ints {
			t.Ints[j] = 0
		}
	}
	return nil
}

func fillAttribute(a *brain.Attribute, t *Tensor) error {
	switch a.Kind() {
	case brain.KindFloat:
		t.Floats[0] = float32(a.Number())
	case brain.KindCategorical, brain.KindBool:
		t.Ints[0] = int32(a.Category())
	case brain.KindPosition:
		p := a.Position()
		t.Floats[0], t.Floats[1], t.Floats[2] = p.X, p.Y, p.Z
	case brain.KindRotation:
		r := a.Rotation()
		t.Floats[0], t.Floats[1], t.Floats[2], t.Floats[3] = r.X, r.Y, r.Z, r.W
	case brain.KindJoystick:
		x, y := a.Axes()
		t.Floats[0], t.Floats[1] = float32(x), float32(y)
	case brain.KindFeelers:
		layout := a.FeelersLayout()
		width := 1 + len(layout.IDLabels)
		for ray := 0; ray < layout.Count; ray++ {
			base := ray * width
			t.Floats[base] = a.FeelerDistance(ray)
			// One-hot id channel.
			for k := 0; k < len(layout.IDLabels); k++ {
				v := float32(0)
				if a.FeelerID(ray) == k {
					v = 1
				}
				t.Floats[base+1+k] = v
			}
		}
	case brain.KindInvalid:
		return fmt.Errorf("%w: invalid attribute %s", ErrInference, a.Name())
	}
	return nil
}

// #endregion fill

// #region apply
// ApplyOutputs writes inference outputs back into the action schema,
// clamping to declared ranges so float noise at the range edges cannot
// produce a rejected action.
func ApplyOutputs(tensors []Tensor, s *brain.Spec) error {
	acts := s.Actions().List()
	if len(tensors) != len(acts) {
		return fmt.Errorf("%w: %d output tensors for %d actions", ErrInference, len(tensors), len(acts))
	}
	for i, a := range acts {
		t := tensors[i]
		switch a.Kind() {
		case brain.KindFloat:
			min, max := a.Range()
			v := clamp(float64(t.Floats[0]), min, max)
			if err := a.SetNumber(v); err != nil {
				return fmt.Errorf("%w: apply %s: %v", ErrInference, a.Name(), err)
			}
		case brain.KindCategorical, brain.KindBool:
			idx := int(t.Ints[0])
			if idx < 0 {
				idx = 0
			}
			if n := len(a.Labels()); idx >= n {
				idx = n - 1
			}
			if err := a.SetCategory(idx); err != nil {
				return fmt.Errorf("%w: apply %s: %v", ErrInference, a.Name(), err)
			}
		case brain.KindJoystick:
			x := clamp(float64(t.Floats[0]), -1, 1)
			y := clamp(float64(t.Floats[1]), -1, 1)
			if err := a.SetAxes(x, y); err != nil {
				return fmt.Errorf("%w: apply %s: %v", ErrInference, a.Name(), err)
			}
		case brain.KindPosition, brain.KindRotation, brain.KindFeelers, brain.KindInvalid:
			return fmt.Errorf("%w: action %s has non-action kind %s", ErrInference, a.Name(), a.Kind())
		}
	}
	return nil
}

func clamp(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

// #endregion apply
