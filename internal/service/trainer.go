package service

import (
	"fmt"
	"strconv"

	"github.com/google-research/falken-go/internal/tensor"
	"github.com/google-research/falken-go/internal/wire"
)

// Training-side flattening. The key layout must match what the client
// builds at inference time (tensor.FlattenKey over the spec-derived input
// order), so rows trained here are comparable to live observations.

// #region signature
func signatureFromSpec(spec wire.BrainSpec) tensor.Signature {
	var sig tensor.Signature
	add := func(prefix string, et wire.EntityType) {
		if et.HasPosition {
			sig.Inputs = append(sig.Inputs, tensor.Spec{Name: prefix + "position", DType: tensor.Float32, Shape: []int{1, 3}})
		}
		if et.HasRotation {
			sig.Inputs = append(sig.Inputs, tensor.Spec{Name: prefix + "rotation", DType: tensor.Float32, Shape: []int{1, 4}})
		}
		for _, ft := range et.Fields {
			switch {
			case ft.Number != nil:
				sig.Inputs = append(sig.Inputs, tensor.Spec{Name: prefix + ft.Name, DType: tensor.Float32, Shape: []int{1, 1}})
			case ft.Category != nil:
				sig.Inputs = append(sig.Inputs, tensor.Spec{Name: prefix + ft.Name, DType: tensor.Int32, Shape: []int{1, 1}})
			case ft.Feeler != nil:
				shape := []int{1, int(ft.Feeler.Count), 1 + len(ft.Feeler.ExperimentalData)}
				sig.Inputs = append(sig.Inputs, tensor.Spec{Name: prefix + ft.Name, DType: tensor.Float32, Shape: shape})
			}
		}
	}
	obs := spec.Observations
	if obs.Player != nil {
		add("0/observation/player/", *obs.Player)
	}
	if obs.Camera != nil {
		add("0/observation/camera/", *obs.Camera)
	}
	for i, g := range obs.GlobalEntities {
		add("0/observation/global_entities/"+strconv.Itoa(i)+"/", g)
	}
	sig.Inputs = append(sig.Inputs,
		tensor.Spec{Name: tensor.RewardInput, DType: tensor.Float32, Shape: []int{1, 1}},
		tensor.Spec{Name: tensor.StepTypeInput, DType: tensor.Int32, Shape: []int{1, 1}},
		tensor.Spec{Name: tensor.DiscountInput, DType: tensor.Float32, Shape: []int{1, 1}},
	)

	for _, at := range spec.Actions.Actions {
		switch {
		case at.Number != nil:
			sig.Outputs = append(sig.Outputs, tensor.Spec{Name: "action/" + at.Name, DType: tensor.Float32, Shape: []int{1, 1}})
		case at.Category != nil:
			sig.Outputs = append(sig.Outputs, tensor.Spec{Name: "action/" + at.Name, DType: tensor.Int32, Shape: []int{1, 1}})
		case at.Joystick != nil:
			sig.Outputs = append(sig.Outputs, tensor.Spec{Name: "action/" + at.Name, DType: tensor.Float32, Shape: []int{1, 2}})
		}
	}
	return sig
}

// #endregion signature

// #region rows
// demoRow converts one demonstration step into a training row.
func demoRow(spec wire.BrainSpec, step wire.Step) (tensor.ExampleRow, error) {
	key, err := flattenObservation(spec.Observations, step.Observation)
	if err != nil {
		return tensor.ExampleRow{}, err
	}
	outs, err := actionOutputs(spec.Actions, step.Actions)
	if err != nil {
		return tensor.ExampleRow{}, err
	}
	return tensor.ExampleRow{Key: key, Outputs: outs}, nil
}

func flattenObservation(spec wire.ObservationSpec, obs wire.ObservationData) ([]float32, error) {
	var key []float32
	appendEntity := func(name string, et *wire.EntityType, ed *wire.EntityData) error {
		if et == nil {
			return nil
		}
		if ed == nil {
			return fmt.Errorf("entity %s missing from observation", name)
		}
		if et.HasPosition {
			if ed.Position == nil {
				return fmt.Errorf("entity %s missing position", name)
			}
			key = append(key, ed.Position.X, ed.Position.Y, ed.Position.Z)
		}
		if et.HasRotation {
			if ed.Rotation == nil {
				return fmt.Errorf("entity %s missing rotation", name)
			}
			key = append(key, ed.Rotation.X, ed.Rotation.Y, ed.Rotation.Z, ed.Rotation.W)
		}
		if len(ed.Fields) != len(et.Fields) {
			return fmt.Errorf("entity %s has %d fields, spec has %d", name, len(ed.Fields), len(et.Fields))
		}
		for i, ft := range et.Fields {
			fd := ed.Fields[i]
			switch {
			case ft.Number != nil:
				if fd.Number == nil {
					return fmt.Errorf("field %s/%s missing number", name, ft.Name)
				}
				key = append(key, float32(*fd.Number))
			case ft.Category != nil:
				if fd.Category == nil {
					return fmt.Errorf("field %s/%s missing category", name, ft.Name)
				}
				key = append(key, float32(*fd.Category))
			case ft.Feeler != nil:
				if fd.Feeler == nil {
					return fmt.Errorf("field %s/%s missing feeler data", name, ft.Name)
				}
				width := len(ft.Feeler.ExperimentalData)
				if len(fd.Feeler.Distances) != int(ft.Feeler.Count) {
					return fmt.Errorf("field %s/%s has %d rays, spec has %d",
						name, ft.Name, len(fd.Feeler.Distances), ft.Feeler.Count)
				}
				for ray := 0; ray < int(ft.Feeler.Count); ray++ {
					key = append(key, fd.Feeler.Distances[ray])
					for k := 0; k < width; k++ {
						v := float32(0)
						if len(fd.Feeler.IDs) > ray && int(fd.Feeler.IDs[ray]) == k {
							v = 1
						}
						key = append(key, v)
					}
				}
			}
		}
		return nil
	}
	if err := appendEntity("player", spec.Player, obs.Player); err != nil {
		return nil, err
	}
	if err := appendEntity("camera", spec.Camera, obs.Camera); err != nil {
		return nil, err
	}
	for i := range spec.GlobalEntities {
		var ed *wire.EntityData
		if i < len(obs.GlobalEntities) {
			ed = &obs.GlobalEntities[i]
		}
		if err := appendEntity("global_entities/"+strconv.Itoa(i), &spec.GlobalEntities[i], ed); err != nil {
			return nil, err
		}
	}
	return key, nil
}

func actionOutputs(spec wire.ActionSpec, data wire.ActionsData) ([]tensor.ExampleOutput, error) {
	if len(data.Actions) != len(spec.Actions) {
		return nil, fmt.Errorf("step has %d actions, spec has %d", len(data.Actions), len(spec.Actions))
	}
	var outs []tensor.ExampleOutput
	for i, at := range spec.Actions {
		ad := data.Actions[i]
		o := tensor.ExampleOutput{Name: "action/" + at.Name}
		switch {
		case at.Number != nil:
			if ad.Number == nil {
				return nil, fmt.Errorf("action %s missing number", at.Name)
			}
			o.Floats = []float32{float32(*ad.Number)}
		case at.Category != nil:
			if ad.Category == nil {
				return nil, fmt.Errorf("action %s missing category", at.Name)
			}
			o.Ints = []int32{*ad.Category}
		case at.Joystick != nil:
			if ad.Joystick == nil {
				return nil, fmt.Errorf("action %s missing joystick", at.Name)
			}
			o.Floats = []float32{ad.Joystick.X, ad.Joystick.Y}
		}
		outs = append(outs, o)
	}
	return outs, nil
}

// #endregion rows
