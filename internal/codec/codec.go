// Package codec translates between the typed schema in package brain and the
// structural wire messages in internal/wire. Encoding re-checks ranges so a
// never-assigned attribute cannot smuggle an out-of-range zero onto the
// wire; decoding collects every offending field instead of stopping at the
// first, so callers can log the full damage.
package codec

import (
	"errors"
	"fmt"

	"github.com/google-research/falken-go/brain"
	"github.com/google-research/falken-go/internal/wire"
)

// ErrIntegrity marks a wire schema that does not match the local typed
// schema.
var ErrIntegrity = errors.New("wire schema does not match local spec")

// #region spec-encode
// EncodeSpec lowers a typed brain spec to its wire form.
func EncodeSpec(s *brain.Spec) wire.BrainSpec {
	var out wire.BrainSpec
	obs := s.Observations()
	if p := obs.Player(); p != nil {
		et := encodeEntityType(p)
		out.Observations.Player = &et
	}
	if c := obs.Camera(); c != nil {
		et := encodeEntityType(c)
		out.Observations.Camera = &et
	}
	for _, g := range obs.Globals() {
		out.Observations.GlobalEntities = append(out.Observations.GlobalEntities, encodeEntityType(g))
	}
	for _, a := range s.Actions().List() {
		out.Actions.Actions = append(out.Actions.Actions, encodeActionType(a))
	}
	return out
}

func encodeEntityType(e *brain.Entity) wire.EntityType {
	et := wire.EntityType{HasPosition: true, HasRotation: true}
	for _, f := range e.Fields() {
		et.Fields = append(et.Fields, encodeFieldType(f))
	}
	return et
}

func encodeFieldType(a *brain.Attribute) wire.EntityFieldType {
	ef := wire.EntityFieldType{Name: a.Name()}
	switch a.Kind() {
	case brain.KindFloat:
		min, max := a.Range()
		ef.Number = &wire.NumberType{Min: min, Max: max}
	case brain.KindCategorical, brain.KindBool:
		ef.Category = &wire.CategoryType{EnumValues: append([]string(nil), a.Labels()...)}
	case brain.KindFeelers:
		layout := a.FeelersLayout()
		ft := wire.FeelerType{
			Count:     int32(layout.Count),
			Distance:  wire.ValueRange{Min: float64(layout.DistanceMin), Max: float64(layout.DistanceMax)},
			YawAngles: append([]float32(nil), layout.YawAngles...),
			Thickness: layout.Thickness,
		}
		// One unit range per id label; the slice length is the width of the
		// one-hot id channel.
		for range layout.IDLabels {
			ft.ExperimentalData = append(ft.ExperimentalData, wire.ValueRange{Min: 0, Max: 1})
		}
		ef.Feeler = &ft
	case brain.KindPosition, brain.KindRotation, brain.KindJoystick, brain.KindInvalid:
		// Not entity field kinds; NewEntity rejects them.
	}
	return ef
}

func encodeActionType(a *brain.Attribute) wire.ActionType {
	at := wire.ActionType{Name: a.Name()}
	switch a.Kind() {
	case brain.KindFloat:
		min, max := a.Range()
		at.Number = &wire.NumberType{Min: min, Max: max}
	case brain.KindCategorical, brain.KindBool:
		at.Category = &wire.CategoryType{EnumValues: append([]string(nil), a.Labels()...)}
	case brain.KindJoystick:
		at.Joystick = &wire.JoystickType{
			AxesMode:         encodeAxesMode(a.AxesMode()),
			ControlledEntity: a.ControlledEntity(),
			ControlFrame:     a.ControlFrame(),
		}
	case brain.KindPosition, brain.KindRotation, brain.KindFeelers, brain.KindInvalid:
		// Not action kinds; Actions.Add rejects them.
	}
	return at
}

func encodeAxesMode(m brain.JoystickAxesMode) wire.JoystickAxesMode {
	switch m {
	case brain.AxesModeDeltaPitchYaw:
		return wire.AxesDeltaPitchYaw
	case brain.AxesModeDirectionXZ:
		return wire.AxesDirectionXZ
	default:
		return wire.AxesModeUndefined
	}
}

// #endregion spec-encode

// #region source-mapping
// EncodeSource maps the typed provenance tag to its wire enum.
func EncodeSource(s brain.ActionSource) wire.ActionSource {
	switch s {
	case brain.SourceNone:
		return wire.NoSource
	case brain.SourceHumanDemonstration:
		return wire.HumanDemonstration
	case brain.SourceBrainAction:
		return wire.BrainAction
	default:
		return wire.SourceUnknown
	}
}

// DecodeSource maps the wire provenance enum back to the typed tag.
func DecodeSource(s wire.ActionSource) brain.ActionSource {
	switch s {
	case wire.NoSource:
		return brain.SourceNone
	case wire.HumanDemonstration:
		return brain.SourceHumanDemonstration
	case wire.BrainAction:
		return brain.SourceBrainAction
	default:
		return brain.SourceInvalid
	}
}

// #endregion source-mapping

// #region snapshot-encode
// EncodeObservations snapshots the current observation values. Values that
// violate their declared ranges (possible when an attribute was never
// assigned) fail with brain.ErrRange.
func EncodeObservations(obs *brain.Observations) (wire.ObservationData, error) {
	var out wire.ObservationData
	if p := obs.Player(); p != nil {
		ed, err := encodeEntityData(p)
		if err != nil {
			return out, err
		}
		out.Player = &ed
	}
	if c := obs.Camera(); c != nil {
		ed, err := encodeEntityData(c)
		if err != nil {
			return out, err
		}
		out.Camera = &ed
	}
	for _, g := range obs.Globals() {
		ed, err := encodeEntityData(g)
		if err != nil {
			return out, err
		}
		out.GlobalEntities = append(out.GlobalEntities, ed)
	}
	return out, nil
}

func encodeEntityData(e *brain.Entity) (wire.EntityData, error) {
	pos := e.Position().Position()
	rot := e.Rotation().Rotation()
	ed := wire.EntityData{
		Position: &wire.Vec3{X: pos.X, Y: pos.Y, Z: pos.Z},
		Rotation: &wire.Quat{X: rot.X, Y: rot.Y, Z: rot.Z, W: rot.W},
	}
	for _, f := range e.Fields() {
		fd, err := encodeFieldData(e.Name(), f)
		if err != nil {
			return ed, err
		}
		ed.Fields = append(ed.Fields, fd)
	}
	return ed, nil
}

func encodeFieldData(entity string, a *brain.Attribute) (wire.EntityFieldData, error) {
	var fd wire.EntityFieldData
	switch a.Kind() {
	case brain.KindFloat:
		v := a.Number()
		min, max := a.Range()
		if v < min || v > max {
			return fd, fmt.Errorf("%w: %s/%s = %g outside [%g, %g]",
				brain.ErrRange, entity, a.Name(), v, min, max)
		}
		fd.Number = &v
	case brain.KindCategorical, brain.KindBool:
		v := int32(a.Category())
		if int(v) >= len(a.Labels()) {
			return fd, fmt.Errorf("%w: %s/%s = %d outside 0..%d",
				brain.ErrRange, entity, a.Name(), v, len(a.Labels())-1)
		}
		fd.Category = &v
	case brain.KindFeelers:
		layout := a.FeelersLayout()
		data := wire.FeelerData{Distances: make([]float32, layout.Count)}
		for i := 0; i < layout.Count; i++ {
			d := a.FeelerDistance(i)
			if d < layout.DistanceMin || d > layout.DistanceMax {
				return fd, fmt.Errorf("%w: %s/%s ray %d = %g outside [%g, %g]",
					brain.ErrRange, entity, a.Name(), i, d, layout.DistanceMin, layout.DistanceMax)
			}
			data.Distances[i] = d
		}
		if len(layout.IDLabels) > 0 {
			data.IDs = make([]int32, layout.Count)
			for i := 0; i < layout.Count; i++ {
				data.IDs[i] = int32(a.FeelerID(i))
			}
		}
		fd.Feeler = &data
	case brain.KindPosition, brain.KindRotation, brain.KindJoystick, brain.KindInvalid:
		return fd, fmt.Errorf("%w: %s/%s has non-field kind %s",
			brain.ErrSpec, entity, a.Name(), a.Kind())
	}
	return fd, nil
}

// EncodeActions snapshots the current action values and source tag.
func EncodeActions(acts *brain.Actions) (wire.ActionsData, error) {
	out := wire.ActionsData{Source: EncodeSource(acts.Source())}
	for _, a := range acts.List() {
		var ad wire.ActionData
		switch a.Kind() {
		case brain.KindFloat:
			v := a.Number()
			min, max := a.Range()
			if v < min || v > max {
				return out, fmt.Errorf("%w: action %s = %g outside [%g, %g]",
					brain.ErrRange, a.Name(), v, min, max)
			}
			ad.Number = &v
		case brain.KindCategorical, brain.KindBool:
			v := int32(a.Category())
			if int(v) >= len(a.Labels()) {
				return out, fmt.Errorf("%w: action %s = %d outside 0..%d",
					brain.ErrRange, a.Name(), v, len(a.Labels())-1)
			}
			ad.Category = &v
		case brain.KindJoystick:
			x, y := a.Axes()
			if err := brain.CheckAxis(a.Name(), "x", x); err != nil {
				return out, err
			}
			if err := brain.CheckAxis(a.Name(), "y", y); err != nil {
				return out, err
			}
			ad.Joystick = &wire.JoystickData{X: float32(x), Y: float32(y)}
		case brain.KindPosition, brain.KindRotation, brain.KindFeelers, brain.KindInvalid:
			return out, fmt.Errorf("%w: action %s has non-action kind %s",
				brain.ErrSpec, a.Name(), a.Kind())
		}
		out.Actions = append(out.Actions, ad)
	}
	return out, nil
}

// #endregion snapshot-encode

// #region snapshot-decode
// DecodeObservations writes a wire observation snapshot into the typed
// schema. All range and structure violations are collected and returned as
// one joined error; valid fields are applied regardless.
func DecodeObservations(data wire.ObservationData, obs *brain.Observations) error {
	var errs []error
	apply := func(ed *wire.EntityData, e *brain.Entity, label string) {
		switch {
		case ed == nil && e == nil:
		case ed == nil:
			errs = append(errs, fmt.Errorf("%w: snapshot is missing entity %s", ErrIntegrity, label))
		case e == nil:
			errs = append(errs, fmt.Errorf("%w: snapshot has unexpected entity %s", ErrIntegrity, label))
		default:
			errs = append(errs, decodeEntityData(*ed, e)...)
		}
	}
	apply(data.Player, obs.Player(), brain.PlayerEntityName)
	apply(data.Camera, obs.Camera(), brain.CameraEntityName)
	globals := obs.Globals()
	if len(data.GlobalEntities) != len(globals) {
		errs = append(errs, fmt.Errorf("%w: snapshot has %d global entities, spec has %d",
			ErrIntegrity, len(data.GlobalEntities), len(globals)))
	} else {
		for i := range globals {
			errs = append(errs, decodeEntityData(data.GlobalEntities[i], globals[i])...)
		}
	}
	return errors.Join(errs...)
}

func decodeEntityData(ed wire.EntityData, e *brain.Entity) []error {
	var errs []error
	if ed.Position != nil {
		p := brain.Position{X: ed.Position.X, Y: ed.Position.Y, Z: ed.Position.Z}
		if err := e.Position().SetPosition(p); err != nil {
			errs = append(errs, err)
		}
	}
	if ed.Rotation != nil {
		r := brain.Rotation{X: ed.Rotation.X, Y: ed.Rotation.Y, Z: ed.Rotation.Z, W: ed.Rotation.W}
		if err := e.Rotation().SetRotation(r); err != nil {
			errs = append(errs, err)
		}
	}
	fields := e.Fields()
	if len(ed.Fields) != len(fields) {
		return append(errs, fmt.Errorf("%w: entity %s has %d fields in snapshot, %d in spec",
			ErrIntegrity, e.Name(), len(ed.Fields), len(fields)))
	}
	for i, f := range fields {
		errs = append(errs, decodeFieldData(e.Name(), ed.Fields[i], f)...)
	}
	return errs
}

func decodeFieldData(entity string, fd wire.EntityFieldData, a *brain.Attribute) []error {
	var errs []error
	switch a.Kind() {
	case brain.KindFloat:
		if fd.Number == nil {
			return []error{fmt.Errorf("%w: %s/%s expected a number sample", ErrIntegrity, entity, a.Name())}
		}
		if err := a.SetNumber(*fd.Number); err != nil {
			errs = append(errs, err)
		}
	case brain.KindCategorical, brain.KindBool:
		if fd.Category == nil {
			return []error{fmt.Errorf("%w: %s/%s expected a category sample", ErrIntegrity, entity, a.Name())}
		}
		if err := a.SetCategory(int(*fd.Category)); err != nil {
			errs = append(errs, err)
		}
	case brain.KindFeelers:
		if fd.Feeler == nil {
			return []error{fmt.Errorf("%w: %s/%s expected feeler samples", ErrIntegrity, entity, a.Name())}
		}
		layout := a.FeelersLayout()
		if len(fd.Feeler.Distances) != layout.Count {
			return []error{fmt.Errorf("%w: %s/%s has %d distance samples for %d rays",
				ErrIntegrity, entity, a.Name(), len(fd.Feeler.Distances), layout.Count)}
		}
		for i, d := range fd.Feeler.Distances {
			if err := a.SetFeelerDistance(i, d); err != nil {
				errs = append(errs, err)
			}
		}
		if len(layout.IDLabels) > 0 {
			if len(fd.Feeler.IDs) != layout.Count {
				return append(errs, fmt.Errorf("%w: %s/%s has %d id samples for %d rays",
					ErrIntegrity, entity, a.Name(), len(fd.Feeler.IDs), layout.Count))
			}
			for i, id := range fd.Feeler.IDs {
				if err := a.SetFeelerID(i, int(id)); err != nil {
					errs = append(errs, err)
				}
			}
		}
	case brain.KindPosition, brain.KindRotation, brain.KindJoystick, brain.KindInvalid:
		errs = append(errs, fmt.Errorf("%w: %s/%s has non-field kind %s",
			ErrIntegrity, entity, a.Name(), a.Kind()))
	}
	return errs
}

// DecodeActions writes a wire action snapshot into the typed schema,
// collecting all violations.
func DecodeActions(data wire.ActionsData, acts *brain.Actions) error {
	var errs []error
	list := acts.List()
	if len(data.Actions) != len(list) {
		return fmt.Errorf("%w: snapshot has %d actions, spec has %d",
			ErrIntegrity, len(data.Actions), len(list))
	}
	for i, a := range list {
		ad := data.Actions[i]
		switch a.Kind() {
		case brain.KindFloat:
			if ad.Number == nil {
				errs = append(errs, fmt.Errorf("%w: action %s expected a number sample", ErrIntegrity, a.Name()))
				continue
			}
			if err := a.SetNumber(*ad.Number); err != nil {
				errs = append(errs, err)
			}
		case brain.KindCategorical, brain.KindBool:
			if ad.Category == nil {
				errs = append(errs, fmt.Errorf("%w: action %s expected a category sample", ErrIntegrity, a.Name()))
				continue
			}
			if err := a.SetCategory(int(*ad.Category)); err != nil {
				errs = append(errs, err)
			}
		case brain.KindJoystick:
			if ad.Joystick == nil {
				errs = append(errs, fmt.Errorf("%w: action %s expected joystick axes", ErrIntegrity, a.Name()))
				continue
			}
			if err := a.SetAxes(float64(ad.Joystick.X), float64(ad.Joystick.Y)); err != nil {
				errs = append(errs, err)
			}
		case brain.KindPosition, brain.KindRotation, brain.KindFeelers, brain.KindInvalid:
			errs = append(errs, fmt.Errorf("%w: action %s has non-action kind %s",
				ErrIntegrity, a.Name(), a.Kind()))
		}
	}
	acts.SetSource(DecodeSource(data.Source))
	return errors.Join(errs...)
}

// #endregion snapshot-decode
