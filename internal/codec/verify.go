package codec

import (
	"fmt"

	"github.com/google-research/falken-go/brain"
	"github.com/google-research/falken-go/internal/wire"
)

// #region verify
// VerifySpec checks a wire schema against the local typed spec: identical
// entity and attribute ordering, identical ranges/labels/axes modes, and
// resolvable joystick references. Used when joining a pre-existing session
// whose brain was created elsewhere.
func VerifySpec(local *brain.Spec, remote wire.BrainSpec) error {
	obs := local.Observations()
	if err := verifyEntitySlot(obs.Player(), remote.Observations.Player, brain.PlayerEntityName); err != nil {
		return err
	}
	if err := verifyEntitySlot(obs.Camera(), remote.Observations.Camera, brain.CameraEntityName); err != nil {
		return err
	}
	globals := obs.Globals()
	if len(remote.Observations.GlobalEntities) != len(globals) {
		return fmt.Errorf("%w: %d global entities remotely, %d locally",
			ErrIntegrity, len(remote.Observations.GlobalEntities), len(globals))
	}
	for i, g := range globals {
		if err := verifyEntityType(g, remote.Observations.GlobalEntities[i], g.Name()); err != nil {
			return err
		}
	}

	acts := local.Actions().List()
	if len(remote.Actions.Actions) != len(acts) {
		return fmt.Errorf("%w: %d actions remotely, %d locally",
			ErrIntegrity, len(remote.Actions.Actions), len(acts))
	}
	for i, a := range acts {
		if err := verifyActionType(a, remote.Actions.Actions[i]); err != nil {
			return err
		}
	}

	// Joystick references must resolve against the remote observation set.
	for _, ra := range remote.Actions.Actions {
		if ra.Joystick == nil {
			continue
		}
		if !remoteHasEntity(remote.Observations, ra.Joystick.ControlledEntity) {
			return fmt.Errorf("%w: joystick %s controls unresolved entity %q",
				ErrIntegrity, ra.Name, ra.Joystick.ControlledEntity)
		}
		if cf := ra.Joystick.ControlFrame; cf != "" && !remoteHasEntity(remote.Observations, cf) {
			return fmt.Errorf("%w: joystick %s has unresolved control frame %q",
				ErrIntegrity, ra.Name, cf)
		}
	}
	return nil
}

func remoteHasEntity(o wire.ObservationSpec, name string) bool {
	switch name {
	case brain.PlayerEntityName:
		return o.Player != nil
	case brain.CameraEntityName:
		return o.Camera != nil
	default:
		// Global entities are anonymous on the wire; a reference to one
		// cannot be a joystick target (validation restricts those to
		// player/camera), so anything else is unresolved.
		return false
	}
}

func verifyEntitySlot(local *brain.Entity, remote *wire.EntityType, label string) error {
	switch {
	case local == nil && remote == nil:
		return nil
	case local == nil:
		return fmt.Errorf("%w: remote spec has %s, local does not", ErrIntegrity, label)
	case remote == nil:
		return fmt.Errorf("%w: local spec has %s, remote does not", ErrIntegrity, label)
	default:
		return verifyEntityType(local, *remote, label)
	}
}

func verifyEntityType(local *brain.Entity, remote wire.EntityType, label string) error {
	if !remote.HasPosition || !remote.HasRotation {
		return fmt.Errorf("%w: entity %s is missing position or rotation remotely", ErrIntegrity, label)
	}
	fields := local.Fields()
	if len(remote.Fields) != len(fields) {
		return fmt.Errorf("%w: entity %s has %d fields remotely, %d locally",
			ErrIntegrity, label, len(remote.Fields), len(fields))
	}
	for i, f := range fields {
		rf := remote.Fields[i]
		if rf.Name != f.Name() {
			return fmt.Errorf("%w: entity %s field %d is %q remotely, %q locally",
				ErrIntegrity, label, i, rf.Name, f.Name())
		}
		if err := verifyFieldType(f, rf, label); err != nil {
			return err
		}
	}
	return nil
}

func verifyFieldType(local *brain.Attribute, remote wire.EntityFieldType, entity string) error {
	path := entity + "/" + local.Name()
	switch local.Kind() {
	case brain.KindFloat:
		if remote.Number == nil {
			return fmt.Errorf("%w: %s is not a number remotely", ErrIntegrity, path)
		}
		min, max := local.Range()
		if remote.Number.Min != min || remote.Number.Max != max {
			return fmt.Errorf("%w: %s range is [%g, %g] remotely, [%g, %g] locally",
				ErrIntegrity, path, remote.Number.Min, remote.Number.Max, min, max)
		}
	case brain.KindCategorical, brain.KindBool:
		if remote.Category == nil {
			return fmt.Errorf("%w: %s is not a category remotely", ErrIntegrity, path)
		}
		if err := verifyLabels(local.Labels(), remote.Category.EnumValues, path); err != nil {
			return err
		}
	case brain.KindFeelers:
		if remote.Feeler == nil {
			return fmt.Errorf("%w: %s is not a feeler remotely", ErrIntegrity, path)
		}
		layout := local.FeelersLayout()
		rf := remote.Feeler
		if int(rf.Count) != layout.Count {
			return fmt.Errorf("%w: %s has %d rays remotely, %d locally",
				ErrIntegrity, path, rf.Count, layout.Count)
		}
		if rf.Distance.Min != float64(layout.DistanceMin) || rf.Distance.Max != float64(layout.DistanceMax) {
			return fmt.Errorf("%w: %s distance range differs", ErrIntegrity, path)
		}
		if len(rf.YawAngles) != len(layout.YawAngles) {
			return fmt.Errorf("%w: %s yaw angle count differs", ErrIntegrity, path)
		}
		for i := range rf.YawAngles {
			if rf.YawAngles[i] != layout.YawAngles[i] {
				return fmt.Errorf("%w: %s yaw angle %d is %g remotely, %g locally",
					ErrIntegrity, path, i, rf.YawAngles[i], layout.YawAngles[i])
			}
		}
		if len(rf.ExperimentalData) != len(layout.IDLabels) {
			return fmt.Errorf("%w: %s id channel width is %d remotely, %d locally",
				ErrIntegrity, path, len(rf.ExperimentalData), len(layout.IDLabels))
		}
		if rf.Thickness != layout.Thickness {
			return fmt.Errorf("%w: %s thickness differs", ErrIntegrity, path)
		}
	case brain.KindPosition, brain.KindRotation, brain.KindJoystick, brain.KindInvalid:
		return fmt.Errorf("%w: %s has non-field kind %s", ErrIntegrity, path, local.Kind())
	}
	return nil
}

func verifyActionType(local *brain.Attribute, remote wire.ActionType) error {
	if remote.Name != local.Name() {
		return fmt.Errorf("%w: action %q remotely, %q locally", ErrIntegrity, remote.Name, local.Name())
	}
	path := "actions/" + local.Name()
	switch local.Kind() {
	case brain.KindFloat:
		if remote.Number == nil {
			return fmt.Errorf("%w: %s is not a number remotely", ErrIntegrity, path)
		}
		min, max := local.Range()
		if remote.Number.Min != min || remote.Number.Max != max {
			return fmt.Errorf("%w: %s range is [%g, %g] remotely, [%g, %g] locally",
				ErrIntegrity, path, remote.Number.Min, remote.Number.Max, min, max)
		}
	case brain.KindCategorical, brain.KindBool:
		if remote.Category == nil {
			return fmt.Errorf("%w: %s is not a category remotely", ErrIntegrity, path)
		}
		if err := verifyLabels(local.Labels(), remote.Category.EnumValues, path); err != nil {
			return err
		}
	case brain.KindJoystick:
		if remote.Joystick == nil {
			return fmt.Errorf("%w: %s is not a joystick remotely", ErrIntegrity, path)
		}
		if remote.Joystick.AxesMode != encodeAxesMode(local.AxesMode()) {
			return fmt.Errorf("%w: %s axes mode differs", ErrIntegrity, path)
		}
		if remote.Joystick.ControlledEntity != local.ControlledEntity() {
			return fmt.Errorf("%w: %s controls %q remotely, %q locally",
				ErrIntegrity, path, remote.Joystick.ControlledEntity, local.ControlledEntity())
		}
		if remote.Joystick.ControlFrame != local.ControlFrame() {
			return fmt.Errorf("%w: %s control frame differs", ErrIntegrity, path)
		}
	case brain.KindPosition, brain.KindRotation, brain.KindFeelers, brain.KindInvalid:
		return fmt.Errorf("%w: %s has non-action kind %s", ErrIntegrity, path, local.Kind())
	}
	return nil
}

func verifyLabels(local, remote []string, path string) error {
	if len(remote) != len(local) {
		return fmt.Errorf("%w: %s has %d labels remotely, %d locally",
			ErrIntegrity, path, len(remote), len(local))
	}
	for i := range local {
		if remote[i] != local[i] {
			return fmt.Errorf("%w: %s label %d is %q remotely, %q locally",
				ErrIntegrity, path, i, remote[i], local[i])
		}
	}
	return nil
}

// #endregion verify
