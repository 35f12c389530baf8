package brain

import "fmt"

// #region action-source
// ActionSource tags the provenance of an action snapshot at a step.
type ActionSource int

const (
	SourceInvalid ActionSource = iota
	// SourceNone: no model was resident and the caller gave no demonstration;
	// the application should ignore the action values.
	SourceNone
	// SourceHumanDemonstration: the caller set the action values this step.
	SourceHumanDemonstration
	// SourceBrainAction: the values were produced by on-device inference.
	SourceBrainAction
)

// String returns the lowercase source name.
func (s ActionSource) String() string {
	switch s {
	case SourceNone:
		return "none"
	case SourceHumanDemonstration:
		return "human_demonstration"
	case SourceBrainAction:
		return "brain_action"
	default:
		return "invalid"
	}
}

// #endregion action-source

// #region observations
// Observations is the observation half of a brain spec: an optional player
// entity, an optional camera entity, and ordered global entities.
type Observations struct {
	player  *Entity
	camera  *Entity
	globals []*Entity
	byName  map[string]*Entity
}

// NewObservations returns an empty observation schema.
func NewObservations() *Observations {
	return &Observations{byName: make(map[string]*Entity)}
}

// Attach adds an entity, routing "player" and "camera" to their dedicated
// slots and everything else to the ordered global list.
func (o *Observations) Attach(e *Entity) error {
	if _, dup := o.byName[e.name]; dup {
		return fmt.Errorf("%w: observations repeat entity %q", ErrSpec, e.name)
	}
	switch e.name {
	case PlayerEntityName:
		o.player = e
	case CameraEntityName:
		o.camera = e
	default:
		o.globals = append(o.globals, e)
	}
	o.byName[e.name] = e
	return nil
}

// Player returns the player entity, nil if absent.
func (o *Observations) Player() *Entity { return o.player }

// Camera returns the camera entity, nil if absent.
func (o *Observations) Camera() *Entity { return o.camera }

// Globals returns the non-player, non-camera entities in attach order.
func (o *Observations) Globals() []*Entity { return o.globals }

// Entity looks up any attached entity by name, nil if absent.
func (o *Observations) Entity(name string) *Entity { return o.byName[name] }

// Entities returns player, camera, then globals, skipping absent slots.
func (o *Observations) Entities() []*Entity {
	out := make([]*Entity, 0, 2+len(o.globals))
	if o.player != nil {
		out = append(out, o.player)
	}
	if o.camera != nil {
		out = append(out, o.camera)
	}
	return append(out, o.globals...)
}

// #endregion observations

// #region actions
// Actions is the action half of a brain spec: an ordered, uniquely named
// list of action attributes plus the source tag for the current snapshot.
type Actions struct {
	list   []*Attribute
	byName map[string]*Attribute
	source ActionSource
}

// NewActions returns an empty action schema.
func NewActions() *Actions {
	return &Actions{byName: make(map[string]*Attribute), source: SourceInvalid}
}

// Add appends an action attribute. Only float, categorical, bool, and
// joystick kinds are action kinds.
func (a *Actions) Add(attr *Attribute) error {
	switch attr.kind {
	case KindFloat, KindCategorical, KindBool, KindJoystick:
	default:
		return fmt.Errorf("%w: action %q has kind %s, which is not an action kind",
			ErrSpec, attr.name, attr.kind)
	}
	if _, dup := a.byName[attr.name]; dup {
		return fmt.Errorf("%w: actions repeat name %q", ErrSpec, attr.name)
	}
	a.list = append(a.list, attr)
	a.byName[attr.name] = attr
	return nil
}

// List returns the actions in declaration order.
func (a *Actions) List() []*Attribute { return a.list }

// Get looks up an action by name, nil if absent.
func (a *Actions) Get(name string) *Attribute { return a.byName[name] }

// SetSource tags the provenance of the current action snapshot.
func (a *Actions) SetSource(s ActionSource) { a.source = s }

// Source returns the current snapshot's provenance tag.
func (a *Actions) Source() ActionSource { return a.source }

// #endregion actions

// #region spec
// Spec pairs an observation schema with an action schema. It is mutable
// until frozen; the session freezes it on first use.
type Spec struct {
	obs     *Observations
	actions *Actions
	frozen  bool
}

// NewSpec builds a brain spec from its two halves.
func NewSpec(obs *Observations, actions *Actions) *Spec {
	if obs == nil {
		obs = NewObservations()
	}
	if actions == nil {
		actions = NewActions()
	}
	return &Spec{obs: obs, actions: actions}
}

// Observations returns the observation schema.
func (s *Spec) Observations() *Observations { return s.obs }

// Actions returns the action schema.
func (s *Spec) Actions() *Actions { return s.actions }

// Freeze locks the spec against structural change.
func (s *Spec) Freeze() { s.frozen = true }

// Frozen reports whether the spec has been frozen.
func (s *Spec) Frozen() bool { return s.frozen }

// Validate checks the whole spec: non-empty halves, resolvable joystick
// references, and the learning-signal rule. The spec must either declare a
// custom entity field somewhere in observations, or pair at least one
// joystick action with at least one global entity.
func (s *Spec) Validate() error {
	if len(s.obs.Entities()) == 0 {
		return fmt.Errorf("%w: observations are empty", ErrSpec)
	}
	if len(s.actions.list) == 0 {
		return fmt.Errorf("%w: actions are empty", ErrSpec)
	}

	hasJoystick := false
	for _, act := range s.actions.list {
		if act.kind != KindJoystick {
			continue
		}
		hasJoystick = true
		if act.controlledEntity != PlayerEntityName && act.controlledEntity != CameraEntityName {
			return fmt.Errorf("%w: joystick %q controlled entity %q must be player or camera",
				ErrSpec, act.name, act.controlledEntity)
		}
		if s.obs.Entity(act.controlledEntity) == nil {
			return fmt.Errorf("%w: joystick %q controls %q, which is not in observations",
				ErrSpec, act.name, act.controlledEntity)
		}
		if act.controlFrame != "" && s.obs.Entity(act.controlFrame) == nil {
			return fmt.Errorf("%w: joystick %q control frame %q is not in observations",
				ErrSpec, act.name, act.controlFrame)
		}
	}

	hasCustomField := false
	for _, e := range s.obs.Entities() {
		if len(e.fields) > 0 {
			hasCustomField = true
			break
		}
	}
	if !hasCustomField && !(hasJoystick && len(s.obs.globals) > 0) {
		return fmt.Errorf("%w: spec cannot produce learning signals; "+
			"add custom attributes or custom entities", ErrSpec)
	}
	return nil
}

// #endregion spec

// #region dirty-tracking
// UnsetNames returns the paths of attributes that have not been assigned
// since the last reset, for pre-step "attribute not set" warnings.
func (s *Spec) UnsetNames() []string {
	var out []string
	for _, e := range s.obs.Entities() {
		for _, a := range e.Attributes() {
			if !a.dirty {
				out = append(out, e.name+"/"+a.name)
			}
		}
	}
	for _, a := range s.actions.list {
		if !a.dirty {
			out = append(out, "actions/"+a.name)
		}
	}
	return out
}

// ResetDirty clears every attribute's dirty flag and the action source.
// The step path calls this after recording.
func (s *Spec) ResetDirty() {
	for _, e := range s.obs.Entities() {
		for _, a := range e.Attributes() {
			a.dirty = false
		}
	}
	for _, a := range s.actions.list {
		a.dirty = false
	}
	s.actions.source = SourceInvalid
}

// #endregion dirty-tracking
