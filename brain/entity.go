package brain

import "fmt"

// #region reserved
// Reserved entity names with dedicated slots in the observation schema.
const (
	PlayerEntityName = "player"
	CameraEntityName = "camera"
)

// #endregion reserved

// #region entity
// Entity is a named bag of attributes: mandatory position and rotation plus
// any number of custom fields (float, categorical, bool, feelers).
type Entity struct {
	name     string
	position *Attribute
	rotation *Attribute
	fields   []*Attribute
	byName   map[string]*Attribute
}

// NewEntity builds an entity with the given custom fields. Field names must
// be unique and may not shadow the mandatory position/rotation attributes.
func NewEntity(name string, fields ...*Attribute) (*Entity, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: entity name must be non-empty", ErrSpec)
	}
	e := &Entity{
		name:     name,
		position: newPosition(),
		rotation: newRotation(),
		byName:   make(map[string]*Attribute, len(fields)),
	}
	for _, f := range fields {
		switch f.kind {
		case KindFloat, KindCategorical, KindBool, KindFeelers:
			// Allowed entity field kinds.
		case KindPosition, KindRotation, KindJoystick, KindInvalid:
			return nil, fmt.Errorf("%w: entity %q field %q has kind %s, which is not an entity field kind",
				ErrSpec, name, f.name, f.kind)
		}
		if f.name == "position" || f.name == "rotation" {
			return nil, fmt.Errorf("%w: entity %q field %q shadows a mandatory attribute", ErrSpec, name, f.name)
		}
		if _, dup := e.byName[f.name]; dup {
			return nil, fmt.Errorf("%w: entity %q repeats field %q", ErrSpec, name, f.name)
		}
		e.fields = append(e.fields, f)
		e.byName[f.name] = f
	}
	return e, nil
}

// Name returns the entity name.
func (e *Entity) Name() string { return e.name }

// Position returns the mandatory position attribute.
func (e *Entity) Position() *Attribute { return e.position }

// Rotation returns the mandatory rotation attribute.
func (e *Entity) Rotation() *Attribute { return e.rotation }

// Fields returns the custom fields in declaration order.
func (e *Entity) Fields() []*Attribute { return e.fields }

// Field looks up a custom field by name, nil if absent.
func (e *Entity) Field(name string) *Attribute { return e.byName[name] }

// Attributes returns position, rotation, then custom fields in order.
func (e *Entity) Attributes() []*Attribute {
	out := make([]*Attribute, 0, 2+len(e.fields))
	out = append(out, e.position, e.rotation)
	return append(out, e.fields...)
}

// #endregion entity
