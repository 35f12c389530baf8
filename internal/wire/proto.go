package wire

import (
	"fmt"
	"math"

	"google.golang.org/protobuf/encoding/protowire"
)

// The service proto is consumed structurally rather than from generated
// stubs, so every message here carries a hand-rolled protobuf codec built on
// encoding/protowire. Field numbers are pinned in the append/parse pairs
// below and must match the service build; unknown fields are skipped on
// parse, which is what keeps the schema version-tolerant.

// #region message-interface
// Message is implemented by every message that crosses the transport or is
// persisted in the journal.
type Message interface {
	appendWire(b []byte) []byte
	unmarshalWire(b []byte) error
}

// Marshal encodes a message to protobuf wire format.
func Marshal(m Message) []byte {
	return m.appendWire(nil)
}

// Unmarshal decodes protobuf wire format into m.
func Unmarshal(b []byte, m Message) error {
	return m.unmarshalWire(b)
}

// #endregion message-interface

// #region encode-helpers
func putString(b []byte, num protowire.Number, s string) []byte {
	if s == "" {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, s)
}

func putBytes(b []byte, num protowire.Number, v []byte) []byte {
	if len(v) == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, v)
}

func putVarint(b []byte, num protowire.Number, v uint64) []byte {
	if v == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, v)
}

func putFloat32(b []byte, num protowire.Number, v float32) []byte {
	if v == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.Fixed32Type)
	return protowire.AppendFixed32(b, math.Float32bits(v))
}

func putFloat64(b []byte, num protowire.Number, v float64) []byte {
	if v == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.Fixed64Type)
	return protowire.AppendFixed64(b, math.Float64bits(v))
}

// putMsg emits a length-delimited submessage, including an empty body, so
// it doubles as a presence marker.
func putMsg(b []byte, num protowire.Number, body []byte) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, body)
}

func packF32(vals []float32) []byte {
	out := make([]byte, 0, 4*len(vals))
	for _, v := range vals {
		out = protowire.AppendFixed32(out, math.Float32bits(v))
	}
	return out
}

func packVarints(vals []int32) []byte {
	var out []byte
	for _, v := range vals {
		out = protowire.AppendVarint(out, uint64(uint32(v)))
	}
	return out
}

// #endregion encode-helpers

// #region decode-helpers
// field is one decoded field; exactly one payload member is meaningful
// depending on typ.
type field struct {
	num     protowire.Number
	typ     protowire.Type
	varint  uint64
	fixed32 uint32
	fixed64 uint64
	bytes   []byte
}

func (f field) str() string     { return string(f.bytes) }
func (f field) f32() float32    { return math.Float32frombits(f.fixed32) }
func (f field) f64() float64    { return math.Float64frombits(f.fixed64) }
func (f field) i32() int32      { return int32(uint32(f.varint)) }
func (f field) i64() int64      { return int64(f.varint) }

// walkFields decodes the field stream of one message, invoking visit per
// field. Unknown wire types are skipped.
func walkFields(b []byte, visit func(f field) error) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return fmt.Errorf("consume tag: %w", protowire.ParseError(n))
		}
		b = b[n:]
		f := field{num: num, typ: typ}
		switch typ {
		case protowire.VarintType:
			v, m := protowire.ConsumeVarint(b)
			if m < 0 {
				return fmt.Errorf("field %d: %w", num, protowire.ParseError(m))
			}
			f.varint = v
			b = b[m:]
		case protowire.Fixed32Type:
			v, m := protowire.ConsumeFixed32(b)
			if m < 0 {
				return fmt.Errorf("field %d: %w", num, protowire.ParseError(m))
			}
			f.fixed32 = v
			b = b[m:]
		case protowire.Fixed64Type:
			v, m := protowire.ConsumeFixed64(b)
			if m < 0 {
				return fmt.Errorf("field %d: %w", num, protowire.ParseError(m))
			}
			f.fixed64 = v
			b = b[m:]
		case protowire.BytesType:
			v, m := protowire.ConsumeBytes(b)
			if m < 0 {
				return fmt.Errorf("field %d: %w", num, protowire.ParseError(m))
			}
			f.bytes = v
			b = b[m:]
		default:
			m := protowire.ConsumeFieldValue(num, typ, b)
			if m < 0 {
				return fmt.Errorf("field %d: %w", num, protowire.ParseError(m))
			}
			b = b[m:]
			continue
		}
		if err := visit(f); err != nil {
			return err
		}
	}
	return nil
}

func unpackF32(b []byte) ([]float32, error) {
	var out []float32
	for len(b) > 0 {
		v, n := protowire.ConsumeFixed32(b)
		if n < 0 {
			return nil, fmt.Errorf("packed float: %w", protowire.ParseError(n))
		}
		out = append(out, math.Float32frombits(v))
		b = b[n:]
	}
	return out, nil
}

func unpackVarints(b []byte) ([]int32, error) {
	var out []int32
	for len(b) > 0 {
		v, n := protowire.ConsumeVarint(b)
		if n < 0 {
			return nil, fmt.Errorf("packed varint: %w", protowire.ParseError(n))
		}
		out = append(out, int32(uint32(v)))
		b = b[n:]
	}
	return out, nil
}

// #endregion decode-helpers

// #region spec-codec
// ValueRange: min=1 max=2 (double)
func appendValueRange(b []byte, r ValueRange) []byte {
	var body []byte
	body = putFloat64(body, 1, r.Min)
	body = putFloat64(body, 2, r.Max)
	return body
}

func parseValueRange(b []byte) (ValueRange, error) {
	var r ValueRange
	err := walkFields(b, func(f field) error {
		switch f.num {
		case 1:
			r.Min = f.f64()
		case 2:
			r.Max = f.f64()
		}
		return nil
	})
	return r, err
}

// NumberType: min=1 max=2 (double)
func appendNumberType(n NumberType) []byte {
	var body []byte
	body = putFloat64(body, 1, n.Min)
	body = putFloat64(body, 2, n.Max)
	return body
}

func parseNumberType(b []byte) (NumberType, error) {
	var n NumberType
	err := walkFields(b, func(f field) error {
		switch f.num {
		case 1:
			n.Min = f.f64()
		case 2:
			n.Max = f.f64()
		}
		return nil
	})
	return n, err
}

// CategoryType: enum_values=1 (repeated string)
func appendCategoryType(c CategoryType) []byte {
	var body []byte
	for _, v := range c.EnumValues {
		body = putMsgString(body, 1, v)
	}
	return body
}

// putMsgString emits a string field without the empty-value skip, for
// repeated strings where an empty element is still an element.
func putMsgString(b []byte, num protowire.Number, s string) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, s)
}

func parseCategoryType(b []byte) (CategoryType, error) {
	var c CategoryType
	err := walkFields(b, func(f field) error {
		if f.num == 1 {
			c.EnumValues = append(c.EnumValues, f.str())
		}
		return nil
	})
	return c, err
}

// FeelerType: count=1, distance=2, yaw_angles=3 (packed), experimental_data=4,
// thickness=5
func appendFeelerType(ft FeelerType) []byte {
	var body []byte
	body = putVarint(body, 1, uint64(uint32(ft.Count)))
	body = putMsg(body, 2, appendValueRange(nil, ft.Distance))
	if len(ft.YawAngles) > 0 {
		body = putBytes(body, 3, packF32(ft.YawAngles))
	}
	for _, r := range ft.ExperimentalData {
		body = putMsg(body, 4, appendValueRange(nil, r))
	}
	body = putFloat32(body, 5, ft.Thickness)
	return body
}

func parseFeelerType(b []byte) (FeelerType, error) {
	var ft FeelerType
	err := walkFields(b, func(f field) error {
		switch f.num {
		case 1:
			ft.Count = f.i32()
		case 2:
			r, err := parseValueRange(f.bytes)
			if err != nil {
				return err
			}
			ft.Distance = r
		case 3:
			vals, err := unpackF32(f.bytes)
			if err != nil {
				return err
			}
			ft.YawAngles = vals
		case 4:
			r, err := parseValueRange(f.bytes)
			if err != nil {
				return err
			}
			ft.ExperimentalData = append(ft.ExperimentalData, r)
		case 5:
			ft.Thickness = f.f32()
		}
		return nil
	})
	return ft, err
}

// JoystickType: axes_mode=1, controlled_entity=2, control_frame=3
func appendJoystickType(j JoystickType) []byte {
	var body []byte
	body = putVarint(body, 1, uint64(j.AxesMode))
	body = putString(body, 2, j.ControlledEntity)
	body = putString(body, 3, j.ControlFrame)
	return body
}

func parseJoystickType(b []byte) (JoystickType, error) {
	var j JoystickType
	err := walkFields(b, func(f field) error {
		switch f.num {
		case 1:
			j.AxesMode = JoystickAxesMode(f.i32())
		case 2:
			j.ControlledEntity = f.str()
		case 3:
			j.ControlFrame = f.str()
		}
		return nil
	})
	return j, err
}

// EntityFieldType: name=1, number=2, category=3, feeler=4
func appendEntityFieldType(ef EntityFieldType) []byte {
	var body []byte
	body = putString(body, 1, ef.Name)
	switch {
	case ef.Number != nil:
		body = putMsg(body, 2, appendNumberType(*ef.Number))
	case ef.Category != nil:
		body = putMsg(body, 3, appendCategoryType(*ef.Category))
	case ef.Feeler != nil:
		body = putMsg(body, 4, appendFeelerType(*ef.Feeler))
	}
	return body
}

func parseEntityFieldType(b []byte) (EntityFieldType, error) {
	var ef EntityFieldType
	err := walkFields(b, func(f field) error {
		switch f.num {
		case 1:
			ef.Name = f.str()
		case 2:
			n, err := parseNumberType(f.bytes)
			if err != nil {
				return err
			}
			ef.Number = &n
		case 3:
			c, err := parseCategoryType(f.bytes)
			if err != nil {
				return err
			}
			ef.Category = &c
		case 4:
			ft, err := parseFeelerType(f.bytes)
			if err != nil {
				return err
			}
			ef.Feeler = &ft
		}
		return nil
	})
	return ef, err
}

// EntityType: position=1 (presence), rotation=2 (presence), entity_fields=3
func appendEntityType(e EntityType) []byte {
	var body []byte
	if e.HasPosition {
		body = putMsg(body, 1, nil)
	}
	if e.HasRotation {
		body = putMsg(body, 2, nil)
	}
	for _, ef := range e.Fields {
		body = putMsg(body, 3, appendEntityFieldType(ef))
	}
	return body
}

func parseEntityType(b []byte) (EntityType, error) {
	var e EntityType
	err := walkFields(b, func(f field) error {
		switch f.num {
		case 1:
			e.HasPosition = true
		case 2:
			e.HasRotation = true
		case 3:
			ef, err := parseEntityFieldType(f.bytes)
			if err != nil {
				return err
			}
			e.Fields = append(e.Fields, ef)
		}
		return nil
	})
	return e, err
}

// ObservationSpec: player=1, camera=2, global_entities=3
func appendObservationSpec(o ObservationSpec) []byte {
	var body []byte
	if o.Player != nil {
		body = putMsg(body, 1, appendEntityType(*o.Player))
	}
	if o.Camera != nil {
		body = putMsg(body, 2, appendEntityType(*o.Camera))
	}
	for _, g := range o.GlobalEntities {
		body = putMsg(body, 3, appendEntityType(g))
	}
	return body
}

func parseObservationSpec(b []byte) (ObservationSpec, error) {
	var o ObservationSpec
	err := walkFields(b, func(f field) error {
		switch f.num {
		case 1:
			e, err := parseEntityType(f.bytes)
			if err != nil {
				return err
			}
			o.Player = &e
		case 2:
			e, err := parseEntityType(f.bytes)
			if err != nil {
				return err
			}
			o.Camera = &e
		case 3:
			e, err := parseEntityType(f.bytes)
			if err != nil {
				return err
			}
			o.GlobalEntities = append(o.GlobalEntities, e)
		}
		return nil
	})
	return o, err
}

// ActionType: name=1, number=2, category=3, joystick=4
func appendActionType(a ActionType) []byte {
	var body []byte
	body = putString(body, 1, a.Name)
	switch {
	case a.Number != nil:
		body = putMsg(body, 2, appendNumberType(*a.Number))
	case a.Category != nil:
		body = putMsg(body, 3, appendCategoryType(*a.Category))
	case a.Joystick != nil:
		body = putMsg(body, 4, appendJoystickType(*a.Joystick))
	}
	return body
}

func parseActionType(b []byte) (ActionType, error) {
	var a ActionType
	err := walkFields(b, func(f field) error {
		switch f.num {
		case 1:
			a.Name = f.str()
		case 2:
			n, err := parseNumberType(f.bytes)
			if err != nil {
				return err
			}
			a.Number = &n
		case 3:
			c, err := parseCategoryType(f.bytes)
			if err != nil {
				return err
			}
			a.Category = &c
		case 4:
			j, err := parseJoystickType(f.bytes)
			if err != nil {
				return err
			}
			a.Joystick = &j
		}
		return nil
	})
	return a, err
}

// ActionSpec: actions=1
func appendActionSpec(a ActionSpec) []byte {
	var body []byte
	for _, act := range a.Actions {
		body = putMsg(body, 1, appendActionType(act))
	}
	return body
}

func parseActionSpec(b []byte) (ActionSpec, error) {
	var a ActionSpec
	err := walkFields(b, func(f field) error {
		if f.num == 1 {
			act, err := parseActionType(f.bytes)
			if err != nil {
				return err
			}
			a.Actions = append(a.Actions, act)
		}
		return nil
	})
	return a, err
}

// BrainSpec: observation_spec=1, action_spec=2
func appendBrainSpec(s BrainSpec) []byte {
	var body []byte
	body = putMsg(body, 1, appendObservationSpec(s.Observations))
	body = putMsg(body, 2, appendActionSpec(s.Actions))
	return body
}

func parseBrainSpec(b []byte) (BrainSpec, error) {
	var s BrainSpec
	err := walkFields(b, func(f field) error {
		switch f.num {
		case 1:
			o, err := parseObservationSpec(f.bytes)
			if err != nil {
				return err
			}
			s.Observations = o
		case 2:
			a, err := parseActionSpec(f.bytes)
			if err != nil {
				return err
			}
			s.Actions = a
		}
		return nil
	})
	return s, err
}

// #endregion spec-codec

// #region data-codec
// Vec3: x=1, y=2, z=3 (float)
func appendVec3(v Vec3) []byte {
	var body []byte
	body = putFloat32(body, 1, v.X)
	body = putFloat32(body, 2, v.Y)
	body = putFloat32(body, 3, v.Z)
	return body
}

func parseVec3(b []byte) (Vec3, error) {
	var v Vec3
	err := walkFields(b, func(f field) error {
		switch f.num {
		case 1:
			v.X = f.f32()
		case 2:
			v.Y = f.f32()
		case 3:
			v.Z = f.f32()
		}
		return nil
	})
	return v, err
}

// Quat: x=1, y=2, z=3, w=4 (float)
func appendQuat(q Quat) []byte {
	var body []byte
	body = putFloat32(body, 1, q.X)
	body = putFloat32(body, 2, q.Y)
	body = putFloat32(body, 3, q.Z)
	body = putFloat32(body, 4, q.W)
	return body
}

func parseQuat(b []byte) (Quat, error) {
	var q Quat
	err := walkFields(b, func(f field) error {
		switch f.num {
		case 1:
			q.X = f.f32()
		case 2:
			q.Y = f.f32()
		case 3:
			q.Z = f.f32()
		case 4:
			q.W = f.f32()
		}
		return nil
	})
	return q, err
}

// FeelerData: distances=1 (packed), ids=2 (packed)
func appendFeelerData(fd FeelerData) []byte {
	var body []byte
	if len(fd.Distances) > 0 {
		body = putBytes(body, 1, packF32(fd.Distances))
	}
	if len(fd.IDs) > 0 {
		body = putBytes(body, 2, packVarints(fd.IDs))
	}
	return body
}

func parseFeelerData(b []byte) (FeelerData, error) {
	var fd FeelerData
	err := walkFields(b, func(f field) error {
		switch f.num {
		case 1:
			vals, err := unpackF32(f.bytes)
			if err != nil {
				return err
			}
			fd.Distances = vals
		case 2:
			ids, err := unpackVarints(f.bytes)
			if err != nil {
				return err
			}
			fd.IDs = ids
		}
		return nil
	})
	return fd, err
}

// EntityFieldData: number=1 (submsg value=1 double), category=2 (submsg
// value=1 varint), feeler=3. Scalars sit in wrapper messages so zero values
// keep presence.
func appendEntityFieldData(ef EntityFieldData) []byte {
	var body []byte
	switch {
	case ef.Number != nil:
		body = putMsg(body, 1, putFloat64(nil, 1, *ef.Number))
	case ef.Category != nil:
		body = putMsg(body, 2, putVarint(nil, 1, uint64(uint32(*ef.Category))))
	case ef.Feeler != nil:
		body = putMsg(body, 3, appendFeelerData(*ef.Feeler))
	}
	return body
}

func parseEntityFieldData(b []byte) (EntityFieldData, error) {
	var ef EntityFieldData
	err := walkFields(b, func(f field) error {
		switch f.num {
		case 1:
			var v float64
			if err := walkFields(f.bytes, func(inner field) error {
				if inner.num == 1 {
					v = inner.f64()
				}
				return nil
			}); err != nil {
				return err
			}
			ef.Number = &v
		case 2:
			var v int32
			if err := walkFields(f.bytes, func(inner field) error {
				if inner.num == 1 {
					v = inner.i32()
				}
				return nil
			}); err != nil {
				return err
			}
			ef.Category = &v
		case 3:
			fd, err := parseFeelerData(f.bytes)
			if err != nil {
				return err
			}
			ef.Feeler = &fd
		}
		return nil
	})
	return ef, err
}

// EntityData: position=1, rotation=2, fields=3
func appendEntityData(e EntityData) []byte {
	var body []byte
	if e.Position != nil {
		body = putMsg(body, 1, appendVec3(*e.Position))
	}
	if e.Rotation != nil {
		body = putMsg(body, 2, appendQuat(*e.Rotation))
	}
	for _, ef := range e.Fields {
		body = putMsg(body, 3, appendEntityFieldData(ef))
	}
	return body
}

func parseEntityData(b []byte) (EntityData, error) {
	var e EntityData
	err := walkFields(b, func(f field) error {
		switch f.num {
		case 1:
			v, err := parseVec3(f.bytes)
			if err != nil {
				return err
			}
			e.Position = &v
		case 2:
			q, err := parseQuat(f.bytes)
			if err != nil {
				return err
			}
			e.Rotation = &q
		case 3:
			ef, err := parseEntityFieldData(f.bytes)
			if err != nil {
				return err
			}
			e.Fields = append(e.Fields, ef)
		}
		return nil
	})
	return e, err
}

// ObservationData: player=1, camera=2, global_entities=3
func appendObservationData(o ObservationData) []byte {
	var body []byte
	if o.Player != nil {
		body = putMsg(body, 1, appendEntityData(*o.Player))
	}
	if o.Camera != nil {
		body = putMsg(body, 2, appendEntityData(*o.Camera))
	}
	for _, g := range o.GlobalEntities {
		body = putMsg(body, 3, appendEntityData(g))
	}
	return body
}

func parseObservationData(b []byte) (ObservationData, error) {
	var o ObservationData
	err := walkFields(b, func(f field) error {
		switch f.num {
		case 1:
			e, err := parseEntityData(f.bytes)
			if err != nil {
				return err
			}
			o.Player = &e
		case 2:
			e, err := parseEntityData(f.bytes)
			if err != nil {
				return err
			}
			o.Camera = &e
		case 3:
			e, err := parseEntityData(f.bytes)
			if err != nil {
				return err
			}
			o.GlobalEntities = append(o.GlobalEntities, e)
		}
		return nil
	})
	return o, err
}

// JoystickData: x=1, y=2
func appendJoystickData(j JoystickData) []byte {
	var body []byte
	body = putFloat32(body, 1, j.X)
	body = putFloat32(body, 2, j.Y)
	return body
}

func parseJoystickData(b []byte) (JoystickData, error) {
	var j JoystickData
	err := walkFields(b, func(f field) error {
		switch f.num {
		case 1:
			j.X = f.f32()
		case 2:
			j.Y = f.f32()
		}
		return nil
	})
	return j, err
}

// ActionData: number=1 (wrapper), category=2 (wrapper), joystick=3
func appendActionData(a ActionData) []byte {
	var body []byte
	switch {
	case a.Number != nil:
		body = putMsg(body, 1, putFloat64(nil, 1, *a.Number))
	case a.Category != nil:
		body = putMsg(body, 2, putVarint(nil, 1, uint64(uint32(*a.Category))))
	case a.Joystick != nil:
		body = putMsg(body, 3, appendJoystickData(*a.Joystick))
	}
	return body
}

func parseActionData(b []byte) (ActionData, error) {
	var a ActionData
	err := walkFields(b, func(f field) error {
		switch f.num {
		case 1:
			var v float64
			if err := walkFields(f.bytes, func(inner field) error {
				if inner.num == 1 {
					v = inner.f64()
				}
				return nil
			}); err != nil {
				return err
			}
			a.Number = &v
		case 2:
			var v int32
			if err := walkFields(f.bytes, func(inner field) error {
				if inner.num == 1 {
					v = inner.i32()
				}
				return nil
			}); err != nil {
				return err
			}
			a.Category = &v
		case 3:
			j, err := parseJoystickData(f.bytes)
			if err != nil {
				return err
			}
			a.Joystick = &j
		}
		return nil
	})
	return a, err
}

// ActionsData: source=1, actions=2
func appendActionsData(a ActionsData) []byte {
	var body []byte
	body = putVarint(body, 1, uint64(a.Source))
	for _, act := range a.Actions {
		body = putMsg(body, 2, appendActionData(act))
	}
	return body
}

func parseActionsData(b []byte) (ActionsData, error) {
	var a ActionsData
	err := walkFields(b, func(f field) error {
		switch f.num {
		case 1:
			a.Source = ActionSource(f.i32())
		case 2:
			act, err := parseActionData(f.bytes)
			if err != nil {
				return err
			}
			a.Actions = append(a.Actions, act)
		}
		return nil
	})
	return a, err
}

// Step: observation=1, actions=2, reward=3 (submsg reward_value=1 float),
// timestamp_millis=4
func appendStep(s Step) []byte {
	var body []byte
	body = putMsg(body, 1, appendObservationData(s.Observation))
	body = putMsg(body, 2, appendActionsData(s.Actions))
	if s.Reward != nil {
		body = putMsg(body, 3, putFloat32(nil, 1, *s.Reward))
	}
	body = putVarint(body, 4, uint64(s.TimestampMillis))
	return body
}

func parseStep(b []byte) (Step, error) {
	var s Step
	err := walkFields(b, func(f field) error {
		switch f.num {
		case 1:
			o, err := parseObservationData(f.bytes)
			if err != nil {
				return err
			}
			s.Observation = o
		case 2:
			a, err := parseActionsData(f.bytes)
			if err != nil {
				return err
			}
			s.Actions = a
		case 3:
			var v float32
			if err := walkFields(f.bytes, func(inner field) error {
				if inner.num == 1 {
					v = inner.f32()
				}
				return nil
			}); err != nil {
				return err
			}
			s.Reward = &v
		case 4:
			s.TimestampMillis = f.i64()
		}
		return nil
	})
	return s, err
}

// Chunk: episode_id=1, chunk_id=2, model_id=3, steps=4, episode_state=5
func appendChunk(c Chunk) []byte {
	var body []byte
	body = putString(body, 1, c.EpisodeID)
	body = putVarint(body, 2, uint64(uint32(c.ChunkID)))
	body = putString(body, 3, c.ModelID)
	for _, s := range c.Steps {
		body = putMsg(body, 4, appendStep(s))
	}
	body = putVarint(body, 5, uint64(c.State))
	return body
}

func parseChunk(b []byte) (Chunk, error) {
	var c Chunk
	err := walkFields(b, func(f field) error {
		switch f.num {
		case 1:
			c.EpisodeID = f.str()
		case 2:
			c.ChunkID = f.i32()
		case 3:
			c.ModelID = f.str()
		case 4:
			s, err := parseStep(f.bytes)
			if err != nil {
				return err
			}
			c.Steps = append(c.Steps, s)
		case 5:
			c.State = EpisodeState(f.i32())
		}
		return nil
	})
	return c, err
}

func (c *Chunk) appendWire(b []byte) []byte { return append(b, appendChunk(*c)...) }
func (c *Chunk) unmarshalWire(b []byte) error {
	v, err := parseChunk(b)
	if err != nil {
		return err
	}
	*c = v
	return nil
}

// #endregion data-codec

// #region resource-codec
// Brain: project_id=1, brain_id=2, display_name=3, spec=4,
// create_time_millis=5
func (br *Brain) appendWire(b []byte) []byte {
	b = putString(b, 1, br.ProjectID)
	b = putString(b, 2, br.BrainID)
	b = putString(b, 3, br.DisplayName)
	b = putMsg(b, 4, appendBrainSpec(br.Spec))
	b = putVarint(b, 5, uint64(br.CreateTimeMillis))
	return b
}

func (br *Brain) unmarshalWire(b []byte) error {
	return walkFields(b, func(f field) error {
		switch f.num {
		case 1:
			br.ProjectID = f.str()
		case 2:
			br.BrainID = f.str()
		case 3:
			br.DisplayName = f.str()
		case 4:
			s, err := parseBrainSpec(f.bytes)
			if err != nil {
				return err
			}
			br.Spec = s
		case 5:
			br.CreateTimeMillis = f.i64()
		}
		return nil
	})
}

// Session: project_id=1, brain_id=2, session_id=3, type=4,
// starting_snapshot_id=5, create_time_millis=6
func (s *Session) appendWire(b []byte) []byte {
	b = putString(b, 1, s.ProjectID)
	b = putString(b, 2, s.BrainID)
	b = putString(b, 3, s.SessionID)
	b = putVarint(b, 4, uint64(s.Type))
	b = putString(b, 5, s.StartingSnapshotID)
	b = putVarint(b, 6, uint64(s.CreateTimeMillis))
	return b
}

func (s *Session) unmarshalWire(b []byte) error {
	return walkFields(b, func(f field) error {
		switch f.num {
		case 1:
			s.ProjectID = f.str()
		case 2:
			s.BrainID = f.str()
		case 3:
			s.SessionID = f.str()
		case 4:
			s.Type = SessionType(f.i32())
		case 5:
			s.StartingSnapshotID = f.str()
		case 6:
			s.CreateTimeMillis = f.i64()
		}
		return nil
	})
}

// SessionInfo: state=1, progress=2, model_id=3
func appendSessionInfo(i SessionInfo) []byte {
	var body []byte
	body = putVarint(body, 1, uint64(i.State))
	body = putFloat32(body, 2, i.Progress)
	body = putString(body, 3, i.ModelID)
	return body
}

func parseSessionInfo(b []byte) (SessionInfo, error) {
	var i SessionInfo
	err := walkFields(b, func(f field) error {
		switch f.num {
		case 1:
			i.State = TrainingState(f.i32())
		case 2:
			i.Progress = f.f32()
		case 3:
			i.ModelID = f.str()
		}
		return nil
	})
	return i, err
}

// ModelFile: path=1, data=2
func appendModelFile(mf ModelFile) []byte {
	var body []byte
	body = putString(body, 1, mf.Path)
	body = putBytes(body, 2, mf.Data)
	return body
}

func parseModelFile(b []byte) (ModelFile, error) {
	var mf ModelFile
	err := walkFields(b, func(f field) error {
		switch f.num {
		case 1:
			mf.Path = f.str()
		case 2:
			mf.Data = append([]byte(nil), f.bytes...)
		}
		return nil
	})
	return mf, err
}

// Model: model_id=1, files=2
func (m *Model) appendWire(b []byte) []byte {
	b = putString(b, 1, m.ModelID)
	for _, mf := range m.Files {
		b = putMsg(b, 2, appendModelFile(mf))
	}
	return b
}

func (m *Model) unmarshalWire(b []byte) error {
	return walkFields(b, func(f field) error {
		switch f.num {
		case 1:
			m.ModelID = f.str()
		case 2:
			mf, err := parseModelFile(f.bytes)
			if err != nil {
				return err
			}
			m.Files = append(m.Files, mf)
		}
		return nil
	})
}

// #endregion resource-codec

// #region rpc-codec
func (r *CreateBrainRequest) appendWire(b []byte) []byte {
	b = putString(b, 1, r.ProjectID)
	b = putString(b, 2, r.DisplayName)
	b = putMsg(b, 3, appendBrainSpec(r.Spec))
	return b
}

func (r *CreateBrainRequest) unmarshalWire(b []byte) error {
	return walkFields(b, func(f field) error {
		switch f.num {
		case 1:
			r.ProjectID = f.str()
		case 2:
			r.DisplayName = f.str()
		case 3:
			s, err := parseBrainSpec(f.bytes)
			if err != nil {
				return err
			}
			r.Spec = s
		}
		return nil
	})
}

func (r *GetBrainRequest) appendWire(b []byte) []byte {
	b = putString(b, 1, r.ProjectID)
	b = putString(b, 2, r.BrainID)
	return b
}

func (r *GetBrainRequest) unmarshalWire(b []byte) error {
	return walkFields(b, func(f field) error {
		switch f.num {
		case 1:
			r.ProjectID = f.str()
		case 2:
			r.BrainID = f.str()
		}
		return nil
	})
}

func (r *ListBrainsRequest) appendWire(b []byte) []byte {
	b = putString(b, 1, r.ProjectID)
	b = putVarint(b, 2, uint64(uint32(r.PageSize)))
	b = putString(b, 3, r.PageToken)
	return b
}

func (r *ListBrainsRequest) unmarshalWire(b []byte) error {
	return walkFields(b, func(f field) error {
		switch f.num {
		case 1:
			r.ProjectID = f.str()
		case 2:
			r.PageSize = f.i32()
		case 3:
			r.PageToken = f.str()
		}
		return nil
	})
}

func (r *ListBrainsResponse) appendWire(b []byte) []byte {
	for i := range r.Brains {
		b = putMsg(b, 1, r.Brains[i].appendWire(nil))
	}
	b = putString(b, 2, r.NextPageToken)
	return b
}

func (r *ListBrainsResponse) unmarshalWire(b []byte) error {
	return walkFields(b, func(f field) error {
		switch f.num {
		case 1:
			var br Brain
			if err := br.unmarshalWire(f.bytes); err != nil {
				return err
			}
			r.Brains = append(r.Brains, br)
		case 2:
			r.NextPageToken = f.str()
		}
		return nil
	})
}

func (r *CreateSessionRequest) appendWire(b []byte) []byte {
	b = putString(b, 1, r.ProjectID)
	b = putString(b, 2, r.BrainID)
	b = putVarint(b, 3, uint64(r.Type))
	b = putString(b, 4, r.StartingSnapshotID)
	return b
}

func (r *CreateSessionRequest) unmarshalWire(b []byte) error {
	return walkFields(b, func(f field) error {
		switch f.num {
		case 1:
			r.ProjectID = f.str()
		case 2:
			r.BrainID = f.str()
		case 3:
			r.Type = SessionType(f.i32())
		case 4:
			r.StartingSnapshotID = f.str()
		}
		return nil
	})
}

func (r *GetSessionRequest) appendWire(b []byte) []byte {
	b = putString(b, 1, r.ProjectID)
	b = putString(b, 2, r.BrainID)
	b = putString(b, 3, r.SessionID)
	return b
}

func (r *GetSessionRequest) unmarshalWire(b []byte) error {
	return walkFields(b, func(f field) error {
		switch f.num {
		case 1:
			r.ProjectID = f.str()
		case 2:
			r.BrainID = f.str()
		case 3:
			r.SessionID = f.str()
		}
		return nil
	})
}

func (r *GetSessionByIndexRequest) appendWire(b []byte) []byte {
	b = putString(b, 1, r.ProjectID)
	b = putString(b, 2, r.BrainID)
	b = putVarint(b, 3, uint64(uint32(r.Index)))
	return b
}

func (r *GetSessionByIndexRequest) unmarshalWire(b []byte) error {
	return walkFields(b, func(f field) error {
		switch f.num {
		case 1:
			r.ProjectID = f.str()
		case 2:
			r.BrainID = f.str()
		case 3:
			r.Index = f.i32()
		}
		return nil
	})
}

func (r *ListSessionsRequest) appendWire(b []byte) []byte {
	b = putString(b, 1, r.ProjectID)
	b = putString(b, 2, r.BrainID)
	b = putVarint(b, 3, uint64(uint32(r.PageSize)))
	b = putString(b, 4, r.PageToken)
	return b
}

func (r *ListSessionsRequest) unmarshalWire(b []byte) error {
	return walkFields(b, func(f field) error {
		switch f.num {
		case 1:
			r.ProjectID = f.str()
		case 2:
			r.BrainID = f.str()
		case 3:
			r.PageSize = f.i32()
		case 4:
			r.PageToken = f.str()
		}
		return nil
	})
}

func (r *ListSessionsResponse) appendWire(b []byte) []byte {
	for i := range r.Sessions {
		b = putMsg(b, 1, r.Sessions[i].appendWire(nil))
	}
	b = putString(b, 2, r.NextPageToken)
	return b
}

func (r *ListSessionsResponse) unmarshalWire(b []byte) error {
	return walkFields(b, func(f field) error {
		switch f.num {
		case 1:
			var s Session
			if err := s.unmarshalWire(f.bytes); err != nil {
				return err
			}
			r.Sessions = append(r.Sessions, s)
		case 2:
			r.NextPageToken = f.str()
		}
		return nil
	})
}

func (r *GetSessionCountRequest) appendWire(b []byte) []byte {
	b = putString(b, 1, r.ProjectID)
	b = putString(b, 2, r.BrainID)
	return b
}

func (r *GetSessionCountRequest) unmarshalWire(b []byte) error {
	return walkFields(b, func(f field) error {
		switch f.num {
		case 1:
			r.ProjectID = f.str()
		case 2:
			r.BrainID = f.str()
		}
		return nil
	})
}

func (r *GetSessionCountResponse) appendWire(b []byte) []byte {
	return putVarint(b, 1, uint64(r.Count))
}

func (r *GetSessionCountResponse) unmarshalWire(b []byte) error {
	return walkFields(b, func(f field) error {
		if f.num == 1 {
			r.Count = f.i64()
		}
		return nil
	})
}

func (r *ListEpisodeChunksRequest) appendWire(b []byte) []byte {
	b = putString(b, 1, r.ProjectID)
	b = putString(b, 2, r.BrainID)
	b = putString(b, 3, r.SessionID)
	b = putString(b, 4, r.EpisodeID)
	b = putVarint(b, 5, uint64(uint32(r.PageSize)))
	b = putString(b, 6, r.PageToken)
	return b
}

func (r *ListEpisodeChunksRequest) unmarshalWire(b []byte) error {
	return walkFields(b, func(f field) error {
		switch f.num {
		case 1:
			r.ProjectID = f.str()
		case 2:
			r.BrainID = f.str()
		case 3:
			r.SessionID = f.str()
		case 4:
			r.EpisodeID = f.str()
		case 5:
			r.PageSize = f.i32()
		case 6:
			r.PageToken = f.str()
		}
		return nil
	})
}

func (r *ListEpisodeChunksResponse) appendWire(b []byte) []byte {
	for i := range r.Chunks {
		b = putMsg(b, 1, appendChunk(r.Chunks[i]))
	}
	b = putString(b, 2, r.NextPageToken)
	return b
}

func (r *ListEpisodeChunksResponse) unmarshalWire(b []byte) error {
	return walkFields(b, func(f field) error {
		switch f.num {
		case 1:
			c, err := parseChunk(f.bytes)
			if err != nil {
				return err
			}
			r.Chunks = append(r.Chunks, c)
		case 2:
			r.NextPageToken = f.str()
		}
		return nil
	})
}

func (r *SubmitEpisodeChunksRequest) appendWire(b []byte) []byte {
	b = putString(b, 1, r.ProjectID)
	b = putString(b, 2, r.BrainID)
	b = putString(b, 3, r.SessionID)
	for i := range r.Chunks {
		b = putMsg(b, 4, appendChunk(r.Chunks[i]))
	}
	return b
}

func (r *SubmitEpisodeChunksRequest) unmarshalWire(b []byte) error {
	return walkFields(b, func(f field) error {
		switch f.num {
		case 1:
			r.ProjectID = f.str()
		case 2:
			r.BrainID = f.str()
		case 3:
			r.SessionID = f.str()
		case 4:
			c, err := parseChunk(f.bytes)
			if err != nil {
				return err
			}
			r.Chunks = append(r.Chunks, c)
		}
		return nil
	})
}

func (r *SubmitEpisodeChunksResponse) appendWire(b []byte) []byte {
	return putMsg(b, 1, appendSessionInfo(r.Info))
}

func (r *SubmitEpisodeChunksResponse) unmarshalWire(b []byte) error {
	return walkFields(b, func(f field) error {
		if f.num == 1 {
			i, err := parseSessionInfo(f.bytes)
			if err != nil {
				return err
			}
			r.Info = i
		}
		return nil
	})
}

func (r *GetModelRequest) appendWire(b []byte) []byte {
	b = putString(b, 1, r.ProjectID)
	b = putString(b, 2, r.BrainID)
	b = putString(b, 3, r.ModelID)
	b = putString(b, 4, r.SnapshotID)
	return b
}

func (r *GetModelRequest) unmarshalWire(b []byte) error {
	return walkFields(b, func(f field) error {
		switch f.num {
		case 1:
			r.ProjectID = f.str()
		case 2:
			r.BrainID = f.str()
		case 3:
			r.ModelID = f.str()
		case 4:
			r.SnapshotID = f.str()
		}
		return nil
	})
}

func (r *GetModelResponse) appendWire(b []byte) []byte {
	return putMsg(b, 1, r.Model.appendWire(nil))
}

func (r *GetModelResponse) unmarshalWire(b []byte) error {
	return walkFields(b, func(f field) error {
		if f.num == 1 {
			return r.Model.unmarshalWire(f.bytes)
		}
		return nil
	})
}

func (r *StopSessionRequest) appendWire(b []byte) []byte {
	b = putString(b, 1, r.ProjectID)
	b = putString(b, 2, r.BrainID)
	b = putString(b, 3, r.SessionID)
	return b
}

func (r *StopSessionRequest) unmarshalWire(b []byte) error {
	return walkFields(b, func(f field) error {
		switch f.num {
		case 1:
			r.ProjectID = f.str()
		case 2:
			r.BrainID = f.str()
		case 3:
			r.SessionID = f.str()
		}
		return nil
	})
}

func (r *StopSessionResponse) appendWire(b []byte) []byte {
	return putString(b, 1, r.SnapshotID)
}

func (r *StopSessionResponse) unmarshalWire(b []byte) error {
	return walkFields(b, func(f field) error {
		if f.num == 1 {
			r.SnapshotID = f.str()
		}
		return nil
	})
}

// #endregion rpc-codec
