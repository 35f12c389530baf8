// Package tensor wraps inference engines behind one engine-neutral surface:
// load a model directory, derive its tensor signature, prepare a fixed call
// plan binding schema paths to tensors, and run inference. When several
// engines are enabled their signatures must agree and their outputs are
// compared for drift at run time.
package tensor

import (
	"errors"
	"fmt"
)

// ErrInference marks a runtime failure from an engine.
var ErrInference = errors.New("inference failed")

// #region dtypes
// DType is the finite set of tensor element types.
type DType int

const (
	DTypeInvalid DType = iota
	Float32
	Int32
)

// String returns the lowercase dtype name.
func (d DType) String() string {
	switch d {
	case Float32:
		return "float32"
	case Int32:
		return "int32"
	default:
		return "invalid"
	}
}

// #endregion dtypes

// #region specs
// Spec describes one named tensor: its schema path, dtype, and shape.
// Shape entries of -1 are unknown dimensions that match anything.
type Spec struct {
	Name  string
	DType DType
	Shape []int
}

// Signature is the ordered tensor interface of a loaded graph.
type Signature struct {
	Inputs  []Spec
	Outputs []Spec
}

// Find returns the spec with the given name from a list, nil if absent.
func Find(specs []Spec, name string) *Spec {
	for i := range specs {
		if specs[i].Name == name {
			return &specs[i]
		}
	}
	return nil
}

// #endregion specs

// #region tensors
// Tensor is a named value buffer. Exactly one of Floats/Ints is populated,
// matching DType.
type Tensor struct {
	Name   string
	DType  DType
	Shape  []int
	Floats []float32
	Ints   []int32
}

// NewTensor allocates a zeroed tensor for a spec. Unknown dimensions are
// materialized as 1.
func NewTensor(s Spec) Tensor {
	shape := make([]int, len(s.Shape))
	n := 1
	for i, d := range s.Shape {
		if d < 0 {
			d = 1
		}
		shape[i] = d
		n *= d
	}
	t := Tensor{Name: s.Name, DType: s.DType, Shape: shape}
	switch s.DType {
	case Float32:
		t.Floats = make([]float32, n)
	case Int32:
		t.Ints = make([]int32, n)
	case DTypeInvalid:
	}
	return t
}

// Len returns the element count.
func (t Tensor) Len() int {
	n := 1
	for _, d := range t.Shape {
		n *= d
	}
	return n
}

// #endregion tensors

// #region shape-compat
// compressShape drops unit dimensions so [1, 2, 1, 3] compares equal to
// [2, 3]. Unknown dimensions survive compression.
func compressShape(shape []int) []int {
	out := make([]int, 0, len(shape))
	for _, d := range shape {
		if d != 1 {
			out = append(out, d)
		}
	}
	return out
}

// ShapesCompatible reports whether two shapes match after unit-dimension
// compression, treating -1 as a wildcard on either side.
func ShapesCompatible(a, b []int) bool {
	ca, cb := compressShape(a), compressShape(b)
	if len(ca) != len(cb) {
		return false
	}
	for i := range ca {
		if ca[i] != cb[i] && ca[i] != -1 && cb[i] != -1 {
			return false
		}
	}
	return true
}

// CheckCompatible verifies that a requested spec can bind to a signature
// spec of the same name.
func CheckCompatible(want, have Spec) error {
	if want.DType != have.DType {
		return fmt.Errorf("tensor %s: dtype %s requested, graph has %s",
			want.Name, want.DType, have.DType)
	}
	if !ShapesCompatible(want.Shape, have.Shape) {
		return fmt.Errorf("tensor %s: shape %v requested, graph has %v",
			want.Name, want.Shape, have.Shape)
	}
	return nil
}

// #endregion shape-compat
