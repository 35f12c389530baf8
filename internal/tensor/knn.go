package tensor

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// The built-in engine for the service's tabular policy bundles: a model is
// a tensor signature plus a table of (flattened observation key, action
// outputs) examples, and inference returns the outputs of the nearest key
// by squared L2 distance. Auxiliary inputs are excluded from the key.

// #region bundle-format
const (
	// SignatureFile and ExamplesFile are the two files of a policy bundle.
	SignatureFile = "signature.json"
	ExamplesFile  = "examples.json"
)

type sigFileSpec struct {
	Name  string `json:"name"`
	DType string `json:"dtype"`
	Shape []int  `json:"shape"`
}

type sigFile struct {
	Inputs  []sigFileSpec `json:"inputs"`
	Outputs []sigFileSpec `json:"outputs"`
}

// ExampleOutput is one output tensor's values for a training example.
type ExampleOutput struct {
	Name   string    `json:"name"`
	Floats []float32 `json:"floats,omitempty"`
	Ints   []int32   `json:"ints,omitempty"`
}

// ExampleRow is one training example: the flattened observation key and the
// action outputs recorded for it.
type ExampleRow struct {
	Key     []float32       `json:"key"`
	Outputs []ExampleOutput `json:"outputs"`
}

type examplesFile struct {
	Examples []ExampleRow `json:"examples"`
}

// EncodeSignatureFile serializes a signature for inclusion in a bundle.
// The fake service's trainer uses this to produce bundles this engine can
// load.
func EncodeSignatureFile(sig Signature) ([]byte, error) {
	var f sigFile
	for _, s := range sig.Inputs {
		f.Inputs = append(f.Inputs, sigFileSpec{Name: s.Name, DType: s.DType.String(), Shape: s.Shape})
	}
	for _, s := range sig.Outputs {
		f.Outputs = append(f.Outputs, sigFileSpec{Name: s.Name, DType: s.DType.String(), Shape: s.Shape})
	}
	return json.MarshalIndent(f, "", "  ")
}

// EncodeExamplesFile serializes the example table for a bundle.
func EncodeExamplesFile(rows []ExampleRow) ([]byte, error) {
	return json.MarshalIndent(examplesFile{Examples: rows}, "", "  ")
}

func parseDType(s string) (DType, error) {
	switch s {
	case "float32":
		return Float32, nil
	case "int32":
		return Int32, nil
	default:
		return DTypeInvalid, fmt.Errorf("unknown dtype %q", s)
	}
}

// #endregion bundle-format

// #region engine
// KNNEngine loads tabular policy bundles.
type KNNEngine struct{}

// Name returns the engine identifier.
func (KNNEngine) Name() string { return "knn" }

// Load reads a bundle directory.
func (KNNEngine) Load(dir string) (Graph, error) {
	sigBytes, err := os.ReadFile(filepath.Join(dir, SignatureFile))
	if err != nil {
		return nil, fmt.Errorf("read signature: %w", err)
	}
	var sf sigFile
	if err := json.Unmarshal(sigBytes, &sf); err != nil {
		return nil, fmt.Errorf("parse signature: %w", err)
	}
	var sig Signature
	for _, s := range sf.Inputs {
		dt, err := parseDType(s.DType)
		if err != nil {
			return nil, fmt.Errorf("input %s: %w", s.Name, err)
		}
		sig.Inputs = append(sig.Inputs, Spec{Name: s.Name, DType: dt, Shape: s.Shape})
	}
	for _, s := range sf.Outputs {
		dt, err := parseDType(s.DType)
		if err != nil {
			return nil, fmt.Errorf("output %s: %w", s.Name, err)
		}
		sig.Outputs = append(sig.Outputs, Spec{Name: s.Name, DType: dt, Shape: s.Shape})
	}

	exBytes, err := os.ReadFile(filepath.Join(dir, ExamplesFile))
	if err != nil {
		return nil, fmt.Errorf("read examples: %w", err)
	}
	var ef examplesFile
	if err := json.Unmarshal(exBytes, &ef); err != nil {
		return nil, fmt.Errorf("parse examples: %w", err)
	}
	if len(ef.Examples) == 0 {
		return nil, fmt.Errorf("bundle %s has no examples", dir)
	}
	return &knnGraph{sig: sig, rows: ef.Examples}, nil
}

// #endregion engine

// #region graph
type knnGraph struct {
	sig  Signature
	rows []ExampleRow
}

func (g *knnGraph) Signature() Signature { return g.sig }

func (g *knnGraph) Close() error { return nil }

// Run flattens the non-auxiliary inputs into a key, finds the nearest
// example row, and copies its outputs into the caller's tensors by name.
func (g *knnGraph) Run(inputs []Tensor, outputs []Tensor) error {
	key := flattenKey(inputs)
	best := -1
	bestDist := float32(0)
	for i, row := range g.rows {
		if len(row.Key) != len(key) {
			return fmt.Errorf("example %d key width %d, query width %d", i, len(row.Key), len(key))
		}
		var d float32
		for j := range key {
			diff := key[j] - row.Key[j]
			d += diff * diff
		}
		if best < 0 || d < bestDist {
			best, bestDist = i, d
		}
	}
	row := g.rows[best]
	for i := range outputs {
		t := &outputs[i]
		var src *ExampleOutput
		for j := range row.Outputs {
			if row.Outputs[j].Name == t.Name {
				src = &row.Outputs[j]
				break
			}
		}
		if src == nil {
			return fmt.Errorf("example %d has no output %s", best, t.Name)
		}
		switch t.DType {
		case Float32:
			if len(src.Floats) != len(t.Floats) {
				return fmt.Errorf("output %s has %d values, tensor wants %d", t.Name, len(src.Floats), len(t.Floats))
			}
			copy(t.Floats, src.Floats)
		case Int32:
			if len(src.Ints) != len(t.Ints) {
				return fmt.Errorf("output %s has %d values, tensor wants %d", t.Name, len(src.Ints), len(t.Ints))
			}
			copy(t.Ints, src.Ints)
		case DTypeInvalid:
			return fmt.Errorf("output %s has invalid dtype", t.Name)
		}
	}
	return nil
}

// FlattenKey builds the observation key from input tensors, skipping the
// auxiliary inputs. Exported so the trainer builds keys the same way.
func FlattenKey(inputs []Tensor) []float32 { return flattenKey(inputs) }

func flattenKey(inputs []Tensor) []float32 {
	var key []float32
	for _, t := range inputs {
		switch t.Name {
		case RewardInput, StepTypeInput, DiscountInput:
			continue
		}
		key = append(key, t.Floats...)
		for _, v := range t.Ints {
			key = append(key, float32(v))
		}
	}
	return key
}

// #endregion graph
