package tensor

import (
	"fmt"
	"log"
	"math"
	"reflect"
)

// #region engine-contract
// Graph is one engine's loaded model. Run receives the caller's tensors in
// the order fixed at Prepare time; tensors carry their schema-path names so
// engines resolve bindings by name.
type Graph interface {
	Signature() Signature
	Run(inputs []Tensor, outputs []Tensor) error
	Close() error
}

// Engine opens model directories for one backend.
type Engine interface {
	Name() string
	Load(dir string) (Graph, error)
}

// #endregion engine-contract

// #region facade
// Facade fans one load across every enabled engine. With a single engine it
// is a pass-through; with several, signatures must agree at load time and
// outputs are compared for drift at run time.
type Facade struct {
	engines []Engine
}

// NewFacade builds a facade over the given engines; at least one is
// required.
func NewFacade(engines ...Engine) (*Facade, error) {
	if len(engines) == 0 {
		return nil, fmt.Errorf("no inference engines enabled")
	}
	return &Facade{engines: engines}, nil
}

// Load opens a model directory with every engine and verifies the
// signatures agree.
func (f *Facade) Load(dir string) (*Loaded, error) {
	var graphs []Graph
	for _, e := range f.engines {
		g, err := e.Load(dir)
		if err != nil {
			for _, prev := range graphs {
				prev.Close()
			}
			return nil, fmt.Errorf("engine %s: load %s: %w", e.Name(), dir, err)
		}
		graphs = append(graphs, g)
	}
	sig := graphs[0].Signature()
	for i := 1; i < len(graphs); i++ {
		if !reflect.DeepEqual(sig, graphs[i].Signature()) {
			names := fmt.Sprintf("%s vs %s", f.engines[0].Name(), f.engines[i].Name())
			for _, g := range graphs {
				g.Close()
			}
			return nil, fmt.Errorf("engine signatures disagree (%s) for %s", names, dir)
		}
	}
	return &Loaded{engines: f.engines, graphs: graphs, sig: sig}, nil
}

// #endregion facade

// #region loaded
// Loaded is a model opened by the facade, holding one graph per engine.
type Loaded struct {
	engines []Engine
	graphs  []Graph
	sig     Signature

	prepared   bool
	inputSpecs []Spec
	outSpecs   []Spec
}

// Signature returns the model's tensor interface.
func (l *Loaded) Signature() Signature { return l.sig }

// Prepare verifies every requested tensor exists in the signature with a
// compatible dtype and shape, and fixes the call order for Run.
func (l *Loaded) Prepare(inputs, outputs []Spec) error {
	for _, want := range inputs {
		have := Find(l.sig.Inputs, want.Name)
		if have == nil {
			return fmt.Errorf("input tensor %s not in model signature", want.Name)
		}
		if err := CheckCompatible(want, *have); err != nil {
			return err
		}
	}
	for _, want := range outputs {
		have := Find(l.sig.Outputs, want.Name)
		if have == nil {
			return fmt.Errorf("output tensor %s not in model signature", want.Name)
		}
		if err := CheckCompatible(want, *have); err != nil {
			return err
		}
	}
	l.inputSpecs = inputs
	l.outSpecs = outputs
	l.prepared = true
	return nil
}

// driftTolerance bounds the per-element divergence tolerated between
// engines before a drift report is logged.
const driftTolerance = 1e-4

// Run executes the prepared plan: the primary graph writes the caller's
// outputs; any additional graphs run on scratch outputs that are compared
// against the primary's for drift.
func (l *Loaded) Run(inputs []Tensor, outputs []Tensor) error {
	if !l.prepared {
		return fmt.Errorf("%w: Run before Prepare", ErrInference)
	}
	if len(inputs) != len(l.inputSpecs) || len(outputs) != len(l.outSpecs) {
		return fmt.Errorf("%w: got %d/%d tensors, prepared for %d/%d",
			ErrInference, len(inputs), len(outputs), len(l.inputSpecs), len(l.outSpecs))
	}
	if err := l.graphs[0].Run(inputs, outputs); err != nil {
		return fmt.Errorf("%w: engine %s: %v", ErrInference, l.engines[0].Name(), err)
	}
	for i := 1; i < len(l.graphs); i++ {
		scratch := make([]Tensor, len(l.outSpecs))
		for j, s := range l.outSpecs {
			scratch[j] = NewTensor(s)
		}
		if err := l.graphs[i].Run(inputs, scratch); err != nil {
			return fmt.Errorf("%w: engine %s: %v", ErrInference, l.engines[i].Name(), err)
		}
		reportDrift(l.engines[0].Name(), l.engines[i].Name(), outputs, scratch)
	}
	return nil
}

// Close releases every engine's graph.
func (l *Loaded) Close() error {
	var first error
	for _, g := range l.graphs {
		if err := g.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func reportDrift(primary, secondary string, a, b []Tensor) {
	for i := range a {
		for j := range a[i].Floats {
			if d := math.Abs(float64(a[i].Floats[j] - b[i].Floats[j])); d > driftTolerance {
				log.Printf("[TENSOR] drift on %s[%d]: %s=%g %s=%g",
					a[i].Name, j, primary, a[i].Floats[j], secondary, b[i].Floats[j])
			}
		}
		for j := range a[i].Ints {
			if a[i].Ints[j] != b[i].Ints[j] {
				log.Printf("[TENSOR] drift on %s[%d]: %s=%d %s=%d",
					a[i].Name, j, primary, a[i].Ints[j], secondary, b[i].Ints[j])
			}
		}
	}
}

// #endregion loaded
