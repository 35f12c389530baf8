package model

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google-research/falken-go/brain"
	"github.com/google-research/falken-go/internal/tensor"
	"github.com/google-research/falken-go/internal/wire"
)

func testSpec(t *testing.T) *brain.Spec {
	t.Helper()
	speed, _ := brain.Float("speed", 0, 10)
	player, err := brain.NewEntity(brain.PlayerEntityName, speed)
	if err != nil {
		t.Fatalf("NewEntity: %v", err)
	}
	obs := brain.NewObservations()
	obs.Attach(player)
	throttle, _ := brain.Float("throttle", -1, 1)
	actions := brain.NewActions()
	actions.Add(throttle)
	return brain.NewSpec(obs, actions)
}

// testBundle builds a one-example tabular bundle matching testSpec.
func testBundle(t *testing.T, spec *brain.Spec, throttle float32) wire.Model {
	t.Helper()
	sig := tensor.Signature{
		Inputs:  tensor.InputSpecs(spec),
		Outputs: tensor.OutputSpecs(spec),
	}
	sb, err := tensor.EncodeSignatureFile(sig)
	if err != nil {
		t.Fatalf("EncodeSignatureFile: %v", err)
	}
	keyWidth := 0
	for _, s := range sig.Inputs {
		switch s.Name {
		case tensor.RewardInput, tensor.StepTypeInput, tensor.DiscountInput:
			continue
		}
		n := 1
		for _, d := range s.Shape {
			n *= d
		}
		keyWidth += n
	}
	eb, err := tensor.EncodeExamplesFile([]tensor.ExampleRow{{
		Key: make([]float32, keyWidth),
		Outputs: []tensor.ExampleOutput{
			{Name: "action/throttle", Floats: []float32{throttle}},
		},
	}})
	if err != nil {
		t.Fatalf("EncodeExamplesFile: %v", err)
	}
	return wire.Model{
		ModelID: "models/m1",
		Files: []wire.ModelFile{
			{Path: tensor.SignatureFile, Data: sb},
			{Path: tensor.ExamplesFile, Data: eb},
		},
	}
}

func newTestLoader(t *testing.T) *Loader {
	t.Helper()
	facade, err := tensor.NewFacade(tensor.KNNEngine{})
	if err != nil {
		t.Fatalf("NewFacade: %v", err)
	}
	l, err := NewLoader(t.TempDir(), facade)
	if err != nil {
		t.Fatalf("NewLoader: %v", err)
	}
	return l
}

func TestLoadAndRun(t *testing.T) {
	spec := testSpec(t)
	l := newTestLoader(t)
	m, err := l.Load(testBundle(t, spec, 0.5), spec)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	defer m.Release()

	if m.ID() != "models/m1" {
		t.Fatalf("ID = %q", m.ID())
	}
	spec.Observations().Player().Field("speed").SetNumber(3)
	if err := m.Run(spec); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := spec.Actions().Get("throttle").Number(); got != 0.5 {
		t.Fatalf("throttle = %g, want 0.5", got)
	}
}

func TestReleaseDeletesScratch(t *testing.T) {
	spec := testSpec(t)
	facade, _ := tensor.NewFacade(tensor.KNNEngine{})
	scratch := t.TempDir()
	l, err := NewLoader(scratch, facade)
	if err != nil {
		t.Fatalf("NewLoader: %v", err)
	}
	m, err := l.Load(testBundle(t, spec, 0), spec)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	entries, err := os.ReadDir(scratch)
	if err != nil || len(entries) != 1 {
		t.Fatalf("expected one scratch dir, got %d (%v)", len(entries), err)
	}
	dir := filepath.Join(scratch, entries[0].Name())

	if !m.Acquire() {
		t.Fatal("Acquire on live handle failed")
	}
	m.Release()
	if _, err := os.Stat(dir); err != nil {
		t.Fatalf("scratch removed while a reference remains: %v", err)
	}
	m.Release()
	if _, err := os.Stat(dir); !os.IsNotExist(err) {
		t.Fatalf("scratch dir survived last release: %v", err)
	}
	if m.Acquire() {
		t.Fatal("Acquire succeeded on a closed handle")
	}
}

func TestLoadRejectsBadBundles(t *testing.T) {
	spec := testSpec(t)
	l := newTestLoader(t)

	_, err := l.Load(wire.Model{ModelID: "models/empty"}, spec)
	if !errors.Is(err, ErrLoad) {
		t.Fatalf("empty bundle: %v", err)
	}

	m := testBundle(t, spec, 0)
	m.Files[0].Path = "../escape.json"
	if _, err := l.Load(m, spec); !errors.Is(err, ErrLoad) {
		t.Fatalf("traversal path: %v", err)
	}
}

func TestLoadRejectsSignatureMismatch(t *testing.T) {
	spec := testSpec(t)
	l := newTestLoader(t)
	bundle := testBundle(t, spec, 0)

	// Ask for a spec with an extra action the bundle does not provide.
	other := testSpec(t)
	jump, _ := brain.Bool("jump")
	other.Actions().Add(jump)

	if _, err := l.Load(bundle, other); !errors.Is(err, ErrLoad) {
		t.Fatalf("expected ErrLoad for mismatched spec, got %v", err)
	}
}
