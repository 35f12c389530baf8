// Package model unpacks service model bundles onto disk and turns them
// into runnable inference handles. Handles are reference counted so a
// session can swap to a newer model while episodes started on the old one
// keep using it until they finish.
package model

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google-research/falken-go/brain"
	"github.com/google-research/falken-go/internal/tensor"
	"github.com/google-research/falken-go/internal/wire"
)

// ErrLoad marks a failure to unpack or open a model bundle.
var ErrLoad = errors.New("model load failed")

// #region loader
// Loader unpacks bundles under a scratch directory and opens them through
// the tensor facade.
type Loader struct {
	scratch string
	facade  *tensor.Facade
}

// NewLoader returns a loader writing under scratch. The directory is
// created if missing.
func NewLoader(scratch string, facade *tensor.Facade) (*Loader, error) {
	if err := os.MkdirAll(scratch, 0o755); err != nil {
		return nil, fmt.Errorf("%w: scratch %s: %v", ErrLoad, scratch, err)
	}
	return &Loader{scratch: scratch, facade: facade}, nil
}

// Load unpacks the bundle into a fresh subdirectory, opens it with every
// enabled engine, and prepares the call plan for the given brain spec. The
// returned handle starts with one reference owned by the caller.
func (l *Loader) Load(m wire.Model, spec *brain.Spec) (*Model, error) {
	dir := filepath.Join(l.scratch, scratchName(m.ModelID))
	if _, err := os.Stat(dir); err == nil {
		return nil, fmt.Errorf("%w: scratch dir %s already exists", ErrLoad, dir)
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: stat %s: %v", ErrLoad, dir, err)
	}
	if err := unpack(dir, m.Files); err != nil {
		os.RemoveAll(dir)
		return nil, err
	}
	loaded, err := l.facade.Load(dir)
	if err != nil {
		os.RemoveAll(dir)
		return nil, fmt.Errorf("%w: %v", ErrLoad, err)
	}
	inputs := tensor.InputSpecs(spec)
	outputs := tensor.OutputSpecs(spec)
	if err := loaded.Prepare(inputs, outputs); err != nil {
		loaded.Close()
		os.RemoveAll(dir)
		return nil, fmt.Errorf("%w: %v", ErrLoad, err)
	}
	log.Printf("[MODEL] loaded %s into %s", m.ModelID, dir)
	return &Model{
		id:      m.ModelID,
		dir:     dir,
		loaded:  loaded,
		inputs:  inputs,
		outputs: outputs,
		refs:    1,
	}, nil
}

// scratchName builds a collision-resistant directory name for a model id.
func scratchName(id string) string {
	safe := strings.NewReplacer("/", "_", "\\", "_", ":", "_").Replace(id)
	return fmt.Sprintf("%s_%d", safe, time.Now().UnixMilli())
}

func unpack(dir string, files []wire.ModelFile) error {
	if len(files) == 0 {
		return fmt.Errorf("%w: bundle has no files", ErrLoad)
	}
	for _, f := range files {
		rel := filepath.FromSlash(f.Path)
		if rel == "" || filepath.IsAbs(rel) || strings.HasPrefix(rel, "..") {
			return fmt.Errorf("%w: bad bundle path %q", ErrLoad, f.Path)
		}
		dst := filepath.Join(dir, rel)
		if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
			return fmt.Errorf("%w: mkdir for %s: %v", ErrLoad, f.Path, err)
		}
		if err := os.WriteFile(dst, f.Data, 0o644); err != nil {
			return fmt.Errorf("%w: write %s: %v", ErrLoad, f.Path, err)
		}
	}
	return nil
}

// #endregion loader

// #region handle
// Model is a loaded, runnable bundle. Episodes share handles across a
// session; the scratch directory is removed when the last reference drops.
type Model struct {
	id      string
	dir     string
	loaded  *tensor.Loaded
	inputs  []tensor.Spec
	outputs []tensor.Spec

	mu     sync.Mutex
	refs   int
	closed bool
}

// ID returns the service model id.
func (m *Model) ID() string { return m.id }

// Acquire adds a reference. Returns false if the handle already closed.
func (m *Model) Acquire() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return false
	}
	m.refs++
	return true
}

// Release drops a reference. The last release closes the graphs and
// deletes the scratch directory.
func (m *Model) Release() {
	m.mu.Lock()
	m.refs--
	done := m.refs <= 0 && !m.closed
	if done {
		m.closed = true
	}
	m.mu.Unlock()
	if !done {
		return
	}
	if err := m.loaded.Close(); err != nil {
		log.Printf("[MODEL] close %s: %v", m.id, err)
	}
	if err := os.RemoveAll(m.dir); err != nil {
		log.Printf("[MODEL] remove %s: %v", m.dir, err)
	}
}

// Run performs one inference step: observations from spec go in, the
// chosen actions are written back into spec's action attributes.
func (m *Model) Run(spec *brain.Spec) error {
	in := make([]tensor.Tensor, len(m.inputs))
	for i, s := range m.inputs {
		in[i] = tensor.NewTensor(s)
	}
	out := make([]tensor.Tensor, len(m.outputs))
	for i, s := range m.outputs {
		out[i] = tensor.NewTensor(s)
	}
	if err := tensor.FillInputs(spec, in); err != nil {
		return err
	}
	m.mu.Lock()
	closed := m.closed
	m.mu.Unlock()
	if closed {
		return fmt.Errorf("%w: model %s already released", tensor.ErrInference, m.id)
	}
	if err := m.loaded.Run(in, out); err != nil {
		return err
	}
	return tensor.ApplyOutputs(out, spec)
}

// #endregion handle
