package service

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"sync"

	"github.com/google/uuid"

	"github.com/google-research/falken-go/internal/tensor"
	"github.com/google-research/falken-go/internal/wire"
)

// The in-memory service. It keeps the full resource model (brains,
// sessions, chunks, snapshots, models) and trains synchronously on chunk
// submission: every human demonstration step becomes one row of a tabular
// policy bundle, keyed by the flattened observation in tensor order.

// defaultPageSize bounds list responses when the request asks for none.
const defaultPageSize = 50

// #region resources
type fakeBrain struct {
	brain    wire.Brain
	sessions []*fakeSession
	byID     map[string]*fakeSession
}

type fakeSession struct {
	session wire.Session
	chunks  []wire.Chunk
	demos   []tensor.ExampleRow
	info    wire.SessionInfo
	stopped bool
}

// Fake implements FalkenService entirely in memory.
type Fake struct {
	mu        sync.Mutex
	projectID string
	brains    map[string]*fakeBrain
	order     []string
	models    map[string]wire.Model
	snapshots map[string]string // snapshot id -> model id
}

var _ FalkenService = (*Fake)(nil)

// NewFake returns an empty service accepting only the given project.
func NewFake(projectID string) *Fake {
	return &Fake{
		projectID: projectID,
		brains:    make(map[string]*fakeBrain),
		models:    make(map[string]wire.Model),
		snapshots: make(map[string]string),
	}
}

func (f *Fake) checkProject(projectID string) error {
	if projectID != f.projectID {
		return fmt.Errorf("%w: unknown project %q", ErrAuth, projectID)
	}
	return nil
}

func (f *Fake) brainByID(projectID, brainID string) (*fakeBrain, error) {
	if err := f.checkProject(projectID); err != nil {
		return nil, err
	}
	fb, ok := f.brains[brainID]
	if !ok {
		return nil, fmt.Errorf("%w: brain %q not found", ErrTransport, brainID)
	}
	return fb, nil
}

func (f *Fake) sessionByID(projectID, brainID, sessionID string) (*fakeSession, error) {
	fb, err := f.brainByID(projectID, brainID)
	if err != nil {
		return nil, err
	}
	fs, ok := fb.byID[sessionID]
	if !ok {
		return nil, fmt.Errorf("%w: session %q not found", ErrTransport, sessionID)
	}
	return fs, nil
}

// #endregion resources

// #region brain-rpcs
func (f *Fake) CreateBrain(ctx context.Context, req *wire.CreateBrainRequest) (*wire.Brain, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.checkProject(req.ProjectID); err != nil {
		return nil, err
	}
	b := wire.Brain{
		ProjectID:   req.ProjectID,
		BrainID:     uuid.NewString(),
		DisplayName: req.DisplayName,
		Spec:        req.Spec,
	}
	f.brains[b.BrainID] = &fakeBrain{brain: b, byID: make(map[string]*fakeSession)}
	f.order = append(f.order, b.BrainID)
	return &b, nil
}

func (f *Fake) GetBrain(ctx context.Context, req *wire.GetBrainRequest) (*wire.Brain, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fb, err := f.brainByID(req.ProjectID, req.BrainID)
	if err != nil {
		return nil, err
	}
	b := fb.brain
	return &b, nil
}

func (f *Fake) ListBrains(ctx context.Context, req *wire.ListBrainsRequest) (*wire.ListBrainsResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.checkProject(req.ProjectID); err != nil {
		return nil, err
	}
	start, size, err := pageBounds(req.PageToken, req.PageSize, len(f.order))
	if err != nil {
		return nil, err
	}
	var resp wire.ListBrainsResponse
	end := start + size
	if end > len(f.order) {
		end = len(f.order)
	}
	for _, id := range f.order[start:end] {
		resp.Brains = append(resp.Brains, f.brains[id].brain)
	}
	if end < len(f.order) {
		resp.NextPageToken = strconv.Itoa(end)
	}
	return &resp, nil
}

// #endregion brain-rpcs

// #region session-rpcs
func (f *Fake) CreateSession(ctx context.Context, req *wire.CreateSessionRequest) (*wire.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fb, err := f.brainByID(req.ProjectID, req.BrainID)
	if err != nil {
		return nil, err
	}
	fs := &fakeSession{
		session: wire.Session{
			ProjectID:          req.ProjectID,
			BrainID:            req.BrainID,
			SessionID:          uuid.NewString(),
			Type:               req.Type,
			StartingSnapshotID: req.StartingSnapshotID,
		},
	}
	if req.StartingSnapshotID != "" {
		modelID, ok := f.snapshots[req.StartingSnapshotID]
		if !ok {
			return nil, fmt.Errorf("%w: snapshot %q not found", ErrTransport, req.StartingSnapshotID)
		}
		fs.info = wire.SessionInfo{State: wire.TrainingComplete, Progress: 1, ModelID: modelID}
	} else if req.Type != wire.SessionInteractiveTraining {
		return nil, fmt.Errorf("%w: session type %s requires a starting snapshot", ErrTransport, req.Type)
	} else {
		fs.info = wire.SessionInfo{State: wire.Training}
	}
	fb.sessions = append(fb.sessions, fs)
	fb.byID[fs.session.SessionID] = fs
	s := fs.session
	return &s, nil
}

func (f *Fake) GetSession(ctx context.Context, req *wire.GetSessionRequest) (*wire.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fs, err := f.sessionByID(req.ProjectID, req.BrainID, req.SessionID)
	if err != nil {
		return nil, err
	}
	s := fs.session
	return &s, nil
}

func (f *Fake) GetSessionByIndex(ctx context.Context, req *wire.GetSessionByIndexRequest) (*wire.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fb, err := f.brainByID(req.ProjectID, req.BrainID)
	if err != nil {
		return nil, err
	}
	if req.Index < 0 || int(req.Index) >= len(fb.sessions) {
		return nil, fmt.Errorf("%w: session index %d out of range", ErrTransport, req.Index)
	}
	s := fb.sessions[req.Index].session
	return &s, nil
}

func (f *Fake) ListSessions(ctx context.Context, req *wire.ListSessionsRequest) (*wire.ListSessionsResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fb, err := f.brainByID(req.ProjectID, req.BrainID)
	if err != nil {
		return nil, err
	}
	start, size, err := pageBounds(req.PageToken, req.PageSize, len(fb.sessions))
	if err != nil {
		return nil, err
	}
	var resp wire.ListSessionsResponse
	end := start + size
	if end > len(fb.sessions) {
		end = len(fb.sessions)
	}
	for _, fs := range fb.sessions[start:end] {
		resp.Sessions = append(resp.Sessions, fs.session)
	}
	if end < len(fb.sessions) {
		resp.NextPageToken = strconv.Itoa(end)
	}
	return &resp, nil
}

func (f *Fake) GetSessionCount(ctx context.Context, req *wire.GetSessionCountRequest) (*wire.GetSessionCountResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fb, err := f.brainByID(req.ProjectID, req.BrainID)
	if err != nil {
		return nil, err
	}
	return &wire.GetSessionCountResponse{Count: int64(len(fb.sessions))}, nil
}

func (f *Fake) StopSession(ctx context.Context, req *wire.StopSessionRequest) (*wire.StopSessionResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fs, err := f.sessionByID(req.ProjectID, req.BrainID, req.SessionID)
	if err != nil {
		return nil, err
	}
	if fs.stopped {
		return nil, fmt.Errorf("%w: session %q already stopped", ErrTransport, req.SessionID)
	}
	fs.stopped = true
	var resp wire.StopSessionResponse
	if fs.info.ModelID != "" {
		resp.SnapshotID = "snapshots/" + uuid.NewString()
		f.snapshots[resp.SnapshotID] = fs.info.ModelID
	}
	return &resp, nil
}

// #endregion session-rpcs

// #region chunk-rpcs
func (f *Fake) ListEpisodeChunks(ctx context.Context, req *wire.ListEpisodeChunksRequest) (*wire.ListEpisodeChunksResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fs, err := f.sessionByID(req.ProjectID, req.BrainID, req.SessionID)
	if err != nil {
		return nil, err
	}
	var all []wire.Chunk
	for _, c := range fs.chunks {
		if req.EpisodeID == "" || c.EpisodeID == req.EpisodeID {
			all = append(all, c)
		}
	}
	start, size, err := pageBounds(req.PageToken, req.PageSize, len(all))
	if err != nil {
		return nil, err
	}
	end := start + size
	if end > len(all) {
		end = len(all)
	}
	resp := wire.ListEpisodeChunksResponse{Chunks: all[start:end]}
	if end < len(all) {
		resp.NextPageToken = strconv.Itoa(end)
	}
	return &resp, nil
}

func (f *Fake) SubmitEpisodeChunks(ctx context.Context, req *wire.SubmitEpisodeChunksRequest) (*wire.SubmitEpisodeChunksResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fb, err := f.brainByID(req.ProjectID, req.BrainID)
	if err != nil {
		return nil, err
	}
	fs, ok := fb.byID[req.SessionID]
	if !ok {
		return nil, fmt.Errorf("%w: session %q not found", ErrTransport, req.SessionID)
	}
	if fs.stopped {
		return nil, fmt.Errorf("%w: session %q is stopped", ErrTransport, req.SessionID)
	}

	newDemos := 0
	for _, c := range req.Chunks {
		fs.chunks = append(fs.chunks, c)
		for _, step := range c.Steps {
			if step.Actions.Source != wire.HumanDemonstration {
				continue
			}
			row, err := demoRow(fb.brain.Spec, step)
			if err != nil {
				return nil, fmt.Errorf("%w: bad demonstration step: %v", ErrTransport, err)
			}
			fs.demos = append(fs.demos, row)
			newDemos++
		}
	}

	switch fs.session.Type {
	case wire.SessionInteractiveTraining:
		if newDemos > 0 {
			m, err := f.train(fb.brain.Spec, fs.demos)
			if err != nil {
				return nil, err
			}
			fs.info = wire.SessionInfo{State: wire.TrainingComplete, Progress: 1, ModelID: m}
			log.Printf("[SVC] trained %s on %d demonstrations -> %s", req.SessionID, len(fs.demos), m)
		}
	case wire.SessionEvaluation:
		fs.info.State = wire.Evaluating
	case wire.SessionInference, wire.SessionUnspecified:
	}
	return &wire.SubmitEpisodeChunksResponse{Info: fs.info}, nil
}

// #endregion chunk-rpcs

// #region model-rpcs
func (f *Fake) GetModel(ctx context.Context, req *wire.GetModelRequest) (*wire.GetModelResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, err := f.brainByID(req.ProjectID, req.BrainID); err != nil {
		return nil, err
	}
	id := req.ModelID
	if id == "" {
		resolved, ok := f.snapshots[req.SnapshotID]
		if !ok {
			return nil, fmt.Errorf("%w: snapshot %q not found", ErrTransport, req.SnapshotID)
		}
		id = resolved
	}
	m, ok := f.models[id]
	if !ok {
		return nil, fmt.Errorf("%w: model %q not found", ErrTransport, id)
	}
	return &wire.GetModelResponse{Model: m}, nil
}

// train builds a tabular policy bundle from the accumulated demonstration
// rows and registers it under a fresh model id.
func (f *Fake) train(spec wire.BrainSpec, rows []tensor.ExampleRow) (string, error) {
	sig := signatureFromSpec(spec)
	sb, err := tensor.EncodeSignatureFile(sig)
	if err != nil {
		return "", fmt.Errorf("%w: encode signature: %v", ErrTransport, err)
	}
	eb, err := tensor.EncodeExamplesFile(rows)
	if err != nil {
		return "", fmt.Errorf("%w: encode examples: %v", ErrTransport, err)
	}
	id := "models/" + uuid.NewString()
	f.models[id] = wire.Model{
		ModelID: id,
		Files: []wire.ModelFile{
			{Path: tensor.SignatureFile, Data: sb},
			{Path: tensor.ExamplesFile, Data: eb},
		},
	}
	return id, nil
}

// #endregion model-rpcs

// #region paging
func pageBounds(token string, pageSize int32, total int) (start, size int, err error) {
	start = 0
	if token != "" {
		start, err = strconv.Atoi(token)
		if err != nil || start < 0 || start > total {
			return 0, 0, fmt.Errorf("%w: bad page token %q", ErrTransport, token)
		}
	}
	size = int(pageSize)
	if size <= 0 {
		size = defaultPageSize
	}
	return start, size, nil
}

// #endregion paging
