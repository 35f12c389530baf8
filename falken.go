// Package falken is a client SDK for an imitation-learning service: a game
// declares its observation and action space as a typed brain spec, streams
// gameplay to the service in training sessions, and runs the returned
// models on-device to produce actions. The package is the public facade;
// the session runtime, codec, and tensor machinery live under internal/.
package falken

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/google-research/falken-go/brain"
	"github.com/google-research/falken-go/internal/codec"
	"github.com/google-research/falken-go/internal/journal"
	"github.com/google-research/falken-go/internal/model"
	"github.com/google-research/falken-go/internal/replay"
	"github.com/google-research/falken-go/internal/service"
	"github.com/google-research/falken-go/internal/session"
	"github.com/google-research/falken-go/internal/tensor"
	"github.com/google-research/falken-go/internal/wire"
)

// #region re-exports
// Aliases so callers never import internal packages.
type (
	// Session is an active run of data collection and inference.
	Session = session.Session
	// Episode accumulates steps within a session.
	Episode = session.Episode
	// SessionInfo is the best-known training state returned by steps.
	SessionInfo = wire.SessionInfo
	// SessionType selects a session's behavior.
	SessionType = wire.SessionType
	// EpisodeState is an episode's lifecycle state.
	EpisodeState = wire.EpisodeState
	// TrainingState is the service's training phase.
	TrainingState = wire.TrainingState
	// SessionView is a decoded read-only session.
	SessionView = replay.SessionView
	// StepMeta is per-step bookkeeping in a session view.
	StepMeta = replay.StepMeta
)

const (
	InteractiveTraining = wire.SessionInteractiveTraining
	Inference           = wire.SessionInference
	Evaluation          = wire.SessionEvaluation

	EpisodeSuccess = wire.EpisodeSuccess
	EpisodeFailure = wire.EpisodeFailure
	EpisodeAborted = wire.EpisodeAborted
	EpisodeGaveUp  = wire.EpisodeGaveUp

	Training         = wire.Training
	TrainingComplete = wire.TrainingComplete
	Evaluating       = wire.Evaluating
)

// #endregion re-exports

// #region runtime
// Runtime owns the service connection and everything sessions share: the
// upload scheduler, the model loader, and the optional journal.
type Runtime struct {
	cfg   Config
	svc   service.FalkenService
	conn  *service.Connection
	core  *session.Runtime
	store *journal.Store
}

// Connect dials the configured service deployment and wires a runtime.
func Connect(cfg Config) (*Runtime, error) {
	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	timeout := time.Duration(cfg.APICallTimeoutMilliseconds) * time.Millisecond
	var conn *service.Connection
	var err error
	if addr := cfg.Service.Connection.Address; addr != "" {
		conn, err = service.DialAddress(addr, cfg.Service.Environment == "local", cfg.APIKey, timeout)
	} else {
		conn, err = service.Dial(cfg.Service.Environment, cfg.APIKey, timeout)
	}
	if err != nil {
		return nil, err
	}
	rt, err := newRuntime(cfg, conn)
	if err != nil {
		conn.Close()
		return nil, err
	}
	rt.conn = conn
	return rt, nil
}

// NewWithService wires a runtime over an injected service implementation,
// for tests and offline use against service.Fake. Only ProjectID is
// required.
func NewWithService(cfg Config, svc service.FalkenService) (*Runtime, error) {
	if cfg.ProjectID == "" {
		return nil, fmt.Errorf("%w: project_id is required", ErrAuth)
	}
	return newRuntime(cfg, svc)
}

func newRuntime(cfg Config, svc service.FalkenService) (*Runtime, error) {
	scratch := cfg.ScratchDir
	if scratch == "" {
		dir, err := os.MkdirTemp("", "falken-models-")
		if err != nil {
			return nil, fmt.Errorf("scratch dir: %w", err)
		}
		scratch = dir
	}
	facade, err := tensor.NewFacade(tensor.KNNEngine{})
	if err != nil {
		return nil, err
	}
	loader, err := model.NewLoader(scratch, facade)
	if err != nil {
		return nil, err
	}
	var store *journal.Store
	if cfg.JournalPath != "" {
		store, err = journal.NewStore(cfg.JournalPath)
		if err != nil {
			return nil, fmt.Errorf("open journal: %w", err)
		}
	}
	return &Runtime{
		cfg:   cfg,
		svc:   svc,
		core:  session.NewRuntime(svc, loader, journal.NewRecorder(store)),
		store: store,
	}, nil
}

// Close shuts the runtime down. When synchronous, pending uploads drain
// first. Sessions should be stopped before closing.
func (r *Runtime) Close(synchronous bool) error {
	r.core.Shutdown(synchronous)
	if r.store != nil {
		r.store.Close()
	}
	if r.conn != nil {
		return r.conn.Close()
	}
	return nil
}

// #endregion runtime

// #region default-runtime
var (
	defaultMu sync.Mutex
	defaultRT *Runtime
)

// SetDefault installs the process-wide convenience runtime.
func SetDefault(rt *Runtime) {
	defaultMu.Lock()
	defaultRT = rt
	defaultMu.Unlock()
}

// Default returns the runtime installed with SetDefault, nil before then.
func Default() *Runtime {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	return defaultRT
}

// #endregion default-runtime

// #region brains
// Brain binds a validated typed spec to a service brain resource.
type Brain struct {
	rt          *Runtime
	id          string
	displayName string
	spec        *brain.Spec
}

// CreateBrain validates the spec and registers a new brain.
func (r *Runtime) CreateBrain(ctx context.Context, displayName string, spec *brain.Spec) (*Brain, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	resp, err := r.svc.CreateBrain(ctx, &wire.CreateBrainRequest{
		ProjectID:   r.cfg.ProjectID,
		DisplayName: displayName,
		Spec:        codec.EncodeSpec(spec),
	})
	if err != nil {
		return nil, err
	}
	return &Brain{rt: r, id: resp.BrainID, displayName: resp.DisplayName, spec: spec}, nil
}

// GetBrain fetches an existing brain and verifies its wire schema matches
// the local typed spec, so a rebuilt client cannot silently join a brain
// whose schema drifted.
func (r *Runtime) GetBrain(ctx context.Context, brainID string, spec *brain.Spec) (*Brain, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	resp, err := r.svc.GetBrain(ctx, &wire.GetBrainRequest{ProjectID: r.cfg.ProjectID, BrainID: brainID})
	if err != nil {
		return nil, err
	}
	if err := codec.VerifySpec(spec, resp.Spec); err != nil {
		return nil, err
	}
	return &Brain{rt: r, id: resp.BrainID, displayName: resp.DisplayName, spec: spec}, nil
}

// BrainInfo is one row of a brain listing.
type BrainInfo struct {
	ID          string
	DisplayName string
}

// ListBrains pages through every brain in the project.
func (r *Runtime) ListBrains(ctx context.Context) ([]BrainInfo, error) {
	var out []BrainInfo
	token := ""
	for {
		resp, err := r.svc.ListBrains(ctx, &wire.ListBrainsRequest{
			ProjectID: r.cfg.ProjectID,
			PageToken: token,
		})
		if err != nil {
			return nil, err
		}
		for _, b := range resp.Brains {
			out = append(out, BrainInfo{ID: b.BrainID, DisplayName: b.DisplayName})
		}
		if resp.NextPageToken == "" {
			return out, nil
		}
		token = resp.NextPageToken
	}
}

// ID returns the service-assigned brain id.
func (b *Brain) ID() string { return b.id }

// DisplayName returns the brain's display name.
func (b *Brain) DisplayName() string { return b.displayName }

// Spec returns the typed spec bound to the brain.
func (b *Brain) Spec() *brain.Spec { return b.spec }

// #endregion brains

// #region sessions
// StartSession begins a training, inference, or evaluation session. For
// inference and evaluation a snapshot id from a previous Stop supplies the
// model; pass it via StartSessionFromSnapshot.
func (b *Brain) StartSession(ctx context.Context, typ SessionType, maxStepsPerEpisode int) (*Session, error) {
	return b.rt.core.StartSession(ctx, b.spec, b.rt.cfg.ProjectID, b.id, typ, "", maxStepsPerEpisode)
}

// StartSessionFromSnapshot begins a session whose initial model comes from
// a snapshot of a previous session.
func (b *Brain) StartSessionFromSnapshot(ctx context.Context, typ SessionType, snapshotID string, maxStepsPerEpisode int) (*Session, error) {
	return b.rt.core.StartSession(ctx, b.spec, b.rt.cfg.ProjectID, b.id, typ, snapshotID, maxStepsPerEpisode)
}

// SessionRecord is one row of a session listing.
type SessionRecord struct {
	ID                 string
	Type               SessionType
	StartingSnapshotID string
}

// Sessions pages through the brain's sessions, oldest first.
func (b *Brain) Sessions(ctx context.Context) ([]SessionRecord, error) {
	var out []SessionRecord
	token := ""
	for {
		resp, err := b.rt.svc.ListSessions(ctx, &wire.ListSessionsRequest{
			ProjectID: b.rt.cfg.ProjectID,
			BrainID:   b.id,
			PageToken: token,
		})
		if err != nil {
			return nil, err
		}
		for _, s := range resp.Sessions {
			out = append(out, SessionRecord{ID: s.SessionID, Type: s.Type, StartingSnapshotID: s.StartingSnapshotID})
		}
		if resp.NextPageToken == "" {
			return out, nil
		}
		token = resp.NextPageToken
	}
}

// SessionCount returns the number of sessions recorded for the brain.
func (b *Brain) SessionCount(ctx context.Context) (int64, error) {
	resp, err := b.rt.svc.GetSessionCount(ctx, &wire.GetSessionCountRequest{
		ProjectID: b.rt.cfg.ProjectID,
		BrainID:   b.id,
	})
	if err != nil {
		return 0, err
	}
	return resp.Count, nil
}

// SessionByIndex returns the i-th session in creation order.
func (b *Brain) SessionByIndex(ctx context.Context, index int) (SessionRecord, error) {
	resp, err := b.rt.svc.GetSessionByIndex(ctx, &wire.GetSessionByIndexRequest{
		ProjectID: b.rt.cfg.ProjectID,
		BrainID:   b.id,
		Index:     int32(index),
	})
	if err != nil {
		return SessionRecord{}, err
	}
	return SessionRecord{ID: resp.SessionID, Type: resp.Type, StartingSnapshotID: resp.StartingSnapshotID}, nil
}

// ReadSession loads a finished session as a read-only view, decoding each
// recorded step back into the brain's typed spec.
func (b *Brain) ReadSession(ctx context.Context, sessionID string) (*SessionView, error) {
	return replay.FromService(ctx, b.rt.svc, b.spec, b.rt.cfg.ProjectID, b.id, sessionID)
}

// ReadJournal loads a session view from the runtime's local journal
// instead of the service.
func (b *Brain) ReadJournal(sessionID string) (*SessionView, error) {
	if b.rt.store == nil {
		return nil, fmt.Errorf("%w: runtime has no journal configured", ErrState)
	}
	return replay.FromJournal(b.rt.store, b.spec, sessionID)
}

// #endregion sessions
