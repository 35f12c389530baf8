// Package session is the active session core: it owns session-wide mutable
// state, the episode registry, the shared upload scheduler, and model
// hot-swapping, all behind a synchronous stepping API. Network work happens
// on the scheduler worker; the session lock is never held across an RPC.
package session

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google-research/falken-go/brain"
	"github.com/google-research/falken-go/internal/journal"
	"github.com/google-research/falken-go/internal/model"
	"github.com/google-research/falken-go/internal/sched"
	"github.com/google-research/falken-go/internal/service"
	"github.com/google-research/falken-go/internal/wire"
)

// DefaultUploadInterval is the time between periodic chunk uploads.
const DefaultUploadInterval = 5 * time.Second

// #region runtime
// Runtime coordinates every active session in the process: one scheduler
// worker serializes all uploads and model fetches, and a table tracks
// sessions by service id.
type Runtime struct {
	svc    service.FalkenService
	loader *model.Loader
	rec    *journal.Recorder
	sched  *sched.Scheduler

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewRuntime wires a runtime over a service implementation. rec may be nil
// to disable journaling.
func NewRuntime(svc service.FalkenService, loader *model.Loader, rec *journal.Recorder) *Runtime {
	return &Runtime{
		svc:      svc,
		loader:   loader,
		rec:      rec,
		sched:    sched.New(),
		sessions: make(map[string]*Session),
	}
}

// Lookup returns the active session with the given id, nil if absent.
func (r *Runtime) Lookup(sessionID string) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sessions[sessionID]
}

// Shutdown stops the scheduler. Active sessions should be stopped first;
// any that remain lose their pending uploads when synchronous is false.
func (r *Runtime) Shutdown(synchronous bool) {
	r.sched.Shutdown(synchronous)
}

func (r *Runtime) register(s *Session) {
	r.mu.Lock()
	r.sessions[s.sess.SessionID] = s
	r.mu.Unlock()
}

func (r *Runtime) unregister(sessionID string) {
	r.mu.Lock()
	delete(r.sessions, sessionID)
	r.mu.Unlock()
}

// #endregion runtime

// #region session
// Session holds one coordinated run of data collection and inference. All
// mutable state is guarded by mu; methods named *Locked expect it held.
type Session struct {
	rt   *Runtime
	sess wire.Session
	spec *brain.Spec

	mu             sync.Mutex
	maxSteps       int
	uploadInterval time.Duration
	episodes       map[string]*Episode
	modelID        string
	model          *model.Model
	stopped        bool
	pending        []*sched.Handle

	// Latest upload return slot, under its own lightweight mutex so steps
	// never contend with the upload worker on the session lock.
	retMu    sync.Mutex
	lastInfo *wire.SessionInfo
	lastErr  error
}

// StartSession validates and freezes the spec, creates the session at the
// service, and, when a starting snapshot is given, synchronously installs
// its model. maxStepsPerEpisode = 0 creates a read-only view that rejects
// stepping.
func (r *Runtime) StartSession(ctx context.Context, spec *brain.Spec, projectID, brainID string,
	typ wire.SessionType, snapshotID string, maxStepsPerEpisode int) (*Session, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	spec.Freeze()
	sess, err := r.svc.CreateSession(ctx, &wire.CreateSessionRequest{
		ProjectID:          projectID,
		BrainID:            brainID,
		Type:               typ,
		StartingSnapshotID: snapshotID,
	})
	if err != nil {
		return nil, err
	}
	s := &Session{
		rt:             r,
		sess:           *sess,
		spec:           spec,
		maxSteps:       maxStepsPerEpisode,
		uploadInterval: DefaultUploadInterval,
		episodes:       make(map[string]*Episode),
	}
	if snapshotID != "" {
		resp, err := r.svc.GetModel(ctx, &wire.GetModelRequest{
			ProjectID:  projectID,
			BrainID:    brainID,
			SnapshotID: snapshotID,
		})
		if err != nil {
			return nil, err
		}
		m, err := r.loader.Load(resp.Model, spec)
		if err != nil {
			return nil, err
		}
		s.model = m
		s.modelID = m.ID()
	}
	r.rec.Session(*sess)
	r.register(s)
	log.Printf("[SESSION] started %s type=%s model=%q", sess.SessionID, typ, s.modelID)
	return s, nil
}

// ID returns the service-assigned session id.
func (s *Session) ID() string { return s.sess.SessionID }

// Type returns the session type.
func (s *Session) Type() wire.SessionType { return s.sess.Type }

// Spec returns the frozen brain spec the session runs against.
func (s *Session) Spec() *brain.Spec { return s.spec }

// SetUploadInterval overrides the periodic upload interval.
func (s *Session) SetUploadInterval(d time.Duration) {
	s.mu.Lock()
	s.uploadInterval = d
	s.mu.Unlock()
}

// ModelID returns the id of the session's current model, empty before the
// first trained model arrives.
func (s *Session) ModelID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.modelID
}

// #endregion session

// #region return-slot
// Info synthesizes the caller-facing training state without blocking on
// the network: optimistic before the first upload response, the stored
// response verbatim afterwards.
func (s *Session) Info() wire.SessionInfo {
	s.retMu.Lock()
	defer s.retMu.Unlock()
	if s.lastInfo == nil {
		state := wire.Training
		if s.sess.Type == wire.SessionEvaluation {
			state = wire.Evaluating
		}
		return wire.SessionInfo{State: state}
	}
	return *s.lastInfo
}

// UploadErr returns the error from the most recent upload, nil when the
// last upload succeeded or none has run.
func (s *Session) UploadErr() error {
	s.retMu.Lock()
	defer s.retMu.Unlock()
	return s.lastErr
}

func (s *Session) storeInfo(info wire.SessionInfo) {
	s.retMu.Lock()
	s.lastInfo = &info
	s.lastErr = nil
	s.retMu.Unlock()
}

func (s *Session) storeErr(err error) {
	s.retMu.Lock()
	s.lastErr = err
	s.retMu.Unlock()
}

// clearIfComplete resets the slot after a human demonstration: new
// demonstrations restart training at the service, so a stored COMPLETE
// state is stale the moment they are recorded.
func (s *Session) clearIfComplete() {
	s.retMu.Lock()
	if s.lastInfo != nil && s.lastInfo.State == wire.TrainingComplete {
		s.lastInfo = nil
	}
	s.retMu.Unlock()
}

// #endregion return-slot

// #region uploads
// scheduleUploadLocked queues chunks for submission on the shared worker.
// Handles of finished uploads are pruned here so the pending list stays
// proportional to in-flight work.
func (s *Session) scheduleUploadLocked(chunks []wire.Chunk) {
	live := s.pending[:0]
	for _, prev := range s.pending {
		if !prev.Triggered() {
			live = append(live, prev)
		}
	}
	h := s.rt.sched.Schedule(func() { s.upload(chunks) }, 0, 0)
	s.pending = append(live, h)
}

// upload runs on the scheduler worker: submit, store the result in the
// return slot, journal the outcome, then consider a model hot-swap.
func (s *Session) upload(chunks []wire.Chunk) {
	resp, err := s.rt.svc.SubmitEpisodeChunks(context.Background(), &wire.SubmitEpisodeChunksRequest{
		ProjectID: s.sess.ProjectID,
		BrainID:   s.sess.BrainID,
		SessionID: s.sess.SessionID,
		Chunks:    chunks,
	})
	if err != nil {
		// No retry here: steps keep accumulating locally and the next
		// periodic upload carries the new data.
		log.Printf("[SESSION] upload %s: %v", s.sess.SessionID, err)
		s.storeErr(err)
		s.rt.rec.Event(s.sess.SessionID, journal.EventUpload, fmt.Sprintf("failed: %v", err))
		return
	}
	for _, c := range chunks {
		s.rt.rec.Chunk(s.sess.SessionID, c)
	}
	s.rt.rec.Event(s.sess.SessionID, journal.EventUpload, fmt.Sprintf("%d chunks", len(chunks)))
	s.storeInfo(resp.Info)
	if resp.Info.ModelID != "" && resp.Info.ModelID != s.ModelID() {
		s.swapModel(resp.Info.ModelID)
	}
}

// swapModel fetches and installs a new model. Evaluation sessions keep the
// model captured at episode start, so the swap is deferred while any
// episode is in progress.
func (s *Session) swapModel(modelID string) {
	if s.sess.Type == wire.SessionEvaluation && s.hasOpenEpisode() {
		log.Printf("[SESSION] %s: deferring model swap to %s until the episode closes", s.sess.SessionID, modelID)
		return
	}
	resp, err := s.rt.svc.GetModel(context.Background(), &wire.GetModelRequest{
		ProjectID: s.sess.ProjectID,
		BrainID:   s.sess.BrainID,
		ModelID:   modelID,
	})
	if err != nil {
		log.Printf("[SESSION] fetch model %s: %v", modelID, err)
		return
	}
	m, err := s.rt.loader.Load(resp.Model, s.spec)
	if err != nil {
		// Keep the previous model on a failed swap.
		log.Printf("[SESSION] load model %s: %v", modelID, err)
		return
	}
	s.mu.Lock()
	old := s.model
	s.model = m
	s.modelID = modelID
	s.mu.Unlock()
	if old != nil {
		old.Release()
	}
	s.rt.rec.Event(s.sess.SessionID, journal.EventModelSwap, modelID)
	log.Printf("[SESSION] %s now serving %s", s.sess.SessionID, modelID)
}

func (s *Session) hasOpenEpisode() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ep := range s.episodes {
		if !ep.completed {
			return true
		}
	}
	return false
}

// #endregion uploads

// #region stop
// Stop ends the session. When synchronous, every upload queued before the
// call completes first; otherwise pending uploads are canceled. Idempotent;
// a failed StopSession RPC still marks the session stopped locally and the
// service times it out on its side.
func (s *Session) Stop(ctx context.Context, synchronous bool) (snapshotID string, err error) {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return "", nil
	}
	s.stopped = true
	pending := s.pending
	s.pending = nil
	s.mu.Unlock()

	if info := s.Info(); info.State == wire.Training {
		log.Printf("[SESSION] stopping %s while training is still in progress", s.sess.SessionID)
	}
	if synchronous {
		for _, h := range pending {
			<-h.Done()
		}
	} else {
		for _, h := range pending {
			h.Cancel()
		}
	}

	resp, err := s.rt.svc.StopSession(ctx, &wire.StopSessionRequest{
		ProjectID: s.sess.ProjectID,
		BrainID:   s.sess.BrainID,
		SessionID: s.sess.SessionID,
	})
	s.rt.rec.Event(s.sess.SessionID, journal.EventStop, "")
	s.rt.unregister(s.sess.SessionID)

	s.mu.Lock()
	if s.model != nil {
		s.model.Release()
		s.model = nil
	}
	s.mu.Unlock()

	if err != nil {
		return "", err
	}
	log.Printf("[SESSION] stopped %s snapshot=%q", s.sess.SessionID, resp.SnapshotID)
	return resp.SnapshotID, nil
}

// #endregion stop
