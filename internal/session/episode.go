package session

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/google-research/falken-go/brain"
	"github.com/google-research/falken-go/internal/codec"
	"github.com/google-research/falken-go/internal/model"
	"github.com/google-research/falken-go/internal/wire"
)

// #region episode
// Episode accumulates steps into chunks. It captures the session's model
// at start and keeps it for its whole lifetime, so a hot-swap mid-episode
// never changes the policy behind an in-flight episode.
type Episode struct {
	s  *Session
	id string

	chunk       wire.Chunk
	nextChunkID int32
	lastUpload  time.Time
	steps       int
	completed   bool

	model         *model.Model
	modelID       string
	warnedNoModel bool
}

// StartEpisode registers a new episode with a fresh id, capturing the
// session's current model.
func (s *Session) StartEpisode() (*Episode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return nil, fmt.Errorf("%w: session %s is stopped", ErrState, s.sess.SessionID)
	}
	if s.maxSteps == 0 {
		return nil, fmt.Errorf("%w: session %s is a read-only view", ErrState, s.sess.SessionID)
	}
	ep := &Episode{
		s:          s,
		id:         uuid.NewString(),
		lastUpload: time.Now(),
		model:      s.model,
		modelID:    s.modelID,
	}
	if ep.model != nil && !ep.model.Acquire() {
		ep.model = nil
		ep.modelID = ""
	}
	ep.chunk = wire.Chunk{EpisodeID: ep.id, ChunkID: 0, ModelID: ep.modelID, State: wire.EpisodeInProgress}
	ep.nextChunkID = 1
	s.episodes[ep.id] = ep
	return ep, nil
}

// ID returns the episode id.
func (ep *Episode) ID() string { return ep.id }

// #endregion episode

// #region step
// Step records one frame. When the caller tagged the actions as a human
// demonstration they are recorded as given; otherwise the captured model
// runs inference and its actions are recorded as brain actions. With no
// model resident the step is recorded with no action source and the spec's
// source is set to none so the application knows not to act.
//
// Returns the best-known training state; it never blocks on the network.
func (ep *Episode) Step(reward *float32) (wire.SessionInfo, error) {
	s := ep.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return wire.SessionInfo{}, fmt.Errorf("%w: session %s is stopped", ErrState, s.sess.SessionID)
	}
	if ep.completed {
		return wire.SessionInfo{}, fmt.Errorf("%w: episode %s", ErrClosedEpisode, ep.id)
	}

	demo := s.spec.Actions().Source() == brain.SourceHumanDemonstration
	ep.warnUnset(demo)

	obs, err := codec.EncodeObservations(s.spec.Observations())
	if err != nil {
		return wire.SessionInfo{}, err
	}

	applied := brain.SourceNone
	switch {
	case demo:
		applied = brain.SourceHumanDemonstration
	case ep.model != nil:
		if err := ep.model.Run(s.spec); err != nil {
			return wire.SessionInfo{}, err
		}
		applied = brain.SourceBrainAction
	default:
		if s.sess.Type == wire.SessionEvaluation && !ep.warnedNoModel {
			log.Printf("[SESSION] evaluation episode %s has no resident model; actions have no source", ep.id)
			ep.warnedNoModel = true
		}
	}
	s.spec.Actions().SetSource(applied)
	acts, err := codec.EncodeActions(s.spec.Actions())
	if err != nil {
		return wire.SessionInfo{}, err
	}

	ep.chunk.Steps = append(ep.chunk.Steps, wire.Step{
		Observation:     obs,
		Actions:         acts,
		Reward:          reward,
		TimestampMillis: time.Now().UnixMilli(),
	})
	ep.steps++
	s.spec.ResetDirty()
	s.spec.Actions().SetSource(applied)

	if demo {
		s.clearIfComplete()
	}
	if s.maxSteps > 0 && ep.steps >= s.maxSteps {
		log.Printf("[SESSION] episode %s reached the %d step cap, aborting", ep.id, s.maxSteps)
		ep.finishLocked(wire.EpisodeAborted)
		return s.Info(), nil
	}
	if time.Since(ep.lastUpload) >= s.uploadInterval {
		ep.rotateChunkLocked()
	}
	return s.Info(), nil
}

// warnUnset logs attributes the caller never assigned this step. Action
// attributes are exempt unless this is a demonstration, since inference
// fills them.
func (ep *Episode) warnUnset(demo bool) {
	var stale []string
	for _, name := range ep.s.spec.UnsetNames() {
		if !demo && strings.HasPrefix(name, "actions/") {
			continue
		}
		stale = append(stale, name)
	}
	if len(stale) > 0 {
		log.Printf("[SESSION] episode %s: attributes not set this step: %s", ep.id, strings.Join(stale, ", "))
	}
}

// rotateChunkLocked ships the in-progress chunk and opens the next one.
// The boundary is purely a transport concern; the episode stays open.
func (ep *Episode) rotateChunkLocked() {
	full := ep.chunk
	ep.chunk = wire.Chunk{
		EpisodeID: ep.id,
		ChunkID:   ep.nextChunkID,
		ModelID:   ep.modelID,
		State:     wire.EpisodeInProgress,
	}
	ep.nextChunkID++
	ep.lastUpload = time.Now()
	ep.s.scheduleUploadLocked([]wire.Chunk{full})
}

// #endregion step

// #region close
// Close finalizes the episode with a terminal state and schedules the last
// upload. An episode that never recorded a step cannot be closed.
func (ep *Episode) Close(state wire.EpisodeState) (wire.SessionInfo, error) {
	s := ep.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if ep.completed {
		return wire.SessionInfo{}, fmt.Errorf("%w: episode %s", ErrClosedEpisode, ep.id)
	}
	if !state.Terminal() {
		return wire.SessionInfo{}, fmt.Errorf("%w: %s is not a terminal episode state", ErrState, state)
	}
	if ep.chunk.ChunkID == 0 && len(ep.chunk.Steps) == 0 {
		return wire.SessionInfo{}, fmt.Errorf("%w: episode %s has no steps", ErrState, ep.id)
	}
	ep.finishLocked(state)
	return s.Info(), nil
}

func (ep *Episode) finishLocked(state wire.EpisodeState) {
	ep.chunk.State = state
	ep.s.scheduleUploadLocked([]wire.Chunk{ep.chunk})
	ep.chunk.Steps = nil
	ep.completed = true
	delete(ep.s.episodes, ep.id)
	if ep.model != nil {
		ep.model.Release()
		ep.model = nil
	}
}

// #endregion close
