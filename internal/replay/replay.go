// Package replay rebuilds typed step streams from recorded sessions, either
// from the service or from a local journal. A view is read-only: it decodes
// each recorded step back into the caller's brain spec so tooling can walk
// observations and actions with the same typed accessors used live.
package replay

import (
	"context"
	"fmt"

	"github.com/google-research/falken-go/brain"
	"github.com/google-research/falken-go/internal/codec"
	"github.com/google-research/falken-go/internal/journal"
	"github.com/google-research/falken-go/internal/service"
	"github.com/google-research/falken-go/internal/wire"
)

// #region view
// StepMeta is the per-step bookkeeping that is not part of the typed
// schema.
type StepMeta struct {
	EpisodeID       string
	ChunkID         int32
	ModelID         string
	Source          brain.ActionSource
	Reward          *float32
	TimestampMillis int64
}

// SessionView is a decoded, read-only session.
type SessionView struct {
	spec     *brain.Spec
	episodes []string // first-seen order
	steps    map[string][]stepRef
}

type stepRef struct {
	chunk *wire.Chunk
	index int
}

func newView(spec *brain.Spec, chunks []wire.Chunk) *SessionView {
	v := &SessionView{spec: spec, steps: make(map[string][]stepRef)}
	for i := range chunks {
		c := &chunks[i]
		if _, seen := v.steps[c.EpisodeID]; !seen {
			v.episodes = append(v.episodes, c.EpisodeID)
		}
		for j := range c.Steps {
			v.steps[c.EpisodeID] = append(v.steps[c.EpisodeID], stepRef{chunk: c, index: j})
		}
	}
	return v
}

// Episodes returns episode ids in upload order.
func (v *SessionView) Episodes() []string { return v.episodes }

// StepCount returns the number of steps recorded for an episode.
func (v *SessionView) StepCount(episodeID string) int {
	return len(v.steps[episodeID])
}

// State returns the terminal state of an episode, taken from its last
// chunk.
func (v *SessionView) State(episodeID string) wire.EpisodeState {
	refs := v.steps[episodeID]
	if len(refs) == 0 {
		return wire.EpisodeUnspecified
	}
	return refs[len(refs)-1].chunk.State
}

// Seek decodes one step into the view's spec and returns its metadata. The
// spec's attributes afterwards hold the recorded observation and action
// values.
func (v *SessionView) Seek(episodeID string, index int) (StepMeta, error) {
	refs, ok := v.steps[episodeID]
	if !ok {
		return StepMeta{}, fmt.Errorf("episode %q not in session", episodeID)
	}
	if index < 0 || index >= len(refs) {
		return StepMeta{}, fmt.Errorf("step %d out of range for episode %q (%d steps)", index, episodeID, len(refs))
	}
	ref := refs[index]
	step := ref.chunk.Steps[ref.index]
	if err := codec.DecodeObservations(step.Observation, v.spec.Observations()); err != nil {
		return StepMeta{}, err
	}
	if err := codec.DecodeActions(step.Actions, v.spec.Actions()); err != nil {
		return StepMeta{}, err
	}
	return StepMeta{
		EpisodeID:       episodeID,
		ChunkID:         ref.chunk.ChunkID,
		ModelID:         ref.chunk.ModelID,
		Source:          v.spec.Actions().Source(),
		Reward:          step.Reward,
		TimestampMillis: step.TimestampMillis,
	}, nil
}

// #endregion view

// #region sources
// FromService verifies the local spec against the brain's wire schema,
// then pages through the session's chunks.
func FromService(ctx context.Context, svc service.FalkenService, spec *brain.Spec,
	projectID, brainID, sessionID string) (*SessionView, error) {
	b, err := svc.GetBrain(ctx, &wire.GetBrainRequest{ProjectID: projectID, BrainID: brainID})
	if err != nil {
		return nil, err
	}
	if err := codec.VerifySpec(spec, b.Spec); err != nil {
		return nil, err
	}
	var chunks []wire.Chunk
	token := ""
	for {
		resp, err := svc.ListEpisodeChunks(ctx, &wire.ListEpisodeChunksRequest{
			ProjectID: projectID,
			BrainID:   brainID,
			SessionID: sessionID,
			PageToken: token,
		})
		if err != nil {
			return nil, err
		}
		chunks = append(chunks, resp.Chunks...)
		if resp.NextPageToken == "" {
			break
		}
		token = resp.NextPageToken
	}
	return newView(spec, chunks), nil
}

// FromJournal reads a session's chunks out of a local journal.
func FromJournal(store *journal.Store, spec *brain.Spec, sessionID string) (*SessionView, error) {
	chunks, err := store.Chunks(sessionID, "")
	if err != nil {
		return nil, err
	}
	return newView(spec, chunks), nil
}

// #endregion sources
