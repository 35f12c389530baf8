package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google-research/falken-go/brain"
	"github.com/google-research/falken-go/internal/codec"
	"github.com/google-research/falken-go/internal/model"
	"github.com/google-research/falken-go/internal/service"
	"github.com/google-research/falken-go/internal/tensor"
	"github.com/google-research/falken-go/internal/wire"
)

const testProject = "p-test"

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

type fixture struct {
	rt    *Runtime
	fake  *service.Fake
	brain *wire.Brain
	spec  *brain.Spec
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return newFixtureWithSpec(t, testSpec(t))
}

func newFixtureWithSpec(t *testing.T, spec *brain.Spec) *fixture {
	t.Helper()
	fake := service.NewFake(testProject)
	b, err := fake.CreateBrain(context.Background(), &wire.CreateBrainRequest{
		ProjectID: testProject,
		Spec:      codec.EncodeSpec(spec),
	})
	if err != nil {
		t.Fatalf("CreateBrain: %v", err)
	}
	facade, err := tensor.NewFacade(tensor.KNNEngine{})
	if err != nil {
		t.Fatalf("NewFacade: %v", err)
	}
	loader, err := model.NewLoader(t.TempDir(), facade)
	if err != nil {
		t.Fatalf("NewLoader: %v", err)
	}
	rt := NewRuntime(fake, loader, nil)
	t.Cleanup(func() { rt.Shutdown(true) })
	return &fixture{rt: rt, fake: fake, brain: b, spec: spec}
}

func (f *fixture) start(t *testing.T, typ wire.SessionType, snapshot string, maxSteps int) *Session {
	t.Helper()
	s, err := f.rt.StartSession(context.Background(), f.spec, testProject, f.brain.BrainID, typ, snapshot, maxSteps)
	if err != nil {
		t.Fatalf("StartSession: %v", err)
	}
	return s
}

func (f *fixture) demoStep(t *testing.T, ep *Episode, speed, throttle float64) wire.SessionInfo {
	t.Helper()
	if err := f.spec.Observations().Player().Field("speed").SetNumber(speed); err != nil {
		t.Fatalf("SetNumber: %v", err)
	}
	if err := f.spec.Actions().Get("throttle").SetNumber(throttle); err != nil {
		t.Fatalf("SetNumber: %v", err)
	}
	f.spec.Actions().SetSource(brain.SourceHumanDemonstration)
	info, err := ep.Step(nil)
	if err != nil {
		t.Fatalf("Step: %v", err)
	}
	return info
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestTrainingRoundTrip(t *testing.T) {
	f := newFixture(t)
	s := f.start(t, wire.SessionInteractiveTraining, "", 1000)

	ep, err := s.StartEpisode()
	if err != nil {
		t.Fatalf("StartEpisode: %v", err)
	}
	f.demoStep(t, ep, 1, -0.8)
	f.demoStep(t, ep, 9, 0.8)
	if _, err := ep.Close(wire.EpisodeSuccess); err != nil {
		t.Fatalf("Close: %v", err)
	}

	// The upload worker trains and hot-swaps in the new model.
	waitFor(t, "model swap", func() bool { return s.ModelID() != "" })

	ep2, err := s.StartEpisode()
	if err != nil {
		t.Fatalf("StartEpisode: %v", err)
	}
	if err := f.spec.Observations().Player().Field("speed").SetNumber(8.7); err != nil {
		t.Fatalf("SetNumber: %v", err)
	}
	if _, err := ep2.Step(nil); err != nil {
		t.Fatalf("inference step: %v", err)
	}
	if got := f.spec.Actions().Source(); got != brain.SourceBrainAction {
		t.Fatalf("action source %s, want brain_action", got)
	}
	if got := f.spec.Actions().Get("throttle").Number(); got != 0.8 {
		t.Fatalf("throttle %g, want the 0.8 demonstration", got)
	}
	if _, err := ep2.Close(wire.EpisodeFailure); err != nil {
		t.Fatalf("Close: %v", err)
	}

	if _, err := s.Stop(context.Background(), true); err != nil {
		t.Fatalf("Stop: %v", err)
	}
}

func TestStepWithoutModelHasNoSource(t *testing.T) {
	f := newFixture(t)
	s := f.start(t, wire.SessionInteractiveTraining, "", 1000)
	ep, _ := s.StartEpisode()

	f.spec.Observations().Player().Field("speed").SetNumber(3)
	info, err := ep.Step(nil)
	if err != nil {
		t.Fatalf("Step: %v", err)
	}
	if got := f.spec.Actions().Source(); got != brain.SourceNone {
		t.Fatalf("action source %s, want none", got)
	}
	// Optimistic state before any upload response.
	if info.State != wire.Training || info.Progress != 0 {
		t.Fatalf("optimistic info %+v", info)
	}
}

func TestStepWithoutModelAcceptsZeroExcludingActionRange(t *testing.T) {
	// With no model and no demonstration the actions go out as declared;
	// an action range that excludes zero must still encode, carrying the
	// constructor's range-minimum default.
	speed, _ := brain.Float("speed", 0, 10)
	player, err := brain.NewEntity(brain.PlayerEntityName, speed)
	if err != nil {
		t.Fatalf("NewEntity: %v", err)
	}
	obs := brain.NewObservations()
	obs.Attach(player)
	gain, _ := brain.Float("gain", 0.5, 1)
	actions := brain.NewActions()
	actions.Add(gain)
	f := newFixtureWithSpec(t, brain.NewSpec(obs, actions))
	s := f.start(t, wire.SessionInteractiveTraining, "", 1000)

	ep, err := s.StartEpisode()
	if err != nil {
		t.Fatalf("StartEpisode: %v", err)
	}
	f.spec.Observations().Player().Field("speed").SetNumber(3)
	if _, err := ep.Step(nil); err != nil {
		t.Fatalf("no-model step: %v", err)
	}
	if got := f.spec.Actions().Source(); got != brain.SourceNone {
		t.Fatalf("action source %s, want none", got)
	}
	if _, err := ep.Close(wire.EpisodeSuccess); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if _, err := s.Stop(context.Background(), true); err != nil {
		t.Fatalf("Stop: %v", err)
	}

	resp, err := f.fake.ListEpisodeChunks(context.Background(), &wire.ListEpisodeChunksRequest{
		ProjectID: testProject, BrainID: f.brain.BrainID, SessionID: s.ID(), EpisodeID: ep.ID(),
	})
	if err != nil {
		t.Fatalf("ListEpisodeChunks: %v", err)
	}
	step := resp.Chunks[0].Steps[0]
	if step.Actions.Source != wire.NoSource {
		t.Fatalf("recorded source %s, want NO_SOURCE", step.Actions.Source)
	}
	if got := *step.Actions.Actions[0].Number; got != 0.5 {
		t.Fatalf("recorded gain %g, want the range minimum 0.5", got)
	}
}

func TestClosedEpisodeRejectsFurtherUse(t *testing.T) {
	f := newFixture(t)
	s := f.start(t, wire.SessionInteractiveTraining, "", 1000)
	ep, _ := s.StartEpisode()
	f.demoStep(t, ep, 5, 0)

	if _, err := ep.Close(wire.EpisodeInProgress); !errors.Is(err, ErrState) {
		t.Fatalf("non-terminal close: %v", err)
	}
	if _, err := ep.Close(wire.EpisodeSuccess); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if _, err := ep.Step(nil); !errors.Is(err, ErrClosedEpisode) {
		t.Fatalf("step after close: %v", err)
	}
	if _, err := ep.Close(wire.EpisodeFailure); !errors.Is(err, ErrClosedEpisode) {
		t.Fatalf("double close: %v", err)
	}
}

func TestEmptyEpisodeCannotClose(t *testing.T) {
	f := newFixture(t)
	s := f.start(t, wire.SessionInteractiveTraining, "", 1000)
	ep, _ := s.StartEpisode()
	if _, err := ep.Close(wire.EpisodeSuccess); !errors.Is(err, ErrState) {
		t.Fatalf("empty close: %v", err)
	}
}

func TestMaxStepsAbortsEpisode(t *testing.T) {
	f := newFixture(t)
	s := f.start(t, wire.SessionInteractiveTraining, "", 3)
	ep, _ := s.StartEpisode()
	f.demoStep(t, ep, 1, 0)
	f.demoStep(t, ep, 2, 0)
	f.demoStep(t, ep, 3, 0)
	if _, err := ep.Step(nil); !errors.Is(err, ErrClosedEpisode) {
		t.Fatalf("step past cap: %v", err)
	}

	if _, err := s.Stop(context.Background(), true); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	chunks, err := f.fake.ListEpisodeChunks(context.Background(), &wire.ListEpisodeChunksRequest{
		ProjectID: testProject, BrainID: f.brain.BrainID, SessionID: s.ID(), EpisodeID: ep.ID(),
	})
	if err != nil {
		t.Fatalf("ListEpisodeChunks: %v", err)
	}
	last := chunks.Chunks[len(chunks.Chunks)-1]
	if last.State != wire.EpisodeAborted {
		t.Fatalf("episode state %s, want ABORTED", last.State)
	}
}

func TestReadOnlySessionRejectsEpisodes(t *testing.T) {
	f := newFixture(t)
	s := f.start(t, wire.SessionInteractiveTraining, "", 0)
	if _, err := s.StartEpisode(); !errors.Is(err, ErrState) {
		t.Fatalf("read-only StartEpisode: %v", err)
	}
}

func TestStopIsIdempotent(t *testing.T) {
	f := newFixture(t)
	s := f.start(t, wire.SessionInteractiveTraining, "", 1000)
	if _, err := s.Stop(context.Background(), true); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if _, err := s.Stop(context.Background(), true); err != nil {
		t.Fatalf("second Stop: %v", err)
	}
	if _, err := s.StartEpisode(); !errors.Is(err, ErrState) {
		t.Fatalf("StartEpisode after stop: %v", err)
	}
	if f.rt.Lookup(s.ID()) != nil {
		t.Fatal("stopped session still registered")
	}
}

func TestDemoResetsCompleteTrainingState(t *testing.T) {
	f := newFixture(t)
	s := f.start(t, wire.SessionInteractiveTraining, "", 1000)
	ep, _ := s.StartEpisode()
	f.demoStep(t, ep, 5, 0.5)
	if _, err := ep.Close(wire.EpisodeSuccess); err != nil {
		t.Fatalf("Close: %v", err)
	}
	waitFor(t, "training complete", func() bool { return s.Info().State == wire.TrainingComplete })

	ep2, _ := s.StartEpisode()
	f.demoStep(t, ep2, 2, -0.2)
	// New demonstrations restart training; the stored COMPLETE is stale.
	if got := s.Info().State; got != wire.Training {
		t.Fatalf("state after new demo %s, want TRAINING", got)
	}
}

func TestStopDrainsAllUploads(t *testing.T) {
	f := newFixture(t)
	s := f.start(t, wire.SessionInteractiveTraining, "", 1000)

	const episodes, steps = 50, 10
	for e := 0; e < episodes; e++ {
		ep, err := s.StartEpisode()
		if err != nil {
			t.Fatalf("StartEpisode %d: %v", e, err)
		}
		for i := 0; i < steps; i++ {
			f.demoStep(t, ep, float64(i), 0)
		}
		if _, err := ep.Close(wire.EpisodeSuccess); err != nil {
			t.Fatalf("Close %d: %v", e, err)
		}
	}
	if _, err := s.Stop(context.Background(), true); err != nil {
		t.Fatalf("Stop: %v", err)
	}

	resp, err := f.fake.ListEpisodeChunks(context.Background(), &wire.ListEpisodeChunksRequest{
		ProjectID: testProject, BrainID: f.brain.BrainID, SessionID: s.ID(), PageSize: 10000,
	})
	if err != nil {
		t.Fatalf("ListEpisodeChunks: %v", err)
	}
	perEpisode := make(map[string]int)
	for _, c := range resp.Chunks {
		perEpisode[c.EpisodeID] += len(c.Steps)
		if c.State != wire.EpisodeSuccess {
			t.Fatalf("chunk %s#%d state %s", c.EpisodeID, c.ChunkID, c.State)
		}
	}
	if len(perEpisode) != episodes {
		t.Fatalf("%d episodes uploaded, want %d", len(perEpisode), episodes)
	}
	for id, n := range perEpisode {
		if n != steps {
			t.Fatalf("episode %s has %d steps, want %d", id, n, steps)
		}
	}
}

func TestSnapshotSessionServesModelImmediately(t *testing.T) {
	f := newFixture(t)
	s := f.start(t, wire.SessionInteractiveTraining, "", 1000)
	ep, _ := s.StartEpisode()
	f.demoStep(t, ep, 9, 0.9)
	if _, err := ep.Close(wire.EpisodeSuccess); err != nil {
		t.Fatalf("Close: %v", err)
	}
	snapshot, err := s.Stop(context.Background(), true)
	if err != nil || snapshot == "" {
		t.Fatalf("Stop: %v snapshot=%q", err, snapshot)
	}

	inf := f.start(t, wire.SessionInference, snapshot, 1000)
	if inf.ModelID() == "" {
		t.Fatal("inference session has no model at start")
	}
	ep2, err := inf.StartEpisode()
	if err != nil {
		t.Fatalf("StartEpisode: %v", err)
	}
	f.spec.Observations().Player().Field("speed").SetNumber(9)
	if _, err := ep2.Step(nil); err != nil {
		t.Fatalf("Step: %v", err)
	}
	if got := f.spec.Actions().Get("throttle").Number(); got != 0.9 {
		t.Fatalf("throttle %g, want 0.9", got)
	}
}
