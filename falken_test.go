package falken

import (
	"context"
	"errors"
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/google-research/falken-go/brain"
	"github.com/google-research/falken-go/internal/service"
)

const testProject = "p-test"

// driverSpec declares a small driving brain: player health plus a goal
// entity in, throttle and a binary switch out.
func driverSpec(t *testing.T) *brain.Spec {
	t.Helper()
	health, err := brain.Float("health", 0, 100)
	if err != nil {
		t.Fatalf("Float: %v", err)
	}
	player, err := brain.NewEntity(brain.PlayerEntityName, health)
	if err != nil {
		t.Fatalf("NewEntity: %v", err)
	}
	goal, err := brain.NewEntity("goal")
	if err != nil {
		t.Fatalf("NewEntity: %v", err)
	}
	obs := brain.NewObservations()
	if err := obs.Attach(player); err != nil {
		t.Fatalf("Attach: %v", err)
	}
	if err := obs.Attach(goal); err != nil {
		t.Fatalf("Attach: %v", err)
	}
	throttle, _ := brain.Float("throttle", -1, 1)
	sw, _ := brain.Categorical("switch", "off", "on")
	actions := brain.NewActions()
	actions.Add(throttle)
	actions.Add(sw)
	return brain.NewSpec(obs, actions)
}

func newTestRuntime(t *testing.T) *Runtime {
	t.Helper()
	rt, err := NewWithService(Config{
		ProjectID:   testProject,
		ScratchDir:  t.TempDir(),
		JournalPath: filepath.Join(t.TempDir(), "journal.db"),
	}, service.NewFake(testProject))
	if err != nil {
		t.Fatalf("NewWithService: %v", err)
	}
	t.Cleanup(func() { rt.Close(true) })
	return rt
}

func TestInteractiveTrainingRoundTrip(t *testing.T) {
	ctx := context.Background()
	rt := newTestRuntime(t)
	spec := driverSpec(t)
	b, err := rt.CreateBrain(ctx, "driver", spec)
	if err != nil {
		t.Fatalf("CreateBrain: %v", err)
	}
	s, err := b.StartSession(ctx, InteractiveTraining, 1000)
	if err != nil {
		t.Fatalf("StartSession: %v", err)
	}

	setObs := func(health float64) {
		spec.Observations().Player().Position().SetPosition(brain.Position{})
		spec.Observations().Player().Rotation().SetRotation(brain.IdentityRotation())
		spec.Observations().Player().Field("health").SetNumber(health)
		spec.Observations().Entity("goal").Position().SetPosition(brain.Position{X: 1})
		spec.Observations().Entity("goal").Rotation().SetRotation(brain.IdentityRotation())
	}
	wantThrottle := func(health float64) float64 { return -(health/50 - 1) }
	wantSwitch := func(health float64) int {
		if health > 50 {
			return 1
		}
		return 0
	}

	const episodes, steps = 6, 50
	brainActions := 0
	var sumErr float64
	held := 0
	for e := 0; e < episodes; e++ {
		last := e == episodes-1
		if last {
			// The final episode runs pure inference; wait for the upload
			// worker to install the trained model.
			deadline := time.Now().Add(5 * time.Second)
			for s.ModelID() == "" && time.Now().Before(deadline) {
				time.Sleep(2 * time.Millisecond)
			}
			if s.ModelID() == "" {
				t.Fatal("no model installed before the held-out episode")
			}
		}
		ep, err := s.StartEpisode()
		if err != nil {
			t.Fatalf("StartEpisode %d: %v", e, err)
		}
		for i := 0; i < steps; i++ {
			health := float64((i * 2) % 101)
			setObs(health)
			if !last {
				spec.Actions().Get("throttle").SetNumber(wantThrottle(health))
				spec.Actions().Get("switch").SetCategory(wantSwitch(health))
				spec.Actions().SetSource(brain.SourceHumanDemonstration)
			}
			if _, err := ep.Step(nil); err != nil {
				t.Fatalf("Step %d/%d: %v", e, i, err)
			}
			if last && spec.Actions().Source() == brain.SourceBrainAction {
				brainActions++
				sumErr += math.Abs(spec.Actions().Get("throttle").Number() - wantThrottle(health))
				held++
			}
		}
		if _, err := ep.Close(EpisodeSuccess); err != nil {
			t.Fatalf("Close %d: %v", e, err)
		}
	}
	snapshot, err := s.Stop(ctx, true)
	if err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if snapshot == "" {
		t.Fatal("training session produced no snapshot")
	}
	if brainActions == 0 {
		t.Fatal("no steps ran with brain actions")
	}
	if avg := sumErr / float64(held); avg >= 0.05 {
		t.Fatalf("held-out average throttle error %.4f, want < 0.05", avg)
	}
}

func TestReadSessionReproducesSteps(t *testing.T) {
	ctx := context.Background()
	rt := newTestRuntime(t)
	spec := driverSpec(t)
	b, err := rt.CreateBrain(ctx, "driver", spec)
	if err != nil {
		t.Fatalf("CreateBrain: %v", err)
	}
	s, err := b.StartSession(ctx, InteractiveTraining, 1000)
	if err != nil {
		t.Fatalf("StartSession: %v", err)
	}

	const episodes, steps = 5, 10
	for e := 0; e < episodes; e++ {
		ep, err := s.StartEpisode()
		if err != nil {
			t.Fatalf("StartEpisode: %v", err)
		}
		for i := 0; i < steps; i++ {
			spec.Observations().Player().Position().SetPosition(brain.Position{X: float32(e), Y: float32(i)})
			spec.Observations().Player().Rotation().SetRotation(brain.IdentityRotation())
			spec.Observations().Player().Field("health").SetNumber(float64(10*e + i))
			spec.Observations().Entity("goal").Position().SetPosition(brain.Position{})
			spec.Observations().Entity("goal").Rotation().SetRotation(brain.IdentityRotation())
			spec.Actions().Get("throttle").SetNumber(float64(i)/10 - 0.5)
			spec.Actions().Get("switch").SetCategory(i % 2)
			spec.Actions().SetSource(brain.SourceHumanDemonstration)
			if _, err := ep.Step(nil); err != nil {
				t.Fatalf("Step: %v", err)
			}
		}
		if _, err := ep.Close(EpisodeSuccess); err != nil {
			t.Fatalf("Close: %v", err)
		}
	}
	if _, err := s.Stop(ctx, true); err != nil {
		t.Fatalf("Stop: %v", err)
	}

	count, err := b.SessionCount(ctx)
	if err != nil || count != 1 {
		t.Fatalf("SessionCount: %v %d", err, count)
	}
	rec, err := b.SessionByIndex(ctx, 0)
	if err != nil || rec.ID != s.ID() {
		t.Fatalf("SessionByIndex: %v", err)
	}

	view, err := b.ReadSession(ctx, s.ID())
	if err != nil {
		t.Fatalf("ReadSession: %v", err)
	}
	if len(view.Episodes()) != episodes {
		t.Fatalf("%d episodes in view, want %d", len(view.Episodes()), episodes)
	}
	for e, id := range view.Episodes() {
		if view.StepCount(id) != steps {
			t.Fatalf("episode %s has %d steps", id, view.StepCount(id))
		}
		if view.State(id) != EpisodeSuccess {
			t.Fatalf("episode %s state %s", id, view.State(id))
		}
		for i := 0; i < steps; i++ {
			meta, err := view.Seek(id, i)
			if err != nil {
				t.Fatalf("Seek: %v", err)
			}
			if meta.Source != brain.SourceHumanDemonstration {
				t.Fatalf("step %d source %s", i, meta.Source)
			}
			if got := spec.Observations().Player().Field("health").Number(); math.Abs(got-float64(10*e+i)) > 1e-6 {
				t.Fatalf("health %g at %d/%d", got, e, i)
			}
			if got := spec.Actions().Get("throttle").Number(); math.Abs(got-(float64(i)/10-0.5)) > 1e-6 {
				t.Fatalf("throttle %g at %d/%d", got, e, i)
			}
			if got := spec.Actions().Get("switch").Category(); got != i%2 {
				t.Fatalf("switch %d at %d/%d", got, e, i)
			}
		}
	}

	// The journal holds the same session.
	jview, err := b.ReadJournal(s.ID())
	if err != nil {
		t.Fatalf("ReadJournal: %v", err)
	}
	if len(jview.Episodes()) != episodes {
		t.Fatalf("journal view has %d episodes", len(jview.Episodes()))
	}
}

func TestGetBrainVerifiesSchema(t *testing.T) {
	ctx := context.Background()
	rt := newTestRuntime(t)
	spec := driverSpec(t)
	b, err := rt.CreateBrain(ctx, "driver", spec)
	if err != nil {
		t.Fatalf("CreateBrain: %v", err)
	}

	again, err := rt.GetBrain(ctx, b.ID(), driverSpec(t))
	if err != nil {
		t.Fatalf("GetBrain with matching spec: %v", err)
	}
	if again.ID() != b.ID() {
		t.Fatalf("brain id %q, want %q", again.ID(), b.ID())
	}

	// A drifted spec is rejected with an integrity error.
	drifted := driverSpec(t)
	extra, _ := brain.Bool("brake")
	drifted.Actions().Add(extra)
	if _, err := rt.GetBrain(ctx, b.ID(), drifted); !errors.Is(err, ErrIntegrity) {
		t.Fatalf("drifted spec: %v", err)
	}

	brains, err := rt.ListBrains(ctx)
	if err != nil || len(brains) != 1 || brains[0].DisplayName != "driver" {
		t.Fatalf("ListBrains: %v %+v", err, brains)
	}
}

func TestSpecValidationSurfacesAtCreate(t *testing.T) {
	ctx := context.Background()
	rt := newTestRuntime(t)

	// No custom fields, no joystick, no global entity: cannot learn.
	player, _ := brain.NewEntity(brain.PlayerEntityName)
	obs := brain.NewObservations()
	obs.Attach(player)
	throttle, _ := brain.Float("throttle", -1, 1)
	actions := brain.NewActions()
	actions.Add(throttle)
	if _, err := rt.CreateBrain(ctx, "bad", brain.NewSpec(obs, actions)); !errors.Is(err, ErrSpec) {
		t.Fatalf("signal-free spec: %v", err)
	}
}
