package journal

import (
	"path/filepath"
	"testing"

	"github.com/google-research/falken-go/internal/wire"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(filepath.Join(t.TempDir(), "journal.db"))
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func testChunk(episode string, id int32, steps int) wire.Chunk {
	c := wire.Chunk{EpisodeID: episode, ChunkID: id, State: wire.EpisodeInProgress}
	for i := 0; i < steps; i++ {
		n := float64(i)
		c.Steps = append(c.Steps, wire.Step{
			Observation: wire.ObservationData{
				Player: &wire.EntityData{
					Position: &wire.Vec3{X: float32(i)},
					Rotation: &wire.Quat{W: 1},
					Fields:   []wire.EntityFieldData{{Number: &n}},
				},
			},
			Actions:         wire.ActionsData{Source: wire.HumanDemonstration, Actions: []wire.ActionData{{Number: &n}}},
			TimestampMillis: int64(1000 + i),
		})
	}
	return c
}

func TestSessionAndChunkRoundTrip(t *testing.T) {
	s := newTestStore(t)
	sess := wire.Session{
		ProjectID: "p", BrainID: "b", SessionID: "s1",
		Type: wire.SessionInteractiveTraining, StartingSnapshotID: "snapshots/x",
	}
	if err := s.PutSession(sess); err != nil {
		t.Fatalf("PutSession: %v", err)
	}
	// Re-recording the same session must not fail.
	if err := s.PutSession(sess); err != nil {
		t.Fatalf("PutSession again: %v", err)
	}

	want := testChunk("ep-1", 0, 3)
	if err := s.PutChunk("s1", want); err != nil {
		t.Fatalf("PutChunk: %v", err)
	}
	if err := s.PutChunk("s1", testChunk("ep-2", 0, 1)); err != nil {
		t.Fatalf("PutChunk: %v", err)
	}

	sessions, err := s.Sessions()
	if err != nil || len(sessions) != 1 {
		t.Fatalf("Sessions: %v, %d rows", err, len(sessions))
	}
	if sessions[0] != sess {
		t.Fatalf("session round trip: %+v", sessions[0])
	}

	all, err := s.Chunks("s1", "")
	if err != nil || len(all) != 2 {
		t.Fatalf("Chunks: %v, %d rows", err, len(all))
	}
	got, err := s.Chunks("s1", "ep-1")
	if err != nil || len(got) != 1 {
		t.Fatalf("Chunks filtered: %v, %d rows", err, len(got))
	}
	if len(got[0].Steps) != 3 || got[0].Steps[2].TimestampMillis != 1002 {
		t.Fatalf("chunk blob round trip: %+v", got[0])
	}
	if *got[0].Steps[1].Observation.Player.Fields[0].Number != 1 {
		t.Fatalf("field value lost in round trip")
	}
}

func TestProvenanceLog(t *testing.T) {
	s := newTestStore(t)
	if err := s.PutSession(wire.Session{ProjectID: "p", BrainID: "b", SessionID: "s1"}); err != nil {
		t.Fatalf("PutSession: %v", err)
	}
	s.PutEvent("s1", EventUpload, "2 chunks")
	s.PutEvent("s1", EventModelSwap, "models/m1")
	s.PutEvent("s1", EventStop, "")

	events, err := s.Events("s1")
	if err != nil {
		t.Fatalf("Events: %v", err)
	}
	if len(events) != 3 || events[0].Type != EventUpload || events[1].Detail != "models/m1" || events[2].Type != EventStop {
		t.Fatalf("provenance order: %+v", events)
	}
	if events[0].CreatedAt.IsZero() {
		t.Fatal("event timestamp not recorded")
	}
}

func TestNilRecorderIsInert(t *testing.T) {
	var r *Recorder
	r.Session(wire.Session{SessionID: "x"})
	r.Chunk("x", wire.Chunk{})
	r.Event("x", EventStop, "")

	r = NewRecorder(nil)
	r.Session(wire.Session{SessionID: "x"})
	r.Chunk("x", wire.Chunk{})
	r.Event("x", EventStop, "")
}

func TestRecorderWrites(t *testing.T) {
	s := newTestStore(t)
	r := NewRecorder(s)
	r.Session(wire.Session{ProjectID: "p", BrainID: "b", SessionID: "s1"})
	r.Chunk("s1", testChunk("ep-1", 0, 1))
	r.Event("s1", EventUpload, "1 chunk")

	chunks, err := s.Chunks("s1", "")
	if err != nil || len(chunks) != 1 {
		t.Fatalf("recorder chunk missing: %v, %d rows", err, len(chunks))
	}
	events, err := s.Events("s1")
	if err != nil || len(events) != 1 {
		t.Fatalf("recorder event missing: %v, %d rows", err, len(events))
	}
}
