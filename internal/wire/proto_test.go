package wire

import (
	"reflect"
	"testing"
)

func sampleBrainSpec() BrainSpec {
	return BrainSpec{
		Observations: ObservationSpec{
			Player: &EntityType{
				HasPosition: true,
				HasRotation: true,
				Fields: []EntityFieldType{
					{Name: "health", Number: &NumberType{Min: 0, Max: 100}},
					{Name: "weapon", Category: &CategoryType{EnumValues: []string{"none", "sword"}}},
					{Name: "antenna", Feeler: &FeelerType{
						Count:            2,
						Distance:         ValueRange{Min: 0, Max: 10},
						YawAngles:        []float32{-45, 45},
						ExperimentalData: []ValueRange{{0, 1}, {0, 1}},
						Thickness:        0.1,
					}},
				},
			},
			GlobalEntities: []EntityType{
				{HasPosition: true, HasRotation: true},
			},
		},
		Actions: ActionSpec{
			Actions: []ActionType{
				{Name: "throttle", Number: &NumberType{Min: -1, Max: 1}},
				{Name: "switch", Category: &CategoryType{EnumValues: []string{"off", "on"}}},
				{Name: "move", Joystick: &JoystickType{
					AxesMode:         AxesDirectionXZ,
					ControlledEntity: "player",
					ControlFrame:     "camera",
				}},
			},
		},
	}
}

func TestBrainRoundTrip(t *testing.T) {
	in := Brain{
		ProjectID:        "p0",
		BrainID:          "b0",
		DisplayName:      "test brain",
		Spec:             sampleBrainSpec(),
		CreateTimeMillis: 1234567,
	}
	var out Brain
	if err := Unmarshal(Marshal(&in), &out); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if !reflect.DeepEqual(in, out) {
		t.Fatalf("round trip mismatch:\n in: %+v\nout: %+v", in, out)
	}
}

func TestChunkRoundTrip(t *testing.T) {
	num := 0.5
	cat := int32(1)
	reward := float32(2.5)
	zero := 0.0
	in := Chunk{
		EpisodeID: "ep-1",
		ChunkID:   3,
		ModelID:   "model-7",
		State:     EpisodeSuccess,
		Steps: []Step{
			{
				Observation: ObservationData{
					Player: &EntityData{
						Position: &Vec3{1, 2, 3},
						Rotation: &Quat{0, 0, 0, 1},
						Fields: []EntityFieldData{
							{Number: &num},
							{Category: &cat},
							{Feeler: &FeelerData{Distances: []float32{0.5, 1.5}, IDs: []int32{0, 1}}},
						},
					},
					GlobalEntities: []EntityData{
						{Position: &Vec3{-1, 0, 4}, Rotation: &Quat{0, 0, 0, 1}},
					},
				},
				Actions: ActionsData{
					Source: HumanDemonstration,
					Actions: []ActionData{
						{Number: &zero},
						{Category: &cat},
						{Joystick: &JoystickData{X: 0.25, Y: -1}},
					},
				},
				Reward:          &reward,
				TimestampMillis: 99000,
			},
		},
	}
	var out Chunk
	if err := Unmarshal(Marshal(&in), &out); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if !reflect.DeepEqual(in, out) {
		t.Fatalf("round trip mismatch:\n in: %+v\nout: %+v", in, out)
	}
}

// Zero scalar values inside presence wrappers must keep their presence.
func TestZeroValuePresence(t *testing.T) {
	zero := 0.0
	zc := int32(0)
	in := ActionsData{
		Source:  BrainAction,
		Actions: []ActionData{{Number: &zero}, {Category: &zc}},
	}
	out, err := parseActionsData(appendActionsData(in))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if out.Actions[0].Number == nil || *out.Actions[0].Number != 0 {
		t.Fatal("zero number lost presence")
	}
	if out.Actions[1].Category == nil || *out.Actions[1].Category != 0 {
		t.Fatal("zero category lost presence")
	}
}

// Unknown fields must be skipped, not rejected.
func TestUnknownFieldTolerance(t *testing.T) {
	b := Marshal(&StopSessionRequest{ProjectID: "p", BrainID: "b", SessionID: "s"})
	// Append an unknown string field 99.
	b = putString(b, 99, "future")
	var out StopSessionRequest
	if err := Unmarshal(b, &out); err != nil {
		t.Fatalf("Unmarshal with unknown field: %v", err)
	}
	if out.SessionID != "s" {
		t.Fatalf("known fields lost: %+v", out)
	}
}

func TestSubmitResponseRoundTrip(t *testing.T) {
	in := SubmitEpisodeChunksResponse{
		Info: SessionInfo{State: Training, Progress: 0.25, ModelID: "m1"},
	}
	var out SubmitEpisodeChunksResponse
	if err := Unmarshal(Marshal(&in), &out); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if !reflect.DeepEqual(in, out) {
		t.Fatalf("round trip mismatch: %+v vs %+v", in, out)
	}
}

func TestModelRoundTrip(t *testing.T) {
	in := Model{
		ModelID: "m-42",
		Files: []ModelFile{
			{Path: "signature.json", Data: []byte(`{"v":1}`)},
			{Path: "policy/examples.bin", Data: []byte{1, 2, 3, 0, 255}},
		},
	}
	var out Model
	if err := Unmarshal(Marshal(&in), &out); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if !reflect.DeepEqual(in, out) {
		t.Fatalf("round trip mismatch: %+v vs %+v", in, out)
	}
}

func TestEpisodeStateTerminal(t *testing.T) {
	for _, s := range []EpisodeState{EpisodeSuccess, EpisodeFailure, EpisodeAborted, EpisodeGaveUp} {
		if !s.Terminal() {
			t.Fatalf("%v should be terminal", s)
		}
	}
	for _, s := range []EpisodeState{EpisodeUnspecified, EpisodeInProgress} {
		if s.Terminal() {
			t.Fatalf("%v should not be terminal", s)
		}
	}
}
