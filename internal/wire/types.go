// Package wire defines the structural messages exchanged with the service:
// brain specs, episode chunks, session metadata, and the request/response
// pairs of the RPC surface. Messages marshal to protobuf wire format via
// encoding/protowire (see proto.go); field numbers are pinned there.
package wire

// #region enums
// ActionSource is the provenance of an action snapshot at a step.
type ActionSource int32

const (
	SourceUnknown ActionSource = iota
	NoSource
	HumanDemonstration
	BrainAction
)

// String returns the wire enum name.
func (s ActionSource) String() string {
	switch s {
	case NoSource:
		return "NO_SOURCE"
	case HumanDemonstration:
		return "HUMAN_DEMONSTRATION"
	case BrainAction:
		return "BRAIN_ACTION"
	default:
		return "SOURCE_UNKNOWN"
	}
}

// EpisodeState is the lifecycle state carried on a chunk.
type EpisodeState int32

const (
	EpisodeUnspecified EpisodeState = iota
	EpisodeInProgress
	EpisodeSuccess
	EpisodeFailure
	EpisodeAborted
	EpisodeGaveUp
)

// Terminal reports whether the state closes an episode.
func (s EpisodeState) Terminal() bool {
	switch s {
	case EpisodeSuccess, EpisodeFailure, EpisodeAborted, EpisodeGaveUp:
		return true
	default:
		return false
	}
}

// String returns the wire enum name.
func (s EpisodeState) String() string {
	switch s {
	case EpisodeInProgress:
		return "IN_PROGRESS"
	case EpisodeSuccess:
		return "SUCCESS"
	case EpisodeFailure:
		return "FAILURE"
	case EpisodeAborted:
		return "ABORTED"
	case EpisodeGaveUp:
		return "GAVE_UP"
	default:
		return "UNSPECIFIED"
	}
}

// SessionType selects the behavior of a session.
type SessionType int32

const (
	SessionUnspecified SessionType = iota
	SessionInteractiveTraining
	SessionInference
	SessionEvaluation
)

// String returns the wire enum name.
func (t SessionType) String() string {
	switch t {
	case SessionInteractiveTraining:
		return "INTERACTIVE_TRAINING"
	case SessionInference:
		return "INFERENCE"
	case SessionEvaluation:
		return "EVALUATION"
	default:
		return "SESSION_TYPE_UNSPECIFIED"
	}
}

// TrainingState is the service's latest observed training phase.
type TrainingState int32

const (
	TrainingInvalid TrainingState = iota
	Training
	TrainingComplete
	Evaluating
)

// String returns the wire enum name.
func (s TrainingState) String() string {
	switch s {
	case Training:
		return "TRAINING"
	case TrainingComplete:
		return "COMPLETE"
	case Evaluating:
		return "EVALUATING"
	default:
		return "INVALID"
	}
}

// JoystickAxesMode mirrors the typed schema's axes interpretation.
type JoystickAxesMode int32

const (
	AxesModeUndefined JoystickAxesMode = iota
	AxesDeltaPitchYaw
	AxesDirectionXZ
)

// #endregion enums

// #region spec-types
// ValueRange is a closed numeric interval.
type ValueRange struct {
	Min float64
	Max float64
}

// NumberType constrains a float attribute.
type NumberType struct {
	Min float64
	Max float64
}

// CategoryType constrains a categorical attribute.
type CategoryType struct {
	EnumValues []string
}

// FeelerType constrains a feelers attribute. ExperimentalData carries one
// range per id label; its length is the width of the one-hot id channel.
type FeelerType struct {
	Count            int32
	Distance         ValueRange
	YawAngles        []float32
	ExperimentalData []ValueRange
	Thickness        float32
}

// JoystickType constrains a joystick action.
type JoystickType struct {
	AxesMode         JoystickAxesMode
	ControlledEntity string
	ControlFrame     string
}

// EntityFieldType is one custom field of an entity; exactly one of the
// constraint pointers is set.
type EntityFieldType struct {
	Name     string
	Number   *NumberType
	Category *CategoryType
	Feeler   *FeelerType
}

// EntityType describes one entity: presence markers for the mandatory
// position/rotation attributes plus ordered custom fields.
type EntityType struct {
	HasPosition bool
	HasRotation bool
	Fields      []EntityFieldType
}

// ObservationSpec is the observation half of a wire brain spec.
type ObservationSpec struct {
	Player         *EntityType
	Camera         *EntityType
	GlobalEntities []EntityType
}

// ActionType is one action; exactly one of the constraint pointers is set.
type ActionType struct {
	Name     string
	Number   *NumberType
	Category *CategoryType
	Joystick *JoystickType
}

// ActionSpec is the action half of a wire brain spec.
type ActionSpec struct {
	Actions []ActionType
}

// BrainSpec pairs the two schema halves.
type BrainSpec struct {
	Observations ObservationSpec
	Actions      ActionSpec
}

// #endregion spec-types

// #region data-types
// Vec3 is a position sample.
type Vec3 struct {
	X, Y, Z float32
}

// Quat is a rotation sample in (x, y, z, w) order.
type Quat struct {
	X, Y, Z, W float32
}

// FeelerData carries per-ray samples; IDs is empty when the layout has no
// id channel.
type FeelerData struct {
	Distances []float32
	IDs       []int32
}

// EntityFieldData is one custom field sample; exactly one pointer is set,
// matching the field's declared kind.
type EntityFieldData struct {
	Number   *float64
	Category *int32
	Feeler   *FeelerData
}

// EntityData is one entity's observation sample. Fields parallels the
// spec's field order.
type EntityData struct {
	Position *Vec3
	Rotation *Quat
	Fields   []EntityFieldData
}

// ObservationData is a full observation snapshot.
type ObservationData struct {
	Player         *EntityData
	Camera         *EntityData
	GlobalEntities []EntityData
}

// JoystickData is a joystick action sample.
type JoystickData struct {
	X, Y float32
}

// ActionData is one action sample; exactly one pointer is set.
type ActionData struct {
	Number   *float64
	Category *int32
	Joystick *JoystickData
}

// ActionsData is a full action snapshot with its provenance tag.
type ActionsData struct {
	Source  ActionSource
	Actions []ActionData
}

// Step is one recorded frame of an episode.
type Step struct {
	Observation     ObservationData
	Actions         ActionsData
	Reward          *float32
	TimestampMillis int64
}

// Chunk is a transport segment of an episode.
type Chunk struct {
	EpisodeID string
	ChunkID   int32
	ModelID   string
	Steps     []Step
	State     EpisodeState
}

// #endregion data-types

// #region resources
// Brain is the service's brain resource.
type Brain struct {
	ProjectID        string
	BrainID          string
	DisplayName      string
	Spec             BrainSpec
	CreateTimeMillis int64
}

// Session is the service's session resource.
type Session struct {
	ProjectID          string
	BrainID            string
	SessionID          string
	Type               SessionType
	StartingSnapshotID string
	CreateTimeMillis   int64
}

// SessionInfo is the training feedback returned on every chunk submission.
type SessionInfo struct {
	State    TrainingState
	Progress float32
	ModelID  string
}

// ModelFile is one file of a model bundle.
type ModelFile struct {
	Path string
	Data []byte
}

// Model is a content-addressed trained artifact.
type Model struct {
	ModelID string
	Files   []ModelFile
}

// #endregion resources

// #region rpc-messages
// Request/response pairs for the RPC surface. Project/brain/session routing
// fields are repeated on every request; the service rejects mismatches.

type CreateBrainRequest struct {
	ProjectID   string
	DisplayName string
	Spec        BrainSpec
}

type GetBrainRequest struct {
	ProjectID string
	BrainID   string
}

type ListBrainsRequest struct {
	ProjectID string
	PageSize  int32
	PageToken string
}

type ListBrainsResponse struct {
	Brains        []Brain
	NextPageToken string
}

type CreateSessionRequest struct {
	ProjectID          string
	BrainID            string
	Type               SessionType
	StartingSnapshotID string
}

type GetSessionRequest struct {
	ProjectID string
	BrainID   string
	SessionID string
}

type GetSessionByIndexRequest struct {
	ProjectID string
	BrainID   string
	Index     int32
}

type ListSessionsRequest struct {
	ProjectID string
	BrainID   string
	PageSize  int32
	PageToken string
}

type ListSessionsResponse struct {
	Sessions      []Session
	NextPageToken string
}

type GetSessionCountRequest struct {
	ProjectID string
	BrainID   string
}

type GetSessionCountResponse struct {
	Count int64
}

type ListEpisodeChunksRequest struct {
	ProjectID string
	BrainID   string
	SessionID string
	// EpisodeID filters to one episode when non-empty.
	EpisodeID string
	PageSize  int32
	PageToken string
}

type ListEpisodeChunksResponse struct {
	Chunks        []Chunk
	NextPageToken string
}

type SubmitEpisodeChunksRequest struct {
	ProjectID string
	BrainID   string
	SessionID string
	Chunks    []Chunk
}

type SubmitEpisodeChunksResponse struct {
	Info SessionInfo
}

// GetModelRequest fetches by model id or by snapshot id; exactly one of the
// two must be set.
type GetModelRequest struct {
	ProjectID  string
	BrainID    string
	ModelID    string
	SnapshotID string
}

type GetModelResponse struct {
	Model Model
}

type StopSessionRequest struct {
	ProjectID string
	BrainID   string
	SessionID string
}

type StopSessionResponse struct {
	SnapshotID string
}

// #endregion rpc-messages
