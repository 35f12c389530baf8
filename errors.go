package falken

import (
	"github.com/google-research/falken-go/brain"
	"github.com/google-research/falken-go/internal/codec"
	"github.com/google-research/falken-go/internal/model"
	"github.com/google-research/falken-go/internal/service"
	"github.com/google-research/falken-go/internal/session"
	"github.com/google-research/falken-go/internal/tensor"
)

// The error kinds surfaced by the SDK, re-exported so callers can classify
// failures with errors.Is without importing internal packages.
var (
	// ErrSpec: schema invalid (empty, duplicate or reserved names,
	// unresolved references, no learning signal).
	ErrSpec = brain.ErrSpec
	// ErrRange: attribute value outside its declared range.
	ErrRange = brain.ErrRange
	// ErrIntegrity: wire schema does not match the local typed schema.
	ErrIntegrity = codec.ErrIntegrity
	// ErrClosedEpisode: step or close on a terminal episode.
	ErrClosedEpisode = session.ErrClosedEpisode
	// ErrModelLoad: bundle unpack, signature, or tensor prepare failure.
	ErrModelLoad = model.ErrLoad
	// ErrInference: runtime failure from a tensor engine.
	ErrInference = tensor.ErrInference
	// ErrTransport: RPC failure (deadline, unavailable, bad routing).
	ErrTransport = service.ErrTransport
	// ErrAuth: missing or rejected credentials.
	ErrAuth = service.ErrAuth
	// ErrState: operation forbidden in the current lifecycle.
	ErrState = session.ErrState
)
