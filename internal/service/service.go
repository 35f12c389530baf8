// Package service defines the RPC surface of the training service and its
// two implementations: a gRPC transport for real deployments and an
// in-memory fake with a tabular trainer for offline use and tests.
package service

import (
	"context"
	"errors"

	"github.com/google-research/falken-go/internal/wire"
)

// ErrTransport marks a failed call to the service.
var ErrTransport = errors.New("service call failed")

// ErrAuth marks a call rejected for missing or invalid credentials.
var ErrAuth = errors.New("authentication failed")

// FalkenService is the full RPC surface. Both the gRPC connection and the
// in-memory fake satisfy it; everything above this package depends only on
// the interface.
type FalkenService interface {
	CreateBrain(ctx context.Context, req *wire.CreateBrainRequest) (*wire.Brain, error)
	GetBrain(ctx context.Context, req *wire.GetBrainRequest) (*wire.Brain, error)
	ListBrains(ctx context.Context, req *wire.ListBrainsRequest) (*wire.ListBrainsResponse, error)

	CreateSession(ctx context.Context, req *wire.CreateSessionRequest) (*wire.Session, error)
	GetSession(ctx context.Context, req *wire.GetSessionRequest) (*wire.Session, error)
	GetSessionByIndex(ctx context.Context, req *wire.GetSessionByIndexRequest) (*wire.Session, error)
	ListSessions(ctx context.Context, req *wire.ListSessionsRequest) (*wire.ListSessionsResponse, error)
	GetSessionCount(ctx context.Context, req *wire.GetSessionCountRequest) (*wire.GetSessionCountResponse, error)
	StopSession(ctx context.Context, req *wire.StopSessionRequest) (*wire.StopSessionResponse, error)

	ListEpisodeChunks(ctx context.Context, req *wire.ListEpisodeChunksRequest) (*wire.ListEpisodeChunksResponse, error)
	SubmitEpisodeChunks(ctx context.Context, req *wire.SubmitEpisodeChunksRequest) (*wire.SubmitEpisodeChunksResponse, error)

	GetModel(ctx context.Context, req *wire.GetModelRequest) (*wire.GetModelResponse, error)
}
