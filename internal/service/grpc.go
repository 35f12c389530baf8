package service

import (
	"context"
	"crypto/tls"
	"fmt"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/encoding"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/google-research/falken-go/internal/wire"
)

// #region codec
// codecName is the content subtype requested on every call; the registered
// codec marshals wire.Message values directly, so no generated stubs are
// needed.
const codecName = "falken-wire"

type wireCodec struct{}

func (wireCodec) Name() string { return codecName }

func (wireCodec) Marshal(v any) ([]byte, error) {
	m, ok := v.(wire.Message)
	if !ok {
		return nil, fmt.Errorf("codec: %T is not a wire message", v)
	}
	return wire.Marshal(m), nil
}

func (wireCodec) Unmarshal(data []byte, v any) error {
	m, ok := v.(wire.Message)
	if !ok {
		return fmt.Errorf("codec: %T is not a wire message", v)
	}
	return wire.Unmarshal(data, m)
}

func init() {
	encoding.RegisterCodec(wireCodec{})
}

// #endregion codec

// #region endpoints
// Endpoints per deployment environment. Local deployments speak plaintext;
// everything else requires TLS.
var endpoints = map[string]string{
	"local":   "localhost:50051",
	"dev":     "dev-falken.googleapis.com:443",
	"sandbox": "sandbox-falken.googleapis.com:443",
	"prod":    "falken.googleapis.com:443",
}

const servicePrefix = "/falken.proto.FalkenService/"

// DefaultTimeout bounds calls whose context carries no deadline.
const DefaultTimeout = 30 * time.Second

// #endregion endpoints

// #region connection
// Connection is the gRPC implementation of FalkenService.
type Connection struct {
	conn    *grpc.ClientConn
	apiKey  string
	timeout time.Duration
}

var _ FalkenService = (*Connection)(nil)

// Dial opens a connection to the named environment. The api key is sent as
// call metadata on every RPC. A zero timeout falls back to DefaultTimeout.
func Dial(environment, apiKey string, timeout time.Duration) (*Connection, error) {
	addr, ok := endpoints[environment]
	if !ok {
		return nil, fmt.Errorf("%w: unknown environment %q", ErrTransport, environment)
	}
	return DialAddress(addr, environment == "local", apiKey, timeout)
}

// DialAddress opens a connection to an explicit endpoint, for deployments
// with their own ingress in front of the service.
func DialAddress(addr string, plaintext bool, apiKey string, timeout time.Duration) (*Connection, error) {
	creds := credentials.NewTLS(&tls.Config{})
	if plaintext {
		creds = insecure.NewCredentials()
	}
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(creds))
	if err != nil {
		return nil, fmt.Errorf("%w: dial %s: %v", ErrTransport, addr, err)
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Connection{conn: conn, apiKey: apiKey, timeout: timeout}, nil
}

// Close shuts down the underlying connection.
func (c *Connection) Close() error {
	return c.conn.Close()
}

func (c *Connection) invoke(ctx context.Context, method string, req, resp wire.Message) error {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	ctx = metadata.AppendToOutgoingContext(ctx, "x-goog-api-key", c.apiKey)
	err := c.conn.Invoke(ctx, servicePrefix+method, req, resp, grpc.CallContentSubtype(codecName))
	if err == nil {
		return nil
	}
	switch status.Code(err) {
	case codes.Unauthenticated, codes.PermissionDenied:
		return fmt.Errorf("%w: %s: %v", ErrAuth, method, err)
	default:
		return fmt.Errorf("%w: %s: %v", ErrTransport, method, err)
	}
}

// #endregion connection

// #region rpcs
func (c *Connection) CreateBrain(ctx context.Context, req *wire.CreateBrainRequest) (*wire.Brain, error) {
	var resp wire.Brain
	if err := c.invoke(ctx, "CreateBrain", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Connection) GetBrain(ctx context.Context, req *wire.GetBrainRequest) (*wire.Brain, error) {
	var resp wire.Brain
	if err := c.invoke(ctx, "GetBrain", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Connection) ListBrains(ctx context.Context, req *wire.ListBrainsRequest) (*wire.ListBrainsResponse, error) {
	var resp wire.ListBrainsResponse
	if err := c.invoke(ctx, "ListBrains", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Connection) CreateSession(ctx context.Context, req *wire.CreateSessionRequest) (*wire.Session, error) {
	var resp wire.Session
	if err := c.invoke(ctx, "CreateSession", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Connection) GetSession(ctx context.Context, req *wire.GetSessionRequest) (*wire.Session, error) {
	var resp wire.Session
	if err := c.invoke(ctx, "GetSession", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Connection) GetSessionByIndex(ctx context.Context, req *wire.GetSessionByIndexRequest) (*wire.Session, error) {
	var resp wire.Session
	if err := c.invoke(ctx, "GetSessionByIndex", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Connection) ListSessions(ctx context.Context, req *wire.ListSessionsRequest) (*wire.ListSessionsResponse, error) {
	var resp wire.ListSessionsResponse
	if err := c.invoke(ctx, "ListSessions", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Connection) GetSessionCount(ctx context.Context, req *wire.GetSessionCountRequest) (*wire.GetSessionCountResponse, error) {
	var resp wire.GetSessionCountResponse
	if err := c.invoke(ctx, "GetSessionCount", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Connection) StopSession(ctx context.Context, req *wire.StopSessionRequest) (*wire.StopSessionResponse, error) {
	var resp wire.StopSessionResponse
	if err := c.invoke(ctx, "StopSession", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Connection) ListEpisodeChunks(ctx context.Context, req *wire.ListEpisodeChunksRequest) (*wire.ListEpisodeChunksResponse, error) {
	var resp wire.ListEpisodeChunksResponse
	if err := c.invoke(ctx, "ListEpisodeChunks", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Connection) SubmitEpisodeChunks(ctx context.Context, req *wire.SubmitEpisodeChunksRequest) (*wire.SubmitEpisodeChunksResponse, error) {
	var resp wire.SubmitEpisodeChunksResponse
	if err := c.invoke(ctx, "SubmitEpisodeChunks", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Connection) GetModel(ctx context.Context, req *wire.GetModelRequest) (*wire.GetModelResponse, error) {
	var resp wire.GetModelResponse
	if err := c.invoke(ctx, "GetModel", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// #endregion rpcs
