// Package mcp manages client sessions to Model Context Protocol tool servers.
//
// A Session owns one bidirectional connection: connect (transport + protocol
// handshake + liveness ping), list tools, invoke tools, read resources, and
// best-effort close. Sessions are not shared across tools; each tool owns its
// session for its own lifetime.
package mcp

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/jsonschema-go/jsonschema"
	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/koopa0/dialtools/internal/log"
)

var (
	// ErrNotConnected indicates an operation that requires a connected
	// session was attempted while disconnected. Usage error: connect first.
	ErrNotConnected = errors.New("tool server session not connected")

	// ErrSessionClosed indicates the session reached its terminal state and
	// cannot be reused.
	ErrSessionClosed = errors.New("tool server session closed")
)

// State is the session connection state.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateClosed // terminal
)

// String returns the state name for logging.
func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// ToolDescriptor describes one tool advertised by the server.
// Retrieved once per session; immutable afterward.
type ToolDescriptor struct {
	Name        string
	Description string
	InputSchema *jsonschema.Schema
}

// Session is a client connection to one MCP tool server.
type Session struct {
	serverURL string
	transport sdk.Transport
	logger    log.Logger

	mu      sync.Mutex
	state   State
	session *sdk.ClientSession
}

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the session logger.
func WithLogger(logger log.Logger) Option {
	return func(s *Session) { s.logger = logger }
}

// WithTransport overrides the transport used to reach the server. The
// default is a streamable HTTP transport against the server URL; stdio
// servers and in-memory test servers inject their transport here.
func WithTransport(t sdk.Transport) Option {
	return func(s *Session) { s.transport = t }
}

// NewSession creates a disconnected session for the given server URL.
func NewSession(serverURL string, opts ...Option) *Session {
	s := &Session{
		serverURL: serverURL,
		logger:    log.NewNop(),
		state:     StateDisconnected,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// State reports the current connection state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Connect opens the transport, performs the protocol handshake, and verifies
// liveness with a ping. Idempotent: a no-op when already connected. If the
// ping fails, everything opened so far is torn down and the session is left
// disconnected, never half-open.
func (s *Session) Connect(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case StateConnected:
		return nil
	case StateClosed:
		return ErrSessionClosed
	}
	s.state = StateConnecting

	transport := s.transport
	if transport == nil {
		transport = &sdk.StreamableClientTransport{Endpoint: s.serverURL}
	}

	client := sdk.NewClient(&sdk.Implementation{
		Name:    "dialtools",
		Version: "0.1.0",
	}, nil)

	session, err := client.Connect(ctx, transport, nil)
	if err != nil {
		s.state = StateDisconnected
		return fmt.Errorf("tool server connection failed: %w", err)
	}

	if err := session.Ping(ctx, nil); err != nil {
		if closeErr := session.Close(); closeErr != nil {
			s.logger.Warn("failed to close session after ping failure", "error", closeErr)
		}
		s.state = StateDisconnected
		return fmt.Errorf("tool server connection failed: ping: %w", err)
	}

	s.session = session
	s.state = StateConnected
	s.logger.Debug("tool server session connected", "url", s.serverURL)
	return nil
}

// Tools returns the tools advertised by the server.
func (s *Session) Tools(ctx context.Context) ([]ToolDescriptor, error) {
	session, err := s.connected()
	if err != nil {
		return nil, err
	}

	result, err := session.ListTools(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("list tools: %w", err)
	}

	descriptors := make([]ToolDescriptor, 0, len(result.Tools))
	for _, tool := range result.Tools {
		descriptors = append(descriptors, ToolDescriptor{
			Name:        tool.Name,
			Description: tool.Description,
			InputSchema: tool.InputSchema,
		})
	}
	return descriptors, nil
}

// CallTool invokes a tool and returns the first content item of the result,
// normalized: textual content yields its string, an empty result yields nil,
// and any other content kind is returned as-is for the caller to interpret.
func (s *Session) CallTool(ctx context.Context, name string, args map[string]any) (any, error) {
	session, err := s.connected()
	if err != nil {
		return nil, err
	}

	result, err := session.CallTool(ctx, &sdk.CallToolParams{
		Name:      name,
		Arguments: args,
	})
	if err != nil {
		return nil, fmt.Errorf("call tool %q: %w", name, err)
	}
	if len(result.Content) == 0 {
		return nil, nil
	}

	if text, ok := result.Content[0].(*sdk.TextContent); ok {
		return text.Text, nil
	}
	return result.Content[0], nil
}

// ReadResource fetches a resource by URI: text for textual contents, raw
// bytes for blobs, an error for an empty content list.
func (s *Session) ReadResource(ctx context.Context, uri string) (any, error) {
	session, err := s.connected()
	if err != nil {
		return nil, err
	}

	result, err := session.ReadResource(ctx, &sdk.ReadResourceParams{URI: uri})
	if err != nil {
		return nil, fmt.Errorf("read resource %q: %w", uri, err)
	}
	if len(result.Contents) == 0 {
		return nil, fmt.Errorf("no content in resource %q", uri)
	}

	content := result.Contents[0]
	if len(content.Blob) > 0 {
		return content.Blob, nil
	}
	return content.Text, nil
}

// Close tears the session down best-effort: failures are logged as warnings,
// never returned, and the session always ends in the terminal Closed state
// with handles cleared. Safe to call repeatedly.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateClosed {
		return nil
	}

	if s.session != nil {
		// The SDK session owns both the protocol layer and the transport;
		// closing it releases them in reverse order of acquisition.
		if err := s.session.Close(); err != nil {
			s.logger.Warn("failed to close tool server session", "error", err)
		}
	}
	s.session = nil
	s.state = StateClosed
	return nil
}

// With runs fn against a connected session and guarantees Close on every
// exit path, including when fn fails or the connect itself fails.
func (s *Session) With(ctx context.Context, fn func(*Session) error) error {
	defer func() { _ = s.Close() }()
	if err := s.Connect(ctx); err != nil {
		return err
	}
	return fn(s)
}

// connected returns the SDK session handle if the session is connected.
func (s *Session) connected() (*sdk.ClientSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case StateConnected:
		return s.session, nil
	case StateClosed:
		return nil, fmt.Errorf("%w: %w", ErrNotConnected, ErrSessionClosed)
	default:
		return nil, ErrNotConnected
	}
}
