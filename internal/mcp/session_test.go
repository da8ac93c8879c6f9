package mcp

import (
	"context"
	"errors"
	"testing"

	"github.com/google/jsonschema-go/jsonschema"
	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/koopa0/dialtools/internal/log"
)

type echoInput struct {
	Text string `json:"text" jsonschema:"text to echo back"`
}

// startTestServer runs an SDK MCP server over in-memory transports and
// returns the client-side transport for a Session to connect through.
func startTestServer(t *testing.T) sdk.Transport {
	t.Helper()

	server := sdk.NewServer(&sdk.Implementation{
		Name:    "test-tool-server",
		Version: "1.0.0",
	}, nil)

	inputSchema, err := jsonschema.For[echoInput](nil)
	if err != nil {
		t.Fatalf("jsonschema.For() unexpected error: %v", err)
	}
	sdk.AddTool(server, &sdk.Tool{
		Name:        "echo",
		Description: "Echo the given text.",
		InputSchema: inputSchema,
	}, func(ctx context.Context, req *sdk.CallToolRequest, in echoInput) (*sdk.CallToolResult, any, error) {
		return &sdk.CallToolResult{
			Content: []sdk.Content{&sdk.TextContent{Text: "echo: " + in.Text}},
		}, nil, nil
	})

	server.AddResource(&sdk.Resource{
		URI:      "mem://greeting.txt",
		Name:     "greeting",
		MIMEType: "text/plain",
	}, func(ctx context.Context, req *sdk.ReadResourceRequest) (*sdk.ReadResourceResult, error) {
		return &sdk.ReadResourceResult{
			Contents: []*sdk.ResourceContents{{
				URI:      "mem://greeting.txt",
				MIMEType: "text/plain",
				Text:     "hello",
			}},
		}, nil
	})

	server.AddResource(&sdk.Resource{
		URI:      "mem://image.bin",
		Name:     "image",
		MIMEType: "application/octet-stream",
	}, func(ctx context.Context, req *sdk.ReadResourceRequest) (*sdk.ReadResourceResult, error) {
		return &sdk.ReadResourceResult{
			Contents: []*sdk.ResourceContents{{
				URI:      "mem://image.bin",
				MIMEType: "application/octet-stream",
				Blob:     []byte{0x1, 0x2, 0x3},
			}},
		}, nil
	})

	serverTransport, clientTransport := sdk.NewInMemoryTransports()
	serverSession, err := server.Connect(context.Background(), serverTransport, nil)
	if err != nil {
		t.Fatalf("server.Connect() unexpected error: %v", err)
	}
	t.Cleanup(func() { _ = serverSession.Close() })

	return clientTransport
}

func connectedSession(t *testing.T) *Session {
	t.Helper()
	session := NewSession("mem://test", WithTransport(startTestServer(t)), WithLogger(log.NewNop()))
	if err := session.Connect(context.Background()); err != nil {
		t.Fatalf("Connect() unexpected error: %v", err)
	}
	t.Cleanup(func() { _ = session.Close() })
	return session
}

func TestSession_OperationsBeforeConnect(t *testing.T) {
	session := NewSession("mem://test")
	ctx := context.Background()

	if _, err := session.Tools(ctx); !errors.Is(err, ErrNotConnected) {
		t.Errorf("Tools() error = %v, want ErrNotConnected", err)
	}
	if _, err := session.CallTool(ctx, "echo", nil); !errors.Is(err, ErrNotConnected) {
		t.Errorf("CallTool() error = %v, want ErrNotConnected", err)
	}
	if _, err := session.ReadResource(ctx, "mem://greeting.txt"); !errors.Is(err, ErrNotConnected) {
		t.Errorf("ReadResource() error = %v, want ErrNotConnected", err)
	}
}

func TestSession_ConnectIsIdempotent(t *testing.T) {
	session := connectedSession(t)

	if err := session.Connect(context.Background()); err != nil {
		t.Fatalf("second Connect() unexpected error: %v", err)
	}
	if got := session.State(); got != StateConnected {
		t.Errorf("State() = %v, want %v", got, StateConnected)
	}
}

func TestSession_Tools(t *testing.T) {
	session := connectedSession(t)

	tools, err := session.Tools(context.Background())
	if err != nil {
		t.Fatalf("Tools() unexpected error: %v", err)
	}
	if len(tools) != 1 {
		t.Fatalf("Tools() returned %d tools, want 1", len(tools))
	}
	if tools[0].Name != "echo" {
		t.Errorf("tool name = %q, want %q", tools[0].Name, "echo")
	}
	if tools[0].Description == "" {
		t.Error("tool description is empty")
	}
	if tools[0].InputSchema == nil {
		t.Error("tool input schema is nil")
	}
}

func TestSession_CallTool_TextContent(t *testing.T) {
	session := connectedSession(t)

	result, err := session.CallTool(context.Background(), "echo", map[string]any{"text": "hi"})
	if err != nil {
		t.Fatalf("CallTool() unexpected error: %v", err)
	}
	text, ok := result.(string)
	if !ok {
		t.Fatalf("CallTool() result type = %T, want string", result)
	}
	if text != "echo: hi" {
		t.Errorf("CallTool() = %q, want %q", text, "echo: hi")
	}
}

func TestSession_ReadResource(t *testing.T) {
	session := connectedSession(t)
	ctx := context.Background()

	t.Run("text resource", func(t *testing.T) {
		result, err := session.ReadResource(ctx, "mem://greeting.txt")
		if err != nil {
			t.Fatalf("ReadResource() unexpected error: %v", err)
		}
		if text, ok := result.(string); !ok || text != "hello" {
			t.Errorf("ReadResource() = %v (%T), want %q", result, result, "hello")
		}
	})

	t.Run("blob resource", func(t *testing.T) {
		result, err := session.ReadResource(ctx, "mem://image.bin")
		if err != nil {
			t.Fatalf("ReadResource() unexpected error: %v", err)
		}
		blob, ok := result.([]byte)
		if !ok {
			t.Fatalf("ReadResource() result type = %T, want []byte", result)
		}
		if len(blob) != 3 {
			t.Errorf("ReadResource() blob length = %d, want 3", len(blob))
		}
	})

	t.Run("unknown resource", func(t *testing.T) {
		if _, err := session.ReadResource(ctx, "mem://missing"); err == nil {
			t.Fatal("ReadResource() error = nil, want error for unknown resource")
		}
	})
}

func TestSession_CloseIsBestEffortAndTerminal(t *testing.T) {
	session := connectedSession(t)

	if err := session.Close(); err != nil {
		t.Fatalf("Close() unexpected error: %v", err)
	}
	if err := session.Close(); err != nil {
		t.Fatalf("second Close() unexpected error: %v", err)
	}
	if got := session.State(); got != StateClosed {
		t.Errorf("State() = %v, want %v", got, StateClosed)
	}

	if _, err := session.Tools(context.Background()); !errors.Is(err, ErrNotConnected) {
		t.Errorf("Tools() after Close error = %v, want ErrNotConnected", err)
	}
	if err := session.Connect(context.Background()); !errors.Is(err, ErrSessionClosed) {
		t.Errorf("Connect() after Close error = %v, want ErrSessionClosed", err)
	}
}

func TestSession_With_ClosesOnAllPaths(t *testing.T) {
	t.Run("closes after success", func(t *testing.T) {
		session := NewSession("mem://test", WithTransport(startTestServer(t)))
		err := session.With(context.Background(), func(s *Session) error {
			_, err := s.CallTool(context.Background(), "echo", map[string]any{"text": "x"})
			return err
		})
		if err != nil {
			t.Fatalf("With() unexpected error: %v", err)
		}
		if got := session.State(); got != StateClosed {
			t.Errorf("State() = %v, want %v", got, StateClosed)
		}
	})

	t.Run("closes after callback error", func(t *testing.T) {
		session := NewSession("mem://test", WithTransport(startTestServer(t)))
		wantErr := errors.New("boom")
		err := session.With(context.Background(), func(s *Session) error { return wantErr })
		if !errors.Is(err, wantErr) {
			t.Fatalf("With() error = %v, want %v", err, wantErr)
		}
		if got := session.State(); got != StateClosed {
			t.Errorf("State() = %v, want %v", got, StateClosed)
		}
	})
}
