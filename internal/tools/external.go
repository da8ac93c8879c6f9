package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/jsonschema-go/jsonschema"

	"github.com/koopa0/dialtools/internal/mcp"
)

// Invoker is the slice of a tool server session the MCP-backed tools use.
type Invoker interface {
	CallTool(ctx context.Context, name string, args map[string]any) (any, error)
	ReadResource(ctx context.Context, uri string) (any, error)
}

// MCPTool exposes one tool advertised by an external tool server. Name,
// description and argument schema come from the server's descriptor; the
// invocation is forwarded verbatim.
type MCPTool struct {
	session    Invoker
	descriptor mcp.ToolDescriptor
}

// NewMCPTool wraps a server-advertised tool over a connected session.
func NewMCPTool(session Invoker, descriptor mcp.ToolDescriptor) *MCPTool {
	return &MCPTool{session: session, descriptor: descriptor}
}

func (t *MCPTool) Name() string                   { return t.descriptor.Name }
func (t *MCPTool) Description() string            { return t.descriptor.Description }
func (t *MCPTool) Parameters() *jsonschema.Schema { return t.descriptor.InputSchema }
func (t *MCPTool) ShowInStage() bool              { return true }

func (t *MCPTool) execute(ctx context.Context, params *CallParams) (*Result, error) {
	var args map[string]any
	if err := decodeArguments(params, &args); err != nil {
		return nil, err
	}

	content, err := t.session.CallTool(ctx, t.descriptor.Name, args)
	if err != nil {
		return nil, err
	}

	switch v := content.(type) {
	case nil:
		return Text(""), nil
	case string:
		params.stage().AppendContent(v)
		return Text(v), nil
	default:
		encoded, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("encode tool result: %w", err)
		}
		params.stage().AppendContent(string(encoded))
		return Text(string(encoded)), nil
	}
}
