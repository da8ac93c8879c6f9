// Package tools implements the tool-execution layer: the uniform execution
// contract every tool honors, the registry the conversation loop resolves
// tools from, the streaming aggregator shared by model-backed tools, and the
// concrete tool implementations (deployment, MCP-backed, code interpreter,
// RAG).
package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/jsonschema-go/jsonschema"

	"github.com/koopa0/dialtools/internal/dial"
)

// Tool is the capability interface advertised to the model. The execute
// method is unexported: tool implementations form a closed set inside this
// package and are always invoked through Execute, which owns error
// containment.
type Tool interface {
	// Name is the stable identifier the model calls the tool by.
	Name() string

	// Description is written for model consumption.
	Description() string

	// Parameters is the JSON-Schema of the tool's arguments.
	Parameters() *jsonschema.Schema

	// ShowInStage reports whether the tool's raw output should be echoed
	// to the user-visible progress surface by the caller.
	ShowInStage() bool

	execute(ctx context.Context, params *CallParams) (*Result, error)
}

// CallParams is the immutable per-invocation bundle built by the
// conversation loop. Tools must not mutate it.
type CallParams struct {
	// CallID correlates the resulting tool message to the originating call.
	CallID string

	// ToolName is the name the model invoked.
	ToolName string

	// Arguments is the raw argument payload as issued by the model.
	Arguments json.RawMessage

	// APIKey carries the caller's credentials for downstream DIAL calls.
	APIKey string

	// ConversationID scopes per-conversation state such as the document
	// cache.
	ConversationID string

	// Stage is the append-only progress surface shown while the tool runs.
	Stage Stage

	// Choice is the side channel for attachments on the conversation turn.
	Choice Choice
}

// Result is what a tool's core logic produces: either plain text or a
// complete tool message used verbatim.
type Result struct {
	text    string
	message *dial.Message
}

// Text wraps a plain text payload.
func Text(s string) *Result {
	return &Result{text: s}
}

// FromMessage wraps a structured message; its correlation fields are
// authoritative.
func FromMessage(m *dial.Message) *Result {
	return &Result{message: m}
}

// Execute runs a tool under the uniform contract: the returned message is
// always a well-formed tool-role message correlated to the call, and no
// failure of the tool's core logic ever propagates. Errors become message
// content with an explicit error marker so the conversation can tell failed
// calls apart without aborting.
func Execute(ctx context.Context, t Tool, params *CallParams) *dial.Message {
	name := params.ToolName
	if name == "" {
		name = t.Name()
	}
	msg := &dial.Message{
		Role:       dial.RoleTool,
		Name:       name,
		ToolCallID: params.CallID,
	}

	result, err := t.execute(ctx, params)
	if err != nil {
		msg.Content = fmt.Sprintf("ERROR during tool call execution:\n %v", err)
		return msg
	}
	if result == nil {
		return msg
	}
	if result.message != nil {
		return result.message
	}
	msg.Content = result.text
	return msg
}

// FunctionSchema is the advertised function-call surface of a tool.
type FunctionSchema struct {
	Name        string             `json:"name"`
	Description string             `json:"description"`
	Parameters  *jsonschema.Schema `json:"parameters"`
}

// ToolSchema is the function-call schema shape consumed by the model.
type ToolSchema struct {
	Type     string         `json:"type"`
	Function FunctionSchema `json:"function"`
}

// Schema builds the advertised schema for a tool.
func Schema(t Tool) ToolSchema {
	return ToolSchema{
		Type: "function",
		Function: FunctionSchema{
			Name:        t.Name(),
			Description: t.Description(),
			Parameters:  t.Parameters(),
		},
	}
}

// stage returns the progress surface, nil-safe.
func (p *CallParams) stage() Stage {
	if p.Stage == nil {
		return NopStage{}
	}
	return p.Stage
}

// choice returns the turn attachment surface, nil-safe.
func (p *CallParams) choice() Choice {
	if p.Choice == nil {
		return NopChoice{}
	}
	return p.Choice
}

// decodeArguments unmarshals the raw argument payload into v. An empty
// payload leaves v untouched.
func decodeArguments(params *CallParams, v any) error {
	if len(params.Arguments) == 0 {
		return nil
	}
	if err := json.Unmarshal(params.Arguments, v); err != nil {
		return fmt.Errorf("invalid tool arguments: %w", err)
	}
	return nil
}
