package tools

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/google/jsonschema-go/jsonschema"

	"github.com/koopa0/dialtools/internal/dial"
)

// stubTool is a scriptable tool for exercising the execution contract.
type stubTool struct {
	name   string
	result *Result
	err    error
	got    *CallParams
}

func (s *stubTool) Name() string                   { return s.name }
func (s *stubTool) Description() string            { return "stub tool" }
func (s *stubTool) Parameters() *jsonschema.Schema { return &jsonschema.Schema{Type: "object"} }
func (s *stubTool) ShowInStage() bool              { return true }

func (s *stubTool) execute(ctx context.Context, params *CallParams) (*Result, error) {
	s.got = params
	return s.result, s.err
}

func TestExecute_ErrorBecomesMessageContent(t *testing.T) {
	tool := &stubTool{name: "stub", err: errors.New("backend exploded")}

	msg := Execute(context.Background(), tool, &CallParams{
		CallID:   "call-42",
		ToolName: "stub",
	})

	if msg.Role != dial.RoleTool {
		t.Errorf("Role = %q, want %q", msg.Role, dial.RoleTool)
	}
	if msg.ToolCallID != "call-42" {
		t.Errorf("ToolCallID = %q, want %q", msg.ToolCallID, "call-42")
	}
	if msg.Name != "stub" {
		t.Errorf("Name = %q, want %q", msg.Name, "stub")
	}
	if !strings.HasPrefix(msg.Content, "ERROR during tool call execution:\n") {
		t.Errorf("Content = %q, want error marker prefix", msg.Content)
	}
	if !strings.Contains(msg.Content, "backend exploded") {
		t.Errorf("Content = %q, want it to describe the failure", msg.Content)
	}
}

func TestExecute_TextResult(t *testing.T) {
	tool := &stubTool{name: "stub", result: Text("42 degrees")}

	msg := Execute(context.Background(), tool, &CallParams{CallID: "call-1", ToolName: "stub"})

	if msg.Content != "42 degrees" {
		t.Errorf("Content = %q, want %q", msg.Content, "42 degrees")
	}
	if msg.ToolCallID != "call-1" {
		t.Errorf("ToolCallID = %q, want %q", msg.ToolCallID, "call-1")
	}
}

func TestExecute_MessageResultUsedVerbatim(t *testing.T) {
	want := &dial.Message{
		Role:       dial.RoleTool,
		Content:    "full message",
		ToolCallID: "call-1",
		CustomContent: &dial.CustomContent{
			Attachments: []dial.Attachment{{Title: "report.csv"}},
		},
	}
	tool := &stubTool{name: "stub", result: FromMessage(want)}

	got := Execute(context.Background(), tool, &CallParams{CallID: "call-1", ToolName: "stub"})
	if got != want {
		t.Errorf("Execute() = %+v, want the tool's message verbatim", got)
	}
}

func TestExecute_NilResultYieldsEmptyMessage(t *testing.T) {
	tool := &stubTool{name: "stub"}

	msg := Execute(context.Background(), tool, &CallParams{CallID: "call-1", ToolName: "stub"})
	if msg.Content != "" {
		t.Errorf("Content = %q, want empty", msg.Content)
	}
	if msg.ToolCallID != "call-1" || msg.Name != "stub" {
		t.Errorf("correlation = (%q, %q), want (call-1, stub)", msg.ToolCallID, msg.Name)
	}
}

func TestExecute_FallsBackToToolName(t *testing.T) {
	tool := &stubTool{name: "stub", result: Text("ok")}

	msg := Execute(context.Background(), tool, &CallParams{CallID: "call-1"})
	if msg.Name != "stub" {
		t.Errorf("Name = %q, want %q", msg.Name, "stub")
	}
}

func TestSchema(t *testing.T) {
	tool := &stubTool{name: "stub"}

	schema := Schema(tool)
	if schema.Type != "function" {
		t.Errorf("Type = %q, want %q", schema.Type, "function")
	}
	if schema.Function.Name != "stub" {
		t.Errorf("Function.Name = %q, want %q", schema.Function.Name, "stub")
	}
	if schema.Function.Parameters == nil {
		t.Error("Function.Parameters = nil, want schema")
	}

	if _, err := json.Marshal(schema); err != nil {
		t.Fatalf("Marshal(schema) unexpected error: %v", err)
	}
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(&stubTool{name: "alpha"}); err != nil {
		t.Fatalf("Register(alpha) unexpected error: %v", err)
	}
	if err := r.Register(&stubTool{name: "beta"}); err != nil {
		t.Fatalf("Register(beta) unexpected error: %v", err)
	}

	if err := r.Register(&stubTool{name: "alpha"}); err == nil {
		t.Error("Register(duplicate) error = nil, want error")
	}

	if _, ok := r.Get("alpha"); !ok {
		t.Error("Get(alpha) not found")
	}
	if _, ok := r.Get("missing"); ok {
		t.Error("Get(missing) found, want not found")
	}

	names := r.Names()
	if len(names) != 2 || names[0] != "alpha" || names[1] != "beta" {
		t.Errorf("Names() = %v, want [alpha beta] in registration order", names)
	}

	schemas := r.Schemas()
	if len(schemas) != 2 || schemas[0].Function.Name != "alpha" {
		t.Errorf("Schemas() = %v, want two schemas starting with alpha", schemas)
	}
}
