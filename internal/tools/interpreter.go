package tools

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"path"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"

	"github.com/koopa0/dialtools/internal/dial"
	"github.com/koopa0/dialtools/internal/log"
	"github.com/koopa0/dialtools/internal/mcp"
)

// outputFragmentLimit caps each output fragment returned to the model. The
// full output stays visible in the stage.
const outputFragmentLimit = 200

// fileInstructions is appended to the result whenever the execution produced
// files, so the model does not fabricate links.
const fileInstructions = "Generated files have been provided to user, DON'T include links to them in response!"

// ExecutionFile describes one file produced by a code execution.
type ExecutionFile struct {
	Name     string `json:"name"`
	MIMEType string `json:"mime_type"`
	URI      string `json:"uri"`
}

// ExecutionResult is the interpreter server's result payload.
type ExecutionResult struct {
	Output       []string        `json:"output"`
	Files        []ExecutionFile `json:"files"`
	Instructions string          `json:"instructions,omitempty"`
}

// CodeInterpreterTool runs Python code on an external interpreter server and
// publishes any produced files to the caller's file storage.
type CodeInterpreterTool struct {
	session    Invoker
	client     *dial.Client
	descriptor mcp.ToolDescriptor
	logger     log.Logger
}

// NewCodeInterpreterTool wraps the interpreter tool named toolName from the
// server's advertised descriptors. The server must advertise it.
func NewCodeInterpreterTool(session Invoker, descriptors []mcp.ToolDescriptor, toolName string, client *dial.Client, logger log.Logger) (*CodeInterpreterTool, error) {
	if logger == nil {
		logger = log.NewNop()
	}
	for _, d := range descriptors {
		if d.Name == toolName {
			return &CodeInterpreterTool{
				session:    session,
				client:     client,
				descriptor: d,
				logger:     logger,
			}, nil
		}
	}
	return nil, fmt.Errorf("tool server does not advertise %q", toolName)
}

func (t *CodeInterpreterTool) Name() string                   { return t.descriptor.Name }
func (t *CodeInterpreterTool) Description() string            { return t.descriptor.Description }
func (t *CodeInterpreterTool) Parameters() *jsonschema.Schema { return t.descriptor.InputSchema }

// ShowInStage is false: the tool writes its own curated stage output.
func (t *CodeInterpreterTool) ShowInStage() bool { return false }

func (t *CodeInterpreterTool) execute(ctx context.Context, params *CallParams) (*Result, error) {
	var args map[string]any
	if err := decodeArguments(params, &args); err != nil {
		return nil, err
	}

	stage := params.stage()
	stage.AppendContent("## Request arguments: \n")
	code, _ := args["code"].(string)
	stage.AppendContent("```python\n" + code + "\n```\n")
	if sessionID, ok := args["session_id"].(string); ok && sessionID != "" {
		stage.AppendContent("**session_id**: " + sessionID + "\n")
	} else {
		stage.AppendContent("New session will be created\n")
	}
	stage.AppendContent("## Response: \n")

	content, err := t.session.CallTool(ctx, t.descriptor.Name, args)
	if err != nil {
		return nil, err
	}
	text, ok := content.(string)
	if !ok {
		return nil, fmt.Errorf("unexpected interpreter result type %T", content)
	}

	var result ExecutionResult
	if err := json.Unmarshal([]byte(text), &result); err != nil {
		return nil, fmt.Errorf("decode execution result: %w", err)
	}

	if len(result.Files) > 0 {
		if err := t.publishFiles(ctx, params, result.Files); err != nil {
			return nil, err
		}
		result.Instructions = fileInstructions
	}

	for i, fragment := range result.Output {
		result.Output[i] = truncate(fragment, outputFragmentLimit)
	}

	pretty, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode execution result: %w", err)
	}
	stage.AppendContent("```json\n" + string(pretty) + "\n```\n")

	compact, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("encode execution result: %w", err)
	}
	return Text(string(compact)), nil
}

// publishFiles copies each produced file from the interpreter server into the
// caller's file storage and attaches it to both the stage and the turn.
func (t *CodeInterpreterTool) publishFiles(ctx context.Context, params *CallParams, files []ExecutionFile) error {
	client := t.client.WithKey(params.APIKey)
	home, err := client.Home(ctx)
	if err != nil {
		return err
	}

	for _, file := range files {
		resource, err := t.session.ReadResource(ctx, file.URI)
		if err != nil {
			return err
		}
		data, err := resourceBytes(resource, file.MIMEType)
		if err != nil {
			return fmt.Errorf("file %q: %w", file.Name, err)
		}

		fileURL := "files/" + path.Join(home, file.Name)
		if err := client.UploadFile(ctx, fileURL, data, file.MIMEType); err != nil {
			return fmt.Errorf("file %q: %w", file.Name, err)
		}

		att := dial.Attachment{Type: file.MIMEType, Title: file.Name, URL: fileURL}
		params.stage().AddAttachment(att)
		params.choice().AddAttachment(att)
		t.logger.Debug("published execution file", "file", file.Name, "url", fileURL)
	}
	return nil
}

// resourceBytes normalizes a resource read into raw bytes: blobs come back as
// bytes already, textual resources as strings, and non-text MIME types read
// as strings are base64 payloads.
func resourceBytes(resource any, mimeType string) ([]byte, error) {
	switch v := resource.(type) {
	case []byte:
		return v, nil
	case string:
		if isTextMIME(mimeType) {
			return []byte(v), nil
		}
		data, err := base64.StdEncoding.DecodeString(v)
		if err != nil {
			return nil, fmt.Errorf("decode base64 resource: %w", err)
		}
		return data, nil
	default:
		return nil, fmt.Errorf("unexpected resource type %T", resource)
	}
}

func isTextMIME(mimeType string) bool {
	return strings.HasPrefix(mimeType, "text/") ||
		mimeType == "application/json" ||
		mimeType == "application/xml"
}

// truncate limits s to n bytes.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
