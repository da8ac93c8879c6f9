package tools

import (
	"context"
	"errors"

	"github.com/google/jsonschema-go/jsonschema"

	"github.com/koopa0/dialtools/internal/dial"
	"github.com/koopa0/dialtools/internal/log"
)

// defaultDeploymentParameters is the argument schema used when a deployment
// tool does not declare its own: a single required prompt.
var defaultDeploymentParameters = &jsonschema.Schema{
	Type: "object",
	Properties: map[string]*jsonschema.Schema{
		"prompt": {
			Type:        "string",
			Description: "The prompt to send to the deployment.",
		},
	},
	Required: []string{"prompt"},
}

// DeploymentConfig declares one model deployment exposed as a tool.
type DeploymentConfig struct {
	// Name is the tool name advertised to the model.
	Name string

	// Description is the tool description advertised to the model.
	Description string

	// Deployment is the DIAL deployment the tool calls.
	Deployment string

	// Parameters overrides the advertised argument schema. Must include a
	// "prompt" property; all other arguments are forwarded as the
	// deployment's per-request configuration.
	Parameters *jsonschema.Schema
}

// DeploymentTool exposes a model deployment as a tool: the prompt argument
// becomes the user message, every other argument is forwarded as request
// configuration, and the streamed response is mirrored to the stage while it
// arrives.
type DeploymentTool struct {
	client *dial.Client
	cfg    DeploymentConfig
	logger log.Logger
}

// NewDeploymentTool creates a deployment-backed tool.
func NewDeploymentTool(client *dial.Client, cfg DeploymentConfig, logger log.Logger) (*DeploymentTool, error) {
	if cfg.Name == "" {
		return nil, errors.New("deployment tool needs a name")
	}
	if cfg.Deployment == "" {
		return nil, errors.New("deployment tool needs a deployment")
	}
	if logger == nil {
		logger = log.NewNop()
	}
	return &DeploymentTool{client: client, cfg: cfg, logger: logger}, nil
}

func (t *DeploymentTool) Name() string        { return t.cfg.Name }
func (t *DeploymentTool) Description() string { return t.cfg.Description }
func (t *DeploymentTool) ShowInStage() bool   { return true }

func (t *DeploymentTool) Parameters() *jsonschema.Schema {
	if t.cfg.Parameters != nil {
		return t.cfg.Parameters
	}
	return defaultDeploymentParameters
}

func (t *DeploymentTool) execute(ctx context.Context, params *CallParams) (*Result, error) {
	var args map[string]any
	if err := decodeArguments(params, &args); err != nil {
		return nil, err
	}

	prompt, _ := args["prompt"].(string)
	if prompt == "" {
		return nil, errors.New("missing prompt argument")
	}
	delete(args, "prompt")

	stream, err := t.client.WithKey(params.APIKey).ChatChunk(ctx, dial.ChatRequest{
		Deployment:    t.cfg.Deployment,
		Messages:      []dial.Message{{Role: dial.RoleUser, Content: prompt}},
		Configuration: args,
	})
	if err != nil {
		return nil, err
	}
	defer func() { _ = stream.Close() }()

	text, attachments, err := Collect(stream, params.Stage)
	if err != nil {
		return nil, err
	}

	msg := &dial.Message{
		Role:       dial.RoleTool,
		Content:    text,
		Name:       t.cfg.Name,
		ToolCallID: params.CallID,
	}
	if len(attachments) > 0 {
		msg.CustomContent = &dial.CustomContent{Attachments: attachments}
	}
	t.logger.Debug("deployment tool completed",
		"tool", t.cfg.Name, "deployment", t.cfg.Deployment,
		"chars", len(text), "attachments", len(attachments))
	return FromMessage(msg), nil
}
