package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/jsonschema-go/jsonschema"

	"github.com/koopa0/dialtools/internal/dial"
	"github.com/koopa0/dialtools/internal/extract"
	"github.com/koopa0/dialtools/internal/log"
	"github.com/koopa0/dialtools/internal/rag"
)

// contentNotFound is the informational result when a document yields no text.
const contentNotFound = "Error: File content not found."

var ragParameters = &jsonschema.Schema{
	Type: "object",
	Properties: map[string]*jsonschema.Schema{
		"request": {
			Type:        "string",
			Description: "The question or search query to run against the document.",
		},
		"file_url": {
			Type:        "string",
			Description: "Storage URL of the document to search.",
		},
	},
	Required: []string{"request", "file_url"},
}

// RAGConfig holds the deployments and pipeline tuning for the RAG tool.
type RAGConfig struct {
	ChatDeployment       string
	EmbeddingsDeployment string
	Pipeline             rag.Config
}

// RAGTool answers a request from the content of one stored document:
// retrieval runs through the shared per-conversation cache, and the answer is
// generated by the chat deployment constrained to the retrieved context.
type RAGTool struct {
	client *dial.Client
	cache  *rag.Cache
	cfg    RAGConfig
	logger log.Logger
}

// NewRAGTool creates the document-answering tool. The cache is shared across
// calls so repeated questions about the same document skip re-indexing.
func NewRAGTool(client *dial.Client, cache *rag.Cache, cfg RAGConfig, logger log.Logger) *RAGTool {
	if logger == nil {
		logger = log.NewNop()
	}
	return &RAGTool{client: client, cache: cache, cfg: cfg, logger: logger}
}

func (t *RAGTool) Name() string { return "rag_tool" }

func (t *RAGTool) Description() string {
	return "Answers questions about the content of a document stored in file storage. " +
		"Use when the user asks about an attached or referenced file."
}

func (t *RAGTool) Parameters() *jsonschema.Schema { return ragParameters }

// ShowInStage is false: the tool writes its own curated stage output.
func (t *RAGTool) ShowInStage() bool { return false }

type ragArguments struct {
	Request string `json:"request"`
	FileURL string `json:"file_url"`
}

func (t *RAGTool) execute(ctx context.Context, params *CallParams) (*Result, error) {
	var args ragArguments
	if err := decodeArguments(params, &args); err != nil {
		return nil, err
	}
	if args.Request == "" {
		return nil, fmt.Errorf("missing request argument")
	}
	if args.FileURL == "" {
		return nil, fmt.Errorf("missing file_url argument")
	}

	stage := params.stage()
	stage.AppendContent("## Request arguments: \n")
	if pretty, err := json.MarshalIndent(args, "", "  "); err == nil {
		stage.AppendContent("```json\n" + string(pretty) + "\n```\n")
	}

	client := t.client.WithKey(params.APIKey)
	pipeline := rag.NewPipeline(
		extract.NewFileExtractor(client, t.logger),
		&dialEmbedder{client: client, deployment: t.cfg.EmbeddingsDeployment},
		t.cache,
		t.cfg.Pipeline,
		t.logger,
	)

	retrieval, err := pipeline.Retrieve(ctx, params.ConversationID, args.FileURL, args.Request)
	if err != nil {
		return nil, err
	}
	if !retrieval.ContentFound {
		stage.AppendContent("## Response: \n")
		stage.AppendContent(contentNotFound)
		return Text(contentNotFound), nil
	}

	stage.AppendContent("## RAG Request: \n")
	stage.AppendContent("```\n" + retrieval.Prompt + "\n```\n")
	stage.AppendContent("## Response: \n")

	stream, err := client.ChatChunk(ctx, dial.ChatRequest{
		Deployment: t.cfg.ChatDeployment,
		Messages: []dial.Message{
			{Role: dial.RoleSystem, Content: rag.SystemPrompt},
			{Role: dial.RoleUser, Content: retrieval.Prompt},
		},
	})
	if err != nil {
		return nil, err
	}
	defer func() { _ = stream.Close() }()

	text, _, err := Collect(stream, stage)
	if err != nil {
		return nil, err
	}
	return Text(text), nil
}

// dialEmbedder adapts the DIAL embeddings endpoint to the pipeline's
// Embedder interface.
type dialEmbedder struct {
	client     *dial.Client
	deployment string
}

func (e *dialEmbedder) Embed(ctx context.Context, inputs []string) ([][]float32, error) {
	return e.client.Embed(ctx, e.deployment, inputs)
}
