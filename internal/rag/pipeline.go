package rag

import (
	"context"
	"fmt"
	"strings"

	"github.com/koopa0/dialtools/internal/log"
)

// SystemPrompt instructs the answering model to stay within the retrieved
// context.
const SystemPrompt = `You are a helpful assistant that answers questions based on provided document context.

You will receive:
- CONTEXT: Retrieved relevant excerpts from a document
- REQUEST: The user's question or search query

Instructions:
- Answer the request using only the information in the provided context
- If the context doesn't contain enough information to answer, clearly state that
- Be concise and direct in your response`

// Extractor turns a stored document into plain text.
type Extractor interface {
	ExtractText(ctx context.Context, fileURL string) (string, error)
}

// Embedder computes one fixed-dimension vector per input string.
type Embedder interface {
	Embed(ctx context.Context, inputs []string) ([][]float32, error)
}

// Config holds the pipeline tuning knobs.
type Config struct {
	ChunkSize    int
	ChunkOverlap int
	TopK         int
}

// Retrieval is the outcome of one retrieval run.
type Retrieval struct {
	// ContentFound is false when extraction yielded no text; the other
	// fields are empty in that case. This is an informational outcome, not
	// an error.
	ContentFound bool

	// CacheHit reports whether extraction and embedding were skipped.
	CacheHit bool

	// Chunks are the retrieved chunks, most relevant first.
	Chunks []string

	// Prompt is the augmented user prompt for the answering model.
	Prompt string
}

// Pipeline chunks, embeds, indexes and retrieves document content, caching
// the expensive work per (conversation, document) pair.
type Pipeline struct {
	extractor Extractor
	embedder  Embedder
	cache     *Cache
	splitter  *Splitter
	topK      int
	logger    log.Logger
}

// NewPipeline wires a retrieval pipeline.
func NewPipeline(extractor Extractor, embedder Embedder, cache *Cache, cfg Config, logger log.Logger) *Pipeline {
	topK := cfg.TopK
	if topK <= 0 {
		topK = 3
	}
	if logger == nil {
		logger = log.NewNop()
	}
	return &Pipeline{
		extractor: extractor,
		embedder:  embedder,
		cache:     cache,
		splitter:  NewSplitter(cfg.ChunkSize, cfg.ChunkOverlap),
		topK:      topK,
		logger:    logger,
	}
}

// Retrieve runs the pipeline for one request against one document. On a
// cache hit for the (conversation, document) pair, extraction and embedding
// are skipped entirely.
func (p *Pipeline) Retrieve(ctx context.Context, conversationID, fileURL, request string) (*Retrieval, error) {
	key := Key(conversationID, fileURL)

	entry, hit := p.cache.Get(key)
	if !hit {
		var err error
		entry, err = p.build(ctx, fileURL)
		if err != nil {
			return nil, err
		}
		if entry == nil {
			return &Retrieval{ContentFound: false}, nil
		}
		p.cache.Set(key, entry)
	}

	queryVectors, err := p.embedder.Embed(ctx, []string{request})
	if err != nil {
		return nil, fmt.Errorf("embed request: %w", err)
	}
	if len(queryVectors) != 1 {
		return nil, fmt.Errorf("embed request: got %d vectors, want 1", len(queryVectors))
	}

	k := p.topK
	if n := len(entry.Chunks); k > n {
		k = n
	}
	indices, _, err := entry.Index.Search(queryVectors[0], k)
	if err != nil {
		return nil, fmt.Errorf("search index: %w", err)
	}

	retrieved := make([]string, len(indices))
	for i, idx := range indices {
		retrieved[i] = entry.Chunks[idx]
	}

	p.logger.Debug("retrieved chunks",
		"conversation", conversationID, "document", fileURL,
		"cache_hit", hit, "chunks", len(retrieved))

	return &Retrieval{
		ContentFound: true,
		CacheHit:     hit,
		Chunks:       retrieved,
		Prompt:       augment(request, retrieved),
	}, nil
}

// build extracts, chunks, embeds and indexes a document. Returns nil when
// the document has no extractable text.
func (p *Pipeline) build(ctx context.Context, fileURL string) (*Entry, error) {
	text, err := p.extractor.ExtractText(ctx, fileURL)
	if err != nil {
		return nil, fmt.Errorf("extract document text: %w", err)
	}
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}

	chunks := p.splitter.Split(text)
	if len(chunks) == 0 {
		return nil, nil
	}

	vectors, err := p.embedder.Embed(ctx, chunks)
	if err != nil {
		return nil, fmt.Errorf("embed chunks: %w", err)
	}
	if len(vectors) != len(chunks) {
		return nil, fmt.Errorf("embed chunks: got %d vectors for %d chunks", len(vectors), len(chunks))
	}

	index := NewIndex(len(vectors[0]))
	if err := index.Add(vectors...); err != nil {
		return nil, fmt.Errorf("build index: %w", err)
	}
	return &Entry{Index: index, Chunks: chunks}, nil
}

// augment combines the retrieved chunks with the user's request.
func augment(request string, chunks []string) string {
	return fmt.Sprintf("CONTEXT:\n%s\n---\nREQUEST: %s", strings.Join(chunks, "\n\n"), request)
}
