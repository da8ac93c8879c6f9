package dial

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// Role identifies the author of a chat message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Attachment is a DIAL attachment: either inline data or a URL, with display
// metadata and an optional reference back to the source.
type Attachment struct {
	Type          string `json:"type,omitempty"`
	Title         string `json:"title,omitempty"`
	Data          string `json:"data,omitempty"`
	URL           string `json:"url,omitempty"`
	ReferenceURL  string `json:"reference_url,omitempty"`
	ReferenceType string `json:"reference_type,omitempty"`
}

// CustomContent carries DIAL-specific message extensions.
type CustomContent struct {
	Attachments []Attachment `json:"attachments,omitempty"`
}

// Message is one chat turn. Tool results use RoleTool with Name and
// ToolCallID correlating back to the originating tool call.
type Message struct {
	Role          Role           `json:"role"`
	Content       string         `json:"content,omitempty"`
	Name          string         `json:"name,omitempty"`
	ToolCallID    string         `json:"tool_call_id,omitempty"`
	CustomContent *CustomContent `json:"custom_content,omitempty"`
}

// ChatRequest describes a streaming completion against one deployment.
// Configuration, when set, is forwarded as custom_fields.configuration.
type ChatRequest struct {
	Deployment    string
	Messages      []Message
	Configuration map[string]any
}

// Delta is one streamed increment: optional text and optional attachments.
// An empty Delta is valid and means "nothing new in this increment".
type Delta struct {
	Content       string         `json:"content,omitempty"`
	CustomContent *CustomContent `json:"custom_content,omitempty"`
}

// Attachments returns the attachment list of the delta, nil-safe.
func (d *Delta) Attachments() []Attachment {
	if d == nil || d.CustomContent == nil {
		return nil
	}
	return d.CustomContent.Attachments
}

type chatWireRequest struct {
	Messages     []Message      `json:"messages"`
	Stream       bool           `json:"stream"`
	CustomFields map[string]any `json:"custom_fields,omitempty"`
}

type chatWireChunk struct {
	Choices []struct {
		Delta *Delta `json:"delta"`
	} `json:"choices"`
}

// ChatStream is an incremental completion response. Recv returns deltas in
// arrival order and io.EOF once the server signals completion.
type ChatStream struct {
	body    io.ReadCloser
	scanner *bufio.Scanner
	done    bool
}

// ChatChunk starts a streaming chat completion.
func (c *Client) ChatChunk(ctx context.Context, req ChatRequest) (*ChatStream, error) {
	if req.Deployment == "" {
		return nil, errors.New("chat: deployment is required")
	}

	wire := chatWireRequest{Messages: req.Messages, Stream: true}
	if len(req.Configuration) > 0 {
		wire.CustomFields = map[string]any{"configuration": req.Configuration}
	}

	payload, err := json.Marshal(wire)
	if err != nil {
		return nil, fmt.Errorf("chat: marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.deploymentURL(req.Deployment, "chat/completions"), bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("chat: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("chat: %w", err)
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	return &ChatStream{body: resp.Body, scanner: scanner}, nil
}

// Recv returns the next non-empty delta. Increments without choices or
// without a delta are skipped. Returns io.EOF after the [DONE] sentinel or
// when the server closes the stream.
func (s *ChatStream) Recv() (*Delta, error) {
	if s.done {
		return nil, io.EOF
	}
	for s.scanner.Scan() {
		line := strings.TrimSpace(s.scanner.Text())
		if line == "" || !strings.HasPrefix(line, "data:") {
			continue
		}
		data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if data == "[DONE]" {
			s.done = true
			return nil, io.EOF
		}

		var chunk chatWireChunk
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			return nil, fmt.Errorf("chat: malformed stream chunk: %w", err)
		}
		if len(chunk.Choices) == 0 || chunk.Choices[0].Delta == nil {
			continue
		}
		return chunk.Choices[0].Delta, nil
	}
	if err := s.scanner.Err(); err != nil {
		return nil, fmt.Errorf("chat: stream read: %w", err)
	}
	s.done = true
	return nil, io.EOF
}

// Close releases the underlying response body. Safe to call more than once.
func (s *ChatStream) Close() error {
	s.done = true
	return s.body.Close()
}
