package dial

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
)

type embeddingsWireRequest struct {
	Input []string `json:"input"`
}

type embeddingsWireResponse struct {
	Data []struct {
		Index     int       `json:"index"`
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

// Embed computes one embedding vector per input string using the given
// embeddings deployment. Vectors are returned in input order.
func (c *Client) Embed(ctx context.Context, deployment string, inputs []string) ([][]float32, error) {
	if deployment == "" {
		return nil, errors.New("embed: deployment is required")
	}
	if len(inputs) == 0 {
		return nil, nil
	}

	payload, err := json.Marshal(embeddingsWireRequest{Input: inputs})
	if err != nil {
		return nil, fmt.Errorf("embed: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.deploymentURL(deployment, "embeddings"), bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("embed: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.do(req)
	if err != nil {
		return nil, fmt.Errorf("embed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	var wire embeddingsWireResponse
	if err := json.NewDecoder(resp.Body).Decode(&wire); err != nil {
		return nil, fmt.Errorf("embed: decode response: %w", err)
	}
	if len(wire.Data) != len(inputs) {
		return nil, fmt.Errorf("embed: got %d vectors for %d inputs", len(wire.Data), len(inputs))
	}

	sort.Slice(wire.Data, func(i, j int) bool { return wire.Data[i].Index < wire.Data[j].Index })
	vectors := make([][]float32, len(wire.Data))
	for i, d := range wire.Data {
		vectors[i] = d.Embedding
	}
	return vectors, nil
}
