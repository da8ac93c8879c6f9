package tools

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/koopa0/dialtools/internal/dial"
)

// ChunkStream is an incremental model response: Recv returns deltas in
// arrival order and io.EOF at end of stream.
type ChunkStream interface {
	Recv() (*dial.Delta, error)
}

// Collect drains a stream, forwarding each text delta to the stage the
// moment it arrives and accumulating the full text and all attachments in
// arrival order. On a mid-stream error the content already forwarded to the
// stage stays visible; Collect returns what was accumulated alongside the
// error.
func Collect(stream ChunkStream, stage Stage) (string, []dial.Attachment, error) {
	if stage == nil {
		stage = NopStage{}
	}

	var text strings.Builder
	var attachments []dial.Attachment
	for {
		delta, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			return text.String(), attachments, nil
		}
		if err != nil {
			return text.String(), attachments, fmt.Errorf("stream completion: %w", err)
		}
		if delta == nil {
			continue
		}

		if delta.Content != "" {
			stage.AppendContent(delta.Content)
			text.WriteString(delta.Content)
		}
		for _, att := range delta.Attachments() {
			stage.AddAttachment(att)
			attachments = append(attachments, att)
		}
	}
}
