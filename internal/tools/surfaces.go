package tools

import (
	"strings"
	"sync"

	"github.com/koopa0/dialtools/internal/dial"
)

// Stage is the append-only progress surface a tool writes to while it runs.
// Appended content is user-visible immediately; there is no way to retract it.
type Stage interface {
	AppendContent(content string)
	AddAttachment(att dial.Attachment)
}

// Choice receives attachments that belong to the conversation turn itself
// rather than to the tool's progress output.
type Choice interface {
	AddAttachment(att dial.Attachment)
}

// NopStage discards everything written to it.
type NopStage struct{}

func (NopStage) AppendContent(string)          {}
func (NopStage) AddAttachment(dial.Attachment) {}

// NopChoice discards attachments.
type NopChoice struct{}

func (NopChoice) AddAttachment(dial.Attachment) {}

// BufferStage records appended content and attachments in order. Used by the
// CLI and by tests to observe what a tool surfaced.
type BufferStage struct {
	mu    sync.Mutex
	parts []string
	atts  []dial.Attachment
}

func (b *BufferStage) AppendContent(content string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.parts = append(b.parts, content)
}

func (b *BufferStage) AddAttachment(att dial.Attachment) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.atts = append(b.atts, att)
}

// Content returns everything appended so far, concatenated.
func (b *BufferStage) Content() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return strings.Join(b.parts, "")
}

// Parts returns the individual appends in order.
func (b *BufferStage) Parts() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.parts...)
}

// Attachments returns the attachments added so far.
func (b *BufferStage) Attachments() []dial.Attachment {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]dial.Attachment(nil), b.atts...)
}

// BufferChoice records turn attachments for inspection.
type BufferChoice struct {
	mu   sync.Mutex
	atts []dial.Attachment
}

func (b *BufferChoice) AddAttachment(att dial.Attachment) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.atts = append(b.atts, att)
}

// Attachments returns the attachments added so far.
func (b *BufferChoice) Attachments() []dial.Attachment {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]dial.Attachment(nil), b.atts...)
}
