package dial

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

// sseHandler writes the given SSE frames and terminates the stream.
func sseHandler(t *testing.T, frames []string, wantAPIKey string) http.HandlerFunc {
	t.Helper()
	return func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Api-Key"); wantAPIKey != "" && got != wantAPIKey {
			t.Errorf("Api-Key header = %q, want %q", got, wantAPIKey)
		}
		if got := r.URL.Query().Get("api-version"); got == "" {
			t.Error("api-version query parameter missing")
		}
		w.Header().Set("Content-Type", "text/event-stream")
		for _, frame := range frames {
			_, _ = io.WriteString(w, "data: "+frame+"\n\n")
		}
		_, _ = io.WriteString(w, "data: [DONE]\n\n")
	}
}

func collectDeltas(t *testing.T, stream *ChatStream) []*Delta {
	t.Helper()
	var deltas []*Delta
	for {
		delta, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			return deltas
		}
		if err != nil {
			t.Fatalf("Recv() unexpected error: %v", err)
		}
		deltas = append(deltas, delta)
	}
}

func TestChatChunk_StreamsTextDeltas(t *testing.T) {
	frames := []string{
		`{"choices":[{"delta":{"content":"Hello"}}]}`,
		`{"choices":[]}`,
		`{"choices":[{"delta":{"content":", world"}}]}`,
	}
	srv := httptest.NewServer(sseHandler(t, frames, "secret"))
	defer srv.Close()

	client := New(srv.URL, WithAPIKey("secret"))
	stream, err := client.ChatChunk(context.Background(), ChatRequest{
		Deployment: "gpt-4o",
		Messages:   []Message{{Role: RoleUser, Content: "hi"}},
	})
	if err != nil {
		t.Fatalf("ChatChunk() unexpected error: %v", err)
	}
	defer func() { _ = stream.Close() }()

	deltas := collectDeltas(t, stream)
	// The empty-choices frame is a no-op, not a delta.
	if len(deltas) != 2 {
		t.Fatalf("Recv() yielded %d deltas, want 2", len(deltas))
	}
	if got := deltas[0].Content + deltas[1].Content; got != "Hello, world" {
		t.Errorf("concatenated content = %q, want %q", got, "Hello, world")
	}
}

func TestChatChunk_StreamsAttachmentDeltas(t *testing.T) {
	frames := []string{
		`{"choices":[{"delta":{"custom_content":{"attachments":[{"type":"image/png","title":"plot","url":"files/home/plot.png"}]}}}]}`,
	}
	srv := httptest.NewServer(sseHandler(t, frames, ""))
	defer srv.Close()

	client := New(srv.URL)
	stream, err := client.ChatChunk(context.Background(), ChatRequest{Deployment: "d"})
	if err != nil {
		t.Fatalf("ChatChunk() unexpected error: %v", err)
	}
	defer func() { _ = stream.Close() }()

	deltas := collectDeltas(t, stream)
	if len(deltas) != 1 {
		t.Fatalf("Recv() yielded %d deltas, want 1", len(deltas))
	}
	atts := deltas[0].Attachments()
	if len(atts) != 1 {
		t.Fatalf("Attachments() = %d items, want 1", len(atts))
	}
	if atts[0].Title != "plot" || atts[0].URL != "files/home/plot.png" {
		t.Errorf("attachment = %+v, want title %q url %q", atts[0], "plot", "files/home/plot.png")
	}
}

func TestChatChunk_RecvAfterDoneReturnsEOF(t *testing.T) {
	srv := httptest.NewServer(sseHandler(t, nil, ""))
	defer srv.Close()

	client := New(srv.URL)
	stream, err := client.ChatChunk(context.Background(), ChatRequest{Deployment: "d"})
	if err != nil {
		t.Fatalf("ChatChunk() unexpected error: %v", err)
	}
	defer func() { _ = stream.Close() }()

	if _, err := stream.Recv(); !errors.Is(err, io.EOF) {
		t.Fatalf("Recv() error = %v, want io.EOF", err)
	}
	if _, err := stream.Recv(); !errors.Is(err, io.EOF) {
		t.Fatalf("second Recv() error = %v, want io.EOF", err)
	}
}

func TestChatChunk_MissingDeployment(t *testing.T) {
	client := New("https://dial.example.com")
	if _, err := client.ChatChunk(context.Background(), ChatRequest{}); err == nil {
		t.Fatal("ChatChunk() error = nil, want deployment error")
	}
}

func TestChatChunk_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "no such deployment", http.StatusNotFound)
	}))
	defer srv.Close()

	client := New(srv.URL)
	if _, err := client.ChatChunk(context.Background(), ChatRequest{Deployment: "missing"}); err == nil {
		t.Fatal("ChatChunk() error = nil, want status error")
	}
}
