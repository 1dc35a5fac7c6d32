// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jeranaias/chillgpt-tui/internal/api"
	"github.com/jeranaias/chillgpt-tui/internal/model"
	"github.com/jeranaias/chillgpt-tui/internal/storage"
	"github.com/jeranaias/chillgpt-tui/internal/stream"
)

// newTestServer starts s behind httptest with rate limiting off.
func newTestServer(t *testing.T, responder Responder) (*Server, *httptest.Server) {
	t.Helper()
	store, err := storage.Open(storage.MemoryPath)
	if err != nil {
		t.Fatalf("storage.Open() error = %v", err)
	}
	t.Cleanup(func() { store.Close() })

	s := NewServer(store, responder).
		WithRateLimit(0).
		WithLogger(log.New(io.Discard, "", 0))
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return s, ts
}

// chat sends one user message and returns the full streamed reply.
func chat(t *testing.T, client *api.Client, text string, useRAG bool) (string, error) {
	t.Helper()
	ctx := context.Background()
	cs, err := client.Chat(ctx, api.ChatRequest{
		Messages: []model.ChatMessage{{Role: "user", Content: text}},
		UseRAG:   useRAG,
	})
	if err != nil {
		return "", err
	}
	return stream.NewConsumer(cs.Body, cs.Mode).Run(ctx, nil)
}

// =============================================================================
// CHAT TESTS
// =============================================================================

func TestChat_EchoStreamsPlainText(t *testing.T) {
	_, ts := newTestServer(t, EchoResponder{})
	client := api.NewClient(ts.URL, "sk-test")

	cs, err := client.Chat(context.Background(), api.ChatRequest{
		Messages: []model.ChatMessage{{Role: "user", Content: "hello there"}},
	})
	if err != nil {
		t.Fatalf("Chat() error = %v", err)
	}
	if cs.Mode != stream.ModeRaw {
		t.Errorf("Mode = %v, want raw", cs.Mode)
	}

	var snapshots []string
	final, err := stream.NewConsumer(cs.Body, cs.Mode).Run(context.Background(), func(s string) {
		snapshots = append(snapshots, s)
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if final != "You said: hello there" {
		t.Errorf("final = %q, want %q", final, "You said: hello there")
	}
	if len(snapshots) == 0 || snapshots[len(snapshots)-1] != final {
		t.Errorf("snapshots = %q, want last to equal final", snapshots)
	}
}

func TestChat_PyPalBody(t *testing.T) {
	_, ts := newTestServer(t, EchoResponder{})
	client := api.NewClient(ts.URL, "sk-test").WithDialect(api.DialectPyPal)

	if _, err := client.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	got, err := chat(t, client, "hi pal", false)
	if err != nil {
		t.Fatalf("chat() error = %v", err)
	}
	if got != "You said: hi pal" {
		t.Errorf("reply = %q", got)
	}
}

func TestChat_Validation(t *testing.T) {
	_, ts := newTestServer(t, EchoResponder{})

	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantDetail string
	}{
		{"missing key", `{"messages":[{"role":"user","content":"hi"}]}`, 400, "API key is required"},
		{"no messages", `{"api_key":"k"}`, 422, "field required"},
		{"bad json", `{"messages":`, 422, "Invalid JSON body"},
		{"empty body", ``, 422, "Request body is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := http.Post(ts.URL+"/api/chat", "application/json", strings.NewReader(tt.body))
			if err != nil {
				t.Fatalf("Post() error = %v", err)
			}
			defer resp.Body.Close()
			body, _ := io.ReadAll(resp.Body)

			if resp.StatusCode != tt.wantStatus {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.wantStatus)
			}
			if !strings.Contains(string(body), tt.wantDetail) {
				t.Errorf("body = %s, want detail containing %q", body, tt.wantDetail)
			}
		})
	}
}

func TestChat_ErrorBeforeOutputKeepsStatus(t *testing.T) {
	responder := ResponderFunc(func(ctx context.Context, req ChatRequest, emit func(string) error) error {
		return &api.TransportError{StatusCode: 401, Detail: "Incorrect API key provided", Err: api.ErrAuthFailed}
	})
	s, ts := newTestServer(t, responder)

	_, err := chat(t, api.NewClient(ts.URL, "sk-bad"), "hi", false)
	if !errors.Is(err, api.ErrAuthFailed) {
		t.Fatalf("error = %v, want ErrAuthFailed", err)
	}
	var te *api.TransportError
	if !errors.As(err, &te) || !strings.Contains(te.Detail, "Incorrect API key") {
		t.Errorf("detail = %v, want upstream detail", err)
	}
	if got := s.Stats().ChatFailures; got != 1 {
		t.Errorf("ChatFailures = %d, want 1", got)
	}
}

func TestChat_ErrorAfterOutputDropsConnection(t *testing.T) {
	responder := ResponderFunc(func(ctx context.Context, req ChatRequest, emit func(string) error) error {
		if err := emit("partial "); err != nil {
			return err
		}
		return errors.New("upstream went away")
	})
	_, ts := newTestServer(t, responder)

	got, err := chat(t, api.NewClient(ts.URL, "sk-test"), "hi", false)
	var se *stream.StreamError
	if !errors.As(err, &se) {
		t.Fatalf("error = %v, want *stream.StreamError", err)
	}
	if got != "partial " {
		t.Errorf("partial = %q, want %q", got, "partial ")
	}
}

func TestStatusForError(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{&api.TransportError{StatusCode: 429, Err: api.ErrRateLimited}, 429},
		{&api.TransportError{StatusCode: 503, Err: api.ErrServer}, http.StatusBadGateway},
		{fmt.Errorf("wrapped: %w", &api.TransportError{StatusCode: 404}), 404},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := statusForError(tt.err); got != tt.want {
			t.Errorf("statusForError(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

// =============================================================================
// UPSTREAM RESPONDER TESTS
// =============================================================================

func TestUpstreamResponder_ReemitsDeltas(t *testing.T) {
	var gotAuth, gotPath string
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		w.Header().Set("Content-Type", "text/event-stream")
		for _, part := range []string{"Hel", "lo ", "wörld"} {
			fmt.Fprintf(w, "data: {\"choices\":[{\"delta\":{\"content\":%q}}]}\n\n", part)
			w.(http.Flusher).Flush()
		}
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer upstream.Close()

	var deltas []string
	err := NewUpstreamResponder(upstream.URL).Respond(context.Background(), ChatRequest{
		Messages: []model.ChatMessage{{Role: "user", Content: "hi"}},
		Model:    "gpt-4.1-mini",
		APIKey:   "sk-up",
	}, func(d string) error {
		deltas = append(deltas, d)
		return nil
	})
	if err != nil {
		t.Fatalf("Respond() error = %v", err)
	}

	if got := strings.Join(deltas, ""); got != "Hello wörld" {
		t.Errorf("joined deltas = %q, want %q", got, "Hello wörld")
	}
	if gotAuth != "Bearer sk-up" {
		t.Errorf("Authorization = %q, want %q", gotAuth, "Bearer sk-up")
	}
	if gotPath != "/chat/completions" {
		t.Errorf("path = %q, want /chat/completions", gotPath)
	}
}

func TestUpstreamResponder_EndToEnd(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"chill \"}}]}\n\n")
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"vibes\"}}]}\n\n")
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer upstream.Close()

	_, ts := newTestServer(t, NewUpstreamResponder(upstream.URL))
	got, err := chat(t, api.NewClient(ts.URL, "sk-test"), "hi", false)
	if err != nil {
		t.Fatalf("chat() error = %v", err)
	}
	if got != "chill vibes" {
		t.Errorf("reply = %q, want %q", got, "chill vibes")
	}
}

func TestEchoResponder_Cancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var words []string
	err := EchoResponder{Delay: time.Millisecond}.Respond(ctx, ChatRequest{
		Messages: []model.ChatMessage{{Role: "user", Content: "one two three four"}},
	}, func(w string) error {
		words = append(words, w)
		if len(words) == 2 {
			cancel()
		}
		return nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("error = %v, want context.Canceled", err)
	}
	if len(words) != 2 {
		t.Errorf("words = %q, want 2", words)
	}
}

// =============================================================================
// DOCUMENT TESTS
// =============================================================================

func TestDocuments_Lifecycle(t *testing.T) {
	s, ts := newTestServer(t, EchoResponder{})
	client := api.NewClient(ts.URL, "sk-test")
	ctx := context.Background()

	status, err := client.Status(ctx)
	if err != nil {
		t.Fatalf("Status() error = %v", err)
	}
	if status.HasDocuments || status.UploadedDocuments == nil {
		t.Errorf("empty status = %+v, want no documents and a non-nil list", status)
	}

	res, err := client.Upload(ctx, "notes.md", strings.NewReader(strings.Repeat("a", 1500)))
	if err != nil {
		t.Fatalf("Upload() error = %v", err)
	}
	if res.ChunkCount != 2 {
		t.Errorf("ChunkCount = %d, want 2", res.ChunkCount)
	}
	if res.Message != "Document notes.md uploaded successfully" {
		t.Errorf("Message = %q", res.Message)
	}
	if _, err := client.Upload(ctx, "my notes.txt", strings.NewReader("second")); err != nil {
		t.Fatalf("Upload() error = %v", err)
	}

	status, _ = client.Status(ctx)
	if !status.HasDocuments || status.DocumentCount != 3 || len(status.UploadedDocuments) != 2 {
		t.Errorf("status = %+v, want 2 documents with 3 chunks", status)
	}
	if status.UploadedDocuments[0].UploadedAt().IsZero() {
		t.Error("UploadedAt should be set")
	}

	list, _ := client.List(ctx)
	if list.Total != 2 || list.Documents[1].Filename != "my notes.txt" {
		t.Errorf("list = %+v", list)
	}

	if _, err := client.Delete(ctx, "my notes.txt"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := client.Delete(ctx, "my notes.txt"); !errors.Is(err, api.ErrNotFound) {
		t.Errorf("second Delete() error = %v, want ErrNotFound", err)
	}

	if _, err := client.ClearDocuments(ctx); err != nil {
		t.Fatalf("ClearDocuments() error = %v", err)
	}
	list, _ = client.List(ctx)
	if list.Total != 0 {
		t.Errorf("Total after clear = %d, want 0", list.Total)
	}

	if got := s.Stats().Uploads; got != 2 {
		t.Errorf("Uploads = %d, want 2", got)
	}
}

func TestUpload_Rejections(t *testing.T) {
	_, ts := newTestServer(t, EchoResponder{})
	ctx := context.Background()

	tests := []struct {
		name       string
		apiKey     string
		filename   string
		content    string
		wantDetail string
	}{
		{"pdf", "sk-test", "paper.pdf", "%PDF", "Only .txt, .md and .markdown files are allowed"},
		{"missing key", "", "notes.txt", "hello", "API key is required"},
		{"empty", "sk-test", "blank.txt", "   ", "Document blank.txt is empty"},
		{"binary", "sk-test", "bin.txt", "\xff\xfe\x00", "Document must be UTF-8 text"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := api.NewClient(ts.URL, tt.apiKey).Upload(ctx, tt.filename, strings.NewReader(tt.content))
			var te *api.TransportError
			if !errors.As(err, &te) {
				t.Fatalf("error = %v, want *api.TransportError", err)
			}
			if te.StatusCode != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", te.StatusCode)
			}
			if te.Detail != tt.wantDetail {
				t.Errorf("detail = %q, want %q", te.Detail, tt.wantDetail)
			}
		})
	}
}

func TestHealth(t *testing.T) {
	_, ts := newTestServer(t, nil)
	health, err := api.NewClient(ts.URL, "").Health(context.Background())
	if err != nil {
		t.Fatalf("Health() error = %v", err)
	}
	if health.Status != "ok" || !health.RAGEnabled {
		t.Errorf("health = %+v, want ok with rag", health)
	}
}

func TestNoStore(t *testing.T) {
	s := NewServer(nil, EchoResponder{}).WithRateLimit(0).WithLogger(log.New(io.Discard, "", 0))
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()
	client := api.NewClient(ts.URL, "sk-test")
	ctx := context.Background()

	health, _ := client.Health(ctx)
	if health.RAGEnabled {
		t.Error("RAGEnabled should be false without a store")
	}
	if _, err := client.Upload(ctx, "a.txt", strings.NewReader("x")); err == nil {
		t.Error("Upload() should fail without a store")
	}
	got, err := chat(t, client, "hi", true)
	if err != nil || got != "You said: hi" {
		t.Errorf("chat() = %q, %v; retrieval should be skipped", got, err)
	}
}

// =============================================================================
// RETRIEVAL TESTS
// =============================================================================

func TestChat_Retrieval(t *testing.T) {
	_, ts := newTestServer(t, EchoResponder{})
	client := api.NewClient(ts.URL, "sk-test")
	ctx := context.Background()

	got, err := chat(t, client, "what is the deploy step?", true)
	if err != nil {
		t.Fatalf("chat() error = %v", err)
	}
	if !strings.Contains(got, "no documents have been uploaded yet") {
		t.Errorf("reply without documents = %q", got)
	}

	client.Upload(ctx, "deploy.md", strings.NewReader("To deploy the service run make release on the build host."))

	tests := []struct {
		name     string
		question string
		want     string
	}{
		{"match", "How do I deploy the service?", "Context 1: To deploy the service"},
		{"no match", "Who painted the ceiling?", "I can only answer questions based on the content of the 1 document(s)"},
		{"meta", "What documents do you have?", "- deploy.md"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := chat(t, client, tt.question, true)
			if err != nil {
				t.Fatalf("chat() error = %v", err)
			}
			if !strings.Contains(got, tt.want) {
				t.Errorf("reply = %q, want it to contain %q", got, tt.want)
			}
		})
	}

	got, _ = chat(t, client, "How do I deploy the service?", false)
	if got != "You said: How do I deploy the service?" {
		t.Errorf("reply without use_rag = %q", got)
	}
}

func TestIsMetaQuery(t *testing.T) {
	tests := []struct {
		q    string
		want bool
	}{
		{"Which FILES are loaded?", true},
		{"show me the document list", true},
		{"what's in your context right now", true},
		{"how do I deploy?", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := IsMetaQuery(tt.q); got != tt.want {
			t.Errorf("IsMetaQuery(%q) = %v, want %v", tt.q, got, tt.want)
		}
	}
}

func TestAllowedUpload(t *testing.T) {
	for name, want := range map[string]bool{
		"a.txt": true, "B.MD": true, "c.markdown": true,
		"d.pdf": false, "noext": false, "e.txt.exe": false,
	} {
		if got := AllowedUpload(name); got != want {
			t.Errorf("AllowedUpload(%q) = %v, want %v", name, got, want)
		}
	}
}

// =============================================================================
// LIFECYCLE TESTS
// =============================================================================

func TestServer_ServeAndShutdown(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen() error = %v", err)
	}
	s := NewServer(nil, nil).WithLogger(log.New(io.Discard, "", 0))

	var wg sync.WaitGroup
	var serveErr error
	wg.Add(1)
	go func() {
		defer wg.Done()
		serveErr = s.Serve(ln)
	}()

	client := api.NewClient("http://"+ln.Addr().String(), "")
	var health *api.HealthStatus
	for i := 0; i < 50; i++ {
		if health, err = client.Health(context.Background()); err == nil {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	if err != nil || health.Status != "ok" {
		t.Fatalf("Health() = %+v, %v", health, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}
	wg.Wait()
	if serveErr != nil {
		t.Errorf("Serve() error = %v, want nil after shutdown", serveErr)
	}
}

func TestServer_Addr(t *testing.T) {
	s := NewServer(nil, nil)
	if s.Addr() != "127.0.0.1:8000" {
		t.Errorf("Addr() = %q, want default", s.Addr())
	}
	s.WithAddress("", 9001)
	if s.Addr() != "127.0.0.1:9001" {
		t.Errorf("Addr() = %q, want port override", s.Addr())
	}
}
