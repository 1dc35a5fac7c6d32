// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/jeranaias/chillgpt-tui/internal/model"
	"github.com/jeranaias/chillgpt-tui/internal/stream"
)

// =============================================================================
// CHAT TESTS
// =============================================================================

func TestChat_ChillGPTDialect(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			t.Errorf("Expected path /api/chat, got %s", r.URL.Path)
		}
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("Failed to decode body: %v", err)
		}
		if body["api_key"] != "sk-test" {
			t.Errorf("Expected api_key sk-test, got %v", body["api_key"])
		}
		if body["model"] != "gpt-4.1-nano" {
			t.Errorf("Expected model gpt-4.1-nano, got %v", body["model"])
		}
		if body["use_rag"] != true {
			t.Errorf("Expected use_rag true, got %v", body["use_rag"])
		}
		msgs, _ := body["messages"].([]any)
		if len(msgs) != 2 {
			t.Errorf("Expected 2 messages, got %d", len(msgs))
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Write([]byte("Hello there"))
	}))
	defer server.Close()

	client := NewClient(server.URL, "")
	cs, err := client.Chat(context.Background(), ChatRequest{
		Messages: []model.ChatMessage{
			{Role: "system", Content: "Be chill."},
			{Role: "user", Content: "Hi"},
		},
		Model:  "gpt-4.1-nano",
		APIKey: "sk-test",
		UseRAG: true,
	})
	if err != nil {
		t.Fatalf("Chat failed: %v", err)
	}
	defer cs.Body.Close()

	if cs.Mode != stream.ModeRaw {
		t.Errorf("Expected raw mode, got %v", cs.Mode)
	}
	data, _ := io.ReadAll(cs.Body)
	if string(data) != "Hello there" {
		t.Errorf("Expected body %q, got %q", "Hello there", data)
	}
}

func TestChat_OpenAIDialect(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("Expected path /chat/completions, got %s", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer sk-client" {
			t.Errorf("Expected bearer auth from client key, got %q", auth)
		}
		var body openAIChatBody
		json.NewDecoder(r.Body).Decode(&body)
		if !body.Stream {
			t.Error("Expected stream=true")
		}
		if body.Model != model.DefaultModel {
			t.Errorf("Expected default model, got %q", body.Model)
		}
		w.Header().Set("Content-Type", "text/event-stream")
		w.Write([]byte("data: {\"choices\":[{\"delta\":{\"content\":\"ab\"}}]}\n\ndata: [DONE]\n\n"))
	}))
	defer server.Close()

	client := NewClient(server.URL, "sk-client").WithDialect(DialectOpenAI)
	cs, err := client.Chat(context.Background(), ChatRequest{
		Messages: []model.ChatMessage{{Role: "user", Content: "Hi"}},
	})
	if err != nil {
		t.Fatalf("Chat failed: %v", err)
	}

	if cs.Mode != stream.ModeEventLine {
		t.Fatalf("Expected event-line mode, got %v", cs.Mode)
	}
	final, err := stream.NewConsumer(cs.Body, cs.Mode).Run(context.Background(), nil)
	if err != nil {
		t.Fatalf("Consumer failed: %v", err)
	}
	if final != "ab" {
		t.Errorf("Expected %q, got %q", "ab", final)
	}
}

func TestChat_PyPalDialectSendsLastUserMessage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body pypalChatBody
		json.NewDecoder(r.Body).Decode(&body)
		if body.UserMessage != "second" {
			t.Errorf("Expected user_message %q, got %q", "second", body.UserMessage)
		}
		w.Write([]byte("ok"))
	}))
	defer server.Close()

	client := NewClient(server.URL, "sk-x").WithDialect(DialectPyPal)
	cs, err := client.Chat(context.Background(), ChatRequest{
		Messages: []model.ChatMessage{
			{Role: "user", Content: "first"},
			{Role: "assistant", Content: "reply"},
			{Role: "user", Content: "second"},
		},
	})
	if err != nil {
		t.Fatalf("Chat failed: %v", err)
	}
	cs.Body.Close()
}

func TestChat_StreamModeOverride(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/octet-stream")
		w.Write([]byte("data: [DONE]\n"))
	}))
	defer server.Close()

	client := NewClient(server.URL, "k").WithStreamMode(stream.ModeEventLine)
	cs, err := client.Chat(context.Background(), ChatRequest{})
	if err != nil {
		t.Fatalf("Chat failed: %v", err)
	}
	defer cs.Body.Close()
	if cs.Mode != stream.ModeEventLine {
		t.Errorf("Expected forced event-line mode, got %v", cs.Mode)
	}
}

// =============================================================================
// ERROR TESTS
// =============================================================================

func TestChat_ErrorResponses(t *testing.T) {
	tests := []struct {
		name           string
		status         int
		body           string
		expectedErr    error
		expectedDetail string
	}{
		{
			name:           "fastapi detail string",
			status:         http.StatusInternalServerError,
			body:           `{"detail":"Incorrect API key provided"}`,
			expectedErr:    ErrServer,
			expectedDetail: "Incorrect API key provided",
		},
		{
			name:           "fastapi validation list",
			status:         http.StatusUnprocessableEntity,
			body:           `{"detail":[{"loc":["body","api_key"],"msg":"field required"}]}`,
			expectedErr:    ErrBadRequest,
			expectedDetail: "field required",
		},
		{
			name:           "openai error object",
			status:         http.StatusUnauthorized,
			body:           `{"error":{"message":"Invalid key","type":"invalid_request_error"}}`,
			expectedErr:    ErrAuthFailed,
			expectedDetail: "Invalid key",
		},
		{
			name:           "plain text",
			status:         http.StatusTooManyRequests,
			body:           "slow down",
			expectedErr:    ErrRateLimited,
			expectedDetail: "slow down",
		},
		{
			name:           "missing route",
			status:         http.StatusNotFound,
			body:           "",
			expectedErr:    ErrNotFound,
			expectedDetail: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			_, err := NewClient(server.URL, "k").Chat(context.Background(), ChatRequest{})
			if !errors.Is(err, tt.expectedErr) {
				t.Fatalf("Expected %v, got %v", tt.expectedErr, err)
			}
			var te *TransportError
			if !errors.As(err, &te) {
				t.Fatalf("Expected *TransportError, got %T", err)
			}
			if te.StatusCode != tt.status {
				t.Errorf("Expected status %d, got %d", tt.status, te.StatusCode)
			}
			if te.Detail != tt.expectedDetail {
				t.Errorf("Expected detail %q, got %q", tt.expectedDetail, te.Detail)
			}
			if te.UserMessage() == "" {
				t.Error("Expected a user message")
			}
		})
	}
}

func TestChat_NoContentIsMissingBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	_, err := NewClient(server.URL, "k").Chat(context.Background(), ChatRequest{})
	if !errors.Is(err, stream.ErrNoBody) {
		t.Fatalf("Expected ErrNoBody, got %v", err)
	}
}

func TestChat_EmptyOKBodyEndsCleanly(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	cs, err := NewClient(server.URL, "k").Chat(context.Background(), ChatRequest{})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	defer cs.Body.Close()

	final, err := stream.NewConsumer(cs.Body, cs.Mode).Run(context.Background(), nil)
	if err != nil {
		t.Fatalf("Expected a clean end of stream, got %v", err)
	}
	if final != "" {
		t.Errorf("Expected empty reply, got %q", final)
	}
}

func TestChat_RateLimitHonorsContext(t *testing.T) {
	client := NewClient("http://127.0.0.1:1", "k").WithRateLimit(0.001, 1)
	// Spend the single token.
	client.limiter.Allow()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if _, err := client.Chat(ctx, ChatRequest{}); err == nil {
		t.Fatal("Expected rate limiter wait to fail")
	}
}

// =============================================================================
// DOCUMENT TESTS
// =============================================================================

func TestUpload(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/upload-document" {
			t.Errorf("Unexpected path %s", r.URL.Path)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("ParseMultipartForm: %v", err)
		}
		if r.FormValue("api_key") != "sk-doc" {
			t.Errorf("Expected api_key sk-doc, got %q", r.FormValue("api_key"))
		}
		f, hdr, err := r.FormFile("file")
		if err != nil {
			t.Fatalf("FormFile: %v", err)
		}
		defer f.Close()
		data, _ := io.ReadAll(f)
		if hdr.Filename != "notes.txt" || string(data) != "some notes" {
			t.Errorf("Unexpected upload %q: %q", hdr.Filename, data)
		}
		json.NewEncoder(w).Encode(UploadResult{Message: "Document notes.txt uploaded successfully", ChunkCount: 1})
	}))
	defer server.Close()

	client := NewClient(server.URL, "sk-doc")
	result, err := client.Upload(context.Background(), "/tmp/dir/notes.txt", strings.NewReader("some notes"))
	if err != nil {
		t.Fatalf("Upload failed: %v", err)
	}
	if result.ChunkCount != 1 {
		t.Errorf("Expected 1 chunk, got %d", result.ChunkCount)
	}
}

func TestDocumentEndpoints(t *testing.T) {
	var calls []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls = append(calls, r.Method+" "+r.URL.EscapedPath())
		switch r.URL.Path {
		case "/api/documents/status":
			w.Write([]byte(`{"has_documents":true,"document_count":4,"uploaded_documents":[{"filename":"a.txt","timestamp":1700000000.5}]}`))
		case "/api/documents/list":
			w.Write([]byte(`{"documents":[{"filename":"a.txt","timestamp":1700000000}],"total":1}`))
		case "/api/health":
			w.Write([]byte(`{"status":"ok","rag_enabled":true}`))
		default:
			w.Write([]byte(`{"message":"done"}`))
		}
	}))
	defer server.Close()

	client := NewClient(server.URL, "k")
	ctx := context.Background()

	status, err := client.Status(ctx)
	if err != nil {
		t.Fatalf("Status failed: %v", err)
	}
	if !status.HasDocuments || status.DocumentCount != 4 || len(status.UploadedDocuments) != 1 {
		t.Errorf("Unexpected status: %+v", status)
	}
	if got := status.UploadedDocuments[0].UploadedAt(); got.Unix() != 1700000000 || got.Nanosecond() != 500000000 {
		t.Errorf("Unexpected upload time: %v", got)
	}

	list, err := client.List(ctx)
	if err != nil || list.Total != 1 {
		t.Errorf("List: %+v, %v", list, err)
	}

	if _, err := client.Delete(ctx, "my notes.txt"); err != nil {
		t.Errorf("Delete failed: %v", err)
	}
	if _, err := client.ClearDocuments(ctx); err != nil {
		t.Errorf("Clear failed: %v", err)
	}
	health, err := client.Health(ctx)
	if err != nil || health.Status != "ok" || !health.RAGEnabled {
		t.Errorf("Health: %+v, %v", health, err)
	}

	expected := []string{
		"GET /api/documents/status",
		"GET /api/documents/list",
		"DELETE /api/documents/my%20notes.txt",
		"POST /api/documents/clear",
		"GET /api/health",
	}
	if len(calls) != len(expected) {
		t.Fatalf("Expected %d calls, got %v", len(expected), calls)
	}
	for i := range expected {
		if calls[i] != expected[i] {
			t.Errorf("Call %d: expected %q, got %q", i, expected[i], calls[i])
		}
	}
}

// =============================================================================
// HELPER TESTS
// =============================================================================

func TestParseDialect(t *testing.T) {
	tests := []struct {
		input   string
		want    Dialect
		wantErr bool
	}{
		{"", DialectChillGPT, false},
		{"OpenAI", DialectOpenAI, false},
		{"pypal", DialectPyPal, false},
		{"grpc", "", true},
	}
	for _, tt := range tests {
		got, err := ParseDialect(tt.input)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseDialect(%q) = (%q, %v)", tt.input, got, err)
		}
	}
}

func TestMaskKey(t *testing.T) {
	tests := []struct {
		key  string
		want string
	}{
		{"", "[not set]"},
		{"short", "*****"},
		{"sk-abcdefghijklmnop", "sk-...mnop"},
	}
	for _, tt := range tests {
		if got := MaskKey(tt.key); got != tt.want {
			t.Errorf("MaskKey(%q) = %q, want %q", tt.key, got, tt.want)
		}
	}
}

func TestForKey(t *testing.T) {
	base := NewClient("http://example.test", "sk-old").WithDialect(DialectPyPal)
	c := base.ForKey("  sk-new ")

	if !base.IsConfigured() || base.apiKey != "sk-old" {
		t.Error("ForKey must not modify the original client")
	}
	if c.apiKey != "sk-new" || c.Dialect() != DialectPyPal || c.BaseURL() != base.BaseURL() {
		t.Errorf("copy = %+v", c)
	}
}
