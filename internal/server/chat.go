// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/jeranaias/chillgpt-tui/internal/api"
	"github.com/jeranaias/chillgpt-tui/internal/model"
	"github.com/jeranaias/chillgpt-tui/internal/storage"
)

// chatBody accepts both the ChillGPT shape (messages) and the PyPal shape
// (user_message).
type chatBody struct {
	Messages    []model.ChatMessage `json:"messages"`
	UserMessage string              `json:"user_message"`
	Model       string              `json:"model"`
	APIKey      string              `json:"api_key"`
	UseRAG      bool                `json:"use_rag"`
}

// handleChat handles POST /api/chat. The reply streams as text/plain and
// each delta is flushed as soon as it is produced.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var body chatBody
	if !decodeJSON(w, r, &body) {
		return
	}

	if len(body.Messages) == 0 && body.UserMessage != "" {
		body.Messages = []model.ChatMessage{{Role: model.RoleUser.String(), Content: body.UserMessage}}
	}
	if len(body.Messages) == 0 {
		writeValidationError(w, fieldError{Loc: []string{"body", "messages"}, Msg: "field required", Type: "value_error.missing"})
		return
	}
	if body.APIKey == "" {
		writeError(w, http.StatusBadRequest, "API key is required")
		return
	}
	if body.Model == "" {
		body.Model = model.DefaultModel
	}

	messages := body.Messages
	if body.UseRAG && s.store != nil {
		var err error
		if messages, err = s.augment(r.Context(), messages); err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
	}

	s.stats.chatTurns.Add(1)
	out := newChunkWriter(w)
	err := s.responder.Respond(r.Context(), ChatRequest{
		Messages: messages,
		Model:    body.Model,
		APIKey:   body.APIKey,
	}, out.emit)

	if err == nil {
		out.start()
		return
	}

	s.stats.chatFailures.Add(1)
	if !out.started {
		writeError(w, statusForError(err), errorDetail(err))
		return
	}

	// Headers are gone; dropping the connection is the only way to tell the
	// client the reply is incomplete.
	s.logger.Printf("CHAT_ABORTED | sent=%dB error=%v", out.sent, err)
	panic(http.ErrAbortHandler)
}

// statusForError maps a responder failure that happened before any output.
func statusForError(err error) int {
	var te *api.TransportError
	if errors.As(err, &te) && te.StatusCode >= 400 && te.StatusCode < 500 {
		return te.StatusCode
	}
	if te != nil {
		return http.StatusBadGateway
	}
	if errors.Is(err, context.Canceled) {
		return 499
	}
	return http.StatusInternalServerError
}

// errorDetail prefers the upstream's own message over our wrapping.
func errorDetail(err error) string {
	var te *api.TransportError
	if errors.As(err, &te) && te.Detail != "" {
		return te.Detail
	}
	return err.Error()
}

// chunkWriter writes the status line lazily so errors before the first
// delta can still become a proper error response.
type chunkWriter struct {
	w       http.ResponseWriter
	rc      *http.ResponseController
	started bool
	sent    int
}

func newChunkWriter(w http.ResponseWriter) *chunkWriter {
	return &chunkWriter{w: w, rc: http.NewResponseController(w)}
}

func (c *chunkWriter) start() {
	if c.started {
		return
	}
	c.started = true
	h := c.w.Header()
	h.Set("Content-Type", "text/plain; charset=utf-8")
	h.Set("Cache-Control", "no-cache")
	h.Set("X-Accel-Buffering", "no")
	h.Set("X-Content-Type-Options", "nosniff")
	c.w.WriteHeader(http.StatusOK)
	c.rc.Flush()
}

func (c *chunkWriter) emit(delta string) error {
	c.start()
	if delta == "" {
		return nil
	}
	n, err := c.w.Write([]byte(delta))
	c.sent += n
	if err != nil {
		return err
	}
	if err := c.rc.Flush(); err != nil && !errors.Is(err, http.ErrNotSupported) {
		return err
	}
	return nil
}

// ============================================================================
// DOCUMENT RETRIEVAL
// ============================================================================

// metaQueryKeywords mark questions about the document set itself.
var metaQueryKeywords = []string{
	"what documents", "which documents", "what files", "which files",
	"what do you have", "what's in your context", "what context",
	"available documents", "uploaded documents", "document list",
}

// IsMetaQuery reports whether question asks which documents are loaded.
func IsMetaQuery(question string) bool {
	q := strings.ToLower(question)
	for _, kw := range metaQueryKeywords {
		if strings.Contains(q, kw) {
			return true
		}
	}
	return false
}

// augment replaces the final user message with a document-grounded prompt.
func (s *Server) augment(ctx context.Context, msgs []model.ChatMessage) ([]model.ChatMessage, error) {
	last := msgs[len(msgs)-1]
	if last.Role != model.RoleUser.String() || strings.TrimSpace(last.Content) == "" {
		return msgs, nil
	}
	question := last.Content

	docs, err := s.store.Documents(ctx)
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return replaceLast(msgs, NoDocumentsPrompt()), nil
	}

	if IsMetaQuery(question) {
		chunks, err := s.store.ChunkCount(ctx)
		if err != nil {
			return nil, err
		}
		return replaceLast(msgs, DocumentListPrompt(docs, chunks, question)), nil
	}

	matches, err := s.store.Search(ctx, question, RetrievalK, SimilarityThreshold)
	if err != nil {
		return nil, err
	}
	if len(matches) == 0 {
		return replaceLast(msgs, NotFoundPrompt(len(docs))), nil
	}
	return replaceLast(msgs, ContextPrompt(matches, question)), nil
}

func replaceLast(msgs []model.ChatMessage, content string) []model.ChatMessage {
	out := make([]model.ChatMessage, len(msgs))
	copy(out, msgs)
	out[len(out)-1] = model.ChatMessage{Role: model.RoleUser.String(), Content: content}
	return out
}

const notAvailable = "I don't know - this information is not available in the uploaded documents."

// ContextPrompt asks the model to answer only from the retrieved chunks.
func ContextPrompt(matches []storage.Match, question string) string {
	contexts := make([]string, len(matches))
	for i, m := range matches {
		contexts[i] = fmt.Sprintf("Context %d: %s", i+1, m.Content)
	}

	var b strings.Builder
	b.WriteString("You are a document-only assistant. You can ONLY answer questions based on the following context from uploaded documents. ")
	fmt.Fprintf(&b, "If the information is not in the context below, you MUST respond with %q\n\n", notAvailable+" Please ask about topics covered in the documents.")
	b.WriteString("Context from uploaded documents:\n")
	b.WriteString(strings.Join(contexts, "\n\n"))
	fmt.Fprintf(&b, "\n\nQuestion: %s\n\n", question)
	fmt.Fprintf(&b, "Instructions: Answer ONLY based on the context above. If the answer is not in the context, respond with %q", notAvailable)
	return b.String()
}

// NotFoundPrompt is sent when no chunk clears the similarity threshold.
func NotFoundPrompt(documents int) string {
	return fmt.Sprintf("%s\n\nI can only answer questions based on the content of the %d document(s) you've uploaded. "+
		"Please try rephrasing your question to focus on topics covered in these documents, "+
		"or ask about specific sections, concepts, or details mentioned in the files.", notAvailable, documents)
}

// NoDocumentsPrompt is sent when retrieval is requested before any upload.
func NoDocumentsPrompt() string {
	return "I am a document-only assistant, but no documents have been uploaded yet.\n\n" +
		"Please upload some documents first, then I'll be able to answer questions about their content."
}

// DocumentListPrompt answers questions about which documents are loaded.
func DocumentListPrompt(docs []storage.Document, chunks int, question string) string {
	var b strings.Builder
	b.WriteString("I am a document-only assistant with access to the following documents:\n\n")
	fmt.Fprintf(&b, "I have access to %d uploaded document(s):\n", len(docs))
	for _, d := range docs {
		fmt.Fprintf(&b, "- %s\n", d.Filename)
	}
	fmt.Fprintf(&b, "\nTotal document chunks in the store: %d\n\n", chunks)
	fmt.Fprintf(&b, "You asked: %s\n\n", question)
	b.WriteString("I can only answer questions based on the content of these uploaded documents. " +
		"Please ask me specific questions about the information contained in these files.")
	return b.String()
}
