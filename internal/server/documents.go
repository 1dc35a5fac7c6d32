// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package server

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/jeranaias/chillgpt-tui/internal/api"
	"github.com/jeranaias/chillgpt-tui/internal/storage"
)

// allowedExtensions are the upload formats the store can index.
var allowedExtensions = map[string]bool{
	".txt":      true,
	".md":       true,
	".markdown": true,
}

// AllowedUpload reports whether filename has a supported extension.
func AllowedUpload(filename string) bool {
	return allowedExtensions[strings.ToLower(filepath.Ext(filename))]
}

// requireStore answers 503 when retrieval is disabled.
func (s *Server) requireStore(w http.ResponseWriter) bool {
	if s.store == nil {
		writeError(w, http.StatusServiceUnavailable, "Document storage is disabled")
		return false
	}
	return true
}

// handleUpload handles POST /api/upload-document (multipart: file, api_key).
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if !s.requireStore(w) {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, MaxUploadSize)
	if err := r.ParseMultipartForm(MaxUploadSize); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "Document too large")
			return
		}
		writeError(w, http.StatusBadRequest, "Invalid upload: "+err.Error())
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeValidationError(w, fieldError{Loc: []string{"body", "file"}, Msg: "field required", Type: "value_error.missing"})
		return
	}
	defer file.Close()

	filename := filepath.Base(header.Filename)
	if !AllowedUpload(filename) {
		writeError(w, http.StatusBadRequest, "Only .txt, .md and .markdown files are allowed")
		return
	}
	if r.FormValue("api_key") == "" {
		writeError(w, http.StatusBadRequest, "API key is required")
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Error reading document: "+err.Error())
		return
	}
	if !utf8.Valid(data) {
		writeError(w, http.StatusBadRequest, "Document must be UTF-8 text")
		return
	}

	doc, err := s.store.AddDocument(r.Context(), filename, string(data), ChunkSize, ChunkOverlap)
	if errors.Is(err, storage.ErrEmptyDocument) {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Document %s is empty", filename))
		return
	}
	if err != nil {
		s.logger.Printf("UPLOAD_FAILED | file=%s error=%v", filename, err)
		writeError(w, http.StatusInternalServerError, "Error uploading document: "+err.Error())
		return
	}

	s.stats.uploads.Add(1)
	writeJSON(w, http.StatusOK, api.UploadResult{
		Message:    fmt.Sprintf("Document %s uploaded successfully", filename),
		ChunkCount: doc.ChunkCount,
	})
}

// documentRefs converts stored documents to their wire form. The result is
// never nil so it encodes as [].
func documentRefs(docs []storage.Document) []api.DocumentRef {
	refs := make([]api.DocumentRef, 0, len(docs))
	for _, d := range docs {
		refs = append(refs, api.DocumentRef{Filename: d.Filename, Timestamp: d.Timestamp()})
	}
	return refs
}

// handleDocumentStatus handles GET /api/documents/status.
// document_count is the number of chunks, as the web front end expects.
func (s *Server) handleDocumentStatus(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeJSON(w, http.StatusOK, api.DocumentStatus{UploadedDocuments: []api.DocumentRef{}})
		return
	}

	docs, err := s.store.Documents(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	chunks, err := s.store.ChunkCount(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, api.DocumentStatus{
		HasDocuments:      len(docs) > 0,
		DocumentCount:     chunks,
		UploadedDocuments: documentRefs(docs),
	})
}

// handleDocumentList handles GET /api/documents/list.
func (s *Server) handleDocumentList(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeJSON(w, http.StatusOK, api.DocumentList{Documents: []api.DocumentRef{}})
		return
	}

	docs, err := s.store.Documents(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, api.DocumentList{Documents: documentRefs(docs), Total: len(docs)})
}

// handleDocumentDelete handles DELETE /api/documents/{filename}.
func (s *Server) handleDocumentDelete(w http.ResponseWriter, r *http.Request) {
	if !s.requireStore(w) {
		return
	}

	filename := r.PathValue("filename")
	err := s.store.DeleteDocument(r.Context(), filename)
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, http.StatusNotFound, fmt.Sprintf("Document %s not found", filename))
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, api.MessageResponse{Message: fmt.Sprintf("Document %s deleted", filename)})
}

// handleDocumentClear handles POST /api/documents/clear.
func (s *Server) handleDocumentClear(w http.ResponseWriter, r *http.Request) {
	if !s.requireStore(w) {
		return
	}
	if err := s.store.Clear(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, api.MessageResponse{Message: "Documents cleared successfully"})
}
