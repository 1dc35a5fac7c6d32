// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"math"
	"mime/multipart"
	"net/http"
	"net/url"
	"path/filepath"
	"time"
)

// =============================================================================
// DOCUMENT TYPES
// =============================================================================

// DocumentRef is a document the server reports as uploaded.
type DocumentRef struct {
	Filename  string  `json:"filename"`
	Timestamp float64 `json:"timestamp"` // Unix seconds
}

// UploadedAt converts the timestamp to a time.Time.
func (d DocumentRef) UploadedAt() time.Time {
	sec, frac := math.Modf(d.Timestamp)
	return time.Unix(int64(sec), int64(frac*1e9))
}

// UploadResult is the response to a document upload.
type UploadResult struct {
	Message    string `json:"message"`
	ChunkCount int    `json:"chunk_count"`
}

// DocumentStatus summarizes the server's document store.
type DocumentStatus struct {
	HasDocuments      bool          `json:"has_documents"`
	DocumentCount     int           `json:"document_count"`
	UploadedDocuments []DocumentRef `json:"uploaded_documents"`
}

// DocumentList is the response of the list endpoint.
type DocumentList struct {
	Documents []DocumentRef `json:"documents"`
	Total     int           `json:"total"`
}

// HealthStatus is the response of the health endpoint.
type HealthStatus struct {
	Status     string `json:"status"`
	RAGEnabled bool   `json:"rag_enabled"`
}

// MessageResponse is a plain acknowledgement.
type MessageResponse struct {
	Message string `json:"message"`
}

// =============================================================================
// DOCUMENT OPERATIONS
// =============================================================================

// Upload sends a document as multipart form data with the API key.
func (c *Client) Upload(ctx context.Context, filename string, r io.Reader) (*UploadResult, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filepath.Base(filename))
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := io.Copy(part, r); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", filename, err)
	}
	if err := mw.WriteField("api_key", c.apiKey); err != nil {
		return nil, fmt.Errorf("failed to write form field: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("failed to finish form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/upload-document", &buf)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Accept", "application/json")
	c.setHeaders(req, c.apiKey)

	resp, err := c.do(c.httpClient, req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var result UploadResult
	if err := decodeResponse(resp, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Status returns the document store summary.
func (c *Client) Status(ctx context.Context) (*DocumentStatus, error) {
	var status DocumentStatus
	if err := c.doJSON(ctx, http.MethodGet, "/api/documents/status", nil, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// List returns the uploaded documents.
func (c *Client) List(ctx context.Context) (*DocumentList, error) {
	var list DocumentList
	if err := c.doJSON(ctx, http.MethodGet, "/api/documents/list", nil, &list); err != nil {
		return nil, err
	}
	return &list, nil
}

// Delete removes one document by filename.
func (c *Client) Delete(ctx context.Context, filename string) (*MessageResponse, error) {
	var resp MessageResponse
	path := "/api/documents/" + url.PathEscape(filename)
	if err := c.doJSON(ctx, http.MethodDelete, path, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ClearDocuments removes every document.
func (c *Client) ClearDocuments(ctx context.Context) (*MessageResponse, error) {
	var resp MessageResponse
	if err := c.doJSON(ctx, http.MethodPost, "/api/documents/clear", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Health checks that the backend is up.
func (c *Client) Health(ctx context.Context) (*HealthStatus, error) {
	var health HealthStatus
	if err := c.doJSON(ctx, http.MethodGet, "/api/health", nil, &health); err != nil {
		return nil, err
	}
	return &health, nil
}

// Initialize hands the API key to a PyPal backend, which must be initialized
// before its first chat.
func (c *Client) Initialize(ctx context.Context) (*MessageResponse, error) {
	var resp MessageResponse
	body := map[string]string{"api_key": c.apiKey}
	if err := c.doJSON(ctx, http.MethodPost, "/api/initialize", body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
