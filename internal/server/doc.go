// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package server is a local ChillGPT backend for development and tests.
//
// It speaks the same HTTP contract as the hosted backend, so the TUI, the
// REPL and the web front end can run against it without changes.
//
// # Endpoints
//
//   - POST   /api/chat                  - Streamed text/plain reply
//   - POST   /api/initialize            - Key check for PyPal clients
//   - POST   /api/upload-document       - Multipart upload (file, api_key)
//   - GET    /api/documents/status      - Document and chunk counts
//   - GET    /api/documents/list        - Uploaded documents
//   - DELETE /api/documents/{filename}  - Remove one document
//   - POST   /api/documents/clear       - Remove all documents
//   - GET    /api/health                - Health check
//
// Errors use FastAPI's shape: {"detail": "..."} or, for validation
// failures, {"detail": [{"loc": [...], "msg": "...", "type": "..."}]}.
//
// # Key Types
//
//   - Server: Routes, middleware and lifecycle
//   - Responder: Produces reply deltas (EchoResponder, UpstreamResponder)
//   - RateLimiter: Per-IP token buckets
//
// # Usage
//
//	store, _ := storage.Open(storage.MemoryPath)
//	srv := server.NewServer(store, server.NewUpstreamResponder("")).
//		WithAddress("127.0.0.1", 8000)
//	go srv.Start()
//	defer srv.Shutdown(ctx)
package server
