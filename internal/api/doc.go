// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package api provides the HTTP client for chat backends.
//
// Three wire dialects are supported. The ChillGPT backend takes the full
// history and streams plain text. The PyPal backend takes only the latest
// user message. OpenAI-compatible endpoints stream server-sent events.
//
// # Key Types
//
//   - Client: pooled HTTP client with optional request pacing
//   - ChatRequest: history, model, credential and RAG flag
//   - ChatStream: open response body plus the decoding mode it needs
//   - TransportError: non-success status with the server's detail text
//   - DocumentStatus, DocumentList, UploadResult: document endpoints
//
// # Usage
//
//	client := api.NewClient("http://localhost:8000", apiKey)
//	cs, err := client.Chat(ctx, api.ChatRequest{Messages: history, Model: "gpt-4.1-mini"})
//	if err != nil {
//	    return err
//	}
//	consumer := stream.NewConsumer(cs.Body, cs.Mode)
//
// Streaming requests have no client timeout; cancel the context to stop them.
package api
