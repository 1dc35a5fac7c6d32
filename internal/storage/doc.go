// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage keeps uploaded documents for the local backend.
//
// Documents are split into overlapping chunks and stored in SQLite
// (modernc.org/sqlite, no cgo). Retrieval scores chunks by term overlap
// with the question.
//
// # Key Types
//
//   - Store: Document and chunk persistence
//   - Document: An uploaded file with its chunk count
//   - Match: A retrieved chunk with its score
//
// # Usage
//
//	store, err := storage.Open(storage.MemoryPath)
//	doc, err := store.AddDocument(ctx, "notes.txt", text, 1000, 200)
//	matches, err := store.Search(ctx, "how do I deploy", 3, 0.7)
//
// # Storage Location
//
// The default path is ":memory:", so uploads last for one server run.
// A file path persists them.
package storage
