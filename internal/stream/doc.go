// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package stream turns a chunked chat response body into cumulative text
// snapshots.
//
// Two body formats are understood. Raw-text bodies are appended verbatim.
// Event-line bodies carry one "data:" record per line with a JSON payload
// whose first choice holds an incremental delta, and end with "data: [DONE]".
//
// # Key Types
//
//   - Consumer: pulls chunks from a body and yields snapshots
//   - Mode: raw-text or event-line decoding
//   - StreamError: transport failure, keeps the partial snapshot
//   - DecodeError: a skipped event line
//
// # Usage
//
//	c := stream.NewConsumer(resp.Body, stream.ModeForContentType(resp.Header.Get("Content-Type")))
//	defer c.Close()
//	for {
//	    snapshot, err := c.Next(ctx)
//	    if err == io.EOF {
//	        break
//	    }
//	    if err != nil {
//	        return err
//	    }
//	    render(snapshot)
//	}
//
// Decoding is stateful, so a multi-byte character split across two network
// chunks is emitted whole once its last byte arrives.
package stream
