// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"encoding/json"
	"fmt"
)

// JSONExporter writes the full transcript as indented JSON.
// Rendering options do not apply.
type JSONExporter struct{}

// Export implements Exporter.
func (e *JSONExporter) Export(t *Transcript) ([]byte, error) {
	if t == nil {
		return nil, fmt.Errorf("transcript is nil")
	}
	data, err := json.MarshalIndent(t, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

// FileExtension implements Exporter.
func (e *JSONExporter) FileExtension() string {
	return ".json"
}

// MimeType implements Exporter.
func (e *JSONExporter) MimeType() string {
	return "application/json"
}
