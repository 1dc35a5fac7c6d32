// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"fmt"
	"sort"
	"strings"
)

// =============================================================================
// MODEL INFO TYPE
// =============================================================================

// ModelInfo contains detailed information about a chat model.
// This is used for model selection and display in the UI.
type ModelInfo struct {
	// ID is the model identifier used in API calls
	ID string `json:"id"`

	// Name is the human-readable display name
	Name string `json:"name"`

	// Tier categorizes the model's capability level
	Tier string `json:"tier"`

	// MaxTokens is the maximum context window size
	MaxTokens int `json:"max_tokens"`

	// Description is a brief explanation of the model's strengths
	Description string `json:"description"`
}

// DefaultModel is the model used when none is configured.
const DefaultModel = "gpt-4.1-mini"

// =============================================================================
// MODEL REGISTRY
// =============================================================================

// Models is the catalog of chat models the front end offers.
// It is configuration data and is never modified at runtime.
var Models = map[string]ModelInfo{
	"gpt-4.1-mini": {
		ID:          "gpt-4.1-mini",
		Name:        "GPT-4.1 mini",
		Tier:        "Balanced",
		MaxTokens:   1047576,
		Description: "Fast, capable default for everyday chat",
	},
	"gpt-4.1-nano": {
		ID:          "gpt-4.1-nano",
		Name:        "GPT-4.1 nano",
		Tier:        "Fast",
		MaxTokens:   1047576,
		Description: "Lowest latency for short answers",
	},
	"gpt-4o-mini": {
		ID:          "gpt-4o-mini",
		Name:        "GPT-4o mini",
		Tier:        "Fast",
		MaxTokens:   128000,
		Description: "Small multimodal model, good for coding help",
	},
}

// =============================================================================
// MODEL INFO METHODS
// =============================================================================

// ContextString returns a formatted context window string.
func (m ModelInfo) ContextString() string {
	if m.MaxTokens >= 1000000 {
		return fmt.Sprintf("%.1fM tokens", float64(m.MaxTokens)/1000000)
	}
	if m.MaxTokens >= 1000 {
		return fmt.Sprintf("%dK tokens", m.MaxTokens/1000)
	}
	return fmt.Sprintf("%d tokens", m.MaxTokens)
}

// ContextPercent returns how much of the model's context window tokens occupy.
func (m ModelInfo) ContextPercent(tokens int) float64 {
	if m.MaxTokens <= 0 {
		return 0
	}
	return float64(tokens) / float64(m.MaxTokens) * 100
}

// =============================================================================
// MODEL LOOKUP FUNCTIONS
// =============================================================================

// GetModelInfo looks up a model by ID, falling back to a case-insensitive
// match on the display name.
func GetModelInfo(nameOrID string) (ModelInfo, bool) {
	if info, ok := Models[nameOrID]; ok {
		return info, true
	}

	lower := strings.ToLower(strings.TrimSpace(nameOrID))
	for _, info := range Models {
		if strings.ToLower(info.ID) == lower || strings.ToLower(info.Name) == lower {
			return info, true
		}
	}

	return ModelInfo{}, false
}

// IsKnownModel reports whether id is in the catalog.
func IsKnownModel(id string) bool {
	_, ok := Models[id]
	return ok
}

// ModelIDs returns a sorted slice of all catalog model IDs.
func ModelIDs() []string {
	ids := make([]string, 0, len(Models))
	for id := range Models {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
