// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"strings"
)

// =============================================================================
// PRESETS
// =============================================================================

// Preset names a built-in system prompt.
type Preset string

const (
	PresetDefault         Preset = "default"
	PresetCodingAssistant Preset = "coding-assistant"
	PresetCreativeWriter  Preset = "creative-writer"
	PresetDataAnalyst     Preset = "data-analyst"
	PresetTeacher         Preset = "teacher"
	PresetBusinessAdvisor Preset = "business-advisor"
	PresetResearcher      Preset = "researcher"
)

type presetInfo struct {
	label  string
	prompt string
}

// presets is static data; the order of presetOrder is the display order.
var presets = map[Preset]presetInfo{
	PresetDefault: {
		label: "Custom",
	},
	PresetCodingAssistant: {
		label:  "👨‍💻 Coding Assistant",
		prompt: "You are an expert programming assistant. Provide clear, well-commented code examples and explain complex concepts simply.",
	},
	PresetCreativeWriter: {
		label:  "✍️ Creative Writer",
		prompt: "You are a creative writing assistant. Help with storytelling, character development, and writing techniques.",
	},
	PresetDataAnalyst: {
		label:  "📊 Data Analyst",
		prompt: "You are a data analysis expert. Help interpret data, suggest visualizations, and explain statistical concepts.",
	},
	PresetTeacher: {
		label:  "🎓 Teacher",
		prompt: "You are a patient, encouraging teacher. Break down complex topics into easy-to-understand steps.",
	},
	PresetBusinessAdvisor: {
		label:  "💼 Business Advisor",
		prompt: "You are a business consultant. Provide strategic advice, market insights, and practical business solutions.",
	},
	PresetResearcher: {
		label:  "🔬 Researcher",
		prompt: "You are a thorough researcher. Provide well-sourced information and multiple perspectives on topics.",
	},
}

var presetOrder = []Preset{
	PresetDefault,
	PresetCodingAssistant,
	PresetCreativeWriter,
	PresetDataAnalyst,
	PresetTeacher,
	PresetBusinessAdvisor,
	PresetResearcher,
}

// ParsePreset looks up a preset by name, ignoring case and surrounding space.
// An empty name is the default preset.
func ParsePreset(name string) (Preset, bool) {
	p := Preset(strings.ToLower(strings.TrimSpace(name)))
	if p == "" {
		return PresetDefault, true
	}
	if _, ok := presets[p]; !ok {
		return "", false
	}
	return p, true
}

// Presets returns every preset in display order.
func Presets() []Preset {
	out := make([]Preset, len(presetOrder))
	copy(out, presetOrder)
	return out
}

// PresetNames returns every preset name in display order.
func PresetNames() []string {
	names := make([]string, len(presetOrder))
	for i, p := range presetOrder {
		names[i] = string(p)
	}
	return names
}

// SystemPrompt returns the preset's prompt. The default preset has none.
func (p Preset) SystemPrompt() string {
	return presets[p].prompt
}

// Label returns the display name.
func (p Preset) Label() string {
	if info, ok := presets[p]; ok {
		return info.label
	}
	return string(p)
}

// =============================================================================
// THEMES
// =============================================================================

// Theme names a colour scheme.
type Theme string

const (
	ThemeAuto      Theme = "auto"
	ThemeDarkIce   Theme = "dark-ice"
	ThemeLightSnow Theme = "light-snow"
	ThemeNeonIce   Theme = "neon-ice"
)

var themeOrder = []Theme{ThemeDarkIce, ThemeLightSnow, ThemeNeonIce, ThemeAuto}

var themeLabels = map[Theme]string{
	ThemeDarkIce:   "❄️ Dark Ice",
	ThemeLightSnow: "☃️ Light Snow",
	ThemeNeonIce:   "💎 Neon Ice",
	ThemeAuto:      "Auto",
}

// ParseTheme looks up a theme by name. An empty name is dark-ice.
func ParseTheme(name string) (Theme, bool) {
	t := Theme(strings.ToLower(strings.TrimSpace(name)))
	if t == "" {
		return ThemeDarkIce, true
	}
	if _, ok := themeLabels[t]; !ok {
		return "", false
	}
	return t, true
}

// ThemeNames returns every theme name in display order.
func ThemeNames() []string {
	names := make([]string, len(themeOrder))
	for i, t := range themeOrder {
		names[i] = string(t)
	}
	return names
}

// Label returns the display name.
func (t Theme) Label() string {
	if l, ok := themeLabels[t]; ok {
		return l
	}
	return string(t)
}

// Resolve replaces auto with a concrete theme for the terminal background.
func (t Theme) Resolve(darkBackground bool) Theme {
	if t != ThemeAuto {
		return t
	}
	if darkBackground {
		return ThemeDarkIce
	}
	return ThemeLightSnow
}
