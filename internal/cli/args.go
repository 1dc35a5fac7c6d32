// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// args.go - Shared subcommand and flag parsing for chillgpt commands.
package cli

import (
	"strconv"
	"strings"
)

// =============================================================================
// ARG PARSER
// =============================================================================

// ArgParser splits command arguments into a subcommand, flags and
// positional values. It accepts these forms:
//
//	--flag value     Long flag with space-separated value
//	--flag=value     Long flag with equals sign
//	-f value         Short flag with space-separated value
//	--flag           Boolean flag (no value, or followed by another flag)
type ArgParser struct {
	flags      map[string]string
	boolFlags  map[string]bool
	positional []string
}

// NewArgParser parses raw.
//
// Example:
//
//	p := NewArgParser([]string{"set", "api.model", "gpt-4o", "--force"})
//	p.Subcommand()       // "set"
//	p.PositionalFrom(1)  // ["api.model", "gpt-4o"]
//	p.BoolFlag("force")  // true
func NewArgParser(raw []string) *ArgParser {
	p := &ArgParser{
		flags:     make(map[string]string),
		boolFlags: make(map[string]bool),
	}

	for i := 0; i < len(raw); i++ {
		arg := raw[i]
		if !strings.HasPrefix(arg, "-") || arg == "-" {
			p.positional = append(p.positional, arg)
			continue
		}

		if name, val, ok := strings.Cut(arg, "="); ok {
			name = strings.TrimLeft(name, "-")
			if val == "true" || val == "false" {
				p.boolFlags[name] = val == "true"
			} else {
				p.flags[name] = val
			}
			continue
		}

		name := strings.TrimLeft(arg, "-")
		if i+1 < len(raw) && !strings.HasPrefix(raw[i+1], "-") {
			p.flags[name] = raw[i+1]
			i++
		} else {
			p.boolFlags[name] = true
		}
	}
	return p
}

// Subcommand returns the first positional argument, or "".
func (p *ArgParser) Subcommand() string {
	return p.Positional(0)
}

// Flag returns the value of a string flag, or "".
func (p *ArgParser) Flag(name string) string {
	return p.flags[name]
}

// HasFlag reports whether the flag was given in any form.
func (p *ArgParser) HasFlag(name string) bool {
	_, isString := p.flags[name]
	_, isBool := p.boolFlags[name]
	return isString || isBool
}

// BoolFlag reports whether a boolean flag is set. A string flag whose
// value parses as true also counts.
func (p *ArgParser) BoolFlag(name string) bool {
	if v, ok := p.boolFlags[name]; ok {
		return v
	}
	if v, ok := p.flags[name]; ok {
		b, err := ParseBoolString(v)
		return err == nil && b
	}
	return false
}

// Positional returns the positional argument at index, or "".
func (p *ArgParser) Positional(index int) string {
	if index < 0 || index >= len(p.positional) {
		return ""
	}
	return p.positional[index]
}

// PositionalFrom returns the positional arguments from index on.
func (p *ArgParser) PositionalFrom(index int) []string {
	if index >= len(p.positional) {
		return nil
	}
	return p.positional[index:]
}

// =============================================================================
// VALUE HELPERS
// =============================================================================

// ParseIntWithValidation parses s as an integer for the named flag.
func ParseIntWithValidation(s string, fieldName string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, NewValidationError(fieldName, s, "must be a whole number")
	}
	return n, nil
}

// ParseBoolString accepts true/false, yes/no, on/off and 1/0.
func ParseBoolString(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "yes", "on", "1":
		return true, nil
	case "false", "no", "off", "0":
		return false, nil
	}
	return false, NewValidationError("value", s, "must be true or false")
}
