// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// config.go - Configuration commands: "chillgpt config".
//
// Subcommands:
//
//	(none), show       Effective configuration, API key masked
//	get KEY            One value in dot notation (api.model)
//	set KEY VALUE      Change one value in the config file
//	keys               Every key
//	path               The config file path
package cli

import (
	"fmt"
	"strings"

	"github.com/jeranaias/chillgpt-tui/internal/api"
	"github.com/jeranaias/chillgpt-tui/internal/config"
)

const apiKeyField = "api.api_key"

// RunConfig dispatches the config subcommands.
func RunConfig(args Args) error {
	cfg, path, err := LoadConfig(args)
	if err != nil {
		return err
	}

	switch args.Subcommand {
	case "", "show", "list":
		return configShow(cfg, args)
	case "get":
		return configGet(cfg, args)
	case "set":
		return configSet(path, args)
	case "keys":
		return configKeys(args)
	case "path":
		if args.JSON {
			return NewJSONResponse("config path", map[string]string{"path": path}).Print()
		}
		fmt.Fprintln(stdout, path)
		return nil
	}
	return NewValidationErrorWithExample("config subcommand", args.Subcommand, "is not show, get, set, keys or path", "chillgpt config get api.model")
}

// displayValue masks the API key.
func displayValue(key string, v any) any {
	if key == apiKeyField {
		if s, _ := v.(string); s != "" {
			return api.MaskKey(s)
		}
	}
	return v
}

func configShow(cfg *config.Config, args Args) error {
	keys := config.AllKeys()
	values := make(map[string]any, len(keys))
	for _, k := range keys {
		v, err := cfg.Get(k)
		if err != nil {
			return err
		}
		values[k] = displayValue(k, v)
	}

	if args.JSON {
		return NewJSONResponse("config show", values).Print()
	}

	section := ""
	for _, k := range keys {
		head, field, _ := strings.Cut(k, ".")
		if head != section {
			if section != "" {
				fmt.Fprintln(stdout)
			}
			fmt.Fprintln(stdout, TitleStyle.Render("["+head+"]"))
			section = head
		}
		printField(field, values[k])
	}
	return nil
}

func configGet(cfg *config.Config, args Args) error {
	if len(args.Raw) == 0 {
		return NewValidationErrorWithExample("get", "", "needs a key", "chillgpt config get api.model")
	}
	key := args.Raw[0]
	v, err := cfg.Get(key)
	if err != nil {
		return NewValidationErrorWithExample("key", key, "does not exist", "chillgpt config keys")
	}
	v = displayValue(key, v)

	if args.JSON {
		return NewJSONResponse("config get", map[string]any{"key": key, "value": v}).Print()
	}
	fmt.Fprintln(stdout, v)
	return nil
}

// configSet edits the config file itself. Environment overrides are not
// written back.
func configSet(path string, args Args) error {
	if len(args.Raw) < 2 {
		return NewValidationErrorWithExample("set", "", "needs a key and a value", "chillgpt config set ui.theme neon-ice")
	}
	key := args.Raw[0]
	value := strings.Join(args.Raw[1:], " ")

	file, err := loadFileConfig(path)
	if err != nil {
		return err
	}
	if err := file.Set(key, value); err != nil {
		return NewValidationErrorWithExample("key", key, err.Error(), "chillgpt config keys")
	}
	if err := file.Validate(); err != nil {
		return NewValidationError(key, value, err.Error())
	}
	if err := config.SaveTOML(file, path); err != nil {
		return &ConfigError{Path: path, Err: err}
	}

	if args.JSON {
		return NewJSONResponse("config set", map[string]any{"key": key, "value": displayValue(key, value), "path": path}).Print()
	}
	fmt.Fprintf(stdout, "%s %s = %v\n", SuccessStyle.Render("✓"), key, displayValue(key, value))
	return nil
}

func configKeys(args Args) error {
	keys := config.AllKeys()
	if args.JSON {
		return NewJSONResponse("config keys", keys).Print()
	}
	for _, k := range keys {
		fmt.Fprintln(stdout, k)
	}
	return nil
}
