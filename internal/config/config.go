// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	"github.com/jeranaias/chillgpt-tui/internal/util"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete chillgpt configuration.
type Config struct {
	API    APIConfig    `toml:"api" json:"api"`
	Chat   ChatConfig   `toml:"chat" json:"chat"`
	UI     UIConfig     `toml:"ui" json:"ui"`
	Server ServerConfig `toml:"server" json:"server"`
}

// APIConfig describes the chat backend.
type APIConfig struct {
	// BaseURL is the backend root. Empty selects the dialect's default.
	BaseURL string `toml:"base_url" json:"base_url"`
	// APIKey is sent with every chat request
	APIKey string `toml:"api_key" json:"api_key"`
	// Dialect is "chillgpt", "openai" or "pypal"
	Dialect string `toml:"dialect" json:"dialect"`
	// Model is the model ID sent with chat requests
	Model string `toml:"model" json:"model"`
	// UseRAG asks the backend to answer from uploaded documents
	UseRAG bool `toml:"use_rag" json:"use_rag"`
	// StreamFormat is "auto", "raw" or "sse"
	StreamFormat string `toml:"stream_format" json:"stream_format"`
	// RequestsPerSecond paces outgoing requests (0 = unlimited)
	RequestsPerSecond float64 `toml:"requests_per_second" json:"requests_per_second"`
}

// ChatConfig holds conversation defaults.
type ChatConfig struct {
	// Preset names a built-in system prompt
	Preset string `toml:"preset" json:"preset"`
	// SystemPrompt overrides the preset when set
	SystemPrompt string `toml:"system_prompt" json:"system_prompt"`
	// Greeting is the first assistant message
	Greeting string `toml:"greeting" json:"greeting"`
}

// UIConfig holds terminal UI settings.
type UIConfig struct {
	// Theme is "dark-ice", "light-snow", "neon-ice" or "auto"
	Theme string `toml:"theme" json:"theme"`
	// ScrollThreshold is how many lines from the end still count as the bottom
	ScrollThreshold int `toml:"scroll_threshold" json:"scroll_threshold"`
	ShowTimestamps  bool `toml:"show_timestamps" json:"show_timestamps"`
	// LongMessageWarning is the input length that triggers a warning (0 = off)
	LongMessageWarning int  `toml:"long_message_warning" json:"long_message_warning"`
	Markdown           bool `toml:"markdown" json:"markdown"`
}

// ServerConfig configures the local development backend.
type ServerConfig struct {
	Host string `toml:"host" json:"host"`
	Port int    `toml:"port" json:"port"`
	// DatabasePath is the sqlite file for documents (":memory:" keeps them in RAM)
	DatabasePath string `toml:"database_path" json:"database_path"`
	// UpstreamURL is an OpenAI-compatible endpoint; empty selects the echo responder
	UpstreamURL string `toml:"upstream_url" json:"upstream_url"`
	// RateLimit is the per-client request rate in requests per second (0 = off)
	RateLimit float64 `toml:"rate_limit" json:"rate_limit"`
}

// Default values.
const (
	DefaultScrollThreshold    = 2
	DefaultLongMessageWarning = 1000
	DefaultServerHost         = "127.0.0.1"
	DefaultServerPort         = 8000
	DefaultDatabasePath       = ":memory:"
	DefaultServerRateLimit    = 5.0
)

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		API: APIConfig{
			Dialect:      "chillgpt",
			Model:        "gpt-4.1-mini",
			StreamFormat: "auto",
		},
		Chat: ChatConfig{
			Preset:   string(PresetDefault),
			Greeting: "Hey, what's up?",
		},
		UI: UIConfig{
			Theme:              string(ThemeDarkIce),
			ScrollThreshold:    DefaultScrollThreshold,
			ShowTimestamps:     true,
			LongMessageWarning: DefaultLongMessageWarning,
			Markdown:           true,
		},
		Server: ServerConfig{
			Host:         DefaultServerHost,
			Port:         DefaultServerPort,
			DatabasePath: DefaultDatabasePath,
			RateLimit:    DefaultServerRateLimit,
		},
	}
}

// =============================================================================
// PATHS
// =============================================================================

// ConfigDir returns the configuration directory (~/.chillgpt).
func ConfigDir() (string, error) {
	if dir := os.Getenv("CHILLGPT_HOME"); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".chillgpt"), nil
}

// ConfigPath returns the path to the TOML config file.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// EnsureConfigDir ensures the config directory exists.
func EnsureConfigDir() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, 0700)
}

// ensureSecurePermissions tightens a config file holding an API key to 0600.
func ensureSecurePermissions(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if mode := info.Mode().Perm(); mode&0077 != 0 {
		if err := os.Chmod(path, 0600); err != nil {
			return fmt.Errorf("failed to fix insecure permissions (was %o): %w", mode, err)
		}
	}
	return nil
}

// =============================================================================
// LOAD / SAVE
// =============================================================================

// Load reads ~/.chillgpt/config.toml, falling back to defaults when it does
// not exist. A .env file in the working directory and CHILLGPT_*
// environment variables are applied on top.
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return finish(Default())
	}
	return LoadOrDefault(path)
}

// LoadOrDefault loads path, or the defaults when path does not exist yet.
func LoadOrDefault(path string) (*Config, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return finish(Default())
	}
	return LoadFromPath(path)
}

// LoadFromPath loads and validates the TOML file at path.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()
	if err := LoadTOML(cfg, path); err != nil {
		return nil, fmt.Errorf("failed to load config from %s: %w", path, err)
	}
	return finish(cfg)
}

// finish applies environment overrides, defaults and validation.
func finish(cfg *Config) (*Config, error) {
	LoadDotEnv("")
	cfg.ApplyEnvOverrides()
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadTOML decodes the TOML file at path over cfg.
func LoadTOML(cfg *Config, path string) error {
	if err := ensureSecurePermissions(path); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not ensure secure permissions on %s: %v\n", path, err)
	}

	meta, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return fmt.Errorf("failed to decode TOML file: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		fmt.Fprintf(os.Stderr, "Warning: ignoring unknown config keys: %s\n", strings.Join(keys, ", "))
	}
	return nil
}

// Save writes cfg to the default config path.
func Save(cfg *Config) error {
	if err := EnsureConfigDir(); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	return SaveTOML(cfg, path)
}

// SaveTOML writes cfg to path atomically with 0600 permissions.
func SaveTOML(cfg *Config, path string) error {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := util.AtomicWriteFile(path, buf.Bytes(), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// LoadDotEnv loads KEY=VALUE pairs from path (default ".env") into the
// environment without overriding variables that are already set.
// A missing file is not an error.
func LoadDotEnv(path string) {
	if path == "" {
		path = ".env"
	}
	if _, err := os.Stat(path); err != nil {
		return
	}
	if err := godotenv.Load(path); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not read %s: %v\n", path, err)
	}
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies environment variables to the config.
//
// Supported variables:
//   - CHILLGPT_API_KEY (falls back to OPENAI_API_KEY): api.api_key
//   - CHILLGPT_URL: api.base_url
//   - CHILLGPT_DIALECT: api.dialect
//   - CHILLGPT_MODEL: api.model
//   - CHILLGPT_RAG: api.use_rag
//   - CHILLGPT_PRESET: chat.preset
//   - CHILLGPT_THEME: ui.theme
//   - CHILLGPT_UPSTREAM_URL: server.upstream_url
func (c *Config) ApplyEnvOverrides() {
	if key := os.Getenv("CHILLGPT_API_KEY"); key != "" {
		c.API.APIKey = key
	} else if key := os.Getenv("OPENAI_API_KEY"); key != "" && c.API.APIKey == "" {
		c.API.APIKey = key
	}

	if u := os.Getenv("CHILLGPT_URL"); u != "" {
		c.API.BaseURL = u
	}
	if d := os.Getenv("CHILLGPT_DIALECT"); d != "" {
		c.API.Dialect = d
	}
	if m := os.Getenv("CHILLGPT_MODEL"); m != "" {
		c.API.Model = m
	}
	if rag := os.Getenv("CHILLGPT_RAG"); rag != "" {
		c.API.UseRAG = parseBool(rag)
	}
	if p := os.Getenv("CHILLGPT_PRESET"); p != "" {
		c.Chat.Preset = p
	}
	if th := os.Getenv("CHILLGPT_THEME"); th != "" {
		c.UI.Theme = th
	}
	if u := os.Getenv("CHILLGPT_UPSTREAM_URL"); u != "" {
		c.Server.UpstreamURL = u
	}
}

func parseBool(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	return s == "1" || s == "true" || s == "yes" || s == "on"
}

// SetDefaults fills zero values that have a non-zero default.
func (c *Config) SetDefaults() {
	d := Default()
	if c.API.Dialect == "" {
		c.API.Dialect = d.API.Dialect
	}
	if c.API.Model == "" {
		c.API.Model = d.API.Model
	}
	if c.API.StreamFormat == "" {
		c.API.StreamFormat = d.API.StreamFormat
	}
	if c.Chat.Preset == "" {
		c.Chat.Preset = d.Chat.Preset
	}
	if c.Chat.Greeting == "" {
		c.Chat.Greeting = d.Chat.Greeting
	}
	if c.UI.Theme == "" {
		c.UI.Theme = d.UI.Theme
	}
	if c.Server.Host == "" {
		c.Server.Host = d.Server.Host
	}
	if c.Server.Port == 0 {
		c.Server.Port = d.Server.Port
	}
	if c.Server.DatabasePath == "" {
		c.Server.DatabasePath = d.Server.DatabasePath
	}
}

// SystemPrompt returns the explicit system prompt, or the preset's.
func (c *Config) SystemPrompt() string {
	if strings.TrimSpace(c.Chat.SystemPrompt) != "" {
		return c.Chat.SystemPrompt
	}
	p, ok := ParsePreset(c.Chat.Preset)
	if !ok {
		return ""
	}
	return p.SystemPrompt()
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateErrors is a collection of validation errors.
type ValidateErrors []ValidationError

func (e ValidateErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	msgs := make([]string, len(e))
	for i, err := range e {
		msgs[i] = err.Error()
	}
	return strings.Join(msgs, "; ")
}

// Validate checks enumerated values and ranges.
func (c *Config) Validate() error {
	var errs ValidateErrors

	if c.API.BaseURL != "" {
		u, err := url.Parse(c.API.BaseURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			errs = append(errs, ValidationError{
				Field:   "api.base_url",
				Message: fmt.Sprintf("invalid URL '%s', must be http(s)://host[:port]", c.API.BaseURL),
			})
		}
	}

	validDialects := map[string]bool{"chillgpt": true, "openai": true, "pypal": true}
	if !validDialects[strings.ToLower(c.API.Dialect)] {
		errs = append(errs, ValidationError{
			Field:   "api.dialect",
			Message: fmt.Sprintf("invalid dialect '%s', must be one of: chillgpt, openai, pypal", c.API.Dialect),
		})
	}

	validFormats := map[string]bool{"auto": true, "raw": true, "sse": true}
	if !validFormats[strings.ToLower(c.API.StreamFormat)] {
		errs = append(errs, ValidationError{
			Field:   "api.stream_format",
			Message: fmt.Sprintf("invalid stream format '%s', must be one of: auto, raw, sse", c.API.StreamFormat),
		})
	}

	if c.API.RequestsPerSecond < 0 {
		errs = append(errs, ValidationError{Field: "api.requests_per_second", Message: "must not be negative"})
	}

	if _, ok := ParsePreset(c.Chat.Preset); !ok {
		errs = append(errs, ValidationError{
			Field:   "chat.preset",
			Message: fmt.Sprintf("unknown preset '%s', must be one of: %s", c.Chat.Preset, strings.Join(PresetNames(), ", ")),
		})
	}

	if _, ok := ParseTheme(c.UI.Theme); !ok {
		errs = append(errs, ValidationError{
			Field:   "ui.theme",
			Message: fmt.Sprintf("unknown theme '%s', must be one of: %s", c.UI.Theme, strings.Join(ThemeNames(), ", ")),
		})
	}

	if c.UI.ScrollThreshold < 0 {
		errs = append(errs, ValidationError{Field: "ui.scroll_threshold", Message: "must not be negative"})
	}
	if c.UI.LongMessageWarning < 0 {
		errs = append(errs, ValidationError{Field: "ui.long_message_warning", Message: "must not be negative"})
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, ValidationError{
			Field:   "server.port",
			Message: fmt.Sprintf("port %d out of range 1-65535", c.Server.Port),
		})
	}
	if c.Server.RateLimit < 0 {
		errs = append(errs, ValidationError{Field: "server.rate_limit", Message: "must not be negative"})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// =============================================================================
// GET/SET HELPERS (DOT NOTATION)
// =============================================================================

// Get retrieves a configuration value using dot notation (e.g., "api.model").
func (c *Config) Get(key string) (any, error) {
	field, err := c.lookup(key)
	if err != nil {
		return nil, err
	}
	return field.Interface(), nil
}

// Set sets a configuration value using dot notation. String values are
// converted to the field's type.
func (c *Config) Set(key string, value any) error {
	field, err := c.lookup(key)
	if err != nil {
		return err
	}
	if !field.CanSet() {
		return fmt.Errorf("cannot set field: %s", key)
	}
	return setFieldValue(field, value)
}

// lookup resolves a two-part "section.field" key to its struct field.
func (c *Config) lookup(key string) (reflect.Value, error) {
	if strings.TrimSpace(key) == "" {
		return reflect.Value{}, errors.New("empty key")
	}
	parts := strings.Split(key, ".")

	v := reflect.ValueOf(c).Elem()
	for i, part := range parts {
		fieldName := normalizeFieldName(part)
		field := v.FieldByNameFunc(func(name string) bool {
			return strings.EqualFold(name, fieldName)
		})
		if !field.IsValid() {
			return reflect.Value{}, fmt.Errorf("unknown field: %s", strings.Join(parts[:i+1], "."))
		}
		if i == len(parts)-1 {
			if field.Kind() == reflect.Struct {
				return reflect.Value{}, fmt.Errorf("'%s' is a section, not a value", key)
			}
			return field, nil
		}
		if field.Kind() != reflect.Struct {
			return reflect.Value{}, fmt.Errorf("field '%s' is not a section", strings.Join(parts[:i+1], "."))
		}
		v = field
	}
	return reflect.Value{}, fmt.Errorf("invalid key: %s", key)
}

// normalizeFieldName converts a snake_case or kebab-case name to its Go field equivalent.
func normalizeFieldName(name string) string {
	parts := strings.FieldsFunc(name, func(r rune) bool {
		return r == '_' || r == '-'
	})

	var result strings.Builder
	for _, part := range parts {
		result.WriteString(strings.ToUpper(part[:1]))
		result.WriteString(strings.ToLower(part[1:]))
	}
	return result.String()
}

// setFieldValue sets a reflect.Value from a value with type conversion.
func setFieldValue(field reflect.Value, value any) error {
	if strVal, ok := value.(string); ok {
		switch field.Kind() {
		case reflect.String:
			field.SetString(strVal)
			return nil
		case reflect.Int, reflect.Int64:
			intVal, err := strconv.ParseInt(strings.TrimSpace(strVal), 10, 64)
			if err != nil {
				return fmt.Errorf("invalid integer value: %v", err)
			}
			field.SetInt(intVal)
			return nil
		case reflect.Float64:
			floatVal, err := strconv.ParseFloat(strings.TrimSpace(strVal), 64)
			if err != nil {
				return fmt.Errorf("invalid float value: %v", err)
			}
			field.SetFloat(floatVal)
			return nil
		case reflect.Bool:
			field.SetBool(parseBool(strVal))
			return nil
		}
	}

	val := reflect.ValueOf(value)
	if !val.IsValid() {
		return fmt.Errorf("cannot assign nil to %s", field.Type())
	}
	if val.Type().AssignableTo(field.Type()) {
		field.Set(val)
		return nil
	}
	if val.Type().ConvertibleTo(field.Type()) && val.Kind() != reflect.String {
		field.Set(val.Convert(field.Type()))
		return nil
	}
	return fmt.Errorf("cannot assign %T to %s", value, field.Type())
}

// AllKeys returns every configuration key in dot notation, sorted.
func AllKeys() []string {
	var keys []string
	root := reflect.TypeOf(Config{})
	for i := 0; i < root.NumField(); i++ {
		section := root.Field(i)
		sectionName := tagName(section)
		for j := 0; j < section.Type.NumField(); j++ {
			keys = append(keys, sectionName+"."+tagName(section.Type.Field(j)))
		}
	}
	sort.Strings(keys)
	return keys
}

func tagName(f reflect.StructField) string {
	name, _, _ := strings.Cut(f.Tag.Get("toml"), ",")
	if name == "" {
		return strings.ToLower(f.Name)
	}
	return name
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// Clone returns a copy of the config.
func (c *Config) Clone() *Config {
	clone := *c
	return &clone
}

// String returns the config as indented JSON with the API key redacted.
func (c *Config) String() string {
	safe := c.Clone()
	if safe.API.APIKey != "" {
		safe.API.APIKey = "[REDACTED]"
	}
	data, _ := json.MarshalIndent(safe, "", "  ")
	return string(data)
}

// =============================================================================
// SINGLETON PATTERN (THREAD-SAFE)
// =============================================================================

var (
	globalConfig     *Config
	globalConfigOnce sync.Once
	globalConfigMu   sync.RWMutex
)

// Global returns the global configuration instance.
// Loads configuration on first access. Thread-safe.
func Global() *Config {
	globalConfigOnce.Do(func() {
		cfg, err := Load()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v (using defaults)\n", err)
			cfg = Default()
		}
		globalConfigMu.Lock()
		globalConfig = cfg
		globalConfigMu.Unlock()
	})

	globalConfigMu.RLock()
	defer globalConfigMu.RUnlock()
	return globalConfig
}

// ReloadGlobal reloads the global configuration from disk. Thread-safe.
func ReloadGlobal() error {
	cfg, err := Load()
	if err != nil {
		return err
	}
	SetGlobal(cfg)
	return nil
}

// SetGlobal sets the global configuration instance. Thread-safe.
func SetGlobal(cfg *Config) {
	globalConfigMu.Lock()
	defer globalConfigMu.Unlock()
	globalConfig = cfg
}

// ResetGlobalForTesting resets the global config state for testing.
func ResetGlobalForTesting() {
	globalConfigMu.Lock()
	defer globalConfigMu.Unlock()
	globalConfig = nil
	globalConfigOnce = sync.Once{}
}
