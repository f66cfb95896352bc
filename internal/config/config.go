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
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/mattn/go-runewidth"

	"github.com/jeranaias/rigwrite/internal/commands"
	"github.com/jeranaias/rigwrite/internal/util"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete rigwrite configuration.
type Config struct {
	// Ollama server and generation defaults
	Ollama OllamaConfig `toml:"ollama" json:"ollama"`

	// Stream session tuning
	Stream StreamConfig `toml:"stream" json:"stream"`

	// Per-session statistics store
	Telemetry TelemetryConfig `toml:"telemetry" json:"telemetry"`

	// Document index server used by `index` and `ask`
	Index IndexConfig `toml:"index" json:"index"`

	// Prompt commands. Absent means the built-in set; an explicit empty
	// list means none.
	Commands []CommandConfig `toml:"commands" json:"commands"`
}

// OllamaConfig contains Ollama connection and generation settings.
type OllamaConfig struct {
	URL          string  `toml:"url" json:"url"`
	DefaultModel string  `toml:"default_model" json:"default_model"`
	Temperature  float64 `toml:"temperature" json:"temperature"`

	// HeaderTimeoutSecs bounds the wait for the first response headers.
	// The stream body itself is never timed out.
	HeaderTimeoutSecs int `toml:"header_timeout_secs" json:"header_timeout_secs"`

	// AutoStart runs `ollama serve` when the server is not reachable.
	AutoStart bool `toml:"auto_start" json:"auto_start"`
}

// StreamConfig contains stream session settings.
type StreamConfig struct {
	ReadBuffer int `toml:"read_buffer" json:"read_buffer"`

	// Placeholder is the one-cell glyph shown while waiting for the first
	// response. Empty disables it.
	Placeholder string `toml:"placeholder" json:"placeholder"`

	// SaveIntervalMs throttles progressive saves of a target file.
	SaveIntervalMs int `toml:"save_interval_ms" json:"save_interval_ms"`
}

// TelemetryConfig controls the session statistics store.
type TelemetryConfig struct {
	Enabled bool   `toml:"enabled" json:"enabled"`
	Path    string `toml:"path" json:"path"`
}

// IndexConfig points at a LlamaIndex server that indexes a notes
// directory and answers questions over it.
type IndexConfig struct {
	// LlamaIndexURL is the server base URL. Empty disables `index` and `ask`.
	LlamaIndexURL string `toml:"llama_index_url" json:"llama_index_url"`

	// TimeoutSecs bounds each request to the index server.
	TimeoutSecs int `toml:"timeout_secs" json:"timeout_secs"`

	// DebounceMs is how long a watched directory must stay quiet before
	// changes are sent.
	DebounceMs int `toml:"debounce_ms" json:"debounce_ms"`
}

// CommandConfig is one prompt command as written in the config file.
type CommandConfig struct {
	Name        string   `toml:"name" json:"name"`
	Prompt      string   `toml:"prompt" json:"prompt"`
	Model       string   `toml:"model,omitempty" json:"model,omitempty"`
	Temperature *float64 `toml:"temperature,omitempty" json:"temperature,omitempty"`
}

// =============================================================================
// DEFAULTS
// =============================================================================

const (
	DefaultOllamaURL         = "http://localhost:11434"
	DefaultModel             = "llama2"
	DefaultTemperature       = 0.2
	DefaultHeaderTimeoutSecs = 120
	DefaultReadBuffer        = 4096
	DefaultPlaceholder       = "…"
	DefaultSaveIntervalMs    = 250
	DefaultIndexTimeoutSecs  = 60
	DefaultIndexDebounceMs   = 500
)

// Default returns the default configuration, built-in commands included.
func Default() *Config {
	cfg := baseDefaults()
	cfg.Commands = DefaultCommands()
	return cfg
}

// baseDefaults is Default without commands, so that a file's [[commands]]
// replace the built-ins instead of merging into them.
func baseDefaults() *Config {
	return &Config{
		Ollama: OllamaConfig{
			URL:               DefaultOllamaURL,
			DefaultModel:      DefaultModel,
			Temperature:       DefaultTemperature,
			HeaderTimeoutSecs: DefaultHeaderTimeoutSecs,
		},
		Stream: StreamConfig{
			ReadBuffer:     DefaultReadBuffer,
			Placeholder:    DefaultPlaceholder,
			SaveIntervalMs: DefaultSaveIntervalMs,
		},
		Index: IndexConfig{
			TimeoutSecs: DefaultIndexTimeoutSecs,
			DebounceMs:  DefaultIndexDebounceMs,
		},
	}
}

// DefaultCommands returns the built-in prompt commands in config form.
func DefaultCommands() []CommandConfig {
	builtin := commands.Builtin()
	out := make([]CommandConfig, len(builtin))
	for i, cmd := range builtin {
		out[i] = CommandConfig{Name: cmd.Name, Prompt: cmd.Prompt}
	}
	return out
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// ConfigDir returns the rigwrite configuration directory path.
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".rigwrite"), nil
}

// ConfigPathTOML returns the path to the TOML config file.
func ConfigPathTOML() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// ConfigPathJSON returns the path to the JSON config file.
func ConfigPathJSON() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// ActivePath returns the file Load reads: $RIGWRITE_CONFIG if set, else
// config.toml, else config.json if that exists. The TOML path is returned
// when neither file exists yet.
func ActivePath() (string, error) {
	if p := os.Getenv("RIGWRITE_CONFIG"); p != "" {
		return p, nil
	}
	tomlPath, err := ConfigPathTOML()
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(tomlPath); err == nil {
		return tomlPath, nil
	}
	jsonPath, err := ConfigPathJSON()
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(jsonPath); err == nil {
		return jsonPath, nil
	}
	return tomlPath, nil
}

// DefaultTelemetryPath returns where session statistics are stored when
// telemetry.path is unset.
func DefaultTelemetryPath() string {
	dir, err := ConfigDir()
	if err != nil {
		return "rigwrite-telemetry.db"
	}
	return filepath.Join(dir, "telemetry.db")
}

// =============================================================================
// LOAD FUNCTIONS
// =============================================================================

// Load loads configuration from the active config file, falling back to
// defaults when there is none. Environment overrides are applied last.
func Load() (*Config, error) {
	path, err := ActivePath()
	if err != nil {
		return nil, err
	}
	if _, statErr := os.Stat(path); statErr != nil {
		if os.Getenv("RIGWRITE_CONFIG") != "" {
			return nil, fmt.Errorf("config file %s: %w", path, statErr)
		}
		cfg := baseDefaults()
		return finish(cfg)
	}
	return LoadFromPath(path)
}

// LoadFromPath loads configuration from a specific file. Files ending in
// .json are read as JSON, anything else as TOML.
func LoadFromPath(path string) (*Config, error) {
	cfg := baseDefaults()

	if strings.HasSuffix(path, ".json") {
		if err := LoadJSON(cfg, path); err != nil {
			return nil, fmt.Errorf("failed to load JSON config from %s: %w", path, err)
		}
	} else {
		if err := LoadTOML(cfg, path); err != nil {
			return nil, fmt.Errorf("failed to load TOML config from %s: %w", path, err)
		}
	}
	return finish(cfg)
}

// LoadForEdit reads path for a read-modify-write cycle. Environment
// overrides are not applied so they never leak into the saved file, and
// the result is not validated. A missing file yields the defaults.
func LoadForEdit(path string) (*Config, error) {
	cfg := baseDefaults()
	if _, err := os.Stat(path); err == nil {
		var loadErr error
		if strings.HasSuffix(path, ".json") {
			loadErr = LoadJSON(cfg, path)
		} else {
			loadErr = LoadTOML(cfg, path)
		}
		if loadErr != nil {
			return nil, fmt.Errorf("failed to load config from %s: %w", path, loadErr)
		}
	}
	cfg.SetDefaults()
	return cfg, nil
}

func finish(cfg *Config) (*Config, error) {
	cfg.ApplyEnvOverrides()
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadTOML decodes a TOML file over cfg. Keys absent from the file keep
// their current values.
func LoadTOML(cfg *Config, path string) error {
	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return fmt.Errorf("failed to decode TOML file: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return fmt.Errorf("unknown keys: %s", strings.Join(keys, ", "))
	}
	return nil
}

// LoadJSON decodes a JSON file over cfg.
func LoadJSON(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read JSON file: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil {
		return fmt.Errorf("failed to decode JSON file: %w", err)
	}
	return nil
}

// =============================================================================
// SAVE FUNCTIONS
// =============================================================================

const tomlHeader = `# rigwrite configuration file
# Generated by rigwrite - edit with care
#
# [ollama]     server URL, default model and temperature
# [stream]     read buffer, placeholder glyph, save throttle
# [telemetry]  per-session statistics (no prompt or response text)
# [[commands]] prompt commands; remove them all to disable the built-ins

`

// Save saves the configuration to the active config path.
func Save(cfg *Config) error {
	path, err := ActivePath()
	if err != nil {
		return err
	}
	return SaveToPath(cfg, path)
}

// SaveToPath saves as JSON for a .json path and as TOML otherwise.
func SaveToPath(cfg *Config, path string) error {
	if strings.HasSuffix(path, ".json") {
		return SaveJSON(cfg, path)
	}
	return SaveTOML(cfg, path)
}

// SaveTOML writes the configuration as TOML with a header comment.
// Config files are written 0600 inside a 0700 directory.
func SaveTOML(cfg *Config, path string) error {
	var buf bytes.Buffer
	buf.WriteString(tomlHeader)
	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := util.AtomicWriteFileWithDir(path, buf.Bytes(), 0600, 0700); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// SaveJSON writes the configuration as indented JSON.
func SaveJSON(cfg *Config, path string) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := util.AtomicWriteFileWithDir(path, data, 0600, 0700); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
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

var placeholderWidth = &runewidth.Condition{EastAsianWidth: false}

// Validate checks every field and reports all problems at once.
func (c *Config) Validate() error {
	var errs ValidateErrors
	add := func(field, msg string) {
		errs = append(errs, ValidationError{Field: field, Message: msg})
	}

	if u, err := url.Parse(c.Ollama.URL); err != nil {
		add("ollama.url", "invalid URL: "+err.Error())
	} else if u.Scheme != "http" && u.Scheme != "https" {
		add("ollama.url", "scheme must be http or https")
	} else if u.Host == "" {
		add("ollama.url", "missing host")
	}
	if strings.TrimSpace(c.Ollama.DefaultModel) == "" {
		add("ollama.default_model", "must not be empty")
	}
	if c.Ollama.Temperature < 0 || c.Ollama.Temperature > 2 {
		add("ollama.temperature", "must be between 0 and 2")
	}
	if c.Ollama.HeaderTimeoutSecs < 0 {
		add("ollama.header_timeout_secs", "must not be negative")
	}

	if c.Stream.ReadBuffer < 64 || c.Stream.ReadBuffer > 1<<20 {
		add("stream.read_buffer", "must be between 64 and 1048576")
	}
	if p := c.Stream.Placeholder; p != "" {
		runes := []rune(p)
		if len(runes) != 1 || placeholderWidth.RuneWidth(runes[0]) != 1 {
			add("stream.placeholder", "must be a single one-cell character")
		}
	}
	if c.Stream.SaveIntervalMs < 0 {
		add("stream.save_interval_ms", "must not be negative")
	}

	if c.Index.LlamaIndexURL != "" {
		if u, err := url.Parse(c.Index.LlamaIndexURL); err != nil {
			add("index.llama_index_url", "invalid URL: "+err.Error())
		} else if u.Scheme != "http" && u.Scheme != "https" {
			add("index.llama_index_url", "scheme must be http or https")
		} else if u.Host == "" {
			add("index.llama_index_url", "missing host")
		}
	}
	if c.Index.TimeoutSecs < 0 {
		add("index.timeout_secs", "must not be negative")
	}
	if c.Index.DebounceMs < 0 {
		add("index.debounce_ms", "must not be negative")
	}

	seen := make(map[string]int)
	for i, cmd := range c.Commands {
		field := fmt.Sprintf("commands[%d]", i)
		if strings.TrimSpace(cmd.Name) == "" {
			add(field+".name", "must not be empty")
			continue
		}
		if strings.TrimSpace(cmd.Prompt) == "" {
			add(field+".prompt", "must not be empty")
		}
		if cmd.Temperature != nil && (*cmd.Temperature < 0 || *cmd.Temperature > 2) {
			add(field+".temperature", "must be between 0 and 2")
		}
		id := commands.KebabCase(cmd.Name)
		if j, dup := seen[id]; dup {
			add(field+".name", fmt.Sprintf("id %q already used by commands[%d]", id, j))
		}
		seen[id] = i
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// SetDefaults fills in zero values that have no meaning of their own.
func (c *Config) SetDefaults() {
	if c.Ollama.URL == "" {
		c.Ollama.URL = DefaultOllamaURL
	}
	c.Ollama.URL = strings.TrimRight(c.Ollama.URL, "/")
	if c.Ollama.DefaultModel == "" {
		c.Ollama.DefaultModel = DefaultModel
	}
	if c.Ollama.HeaderTimeoutSecs == 0 {
		c.Ollama.HeaderTimeoutSecs = DefaultHeaderTimeoutSecs
	}
	if c.Stream.ReadBuffer == 0 {
		c.Stream.ReadBuffer = DefaultReadBuffer
	}
	if c.Telemetry.Path == "" {
		c.Telemetry.Path = DefaultTelemetryPath()
	}
	c.Index.LlamaIndexURL = strings.TrimRight(c.Index.LlamaIndexURL, "/")
	if c.Index.TimeoutSecs == 0 {
		c.Index.TimeoutSecs = DefaultIndexTimeoutSecs
	}
	if c.Index.DebounceMs == 0 {
		c.Index.DebounceMs = DefaultIndexDebounceMs
	}
	if c.Commands == nil {
		c.Commands = DefaultCommands()
	}
}

// =============================================================================
// DERIVED VALUES
// =============================================================================

// HeaderTimeout returns the header timeout as a duration.
func (c *Config) HeaderTimeout() time.Duration {
	return time.Duration(c.Ollama.HeaderTimeoutSecs) * time.Second
}

// SaveInterval returns the progressive save throttle as a duration.
func (c *Config) SaveInterval() time.Duration {
	return time.Duration(c.Stream.SaveIntervalMs) * time.Millisecond
}

// IndexTimeout returns the index request timeout as a duration.
func (c *Config) IndexTimeout() time.Duration {
	return time.Duration(c.Index.TimeoutSecs) * time.Second
}

// IndexDebounce returns the watch debounce as a duration.
func (c *Config) IndexDebounce() time.Duration {
	return time.Duration(c.Index.DebounceMs) * time.Millisecond
}

// PlaceholderRune returns the placeholder glyph, or 0 when disabled.
func (c *Config) PlaceholderRune() rune {
	for _, r := range c.Stream.Placeholder {
		return r
	}
	return 0
}

// PromptCommands converts the configured commands for the registry.
func (c *Config) PromptCommands() []commands.Command {
	out := make([]commands.Command, len(c.Commands))
	for i, cc := range c.Commands {
		out[i] = commands.Command{
			ID:          commands.KebabCase(cc.Name),
			Name:        cc.Name,
			Prompt:      cc.Prompt,
			Model:       cc.Model,
			Temperature: cc.Temperature,
		}
	}
	return out
}

// Defaults returns the fallbacks applied to prompt commands.
func (c *Config) Defaults() commands.Defaults {
	return commands.Defaults{Model: c.Ollama.DefaultModel, Temperature: c.Ollama.Temperature}
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies environment variable overrides to the config.
//
// Supported environment variables:
//   - RIGWRITE_OLLAMA_URL: overrides ollama.url
//   - RIGWRITE_MODEL: overrides ollama.default_model
//   - RIGWRITE_TEMPERATURE: overrides ollama.temperature (ignored if not a number)
//   - RIGWRITE_TELEMETRY: "0"/"false" disables telemetry, "1"/"true" enables it
//
// RIGWRITE_CONFIG selects the config file itself; see ActivePath.
func (c *Config) ApplyEnvOverrides() {
	if u := os.Getenv("RIGWRITE_OLLAMA_URL"); u != "" {
		c.Ollama.URL = u
	}
	if model := os.Getenv("RIGWRITE_MODEL"); model != "" {
		c.Ollama.DefaultModel = model
	}
	if temp := os.Getenv("RIGWRITE_TEMPERATURE"); temp != "" {
		if v, err := strconv.ParseFloat(temp, 64); err == nil {
			c.Ollama.Temperature = v
		}
	}
	if tel := os.Getenv("RIGWRITE_TELEMETRY"); tel != "" {
		c.Telemetry.Enabled = tel == "1" || strings.EqualFold(tel, "true")
	}
	if u := os.Getenv("RIGWRITE_LLAMA_INDEX_URL"); u != "" {
		c.Index.LlamaIndexURL = strings.TrimRight(u, "/")
	}
}

// =============================================================================
// GET/SET HELPERS (DOT NOTATION)
// =============================================================================

// Get retrieves a configuration value using dot notation (e.g. "ollama.url").
func (c *Config) Get(key string) (interface{}, error) {
	field, err := c.lookup(key)
	if err != nil {
		return nil, err
	}
	return field.Interface(), nil
}

// Set sets a scalar configuration value using dot notation. String input is
// converted to the field's type.
func (c *Config) Set(key string, value interface{}) error {
	field, err := c.lookup(key)
	if err != nil {
		return err
	}
	if !field.CanSet() {
		return fmt.Errorf("cannot set field: %s", key)
	}
	return setFieldValue(field, value)
}

func (c *Config) lookup(key string) (reflect.Value, error) {
	if key == "" {
		return reflect.Value{}, errors.New("empty key")
	}
	parts := strings.Split(key, ".")
	v := reflect.ValueOf(c).Elem()
	for i, part := range parts {
		name := normalizeFieldName(part)
		field := v.FieldByNameFunc(func(n string) bool {
			return strings.EqualFold(n, name)
		})
		if !field.IsValid() {
			return reflect.Value{}, fmt.Errorf("unknown field: %s", strings.Join(parts[:i+1], "."))
		}
		if i == len(parts)-1 {
			if field.Kind() == reflect.Struct || field.Kind() == reflect.Slice {
				return reflect.Value{}, fmt.Errorf("%s is a section, not a value", key)
			}
			return field, nil
		}
		if field.Kind() != reflect.Struct {
			return reflect.Value{}, fmt.Errorf("field '%s' is not a struct", strings.Join(parts[:i+1], "."))
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

// setFieldValue sets a reflect.Value from an interface{} value with type conversion.
func setFieldValue(field reflect.Value, value interface{}) error {
	if s, ok := value.(string); ok {
		switch field.Kind() {
		case reflect.String:
			field.SetString(s)
			return nil
		case reflect.Int, reflect.Int64:
			n, err := strconv.ParseInt(s, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid integer value: %v", err)
			}
			field.SetInt(n)
			return nil
		case reflect.Float64:
			f, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return fmt.Errorf("invalid float value: %v", err)
			}
			field.SetFloat(f)
			return nil
		case reflect.Bool:
			b, err := strconv.ParseBool(s)
			if err != nil {
				return fmt.Errorf("invalid boolean value: %v", err)
			}
			field.SetBool(b)
			return nil
		}
	}

	val := reflect.ValueOf(value)
	if val.Type().AssignableTo(field.Type()) {
		field.Set(val)
		return nil
	}
	if val.Type().ConvertibleTo(field.Type()) {
		field.Set(val.Convert(field.Type()))
		return nil
	}
	return fmt.Errorf("cannot assign %T to %s", value, field.Type())
}

// GetAllKeys returns all scalar configuration keys in dot notation.
func GetAllKeys() []string {
	return []string{
		"ollama.url",
		"ollama.default_model",
		"ollama.temperature",
		"ollama.header_timeout_secs",
		"ollama.auto_start",
		"stream.read_buffer",
		"stream.placeholder",
		"stream.save_interval_ms",
		"telemetry.enabled",
		"telemetry.path",
		"index.llama_index_url",
		"index.timeout_secs",
		"index.debounce_ms",
	}
}

// Clone creates a deep copy of the configuration.
func (c *Config) Clone() *Config {
	clone := *c
	if c.Commands != nil {
		clone.Commands = make([]CommandConfig, len(c.Commands))
		for i, cmd := range c.Commands {
			if cmd.Temperature != nil {
				t := *cmd.Temperature
				cmd.Temperature = &t
			}
			clone.Commands[i] = cmd
		}
	}
	return &clone
}

// String returns the config as indented JSON for display.
func (c *Config) String() string {
	data, _ := json.MarshalIndent(c, "", "  ")
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

// Global returns the global configuration instance, loading it on first
// access. A config that fails to load is reported on stderr and replaced by
// the defaults.
func Global() *Config {
	globalConfigOnce.Do(func() {
		cfg, err := Load()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v (using defaults)\n", err)
			cfg = Default()
			cfg.SetDefaults()
		}
		globalConfigMu.Lock()
		if globalConfig == nil {
			globalConfig = cfg
		}
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
