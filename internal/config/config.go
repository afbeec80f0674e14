// Copyright (c) 2025 The duochat authors
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for
// duochat.
//
// Configuration is TOML with sensible defaults and environment
// variable overrides:
//   - Environment variables (DUOCHAT_*)
//   - ~/.duochat/config.toml
//   - Built-in defaults
//
// API keys are not configuration: they live in the persistence store
// alongside the conversations, so the config file never holds secrets.
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete duochat configuration.
type Config struct {
	// Storage configuration
	Storage StorageConfig `toml:"storage"`

	// Gemini provider configuration
	Gemini ProviderConfig `toml:"gemini"`

	// OpenAI provider configuration
	OpenAI ProviderConfig `toml:"openai"`

	// UI configuration
	UI UIConfig `toml:"ui"`

	// LogPath is where runtime logs go (empty = ~/.duochat/duochat.log).
	LogPath string `toml:"log_path"`
}

// StorageConfig selects the persistence backend.
type StorageConfig struct {
	// Backend is "file" (single JSON document) or "sqlite".
	Backend string `toml:"backend"`
	// Path to the state file or database (empty = default under
	// ~/.duochat).
	Path string `toml:"path"`
}

// ProviderConfig configures one upstream chat backend.
type ProviderConfig struct {
	// Model requested from the backend.
	Model string `toml:"model"`
	// BaseURL of the backend API. Overridable for proxies and tests.
	BaseURL string `toml:"base_url"`
	// StreamTimeoutSecs bounds one streaming turn (0 = no timeout).
	StreamTimeoutSecs int `toml:"stream_timeout_secs"`
}

// UIConfig contains terminal UI settings.
type UIConfig struct {
	// Markdown renders model output as styled markdown when true.
	Markdown bool `toml:"markdown"`
	// SidebarWidth is the conversation list width in cells.
	SidebarWidth int `toml:"sidebar_width"`
}

// Backend names accepted in StorageConfig.Backend.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
)

// =============================================================================
// DEFAULTS
// =============================================================================

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Storage: StorageConfig{
			Backend: BackendFile,
		},
		Gemini: ProviderConfig{
			Model:   "gemini-2.5-flash",
			BaseURL: "https://generativelanguage.googleapis.com",
		},
		OpenAI: ProviderConfig{
			Model:   "gpt-4o",
			BaseURL: "https://api.openai.com/v1",
		},
		UI: UIConfig{
			Markdown:     true,
			SidebarWidth: 28,
		},
	}
}

// =============================================================================
// PATHS
// =============================================================================

// ConfigDir returns the duochat configuration directory (~/.duochat).
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to determine home directory: %w", err)
	}
	return filepath.Join(home, ".duochat"), nil
}

// ConfigPath returns the path to the TOML configuration file.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// EnsureConfigDir creates the configuration directory if needed.
func EnsureConfigDir() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, 0700)
}

// StatePath resolves the storage path, deriving the default from the
// backend when unset.
func (c *Config) StatePath() (string, error) {
	if c.Storage.Path != "" {
		return c.Storage.Path, nil
	}
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	name := "state.json"
	if c.Storage.Backend == BackendSQLite {
		name = "state.db"
	}
	return filepath.Join(dir, name), nil
}

// ResolvedLogPath returns LogPath or the default log location.
func (c *Config) ResolvedLogPath() (string, error) {
	if c.LogPath != "" {
		return c.LogPath, nil
	}
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "duochat.log"), nil
}

// =============================================================================
// LOADING
// =============================================================================

// Load reads the configuration file if present, applies environment
// overrides and validates. Missing files fall back to defaults; a
// present but malformed file is an error.
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return nil, err
	}
	return LoadFromPath(path)
}

// LoadFromPath loads configuration from an explicit file path.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()

	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to decode config file: %w", err)
		}
	}

	cfg.ApplyEnvOverrides()
	cfg.fillDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// ApplyEnvOverrides applies DUOCHAT_* environment variables on top of
// the loaded configuration.
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv("DUOCHAT_STORAGE_BACKEND"); v != "" {
		c.Storage.Backend = v
	}
	if v := os.Getenv("DUOCHAT_STORAGE_PATH"); v != "" {
		c.Storage.Path = v
	}
	if v := os.Getenv("DUOCHAT_GEMINI_MODEL"); v != "" {
		c.Gemini.Model = v
	}
	if v := os.Getenv("DUOCHAT_GEMINI_BASE_URL"); v != "" {
		c.Gemini.BaseURL = v
	}
	if v := os.Getenv("DUOCHAT_OPENAI_MODEL"); v != "" {
		c.OpenAI.Model = v
	}
	if v := os.Getenv("DUOCHAT_OPENAI_BASE_URL"); v != "" {
		c.OpenAI.BaseURL = v
	}
	if v := os.Getenv("DUOCHAT_LOG_PATH"); v != "" {
		c.LogPath = v
	}
	if v := os.Getenv("DUOCHAT_MARKDOWN"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.UI.Markdown = b
		}
	}
}

// fillDefaults backfills zero values left by a partial config file.
func (c *Config) fillDefaults() {
	def := Default()
	if c.Storage.Backend == "" {
		c.Storage.Backend = def.Storage.Backend
	}
	if c.Gemini.Model == "" {
		c.Gemini.Model = def.Gemini.Model
	}
	if c.Gemini.BaseURL == "" {
		c.Gemini.BaseURL = def.Gemini.BaseURL
	}
	if c.OpenAI.Model == "" {
		c.OpenAI.Model = def.OpenAI.Model
	}
	if c.OpenAI.BaseURL == "" {
		c.OpenAI.BaseURL = def.OpenAI.BaseURL
	}
	if c.UI.SidebarWidth == 0 {
		c.UI.SidebarWidth = def.UI.SidebarWidth
	}
}

// =============================================================================
// SAVING
// =============================================================================

// Save writes the configuration to the default location with owner-only
// permissions.
func Save(cfg *Config) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	return SaveToPath(cfg, path)
}

// SaveToPath writes the configuration as TOML to an explicit path.
func SaveToPath(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer file.Close()

	fmt.Fprintln(file, "# duochat configuration file")
	fmt.Fprintln(file, "# API keys are stored with the conversation state, not here.")
	fmt.Fprintln(file, "")

	if err := toml.NewEncoder(file).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError describes one invalid configuration field.
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
	msgs := make([]string, len(e))
	for i, err := range e {
		msgs[i] = err.Error()
	}
	return strings.Join(msgs, "; ")
}

// Validate checks the configuration and returns any errors.
func (c *Config) Validate() error {
	var errs ValidateErrors

	switch c.Storage.Backend {
	case BackendFile, BackendSQLite:
	default:
		errs = append(errs, ValidationError{
			Field:   "storage.backend",
			Message: fmt.Sprintf("must be %q or %q, got %q", BackendFile, BackendSQLite, c.Storage.Backend),
		})
	}

	for field, raw := range map[string]string{
		"gemini.base_url": c.Gemini.BaseURL,
		"openai.base_url": c.OpenAI.BaseURL,
	} {
		u, err := url.Parse(raw)
		if err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, ValidationError{Field: field, Message: fmt.Sprintf("invalid URL %q", raw)})
		}
	}

	if c.Gemini.StreamTimeoutSecs < 0 {
		errs = append(errs, ValidationError{Field: "gemini.stream_timeout_secs", Message: "cannot be negative"})
	}
	if c.OpenAI.StreamTimeoutSecs < 0 {
		errs = append(errs, ValidationError{Field: "openai.stream_timeout_secs", Message: "cannot be negative"})
	}
	if c.UI.SidebarWidth < 0 {
		errs = append(errs, ValidationError{Field: "ui.sidebar_width", Message: "cannot be negative"})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}
