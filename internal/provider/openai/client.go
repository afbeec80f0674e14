// Copyright (c) 2025 The duochat authors
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package openai provides the SSE-over-REST chat completions adapter.
// Unlike the Gemini adapter it is stateless: every turn ships the full
// translated history, so there is no session handle to resume.
package openai

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/haivn/duochat/internal/model"
	"github.com/haivn/duochat/internal/provider"
)

// =============================================================================
// CLIENT CONFIGURATION
// =============================================================================

// Config holds configuration for the OpenAI client.
type Config struct {
	// BaseURL of the chat completions API (default:
	// "https://api.openai.com/v1").
	BaseURL string

	// Model to request (default: "gpt-4o").
	Model string

	// StreamTimeout bounds the whole streaming call. Zero leaves
	// cancellation to the context.
	StreamTimeout time.Duration
}

// DefaultConfig returns the default OpenAI client configuration.
func DefaultConfig() *Config {
	return &Config{
		BaseURL: "https://api.openai.com/v1",
		Model:   "gpt-4o",
	}
}

// =============================================================================
// CLIENT
// =============================================================================

// Client talks to an OpenAI-compatible chat completions endpoint.
// Thread-safe; the API key may be replaced at runtime.
type Client struct {
	mu         sync.RWMutex
	apiKey     string
	config     *Config
	httpClient *http.Client
}

// NewClient creates an OpenAI client. A nil config uses defaults.
func NewClient(apiKey string, config *Config) *Client {
	if config == nil {
		config = DefaultConfig()
	}
	if config.BaseURL == "" {
		config.BaseURL = DefaultConfig().BaseURL
	}
	if config.Model == "" {
		config.Model = DefaultConfig().Model
	}
	return &Client{
		apiKey:     apiKey,
		config:     config,
		httpClient: &http.Client{},
	}
}

// Name returns the stable provider key.
func (c *Client) Name() string { return "openai" }

// Configured reports whether an API key is present.
func (c *Client) Configured() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.apiKey != ""
}

// SetAPIKey replaces the credential.
func (c *Client) SetAPIKey(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.apiKey = key
}

func (c *Client) key() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.apiKey
}

// Resume returns nil: the REST provider holds no server-side session.
func (c *Client) Resume(history []model.Message) provider.Session {
	return nil
}

// Stream implements provider.Provider; see stream.go.
func (c *Client) Stream(ctx context.Context, history []model.Message, turn model.Message, _ provider.Session, fn provider.DeltaFunc) error {
	return c.chatStream(ctx, buildMessages(history, turn), fn)
}
