// Copyright (c) 2025 The duochat authors
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package genai provides the session-oriented Gemini adapter. A chat
// session carries the full conversation context on the provider side
// of the wire protocol; duochat keeps one live session handle per
// conversation and rebuilds it from stored history after a restart.
package genai

import (
	"context"
	"sync"
	"time"

	"net/http"

	"github.com/haivn/duochat/internal/model"
	"github.com/haivn/duochat/internal/provider"
)

// =============================================================================
// CLIENT CONFIGURATION
// =============================================================================

// Config holds configuration for the Gemini client.
type Config struct {
	// BaseURL of the Generative Language API.
	BaseURL string

	// Model to request (default: "gemini-2.5-flash").
	Model string

	// StreamTimeout bounds the whole streaming call. Zero disables the
	// client-side bound; cancellation then rests on the context.
	StreamTimeout time.Duration
}

// DefaultConfig returns the default Gemini client configuration.
func DefaultConfig() *Config {
	return &Config{
		BaseURL: "https://generativelanguage.googleapis.com",
		Model:   "gemini-2.5-flash",
	}
}

// =============================================================================
// CLIENT
// =============================================================================

// Client talks to the Gemini streaming API. Thread-safe; the API key
// may be replaced at runtime when the user saves a new credential.
type Client struct {
	mu         sync.RWMutex
	apiKey     string
	config     *Config
	httpClient *http.Client
}

// NewClient creates a Gemini client. A nil config uses defaults.
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
		apiKey: apiKey,
		config: config,
		// Streaming responses stay open for the whole generation, so
		// no Timeout on the http.Client itself.
		httpClient: &http.Client{},
	}
}

// Name returns the stable provider key.
func (c *Client) Name() string { return "gemini" }

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

// Resume rebuilds a chat session from persisted history. Local and
// cheap: the seed context is only shipped with the next turn.
func (c *Client) Resume(history []model.Message) provider.Session {
	return c.NewSession(history)
}

// Stream sends turn through the conversation's chat session. When no
// usable session is supplied one is constructed from history first.
func (c *Client) Stream(ctx context.Context, history []model.Message, turn model.Message, sess provider.Session, fn provider.DeltaFunc) error {
	s, ok := sess.(*ChatSession)
	if !ok || s == nil {
		s = c.NewSession(history)
	}
	return s.SendStream(ctx, turn.Parts, fn)
}
