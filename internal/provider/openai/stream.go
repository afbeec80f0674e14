// Copyright (c) 2025 The duochat authors
// SPDX-License-Identifier: AGPL-3.0-or-later

package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"

	"github.com/haivn/duochat/internal/provider"
)

// doneFrame terminates a streaming completion.
var doneFrame = []byte("[DONE]")

// chatStream issues the streaming POST and forwards content deltas.
func (c *Client) chatStream(ctx context.Context, messages []chatMessage, fn provider.DeltaFunc) error {
	apiKey := c.key()
	if apiKey == "" {
		return provider.NewError(0, "OpenAI API key not configured")
	}

	if c.config.StreamTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.config.StreamTimeout)
		defer cancel()
	}

	body, err := json.Marshal(chatRequest{
		Model:    c.config.Model,
		Messages: messages,
		Stream:   true,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Authorization", "Bearer "+apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return provider.NewError(0, "%v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		return c.errorFromResponse(resp.StatusCode, raw)
	}

	return c.processStream(resp.Body, fn)
}

// processStream reads SSE frames until "[DONE]" or EOF. Malformed
// frames are logged and skipped; the stream keeps going.
func (c *Client) processStream(body io.Reader, fn provider.DeltaFunc) error {
	reader := provider.NewSSEReader(body)

	for {
		data, err := reader.ReadData()
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return provider.NewError(0, "stream read failed: %v", err)
		}

		if bytes.Equal(data, doneFrame) {
			return nil
		}

		var chunk streamChunk
		if err := json.Unmarshal(data, &chunk); err != nil {
			log.Printf("openai: skipping malformed stream frame: %v", err)
			continue
		}
		if delta := chunk.content(); delta != "" {
			fn(delta)
		}
	}
}

// errorFromResponse extracts the upstream error message from a non-2xx
// body. Falls back to a bare status line when the body is opaque.
func (c *Client) errorFromResponse(statusCode int, body []byte) error {
	var er errorResponse
	if json.Unmarshal(body, &er) == nil && er.Error.Message != "" {
		return provider.NewError(statusCode, "%s", er.Error.Message)
	}
	return provider.NewError(statusCode, "HTTP error! status: %d", statusCode)
}
