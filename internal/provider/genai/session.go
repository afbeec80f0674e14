// Copyright (c) 2025 The duochat authors
// SPDX-License-Identifier: AGPL-3.0-or-later

package genai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/haivn/duochat/internal/model"
	"github.com/haivn/duochat/internal/provider"
)

// =============================================================================
// WIRE TYPES
// =============================================================================

// content is one turn in the Gemini wire format.
type content struct {
	Role  string     `json:"role"`
	Parts []wirePart `json:"parts"`
}

type wirePart struct {
	Text       string    `json:"text,omitempty"`
	InlineData *wireBlob `json:"inlineData,omitempty"`
}

type wireBlob struct {
	MIMEType string `json:"mimeType"`
	Data     string `json:"data"`
}

type generateRequest struct {
	Contents []content `json:"contents"`
}

// streamChunk is one SSE frame of a streamGenerateContent response.
type streamChunk struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

func (c *streamChunk) text() string {
	if len(c.Candidates) == 0 {
		return ""
	}
	var sb strings.Builder
	for _, p := range c.Candidates[0].Content.Parts {
		sb.WriteString(p.Text)
	}
	return sb.String()
}

type errorResponse struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

func toWireParts(parts []model.Part) []wirePart {
	out := make([]wirePart, 0, len(parts))
	for _, p := range parts {
		if p.IsBinary() {
			out = append(out, wirePart{InlineData: &wireBlob{
				MIMEType: p.InlineData.MIMEType,
				Data:     p.InlineData.Data,
			}})
			continue
		}
		out = append(out, wirePart{Text: p.Text})
	}
	return out
}

// =============================================================================
// CHAT SESSION
// =============================================================================

// ChatSession is the opaque resumable handle for one conversation. It
// holds the accumulated wire-format history that gives Gemini its
// multi-turn context. The handle is never serialized; it is rebuilt
// from the conversation's stored messages via NewSession.
type ChatSession struct {
	client *Client

	mu      sync.Mutex
	history []content
}

// NewSession constructs a session seeded from conversation history.
// Only user/model messages carrying at least one non-empty part are
// replayed, in original order. No network call is made.
func (c *Client) NewSession(history []model.Message) *ChatSession {
	seed := make([]content, 0, len(history))
	for _, msg := range history {
		if !msg.Usable() {
			continue
		}
		seed = append(seed, content{
			Role:  string(msg.Role),
			Parts: toWireParts(msg.Parts),
		})
	}
	return &ChatSession{client: c, history: seed}
}

// HistoryLen returns the number of seeded plus settled turns held by
// the session.
func (s *ChatSession) HistoryLen() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.history)
}

// SendStream sends the outgoing parts and delivers response fragments
// through fn, in receipt order. On normal completion the user turn and
// the full model reply are appended to the session history; a failed
// stream leaves the history untouched so the turn can be reissued.
func (s *ChatSession) SendStream(ctx context.Context, parts []model.Part, fn provider.DeltaFunc) error {
	apiKey := s.client.key()
	if apiKey == "" {
		return provider.NewError(0, "Gemini API key not configured")
	}

	s.mu.Lock()
	userContent := content{Role: "user", Parts: toWireParts(parts)}
	contents := make([]content, 0, len(s.history)+1)
	contents = append(contents, s.history...)
	contents = append(contents, userContent)
	s.mu.Unlock()

	if s.client.config.StreamTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.client.config.StreamTimeout)
		defer cancel()
	}

	body, err := json.Marshal(generateRequest{Contents: contents})
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	url := s.client.config.BaseURL + "/v1beta/models/" + s.client.config.Model + ":streamGenerateContent?alt=sse"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("x-goog-api-key", apiKey)

	resp, err := s.client.httpClient.Do(req)
	if err != nil {
		return provider.NewError(0, "%v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		var er errorResponse
		if json.Unmarshal(raw, &er) == nil && er.Error.Message != "" {
			return provider.NewError(resp.StatusCode, "%s", er.Error.Message)
		}
		return provider.NewError(resp.StatusCode, "HTTP error! status: %d", resp.StatusCode)
	}

	accumulated, err := s.readStream(resp.Body, fn)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.history = append(s.history, userContent, content{
		Role:  string(model.RoleModel),
		Parts: []wirePart{{Text: accumulated}},
	})
	s.mu.Unlock()
	return nil
}

// readStream consumes SSE frames until EOF, forwarding each non-empty
// text fragment. Malformed frames are skipped, not fatal.
func (s *ChatSession) readStream(body io.Reader, fn provider.DeltaFunc) (string, error) {
	reader := provider.NewSSEReader(body)
	var accumulated strings.Builder

	for {
		data, err := reader.ReadData()
		if err != nil {
			if err == io.EOF {
				return accumulated.String(), nil
			}
			return "", provider.NewError(0, "stream read failed: %v", err)
		}

		var chunk streamChunk
		if json.Unmarshal(data, &chunk) != nil {
			continue
		}
		if text := chunk.text(); text != "" {
			accumulated.WriteString(text)
			fn(text)
		}
	}
}
