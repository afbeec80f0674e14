// Copyright (c) 2025 The duochat authors
// SPDX-License-Identifier: AGPL-3.0-or-later

package openai

import (
	"github.com/haivn/duochat/internal/model"
)

// =============================================================================
// WIRE TYPES
// =============================================================================

// chatMessage is one entry of the chat completions payload. Content is
// either a plain string (text-only messages) or a []contentPart when
// any binary part is present.
type chatMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL string `json:"url"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
}

// streamChunk is one SSE frame of a streaming completion.
type streamChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
}

func (c *streamChunk) content() string {
	if len(c.Choices) == 0 {
		return ""
	}
	return c.Choices[0].Delta.Content
}

type errorResponse struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    any    `json:"code"`
	} `json:"error"`
}

// =============================================================================
// HISTORY TRANSLATION
// =============================================================================

// wireRole maps duochat roles onto the chat completions role names.
func wireRole(r model.Role) string {
	if r == model.RoleModel {
		return "assistant"
	}
	return "user"
}

// buildMessages translates conversation history plus the new turn into
// the chat completions payload:
//
//   - messages with only text parts become {role, content: string},
//     text parts joined with newlines;
//   - messages containing any binary part become a content array of
//     text and image_url entries, binary data inlined as a data URI;
//   - messages with no usable content are excluded entirely.
func buildMessages(history []model.Message, turn model.Message) []chatMessage {
	all := make([]model.Message, 0, len(history)+1)
	all = append(all, history...)
	all = append(all, turn)

	out := make([]chatMessage, 0, len(all))
	for _, msg := range all {
		if !msg.Usable() {
			continue
		}
		if !msg.HasBinary() {
			out = append(out, chatMessage{
				Role:    wireRole(msg.Role),
				Content: msg.JoinedText(),
			})
			continue
		}

		parts := make([]contentPart, 0, len(msg.Parts))
		for _, p := range msg.Parts {
			if p.IsBinary() {
				parts = append(parts, contentPart{
					Type:     "image_url",
					ImageURL: &imageURL{URL: "data:" + p.InlineData.MIMEType + ";base64," + p.InlineData.Data},
				})
				continue
			}
			if p.Text != "" {
				parts = append(parts, contentPart{Type: "text", Text: p.Text})
			}
		}
		out = append(out, chatMessage{Role: wireRole(msg.Role), Content: parts})
	}
	return out
}
