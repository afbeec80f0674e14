// Copyright (c) 2025 The duochat authors
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"strings"

	"github.com/google/uuid"
)

// =============================================================================
// ROLE TYPE
// =============================================================================

// Role represents the author of a message.
type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

// String returns the string representation of the role.
func (r Role) String() string {
	return string(r)
}

// DisplayName returns a human-readable name for the role.
func (r Role) DisplayName() string {
	switch r {
	case RoleUser:
		return "You"
	case RoleModel:
		return "Assistant"
	default:
		return string(r)
	}
}

// =============================================================================
// MESSAGE PARTS
// =============================================================================

// Blob holds base64-encoded binary data with its MIME type.
type Blob struct {
	MIMEType string `json:"mimeType"`
	Data     string `json:"data"`
}

// Part is one unit of message content. Exactly one of the fields is
// populated: Text for plain text, InlineData for binary content.
type Part struct {
	Text       string `json:"text,omitempty"`
	InlineData *Blob  `json:"inlineData,omitempty"`
}

// TextPart creates a text part.
func TextPart(text string) Part {
	return Part{Text: text}
}

// BinaryPart creates an inline binary part from base64-encoded data.
func BinaryPart(mimeType, data string) Part {
	return Part{InlineData: &Blob{MIMEType: mimeType, Data: data}}
}

// IsBinary reports whether the part carries inline binary data.
func (p Part) IsBinary() bool {
	return p.InlineData != nil
}

// IsEmpty reports whether the part carries neither non-blank text nor
// binary data.
func (p Part) IsEmpty() bool {
	return p.InlineData == nil && strings.TrimSpace(p.Text) == ""
}

// =============================================================================
// MESSAGE TYPE
// =============================================================================

// Message is a single turn of a conversation.
type Message struct {
	ID    string `json:"id"`
	Role  Role   `json:"role"`
	Parts []Part `json:"parts"`
}

// NewUserMessage creates a user message with the given parts.
func NewUserMessage(parts ...Part) Message {
	return Message{
		ID:    "msg-" + uuid.NewString(),
		Role:  RoleUser,
		Parts: parts,
	}
}

// NewUserText creates a user message with a single text part.
func NewUserText(text string) Message {
	return NewUserMessage(TextPart(text))
}

// NewPlaceholder creates the model message appended right after a user
// turn. It starts with one empty text part that is rewritten on every
// streamed delta until the turn settles.
func NewPlaceholder() Message {
	return Message{
		ID:    "msg-" + uuid.NewString() + "-model",
		Role:  RoleModel,
		Parts: []Part{TextPart("")},
	}
}

// NewModelError creates a settled model message carrying a user-facing
// error text.
func NewModelError(text string) Message {
	return Message{
		ID:    "msg-" + uuid.NewString() + "-error",
		Role:  RoleModel,
		Parts: []Part{TextPart(text)},
	}
}

// FirstText returns the text of the first text part, or "".
func (m Message) FirstText() string {
	for _, p := range m.Parts {
		if !p.IsBinary() {
			return p.Text
		}
	}
	return ""
}

// JoinedText returns all text parts joined with newlines.
func (m Message) JoinedText() string {
	var texts []string
	for _, p := range m.Parts {
		if !p.IsBinary() && p.Text != "" {
			texts = append(texts, p.Text)
		}
	}
	return strings.Join(texts, "\n")
}

// HasBinary reports whether any part carries inline binary data.
func (m Message) HasBinary() bool {
	for _, p := range m.Parts {
		if p.IsBinary() {
			return true
		}
	}
	return false
}

// Usable reports whether the message contributes content to a provider
// payload: a user or model message with at least one non-empty part.
func (m Message) Usable() bool {
	if m.Role != RoleUser && m.Role != RoleModel {
		return false
	}
	for _, p := range m.Parts {
		if !p.IsEmpty() {
			return true
		}
	}
	return false
}

// IsPlaceholder reports whether the message is an unsettled model
// placeholder: the reserved id suffix plus a sole empty text part.
func (m Message) IsPlaceholder() bool {
	return m.Role == RoleModel &&
		strings.HasSuffix(m.ID, "-model") &&
		len(m.Parts) == 1 &&
		!m.Parts[0].IsBinary() &&
		m.Parts[0].Text == ""
}

// Clone returns a deep copy of the message.
func (m Message) Clone() Message {
	out := m
	out.Parts = make([]Part, len(m.Parts))
	for i, p := range m.Parts {
		cp := p
		if p.InlineData != nil {
			blob := *p.InlineData
			cp.InlineData = &blob
		}
		out.Parts[i] = cp
	}
	return out
}
