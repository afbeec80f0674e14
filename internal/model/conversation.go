// Copyright (c) 2025 The duochat authors
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"sort"
	"strconv"
	"strings"
	"time"
)

// DefaultTitle is used when a conversation is created without any text
// to derive a title from.
const DefaultTitle = "Cuộc trò chuyện mới"

// titleLimit is the maximum number of runes taken from the first user
// message when deriving a conversation title.
const titleLimit = 40

// =============================================================================
// CONVERSATION TYPE
// =============================================================================

// Conversation holds one chat thread: identity, title and ordered
// message history.
//
// Session is the opaque provider-side handle for the session-oriented
// provider. It is derived cache data: excluded from serialization and
// rebuilt from Messages after a restart.
type Conversation struct {
	ID       string    `json:"id"`
	Title    string    `json:"title"`
	Messages []Message `json:"messages"`

	Session any `json:"-"`
}

// NewConversationID creates a conversation id. The numeric suffix is
// the creation time in unix milliseconds; display ordering is derived
// from it.
func NewConversationID() string {
	return "conv-" + strconv.FormatInt(time.Now().UnixMilli(), 10)
}

// NewConversation creates an empty conversation.
func NewConversation(title string) *Conversation {
	if title == "" {
		title = DefaultTitle
	}
	return &Conversation{
		ID:       NewConversationID(),
		Title:    title,
		Messages: []Message{},
	}
}

// TitleFromTurn derives a conversation title from the first user turn:
// the first 40 runes of its text, trimmed. Falls back to DefaultTitle
// when the turn has no text part.
func TitleFromTurn(turn Message) string {
	text := turn.FirstText()
	runes := []rune(text)
	if len(runes) > titleLimit {
		text = string(runes[:titleLimit])
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return DefaultTitle
	}
	return text
}

// =============================================================================
// SNAPSHOT OPERATIONS
// =============================================================================

// Clone returns a deep copy of the conversation. The session handle is
// carried over by reference; it is shared, opaque provider state.
func (c *Conversation) Clone() *Conversation {
	out := &Conversation{
		ID:      c.ID,
		Title:   c.Title,
		Session: c.Session,
	}
	out.Messages = make([]Message, len(c.Messages))
	for i, m := range c.Messages {
		out.Messages[i] = m.Clone()
	}
	return out
}

// WithMessage returns a copy of the conversation with msg appended.
func (c *Conversation) WithMessage(msg Message) *Conversation {
	out := c.Clone()
	out.Messages = append(out.Messages, msg)
	return out
}

// WithSession returns a copy of the conversation with the session
// handle replaced.
func (c *Conversation) WithSession(sess any) *Conversation {
	out := c.Clone()
	out.Session = sess
	return out
}

// LastMessage returns the most recent message, or nil when empty.
func (c *Conversation) LastMessage() *Message {
	if len(c.Messages) == 0 {
		return nil
	}
	return &c.Messages[len(c.Messages)-1]
}

// IsEmpty reports whether the conversation has no messages.
func (c *Conversation) IsEmpty() bool {
	return len(c.Messages) == 0
}

// =============================================================================
// DISPLAY ORDERING
// =============================================================================

// CreationStamp extracts the numeric suffix of a conversation id.
// Returns 0 for ids without one.
func CreationStamp(id string) int64 {
	idx := strings.LastIndex(id, "-")
	if idx < 0 {
		return 0
	}
	n, err := strconv.ParseInt(id[idx+1:], 10, 64)
	if err != nil {
		return 0
	}
	return n
}

// SortByRecency orders conversations most-recently-created first, by
// the numeric suffix of their ids. The order is derived at read time,
// never stored.
func SortByRecency(convs []*Conversation) {
	sort.SliceStable(convs, func(i, j int) bool {
		return CreationStamp(convs[i].ID) > CreationStamp(convs[j].ID)
	})
}
