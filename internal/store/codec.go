// Copyright (c) 2025 The duochat authors
// SPDX-License-Identifier: AGPL-3.0-or-later

package store

import (
	"encoding/json"
	"fmt"

	"github.com/haivn/duochat/internal/model"
)

// =============================================================================
// CONVERSATION BLOB CODEC
// =============================================================================

// storedConversation is the serialized shape of a conversation. The
// provider session handle is not part of it: the field is absent from
// the document, not nulled, and is rebuilt from Messages on load.
type storedConversation struct {
	ID       string          `json:"id"`
	Title    string          `json:"title"`
	Messages []model.Message `json:"messages"`
}

// EncodeConversations serializes a conversation map to the JSON blob
// stored under KeyConversations.
func EncodeConversations(convs map[string]*model.Conversation) (string, error) {
	out := make(map[string]storedConversation, len(convs))
	for id, c := range convs {
		out[id] = storedConversation{
			ID:       c.ID,
			Title:    c.Title,
			Messages: c.Messages,
		}
	}
	raw, err := json.Marshal(out)
	if err != nil {
		return "", fmt.Errorf("failed to encode conversations: %w", err)
	}
	return string(raw), nil
}

// DecodeConversations parses the stored blob. An empty or corrupt blob
// decodes to an empty map; durable state must never prevent startup.
func DecodeConversations(blob string) map[string]*model.Conversation {
	convs := make(map[string]*model.Conversation)
	if blob == "" {
		return convs
	}

	var raw map[string]storedConversation
	if err := json.Unmarshal([]byte(blob), &raw); err != nil {
		return convs
	}

	for id, sc := range raw {
		msgs := sc.Messages
		if msgs == nil {
			msgs = []model.Message{}
		}
		convs[id] = &model.Conversation{
			ID:       sc.ID,
			Title:    sc.Title,
			Messages: msgs,
		}
	}
	return convs
}
