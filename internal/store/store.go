// Copyright (c) 2025 The duochat authors
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package store provides the flat key/value persistence layer for
// duochat: get, set, remove over a durable local store, with no logic
// of its own.
//
// Two backends exist: a single-JSON-document file store and a SQLite
// store. Reads never fail loudly; a storage problem degrades to
// in-memory operation and is logged by the caller.
package store

import "sync"

// =============================================================================
// WELL-KNOWN KEYS
// =============================================================================

// Store keys. The names match the persisted format of the product this
// client replaces, so existing state carries over.
const (
	KeyGoogleAPIKey       = "googleApiKey"
	KeyOpenAIAPIKey       = "chatGptApiKey"
	KeyActiveConversation = "activeConversationId"
	KeySelectedProvider   = "selectedModel"
	KeyConversations      = "chatbotConversations"
)

// =============================================================================
// STORE INTERFACE
// =============================================================================

// Store is a flat string-keyed key/value store.
//
// Get reports ok=false for absent keys and for backend read failures;
// the distinction is deliberately invisible to callers, which must
// treat both as "no value".
type Store interface {
	Get(key string) (value string, ok bool)
	Set(key, value string) error
	Remove(key string) error
	Close() error
}

// =============================================================================
// IN-MEMORY STORE
// =============================================================================

// MemStore is a Store backed by a map. Used in tests and as the
// degraded fallback when no durable backend can be opened.
type MemStore struct {
	mu   sync.Mutex
	data map[string]string
}

// NewMemStore creates an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{data: make(map[string]string)}
}

// Get returns the value for key.
func (s *MemStore) Get(key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.data[key]
	return v, ok
}

// Set stores value under key.
func (s *MemStore) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = value
	return nil
}

// Remove deletes key.
func (s *MemStore) Remove(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
	return nil
}

// Close is a no-op.
func (s *MemStore) Close() error { return nil }
