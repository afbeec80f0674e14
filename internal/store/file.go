// Copyright (c) 2025 The duochat authors
// SPDX-License-Identifier: AGPL-3.0-or-later

package store

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/haivn/duochat/internal/util"
)

// =============================================================================
// FILE STORE
// =============================================================================

// FileStore keeps all keys in one JSON document on disk, mirrored in
// memory. Every Set/Remove rewrites the document atomically.
type FileStore struct {
	mu   sync.Mutex
	path string
	data map[string]string
}

// OpenFileStore loads (or creates) the store at path. A missing file
// starts empty; an unreadable or corrupt file also starts empty rather
// than failing startup, since losing settings beats not launching.
func OpenFileStore(path string) (*FileStore, error) {
	s := &FileStore{
		path: path,
		data: make(map[string]string),
	}

	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read store file: %w", err)
	}
	if err := json.Unmarshal(raw, &s.data); err != nil {
		s.data = make(map[string]string)
	}
	return s, nil
}

// Get returns the value for key.
func (s *FileStore) Get(key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.data[key]
	return v, ok
}

// Set stores value under key and persists the document.
func (s *FileStore) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = value
	return s.flushLocked()
}

// Remove deletes key and persists the document.
func (s *FileStore) Remove(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
	return s.flushLocked()
}

// Close is a no-op; every write already hit disk.
func (s *FileStore) Close() error { return nil }

// flushLocked writes the full document. Caller must hold s.mu.
func (s *FileStore) flushLocked() error {
	raw, err := json.MarshalIndent(s.data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal store: %w", err)
	}
	if err := util.AtomicWriteFile(s.path, raw, 0600); err != nil {
		return fmt.Errorf("failed to write store file: %w", err)
	}
	return nil
}
