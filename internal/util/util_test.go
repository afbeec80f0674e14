// Copyright (c) 2025 The duochat authors
// SPDX-License-Identifier: AGPL-3.0-or-later

package util

import (
	"os"
	"path/filepath"
	"testing"
)

func TestAtomicWriteFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "state.json")

	if err := AtomicWriteFile(path, []byte(`{"a":1}`), 0644); err != nil {
		t.Fatalf("AtomicWriteFile failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if string(data) != `{"a":1}` {
		t.Errorf("content = %q", data)
	}

	// Overwrite must fully replace the previous content.
	if err := AtomicWriteFile(path, []byte("v2"), 0644); err != nil {
		t.Fatalf("overwrite failed: %v", err)
	}
	data, _ = os.ReadFile(path)
	if string(data) != "v2" {
		t.Errorf("content after overwrite = %q", data)
	}

	// No temp files left behind.
	entries, _ := os.ReadDir(filepath.Dir(path))
	if len(entries) != 1 {
		t.Errorf("directory has %d entries, want 1", len(entries))
	}
}

func TestTruncateRunes(t *testing.T) {
	if got := TruncateRunes("hello", 10); got != "hello" {
		t.Errorf("TruncateRunes short = %q", got)
	}
	if got := TruncateRunes("hello world", 8); got != "hello..." {
		t.Errorf("TruncateRunes long = %q", got)
	}
	if got := TruncateRunes("chào", 2); got != "ch" {
		t.Errorf("TruncateRunes tiny = %q", got)
	}
	if got := TruncateRunes("xin chào các bạn", 11); got != "xin chào..." {
		t.Errorf("TruncateRunes unicode = %q", got)
	}
	if got := TruncateRunes("anything", 0); got != "" {
		t.Errorf("TruncateRunes zero = %q", got)
	}
}

func TestFirstLine(t *testing.T) {
	if got := FirstLine("  one\ntwo"); got != "one" {
		t.Errorf("FirstLine = %q", got)
	}
	if got := FirstLine("solo "); got != "solo" {
		t.Errorf("FirstLine solo = %q", got)
	}
}
