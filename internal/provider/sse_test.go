// Copyright (c) 2025 The duochat authors
// SPDX-License-Identifier: AGPL-3.0-or-later

package provider

import (
	"io"
	"strings"
	"testing"
)

func readAllData(t *testing.T, stream string) []string {
	t.Helper()
	r := NewSSEReader(strings.NewReader(stream))
	var out []string
	for {
		data, err := r.ReadData()
		if err == io.EOF {
			return out
		}
		if err != nil {
			t.Fatalf("ReadData failed: %v", err)
		}
		out = append(out, string(data))
	}
}

func TestSSEReaderFrames(t *testing.T) {
	stream := "data: {\"a\":1}\n\ndata: {\"b\":2}\n\ndata: [DONE]\n\n"
	got := readAllData(t, stream)

	want := []string{`{"a":1}`, `{"b":2}`, "[DONE]"}
	if len(got) != len(want) {
		t.Fatalf("frame count = %d, want %d (%v)", len(got), len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("frame[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestSSEReaderIgnoresNonDataFields(t *testing.T) {
	stream := "event: ping\nid: 7\n: comment\ndata: x\n\n"
	got := readAllData(t, stream)
	if len(got) != 1 || got[0] != "x" {
		t.Errorf("got %v, want [x]", got)
	}
}

func TestSSEReaderCRLFAndTrailingFrame(t *testing.T) {
	// Final frame without trailing blank line must still be delivered.
	stream := "data: one\r\n\r\ndata: two"
	got := readAllData(t, stream)
	if len(got) != 2 || got[0] != "one" || got[1] != "two" {
		t.Errorf("got %v", got)
	}
}

func TestSSEReaderEmptyStream(t *testing.T) {
	if got := readAllData(t, ""); len(got) != 0 {
		t.Errorf("got %v, want none", got)
	}
}
