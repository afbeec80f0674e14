// Copyright (c) 2025 The duochat authors
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import "strings"

// =============================================================================
// STREAM ACCUMULATOR
// =============================================================================

// Accumulator folds a stream of text deltas (or a terminal error) into
// a conversation. It is a pure reducer over conversation snapshots: no
// I/O, never fails, invalid events are dropped.
//
// One Accumulator serves exactly one streamed turn, identified by the
// placeholder message id it was created with. Each Delta rewrites the
// placeholder's sole text part with the full accumulated string, so a
// repeated render of the same snapshot is a no-op rather than a
// duplicated append.
type Accumulator struct {
	placeholderID string
	// PERFORMANCE: strings.Builder avoids quadratic allocations
	text    strings.Builder
	settled bool
}

// NewAccumulator creates an accumulator bound to a placeholder message.
func NewAccumulator(placeholderID string) *Accumulator {
	return &Accumulator{placeholderID: placeholderID}
}

// Text returns the full accumulated output so far.
func (a *Accumulator) Text() string {
	return a.text.String()
}

// Settled reports whether the turn has received Complete or Fail.
func (a *Accumulator) Settled() bool {
	return a.settled
}

// Delta folds one incremental fragment into the conversation and
// returns the resulting snapshot.
//
// The delta is dropped silently when the turn has already settled, or
// when the trailing message is no longer this turn's model placeholder
// (stale-stream protection after the state was concurrently replaced).
func (a *Accumulator) Delta(conv *Conversation, delta string) *Conversation {
	if a.settled || conv == nil {
		return conv
	}
	a.text.WriteString(delta)

	last := conv.LastMessage()
	if last == nil || last.Role != RoleModel || last.ID != a.placeholderID {
		return conv
	}

	out := conv.Clone()
	out.Messages[len(out.Messages)-1].Parts = []Part{TextPart(a.text.String())}
	return out
}

// Complete marks the turn settled. The conversation already reflects
// the last delta; no further state change is made, and any late delta
// becomes a no-op.
func (a *Accumulator) Complete(conv *Conversation) *Conversation {
	a.settled = true
	return conv
}

// Fail settles the turn with a user-facing error text. The placeholder
// is matched by its reserved id, not by position; when it was already
// removed or replaced the error message is appended instead.
func (a *Accumulator) Fail(conv *Conversation, message string) *Conversation {
	a.settled = true
	if conv == nil {
		return conv
	}

	errMsg := NewModelError(message)
	out := conv.Clone()
	for i := len(out.Messages) - 1; i >= 0; i-- {
		if out.Messages[i].ID == a.placeholderID {
			out.Messages[i] = errMsg
			return out
		}
	}
	out.Messages = append(out.Messages, errMsg)
	return out
}
