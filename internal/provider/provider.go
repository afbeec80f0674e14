// Copyright (c) 2025 The duochat authors
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package provider defines the contract shared by duochat's two
// streaming backends: the session-oriented Gemini adapter and the
// SSE-over-REST OpenAI adapter. The orchestrator drives either through
// this interface without knowing which variant it holds.
package provider

import (
	"context"
	"fmt"

	"github.com/haivn/duochat/internal/model"
)

// =============================================================================
// CONTRACT
// =============================================================================

// Session is an opaque, resumable provider-side conversation handle.
// Stateless providers use nil.
type Session any

// DeltaFunc receives one incremental fragment of model output. Calls
// arrive in delivery order and never after Stream has returned.
type DeltaFunc func(delta string)

// Provider streams model output for a user turn.
//
// Stream produces a lazy, finite sequence of deltas; it blocks between
// deltas on network progress and returns nil on normal end of stream.
// A failed or cancelled stream is not resumable; retrying means a new
// Stream call.
type Provider interface {
	// Name is the stable provider key used in persisted settings.
	Name() string

	// Configured reports whether a credential is present. Callers must
	// check before invoking Stream.
	Configured() bool

	// Resume rebuilds a session handle from persisted history. Purely
	// local: no network call. Stateless providers return nil.
	Resume(history []model.Message) Session

	// Stream sends turn (with history as context) and delivers deltas
	// through fn until the stream ends or fails.
	Stream(ctx context.Context, history []model.Message, turn model.Message, sess Session, fn DeltaFunc) error
}

// =============================================================================
// ERRORS
// =============================================================================

// Error is a provider rejection carrying the upstream error text.
// Adapters surface raw upstream messages only; any user-facing
// rewriting happens in the orchestrator.
type Error struct {
	Message    string
	StatusCode int // 0 when the failure was not an HTTP response
}

// Error implements the error interface.
func (e *Error) Error() string {
	return e.Message
}

// NewError creates a provider error from an upstream message.
func NewError(statusCode int, format string, args ...any) *Error {
	return &Error{
		Message:    fmt.Sprintf(format, args...),
		StatusCode: statusCode,
	}
}
