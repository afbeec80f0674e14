// Copyright (c) 2025 The duochat authors
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for conversations and
// messages, and the pure stream-event reducer that folds incremental
// model output into a conversation.
//
// Design principles:
//   - Messages are composed of parts: plain text or inline binary data
//     (images sent to vision-capable models).
//   - Conversations are updated by whole-value replacement. Mutating
//     functions return a fresh copy; a *Conversation handed out by any
//     API is a stable snapshot that will never change underneath the
//     caller.
//   - The provider session handle attached to a conversation is derived
//     cache data. It is never serialized and can always be rebuilt from
//     the message history.
package model
