// Copyright (c) 2025 The duochat authors
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/haivn/duochat/internal/model"
)

// =============================================================================
// MESSAGES
// =============================================================================

// stateChangedMsg signals that orchestrator state changed and the view
// must re-read its snapshots.
type stateChangedMsg struct{}

// sendFinishedMsg carries the result of a send turn. A nil error also
// covers stream failures, which settle into the conversation itself.
type sendFinishedMsg struct {
	err error
}

// newChatMsg carries the result of creating a conversation.
type newChatMsg struct {
	err error
}

// =============================================================================
// COMMANDS
// =============================================================================

// waitForChange blocks on the orchestrator change channel and turns
// each tick into a repaint. Re-armed after every stateChangedMsg.
func waitForChange(ch <-chan struct{}) tea.Cmd {
	return func() tea.Msg {
		<-ch
		return stateChangedMsg{}
	}
}

// sendTurn runs one blocking send on the command goroutine. Progress
// arrives separately through the change channel. The provider is
// captured at submit time so a mid-stream toggle never redirects the
// turn.
func (m *Model) sendTurn(turn model.Message) tea.Cmd {
	providerName := m.orch.SelectedProvider()
	return func() tea.Msg {
		return sendFinishedMsg{err: m.orch.SendMessage(context.Background(), turn, providerName)}
	}
}

func (m *Model) newChat() tea.Cmd {
	return func() tea.Msg {
		_, err := m.orch.NewChat()
		return newChatMsg{err: err}
	}
}
