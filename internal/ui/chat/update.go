// Copyright (c) 2025 The duochat authors
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"errors"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/haivn/duochat/internal/model"
	"github.com/haivn/duochat/internal/orchestrator"
)

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		return m, nil

	case stateChangedMsg:
		m.refreshTranscript()
		return m, waitForChange(m.changes)

	case sendFinishedMsg:
		switch {
		case errors.Is(msg.err, orchestrator.ErrMissingCredential):
			m.enterKeyPrompt(m.orch.SelectedProvider())
		case errors.Is(msg.err, orchestrator.ErrBusy):
			m.status = "Đang có phản hồi, vui lòng chờ."
		case msg.err != nil:
			m.status = msg.err.Error()
		default:
			m.status = ""
		}
		m.refreshTranscript()
		return m, nil

	case newChatMsg:
		if errors.Is(msg.err, orchestrator.ErrMissingCredential) {
			m.enterKeyPrompt(m.orch.SelectedProvider())
		}
		m.refreshTranscript()
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		if key.Matches(msg, m.keys.Quit) {
			return m, tea.Quit
		}
		switch m.mode {
		case modeAPIKey:
			return m.updateKeyPrompt(msg)
		case modeRename:
			return m.updateRename(msg)
		default:
			return m.updateChat(msg)
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

// =============================================================================
// CHAT MODE
// =============================================================================

func (m *Model) updateChat(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Submit):
		text := strings.TrimSpace(m.input.Value())
		if text == "" {
			return m, nil
		}
		if active := m.orch.Active(); active != nil && m.orch.Busy(active.ID) {
			m.status = "Đang có phản hồi, vui lòng chờ."
			return m, nil
		}
		m.input.Reset()
		m.status = ""
		return m, m.sendTurn(model.NewUserText(text))

	case key.Matches(msg, m.keys.NewChat):
		return m, m.newChat()

	case key.Matches(msg, m.keys.ToggleProvider):
		m.toggleProvider()
		return m, nil

	case key.Matches(msg, m.keys.PrevConv):
		m.stepConversation(-1)
		return m, nil

	case key.Matches(msg, m.keys.NextConv):
		m.stepConversation(1)
		return m, nil

	case key.Matches(msg, m.keys.Rename):
		if active := m.orch.Active(); active != nil {
			m.mode = modeRename
			m.renameIn.SetValue(active.Title)
			m.renameIn.CursorEnd()
			m.renameIn.Focus()
			m.input.Blur()
		}
		return m, nil

	case key.Matches(msg, m.keys.APIKey):
		m.enterKeyPrompt(m.orch.SelectedProvider())
		return m, nil

	case key.Matches(msg, m.keys.ScrollUp), key.Matches(msg, m.keys.ScrollDown):
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// toggleProvider cycles through the registered providers.
func (m *Model) toggleProvider() {
	providers := m.orch.Providers()
	if len(providers) < 2 {
		return
	}
	current := m.orch.SelectedProvider()
	for i, p := range providers {
		if p.Name() == current {
			next := providers[(i+1)%len(providers)]
			if err := m.orch.SelectProvider(next.Name()); err == nil {
				m.status = ""
			}
			return
		}
	}
}

// stepConversation moves the active pointer through the recency-sorted
// list.
func (m *Model) stepConversation(delta int) {
	convs := m.orch.Conversations()
	if len(convs) == 0 {
		return
	}
	activeID := m.orch.ActiveID()
	idx := 0
	for i, c := range convs {
		if c.ID == activeID {
			idx = i
			break
		}
	}
	idx += delta
	if idx < 0 || idx >= len(convs) {
		return
	}
	_ = m.orch.SetActive(convs[idx].ID)
}

// =============================================================================
// CREDENTIAL PROMPT MODE
// =============================================================================

func (m *Model) enterKeyPrompt(providerName string) {
	m.mode = modeAPIKey
	m.keyProvider = providerName
	m.keyInput.Reset()
	m.keyInput.Focus()
	m.input.Blur()
}

func (m *Model) updateKeyPrompt(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Submit):
		keyValue := strings.TrimSpace(m.keyInput.Value())
		if keyValue == "" {
			return m, nil
		}
		if err := m.orch.SetCredential(m.keyProvider, keyValue); err != nil {
			m.status = err.Error()
			return m, nil
		}
		m.mode = modeChat
		m.keyInput.Reset()
		m.input.Focus()
		m.refreshTranscript()
		return m, nil

	case key.Matches(msg, m.keys.ToggleProvider):
		// Switch which provider the key is for.
		providers := m.orch.Providers()
		for i, p := range providers {
			if p.Name() == m.keyProvider {
				m.keyProvider = providers[(i+1)%len(providers)].Name()
				break
			}
		}
		return m, nil

	case key.Matches(msg, m.keys.Cancel):
		if m.orch.AnyConfigured() {
			m.mode = modeChat
			m.keyInput.Reset()
			m.input.Focus()
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.keyInput, cmd = m.keyInput.Update(msg)
	return m, cmd
}

// =============================================================================
// RENAME MODE
// =============================================================================

func (m *Model) updateRename(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Submit):
		if id := m.orch.ActiveID(); id != "" {
			if err := m.orch.Rename(id, m.renameIn.Value()); err != nil {
				m.status = err.Error()
			}
		}
		m.exitRename()
		return m, nil

	case key.Matches(msg, m.keys.Cancel):
		m.exitRename()
		return m, nil
	}

	var cmd tea.Cmd
	m.renameIn, cmd = m.renameIn.Update(msg)
	return m, cmd
}

func (m *Model) exitRename() {
	m.mode = modeChat
	m.renameIn.Reset()
	m.input.Focus()
}
