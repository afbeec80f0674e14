// Copyright (c) 2025 The duochat authors
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the Bubble Tea chat view: sidebar, transcript,
// provider toggle, input line and the credential prompt.
package chat

import (
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"

	"github.com/haivn/duochat/internal/config"
	"github.com/haivn/duochat/internal/orchestrator"
	"github.com/haivn/duochat/internal/ui/styles"
)

// =============================================================================
// VIEW MODES
// =============================================================================

// viewMode selects which surface owns the keyboard.
type viewMode int

const (
	modeChat   viewMode = iota // normal chatting
	modeAPIKey                 // credential prompt
	modeRename                 // editing the active conversation title
)

// =============================================================================
// CHAT MODEL
// =============================================================================

// Model is the Bubble Tea model for the chat view.
type Model struct {
	orch  *orchestrator.Orchestrator
	theme *styles.Theme
	keys  KeyMap
	uiCfg config.UIConfig

	// UI components
	viewport viewport.Model
	input    textinput.Model
	keyInput textinput.Model
	renameIn textinput.Model
	spinner  spinner.Model

	// renderer formats model markdown for the terminal; nil falls back
	// to plain text.
	renderer *glamour.TermRenderer

	mode viewMode
	// keyProvider is the provider the credential prompt is editing.
	keyProvider string

	changes <-chan struct{}

	width  int
	height int
	ready  bool
	status string
}

// New creates the chat view bound to an orchestrator. The changes
// channel must be fed by the orchestrator's change callback.
func New(orch *orchestrator.Orchestrator, uiCfg config.UIConfig, changes <-chan struct{}) *Model {
	theme := styles.NewTheme()

	input := textinput.New()
	input.Placeholder = "Nhập tin nhắn của bạn..."
	input.CharLimit = 0
	input.Focus()

	keyInput := textinput.New()
	keyInput.Placeholder = "Enter API key"
	keyInput.EchoMode = textinput.EchoPassword

	renameIn := textinput.New()
	renameIn.Placeholder = "Tên cuộc trò chuyện"
	renameIn.CharLimit = 120

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = theme.Spinner

	m := &Model{
		orch:        orch,
		theme:       theme,
		keys:        DefaultKeyMap(),
		uiCfg:       uiCfg,
		viewport:    viewport.New(0, 0),
		input:       input,
		keyInput:    keyInput,
		renameIn:    renameIn,
		spinner:     sp,
		changes:     changes,
		keyProvider: orch.SelectedProvider(),
	}
	if !orch.AnyConfigured() {
		m.mode = modeAPIKey
		m.keyInput.Focus()
		m.input.Blur()
	}
	return m
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(
		textinput.Blink,
		m.spinner.Tick,
		waitForChange(m.changes),
	)
}

// resize recomputes pane dimensions and rebuilds the markdown renderer
// for the new wrap width.
func (m *Model) resize(width, height int) {
	m.width = width
	m.height = height

	chatWidth := width - m.sidebarWidth() - 1
	if chatWidth < 10 {
		chatWidth = 10
	}
	// header + status + input rows
	chatHeight := height - 4
	if chatHeight < 3 {
		chatHeight = 3
	}

	m.viewport.Width = chatWidth
	m.viewport.Height = chatHeight
	m.input.Width = chatWidth - 4
	m.keyInput.Width = min(chatWidth-8, 48)
	m.renameIn.Width = chatWidth - 4

	m.renderer = nil
	if m.uiCfg.Markdown {
		if r, err := glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(chatWidth-2),
		); err == nil {
			m.renderer = r
		}
	}

	m.ready = true
	m.refreshTranscript()
}

func (m *Model) sidebarWidth() int {
	w := m.uiCfg.SidebarWidth
	if w <= 0 {
		w = 28
	}
	if m.width > 0 && w > m.width/3 {
		w = m.width / 3
	}
	return w
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
