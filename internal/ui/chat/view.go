// Copyright (c) 2025 The duochat authors
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/haivn/duochat/internal/model"
	"github.com/haivn/duochat/internal/orchestrator"
)

// providerLabel maps provider keys onto display names.
func providerLabel(name string) string {
	switch name {
	case orchestrator.ProviderGemini:
		return "Gemini"
	case orchestrator.ProviderOpenAI:
		return "ChatGPT"
	default:
		return name
	}
}

// isErrorMessage reports whether a model message carries settled error
// text rather than model output.
func isErrorMessage(msg model.Message) bool {
	return msg.Role == model.RoleModel && strings.HasSuffix(msg.ID, "-error")
}

// View implements tea.Model.
func (m *Model) View() string {
	if !m.ready {
		return "Đang khởi động..."
	}

	header := m.renderHeader()
	sidebar := m.renderSidebar()

	var pane string
	switch m.mode {
	case modeAPIKey:
		pane = m.renderKeyPrompt()
	default:
		pane = m.renderChatPane()
	}

	body := lipgloss.JoinHorizontal(lipgloss.Top, sidebar, pane)
	status := m.renderStatusBar()

	return lipgloss.JoinVertical(lipgloss.Left, header, body, status)
}

// =============================================================================
// HEADER
// =============================================================================

func (m *Model) renderHeader() string {
	title := m.theme.HeaderTitle.Render("duochat")

	var toggles []string
	selected := m.orch.SelectedProvider()
	for _, p := range m.orch.Providers() {
		style := m.theme.ProviderStyle(p.Name() == selected, p.Configured())
		toggles = append(toggles, style.Render(providerLabel(p.Name())))
	}

	left := title + "  " + strings.Join(toggles, " ")
	return m.theme.Header.Width(m.width).Render(left)
}

// =============================================================================
// SIDEBAR
// =============================================================================

// sidebarEntry fits one conversation title into the sidebar width,
// truncating on display cells so wide runes never overflow the pane.
func sidebarEntry(title string, width int) string {
	if width <= 0 {
		return ""
	}
	return runewidth.Truncate(title, width, "…")
}

func (m *Model) renderSidebar() string {
	width := m.sidebarWidth()
	inner := width - 3 // border + padding

	lines := []string{m.theme.SidebarNewChat.Render(sidebarEntry("+ Trò chuyện mới", inner))}

	activeID := m.orch.ActiveID()
	for _, conv := range m.orch.Conversations() {
		entry := sidebarEntry(conv.Title, inner)
		if conv.ID == activeID {
			lines = append(lines, m.theme.SidebarActive.Width(inner).Render(entry))
		} else {
			lines = append(lines, m.theme.SidebarItem.Render(entry))
		}
	}

	height := m.height - 2
	return m.theme.Sidebar.Width(width).Height(height).Render(strings.Join(lines, "\n"))
}

// =============================================================================
// TRANSCRIPT
// =============================================================================

// refreshTranscript re-reads the active conversation and rewrites the
// viewport, pinned to the bottom so streaming stays in view.
func (m *Model) refreshTranscript() {
	if !m.ready {
		return
	}
	m.viewport.SetContent(m.renderTranscript())
	m.viewport.GotoBottom()
}

func (m *Model) renderTranscript() string {
	conv := m.orch.Active()
	if conv == nil || conv.IsEmpty() {
		return m.theme.EmptyHint.Render("Nhập tin nhắn bên dưới để bắt đầu một cuộc trò chuyện mới.")
	}

	busy := m.orch.Busy(conv.ID)
	var b strings.Builder
	for i, msg := range conv.Messages {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(m.renderMessage(msg, busy && i == len(conv.Messages)-1))
	}
	return b.String()
}

// renderMessage formats one transcript entry. The trailing in-flight
// placeholder renders as a thinking indicator until its first delta.
func (m *Model) renderMessage(msg model.Message, inflight bool) string {
	if msg.Role == model.RoleUser {
		var b strings.Builder
		b.WriteString(m.theme.UserLabel.Render("Bạn"))
		b.WriteString("\n")
		for _, p := range msg.Parts {
			if p.IsBinary() {
				b.WriteString(m.theme.Attachment.Render("[tệp đính kèm: "+p.InlineData.MIMEType+"]") + "\n")
			}
		}
		b.WriteString(m.theme.UserText.Render(msg.JoinedText()))
		b.WriteString("\n")
		return b.String()
	}

	label := m.theme.ModelLabel.Render("AI")
	text := msg.JoinedText()

	if isErrorMessage(msg) {
		return label + "\n" + m.theme.ErrorText.Render(text) + "\n"
	}
	if text == "" && inflight {
		return label + "\n" + m.spinner.View() + m.theme.Thinking.Render(" Đang trả lời...") + "\n"
	}
	if m.renderer != nil {
		if rendered, err := m.renderer.Render(text); err == nil {
			return label + "\n" + strings.TrimRight(rendered, "\n") + "\n"
		}
	}
	return label + "\n" + text + "\n"
}

func (m *Model) renderChatPane() string {
	input := m.inputLine()
	return lipgloss.JoinVertical(lipgloss.Left, m.viewport.View(), input)
}

func (m *Model) inputLine() string {
	width := m.viewport.Width
	if m.mode == modeRename {
		return m.theme.InputContainer.Width(width).Render("Đổi tên: " + m.renameIn.View())
	}
	return m.theme.InputContainer.Width(width).Render(m.input.View())
}

// =============================================================================
// CREDENTIAL PROMPT
// =============================================================================

func (m *Model) renderKeyPrompt() string {
	label := providerLabel(m.keyProvider)

	content := lipgloss.JoinVertical(lipgloss.Left,
		m.theme.PromptTitle.Render("Vui lòng nhập API key để bắt đầu cuộc trò chuyện."),
		"",
		m.theme.PromptTitle.Render(label+":"),
		m.keyInput.View(),
		"",
		m.theme.PromptHint.Render("Enter: lưu · Tab: đổi nhà cung cấp · Esc: quay lại"),
	)
	box := m.theme.PromptBox.Render(content)

	width := m.viewport.Width
	height := m.viewport.Height + 2
	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, box)
}

// =============================================================================
// STATUS BAR
// =============================================================================

func (m *Model) renderStatusBar() string {
	if m.status != "" {
		return m.theme.StatusBar.Width(m.width).Render(m.theme.StatusNotice.Render(m.status))
	}

	shortcuts := []struct{ k, d string }{
		{"Enter", "gửi"},
		{"Tab", "đổi mô hình"},
		{"C-n", "mới"},
		{"C-r", "đổi tên"},
		{"C-k", "API key"},
		{"C-c", "thoát"},
	}
	parts := make([]string, len(shortcuts))
	for i, s := range shortcuts {
		parts[i] = m.theme.ShortcutKey.Render(s.k) + m.theme.ShortcutDesc.Render(" "+s.d)
	}
	return m.theme.StatusBar.Width(m.width).Render(strings.Join(parts, "  "))
}
