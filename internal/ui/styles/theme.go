// Copyright (c) 2025 The duochat authors
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Theme holds all the styled components for the application. It
// detects the terminal's color capability and adjusts accordingly.
type Theme struct {
	// Terminal capabilities
	IsDark       bool
	HasTrueColor bool
	ColorProfile termenv.Profile

	// ==========================================================================
	// HEADER STYLES
	// ==========================================================================

	Header      lipgloss.Style
	HeaderTitle lipgloss.Style

	// ==========================================================================
	// PROVIDER TOGGLE STYLES
	// ==========================================================================

	ProviderActive   lipgloss.Style
	ProviderInactive lipgloss.Style
	ProviderDisabled lipgloss.Style

	// ==========================================================================
	// SIDEBAR STYLES
	// ==========================================================================

	Sidebar        lipgloss.Style
	SidebarItem    lipgloss.Style
	SidebarActive  lipgloss.Style
	SidebarNewChat lipgloss.Style

	// ==========================================================================
	// TRANSCRIPT STYLES
	// ==========================================================================

	UserLabel  lipgloss.Style
	UserText   lipgloss.Style
	ModelLabel lipgloss.Style
	ErrorText  lipgloss.Style
	Attachment lipgloss.Style
	EmptyHint  lipgloss.Style

	// ==========================================================================
	// INPUT AND STATUS STYLES
	// ==========================================================================

	InputContainer lipgloss.Style
	Spinner        lipgloss.Style
	Thinking       lipgloss.Style
	StatusBar      lipgloss.Style
	StatusNotice   lipgloss.Style
	ShortcutKey    lipgloss.Style
	ShortcutDesc   lipgloss.Style

	// ==========================================================================
	// CREDENTIAL PROMPT STYLES
	// ==========================================================================

	PromptBox   lipgloss.Style
	PromptTitle lipgloss.Style
	PromptHint  lipgloss.Style
}

// NewTheme creates a new theme with all styles configured.
func NewTheme() *Theme {
	colorProfile := termenv.ColorProfile()
	t := &Theme{
		IsDark:       termenv.HasDarkBackground(),
		HasTrueColor: colorProfile == termenv.TrueColor,
		ColorProfile: colorProfile,
	}
	t.initStyles()
	return t
}

func (t *Theme) initStyles() {
	t.Header = lipgloss.NewStyle().
		Background(SurfaceDim).
		Padding(0, 1)
	t.HeaderTitle = lipgloss.NewStyle().
		Bold(true).
		Foreground(Blue)

	t.ProviderActive = lipgloss.NewStyle().
		Bold(true).
		Foreground(Surface).
		Background(Blue).
		Padding(0, 1)
	t.ProviderInactive = lipgloss.NewStyle().
		Foreground(TextSecondary).
		Padding(0, 1)
	t.ProviderDisabled = lipgloss.NewStyle().
		Foreground(TextMuted).
		Padding(0, 1)

	t.Sidebar = lipgloss.NewStyle().
		BorderStyle(lipgloss.NormalBorder()).
		BorderRight(true).
		BorderForeground(Border).
		Padding(0, 1)
	t.SidebarItem = lipgloss.NewStyle().
		Foreground(TextSecondary)
	t.SidebarActive = lipgloss.NewStyle().
		Bold(true).
		Foreground(Surface).
		Background(BlueDeep)
	t.SidebarNewChat = lipgloss.NewStyle().
		Foreground(Teal)

	t.UserLabel = lipgloss.NewStyle().
		Bold(true).
		Foreground(Blue)
	t.UserText = lipgloss.NewStyle().
		Foreground(TextPrimary)
	t.ModelLabel = lipgloss.NewStyle().
		Bold(true).
		Foreground(Teal)
	t.ErrorText = lipgloss.NewStyle().
		Foreground(Rose)
	t.Attachment = lipgloss.NewStyle().
		Italic(true).
		Foreground(TextSecondary)
	t.EmptyHint = lipgloss.NewStyle().
		Foreground(TextMuted).
		Italic(true)

	t.InputContainer = lipgloss.NewStyle().
		BorderStyle(lipgloss.NormalBorder()).
		BorderTop(true).
		BorderForeground(Border)
	t.Spinner = lipgloss.NewStyle().
		Foreground(Teal)
	t.Thinking = lipgloss.NewStyle().
		Foreground(TextSecondary).
		Italic(true)
	t.StatusBar = lipgloss.NewStyle().
		Background(SurfaceDim).
		Foreground(TextSecondary).
		Padding(0, 1)
	t.StatusNotice = lipgloss.NewStyle().
		Foreground(Amber)
	t.ShortcutKey = lipgloss.NewStyle().
		Bold(true).
		Foreground(TextPrimary)
	t.ShortcutDesc = lipgloss.NewStyle().
		Foreground(TextMuted)

	t.PromptBox = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(Blue).
		Padding(1, 2)
	t.PromptTitle = lipgloss.NewStyle().
		Bold(true).
		Foreground(TextPrimary)
	t.PromptHint = lipgloss.NewStyle().
		Foreground(TextMuted)
}

// ProviderStyle picks the toggle style for a provider entry.
func (t *Theme) ProviderStyle(active, configured bool) lipgloss.Style {
	switch {
	case active:
		return t.ProviderActive
	case configured:
		return t.ProviderInactive
	default:
		return t.ProviderDisabled
	}
}
