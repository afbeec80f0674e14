// Copyright (c) 2025 The duochat authors
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"github.com/charmbracelet/bubbles/key"
)

// KeyMap defines all keyboard bindings for the chat interface.
type KeyMap struct {
	Submit         key.Binding
	NewChat        key.Binding
	ToggleProvider key.Binding
	PrevConv       key.Binding
	NextConv       key.Binding
	Rename         key.Binding
	APIKey         key.Binding
	ScrollUp       key.Binding
	ScrollDown     key.Binding
	Cancel         key.Binding
	Quit           key.Binding
}

// DefaultKeyMap returns the default key bindings. Plain letters stay
// free for typing; chords carry the chrome.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Submit: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("Enter", "gửi"),
		),
		NewChat: key.NewBinding(
			key.WithKeys("ctrl+n"),
			key.WithHelp("C-n", "trò chuyện mới"),
		),
		ToggleProvider: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("Tab", "đổi mô hình"),
		),
		PrevConv: key.NewBinding(
			key.WithKeys("ctrl+p"),
			key.WithHelp("C-p", "cuộc trước"),
		),
		NextConv: key.NewBinding(
			key.WithKeys("ctrl+o"),
			key.WithHelp("C-o", "cuộc sau"),
		),
		Rename: key.NewBinding(
			key.WithKeys("ctrl+r"),
			key.WithHelp("C-r", "đổi tên"),
		),
		APIKey: key.NewBinding(
			key.WithKeys("ctrl+k"),
			key.WithHelp("C-k", "API key"),
		),
		ScrollUp: key.NewBinding(
			key.WithKeys("up", "pgup"),
			key.WithHelp("Up/PgUp", "cuộn lên"),
		),
		ScrollDown: key.NewBinding(
			key.WithKeys("down", "pgdown"),
			key.WithHelp("Down/PgDn", "cuộn xuống"),
		),
		Cancel: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("Esc", "hủy"),
		),
		Quit: key.NewBinding(
			key.WithKeys("ctrl+c", "ctrl+q"),
			key.WithHelp("C-c", "thoát"),
		),
	}
}
