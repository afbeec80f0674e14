// duochat - a terminal chat client for Gemini and ChatGPT.
//
// Copyright (c) 2025 The duochat authors
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"fmt"
	"log"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/haivn/duochat/internal/config"
	"github.com/haivn/duochat/internal/orchestrator"
	"github.com/haivn/duochat/internal/provider/genai"
	"github.com/haivn/duochat/internal/provider/openai"
	"github.com/haivn/duochat/internal/store"
	"github.com/haivn/duochat/internal/ui/chat"
)

// Version information (set at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

func main() {
	if len(os.Args) > 1 && (os.Args[1] == "--version" || os.Args[1] == "version") {
		fmt.Printf("duochat %s (%s, %s)\n", Version, GitCommit, BuildDate)
		return
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "duochat: %v\n", err)
		os.Exit(1)
	}

	logger := openLogger(cfg)

	st := openStore(cfg, logger)
	defer st.Close()

	gemini := genai.NewClient(os.Getenv("GOOGLE_API_KEY"), &genai.Config{
		BaseURL:       cfg.Gemini.BaseURL,
		Model:         cfg.Gemini.Model,
		StreamTimeout: time.Duration(cfg.Gemini.StreamTimeoutSecs) * time.Second,
	})
	chatgpt := openai.NewClient(os.Getenv("OPENAI_API_KEY"), &openai.Config{
		BaseURL:       cfg.OpenAI.BaseURL,
		Model:         cfg.OpenAI.Model,
		StreamTimeout: time.Duration(cfg.OpenAI.StreamTimeoutSecs) * time.Second,
	})

	orch := orchestrator.New(st, logger, gemini, chatgpt)

	// Coalescing change channel: the UI repaints at most once per
	// pending notification.
	changes := make(chan struct{}, 1)
	orch.SetOnChange(func() {
		select {
		case changes <- struct{}{}:
		default:
		}
	})

	orch.Load()

	p := tea.NewProgram(
		chat.New(orch, cfg.UI, changes),
		tea.WithAltScreen(),
	)
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "duochat: %v\n", err)
		os.Exit(1)
	}
}

// openLogger writes runtime logs to the configured file. Stdout and
// stderr belong to the TUI, so logging falls back to stderr only when
// the log file cannot be opened.
func openLogger(cfg *config.Config) *log.Logger {
	path, err := cfg.ResolvedLogPath()
	if err == nil {
		if mkErr := config.EnsureConfigDir(); mkErr == nil {
			if f, openErr := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600); openErr == nil {
				return log.New(f, "", log.LstdFlags)
			}
		}
	}
	return log.New(os.Stderr, "", log.LstdFlags)
}

// openStore opens the configured persistence backend. A backend that
// fails to open degrades to in-memory state so a broken disk never
// blocks chatting; the failure is logged.
func openStore(cfg *config.Config, logger *log.Logger) store.Store {
	path, err := cfg.StatePath()
	if err != nil {
		logger.Printf("store: cannot resolve state path, running in memory: %v", err)
		return store.NewMemStore()
	}
	if mkErr := config.EnsureConfigDir(); mkErr != nil {
		logger.Printf("store: cannot create state directory, running in memory: %v", mkErr)
		return store.NewMemStore()
	}

	var st store.Store
	switch cfg.Storage.Backend {
	case config.BackendSQLite:
		st, err = store.OpenSQLiteStore(path)
	default:
		st, err = store.OpenFileStore(path)
	}
	if err != nil {
		logger.Printf("store: failed to open %s backend at %s, running in memory: %v", cfg.Storage.Backend, path, err)
		return store.NewMemStore()
	}
	return st
}
