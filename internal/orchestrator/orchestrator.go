// Copyright (c) 2025 The duochat authors
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package orchestrator owns duochat's conversation state and the send
// pipeline that drives a provider stream into it.
//
// All state transitions are whole-value replacement of conversation
// snapshots under one mutex; a snapshot handed out is never mutated.
// Within a conversation deltas are applied strictly in receipt order;
// across conversations turns are independent.
package orchestrator

import (
	"errors"
	"io"
	"log"
	"strings"
	"sync"

	"github.com/haivn/duochat/internal/model"
	"github.com/haivn/duochat/internal/provider"
	"github.com/haivn/duochat/internal/store"
)

// Provider keys. Persisted under store.KeySelectedProvider, so they
// are part of the durable format.
const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
)

// Sentinel errors surfaced to the caller before any state is touched.
var (
	// ErrMissingCredential means no API key is configured for the
	// selected provider. Surfaced as a blocking prompt, never as a
	// chat message.
	ErrMissingCredential = errors.New("no API key configured for the selected provider")

	// ErrBusy means a turn is already in flight for the conversation.
	ErrBusy = errors.New("a response is already streaming for this conversation")

	// ErrUnknownProvider means the provider key matches no adapter.
	ErrUnknownProvider = errors.New("unknown provider")

	// ErrUnknownConversation means the conversation id is not present.
	ErrUnknownConversation = errors.New("unknown conversation")
)

// apiKeyed is implemented by adapters whose credential can be replaced
// at runtime.
type apiKeyed interface {
	SetAPIKey(key string)
}

// =============================================================================
// ORCHESTRATOR
// =============================================================================

// Orchestrator holds the conversation map, the active-conversation
// pointer and the selected provider, and persists every committed
// change once the initial load has completed.
type Orchestrator struct {
	mu sync.Mutex

	st        store.Store
	providers []provider.Provider
	logger    *log.Logger

	conversations map[string]*model.Conversation
	activeID      string
	selected      string
	inflight      map[string]bool

	// loaded gates persistence: saves before the initial load would
	// clobber durable state with empty defaults.
	loaded bool

	onChange func()
}

// New creates an orchestrator over the given store and adapters. The
// adapter order matters for session rehydration: the first configured
// adapter returning a handle wins. A nil logger discards logs.
func New(st store.Store, logger *log.Logger, providers ...provider.Provider) *Orchestrator {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	o := &Orchestrator{
		st:            st,
		providers:     providers,
		logger:        logger,
		conversations: make(map[string]*model.Conversation),
		inflight:      make(map[string]bool),
	}
	if len(providers) > 0 {
		o.selected = providers[0].Name()
	}
	return o
}

// SetOnChange registers the callback invoked after every committed
// state change. Called outside the state lock.
func (o *Orchestrator) SetOnChange(fn func()) {
	o.mu.Lock()
	o.onChange = fn
	o.mu.Unlock()
}

// =============================================================================
// LOAD & REHYDRATION
// =============================================================================

// Load reads durable state, repairs turns interrupted by a previous
// shutdown, marks the orchestrator ready to persist, and rebuilds the
// provider session handles the serialization contract omits.
func (o *Orchestrator) Load() {
	o.mu.Lock()

	for _, p := range o.providers {
		if key, ok := o.st.Get(credentialKey(p.Name())); ok && key != "" {
			if k, can := p.(apiKeyed); can {
				k.SetAPIKey(key)
			}
		}
	}

	if sel, ok := o.st.Get(store.KeySelectedProvider); ok && o.providerByName(sel) != nil {
		o.selected = sel
	}

	blob, _ := o.st.Get(store.KeyConversations)
	o.conversations = store.DecodeConversations(blob)

	if id, ok := o.st.Get(store.KeyActiveConversation); ok {
		if _, exists := o.conversations[id]; exists {
			o.activeID = id
		}
	}

	o.loaded = true
	o.repairInterruptedLocked()
	o.rehydrateLocked()
	o.mu.Unlock()

	o.notify()
}

// repairInterruptedLocked settles placeholders abandoned by a previous
// process: a stream interrupted by shutdown must not survive as a
// silent empty message.
func (o *Orchestrator) repairInterruptedLocked() {
	for id, conv := range o.conversations {
		last := conv.LastMessage()
		if last == nil || !last.IsPlaceholder() {
			continue
		}
		next := conv.Clone()
		next.Messages[len(next.Messages)-1] = model.NewModelError(interruptedMessage)
		o.conversations[id] = next
		o.saveConversationsLocked()
	}
}

// rehydrateLocked rebuilds missing session handles from stored message
// history. Idempotent: presence of a handle is the only gate, already
// handled conversations are left untouched, and construction is local.
func (o *Orchestrator) rehydrateLocked() {
	for id, conv := range o.conversations {
		if conv.IsEmpty() || conv.Session != nil {
			continue
		}
		for _, p := range o.providers {
			if !p.Configured() {
				continue
			}
			if sess := p.Resume(conv.Messages); sess != nil {
				o.conversations[id] = conv.WithSession(sess)
				break
			}
		}
	}
}

// =============================================================================
// ACCESSORS
// =============================================================================

// Conversations returns all conversations, most recently created
// first. The order is derived from the numeric id suffix at read time.
func (o *Orchestrator) Conversations() []*model.Conversation {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]*model.Conversation, 0, len(o.conversations))
	for _, c := range o.conversations {
		out = append(out, c)
	}
	model.SortByRecency(out)
	return out
}

// Active returns the active conversation snapshot, or nil.
func (o *Orchestrator) Active() *model.Conversation {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.activeID == "" {
		return nil
	}
	return o.conversations[o.activeID]
}

// ActiveID returns the active conversation id, or "".
func (o *Orchestrator) ActiveID() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.activeID
}

// SetActive switches the active conversation.
func (o *Orchestrator) SetActive(id string) error {
	o.mu.Lock()
	if _, ok := o.conversations[id]; !ok {
		o.mu.Unlock()
		return ErrUnknownConversation
	}
	o.activeID = id
	o.saveActiveLocked()
	o.mu.Unlock()
	o.notify()
	return nil
}

// Busy reports whether a turn is in flight for the conversation.
func (o *Orchestrator) Busy(conversationID string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.inflight[conversationID]
}

// SelectedProvider returns the provider key used for the next turn.
func (o *Orchestrator) SelectedProvider() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.selected
}

// SelectProvider switches the provider used for subsequent turns.
func (o *Orchestrator) SelectProvider(name string) error {
	if o.providerByName(name) == nil {
		return ErrUnknownProvider
	}
	o.mu.Lock()
	o.selected = name
	if err := o.st.Set(store.KeySelectedProvider, name); err != nil {
		o.logger.Printf("orchestrator: failed to persist selected provider: %v", err)
	}
	o.mu.Unlock()
	o.notify()
	return nil
}

// Providers returns the adapters in registration order.
func (o *Orchestrator) Providers() []provider.Provider {
	return o.providers
}

// AnyConfigured reports whether at least one provider has a credential.
func (o *Orchestrator) AnyConfigured() bool {
	for _, p := range o.providers {
		if p.Configured() {
			return true
		}
	}
	return false
}

// =============================================================================
// CREDENTIALS
// =============================================================================

// credentialKey maps a provider key onto its store key. The names
// match the persisted format of the product this client replaces.
func credentialKey(providerName string) string {
	if providerName == ProviderOpenAI {
		return store.KeyOpenAIAPIKey
	}
	return store.KeyGoogleAPIKey
}

// SetCredential stores an API key, applies it to the adapter, and —
// when the session-oriented provider just became usable — rebuilds the
// session handles that were waiting on it. Setting the first credential
// also selects that provider.
func (o *Orchestrator) SetCredential(providerName, key string) error {
	p := o.providerByName(providerName)
	if p == nil {
		return ErrUnknownProvider
	}

	o.mu.Lock()
	noneConfigured := true
	for _, q := range o.providers {
		if q.Configured() {
			noneConfigured = false
			break
		}
	}

	if err := o.st.Set(credentialKey(providerName), key); err != nil {
		o.logger.Printf("orchestrator: failed to persist credential: %v", err)
	}
	if k, can := p.(apiKeyed); can {
		k.SetAPIKey(key)
	}
	if noneConfigured && key != "" {
		o.selected = providerName
		if err := o.st.Set(store.KeySelectedProvider, providerName); err != nil {
			o.logger.Printf("orchestrator: failed to persist selected provider: %v", err)
		}
	}
	if key != "" {
		o.rehydrateLocked()
	}
	o.mu.Unlock()

	o.notify()
	return nil
}

// =============================================================================
// NEW CHAT
// =============================================================================

// NewChat creates an empty conversation and makes it active. The
// session handle for the selected provider is created eagerly when its
// credential is available; otherwise it stays lazy.
func (o *Orchestrator) NewChat() (string, error) {
	if !o.AnyConfigured() {
		return "", ErrMissingCredential
	}

	conv := model.NewConversation("")
	if p := o.providerByName(o.SelectedProvider()); p != nil && p.Configured() {
		if sess := p.Resume(nil); sess != nil {
			conv.Session = sess
		}
	}

	o.mu.Lock()
	o.conversations[conv.ID] = conv
	o.activeID = conv.ID
	o.saveConversationsLocked()
	o.saveActiveLocked()
	o.mu.Unlock()

	o.notify()
	return conv.ID, nil
}

// Rename sets a conversation title. Blank titles are ignored so an
// abandoned edit never wipes the existing one.
func (o *Orchestrator) Rename(id, title string) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil
	}
	o.mu.Lock()
	conv, ok := o.conversations[id]
	if !ok {
		o.mu.Unlock()
		return ErrUnknownConversation
	}
	next := conv.Clone()
	next.Title = title
	o.commitLocked(next)
	o.mu.Unlock()
	o.notify()
	return nil
}

// =============================================================================
// INTERNAL HELPERS
// =============================================================================

func (o *Orchestrator) providerByName(name string) provider.Provider {
	for _, p := range o.providers {
		if p.Name() == name {
			return p
		}
	}
	return nil
}

// commitLocked replaces a conversation snapshot and persists. Caller
// must hold o.mu.
func (o *Orchestrator) commitLocked(conv *model.Conversation) {
	o.conversations[conv.ID] = conv
	o.saveConversationsLocked()
}

// saveConversationsLocked is the fire-and-forget save effect: failures
// are logged and in-memory operation continues degraded.
func (o *Orchestrator) saveConversationsLocked() {
	if !o.loaded {
		return
	}
	blob, err := store.EncodeConversations(o.conversations)
	if err != nil {
		o.logger.Printf("orchestrator: failed to encode conversations: %v", err)
		return
	}
	if err := o.st.Set(store.KeyConversations, blob); err != nil {
		o.logger.Printf("orchestrator: failed to save conversations: %v", err)
	}
}

func (o *Orchestrator) saveActiveLocked() {
	if !o.loaded {
		return
	}
	var err error
	if o.activeID == "" {
		err = o.st.Remove(store.KeyActiveConversation)
	} else {
		err = o.st.Set(store.KeyActiveConversation, o.activeID)
	}
	if err != nil {
		o.logger.Printf("orchestrator: failed to save active conversation: %v", err)
	}
}

// notify invokes the change callback outside the lock.
func (o *Orchestrator) notify() {
	o.mu.Lock()
	fn := o.onChange
	o.mu.Unlock()
	if fn != nil {
		fn()
	}
}
