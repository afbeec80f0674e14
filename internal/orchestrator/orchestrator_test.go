// Copyright (c) 2025 The duochat authors
// SPDX-License-Identifier: AGPL-3.0-or-later

package orchestrator

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/haivn/duochat/internal/model"
	"github.com/haivn/duochat/internal/provider"
	"github.com/haivn/duochat/internal/store"
)

// =============================================================================
// FAKES
// =============================================================================

type fakeSession struct {
	seeded int
}

type streamCall struct {
	history []model.Message
	turn    model.Message
	sess    provider.Session
}

// fakeProvider scripts a provider: either a fixed delta sequence or a
// terminal error. When sessionful, Resume returns a handle recording
// how much history seeded it.
type fakeProvider struct {
	mu         sync.Mutex
	name       string
	key        string
	sessionful bool
	deltas     []string
	err        error
	resumes    int
	calls      []streamCall
	block      chan struct{}
}

func (f *fakeProvider) Name() string { return f.name }

func (f *fakeProvider) Configured() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.key != ""
}

func (f *fakeProvider) SetAPIKey(key string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.key = key
}

func (f *fakeProvider) Resume(history []model.Message) provider.Session {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.sessionful {
		return nil
	}
	f.resumes++
	return &fakeSession{seeded: len(history)}
}

func (f *fakeProvider) Stream(ctx context.Context, history []model.Message, turn model.Message, sess provider.Session, fn provider.DeltaFunc) error {
	f.mu.Lock()
	f.calls = append(f.calls, streamCall{history: history, turn: turn, sess: sess})
	block := f.block
	f.mu.Unlock()

	if block != nil {
		<-block
	}
	if f.err != nil {
		return f.err
	}
	for _, d := range f.deltas {
		fn(d)
	}
	return nil
}

func (f *fakeProvider) streamCalls() []streamCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]streamCall(nil), f.calls...)
}

func newTestOrchestrator(t *testing.T) (*Orchestrator, *fakeProvider, *fakeProvider, store.Store) {
	t.Helper()
	st := store.NewMemStore()
	gemini := &fakeProvider{name: ProviderGemini, key: "g-key", sessionful: true}
	openai := &fakeProvider{name: ProviderOpenAI, key: "o-key"}
	o := New(st, nil, gemini, openai)
	o.Load()
	return o, gemini, openai, st
}

// =============================================================================
// SEND PIPELINE TESTS
// =============================================================================

func TestSendStreamsIntoConversation(t *testing.T) {
	o, gemini, _, _ := newTestOrchestrator(t)
	gemini.deltas = []string{"He", "llo!"}

	err := o.SendMessage(context.Background(), model.NewUserText("Chào bạn"), ProviderGemini)
	require.NoError(t, err)

	conv := o.Active()
	require.NotNil(t, conv)
	require.Len(t, conv.Messages, 2)

	assert.Equal(t, model.RoleUser, conv.Messages[0].Role)
	assert.Equal(t, "Chào bạn", conv.Messages[0].FirstText())

	last := conv.LastMessage()
	assert.Equal(t, model.RoleModel, last.Role)
	assert.Equal(t, "Hello!", last.FirstText())
	assert.True(t, strings.HasSuffix(last.ID, "-model"))

	assert.Equal(t, "Chào bạn", conv.Title)
	assert.False(t, o.Busy(conv.ID))
}

func TestSendDeliversHistoryBeforeTurn(t *testing.T) {
	o, gemini, _, _ := newTestOrchestrator(t)
	gemini.deltas = []string{"first"}

	require.NoError(t, o.SendMessage(context.Background(), model.NewUserText("one"), ProviderGemini))
	gemini.deltas = []string{"second"}
	require.NoError(t, o.SendMessage(context.Background(), model.NewUserText("two"), ProviderGemini))

	calls := gemini.streamCalls()
	require.Len(t, calls, 2)
	assert.Empty(t, calls[0].history)
	// Second turn sees the settled first exchange, not the in-flight
	// placeholder.
	require.Len(t, calls[1].history, 2)
	assert.Equal(t, "one", calls[1].history[0].FirstText())
	assert.Equal(t, "first", calls[1].history[1].FirstText())
}

func TestSendReusesSessionHandle(t *testing.T) {
	o, gemini, _, _ := newTestOrchestrator(t)
	gemini.deltas = []string{"ok"}

	require.NoError(t, o.SendMessage(context.Background(), model.NewUserText("a"), ProviderGemini))
	require.NoError(t, o.SendMessage(context.Background(), model.NewUserText("b"), ProviderGemini))

	calls := gemini.streamCalls()
	require.Len(t, calls, 2)
	require.NotNil(t, calls[0].sess)
	assert.Same(t, calls[0].sess, calls[1].sess, "second turn must reuse the live handle")
	assert.Equal(t, 1, gemini.resumes)
}

func TestSendQuotaErrorGetsRemediationText(t *testing.T) {
	o, _, openai, _ := newTestOrchestrator(t)
	openai.err = provider.NewError(429, "You exceeded your current quota, please check billing details.")

	err := o.SendMessage(context.Background(), model.NewUserText("hi"), ProviderOpenAI)
	require.NoError(t, err, "stream failures settle into the conversation")

	conv := o.Active()
	require.NotNil(t, conv)
	last := conv.LastMessage()
	assert.True(t, strings.HasSuffix(last.ID, "-error"))
	assert.Equal(t, quotaMessage, last.FirstText())
	assert.False(t, o.Busy(conv.ID))
}

func TestSendGenericErrorKeepsRawMessage(t *testing.T) {
	o, gemini, _, _ := newTestOrchestrator(t)
	gemini.err = provider.NewError(500, "HTTP error! status: 500")

	require.NoError(t, o.SendMessage(context.Background(), model.NewUserText("hi"), ProviderGemini))

	last := o.Active().LastMessage()
	assert.Equal(t, "Lỗi: HTTP error! status: 500", last.FirstText())
}

func TestSendWithoutCredential(t *testing.T) {
	st := store.NewMemStore()
	gemini := &fakeProvider{name: ProviderGemini, sessionful: true}
	o := New(st, nil, gemini)
	o.Load()

	err := o.SendMessage(context.Background(), model.NewUserText("hi"), ProviderGemini)
	assert.ErrorIs(t, err, ErrMissingCredential)

	assert.Empty(t, o.Conversations(), "refusal must leave state untouched")
	_, ok := st.Get(store.KeyConversations)
	assert.False(t, ok)
}

func TestSendWhileBusy(t *testing.T) {
	o, gemini, _, _ := newTestOrchestrator(t)
	gemini.block = make(chan struct{})
	gemini.deltas = []string{"slow"}

	id, err := o.NewChat()
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		done <- o.SendMessage(context.Background(), model.NewUserText("first"), ProviderGemini)
	}()

	require.Eventually(t, func() bool { return o.Busy(id) }, time.Second, time.Millisecond)

	err = o.SendMessage(context.Background(), model.NewUserText("second"), ProviderGemini)
	assert.ErrorIs(t, err, ErrBusy)

	close(gemini.block)
	require.NoError(t, <-done)
	assert.False(t, o.Busy(id))

	// The refused turn left no trace.
	conv := o.Active()
	require.Len(t, conv.Messages, 2)
	assert.Equal(t, "first", conv.Messages[0].FirstText())
}

// =============================================================================
// PERSISTENCE & REHYDRATION TESTS
// =============================================================================

func TestRestartRestoresConversations(t *testing.T) {
	o, gemini, _, st := newTestOrchestrator(t)
	gemini.deltas = []string{"Xin chào!"}
	require.NoError(t, o.SendMessage(context.Background(), model.NewUserText("Chào"), ProviderGemini))
	activeID := o.ActiveID()

	// Simulate a restart over the same store.
	gemini2 := &fakeProvider{name: ProviderGemini, key: "g-key", sessionful: true}
	o2 := New(st, nil, gemini2, &fakeProvider{name: ProviderOpenAI})
	o2.Load()

	assert.Equal(t, activeID, o2.ActiveID())
	conv := o2.Active()
	require.NotNil(t, conv)
	require.Len(t, conv.Messages, 2)
	assert.Equal(t, "Xin chào!", conv.LastMessage().FirstText())

	// The session handle is rebuilt from history, not persisted.
	require.NotNil(t, conv.Session)
	sess := conv.Session.(*fakeSession)
	assert.Equal(t, 2, sess.seeded)
}

func TestRehydrationIsIdempotent(t *testing.T) {
	o, gemini, _, _ := newTestOrchestrator(t)
	gemini.deltas = []string{"ok"}
	require.NoError(t, o.SendMessage(context.Background(), model.NewUserText("a"), ProviderGemini))

	before := gemini.resumes
	// Credential updates re-run rehydration; conversations that already
	// hold a handle must be skipped.
	require.NoError(t, o.SetCredential(ProviderGemini, "g-key-2"))
	assert.Equal(t, before, gemini.resumes)
}

func TestRehydrationWaitsForCredential(t *testing.T) {
	o, gemini, _, st := newTestOrchestrator(t)
	gemini.deltas = []string{"ok"}
	require.NoError(t, o.SendMessage(context.Background(), model.NewUserText("a"), ProviderGemini))

	// Restart without any stored credential.
	require.NoError(t, st.Remove(store.KeyGoogleAPIKey))
	gemini2 := &fakeProvider{name: ProviderGemini, sessionful: true}
	o2 := New(st, nil, gemini2)
	o2.Load()

	require.Nil(t, o2.Active().Session)

	// Supplying the key triggers the deferred rebuild.
	require.NoError(t, o2.SetCredential(ProviderGemini, "late-key"))
	assert.NotNil(t, o2.Active().Session)
}

func TestLoadRepairsInterruptedPlaceholder(t *testing.T) {
	st := store.NewMemStore()

	conv := model.NewConversation("cut off")
	conv = conv.WithMessage(model.NewUserText("hello?"))
	conv = conv.WithMessage(model.NewPlaceholder())
	blob, err := store.EncodeConversations(map[string]*model.Conversation{conv.ID: conv})
	require.NoError(t, err)
	require.NoError(t, st.Set(store.KeyConversations, blob))
	require.NoError(t, st.Set(store.KeyActiveConversation, conv.ID))

	o := New(st, nil, &fakeProvider{name: ProviderGemini, key: "g", sessionful: true})
	o.Load()

	got := o.Active()
	require.Len(t, got.Messages, 2)
	last := got.LastMessage()
	assert.True(t, strings.HasSuffix(last.ID, "-error"))
	assert.Equal(t, interruptedMessage, last.FirstText())

	// The repair is itself durable.
	raw, ok := st.Get(store.KeyConversations)
	require.True(t, ok)
	assert.Contains(t, raw, "-error")
}

func TestLoadToleratesCorruptBlob(t *testing.T) {
	st := store.NewMemStore()
	require.NoError(t, st.Set(store.KeyConversations, "{not json"))
	require.NoError(t, st.Set(store.KeyActiveConversation, "conv-1"))

	o := New(st, nil, &fakeProvider{name: ProviderGemini, key: "g"})
	o.Load()

	assert.Empty(t, o.Conversations())
	assert.Equal(t, "", o.ActiveID(), "dangling active pointer is dropped")
}

// =============================================================================
// SELECTION & CREDENTIAL TESTS
// =============================================================================

func TestSelectProviderPersists(t *testing.T) {
	o, _, _, st := newTestOrchestrator(t)

	require.NoError(t, o.SelectProvider(ProviderOpenAI))
	assert.Equal(t, ProviderOpenAI, o.SelectedProvider())

	got, ok := st.Get(store.KeySelectedProvider)
	require.True(t, ok)
	assert.Equal(t, ProviderOpenAI, got)

	assert.ErrorIs(t, o.SelectProvider("claude"), ErrUnknownProvider)
}

func TestSelectionSurvivesRestart(t *testing.T) {
	o, _, _, st := newTestOrchestrator(t)
	require.NoError(t, o.SelectProvider(ProviderOpenAI))

	o2 := New(st, nil,
		&fakeProvider{name: ProviderGemini, key: "g", sessionful: true},
		&fakeProvider{name: ProviderOpenAI, key: "o"})
	o2.Load()
	assert.Equal(t, ProviderOpenAI, o2.SelectedProvider())
}

func TestSetCredentialAppliesAndPersists(t *testing.T) {
	st := store.NewMemStore()
	gemini := &fakeProvider{name: ProviderGemini, sessionful: true}
	openai := &fakeProvider{name: ProviderOpenAI}
	o := New(st, nil, gemini, openai)
	o.Load()

	require.NoError(t, o.SetCredential(ProviderOpenAI, "sk-new"))

	assert.True(t, openai.Configured())
	got, ok := st.Get(store.KeyOpenAIAPIKey)
	require.True(t, ok)
	assert.Equal(t, "sk-new", got)

	// First credential selects its provider.
	assert.Equal(t, ProviderOpenAI, o.SelectedProvider())
}

func TestNewChatRequiresCredential(t *testing.T) {
	st := store.NewMemStore()
	o := New(st, nil, &fakeProvider{name: ProviderGemini, sessionful: true})
	o.Load()

	_, err := o.NewChat()
	assert.ErrorIs(t, err, ErrMissingCredential)
}

func TestNewChatCreatesEagerSession(t *testing.T) {
	o, _, _, _ := newTestOrchestrator(t)

	id, err := o.NewChat()
	require.NoError(t, err)

	conv := o.Active()
	require.NotNil(t, conv)
	assert.Equal(t, id, conv.ID)
	assert.Equal(t, model.DefaultTitle, conv.Title)
	assert.NotNil(t, conv.Session)
	assert.True(t, conv.IsEmpty())
}

func TestConversationsSortedMostRecentFirst(t *testing.T) {
	o, _, _, _ := newTestOrchestrator(t)

	first, err := o.NewChat()
	require.NoError(t, err)
	time.Sleep(2 * time.Millisecond) // ids carry a millisecond stamp
	second, err := o.NewChat()
	require.NoError(t, err)

	convs := o.Conversations()
	require.Len(t, convs, 2)
	assert.Equal(t, second, convs[0].ID)
	assert.Equal(t, first, convs[1].ID)
}

func TestRename(t *testing.T) {
	o, _, _, st := newTestOrchestrator(t)
	id, err := o.NewChat()
	require.NoError(t, err)

	require.NoError(t, o.Rename(id, "  kế hoạch du lịch  "))
	assert.Equal(t, "kế hoạch du lịch", o.Active().Title)

	// Blank edits keep the current title.
	require.NoError(t, o.Rename(id, "   "))
	assert.Equal(t, "kế hoạch du lịch", o.Active().Title)

	assert.ErrorIs(t, o.Rename("conv-0", "x"), ErrUnknownConversation)

	raw, ok := st.Get(store.KeyConversations)
	require.True(t, ok)
	assert.Contains(t, raw, "kế hoạch du lịch")
}

// =============================================================================
// ERROR FORMATTING TESTS
// =============================================================================

func TestUserFacingError(t *testing.T) {
	tests := []struct {
		name     string
		provider string
		err      error
		want     string
	}{
		{
			name:     "openai quota",
			provider: ProviderOpenAI,
			err:      provider.NewError(429, "You exceeded your current QUOTA"),
			want:     quotaMessage,
		},
		{
			name:     "openai billing",
			provider: ProviderOpenAI,
			err:      provider.NewError(402, "billing hard limit reached"),
			want:     quotaMessage,
		},
		{
			name:     "gemini quota text stays raw",
			provider: ProviderGemini,
			err:      provider.NewError(429, "quota exceeded"),
			want:     "Lỗi: quota exceeded",
		},
		{
			name:     "openai unrelated error",
			provider: ProviderOpenAI,
			err:      provider.NewError(401, "Incorrect API key provided"),
			want:     "Lỗi: Incorrect API key provided",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, userFacingError(tt.provider, tt.err))
		})
	}
}
