// Copyright (c) 2025 The duochat authors
// SPDX-License-Identifier: AGPL-3.0-or-later

package openai

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/haivn/duochat/internal/model"
	"github.com/haivn/duochat/internal/provider"
)

// =============================================================================
// HISTORY TRANSLATION TESTS
// =============================================================================

func TestBuildMessagesTextOnly(t *testing.T) {
	history := []model.Message{
		model.NewUserText("question"),
		{ID: "msg-m", Role: model.RoleModel, Parts: []model.Part{model.TextPart("answer")}},
	}
	turn := model.NewUserText("follow-up")

	msgs := buildMessages(history, turn)

	require.Len(t, msgs, 3)
	assert.Equal(t, "user", msgs[0].Role)
	assert.Equal(t, "question", msgs[0].Content)
	assert.Equal(t, "assistant", msgs[1].Role)
	assert.Equal(t, "answer", msgs[1].Content)
	assert.Equal(t, "follow-up", msgs[2].Content)
}

func TestBuildMessagesExcludesContentless(t *testing.T) {
	history := []model.Message{
		model.NewPlaceholder(),                           // empty model placeholder
		model.NewUserMessage(model.TextPart("   ")),      // blank text
		{ID: "x", Role: model.Role("system"), Parts: []model.Part{model.TextPart("sys")}}, // foreign role
	}
	turn := model.NewUserText("only me")

	msgs := buildMessages(history, turn)

	require.Len(t, msgs, 1)
	assert.Equal(t, "only me", msgs[0].Content)
}

func TestBuildMessagesImageDataURI(t *testing.T) {
	turn := model.NewUserMessage(
		model.TextPart("what is this?"),
		model.BinaryPart("image/png", "aGVsbG8="),
	)

	msgs := buildMessages(nil, turn)
	require.Len(t, msgs, 1)

	parts, ok := msgs[0].Content.([]contentPart)
	require.True(t, ok, "mixed message must use a content array")
	require.Len(t, parts, 2)
	assert.Equal(t, "text", parts[0].Type)
	assert.Equal(t, "what is this?", parts[0].Text)
	assert.Equal(t, "image_url", parts[1].Type)
	assert.Equal(t, "data:image/png;base64,aGVsbG8=", parts[1].ImageURL.URL)
}

func TestBuildMessagesJoinsMultipleTextParts(t *testing.T) {
	turn := model.NewUserMessage(model.TextPart("one"), model.TextPart("two"))
	msgs := buildMessages(nil, turn)
	require.Len(t, msgs, 1)
	assert.Equal(t, "one\ntwo", msgs[0].Content)
}

// =============================================================================
// STREAMING TESTS
// =============================================================================

func fakeCompletions(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient("sk-test", &Config{BaseURL: srv.URL, Model: "gpt-4o"})
}

func completionFrame(content string) string {
	chunk := map[string]any{
		"choices": []any{map[string]any{"delta": map[string]any{"content": content}}},
	}
	raw, _ := json.Marshal(chunk)
	return "data: " + string(raw) + "\n\n"
}

func TestStreamDeliversDeltas(t *testing.T) {
	var gotReq chatRequest
	c := fakeCompletions(t, func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(raw, &gotReq))
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

		w.Header().Set("Content-Type", "text/event-stream")
		io.WriteString(w, completionFrame("He"))
		io.WriteString(w, completionFrame("llo!"))
		io.WriteString(w, "data: [DONE]\n\n")
	})

	var deltas []string
	err := c.Stream(context.Background(), nil, model.NewUserText("Hello"), nil, func(d string) {
		deltas = append(deltas, d)
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"He", "llo!"}, deltas)
	assert.True(t, gotReq.Stream)
	assert.Equal(t, "gpt-4o", gotReq.Model)
	require.Len(t, gotReq.Messages, 1)
}

func TestStreamSkipsMalformedFrames(t *testing.T) {
	c := fakeCompletions(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "data: {not json\n\n")
		io.WriteString(w, completionFrame("ok"))
		io.WriteString(w, "data: [DONE]\n\n")
	})

	var deltas []string
	err := c.Stream(context.Background(), nil, model.NewUserText("x"), nil, func(d string) {
		deltas = append(deltas, d)
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"ok"}, deltas)
}

func TestStreamErrorBodyParsed(t *testing.T) {
	c := fakeCompletions(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		io.WriteString(w, `{"error":{"message":"You exceeded your current quota, please check billing","type":"insufficient_quota"}}`)
	})

	err := c.Stream(context.Background(), nil, model.NewUserText("x"), nil, func(string) {})

	var perr *provider.Error
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, "You exceeded your current quota, please check billing", perr.Message)
	assert.Equal(t, http.StatusTooManyRequests, perr.StatusCode)
}

func TestStreamErrorOpaqueBody(t *testing.T) {
	c := fakeCompletions(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		io.WriteString(w, "upstream exploded")
	})

	err := c.Stream(context.Background(), nil, model.NewUserText("x"), nil, func(string) {})

	var perr *provider.Error
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, "HTTP error! status: 502", perr.Message)
}

func TestStreamWithoutKey(t *testing.T) {
	c := NewClient("", nil)
	err := c.Stream(context.Background(), nil, model.NewUserText("x"), nil, func(string) {})

	var perr *provider.Error
	require.True(t, errors.As(err, &perr))
}

func TestResumeReturnsNil(t *testing.T) {
	c := NewClient("sk", nil)
	assert.Nil(t, c.Resume([]model.Message{model.NewUserText("x")}))
}
