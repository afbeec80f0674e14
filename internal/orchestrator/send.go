// Copyright (c) 2025 The duochat authors
// SPDX-License-Identifier: AGPL-3.0-or-later

package orchestrator

import (
	"context"
	"errors"
	"regexp"

	"github.com/haivn/duochat/internal/model"
	"github.com/haivn/duochat/internal/provider"
	"github.com/haivn/duochat/internal/util"
)

// User-facing error strings, in the product language.
const (
	errPrefix = "Lỗi: "

	quotaMessage = "Lỗi: Bạn đã vượt quá hạn ngạch sử dụng OpenAI API.\n\n" +
		"Vui lòng kiểm tra gói cước và thông tin thanh toán của bạn tại trang tổng quan OpenAI. " +
		"Nguyên nhân có thể là do thẻ thanh toán hết hạn hoặc bạn cần nạp thêm tín dụng (credits) để tiếp tục sử dụng."

	interruptedMessage = "Lỗi: Phản hồi bị gián đoạn khi ứng dụng khởi động lại. Hãy gửi lại tin nhắn của bạn."
)

// quotaPattern matches OpenAI quota/billing failures worth translating
// into actionable remediation text.
var quotaPattern = regexp.MustCompile(`(?i)quota|billing`)

// =============================================================================
// SEND PIPELINE
// =============================================================================

// SendMessage runs one full turn against the named provider and blocks
// until the stream settles. The pipeline is:
//
//  1. refuse when the provider is unknown or has no credential,
//     leaving state untouched;
//  2. create a conversation titled from the turn when none is active;
//  3. refuse with ErrBusy when a turn is already in flight for the
//     target conversation;
//  4. commit the user turn, then an empty placeholder bound to the
//     stream;
//  5. resolve the provider session (reusing a live handle, resuming
//     from history otherwise) and drive the stream, committing one
//     snapshot per delta;
//  6. settle the placeholder: accumulated text on success, an error
//     message in its place on failure.
//
// Stream failures settle into the conversation and return nil; only
// pre-stream refusals return an error.
func (o *Orchestrator) SendMessage(ctx context.Context, turn model.Message, providerName string) error {
	p := o.providerByName(providerName)
	if p == nil {
		return ErrUnknownProvider
	}
	if !p.Configured() {
		return ErrMissingCredential
	}

	o.mu.Lock()
	conv := o.conversations[o.activeID]
	if conv == nil {
		conv = model.NewConversation(model.TitleFromTurn(turn))
		o.conversations[conv.ID] = conv
		o.activeID = conv.ID
		o.saveConversationsLocked()
		o.saveActiveLocked()
	}
	convID := conv.ID

	if o.inflight[convID] {
		o.mu.Unlock()
		return ErrBusy
	}
	o.inflight[convID] = true

	// History is the state before this turn; the adapter decides how
	// much of it goes on the wire.
	history := append([]model.Message(nil), conv.Messages...)

	o.commitLocked(conv.WithMessage(turn))
	placeholder := model.NewPlaceholder()
	o.commitLocked(o.conversations[convID].WithMessage(placeholder))

	sess := o.conversations[convID].Session
	if sess == nil {
		if s := p.Resume(history); s != nil {
			sess = s
			o.commitLocked(o.conversations[convID].WithSession(s))
		}
	}
	o.mu.Unlock()
	o.notify()

	o.logger.Printf("orchestrator: sending turn (provider=%s conversation=%s): %s",
		providerName, convID, util.TruncateRunes(util.FirstLine(turn.FirstText()), 60))

	acc := model.NewAccumulator(placeholder.ID)
	streamErr := p.Stream(ctx, history, turn, sess, func(delta string) {
		o.mu.Lock()
		cur := o.conversations[convID]
		if next := acc.Delta(cur, delta); next != cur {
			o.commitLocked(next)
		}
		o.mu.Unlock()
		o.notify()
	})

	o.mu.Lock()
	cur := o.conversations[convID]
	if streamErr != nil {
		o.logger.Printf("orchestrator: stream failed (provider=%s conversation=%s): %v", providerName, convID, streamErr)
		o.commitLocked(acc.Fail(cur, userFacingError(providerName, streamErr)))
	} else {
		acc.Complete(cur)
	}
	delete(o.inflight, convID)
	o.mu.Unlock()
	o.notify()

	return nil
}

// userFacingError turns a stream failure into the message shown in the
// conversation. OpenAI quota/billing failures get fixed remediation
// text; everything else keeps the raw message under an error prefix.
func userFacingError(providerName string, err error) string {
	msg := err.Error()
	var pe *provider.Error
	if errors.As(err, &pe) {
		msg = pe.Message
	}
	if providerName == ProviderOpenAI && quotaPattern.MatchString(msg) {
		return quotaMessage
	}
	return errPrefix + msg
}
