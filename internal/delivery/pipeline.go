// Package delivery orchestrates sending a message: durable persist first,
// then local state updates, then a best-effort push echo for other live
// sessions. The push step can never fail a send — the message already
// exists durably and will surface on the next reload or reconnect.
package delivery

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/NahoooMac/wedhabesha-sub006/internal/api"
	"github.com/NahoooMac/wedhabesha-sub006/internal/chat"
	"github.com/NahoooMac/wedhabesha-sub006/internal/logging"
	"github.com/NahoooMac/wedhabesha-sub006/internal/store"
)

const previewLimit = 64

// Persister is the durable-store dependency, satisfied by *api.Client.
type Persister interface {
	SendMessage(ctx context.Context, threadID string, req api.SendMessageRequest) (chat.Message, error)
}

// Emitter is the push-channel dependency, satisfied by *push.Manager.
type Emitter interface {
	Emit(eventType chat.EventType, threadID string, payload any) error
}

// Config wires a Pipeline.
type Config struct {
	Persister Persister
	Emitter   Emitter
	// Threads is reordered after a successful send.
	Threads *store.ThreadStore
	// ActiveConversation returns the open conversation, or nil.
	ActiveConversation func() *store.Conversation
	// LocalUserID stamps provisional entries with the sender.
	LocalUserID string
	// Now is injectable for tests; defaults to time.Now.
	Now func() time.Time
}

// Pipeline sends messages.
type Pipeline struct {
	persister Persister
	emitter   Emitter
	threads   *store.ThreadStore
	active    func() *store.Conversation
	localUser string
	now       func() time.Time
	logger    zerolog.Logger
}

// NewPipeline creates a Pipeline.
func NewPipeline(cfg Config) *Pipeline {
	active := cfg.ActiveConversation
	if active == nil {
		active = func() *store.Conversation { return nil }
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Pipeline{
		persister: cfg.Persister,
		emitter:   cfg.Emitter,
		threads:   cfg.Threads,
		active:    active,
		localUser: cfg.LocalUserID,
		now:       now,
		logger:    logging.Component("delivery"),
	}
}

// Send persists the message, applies the local state updates, and fires the
// best-effort push echo. On persist failure nothing is committed: the
// provisional entry is rolled back and the error propagates to the caller.
func (p *Pipeline) Send(ctx context.Context, threadID, body string, kind chat.MessageKind, attachments []chat.Attachment) (chat.Message, error) {
	if kind == "" {
		kind = chat.KindText
	}

	conv := p.active()
	open := conv != nil && conv.ThreadID() == threadID

	// Speculative render while the persist is in flight. The marker is
	// local-only and must never be mistaken for a server identifier.
	marker := "provisional-" + uuid.NewString()
	if open {
		conv.Append(chat.Message{
			ID:          marker,
			ThreadID:    threadID,
			SenderID:    p.localUser,
			SenderRole:  chat.RoleVendor,
			Body:        body,
			Kind:        kind,
			Status:      chat.StatusSent,
			CreatedAt:   p.now(),
			Attachments: attachments,
			Provisional: true,
		})
	}

	persisted, err := p.persister.SendMessage(ctx, threadID, api.SendMessageRequest{
		Body:        body,
		Kind:        kind,
		Attachments: attachments,
	})
	if err != nil {
		if open {
			conv.DropProvisional(marker)
		}
		return chat.Message{}, err
	}

	if open {
		conv.ReplaceProvisional(marker, persisted)
	}

	// The sender already sees their own message, so no unread increment.
	p.threads.ReorderOnNewMessage(threadID, persisted.PreviewText(previewLimit), persisted.CreatedAt, false)

	if p.emitter != nil {
		if err := p.emitter.Emit(chat.EventMessageNew, threadID, persisted); err != nil {
			// Logged and swallowed: the authoritative write already
			// succeeded, other sessions catch up on reconnect.
			p.logger.Debug().Err(err).Str("message_id", persisted.ID).Msg("push echo failed")
		}
	}

	return persisted, nil
}

// NotifyTyping relays a typing indicator, best-effort.
func (p *Pipeline) NotifyTyping(threadID string, active bool) {
	if p.emitter == nil {
		return
	}
	eventType := chat.EventTypingStop
	if active {
		eventType = chat.EventTypingStart
	}
	payload := chat.Typing{ThreadID: threadID, UserID: p.localUser, Active: active}
	if err := p.emitter.Emit(eventType, threadID, payload); err != nil {
		p.logger.Debug().Err(err).Str("thread_id", threadID).Msg("typing emit failed")
	}
}
