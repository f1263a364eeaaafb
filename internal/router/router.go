// Package router consumes push-channel events, enforces the dedup-by-
// identifier invariant, and dispatches updates to the thread store, the
// active conversation, and the notification dispatcher.
package router

import (
	"github.com/rs/zerolog"

	"github.com/NahoooMac/wedhabesha-sub006/internal/chat"
	"github.com/NahoooMac/wedhabesha-sub006/internal/logging"
	"github.com/NahoooMac/wedhabesha-sub006/internal/notify"
	"github.com/NahoooMac/wedhabesha-sub006/internal/store"
)

const previewLimit = 64

// Config wires a Router to its collaborators.
type Config struct {
	// Threads is the thread cache updated on every message event.
	Threads *store.ThreadStore
	// ActiveConversation returns the open conversation, or nil when the
	// user is looking at the thread list only.
	ActiveConversation func() *store.Conversation
	// Notifier receives counterpart-message alerts. Optional.
	Notifier *notify.Dispatcher
	// LocalUserID identifies the vendor's own sends, which never count as
	// unread.
	LocalUserID string
	// OnThreadListStale fires when an event references a thread the cache
	// does not know; the session refreshes the list from the durable store.
	OnThreadListStale func()
	// OnTyping surfaces typing indicators for the open thread. Optional.
	OnTyping func(chat.Typing)
	// OnConnectionChange forwards connectivity transitions to subscribers
	// that need them (status banner, rejoin logic). Optional.
	OnConnectionChange func(chat.ConnState)
}

// Router routes decoded push events. Handle is safe to call from the push
// manager's dispatch goroutine.
type Router struct {
	threads     *store.ThreadStore
	active      func() *store.Conversation
	notifier    *notify.Dispatcher
	localUserID string
	onStale     func()
	onTyping    func(chat.Typing)
	onConnState func(chat.ConnState)
	logger      zerolog.Logger
}

// New creates a Router.
func New(cfg Config) *Router {
	active := cfg.ActiveConversation
	if active == nil {
		active = func() *store.Conversation { return nil }
	}
	return &Router{
		threads:     cfg.Threads,
		active:      active,
		notifier:    cfg.Notifier,
		localUserID: cfg.LocalUserID,
		onStale:     cfg.OnThreadListStale,
		onTyping:    cfg.OnTyping,
		onConnState: cfg.OnConnectionChange,
		logger:      logging.Component("router"),
	}
}

// Handle dispatches one event to the matching handler.
func (r *Router) Handle(ev chat.Event) {
	switch ev.Type {
	case chat.EventMessageNew:
		if ev.Message != nil {
			r.handleMessage(*ev.Message)
		}
	case chat.EventMessageRead:
		if ev.ReadReceipt != nil {
			r.handleReadReceipt(*ev.ReadReceipt)
		}
	case chat.EventTypingStart, chat.EventTypingStop:
		if ev.Typing != nil {
			r.handleTyping(*ev.Typing)
		}
	case chat.EventConnectionChange:
		if r.onConnState != nil {
			r.onConnState(ev.ConnState)
		}
	default:
		r.logger.Debug().Str("type", string(ev.Type)).Msg("ignoring unhandled event type")
	}
}

func (r *Router) handleMessage(msg chat.Message) {
	conv := r.active()
	open := conv != nil && conv.ThreadID() == msg.ThreadID

	if open {
		// Dedup against messages appended by the delivery pipeline or a
		// prior delivery of the same event.
		if !conv.Append(msg) {
			r.logger.Debug().Str("message_id", msg.ID).Msg("duplicate message discarded")
			return
		}
	}

	fromSelf := msg.SenderID == r.localUserID
	result := r.threads.ReorderOnNewMessage(
		msg.ThreadID,
		msg.PreviewText(previewLimit),
		msg.CreatedAt,
		!fromSelf && !open,
	)
	if result == store.ReorderUnknownThread {
		r.logger.Info().Str("thread_id", msg.ThreadID).Msg("message for unknown thread, refreshing list")
		if r.onStale != nil {
			r.onStale()
		}
	}

	// A stale reorder on a background thread means a duplicate delivery;
	// alerting again would drift the badge away from the store totals.
	if !fromSelf && r.notifier != nil && (open || result == store.ReorderApplied) {
		r.notifier.HandleMessage(msg, r.senderName(msg), open)
	}
}

func (r *Router) handleReadReceipt(rr chat.ReadReceipt) {
	conv := r.active()
	if conv == nil || conv.ThreadID() != rr.ThreadID {
		return
	}
	if !conv.MarkRead(rr.MessageID) {
		r.logger.Debug().Str("message_id", rr.MessageID).Msg("read receipt for unknown message")
	}
}

func (r *Router) handleTyping(ty chat.Typing) {
	if ty.UserID == r.localUserID || r.onTyping == nil {
		return
	}
	conv := r.active()
	if conv == nil || conv.ThreadID() != ty.ThreadID {
		return
	}
	r.onTyping(ty)
}

func (r *Router) senderName(msg chat.Message) string {
	if thread, ok := r.threads.Get(msg.ThreadID); ok && thread.CounterpartName != "" {
		return thread.CounterpartName
	}
	return "New message"
}
