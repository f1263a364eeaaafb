// Package session is the composition root: it constructs the synchronizer
// components once per session, wires them together explicitly, and owns the
// flows that span components (initial load, opening a thread, catching up
// after a reconnect, degraded REST-only polling).
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/NahoooMac/wedhabesha-sub006/internal/api"
	"github.com/NahoooMac/wedhabesha-sub006/internal/chat"
	"github.com/NahoooMac/wedhabesha-sub006/internal/creds"
	"github.com/NahoooMac/wedhabesha-sub006/internal/delivery"
	"github.com/NahoooMac/wedhabesha-sub006/internal/logging"
	"github.com/NahoooMac/wedhabesha-sub006/internal/notify"
	"github.com/NahoooMac/wedhabesha-sub006/internal/push"
	"github.com/NahoooMac/wedhabesha-sub006/internal/retry"
	"github.com/NahoooMac/wedhabesha-sub006/internal/router"
	"github.com/NahoooMac/wedhabesha-sub006/internal/store"
	"github.com/NahoooMac/wedhabesha-sub006/internal/view"
)

// PersistenceClient is the durable-store surface the session needs,
// satisfied by *api.Client.
type PersistenceClient interface {
	ListThreads(ctx context.Context) ([]chat.Thread, error)
	ListMessages(ctx context.Context, threadID string) ([]chat.Message, error)
	SendMessage(ctx context.Context, threadID string, req api.SendMessageRequest) (chat.Message, error)
	MarkThreadRead(ctx context.Context, threadID string) error
	DeleteMessage(ctx context.Context, messageID string) error
}

// Config assembles a Session.
type Config struct {
	// Persistence is the durable store client.
	Persistence PersistenceClient
	// Push is the connection manager. Optional: a nil manager means the
	// session runs REST-only from the start.
	Push *push.Manager
	// Credentials gates the push channel; without a token the session
	// degrades to polling.
	Credentials creds.Provider
	// Notifier handles alerts and the badge. Optional.
	Notifier *notify.Dispatcher
	// View controls panel visibility.
	View *view.Controller
	// Coordinator records user-visible failures.
	Coordinator *retry.Coordinator
	// LocalUserID is the vendor's own user identifier.
	LocalUserID string
	// PollInterval is the degraded-mode refresh cadence. Defaults to 30s.
	PollInterval time.Duration
}

// Session keeps the thread list and the open conversation consistent across
// the durable store and the push channel.
type Session struct {
	persistence PersistenceClient
	pushMgr     *push.Manager
	credentials creds.Provider
	threads     *store.ThreadStore
	notifier    *notify.Dispatcher
	viewCtrl    *view.Controller
	coordinator *retry.Coordinator
	pipeline    *delivery.Pipeline
	router      *router.Router
	localUser   string
	poll        time.Duration
	logger      zerolog.Logger

	mu         sync.Mutex
	conv       *store.Conversation
	gen        uint64
	connState  chat.ConnState
	degraded   bool
	started    bool
	cancel     context.CancelFunc
	eventSub   push.Subscription
	changed    chan struct{}
	lastTyping *chat.Typing
}

// New wires a Session. Nothing touches the network until Start.
func New(cfg Config) *Session {
	s := &Session{
		persistence: cfg.Persistence,
		pushMgr:     cfg.Push,
		credentials: cfg.Credentials,
		threads:     store.NewThreadStore(),
		notifier:    cfg.Notifier,
		viewCtrl:    cfg.View,
		coordinator: cfg.Coordinator,
		localUser:   cfg.LocalUserID,
		poll:        cfg.PollInterval,
		logger:      logging.Component("session"),
		connState:   chat.StateDisconnected,
		changed:     make(chan struct{}, 1),
	}
	if s.viewCtrl == nil {
		s.viewCtrl = view.NewController(0)
	}
	if s.coordinator == nil {
		s.coordinator = retry.NewCoordinator(logging.Component("retry"))
	}
	if s.poll <= 0 {
		s.poll = 30 * time.Second
	}
	if s.credentials == nil {
		s.credentials = creds.Static{}
	}

	var emitter delivery.Emitter
	if s.pushMgr != nil {
		emitter = s.pushMgr
	}
	s.pipeline = delivery.NewPipeline(delivery.Config{
		Persister:          s.persistence,
		Emitter:            emitter,
		Threads:            s.threads,
		ActiveConversation: s.ActiveConversation,
		LocalUserID:        s.localUser,
	})
	s.router = router.New(router.Config{
		Threads:            s.threads,
		ActiveConversation: s.ActiveConversation,
		Notifier:           s.notifier,
		LocalUserID:        s.localUser,
		OnThreadListStale:  s.refreshAsync,
		OnTyping:           s.handleTyping,
		OnConnectionChange: s.handleConnState,
	})
	return s
}

// Start performs the initial load and opens the push channel. A missing
// token is not an error: the session continues in REST-only degraded mode
// with periodic polling.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return nil
	}
	s.started = true
	runCtx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.mu.Unlock()

	if err := s.RefreshThreads(ctx); err != nil {
		// The session still starts; the UI shows the retryable banner.
		s.coordinator.HandleError(err, "session.load")
	}
	s.syncBadge()

	if s.notifier != nil {
		s.notifier.RequestPermission()
	}

	if s.pushMgr == nil {
		s.enterDegraded(runCtx)
		return nil
	}

	s.mu.Lock()
	s.eventSub = s.pushMgr.OnEvent(s.router.Handle)
	s.mu.Unlock()

	if err := s.pushMgr.Connect(runCtx); err != nil {
		if errors.Is(err, creds.ErrNoToken) || retry.ClassOf(err) == retry.ClassPushUnavailable {
			s.logger.Info().Msg("push channel unavailable, running REST-only")
			s.enterDegraded(runCtx)
			return nil
		}
		return err
	}
	return nil
}

// Close tears the session down and zeroes the badge.
func (s *Session) Close() {
	s.mu.Lock()
	cancel := s.cancel
	eventSub := s.eventSub
	s.started = false
	s.mu.Unlock()

	eventSub.Cancel()
	if s.pushMgr != nil {
		s.pushMgr.Disconnect()
	}
	if cancel != nil {
		cancel()
	}
	if s.notifier != nil {
		s.notifier.ResetUnreadCount()
	}
}

// Threads exposes the thread cache.
func (s *Session) Threads() *store.ThreadStore { return s.threads }

// View exposes the view controller.
func (s *Session) View() *view.Controller { return s.viewCtrl }

// Coordinator exposes the error coordinator for the UI's banner.
func (s *Session) Coordinator() *retry.Coordinator { return s.coordinator }

// ConnectionState returns the push channel's current state.
func (s *Session) ConnectionState() chat.ConnState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connState
}

// Changed delivers a coalesced signal whenever session state moved; the UI
// re-renders on it instead of polling every store.
func (s *Session) Changed() <-chan struct{} { return s.changed }

// ActiveConversation returns the open conversation, or nil.
func (s *Session) ActiveConversation() *store.Conversation {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.viewCtrl.SelectedThread() == "" {
		return nil
	}
	return s.conv
}

// RefreshThreads reloads the thread list from the durable store.
func (s *Session) RefreshThreads(ctx context.Context) error {
	threads, err := s.persistence.ListThreads(ctx)
	if err != nil {
		return err
	}
	s.threads.Load(threads)
	s.syncBadge()
	s.notifyChanged()
	return nil
}

// OpenThread selects a thread, joins its room, fetches its history, and
// clears its unread count. A fetch that resolves after the user has moved
// on to another thread is discarded, never applied to the new selection.
func (s *Session) OpenThread(ctx context.Context, threadID string) error {
	previous := s.viewCtrl.SelectedThread()
	if previous == threadID {
		return nil
	}
	s.viewCtrl.SelectThread(threadID)

	s.mu.Lock()
	s.gen++
	gen := s.gen
	conv := store.NewConversation(threadID)
	s.conv = conv
	s.lastTyping = nil
	s.mu.Unlock()

	if s.pushMgr != nil {
		if previous != "" {
			s.pushMgr.LeaveRoom(previous)
		}
		s.pushMgr.JoinRoom(threadID)
	}

	// Mark read first so the badge and the server agree even if the
	// history fetch fails.
	cleared := s.threads.ClearUnread(threadID)
	if s.notifier != nil {
		s.notifier.DecrementUnreadCount(cleared)
	}
	if cleared > 0 {
		if err := s.persistence.MarkThreadRead(ctx, threadID); err != nil {
			s.coordinator.HandleError(err, "session.markRead")
		}
	}

	messages, err := s.persistence.ListMessages(ctx, threadID)

	s.mu.Lock()
	current := gen == s.gen
	s.mu.Unlock()
	if !current {
		// The user switched threads while this fetch was in flight.
		s.logger.Debug().Str("thread_id", threadID).Msg("discarding stale history fetch")
		return nil
	}
	if err != nil {
		s.coordinator.HandleError(err, "session.loadMessages")
		return err
	}
	conv.Load(messages)
	s.notifyChanged()
	return nil
}

// GoBack returns to the thread list. On narrow viewports the conversation
// closes and its room is left; on wide viewports it stays open.
func (s *Session) GoBack() {
	selected := s.viewCtrl.SelectedThread()
	s.viewCtrl.GoBackToThreadList()
	if s.viewCtrl.SelectedThread() == "" && selected != "" {
		s.mu.Lock()
		s.conv = nil
		s.gen++
		s.mu.Unlock()
		if s.pushMgr != nil {
			s.pushMgr.LeaveRoom(selected)
		}
	}
	s.notifyChanged()
}

// Send delivers a message to the open thread through the pipeline.
func (s *Session) Send(ctx context.Context, body string, kind chat.MessageKind, attachments []chat.Attachment) (chat.Message, error) {
	threadID := s.viewCtrl.SelectedThread()
	if threadID == "" {
		return chat.Message{}, errors.New("no thread selected")
	}
	msg, err := s.pipeline.Send(ctx, threadID, body, kind, attachments)
	if err != nil {
		s.coordinator.HandleError(err, "session.send")
		return chat.Message{}, err
	}
	s.notifyChanged()
	return msg, nil
}

// NotifyTyping relays the local user's typing state, best-effort.
func (s *Session) NotifyTyping(active bool) {
	threadID := s.viewCtrl.SelectedThread()
	if threadID == "" {
		return
	}
	s.pipeline.NotifyTyping(threadID, active)
}

// DeleteMessage removes a message durably and from the open conversation.
func (s *Session) DeleteMessage(ctx context.Context, messageID string) error {
	if err := s.persistence.DeleteMessage(ctx, messageID); err != nil {
		s.coordinator.HandleError(err, "session.delete")
		return err
	}
	if conv := s.ActiveConversation(); conv != nil {
		conv.Remove(messageID)
	}
	s.notifyChanged()
	return nil
}

// CounterpartTyping reports whether the open thread's counterpart is
// currently typing.
func (s *Session) CounterpartTyping() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastTyping != nil && s.lastTyping.Active
}

// HandleEvent routes one push event; exposed for REST-only paths (e.g. the
// watch command) that decode envelopes themselves.
func (s *Session) HandleEvent(ev chat.Event) { s.router.Handle(ev) }

func (s *Session) handleTyping(ty chat.Typing) {
	s.mu.Lock()
	s.lastTyping = &ty
	s.mu.Unlock()
	s.notifyChanged()
}

func (s *Session) handleConnState(state chat.ConnState) {
	s.mu.Lock()
	previous := s.connState
	s.connState = state
	s.mu.Unlock()

	// Reconnect catch-up: the room is re-joined by the manager, but events
	// missed while offline only exist in the durable store.
	if state == chat.StateConnected && previous == chat.StateReconnecting {
		s.refreshAsync()
		if conv := s.ActiveConversation(); conv != nil {
			go s.reloadConversation(conv)
		}
	}
	s.notifyChanged()
}

func (s *Session) reloadConversation(conv *store.Conversation) {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	messages, err := s.persistence.ListMessages(ctx, conv.ThreadID())
	if err != nil {
		s.coordinator.HandleError(err, "session.catchup")
		return
	}
	if current := s.ActiveConversation(); current == conv {
		conv.Load(messages)
		s.notifyChanged()
	}
}

func (s *Session) refreshAsync() {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := s.RefreshThreads(ctx); err != nil {
			s.coordinator.HandleError(err, "session.refresh")
		}
	}()
}

// enterDegraded starts the REST-only poll loop. The cadence doubles as the
// "is the push channel back" probe budget.
func (s *Session) enterDegraded(ctx context.Context) {
	s.mu.Lock()
	if s.degraded {
		s.mu.Unlock()
		return
	}
	s.degraded = true
	s.mu.Unlock()

	go func() {
		ticker := time.NewTicker(s.poll)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				reqCtx, cancel := context.WithTimeout(ctx, s.poll)
				if err := s.RefreshThreads(reqCtx); err != nil {
					s.coordinator.HandleError(err, "session.poll")
				}
				if conv := s.ActiveConversation(); conv != nil {
					s.reloadConversation(conv)
				}
				cancel()

				// A token appearing later upgrades us out of degraded mode.
				if s.pushMgr != nil {
					if _, err := s.credentials.Token(); err == nil {
						if err := s.pushMgr.Connect(ctx); err == nil {
							s.mu.Lock()
							s.degraded = false
							s.mu.Unlock()
							return
						}
					}
				}
			}
		}
	}()
}

// syncBadge recomputes the badge from store totals rather than trusting a
// cached decrement, so concurrent devices can only re-zero it.
func (s *Session) syncBadge() {
	if s.notifier == nil {
		return
	}
	s.notifier.SyncUnreadCount(s.threads.TotalUnread(s.viewCtrl.SelectedThread()))
}

func (s *Session) notifyChanged() {
	select {
	case s.changed <- struct{}{}:
	default:
	}
}
