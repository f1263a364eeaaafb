// Package push owns the push-channel connection lifecycle: connect,
// reconnect with capped backoff, room membership, outbound emission, and a
// token-keyed subscriber registry for inbound events and state transitions.
//
// The channel is a pure latency optimization. Nothing here is durable;
// persistence stays the source of truth and every failure path degrades to
// REST-only operation instead of surfacing to the user.
package push

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/NahoooMac/wedhabesha-sub006/internal/chat"
	"github.com/NahoooMac/wedhabesha-sub006/internal/creds"
	"github.com/NahoooMac/wedhabesha-sub006/internal/logging"
	"github.com/NahoooMac/wedhabesha-sub006/internal/retry"
)

// Config configures a Manager.
type Config struct {
	// URL is the push endpoint, e.g. "wss://push.example.com/socket".
	URL string
	// Credentials supplies the bearer token; without one the channel stays
	// closed and Connect reports push-unavailable.
	Credentials creds.Provider
	// Dialer opens sessions. Defaults to WebsocketDialer.
	Dialer Dialer
	// ReconnectMin/ReconnectMax bound the backoff between attempts.
	ReconnectMin time.Duration
	ReconnectMax time.Duration
	// Coordinator, when set, records repeated reconnect failures.
	Coordinator *retry.Coordinator
}

// Subscription identifies one registered handler and detaches it on Cancel.
// Cancel is idempotent.
type Subscription struct {
	token  string
	cancel func()
}

// Token returns the registry key for this subscription.
func (s Subscription) Token() string { return s.token }

// Cancel removes the handler from the registry.
func (s Subscription) Cancel() {
	if s.cancel != nil {
		s.cancel()
	}
}

// Manager is the single per-session connection handler. Construct one and
// pass it explicitly; there is deliberately no package-level instance.
type Manager struct {
	url          string
	creds        creds.Provider
	dialer       Dialer
	reconnectMin time.Duration
	reconnectMax time.Duration
	coordinator  *retry.Coordinator
	logger       zerolog.Logger

	mu         sync.Mutex
	state      chat.ConnState
	transport  Transport
	activeRoom string
	running    bool
	cancel     context.CancelFunc
	done       chan struct{}

	subMu     sync.RWMutex
	eventSubs map[string]func(chat.Event)
	stateSubs map[string]func(chat.ConnState)
}

// NewManager creates a Manager in the disconnected state.
func NewManager(cfg Config) *Manager {
	dialer := cfg.Dialer
	if dialer == nil {
		dialer = WebsocketDialer{}
	}
	provider := cfg.Credentials
	if provider == nil {
		provider = creds.Static{}
	}
	return &Manager{
		url:          cfg.URL,
		creds:        provider,
		dialer:       dialer,
		reconnectMin: cfg.ReconnectMin,
		reconnectMax: cfg.ReconnectMax,
		coordinator:  cfg.Coordinator,
		logger:       logging.Component("push"),
		state:        chat.StateDisconnected,
		eventSubs:    make(map[string]func(chat.Event)),
		stateSubs:    make(map[string]func(chat.ConnState)),
	}
}

// State returns the current connection state.
func (m *Manager) State() chat.ConnState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// ActiveRoom returns the thread the session is currently scoped to.
func (m *Manager) ActiveRoom() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.activeRoom
}

// Connect establishes the push session and keeps it alive until Disconnect.
// Calling Connect while already running is a no-op. A missing token returns
// a push-unavailable error and leaves the manager disconnected.
func (m *Manager) Connect(ctx context.Context) error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return nil
	}
	if _, err := m.creds.Token(); err != nil {
		m.mu.Unlock()
		return retry.Classified(retry.ClassPushUnavailable, "push.connect", err)
	}
	runCtx, cancel := context.WithCancel(ctx)
	m.running = true
	m.cancel = cancel
	m.done = make(chan struct{})
	done := m.done
	m.mu.Unlock()

	m.setState(chat.StateConnecting)
	go func() {
		defer close(done)
		m.run(runCtx)
	}()
	return nil
}

// Disconnect tears the session down and waits for the run loop to exit.
func (m *Manager) Disconnect() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	m.running = false
	cancel := m.cancel
	transport := m.transport
	done := m.done
	m.mu.Unlock()

	cancel()
	if transport != nil {
		_ = transport.Close()
	}
	<-done
	m.setState(chat.StateDisconnected)
}

// JoinRoom scopes delivery to a thread. The room is remembered so a
// reconnect re-issues the join without caller involvement.
func (m *Manager) JoinRoom(threadID string) {
	m.mu.Lock()
	m.activeRoom = threadID
	transport := m.transport
	m.mu.Unlock()

	if transport != nil {
		m.writeRoom(transport, chat.EventRoomJoin, threadID)
	}
}

// LeaveRoom clears the active room if it matches threadID.
func (m *Manager) LeaveRoom(threadID string) {
	m.mu.Lock()
	if m.activeRoom == threadID {
		m.activeRoom = ""
	}
	transport := m.transport
	m.mu.Unlock()

	if transport != nil {
		m.writeRoom(transport, chat.EventRoomLeave, threadID)
	}
}

// Emit sends a best-effort outbound event. When the channel is down the
// error is classified push-unavailable; callers decide whether to swallow.
func (m *Manager) Emit(eventType chat.EventType, threadID string, payload any) error {
	env, err := chat.EncodeEnvelope(eventType, threadID, payload)
	if err != nil {
		return retry.Classified(retry.ClassValidation, "push.emit", err)
	}

	m.mu.Lock()
	transport := m.transport
	m.mu.Unlock()
	if transport == nil {
		return retry.Classified(retry.ClassPushUnavailable, "push.emit", ErrNotConnected)
	}
	if err := transport.WriteEnvelope(env); err != nil {
		return retry.Classified(retry.ClassPushUnavailable, "push.emit", err)
	}
	return nil
}

// OnEvent registers a handler for every decoded inbound event.
func (m *Manager) OnEvent(fn func(chat.Event)) Subscription {
	token := uuid.NewString()
	m.subMu.Lock()
	m.eventSubs[token] = fn
	m.subMu.Unlock()
	return Subscription{token: token, cancel: func() {
		m.subMu.Lock()
		delete(m.eventSubs, token)
		m.subMu.Unlock()
	}}
}

// OnMessage registers a handler for inbound message:new events.
func (m *Manager) OnMessage(fn func(chat.Message)) Subscription {
	return m.OnEvent(func(ev chat.Event) {
		if ev.Type == chat.EventMessageNew && ev.Message != nil {
			fn(*ev.Message)
		}
	})
}

// OnReadReceipt registers a handler for message:read events.
func (m *Manager) OnReadReceipt(fn func(chat.ReadReceipt)) Subscription {
	return m.OnEvent(func(ev chat.Event) {
		if ev.Type == chat.EventMessageRead && ev.ReadReceipt != nil {
			fn(*ev.ReadReceipt)
		}
	})
}

// OnConnectionChange registers a handler notified on every state transition.
func (m *Manager) OnConnectionChange(fn func(chat.ConnState)) Subscription {
	token := uuid.NewString()
	m.subMu.Lock()
	m.stateSubs[token] = fn
	m.subMu.Unlock()
	return Subscription{token: token, cancel: func() {
		m.subMu.Lock()
		delete(m.stateSubs, token)
		m.subMu.Unlock()
	}}
}

func (m *Manager) run(ctx context.Context) {
	backoff := retry.Backoff{Min: m.reconnectMin, Max: m.reconnectMax}

	for {
		if ctx.Err() != nil {
			return
		}

		token, err := m.creds.Token()
		if err == nil {
			var transport Transport
			transport, err = m.dialer.Dial(ctx, m.url, token)
			if err == nil {
				backoff.Reset()
				m.attach(transport)
				m.setState(chat.StateConnected)
				m.rejoinActiveRoom(transport)

				readErr := m.readLoop(transport)
				m.detach()
				if ctx.Err() != nil {
					return
				}
				m.logger.Warn().Err(readErr).Msg("push channel dropped, reconnecting")
				m.setState(chat.StateReconnecting)
				if backoff.Sleep(ctx) != nil {
					return
				}
				continue
			}
		}

		m.logger.Debug().Err(err).Int("attempt", backoff.Attempts()+1).Msg("push connect failed")
		if m.coordinator != nil {
			m.coordinator.HandleError(retry.Classified(retry.ClassPushUnavailable, "push.connect", err), "push.connect")
		}
		m.setState(chat.StateReconnecting)
		if backoff.Sleep(ctx) != nil {
			return
		}
	}
}

func (m *Manager) attach(t Transport) {
	m.mu.Lock()
	m.transport = t
	m.mu.Unlock()
}

func (m *Manager) detach() {
	m.mu.Lock()
	if m.transport != nil {
		_ = m.transport.Close()
		m.transport = nil
	}
	m.mu.Unlock()
}

func (m *Manager) rejoinActiveRoom(t Transport) {
	m.mu.Lock()
	room := m.activeRoom
	m.mu.Unlock()
	if room != "" {
		m.writeRoom(t, chat.EventRoomJoin, room)
	}
}

func (m *Manager) readLoop(t Transport) error {
	for {
		env, err := t.ReadEnvelope()
		if err != nil {
			return err
		}
		ev, err := chat.DecodeEnvelope(env)
		if err != nil {
			m.logger.Debug().Err(err).Msg("skipping undecodable push event")
			continue
		}
		m.dispatch(ev)
	}
}

// dispatch invokes handlers outside the registry lock so a handler may
// subscribe or cancel without deadlocking.
func (m *Manager) dispatch(ev chat.Event) {
	m.subMu.RLock()
	handlers := make([]func(chat.Event), 0, len(m.eventSubs))
	for _, fn := range m.eventSubs {
		handlers = append(handlers, fn)
	}
	m.subMu.RUnlock()

	for _, fn := range handlers {
		fn(ev)
	}
}

func (m *Manager) setState(next chat.ConnState) {
	m.mu.Lock()
	if m.state == next {
		m.mu.Unlock()
		return
	}
	m.state = next
	m.mu.Unlock()

	m.subMu.RLock()
	handlers := make([]func(chat.ConnState), 0, len(m.stateSubs))
	for _, fn := range m.stateSubs {
		handlers = append(handlers, fn)
	}
	m.subMu.RUnlock()

	for _, fn := range handlers {
		fn(next)
	}

	m.dispatch(chat.Event{Type: chat.EventConnectionChange, ConnState: next})
}

func (m *Manager) writeRoom(t Transport, eventType chat.EventType, threadID string) {
	env, err := chat.EncodeEnvelope(eventType, threadID, nil)
	if err != nil {
		return
	}
	if err := t.WriteEnvelope(env); err != nil {
		m.logger.Debug().Err(err).Str("thread_id", threadID).Msgf("%s failed", eventType)
	}
}
