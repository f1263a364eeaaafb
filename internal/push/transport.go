package push

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/NahoooMac/wedhabesha-sub006/internal/chat"
)

// Transport is one live push-channel session. Implementations must allow
// one concurrent reader and serialize writes internally.
type Transport interface {
	// ReadEnvelope blocks until the next inbound event or a transport error.
	ReadEnvelope() (chat.Envelope, error)
	// WriteEnvelope sends one outbound event.
	WriteEnvelope(env chat.Envelope) error
	// Close tears the session down; ReadEnvelope unblocks with an error.
	Close() error
}

// Dialer opens push-channel sessions. The production implementation speaks
// websocket; tests substitute in-memory pipes.
type Dialer interface {
	Dial(ctx context.Context, url, token string) (Transport, error)
}

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 20 * time.Second
	wsPingPeriod = (wsPongWait * 9) / 10
	wsMaxMessage = 64 * 1024
)

// WebsocketDialer dials the push endpoint over websocket, authenticating
// with a bearer token header.
type WebsocketDialer struct {
	// HandshakeTimeout bounds the dial. Defaults to 5s.
	HandshakeTimeout time.Duration
}

func (d WebsocketDialer) Dial(ctx context.Context, url, token string) (Transport, error) {
	timeout := d.HandshakeTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	dialer := websocket.Dialer{HandshakeTimeout: timeout}

	header := http.Header{}
	if token != "" {
		header.Set("Authorization", "Bearer "+token)
	}

	conn, resp, err := dialer.DialContext(ctx, url, header)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		return nil, fmt.Errorf("dial push channel: %w", err)
	}

	t := &wsTransport{conn: conn, done: make(chan struct{})}
	conn.SetReadLimit(wsMaxMessage)
	_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})
	go t.pingLoop()
	return t, nil
}

// wsTransport wraps a gorilla connection with the ping/pong keepalive the
// server expects and a write mutex, since gorilla allows only one writer.
type wsTransport struct {
	conn *websocket.Conn

	writeMu sync.Mutex
	once    sync.Once
	done    chan struct{}
}

func (t *wsTransport) ReadEnvelope() (chat.Envelope, error) {
	var env chat.Envelope
	if err := t.conn.ReadJSON(&env); err != nil {
		return chat.Envelope{}, err
	}
	return env, nil
}

func (t *wsTransport) WriteEnvelope(env chat.Envelope) error {
	t.writeMu.Lock()
	defer t.writeMu.Unlock()
	if err := t.conn.SetWriteDeadline(time.Now().Add(wsWriteWait)); err != nil {
		return err
	}
	return t.conn.WriteJSON(env)
}

func (t *wsTransport) Close() error {
	var err error
	t.once.Do(func() {
		close(t.done)
		t.writeMu.Lock()
		_ = t.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
		_ = t.conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(wsWriteWait),
		)
		t.writeMu.Unlock()
		err = t.conn.Close()
	})
	return err
}

func (t *wsTransport) pingLoop() {
	ticker := time.NewTicker(wsPingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-t.done:
			return
		case <-ticker.C:
			t.writeMu.Lock()
			err := t.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteWait))
			t.writeMu.Unlock()
			if err != nil {
				return
			}
		}
	}
}
