package tui

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NahoooMac/wedhabesha-sub006/internal/api"
	"github.com/NahoooMac/wedhabesha-sub006/internal/chat"
	"github.com/NahoooMac/wedhabesha-sub006/internal/session"
	"github.com/NahoooMac/wedhabesha-sub006/internal/view"
)

var testBase = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

type stubPersistence struct {
	mu       sync.Mutex
	threads  []chat.Thread
	messages map[string][]chat.Message
}

func (s *stubPersistence) ListThreads(ctx context.Context) ([]chat.Thread, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]chat.Thread, len(s.threads))
	copy(out, s.threads)
	return out, nil
}

func (s *stubPersistence) ListMessages(ctx context.Context, threadID string) ([]chat.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]chat.Message(nil), s.messages[threadID]...), nil
}

func (s *stubPersistence) SendMessage(ctx context.Context, threadID string, req api.SendMessageRequest) (chat.Message, error) {
	return chat.Message{ID: "m-sent", ThreadID: threadID, Body: req.Body, SenderRole: chat.RoleVendor, CreatedAt: testBase.Add(time.Hour)}, nil
}

func (s *stubPersistence) MarkThreadRead(ctx context.Context, threadID string) error { return nil }

func (s *stubPersistence) DeleteMessage(ctx context.Context, messageID string) error { return nil }

func newTestModel(t *testing.T) Model {
	t.Helper()
	sp := &stubPersistence{
		threads: []chat.Thread{
			{ID: "t1", CounterpartName: "Bloom Florists", Preview: "sent the quote", LastActivity: testBase, UnreadCount: 2, Status: chat.ThreadStatusActive},
			{ID: "t2", CounterpartName: "Abel Catering", Preview: "see you then", LastActivity: testBase.Add(-time.Hour), Status: chat.ThreadStatusActive},
			{ID: "t3", CounterpartName: "Cedar Venue", Preview: "archived talk", LastActivity: testBase.Add(-2 * time.Hour), Status: chat.ThreadStatusArchived},
		},
		messages: map[string][]chat.Message{
			"t1": {{ID: "m1", ThreadID: "t1", Body: "quote attached", SenderRole: chat.RoleCounterpart, CreatedAt: testBase}},
		},
	}
	sess := session.New(session.Config{
		Persistence:  sp,
		View:         view.NewController(100),
		LocalUserID:  "u-vendor",
		PollInterval: time.Hour,
	})
	require.NoError(t, sess.Start(context.Background()))
	t.Cleanup(sess.Close)
	return NewModel(sess)
}

func applyUpdate(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	next, _ := m.Update(msg)
	model, ok := next.(Model)
	require.True(t, ok)
	return model
}

func runeKey(r rune) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}}
}

func TestModelResize(t *testing.T) {
	m := newTestModel(t)
	m = applyUpdate(t, m, tea.WindowSizeMsg{Width: 120, Height: 40})
	assert.Equal(t, 120, m.width)
	assert.Equal(t, 120, m.session.View().Width())
}

func TestModelQuit(t *testing.T) {
	m := newTestModel(t)
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})
	require.NotNil(t, cmd)
	_, ok := cmd().(tea.QuitMsg)
	assert.True(t, ok)
}

func TestModelCursorMovement(t *testing.T) {
	m := newTestModel(t)
	m = applyUpdate(t, m, tea.WindowSizeMsg{Width: 120, Height: 40})

	assert.Equal(t, 0, m.cursor)
	m = applyUpdate(t, m, runeKey('j'))
	assert.Equal(t, 1, m.cursor)
	m = applyUpdate(t, m, runeKey('j'))
	assert.Equal(t, 1, m.cursor, "cursor stops at the last visible thread")
	m = applyUpdate(t, m, runeKey('k'))
	assert.Equal(t, 0, m.cursor)
	m = applyUpdate(t, m, runeKey('k'))
	assert.Equal(t, 0, m.cursor)
}

func TestModelOpenThread(t *testing.T) {
	m := newTestModel(t)
	m = applyUpdate(t, m, tea.WindowSizeMsg{Width: 120, Height: 40})

	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = next.(Model)
	require.NotNil(t, cmd)
	msg, ok := cmd().(opDoneMsg)
	require.True(t, ok)
	require.NoError(t, msg.err)

	assert.Equal(t, "t1", m.session.View().SelectedThread())
	conv := m.session.ActiveConversation()
	require.NotNil(t, conv)
	assert.Equal(t, 1, conv.Len())
}

func TestModelArchivedFilter(t *testing.T) {
	m := newTestModel(t)
	m = applyUpdate(t, m, tea.WindowSizeMsg{Width: 120, Height: 40})

	assert.Len(t, m.visibleThreads(), 2)
	m = applyUpdate(t, m, runeKey('a'))
	visible := m.visibleThreads()
	require.Len(t, visible, 1)
	assert.Equal(t, "t3", visible[0].ID)
}

func TestModelSearch(t *testing.T) {
	m := newTestModel(t)
	m = applyUpdate(t, m, tea.WindowSizeMsg{Width: 120, Height: 40})

	m = applyUpdate(t, m, runeKey('/'))
	assert.True(t, m.searching)
	for _, r := range "bloom" {
		m = applyUpdate(t, m, runeKey(r))
	}
	m = applyUpdate(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.False(t, m.searching)

	visible := m.visibleThreads()
	require.Len(t, visible, 1)
	assert.Equal(t, "t1", visible[0].ID)

	// Esc on the list clears the filter.
	m = applyUpdate(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	assert.Len(t, m.visibleThreads(), 2)
}

func TestModelViewRendersThreadList(t *testing.T) {
	m := newTestModel(t)
	m = applyUpdate(t, m, tea.WindowSizeMsg{Width: 120, Height: 40})

	out := m.View()
	assert.Contains(t, out, "Bloom Florists")
	assert.Contains(t, out, "(2)")
	assert.Contains(t, out, "offline")
}

func TestModelViewBeforeFirstResize(t *testing.T) {
	m := newTestModel(t)
	assert.Contains(t, m.View(), "loading")
}

func TestModelConversationInput(t *testing.T) {
	m := newTestModel(t)
	// Narrow viewport so the conversation panel takes over.
	m = applyUpdate(t, m, tea.WindowSizeMsg{Width: 60, Height: 40})

	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = next.(Model)
	require.NotNil(t, cmd)
	require.NoError(t, cmd().(opDoneMsg).err)

	for _, r := range "hi" {
		m = applyUpdate(t, m, runeKey(r))
	}
	assert.Equal(t, "hi", m.input)

	m = applyUpdate(t, m, tea.KeyMsg{Type: tea.KeyBackspace})
	assert.Equal(t, "h", m.input)

	next, cmd = m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = next.(Model)
	require.NotNil(t, cmd)
	require.NoError(t, cmd().(opDoneMsg).err)
	assert.Empty(t, m.input)

	conv := m.session.ActiveConversation()
	require.NotNil(t, conv)
	assert.True(t, conv.Contains("m-sent"))
}

func TestModelEscGoesBackOnNarrow(t *testing.T) {
	m := newTestModel(t)
	m = applyUpdate(t, m, tea.WindowSizeMsg{Width: 60, Height: 40})

	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = next.(Model)
	require.NotNil(t, cmd)
	require.NoError(t, cmd().(opDoneMsg).err)
	require.Equal(t, "t1", m.session.View().SelectedThread())

	m = applyUpdate(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	assert.Empty(t, m.session.View().SelectedThread())
}

func TestConnStateLabel(t *testing.T) {
	assert.Contains(t, connStateLabel("connected"), "live")
	assert.Contains(t, connStateLabel("reconnecting"), "reconnecting")
	assert.Contains(t, connStateLabel("connecting"), "reconnecting")
	assert.Contains(t, connStateLabel("disconnected"), "offline")
	assert.True(t, strings.Contains(connStateLabel(""), "offline"))
}
