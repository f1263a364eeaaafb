// Package tui renders the two-panel messenger: thread list on the left,
// conversation on the right, collapsing to a single panel on narrow
// terminals. All state lives in the session; the TUI is a projection.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/NahoooMac/wedhabesha-sub006/internal/chat"
	"github.com/NahoooMac/wedhabesha-sub006/internal/session"
)

const requestTimeout = 15 * time.Second

type sessionChangedMsg struct{}

type opDoneMsg struct{ err error }

// Model is the bubbletea model for the messenger.
type Model struct {
	session *session.Session

	width  int
	height int
	cursor int
	input  string

	filterArchived bool
	searchQuery    string
	searching      bool
}

// NewModel creates the TUI model over a started session.
func NewModel(sess *session.Session) Model {
	return Model{session: sess}
}

// Run starts the program and blocks until exit.
func Run(sess *session.Session) error {
	p := tea.NewProgram(NewModel(sess), tea.WithAltScreen())
	_, err := p.Run()
	return err
}

func (m Model) Init() tea.Cmd {
	return m.waitForChange()
}

func (m Model) waitForChange() tea.Cmd {
	return func() tea.Msg {
		<-m.session.Changed()
		return sessionChangedMsg{}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.session.View().SetWidth(msg.Width)
		return m, nil

	case sessionChangedMsg:
		return m, m.waitForChange()

	case opDoneMsg:
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.searching {
		return m.handleSearchKey(msg)
	}
	if m.session.View().ShowMessageView() && !m.session.View().ShowThreadList() {
		return m.handleConversationKey(msg)
	}

	switch msg.String() {
	case "ctrl+c", "q":
		return m, tea.Quit
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.visibleThreads())-1 {
			m.cursor++
		}
	case "enter":
		threads := m.visibleThreads()
		if m.cursor < len(threads) {
			return m, m.openThread(threads[m.cursor].ID)
		}
	case "a":
		m.filterArchived = !m.filterArchived
		m.cursor = 0
	case "/":
		m.searching = true
		m.searchQuery = ""
	case "r":
		return m, m.refresh()
	case "esc":
		if m.searchQuery != "" {
			m.searchQuery = ""
			m.cursor = 0
		}
	default:
		if m.session.View().ShowMessageView() {
			return m.handleConversationKey(msg)
		}
	}
	return m, nil
}

func (m Model) handleSearchKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter", "esc":
		m.searching = false
		m.cursor = 0
	case "backspace":
		if len(m.searchQuery) > 0 {
			m.searchQuery = m.searchQuery[:len(m.searchQuery)-1]
		}
	default:
		if msg.Type == tea.KeyRunes {
			m.searchQuery += string(msg.Runes)
		}
	}
	return m, nil
}

func (m Model) handleConversationKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit
	case "esc":
		m.input = ""
		m.session.GoBack()
		return m, nil
	case "enter":
		body := strings.TrimSpace(m.input)
		if body == "" {
			return m, nil
		}
		m.input = ""
		return m, m.send(body)
	case "backspace":
		if len(m.input) > 0 {
			m.input = m.input[:len(m.input)-1]
		}
	default:
		if msg.Type == tea.KeyRunes || msg.Type == tea.KeySpace {
			m.input += string(msg.Runes)
			m.session.NotifyTyping(true)
		}
	}
	return m, nil
}

func (m Model) openThread(threadID string) tea.Cmd {
	sess := m.session
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		return opDoneMsg{err: sess.OpenThread(ctx, threadID)}
	}
}

func (m Model) send(body string) tea.Cmd {
	sess := m.session
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		_, err := sess.Send(ctx, body, chat.KindText, nil)
		return opDoneMsg{err: err}
	}
}

func (m Model) refresh() tea.Cmd {
	sess := m.session
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		return opDoneMsg{err: sess.RefreshThreads(ctx)}
	}
}

func (m Model) visibleThreads() []chat.Thread {
	var threads []chat.Thread
	if m.searchQuery != "" {
		threads = m.session.Threads().Search(m.searchQuery)
	} else {
		threads = m.session.Threads().Threads()
	}
	status := chat.ThreadStatusActive
	if m.filterArchived {
		status = chat.ThreadStatusArchived
	}
	var out []chat.Thread
	for _, t := range threads {
		if t.Status == status {
			out = append(out, t)
		}
	}
	return out
}

func (m Model) View() string {
	if m.width == 0 {
		return "loading…"
	}

	viewCtrl := m.session.View()
	var panels []string
	if viewCtrl.ShowThreadList() {
		width := m.width
		if viewCtrl.ShowMessageView() {
			width = m.width / 3
		}
		panels = append(panels, m.renderThreadList(width))
	}
	if viewCtrl.ShowMessageView() {
		width := m.width
		if viewCtrl.ShowThreadList() {
			width = m.width - m.width/3 - 1
		}
		panels = append(panels, m.renderConversation(width))
	}

	body := lipgloss.JoinHorizontal(lipgloss.Top, panels...)
	return lipgloss.JoinVertical(lipgloss.Left, body, m.renderStatusBar())
}

func (m Model) renderThreadList(width int) string {
	var b strings.Builder

	title := "Conversations"
	if m.filterArchived {
		title = "Archived"
	}
	if m.searching {
		title = "Search: " + m.searchQuery + "▌"
	} else if m.searchQuery != "" {
		title = "Search: " + m.searchQuery
	}
	b.WriteString(listTitleStyle.Render(title) + "\n")

	threads := m.visibleThreads()
	if len(threads) == 0 {
		b.WriteString(statusBarStyle.Render("  no conversations"))
	}
	for i, t := range threads {
		line := t.CounterpartName
		if t.ServiceCategory != "" {
			line += " · " + t.ServiceCategory
		}
		if t.UnreadCount > 0 {
			line += " " + unreadBadgeStyle.Render(fmt.Sprintf("(%d)", t.UnreadCount))
		}
		preview := t.Preview
		style := threadStyle
		if i == m.cursor {
			style = threadSelectedStyle
		}
		b.WriteString(style.MaxWidth(width).Render(line) + "\n")
		b.WriteString(statusBarStyle.MaxWidth(width).Render("  "+preview) + "\n")
	}

	return paneBorderStyle.Width(width).Render(b.String())
}

func (m Model) renderConversation(width int) string {
	var b strings.Builder

	conv := m.session.ActiveConversation()
	if conv == nil {
		return lipgloss.NewStyle().Width(width).Render("")
	}

	if thread, ok := m.session.Threads().Get(conv.ThreadID()); ok {
		b.WriteString(listTitleStyle.Render(thread.CounterpartName) + "\n")
	}

	for _, msg := range conv.Messages() {
		style := counterpartMsgStyle
		prefix := "· "
		if msg.SenderRole == chat.RoleVendor {
			style = vendorMsgStyle
			prefix = "me: "
		}
		if msg.Provisional {
			style = provisionalMsgStyle
			prefix = "… "
		}
		line := prefix + msg.Body
		if msg.Status == chat.StatusRead && msg.SenderRole == chat.RoleVendor {
			line += " ✓✓"
		}
		b.WriteString(style.MaxWidth(width).Render(line) + "\n")
	}

	if m.session.CounterpartTyping() {
		b.WriteString(typingStyle.Render("typing…") + "\n")
	}

	b.WriteString("\n> " + m.input + "▌")
	return lipgloss.NewStyle().Width(width).Render(b.String())
}

func (m Model) renderStatusBar() string {
	parts := []string{connStateLabel(string(m.session.ConnectionState()))}

	if badge := m.session.Threads().TotalUnread(m.session.View().SelectedThread()); badge > 0 {
		parts = append(parts, unreadBadgeStyle.Render(fmt.Sprintf("%d unread", badge)))
	}
	if rec, ok := m.session.Coordinator().LastError(); ok {
		label := fmt.Sprintf("%s failed", rec.Op)
		if rec.Retryable {
			label += " (r to retry)"
		}
		parts = append(parts, errorBannerStyle.Render(label))
	}
	parts = append(parts, statusBarStyle.Render("enter open · esc back · / search · a archived · q quit"))

	return statusBarStyle.Render(strings.Join(parts, "  "))
}
