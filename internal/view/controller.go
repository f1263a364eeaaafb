// Package view decides which panels are visible based on viewport width and
// thread selection: wide viewports show the thread list and the conversation
// side by side, narrow ones show exactly one panel at a time.
package view

import (
	"sync"

	"golang.org/x/term"
)

// DefaultBreakpoint is the width, in columns, at or above which both panels
// are shown simultaneously.
const DefaultBreakpoint = 100

// Controller tracks viewport width and thread selection.
type Controller struct {
	mu         sync.RWMutex
	width      int
	breakpoint int
	selected   string
}

// NewController creates a Controller with the given breakpoint; zero or
// negative uses DefaultBreakpoint.
func NewController(breakpoint int) *Controller {
	if breakpoint <= 0 {
		breakpoint = DefaultBreakpoint
	}
	return &Controller{breakpoint: breakpoint, width: breakpoint}
}

// SetWidth records the current viewport width (e.g. from a terminal resize).
func (c *Controller) SetWidth(width int) {
	c.mu.Lock()
	c.width = width
	c.mu.Unlock()
}

// Width returns the last recorded viewport width.
func (c *Controller) Width() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.width
}

// SelectThread opens a thread. On narrow viewports this hides the list.
func (c *Controller) SelectThread(threadID string) {
	c.mu.Lock()
	c.selected = threadID
	c.mu.Unlock()
}

// GoBackToThreadList returns to the list. The selection is cleared only on
// narrow viewports; on wide ones the conversation stays open alongside it.
func (c *Controller) GoBackToThreadList() {
	c.mu.Lock()
	if c.width < c.breakpoint {
		c.selected = ""
	}
	c.mu.Unlock()
}

// ClearSelection drops the selection regardless of viewport width, used
// when the open thread disappears (e.g. archived remotely).
func (c *Controller) ClearSelection() {
	c.mu.Lock()
	c.selected = ""
	c.mu.Unlock()
}

// SelectedThread returns the open thread's identifier, or "".
func (c *Controller) SelectedThread() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.selected
}

// ShowThreadList reports whether the thread list panel is visible.
func (c *Controller) ShowThreadList() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.width >= c.breakpoint || c.selected == ""
}

// ShowMessageView reports whether the conversation panel is visible.
func (c *Controller) ShowMessageView() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.selected != ""
}

// IsNarrow reports whether the viewport is below the breakpoint.
func (c *Controller) IsNarrow() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.width < c.breakpoint
}

// DetectWidth probes the terminal on fd for its width, falling back to the
// breakpoint default when fd is not a terminal.
func DetectWidth(fd int) int {
	if width, _, err := term.GetSize(fd); err == nil && width > 0 {
		return width
	}
	return DefaultBreakpoint
}
