package store

import (
	"sort"
	"sync"

	"github.com/NahoooMac/wedhabesha-sub006/internal/chat"
)

// Conversation is the message list of the currently open thread. A message
// identifier appears at most once; Append enforces the dedup invariant for
// both push deliveries and REST echoes.
type Conversation struct {
	mu       sync.RWMutex
	threadID string
	messages []chat.Message
	seen     map[string]int
}

// NewConversation creates an empty conversation for the given thread.
func NewConversation(threadID string) *Conversation {
	return &Conversation{threadID: threadID, seen: make(map[string]int)}
}

// ThreadID returns the owning thread's identifier.
func (c *Conversation) ThreadID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.threadID
}

// Load replaces the message list with a freshly fetched history. Duplicates
// in the input collapse to their last occurrence; order is normalized to
// creation time ascending with identifier tiebreaks.
func (c *Conversation) Load(messages []chat.Message) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.messages = c.messages[:0]
	c.seen = make(map[string]int, len(messages))
	for _, msg := range messages {
		if i, dup := c.seen[msg.ID]; dup {
			c.messages[i] = msg
			continue
		}
		c.seen[msg.ID] = len(c.messages)
		c.messages = append(c.messages, msg)
	}
	c.sortLocked()
}

// Append inserts a message in timestamp order. It returns false when the
// identifier is already present (duplicate push delivery, or the REST echo
// of a message the pipeline already appended).
func (c *Conversation) Append(msg chat.Message) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, dup := c.seen[msg.ID]; dup {
		return false
	}
	c.seen[msg.ID] = len(c.messages)
	c.messages = append(c.messages, msg)

	// The common case is an append at the tail; only re-sort when the new
	// message actually arrived out of order.
	if n := len(c.messages); n > 1 && msg.Before(c.messages[n-2]) {
		c.sortLocked()
	}
	return true
}

// ReplaceProvisional swaps a provisional in-flight entry for its persisted
// form. When the persisted identifier already exists (the push echo raced
// the REST response), the provisional entry is dropped instead.
func (c *Conversation) ReplaceProvisional(markerID string, persisted chat.Message) {
	c.mu.Lock()
	defer c.mu.Unlock()

	i, ok := c.seen[markerID]
	if !ok {
		return
	}
	if _, exists := c.seen[persisted.ID]; exists {
		c.messages = append(c.messages[:i], c.messages[i+1:]...)
		delete(c.seen, markerID)
		c.reindexLocked()
		return
	}
	delete(c.seen, markerID)
	c.messages[i] = persisted
	c.seen[persisted.ID] = i
	c.sortLocked()
}

// DropProvisional removes a provisional entry after a failed persist, so no
// partial state survives the rollback.
func (c *Conversation) DropProvisional(markerID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	i, ok := c.seen[markerID]
	if !ok {
		return
	}
	c.messages = append(c.messages[:i], c.messages[i+1:]...)
	delete(c.seen, markerID)
	c.reindexLocked()
}

// MarkRead flips a message's delivery status to read. Returns false when
// the message is not in the list.
func (c *Conversation) MarkRead(messageID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	i, ok := c.seen[messageID]
	if !ok {
		return false
	}
	c.messages[i].Status = chat.StatusRead
	return true
}

// Remove deletes a message from the list (after a successful server-side
// delete).
func (c *Conversation) Remove(messageID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	i, ok := c.seen[messageID]
	if !ok {
		return false
	}
	c.messages = append(c.messages[:i], c.messages[i+1:]...)
	delete(c.seen, messageID)
	c.reindexLocked()
	return true
}

// Contains reports whether the identifier is present.
func (c *Conversation) Contains(messageID string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.seen[messageID]
	return ok
}

// Messages returns a copy of the list in display order.
func (c *Conversation) Messages() []chat.Message {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]chat.Message, len(c.messages))
	copy(out, c.messages)
	return out
}

// Len returns the number of messages.
func (c *Conversation) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.messages)
}

func (c *Conversation) sortLocked() {
	sort.SliceStable(c.messages, func(i, j int) bool {
		return c.messages[i].Before(c.messages[j])
	})
	c.reindexLocked()
}

func (c *Conversation) reindexLocked() {
	for i, msg := range c.messages {
		c.seen[msg.ID] = i
	}
}
