// Package chat defines the conversation data model shared by the
// synchronizer components: threads, messages, and push-channel events.
package chat

import (
	"strings"
	"time"
)

// ThreadStatus describes whether a thread is visible in the default list.
type ThreadStatus string

const (
	ThreadStatusActive   ThreadStatus = "active"
	ThreadStatusArchived ThreadStatus = "archived"
)

// SenderRole identifies which side of a conversation authored a message.
type SenderRole string

const (
	RoleVendor      SenderRole = "vendor"
	RoleCounterpart SenderRole = "counterpart"
)

// MessageKind categorizes message content.
type MessageKind string

const (
	KindText       MessageKind = "text"
	KindImage      MessageKind = "image"
	KindFile       MessageKind = "file"
	KindAttachment MessageKind = "attachment"
)

// DeliveryStatus tracks a message's lifecycle after a successful persist.
type DeliveryStatus string

const (
	StatusSent      DeliveryStatus = "sent"
	StatusDelivered DeliveryStatus = "delivered"
	StatusRead      DeliveryStatus = "read"
)

// ConnState is the push-channel connection state.
type ConnState string

const (
	StateDisconnected ConnState = "disconnected"
	StateConnecting   ConnState = "connecting"
	StateConnected    ConnState = "connected"
	StateReconnecting ConnState = "reconnecting"
)

// Thread is one ongoing conversation between the vendor and a counterpart.
// Records are created server-side; the client only reads them or mutates
// status fields (unread count, ordering position).
type Thread struct {
	ID              string       `json:"id"`
	CounterpartName string       `json:"counterpart_name"`
	Preview         string       `json:"preview"`
	LastActivity    time.Time    `json:"last_activity"`
	UnreadCount     int          `json:"unread_count"`
	Status          ThreadStatus `json:"status"`
	LeadID          string       `json:"lead_id,omitempty"`
	ServiceCategory string       `json:"service_category,omitempty"`
}

// Attachment describes a file carried by a message.
type Attachment struct {
	URL      string `json:"url"`
	Name     string `json:"name,omitempty"`
	MimeType string `json:"mime_type,omitempty"`
	Size     int64  `json:"size,omitempty"`
}

// Message is one unit of conversation content. The ID is assigned by the
// persistence layer; Provisional marks an in-flight send that has not yet
// been confirmed and must never survive reconciliation.
type Message struct {
	ID          string         `json:"id"`
	ThreadID    string         `json:"thread_id"`
	SenderID    string         `json:"sender_id"`
	SenderRole  SenderRole     `json:"sender_role"`
	Body        string         `json:"body"`
	Kind        MessageKind    `json:"kind"`
	Status      DeliveryStatus `json:"status"`
	CreatedAt   time.Time      `json:"created_at"`
	Attachments []Attachment   `json:"attachments,omitempty"`
	Provisional bool           `json:"-"`
}

// Before reports whether m sorts ahead of other in a thread's message list.
// Creation time orders messages; identifier breaks ties so the order is total.
func (m Message) Before(other Message) bool {
	if !m.CreatedAt.Equal(other.CreatedAt) {
		return m.CreatedAt.Before(other.CreatedAt)
	}
	return m.ID < other.ID
}

// PreviewText returns the list-preview form of the message body, truncated
// to max runes with an ellipsis.
func (m Message) PreviewText(max int) string {
	body := strings.TrimSpace(m.Body)
	if body == "" && len(m.Attachments) > 0 {
		body = "[attachment]"
	}
	runes := []rune(body)
	if max <= 0 || len(runes) <= max {
		return body
	}
	return string(runes[:max-1]) + "…"
}
