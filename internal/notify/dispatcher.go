// Package notify manages user-facing alerts for inbound messages: platform
// notifications, alert sounds, and the global unread badge counter.
package notify

import (
	"sync"

	"github.com/rs/zerolog"

	"github.com/NahoooMac/wedhabesha-sub006/internal/chat"
	"github.com/NahoooMac/wedhabesha-sub006/internal/logging"
)

// Permission mirrors the notification platform's permission state.
type Permission string

const (
	PermissionDefault Permission = "default"
	PermissionGranted Permission = "granted"
	PermissionDenied  Permission = "denied"
)

// Platform is the host notification surface. Every capability is optional:
// a platform may refuse permission or lack audio, and the dispatcher only
// disables the corresponding feature.
type Platform interface {
	// Permission reports the current permission state.
	Permission() Permission
	// RequestPermission prompts the user and returns the resulting state.
	RequestPermission() (Permission, error)
	// Notify displays a message notification.
	Notify(title, body, threadID string) error
	// PlaySound plays the alert sound.
	PlaySound() error
}

// Config configures a Dispatcher.
type Config struct {
	// Platform is the host surface; nil disables notifications entirely.
	Platform Platform
	// Sound enables the alert sound on inbound messages.
	Sound bool
}

// Dispatcher routes inbound-message alerts to the platform and maintains
// the process-wide badge counter. The badge is always the sum of unread
// counts across threads excluding the open one, and never goes negative.
type Dispatcher struct {
	platform Platform
	sound    bool
	logger   zerolog.Logger

	mu    sync.Mutex
	badge int
}

// NewDispatcher creates a Dispatcher.
func NewDispatcher(cfg Config) *Dispatcher {
	return &Dispatcher{
		platform: cfg.Platform,
		sound:    cfg.Sound,
		logger:   logging.Component("notify"),
	}
}

// RequestPermission prompts only when the permission state is still unset,
// so repeated calls are harmless.
func (d *Dispatcher) RequestPermission() Permission {
	if d.platform == nil {
		return PermissionDenied
	}
	current := d.platform.Permission()
	if current != PermissionDefault {
		return current
	}
	granted, err := d.platform.RequestPermission()
	if err != nil {
		d.logger.Debug().Err(err).Msg("permission request failed")
		return PermissionDefault
	}
	return granted
}

// ShowMessageNotification displays an alert for an inbound message and, when
// enabled, plays the sound. Platform failures are logged, never propagated.
func (d *Dispatcher) ShowMessageNotification(senderName, preview, threadID string) {
	if d.platform == nil || d.platform.Permission() != PermissionGranted {
		return
	}
	if err := d.platform.Notify(senderName, preview, threadID); err != nil {
		d.logger.Debug().Err(err).Str("thread_id", threadID).Msg("notification failed")
	}
	if d.sound {
		d.PlaySound()
	}
}

// PlaySound plays the alert sound if the platform supports audio.
func (d *Dispatcher) PlaySound() {
	if d.platform == nil {
		return
	}
	if err := d.platform.PlaySound(); err != nil {
		d.logger.Debug().Err(err).Msg("alert sound failed")
	}
}

// HandleMessage is the router-facing entry point: alert for a counterpart
// message and bump the badge when the thread is not open.
func (d *Dispatcher) HandleMessage(msg chat.Message, senderName string, threadOpen bool) {
	if msg.SenderRole != chat.RoleCounterpart {
		return
	}
	if !threadOpen {
		d.IncrementUnreadCount()
	}
	d.ShowMessageNotification(senderName, msg.PreviewText(80), msg.ThreadID)
}

// IncrementUnreadCount bumps the global badge by one.
func (d *Dispatcher) IncrementUnreadCount() {
	d.mu.Lock()
	d.badge++
	d.mu.Unlock()
}

// DecrementUnreadCount lowers the badge by n, clamping at zero.
func (d *Dispatcher) DecrementUnreadCount(n int) {
	d.mu.Lock()
	d.badge -= n
	if d.badge < 0 {
		d.badge = 0
	}
	d.mu.Unlock()
}

// SyncUnreadCount replaces the badge with a store-derived total, clamped at
// zero. Sessions use this after a load or refresh so the badge matches the
// sum of unread counts instead of drifting with cached deltas.
func (d *Dispatcher) SyncUnreadCount(total int) {
	if total < 0 {
		total = 0
	}
	d.mu.Lock()
	d.badge = total
	d.mu.Unlock()
}

// ResetUnreadCount zeroes the badge, used when all threads are read or the
// session ends.
func (d *Dispatcher) ResetUnreadCount() {
	d.mu.Lock()
	d.badge = 0
	d.mu.Unlock()
}

// UnreadCount returns the current badge value.
func (d *Dispatcher) UnreadCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.badge
}
