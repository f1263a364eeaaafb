package notify

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NahoooMac/wedhabesha-sub006/internal/chat"
)

type fakePlatform struct {
	mu             sync.Mutex
	permission     Permission
	requests       int
	notifications  []string
	sounds         int
	notifyErr      error
	requestErrOnce error
}

func (p *fakePlatform) Permission() Permission {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.permission
}

func (p *fakePlatform) RequestPermission() (Permission, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.requests++
	if p.requestErrOnce != nil {
		err := p.requestErrOnce
		p.requestErrOnce = nil
		return PermissionDefault, err
	}
	p.permission = PermissionGranted
	return p.permission, nil
}

func (p *fakePlatform) Notify(title, body, threadID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.notifyErr != nil {
		return p.notifyErr
	}
	p.notifications = append(p.notifications, title+"|"+body+"|"+threadID)
	return nil
}

func (p *fakePlatform) PlaySound() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sounds++
	return nil
}

func TestRequestPermissionIdempotent(t *testing.T) {
	platform := &fakePlatform{permission: PermissionDefault}
	d := NewDispatcher(Config{Platform: platform})

	assert.Equal(t, PermissionGranted, d.RequestPermission())
	assert.Equal(t, PermissionGranted, d.RequestPermission())
	assert.Equal(t, 1, platform.requests, "only the unset state may prompt")
}

func TestRequestPermissionDeniedStays(t *testing.T) {
	platform := &fakePlatform{permission: PermissionDenied}
	d := NewDispatcher(Config{Platform: platform})

	assert.Equal(t, PermissionDenied, d.RequestPermission())
	assert.Equal(t, 0, platform.requests)
}

func TestRequestPermissionNilPlatform(t *testing.T) {
	d := NewDispatcher(Config{})
	assert.Equal(t, PermissionDenied, d.RequestPermission())
}

func TestShowMessageNotification(t *testing.T) {
	t.Run("requires granted permission", func(t *testing.T) {
		platform := &fakePlatform{permission: PermissionDefault}
		d := NewDispatcher(Config{Platform: platform})

		d.ShowMessageNotification("Bloom Florists", "hi", "t1")
		assert.Empty(t, platform.notifications)
	})

	t.Run("notifies and plays sound when enabled", func(t *testing.T) {
		platform := &fakePlatform{permission: PermissionGranted}
		d := NewDispatcher(Config{Platform: platform, Sound: true})

		d.ShowMessageNotification("Bloom Florists", "hi", "t1")
		require.Len(t, platform.notifications, 1)
		assert.Equal(t, "Bloom Florists|hi|t1", platform.notifications[0])
		assert.Equal(t, 1, platform.sounds)
	})

	t.Run("platform failure is swallowed", func(t *testing.T) {
		platform := &fakePlatform{permission: PermissionGranted, notifyErr: errors.New("no display")}
		d := NewDispatcher(Config{Platform: platform})

		d.ShowMessageNotification("Bloom Florists", "hi", "t1")
	})
}

func TestHandleMessage(t *testing.T) {
	inbound := chat.Message{ID: "m1", ThreadID: "t1", Body: "hello", SenderRole: chat.RoleCounterpart}
	outbound := chat.Message{ID: "m2", ThreadID: "t1", Body: "hi back", SenderRole: chat.RoleVendor}

	t.Run("counterpart message in a background thread bumps the badge", func(t *testing.T) {
		platform := &fakePlatform{permission: PermissionGranted}
		d := NewDispatcher(Config{Platform: platform})

		d.HandleMessage(inbound, "Bloom Florists", false)
		assert.Equal(t, 1, d.UnreadCount())
		assert.Len(t, platform.notifications, 1)
	})

	t.Run("open thread alerts without bumping the badge", func(t *testing.T) {
		platform := &fakePlatform{permission: PermissionGranted}
		d := NewDispatcher(Config{Platform: platform})

		d.HandleMessage(inbound, "Bloom Florists", true)
		assert.Equal(t, 0, d.UnreadCount())
	})

	t.Run("own messages never alert", func(t *testing.T) {
		platform := &fakePlatform{permission: PermissionGranted}
		d := NewDispatcher(Config{Platform: platform})

		d.HandleMessage(outbound, "You", false)
		assert.Equal(t, 0, d.UnreadCount())
		assert.Empty(t, platform.notifications)
	})
}

func TestBadgeCounter(t *testing.T) {
	d := NewDispatcher(Config{})

	d.IncrementUnreadCount()
	d.IncrementUnreadCount()
	d.IncrementUnreadCount()
	assert.Equal(t, 3, d.UnreadCount())

	d.DecrementUnreadCount(2)
	assert.Equal(t, 1, d.UnreadCount())

	// Over-decrementing clamps at zero instead of going negative.
	d.DecrementUnreadCount(5)
	assert.Equal(t, 0, d.UnreadCount())

	d.SyncUnreadCount(7)
	assert.Equal(t, 7, d.UnreadCount())
	d.SyncUnreadCount(-1)
	assert.Equal(t, 0, d.UnreadCount())

	d.IncrementUnreadCount()
	d.ResetUnreadCount()
	assert.Equal(t, 0, d.UnreadCount())
}
