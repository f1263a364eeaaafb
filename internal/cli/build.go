package cli

import (
	"io"
	"os"

	"github.com/NahoooMac/wedhabesha-sub006/internal/api"
	"github.com/NahoooMac/wedhabesha-sub006/internal/config"
	"github.com/NahoooMac/wedhabesha-sub006/internal/creds"
	"github.com/NahoooMac/wedhabesha-sub006/internal/logging"
	"github.com/NahoooMac/wedhabesha-sub006/internal/notify"
	"github.com/NahoooMac/wedhabesha-sub006/internal/push"
	"github.com/NahoooMac/wedhabesha-sub006/internal/retry"
	"github.com/NahoooMac/wedhabesha-sub006/internal/session"
	"github.com/NahoooMac/wedhabesha-sub006/internal/view"
)

// buildSession constructs the full component graph from config. The push
// manager is omitted when no push URL is configured, which drops the session
// into REST-only mode.
func buildSession(cfg *config.Config, notifyOut io.Writer) (*session.Session, error) {
	provider := creds.Env{Key: cfg.Auth.TokenEnv}

	client, err := api.NewClient(api.Config{
		BaseURL:     cfg.API.BaseURL,
		Credentials: provider,
		Timeout:     cfg.API.Timeout,
	})
	if err != nil {
		return nil, err
	}

	coordinator := retry.NewCoordinator(logging.Component("retry"))

	var manager *push.Manager
	if cfg.Push.URL != "" {
		manager = push.NewManager(push.Config{
			URL:          cfg.Push.URL,
			Credentials:  provider,
			Dialer:       push.WebsocketDialer{HandshakeTimeout: cfg.Push.HandshakeTimeout},
			ReconnectMin: cfg.Push.ReconnectMin,
			ReconnectMax: cfg.Push.ReconnectMax,
			Coordinator:  coordinator,
		})
	}

	var dispatcher *notify.Dispatcher
	if cfg.Notifications.Enabled {
		if notifyOut == nil {
			notifyOut = os.Stderr
		}
		dispatcher = notify.NewDispatcher(notify.Config{
			Platform: notify.NewTerminalPlatform(notifyOut),
			Sound:    cfg.Notifications.Sound,
		})
	}

	controller := view.NewController(cfg.TUI.Breakpoint)
	controller.SetWidth(view.DetectWidth(int(os.Stdout.Fd())))

	return session.New(session.Config{
		Persistence: client,
		Push:        manager,
		Credentials: provider,
		Notifier:    dispatcher,
		View:        controller,
		Coordinator: coordinator,
		LocalUserID: cfg.Auth.UserID,
	}), nil
}
