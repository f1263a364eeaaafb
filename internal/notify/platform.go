package notify

import (
	"fmt"
	"io"
	"sync"
)

// TerminalPlatform renders notifications to a terminal stream and rings the
// bell for sound. Permission is granted on first request, mirroring a user
// accepting the prompt.
type TerminalPlatform struct {
	Out io.Writer

	mu         sync.Mutex
	permission Permission
}

// NewTerminalPlatform creates a platform writing to out.
func NewTerminalPlatform(out io.Writer) *TerminalPlatform {
	return &TerminalPlatform{Out: out, permission: PermissionDefault}
}

func (p *TerminalPlatform) Permission() Permission {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.permission
}

func (p *TerminalPlatform) RequestPermission() (Permission, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.permission == PermissionDefault {
		p.permission = PermissionGranted
	}
	return p.permission, nil
}

func (p *TerminalPlatform) Notify(title, body, threadID string) error {
	if p.Out == nil {
		return nil
	}
	_, err := fmt.Fprintf(p.Out, "%s: %s\n", title, body)
	return err
}

func (p *TerminalPlatform) PlaySound() error {
	if p.Out == nil {
		return nil
	}
	_, err := fmt.Fprint(p.Out, "\a")
	return err
}
