// Package creds supplies the session token to the persistence client and the
// push-channel manager. The provider is injected explicitly so the token's
// source is visible at construction time and swappable in tests.
package creds

import (
	"errors"
	"os"
	"strings"
	"sync"
)

// ErrNoToken is returned when no session token is available. Callers treat
// it as "operate in REST-only degraded mode", not as a fatal condition.
var ErrNoToken = errors.New("no session token available")

// Provider supplies the current bearer token on demand.
type Provider interface {
	// Token returns the current session token, or ErrNoToken when absent.
	Token() (string, error)
}

// Static is a fixed-token provider, mainly for tests and one-shot CLI use.
type Static struct {
	Value string
}

func (s Static) Token() (string, error) {
	token := strings.TrimSpace(s.Value)
	if token == "" {
		return "", ErrNoToken
	}
	return token, nil
}

// Env reads the token from an environment variable on every call, so an
// external refresh is picked up without restarting.
type Env struct {
	Key string
}

func (e Env) Token() (string, error) {
	token := strings.TrimSpace(os.Getenv(e.Key))
	if token == "" {
		return "", ErrNoToken
	}
	return token, nil
}

// Memory is a settable provider used when an upstream re-authentication flow
// hands the session a fresh token at runtime.
type Memory struct {
	mu    sync.RWMutex
	value string
}

func (m *Memory) Token() (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.value == "" {
		return "", ErrNoToken
	}
	return m.value, nil
}

// Set replaces the stored token. An empty value clears it.
func (m *Memory) Set(token string) {
	m.mu.Lock()
	m.value = strings.TrimSpace(token)
	m.mu.Unlock()
}
