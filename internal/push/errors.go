package push

import "errors"

// ErrNotConnected is returned by Emit when no session is established.
var ErrNotConnected = errors.New("push channel not connected")
