package notifier

import "errors"

// ErrDisconnected is returned while the broker connection is down. Events are
// not queued.
var ErrDisconnected = errors.New("mqtt publisher is not connected")
