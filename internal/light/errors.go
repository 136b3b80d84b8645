package light

import "errors"

// Errors returned by the controller. Hardware errors are wrapped, so callers
// match with errors.Is.
var (
	// ErrHardwareUnavailable means no GPIO support is present on this host.
	ErrHardwareUnavailable = errors.New("light: gpio hardware unavailable")

	// ErrAcquire means the line could not be requested (busy, permission denied).
	ErrAcquire = errors.New("light: acquire line")

	// ErrWrite means setting the line value failed.
	ErrWrite = errors.New("light: write line")

	// ErrRead means reading the line value back failed.
	ErrRead = errors.New("light: read line")

	// ErrUnsupportedBackend means the configured lightbulb type has no implementation.
	ErrUnsupportedBackend = errors.New("light: unsupported lightbulb type")

	// ErrReleased means the controller was cleaned up and no longer owns the line.
	ErrReleased = errors.New("light: controller released")
)
