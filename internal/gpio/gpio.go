// Package gpio provides a GPIO output line with hardware abstraction.
// The real implementation uses Linux GPIO character device.
// The fake implementation allows testing without hardware.
package gpio

import "errors"

// Line drives a single GPIO output.
type Line interface {
	// SetValue drives the line: 1 = active (light on), 0 = inactive.
	SetValue(value int) error

	// Value reads back the current line value.
	Value() (int, error)

	// Close releases GPIO resources.
	Close() error
}

// Opener acquires a Line. It is called lazily on first use.
type Opener func() (Line, error)

// Line values.
const (
	Inactive = 0
	Active   = 1
)

// Defaults (BCM numbering).
const (
	DefaultChip = "gpiochip0"
	DefaultPin  = 17
)

// Consumer is the label shown against the line in gpioinfo.
const Consumer = "grafana-irm-webhook"

// ErrUnsupported is returned when GPIO is not available on this platform.
var ErrUnsupported = errors.New("gpio: not supported on this platform (requires Linux)")
