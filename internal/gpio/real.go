//go:build linux

package gpio

import (
	"errors"
	"fmt"
	"os"

	"github.com/warthog618/go-gpiocdev"
)

// RealLine drives a GPIO output on actual hardware using Linux GPIO character device.
type RealLine struct {
	chip *gpiocdev.Chip
	line *gpiocdev.Line
	pin  int
}

// NewRealLine requests pin on the named chip as an output, initially active.
func NewRealLine(chipName string, pin int) (*RealLine, error) {
	chip, err := gpiocdev.NewChip(chipName)
	if err != nil {
		// No such chip on this host: report it like a platform without GPIO.
		if errors.Is(err, os.ErrNotExist) || errors.Is(err, gpiocdev.ErrNotCharacterDevice) {
			return nil, fmt.Errorf("%w: open gpio chip %s: %w", ErrUnsupported, chipName, err)
		}
		return nil, fmt.Errorf("open gpio chip %s: %w", chipName, err)
	}

	line, err := chip.RequestLine(pin, gpiocdev.WithConsumer(Consumer), gpiocdev.AsOutput(Active))
	if err != nil {
		chip.Close()
		return nil, fmt.Errorf("request pin %d: %w", pin, err)
	}

	return &RealLine{
		chip: chip,
		line: line,
		pin:  pin,
	}, nil
}

// RealOpener returns an Opener that requests pin on the named chip.
func RealOpener(chipName string, pin int) Opener {
	return func() (Line, error) {
		l, err := NewRealLine(chipName, pin)
		if err != nil {
			return nil, err
		}
		return l, nil
	}
}

// SetValue drives the line.
func (r *RealLine) SetValue(value int) error {
	if err := r.line.SetValue(value); err != nil {
		return fmt.Errorf("set pin %d: %w", r.pin, err)
	}
	return nil
}

// Value reads back the line value.
func (r *RealLine) Value() (int, error) {
	v, err := r.line.Value()
	if err != nil {
		return 0, fmt.Errorf("read pin %d: %w", r.pin, err)
	}
	return v, nil
}

// Close releases GPIO resources.
// Reconfigures the pin to input with pull-down (matching Pi boot defaults)
// before closing so the LED stays dark across reboots.
func (r *RealLine) Close() error {
	var errs []error

	if r.line != nil {
		if err := r.line.Reconfigure(gpiocdev.AsInput, gpiocdev.WithPullDown); err != nil {
			errs = append(errs, fmt.Errorf("reconfigure pin %d: %w", r.pin, err))
		}
		if err := r.line.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close pin %d: %w", r.pin, err))
		}
	}
	if r.chip != nil {
		if err := r.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
	}

	return errors.Join(errs...)
}
