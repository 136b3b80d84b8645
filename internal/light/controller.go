// Package light owns the indicator light. Controller maps alert events to
// GPIO writes, acquires the line lazily and serializes every write behind one
// mutex. Blink sequences run on clock timers so callers never sleep.
package light

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/rs/zerolog"

	"github.com/sweeney/irm-lightbulb/internal/alert"
	"github.com/sweeney/irm-lightbulb/internal/gpio"
)

// Type is a lightbulb backend.
type Type string

const (
	// TypeRaspberryPi drives an LED on a Raspberry Pi GPIO line.
	TypeRaspberryPi Type = "raspberry_pi"
	// TypeSmartBulb is a network bulb. Recognised but not implemented.
	TypeSmartBulb Type = "smart_bulb"
)

// State is the reported light status.
type State string

const (
	StateOn      State = "on"
	StateOff     State = "off"
	StateError   State = "error"
	StateUnknown State = "unknown"
)

// Lifecycle is the controller's ownership of the line.
type Lifecycle string

const (
	LifecycleUninitialized Lifecycle = "uninitialized"
	LifecycleReady         Lifecycle = "ready"
	LifecycleFailed        Lifecycle = "failed"
	LifecycleReleased      Lifecycle = "released"
)

// Config selects the backend and the line it drives.
type Config struct {
	Type Type
	Pin  int
}

// Controller drives a single light. It is safe for concurrent use.
type Controller struct {
	cfg    Config
	open   gpio.Opener
	clock  clock.Clock
	logger zerolog.Logger

	mu        sync.Mutex
	line      gpio.Line
	lifecycle Lifecycle
	gen       uint64        // bumped by every control call; stale sequences stop
	stop      chan struct{} // closed to abort the running sequence
	done      chan struct{} // closed when the running sequence exits
}

// New creates a Controller. The line is not requested until the first
// control call. A nil clk uses the wall clock.
func New(cfg Config, open gpio.Opener, clk clock.Clock, logger zerolog.Logger) *Controller {
	if clk == nil {
		clk = clock.New()
	}
	return &Controller{
		cfg:       cfg,
		open:      open,
		clock:     clk,
		logger:    logger.With().Str("component", "light").Int("pin", cfg.Pin).Logger(),
		lifecycle: LifecycleUninitialized,
	}
}

// Type returns the configured backend.
func (c *Controller) Type() Type {
	return c.cfg.Type
}

// Pin returns the configured GPIO line offset.
func (c *Controller) Pin() int {
	return c.cfg.Pin
}

// Lifecycle returns the current line ownership state.
func (c *Controller) Lifecycle() Lifecycle {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lifecycle
}

// TurnOn drives the light on. If the event carries a severity, the
// severity's blink pattern is played and the light rests on afterwards.
func (c *Controller) TurnOn(e alert.Event) error {
	steps := []alert.Step{{Active: true}}
	if e.Group.Severity != "" {
		steps = alert.PatternFor(e.Group.Severity).Steps()
	}
	err := c.apply("turn on", steps)
	if err != nil {
		c.logger.Error().Err(err).Str("severity", string(e.Group.Severity)).Msg("Error turning on LED")
		return err
	}
	c.logger.Info().Str("severity", string(e.Group.Severity)).Msg("LED turned on")
	return nil
}

// TurnOff drives the light off. Any running pattern is abandoned.
func (c *Controller) TurnOff(e alert.Event) error {
	if err := c.apply("turn off", []alert.Step{{Active: false}}); err != nil {
		c.logger.Error().Err(err).Msg("Error turning off LED")
		return err
	}
	c.logger.Info().Msg("LED turned off")
	return nil
}

// Blink plays the manual on/off/on/off sequence, independent of severity.
func (c *Controller) Blink(e alert.Event) error {
	if err := c.apply("blink", alert.BlinkSteps()); err != nil {
		c.logger.Error().Err(err).Msg("Error blinking LED")
		return err
	}
	c.logger.Info().Msg("LED blink started")
	return nil
}

// Status reads the line back. A line that was never requested (or has been
// released) reports off, since nothing has driven it.
func (c *Controller) Status() State {
	if c.cfg.Type != TypeRaspberryPi {
		c.logger.Error().Str("type", string(c.cfg.Type)).Msg("Unsupported lightbulb type")
		return StateUnknown
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.line == nil {
		return StateOff
	}
	v, err := c.line.Value()
	if err != nil {
		c.logger.Warn().Err(fmt.Errorf("%w: %w", ErrRead, err)).Msg("Failed to read GPIO value")
		return StateError
	}
	if v == gpio.Active {
		return StateOn
	}
	return StateOff
}

// Done returns a channel that is closed once no sequence is running.
func (c *Controller) Done() <-chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.done == nil {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return c.done
}

// Cleanup drives the line inactive and releases it. It is safe to call more
// than once and before the line was ever requested.
func (c *Controller) Cleanup() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.lifecycle == LifecycleReleased {
		return nil
	}
	c.cancelLocked()

	var errs []error
	if c.line != nil {
		if err := c.line.SetValue(gpio.Inactive); err != nil {
			errs = append(errs, fmt.Errorf("%w: %w", ErrWrite, err))
		}
		if err := c.line.Close(); err != nil {
			errs = append(errs, err)
		}
		c.line = nil
	}
	c.lifecycle = LifecycleReleased

	if err := errors.Join(errs...); err != nil {
		c.logger.Error().Err(err).Msg("Error cleaning up GPIO")
		return err
	}
	c.logger.Info().Msg("GPIO cleaned up")
	return nil
}

// apply supersedes any running sequence, writes the first step now and
// schedules the rest.
func (c *Controller) apply(op string, steps []alert.Step) error {
	if c.cfg.Type != TypeRaspberryPi {
		return fmt.Errorf("%s: %w: %q", op, ErrUnsupportedBackend, c.cfg.Type)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.cancelLocked()
	if err := c.writeLocked(steps[0].Active); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if len(steps) > 1 {
		stop := make(chan struct{})
		done := make(chan struct{})
		c.stop, c.done = stop, done
		go c.run(c.gen, steps[0].Hold, steps[1:], stop, done)
	}
	return nil
}

// run plays steps, waiting hold before each write. It exits as soon as a
// newer control call bumps the generation.
func (c *Controller) run(gen uint64, hold time.Duration, steps []alert.Step, stop, done chan struct{}) {
	defer close(done)

	for _, s := range steps {
		if !c.wait(hold, stop) {
			return
		}

		c.mu.Lock()
		if c.gen != gen {
			c.mu.Unlock()
			return
		}
		err := c.writeLocked(s.Active)
		c.mu.Unlock()

		if err != nil {
			c.logger.Error().Err(err).Msg("Blink sequence aborted")
			return
		}
		hold = s.Hold
	}
}

func (c *Controller) wait(d time.Duration, stop <-chan struct{}) bool {
	if d <= 0 {
		select {
		case <-stop:
			return false
		default:
			return true
		}
	}
	t := c.clock.Timer(d)
	select {
	case <-t.C:
		return true
	case <-stop:
		t.Stop()
		return false
	}
}

func (c *Controller) cancelLocked() {
	c.gen++
	if c.stop != nil {
		close(c.stop)
		c.stop = nil
	}
}

// writeLocked requests the line if needed and drives it. c.mu must be held.
func (c *Controller) writeLocked(active bool) error {
	if err := c.acquireLocked(); err != nil {
		return err
	}
	v := gpio.Inactive
	if active {
		v = gpio.Active
	}
	if err := c.line.SetValue(v); err != nil {
		return fmt.Errorf("%w: %w", ErrWrite, err)
	}
	c.logger.Debug().Int("value", v).Msg("GPIO write")
	return nil
}

func (c *Controller) acquireLocked() error {
	switch c.lifecycle {
	case LifecycleReleased:
		return ErrReleased
	case LifecycleReady:
		return nil
	}

	line, err := c.open()
	if err != nil {
		c.lifecycle = LifecycleFailed
		if errors.Is(err, gpio.ErrUnsupported) {
			return fmt.Errorf("%w: %w", ErrHardwareUnavailable, err)
		}
		return fmt.Errorf("%w: %w", ErrAcquire, err)
	}

	c.line = line
	c.lifecycle = LifecycleReady
	c.logger.Info().Msg("GPIO initialized")
	return nil
}
