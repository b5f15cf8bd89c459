// Package gpioctl wraps github.com/warthog618/gpiod behind a small Port
// interface: configure a line's direction/pull, read/write it, register
// debounced edge callbacks, and consume non-blocking edge-triggered
// events. A callback may run on an arbitrary goroutine (gpiod's own event
// dispatch goroutine); callbacks registered on the same line are
// serialized with respect to each other.
//
// gpiod only accepts one event handler per requested line. A second
// OnEdge call on an already-watched line doesn't re-request it from the
// kernel (gpiod would refuse with EBUSY); instead it's appended to that
// line's callback chain, matching the platform's actual duplicate-
// registration behavior.
package gpioctl

import (
	"fmt"
	"sync"
	"time"

	"github.com/warthog618/gpiod"
)

// Direction selects line direction.
type Direction int

const (
	Input Direction = iota
	Output
)

// Pull selects an internal bias resistor, or none.
type Pull int

const (
	PullNone Pull = iota
	PullUp
	PullDown
)

// Edge selects which transition(s) a callback is invoked for.
type Edge int

const (
	EdgeRising Edge = iota
	EdgeFalling
	EdgeBoth
)

// Callback is invoked on a line transition. rising is true for a
// rising-edge event.
type Callback func(rising bool, timestamp time.Time)

// Port is the surface internal/iface and internal/supervisor depend on;
// tests substitute a fake implementation.
type Port interface {
	Configure(offset int, dir Direction, pull Pull) error
	Read(offset int) (bool, error)
	Write(offset int, value bool) error
	OnEdge(offset int, which Edge, debounce time.Duration, cb Callback) error
	EventDetected(offset int) bool
	Cleanup() error
}

type managedLine struct {
	mu        sync.Mutex
	line      *gpiod.Line
	direction Direction
	watching  bool
	callbacks []Callback
	pending   bool
}

// Controller is the real Port implementation, backed by a single gpiod
// chip (one chip per daemon process, consistent with the single-board
// target this daemon assumes).
type Controller struct {
	mu    sync.Mutex
	chip  *gpiod.Chip
	lines map[int]*managedLine
}

// NewController opens chipName (e.g. "gpiochip0").
func NewController(chipName string) (*Controller, error) {
	chip, err := gpiod.NewChip(chipName)
	if err != nil {
		return nil, fmt.Errorf("opening gpio chip %s: %w", chipName, err)
	}
	return &Controller{chip: chip, lines: make(map[int]*managedLine)}, nil
}

func (c *Controller) get(offset int) *managedLine {
	c.mu.Lock()
	defer c.mu.Unlock()
	ml, ok := c.lines[offset]
	if !ok {
		ml = &managedLine{}
		c.lines[offset] = ml
	}
	return ml
}

// Configure requests offset as an input or output line with the given
// pull bias. It's a no-op if the line is already watching for edges
// (OnEdge already owns the request).
func (c *Controller) Configure(offset int, dir Direction, pull Pull) error {
	ml := c.get(offset)
	ml.mu.Lock()
	defer ml.mu.Unlock()

	if ml.watching {
		// Edge detection already owns this line's request; direction for
		// an edge-watched line is always input, which is what callers
		// configuring sensor/emergency-stop lines want anyway.
		return nil
	}
	if ml.line != nil {
		ml.line.Close()
	}
	opts := pullOptions(pull)
	var line *gpiod.Line
	var err error
	if dir == Output {
		opts = append(opts, gpiod.AsOutput(0))
		line, err = c.chip.RequestLine(offset, opts...)
	} else {
		opts = append(opts, gpiod.AsInput)
		line, err = c.chip.RequestLine(offset, opts...)
	}
	if err != nil {
		return fmt.Errorf("configuring gpio line %d: %w", offset, err)
	}
	ml.line = line
	ml.direction = dir
	return nil
}

func pullOptions(pull Pull) []gpiod.LineReqOption {
	switch pull {
	case PullUp:
		return []gpiod.LineReqOption{gpiod.WithPullUp}
	case PullDown:
		return []gpiod.LineReqOption{gpiod.WithPullDown}
	default:
		return nil
	}
}

// Read returns the line's current logic level.
func (c *Controller) Read(offset int) (bool, error) {
	ml := c.get(offset)
	ml.mu.Lock()
	defer ml.mu.Unlock()
	if ml.line == nil {
		return false, fmt.Errorf("gpio line %d not configured", offset)
	}
	v, err := ml.line.Value()
	if err != nil {
		return false, fmt.Errorf("reading gpio line %d: %w", offset, err)
	}
	return v != 0, nil
}

// Write sets an output line's logic level.
func (c *Controller) Write(offset int, value bool) error {
	ml := c.get(offset)
	ml.mu.Lock()
	defer ml.mu.Unlock()
	if ml.line == nil {
		return fmt.Errorf("gpio line %d not configured", offset)
	}
	v := 0
	if value {
		v = 1
	}
	if err := ml.line.SetValue(v); err != nil {
		return fmt.Errorf("writing gpio line %d: %w", offset, err)
	}
	return nil
}

// OnEdge registers cb for transitions of kind which on offset, debounced
// by the given interval. The first call for a given offset requests the
// line from the kernel with event detection; subsequent calls chain
// additional callbacks onto the existing registration.
func (c *Controller) OnEdge(offset int, which Edge, debounce time.Duration, cb Callback) error {
	ml := c.get(offset)
	ml.mu.Lock()
	defer ml.mu.Unlock()

	if ml.watching {
		ml.callbacks = append(ml.callbacks, cb)
		return nil
	}

	if ml.line != nil {
		ml.line.Close()
	}

	opts := []gpiod.LineReqOption{gpiod.AsInput, gpiod.WithDebounce(debounce)}
	switch which {
	case EdgeRising:
		opts = append(opts, gpiod.WithRisingEdge)
	case EdgeFalling:
		opts = append(opts, gpiod.WithFallingEdge)
	default:
		opts = append(opts, gpiod.WithBothEdges)
	}
	opts = append(opts, gpiod.WithEventHandler(func(evt gpiod.LineEvent) {
		c.dispatch(offset, evt)
	}))

	line, err := c.chip.RequestLine(offset, opts...)
	if err != nil {
		return fmt.Errorf("watching gpio line %d: %w", offset, err)
	}
	ml.line = line
	ml.direction = Input
	ml.watching = true
	ml.callbacks = append(ml.callbacks, cb)
	return nil
}

func (c *Controller) dispatch(offset int, evt gpiod.LineEvent) {
	ml := c.get(offset)
	ml.mu.Lock()
	rising := evt.Type == gpiod.LineEventRisingEdge
	ml.pending = true
	callbacks := append([]Callback(nil), ml.callbacks...)
	ml.mu.Unlock()

	ts := time.Now()
	for _, cb := range callbacks {
		cb(rising, ts)
	}
}

// EventDetected is edge-triggered and non-blocking: it returns true at
// most once per physical edge, clearing the latch on read.
func (c *Controller) EventDetected(offset int) bool {
	ml := c.get(offset)
	ml.mu.Lock()
	defer ml.mu.Unlock()
	pending := ml.pending
	ml.pending = false
	return pending
}

// Cleanup releases every configured line and closes the chip.
func (c *Controller) Cleanup() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	var firstErr error
	for _, ml := range c.lines {
		ml.mu.Lock()
		if ml.line != nil {
			if err := ml.line.Close(); err != nil && firstErr == nil {
				firstErr = err
			}
			ml.line = nil
		}
		ml.mu.Unlock()
	}
	c.lines = make(map[int]*managedLine)
	if err := c.chip.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}
