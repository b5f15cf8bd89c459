// Package rpmmeter measures instantaneous revolutions-per-minute from a
// bounded FIFO of cycle-sensor rising-edge timestamps.
package rpmmeter

import (
	"sync"
	"time"
)

const capacity = 3

// Meter is safe for concurrent use: RecordRisingEdge is typically called
// from a GPIO callback goroutine while RPM/Len are called from the
// Interface's cycle-synchronous goroutine.
type Meter struct {
	mu      sync.Mutex
	events  []time.Time
	timeout time.Duration
}

// New returns a Meter whose RPM() treats a span longer than timeout as a
// stalled machine (returns 0), mirroring the sensor timeout configured for
// the owning Interface.
func New(timeout time.Duration) *Meter {
	return &Meter{timeout: timeout}
}

// RecordRisingEdge appends t, dropping the oldest sample once the buffer
// holds more than 3 entries.
func (m *Meter) RecordRisingEdge(t time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, t)
	if len(m.events) > capacity {
		m.events = m.events[len(m.events)-capacity:]
	}
}

// Clear empties the buffer; called on motor stop and on each interface
// start.
func (m *Meter) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = nil
}

// Len reports the number of buffered samples (at most 3).
func (m *Meter) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.events)
}

// RPM returns 0 when fewer than two samples exist, when their span is 0,
// or when it exceeds the configured timeout; otherwise
// (len-1)/span*60, rounded to two decimal places.
func (m *Meter) RPM() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.events) < 2 {
		return 0
	}
	span := m.events[len(m.events)-1].Sub(m.events[0])
	if span <= 0 || span > m.timeout {
		return 0
	}
	perSecond := float64(len(m.events)-1) / span.Seconds()
	rpm := perSecond * 60
	return roundTo2(rpm)
}

func roundTo2(v float64) float64 {
	const scale = 100
	return float64(int64(v*scale+0.5)) / scale
}
