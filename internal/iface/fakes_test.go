package iface

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/elegantandrogyne/rpi2casterd/internal/config"
	"github.com/elegantandrogyne/rpi2casterd/internal/gpioctl"
	"github.com/elegantandrogyne/rpi2casterd/internal/signalcodec"
)

// fakeGPIO is an in-memory gpioctl.Port: values are held in a map, edge
// callbacks are invoked synchronously by triggerEdge, and EventDetected
// consumes its latch exactly like the real controller.
type fakeGPIO struct {
	mu        sync.Mutex
	values    map[int]bool
	callbacks map[int][]gpioctl.Callback
	pending   map[int]bool
}

func newFakeGPIO() *fakeGPIO {
	return &fakeGPIO{
		values:    make(map[int]bool),
		callbacks: make(map[int][]gpioctl.Callback),
		pending:   make(map[int]bool),
	}
}

func (f *fakeGPIO) Configure(offset int, dir gpioctl.Direction, pull gpioctl.Pull) error {
	return nil
}

func (f *fakeGPIO) Read(offset int) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.values[offset], nil
}

func (f *fakeGPIO) Write(offset int, value bool) error {
	f.mu.Lock()
	f.values[offset] = value
	f.mu.Unlock()
	return nil
}

func (f *fakeGPIO) OnEdge(offset int, which gpioctl.Edge, debounce time.Duration, cb gpioctl.Callback) error {
	f.mu.Lock()
	f.callbacks[offset] = append(f.callbacks[offset], cb)
	f.mu.Unlock()
	return nil
}

func (f *fakeGPIO) EventDetected(offset int) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	p := f.pending[offset]
	f.pending[offset] = false
	return p
}

func (f *fakeGPIO) Cleanup() error { return nil }

// triggerEdge simulates a physical transition: it updates the line's
// value, latches it pending for EventDetected, and fires every callback
// registered on that line, in order.
func (f *fakeGPIO) triggerEdge(offset int, rising bool) {
	f.mu.Lock()
	f.values[offset] = rising
	f.pending[offset] = true
	cbs := append([]gpioctl.Callback(nil), f.callbacks[offset]...)
	f.mu.Unlock()

	ts := time.Now()
	for _, cb := range cbs {
		cb(rising, ts)
	}
}

// startSensorToggle spins a goroutine that flips the sensor line at the
// given period until stop is closed, standing in for a turning machine.
func (f *fakeGPIO) startSensorToggle(line int, period time.Duration, stop chan struct{}) {
	go func() {
		state := false
		ticker := time.NewTicker(period)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				state = !state
				f.triggerEdge(line, state)
			}
		}
	}()
}

// fakeBank records every valves_on/valves_off call for assertions.
type fakeBank struct {
	mu       sync.Mutex
	onCalls  []signalcodec.Set
	offCount int
}

func newFakeBank() *fakeBank {
	return &fakeBank{}
}

func (b *fakeBank) Name() string { return "fake" }

func (b *fakeBank) ValvesOn(signals signalcodec.Set) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.onCalls = append(b.onCalls, signals.Clone())
	return nil
}

func (b *fakeBank) ValvesOff() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.offCount++
	return nil
}

func (b *fakeBank) lastOn() signalcodec.Set {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.onCalls) == 0 {
		return nil
	}
	return b.onCalls[len(b.onCalls)-1]
}

func testInterfaceConfig() *config.InterfaceConfig {
	return &config.InterfaceConfig{
		Name: "caster1",
		GPIO: config.GPIOLines{
			Sensor:        17,
			EmergencyStop: 22,
			ErrorLED:      26,
			WorkingLED:    25,
			Air:           19,
			Water:         13,
			MotorStart:    5,
			MotorStop:     6,
		},
		I2CBus:              1,
		MCP0Addr:            0x20,
		MCP1Addr:            0x21,
		Valve1:              [8]string{"N", "M", "L", "K", "J", "I", "H", "G"},
		Valve2:              [8]string{"F", "S", "E", "D", "0075", "C", "B", "A"},
		Valve3:              [8]string{"1", "2", "3", "4", "5", "6", "7", "8"},
		Valve4:              [8]string{"9", "10", "11", "12", "13", "14", "0005", "O15"},
		StartupTimeout:      200 * time.Millisecond,
		SensorTimeout:       200 * time.Millisecond,
		PumpStopTimeout:     200 * time.Millisecond,
		PunchingOnTime:      10 * time.Millisecond,
		PunchingOffTime:     10 * time.Millisecond,
		Debounce:            time.Millisecond,
		DefaultMode:         ModeCasting,
		DefaultRow16Mode:    Row16Off,
		SupportedModes:      map[string]bool{ModeCasting: true, ModePunching: true},
		SupportedRow16Modes: map[string]bool{Row16HMN: true, Row16KMN: true, Row16UnitShift: true},
		OutputDriver:        "smbus",
	}
}

// newTestInterface wires an Interface to fresh fakes, ready to be started.
func newTestInterface(cfg *config.InterfaceConfig) (*Interface, *fakeGPIO, *fakeBank) {
	gpio := newFakeGPIO()
	bank := newFakeBank()
	i, err := New(cfg.Name, cfg, gpio, bank, zap.NewNop().Sugar())
	if err != nil {
		panic(err)
	}
	return i, gpio, bank
}
