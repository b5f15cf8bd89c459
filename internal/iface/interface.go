// Package iface implements the Interface core: the per-machine state
// machine that synchronizes valve actuation with the machine's mechanical
// cycle, dispatches across casting/punching/testing operation modes,
// infers pump/wedge state from the signals it sends, and enforces the
// safety envelope (emergency stop, pump-must-stop-on-exit, single-owner
// semantics).
package iface

import (
	"sync"

	"go.uber.org/zap"

	"github.com/elegantandrogyne/rpi2casterd/internal/apperr"
	"github.com/elegantandrogyne/rpi2casterd/internal/config"
	"github.com/elegantandrogyne/rpi2casterd/internal/gpioctl"
	"github.com/elegantandrogyne/rpi2casterd/internal/rpmmeter"
	"github.com/elegantandrogyne/rpi2casterd/internal/signalcodec"
	"github.com/elegantandrogyne/rpi2casterd/internal/valvebank"
)

// Operation modes. ModeTesting stands in for the spec's "null" mode.
const (
	ModeCasting  = "casting"
	ModePunching = "punching"
	ModeTesting  = "testing"
)

// Row-16 addressing modes. Row16Off stands in for "null" (plain mode).
const (
	Row16HMN       = "HMN"
	Row16KMN       = "KMN"
	Row16UnitShift = "unit-shift"
	Row16Off       = ""
)

// Interface is a per-machine hardware control state machine. All public
// methods except Name and RPM (which read only immutable data or the
// meter's own lock) serialize through mu: only one cycle runs at a time per
// Interface, matching the single-owner semantics of §3 invariant 1.
type Interface struct {
	name   string
	cfg    *config.InterfaceConfig
	gpio   gpioctl.Port
	bank   valvebank.Bank
	meter  *rpmmeter.Meter
	order  []string
	log    *zap.SugaredLogger

	mu sync.Mutex

	// sensorMu guards sensor independently of mu: the sensor callback
	// runs asynchronously on the GPIO library's goroutine and must be able
	// to update it while the main goroutine holds mu for the (possibly
	// multi-second) duration of wait_for_sensor.
	sensorMu sync.Mutex
	sensor   bool

	working   bool
	air       bool
	water     bool
	motor     bool
	pump      bool
	wedge0005 int
	wedge0075 int
	signals   signalcodec.Set

	operationMode *string
	row16Mode     *string

	// startedInCastingMode resolves the §9 open question: casting-mode
	// cycle work is only permitted when machine_control(on) was issued
	// while the operation mode was already casting, not inferred
	// retroactively from a later mode switch.
	startedInCastingMode bool
}

// New constructs an Interface from its parsed configuration and hardware
// handles. The Interface owns gpio and bank for its lifetime; GPIO lines
// are configured eagerly so a subsequent Read/Write never needs to probe
// direction.
func New(name string, cfg *config.InterfaceConfig, gpio gpioctl.Port, bank valvebank.Bank, log *zap.SugaredLogger) (*Interface, error) {
	i := &Interface{
		name:      name,
		cfg:       cfg,
		gpio:      gpio,
		bank:      bank,
		meter:     rpmmeter.New(cfg.SensorTimeout),
		order:     cfg.OrderedSignalNames(),
		log:       log,
		wedge0005: 15,
		wedge0075: 15,
		signals:   signalcodec.NewSet(),
	}
	if err := i.setupGPIO(); err != nil {
		return nil, err
	}
	return i, nil
}

func (i *Interface) setupGPIO() error {
	inputs := map[string]int{
		"sensor":         i.cfg.GPIO.Sensor,
		"emergency_stop": i.cfg.GPIO.EmergencyStop,
	}
	for name, line := range inputs {
		if err := i.gpio.Configure(line, gpioctl.Input, gpioctl.PullUp); err != nil {
			return apperr.Configuration("configuring %s gpio for interface %s: %v", name, i.name, err)
		}
	}
	outputs := map[string]int{
		"error_led":   i.cfg.GPIO.ErrorLED,
		"working_led": i.cfg.GPIO.WorkingLED,
		"air":         i.cfg.GPIO.Air,
		"water":       i.cfg.GPIO.Water,
		"motor_start": i.cfg.GPIO.MotorStart,
		"motor_stop":  i.cfg.GPIO.MotorStop,
	}
	for name, line := range outputs {
		if err := i.gpio.Configure(line, gpioctl.Output, gpioctl.PullNone); err != nil {
			return apperr.Configuration("configuring %s gpio for interface %s: %v", name, i.name, err)
		}
	}

	if err := i.gpio.OnEdge(i.cfg.GPIO.Sensor, gpioctl.EdgeBoth, i.cfg.Debounce, i.onSensorEdge); err != nil {
		return apperr.Configuration("watching sensor gpio for interface %s: %v", i.name, err)
	}
	if err := i.gpio.OnEdge(i.cfg.GPIO.EmergencyStop, gpioctl.EdgeFalling, i.cfg.Debounce, i.onEmergencyStopEdge); err != nil {
		return apperr.Configuration("watching emergency stop gpio for interface %s: %v", i.name, err)
	}
	return nil
}

// Name identifies the interface for diagnostics/logging.
func (i *Interface) Name() string {
	return i.name
}

// State is a snapshot of the Interface's runtime state (§3), used by the
// HTTP façade's "state" endpoint.
type State struct {
	Working       bool     `json:"working"`
	Air           bool     `json:"air"`
	Water         bool     `json:"water"`
	Motor         bool     `json:"motor"`
	Pump          bool     `json:"pump"`
	Sensor        bool     `json:"sensor"`
	Wedge0005     int      `json:"wedge_0005"`
	Wedge0075     int      `json:"wedge_0075"`
	Signals       []string `json:"signals"`
	OperationMode string   `json:"operation_mode"`
	Row16Mode     string   `json:"row16_mode"`
}

// State returns a snapshot of the current runtime state.
func (i *Interface) State() State {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.stateLocked()
}

func (i *Interface) stateLocked() State {
	return State{
		Working:       i.working,
		Air:           i.air,
		Water:         i.water,
		Motor:         i.motor,
		Pump:          i.pump,
		Sensor:        i.sensorValue(),
		Wedge0005:     i.wedge0005,
		Wedge0075:     i.wedge0075,
		Signals:       signalcodec.OrderedSignals(i.signals, i.order),
		OperationMode: i.operationModeLocked(),
		Row16Mode:     i.row16ModeLocked(),
	}
}

// RPM returns the current revolutions-per-minute reading.
func (i *Interface) RPM() float64 {
	return i.meter.RPM()
}

func (i *Interface) sensorValue() bool {
	i.sensorMu.Lock()
	defer i.sensorMu.Unlock()
	return i.sensor
}

func (i *Interface) setSensorValue(v bool) {
	i.sensorMu.Lock()
	i.sensor = v
	i.sensorMu.Unlock()
}
