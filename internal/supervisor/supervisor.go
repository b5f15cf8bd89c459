// Package supervisor owns the process-wide resources no single Interface
// does: the status LED registry, the shutdown/reboot buttons, and the
// teardown sequence that releases every Interface's hardware on exit.
package supervisor

import (
	"fmt"
	"os/exec"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/elegantandrogyne/rpi2casterd/internal/config"
	"github.com/elegantandrogyne/rpi2casterd/internal/gpioctl"
)

// stoppable is the subset of iface.Interface the supervisor needs at
// teardown; kept narrow so this package doesn't import iface.
type stoppable interface {
	Name() string
	MachineControlOff()
}

// Supervisor holds the daemon-wide LED registry and shutdown/reboot
// button wiring, and runs teardown across every registered Interface.
type Supervisor struct {
	gpio gpioctl.Port
	log  *zap.SugaredLogger

	mu         sync.Mutex
	leds       map[string]int
	interfaces []stoppable

	shutdownGPIO    int
	shutdownCommand []string
	rebootGPIO      int
	rebootCommand   []string
}

// New configures the ready LED plus the shutdown/reboot buttons from
// daemon and returns a Supervisor ready to register Interfaces.
func New(gpio gpioctl.Port, daemon config.DaemonConfig, log *zap.SugaredLogger) (*Supervisor, error) {
	s := &Supervisor{
		gpio:            gpio,
		log:             log,
		leds:            make(map[string]int),
		shutdownGPIO:    daemon.ShutdownGPIO,
		shutdownCommand: daemon.ShutdownCommand,
		rebootGPIO:      daemon.RebootGPIO,
		rebootCommand:   daemon.RebootCommand,
	}

	s.RegisterLED("ready", daemon.ReadyLEDGPIO)
	if err := gpio.Configure(daemon.ReadyLEDGPIO, gpioctl.Output, gpioctl.PullNone); err != nil {
		return nil, fmt.Errorf("configuring ready led: %w", err)
	}

	debounce := time.Duration(daemon.DebounceMillis) * time.Millisecond
	if err := gpio.Configure(daemon.ShutdownGPIO, gpioctl.Input, gpioctl.PullUp); err != nil {
		return nil, fmt.Errorf("configuring shutdown button: %w", err)
	}
	if err := gpio.OnEdge(daemon.ShutdownGPIO, gpioctl.EdgeFalling, debounce, s.onShutdownEdge); err != nil {
		return nil, fmt.Errorf("watching shutdown button: %w", err)
	}
	if err := gpio.Configure(daemon.RebootGPIO, gpioctl.Input, gpioctl.PullUp); err != nil {
		return nil, fmt.Errorf("configuring reboot button: %w", err)
	}
	if err := gpio.OnEdge(daemon.RebootGPIO, gpioctl.EdgeFalling, debounce, s.onRebootEdge); err != nil {
		return nil, fmt.Errorf("watching reboot button: %w", err)
	}

	return s, nil
}

// RegisterLED names line under name, for later Blink/on/off calls.
func (s *Supervisor) RegisterLED(name string, line int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.leds[name] = line
}

// AddInterface registers i so Teardown stops it.
func (s *Supervisor) AddInterface(i stoppable) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.interfaces = append(s.interfaces, i)
}

// Blink pulses the named LED count times: on for period, then off for
// period, so the LED always ends off. An unknown name is a no-op.
func (s *Supervisor) Blink(name string, period time.Duration, count int) {
	s.mu.Lock()
	line, ok := s.leds[name]
	s.mu.Unlock()
	if !ok {
		return
	}
	for n := 0; n < count; n++ {
		s.gpio.Write(line, true)
		time.Sleep(period)
		s.gpio.Write(line, false)
		time.Sleep(period)
	}
}

func (s *Supervisor) ledOn(name string) {
	s.mu.Lock()
	line, ok := s.leds[name]
	s.mu.Unlock()
	if ok {
		s.gpio.Write(line, true)
	}
}

func (s *Supervisor) ledOff(name string) {
	s.mu.Lock()
	line, ok := s.leds[name]
	s.mu.Unlock()
	if ok {
		s.gpio.Write(line, false)
	}
}

// onShutdownEdge and onRebootEdge run on the GPIO library's dispatch
// goroutine. A button press is confirmed by re-reading the line after a
// 2s hold, filtering out bumps and brief contact bounce the debounce
// window didn't already absorb.
func (s *Supervisor) onShutdownEdge(rising bool, _ time.Time) {
	s.confirmAndRun(s.shutdownGPIO, s.shutdownCommand, "shutdown")
}

func (s *Supervisor) onRebootEdge(rising bool, _ time.Time) {
	s.confirmAndRun(s.rebootGPIO, s.rebootCommand, "reboot")
}

func (s *Supervisor) confirmAndRun(line int, argv []string, label string) {
	time.Sleep(2 * time.Second)
	high, err := s.gpio.Read(line)
	if err != nil {
		s.log.Warnw("reading button line after hold", "button", label, "error", err)
		return
	}
	if high {
		// released before the hold ended (the button is active-low)
		return
	}
	s.Blink("ready", 200*time.Millisecond, 3)
	s.runCommand(label, argv)
}

func (s *Supervisor) runCommand(label string, argv []string) {
	if len(argv) == 0 {
		s.log.Warnw("no command configured", "action", label)
		return
	}
	cmd := exec.Command(argv[0], argv[1:]...)
	if err := cmd.Run(); err != nil {
		s.log.Errorw("command failed", "action", label, "error", err)
	}
}

// Teardown stops every registered Interface, de-energizes every
// registered LED, and releases the GPIO subsystem. Safe to call once at
// process exit.
func (s *Supervisor) Teardown() error {
	s.mu.Lock()
	interfaces := append([]stoppable(nil), s.interfaces...)
	leds := make(map[string]int, len(s.leds))
	for name, line := range s.leds {
		leds[name] = line
	}
	s.mu.Unlock()

	for _, i := range interfaces {
		i.MachineControlOff()
	}
	for _, line := range leds {
		s.gpio.Write(line, false)
	}
	return s.gpio.Cleanup()
}
