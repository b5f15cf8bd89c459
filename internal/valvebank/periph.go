package valvebank

import (
	"fmt"
	"sync"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"

	"github.com/elegantandrogyne/rpi2casterd/internal/signalcodec"
)

// MCP23017 GPIO port registers in the default (IOCON.BANK=0) register
// layout: GPIOA and GPIOB are adjacent, so both ports on one device can be
// written in a single transaction.
const mcp23017RegGPIOA = 0x12

// PeriphBank drives the valve bank over Linux i2c-dev via periph.io,
// selected by output_driver=smbus.
type PeriphBank struct {
	mu       sync.Mutex
	cfg      Config
	bus      i2c.BusCloser
	dev0     i2c.Dev
	dev1     i2c.Dev
}

// NewPeriphBank opens the configured I2C bus and prepares the two device
// handles. It calls host.Init() itself, so callers need not; repeated
// calls across banks are harmless.
func NewPeriphBank(cfg Config) (*PeriphBank, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("initializing periph host: %w", err)
	}
	bus, err := i2creg.Open(fmt.Sprintf("%d", cfg.I2CBus))
	if err != nil {
		return nil, fmt.Errorf("opening i2c bus %d: %w", cfg.I2CBus, err)
	}
	return &PeriphBank{
		cfg:  cfg,
		bus:  bus,
		dev0: i2c.Dev{Bus: bus, Addr: cfg.Addr0},
		dev1: i2c.Dev{Bus: bus, Addr: cfg.Addr1},
	}, nil
}

// Name identifies the backend for diagnostics.
func (b *PeriphBank) Name() string {
	return "smbus (periph.io)"
}

// ValvesOn writes the computed port pattern for signals. Each device's two
// ports are written in a single bus transaction when the adjacent-register
// layout allows it, falling back to two writes in port1->port2,
// port3->port4 order otherwise.
func (b *PeriphBank) ValvesOn(signals signalcodec.Set) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	ports := packPorts(signals, b.cfg.Tuples())
	if err := writeDevicePorts(b.dev0, ports[0], ports[1]); err != nil {
		return fmt.Errorf("writing device 0: %w", err)
	}
	if err := writeDevicePorts(b.dev1, ports[2], ports[3]); err != nil {
		return fmt.Errorf("writing device 1: %w", err)
	}
	return nil
}

// ValvesOff de-energizes every port.
func (b *PeriphBank) ValvesOff() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := writeDevicePorts(b.dev0, 0, 0); err != nil {
		return fmt.Errorf("clearing device 0: %w", err)
	}
	if err := writeDevicePorts(b.dev1, 0, 0); err != nil {
		return fmt.Errorf("clearing device 1: %w", err)
	}
	return nil
}

func writeDevicePorts(dev i2c.Dev, portA, portB byte) error {
	w := []byte{mcp23017RegGPIOA, portA, portB}
	if err := dev.Tx(w, nil); err == nil {
		return nil
	}
	// Some MCP23017 clones reject a 3-byte write; fall back to two
	// sequential single-register writes, port1 before port2 (port3 before
	// port4 on the other device).
	if err := dev.Tx([]byte{mcp23017RegGPIOA, portA}, nil); err != nil {
		return err
	}
	return dev.Tx([]byte{mcp23017RegGPIOA + 1, portB}, nil)
}
