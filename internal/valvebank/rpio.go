package valvebank

import (
	"fmt"
	"sync"

	"github.com/stianeikeland/go-rpio/v4"

	"github.com/elegantandrogyne/rpi2casterd/internal/signalcodec"
)

// RPIOBank drives the valve bank via register-mapped /dev/gpiomem access,
// selected by output_driver=wiringpi. It uses go-rpio's own I2C
// primitives, a disjoint low-level path from PeriphBank's i2c-dev
// transactions -- the two backends don't share a driver underneath.
type RPIOBank struct {
	mu  sync.Mutex
	cfg Config
	dev rpio.I2CDev
}

// NewRPIOBank opens /dev/gpiomem and begins an I2C session on the
// configured bus.
func NewRPIOBank(cfg Config) (*RPIOBank, error) {
	if err := rpio.Open(); err != nil {
		return nil, fmt.Errorf("opening /dev/gpiomem: %w", err)
	}
	dev := rpio.I2C0
	if cfg.I2CBus == 1 {
		dev = rpio.I2C1
	}
	if err := rpio.I2cBegin(dev); err != nil {
		return nil, fmt.Errorf("starting i2c bus %d: %w", cfg.I2CBus, err)
	}
	return &RPIOBank{cfg: cfg, dev: dev}, nil
}

// Name identifies the backend for diagnostics.
func (b *RPIOBank) Name() string {
	return "wiringpi (go-rpio)"
}

// ValvesOn writes the computed port pattern for signals.
func (b *RPIOBank) ValvesOn(signals signalcodec.Set) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	ports := packPorts(signals, b.cfg.Tuples())
	if err := b.writeDevicePorts(b.cfg.Addr0, ports[0], ports[1]); err != nil {
		return fmt.Errorf("writing device 0: %w", err)
	}
	if err := b.writeDevicePorts(b.cfg.Addr1, ports[2], ports[3]); err != nil {
		return fmt.Errorf("writing device 1: %w", err)
	}
	return nil
}

// ValvesOff de-energizes every port.
func (b *RPIOBank) ValvesOff() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.writeDevicePorts(b.cfg.Addr0, 0, 0); err != nil {
		return fmt.Errorf("clearing device 0: %w", err)
	}
	if err := b.writeDevicePorts(b.cfg.Addr1, 0, 0); err != nil {
		return fmt.Errorf("clearing device 1: %w", err)
	}
	return nil
}

func (b *RPIOBank) writeDevicePorts(addr uint16, portA, portB byte) error {
	rpio.I2cSelectSlave(b.dev, uint8(addr))
	if errCode := rpio.I2cWrite(b.dev, []byte{mcp23017RegGPIOA, portA, portB}); errCode != 0 {
		// Single transaction rejected; fall back to port1->port2 order.
		if errCode := rpio.I2cWrite(b.dev, []byte{mcp23017RegGPIOA, portA}); errCode != 0 {
			return fmt.Errorf("i2c write error 0x%x writing port at %#x", errCode, addr)
		}
		if errCode := rpio.I2cWrite(b.dev, []byte{mcp23017RegGPIOA + 1, portB}); errCode != 0 {
			return fmt.Errorf("i2c write error 0x%x writing port at %#x", errCode, addr)
		}
	}
	return nil
}
