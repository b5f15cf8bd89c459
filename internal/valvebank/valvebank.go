// Package valvebank turns a set of signal names into a 32-bit actuation
// pattern and pushes it out over I2C to two MCP23017-compatible port
// expanders, per the wire format in §6 of the spec: valve i of valveN maps
// to bit i of port N on device (N-1)/2.
package valvebank

import "github.com/elegantandrogyne/rpi2casterd/internal/signalcodec"

// Tuple names the (up to) 8 valves wired to one port, in bit order.
type Tuple [8]string

// Config is the immutable wiring configuration for one valve bank.
type Config struct {
	I2CBus int
	Addr0  uint16 // device holding ports 1 and 2
	Addr1  uint16 // device holding ports 3 and 4
	Valve1 Tuple
	Valve2 Tuple
	Valve3 Tuple
	Valve4 Tuple
}

// Tuples returns the four port tuples in port order.
func (c Config) Tuples() [4]Tuple {
	return [4]Tuple{c.Valve1, c.Valve2, c.Valve3, c.Valve4}
}

// OrderedNames concatenates the four tuples in wiring order, the canonical
// order used by signalcodec.OrderedSignals.
func (c Config) OrderedNames() []string {
	var out []string
	for _, tuple := range c.Tuples() {
		for _, name := range tuple {
			if name != "" {
				out = append(out, name)
			}
		}
	}
	return out
}

// Bank drives a physical valve bank. Two backends exist (smbus, wiringpi);
// both must be observationally identical for the same signal set.
type Bank interface {
	Name() string
	ValvesOn(signals signalcodec.Set) error
	ValvesOff() error
}

// packPorts computes one byte per port: bit i is set when the i-th name in
// the corresponding tuple is present in signals. Unknown/empty tuple slots
// never match, so unrecognized signal names are silently ignored, per §4.2.
func packPorts(signals signalcodec.Set, tuples [4]Tuple) [4]byte {
	var ports [4]byte
	for portIdx, tuple := range tuples {
		var b byte
		for bit, name := range tuple {
			if name != "" && signals.Has(name) {
				b |= 1 << uint(bit)
			}
		}
		ports[portIdx] = b
	}
	return ports
}
