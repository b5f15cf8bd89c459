package iface

import (
	"strconv"

	"github.com/elegantandrogyne/rpi2casterd/internal/signalcodec"
)

// PumpControlOn starts the pump by sending a one-cycle signal combination
// through the normal send-signals path, so it runs in the active
// operation mode with ordinary sensor synchronization.
func (i *Interface) PumpControlOn() error {
	i.mu.Lock()
	defer i.mu.Unlock()
	code := []string{"N", "K", "S", "0075", strconv.Itoa(i.wedge0075)}
	return i.sendSignalsLocked(code, 0)
}

// PumpControlOff stops the pump, retrying the stop combination until the
// inferred pump state confirms off.
func (i *Interface) PumpControlOff() error {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.pumpControlOffLocked()
}

// Pump reports the last inferred pump state.
func (i *Interface) Pump() bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.pump
}

func (i *Interface) pumpControlOffLocked() error {
	if !i.pump {
		return nil
	}

	workingLEDWasOn, err := i.gpio.Read(i.cfg.GPIO.WorkingLED)
	if err != nil {
		return err
	}
	if workingLEDWasOn {
		if err := i.gpio.Write(i.cfg.GPIO.WorkingLED, false); err != nil {
			return err
		}
	}
	if err := i.gpio.Write(i.cfg.GPIO.ErrorLED, true); err != nil {
		return err
	}

	code := []string{"N", "J", "S", "0005", strconv.Itoa(i.wedge0005)}
	for i.pump {
		// sent twice per outer iteration: the double-send makes the off
		// latch robust against a single dropped cycle.
		if err := i.sendSignalsLocked(code, i.cfg.PumpStopTimeout); err != nil {
			return err
		}
		if err := i.sendSignalsLocked(code, i.cfg.PumpStopTimeout); err != nil {
			return err
		}
	}

	if err := i.gpio.Write(i.cfg.GPIO.ErrorLED, false); err != nil {
		return err
	}
	if workingLEDWasOn {
		if err := i.gpio.Write(i.cfg.GPIO.WorkingLED, true); err != nil {
			return err
		}
	}
	return nil
}

// updatePumpAndWedgesLocked derives pump/wedge state from the signal set
// most recently accepted by valves_on.
func (i *Interface) updatePumpAndWedgesLocked(signals signalcodec.Set) {
	switch {
	case signals.Has("0075") || signals.HasAll("N", "K"):
		i.pump = true
	case signals.Has("0005") || signals.HasAll("N", "J"):
		i.pump = false
	}

	if signals.Has("0075") || signals.HasAll("N", "K") {
		i.wedge0075 = smallestRowCode(signals)
	}
	if signals.Has("0005") || signals.HasAll("N", "J") {
		i.wedge0005 = smallestRowCode(signals)
	}
}

func smallestRowCode(signals signalcodec.Set) int {
	for n := 1; n <= 14; n++ {
		if signals.Has(strconv.Itoa(n)) {
			return n
		}
	}
	return 15
}

// Justification runs the 0075/0005 wedge adjustment and optional galley
// trip sequence, preserving the pump's running state across the send.
// A nil pointer leaves the corresponding wedge position unchanged.
func (i *Interface) Justification(galleyTrip bool, wedge0005, wedge0075 *int) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	pumpWorking := i.pump
	currentWedge0005 := i.wedge0005
	currentWedge0075 := i.wedge0075
	new0005 := currentWedge0005
	if wedge0005 != nil {
		new0005 = *wedge0005
	}
	new0075 := currentWedge0075
	if wedge0075 != nil {
		new0075 = *wedge0075
	}

	sendDouble := func(code int) error {
		return i.sendSignalsLocked([]string{"N", "K", "J", "S", "0075", "0005", strconv.Itoa(code)}, 0)
	}
	send0005 := func() error {
		return i.sendSignalsLocked([]string{"N", "J", "S", "0005", strconv.Itoa(new0005)}, 0)
	}
	send0075 := func() error {
		return i.sendSignalsLocked([]string{"N", "K", "S", "0075", strconv.Itoa(new0075)}, 0)
	}

	switch {
	case galleyTrip && pumpWorking:
		if err := sendDouble(new0005); err != nil {
			return err
		}
		return send0075()
	case galleyTrip:
		if err := sendDouble(new0075); err != nil {
			return err
		}
		return send0005()
	case new0005 == currentWedge0005 && new0075 == currentWedge0075:
		return nil
	case pumpWorking:
		if err := send0005(); err != nil {
			return err
		}
		return send0075()
	default:
		if err := send0075(); err != nil {
			return err
		}
		return send0005()
	}
}
