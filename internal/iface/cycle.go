package iface

import (
	"time"

	"github.com/elegantandrogyne/rpi2casterd/internal/apperr"
	"github.com/elegantandrogyne/rpi2casterd/internal/signalcodec"
)

// SendSignals dispatches names across the current operation mode. timeout
// overrides the configured sensor timeout for a casting cycle when
// positive; it's ignored in the other modes.
func (i *Interface) SendSignals(names []string, timeout time.Duration) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.sendSignalsLocked(names, timeout)
}

func (i *Interface) sendSignalsLocked(names []string, timeout time.Duration) error {
	if !i.working {
		return apperr.ErrInterfaceNotStarted
	}
	set := signalcodec.NewSet(names...)
	switch i.operationModeLocked() {
	case ModeCasting:
		return i.castLocked(set, timeout)
	case ModePunching:
		return i.punchLocked(set)
	default:
		return i.testLocked(set)
	}
}

// castLocked is the Monotype composition caster cycle: wait for the
// sensor to rise, energize the valves, wait for it to fall, de-energize.
func (i *Interface) castLocked(signals signalcodec.Set, timeout time.Duration) error {
	if !i.startedInCastingMode {
		// machine_control(on) ran in a different mode; water/motor were
		// never started, so there is nothing to synchronize against.
		return apperr.ErrInterfaceNotStarted
	}
	codes := i.prepareSignalsLocked(signals)
	if timeout <= 0 {
		timeout = i.cfg.SensorTimeout
	}
	if err := i.waitForSensorLocked(true, timeout); err != nil {
		return err
	}
	if err := i.valvesControlOnLocked(codes); err != nil {
		return err
	}
	if err := i.waitForSensorLocked(false, timeout); err != nil {
		return err
	}
	return i.valvesControlOffLocked()
}

// punchLocked is the timer-driven ribbon perforator cycle.
func (i *Interface) punchLocked(signals signalcodec.Set) error {
	codes := i.prepareSignalsLocked(signals)
	if err := i.valvesControlOnLocked(codes); err != nil {
		return err
	}
	time.Sleep(i.cfg.PunchingOnTime)
	if err := i.valvesControlOffLocked(); err != nil {
		return err
	}
	time.Sleep(i.cfg.PunchingOffTime)
	return nil
}

// testLocked drops any previously energized combination before raising
// the new one, so two successive calls never overlap on the wire.
func (i *Interface) testLocked(signals signalcodec.Set) error {
	codes := i.prepareSignalsLocked(signals)
	if err := i.valvesControlOffLocked(); err != nil {
		return err
	}
	return i.valvesControlOnLocked(codes)
}

// prepareSignalsLocked applies the row-16 addressing conversion selected
// by the current row16 mode, then the O+15 transform selected by the
// current operation mode.
func (i *Interface) prepareSignalsLocked(source signalcodec.Set) signalcodec.Set {
	var afterRow16 signalcodec.Set
	switch i.row16ModeLocked() {
	case Row16HMN:
		afterRow16 = signalcodec.ConvertHMN(source)
	case Row16KMN:
		afterRow16 = signalcodec.ConvertKMN(source)
	case Row16UnitShift:
		afterRow16 = signalcodec.ConvertUnitShift(source)
	default:
		afterRow16 = signalcodec.StripSixteen(source)
	}

	switch i.operationModeLocked() {
	case ModeCasting:
		return signalcodec.StripO15(afterRow16)
	case ModePunching:
		return signalcodec.AddMissingO15(afterRow16)
	default:
		return signalcodec.ConvertO15(afterRow16)
	}
}

// ValvesOn energizes exactly the named valves, running through the
// emergency-stop guard, and returns the resulting canonical signal list.
func (i *Interface) ValvesOn(names []string) ([]string, error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if err := i.valvesControlOnLocked(signalcodec.NewSet(names...)); err != nil {
		return nil, err
	}
	return signalcodec.OrderedSignals(i.signals, i.order), nil
}

// ValvesOff de-energizes every valve. signals is left untouched: pump
// inference may still need the last commanded set.
func (i *Interface) ValvesOff() ([]string, error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if err := i.valvesControlOffLocked(); err != nil {
		return nil, err
	}
	return signalcodec.OrderedSignals(i.signals, i.order), nil
}

// Signals returns the canonically ordered signal list most recently
// commanded, without changing any hardware state.
func (i *Interface) Signals() []string {
	i.mu.Lock()
	defer i.mu.Unlock()
	return signalcodec.OrderedSignals(i.signals, i.order)
}

func (i *Interface) valvesControlOnLocked(signals signalcodec.Set) error {
	return i.guarded(func() error {
		if err := i.bank.ValvesOn(signals); err != nil {
			return err
		}
		i.updatePumpAndWedgesLocked(signals)
		i.signals = signals.Clone()
		return nil
	})
}

func (i *Interface) valvesControlOffLocked() error {
	return i.guarded(func() error {
		return i.bank.ValvesOff()
	})
}
