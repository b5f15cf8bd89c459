package iface

import (
	"time"

	"github.com/elegantandrogyne/rpi2casterd/internal/apperr"
	"github.com/elegantandrogyne/rpi2casterd/internal/signalcodec"
)

// MachineControlOn starts the machine: it is a no-op error path if the
// interface already owns it. Casting additionally requires the machine to
// actually be turning before the call returns.
func (i *Interface) MachineControlOn() error {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.working {
		return apperr.ErrInterfaceBusy
	}

	i.meter.Clear()
	if err := i.airControlLocked(true); err != nil {
		return err
	}

	if i.operationModeLocked() == ModeCasting {
		if err := i.waterControlLocked(true); err != nil {
			return err
		}
		if err := i.motorControlLocked(true); err != nil {
			return err
		}
		if err := i.checkRotationLocked(); err != nil {
			return err
		}
		// startedInCastingMode resolves the open question of §9: casting
		// cycle work is only permitted for the duration of a start that was
		// itself in casting mode, not a later mode switch.
		i.startedInCastingMode = true
	} else {
		i.startedInCastingMode = false
	}

	if err := i.gpio.Write(i.cfg.GPIO.WorkingLED, true); err != nil {
		return err
	}
	i.working = true
	return nil
}

// MachineControlOff stops the machine. Idempotent: stopping an already
// stopped interface is a no-op.
func (i *Interface) MachineControlOff() {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.machineControlOffLocked()
}

// Working reports whether the interface currently owns the machine.
func (i *Interface) Working() bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.working
}

func (i *Interface) machineControlOffLocked() {
	if !i.working {
		return
	}
	if err := i.pumpControlOffLocked(); err != nil {
		i.log.Warnw("pump did not confirm stop while stopping machine", "interface", i.name, "error", err)
	}
	if err := i.valvesControlOffLocked(); err != nil {
		i.log.Warnw("valves off failed while stopping machine", "interface", i.name, "error", err)
	}
	i.signals = signalcodec.NewSet()

	if i.startedInCastingMode {
		if err := i.motorControlLocked(false); err != nil {
			i.log.Warnw("motor off failed while stopping machine", "interface", i.name, "error", err)
		}
		if err := i.waterControlLocked(false); err != nil {
			i.log.Warnw("water off failed while stopping machine", "interface", i.name, "error", err)
		}
	}
	if err := i.airControlLocked(false); err != nil {
		i.log.Warnw("air off failed while stopping machine", "interface", i.name, "error", err)
	}
	if err := i.gpio.Write(i.cfg.GPIO.WorkingLED, false); err != nil {
		i.log.Warnw("working led off failed while stopping machine", "interface", i.name, "error", err)
	}
	i.working = false
	i.startedInCastingMode = false
}

// checkRotationLocked confirms the machine is actually turning before
// casting proceeds: three full revolutions, sensor ON then OFF each time.
func (i *Interface) checkRotationLocked() error {
	for n := 0; n < 3; n++ {
		if err := i.waitForSensorLocked(true, i.cfg.StartupTimeout); err != nil {
			return err
		}
		if err := i.waitForSensorLocked(false, i.cfg.StartupTimeout); err != nil {
			return err
		}
	}
	return nil
}

// waitForSensorLocked busy-waits at 10ms granularity for the sensor to
// reach desired. Every iteration also polls the emergency-stop latch;
// either a detected edge or a timed-out wait forces the machine off and
// reports machine-stopped.
func (i *Interface) waitForSensorLocked(desired bool, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for {
		if i.emergencyStopPending() {
			i.machineControlOffLocked()
			return apperr.ErrMachineStopped
		}
		if i.sensorValue() == desired {
			return nil
		}
		if time.Now().After(deadline) {
			i.machineControlOffLocked()
			return apperr.ErrMachineStopped
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func (i *Interface) airControlLocked(on bool) error {
	return i.guarded(func() error {
		if err := i.gpio.Write(i.cfg.GPIO.Air, on); err != nil {
			return err
		}
		i.air = on
		return nil
	})
}

func (i *Interface) waterControlLocked(on bool) error {
	return i.guarded(func() error {
		if err := i.gpio.Write(i.cfg.GPIO.Water, on); err != nil {
			return err
		}
		i.water = on
		return nil
	})
}

// motorControlLocked pulses the start or stop solenoid for 0.5s, the
// physical interlock's confirmed hold time.
func (i *Interface) motorControlLocked(on bool) error {
	return i.guarded(func() error {
		line := i.cfg.GPIO.MotorStop
		if on {
			line = i.cfg.GPIO.MotorStart
		}
		if err := i.gpio.Write(line, true); err != nil {
			return err
		}
		time.Sleep(500 * time.Millisecond)
		if err := i.gpio.Write(line, false); err != nil {
			return err
		}
		i.motor = on
		if !on {
			i.meter.Clear()
		}
		return nil
	})
}
