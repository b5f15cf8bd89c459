package iface

import "github.com/elegantandrogyne/rpi2casterd/internal/apperr"

// guarded wraps op with the emergency-stop envelope (§4.5, §5): it polls
// the latched emergency-stop edge before and after op runs. Cooperative
// cancellation only: op itself can't be interrupted mid-sleep, but no
// further sub-step runs once an edge has been observed. Callers must
// already hold mu; guarded calls machineControlOffLocked itself so it
// never re-enters the public, locking MachineControl.
func (i *Interface) guarded(op func() error) error {
	if i.emergencyStopPending() {
		i.machineControlOffLocked()
		return apperr.ErrMachineStopped
	}
	if err := op(); err != nil {
		return err
	}
	if i.emergencyStopPending() {
		i.machineControlOffLocked()
		return apperr.ErrMachineStopped
	}
	return nil
}

func (i *Interface) emergencyStopPending() bool {
	return i.gpio.EventDetected(i.cfg.GPIO.EmergencyStop)
}
