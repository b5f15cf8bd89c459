package iface

import "time"

// onSensorEdge runs on the GPIO library's own dispatch goroutine. It
// records the current sensor level and, on a rising edge, feeds the RPM
// meter, per §5 ("the sensor edge callback updates state.sensor and
// appends to meter_events").
func (i *Interface) onSensorEdge(rising bool, ts time.Time) {
	i.setSensorValue(rising)
	if rising {
		i.meter.RecordRisingEdge(ts)
	}
}

// onEmergencyStopEdge only exists to satisfy gpioctl's one-registration-
// per-line requirement; the actual latch is read through
// gpioctl.Port.EventDetected by the emergency-stop guard, not through this
// callback.
func (i *Interface) onEmergencyStopEdge(rising bool, ts time.Time) {
}
