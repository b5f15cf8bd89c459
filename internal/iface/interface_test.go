package iface

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewInterfaceDefaultState(t *testing.T) {
	cfg := testInterfaceConfig()
	i, _, _ := newTestInterface(cfg)

	state := i.State()
	assert.False(t, state.Working)
	assert.Equal(t, 15, state.Wedge0005)
	assert.Equal(t, 15, state.Wedge0075)
	assert.Empty(t, state.Signals)
	assert.Equal(t, cfg.DefaultMode, state.OperationMode)
	assert.Equal(t, cfg.DefaultRow16Mode, state.Row16Mode)
}

func TestSensorEdgeUpdatesStateAndRPM(t *testing.T) {
	cfg := testInterfaceConfig()
	i, gpio, _ := newTestInterface(cfg)

	assert.Equal(t, float64(0), i.RPM())

	gpio.triggerEdge(cfg.GPIO.Sensor, true)
	assert.True(t, i.State().Sensor)
	gpio.triggerEdge(cfg.GPIO.Sensor, false)
	assert.False(t, i.State().Sensor)

	// fewer than two rising edges: still zero.
	assert.Equal(t, float64(0), i.RPM())
}
