package rpmmeter

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRPMTooFewSamples(t *testing.T) {
	m := New(5 * time.Second)
	assert.Equal(t, float64(0), m.RPM())
	m.RecordRisingEdge(time.Unix(0, 0))
	assert.Equal(t, float64(0), m.RPM())
}

func TestRPMComputation(t *testing.T) {
	m := New(5 * time.Second)
	base := time.Unix(100, 0)
	m.RecordRisingEdge(base)
	m.RecordRisingEdge(base.Add(500 * time.Millisecond))
	m.RecordRisingEdge(base.Add(1 * time.Second))
	// 3 events spanning 1s = 2 revolutions/second = 120 rpm
	assert.Equal(t, 120.0, m.RPM())
}

func TestRPMExceedsTimeout(t *testing.T) {
	m := New(1 * time.Second)
	base := time.Unix(100, 0)
	m.RecordRisingEdge(base)
	m.RecordRisingEdge(base.Add(2 * time.Second))
	assert.Equal(t, float64(0), m.RPM())
}

func TestRPMZeroSpan(t *testing.T) {
	m := New(5 * time.Second)
	base := time.Unix(100, 0)
	m.RecordRisingEdge(base)
	m.RecordRisingEdge(base)
	assert.Equal(t, float64(0), m.RPM())
}

func TestRingBufferCapacity(t *testing.T) {
	m := New(5 * time.Second)
	base := time.Unix(100, 0)
	for i := 0; i < 5; i++ {
		m.RecordRisingEdge(base.Add(time.Duration(i) * time.Second))
	}
	assert.Equal(t, 3, m.Len())
}

func TestClear(t *testing.T) {
	m := New(5 * time.Second)
	m.RecordRisingEdge(time.Now())
	m.Clear()
	assert.Equal(t, 0, m.Len())
}
