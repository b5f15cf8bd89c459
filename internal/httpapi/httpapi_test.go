package httpapi

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/elegantandrogyne/rpi2casterd/internal/apperr"
	"github.com/elegantandrogyne/rpi2casterd/internal/iface"
)

type fakeInterface struct {
	name          string
	working       bool
	pump          bool
	signals       []string
	sendErr       error
	machineOnErr  error
	lastSentCodes []string
}

func (f *fakeInterface) Name() string       { return f.name }
func (f *fakeInterface) State() iface.State { return iface.State{Working: f.working, Pump: f.pump, Signals: f.signals} }
func (f *fakeInterface) RPM() float64       { return 42.5 }

func (f *fakeInterface) SetOperationMode(mode string) error { return nil }
func (f *fakeInterface) SetOperationModeTesting()           {}
func (f *fakeInterface) ResetOperationMode()                {}

func (f *fakeInterface) SetRow16Mode(mode string) error { return nil }
func (f *fakeInterface) SetRow16ModeOff()               {}
func (f *fakeInterface) ResetRow16Mode()                {}

func (f *fakeInterface) MachineControlOn() error {
	if f.machineOnErr != nil {
		return f.machineOnErr
	}
	f.working = true
	return nil
}
func (f *fakeInterface) MachineControlOff() { f.working = false }
func (f *fakeInterface) Working() bool      { return f.working }

func (f *fakeInterface) PumpControlOn() error  { f.pump = true; return nil }
func (f *fakeInterface) PumpControlOff() error { f.pump = false; return nil }
func (f *fakeInterface) Pump() bool            { return f.pump }

func (f *fakeInterface) ValvesOn(names []string) ([]string, error) {
	f.signals = names
	return names, nil
}
func (f *fakeInterface) ValvesOff() ([]string, error) { return f.signals, nil }
func (f *fakeInterface) Signals() []string            { return f.signals }

func (f *fakeInterface) Justification(galleyTrip bool, wedge0005, wedge0075 *int) error {
	return nil
}

func (f *fakeInterface) SendSignals(names []string, timeout time.Duration) error {
	if f.sendErr != nil {
		return f.sendErr
	}
	f.lastSentCodes = names
	f.signals = names
	return nil
}

func newTestServer(i *fakeInterface) *Server {
	return New(map[string]Interface{i.name: i}, zap.NewNop().Sugar())
}

func doRequest(t *testing.T, s *Server, method, path string, body any) *http.Response {
	t.Helper()
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func TestGetStateUnknownInterface(t *testing.T) {
	s := newTestServer(&fakeInterface{name: "caster1"})
	resp := doRequest(t, s, http.MethodGet, "/interfaces/nope/state", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestGetState(t *testing.T) {
	s := newTestServer(&fakeInterface{name: "caster1", working: true})
	resp := doRequest(t, s, http.MethodGet, "/interfaces/caster1/state", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var state iface.State
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&state))
	assert.True(t, state.Working)
}

func TestPostMachineControlOn(t *testing.T) {
	s := newTestServer(&fakeInterface{name: "caster1"})
	on := true
	resp := doRequest(t, s, http.MethodPost, "/interfaces/caster1/machine_control", map[string]any{"state": on})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestPostMachineControlBusyMapsTo409(t *testing.T) {
	fake := &fakeInterface{name: "caster1", machineOnErr: apperr.ErrInterfaceBusy}
	s := newTestServer(fake)
	on := true
	resp := doRequest(t, s, http.MethodPost, "/interfaces/caster1/machine_control", map[string]any{"state": on})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestPostSendSignalsMachineStoppedMapsTo503(t *testing.T) {
	fake := &fakeInterface{name: "caster1", working: true, sendErr: apperr.ErrMachineStopped}
	s := newTestServer(fake)
	resp := doRequest(t, s, http.MethodPost, "/interfaces/caster1/send_signals", map[string]any{"signals": []string{"G"}})
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestPostValvesControlOn(t *testing.T) {
	fake := &fakeInterface{name: "caster1"}
	s := newTestServer(fake)
	resp := doRequest(t, s, http.MethodPost, "/interfaces/caster1/valves_control", map[string]any{"signals": []string{"G"}})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, []string{"G"}, fake.signals)
}
