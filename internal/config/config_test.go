package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleConfig = `
[DEFAULT]
listen_address = 0.0.0.0:23017
output_driver = smbus
sensor_timeout = 5
startup_timeout = 30
pump_stop_timeout = 120
punching_on_time = 0.2
punching_off_time = 0.3
debounce_milliseconds = 25
ready_led_gpio = 18
sensor_gpio = 17
working_led_gpio = 25
error_led_gpio = 26
air_gpio = 19
water_gpio = 13
emergency_stop_gpio = 22
motor_start_gpio = 5
motor_stop_gpio = 6
i2c_bus = 1
mcp0_address = 0x20
mcp1_address = 0x21
valve1 = N,M,L,K,J,I,H,G
valve2 = F,S,E,D,0075,C,B,A
valve3 = 1,2,3,4,5,6,7,8
valve4 = 9,10,11,12,13,14,0005,O15
supported_modes = casting, punching
supported_row16_modes = HMN, KMN, unit-shift
default_mode = casting
default_row16_mode =
shutdown_gpio = 24
shutdown_command = shutdown -h now
reboot_gpio = 23
reboot_command = shutdown -r now

[caster1]
default_mode = casting
`

func writeSample(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "rpi2casterd.conf")
	require.NoError(t, os.WriteFile(path, []byte(sampleConfig), 0o644))
	return path
}

func TestLoadParsesDaemonAndInterface(t *testing.T) {
	cfg, err := Load(writeSample(t))
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:23017", cfg.Daemon.ListenAddress)
	assert.Equal(t, 24, cfg.Daemon.ShutdownGPIO)
	assert.Equal(t, []string{"shutdown", "-h", "now"}, cfg.Daemon.ShutdownCommand)

	iface, ok := cfg.Interfaces["caster1"]
	require.True(t, ok)
	assert.Equal(t, 17, iface.GPIO.Sensor)
	assert.Equal(t, 22, iface.GPIO.EmergencyStop)
	assert.Equal(t, 5*time.Second, iface.SensorTimeout)
	assert.Equal(t, 200*time.Millisecond, iface.PunchingOnTime)
	assert.True(t, iface.SupportedModes["casting"])
	assert.True(t, iface.SupportedRow16Modes["HMN"])
	assert.Equal(t, "smbus", iface.OutputDriver)
	assert.Equal(t, uint16(0x20), iface.MCP0Addr)
	assert.Equal(t, [8]string{"N", "M", "L", "K", "J", "I", "H", "G"}, iface.Valve1)
}

func TestLoadRejectsUnknownOutputDriver(t *testing.T) {
	bad := sampleConfig + "\n[caster2]\noutput_driver = bogus\n"
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.conf")
	require.NoError(t, os.WriteFile(path, []byte(bad), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestParseTuplePadsShortLists(t *testing.T) {
	assert.Equal(t, [8]string{"A", "B", "", "", "", "", "", ""}, ParseTuple("A,B"))
}

func TestAddressAndPort(t *testing.T) {
	host, port, err := AddressAndPort("0.0.0.0:23017")
	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0", host)
	assert.Equal(t, uint16(23017), port)

	_, _, err = AddressAndPort("not-an-address")
	assert.Error(t, err)
}

func TestParseCommandTokenizesQuotedArgs(t *testing.T) {
	argv, err := ParseCommand(`shutdown -h "now please"`)
	require.NoError(t, err)
	assert.Equal(t, []string{"shutdown", "-h", "now please"}, argv)
}
