package config

import (
	"net"
	"strconv"
	"strings"
	"time"

	"gopkg.in/ini.v1"

	"github.com/elegantandrogyne/rpi2casterd/internal/apperr"
	"github.com/elegantandrogyne/rpi2casterd/internal/valvebank"
)

// defaultValues mirrors the original daemon's built-in defaults, applied
// for any key a loaded config file doesn't set, so a minimal file still
// produces a usable configuration. A missing file is a configuration
// error (see Load).
var defaultValues = map[string]string{
	"listen_address":         "0.0.0.0:23017",
	"output_driver":           "smbus",
	"shutdown_gpio":           "24",
	"shutdown_command":        "shutdown -h now",
	"reboot_gpio":             "23",
	"reboot_command":          "shutdown -r now",
	"startup_timeout":         "30",
	"sensor_timeout":          "5",
	"pump_stop_timeout":       "120",
	"punching_on_time":        "0.2",
	"punching_off_time":       "0.3",
	"debounce_milliseconds":   "25",
	"ready_led_gpio":          "18",
	"sensor_gpio":             "17",
	"working_led_gpio":        "25",
	"error_led_gpio":          "26",
	"air_gpio":                "19",
	"water_gpio":              "13",
	"emergency_stop_gpio":     "22",
	"motor_start_gpio":        "5",
	"motor_stop_gpio":         "6",
	"i2c_bus":                 "1",
	"mcp0_address":            "0x20",
	"mcp1_address":            "0x21",
	"valve1":                  "N,M,L,K,J,I,H,G",
	"valve2":                  "F,S,E,D,0075,C,B,A",
	"valve3":                  "1,2,3,4,5,6,7,8",
	"valve4":                  "9,10,11,12,13,14,0005,O15",
	"supported_modes":         "casting,punching",
	"supported_row16_modes":   "HMN,KMN,unit-shift",
	"default_mode":            "casting",
	"default_row16_mode":      "",
}

// GPIOLines names every GPIO line an Interface owns.
type GPIOLines struct {
	Sensor        int
	EmergencyStop int
	ErrorLED      int
	WorkingLED    int
	Air           int
	Water         int
	MotorStart    int
	MotorStop     int
}

// InterfaceConfig is the immutable configuration for one named Interface.
type InterfaceConfig struct {
	Name                string
	GPIO                GPIOLines
	I2CBus              int
	MCP0Addr            uint16
	MCP1Addr            uint16
	Valve1              [8]string
	Valve2              [8]string
	Valve3              [8]string
	Valve4              [8]string
	StartupTimeout      time.Duration
	SensorTimeout       time.Duration
	PumpStopTimeout     time.Duration
	PunchingOnTime      time.Duration
	PunchingOffTime     time.Duration
	Debounce            time.Duration
	DefaultMode         string
	DefaultRow16Mode    string
	SupportedModes      map[string]bool
	SupportedRow16Modes map[string]bool
	OutputDriver        string
}

// ValveBankConfig projects the wiring portion of the configuration into
// the shape the valvebank package wants.
func (c *InterfaceConfig) ValveBankConfig() valvebank.Config {
	return valvebank.Config{
		I2CBus: c.I2CBus,
		Addr0:  c.MCP0Addr,
		Addr1:  c.MCP1Addr,
		Valve1: valvebank.Tuple(c.Valve1),
		Valve2: valvebank.Tuple(c.Valve2),
		Valve3: valvebank.Tuple(c.Valve3),
		Valve4: valvebank.Tuple(c.Valve4),
	}
}

// OrderedSignalNames is the canonical signal ordering for this interface.
func (c *InterfaceConfig) OrderedSignalNames() []string {
	return c.ValveBankConfig().OrderedNames()
}

// DaemonConfig is the process-wide configuration (§6 [DEFAULT] section).
type DaemonConfig struct {
	ListenAddress   string
	ReadyLEDGPIO    int
	ShutdownGPIO    int
	ShutdownCommand []string
	RebootGPIO      int
	RebootCommand   []string
	DebounceMillis  int
}

// Config is the fully parsed configuration file.
type Config struct {
	Daemon     DaemonConfig
	Interfaces map[string]*InterfaceConfig
}

// lookup resolves key from section, falling back to the built-in default
// when neither the section nor the file's own [DEFAULT] provides it.
type lookup struct {
	section *ini.Section
}

func (l lookup) get(key string) string {
	if l.section.HasKey(key) {
		if v := l.section.Key(key).String(); v != "" {
			return v
		}
	}
	return defaultValues[key]
}

// Load reads and parses path.
func Load(path string) (*Config, error) {
	file, err := ini.LoadSources(ini.LoadOptions{AllowBooleanKeys: true}, path)
	if err != nil {
		return nil, apperr.Configuration("reading %s: %v", path, err)
	}

	defaultSection := file.Section(ini.DefaultSection)
	daemon, err := parseDaemonConfig(lookup{section: defaultSection})
	if err != nil {
		return nil, err
	}

	interfaces := make(map[string]*InterfaceConfig)
	for _, section := range file.Sections() {
		if section.Name() == ini.DefaultSection {
			continue
		}
		ifaceCfg, err := parseInterfaceConfig(section.Name(), lookup{section: section})
		if err != nil {
			return nil, err
		}
		interfaces[strings.ToLower(strings.TrimSpace(section.Name()))] = ifaceCfg
	}

	return &Config{Daemon: *daemon, Interfaces: interfaces}, nil
}

func parseDaemonConfig(l lookup) (*DaemonConfig, error) {
	host, port, err := AddressAndPort(l.get("listen_address"))
	if err != nil {
		return nil, err
	}

	readyLED, err := ParseInt(l.get("ready_led_gpio"))
	if err != nil {
		return nil, err
	}
	shutdownGPIO, err := ParseInt(l.get("shutdown_gpio"))
	if err != nil {
		return nil, err
	}
	rebootGPIO, err := ParseInt(l.get("reboot_gpio"))
	if err != nil {
		return nil, err
	}
	shutdownCmd, err := ParseCommand(l.get("shutdown_command"))
	if err != nil {
		return nil, err
	}
	rebootCmd, err := ParseCommand(l.get("reboot_command"))
	if err != nil {
		return nil, err
	}
	debounce, err := ParseInt(l.get("debounce_milliseconds"))
	if err != nil {
		return nil, err
	}

	return &DaemonConfig{
		ListenAddress:   net.JoinHostPort(host, strconv.Itoa(int(port))),
		ReadyLEDGPIO:    readyLED,
		ShutdownGPIO:    shutdownGPIO,
		ShutdownCommand: shutdownCmd,
		RebootGPIO:      rebootGPIO,
		RebootCommand:   rebootCmd,
		DebounceMillis:  debounce,
	}, nil
}

func parseInterfaceConfig(name string, l lookup) (*InterfaceConfig, error) {
	debounceMillis, err := ParseInt(l.get("debounce_milliseconds"))
	if err != nil {
		return nil, err
	}
	startupTimeout, err := ParseDuration(l.get("startup_timeout"))
	if err != nil {
		return nil, err
	}
	sensorTimeout, err := ParseDuration(l.get("sensor_timeout"))
	if err != nil {
		return nil, err
	}
	pumpStopTimeout, err := ParseDuration(l.get("pump_stop_timeout"))
	if err != nil {
		return nil, err
	}
	punchingOn, err := ParseDuration(l.get("punching_on_time"))
	if err != nil {
		return nil, err
	}
	punchingOff, err := ParseDuration(l.get("punching_off_time"))
	if err != nil {
		return nil, err
	}
	i2cBus, err := ParseInt(l.get("i2c_bus"))
	if err != nil {
		return nil, err
	}
	mcp0, err := ParseInt(l.get("mcp0_address"))
	if err != nil {
		return nil, err
	}
	mcp1, err := ParseInt(l.get("mcp1_address"))
	if err != nil {
		return nil, err
	}

	gpio, err := parseGPIOLines(l)
	if err != nil {
		return nil, err
	}

	outputDriver := l.get("output_driver")
	if outputDriver != "smbus" && outputDriver != "wiringpi" {
		return nil, apperr.Configuration("unknown output driver %q", outputDriver)
	}

	return &InterfaceConfig{
		Name:                name,
		GPIO:                gpio,
		I2CBus:              i2cBus,
		MCP0Addr:            uint16(mcp0),
		MCP1Addr:            uint16(mcp1),
		Valve1:              ParseTuple(l.get("valve1")),
		Valve2:              ParseTuple(l.get("valve2")),
		Valve3:              ParseTuple(l.get("valve3")),
		Valve4:              ParseTuple(l.get("valve4")),
		StartupTimeout:      startupTimeout,
		SensorTimeout:       sensorTimeout,
		PumpStopTimeout:     pumpStopTimeout,
		PunchingOnTime:      punchingOn,
		PunchingOffTime:     punchingOff,
		Debounce:            time.Duration(debounceMillis) * time.Millisecond,
		DefaultMode:         strings.TrimSpace(l.get("default_mode")),
		DefaultRow16Mode:    strings.TrimSpace(l.get("default_row16_mode")),
		SupportedModes:      ParseSet(l.get("supported_modes")),
		SupportedRow16Modes: ParseSet(l.get("supported_row16_modes")),
		OutputDriver:        outputDriver,
	}, nil
}

func parseGPIOLines(l lookup) (GPIOLines, error) {
	fields := map[string]*int{}
	var g GPIOLines
	fields["sensor_gpio"] = &g.Sensor
	fields["emergency_stop_gpio"] = &g.EmergencyStop
	fields["error_led_gpio"] = &g.ErrorLED
	fields["working_led_gpio"] = &g.WorkingLED
	fields["air_gpio"] = &g.Air
	fields["water_gpio"] = &g.Water
	fields["motor_start_gpio"] = &g.MotorStart
	fields["motor_stop_gpio"] = &g.MotorStop
	for key, dst := range fields {
		v, err := ParseInt(l.get(key))
		if err != nil {
			return GPIOLines{}, err
		}
		*dst = v
	}
	return g, nil
}
