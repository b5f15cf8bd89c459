// Package httpapi is the JSON/HTTP façade over one or more Interfaces: it
// parses requests, calls the matching Interface method, and encodes the
// result (or a classified error) as a response.
package httpapi

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/elegantandrogyne/rpi2casterd/internal/apperr"
	"github.com/elegantandrogyne/rpi2casterd/internal/iface"
)

// Interface is the subset of *iface.Interface the façade calls; narrowed
// to an interface so handlers can be tested against a fake.
type Interface interface {
	Name() string
	State() iface.State
	RPM() float64

	SetOperationMode(mode string) error
	SetOperationModeTesting()
	ResetOperationMode()

	SetRow16Mode(mode string) error
	SetRow16ModeOff()
	ResetRow16Mode()

	MachineControlOn() error
	MachineControlOff()
	Working() bool

	PumpControlOn() error
	PumpControlOff() error
	Pump() bool

	ValvesOn(names []string) ([]string, error)
	ValvesOff() ([]string, error)
	Signals() []string

	Justification(galleyTrip bool, wedge0005, wedge0075 *int) error

	SendSignals(names []string, timeout time.Duration) error
}

// Server is the fiber-backed JSON façade for a set of named interfaces.
type Server struct {
	app        *fiber.App
	interfaces map[string]Interface
	log        *zap.SugaredLogger
}

// New builds a Server with one route group per named interface.
func New(interfaces map[string]Interface, log *zap.SugaredLogger) *Server {
	s := &Server{
		app:        fiber.New(fiber.Config{DisableStartupMessage: true}),
		interfaces: interfaces,
		log:        log,
	}
	s.routes()
	return s
}

// Listen blocks serving addr until the server is shut down or an
// unrecoverable transport error occurs.
func (s *Server) Listen(addr string) error {
	return s.app.Listen(addr)
}

// Shutdown gracefully stops the listener.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

func (s *Server) routes() {
	g := s.app.Group("/interfaces/:name")
	g.Use(s.resolveInterface)

	g.Get("/state", s.getState)
	g.Get("/rpm", s.getRPM)
	g.Post("/operation_mode", s.postOperationMode)
	g.Post("/row16_mode", s.postRow16Mode)
	g.Post("/machine_control", s.postMachineControl)
	g.Post("/pump_control", s.postPumpControl)
	g.Post("/valves_control", s.postValvesControl)
	g.Post("/justification", s.postJustification)
	g.Post("/send_signals", s.postSendSignals)
}

const interfaceLocalsKey = "interface"

func (s *Server) resolveInterface(c *fiber.Ctx) error {
	name := c.Params("name")
	i, ok := s.interfaces[name]
	if !ok {
		return fiber.NewError(fiber.StatusNotFound, "unknown interface "+name)
	}
	c.Locals(interfaceLocalsKey, i)
	return c.Next()
}

func currentInterface(c *fiber.Ctx) Interface {
	return c.Locals(interfaceLocalsKey).(Interface)
}

// writeError classifies err by apperr kind and writes the matching HTTP
// status, per the daemon's error propagation design: configuration
// errors never reach this layer at runtime, unsupported-* and busy/not-
// started are 4xx, machine-stopped is 503 (the interface is left
// stopped and re-startable).
func writeError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, apperr.ErrUnsupportedMode), errors.Is(err, apperr.ErrUnsupportedRow16):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, apperr.ErrInterfaceBusy), errors.Is(err, apperr.ErrInterfaceNotStarted):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, apperr.ErrMachineStopped):
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": err.Error()})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
}

func (s *Server) getState(c *fiber.Ctx) error {
	return c.JSON(currentInterface(c).State())
}

func (s *Server) getRPM(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"rpm": currentInterface(c).RPM()})
}
