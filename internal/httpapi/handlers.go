package httpapi

import (
	"time"

	"github.com/gofiber/fiber/v2"
)

// modeRequest covers both operation_mode and row16_mode requests. The
// sentinel "reset" reverts to the configured default; a missing/empty
// Mode or "off" selects the null mode (testing for operation_mode, row-16
// addressing off for row16_mode). Each maps to its own explicit
// Interface method rather than a single overloaded setter.
type modeRequest struct {
	Mode string `json:"mode"`
}

func (s *Server) postOperationMode(c *fiber.Ctx) error {
	var req modeRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	i := currentInterface(c)

	switch req.Mode {
	case "reset":
		i.ResetOperationMode()
	case "", "off", "testing":
		i.SetOperationModeTesting()
	default:
		if err := i.SetOperationMode(req.Mode); err != nil {
			return writeError(c, err)
		}
	}
	return c.JSON(i.State())
}

func (s *Server) postRow16Mode(c *fiber.Ctx) error {
	var req modeRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	i := currentInterface(c)

	switch req.Mode {
	case "reset":
		i.ResetRow16Mode()
	case "", "off":
		i.SetRow16ModeOff()
	default:
		if err := i.SetRow16Mode(req.Mode); err != nil {
			return writeError(c, err)
		}
	}
	return c.JSON(i.State())
}

type stateRequest struct {
	State *bool `json:"state"`
}

func (s *Server) postMachineControl(c *fiber.Ctx) error {
	var req stateRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	i := currentInterface(c)

	switch {
	case req.State == nil:
		// status query only
	case *req.State:
		if err := i.MachineControlOn(); err != nil {
			return writeError(c, err)
		}
	default:
		i.MachineControlOff()
	}
	return c.JSON(fiber.Map{"working": i.Working()})
}

func (s *Server) postPumpControl(c *fiber.Ctx) error {
	var req stateRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	i := currentInterface(c)

	switch {
	case req.State == nil:
	case *req.State:
		if err := i.PumpControlOn(); err != nil {
			return writeError(c, err)
		}
	default:
		if err := i.PumpControlOff(); err != nil {
			return writeError(c, err)
		}
	}
	return c.JSON(fiber.Map{"pump": i.Pump()})
}

type valvesRequest struct {
	Signals []string `json:"signals"`
	Off     bool     `json:"off"`
}

func (s *Server) postValvesControl(c *fiber.Ctx) error {
	var req valvesRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	i := currentInterface(c)

	var (
		signals []string
		err     error
	)
	switch {
	case req.Off:
		signals, err = i.ValvesOff()
	case len(req.Signals) > 0:
		signals, err = i.ValvesOn(req.Signals)
	default:
		signals = i.Signals()
	}
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{"signals": signals})
}

type justificationRequest struct {
	GalleyTrip bool `json:"galley_trip"`
	Wedge0005  *int `json:"wedge_0005"`
	Wedge0075  *int `json:"wedge_0075"`
}

func (s *Server) postJustification(c *fiber.Ctx) error {
	var req justificationRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	i := currentInterface(c)
	if err := i.Justification(req.GalleyTrip, req.Wedge0005, req.Wedge0075); err != nil {
		return writeError(c, err)
	}
	return c.JSON(i.State())
}

type sendSignalsRequest struct {
	Signals []string `json:"signals"`
	Timeout *float64 `json:"timeout"`
}

func (s *Server) postSendSignals(c *fiber.Ctx) error {
	var req sendSignalsRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	var timeout time.Duration
	if req.Timeout != nil {
		timeout = time.Duration(*req.Timeout * float64(time.Second))
	}
	i := currentInterface(c)
	if err := i.SendSignals(req.Signals, timeout); err != nil {
		return writeError(c, err)
	}
	return c.JSON(i.State())
}
