// Package apperr defines the error kinds an Interface can raise, per the
// daemon's error handling design: configuration errors are fatal at
// startup, the rest surface to the HTTP client without altering interface
// state (machine-stopped excepted, which always forces a teardown first).
package apperr

import (
	"errors"
	"fmt"
)

// Sentinel errors, one per kind. Wrap with fmt.Errorf("...: %w", Err*) to
// attach detail; unwrap with errors.Is to recover the kind.
var (
	ErrConfiguration       = errors.New("configuration error")
	ErrUnsupportedMode     = errors.New("unsupported mode")
	ErrUnsupportedRow16    = errors.New("unsupported row16 mode")
	ErrInterfaceBusy       = errors.New("interface busy")
	ErrInterfaceNotStarted = errors.New("interface not started")
	ErrMachineStopped      = errors.New("machine stopped")
)

// Configuration wraps ErrConfiguration with a detail message.
func Configuration(format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrConfiguration)
}

// UnsupportedMode wraps ErrUnsupportedMode naming the rejected mode.
func UnsupportedMode(mode string) error {
	return fmt.Errorf("%q: %w", mode, ErrUnsupportedMode)
}

// UnsupportedRow16 wraps ErrUnsupportedRow16 naming the rejected mode.
func UnsupportedRow16(mode string) error {
	return fmt.Errorf("%q: %w", mode, ErrUnsupportedRow16)
}

// Kind classifies err against the known sentinels, for HTTP status mapping.
// Returns nil if err doesn't match any known kind.
func Kind(err error) error {
	for _, sentinel := range []error{
		ErrConfiguration,
		ErrUnsupportedMode,
		ErrUnsupportedRow16,
		ErrInterfaceBusy,
		ErrInterfaceNotStarted,
		ErrMachineStopped,
	} {
		if errors.Is(err, sentinel) {
			return sentinel
		}
	}
	return nil
}
