package iface

import "github.com/elegantandrogyne/rpi2casterd/internal/apperr"

// OperationMode returns the resolved operation mode: the explicitly set
// value, or the configured default when unset.
func (i *Interface) OperationMode() string {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.operationModeLocked()
}

func (i *Interface) operationModeLocked() string {
	if i.operationMode == nil {
		return i.cfg.DefaultMode
	}
	return *i.operationMode
}

// SetOperationMode sets the operation mode to casting or punching; it
// must be present in the interface's supported_modes.
func (i *Interface) SetOperationMode(mode string) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	if mode != ModeCasting && mode != ModePunching {
		return apperr.UnsupportedMode(mode)
	}
	if !i.cfg.SupportedModes[mode] {
		return apperr.UnsupportedMode(mode)
	}
	i.operationMode = &mode
	return nil
}

// SetOperationModeTesting sets the operation mode to testing (the spec's
// "null" mode), always accepted.
func (i *Interface) SetOperationModeTesting() {
	i.mu.Lock()
	defer i.mu.Unlock()
	mode := ModeTesting
	i.operationMode = &mode
}

// ResetOperationMode reverts to the configured default mode.
func (i *Interface) ResetOperationMode() {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.operationMode = nil
}

// Row16Mode returns the resolved row-16 addressing mode: the explicitly
// set value, or the configured default when unset.
func (i *Interface) Row16Mode() string {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.row16ModeLocked()
}

func (i *Interface) row16ModeLocked() string {
	if i.row16Mode == nil {
		return i.cfg.DefaultRow16Mode
	}
	return *i.row16Mode
}

// SetRow16Mode sets the row-16 addressing mode to HMN, KMN or unit-shift.
// While the operation mode is casting, the value must additionally be
// present in supported_row16_modes.
func (i *Interface) SetRow16Mode(mode string) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	if mode != Row16HMN && mode != Row16KMN && mode != Row16UnitShift {
		return apperr.UnsupportedRow16(mode)
	}
	if i.operationModeLocked() == ModeCasting && !i.cfg.SupportedRow16Modes[mode] {
		return apperr.UnsupportedRow16(mode)
	}
	i.row16Mode = &mode
	return nil
}

// SetRow16ModeOff turns row-16 addressing off (the spec's "null" mode),
// allowed regardless of operation mode.
func (i *Interface) SetRow16ModeOff() {
	i.mu.Lock()
	defer i.mu.Unlock()
	mode := Row16Off
	i.row16Mode = &mode
}

// ResetRow16Mode reverts to the configured default row-16 mode.
func (i *Interface) ResetRow16Mode() {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.row16Mode = nil
}
