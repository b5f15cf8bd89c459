package iface

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elegantandrogyne/rpi2casterd/internal/apperr"
)

func TestOperationModeResetReturnsDefault(t *testing.T) {
	cfg := testInterfaceConfig()
	i, _, _ := newTestInterface(cfg)

	require.NoError(t, i.SetOperationMode(ModePunching))
	assert.Equal(t, ModePunching, i.OperationMode())

	i.ResetOperationMode()
	assert.Equal(t, cfg.DefaultMode, i.OperationMode())
}

func TestOperationModeRejectsUnsupported(t *testing.T) {
	cfg := testInterfaceConfig()
	cfg.SupportedModes = map[string]bool{ModeCasting: true}
	i, _, _ := newTestInterface(cfg)

	err := i.SetOperationMode(ModePunching)
	assert.ErrorIs(t, err, apperr.ErrUnsupportedMode)
}

func TestRow16ModeRestrictedOnlyWhileCasting(t *testing.T) {
	cfg := testInterfaceConfig()
	cfg.SupportedRow16Modes = map[string]bool{Row16HMN: true}
	i, _, _ := newTestInterface(cfg)

	require.NoError(t, i.SetOperationMode(ModePunching))
	assert.NoError(t, i.SetRow16Mode(Row16KMN))

	require.NoError(t, i.SetOperationMode(ModeCasting))
	assert.ErrorIs(t, i.SetRow16Mode(Row16KMN), apperr.ErrUnsupportedRow16)
	assert.NoError(t, i.SetRow16Mode(Row16HMN))
}
