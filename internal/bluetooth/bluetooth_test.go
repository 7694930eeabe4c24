package bluetooth_test

import (
	"context"
	"testing"

	"github.com/bloops-games/joustparty/internal/bluetooth"
	"github.com/bloops-games/joustparty/internal/device"
	"github.com/bloops-games/joustparty/internal/device/simdriver"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPairerTrustsUSBController(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	drv := simdriver.New()
	ctrl := drv.Connect("AA", device.ConnectionUSB)

	h, err := drv.Open(0)
	require.NoError(t, err)

	adapter := bluetooth.NewMemory()
	require.NoError(t, bluetooth.NewPairer(adapter).Pair(ctx, h))

	assert.True(t, ctrl.Paired())
	addrs, err := adapter.Devices(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"AA"}, addrs)
}

func TestForgetAll(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	adapter := bluetooth.NewMemory("AA", "BB")

	n, err := bluetooth.ForgetAll(ctx, adapter)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	addrs, _ := adapter.Devices(ctx)
	assert.Empty(t, addrs)
	assert.ErrorIs(t, adapter.Remove(ctx, "AA"), device.ErrDeviceNotFound)
}
