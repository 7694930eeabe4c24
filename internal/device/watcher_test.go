package device_test

import (
	"context"
	"errors"
	"testing"

	"github.com/bloops-games/joustparty/internal/device"
	"github.com/bloops-games/joustparty/internal/device/simdriver"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pairerFunc func(ctx context.Context, h device.Handle) error

func (f pairerFunc) Pair(ctx context.Context, h device.Handle) error {
	return f(ctx, h)
}

func TestWatcherPublishesSnapshots(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	poller, watcher, driver := newRig(t, "AA", "BB")

	sub := watcher.Snapshots().Subscribe()
	defer sub.Close()
	assert.Equal(t, []string{"AA", "BB"}, (<-sub.C()).Items())

	driver.Connect("CC", device.ConnectionBluetooth)
	driver.Disconnect("AA")
	// same count, the cheap path keeps the old snapshot
	require.NoError(t, watcher.Scan(ctx))
	assert.Equal(t, []string{"AA", "BB"}, watcher.Snapshots().Get().Items())

	driver.Disconnect("BB")
	require.NoError(t, watcher.Scan(ctx))
	assert.Equal(t, []string{"CC"}, (<-sub.C()).Items())

	_, err := poller.Device("AA")
	assert.True(t, errors.Is(err, device.ErrDeviceNotFound))
}

func TestWatcherKeepsWrapperAcrossScans(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	poller, watcher, driver := newRig(t, "AA")

	before, err := poller.Device("AA")
	require.NoError(t, err)

	driver.Connect("BB", device.ConnectionBluetooth)
	require.NoError(t, watcher.Scan(ctx))

	after, err := poller.Device("AA")
	require.NoError(t, err)
	assert.Same(t, before, after)
	assert.Len(t, poller.Devices(), 2)
}

func TestWatcherKeepsSnapshotOnError(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	_, watcher, driver := newRig(t, "AA")

	driver.FailCount(errors.New("bus error"))
	driver.Connect("BB", device.ConnectionBluetooth)
	assert.Error(t, watcher.Scan(ctx))
	assert.Equal(t, []string{"AA"}, watcher.Snapshots().Get().Items())

	driver.FailCount(nil)
	require.NoError(t, watcher.Scan(ctx))
	assert.Equal(t, []string{"AA", "BB"}, watcher.Snapshots().Get().Items())
}

func TestWatcherPairsUSBOnce(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	driver := simdriver.New()
	driver.Connect("AA", device.ConnectionBluetooth)
	usb := driver.Connect("BB", device.ConnectionUSB)

	pairs := 0
	pairer := pairerFunc(func(ctx context.Context, h device.Handle) error {
		pairs++
		return h.(interface{ Pair() error }).Pair()
	})

	poller := device.NewPoller(device.DefaultConfig())
	watcher := device.NewWatcher(device.DefaultConfig(), driver, poller, pairer)
	require.NoError(t, watcher.Scan(ctx))

	assert.Equal(t, []string{"AA"}, watcher.Snapshots().Get().Items())
	assert.True(t, usb.Paired())
	assert.Equal(t, 1, pairs)

	driver.Connect("CC", device.ConnectionBluetooth)
	require.NoError(t, watcher.Scan(ctx))
	assert.Equal(t, 1, pairs)
}
