// Package device owns the native controller handles: the fixed rate poller that serializes
// every native call, the per device wrapper holding derived input and pending output, and
// the connection watcher that reconciles the live set.
package device

import (
	"context"
	"errors"
)

var ErrDeviceNotFound = errors.New("device not found")

type ConnectionType uint8

const (
	ConnectionUnknown ConnectionType = iota
	ConnectionBluetooth
	ConnectionUSB
)

func (c ConnectionType) String() string {
	switch c {
	case ConnectionBluetooth:
		return "bluetooth"
	case ConnectionUSB:
		return "usb"
	default:
		return "unknown"
	}
}

// Driver is the native controller library. None of its methods, nor those of the handles it
// returns, may be called concurrently; the Poller and the Watcher take care of that.
type Driver interface {
	Count() (int, error)
	Open(index int) (Handle, error)
}

type Handle interface {
	Serial() string
	Connection() ConnectionType
	// Poll reports whether a new input sample is available.
	Poll() (bool, error)
	Buttons() uint32
	Trigger() uint8
	// Accelerometer returns the acceleration in g.
	Accelerometer() (x, y, z float64)
	Battery() Battery
	SetLEDs(r, g, b uint8)
	SetRumble(intensity uint8)
	// Update commits LEDs and rumble to the hardware.
	Update() error
	Close() error
}

// Pairer binds a USB attached controller to the host so it can reconnect over Bluetooth.
type Pairer interface {
	Pair(ctx context.Context, h Handle) error
}

type Battery uint8

const (
	BatteryMin          Battery = 0x00
	BatteryMax          Battery = 0x05
	BatteryCharging     Battery = 0xEE
	BatteryChargingDone Battery = 0xEF
)

func (b Battery) String() string {
	switch b {
	case BatteryCharging:
		return "charging"
	case BatteryChargingDone:
		return "charged"
	}
	if b > BatteryMax {
		return "unknown"
	}
	return string(rune('0' + b))
}
