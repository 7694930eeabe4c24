// Package simdriver is an in memory controller driver. It backs the tests and the
// interactive simulator of the CLI.
package simdriver

import (
	"errors"
	"fmt"
	"sync"

	"github.com/bloops-games/joustparty/internal/device"
)

var (
	ErrClosed       = errors.New("handle closed")
	errIndexInvalid = errors.New("no controller at index")
)

var _ device.Driver = (*Driver)(nil)

type Driver struct {
	mtx         sync.Mutex
	controllers []*Controller
	countErr    error
}

func New() *Driver {
	return &Driver{}
}

// Connect plugs a controller in, or returns the existing one with that serial.
func (d *Driver) Connect(serial string, conn device.ConnectionType) *Controller {
	d.mtx.Lock()
	defer d.mtx.Unlock()
	for _, c := range d.controllers {
		if c.serial == serial && c.conn == conn {
			return c
		}
	}
	c := &Controller{serial: serial, conn: conn, accel: [3]float64{0, 0, 1}, battery: device.BatteryMax}
	d.controllers = append(d.controllers, c)
	return c
}

// Disconnect removes every connection of the serial.
func (d *Driver) Disconnect(serial string) {
	d.mtx.Lock()
	defer d.mtx.Unlock()
	kept := d.controllers[:0]
	for _, c := range d.controllers {
		if c.serial != serial {
			kept = append(kept, c)
		}
	}
	d.controllers = kept
}

func (d *Driver) Controller(serial string) (*Controller, bool) {
	d.mtx.Lock()
	defer d.mtx.Unlock()
	for _, c := range d.controllers {
		if c.serial == serial {
			return c, true
		}
	}
	return nil, false
}

func (d *Driver) Serials() []string {
	d.mtx.Lock()
	defer d.mtx.Unlock()
	serials := make([]string, 0, len(d.controllers))
	for _, c := range d.controllers {
		serials = append(serials, c.serial)
	}
	return serials
}

// FailCount makes Count return err until it is called again with nil.
func (d *Driver) FailCount(err error) {
	d.mtx.Lock()
	defer d.mtx.Unlock()
	d.countErr = err
}

func (d *Driver) Count() (int, error) {
	d.mtx.Lock()
	defer d.mtx.Unlock()
	if d.countErr != nil {
		return 0, d.countErr
	}
	return len(d.controllers), nil
}

func (d *Driver) Open(index int) (device.Handle, error) {
	d.mtx.Lock()
	defer d.mtx.Unlock()
	if index < 0 || index >= len(d.controllers) {
		return nil, fmt.Errorf("%d: %w", index, errIndexInvalid)
	}
	return &handle{ctrl: d.controllers[index]}, nil
}
