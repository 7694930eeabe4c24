package simdriver

import (
	"sync"

	"github.com/bloops-games/joustparty/internal/device"
)

// Controller is the simulated hardware behind any number of handles.
type Controller struct {
	serial string
	conn   device.ConnectionType

	mtx     sync.Mutex
	buttons uint32
	trigger uint8
	accel   [3]float64
	battery device.Battery
	pollErr error
	paired  bool

	pendingLEDs   device.Color
	pendingRumble uint8
	leds          device.Color
	rumble        uint8
	rumbleChanges []uint8
	updates       int
}

func (c *Controller) Serial() string {
	return c.serial
}

// Press holds the buttons down. The trigger is pulled fully when included.
func (c *Controller) Press(buttons ...device.Button) {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	for _, b := range buttons {
		c.buttons |= uint32(b)
		if b == device.ButtonTrigger {
			c.trigger = 255
		}
	}
}

func (c *Controller) Release(buttons ...device.Button) {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	for _, b := range buttons {
		c.buttons &^= uint32(b)
		if b == device.ButtonTrigger {
			c.trigger = 0
		}
	}
}

// SetTrigger sets the analog trigger and its button bit.
func (c *Controller) SetTrigger(value uint8) {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	c.trigger = value
	if value > 0 {
		c.buttons |= uint32(device.ButtonTrigger)
	} else {
		c.buttons &^= uint32(device.ButtonTrigger)
	}
}

// Shake applies g of acceleration on top of gravity.
func (c *Controller) Shake(g float64) {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	c.accel = [3]float64{0, 0, 1 + g}
}

func (c *Controller) Rest() {
	c.Shake(0)
}

func (c *Controller) SetBattery(b device.Battery) {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	c.battery = b
}

// FailPoll makes every poll return err until called with nil.
func (c *Controller) FailPoll(err error) {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	c.pollErr = err
}

// LEDs returns the last committed color.
func (c *Controller) LEDs() device.Color {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	return c.leds
}

func (c *Controller) Rumble() uint8 {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	return c.rumble
}

// RumbleChanges lists every committed rumble intensity that differed from the previous one.
func (c *Controller) RumbleChanges() []uint8 {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	out := make([]uint8, len(c.rumbleChanges))
	copy(out, c.rumbleChanges)
	return out
}

func (c *Controller) Updates() int {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	return c.updates
}

func (c *Controller) Paired() bool {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	return c.paired
}

type handle struct {
	ctrl   *Controller
	closed bool
}

var _ device.Handle = (*handle)(nil)

func (h *handle) Serial() string                   { return h.ctrl.serial }
func (h *handle) Connection() device.ConnectionType { return h.ctrl.conn }

func (h *handle) Poll() (bool, error) {
	if h.closed {
		return false, ErrClosed
	}
	h.ctrl.mtx.Lock()
	defer h.ctrl.mtx.Unlock()
	if h.ctrl.pollErr != nil {
		return false, h.ctrl.pollErr
	}
	return true, nil
}

func (h *handle) Buttons() uint32 {
	h.ctrl.mtx.Lock()
	defer h.ctrl.mtx.Unlock()
	return h.ctrl.buttons
}

func (h *handle) Trigger() uint8 {
	h.ctrl.mtx.Lock()
	defer h.ctrl.mtx.Unlock()
	return h.ctrl.trigger
}

func (h *handle) Accelerometer() (x, y, z float64) {
	h.ctrl.mtx.Lock()
	defer h.ctrl.mtx.Unlock()
	return h.ctrl.accel[0], h.ctrl.accel[1], h.ctrl.accel[2]
}

func (h *handle) Battery() device.Battery {
	h.ctrl.mtx.Lock()
	defer h.ctrl.mtx.Unlock()
	return h.ctrl.battery
}

func (h *handle) SetLEDs(r, g, b uint8) {
	h.ctrl.mtx.Lock()
	defer h.ctrl.mtx.Unlock()
	h.ctrl.pendingLEDs = device.Color{R: r, G: g, B: b}
}

func (h *handle) SetRumble(intensity uint8) {
	h.ctrl.mtx.Lock()
	defer h.ctrl.mtx.Unlock()
	h.ctrl.pendingRumble = intensity
}

func (h *handle) Update() error {
	if h.closed {
		return ErrClosed
	}
	h.ctrl.mtx.Lock()
	defer h.ctrl.mtx.Unlock()
	h.ctrl.leds = h.ctrl.pendingLEDs
	if h.ctrl.pendingRumble != h.ctrl.rumble {
		h.ctrl.rumbleChanges = append(h.ctrl.rumbleChanges, h.ctrl.pendingRumble)
	}
	h.ctrl.rumble = h.ctrl.pendingRumble
	h.ctrl.updates++
	return nil
}

// Pair marks the controller as paired with the host.
func (h *handle) Pair() error {
	h.ctrl.mtx.Lock()
	defer h.ctrl.mtx.Unlock()
	h.ctrl.paired = true
	return nil
}

func (h *handle) Close() error {
	h.closed = true
	return nil
}
