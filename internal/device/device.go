package device

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/bloops-games/joustparty/internal/stream"
)

const accelSmoothing = 4

// Device is the in memory shadow of one connected controller. Input fields are written by
// the poller, output intents by game logic; both go through mtx.
type Device struct {
	Address string

	mtx        sync.Mutex
	handle     Handle
	connection ConnectionType
	buttons    uint32
	trigger    uint8
	pressed    ButtonSet
	clicks     clickTracker
	accel      float64
	battery    Battery
	lastSample time.Time

	color     Color
	animation *animation
	rumble    []rumbleEvent

	written       Color
	writtenRumble uint8
	lastWrite     time.Time
	staged        *frame

	clickEvents *stream.Events[ButtonSet]
	accelValue  *stream.Value[float64]
	pressValue  *stream.Value[ButtonSet]
}

func NewDevice(address string, clickBuffer int) *Device {
	return &Device{
		Address:     address,
		clickEvents: stream.NewEvents[ButtonSet](clickBuffer),
		accelValue:  stream.NewValue(0.0),
		pressValue:  stream.NewValue(ButtonSet(0)),
	}
}

func (d *Device) String() string {
	return fmt.Sprintf("device(%s)", d.Address)
}

// SetColor replaces the target color and cancels any running animation.
func (d *Device) SetColor(c Color) {
	d.mtx.Lock()
	defer d.mtx.Unlock()
	d.color = c
	d.animation = nil
}

// SetColorAnimation spreads frames evenly over duration. A non looping animation leaves
// the device on its last frame.
func (d *Device) SetColorAnimation(frames []Color, duration time.Duration, loop bool) {
	cp := make([]Color, len(frames))
	copy(cp, frames)

	d.mtx.Lock()
	defer d.mtx.Unlock()
	d.animation = &animation{frames: cp, start: time.Now(), duration: duration, loop: loop}
	if len(cp) > 0 {
		d.color = cp[len(cp)-1]
	}
}

func (d *Device) ClearAnimation() {
	d.mtx.Lock()
	defer d.mtx.Unlock()
	d.animation = nil
}

// AddRumbleEvent rumbles at intensity for duration, superseding earlier events.
func (d *Device) AddRumbleEvent(intensity uint8, duration time.Duration) {
	now := time.Now()
	d.mtx.Lock()
	defer d.mtx.Unlock()
	d.rumble = append(d.rumble, rumbleEvent{issued: now, until: now.Add(duration), intensity: intensity})
}

func (d *Device) Color() Color {
	d.mtx.Lock()
	defer d.mtx.Unlock()
	if d.animation != nil {
		c, _ := d.animation.frame(time.Now())
		return c
	}
	return d.color
}

func (d *Device) Pressed() ButtonSet {
	d.mtx.Lock()
	defer d.mtx.Unlock()
	return d.pressed
}

// Accel returns the smoothed acceleration change in g.
func (d *Device) Accel() float64 {
	d.mtx.Lock()
	defer d.mtx.Unlock()
	return d.accel
}

func (d *Device) Battery() Battery {
	d.mtx.Lock()
	defer d.mtx.Unlock()
	return d.battery
}

func (d *Device) Connection() ConnectionType {
	d.mtx.Lock()
	defer d.mtx.Unlock()
	return d.connection
}

// Clicks subscribes to release events. The returned function must be called to detach.
func (d *Device) Clicks() (<-chan ButtonSet, func()) {
	return d.clickEvents.Subscribe()
}

// AccelStream subscribes to the smoothed acceleration change.
func (d *Device) AccelStream() *stream.Subscription[float64] {
	return d.accelValue.Subscribe()
}

func (d *Device) PressedStream() *stream.Subscription[ButtonSet] {
	return d.pressValue.Subscribe()
}

func (d *Device) Telemetry() Telemetry {
	d.mtx.Lock()
	defer d.mtx.Unlock()
	return Telemetry{
		Address:    d.Address,
		Connection: d.connection,
		Battery:    d.battery,
		Accel:      math.Round(d.accel*100) / 100,
		Color:      d.written,
	}
}

// The methods below run with the poller lock held.

func (d *Device) bind(h Handle) {
	d.mtx.Lock()
	defer d.mtx.Unlock()
	d.handle = h
	d.connection = h.Connection()
	// a fresh handle starts dark, force the next frame out
	d.lastWrite = time.Time{}
}

func (d *Device) unbind() Handle {
	d.mtx.Lock()
	defer d.mtx.Unlock()
	h := d.handle
	d.handle = nil
	d.staged = nil
	return h
}

func (d *Device) currentHandle() Handle {
	d.mtx.Lock()
	defer d.mtx.Unlock()
	return d.handle
}

// sample reads one input sample if the controller has produced one.
func (d *Device) sample(now time.Time) error {
	h := d.currentHandle()
	if h == nil {
		return nil
	}

	ok, err := h.Poll()
	if err != nil {
		return fmt.Errorf("poll %s: %w", d.Address, err)
	}
	if !ok {
		return nil
	}

	mask, trigger := h.Buttons(), h.Trigger()
	x, y, z := h.Accelerometer()
	raw := math.Abs(math.Sqrt(x*x+y*y+z*z) - 1)
	battery := h.Battery()

	d.mtx.Lock()
	d.buttons = mask
	d.trigger = trigger
	d.pressed = Pressed(mask, trigger)
	released := d.clicks.next(d.pressed)
	d.accel = (d.accel*accelSmoothing + raw) / (accelSmoothing + 1)
	d.battery = battery
	d.lastSample = now
	pressed, accel := d.pressed, d.accel
	d.mtx.Unlock()

	d.accelValue.Set(accel)
	d.pressValue.Set(pressed)
	if released != 0 {
		d.clickEvents.Publish(released)
	}

	return nil
}

// stage computes the output frame for now and parks it for the next flush when the
// hardware needs it.
func (d *Device) stage(now time.Time, refresh time.Duration) {
	d.mtx.Lock()
	defer d.mtx.Unlock()

	color := d.color
	if d.animation != nil {
		c, done := d.animation.frame(now)
		color = c
		if done {
			d.color = c
			d.animation = nil
		}
	}

	var intensity uint8
	d.rumble, intensity = resolveRumble(d.rumble, now)

	if d.needsRefresh(now, color, refresh) || intensity != d.writtenRumble {
		d.staged = &frame{color: color, rumble: intensity}
	}
}

func (d *Device) needsRefresh(now time.Time, color Color, refresh time.Duration) bool {
	return now.Sub(d.lastWrite) > refresh || color != d.written
}

func (d *Device) hasStaged() bool {
	d.mtx.Lock()
	defer d.mtx.Unlock()
	return d.staged != nil
}

// flush writes a staged frame in one native envelope.
func (d *Device) flush(now time.Time) error {
	d.mtx.Lock()
	f, h := d.staged, d.handle
	d.staged = nil
	d.mtx.Unlock()

	if f == nil || h == nil {
		return nil
	}

	h.SetLEDs(f.color.R, f.color.G, f.color.B)
	h.SetRumble(f.rumble)
	if err := h.Update(); err != nil {
		return fmt.Errorf("update %s: %w", d.Address, err)
	}

	d.mtx.Lock()
	d.written = f.color
	d.writtenRumble = f.rumble
	d.lastWrite = now
	d.mtx.Unlock()

	return nil
}
