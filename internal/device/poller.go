package device

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/bloops-games/joustparty/internal/logging"
	"github.com/bloops-games/joustparty/internal/stream"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// Poller is the only place where native handles are touched once the watcher has opened
// them. Both of its loops run under mtx.
type Poller struct {
	config Config

	mtx     sync.Mutex
	devices map[string]*Device

	telemetry *stream.Value[[]Telemetry]

	// overrun warnings of each loop and per device errors are throttled apart
	statusWarnings *rate.Limiter
	updateWarnings *rate.Limiter
	deviceWarnings *rate.Limiter
}

func NewPoller(config Config) *Poller {
	return &Poller{
		config:         config,
		devices:        map[string]*Device{},
		telemetry:      stream.NewValue[[]Telemetry](nil),
		statusWarnings: newWarnLimiter(),
		updateWarnings: newWarnLimiter(),
		deviceWarnings: newWarnLimiter(),
	}
}

func newWarnLimiter() *rate.Limiter {
	return rate.NewLimiter(rate.Every(time.Second), 5)
}

func (p *Poller) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return p.loop(ctx, "status", p.config.StatusInterval, p.statusWarnings, p.pollOnce)
	})
	g.Go(func() error {
		return p.loop(ctx, "update", p.config.UpdateInterval, p.updateWarnings, p.updateOnce)
	})
	return g.Wait()
}

// loop runs step every period. An iteration that takes longer than period is reported and
// the next one starts right away, the schedule is never caught up.
func (p *Poller) loop(ctx context.Context, name string, period time.Duration, warnings *rate.Limiter, step func(context.Context, time.Time)) error {
	logger := logging.FromContext(ctx).Named("device.poller." + name)
	timer := time.NewTimer(period)
	defer timer.Stop()

	for {
		start := time.Now()
		step(ctx, start)
		elapsed := time.Since(start)

		if elapsed >= period {
			if warnings.Allow() {
				logger.Warnf("iteration took %s, period is %s", elapsed, period)
			}
			select {
			case <-ctx.Done():
				return nil
			default:
			}
			continue
		}

		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer.Reset(period - elapsed)

		select {
		case <-ctx.Done():
			return nil
		case <-timer.C:
		}
	}
}

func (p *Poller) pollOnce(ctx context.Context, now time.Time) {
	p.mtx.Lock()
	defer p.mtx.Unlock()

	for _, d := range p.devices {
		if err := d.sample(now); err != nil {
			p.warn(ctx, err)
			continue
		}
		// the update loop staged a frame, send it together with this poll
		if err := d.flush(now); err != nil {
			p.warn(ctx, err)
		}
	}
}

func (p *Poller) updateOnce(ctx context.Context, now time.Time) {
	p.mtx.Lock()
	telemetry := make([]Telemetry, 0, len(p.devices))
	for _, d := range p.devices {
		// the status loop did not pick up the previous frame in time
		if d.hasStaged() {
			if err := d.flush(now); err != nil {
				p.warn(ctx, err)
			}
		}
		d.stage(now, p.config.RefreshInterval)
		telemetry = append(telemetry, d.Telemetry())
	}
	p.mtx.Unlock()

	sort.Slice(telemetry, func(i, j int) bool {
		return telemetry[i].Address < telemetry[j].Address
	})

	if !slices.Equal(telemetry, p.telemetry.Get()) {
		p.telemetry.Set(telemetry)
	}
}

func (p *Poller) warn(ctx context.Context, err error) {
	if p.deviceWarnings.Allow() {
		logging.FromContext(ctx).Named("device.poller").Warnf("skipping device: %v", err)
	}
}

// Swap replaces the live set with one device per handle. Wrappers of addresses that stay
// connected are kept, handles that are no longer used are closed.
func (p *Poller) Swap(handles map[string]Handle) error {
	p.mtx.Lock()
	defer p.mtx.Unlock()

	var errs []error
	next := make(map[string]*Device, len(handles))
	for addr, h := range handles {
		d, ok := p.devices[addr]
		if !ok {
			d = NewDevice(addr, p.config.ClickBuffer)
		}
		if old := d.currentHandle(); old != nil && old != h {
			if err := old.Close(); err != nil {
				errs = append(errs, fmt.Errorf("close %s: %w", addr, err))
			}
		}
		d.bind(h)
		next[addr] = d
	}

	for addr, d := range p.devices {
		if _, ok := next[addr]; ok {
			continue
		}
		if h := d.unbind(); h != nil {
			if err := h.Close(); err != nil {
				errs = append(errs, fmt.Errorf("close %s: %w", addr, err))
			}
		}
	}

	p.devices = next
	if len(errs) > 0 {
		return fmt.Errorf("swap: %v", errs)
	}
	return nil
}

func (p *Poller) Device(addr string) (*Device, error) {
	p.mtx.Lock()
	defer p.mtx.Unlock()
	d, ok := p.devices[addr]
	if !ok {
		return nil, fmt.Errorf("%s: %w", addr, ErrDeviceNotFound)
	}
	return d, nil
}

// Devices returns the live set ordered by address.
func (p *Poller) Devices() []*Device {
	p.mtx.Lock()
	devices := make([]*Device, 0, len(p.devices))
	for _, d := range p.devices {
		devices = append(devices, d)
	}
	p.mtx.Unlock()

	sort.Slice(devices, func(i, j int) bool {
		return devices[i].Address < devices[j].Address
	})
	return devices
}

func (p *Poller) SetColor(addr string, c Color) error {
	d, err := p.Device(addr)
	if err != nil {
		return err
	}
	d.SetColor(c)
	return nil
}

func (p *Poller) SetColorAnimation(addr string, frames []Color, duration time.Duration, loop bool) error {
	d, err := p.Device(addr)
	if err != nil {
		return err
	}
	d.SetColorAnimation(frames, duration, loop)
	return nil
}

func (p *Poller) AddRumbleEvent(addr string, intensity uint8, duration time.Duration) error {
	d, err := p.Device(addr)
	if err != nil {
		return err
	}
	d.AddRumbleEvent(intensity, duration)
	return nil
}

func (p *Poller) Telemetry() *stream.Value[[]Telemetry] {
	return p.telemetry
}
