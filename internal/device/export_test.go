package device

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

func (p *Poller) PollOnce(ctx context.Context, now time.Time) {
	p.pollOnce(ctx, now)
}

func (p *Poller) UpdateOnce(ctx context.Context, now time.Time) {
	p.updateOnce(ctx, now)
}

func (d *Device) Staged() bool {
	return d.hasStaged()
}

func NewClickTracker() func(ButtonSet) ButtonSet {
	var c clickTracker
	return c.next
}

func (p *Poller) WarnLimiters() (status, update, device *rate.Limiter) {
	return p.statusWarnings, p.updateWarnings, p.deviceWarnings
}
