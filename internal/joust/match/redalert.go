package match

import (
	"context"
	"time"

	"github.com/bloops-games/joustparty/internal/device"
	"github.com/bloops-games/joustparty/internal/sound"
	"github.com/bloops-games/joustparty/internal/util"
	"github.com/valyala/fastrand"
)

var safeColor = device.Green

// redAlert raises alerts on random controllers, faster and faster. Shaking an alerted
// controller clears it. Too many alerts at once lose the round for everybody.
type redAlert struct {
	rules  Rules
	timeUp bool
}

func newRedAlert(rules Rules) game {
	return &redAlert{rules: rules}
}

func (g *redAlert) setup(_ context.Context, s *Session) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	for _, p := range s.playersLocked() {
		p.color = safeColor
	}
	return nil
}

func (g *redAlert) begin(ctx context.Context, s *Session) {
	s.spawn(ctx, func(ctx context.Context) { g.alerts(ctx, s) })
	s.spawn(ctx, func(ctx context.Context) {
		if err := util.Sleep(ctx, max(g.rules.RedAlert.MinSurvival, g.rules.RedAlert.MaxDuration)); err != nil {
			return
		}
		s.mtx.Lock()
		defer s.mtx.Unlock()
		g.timeUp = true
		s.evaluateLocked()
	})
}

func (g *redAlert) alerts(ctx context.Context, s *Session) {
	interval := g.rules.RedAlert.StartInterval
	for {
		if err := util.Sleep(ctx, interval); err != nil {
			return
		}

		s.mtx.Lock()
		if s.liveLocked() {
			g.raise(s)
		}
		s.mtx.Unlock()

		interval = g.nextInterval(interval)
	}
}

func (g *redAlert) nextInterval(curr time.Duration) time.Duration {
	next := time.Duration(float64(curr) * g.rules.RedAlert.Speedup)
	return max(next, g.rules.RedAlert.MinInterval)
}

// raise turns one random safe controller red.
func (g *redAlert) raise(s *Session) {
	var safe []*player
	for _, p := range s.playersLocked() {
		if !p.lost && !p.red {
			safe = append(safe, p)
		}
	}
	if len(safe) == 0 {
		return
	}

	p := safe[fastrand.Uint32n(uint32(len(safe)))]
	p.red = true
	p.dev.SetColorAnimation([]device.Color{device.Red, device.Red.Scale(0.3)}, 600*time.Millisecond, true)
	p.dev.AddRumbleEvent(pulseIntensity, 300*time.Millisecond)
	s.config.Sound.Enqueue(sound.RedAlertRaised)
	s.evaluateLocked()
}

func (g *redAlert) move(s *Session, p *player, accel float64) {
	if !p.red || p.lost || accel < s.death {
		return
	}
	p.red = false
	p.dev.SetColor(p.color)
	p.dev.AddRumbleEvent(warningIntensity, 150*time.Millisecond)
}

func (g *redAlert) lost(s *Session, p *player, _ cause) {
	p.red = false
	s.knockOutLocked(p)
}

func (g *redAlert) result(s *Session) ([]string, sound.ID, bool) {
	var alive []string
	red := 0
	for _, p := range s.playersLocked() {
		if p.lost {
			continue
		}
		alive = append(alive, p.addr)
		if p.red {
			red++
		}
	}

	switch {
	case len(alive) == 0:
		return nil, sound.RedAlertLose, true
	case float64(red)/float64(len(alive)) > g.rules.RedAlert.Ratio:
		return nil, sound.RedAlertLose, true
	case g.timeUp:
		return alive, sound.RedAlertWin, true
	default:
		return nil, "", false
	}
}
