package match

import (
	"context"
	"sync"
	"time"

	"github.com/bloops-games/joustparty/internal/device"
	"github.com/bloops-games/joustparty/internal/sound"
	"github.com/bloops-games/joustparty/internal/util"
)

var (
	zombieColor = device.Green
	humanColor  = device.Cyan
)

var maxZombiesSmall = [...]int{1, 1, 1, 1, 1, 2, 2, 2, 2}

// MaxZombies is the upper bound of zombies at the start of a round with n players.
func MaxZombies(n int) int {
	if n < 1 {
		return 0
	}
	if n <= len(maxZombiesSmall) {
		return maxZombiesSmall[n-1]
	}
	return util.CeilDiv(n+1, 5)
}

// MinZombies is the lower bound of zombies at the start of a round with n players.
func MinZombies(n int) int {
	if n < 1 {
		return 0
	}
	return util.CeilDiv(n+1, 10)
}

// zombie lets the players pick the starting zombies, then every human shaken too hard
// turns. Humans survive by lasting until the time limit.
type zombie struct {
	rules  Rules
	timeUp bool
}

func newZombie(rules Rules) game {
	return &zombie{rules: rules}
}

func (g *zombie) setup(ctx context.Context, s *Session) error {
	s.mtx.Lock()
	players := s.playersLocked()
	lo, hi := MinZombies(len(players)), MaxZombies(len(players))
	for _, p := range players {
		g.assign(p, TeamHuman)
	}
	for _, p := range pick(players, lo) {
		g.assign(p, TeamZombie)
	}
	s.mtx.Unlock()

	if g.rules.Zombie.Selection <= 0 {
		return nil
	}

	if err := s.config.Sound.PlayAndWait(ctx, sound.ZombieSelection); err != nil {
		return err
	}

	selCtx, cancel := context.WithTimeout(ctx, g.rules.Zombie.Selection)
	defer cancel()

	var wg sync.WaitGroup
	for _, p := range players {
		p := p
		clicks, detach := p.dev.Clicks()
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer detach()
			for {
				select {
				case <-selCtx.Done():
					return
				case b, ok := <-clicks:
					if !ok {
						return
					}
					if b.Has(device.ButtonTrigger) {
						g.toggle(s, p, lo, hi)
					}
				}
			}
		}()
	}
	wg.Wait()

	return ctx.Err()
}

// toggle moves p to the other team when the zombie count stays within [lo, hi].
func (g *zombie) toggle(s *Session, p *player, lo, hi int) {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	zombies := 0
	for _, q := range s.playersLocked() {
		if q.team == TeamZombie {
			zombies++
		}
	}

	switch {
	case p.team == TeamHuman && zombies+1 > hi:
		s.config.Sound.Enqueue(sound.TooManyZombies)
	case p.team == TeamZombie && zombies-1 < lo:
		s.config.Sound.Enqueue(sound.NotEnoughZombies)
	case p.team == TeamHuman:
		g.assign(p, TeamZombie)
	default:
		g.assign(p, TeamHuman)
	}
}

func (g *zombie) assign(p *player, t Team) {
	p.team = t
	if t == TeamZombie {
		p.color = zombieColor
	} else {
		p.color = humanColor
	}
	p.dev.SetColor(p.color)
}

func (g *zombie) begin(ctx context.Context, s *Session) {
	s.spawn(ctx, func(ctx context.Context) {
		if err := util.Sleep(ctx, g.rules.Zombie.TimeLimit); err != nil {
			return
		}
		s.mtx.Lock()
		defer s.mtx.Unlock()
		g.timeUp = true
		s.evaluateLocked()
	})
}

// Zombies cannot be knocked out.
func (g *zombie) move(s *Session, p *player, accel float64) {
	if p.team == TeamHuman {
		s.shakeLocked(p, accel)
	}
}

func (g *zombie) lost(s *Session, p *player, c cause) {
	if c == causeDisconnect || p.team != TeamHuman {
		s.knockOutLocked(p)
		return
	}

	g.assign(p, TeamZombie)
	p.dev.AddRumbleEvent(outIntensity, 500*time.Millisecond)
	s.config.Sound.Enqueue(sound.HumanInfected)
}

func (g *zombie) result(s *Session) ([]string, sound.ID, bool) {
	var zombies, humans []string
	for _, p := range s.playersLocked() {
		if !p.present() {
			continue
		}
		switch {
		case p.team == TeamZombie:
			zombies = append(zombies, p.addr)
		case !p.lost:
			humans = append(humans, p.addr)
		}
	}

	switch {
	case len(humans) == 0:
		return zombies, sound.ZombiesWin, true
	case len(zombies) == 0 || g.timeUp:
		return humans, sound.HumansWin, true
	default:
		return nil, "", false
	}
}
