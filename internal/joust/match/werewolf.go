package match

import (
	"context"
	"time"

	"github.com/bloops-games/joustparty/internal/device"
	"github.com/bloops-games/joustparty/internal/sound"
	"github.com/bloops-games/joustparty/internal/util"
)

var (
	disguiseColor = device.Yellow
	werewolfColor = device.Red
)

// Werewolves returns how many of n players turn into werewolves.
func Werewolves(n, playersPerWolf int) int {
	if playersPerWolf < 1 {
		playersPerWolf = 1
	}
	return max(1, util.CeilDiv(n, playersPerWolf))
}

// werewolf hides a few werewolves among the villagers until the reveal. A team wins once
// the other one is out.
type werewolf struct {
	rules Rules
}

func newWerewolf(rules Rules) game {
	return &werewolf{rules: rules}
}

func (g *werewolf) setup(_ context.Context, s *Session) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	players := s.playersLocked()
	for _, p := range players {
		p.team = TeamVillager
		p.color = disguiseColor
	}
	for _, p := range pick(players, Werewolves(len(players), g.rules.Werewolf.PlayersPerWolf)) {
		p.team = TeamWerewolf
		// werewolves feel who they are
		p.dev.AddRumbleEvent(outIntensity, time.Second)
	}
	return nil
}

func (g *werewolf) begin(ctx context.Context, s *Session) {
	s.spawn(ctx, func(ctx context.Context) {
		if err := util.Sleep(ctx, g.rules.Werewolf.RevealDelay); err != nil {
			return
		}

		s.mtx.Lock()
		defer s.mtx.Unlock()
		if !s.liveLocked() {
			return
		}
		for _, p := range s.playersLocked() {
			if p.team == TeamWerewolf && !p.lost {
				p.color = werewolfColor
				p.dev.SetColor(p.color)
			}
		}
		s.config.Sound.Enqueue(sound.WerewolfReveal)
	})
}

func (g *werewolf) move(s *Session, p *player, accel float64) {
	s.shakeLocked(p, accel)
}

func (g *werewolf) lost(s *Session, p *player, _ cause) {
	s.knockOutLocked(p)
}

func (g *werewolf) result(s *Session) ([]string, sound.ID, bool) {
	var wolves, villagers, wolvesAlive, villagersAlive []string
	for _, p := range s.playersLocked() {
		switch p.team {
		case TeamWerewolf:
			wolves = append(wolves, p.addr)
			if !p.lost {
				wolvesAlive = append(wolvesAlive, p.addr)
			}
		case TeamVillager:
			villagers = append(villagers, p.addr)
			if !p.lost {
				villagersAlive = append(villagersAlive, p.addr)
			}
		}
	}

	switch {
	case len(wolvesAlive) == 0:
		return villagers, sound.VillagersWin, true
	case len(villagersAlive) == 0:
		return wolves, sound.WerewolvesWin, true
	default:
		return nil, "", false
	}
}
