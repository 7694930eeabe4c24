package match

import (
	"context"

	"github.com/bloops-games/joustparty/internal/device"
	"github.com/bloops-games/joustparty/internal/sound"
)

// ffa is every player for themselves. The last one standing wins.
type ffa struct{}

func newFFA(Rules) game {
	return &ffa{}
}

func (g *ffa) setup(_ context.Context, s *Session) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	for i, p := range s.playersLocked() {
		p.color = device.Rainbow[i%len(device.Rainbow)]
	}
	return nil
}

func (g *ffa) begin(context.Context, *Session) {}

func (g *ffa) move(s *Session, p *player, accel float64) {
	s.shakeLocked(p, accel)
}

func (g *ffa) lost(s *Session, p *player, _ cause) {
	s.knockOutLocked(p)
}

func (g *ffa) result(s *Session) ([]string, sound.ID, bool) {
	alive := s.aliveLocked()
	if len(alive) > 1 {
		return nil, "", false
	}
	return alive, sound.WinnerAnnounce, true
}
