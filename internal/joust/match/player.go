package match

import (
	"time"

	"github.com/bloops-games/joustparty/internal/device"
	"github.com/valyala/fastrand"
)

type Team uint8

const (
	TeamNone Team = iota
	TeamWerewolf
	TeamVillager
	TeamZombie
	TeamHuman
)

func (t Team) String() string {
	switch t {
	case TeamWerewolf:
		return "werewolf"
	case TeamVillager:
		return "villager"
	case TeamZombie:
		return "zombie"
	case TeamHuman:
		return "human"
	default:
		return "none"
	}
}

type cause uint8

const (
	causeShake cause = iota + 1
	causeDisconnect
)

type player struct {
	addr  string
	dev   *device.Device
	team  Team
	color device.Color

	lost   bool
	cause  cause
	gone   bool
	warned time.Time

	// red alert
	red bool
}

// present reports whether the player is still connected, whatever its game status.
func (p *player) present() bool {
	return !p.gone
}

// pick returns n random players out of ps.
func pick(ps []*player, n int) []*player {
	cp := make([]*player, len(ps))
	copy(cp, ps)
	for i := len(cp) - 1; i > 0; i-- {
		j := int(fastrand.Uint32n(uint32(i + 1)))
		cp[i], cp[j] = cp[j], cp[i]
	}
	if n > len(cp) {
		n = len(cp)
	}
	return cp[:n]
}
