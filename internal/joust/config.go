package joust

import (
	"time"

	"github.com/bloops-games/joustparty/internal/database"
	"github.com/bloops-games/joustparty/internal/device"
	"github.com/bloops-games/joustparty/internal/sound/beepsound"
)

type Config struct {
	Debug bool `envconfig:"JOUST_DEBUG" default:"false"`
	// Driver selects the controller backend. Only the simulator ships with this build.
	Driver      string        `envconfig:"JOUST_DRIVER" default:"sim"`
	RulesFile   string        `envconfig:"JOUST_RULES_FILE"`
	DefaultMode string        `envconfig:"JOUST_DEFAULT_MODE" default:"ffa"`
	SimDevices  []string      `envconfig:"JOUST_SIM_DEVICES"`
	Blink       time.Duration `envconfig:"JOUST_BLINK_DURATION" default:"1500ms"`
	Rumble      time.Duration `envconfig:"JOUST_RUMBLE_DURATION" default:"500ms"`
	RecentRound int           `envconfig:"JOUST_RECENT_ROUNDS" default:"10"`
	Device      device.Config
	Sound       beepsound.Config
	Db          database.Config
}
