package device

import "time"

type Config struct {
	// Input poll period
	StatusInterval time.Duration `envconfig:"JOUST_STATUS_INTERVAL" default:"5ms"`

	// LED and rumble refresh period
	UpdateInterval time.Duration `envconfig:"JOUST_UPDATE_INTERVAL" default:"50ms"`

	// LEDs are rewritten at least this often even when nothing changed
	RefreshInterval time.Duration `envconfig:"JOUST_LED_REFRESH_INTERVAL" default:"1s"`

	// Connection scan period
	ScanInterval time.Duration `envconfig:"JOUST_SCAN_INTERVAL" default:"2s"`

	// A USB attached controller is not paired again within this window
	PairTTL time.Duration `envconfig:"JOUST_PAIR_TTL" default:"30s"`

	// Undelivered click events kept per subscriber
	ClickBuffer int `envconfig:"JOUST_CLICK_BUFFER" default:"16"`
}

// DefaultConfig mirrors the envconfig defaults for callers that build the config by hand.
func DefaultConfig() Config {
	return Config{
		StatusInterval:  5 * time.Millisecond,
		UpdateInterval:  50 * time.Millisecond,
		RefreshInterval: time.Second,
		ScanInterval:    2 * time.Second,
		PairTTL:         30 * time.Second,
		ClickBuffer:     16,
	}
}
