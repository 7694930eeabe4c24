package match

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Rules tunes the game modes. Fields missing from a rules file keep the defaults.
type Rules struct {
	Music           bool          `yaml:"music"`
	WarningCooldown time.Duration `yaml:"warning_cooldown"`
	Celebration     time.Duration `yaml:"celebration"`

	Werewolf struct {
		// one werewolf per PlayersPerWolf players, at least one
		PlayersPerWolf int           `yaml:"players_per_wolf"`
		RevealDelay    time.Duration `yaml:"reveal_delay"`
	} `yaml:"werewolf"`

	Zombie struct {
		TimeLimit time.Duration `yaml:"time_limit"`
		Selection time.Duration `yaml:"selection"`
	} `yaml:"zombie"`

	RedAlert struct {
		Ratio         float64       `yaml:"ratio"`
		MinSurvival   time.Duration `yaml:"min_survival"`
		MaxDuration   time.Duration `yaml:"max_duration"`
		StartInterval time.Duration `yaml:"start_interval"`
		MinInterval   time.Duration `yaml:"min_interval"`
		// each alert interval is the previous one times Speedup
		Speedup float64 `yaml:"speedup"`
	} `yaml:"red_alert"`

	SortingToddler struct {
		Duration time.Duration `yaml:"duration"`
	} `yaml:"sorting_toddler"`
}

func DefaultRules() Rules {
	var r Rules
	r.Music = true
	r.WarningCooldown = 500 * time.Millisecond
	r.Celebration = 3 * time.Second

	r.Werewolf.PlayersPerWolf = 5
	r.Werewolf.RevealDelay = 30 * time.Second

	r.Zombie.TimeLimit = 5 * time.Minute
	r.Zombie.Selection = 10 * time.Second

	r.RedAlert.Ratio = 0.5
	r.RedAlert.MinSurvival = 2 * time.Minute
	r.RedAlert.MaxDuration = 5 * time.Minute
	r.RedAlert.StartInterval = 10 * time.Second
	r.RedAlert.MinInterval = 2 * time.Second
	r.RedAlert.Speedup = 0.9

	r.SortingToddler.Duration = time.Minute
	return r
}

// LoadRules reads a YAML rules file over the defaults. An empty path yields the defaults.
func LoadRules(path string) (Rules, error) {
	rules := DefaultRules()
	if path == "" {
		return rules, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return rules, fmt.Errorf("read rules: %w", err)
	}

	if err := yaml.Unmarshal(data, &rules); err != nil {
		return rules, fmt.Errorf("unmarshal rules: %w", err)
	}

	if err := rules.validate(); err != nil {
		return rules, fmt.Errorf("validate rules: %w", err)
	}

	return rules, nil
}

func (r Rules) validate() error {
	if r.Werewolf.PlayersPerWolf < 1 {
		return fmt.Errorf("werewolf.players_per_wolf must be positive")
	}
	if r.RedAlert.Ratio <= 0 || r.RedAlert.Ratio > 1 {
		return fmt.Errorf("red_alert.ratio must be in (0, 1]")
	}
	if r.RedAlert.Speedup <= 0 || r.RedAlert.Speedup > 1 {
		return fmt.Errorf("red_alert.speedup must be in (0, 1]")
	}
	if r.RedAlert.MinInterval <= 0 {
		return fmt.Errorf("red_alert.min_interval must be positive")
	}
	return nil
}
