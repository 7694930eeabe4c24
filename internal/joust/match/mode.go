package match

import (
	"fmt"
	"strings"
)

// Mode tags a game. The registry below is the only place a mode is turned into rules.
type Mode string

const (
	FreeForAll     Mode = "ffa"
	Werewolf       Mode = "werewolf"
	Zombie         Mode = "zombie"
	RedAlert       Mode = "red_alert"
	SortingToddler Mode = "sorting_toddler"
)

type Info struct {
	Mode       Mode
	Title      string
	MinPlayers int
}

type entry struct {
	info Info
	new  func(rules Rules) game
}

var registry = []entry{
	{info: Info{Mode: FreeForAll, Title: "Free-For-All", MinPlayers: 2}, new: newFFA},
	{info: Info{Mode: Werewolf, Title: "Werewolf", MinPlayers: 3}, new: newWerewolf},
	{info: Info{Mode: Zombie, Title: "Zombie", MinPlayers: 2}, new: newZombie},
	{info: Info{Mode: RedAlert, Title: "Red Alert", MinPlayers: 1}, new: newRedAlert},
	{info: Info{Mode: SortingToddler, Title: "Sorting Toddler", MinPlayers: 1}, new: newToddler},
}

// Modes lists the registered games in selection order.
func Modes() []Info {
	out := make([]Info, 0, len(registry))
	for _, e := range registry {
		out = append(out, e.info)
	}
	return out
}

func Lookup(mode Mode) (Info, bool) {
	for _, e := range registry {
		if e.info.Mode == mode {
			return e.info, true
		}
	}
	return Info{}, false
}

// ParseMode accepts a tag or a title, case insensitive.
func ParseMode(name string) (Mode, error) {
	name = strings.TrimSpace(name)
	for _, e := range registry {
		if strings.EqualFold(string(e.info.Mode), name) || strings.EqualFold(e.info.Title, name) {
			return e.info.Mode, nil
		}
	}
	return "", fmt.Errorf("unknown game mode %q", name)
}

func newGame(mode Mode, rules Rules) (game, error) {
	for _, e := range registry {
		if e.info.Mode == mode {
			return e.new(rules), nil
		}
	}
	return nil, fmt.Errorf("unknown game mode %q", mode)
}
