// Package sound defines the audio cues and the playback contract the game logic relies on.
package sound

import (
	"context"
	"fmt"
)

// ID names a cue. Players map it to a file per language.
type ID string

const (
	ControllerJoined       ID = "controller_joined"
	ControllerDisconnected ID = "controller_disconnected"
	ControllerActivated    ID = "controller_activated"
	ControllerDeactivated  ID = "controller_deactivated"
	AdminGranted           ID = "admin_granted"
	AdminRevoked           ID = "admin_revoked"
	AllPlayersReady        ID = "all_players_ready"

	Countdown3  ID = "countdown_3"
	Countdown2  ID = "countdown_2"
	Countdown1  ID = "countdown_1"
	CountdownGo ID = "countdown_go"

	PlayerOut      ID = "player_out"
	GameOver       ID = "game_over"
	WinnerAnnounce ID = "winner"

	WerewolfReveal ID = "werewolf_reveal"
	WerewolvesWin  ID = "werewolves_win"
	VillagersWin   ID = "villagers_win"

	ZombieSelection  ID = "zombie_selection"
	TooManyZombies   ID = "too_many_zombies"
	NotEnoughZombies ID = "not_enough_zombies"
	ZombiesWin       ID = "zombies_win"
	HumansWin        ID = "humans_win"
	HumanInfected    ID = "human_infected"

	RedAlertRaised ID = "red_alert_raised"
	RedAlertWin    ID = "red_alert_win"
	RedAlertLose   ID = "red_alert_lose"

	Music ID = "music"
)

// NeedMorePlayers is the cue asking for n more players, capped at the recorded range.
func NeedMorePlayers(n int) ID {
	if n < 1 {
		n = 1
	}
	if n > 9 {
		n = 9
	}
	return ID(fmt.Sprintf("need_%d_more_players", n))
}

// Explanation is the rules intro of a game mode.
func Explanation(mode string) ID {
	return ID("explanation_" + mode)
}

// Selected is played when a game mode gets selected in the lobby.
func Selected(mode string) ID {
	return ID("selected_" + mode)
}

type Player interface {
	// Enqueue plays id after whatever is queued and returns immediately.
	Enqueue(id ID)
	// PlayAndWait queues id and blocks until it finished playing or ctx is done.
	PlayAndWait(ctx context.Context, id ID) error
	ClearQueue()
	StopCurrent()
	PlayBackground(id ID)
	StopBackground()
}
