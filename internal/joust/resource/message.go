// Package resource holds the texts printed by the command line tools.
package resource

import "github.com/enescakir/emoji"

const (
	ProjectName = "joustparty"
	GithubURL   = "https://github.com/bloops-games/joustparty"
)

var Graffiti = `
   _                 _                       _
  (_) ___  _   _ ___| |_ _ __   __ _ _ __ __| |_ _   _
  | |/ _ \| | | / __| __| '_ \ / _' | '__/ _' | | | | |
  | | (_) | |_| \__ \ |_| |_) | (_| | | | (_| | |_| |
 _/ |\___/ \__,_|___/\__| .__/ \__,_|_|  \__,_|\__, |
|__/                    |_|                    |___/
`

// GreetingCLI takes the project name, the version and the repository url.
var GreetingCLI = emoji.Joystick.String() + " %s %s\n" + emoji.Rocket.String() + " %s\n\n"

var (
	TextHelp = emoji.VideoGame.String() + " commands:\n" +
		"  connect <serial> [usb|bt]     plug in a simulated controller\n" +
		"  disconnect <serial>           unplug it\n" +
		"  click <serial> <button...>    press and release buttons\n" +
		"  shake <serial> <g>            move the controller, 0 puts it down\n" +
		"  start [mode] [all]            force a round, all includes idle players\n" +
		"  stop                          interrupt the round\n" +
		"  mode <name>                   select the lobby game\n" +
		"  sensitivity <tier>            very_low, low, medium, high or very_high\n" +
		"  blink <serial>                flash a controller\n" +
		"  rumble <serial>               rumble a controller\n" +
		"  forget                        unpair every controller\n" +
		"  status                        show the game and the controllers\n" +
		"  rounds [n]                    show the last rounds\n" +
		"  stats <serial>                show the record of a controller\n" +
		"  quit\n"

	TextUnknownCommand = emoji.Robot.String() + " unknown command %q, try help\n"
	TextFailed         = emoji.CrossMark.String() + " %v\n"
	TextOK             = emoji.CheckMarkButton.String() + " ok\n"
	TextIgnored        = emoji.Stopwatch.String() + " ignored in state %s\n"
	TextForgotten      = emoji.Bomb.String() + " forgot %d controllers\n"
	TextNoRounds       = emoji.Snail.String() + " no rounds played yet\n"

	IconActive = emoji.CheckMark.String()
	IconIdle   = emoji.Snail.String()
	IconAdmin  = emoji.Star.String()
	IconLost   = emoji.BrokenHeart.String()
	IconWinner = emoji.Trophy.String()
	IconForced = emoji.ChequeredFlag.String()
)
