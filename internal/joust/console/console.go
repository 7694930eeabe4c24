// Package console is the interactive front of the simulator: it plugs simulated controllers
// in and out, presses their buttons and drives the game control surface.
package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/bloops-games/joustparty/internal/database/round/model"
	statModel "github.com/bloops-games/joustparty/internal/database/stat/model"
	"github.com/bloops-games/joustparty/internal/device"
	"github.com/bloops-games/joustparty/internal/device/simdriver"
	"github.com/bloops-games/joustparty/internal/joust"
	"github.com/bloops-games/joustparty/internal/joust/match"
	"github.com/bloops-games/joustparty/internal/joust/resource"
	"github.com/bloops-games/joustparty/internal/logging"
	"github.com/bloops-games/joustparty/internal/strpool"
	"github.com/bloops-games/joustparty/internal/util"
)

// clickHold keeps the buttons down for several status polls.
const clickHold = 50 * time.Millisecond

var errUsage = errors.New("wrong arguments, try help")

type Rounds interface {
	Recent(n int) ([]model.Round, error)
}

type Stats interface {
	FetchProfileStat(addr string) (statModel.AggregationStat, error)
}

type Console struct {
	manager *joust.Manager
	driver  *simdriver.Driver
	rounds  Rounds
	stats   Stats
	recent  int
	out     io.Writer
}

func New(manager *joust.Manager, driver *simdriver.Driver, rounds Rounds, stats Stats, recent int, out io.Writer) *Console {
	if recent <= 0 {
		recent = 10
	}
	return &Console{manager: manager, driver: driver, rounds: rounds, stats: stats, recent: recent, out: out}
}

// Run executes the commands read from in until quit, EOF or ctx is done.
func (c *Console) Run(ctx context.Context, in io.Reader) error {
	logger := logging.FromContext(ctx).Named("console.Run")

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		if err := scanner.Err(); err != nil {
			logger.Errorf("read commands: %v", err)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			quit, err := c.Exec(ctx, line)
			if err != nil {
				c.printf(resource.TextFailed, err)
			}
			if quit {
				return nil
			}
		}
	}
}

// Exec runs a single command line.
func (c *Console) Exec(ctx context.Context, line string) (bool, error) {
	args := strings.Fields(line)
	if len(args) == 0 {
		return false, nil
	}
	cmd, args := strings.ToLower(args[0]), args[1:]

	switch cmd {
	case "quit", "exit":
		return true, nil
	case "help":
		c.printf("%s", resource.TextHelp)
		return false, nil
	case "connect":
		return false, c.connect(args)
	case "disconnect":
		if len(args) != 1 {
			return false, errUsage
		}
		c.driver.Disconnect(args[0])
	case "click":
		return false, c.click(ctx, args)
	case "shake":
		return false, c.shake(args)
	case "start":
		return false, c.start(ctx, args)
	case "stop":
		if !c.manager.ForceStopGame(ctx) {
			c.printf(resource.TextIgnored, c.manager.State().Get())
			return false, nil
		}
	case "mode":
		if len(args) == 0 {
			return false, errUsage
		}
		if err := c.manager.SetGameMode(strings.Join(args, " ")); err != nil {
			return false, err
		}
	case "sensitivity":
		if len(args) != 1 {
			return false, errUsage
		}
		if err := c.manager.SetSensitivity(ctx, args[0]); err != nil {
			return false, err
		}
	case "blink", "rumble":
		if len(args) != 1 {
			return false, errUsage
		}
		fn := c.manager.Blink
		if cmd == "rumble" {
			fn = c.manager.Rumble
		}
		if err := fn(args[0]); err != nil {
			return false, err
		}
	case "forget":
		n, err := c.manager.DisconnectAndForgetAllPaired(ctx)
		if err != nil {
			return false, err
		}
		c.printf(resource.TextForgotten, n)
		return false, nil
	case "status":
		c.printf("%s", c.Status())
		return false, nil
	case "rounds":
		return false, c.printRounds(args)
	case "stats":
		return false, c.printStats(args)
	default:
		c.printf(resource.TextUnknownCommand, cmd)
		return false, nil
	}

	c.printf("%s", resource.TextOK)
	return false, nil
}

func (c *Console) connect(args []string) error {
	if len(args) == 0 || len(args) > 2 {
		return errUsage
	}
	conn := device.ConnectionBluetooth
	if len(args) == 2 {
		switch args[1] {
		case "usb":
			conn = device.ConnectionUSB
		case "bt", "bluetooth":
		default:
			return fmt.Errorf("unknown connection %q", args[1])
		}
	}
	c.driver.Connect(args[0], conn)
	return nil
}

func (c *Console) controller(serial string) (*simdriver.Controller, error) {
	ctrl, ok := c.driver.Controller(serial)
	if !ok {
		return nil, fmt.Errorf("%s: %w", serial, device.ErrDeviceNotFound)
	}
	return ctrl, nil
}

func (c *Console) click(ctx context.Context, args []string) error {
	if len(args) < 2 {
		return errUsage
	}
	ctrl, err := c.controller(args[0])
	if err != nil {
		return err
	}

	buttons := make([]device.Button, 0, len(args)-1)
	for _, name := range args[1:] {
		b, ok := device.ParseButton(strings.ToLower(name))
		if !ok {
			return fmt.Errorf("unknown button %q", name)
		}
		buttons = append(buttons, b)
	}

	ctrl.Press(buttons...)
	err = util.Sleep(ctx, clickHold)
	ctrl.Release(buttons...)
	return err
}

func (c *Console) shake(args []string) error {
	if len(args) != 2 {
		return errUsage
	}
	ctrl, err := c.controller(args[0])
	if err != nil {
		return err
	}
	g, err := strconv.ParseFloat(args[1], 64)
	if err != nil {
		return fmt.Errorf("parse acceleration: %w", err)
	}
	ctrl.Shake(g)
	return nil
}

func (c *Console) start(ctx context.Context, args []string) error {
	var all bool
	if n := len(args); n > 0 && args[n-1] == "all" {
		all = true
		args = args[:n-1]
	}

	started, err := c.manager.ForceStartGame(ctx, strings.Join(args, " "), all)
	if err != nil {
		return err
	}
	if !started {
		c.printf(resource.TextIgnored, c.manager.State().Get())
		return nil
	}
	c.printf("%s", resource.TextOK)
	return nil
}

// Status renders the game state and one line per connected controller.
func (c *Console) Status() string {
	kind := c.manager.State().Get()
	lobby := c.manager.Lobby()

	lost := map[string]struct{}{}
	for _, addr := range c.manager.Lost().Get() {
		lost[addr] = struct{}{}
	}
	members := lobby.Members()
	session, inGame := c.manager.Session()

	return strpool.Render(func(b *strings.Builder) {
		fmt.Fprintf(b, "state: %s", kind)
		if inGame {
			fmt.Fprintf(b, "  round: %s (%s)", session.Mode, session.State())
		} else {
			fmt.Fprintf(b, "  game: %s", lobby.Selected().Title)
		}
		b.WriteString("\n")

		for _, tel := range c.manager.Telemetry().Get() {
			icon := resource.IconIdle
			if members[tel.Address] {
				icon = resource.IconActive
			}
			if _, ok := lost[tel.Address]; ok && kind.InGame() {
				icon = resource.IconLost
			}
			fmt.Fprintf(b, "  %s %-18s %-9s battery %-8s accel %.2f", icon, tel.Address, tel.Connection, tel.Battery, tel.Accel)
			if lobby.IsAdmin(tel.Address) {
				b.WriteString(" " + resource.IconAdmin)
			}
			if inGame {
				if team := session.Team(tel.Address); team != match.TeamNone {
					fmt.Fprintf(b, " %s", team)
				}
			}
			b.WriteString("\n")
		}
	})
}

func (c *Console) printRounds(args []string) error {
	n := c.recent
	if len(args) == 1 {
		v, err := strconv.Atoi(args[0])
		if err != nil || v <= 0 {
			return errUsage
		}
		n = v
	}
	if c.rounds == nil {
		c.printf("%s", resource.TextNoRounds)
		return nil
	}

	rounds, err := c.rounds.Recent(n)
	if err != nil {
		return fmt.Errorf("recent rounds: %w", err)
	}
	if len(rounds) == 0 {
		c.printf("%s", resource.TextNoRounds)
		return nil
	}

	c.printf("%s", strpool.Render(func(b *strings.Builder) {
		for _, r := range rounds {
			fmt.Fprintf(b, "%s %-16s %6s  ", r.Started.Format("15:04:05"), r.Mode, r.Duration.Round(time.Second))
			if r.Forced {
				b.WriteString(resource.IconForced + " interrupted\n")
				continue
			}
			winners := append([]string(nil), r.Winners...)
			sort.Strings(winners)
			fmt.Fprintf(b, "%s %s\n", resource.IconWinner, strings.Join(winners, ", "))
		}
	}))
	return nil
}

func (c *Console) printStats(args []string) error {
	if len(args) != 1 {
		return errUsage
	}
	if c.stats == nil {
		c.printf("%s", resource.TextNoRounds)
		return nil
	}

	profile, err := c.stats.FetchProfileStat(args[0])
	if err != nil {
		return fmt.Errorf("profile of %s: %w", args[0], err)
	}

	c.printf("%s", strpool.Render(func(b *strings.Builder) {
		fmt.Fprintf(b, "%s rounds %d  %s %d  %s %d  interrupted %d\n",
			args[0], profile.Count, resource.IconWinner, profile.Wins, resource.IconLost, profile.Outs, profile.Interrupted)
		fmt.Fprintf(b, "  average %s  longest %s\n", profile.AvgDuration.Round(time.Second), profile.LongestRound.Round(time.Second))

		modes := make([]string, 0, len(profile.Modes))
		for mode := range profile.Modes {
			modes = append(modes, mode)
		}
		sort.Strings(modes)
		for _, mode := range modes {
			fmt.Fprintf(b, "  %-16s %d\n", mode, profile.Modes[mode])
		}
	}))
	return nil
}

func (c *Console) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(c.out, format, args...)
}
