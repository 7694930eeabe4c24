// Package lobby lets the players organise themselves between rounds: join, claim admin
// rights, pick a game and get ready.
package lobby

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/bloops-games/joustparty/internal/device"
	"github.com/bloops-games/joustparty/internal/joust/match"
	"github.com/bloops-games/joustparty/internal/logging"
	"github.com/bloops-games/joustparty/internal/sound"
	"github.com/bloops-games/joustparty/internal/stream"
)

var (
	inactiveColor      = device.Orange
	activeColor        = device.Green
	adminInactiveColor = device.Purple
	adminActiveColor   = device.Cyan
)

// colorFor renders the lobby status. Admin variants always win.
func colorFor(active, admin bool) device.Color {
	switch {
	case admin && active:
		return adminActiveColor
	case admin:
		return adminInactiveColor
	case active:
		return activeColor
	default:
		return inactiveColor
	}
}

type Devices interface {
	Device(addr string) (*device.Device, error)
}

// Starter receives start requests. It must not call back into the lobby synchronously.
type Starter interface {
	RequestStart(ctx context.Context, mode match.Mode, roster []string) bool
}

type Config struct {
	Devices     Devices
	Sound       sound.Player
	Snapshots   *stream.Value[stream.Set]
	Starter     Starter
	DefaultMode match.Mode
}

type Lobby struct {
	mtx sync.Mutex

	config    Config
	modes     []match.Info
	active    map[string]bool
	admins    map[string]struct{}
	selected  int
	frozen    bool
	entered   bool
	listeners map[string]context.CancelFunc
	cancel    context.CancelFunc
	wg        sync.WaitGroup

	activeValue *stream.Value[[]string]
	adminValue  *stream.Value[[]string]
}

func New(config Config) *Lobby {
	if config.DefaultMode == "" {
		config.DefaultMode = match.FreeForAll
	}
	return &Lobby{
		config:      config,
		modes:       match.Modes(),
		active:      map[string]bool{},
		admins:      map[string]struct{}{},
		listeners:   map[string]context.CancelFunc{},
		activeValue: stream.NewValue([]string{}),
		adminValue:  stream.NewValue([]string{}),
	}
}

// Enter starts reacting to the controllers. Devices already connected join quietly as inactive.
func (l *Lobby) Enter(ctx context.Context) {
	logger := logging.FromContext(ctx).Named("lobby.Enter")

	l.mtx.Lock()
	defer l.mtx.Unlock()

	if l.entered {
		logger.Warnf("lobby already entered")
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	l.cancel = cancel
	l.entered = true
	l.frozen = false
	l.selected = l.indexOf(l.config.DefaultMode)
	l.active = map[string]bool{}

	sub := l.config.Snapshots.Subscribe()
	snap := <-sub.C()

	for addr := range l.admins {
		if !snap.Has(addr) {
			delete(l.admins, addr)
		}
	}

	var differ stream.Differ
	differ.Next(snap)
	for _, addr := range snap.Items() {
		l.addLocked(ctx, addr)
	}
	l.publishLocked()

	l.wg.Add(1)
	go l.watch(ctx, sub, &differ)
}

// Leave stops all lobby listeners and waits for them.
func (l *Lobby) Leave() {
	l.mtx.Lock()
	cancel := l.cancel
	l.cancel = nil
	l.entered = false
	l.listeners = map[string]context.CancelFunc{}
	l.mtx.Unlock()

	if cancel != nil {
		cancel()
	}
	l.wg.Wait()
}

func (l *Lobby) watch(ctx context.Context, sub *stream.Subscription[stream.Set], differ *stream.Differ) {
	defer l.wg.Done()
	defer sub.Close()

	for {
		select {
		case <-ctx.Done():
			return
		case snap, ok := <-sub.C():
			if !ok {
				return
			}
			added, removed := differ.Next(snap)

			l.mtx.Lock()
			if !l.entered {
				l.mtx.Unlock()
				return
			}
			for _, addr := range removed.Items() {
				l.removeLocked(addr)
			}
			for _, addr := range added.Items() {
				if l.addLocked(ctx, addr) {
					l.config.Sound.Enqueue(sound.ControllerJoined)
				}
			}
			l.publishLocked()
			l.mtx.Unlock()
		}
	}
}

func (l *Lobby) addLocked(ctx context.Context, addr string) bool {
	logger := logging.FromContext(ctx).Named("lobby.add")

	dev, err := l.config.Devices.Device(addr)
	if err != nil {
		logger.Warnf("join %s: %v", addr, err)
		return false
	}

	l.active[addr] = false
	l.refreshLocked(addr)

	lctx, cancel := context.WithCancel(ctx)
	l.listeners[addr] = cancel
	clicks, detach := dev.Clicks()

	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		defer detach()
		for {
			select {
			case <-lctx.Done():
				return
			case b, ok := <-clicks:
				if !ok {
					return
				}
				l.handleClick(lctx, addr, b)
			}
		}
	}()
	return true
}

func (l *Lobby) removeLocked(addr string) {
	if cancel, ok := l.listeners[addr]; ok {
		cancel()
		delete(l.listeners, addr)
	}
	if _, ok := l.active[addr]; !ok {
		return
	}
	delete(l.active, addr)
	delete(l.admins, addr)
	l.config.Sound.Enqueue(sound.ControllerDisconnected)
}

func (l *Lobby) handleClick(ctx context.Context, addr string, b device.ButtonSet) {
	l.mtx.Lock()

	if l.frozen || !l.entered {
		l.mtx.Unlock()
		return
	}
	active, known := l.active[addr]
	if !known {
		l.mtx.Unlock()
		return
	}
	_, admin := l.admins[addr]

	if b.Any(device.FaceButtons) {
		if admin {
			delete(l.admins, addr)
			l.config.Sound.Enqueue(sound.AdminRevoked)
		} else {
			l.admins[addr] = struct{}{}
			l.config.Sound.Enqueue(sound.AdminGranted)
		}
		l.refreshLocked(addr)
	}

	if admin && b.Has(device.ButtonSelect) {
		l.selectLocked(l.selected - 1)
	}
	if admin && b.Has(device.ButtonStart) {
		l.selectLocked(l.selected + 1)
	}

	var (
		start bool
		force bool
	)
	if b.Has(device.ButtonTrigger) {
		active = !active
		l.active[addr] = active
		l.refreshLocked(addr)
		if active {
			l.config.Sound.Enqueue(sound.ControllerActivated)
			start = l.allActiveLocked()
		} else {
			l.config.Sound.Enqueue(sound.ControllerDeactivated)
		}
	}
	if admin && b.Has(device.ButtonMove) {
		start, force = true, true
	}

	l.publishLocked()
	l.mtx.Unlock()

	if start {
		l.TryStart(ctx, "", force)
	}
}

func (l *Lobby) allActiveLocked() bool {
	if len(l.active) == 0 {
		return false
	}
	for _, active := range l.active {
		if !active {
			return false
		}
	}
	return true
}

// TryStart asks for a round of mode, or of the selected game when mode is empty. With force
// every known controller plays, ready or not.
func (l *Lobby) TryStart(ctx context.Context, mode match.Mode, force bool) bool {
	logger := logging.FromContext(ctx).Named("lobby.TryStart")

	l.mtx.Lock()
	if l.frozen || !l.entered {
		l.mtx.Unlock()
		logger.Warnf("start ignored, lobby is not accepting input")
		return false
	}

	if mode == "" {
		mode = l.modes[l.selected].Mode
	}
	info, ok := match.Lookup(mode)
	if !ok {
		l.mtx.Unlock()
		logger.Warnf("start ignored, unknown mode %q", mode)
		return false
	}

	var candidates []string
	for addr, active := range l.active {
		if force || active {
			candidates = append(candidates, addr)
		}
	}
	if len(candidates) < info.MinPlayers {
		l.config.Sound.Enqueue(sound.NeedMorePlayers(info.MinPlayers - len(candidates)))
		l.mtx.Unlock()
		return false
	}

	l.frozen = true
	l.config.Sound.Enqueue(sound.AllPlayersReady)
	l.mtx.Unlock()

	snap := l.config.Snapshots.Get()
	roster := make([]string, 0, len(candidates))
	for _, addr := range candidates {
		if snap.Has(addr) {
			roster = append(roster, addr)
		}
	}
	sort.Strings(roster)

	if l.config.Starter.RequestStart(ctx, info.Mode, roster) {
		logger.Infof("starting %s with %v", info.Title, roster)
		return true
	}

	l.mtx.Lock()
	l.frozen = false
	l.mtx.Unlock()
	return false
}

// SetGameMode selects mode as if an admin had cycled to it.
func (l *Lobby) SetGameMode(mode match.Mode) error {
	l.mtx.Lock()
	defer l.mtx.Unlock()

	idx := -1
	for i, info := range l.modes {
		if info.Mode == mode {
			idx = i
		}
	}
	if idx < 0 {
		return fmt.Errorf("set game mode: unknown mode %q", mode)
	}
	if l.frozen {
		return fmt.Errorf("set game mode: lobby is starting a round")
	}
	l.selectLocked(idx)
	return nil
}

func (l *Lobby) selectLocked(idx int) {
	n := len(l.modes)
	l.selected = ((idx % n) + n) % n
	l.config.Sound.StopCurrent()
	l.config.Sound.ClearQueue()
	l.config.Sound.Enqueue(sound.Selected(string(l.modes[l.selected].Mode)))
}

func (l *Lobby) indexOf(mode match.Mode) int {
	for i, info := range l.modes {
		if info.Mode == mode {
			return i
		}
	}
	return 0
}

func (l *Lobby) refreshLocked(addr string) {
	dev, err := l.config.Devices.Device(addr)
	if err != nil {
		return
	}
	_, admin := l.admins[addr]
	dev.SetColor(colorFor(l.active[addr], admin))
}

func (l *Lobby) publishLocked() {
	active := []string{}
	for addr, ok := range l.active {
		if ok {
			active = append(active, addr)
		}
	}
	sort.Strings(active)
	l.activeValue.Set(active)

	admins := []string{}
	for addr := range l.admins {
		admins = append(admins, addr)
	}
	sort.Strings(admins)
	l.adminValue.Set(admins)
}

func (l *Lobby) Selected() match.Info {
	l.mtx.Lock()
	defer l.mtx.Unlock()
	return l.modes[l.selected]
}

func (l *Lobby) Frozen() bool {
	l.mtx.Lock()
	defer l.mtx.Unlock()
	return l.frozen
}

// Members returns every known controller with its ready flag.
func (l *Lobby) Members() map[string]bool {
	l.mtx.Lock()
	defer l.mtx.Unlock()
	out := make(map[string]bool, len(l.active))
	for addr, active := range l.active {
		out[addr] = active
	}
	return out
}

func (l *Lobby) IsAdmin(addr string) bool {
	l.mtx.Lock()
	defer l.mtx.Unlock()
	_, ok := l.admins[addr]
	return ok
}

// ActiveStream publishes the sorted ready controllers.
func (l *Lobby) ActiveStream() *stream.Value[[]string] {
	return l.activeValue
}

func (l *Lobby) AdminStream() *stream.Value[[]string] {
	return l.adminValue
}
