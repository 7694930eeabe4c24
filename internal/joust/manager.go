// Package joust wires the controllers, the lobby and the game sessions together and exposes
// the control surface used by the command line tools.
package joust

import (
	"context"
	"fmt"
	"sync"

	"github.com/bloops-games/joustparty/internal/bluetooth"
	"github.com/bloops-games/joustparty/internal/database/round/model"
	statModel "github.com/bloops-games/joustparty/internal/database/stat/model"
	"github.com/bloops-games/joustparty/internal/device"
	"github.com/bloops-games/joustparty/internal/joust/lobby"
	"github.com/bloops-games/joustparty/internal/joust/match"
	"github.com/bloops-games/joustparty/internal/joust/state"
	"github.com/bloops-games/joustparty/internal/logging"
	"github.com/bloops-games/joustparty/internal/settings"
	"github.com/bloops-games/joustparty/internal/sound"
	"github.com/bloops-games/joustparty/internal/stream"
	"golang.org/x/sync/errgroup"
)

const rumbleIntensity = 200

// RoundRecorder stores finished rounds.
type RoundRecorder interface {
	Add(r model.Round) error
}

// StatRecorder stores the outcome of a round per controller.
type StatRecorder interface {
	Add(stats ...statModel.Stat) error
}

func NewManager(
	config *Config,
	rules match.Rules,
	poller *device.Poller,
	watcher *device.Watcher,
	player sound.Player,
	store settings.Store,
	adapter bluetooth.Adapter,
	rounds RoundRecorder,
	stats StatRecorder,
) *Manager {
	m := &Manager{
		config:  config,
		rules:   rules,
		poller:  poller,
		watcher: watcher,
		player:  player,
		store:   store,
		adapter: adapter,
		rounds:  rounds,
		stats:   stats,
		state:   state.New(),
		lost:    stream.NewValue([]string{}),
		ctx:     context.Background(),
	}
	m.lobby = lobby.New(lobby.Config{
		Devices:     poller,
		Sound:       player,
		Snapshots:   watcher.Snapshots(),
		Starter:     m,
		DefaultMode: match.Mode(config.DefaultMode),
	})
	return m
}

type Manager struct {
	mtx sync.Mutex

	ctx     context.Context
	config  *Config
	rules   match.Rules
	poller  *device.Poller
	watcher *device.Watcher
	player  sound.Player
	store   settings.Store
	adapter bluetooth.Adapter
	rounds  RoundRecorder
	stats   StatRecorder

	state   *state.Machine
	lobby   *lobby.Lobby
	session *match.Session
	lost    *stream.Value[[]string]
	cancel  func()

	// a stop requested while the round is being set up
	stopPending bool
}

func (m *Manager) Stop() {
	m.mtx.Lock()
	cancel := m.cancel
	m.mtx.Unlock()
	if cancel != nil {
		cancel()
	}
}

// Run drives the poller, the watcher and the lobby until ctx is done. Any running round is
// stopped on the way out.
func (m *Manager) Run(ctx context.Context) error {
	logger := logging.FromContext(ctx).Named("joust.Run")

	ctx, cancel := context.WithCancel(ctx)
	m.mtx.Lock()
	m.ctx = ctx
	m.cancel = cancel
	m.mtx.Unlock()
	defer cancel()

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := m.poller.Run(gCtx); err != nil {
			return fmt.Errorf("poller: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		if err := m.watcher.Run(gCtx); err != nil {
			return fmt.Errorf("watcher: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		m.lobby.Enter(gCtx)
		<-gCtx.Done()
		logger.Infof("shutting down")

		m.mtx.Lock()
		s := m.session
		m.mtx.Unlock()
		if s != nil {
			s.Stop()
		}
		m.lobby.Leave()
		return nil
	})

	return g.Wait()
}

// RequestStart moves the game from the lobby to a starting round. The round itself is set
// up asynchronously since the lobby calls this from its own listeners.
func (m *Manager) RequestStart(ctx context.Context, mode match.Mode, roster []string) bool {
	if !m.state.TransitionFrom(ctx, state.Lobby, state.GameStarting) {
		return false
	}

	m.mtx.Lock()
	runCtx := m.ctx
	m.stopPending = false
	m.mtx.Unlock()

	go m.startSession(runCtx, mode, roster)
	return true
}

func (m *Manager) startSession(ctx context.Context, mode match.Mode, roster []string) {
	logger := logging.FromContext(ctx).Named("joust.startSession")

	m.lobby.Leave()
	m.lost.Set([]string{})

	sensitivity, err := m.store.Sensitivity(ctx)
	if err != nil {
		logger.Warnf("read sensitivity: %v", err)
		sensitivity = settings.Medium
	}

	s, err := match.New(ctx, match.Config{
		Mode:        mode,
		Roster:      roster,
		Devices:     m.poller,
		Sound:       m.player,
		Snapshots:   m.watcher.Snapshots(),
		Lost:        m.lost,
		Rules:       m.rules,
		Sensitivity: sensitivity,
		RunningFn:   m.onRunning(ctx),
		DoneFn:      m.onDone(ctx),
	})
	if err != nil {
		logger.Errorf("new session: %v", err)
		m.state.Transition(ctx, state.GameInterrupted)
		m.backToLobby(ctx)
		return
	}

	m.mtx.Lock()
	stopped := m.stopPending
	m.stopPending = false
	if !stopped {
		m.session = s
	}
	m.mtx.Unlock()

	if stopped {
		logger.Infof("round %s of %s stopped before it started", s.ID, mode)
		s.Stop()
		m.state.Transition(ctx, state.GameInterrupted)
		m.backToLobby(ctx)
		return
	}

	logger.Infof("round %s of %s with %v", s.ID, mode, s.Roster())
	s.Run(ctx)
}

func (m *Manager) onRunning(ctx context.Context) func(*match.Session) {
	return func(*match.Session) {
		m.state.TransitionFrom(ctx, state.GameStarting, state.GameRunning)
	}
}

func (m *Manager) onDone(ctx context.Context) func(*match.Session) {
	return func(s *match.Session) {
		logger := logging.FromContext(ctx).Named("joust.onDone")

		res := s.Result()
		if res.Forced {
			m.state.Transition(ctx, state.GameInterrupted)
		} else {
			m.state.Transition(ctx, state.GameFinished)
		}

		if m.rounds != nil {
			if err := m.rounds.Add(model.Round{
				ID:       res.ID,
				Mode:     string(res.Mode),
				Roster:   res.Roster,
				Winners:  res.Winners,
				Started:  res.Started,
				Duration: res.Duration,
				Forced:   res.Forced,
			}); err != nil {
				logger.Errorf("record round: %v", err)
			}
		}
		if m.stats != nil {
			if err := m.stats.Add(roundStats(s, res)...); err != nil {
				logger.Errorf("record stats: %v", err)
			}
		}

		m.mtx.Lock()
		if m.session == s {
			m.session = nil
		}
		m.mtx.Unlock()

		m.backToLobby(ctx)
	}
}

func roundStats(s *match.Session, res match.Result) []statModel.Stat {
	winners := map[string]struct{}{}
	for _, addr := range res.Winners {
		winners[addr] = struct{}{}
	}
	lost := map[string]struct{}{}
	for _, addr := range s.Lost() {
		lost[addr] = struct{}{}
	}

	stats := make([]statModel.Stat, 0, len(res.Roster))
	for _, addr := range res.Roster {
		conclusion := statModel.ConclusionSurvived
		if _, ok := lost[addr]; ok {
			conclusion = statModel.ConclusionOut
		}
		if _, ok := winners[addr]; ok {
			conclusion = statModel.ConclusionWon
		}
		if res.Forced {
			conclusion = statModel.ConclusionInterrupted
		}

		var team string
		if t := s.Team(addr); t != match.TeamNone {
			team = t.String()
		}

		stats = append(stats, statModel.Stat{
			RoundID:    res.ID,
			Address:    addr,
			Mode:       string(res.Mode),
			Team:       team,
			Conclusion: conclusion,
			PlayersNum: len(res.Roster),
			Duration:   res.Duration,
			CreatedAt:  res.Started,
		})
	}
	return stats
}

func (m *Manager) backToLobby(ctx context.Context) {
	m.state.Transition(ctx, state.Lobby)
	if ctx.Err() != nil {
		return
	}
	m.lobby.Enter(ctx)
}

// ForceStartGame starts a round from the lobby. An empty mode uses the selected game.
func (m *Manager) ForceStartGame(ctx context.Context, mode string, forceAll bool) (bool, error) {
	var parsed match.Mode
	if mode != "" {
		p, err := match.ParseMode(mode)
		if err != nil {
			return false, fmt.Errorf("force start: %w", err)
		}
		parsed = p
	}

	if curr := m.state.Current(); curr != state.Lobby {
		logging.FromContext(ctx).Named("joust.ForceStartGame").Warnf("cannot start in state %s", curr)
		return false, nil
	}
	return m.lobby.TryStart(ctx, parsed, forceAll), nil
}

// ForceStopGame ends the current round without presentation. A round that is still being
// set up is dropped before it starts.
func (m *Manager) ForceStopGame(ctx context.Context) bool {
	m.mtx.Lock()
	s := m.session
	if s == nil && m.state.Current() == state.GameStarting {
		m.stopPending = true
		m.mtx.Unlock()
		return true
	}
	m.mtx.Unlock()

	if s == nil {
		logging.FromContext(ctx).Named("joust.ForceStopGame").Warnf("no round to stop in state %s", m.state.Current())
		return false
	}
	s.Stop()
	return true
}

func (m *Manager) SetGameMode(name string) error {
	mode, err := match.ParseMode(name)
	if err != nil {
		return fmt.Errorf("set game mode: %w", err)
	}
	return m.lobby.SetGameMode(mode)
}

func (m *Manager) SetSensitivity(ctx context.Context, tier string) error {
	s, err := settings.ParseSensitivity(tier)
	if err != nil {
		return fmt.Errorf("set sensitivity: %w", err)
	}
	if err := m.store.SetSensitivity(ctx, s); err != nil {
		return fmt.Errorf("set sensitivity: %w", err)
	}
	return nil
}

// Blink flashes a controller white and returns it to its current color.
func (m *Manager) Blink(addr string) error {
	dev, err := m.poller.Device(addr)
	if err != nil {
		return fmt.Errorf("blink: %w", err)
	}
	curr := dev.Color()
	frames := []device.Color{device.White, device.Off, device.White, device.Off, device.White, curr}
	if err := m.poller.SetColorAnimation(addr, frames, m.config.Blink, false); err != nil {
		return fmt.Errorf("blink: %w", err)
	}
	return nil
}

func (m *Manager) Rumble(addr string) error {
	if err := m.poller.AddRumbleEvent(addr, rumbleIntensity, m.config.Rumble); err != nil {
		return fmt.Errorf("rumble: %w", err)
	}
	return nil
}

// DisconnectAndForgetAllPaired unpairs every controller known to the host.
func (m *Manager) DisconnectAndForgetAllPaired(ctx context.Context) (int, error) {
	n, err := bluetooth.ForgetAll(ctx, m.adapter)
	if err != nil {
		return 0, fmt.Errorf("forget paired: %w", err)
	}
	return n, nil
}

func (m *Manager) State() *stream.Value[state.Kind] {
	return m.state.Stream()
}

func (m *Manager) Active() *stream.Value[[]string] {
	return m.lobby.ActiveStream()
}

func (m *Manager) Admins() *stream.Value[[]string] {
	return m.lobby.AdminStream()
}

func (m *Manager) Telemetry() *stream.Value[[]device.Telemetry] {
	return m.poller.Telemetry()
}

// Lost publishes the players out of the current round.
func (m *Manager) Lost() *stream.Value[[]string] {
	return m.lost
}

// Snapshots publishes the connected controllers.
func (m *Manager) Snapshots() *stream.Value[stream.Set] {
	return m.watcher.Snapshots()
}

// Lobby exposes the lobby for status output.
func (m *Manager) Lobby() *lobby.Lobby {
	return m.lobby
}

// Session returns the running round, if any.
func (m *Manager) Session() (*match.Session, bool) {
	m.mtx.Lock()
	defer m.mtx.Unlock()
	return m.session, m.session != nil
}

var _ lobby.Starter = (*Manager)(nil)
