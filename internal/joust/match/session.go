// Package match runs one game round: intro, countdown, the running phase with its
// elimination rules, and the finish presentation.
package match

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/bloops-games/joustparty/internal/device"
	"github.com/bloops-games/joustparty/internal/logging"
	"github.com/bloops-games/joustparty/internal/settings"
	"github.com/bloops-games/joustparty/internal/sound"
	"github.com/bloops-games/joustparty/internal/stream"
	"github.com/bloops-games/joustparty/internal/util"
	"github.com/google/uuid"
)

var ErrNotEnoughPlayers = errors.New("not enough players")

const (
	pulseIntensity   = 150
	warningIntensity = 90
	outIntensity     = 255
)

// game is the mode specific part of a session. Methods taking a *Session without ctx run
// with the session lock held and must not block.
type game interface {
	// setup runs after the explanation and before the countdown.
	setup(ctx context.Context, s *Session) error
	// begin runs once the round is live. Long running work goes through s.spawn.
	begin(ctx context.Context, s *Session)
	move(s *Session, p *player, accel float64)
	lost(s *Session, p *player, c cause)
	result(s *Session) (winners []string, cue sound.ID, done bool)
}

type stateKind uint8

const (
	stateKindNotStarted stateKind = iota + 1
	stateKindIntro
	stateKindCountdown
	stateKindRunning
	stateKindFinishing
	stateKindFinished
)

func (k stateKind) String() string {
	switch k {
	case stateKindNotStarted:
		return "not_started"
	case stateKindIntro:
		return "intro"
	case stateKindCountdown:
		return "countdown"
	case stateKindRunning:
		return "running"
	case stateKindFinishing:
		return "finishing"
	case stateKindFinished:
		return "finished"
	default:
		return "unknown"
	}
}

type Devices interface {
	Device(addr string) (*device.Device, error)
}

type Config struct {
	Mode        Mode
	Roster      []string
	Devices     Devices
	Sound       sound.Player
	Snapshots   *stream.Value[stream.Set]
	Lost        *stream.Value[[]string]
	Rules       Rules
	Sensitivity settings.Sensitivity
	// RunningFn is called when the countdown is over.
	RunningFn func(s *Session)
	// DoneFn is called once from the session goroutine after cleanup. It must not call Stop.
	DoneFn func(s *Session)
}

// Result summarizes a finished round.
type Result struct {
	ID       uuid.UUID
	Mode     Mode
	Roster   []string
	Winners  []string
	Started  time.Time
	Duration time.Duration
	Forced   bool
}

type Session struct {
	ID        uuid.UUID
	Mode      Mode
	CreatedAt time.Time

	mtx     sync.Mutex
	config  Config
	game    game
	state   stateKind
	players map[string]*player
	order   []string
	warning float64
	death   float64

	started   time.Time
	ended     time.Time
	finishing bool
	forced    bool
	winners   []string
	finishCue sound.ID

	lost        *stream.Value[[]string]
	cancelTasks context.CancelFunc
	tasks       sync.WaitGroup
	launched    bool
	finishCh    chan struct{}
	stopCh      chan struct{}
	doneCh      chan struct{}
	runOnce     sync.Once
	stopOnce    sync.Once
}

// New resolves the roster against the live devices. Addresses that are gone are skipped.
func New(ctx context.Context, config Config) (*Session, error) {
	logger := logging.FromContext(ctx).Named("match.New")

	info, ok := Lookup(config.Mode)
	if !ok {
		return nil, fmt.Errorf("lookup mode: unknown game mode %q", config.Mode)
	}

	g, err := newGame(config.Mode, config.Rules)
	if err != nil {
		return nil, fmt.Errorf("new game: %w", err)
	}

	players := map[string]*player{}
	for _, addr := range config.Roster {
		dev, err := config.Devices.Device(addr)
		if err != nil {
			logger.Warnf("skip %s: %v", addr, err)
			continue
		}
		players[addr] = &player{addr: addr, dev: dev, color: device.White}
	}

	if len(players) < info.MinPlayers {
		return nil, fmt.Errorf("%s needs %d players, have %d: %w", info.Title, info.MinPlayers, len(players), ErrNotEnoughPlayers)
	}

	order := make([]string, 0, len(players))
	for addr := range players {
		order = append(order, addr)
	}
	sort.Strings(order)

	if config.Lost == nil {
		config.Lost = stream.NewValue([]string{})
	}
	if !config.Sensitivity.Valid() {
		config.Sensitivity = settings.Medium
	}
	warning, death := config.Sensitivity.Thresholds()

	return &Session{
		ID:        uuid.New(),
		Mode:      config.Mode,
		CreatedAt: time.Now(),
		config:    config,
		game:      g,
		state:     stateKindNotStarted,
		players:   players,
		order:     order,
		warning:   warning,
		death:     death,
		lost:      config.Lost,
		finishCh:  make(chan struct{}, 1),
		stopCh:    make(chan struct{}),
		doneCh:    make(chan struct{}),
	}, nil
}

func (s *Session) Run(ctx context.Context) {
	s.runOnce.Do(func() {
		s.mtx.Lock()
		s.launched = true
		s.mtx.Unlock()

		ctx, cancel := context.WithCancel(ctx)
		go func() {
			select {
			case <-s.stopCh:
				cancel()
			case <-ctx.Done():
			}
		}()
		go s.loop(ctx, cancel)
	})
}

// Stop forces the session to end and waits until it did. Safe to call at any time and
// more than once.
func (s *Session) Stop() {
	s.stopOnce.Do(func() { close(s.stopCh) })

	s.mtx.Lock()
	launched := s.launched
	s.mtx.Unlock()
	if launched {
		<-s.doneCh
	}
}

// Done is closed once the session finished and cleaned up.
func (s *Session) Done() <-chan struct{} {
	return s.doneCh
}

func (s *Session) loop(ctx context.Context, cancel context.CancelFunc) {
	logger := logging.FromContext(ctx).Named("match.loop")
	defer close(s.doneCh)
	defer cancel()

	s.lost.Set([]string{})

	s.setState(stateKindIntro)
	if err := s.intro(ctx); err != nil {
		logger.Infof("intro of %s ended: %v", s.Mode, err)
		s.end(ctx, true)
		return
	}

	s.setState(stateKindCountdown)
	if err := s.countdown(ctx); err != nil {
		logger.Infof("countdown of %s ended: %v", s.Mode, err)
		s.end(ctx, true)
		return
	}

	s.run(ctx)

	select {
	case <-ctx.Done():
		s.end(ctx, true)
	case <-s.finishCh:
		s.end(ctx, false)
	}
}

func (s *Session) setState(k stateKind) {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	s.state = k
}

func (s *Session) intro(ctx context.Context) error {
	s.config.Sound.ClearQueue()

	s.mtx.Lock()
	for _, p := range s.playersLocked() {
		p.dev.SetColor(device.White.Scale(0.3))
	}
	s.mtx.Unlock()

	if err := s.config.Sound.PlayAndWait(ctx, sound.Explanation(string(s.Mode))); err != nil {
		return fmt.Errorf("explanation: %w", err)
	}

	if err := s.game.setup(ctx, s); err != nil {
		return fmt.Errorf("setup: %w", err)
	}

	return ctx.Err()
}

func (s *Session) countdown(ctx context.Context) error {
	steps := []sound.ID{sound.Countdown3, sound.Countdown2, sound.Countdown1, sound.CountdownGo}
	for i, cue := range steps {
		last := i == len(steps)-1

		s.mtx.Lock()
		for _, p := range s.playersLocked() {
			if last {
				p.dev.SetColor(p.color)
			} else {
				p.dev.SetColorAnimation([]device.Color{device.White, device.White.Scale(0.2)}, 400*time.Millisecond, false)
			}
			p.dev.AddRumbleEvent(pulseIntensity, 150*time.Millisecond)
		}
		s.mtx.Unlock()

		if err := s.config.Sound.PlayAndWait(ctx, cue); err != nil {
			return fmt.Errorf("countdown cue %s: %w", cue, err)
		}
	}
	return nil
}

func (s *Session) run(ctx context.Context) {
	taskCtx, cancel := context.WithCancel(ctx)

	s.mtx.Lock()
	s.state = stateKindRunning
	s.started = time.Now()
	s.cancelTasks = cancel
	players := s.playersLocked()
	s.mtx.Unlock()

	if s.config.RunningFn != nil {
		s.config.RunningFn(s)
	}

	for _, p := range players {
		p := p
		s.spawn(taskCtx, func(ctx context.Context) { s.watchAccel(ctx, p) })
	}
	if s.config.Snapshots != nil {
		s.spawn(taskCtx, s.watchDisconnects)
	}
	if s.config.Rules.Music {
		s.spawn(taskCtx, s.music)
	}

	s.game.begin(taskCtx, s)

	s.mtx.Lock()
	s.evaluateLocked()
	s.mtx.Unlock()
}

// spawn runs fn as a session task. Only the session goroutine calls it, before cleanup.
func (s *Session) spawn(ctx context.Context, fn func(ctx context.Context)) {
	s.tasks.Add(1)
	go func() {
		defer s.tasks.Done()
		fn(ctx)
	}()
}

func (s *Session) watchAccel(ctx context.Context, p *player) {
	sub := p.dev.AccelStream()
	defer sub.Close()

	for {
		select {
		case <-ctx.Done():
			return
		case accel, ok := <-sub.C():
			if !ok {
				return
			}
			s.mtx.Lock()
			if s.liveLocked() {
				s.game.move(s, p, accel)
			}
			s.mtx.Unlock()
		}
	}
}

func (s *Session) watchDisconnects(ctx context.Context) {
	sub := s.config.Snapshots.Subscribe()
	defer sub.Close()

	for {
		select {
		case <-ctx.Done():
			return
		case snap, ok := <-sub.C():
			if !ok {
				return
			}
			s.mtx.Lock()
			for _, p := range s.playersLocked() {
				if !snap.Has(p.addr) {
					s.disconnectLocked(p)
				}
			}
			s.mtx.Unlock()
		}
	}
}

func (s *Session) music(ctx context.Context) {
	s.config.Sound.PlayBackground(sound.Music)
	<-ctx.Done()
	s.config.Sound.StopBackground()
}

// Eliminate knocks a player out as if it had been shaken past the death threshold.
func (s *Session) Eliminate(addr string) bool {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	p, ok := s.players[addr]
	if !ok {
		return false
	}
	return s.eliminateLocked(p, causeShake)
}

func (s *Session) liveLocked() bool {
	return s.state == stateKindRunning && !s.finishing
}

// eliminateLocked applies a loss once per player and round.
func (s *Session) eliminateLocked(p *player, c cause) bool {
	if p.lost || !s.liveLocked() {
		return false
	}

	p.lost = true
	p.cause = c
	s.game.lost(s, p, c)
	s.publishLostLocked()
	s.evaluateLocked()
	return true
}

// disconnectLocked records that p left the round. A player that is already out keeps its
// loss effects and only stops counting for its team.
func (s *Session) disconnectLocked(p *player) {
	if p.gone || !s.liveLocked() {
		return
	}
	p.gone = true
	if !s.eliminateLocked(p, causeDisconnect) {
		s.evaluateLocked()
	}
}

// shakeLocked is the default reaction to movement: warn above the warning threshold,
// eliminate above the death threshold.
func (s *Session) shakeLocked(p *player, accel float64) {
	if p.lost {
		return
	}

	switch {
	case accel >= s.death:
		s.eliminateLocked(p, causeShake)
	case accel >= s.warning:
		now := time.Now()
		if now.Sub(p.warned) < s.config.Rules.WarningCooldown {
			return
		}
		p.warned = now
		p.dev.AddRumbleEvent(warningIntensity, 150*time.Millisecond)
		p.dev.SetColorAnimation([]device.Color{p.color.Scale(0.2), p.color}, 200*time.Millisecond, false)
	}
}

// knockOutLocked plays the common elimination effects.
func (s *Session) knockOutLocked(p *player) {
	p.dev.AddRumbleEvent(outIntensity, 400*time.Millisecond)
	p.dev.SetColorAnimation([]device.Color{device.Red, device.Off, device.Red, device.Off}, time.Second, false)
	if p.cause == causeShake {
		s.config.Sound.Enqueue(sound.PlayerOut)
	}
}

// evaluateLocked checks the finish condition after every change. The first positive result
// wins; later ones are ignored.
func (s *Session) evaluateLocked() {
	if !s.liveLocked() {
		return
	}

	winners, cue, done := s.game.result(s)
	if !done {
		return
	}

	s.finishing = true
	s.winners = winners
	s.finishCue = cue
	select {
	case s.finishCh <- struct{}{}:
	default:
	}
}

func (s *Session) publishLostLocked() {
	var lost []string
	for _, p := range s.playersLocked() {
		if p.lost {
			lost = append(lost, p.addr)
		}
	}
	if lost == nil {
		lost = []string{}
	}
	s.lost.Set(lost)
}

// cleanup cancels all session tasks and waits for them. Safe to repeat.
func (s *Session) cleanup() {
	s.mtx.Lock()
	cancel := s.cancelTasks
	s.cancelTasks = nil
	s.mtx.Unlock()

	if cancel != nil {
		cancel()
	}
	s.tasks.Wait()
}

func (s *Session) end(ctx context.Context, forced bool) {
	logger := logging.FromContext(ctx).Named("match.end")

	s.mtx.Lock()
	s.state = stateKindFinishing
	s.finishing = true
	s.forced = forced
	if forced {
		s.winners = nil
		s.finishCue = ""
	}
	s.mtx.Unlock()

	if forced {
		s.config.Sound.StopCurrent()
		s.config.Sound.ClearQueue()
	}

	s.cleanup()

	if !forced {
		if err := s.present(ctx); err != nil {
			logger.Infof("presentation of %s cut short: %v", s.Mode, err)
		}
	}

	s.mtx.Lock()
	s.state = stateKindFinished
	s.ended = time.Now()
	if s.started.IsZero() {
		s.started = s.ended
	}
	s.mtx.Unlock()

	logger.Infof("%s %s finished, forced=%t winners=%v", s.Mode, s.ID, forced, s.Winners())

	if s.config.DoneFn != nil {
		s.config.DoneFn(s)
	}
}

func (s *Session) present(ctx context.Context) error {
	s.mtx.Lock()
	winners := map[string]struct{}{}
	for _, addr := range s.winners {
		winners[addr] = struct{}{}
	}
	for _, p := range s.playersLocked() {
		if _, ok := winners[p.addr]; ok {
			p.dev.SetColorAnimation(device.Rainbow, 2*time.Second, true)
			p.dev.AddRumbleEvent(pulseIntensity, 300*time.Millisecond)
		} else {
			p.dev.SetColor(device.Off)
		}
	}
	cue := s.finishCue
	s.mtx.Unlock()

	s.config.Sound.ClearQueue()
	if cue != "" {
		if err := s.config.Sound.PlayAndWait(ctx, cue); err != nil {
			return err
		}
	}
	return util.Sleep(ctx, s.config.Rules.Celebration)
}

func (s *Session) playersLocked() []*player {
	out := make([]*player, 0, len(s.order))
	for _, addr := range s.order {
		out = append(out, s.players[addr])
	}
	return out
}

func (s *Session) aliveLocked() []string {
	var alive []string
	for _, p := range s.playersLocked() {
		if !p.lost {
			alive = append(alive, p.addr)
		}
	}
	return alive
}

// State returns the session phase name.
func (s *Session) State() string {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	return s.state.String()
}

func (s *Session) Roster() []string {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

func (s *Session) Winners() []string {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	out := make([]string, len(s.winners))
	copy(out, s.winners)
	return out
}

func (s *Session) Lost() []string {
	return s.lost.Get()
}

func (s *Session) Team(addr string) Team {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	if p, ok := s.players[addr]; ok {
		return p.team
	}
	return TeamNone
}

func (s *Session) Result() Result {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	r := Result{
		ID:      s.ID,
		Mode:    s.Mode,
		Roster:  append([]string(nil), s.order...),
		Winners: append([]string(nil), s.winners...),
		Started: s.started,
		Forced:  s.forced,
	}
	if !s.ended.IsZero() {
		r.Duration = s.ended.Sub(s.started)
	}
	return r
}
