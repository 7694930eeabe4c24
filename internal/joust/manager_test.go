package joust

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/bloops-games/joustparty/internal/bluetooth"
	"github.com/bloops-games/joustparty/internal/database/round/model"
	statModel "github.com/bloops-games/joustparty/internal/database/stat/model"
	"github.com/bloops-games/joustparty/internal/device"
	"github.com/bloops-games/joustparty/internal/device/simdriver"
	"github.com/bloops-games/joustparty/internal/joust/match"
	"github.com/bloops-games/joustparty/internal/joust/state"
	"github.com/bloops-games/joustparty/internal/settings"
	"github.com/bloops-games/joustparty/internal/sound"
	"github.com/bloops-games/joustparty/internal/sound/soundtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type rounds struct {
	mtx  sync.Mutex
	list []model.Round
}

func (r *rounds) Add(round model.Round) error {
	r.mtx.Lock()
	defer r.mtx.Unlock()
	r.list = append(r.list, round)
	return nil
}

func (r *rounds) all() []model.Round {
	r.mtx.Lock()
	defer r.mtx.Unlock()
	return append([]model.Round(nil), r.list...)
}

type stats struct {
	mtx  sync.Mutex
	list []statModel.Stat
}

func (s *stats) Add(list ...statModel.Stat) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	s.list = append(s.list, list...)
	return nil
}

func (s *stats) all() []statModel.Stat {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	return append([]statModel.Stat(nil), s.list...)
}

// gatedStore holds sensitivity reads while a gate is set, which keeps a round in setup.
type gatedStore struct {
	*settings.Memory

	mtx  sync.Mutex
	gate chan struct{}
}

func (s *gatedStore) hold() {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	s.gate = make(chan struct{})
}

func (s *gatedStore) release() {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	if s.gate != nil {
		close(s.gate)
		s.gate = nil
	}
}

func (s *gatedStore) Sensitivity(ctx context.Context) (settings.Sensitivity, error) {
	s.mtx.Lock()
	gate := s.gate
	s.mtx.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return 0, ctx.Err()
		}
	}
	return s.Memory.Sensitivity(ctx)
}

type rig struct {
	m       *Manager
	drv     *simdriver.Driver
	rec     *soundtest.Recorder
	store   *settings.Memory
	gated   *gatedStore
	adapter *bluetooth.Memory
	rounds  *rounds
	stats   *stats
}

func newRig(t *testing.T, serials ...string) *rig {
	t.Helper()

	devConfig := device.Config{
		StatusInterval:  time.Millisecond,
		UpdateInterval:  5 * time.Millisecond,
		RefreshInterval: time.Second,
		ScanInterval:    10 * time.Millisecond,
		PairTTL:         time.Minute,
		ClickBuffer:     16,
	}

	r := &rig{
		drv:     simdriver.New(),
		rec:     soundtest.New(),
		store:   settings.NewMemory(),
		adapter: bluetooth.NewMemory(serials...),
		rounds:  &rounds{},
		stats:   &stats{},
	}
	r.gated = &gatedStore{Memory: r.store}
	t.Cleanup(r.gated.release)
	for _, serial := range serials {
		r.drv.Connect(serial, device.ConnectionBluetooth)
	}

	rules := match.DefaultRules()
	rules.Music = false
	rules.Celebration = 0

	config := &Config{DefaultMode: string(match.FreeForAll), Blink: 600 * time.Millisecond, Rumble: 500 * time.Millisecond, Device: devConfig}
	poller := device.NewPoller(devConfig)
	watcher := device.NewWatcher(devConfig, r.drv, poller, bluetooth.NewPairer(r.adapter))
	r.m = NewManager(config, rules, poller, watcher, r.rec, r.gated, r.adapter, r.rounds, r.stats)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.m.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	require.Eventually(t, func() bool {
		return len(r.m.Lobby().Members()) == len(serials)
	}, 2*time.Second, 5*time.Millisecond)
	return r
}

func (r *rig) click(t *testing.T, serial string, b device.Button) {
	t.Helper()
	ctrl, ok := r.drv.Controller(serial)
	require.True(t, ok)
	ctrl.Press(b)
	time.Sleep(10 * time.Millisecond)
	ctrl.Release(b)
	time.Sleep(10 * time.Millisecond)
}

func (r *rig) waitState(t *testing.T, k state.Kind) {
	t.Helper()
	require.Eventually(t, func() bool {
		return r.m.State().Get() == k
	}, 2*time.Second, 2*time.Millisecond, "waiting for %s", k)
}

func TestReadyPlayersStartRound(t *testing.T) {
	r := newRig(t, "AA", "BB", "CC")

	for _, serial := range []string{"AA", "BB", "CC"} {
		r.click(t, serial, device.ButtonTrigger)
	}

	r.waitState(t, state.GameRunning)
	s, ok := r.m.Session()
	require.True(t, ok)
	assert.Equal(t, match.FreeForAll, s.Mode)
	assert.Equal(t, []string{"AA", "BB", "CC"}, s.Roster())

	require.True(t, r.m.ForceStopGame(context.Background()))
	r.waitState(t, state.Lobby)

	list := r.rounds.all()
	require.Len(t, list, 1)
	assert.True(t, list[0].Forced)
	for _, st := range r.stats.all() {
		assert.Equal(t, statModel.ConclusionInterrupted, st.Conclusion)
	}
	assert.Empty(t, list[0].Winners)
	assert.False(t, r.m.Lobby().Frozen())
	assert.False(t, r.m.ForceStopGame(context.Background()))
}

func TestShakenPlayerLoses(t *testing.T) {
	r := newRig(t, "AA", "BB")

	started, err := r.m.ForceStartGame(context.Background(), "ffa", true)
	require.NoError(t, err)
	require.True(t, started)
	r.waitState(t, state.GameRunning)

	ctrl, _ := r.drv.Controller("AA")
	ctrl.Shake(3)

	require.Eventually(t, func() bool {
		return len(r.rounds.all()) == 1
	}, 2*time.Second, 5*time.Millisecond)
	ctrl.Rest()

	round := r.rounds.all()[0]
	assert.False(t, round.Forced)
	assert.Equal(t, []string{"BB"}, round.Winners)
	assert.Equal(t, "ffa", round.Mode)
	assert.Equal(t, 1, r.rec.Count(sound.PlayerOut))
	r.waitState(t, state.Lobby)
	assert.Equal(t, []string{"AA"}, r.m.Lost().Get())

	conclusions := map[string]statModel.Conclusion{}
	for _, st := range r.stats.all() {
		assert.Equal(t, round.ID, st.RoundID)
		assert.Equal(t, 2, st.PlayersNum)
		conclusions[st.Address] = st.Conclusion
	}
	assert.Equal(t, map[string]statModel.Conclusion{"AA": statModel.ConclusionOut, "BB": statModel.ConclusionWon}, conclusions)
}

func TestForceStartOutsideLobby(t *testing.T) {
	r := newRig(t, "AA")

	_, err := r.m.ForceStartGame(context.Background(), "chess", true)
	assert.Error(t, err)

	started, err := r.m.ForceStartGame(context.Background(), "ffa", true)
	require.NoError(t, err)
	assert.False(t, started)
	assert.Equal(t, 1, r.rec.Count(sound.NeedMorePlayers(1)))
	assert.Equal(t, state.Lobby, r.m.State().Get())
}

func TestForceStopDuringSetup(t *testing.T) {
	r := newRig(t, "AA", "BB")
	ctx := context.Background()

	r.gated.hold()
	started, err := r.m.ForceStartGame(ctx, "ffa", true)
	require.NoError(t, err)
	require.True(t, started)
	r.waitState(t, state.GameStarting)

	_, inGame := r.m.Session()
	require.False(t, inGame)
	assert.True(t, r.m.ForceStopGame(ctx))

	r.gated.release()
	r.waitState(t, state.Lobby)
	require.Eventually(t, func() bool {
		return len(r.m.Lobby().Members()) == 2
	}, 2*time.Second, 5*time.Millisecond)

	_, inGame = r.m.Session()
	assert.False(t, inGame)
	assert.Empty(t, r.rounds.all())
	assert.Empty(t, r.stats.all())

	started, err = r.m.ForceStartGame(ctx, "ffa", true)
	require.NoError(t, err)
	require.True(t, started)
	r.waitState(t, state.GameRunning)
	require.True(t, r.m.ForceStopGame(ctx))
	r.waitState(t, state.Lobby)
}

func TestControlSurface(t *testing.T) {
	r := newRig(t, "AA")
	ctx := context.Background()

	require.NoError(t, r.m.SetSensitivity(ctx, "very_high"))
	s, _ := r.store.Sensitivity(ctx)
	assert.Equal(t, settings.VeryHigh, s)
	assert.Error(t, r.m.SetSensitivity(ctx, "extreme"))

	require.NoError(t, r.m.SetGameMode("Red Alert"))
	assert.Equal(t, match.RedAlert, r.m.Lobby().Selected().Mode)
	assert.Error(t, r.m.SetGameMode("chess"))

	require.NoError(t, r.m.Rumble("AA"))
	assert.ErrorIs(t, r.m.Rumble("ZZ"), device.ErrDeviceNotFound)
	assert.ErrorIs(t, r.m.Blink("ZZ"), device.ErrDeviceNotFound)

	ctrl, _ := r.drv.Controller("AA")
	require.Eventually(t, func() bool {
		return ctrl.Rumble() == rumbleIntensity
	}, time.Second, 2*time.Millisecond)

	require.NoError(t, r.m.Blink("AA"))
	require.Eventually(t, func() bool {
		return ctrl.LEDs() == device.White
	}, time.Second, time.Millisecond)

	n, err := r.m.DisconnectAndForgetAllPaired(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestTelemetryStream(t *testing.T) {
	r := newRig(t, "AA", "BB")

	require.Eventually(t, func() bool {
		tel := r.m.Telemetry().Get()
		return len(tel) == 2 && tel[0].Battery == device.BatteryMax
	}, time.Second, 5*time.Millisecond)

	tel := r.m.Telemetry().Get()
	assert.Equal(t, "AA", tel[0].Address)
	assert.Equal(t, device.BatteryMax, tel[0].Battery)
	assert.Equal(t, device.ConnectionBluetooth, tel[0].Connection)
}
