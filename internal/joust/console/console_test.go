package console

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bloops-games/joustparty/internal/bluetooth"
	"github.com/bloops-games/joustparty/internal/database/round/model"
	statModel "github.com/bloops-games/joustparty/internal/database/stat/model"
	"github.com/bloops-games/joustparty/internal/device"
	"github.com/bloops-games/joustparty/internal/device/simdriver"
	"github.com/bloops-games/joustparty/internal/joust"
	"github.com/bloops-games/joustparty/internal/joust/match"
	"github.com/bloops-games/joustparty/internal/joust/resource"
	"github.com/bloops-games/joustparty/internal/joust/state"
	"github.com/bloops-games/joustparty/internal/settings"
	"github.com/bloops-games/joustparty/internal/sound/soundtest"
	"github.com/google/uuid"
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
	r.list = append([]model.Round{round}, r.list...)
	return nil
}

func (r *rounds) Recent(n int) ([]model.Round, error) {
	r.mtx.Lock()
	defer r.mtx.Unlock()
	if n > len(r.list) {
		n = len(r.list)
	}
	return append([]model.Round(nil), r.list[:n]...), nil
}

type profiles map[string]statModel.AggregationStat

func (p profiles) FetchProfileStat(addr string) (statModel.AggregationStat, error) {
	profile, ok := p[addr]
	if !ok {
		return profile, device.ErrDeviceNotFound
	}
	return profile, nil
}

type syncBuffer struct {
	mtx sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mtx.Lock()
	defer b.mtx.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mtx.Lock()
	defer b.mtx.Unlock()
	return b.buf.String()
}

type rig struct {
	console *Console
	manager *joust.Manager
	rounds  *rounds
	out     *syncBuffer
}

func newRig(t *testing.T) *rig {
	t.Helper()

	devConfig := device.Config{
		StatusInterval:  time.Millisecond,
		UpdateInterval:  5 * time.Millisecond,
		RefreshInterval: time.Second,
		ScanInterval:    10 * time.Millisecond,
		PairTTL:         time.Minute,
		ClickBuffer:     16,
	}
	rules := match.DefaultRules()
	rules.Music = false
	rules.Celebration = 0

	drv := simdriver.New()
	adapter := bluetooth.NewMemory()
	poller := device.NewPoller(devConfig)
	watcher := device.NewWatcher(devConfig, drv, poller, bluetooth.NewPairer(adapter))

	r := &rig{rounds: &rounds{}, out: &syncBuffer{}}
	config := &joust.Config{DefaultMode: string(match.FreeForAll), Blink: time.Second, Rumble: time.Second, Device: devConfig}
	r.manager = joust.NewManager(config, rules, poller, watcher, soundtest.New(), settings.NewMemory(), adapter, r.rounds, nil)
	r.console = New(r.manager, drv, r.rounds, nil, 5, r.out)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.manager.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return r
}

func (r *rig) exec(t *testing.T, line string) {
	t.Helper()
	quit, err := r.console.Exec(context.Background(), line)
	require.NoError(t, err, line)
	require.False(t, quit)
}

func TestPlayRound(t *testing.T) {
	r := newRig(t)

	r.exec(t, "connect AA")
	r.exec(t, "connect BB usb")
	require.Eventually(t, func() bool {
		return len(r.manager.Lobby().Members()) == 2
	}, 2*time.Second, 5*time.Millisecond)

	r.exec(t, "click AA cross")
	require.Eventually(t, func() bool {
		return r.manager.Lobby().IsAdmin("AA")
	}, time.Second, 5*time.Millisecond)
	assert.Contains(t, r.console.Status(), resource.IconAdmin)
	assert.Contains(t, r.console.Status(), "state: LOBBY")

	r.exec(t, "click AA trigger")
	r.exec(t, "click BB trigger")
	require.Eventually(t, func() bool {
		return r.manager.State().Get() == state.GameRunning
	}, 2*time.Second, 5*time.Millisecond)
	assert.Contains(t, r.console.Status(), "round: ffa")

	r.exec(t, "shake AA 3")
	require.Eventually(t, func() bool {
		list, _ := r.rounds.Recent(1)
		return len(list) == 1
	}, 2*time.Second, 5*time.Millisecond)
	r.exec(t, "shake AA 0")

	r.exec(t, "rounds")
	assert.Contains(t, r.out.String(), resource.IconWinner+" BB")
}

func TestCommandErrors(t *testing.T) {
	r := newRig(t)
	ctx := context.Background()

	_, err := r.console.Exec(ctx, "click ZZ trigger")
	assert.ErrorIs(t, err, device.ErrDeviceNotFound)

	_, err = r.console.Exec(ctx, "connect")
	assert.ErrorIs(t, err, errUsage)

	_, err = r.console.Exec(ctx, "sensitivity extreme")
	assert.Error(t, err)

	_, err = r.console.Exec(ctx, "blink ZZ")
	assert.ErrorIs(t, err, device.ErrDeviceNotFound)

	r.exec(t, "dance")
	assert.Contains(t, r.out.String(), `"dance"`)

	r.exec(t, "stop")
	assert.Contains(t, r.out.String(), "ignored in state LOBBY")

	quit, err := r.console.Exec(ctx, "quit")
	require.NoError(t, err)
	assert.True(t, quit)
}

func TestRoundsListing(t *testing.T) {
	r := newRig(t)

	r.exec(t, "rounds")
	assert.Equal(t, resource.TextNoRounds, r.out.String())

	started := time.Date(2026, 1, 2, 20, 15, 0, 0, time.Local)
	require.NoError(t, r.rounds.Add(model.Round{ID: uuid.New(), Mode: "zombie", Started: started, Duration: time.Minute, Winners: []string{"CC", "AA"}}))
	require.NoError(t, r.rounds.Add(model.Round{ID: uuid.New(), Mode: "ffa", Started: started.Add(time.Hour), Forced: true}))

	r.exec(t, "rounds 1")
	out := r.out.String()
	assert.Contains(t, out, "21:15:00 ffa")
	assert.Contains(t, out, "interrupted")
	assert.NotContains(t, out, "zombie")

	r.exec(t, "rounds")
	assert.Contains(t, r.out.String(), resource.IconWinner+" AA, CC")
}

func TestRunReadsLines(t *testing.T) {
	r := newRig(t)
	r.exec(t, "connect AA")
	require.Eventually(t, func() bool {
		return len(r.manager.Lobby().Members()) == 1
	}, 2*time.Second, 5*time.Millisecond)

	in := strings.NewReader("help\nmode zombie\nquit\nmode werewolf\n")
	require.NoError(t, r.console.Run(context.Background(), in))

	assert.Contains(t, r.out.String(), resource.TextHelp)
	assert.Equal(t, match.Zombie, r.manager.Lobby().Selected().Mode)
}

func TestStats(t *testing.T) {
	r := newRig(t)
	r.console.stats = profiles{"AA": {
		Count:        3,
		Wins:         2,
		Outs:         1,
		Modes:        map[string]int{"zombie": 1, "ffa": 2},
		AvgDuration:  90 * time.Second,
		LongestRound: 2 * time.Minute,
	}}

	r.exec(t, "stats AA")
	out := r.out.String()
	assert.Contains(t, out, "AA rounds 3")
	assert.Contains(t, out, resource.IconWinner+" 2")
	assert.Contains(t, out, "average 1m30s  longest 2m0s")
	assert.Less(t, strings.Index(out, "ffa"), strings.Index(out, "zombie"))

	_, err := r.console.Exec(context.Background(), "stats ZZ")
	assert.ErrorIs(t, err, device.ErrDeviceNotFound)
}
