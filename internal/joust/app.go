package joust

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/bloops-games/joustparty/internal/bluetooth"
	"github.com/bloops-games/joustparty/internal/cache"
	"github.com/bloops-games/joustparty/internal/database"
	roundDb "github.com/bloops-games/joustparty/internal/database/round/database"
	"github.com/bloops-games/joustparty/internal/database/round/model"
	settingsDb "github.com/bloops-games/joustparty/internal/database/settings/database"
	statDb "github.com/bloops-games/joustparty/internal/database/stat/database"
	statModel "github.com/bloops-games/joustparty/internal/database/stat/model"
	"github.com/bloops-games/joustparty/internal/device"
	"github.com/bloops-games/joustparty/internal/device/simdriver"
	"github.com/bloops-games/joustparty/internal/joust/match"
	"github.com/bloops-games/joustparty/internal/logging"
	"github.com/bloops-games/joustparty/internal/settings"
	"github.com/bloops-games/joustparty/internal/sound"
	"github.com/bloops-games/joustparty/internal/sound/beepsound"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

const DriverSim = "sim"

// ErrUnsupportedDriver aborts startup when no native controller library is available.
var ErrUnsupportedDriver = errors.New("unsupported controller driver")

// logCueDuration is how long a cue lasts when there is no speaker.
const logCueDuration = 700 * time.Millisecond

// App is everything a binary needs to run a party.
type App struct {
	Manager *Manager
	Driver  *simdriver.Driver
	Rounds  *roundDb.DB
	Stats   *statDb.DB

	db     *database.DB
	speech *beepsound.Player
}

// NewApp opens the storage, the sound output and the controller stack described by config.
func NewApp(ctx context.Context, config *Config) (*App, error) {
	logger := logging.FromContext(ctx).Named("joust.NewApp")

	if config.Driver != DriverSim {
		return nil, fmt.Errorf("driver %q: %w", config.Driver, ErrUnsupportedDriver)
	}

	rules, err := match.LoadRules(config.RulesFile)
	if err != nil {
		return nil, fmt.Errorf("load rules: %w", err)
	}

	db, err := database.New(ctx, &config.Db)
	if err != nil {
		return nil, fmt.Errorf("new database: %w", err)
	}

	settingsCache, err := cache.NewARC[string, settings.Values](config.Db.CacheSize)
	if err != nil {
		_ = db.Close(ctx)
		return nil, fmt.Errorf("new settings cache: %w", err)
	}
	roundCache, err := cache.NewARC[uuid.UUID, model.Round](config.Db.CacheSize)
	if err != nil {
		_ = db.Close(ctx)
		return nil, fmt.Errorf("new round cache: %w", err)
	}
	statCache, err := cache.NewARC[string, []statModel.Stat](config.Db.CacheSize)
	if err != nil {
		_ = db.Close(ctx)
		return nil, fmt.Errorf("new stat cache: %w", err)
	}

	app := &App{
		Driver: simdriver.New(),
		Rounds: roundDb.New(db, roundCache),
		Stats:  statDb.New(db, statCache),
		db:     db,
	}

	var player sound.Player
	if fi, err := os.Stat(config.Sound.Dir); err == nil && fi.IsDir() {
		speech, err := beepsound.New(ctx, config.Sound)
		if err != nil {
			_ = db.Close(ctx)
			return nil, fmt.Errorf("new sound player: %w", err)
		}
		app.speech = speech
		player = speech
	} else {
		logger.Infof("no sound dir %q, logging cues", config.Sound.Dir)
		player = sound.NewLogPlayer(logger, logCueDuration)
	}

	for _, serial := range config.SimDevices {
		app.Driver.Connect(serial, device.ConnectionBluetooth)
	}

	adapter := bluetooth.NewMemory(config.SimDevices...)
	poller := device.NewPoller(config.Device)
	watcher := device.NewWatcher(config.Device, app.Driver, poller, bluetooth.NewPairer(adapter))
	store := settingsDb.New(db, settingsCache)

	app.Manager = NewManager(config, rules, poller, watcher, player, store, adapter, app.Rounds, app.Stats)
	return app, nil
}

// Run plays until ctx is done.
func (a *App) Run(ctx context.Context) error {
	g, gCtx := errgroup.WithContext(ctx)
	if a.speech != nil {
		g.Go(func() error {
			return a.speech.Run(gCtx)
		})
	}
	g.Go(func() error {
		return a.Manager.Run(gCtx)
	})
	return g.Wait()
}

func (a *App) Close(ctx context.Context) error {
	return a.db.Close(ctx)
}
