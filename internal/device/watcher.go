package device

import (
	"context"
	"fmt"
	"time"

	"github.com/bloops-games/joustparty/internal/logging"
	"github.com/bloops-games/joustparty/internal/stream"
	"github.com/patrickmn/go-cache"
)

// Watcher periodically reconciles the connected controllers with the poller's live set and
// publishes every new address set.
type Watcher struct {
	config Config
	driver Driver
	poller *Poller
	pairer Pairer

	// serials that went through pairing recently
	paired    *cache.Cache
	lastCount int
	snapshot  *stream.Value[stream.Set]
}

func NewWatcher(config Config, driver Driver, poller *Poller, pairer Pairer) *Watcher {
	return &Watcher{
		config:    config,
		driver:    driver,
		poller:    poller,
		pairer:    pairer,
		paired:    cache.New(config.PairTTL, 2*config.PairTTL),
		lastCount: -1,
		snapshot:  stream.NewValue(stream.NewSet()),
	}
}

// Snapshots streams the connected address set, replaying the current one on subscription.
func (w *Watcher) Snapshots() *stream.Value[stream.Set] {
	return w.snapshot
}

func (w *Watcher) Run(ctx context.Context) error {
	logger := logging.FromContext(ctx).Named("device.watcher")
	ticker := time.NewTicker(w.config.ScanInterval)
	defer ticker.Stop()

	for {
		if err := w.Scan(ctx); err != nil {
			logger.Errorf("scan: %v", err)
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// Scan enumerates the controllers when their count changed. On failure the previous
// snapshot stays in place and the next scan enumerates again.
func (w *Watcher) Scan(ctx context.Context) error {
	w.poller.mtx.Lock()
	count, err := w.driver.Count()
	w.poller.mtx.Unlock()
	if err != nil {
		w.lastCount = -1
		return fmt.Errorf("count: %w", err)
	}

	if count == w.lastCount {
		return nil
	}

	handles, err := w.enumerate(ctx, count)
	if err != nil {
		w.lastCount = -1
		return err
	}

	if err := w.poller.Swap(handles); err != nil {
		logging.FromContext(ctx).Named("device.watcher").Warnf("swap: %v", err)
	}

	addrs := make([]string, 0, len(handles))
	for addr := range handles {
		addrs = append(addrs, addr)
	}

	w.lastCount = count
	next := stream.NewSet(addrs...)
	if !next.Equal(w.snapshot.Get()) {
		w.snapshot.Set(next)
	}

	return nil
}

func (w *Watcher) enumerate(ctx context.Context, count int) (map[string]Handle, error) {
	logger := logging.FromContext(ctx).Named("device.watcher")
	handles := make(map[string]Handle, count)

	// handles are touched only under the poller lock
	w.poller.mtx.Lock()
	defer w.poller.mtx.Unlock()

	for i := 0; i < count; i++ {
		h, err := w.driver.Open(i)
		if err != nil {
			for _, opened := range handles {
				_ = opened.Close()
			}
			return nil, fmt.Errorf("open %d: %w", i, err)
		}

		serial := h.Serial()
		if h.Connection() == ConnectionUSB {
			w.pair(ctx, serial, h)
			_ = h.Close()
			continue
		}

		if _, dup := handles[serial]; dup || serial == "" {
			logger.Debugf("skipping controller %d with serial %q", i, serial)
			_ = h.Close()
			continue
		}

		handles[serial] = h
	}

	return handles, nil
}

func (w *Watcher) pair(ctx context.Context, serial string, h Handle) {
	logger := logging.FromContext(ctx).Named("device.watcher.pair")
	if w.pairer == nil {
		return
	}

	if _, ok := w.paired.Get(serial); ok {
		return
	}

	if err := w.pairer.Pair(ctx, h); err != nil {
		logger.Errorf("pair %s: %v", serial, err)
		return
	}

	w.paired.SetDefault(serial, time.Now())
	logger.Infof("paired controller %s", serial)
}
