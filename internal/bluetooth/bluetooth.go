// Package bluetooth is the boundary to the host bluetooth stack: listing paired controllers,
// trusting new ones and forgetting them.
package bluetooth

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/bloops-games/joustparty/internal/device"
	"github.com/bloops-games/joustparty/internal/logging"
)

type Adapter interface {
	// Devices returns the addresses paired with the host.
	Devices(ctx context.Context) ([]string, error)
	Trust(ctx context.Context, addr string) error
	Remove(ctx context.Context, addr string) error
}

// hostPairer is implemented by handles that can store the host address over USB.
type hostPairer interface {
	Pair() error
}

var _ device.Pairer = (*Pairer)(nil)

// Pairer turns a USB attached controller into a trusted wireless one.
type Pairer struct {
	adapter Adapter
}

func NewPairer(adapter Adapter) *Pairer {
	return &Pairer{adapter: adapter}
}

func (p *Pairer) Pair(ctx context.Context, h device.Handle) error {
	logger := logging.FromContext(ctx).Named("bluetooth.Pair")

	if hp, ok := h.(hostPairer); ok {
		if err := hp.Pair(); err != nil {
			return fmt.Errorf("store host address: %w", err)
		}
	}

	if err := p.adapter.Trust(ctx, h.Serial()); err != nil {
		return fmt.Errorf("trust %s: %w", h.Serial(), err)
	}

	logger.Infof("paired %s", h.Serial())
	return nil
}

// ForgetAll removes every paired controller and returns how many were removed.
// Failures are logged and the remaining devices are still tried.
func ForgetAll(ctx context.Context, adapter Adapter) (int, error) {
	logger := logging.FromContext(ctx).Named("bluetooth.ForgetAll")

	addrs, err := adapter.Devices(ctx)
	if err != nil {
		return 0, fmt.Errorf("list devices: %w", err)
	}

	removed := 0
	for _, addr := range addrs {
		if err := adapter.Remove(ctx, addr); err != nil {
			logger.Warnf("remove %s: %v", addr, err)
			continue
		}
		removed++
	}
	return removed, nil
}

var _ Adapter = (*Memory)(nil)

// Memory is an adapter without a bluetooth stack behind it, used with the simulated driver.
type Memory struct {
	mtx     sync.Mutex
	trusted map[string]struct{}
}

func NewMemory(addrs ...string) *Memory {
	m := &Memory{trusted: map[string]struct{}{}}
	for _, addr := range addrs {
		m.trusted[addr] = struct{}{}
	}
	return m
}

func (m *Memory) Devices(context.Context) ([]string, error) {
	m.mtx.Lock()
	defer m.mtx.Unlock()
	addrs := make([]string, 0, len(m.trusted))
	for addr := range m.trusted {
		addrs = append(addrs, addr)
	}
	sort.Strings(addrs)
	return addrs, nil
}

func (m *Memory) Trust(_ context.Context, addr string) error {
	m.mtx.Lock()
	defer m.mtx.Unlock()
	m.trusted[addr] = struct{}{}
	return nil
}

func (m *Memory) Remove(_ context.Context, addr string) error {
	m.mtx.Lock()
	defer m.mtx.Unlock()
	if _, ok := m.trusted[addr]; !ok {
		return fmt.Errorf("remove %s: %w", addr, device.ErrDeviceNotFound)
	}
	delete(m.trusted, addr)
	return nil
}
