// Package settings holds the user tunable options the game core reads.
package settings

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

type Sensitivity uint8

const (
	VeryLow Sensitivity = iota + 1
	Low
	Medium
	High
	VeryHigh
)

var sensitivityNames = map[Sensitivity]string{
	VeryLow:  "very_low",
	Low:      "low",
	Medium:   "medium",
	High:     "high",
	VeryHigh: "very_high",
}

func (s Sensitivity) String() string {
	if name, ok := sensitivityNames[s]; ok {
		return name
	}
	return fmt.Sprintf("sensitivity(%d)", s)
}

func (s Sensitivity) Valid() bool {
	return s >= VeryLow && s <= VeryHigh
}

// Thresholds returns the smoothed acceleration change (in g) that warns and that eliminates.
// Higher sensitivity reacts to smaller movements.
func (s Sensitivity) Thresholds() (warning, death float64) {
	switch s {
	case VeryHigh:
		return 0.4, 0.7
	case High:
		return 0.6, 0.9
	case Low:
		return 1.1, 1.7
	case VeryLow:
		return 1.4, 2.2
	default:
		return 0.8, 1.3
	}
}

func ParseSensitivity(name string) (Sensitivity, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	name = strings.ReplaceAll(name, "-", "_")
	for s, n := range sensitivityNames {
		if n == name {
			return s, nil
		}
	}
	return 0, fmt.Errorf("unknown sensitivity %q", name)
}

// Values is everything persisted. The core reads Sensitivity only.
type Values struct {
	Sensitivity Sensitivity `json:"sensitivity"`
	Language    string      `json:"language,omitempty"`
	Volume      int         `json:"volume"`
	PlayMusic   bool        `json:"play_music"`
}

func Defaults() Values {
	return Values{Sensitivity: Medium, Volume: 100, PlayMusic: true}
}

type Store interface {
	Sensitivity(ctx context.Context) (Sensitivity, error)
	SetSensitivity(ctx context.Context, s Sensitivity) error
}

var _ Store = (*Memory)(nil)

type Memory struct {
	mtx    sync.RWMutex
	values Values
}

func NewMemory() *Memory {
	return &Memory{values: Defaults()}
}

func (m *Memory) Sensitivity(context.Context) (Sensitivity, error) {
	m.mtx.RLock()
	defer m.mtx.RUnlock()
	return m.values.Sensitivity, nil
}

func (m *Memory) SetSensitivity(_ context.Context, s Sensitivity) error {
	if !s.Valid() {
		return fmt.Errorf("invalid sensitivity %d", s)
	}
	m.mtx.Lock()
	defer m.mtx.Unlock()
	m.values.Sensitivity = s
	return nil
}
