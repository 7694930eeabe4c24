package sound

import (
	"context"
	"time"

	"github.com/bloops-games/joustparty/internal/util"
	"go.uber.org/zap"
)

var _ Player = (*LogPlayer)(nil)

// LogPlayer stands in for a speaker: it logs cues and pretends each one lasts Duration.
type LogPlayer struct {
	Logger   *zap.SugaredLogger
	Duration time.Duration
}

func NewLogPlayer(logger *zap.SugaredLogger, duration time.Duration) *LogPlayer {
	return &LogPlayer{Logger: logger.Named("sound"), Duration: duration}
}

func (p *LogPlayer) Enqueue(id ID) {
	p.Logger.Infof("cue %s", id)
}

func (p *LogPlayer) PlayAndWait(ctx context.Context, id ID) error {
	p.Logger.Infof("cue %s (waiting)", id)
	return util.Sleep(ctx, p.Duration)
}

func (p *LogPlayer) ClearQueue()  {}
func (p *LogPlayer) StopCurrent() {}

func (p *LogPlayer) PlayBackground(id ID) {
	p.Logger.Infof("background %s", id)
}

func (p *LogPlayer) StopBackground() {
	p.Logger.Infof("background stopped")
}
