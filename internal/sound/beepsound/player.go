// Package beepsound plays cues on the system speaker.
package beepsound

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/bloops-games/joustparty/internal/logging"
	"github.com/bloops-games/joustparty/internal/sound"
	"github.com/gopxl/beep"
	"github.com/gopxl/beep/speaker"
	"github.com/gopxl/beep/vorbis"
	"go.uber.org/zap"
)

const sampleRate = beep.SampleRate(44100)

var _ sound.Player = (*Player)(nil)

type cue struct {
	id   sound.ID
	done chan struct{}
}

type Player struct {
	dir    string
	logger *zap.SugaredLogger

	mtx        sync.Mutex
	buffers    map[sound.ID]*beep.Buffer
	queue      []cue
	stop       func()
	background *beep.Ctrl
	wake       chan struct{}
}

func New(ctx context.Context, config Config) (*Player, error) {
	logger := logging.FromContext(ctx).Named("beepsound.New")

	if err := speaker.Init(sampleRate, sampleRate.N(time.Second/10)); err != nil {
		return nil, fmt.Errorf("init speaker: %w", err)
	}

	lang := config.language(logger)
	logger.Infof("playing cues in %s", lang)

	return &Player{
		dir:     filepath.Join(config.Dir, lang),
		logger:  logging.FromContext(ctx).Named("beepsound"),
		buffers: map[sound.ID]*beep.Buffer{},
		wake:    make(chan struct{}, 1),
	}, nil
}

// Run plays queued cues one after another until ctx is done.
func (p *Player) Run(ctx context.Context) error {
	for {
		next, ok := p.pop()
		if !ok {
			select {
			case <-ctx.Done():
				return nil
			case <-p.wake:
			}
			continue
		}

		if err := p.play(next); err != nil {
			p.logger.Warnf("play %s: %v", next.id, err)
			close(next.done)
			continue
		}

		select {
		case <-ctx.Done():
			p.StopCurrent()
			return nil
		case <-next.done:
		}
	}
}

func (p *Player) pop() (cue, bool) {
	p.mtx.Lock()
	defer p.mtx.Unlock()
	if len(p.queue) == 0 {
		return cue{}, false
	}
	c := p.queue[0]
	p.queue = p.queue[1:]
	return c, true
}

func (p *Player) push(id sound.ID) chan struct{} {
	done := make(chan struct{})
	p.mtx.Lock()
	p.queue = append(p.queue, cue{id: id, done: done})
	p.mtx.Unlock()

	select {
	case p.wake <- struct{}{}:
	default:
	}
	return done
}

func (p *Player) play(c cue) error {
	buf, err := p.buffer(c.id)
	if err != nil {
		return err
	}

	var once sync.Once
	finish := func() { once.Do(func() { close(c.done) }) }
	ctrl := &beep.Ctrl{Streamer: beep.Seq(buf.Streamer(0, buf.Len()), beep.Callback(finish))}

	p.mtx.Lock()
	p.stop = func() {
		speaker.Lock()
		ctrl.Streamer = nil
		speaker.Unlock()
		finish()
	}
	p.mtx.Unlock()

	speaker.Play(ctrl)
	return nil
}

func (p *Player) buffer(id sound.ID) (*beep.Buffer, error) {
	p.mtx.Lock()
	buf, ok := p.buffers[id]
	p.mtx.Unlock()
	if ok {
		return buf, nil
	}

	f, err := os.Open(filepath.Join(p.dir, string(id)+".ogg"))
	if err != nil {
		return nil, fmt.Errorf("open cue: %w", err)
	}
	defer f.Close()

	streamer, format, err := vorbis.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode cue: %w", err)
	}
	defer streamer.Close()

	buf = beep.NewBuffer(beep.Format{SampleRate: sampleRate, NumChannels: format.NumChannels, Precision: format.Precision})
	if format.SampleRate != sampleRate {
		buf.Append(beep.Resample(4, format.SampleRate, sampleRate, streamer))
	} else {
		buf.Append(streamer)
	}

	p.mtx.Lock()
	p.buffers[id] = buf
	p.mtx.Unlock()
	return buf, nil
}

func (p *Player) Enqueue(id sound.ID) {
	p.push(id)
}

func (p *Player) PlayAndWait(ctx context.Context, id sound.ID) error {
	done := p.push(id)
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		return nil
	}
}

// ClearQueue drops pending cues. Their waiters are released.
func (p *Player) ClearQueue() {
	p.mtx.Lock()
	pending := p.queue
	p.queue = nil
	p.mtx.Unlock()

	for _, c := range pending {
		close(c.done)
	}
}

func (p *Player) StopCurrent() {
	p.mtx.Lock()
	stop := p.stop
	p.stop = nil
	p.mtx.Unlock()

	if stop != nil {
		stop()
	}
}

func (p *Player) PlayBackground(id sound.ID) {
	buf, err := p.buffer(id)
	if err != nil {
		p.logger.Warnf("background %s: %v", id, err)
		return
	}

	p.StopBackground()

	ctrl := &beep.Ctrl{Streamer: beep.Loop(-1, buf.Streamer(0, buf.Len()))}
	p.mtx.Lock()
	p.background = ctrl
	p.mtx.Unlock()
	speaker.Play(ctrl)
}

func (p *Player) StopBackground() {
	p.mtx.Lock()
	ctrl := p.background
	p.background = nil
	p.mtx.Unlock()

	if ctrl == nil {
		return
	}
	speaker.Lock()
	ctrl.Streamer = nil
	speaker.Unlock()
}
