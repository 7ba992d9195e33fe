// Package audio renders short notification tones once and plays them on the
// system speaker.
package audio

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/generators"
	"github.com/gopxl/beep/speaker"
	"go.uber.org/zap"
)

var (
	ErrAudioDisabled = errors.New("audio: speaker not available")
	ErrInvalidTone   = errors.New("audio: invalid tone")
	ErrUnknownSound  = errors.New("audio: unknown sound")
)

// SampleRate is the rate the speaker is initialised with and every tone is
// rendered at.
const SampleRate = beep.SampleRate(44100)

// Player holds pre-rendered sounds. Safe for concurrent use.
type Player struct {
	mu      sync.Mutex
	format  beep.Format
	buffers map[string]*beep.Buffer
	enabled bool
	play    func(...beep.Streamer)
	logger  *zap.Logger
}

// NewPlayer initialises the speaker. When no audio device is available the
// player stays usable but Play reports ErrAudioDisabled.
func NewPlayer(logger *zap.Logger) *Player {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("audio")

	enabled := true
	if err := speaker.Init(SampleRate, SampleRate.N(time.Second/10)); err != nil {
		logger.Warn("audio disabled, failed to initialize speaker", zap.Error(err))
		enabled = false
	}
	return newPlayer(enabled, speaker.Play, logger)
}

func newPlayer(enabled bool, play func(...beep.Streamer), logger *zap.Logger) *Player {
	return &Player{
		format:  beep.Format{SampleRate: SampleRate, NumChannels: 2, Precision: 2},
		buffers: make(map[string]*beep.Buffer),
		enabled: enabled,
		play:    play,
		logger:  logger,
	}
}

// Enabled reports whether sounds reach the speaker.
func (p *Player) Enabled() bool {
	return p.enabled
}

// LoadTone renders a sine tone of freq Hz lasting d and stores it under
// name, replacing any sound already stored there.
func (p *Player) LoadTone(name string, freq float64, d time.Duration) error {
	if freq <= 0 || d <= 0 {
		return fmt.Errorf("%w: %s: %gHz for %s", ErrInvalidTone, name, freq, d)
	}
	tone, err := generators.SineTone(p.format.SampleRate, freq)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrInvalidTone, name, err)
	}

	buffer := beep.NewBuffer(p.format)
	buffer.Append(beep.Take(p.format.SampleRate.N(d), tone))

	p.mu.Lock()
	p.buffers[name] = buffer
	p.mu.Unlock()

	p.logger.Debug("sound loaded",
		zap.String("sound", name),
		zap.Float64("freq", freq),
		zap.Duration("duration", d))
	return nil
}

// Play starts the named sound and returns without waiting for it to finish.
func (p *Player) Play(name string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	b, ok := p.buffers[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownSound, name)
	}
	if !p.enabled {
		return ErrAudioDisabled
	}
	p.play(b.Streamer(0, b.Len()))
	return nil
}
