package desktop

import (
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/effects"
	"github.com/gopxl/beep/v2/mp3"
	"github.com/gopxl/beep/v2/speaker"
	"github.com/gopxl/beep/v2/vorbis"
	"github.com/gopxl/beep/v2/wav"
)

// Sounder plays a sound file.
type Sounder interface {
	Play(path string) error
}

// Player plays WAV, OGG and MP3 files through the default audio device.
type Player struct {
	mu     sync.Mutex
	logger *slog.Logger

	// 0.0 to 1.0
	volume float64

	initialized bool
	sampleRate  beep.SampleRate

	cache map[string]*beep.Buffer
}

// NewPlayer creates a player at full volume.
func NewPlayer(logger *slog.Logger) *Player {
	if logger == nil {
		logger = slog.Default()
	}
	return &Player{
		logger:     logger,
		volume:     1.0,
		sampleRate: beep.SampleRate(44100),
		cache:      make(map[string]*beep.Buffer),
	}
}

// SetVolumePercent sets the playback volume from 0 to 100.
func (p *Player) SetVolumePercent(percent int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.volume = math.Min(math.Max(float64(percent)/100, 0), 1)
}

// Play decodes path on first use and plays it without blocking.
func (p *Player) Play(path string) error {
	if path == "" {
		return nil
	}
	path = expandHome(path)

	p.mu.Lock()
	buf, ok := p.cache[path]
	p.mu.Unlock()

	if !ok {
		var err error
		buf, err = p.load(path)
		if err != nil {
			return err
		}
		p.mu.Lock()
		p.cache[path] = buf
		p.mu.Unlock()
	}
	return p.play(buf)
}

func (p *Player) load(path string) (*beep.Buffer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sound file: %w", err)
	}
	defer func() { _ = f.Close() }()

	var (
		streamer beep.StreamSeekCloser
		format   beep.Format
	)
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".wav":
		streamer, format, err = wav.Decode(f)
	case ".ogg":
		streamer, format, err = vorbis.Decode(f)
	case ".mp3":
		streamer, format, err = mp3.Decode(f)
	default:
		return nil, fmt.Errorf("unsupported audio format: %s", ext)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to decode sound: %w", err)
	}
	defer func() { _ = streamer.Close() }()

	if err := p.ensureInitialized(format.SampleRate); err != nil {
		return nil, err
	}

	buf := beep.NewBuffer(format)
	buf.Append(streamer)
	return buf, nil
}

func (p *Player) ensureInitialized(sampleRate beep.SampleRate) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.initialized {
		return nil
	}
	if err := speaker.Init(sampleRate, sampleRate.N(100*time.Millisecond)); err != nil {
		return fmt.Errorf("failed to initialize speaker: %w", err)
	}
	p.sampleRate = sampleRate
	p.initialized = true
	p.logger.Debug("speaker initialized", "sample_rate", sampleRate)
	return nil
}

func (p *Player) play(buf *beep.Buffer) error {
	p.mu.Lock()
	volume := p.volume
	sampleRate := p.sampleRate
	p.mu.Unlock()

	var streamer beep.Streamer = buf.Streamer(0, buf.Len())
	if buf.Format().SampleRate != sampleRate {
		streamer = beep.Resample(4, buf.Format().SampleRate, sampleRate, streamer)
	}
	if volume < 1.0 {
		streamer = &effects.Volume{
			Streamer: streamer,
			Base:     2,
			Volume:   volumeExponent(volume),
			Silent:   volume == 0,
		}
	}

	speaker.Play(streamer)
	return nil
}

// Close stops playback and releases the audio device.
func (p *Player) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.initialized {
		speaker.Close()
		p.initialized = false
	}
	p.cache = make(map[string]*beep.Buffer)
}

// volumeExponent maps a linear volume to the base-2 exponent effects.Volume
// expects: 0.5 is one halving.
func volumeExponent(volume float64) float64 {
	if volume <= 0 {
		return -10
	}
	return math.Log2(volume)
}

func expandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[1:])
		}
	}
	return path
}
