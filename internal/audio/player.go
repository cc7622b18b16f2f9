package audio

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ltdang/musicrelay/pkg/logger"
)

var (
	// ErrAlreadyPlaying is returned when the player is busy
	ErrAlreadyPlaying = errors.New("already playing")
	// ErrNotPlaying is returned when there is no active playback
	ErrNotPlaying = errors.New("player is not playing")
	// ErrNotPaused is returned when resume is called without a pause
	ErrNotPaused = errors.New("player is not paused")
)

// FinishFunc receives the path of the file whose playback just ended. It is
// called exactly once per started playback, from the playback goroutine,
// regardless of how playback ended.
type FinishFunc func(path string)

// Player streams one local audio file at a time into a guild's voice
// connection
type Player struct {
	guildID string
	conn    *Connection
	encoder *Encoder
	logger  *logger.Logger

	playing  atomic.Bool
	paused   atomic.Bool
	stop     chan struct{}
	done     chan struct{}
	current  string
	onFinish FinishFunc

	mu sync.Mutex
}

// NewPlayer creates a player bound to a guild's voice connection
func NewPlayer(guildID string, conn *Connection, encoder *Encoder, log *logger.Logger) *Player {
	return &Player{
		guildID: guildID,
		conn:    conn,
		encoder: encoder,
		logger:  log,
	}
}

// Play starts streaming the file at path. onFinish fires when the stream
// ends, whether it ran to completion, failed, or was stopped.
func (p *Player) Play(path string, onFinish FinishFunc) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.playing.Load() {
		return ErrAlreadyPlaying
	}
	if !p.conn.IsConnected() {
		return ErrNotConnected
	}

	p.playing.Store(true)
	p.paused.Store(false)
	p.stop = make(chan struct{})
	p.done = make(chan struct{})
	p.current = path
	p.onFinish = onFinish

	go p.stream(path, p.stop, p.done)

	return nil
}

// release tears the playback state down and then fires the finish callback.
// The done channel closes between the two, so Stop can return as soon as the
// player is reusable without waiting for completion handling.
func (p *Player) release(path string, done chan struct{}) {
	p.mu.Lock()
	p.playing.Store(false)
	p.paused.Store(false)
	p.current = ""
	onFinish := p.onFinish
	p.onFinish = nil
	p.mu.Unlock()

	close(done)
	if onFinish != nil {
		onFinish(path)
	}
}

func (p *Player) stream(path string, stop, done chan struct{}) {
	defer p.release(path, done)

	if err := p.conn.Speaking(true); err != nil {
		p.logger.WithError(err).Error("Failed to set speaking state")
		return
	}
	defer p.conn.Speaking(false)

	// done doubles as the encoder's cancellation signal: once the stream
	// goroutine exits, the encoder stops producing and reaps its ffmpeg
	frames, errs := p.encoder.EncodeFile(path, done)

	vc := p.conn.Conn()
	if vc == nil {
		p.logger.WithField("guild", p.guildID).Error("Voice connection lost before streaming")
		return
	}

	frameCount := 0
	for {
		select {
		case <-stop:
			p.logger.WithField("guild", p.guildID).Info("Playback stopped")
			return

		case err := <-errs:
			if err != nil {
				p.logger.WithError(err).WithField("guild", p.guildID).Error("Encoding failed")
				return
			}

		case frame, ok := <-frames:
			if !ok {
				p.logger.WithFields(map[string]interface{}{
					"guild":  p.guildID,
					"frames": frameCount,
				}).Info("Playback completed")
				return
			}

			for p.paused.Load() {
				select {
				case <-stop:
					return
				case <-time.After(100 * time.Millisecond):
				}
			}

			select {
			case vc.OpusSend <- frame:
				frameCount++
			case <-stop:
				return
			}
		}
	}
}

// Stop ends the current playback. It signals the playback goroutine and
// waits until the player has been released, so a new playback may start the
// moment Stop returns. The finish callback still fires afterwards, from the
// playback goroutine.
func (p *Player) Stop() error {
	p.mu.Lock()
	if !p.playing.Load() {
		p.mu.Unlock()
		return ErrNotPlaying
	}

	select {
	case <-p.stop:
	default:
		close(p.stop)
	}
	done := p.done
	p.mu.Unlock()

	<-done
	return nil
}

// Pause suspends streaming without ending playback
func (p *Player) Pause() error {
	if !p.playing.Load() {
		return ErrNotPlaying
	}
	if p.paused.Load() {
		return ErrNotPlaying
	}

	p.paused.Store(true)
	if err := p.conn.Speaking(false); err != nil {
		p.logger.WithError(err).Warn("Failed to clear speaking state on pause")
	}
	return nil
}

// Resume continues a paused stream
func (p *Player) Resume() error {
	if !p.playing.Load() {
		return ErrNotPlaying
	}
	if !p.paused.Load() {
		return ErrNotPaused
	}

	p.paused.Store(false)
	if err := p.conn.Speaking(true); err != nil {
		p.logger.WithError(err).Warn("Failed to set speaking state on resume")
	}
	return nil
}

// IsPlaying reports whether a stream is active (paused counts as playing)
func (p *Player) IsPlaying() bool {
	return p.playing.Load()
}

// IsPaused reports whether the stream is paused
func (p *Player) IsPaused() bool {
	return p.paused.Load()
}
