package audio

import (
	"errors"
	"testing"
	"time"

	"github.com/ltdang/musicrelay/pkg/logger"
)

func TestConnectionStartsDisconnected(t *testing.T) {
	conn := NewConnection("guild", logger.Discard())

	if conn.IsConnected() {
		t.Error("new connection should not report connected")
	}
	if conn.ChannelID() != "" {
		t.Error("new connection should have no channel")
	}
	if err := conn.Disconnect(); !errors.Is(err, ErrNotConnected) {
		t.Errorf("Disconnect without connection: got %v, want ErrNotConnected", err)
	}
	if err := conn.Speaking(true); !errors.Is(err, ErrNotConnected) {
		t.Errorf("Speaking without connection: got %v, want ErrNotConnected", err)
	}
}

func TestPlayerRequiresConnection(t *testing.T) {
	conn := NewConnection("guild", logger.Discard())
	player := NewPlayer("guild", conn, NewEncoder("ffmpeg", logger.Discard()), logger.Discard())

	err := player.Play("/tmp/track.mp3", nil)
	if !errors.Is(err, ErrNotConnected) {
		t.Errorf("Play without voice connection: got %v, want ErrNotConnected", err)
	}
	if player.IsPlaying() {
		t.Error("failed Play must not mark the player as playing")
	}
}

func TestPlayerControlsWithoutPlayback(t *testing.T) {
	conn := NewConnection("guild", logger.Discard())
	player := NewPlayer("guild", conn, NewEncoder("ffmpeg", logger.Discard()), logger.Discard())

	if err := player.Stop(); !errors.Is(err, ErrNotPlaying) {
		t.Errorf("Stop: got %v, want ErrNotPlaying", err)
	}
	if err := player.Pause(); !errors.Is(err, ErrNotPlaying) {
		t.Errorf("Pause: got %v, want ErrNotPlaying", err)
	}
	if err := player.Resume(); !errors.Is(err, ErrNotPlaying) {
		t.Errorf("Resume: got %v, want ErrNotPlaying", err)
	}
	if player.IsPaused() {
		t.Error("idle player should not report paused")
	}
}

func TestEncoderSendExitsWhenPlaybackEnds(t *testing.T) {
	frames := make(chan []byte, 1)
	frames <- []byte{0x01} // buffer full, consumer gone

	done := make(chan struct{})
	sent := make(chan bool)
	go func() {
		sent <- sendFrame(frames, []byte{0x02}, done)
	}()

	select {
	case <-sent:
		t.Fatal("send must block while the buffer is full")
	case <-time.After(50 * time.Millisecond):
	}

	close(done)
	select {
	case delivered := <-sent:
		if delivered {
			t.Error("send after done closed must report the frame undelivered")
		}
	case <-time.After(time.Second):
		t.Fatal("frame send still blocked after done closed")
	}
}

func TestStopWaitsForPlayerRelease(t *testing.T) {
	conn := NewConnection("guild", logger.Discard())
	p := NewPlayer("guild", conn, NewEncoder("ffmpeg", logger.Discard()), logger.Discard())

	finished := make(chan string, 1)

	// Stand in for the stream goroutine: wait for the stop signal, then
	// release the player the way stream's deferred teardown does
	p.playing.Store(true)
	p.stop = make(chan struct{})
	p.done = make(chan struct{})
	p.onFinish = func(path string) { finished <- path }
	go func() {
		<-p.stop
		p.release("/tmp/track.mp3", p.done)
	}()

	if err := p.Stop(); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
	if p.IsPlaying() {
		t.Error("player must be released by the time Stop returns")
	}

	select {
	case path := <-finished:
		if path != "/tmp/track.mp3" {
			t.Errorf("finish callback got path %q", path)
		}
	case <-time.After(time.Second):
		t.Fatal("finish callback never fired")
	}
}

func TestServiceUnknownGuild(t *testing.T) {
	s := NewService(nil, "ffmpeg", logger.Discard())

	if err := s.Play("nope", "/tmp/x.mp3"); !errors.Is(err, ErrGuildNotFound) {
		t.Errorf("Play: got %v, want ErrGuildNotFound", err)
	}
	if err := s.Stop("nope"); !errors.Is(err, ErrGuildNotFound) {
		t.Errorf("Stop: got %v, want ErrGuildNotFound", err)
	}
	if err := s.Pause("nope"); !errors.Is(err, ErrGuildNotFound) {
		t.Errorf("Pause: got %v, want ErrGuildNotFound", err)
	}
	if err := s.Disconnect("nope"); !errors.Is(err, ErrGuildNotFound) {
		t.Errorf("Disconnect: got %v, want ErrGuildNotFound", err)
	}
	if s.IsConnected("nope") {
		t.Error("unknown guild should not report connected")
	}
	if s.ChannelID("nope") != "" {
		t.Error("unknown guild should have no channel")
	}
}
