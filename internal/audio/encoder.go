package audio

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"time"

	"github.com/jonas747/ogg"
	"github.com/ltdang/musicrelay/pkg/logger"
)

// ErrEncodingFailed is returned when the Opus encoding pipeline fails
var ErrEncodingFailed = errors.New("audio encoding failed")

const (
	opusBitrate   = 128 // kbps
	frameDuration = 20 * time.Millisecond
	// ~20 seconds of frames buffered ahead of the voice connection
	frameBufferSize = 1024
)

// Encoder converts local audio files into Discord-ready Opus frames
type Encoder struct {
	ffmpegPath string
	logger     *logger.Logger
}

// NewEncoder creates an encoder using the given ffmpeg binary
func NewEncoder(ffmpegPath string, log *logger.Logger) *Encoder {
	return &Encoder{
		ffmpegPath: ffmpegPath,
		logger:     log,
	}
}

// EncodeFile transcodes the file at path to OGG/Opus and returns a channel
// of 20ms Opus frames. The frame channel closes on EOF; a pipeline failure
// is delivered on the error channel instead. Closing done aborts the encode
// and reaps the ffmpeg process, whatever state the pipeline is in.
func (e *Encoder) EncodeFile(path string, done <-chan struct{}) (<-chan []byte, <-chan error) {
	frames := make(chan []byte, frameBufferSize)
	errs := make(chan error, 1)

	go e.encode(path, done, frames, errs)

	return frames, errs
}

func (e *Encoder) encode(path string, done <-chan struct{}, frames chan []byte, errs chan error) {
	defer close(frames)
	defer close(errs)

	args := []string{
		"-i", path,
		"-map", "0:a",
		"-acodec", "libopus",
		"-f", "ogg",
		"-compression_level", "5",
		"-ar", "48000",
		"-ac", "2",
		"-b:a", fmt.Sprintf("%d", opusBitrate*1000),
		"-application", "audio",
		"-frame_duration", "20",
		"-loglevel", "error",
		"pipe:1",
	}

	cmd := exec.Command(e.ffmpegPath, args...)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		errs <- fmt.Errorf("%w: stdout pipe: %v", ErrEncodingFailed, err)
		return
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		errs <- fmt.Errorf("%w: stderr pipe: %v", ErrEncodingFailed, err)
		return
	}

	go func() {
		scanner := bufio.NewScanner(stderr)
		for scanner.Scan() {
			e.logger.WithField("ffmpeg", scanner.Text()).Warn("Encoder output")
		}
	}()

	if err := cmd.Start(); err != nil {
		errs <- fmt.Errorf("%w: start ffmpeg: %v", ErrEncodingFailed, err)
		return
	}
	defer func() {
		if cmd.Process != nil {
			cmd.Process.Kill()
			cmd.Wait()
		}
	}()

	decoder := ogg.NewPacketDecoder(ogg.NewDecoder(stdout))

	// The first two OGG packets are the Opus header and comment metadata
	skipPackets := 2
	frameCount := 0
	startTime := time.Now()

	for {
		select {
		case <-done:
			return
		default:
		}

		packet, _, err := decoder.Decode()
		if err != nil {
			if err == io.EOF {
				e.logger.WithFields(map[string]interface{}{
					"file":   path,
					"frames": frameCount,
				}).Debug("Encoding completed")
				return
			}
			// A decode error after frames flowed is a truncated tail,
			// treated as end of stream
			if frameCount > 0 {
				e.logger.WithError(err).WithField("frames", frameCount).Warn("Encoding ended early")
				return
			}
			errs <- fmt.Errorf("%w: %v", ErrEncodingFailed, err)
			return
		}

		if skipPackets > 0 {
			skipPackets--
			continue
		}
		if len(packet) == 0 {
			continue
		}

		frameCount++

		// Pace frame production to playback rate so the buffer stays bounded
		expectedTime := startTime.Add(time.Duration(frameCount) * frameDuration)
		if now := time.Now(); now.Before(expectedTime) {
			time.Sleep(expectedTime.Sub(now))
		}

		if !sendFrame(frames, packet, done) {
			return
		}
	}
}

// sendFrame delivers one frame to the consumer. A closed done channel means
// playback has ended and nothing will drain frames again, so the send gives
// up instead of blocking on a full buffer.
func sendFrame(frames chan<- []byte, frame []byte, done <-chan struct{}) bool {
	select {
	case frames <- frame:
		return true
	case <-done:
		return false
	}
}
