package fetcher

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lrstanley/go-ytdlp"

	"github.com/ltdang/musicrelay/internal/cookies"
	apperrors "github.com/ltdang/musicrelay/internal/errors"
	"github.com/ltdang/musicrelay/internal/utils"
	"github.com/ltdang/musicrelay/pkg/logger"
)

// Track describes a fully downloaded and transcoded audio file on disk
type Track struct {
	Path     string
	URL      string
	Title    string
	Uploader string
	Duration int // seconds
}

// Fetcher downloads YouTube audio and transcodes it to MP3. Downloads use
// randomly generated file names so concurrent fetches of the same video
// never collide on disk.
type Fetcher struct {
	downloadDir string
	ffmpegPath  string
	maxBytes    int64
	cookies     *cookies.Store
	infoCache   *utils.TTLCache
	logger      *logger.Logger
}

// New creates a Fetcher. It verifies ffmpeg is reachable and ensures a
// yt-dlp binary is available, downloading one if the host has none.
func New(downloadDir, ffmpegPath string, maxBytes int64, ck *cookies.Store, log *logger.Logger) (*Fetcher, error) {
	if _, err := exec.LookPath(ffmpegPath); err != nil {
		return nil, fmt.Errorf("ffmpeg not found at %q: %w", ffmpegPath, err)
	}

	if _, err := ytdlp.Install(context.Background(), nil); err != nil {
		return nil, fmt.Errorf("yt-dlp is not available: %w", err)
	}

	return &Fetcher{
		downloadDir: downloadDir,
		ffmpegPath:  ffmpegPath,
		maxBytes:    maxBytes,
		cookies:     ck,
		infoCache:   utils.NewTTLCache(200, 10*time.Minute),
		logger:      log,
	}, nil
}

// strategy is one download attempt configuration. Attempts run in order
// until one succeeds.
type strategy struct {
	name        string
	withCookies bool
}

func (f *Fetcher) strategies() []strategy {
	if f.cookies != nil && f.cookies.Present() {
		return []strategy{
			{name: "cookies", withCookies: true},
			{name: "anonymous", withCookies: false},
		}
	}
	return []strategy{{name: "anonymous", withCookies: false}}
}

// Fetch downloads the audio stream of url and transcodes it to an MP3 under
// the download directory. The returned track's file is owned by the caller,
// who must delete it when playback finishes.
func (f *Fetcher) Fetch(ctx context.Context, url string) (*Track, error) {
	id := uuid.New().String()

	var attemptErrs []string
	for _, st := range f.strategies() {
		track, err := f.fetchOnce(ctx, url, id, st)
		if err == nil {
			return track, nil
		}

		// An oversized result is a property of the video, not of the
		// strategy. Retrying would download the same bytes again.
		if errors.Is(err, apperrors.ErrSizeExceeded) {
			return nil, err
		}

		f.logger.WithError(err).WithFields(map[string]interface{}{
			"url":      url,
			"strategy": st.name,
		}).Warn("Download attempt failed")
		attemptErrs = append(attemptErrs, fmt.Sprintf("%s: %v", st.name, err))

		if ctx.Err() != nil {
			break
		}
	}

	return nil, apperrors.WrapUserError(
		fmt.Errorf("%w: %s", apperrors.ErrExtractionFailed, strings.Join(attemptErrs, "; ")),
		"❌ Failed to download this video. It may be private, region locked, or age restricted.",
	)
}

func (f *Fetcher) fetchOnce(ctx context.Context, url, id string, st strategy) (*Track, error) {
	sourceTemplate := filepath.Join(f.downloadDir, id+".source.%(ext)s")

	cmd := ytdlp.New().
		Format("bestaudio/best").
		Output(sourceTemplate).
		Print("%(title)s\t%(uploader)s\t%(duration)s").
		NoSimulate().
		NoPlaylist().
		NoWarnings().
		IgnoreConfig()
	if st.withCookies {
		cmd = cmd.Cookies(f.cookies.Path())
	}

	res, err := cmd.Run(ctx, url)
	if err != nil {
		f.removeSources(id)
		return nil, fmt.Errorf("extraction failed: %w", err)
	}

	title, uploader, duration := parseTrackLine(res.Stdout)

	sourcePath, err := f.findSource(id)
	if err != nil {
		f.removeSources(id)
		return nil, err
	}
	defer os.Remove(sourcePath)

	mp3Path := filepath.Join(f.downloadDir, id+".mp3")
	if err := f.transcode(ctx, sourcePath, mp3Path); err != nil {
		os.Remove(mp3Path)
		return nil, err
	}

	if err := checkSize(mp3Path, f.maxBytes); err != nil {
		return nil, err
	}

	f.logger.WithFields(map[string]interface{}{
		"title":    title,
		"path":     mp3Path,
		"strategy": st.name,
	}).Info("Track downloaded")

	return &Track{
		Path:     mp3Path,
		URL:      url,
		Title:    title,
		Uploader: uploader,
		Duration: duration,
	}, nil
}

// transcode converts a downloaded source file to MP3
func (f *Fetcher) transcode(ctx context.Context, sourcePath, mp3Path string) error {
	cmd := exec.CommandContext(ctx, f.ffmpegPath,
		"-y",
		"-i", sourcePath,
		"-vn",
		"-ab", "192k",
		"-ar", "44100",
		"-ac", "2",
		mp3Path,
	)

	output, err := cmd.CombinedOutput()
	if err != nil {
		return apperrors.WrapUserError(
			fmt.Errorf("%w: ffmpeg: %v: %s", apperrors.ErrTranscodeFailed, err, tail(string(output), 300)),
			"❌ Failed to convert the downloaded audio.",
		)
	}
	return nil
}

// findSource locates the file yt-dlp wrote for this download id. The
// extension depends on the format YouTube served.
func (f *Fetcher) findSource(id string) (string, error) {
	matches, err := filepath.Glob(filepath.Join(f.downloadDir, id+".source.*"))
	if err != nil || len(matches) == 0 {
		return "", fmt.Errorf("%w: downloaded file not found", apperrors.ErrExtractionFailed)
	}
	return matches[0], nil
}

func (f *Fetcher) removeSources(id string) {
	matches, _ := filepath.Glob(filepath.Join(f.downloadDir, id+".source.*"))
	for _, m := range matches {
		os.Remove(m)
	}
}

// checkSize enforces the output size cap, removing the file when it is over
func checkSize(path string, maxBytes int64) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("%w: cannot stat output: %v", apperrors.ErrTranscodeFailed, err)
	}

	if info.Size() > maxBytes {
		os.Remove(path)
		return apperrors.WrapUserError(
			fmt.Errorf("%w: %d bytes exceeds cap of %d", apperrors.ErrSizeExceeded, info.Size(), maxBytes),
			"❌ This video's audio is larger than the %d MB limit.", maxBytes/(1024*1024),
		)
	}
	return nil
}

// parseTrackLine splits the tab separated metadata line yt-dlp prints
// alongside the download
func parseTrackLine(stdout string) (title, uploader string, duration int) {
	title = "Unknown"
	for _, line := range strings.Split(strings.TrimSpace(stdout), "\n") {
		parts := strings.Split(line, "\t")
		if len(parts) < 3 {
			continue
		}
		title = parts[0]
		uploader = parts[1]
		duration = parseDuration(parts[2])
		return
	}
	return
}

// parseDuration converts yt-dlp's duration field to whole seconds. Live
// streams report "NA", which maps to zero.
func parseDuration(s string) int {
	seconds, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0
	}
	return int(seconds)
}

func tail(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
