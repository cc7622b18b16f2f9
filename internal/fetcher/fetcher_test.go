package fetcher

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/ltdang/musicrelay/internal/cookies"
	apperrors "github.com/ltdang/musicrelay/internal/errors"
	"github.com/ltdang/musicrelay/pkg/logger"
)

func TestCheckSize(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.mp3")
	if err := os.WriteFile(path, make([]byte, 1024), 0644); err != nil {
		t.Fatal(err)
	}

	if err := checkSize(path, 2048); err != nil {
		t.Errorf("file under the cap should pass, got %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Error("file under the cap must not be deleted")
	}

	err := checkSize(path, 512)
	if !errors.Is(err, apperrors.ErrSizeExceeded) {
		t.Errorf("expected ErrSizeExceeded, got %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("oversized file must be deleted")
	}
}

func TestCheckSizeExactCap(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.mp3")
	if err := os.WriteFile(path, make([]byte, 512), 0644); err != nil {
		t.Fatal(err)
	}

	// A file exactly at the cap is allowed
	if err := checkSize(path, 512); err != nil {
		t.Errorf("file at the cap should pass, got %v", err)
	}
}

func TestParseTrackLine(t *testing.T) {
	tests := []struct {
		name         string
		stdout       string
		wantTitle    string
		wantUploader string
		wantDuration int
	}{
		{
			name:         "normal output",
			stdout:       "Some Song\tSome Channel\t213\n",
			wantTitle:    "Some Song",
			wantUploader: "Some Channel",
			wantDuration: 213,
		},
		{
			name:         "fractional duration",
			stdout:       "Song\tChannel\t213.48",
			wantTitle:    "Song",
			wantUploader: "Channel",
			wantDuration: 213,
		},
		{
			name:         "live stream has NA duration",
			stdout:       "Live\tChannel\tNA",
			wantTitle:    "Live",
			wantUploader: "Channel",
			wantDuration: 0,
		},
		{
			name:      "empty output",
			stdout:    "",
			wantTitle: "Unknown",
		},
		{
			name:         "progress noise before metadata line",
			stdout:       "[download] 100%\nSong\tChannel\t10",
			wantTitle:    "Song",
			wantUploader: "Channel",
			wantDuration: 10,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			title, uploader, duration := parseTrackLine(tt.stdout)
			if title != tt.wantTitle {
				t.Errorf("title = %q, want %q", title, tt.wantTitle)
			}
			if uploader != tt.wantUploader {
				t.Errorf("uploader = %q, want %q", uploader, tt.wantUploader)
			}
			if duration != tt.wantDuration {
				t.Errorf("duration = %d, want %d", duration, tt.wantDuration)
			}
		})
	}
}

func TestFormatResolutions(t *testing.T) {
	tests := []struct {
		name    string
		heights []int
		want    []string
	}{
		{
			name:    "sorted and deduplicated",
			heights: []int{1080, 360, 720, 360, 144, 1080},
			want:    []string{"144p", "360p", "720p", "1080p"},
		},
		{
			name:    "empty",
			heights: nil,
			want:    []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := formatResolutions(tt.heights)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("formatResolutions(%v) = %v, want %v", tt.heights, got, tt.want)
			}
		})
	}
}

func TestFormatUploadDate(t *testing.T) {
	if got := formatUploadDate("20240131"); got != "2024-01-31" {
		t.Errorf("got %q, want 2024-01-31", got)
	}
	// Unexpected shapes pass through untouched
	if got := formatUploadDate("NA"); got != "NA" {
		t.Errorf("got %q, want NA", got)
	}
}

func TestRemoveSourcesDeletesPartials(t *testing.T) {
	dir := t.TempDir()
	f := &Fetcher{downloadDir: dir}

	for _, name := range []string{"abc.source.webm", "abc.source.m4a.part"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0644); err != nil {
			t.Fatal(err)
		}
	}
	other := filepath.Join(dir, "other.source.webm")
	if err := os.WriteFile(other, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	f.removeSources("abc")

	if matches, _ := filepath.Glob(filepath.Join(dir, "abc.source.*")); len(matches) != 0 {
		t.Errorf("partials left behind: %v", matches)
	}
	if _, err := os.Stat(other); err != nil {
		t.Error("unrelated downloads must be left alone")
	}
}

func TestStrategiesOrder(t *testing.T) {
	dir := t.TempDir()
	store := cookies.New(filepath.Join(dir, "cookies.txt"), logger.Discard())

	f := &Fetcher{cookies: store}

	// Without cookies only the anonymous attempt runs
	got := f.strategies()
	if len(got) != 1 || got[0].withCookies {
		t.Fatalf("expected single anonymous strategy, got %+v", got)
	}

	if err := store.SetFromText("# Netscape HTTP Cookie File\n"); err != nil {
		t.Fatal(err)
	}

	// With cookies present the cookie attempt runs first, anonymous second
	got = f.strategies()
	if len(got) != 2 {
		t.Fatalf("expected two strategies, got %+v", got)
	}
	if !got[0].withCookies || got[1].withCookies {
		t.Errorf("expected cookies first then anonymous, got %+v", got)
	}
}
