package fetcher

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/lrstanley/go-ytdlp"

	apperrors "github.com/ltdang/musicrelay/internal/errors"
)

// VideoInfo is the metadata subset exposed over the HTTP API
type VideoInfo struct {
	Title       string `json:"title"`
	Author      string `json:"author"`
	Length      int    `json:"length"`
	Views       int64  `json:"views"`
	Description string `json:"description"`
	PublishDate string `json:"publish_date"`
}

// rawInfo mirrors the fields we read from yt-dlp's single-video JSON dump
type rawInfo struct {
	Title       string      `json:"title"`
	Uploader    string      `json:"uploader"`
	Duration    float64     `json:"duration"`
	ViewCount   int64       `json:"view_count"`
	Description string      `json:"description"`
	UploadDate  string      `json:"upload_date"`
	Formats     []rawFormat `json:"formats"`
}

type rawFormat struct {
	Height int    `json:"height"`
	VCodec string `json:"vcodec"`
}

// Info returns metadata for a video without downloading it. Results are
// cached briefly since the API tends to probe the same URL repeatedly.
func (f *Fetcher) Info(ctx context.Context, url string) (*VideoInfo, error) {
	raw, err := f.probe(ctx, url)
	if err != nil {
		return nil, err
	}

	return &VideoInfo{
		Title:       raw.Title,
		Author:      raw.Uploader,
		Length:      int(raw.Duration),
		Views:       raw.ViewCount,
		Description: raw.Description,
		PublishDate: formatUploadDate(raw.UploadDate),
	}, nil
}

// Resolutions returns the distinct video resolutions available for url,
// ascending, formatted like "720p"
func (f *Fetcher) Resolutions(ctx context.Context, url string) ([]string, error) {
	raw, err := f.probe(ctx, url)
	if err != nil {
		return nil, err
	}

	heights := make([]int, 0, len(raw.Formats))
	for _, format := range raw.Formats {
		if format.VCodec == "" || format.VCodec == "none" || format.Height <= 0 {
			continue
		}
		heights = append(heights, format.Height)
	}

	return formatResolutions(heights), nil
}

func (f *Fetcher) probe(ctx context.Context, url string) (*rawInfo, error) {
	if cached, ok := f.infoCache.Get(url); ok {
		return cached.(*rawInfo), nil
	}

	cmd := ytdlp.New().
		DumpSingleJSON().
		NoPlaylist().
		NoWarnings().
		IgnoreConfig()
	if f.cookies != nil && f.cookies.Present() {
		cmd = cmd.Cookies(f.cookies.Path())
	}

	res, err := cmd.Run(ctx, "--skip-download", url)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrExtractionFailed, err)
	}

	var raw rawInfo
	if err := json.Unmarshal([]byte(res.Stdout), &raw); err != nil {
		return nil, fmt.Errorf("%w: malformed metadata: %v", apperrors.ErrExtractionFailed, err)
	}

	f.infoCache.Set(url, &raw)
	return &raw, nil
}

// formatResolutions deduplicates and sorts pixel heights into "Np" labels
func formatResolutions(heights []int) []string {
	seen := make(map[int]bool, len(heights))
	unique := make([]int, 0, len(heights))
	for _, h := range heights {
		if !seen[h] {
			seen[h] = true
			unique = append(unique, h)
		}
	}
	sort.Ints(unique)

	labels := make([]string, len(unique))
	for i, h := range unique {
		labels[i] = fmt.Sprintf("%dp", h)
	}
	return labels
}

// formatUploadDate converts yt-dlp's YYYYMMDD upload date to YYYY-MM-DD
func formatUploadDate(s string) string {
	if len(s) != 8 {
		return s
	}
	return s[:4] + "-" + s[4:6] + "-" + s[6:]
}
