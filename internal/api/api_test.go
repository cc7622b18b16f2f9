package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	apperrors "github.com/ltdang/musicrelay/internal/errors"
	"github.com/ltdang/musicrelay/internal/fetcher"
	"github.com/ltdang/musicrelay/pkg/logger"
)

type fakeMedia struct {
	fetchErr error
	infoErr  error
}

func (f *fakeMedia) Fetch(_ context.Context, url string) (*fetcher.Track, error) {
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	return &fetcher.Track{Path: "/tmp/x.mp3", URL: url, Title: "A Track"}, nil
}

func (f *fakeMedia) Info(context.Context, string) (*fetcher.VideoInfo, error) {
	if f.infoErr != nil {
		return nil, f.infoErr
	}
	return &fetcher.VideoInfo{Title: "A Track", Author: "Someone", Length: 213}, nil
}

func (f *fakeMedia) Resolutions(context.Context, string) ([]string, error) {
	return []string{"360p", "720p"}, nil
}

func newTestServer(media *fakeMedia) *Server {
	return New(":0", media, logger.Discard())
}

func postJSON(t *testing.T, s *Server, path string, body interface{}) *http.Response {
	t.Helper()

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		t.Fatal(err)
	}

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.App().Test(req, -1)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	return resp
}

func decodeBody(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response body: %v", err)
	}
	return body
}

const validURL = "https://www.youtube.com/watch?v=dQw4w9WgXcQ"

func TestDownloadMP3Success(t *testing.T) {
	s := newTestServer(&fakeMedia{})

	resp := postJSON(t, s, "/download_mp3", map[string]string{"url": validURL})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	body := decodeBody(t, resp)
	if body["message"] == nil || body["message"] == "" {
		t.Errorf("expected a message in the response, got %v", body)
	}
}

func TestDownloadMP3MissingURL(t *testing.T) {
	s := newTestServer(&fakeMedia{})

	resp := postJSON(t, s, "/download_mp3", map[string]string{})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("missing url: status = %d, want 400", resp.StatusCode)
	}
	if body := decodeBody(t, resp); body["error"] == nil {
		t.Error("expected an error field")
	}
}

func TestDownloadMP3InvalidURL(t *testing.T) {
	s := newTestServer(&fakeMedia{})

	resp := postJSON(t, s, "/download_mp3", map[string]string{"url": "https://example.com/notyoutube"})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("invalid url: status = %d, want 400", resp.StatusCode)
	}
}

func TestDownloadMP3FetchFailure(t *testing.T) {
	s := newTestServer(&fakeMedia{fetchErr: apperrors.ErrExtractionFailed})

	resp := postJSON(t, s, "/download_mp3", map[string]string{"url": validURL})
	if resp.StatusCode != http.StatusInternalServerError {
		t.Errorf("fetch failure: status = %d, want 500", resp.StatusCode)
	}
	if body := decodeBody(t, resp); body["error"] == nil {
		t.Error("expected an error field")
	}
}

func TestVideoInfo(t *testing.T) {
	s := newTestServer(&fakeMedia{})

	resp := postJSON(t, s, "/video_info", map[string]string{"url": validURL})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	body := decodeBody(t, resp)
	if body["title"] != "A Track" || body["author"] != "Someone" {
		t.Errorf("unexpected info payload: %v", body)
	}
	if body["length"].(float64) != 213 {
		t.Errorf("length = %v, want 213", body["length"])
	}
}

func TestVideoInfoFailure(t *testing.T) {
	s := newTestServer(&fakeMedia{infoErr: apperrors.ErrExtractionFailed})

	resp := postJSON(t, s, "/video_info", map[string]string{"url": validURL})
	if resp.StatusCode != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", resp.StatusCode)
	}
}

func TestAvailableResolutions(t *testing.T) {
	s := newTestServer(&fakeMedia{})

	resp := postJSON(t, s, "/available_resolutions", map[string]string{"url": validURL})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	body := decodeBody(t, resp)
	resolutions, ok := body["resolutions"].([]interface{})
	if !ok || len(resolutions) != 2 || resolutions[0] != "360p" {
		t.Errorf("unexpected resolutions payload: %v", body)
	}
}

func TestHealth(t *testing.T) {
	s := newTestServer(&fakeMedia{})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	resp, err := s.App().Test(req, -1)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
}
