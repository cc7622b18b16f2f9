package playlist

import (
	"context"
	"errors"
	"testing"

	apperrors "github.com/ltdang/musicrelay/internal/errors"
)

func newRepo(t *testing.T) *FileRepository {
	t.Helper()
	repo, err := NewFileRepository(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileRepository failed: %v", err)
	}
	return repo
}

func TestCreateAppendLoadRoundTrip(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()

	if err := repo.Create(ctx, "favorites"); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	song := Song{URL: "https://youtu.be/abc123", Title: "A Song"}
	if err := repo.Append(ctx, "favorites", song); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	pl, err := repo.Load(ctx, "favorites")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if pl.Name != "favorites" {
		t.Errorf("name = %q, want favorites", pl.Name)
	}
	if len(pl.Songs) != 1 || pl.Songs[0] != song {
		t.Errorf("songs = %+v, want exactly [%+v]", pl.Songs, song)
	}
}

func TestAppendPreservesOrder(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()

	repo.Create(ctx, "mix")
	urls := []string{"https://youtu.be/a", "https://youtu.be/b", "https://youtu.be/c"}
	for _, u := range urls {
		if err := repo.Append(ctx, "mix", Song{URL: u}); err != nil {
			t.Fatal(err)
		}
	}

	pl, err := repo.Load(ctx, "mix")
	if err != nil {
		t.Fatal(err)
	}
	for i, u := range urls {
		if pl.Songs[i].URL != u {
			t.Errorf("song %d = %q, want %q", i, pl.Songs[i].URL, u)
		}
	}
}

func TestAppendRejectsDuplicateURL(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()

	repo.Create(ctx, "mix")
	song := Song{URL: "https://youtu.be/abc", Title: "First"}
	if err := repo.Append(ctx, "mix", song); err != nil {
		t.Fatal(err)
	}

	err := repo.Append(ctx, "mix", Song{URL: song.URL, Title: "Again"})
	if !errors.Is(err, apperrors.ErrDuplicateSong) {
		t.Fatalf("expected ErrDuplicateSong, got %v", err)
	}

	pl, _ := repo.Load(ctx, "mix")
	if len(pl.Songs) != 1 {
		t.Errorf("duplicate append must not grow the playlist, got %d songs", len(pl.Songs))
	}
}

func TestCreateExistingFails(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()

	repo.Create(ctx, "mix")
	if err := repo.Create(ctx, "mix"); !errors.Is(err, apperrors.ErrPlaylistExists) {
		t.Errorf("expected ErrPlaylistExists, got %v", err)
	}
}

func TestCreateSanitizedNameCollision(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()

	// Both names sanitize to "road_trip"
	if err := repo.Create(ctx, "road trip"); err != nil {
		t.Fatal(err)
	}
	err := repo.Create(ctx, "road?trip")
	if !errors.Is(err, apperrors.ErrNameCollision) {
		t.Errorf("expected ErrNameCollision, got %v", err)
	}

	// The colliding name must not resolve to the other playlist either
	if _, err := repo.Load(ctx, "road?trip"); !errors.Is(err, apperrors.ErrPlaylistNotFound) {
		t.Errorf("colliding name must not load the original document, got %v", err)
	}
}

func TestLoadMissing(t *testing.T) {
	repo := newRepo(t)

	_, err := repo.Load(context.Background(), "nope")
	if !errors.Is(err, apperrors.ErrPlaylistNotFound) {
		t.Errorf("expected ErrPlaylistNotFound, got %v", err)
	}
}

func TestDelete(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()

	repo.Create(ctx, "mix")
	if err := repo.Delete(ctx, "mix"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := repo.Load(ctx, "mix"); !errors.Is(err, apperrors.ErrPlaylistNotFound) {
		t.Error("deleted playlist should not load")
	}
	if err := repo.Delete(ctx, "mix"); !errors.Is(err, apperrors.ErrPlaylistNotFound) {
		t.Errorf("deleting twice: expected ErrPlaylistNotFound, got %v", err)
	}

	// Deleting one playlist leaves the rest alone
	repo.Create(ctx, "keep")
	repo.Create(ctx, "drop")
	repo.Delete(ctx, "drop")
	if _, err := repo.Load(ctx, "keep"); err != nil {
		t.Errorf("unrelated playlist was affected: %v", err)
	}
}

func TestListCounts(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()

	repo.Create(ctx, "empty")
	repo.Create(ctx, "full")
	repo.Append(ctx, "full", Song{URL: "https://youtu.be/a"})
	repo.Append(ctx, "full", Song{URL: "https://youtu.be/b"})

	summaries, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(summaries) != 2 {
		t.Fatalf("expected 2 playlists, got %d", len(summaries))
	}

	counts := make(map[string]int)
	for _, s := range summaries {
		counts[s.Name] = s.Count
	}
	if counts["empty"] != 0 || counts["full"] != 2 {
		t.Errorf("unexpected counts: %v", counts)
	}
}

func TestListEmptyDirectory(t *testing.T) {
	repo := newRepo(t)

	summaries, err := repo.List(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(summaries) != 0 {
		t.Errorf("expected no playlists, got %d", len(summaries))
	}
}
