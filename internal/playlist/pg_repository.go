package playlist

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/ltdang/musicrelay/internal/database"
	apperrors "github.com/ltdang/musicrelay/internal/errors"
)

const pgUniqueViolation = "23505"

// PGRepository stores playlists in Postgres. Song order is kept in an
// explicit position column; each Append runs in its own transaction.
type PGRepository struct {
	db *database.DB
}

// NewPGRepository creates a Postgres-backed playlist repository
func NewPGRepository(db *database.DB) *PGRepository {
	return &PGRepository{db: db}
}

// Create makes an empty playlist row
func (r *PGRepository) Create(ctx context.Context, name string) error {
	_, err := r.db.Pool.Exec(ctx,
		`INSERT INTO playlists (name) VALUES ($1)`, name)
	if isUniqueViolation(err) {
		return apperrors.ErrPlaylistExists
	}
	if err != nil {
		return fmt.Errorf("failed to create playlist: %w", err)
	}
	return nil
}

// Append adds a song at the end of a playlist
func (r *PGRepository) Append(ctx context.Context, name string, song Song) error {
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var playlistID int64
	err = tx.QueryRow(ctx,
		`SELECT id FROM playlists WHERE name = $1`, name).Scan(&playlistID)
	if errors.Is(err, pgx.ErrNoRows) {
		return apperrors.ErrPlaylistNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to look up playlist: %w", err)
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO playlist_songs (playlist_id, position, url, title)
		 SELECT $1, COALESCE(MAX(position), 0) + 1, $2, $3
		 FROM playlist_songs WHERE playlist_id = $1`,
		playlistID, song.URL, song.Title)
	if isUniqueViolation(err) {
		return apperrors.ErrDuplicateSong
	}
	if err != nil {
		return fmt.Errorf("failed to append song: %w", err)
	}

	return tx.Commit(ctx)
}

// Load returns a playlist with its songs in position order
func (r *PGRepository) Load(ctx context.Context, name string) (*Playlist, error) {
	var playlistID int64
	err := r.db.Pool.QueryRow(ctx,
		`SELECT id FROM playlists WHERE name = $1`, name).Scan(&playlistID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.ErrPlaylistNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up playlist: %w", err)
	}

	rows, err := r.db.Pool.Query(ctx,
		`SELECT url, title FROM playlist_songs
		 WHERE playlist_id = $1 ORDER BY position`, playlistID)
	if err != nil {
		return nil, fmt.Errorf("failed to load songs: %w", err)
	}
	defer rows.Close()

	pl := &Playlist{Name: name, Songs: []Song{}}
	for rows.Next() {
		var song Song
		if err := rows.Scan(&song.URL, &song.Title); err != nil {
			return nil, fmt.Errorf("failed to scan song: %w", err)
		}
		pl.Songs = append(pl.Songs, song)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read songs: %w", err)
	}

	return pl, nil
}

// Delete removes a playlist and its songs
func (r *PGRepository) Delete(ctx context.Context, name string) error {
	tag, err := r.db.Pool.Exec(ctx,
		`DELETE FROM playlists WHERE name = $1`, name)
	if err != nil {
		return fmt.Errorf("failed to delete playlist: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrPlaylistNotFound
	}
	return nil
}

// List returns every playlist with its song count
func (r *PGRepository) List(ctx context.Context) ([]Summary, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT p.name, COUNT(s.id)
		 FROM playlists p
		 LEFT JOIN playlist_songs s ON s.playlist_id = p.id
		 GROUP BY p.name
		 ORDER BY p.name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list playlists: %w", err)
	}
	defer rows.Close()

	summaries := make([]Summary, 0)
	for rows.Next() {
		var s Summary
		if err := rows.Scan(&s.Name, &s.Count); err != nil {
			return nil, fmt.Errorf("failed to scan playlist: %w", err)
		}
		summaries = append(summaries, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read playlists: %w", err)
	}

	return summaries, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}
