package playlist

import "context"

// Song is one saved entry in a playlist
type Song struct {
	URL   string `json:"url"`
	Title string `json:"title"`
}

// Playlist is a named ordered list of songs. Song order is insertion order
// and equals play order.
type Playlist struct {
	Name  string `json:"name"`
	Songs []Song `json:"songs"`
}

// Summary is a playlist's name and size, for listings
type Summary struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// Repository persists playlists. Two implementations exist: JSON documents
// on disk (the default) and Postgres.
type Repository interface {
	// Create makes an empty playlist, failing if the name is taken
	Create(ctx context.Context, name string) error
	// Append adds a song, failing if the playlist is missing or already
	// contains the URL
	Append(ctx context.Context, name string, song Song) error
	// Load returns the playlist's songs
	Load(ctx context.Context, name string) (*Playlist, error)
	// Delete removes the playlist
	Delete(ctx context.Context, name string) error
	// List returns a summary of every stored playlist
	List(ctx context.Context) ([]Summary, error)
}
