package coordinator

import (
	"context"
	"fmt"
	"sync"

	apperrors "github.com/ltdang/musicrelay/internal/errors"
	"github.com/ltdang/musicrelay/internal/fetcher"
	"github.com/ltdang/musicrelay/pkg/logger"
)

// State is a guild's playback lifecycle state
type State int

const (
	StateIdle State = iota
	StateLoading
	StatePlaying
	StatePaused
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	default:
		return "unknown"
	}
}

// QueueEntry is a pending request awaiting playback. Nothing is downloaded
// for an entry until it reaches the head of the queue.
type QueueEntry struct {
	URL   string
	Title string
}

// Fetcher resolves a URL to a playable local audio file
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*fetcher.Track, error)
}

// Voice streams local audio files into a guild's voice session. Play returns
// once streaming has started; the end of playback is delivered to the
// coordinator through HandleCompletion, from a separate goroutine. Stop
// returns once the session can accept a new Play; it must not wait for the
// completion signal to be processed.
type Voice interface {
	Play(guildID, path string) error
	Pause(guildID string) error
	Resume(guildID string) error
	Stop(guildID string) error
	Disconnect(guildID string) error
}

// Cleaner deletes media files the coordinator has released
type Cleaner interface {
	Delete(path string)
}

// Announcer posts playback events to the guild's text channel. Used for
// events with no originating command, like queue auto-advance.
type Announcer interface {
	Announce(guildID, message string)
}

// guildState holds one guild's queue and in-flight track. All access goes
// through mu: the coordinator is a serialized actor per guild, and the mutex
// is held across the blocking fetch so commands for the same guild are
// processed strictly in arrival order.
type guildState struct {
	mu      sync.Mutex
	state   State
	current *fetcher.Track
	queue   []QueueEntry
}

// Coordinator owns all guild playback state. Guilds are fully independent;
// a slow fetch for one guild never blocks another.
type Coordinator struct {
	fetcher   Fetcher
	voice     Voice
	cleaner   Cleaner
	announcer Announcer
	logger    *logger.Logger

	mu     sync.RWMutex
	guilds map[string]*guildState
}

// New creates a playback coordinator
func New(f Fetcher, v Voice, cl Cleaner, log *logger.Logger) *Coordinator {
	return &Coordinator{
		fetcher: f,
		voice:   v,
		cleaner: cl,
		logger:  log,
		guilds:  make(map[string]*guildState),
	}
}

// SetAnnouncer installs the channel used for unsolicited playback messages
func (c *Coordinator) SetAnnouncer(a Announcer) {
	c.announcer = a
}

func (c *Coordinator) getOrCreateState(guildID string) *guildState {
	c.mu.RLock()
	g, exists := c.guilds[guildID]
	c.mu.RUnlock()
	if exists {
		return g
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if g, exists = c.guilds[guildID]; !exists {
		g = &guildState{state: StateIdle}
		c.guilds[guildID] = g
	}
	return g
}

// StartResult reports what StartOrEnqueue did with the request
type StartResult struct {
	Queued   bool
	Position int            // 1-based queue position when Queued
	Track    *fetcher.Track // started track when not Queued
}

// StartOrEnqueue plays url immediately if the guild is idle, otherwise
// appends it to the queue. Queued entries are not fetched until their turn.
func (c *Coordinator) StartOrEnqueue(ctx context.Context, guildID, url, title string) (*StartResult, error) {
	g := c.getOrCreateState(guildID)
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.state != StateIdle {
		g.queue = append(g.queue, QueueEntry{URL: url, Title: title})
		return &StartResult{Queued: true, Position: len(g.queue)}, nil
	}

	g.state = StateLoading
	track, err := c.fetcher.Fetch(ctx, url)
	if err != nil {
		g.state = StateIdle
		return nil, err
	}

	if err := c.voice.Play(guildID, track.Path); err != nil {
		c.cleaner.Delete(track.Path)
		g.state = StateIdle
		return nil, err
	}

	g.current = track
	g.state = StatePlaying
	c.logger.WithFields(map[string]interface{}{
		"guild": guildID,
		"title": track.Title,
	}).Info("Playback started")

	return &StartResult{Track: track}, nil
}

// HandleCompletion is the playback-ended signal from the voice layer, fired
// on natural completion and on stop-for-skip alike. Signals for a track that
// is no longer current (the guild was hard-stopped meanwhile) are discarded.
func (c *Coordinator) HandleCompletion(guildID, finishedPath string) {
	g := c.getOrCreateState(guildID)
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.current == nil || g.current.Path != finishedPath {
		c.logger.WithField("guild", guildID).Debug("Ignoring stale completion signal")
		return
	}

	c.advanceLocked(context.Background(), guildID, g)
}

// advanceLocked releases the current track and starts the next playable
// queue entry. Entries that fail to fetch are skipped, so one bad URL never
// stalls the queue. Caller holds g.mu.
func (c *Coordinator) advanceLocked(ctx context.Context, guildID string, g *guildState) {
	if g.current != nil {
		c.cleaner.Delete(g.current.Path)
		g.current = nil
	}

	for len(g.queue) > 0 {
		entry := g.queue[0]
		g.queue = g.queue[1:]
		g.state = StateLoading

		track, err := c.fetcher.Fetch(ctx, entry.URL)
		if err != nil {
			c.logger.WithError(err).WithFields(map[string]interface{}{
				"guild": guildID,
				"url":   entry.URL,
			}).Warn("Skipping unplayable queue entry")
			c.announce(guildID, fmt.Sprintf("⏭️ Skipping **%s**: %s", entryTitle(entry), apperrors.GetUserMessage(err)))
			continue
		}

		if err := c.voice.Play(guildID, track.Path); err != nil {
			c.cleaner.Delete(track.Path)
			c.logger.WithError(err).WithField("guild", guildID).Error("Failed to start playback")
			c.announce(guildID, fmt.Sprintf("⏭️ Skipping **%s**: %s", entryTitle(entry), apperrors.GetUserMessage(err)))
			continue
		}

		g.current = track
		g.state = StatePlaying
		c.announce(guildID, fmt.Sprintf("🎵 Now playing: **%s**", track.Title))
		return
	}

	g.state = StateIdle
	if err := c.voice.Disconnect(guildID); err != nil {
		c.logger.WithError(err).WithField("guild", guildID).Warn("Disconnect after queue drain failed")
	}
	c.announce(guildID, "👋 Queue finished, leaving the voice channel")
}

// Skip ends the current track early. It only stops the session; the
// resulting completion signal drives the advance, so skip and natural end
// share one code path.
func (c *Coordinator) Skip(guildID string) error {
	g := c.getOrCreateState(guildID)
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.state != StatePlaying && g.state != StatePaused {
		return apperrors.ErrNothingPlaying
	}
	return c.voice.Stop(guildID)
}

// StopAll hard-resets the guild: stops playback, drops the queue, releases
// the current file and disconnects. Unlike Skip it never starts the next
// entry.
func (c *Coordinator) StopAll(guildID string) error {
	g := c.getOrCreateState(guildID)
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.state == StateIdle {
		return apperrors.ErrNoVoiceSession
	}

	g.queue = nil
	if g.current != nil {
		if err := c.voice.Stop(guildID); err != nil {
			c.logger.WithError(err).WithField("guild", guildID).Warn("Stop during hard reset failed")
		}
		c.cleaner.Delete(g.current.Path)
		g.current = nil
	}
	g.state = StateIdle

	if err := c.voice.Disconnect(guildID); err != nil {
		return fmt.Errorf("failed to disconnect: %w", err)
	}

	c.logger.WithField("guild", guildID).Info("Playback stopped and queue cleared")
	return nil
}

// Pause suspends the current track
func (c *Coordinator) Pause(guildID string) error {
	g := c.getOrCreateState(guildID)
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.state != StatePlaying {
		return apperrors.ErrNothingPlaying
	}
	if err := c.voice.Pause(guildID); err != nil {
		return err
	}
	g.state = StatePaused
	return nil
}

// Resume continues a paused track
func (c *Coordinator) Resume(guildID string) error {
	g := c.getOrCreateState(guildID)
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.state != StatePaused {
		return apperrors.ErrNothingPaused
	}
	if err := c.voice.Resume(guildID); err != nil {
		return err
	}
	g.state = StatePlaying
	return nil
}

// ClearQueue drops all pending entries without touching the current track
func (c *Coordinator) ClearQueue(guildID string) int {
	g := c.getOrCreateState(guildID)
	g.mu.Lock()
	defer g.mu.Unlock()

	removed := len(g.queue)
	g.queue = nil
	return removed
}

// Snapshot is a read-only view of a guild's playback state for display
type Snapshot struct {
	State        State
	CurrentTitle string
	NextTitles   []string
	QueueLength  int
}

// PeekQueue returns the guild's current track and up to limit queued titles
func (c *Coordinator) PeekQueue(guildID string, limit int) Snapshot {
	g := c.getOrCreateState(guildID)
	g.mu.Lock()
	defer g.mu.Unlock()

	snap := Snapshot{
		State:       g.state,
		QueueLength: len(g.queue),
	}
	if g.current != nil {
		snap.CurrentTitle = g.current.Title
	}
	for i := 0; i < len(g.queue) && i < limit; i++ {
		snap.NextTitles = append(snap.NextTitles, entryTitle(g.queue[i]))
	}
	return snap
}

// HasCurrentFiles reports whether any guild holds a materialized audio file.
// Used to decide when a directory sweep is safe.
func (c *Coordinator) HasCurrentFiles() bool {
	c.mu.RLock()
	guilds := make([]*guildState, 0, len(c.guilds))
	for _, g := range c.guilds {
		guilds = append(guilds, g)
	}
	c.mu.RUnlock()

	for _, g := range guilds {
		g.mu.Lock()
		busy := g.current != nil || g.state != StateIdle
		g.mu.Unlock()
		if busy {
			return true
		}
	}
	return false
}

// Shutdown releases every guild's playback state: queues dropped, current
// files deleted, all guilds idle. Runs before the voice layer is torn down
// so the teardown's completion signals arrive stale and are discarded.
func (c *Coordinator) Shutdown() {
	c.mu.RLock()
	guilds := make([]*guildState, 0, len(c.guilds))
	for _, g := range c.guilds {
		guilds = append(guilds, g)
	}
	c.mu.RUnlock()

	for _, g := range guilds {
		g.mu.Lock()
		g.queue = nil
		if g.current != nil {
			c.cleaner.Delete(g.current.Path)
			g.current = nil
		}
		g.state = StateIdle
		g.mu.Unlock()
	}
}

func (c *Coordinator) announce(guildID, message string) {
	if c.announcer != nil {
		c.announcer.Announce(guildID, message)
	}
}

func entryTitle(e QueueEntry) string {
	if e.Title == "" {
		return e.URL
	}
	return e.Title
}
