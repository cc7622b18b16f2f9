package audio

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/ltdang/musicrelay/pkg/logger"
)

var (
	// ErrNotConnected is returned when not connected to a voice channel
	ErrNotConnected = errors.New("not connected to voice channel")
	// ErrConnectionFailed is returned when connection fails
	ErrConnectionFailed = errors.New("failed to connect to voice channel")
)

// Connection wraps a guild's Discord voice connection
type Connection struct {
	guildID   string
	channelID string
	vc        *discordgo.VoiceConnection
	logger    *logger.Logger
	mu        sync.RWMutex
}

// NewConnection creates a voice connection handle for a guild
func NewConnection(guildID string, log *logger.Logger) *Connection {
	return &Connection{
		guildID: guildID,
		logger:  log,
	}
}

// Connect joins the given voice channel, moving from the current one if
// already connected elsewhere
func (c *Connection) Connect(session *discordgo.Session, channelID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.vc != nil && c.vc.Status == discordgo.VoiceConnectionStatusReady {
		if c.channelID == channelID {
			return nil
		}
		if err := c.disconnectLocked(); err != nil {
			c.logger.WithError(err).Warn("Failed to disconnect before moving channels")
		}
	}

	c.logger.WithFields(map[string]interface{}{
		"guild":   c.guildID,
		"channel": channelID,
	}).Info("Connecting to voice channel")

	// mute=false, deaf=true: the bot only sends audio
	vc, err := session.ChannelVoiceJoin(context.Background(), c.guildID, channelID, false, true)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrConnectionFailed, err)
	}

	readyTimeout := time.After(10 * time.Second)
	readyTicker := time.NewTicker(100 * time.Millisecond)
	defer readyTicker.Stop()

	for vc.Status != discordgo.VoiceConnectionStatusReady {
		select {
		case <-readyTimeout:
			vc.Disconnect(context.Background())
			return fmt.Errorf("%w: connection not ready after 10s", ErrConnectionFailed)
		case <-readyTicker.C:
			continue
		}
	}

	c.vc = vc
	c.channelID = channelID
	return nil
}

// Disconnect leaves the voice channel
func (c *Connection) Disconnect() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.disconnectLocked()
}

func (c *Connection) disconnectLocked() error {
	if c.vc == nil {
		return ErrNotConnected
	}

	if err := c.vc.Disconnect(context.Background()); err != nil {
		return err
	}

	c.vc = nil
	c.channelID = ""
	c.logger.WithField("guild", c.guildID).Info("Disconnected from voice channel")
	return nil
}

// IsConnected reports whether the connection is live
func (c *Connection) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vc != nil && c.vc.Status == discordgo.VoiceConnectionStatusReady
}

// ChannelID returns the connected channel, or empty when disconnected
func (c *Connection) ChannelID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.channelID
}

// Conn returns the underlying Discord voice connection for streaming
func (c *Connection) Conn() *discordgo.VoiceConnection {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vc
}

// Speaking toggles the speaking indicator
func (c *Connection) Speaking(speaking bool) error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.vc == nil {
		return ErrNotConnected
	}
	return c.vc.Speaking(speaking)
}
