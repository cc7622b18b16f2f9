package api

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"

	apperrors "github.com/ltdang/musicrelay/internal/errors"
	"github.com/ltdang/musicrelay/internal/fetcher"
	"github.com/ltdang/musicrelay/pkg/logger"
)

// MediaService is the extraction capability the HTTP surface exposes. It is
// stateless and fully independent of the playback coordinator.
type MediaService interface {
	Fetch(ctx context.Context, url string) (*fetcher.Track, error)
	Info(ctx context.Context, url string) (*fetcher.VideoInfo, error)
	Resolutions(ctx context.Context, url string) ([]string, error)
}

// Server is the companion HTTP API
type Server struct {
	app    *fiber.App
	media  MediaService
	logger *logger.Logger
	addr   string
}

// New creates the HTTP server and registers its routes
func New(addr string, media MediaService, log *logger.Logger) *Server {
	app := fiber.New(fiber.Config{
		AppName:               "musicrelay",
		DisableStartupMessage: true,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			log.WithError(err).Error("Unhandled API error")
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "internal server error",
			})
		},
	})

	s := &Server{
		app:    app,
		media:  media,
		logger: log,
		addr:   addr,
	}

	app.Get("/health", s.handleHealth)
	app.Post("/download_mp3", s.handleDownloadMP3)
	app.Post("/video_info", s.handleVideoInfo)
	app.Post("/available_resolutions", s.handleResolutions)

	return s
}

// Start serves until Shutdown is called
func (s *Server) Start() error {
	s.logger.WithField("addr", s.addr).Info("HTTP API listening")
	return s.app.Listen(s.addr)
}

// Shutdown gracefully stops the server
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

// App exposes the fiber app for in-process request testing
func (s *Server) App() *fiber.App {
	return s.app
}

// statusFor maps the error taxonomy onto HTTP status codes: validation
// failures are the caller's fault, everything else is a fetch failure.
func statusFor(err error) int {
	if errors.Is(err, apperrors.ErrMissingURL) || errors.Is(err, apperrors.ErrInvalidURL) {
		return fiber.StatusBadRequest
	}
	return fiber.StatusInternalServerError
}
