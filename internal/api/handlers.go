package api

import (
	"fmt"

	"github.com/gofiber/fiber/v2"

	apperrors "github.com/ltdang/musicrelay/internal/errors"
	"github.com/ltdang/musicrelay/internal/validation"
)

type urlRequest struct {
	URL string `json:"url"`
}

// parseURL extracts and validates the url field shared by all endpoints
func parseURL(c *fiber.Ctx) (string, error) {
	var req urlRequest
	if err := c.BodyParser(&req); err != nil {
		return "", apperrors.ErrMissingURL
	}
	if req.URL == "" {
		return "", apperrors.ErrMissingURL
	}
	if err := validation.ValidateYouTubeURL(req.URL); err != nil {
		return "", err
	}
	return req.URL, nil
}

func (s *Server) fail(c *fiber.Ctx, err error) error {
	return c.Status(statusFor(err)).JSON(fiber.Map{
		"error": err.Error(),
	})
}

func (s *Server) handleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

func (s *Server) handleDownloadMP3(c *fiber.Ctx) error {
	url, err := parseURL(c)
	if err != nil {
		return s.fail(c, err)
	}

	track, err := s.media.Fetch(c.Context(), url)
	if err != nil {
		s.logger.WithError(err).WithField("url", url).Error("API download failed")
		return s.fail(c, err)
	}

	return c.JSON(fiber.Map{
		"message": fmt.Sprintf("Downloaded %s successfully", track.Title),
	})
}

func (s *Server) handleVideoInfo(c *fiber.Ctx) error {
	url, err := parseURL(c)
	if err != nil {
		return s.fail(c, err)
	}

	info, err := s.media.Info(c.Context(), url)
	if err != nil {
		s.logger.WithError(err).WithField("url", url).Error("API video info failed")
		return s.fail(c, err)
	}

	return c.JSON(info)
}

func (s *Server) handleResolutions(c *fiber.Ctx) error {
	url, err := parseURL(c)
	if err != nil {
		return s.fail(c, err)
	}

	resolutions, err := s.media.Resolutions(c.Context(), url)
	if err != nil {
		s.logger.WithError(err).WithField("url", url).Error("API resolutions failed")
		return s.fail(c, err)
	}

	return c.JSON(fiber.Map{"resolutions": resolutions})
}
