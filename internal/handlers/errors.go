package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"lifeguard-backend/internal/geo"
	"lifeguard-backend/internal/report"
	"lifeguard-backend/internal/services"

	"github.com/gofiber/fiber/v2"
)

const (
	genericAuthError = "incorrect email or password"
	stationsPage     = "/stations"
)

// renderError maps service errors to their HTTP replies. Unexpected
// failures are logged and sent to Sentry.
func renderError(c *fiber.Ctx, logger *slog.Logger, err error) error {
	var (
		outOfRange *services.OutOfRangeError
		uploadErr  *services.UploadError
		persistErr *services.PersistenceError
		dataAccess *services.DataAccessError
	)

	switch {
	case errors.Is(err, geo.ErrPermissionDenied):
		return c.Status(http.StatusForbidden).JSON(fiber.Map{
			"error": "Location permission denied. Enable location access and try again.",
		})
	case errors.Is(err, geo.ErrPositionTimeout):
		return c.Status(http.StatusRequestTimeout).JSON(fiber.Map{
			"error": "Timed out waiting for your location. Try again.",
		})
	case errors.Is(err, geo.ErrInvalidPosition):
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	case errors.As(err, &outOfRange):
		return c.Status(http.StatusForbidden).JSON(fiber.Map{
			"error":     "You are too far from the station to check in",
			"distance":  outOfRange.Distance,
			"threshold": outOfRange.Threshold,
		})
	case errors.Is(err, services.ErrStationNotFound):
		return c.Status(http.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, services.ErrCheckInBusy):
		return c.Status(http.StatusConflict).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, services.ErrDuplicateEmail), errors.Is(err, services.ErrInvalidCredentials):
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": genericAuthError})
	case errors.Is(err, services.ErrMissingFields), errors.Is(err, services.ErrIncompleteStation):
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, services.ErrNoStationSelected):
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{
			"error":    "Select a station first",
			"redirect": stationsPage,
		})
	case errors.As(err, &uploadErr):
		reportFailure(c, logger, err)
		return c.Status(http.StatusBadGateway).JSON(fiber.Map{"error": err.Error()})
	case errors.As(err, &persistErr):
		reportFailure(c, logger, err)
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	case errors.As(err, &dataAccess):
		reportFailure(c, logger, err)
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": "failed to load data"})
	}

	reportFailure(c, logger, err)
	return c.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
}

func reportFailure(c *fiber.Ctx, logger *slog.Logger, err error) {
	logger.Error("request failed", "method", c.Method(), "path", c.Path(), "error", err)
	report.ReportErrorWithSentryOptions(err, report.SentryReportOptions{
		Tags: map[string]string{
			"method": c.Method(),
			"route":  c.Route().Path,
		},
	})
}
