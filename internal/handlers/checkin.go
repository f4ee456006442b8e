package handlers

import (
	"log/slog"
	"net/http"

	"lifeguard-backend/internal/services"

	"github.com/gofiber/fiber/v2"
)

// CheckInHandler takes a multipart form with station, lat, long, optional
// geo_error and the photo file.
func CheckInHandler(checkins *services.CheckInService, logger *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		fileHeader, err := c.FormFile("photo")
		if err != nil {
			// Nothing picked yet, nothing to do
			return c.JSON(fiber.Map{"message": "No photo selected"})
		}

		station := c.FormValue("station")
		if station == "" {
			return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "station is required"})
		}

		loc, err := RequestLocator(c.FormValue("geo_error"), c.FormValue("lat"), c.FormValue("long"))
		if err != nil {
			return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		}

		file, err := fileHeader.Open()
		if err != nil {
			return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "failed to read photo"})
		}
		defer file.Close()

		entry, err := checkins.CheckIn(c.UserContext(), services.CheckInRequest{
			SessionKey:  sessionKey(c),
			StationName: station,
			Locator:     loc,
			Image: &services.Photo{
				Reader:      file,
				Size:        fileHeader.Size,
				FileName:    fileHeader.Filename,
				ContentType: fileHeader.Header.Get("Content-Type"),
			},
		})
		if err != nil {
			return renderError(c, logger, err)
		}

		return c.Status(http.StatusCreated).JSON(fiber.Map{
			"message":        "Check-in logged",
			"data":           entry,
			"reset_after_ms": checkins.ResetDelay().Milliseconds(),
		})
	}
}

// RecentCheckInsHandler lists the latest check-ins, newest first
func RecentCheckInsHandler(checkins *services.CheckInService, logger *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		limit := c.QueryInt("limit", services.DefaultRecentLimit)
		logs, err := checkins.Recent(c.UserContext(), c.Query("station"), limit)
		if err != nil {
			return renderError(c, logger, err)
		}
		return c.JSON(logs)
	}
}
