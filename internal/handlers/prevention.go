package handlers

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"lifeguard-backend/internal/export"
	"lifeguard-backend/internal/models"
	"lifeguard-backend/internal/services"

	"github.com/gofiber/fiber/v2"
)

const dateLayout = "2006-01-02"

// SubmitPreventionHandler stores one prevention tally for the selected station
func SubmitPreventionHandler(prevention *services.PreventionService, logger *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var sub models.PreventionSubmission
		if err := c.BodyParser(&sub); err != nil {
			return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request"})
		}

		entry, err := prevention.Submit(c.UserContext(), sub)
		if err != nil {
			return renderError(c, logger, err)
		}
		return c.Status(http.StatusCreated).JSON(fiber.Map{
			"message":  "Prevention saved",
			"data":     entry,
			"redirect": stationsPage,
		})
	}
}

// ExportPreventionHandler downloads prevention entries as a spreadsheet.
// from and to are dates (YYYY-MM-DD); to is inclusive.
func ExportPreventionHandler(prevention *services.PreventionService, logger *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		from, to, err := parseDateRange(c.Query("from"), c.Query("to"))
		if err != nil {
			return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		}

		entries, err := prevention.List(c.UserContext(), from, to)
		if err != nil {
			return renderError(c, logger, err)
		}

		data, err := export.PreventionWorkbook(entries)
		if err != nil {
			return renderError(c, logger, err)
		}

		filename := fmt.Sprintf("prevention-%s.xlsx", time.Now().Format(dateLayout))
		c.Set(fiber.HeaderContentType, export.ContentTypeXLSX)
		c.Set(fiber.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="%s"`, filename))
		return c.Send(data)
	}
}

func parseDateRange(fromStr, toStr string) (from, to time.Time, err error) {
	if fromStr != "" {
		if from, err = time.Parse(dateLayout, fromStr); err != nil {
			return from, to, fmt.Errorf("invalid from date %q", fromStr)
		}
	}
	if toStr != "" {
		if to, err = time.Parse(dateLayout, toStr); err != nil {
			return from, to, fmt.Errorf("invalid to date %q", toStr)
		}
		to = to.AddDate(0, 0, 1)
	}
	if !from.IsZero() && !to.IsZero() && !from.Before(to) {
		return from, to, fmt.Errorf("from must not be after to")
	}
	return from, to, nil
}
