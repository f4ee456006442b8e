package handlers

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"lifeguard-backend/internal/geo"
	"lifeguard-backend/internal/models"
	"lifeguard-backend/internal/report"
	"lifeguard-backend/internal/services"

	"github.com/gofiber/fiber/v2"
)

var errMissingPosition = errors.New("lat and long are required")

// ListStationsHandler returns stations matching ?q=. A store failure is
// logged and the client sees an empty list.
func ListStationsHandler(stations *services.StationService, logger *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		search := c.Query("q")
		list, err := stations.ListStations(c.UserContext(), search)
		if err != nil {
			logger.Error("failed to list stations", "search", search, "error", err)
			report.ReportError(err)
			return c.JSON([]models.Station{})
		}
		return c.JSON(list)
	}
}

// ProximityHandler runs the proximity gate for one station
func ProximityHandler(checkins *services.CheckInService, logger *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		loc, err := RequestLocator(c.Query("geo_error"), c.Query("lat"), c.Query("long"))
		if err != nil {
			return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		}

		resp, err := checkins.Proximity(c.UserContext(), c.Params("name"), loc)
		if err != nil {
			return renderError(c, logger, err)
		}
		return c.JSON(resp)
	}
}

// RequestLocator turns client-reported geolocation fields into a Locator.
// geoError carries the device's own failure: "denied" or "timeout".
func RequestLocator(geoError, lat, long string) (geo.Locator, error) {
	switch strings.ToLower(strings.TrimSpace(geoError)) {
	case "":
	case "denied", "permission_denied":
		return geo.StaticLocator{Err: geo.ErrPermissionDenied}, nil
	case "timeout":
		return geo.StaticLocator{Err: geo.ErrPositionTimeout}, nil
	default:
		return nil, fmt.Errorf("unknown geo_error %q", geoError)
	}

	if lat == "" || long == "" {
		return nil, errMissingPosition
	}
	la, err := strconv.ParseFloat(lat, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid lat: %w", err)
	}
	lo, err := strconv.ParseFloat(long, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid long: %w", err)
	}
	return geo.StaticLocator{Position: geo.Coordinates{Latitude: la, Longitude: lo}}, nil
}
