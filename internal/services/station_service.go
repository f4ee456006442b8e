package services

import (
	"context"
	"log/slog"
	"strings"

	"lifeguard-backend/internal/models"
)

type StationService struct {
	store  StationStore
	cache  StationCache
	logger *slog.Logger
}

// NewStationService builds the directory. cache may be nil.
func NewStationService(store StationStore, cache StationCache, logger *slog.Logger) *StationService {
	return &StationService{store: store, cache: cache, logger: logger}
}

// ListStations returns every station, or the ones whose name contains search
// ignoring case, in the order the store returns them.
func (s *StationService) ListStations(ctx context.Context, search string) ([]models.Station, error) {
	search = strings.TrimSpace(search)

	if s.cache != nil {
		stations, found, err := s.cache.Get(ctx, search)
		if err != nil {
			s.logger.Warn("station cache read failed", "search", search, "error", err)
		} else if found {
			return stations, nil
		}
	}

	stations, err := s.store.ListStations(ctx, search)
	if err != nil {
		return nil, &DataAccessError{Op: "list stations", Err: err}
	}
	if stations == nil {
		stations = []models.Station{}
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, search, stations); err != nil {
			s.logger.Warn("station cache write failed", "search", search, "error", err)
		}
	}
	return stations, nil
}

// GetStation resolves a station by name. An exact match wins; otherwise the
// first station whose name contains name ignoring case is used.
func (s *StationService) GetStation(ctx context.Context, name string) (*models.Station, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrStationNotFound
	}

	stations, err := s.ListStations(ctx, name)
	if err != nil {
		return nil, err
	}
	if len(stations) == 0 {
		return nil, ErrStationNotFound
	}
	for i := range stations {
		if stations[i].Name == name {
			return &stations[i], nil
		}
	}
	return &stations[0], nil
}
