package cache

import (
	"context"
	"strings"
	"time"

	"lifeguard-backend/internal/models"
)

const stationKeyPrefix = "stations:search:"

// StationCache keeps station listings keyed by normalized search term.
// Stations are reference data, so entries only expire by TTL.
type StationCache struct {
	repo Repository
	ttl  time.Duration
}

func NewStationCache(repo Repository, ttl time.Duration) *StationCache {
	return &StationCache{repo: repo, ttl: ttl}
}

func stationKey(search string) string {
	return stationKeyPrefix + strings.ToLower(strings.TrimSpace(search))
}

func (c *StationCache) Get(ctx context.Context, search string) ([]models.Station, bool, error) {
	var stations []models.Station
	found, err := c.repo.GetJSON(ctx, stationKey(search), &stations)
	if err != nil || !found {
		return nil, false, err
	}
	return stations, true, nil
}

func (c *StationCache) Set(ctx context.Context, search string, stations []models.Station) error {
	return c.repo.SetJSON(ctx, stationKey(search), stations, c.ttl)
}
