package services

import (
	"context"
	"time"

	"lifeguard-backend/internal/models"
)

// Store interfaces are satisfied by db.PostgresStore and db.SQLiteStore

type StationStore interface {
	ListStations(ctx context.Context, search string) ([]models.Station, error)
}

type UserStore interface {
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	CreateUser(ctx context.Context, u *models.User) error
	ListUsers(ctx context.Context) ([]models.User, error)
}

type PhotoLogStore interface {
	InsertPhotoLog(ctx context.Context, p *models.PhotoLog) error
	ListPhotoLogs(ctx context.Context, station string, limit int) ([]models.PhotoLog, error)
}

type PreventionStore interface {
	InsertPrevention(ctx context.Context, e *models.PreventionEntry) error
	ListPrevention(ctx context.Context, from, to time.Time) ([]models.PreventionEntry, error)
}

// StationCache is an optional read-through cache for station listings
type StationCache interface {
	Get(ctx context.Context, search string) ([]models.Station, bool, error)
	Set(ctx context.Context, search string, stations []models.Station) error
}

// Notifier receives events for the live feed
type Notifier interface {
	Broadcast(event models.FeedEvent)
}
