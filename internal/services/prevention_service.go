package services

import (
	"context"
	"log/slog"
	"time"

	"lifeguard-backend/internal/metrics"
	"lifeguard-backend/internal/models"
)

type PreventionService struct {
	store    PreventionStore
	notifier Notifier
	logger   *slog.Logger
}

// NewPreventionService builds the prevention log workflow. notifier may be nil.
func NewPreventionService(store PreventionStore, notifier Notifier, logger *slog.Logger) *PreventionService {
	return &PreventionService{store: store, notifier: notifier, logger: logger}
}

// Submit stores one prevention tally for the station the user selected.
// The four counts are free text. Submitting twice stores two rows.
func (s *PreventionService) Submit(ctx context.Context, sub models.PreventionSubmission) (*models.PreventionEntry, error) {
	if sub.Station == nil {
		metrics.PreventionSubmissions.WithLabelValues("no_station").Inc()
		return nil, ErrNoStationSelected
	}
	st := sub.Station
	if st.Name == "" || st.Latitude == 0 || st.Longitude == 0 {
		metrics.PreventionSubmissions.WithLabelValues("incomplete_station").Inc()
		return nil, ErrIncompleteStation
	}

	entry := &models.PreventionEntry{
		StationName:        st.Name,
		Latitude:           st.Latitude,
		Longitude:          st.Longitude,
		MorningPrev:        sub.MorningPrev,
		AfternoonPrev:      sub.AfternoonPrev,
		MorningJellyfish:   sub.MorningJellyfish,
		AfternoonJellyfish: sub.AfternoonJellyfish,
	}
	if err := s.store.InsertPrevention(ctx, entry); err != nil {
		metrics.PreventionSubmissions.WithLabelValues("persist_failed").Inc()
		return nil, &PersistenceError{Err: err}
	}

	metrics.PreventionSubmissions.WithLabelValues("ok").Inc()
	s.logger.Info("prevention logged", "station", entry.StationName, "id", entry.ID)

	if s.notifier != nil {
		s.notifier.Broadcast(models.FeedEvent{
			Event:     "prevention",
			Station:   entry.StationName,
			Data:      entry,
			Timestamp: time.Now().Unix(),
		})
	}
	return entry, nil
}

// List returns entries created in [from, to). Zero bounds are open.
func (s *PreventionService) List(ctx context.Context, from, to time.Time) ([]models.PreventionEntry, error) {
	entries, err := s.store.ListPrevention(ctx, from, to)
	if err != nil {
		return nil, &DataAccessError{Op: "list prevention", Err: err}
	}
	return entries, nil
}
