package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"lifeguard-backend/internal/geo"
	"lifeguard-backend/internal/metrics"
	"lifeguard-backend/internal/models"
	"lifeguard-backend/internal/storage"

	"github.com/google/uuid"
)

const (
	defaultContentType = "image/jpeg"
	defaultExtension   = "jpg"

	DefaultRecentLimit = 20
	MaxRecentLimit     = 100

	maxKeyAttempts = 3
)

// Photo is an image picked by the user, not yet uploaded
type Photo struct {
	Reader      io.Reader
	Size        int64
	FileName    string
	ContentType string
}

type CheckInRequest struct {
	SessionKey  string
	StationName string
	Locator     geo.Locator
	Image       *Photo
}

type CheckInConfig struct {
	ThresholdMeters    float64
	GeolocationTimeout time.Duration
	ResetDelay         time.Duration
}

type CheckInService struct {
	stations *StationService
	logs     PhotoLogStore
	objects  storage.ObjectStore
	notifier Notifier
	guard    *InFlightGuard
	clock    *keyClock
	cfg      CheckInConfig
	logger   *slog.Logger
	now      func() time.Time
}

// NewCheckInService builds the check-in workflow. notifier may be nil.
func NewCheckInService(stations *StationService, logs PhotoLogStore, objects storage.ObjectStore,
	notifier Notifier, cfg CheckInConfig, logger *slog.Logger) *CheckInService {
	return &CheckInService{
		stations: stations,
		logs:     logs,
		objects:  objects,
		notifier: notifier,
		guard:    NewInFlightGuard(),
		clock:    &keyClock{},
		cfg:      cfg,
		logger:   logger,
		now:      time.Now,
	}
}

// ResetDelay is how long clients keep the success state before clearing it
func (s *CheckInService) ResetDelay() time.Duration {
	return s.cfg.ResetDelay
}

// Proximity runs the gate for a station without uploading anything
func (s *CheckInService) Proximity(ctx context.Context, stationName string, loc geo.Locator) (*models.ProximityResponse, error) {
	st, err := s.stations.GetStation(ctx, stationName)
	if err != nil {
		return nil, err
	}
	decision, err := s.evaluate(ctx, st, loc)
	if err != nil {
		return nil, err
	}
	return &models.ProximityResponse{
		Station:   *st,
		Distance:  decision.Distance,
		Threshold: decision.Threshold,
		Admitted:  decision.Admitted,
	}, nil
}

// CheckIn gates, uploads and logs one photo. A request without an image is
// a no-op and returns (nil, nil).
//
// The object is uploaded before the row is inserted. If the insert fails the
// object stays in storage and a *PersistenceError names its key.
func (s *CheckInService) CheckIn(ctx context.Context, req CheckInRequest) (*models.PhotoLog, error) {
	if req.Image == nil {
		return nil, nil
	}

	release, ok := s.guard.Acquire(req.SessionKey)
	if !ok {
		metrics.CheckIns.WithLabelValues("busy").Inc()
		return nil, ErrCheckInBusy
	}
	defer release()

	st, err := s.stations.GetStation(ctx, req.StationName)
	if err != nil {
		return nil, err
	}

	decision, err := s.evaluate(ctx, st, req.Locator)
	if err != nil {
		metrics.CheckIns.WithLabelValues(gateOutcome(err)).Inc()
		return nil, err
	}
	if !decision.Admitted {
		metrics.CheckIns.WithLabelValues("rejected").Inc()
		return nil, &OutOfRangeError{Station: st.Name, Distance: decision.Distance, Threshold: decision.Threshold}
	}

	contentType := req.Image.ContentType
	if contentType == "" {
		contentType = defaultContentType
	}
	key, now, err := s.reserveKey(ctx, st.Name, PhotoExtension(req.Image.FileName, contentType))
	if err != nil {
		metrics.CheckIns.WithLabelValues("upload_failed").Inc()
		return nil, &UploadError{Key: key, Err: err}
	}

	start := time.Now()
	err = s.objects.Put(ctx, key, req.Image.Reader, req.Image.Size, contentType)
	metrics.UploadDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.CheckIns.WithLabelValues("upload_failed").Inc()
		return nil, &UploadError{Key: key, Err: err}
	}

	entry := &models.PhotoLog{
		ID:          uuid.NewString(),
		StationName: st.Name,
		PhotoURL:    s.objects.PublicURL(key),
		ObjectKey:   key,
		Timestamp:   now.UTC(),
	}
	if err := s.logs.InsertPhotoLog(ctx, entry); err != nil {
		metrics.CheckIns.WithLabelValues("persist_failed").Inc()
		s.logger.Error("photo uploaded but not logged", "key", key, "station", st.Name, "error", err)
		return nil, &PersistenceError{Key: key, Err: err}
	}

	metrics.CheckIns.WithLabelValues("logged").Inc()
	s.logger.Info("check-in logged",
		"station", st.Name,
		"key", key,
		"distance_m", fmt.Sprintf("%.1f", decision.Distance),
	)

	if s.notifier != nil {
		s.notifier.Broadcast(models.FeedEvent{
			Event:     "checkin",
			Station:   st.Name,
			Data:      entry,
			Timestamp: now.Unix(),
		})
	}
	return entry, nil
}

// Recent lists the latest check-ins, optionally for one station
func (s *CheckInService) Recent(ctx context.Context, station string, limit int) ([]models.PhotoLog, error) {
	if limit <= 0 {
		limit = DefaultRecentLimit
	}
	if limit > MaxRecentLimit {
		limit = MaxRecentLimit
	}
	logs, err := s.logs.ListPhotoLogs(ctx, station, limit)
	if err != nil {
		return nil, &DataAccessError{Op: "list check-ins", Err: err}
	}
	if logs == nil {
		logs = []models.PhotoLog{}
	}
	return logs, nil
}

// evaluate runs one fresh gate cycle. Gates are never shared between attempts.
func (s *CheckInService) evaluate(ctx context.Context, st *models.Station, loc geo.Locator) (geo.Decision, error) {
	gate := geo.NewGate(s.cfg.ThresholdMeters, s.cfg.GeolocationTimeout)
	target := geo.Coordinates{Latitude: st.Latitude, Longitude: st.Longitude}

	decision, err := gate.Check(ctx, loc, target)
	s.logger.Debug("gate settled", "station", st.Name, "state", gate.State().String())
	if err != nil {
		metrics.GateDecisions.WithLabelValues(gateOutcome(err)).Inc()
		return decision, err
	}
	if decision.Admitted {
		metrics.GateDecisions.WithLabelValues("admitted").Inc()
	} else {
		metrics.GateDecisions.WithLabelValues("rejected").Inc()
	}
	return decision, nil
}

// reserveKey picks an object key no earlier check-in holds. Stamps are
// strictly increasing within the process and a key already present in the
// object store moves on to the next millisecond.
func (s *CheckInService) reserveKey(ctx context.Context, station, ext string) (string, time.Time, error) {
	var key string
	for i := 0; i < maxKeyAttempts; i++ {
		at := s.clock.next(s.now())
		key = ObjectKey(station, at, ext)
		taken, err := s.objects.Exists(ctx, key)
		if err != nil {
			return key, time.Time{}, err
		}
		if !taken {
			return key, at, nil
		}
		s.logger.Warn("object key taken, advancing", "key", key)
	}
	return key, time.Time{}, storage.ErrObjectExists
}

// keyClock hands out millisecond stamps that never repeat
type keyClock struct {
	mu   sync.Mutex
	last int64
}

func (k *keyClock) next(now time.Time) time.Time {
	k.mu.Lock()
	defer k.mu.Unlock()
	ms := now.UnixMilli()
	if ms <= k.last {
		ms = k.last + 1
	}
	k.last = ms
	return time.UnixMilli(ms)
}

func gateOutcome(err error) string {
	switch {
	case errors.Is(err, geo.ErrPermissionDenied):
		return "denied"
	case errors.Is(err, geo.ErrPositionTimeout):
		return "timed_out"
	case errors.Is(err, geo.ErrInvalidPosition):
		return "invalid_position"
	}
	return "error"
}

// SanitizeStationName lowercases name and replaces every character outside
// [a-z0-9] with one underscore.
func SanitizeStationName(name string) string {
	return strings.Map(func(r rune) rune {
		if r >= 'a' && r <= 'z' || r >= '0' && r <= '9' {
			return r
		}
		return '_'
	}, strings.ToLower(name))
}

// ObjectKey names an uploaded photo: <station>_<unix millis>.<ext>
func ObjectKey(station string, at time.Time, ext string) string {
	return fmt.Sprintf("%s_%d.%s", SanitizeStationName(station), at.UnixMilli(), ext)
}

// PhotoExtension takes the extension from the file name, else the content
// type subtype, else jpg.
func PhotoExtension(fileName, contentType string) string {
	if ext := strings.TrimPrefix(filepath.Ext(fileName), "."); ext != "" {
		return strings.ToLower(ext)
	}
	if i := strings.Index(contentType, "/"); i >= 0 {
		sub := contentType[i+1:]
		if j := strings.IndexAny(sub, ";+"); j >= 0 {
			sub = sub[:j]
		}
		if sub = strings.TrimSpace(sub); sub != "" {
			return strings.ToLower(sub)
		}
	}
	return defaultExtension
}

// InFlightGuard allows one outstanding check-in per session key
type InFlightGuard struct {
	mu     sync.Mutex
	active map[string]struct{}
}

func NewInFlightGuard() *InFlightGuard {
	return &InFlightGuard{active: make(map[string]struct{})}
}

// Acquire marks key busy. ok is false when key already has an attempt
// running; otherwise release must be called once the attempt ends.
func (g *InFlightGuard) Acquire(key string) (release func(), ok bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, busy := g.active[key]; busy {
		return nil, false
	}
	g.active[key] = struct{}{}

	var once sync.Once
	return func() {
		once.Do(func() {
			g.mu.Lock()
			delete(g.active, key)
			g.mu.Unlock()
		})
	}, true
}
