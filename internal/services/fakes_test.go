package services

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"lifeguard-backend/internal/db"
	"lifeguard-backend/internal/geo"
	"lifeguard-backend/internal/models"
	"lifeguard-backend/internal/storage"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// metersPerDegreeLat matches geo.Distance along a meridian
const metersPerDegreeLat = 6371000 * 3.141592653589793 / 180

func northOf(lat, lon, meters float64) geo.Coordinates {
	return geo.Coordinates{Latitude: lat + meters/metersPerDegreeLat, Longitude: lon}
}

type memoryStore struct {
	mu         sync.Mutex
	stations   []models.Station
	users      map[string]*models.User
	nextUserID int
	photoLogs  []models.PhotoLog
	prevention []models.PreventionEntry

	stationsErr  error
	photoLogErr  error
	preventErr   error
	stationCalls int
}

func newMemoryStore(stations ...models.Station) *memoryStore {
	return &memoryStore{stations: stations, users: map[string]*models.User{}}
}

func (m *memoryStore) ListStations(ctx context.Context, search string) ([]models.Station, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stationCalls++
	if m.stationsErr != nil {
		return nil, m.stationsErr
	}
	out := []models.Station{}
	for _, st := range m.stations {
		if search == "" || strings.Contains(strings.ToLower(st.Name), strings.ToLower(search)) {
			out = append(out, st)
		}
	}
	return out, nil
}

func (m *memoryStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[email]
	if !ok {
		return nil, db.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *memoryStore) CreateUser(ctx context.Context, u *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[u.Email]; ok {
		return db.ErrDuplicate
	}
	m.nextUserID++
	u.ID = m.nextUserID
	u.CreatedAt = time.Now()
	cp := *u
	m.users[u.Email] = &cp
	return nil
}

func (m *memoryStore) ListUsers(ctx context.Context) ([]models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var users []models.User
	for _, u := range m.users {
		users = append(users, *u)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	return users, nil
}

func (m *memoryStore) InsertPhotoLog(ctx context.Context, p *models.PhotoLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.photoLogErr != nil {
		return m.photoLogErr
	}
	m.photoLogs = append(m.photoLogs, *p)
	return nil
}

func (m *memoryStore) ListPhotoLogs(ctx context.Context, station string, limit int) ([]models.PhotoLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.PhotoLog
	for i := len(m.photoLogs) - 1; i >= 0 && len(out) < limit; i-- {
		if station == "" || m.photoLogs[i].StationName == station {
			out = append(out, m.photoLogs[i])
		}
	}
	return out, nil
}

func (m *memoryStore) InsertPrevention(ctx context.Context, e *models.PreventionEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.preventErr != nil {
		return m.preventErr
	}
	e.ID = len(m.prevention) + 1
	e.CreatedAt = time.Now()
	m.prevention = append(m.prevention, *e)
	return nil
}

func (m *memoryStore) ListPrevention(ctx context.Context, from, to time.Time) ([]models.PreventionEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.PreventionEntry(nil), m.prevention...), nil
}

type memoryObjects struct {
	mu      sync.Mutex
	objects map[string][]byte
	types   map[string]string
	putErr  error
}

func newMemoryObjects() *memoryObjects {
	return &memoryObjects{objects: map[string][]byte{}, types: map[string]string{}}
}

func (o *memoryObjects) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	if o.putErr != nil {
		return o.putErr
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, r); err != nil {
		return err
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	if _, ok := o.objects[key]; ok {
		return storage.ErrObjectExists
	}
	o.objects[key] = buf.Bytes()
	o.types[key] = contentType
	return nil
}

func (o *memoryObjects) PublicURL(key string) string {
	return "https://cdn.example.com/photos/" + key
}

func (o *memoryObjects) Exists(ctx context.Context, key string) (bool, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	_, ok := o.objects[key]
	return ok, nil
}

func (o *memoryObjects) count() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.objects)
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []models.FeedEvent
}

func (n *recordingNotifier) Broadcast(event models.FeedEvent) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
}

func (n *recordingNotifier) all() []models.FeedEvent {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]models.FeedEvent(nil), n.events...)
}

var errStoreDown = errors.New("connection refused")
