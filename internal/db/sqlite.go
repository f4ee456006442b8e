package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"lifeguard-backend/internal/models"

	_ "modernc.org/sqlite"
)

// SQLiteStore is the embedded store used for local development and tests.
// It mirrors PostgresStore query for query.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) the database file at path.
// ":memory:" gives a private in-memory database.
func OpenSQLite(path string) (*sql.DB, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("creating database dir: %w", err)
		}
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite database: %w", err)
	}
	// one connection: :memory: databases are per connection and SQLite
	// serializes writers anyway
	conn.SetMaxOpenConns(1)

	_, _ = conn.Exec("PRAGMA journal_mode=WAL")
	_, _ = conn.Exec("PRAGMA synchronous=NORMAL")
	return conn, nil
}

func NewSQLiteStore(conn *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: conn}
}

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, sqliteSchema); err != nil {
		return fmt.Errorf("applying schema: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// UpsertStation seeds reference data. Stations are maintained outside the
// service, so only tooling and tests call this.
func (s *SQLiteStore) UpsertStation(ctx context.Context, st models.Station) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO station (name, latitude, longitude) VALUES (?, ?, ?)
		 ON CONFLICT(name) DO UPDATE SET latitude = excluded.latitude, longitude = excluded.longitude`,
		st.Name, st.Latitude, st.Longitude)
	return err
}

// ListStations filters in Go: SQLite's lower() folds ASCII only, and station
// names carry accents.
func (s *SQLiteStore) ListStations(ctx context.Context, search string) ([]models.Station, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name, latitude, longitude FROM station ORDER BY rowid`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	term := strings.ToLower(search)
	stations := []models.Station{}
	for rows.Next() {
		var st models.Station
		if err := rows.Scan(&st.Name, &st.Latitude, &st.Longitude); err != nil {
			return nil, err
		}
		if term != "" && !strings.Contains(strings.ToLower(st.Name), term) {
			continue
		}
		stations = append(stations, st)
	}
	return stations, rows.Err()
}

func (s *SQLiteStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	var created int64
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, email, password, created_at FROM users WHERE email = ?`, email,
	).Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	u.CreatedAt = time.UnixMilli(created).UTC()
	return &u, nil
}

func (s *SQLiteStore) CreateUser(ctx context.Context, u *models.User) error {
	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO users (name, email, password, created_at) VALUES (?, ?, ?, ?)`,
		u.Name, u.Email, u.PasswordHash, now.UnixMilli())
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return ErrDuplicate
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	u.ID = int(id)
	u.CreatedAt = time.UnixMilli(now.UnixMilli()).UTC()
	return nil
}

func (s *SQLiteStore) ListUsers(ctx context.Context) ([]models.User, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, email, created_at FROM users ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		var u models.User
		var created int64
		if err := rows.Scan(&u.ID, &u.Name, &u.Email, &created); err != nil {
			return nil, err
		}
		u.CreatedAt = time.UnixMilli(created).UTC()
		users = append(users, u)
	}
	return users, rows.Err()
}

func (s *SQLiteStore) InsertPhotoLog(ctx context.Context, p *models.PhotoLog) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO photo_logs (id, station_name, photo_url, object_key, timestamp) VALUES (?, ?, ?, ?, ?)`,
		p.ID, p.StationName, p.PhotoURL, p.ObjectKey, p.Timestamp.UnixMilli())
	return err
}

func (s *SQLiteStore) ListPhotoLogs(ctx context.Context, station string, limit int) ([]models.PhotoLog, error) {
	query := `SELECT id, station_name, photo_url, object_key, timestamp FROM photo_logs`
	var args []interface{}
	if station != "" {
		query += ` WHERE station_name = ?`
		args = append(args, station)
	}
	query += ` ORDER BY timestamp DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []models.PhotoLog
	for rows.Next() {
		var p models.PhotoLog
		var ts int64
		if err := rows.Scan(&p.ID, &p.StationName, &p.PhotoURL, &p.ObjectKey, &ts); err != nil {
			return nil, err
		}
		p.Timestamp = time.UnixMilli(ts).UTC()
		logs = append(logs, p)
	}
	return logs, rows.Err()
}

func (s *SQLiteStore) InsertPrevention(ctx context.Context, e *models.PreventionEntry) error {
	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO prevention (station_name, latitude, longitude, morning_prev, afternoon_prev, morning_jellyfish, afternoon_jellyfish, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.StationName, e.Latitude, e.Longitude,
		e.MorningPrev, e.AfternoonPrev, e.MorningJellyfish, e.AfternoonJellyfish,
		now.UnixMilli())
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	e.ID = int(id)
	e.CreatedAt = time.UnixMilli(now.UnixMilli()).UTC()
	return nil
}

func (s *SQLiteStore) ListPrevention(ctx context.Context, from, to time.Time) ([]models.PreventionEntry, error) {
	query := `
		SELECT id, station_name, latitude, longitude, morning_prev, afternoon_prev,
			morning_jellyfish, afternoon_jellyfish, created_at
		FROM prevention
	`
	var conds []string
	var args []interface{}
	if !from.IsZero() {
		conds = append(conds, "created_at >= ?")
		args = append(args, from.UnixMilli())
	}
	if !to.IsZero() {
		conds = append(conds, "created_at < ?")
		args = append(args, to.UnixMilli())
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY created_at, id"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []models.PreventionEntry
	for rows.Next() {
		var e models.PreventionEntry
		var created int64
		if err := rows.Scan(&e.ID, &e.StationName, &e.Latitude, &e.Longitude,
			&e.MorningPrev, &e.AfternoonPrev, &e.MorningJellyfish, &e.AfternoonJellyfish, &created); err != nil {
			return nil, err
		}
		e.CreatedAt = time.UnixMilli(created).UTC()
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
