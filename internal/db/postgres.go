package db

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"lifeguard-backend/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const uniqueViolation = "23505"

// PostgresStore implements every store the services need on one pool
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, postgresSchema); err != nil {
		return fmt.Errorf("applying schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

// UpsertStation seeds reference data; see SQLiteStore.UpsertStation
func (s *PostgresStore) UpsertStation(ctx context.Context, st models.Station) error {
	query := `
		INSERT INTO station (name, latitude, longitude) VALUES ($1, $2, $3)
		ON CONFLICT (name) DO UPDATE SET latitude = EXCLUDED.latitude, longitude = EXCLUDED.longitude
	`
	_, err := s.pool.Exec(ctx, query, st.Name, st.Latitude, st.Longitude)
	return err
}

func (s *PostgresStore) ListStations(ctx context.Context, search string) ([]models.Station, error) {
	query := `SELECT name, latitude, longitude FROM station`
	var args []interface{}
	if search != "" {
		query += ` WHERE name ILIKE $1`
		args = append(args, "%"+escapeLike(search)+"%")
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	stations := []models.Station{}
	for rows.Next() {
		var st models.Station
		if err := rows.Scan(&st.Name, &st.Latitude, &st.Longitude); err != nil {
			return nil, err
		}
		stations = append(stations, st)
	}
	return stations, rows.Err()
}

func (s *PostgresStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	query := `SELECT id, name, email, password, created_at FROM users WHERE email = $1`
	err := s.pool.QueryRow(ctx, query, email).Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *PostgresStore) CreateUser(ctx context.Context, u *models.User) error {
	query := `INSERT INTO users (name, email, password) VALUES ($1, $2, $3) RETURNING id, created_at`
	err := s.pool.QueryRow(ctx, query, u.Name, u.Email, u.PasswordHash).Scan(&u.ID, &u.CreatedAt)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return ErrDuplicate
	}
	return err
}

func (s *PostgresStore) ListUsers(ctx context.Context) ([]models.User, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, name, email, created_at FROM users ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		var u models.User
		if err := rows.Scan(&u.ID, &u.Name, &u.Email, &u.CreatedAt); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (s *PostgresStore) InsertPhotoLog(ctx context.Context, p *models.PhotoLog) error {
	query := `INSERT INTO photo_logs (id, station_name, photo_url, object_key, timestamp) VALUES ($1, $2, $3, $4, $5)`
	_, err := s.pool.Exec(ctx, query, p.ID, p.StationName, p.PhotoURL, p.ObjectKey, p.Timestamp)
	return err
}

func (s *PostgresStore) ListPhotoLogs(ctx context.Context, station string, limit int) ([]models.PhotoLog, error) {
	query := `SELECT id, station_name, photo_url, object_key, timestamp FROM photo_logs`
	args := []interface{}{}
	if station != "" {
		args = append(args, station)
		query += ` WHERE station_name = $1`
	}
	args = append(args, limit)
	query += fmt.Sprintf(` ORDER BY timestamp DESC LIMIT $%d`, len(args))

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []models.PhotoLog
	for rows.Next() {
		var p models.PhotoLog
		if err := rows.Scan(&p.ID, &p.StationName, &p.PhotoURL, &p.ObjectKey, &p.Timestamp); err != nil {
			return nil, err
		}
		logs = append(logs, p)
	}
	return logs, rows.Err()
}

func (s *PostgresStore) InsertPrevention(ctx context.Context, e *models.PreventionEntry) error {
	query := `
		INSERT INTO prevention (station_name, latitude, longitude, morning_prev, afternoon_prev, morning_jellyfish, afternoon_jellyfish)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at
	`
	return s.pool.QueryRow(ctx, query,
		e.StationName, e.Latitude, e.Longitude,
		e.MorningPrev, e.AfternoonPrev, e.MorningJellyfish, e.AfternoonJellyfish,
	).Scan(&e.ID, &e.CreatedAt)
}

func (s *PostgresStore) ListPrevention(ctx context.Context, from, to time.Time) ([]models.PreventionEntry, error) {
	query := `
		SELECT id, station_name, latitude, longitude, morning_prev, afternoon_prev,
			morning_jellyfish, afternoon_jellyfish, created_at
		FROM prevention
	`
	var conds []string
	var args []interface{}
	if !from.IsZero() {
		args = append(args, from)
		conds = append(conds, fmt.Sprintf("created_at >= $%d", len(args)))
	}
	if !to.IsZero() {
		args = append(args, to)
		conds = append(conds, fmt.Sprintf("created_at < $%d", len(args)))
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY created_at"

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []models.PreventionEntry
	for rows.Next() {
		var e models.PreventionEntry
		if err := rows.Scan(&e.ID, &e.StationName, &e.Latitude, &e.Longitude,
			&e.MorningPrev, &e.AfternoonPrev, &e.MorningJellyfish, &e.AfternoonJellyfish, &e.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// escapeLike makes a search term match literally inside a LIKE pattern
func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
