package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/tazhate/eventcal/internal/domain"

	_ "github.com/mattn/go-sqlite3"
)

type Storage struct {
	db *sql.DB
}

func New(dbPath string) (*Storage, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping db: %w", err)
	}

	s := &Storage{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return s, nil
}

func (s *Storage) Close() error {
	return s.db.Close()
}

func (s *Storage) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS events (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			event_date TEXT NOT NULL,
			description TEXT NOT NULL,
			color TEXT DEFAULT '#4361ee',
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_events_date ON events(event_date)`,
		// CalDAV mirror
		`ALTER TABLE events ADD COLUMN caldav_uid TEXT DEFAULT ''`,
	}

	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			// Ignore "duplicate column" errors for ALTER TABLE
			if !strings.Contains(err.Error(), "duplicate column") {
				return fmt.Errorf("exec migration: %w", err)
			}
		}
	}
	return nil
}

// parseID converts an API id into a row id. Ids that cannot be rows are
// reported as not found.
func parseID(id string) (int64, bool) {
	n, err := strconv.ParseInt(id, 10, 64)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

const eventColumns = `id, event_date, description, COALESCE(color, ''), created_at`

func scanEvent(row interface{ Scan(...any) error }) (*domain.Event, error) {
	var (
		id int64
		e  domain.Event
	)
	if err := row.Scan(&id, &e.DateKey, &e.Description, &e.Color, &e.CreatedAt); err != nil {
		return nil, err
	}
	e.ID = strconv.FormatInt(id, 10)
	e.Color = domain.NormalizeColor(e.Color)
	return &e, nil
}

func (s *Storage) queryEvents(query string, args ...any) ([]domain.Event, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events := []domain.Event{}
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, *e)
	}
	return events, rows.Err()
}

// === Events ===

// CreateEvent inserts e and fills in its id and creation time
func (s *Storage) CreateEvent(e *domain.Event) error {
	now := time.Now().UTC().Truncate(time.Second)
	res, err := s.db.Exec(
		`INSERT INTO events (event_date, description, color, created_at) VALUES (?, ?, ?, ?)`,
		e.DateKey, e.Description, domain.NormalizeColor(e.Color), now,
	)
	if err != nil {
		return err
	}
	id, _ := res.LastInsertId()
	e.ID = strconv.FormatInt(id, 10)
	e.Color = domain.NormalizeColor(e.Color)
	e.CreatedAt = now
	return nil
}

// GetEvent returns an event by id, or nil if there is none
func (s *Storage) GetEvent(id string) (*domain.Event, error) {
	n, ok := parseID(id)
	if !ok {
		return nil, nil
	}
	e, err := scanEvent(s.db.QueryRow(`SELECT `+eventColumns+` FROM events WHERE id = ?`, n))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return e, err
}

// ListEvents returns all events ordered by date, then creation
func (s *Storage) ListEvents() ([]domain.Event, error) {
	return s.queryEvents(`SELECT ` + eventColumns + ` FROM events ORDER BY event_date, id`)
}

// ListEventsByDate returns one day's events in creation order
func (s *Storage) ListEventsByDate(dateKey string) ([]domain.Event, error) {
	return s.queryEvents(`SELECT `+eventColumns+` FROM events WHERE event_date = ? ORDER BY id`, dateKey)
}

// ListEventsBetween returns events with from <= date <= to
func (s *Storage) ListEventsBetween(from, to string) ([]domain.Event, error) {
	return s.queryEvents(
		`SELECT `+eventColumns+` FROM events WHERE event_date BETWEEN ? AND ? ORDER BY event_date, id`,
		from, to,
	)
}

// UpdateEvent rewrites the editable fields. It reports false if the event
// does not exist.
func (s *Storage) UpdateEvent(e *domain.Event) (bool, error) {
	n, ok := parseID(e.ID)
	if !ok {
		return false, nil
	}
	res, err := s.db.Exec(
		`UPDATE events SET event_date = ?, description = ?, color = ? WHERE id = ?`,
		e.DateKey, e.Description, domain.NormalizeColor(e.Color), n,
	)
	if err != nil {
		return false, err
	}
	affected, _ := res.RowsAffected()
	return affected > 0, nil
}

// DeleteEvent removes an event. It reports false if nothing was deleted.
func (s *Storage) DeleteEvent(id string) (bool, error) {
	n, ok := parseID(id)
	if !ok {
		return false, nil
	}
	res, err := s.db.Exec(`DELETE FROM events WHERE id = ?`, n)
	if err != nil {
		return false, err
	}
	affected, _ := res.RowsAffected()
	return affected > 0, nil
}

// === CalDAV mirror ===

// SetEventCalDAVUID records the UID of the mirrored CalDAV object
func (s *Storage) SetEventCalDAVUID(id, uid string) error {
	n, ok := parseID(id)
	if !ok {
		return fmt.Errorf("invalid event id %q", id)
	}
	_, err := s.db.Exec(`UPDATE events SET caldav_uid = ? WHERE id = ?`, uid, n)
	return err
}

// GetEventCalDAVUID returns the mirrored UID, or "" if the event was never
// mirrored
func (s *Storage) GetEventCalDAVUID(id string) (string, error) {
	n, ok := parseID(id)
	if !ok {
		return "", nil
	}
	var uid string
	err := s.db.QueryRow(`SELECT COALESCE(caldav_uid, '') FROM events WHERE id = ?`, n).Scan(&uid)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return uid, err
}
