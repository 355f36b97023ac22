package database

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// Database handles SQLite database operations
type Database struct {
	db *sql.DB
}

// CameraRecord represents a camera stored in the database
type CameraRecord struct {
	ID        string
	Host      string
	Username  string
	Password  string
	PanCh     int
	TiltCh    int
	Pan       int
	Tilt      int
	CreatedAt time.Time
}

// EventRecord represents a detection event stored in the database
type EventRecord struct {
	ID         string
	CameraID   string
	Timestamp  time.Time
	ImagePath  string
	Confidence float64
}

// New creates a new database connection
func New(dbPath string) (*Database, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Enable WAL mode for better concurrent access
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return &Database{db: db}, nil
}

// Close closes the database connection
func (d *Database) Close() error {
	return d.db.Close()
}

// Migrate runs database migrations
func (d *Database) Migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS cameras (
			id TEXT PRIMARY KEY,
			host TEXT NOT NULL,
			username TEXT NOT NULL,
			password TEXT NOT NULL,
			pan_ch INTEGER DEFAULT 1,
			tilt_ch INTEGER DEFAULT 2,
			pan INTEGER DEFAULT 90,
			tilt INTEGER DEFAULT 90,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS events (
			id TEXT PRIMARY KEY,
			camera_id TEXT NOT NULL,
			timestamp DATETIME NOT NULL,
			image_path TEXT,
			confidence REAL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_events_time ON events(timestamp DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_events_camera_time ON events(camera_id, timestamp DESC)`,
	}

	for _, migration := range migrations {
		if _, err := d.db.Exec(migration); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}
	return nil
}

// SaveCamera saves or updates a camera
func (d *Database) SaveCamera(cam *CameraRecord) error {
	query := `INSERT INTO cameras (id, host, username, password, pan_ch, tilt_ch, pan, tilt, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			host = excluded.host,
			username = excluded.username,
			password = excluded.password,
			pan_ch = excluded.pan_ch,
			tilt_ch = excluded.tilt_ch,
			pan = excluded.pan,
			tilt = excluded.tilt`

	_, err := d.db.Exec(query, cam.ID, cam.Host, cam.Username, cam.Password,
		cam.PanCh, cam.TiltCh, cam.Pan, cam.Tilt, cam.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to save camera: %w", err)
	}
	return nil
}

// GetCamera retrieves a camera by ID
func (d *Database) GetCamera(id string) (*CameraRecord, error) {
	query := `SELECT id, host, username, password, pan_ch, tilt_ch, pan, tilt, created_at
		FROM cameras WHERE id = ?`

	var cam CameraRecord
	err := d.db.QueryRow(query, id).Scan(&cam.ID, &cam.Host, &cam.Username, &cam.Password,
		&cam.PanCh, &cam.TiltCh, &cam.Pan, &cam.Tilt, &cam.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get camera: %w", err)
	}
	return &cam, nil
}

// ListCameras returns all cameras
func (d *Database) ListCameras() ([]*CameraRecord, error) {
	query := `SELECT id, host, username, password, pan_ch, tilt_ch, pan, tilt, created_at
		FROM cameras ORDER BY created_at`

	rows, err := d.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to list cameras: %w", err)
	}
	defer rows.Close()

	var cameras []*CameraRecord
	for rows.Next() {
		var cam CameraRecord
		if err := rows.Scan(&cam.ID, &cam.Host, &cam.Username, &cam.Password,
			&cam.PanCh, &cam.TiltCh, &cam.Pan, &cam.Tilt, &cam.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan camera: %w", err)
		}
		cameras = append(cameras, &cam)
	}
	return cameras, rows.Err()
}

// DeleteCamera deletes a camera by ID
func (d *Database) DeleteCamera(id string) error {
	_, err := d.db.Exec("DELETE FROM cameras WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete camera: %w", err)
	}
	return nil
}

// UpdateCameraAngles updates only the pan/tilt angles of a camera
func (d *Database) UpdateCameraAngles(id string, pan, tilt int) error {
	_, err := d.db.Exec("UPDATE cameras SET pan = ?, tilt = ? WHERE id = ?", pan, tilt, id)
	if err != nil {
		return fmt.Errorf("failed to update camera angles: %w", err)
	}
	return nil
}

// SaveEvent saves a detection event
func (d *Database) SaveEvent(event *EventRecord) error {
	query := `INSERT INTO events (id, camera_id, timestamp, image_path, confidence)
		VALUES (?, ?, ?, ?, ?)`

	_, err := d.db.Exec(query, event.ID, event.CameraID, event.Timestamp,
		event.ImagePath, event.Confidence)
	if err != nil {
		return fmt.Errorf("failed to save event: %w", err)
	}
	return nil
}

// ListEvents returns all events, newest first
func (d *Database) ListEvents() ([]*EventRecord, error) {
	query := `SELECT id, camera_id, timestamp, image_path, confidence
		FROM events ORDER BY timestamp DESC`

	rows, err := d.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	defer rows.Close()

	var events []*EventRecord
	for rows.Next() {
		var event EventRecord
		if err := rows.Scan(&event.ID, &event.CameraID, &event.Timestamp,
			&event.ImagePath, &event.Confidence); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		events = append(events, &event)
	}
	return events, rows.Err()
}
