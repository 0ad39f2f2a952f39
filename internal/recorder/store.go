package recorder

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"solaredge-collector/internal/poller"
)

const schema = `
CREATE TABLE IF NOT EXISTS devices (
	device_id    TEXT PRIMARY KEY,
	gateway_id   TEXT NOT NULL,
	kind         TEXT NOT NULL,
	unit_id      INTEGER NOT NULL,
	model_id     INTEGER NOT NULL,
	manufacturer TEXT,
	model        TEXT,
	version      TEXT,
	serial       TEXT,
	first_seen   TEXT NOT NULL,
	last_seen    TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS readings (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	ts         TEXT NOT NULL,
	gateway_id TEXT NOT NULL,
	device_id  TEXT NOT NULL,
	field      TEXT NOT NULL,
	value      REAL,
	text       TEXT,
	available  INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_readings_device_ts ON readings(device_id, ts);
CREATE INDEX IF NOT EXISTS idx_readings_field ON readings(device_id, field, ts);

CREATE TABLE IF NOT EXISTS health_events (
	id        INTEGER PRIMARY KEY AUTOINCREMENT,
	ts        TEXT NOT NULL,
	device_id TEXT NOT NULL,
	status    TEXT NOT NULL,
	failures  INTEGER NOT NULL,
	error     TEXT
);
`

// Store is the SQLite persistence layer.
type Store struct {
	db *sql.DB
}

// OpenStore opens (creating if needed) the SQLite database and applies the
// schema.
func OpenStore(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	// The writer goroutine is the only writer; a single connection keeps
	// SQLite's locking out of the picture.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error { return s.db.Close() }

// InsertReading appends one field reading.
func (s *Store) InsertReading(r Reading) error {
	var value any
	var text any
	if r.Available {
		if r.Text != "" {
			text = r.Text
		} else {
			value = r.Value
		}
	}
	_, err := s.db.Exec(
		`INSERT INTO readings (ts, gateway_id, device_id, field, value, text, available)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		r.Timestamp.UTC().Format(time.RFC3339Nano),
		r.GatewayID, r.DeviceID, r.Field, value, text, boolToInt(r.Available),
	)
	return err
}

// UpsertDevice records a discovered device, refreshing last_seen on
// rediscovery.
func (s *Store) UpsertDevice(ref poller.DeviceRef) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	_, err := s.db.Exec(
		`INSERT INTO devices
		 (device_id, gateway_id, kind, unit_id, model_id, manufacturer, model, version, serial, first_seen, last_seen)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(device_id) DO UPDATE SET
		   unit_id = excluded.unit_id,
		   model_id = excluded.model_id,
		   version = excluded.version,
		   last_seen = excluded.last_seen`,
		ref.ID(), ref.GatewayID, ref.Kind.String(), ref.UnitID, ref.ModelID,
		ref.Manufacturer, ref.Model, ref.Version, ref.Serial, now, now,
	)
	return err
}

// InsertHealthEvent appends one health transition.
func (s *Store) InsertHealthEvent(ev poller.HealthEvent) error {
	var errText any
	if ev.Err != nil {
		errText = ev.Err.Error()
	}
	_, err := s.db.Exec(
		`INSERT INTO health_events (ts, device_id, status, failures, error)
		 VALUES (?, ?, ?, ?, ?)`,
		ev.At.UTC().Format(time.RFC3339Nano),
		ev.Device.ID(), ev.Status.String(), ev.Failures, errText,
	)
	return err
}

// DeviceRow is one row of the devices inventory.
type DeviceRow struct {
	DeviceID     string `json:"device_id"`
	GatewayID    string `json:"gateway_id"`
	Kind         string `json:"kind"`
	UnitID       int    `json:"unit_id"`
	ModelID      int    `json:"model_id"`
	Manufacturer string `json:"manufacturer"`
	Model        string `json:"model"`
	Version      string `json:"version"`
	Serial       string `json:"serial"`
	LastSeen     string `json:"last_seen"`
}

// ListDevices returns the recorded device inventory.
func (s *Store) ListDevices() ([]DeviceRow, error) {
	rows, err := s.db.Query(
		`SELECT device_id, gateway_id, kind, unit_id, model_id,
		        COALESCE(manufacturer, ''), COALESCE(model, ''),
		        COALESCE(version, ''), COALESCE(serial, ''), last_seen
		 FROM devices ORDER BY gateway_id, unit_id, device_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []DeviceRow
	for rows.Next() {
		var d DeviceRow
		if err := rows.Scan(&d.DeviceID, &d.GatewayID, &d.Kind, &d.UnitID, &d.ModelID,
			&d.Manufacturer, &d.Model, &d.Version, &d.Serial, &d.LastSeen); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// LatestRow is the newest reading per field for one device.
type LatestRow struct {
	Field     string  `json:"field"`
	Value     float64 `json:"value"`
	Text      string  `json:"text,omitempty"`
	Available bool    `json:"available"`
	Timestamp string  `json:"timestamp"`
}

// LatestReadings returns the newest value of every recorded field for a
// device.
func (s *Store) LatestReadings(deviceID string) ([]LatestRow, error) {
	rows, err := s.db.Query(
		`SELECT field, COALESCE(value, 0), COALESCE(text, ''), available, MAX(ts)
		 FROM readings WHERE device_id = ?
		 GROUP BY field ORDER BY field`, deviceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []LatestRow
	for rows.Next() {
		var r LatestRow
		var avail int
		if err := rows.Scan(&r.Field, &r.Value, &r.Text, &avail, &r.Timestamp); err != nil {
			return nil, err
		}
		r.Available = avail != 0
		out = append(out, r)
	}
	return out, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
