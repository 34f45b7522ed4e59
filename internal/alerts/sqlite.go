package alerts

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/capermax-01/energy-waste-engine/internal/models"
)

// SQLiteStore persists alerts and recommendations to a local SQLite file.
// Rows carry the full record as JSON plus the columns queries filter on.
type SQLiteStore struct {
	db *sql.DB
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS alerts (
	id            TEXT PRIMARY KEY,
	device_id     TEXT NOT NULL,
	waste_type    TEXT NOT NULL,
	status        TEXT NOT NULL,
	last_detected TIMESTAMP NOT NULL,
	created_at    TIMESTAMP NOT NULL,
	body          TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_alerts_device_type ON alerts(device_id, waste_type, status);

CREATE TABLE IF NOT EXISTS recommendations (
	id         TEXT PRIMARY KEY,
	alert_id   TEXT NOT NULL,
	status     TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL,
	body       TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_recs_alert ON recommendations(alert_id);
`

// OpenSQLiteStore opens (creating if needed) the store at path. The
// connection pool is capped at one because SQLite serialises writers anyway.
func OpenSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite store: %w", err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init sqlite schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// PutAlert inserts or replaces an alert row.
func (s *SQLiteStore) PutAlert(ctx context.Context, alert *models.Alert) error {
	body, err := json.Marshal(alert)
	if err != nil {
		return fmt.Errorf("encode alert: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO alerts (id, device_id, waste_type, status, last_detected, created_at, body)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			last_detected = excluded.last_detected,
			body = excluded.body`,
		alert.ID, alert.DeviceID, string(alert.WasteType), string(alert.Status),
		alert.LastDetected, alert.CreatedAt, string(body))
	return err
}

// GetAlert fetches one alert by id.
func (s *SQLiteStore) GetAlert(ctx context.Context, id string) (*models.Alert, error) {
	row := s.db.QueryRowContext(ctx, `SELECT body FROM alerts WHERE id = ?`, id)
	return scanAlert(row)
}

// FindOpenAlert returns the latest non-resolved alert for the pair.
func (s *SQLiteStore) FindOpenAlert(ctx context.Context, deviceID string, wasteType models.WasteCategory) (*models.Alert, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT body FROM alerts
		WHERE device_id = ? AND waste_type = ? AND status != ?
		ORDER BY last_detected DESC LIMIT 1`,
		deviceID, string(wasteType), string(models.AlertResolved))
	return scanAlert(row)
}

// ListAlerts returns all alerts, newest first.
func (s *SQLiteStore) ListAlerts(ctx context.Context) ([]*models.Alert, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT body FROM alerts ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.Alert
	for rows.Next() {
		var body string
		if err := rows.Scan(&body); err != nil {
			return nil, err
		}
		var a models.Alert
		if err := json.Unmarshal([]byte(body), &a); err != nil {
			return nil, fmt.Errorf("decode alert: %w", err)
		}
		out = append(out, &a)
	}
	return out, rows.Err()
}

// UpdateAlert applies mutate inside a transaction.
func (s *SQLiteStore) UpdateAlert(ctx context.Context, id string, mutate func(*models.Alert) error) (*models.Alert, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var body string
	err = tx.QueryRowContext(ctx, `SELECT body FROM alerts WHERE id = ?`, id).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	var a models.Alert
	if err := json.Unmarshal([]byte(body), &a); err != nil {
		return nil, fmt.Errorf("decode alert: %w", err)
	}
	if err := mutate(&a); err != nil {
		return nil, err
	}

	updated, err := json.Marshal(&a)
	if err != nil {
		return nil, fmt.Errorf("encode alert: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `
		UPDATE alerts SET status = ?, last_detected = ?, body = ? WHERE id = ?`,
		string(a.Status), a.LastDetected, string(updated), id); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &a, nil
}

// PutRecommendation inserts or replaces a recommendation row.
func (s *SQLiteStore) PutRecommendation(ctx context.Context, rec *models.Recommendation) error {
	body, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode recommendation: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO recommendations (id, alert_id, status, created_at, body)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			body = excluded.body`,
		rec.ID, rec.AlertID, string(rec.Status), rec.CreatedAt, string(body))
	return err
}

// ListRecommendations returns all recommendations, newest first.
func (s *SQLiteStore) ListRecommendations(ctx context.Context) ([]*models.Recommendation, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT body FROM recommendations ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.Recommendation
	for rows.Next() {
		var body string
		if err := rows.Scan(&body); err != nil {
			return nil, err
		}
		var r models.Recommendation
		if err := json.Unmarshal([]byte(body), &r); err != nil {
			return nil, fmt.Errorf("decode recommendation: %w", err)
		}
		out = append(out, &r)
	}
	return out, rows.Err()
}

// UpdateRecommendation applies mutate inside a transaction.
func (s *SQLiteStore) UpdateRecommendation(ctx context.Context, id string, mutate func(*models.Recommendation) error) (*models.Recommendation, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var body string
	err = tx.QueryRowContext(ctx, `SELECT body FROM recommendations WHERE id = ?`, id).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	var r models.Recommendation
	if err := json.Unmarshal([]byte(body), &r); err != nil {
		return nil, fmt.Errorf("decode recommendation: %w", err)
	}
	if err := mutate(&r); err != nil {
		return nil, err
	}

	updated, err := json.Marshal(&r)
	if err != nil {
		return nil, fmt.Errorf("encode recommendation: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `
		UPDATE recommendations SET status = ?, body = ? WHERE id = ?`,
		string(r.Status), string(updated), id); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &r, nil
}

// Close releases the database handle.
func (s *SQLiteStore) Close() error { return s.db.Close() }

func scanAlert(row *sql.Row) (*models.Alert, error) {
	var body string
	err := row.Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var a models.Alert
	if err := json.Unmarshal([]byte(body), &a); err != nil {
		return nil, fmt.Errorf("decode alert: %w", err)
	}
	return &a, nil
}
