// Package storage provides SQLite-backed persistence for subscriptions and the alert log.
package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/voltwatch/voltwatch/internal/models"
	_ "modernc.org/sqlite"
)

// Storage wraps a SQLite database for all persistence operations.
type Storage struct {
	db *sql.DB
}

// New opens or creates the SQLite database at dbPath.
// An empty dbPath defaults to $TMPDIR/voltwatch/data.db.
func New(dbPath string) (*Storage, error) {
	if dbPath == "" {
		dbPath = filepath.Join(os.TempDir(), "voltwatch", "data.db")
	}
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1) // single writer; WAL allows concurrent readers
	if _, err := db.Exec(`PRAGMA journal_mode=WAL`); err != nil {
		return nil, fmt.Errorf("failed to set WAL mode: %w", err)
	}
	s := &Storage{db: db}
	if err := s.createTables(); err != nil {
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Storage) Close() error {
	return s.db.Close()
}

func (s *Storage) createTables() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS subscriptions (
			user_id   INTEGER PRIMARY KEY,
			threshold REAL
		)`,
		`CREATE TABLE IF NOT EXISTS alert_log (
			id        TEXT PRIMARY KEY,
			user_id   INTEGER NOT NULL,
			price     REAL NOT NULL,
			threshold REAL NOT NULL,
			direction TEXT NOT NULL,
			delivered INTEGER NOT NULL DEFAULT 0,
			sent_at   INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_alert_log_sent_at ON alert_log(sent_at DESC)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// UpsertSubscription subscribes the user or, if already subscribed, replaces
// the stored threshold. A nil threshold means the global reference price
// applies at evaluation time.
func (s *Storage) UpsertSubscription(userID int64, threshold *float64) error {
	sub := models.Subscription{UserID: userID, Threshold: threshold}
	if err := sub.Validate(); err != nil {
		return fmt.Errorf("invalid subscription: %w", err)
	}
	_, err := s.db.Exec(`
		INSERT INTO subscriptions (user_id, threshold) VALUES (?, ?)
		ON CONFLICT(user_id) DO UPDATE SET threshold = excluded.threshold`,
		userID, nullableFloat(threshold),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert subscription: %w", err)
	}
	return nil
}

// RemoveSubscription unsubscribes the user. Removing an absent user is a no-op.
func (s *Storage) RemoveSubscription(userID int64) error {
	if _, err := s.db.Exec(`DELETE FROM subscriptions WHERE user_id = ?`, userID); err != nil {
		return fmt.Errorf("failed to remove subscription: %w", err)
	}
	return nil
}

// GetSubscription returns the user's subscription, or nil if not subscribed.
func (s *Storage) GetSubscription(userID int64) (*models.Subscription, error) {
	row := s.db.QueryRow(`SELECT user_id, threshold FROM subscriptions WHERE user_id = ?`, userID)
	sub, err := scanSubscription(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get subscription: %w", err)
	}
	return sub, nil
}

// ListSubscriptions returns a snapshot of every subscription.
func (s *Storage) ListSubscriptions() ([]models.Subscription, error) {
	rows, err := s.db.Query(`SELECT user_id, threshold FROM subscriptions`)
	if err != nil {
		return nil, fmt.Errorf("failed to query subscriptions: %w", err)
	}
	defer rows.Close()

	subs := []models.Subscription{}
	for rows.Next() {
		sub, err := scanSubscription(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan subscription: %w", err)
		}
		subs = append(subs, *sub)
	}
	return subs, rows.Err()
}

// LogAlert records one dispatched alert attempt. A missing ID is filled in.
func (s *Storage) LogAlert(alert *models.PriceAlert) error {
	if alert.ID == "" {
		alert.ID = uuid.New().String()
	}
	_, err := s.db.Exec(`
		INSERT INTO alert_log (id, user_id, price, threshold, direction, delivered, sent_at)
		VALUES (?,?,?,?,?,?,?)`,
		alert.ID, alert.UserID, alert.Price, alert.Threshold, string(alert.Direction),
		boolToInt(alert.Delivered), alert.SentAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert alert: %w", err)
	}
	return nil
}

// RecentAlerts returns the latest alert records, newest first.
func (s *Storage) RecentAlerts(limit int) ([]models.PriceAlert, error) {
	rows, err := s.db.Query(`
		SELECT id, user_id, price, threshold, direction, delivered, sent_at
		FROM alert_log ORDER BY sent_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query alerts: %w", err)
	}
	defer rows.Close()

	var alerts []models.PriceAlert
	for rows.Next() {
		var a models.PriceAlert
		var direction string
		var delivered int
		var sentAtNano int64
		if err := rows.Scan(&a.ID, &a.UserID, &a.Price, &a.Threshold, &direction, &delivered, &sentAtNano); err != nil {
			return nil, fmt.Errorf("failed to scan alert: %w", err)
		}
		a.Direction = models.Direction(direction)
		a.Delivered = delivered != 0
		a.SentAt = time.Unix(0, sentAtNano)
		alerts = append(alerts, a)
	}
	return alerts, rows.Err()
}

func scanSubscription(scan func(...any) error) (*models.Subscription, error) {
	var sub models.Subscription
	var threshold sql.NullFloat64
	if err := scan(&sub.UserID, &threshold); err != nil {
		return nil, err
	}
	if threshold.Valid {
		v := threshold.Float64
		sub.Threshold = &v
	}
	return &sub, nil
}

func nullableFloat(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
