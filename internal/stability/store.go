// Package stability tracks the aggregate trust score over time: an
// append-only measurement history in SQLite, a windowed in-band stability
// assessment, a short-horizon trend, and one-shot milestones for the first
// qualifying window.
package stability

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// Measurement sources recorded in the history.
const (
	SourceReport = "report"
	SourceManual = "manual"
)

const schema = `
CREATE TABLE IF NOT EXISTS measurements (
	id              INTEGER PRIMARY KEY AUTOINCREMENT,
	observed_at     TEXT NOT NULL,
	aggregate_score REAL NOT NULL,
	grade           TEXT NOT NULL,
	debt_units      REAL NOT NULL,
	drift_events    INTEGER NOT NULL DEFAULT 0,
	source          TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS milestones (
	id                 TEXT PRIMARY KEY,
	measurement_id     INTEGER NOT NULL,
	achieved_at        TEXT NOT NULL,
	aggregate_score    REAL NOT NULL,
	stable_days        REAL NOT NULL,
	artifact_generated INTEGER NOT NULL DEFAULT 0,
	artifact_ref       TEXT NOT NULL DEFAULT '',
	notification_sent  INTEGER NOT NULL DEFAULT 0
);
`

// Measurement is one observation of the subject's aggregate trust.
type Measurement struct {
	ID             int64     `json:"id"`
	ObservedAt     time.Time `json:"observed_at"`
	AggregateScore float64   `json:"aggregate_score"`
	Grade          string    `json:"grade"`
	DebtUnits      float64   `json:"debt_units"`
	DriftEvents    int       `json:"drift_events"`
	Source         string    `json:"source"`
}

// Milestone marks a window of measurements that first qualified as stable.
// MeasurementID is the newest measurement in the qualifying window; the
// outcome booleans record whether the side-effect callbacks succeeded.
type Milestone struct {
	ID                string    `json:"id"`
	MeasurementID     int64     `json:"measurement_id"`
	AchievedAt        time.Time `json:"achieved_at"`
	AggregateScore    float64   `json:"aggregate_score"`
	StableDays        float64   `json:"stable_days"`
	ArtifactGenerated bool      `json:"artifact_generated"`
	ArtifactRef       string    `json:"artifact_ref,omitempty"`
	NotificationSent  bool      `json:"notification_sent"`
}

// Store persists measurements and milestones in SQLite.
type Store struct {
	db *sql.DB
}

// OpenStore opens (or creates) the stability database and runs migrations.
func OpenStore(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open stability db: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set journal mode: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate stability db: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error { return s.db.Close() }

// AppendMeasurement inserts one measurement row and returns its id.
func (s *Store) AppendMeasurement(m Measurement) (int64, error) {
	observed := m.ObservedAt
	if observed.IsZero() {
		observed = time.Now().UTC()
	}
	res, err := s.db.Exec(
		`INSERT INTO measurements (observed_at, aggregate_score, grade, debt_units, drift_events, source)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		observed.UTC().Format(time.RFC3339Nano), m.AggregateScore, m.Grade, m.DebtUnits, m.DriftEvents, m.Source,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert measurement: %w", err)
	}
	return res.LastInsertId()
}

// Recent returns the newest n measurements, oldest first.
func (s *Store) Recent(n int) ([]Measurement, error) {
	rows, err := s.db.Query(
		`SELECT id, observed_at, aggregate_score, grade, debt_units, drift_events, source
		 FROM measurements ORDER BY id DESC LIMIT ?`, n,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query measurements: %w", err)
	}
	defer rows.Close()

	var out []Measurement
	for rows.Next() {
		var m Measurement
		var observed string
		if err := rows.Scan(&m.ID, &observed, &m.AggregateScore, &m.Grade, &m.DebtUnits, &m.DriftEvents, &m.Source); err != nil {
			return nil, fmt.Errorf("failed to scan measurement: %w", err)
		}
		m.ObservedAt, _ = time.Parse(time.RFC3339Nano, observed)
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	// Reverse into chronological order.
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

// InsertMilestone persists a fresh milestone row.
func (s *Store) InsertMilestone(ms Milestone) error {
	_, err := s.db.Exec(
		`INSERT INTO milestones (id, measurement_id, achieved_at, aggregate_score, stable_days, artifact_generated, artifact_ref, notification_sent)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		ms.ID, ms.MeasurementID, ms.AchievedAt.UTC().Format(time.RFC3339Nano), ms.AggregateScore, ms.StableDays,
		boolToInt(ms.ArtifactGenerated), ms.ArtifactRef, boolToInt(ms.NotificationSent),
	)
	if err != nil {
		return fmt.Errorf("failed to insert milestone: %w", err)
	}
	return nil
}

// SetMilestoneOutcome records how the milestone's side effects went.
func (s *Store) SetMilestoneOutcome(id string, artifactGenerated bool, artifactRef string, notificationSent bool) error {
	_, err := s.db.Exec(
		`UPDATE milestones SET artifact_generated = ?, artifact_ref = ?, notification_sent = ? WHERE id = ?`,
		boolToInt(artifactGenerated), artifactRef, boolToInt(notificationSent), id,
	)
	if err != nil {
		return fmt.Errorf("failed to update milestone %s: %w", id, err)
	}
	return nil
}

// LatestMilestone returns the most recent milestone, or nil when none exist.
func (s *Store) LatestMilestone() (*Milestone, error) {
	row := s.db.QueryRow(
		`SELECT id, measurement_id, achieved_at, aggregate_score, stable_days, artifact_generated, artifact_ref, notification_sent
		 FROM milestones ORDER BY measurement_id DESC LIMIT 1`,
	)
	ms, err := scanMilestone(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read latest milestone: %w", err)
	}
	return &ms, nil
}

// Milestones returns all milestones, oldest first.
func (s *Store) Milestones() ([]Milestone, error) {
	rows, err := s.db.Query(
		`SELECT id, measurement_id, achieved_at, aggregate_score, stable_days, artifact_generated, artifact_ref, notification_sent
		 FROM milestones ORDER BY measurement_id ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query milestones: %w", err)
	}
	defer rows.Close()

	var out []Milestone
	for rows.Next() {
		ms, err := scanMilestone(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan milestone: %w", err)
		}
		out = append(out, ms)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMilestone(row rowScanner) (Milestone, error) {
	var ms Milestone
	var achieved string
	var generated, sent int
	if err := row.Scan(&ms.ID, &ms.MeasurementID, &achieved, &ms.AggregateScore, &ms.StableDays, &generated, &ms.ArtifactRef, &sent); err != nil {
		return Milestone{}, err
	}
	ms.AchievedAt, _ = time.Parse(time.RFC3339Nano, achieved)
	ms.ArtifactGenerated = generated != 0
	ms.NotificationSent = sent != 0
	return ms, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
