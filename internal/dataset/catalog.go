// Package dataset persists accepted samples: image and label artifacts on a
// filesystem plus an sqlite catalog indexing them.
package dataset

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/banshee-data/datacollector/internal/monitoring"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Catalog is the sqlite index over saved samples. One row per sample in
// frames, one row per service start in runs.
type Catalog struct {
	*sql.DB

	insertFrame *sql.Stmt
}

// FrameRecord is one catalog row. Timestamp is epoch seconds; ImagePath is
// relative to the dataset base path.
type FrameRecord struct {
	ID        string
	CameraID  string
	Timestamp float64
	Split     string
	ImagePath string
}

// OpenCatalog opens (creating if needed) the catalog at path, applies the
// connection pragmas, runs any pending schema migrations, and prepares the
// hot-path insert.
func OpenCatalog(path string) (*Catalog, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog %s: %w", path, err)
	}

	// Apply essential PRAGMAs
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA temp_store=MEMORY",
		"PRAGMA foreign_keys=ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}

	if err := migrateUp(db); err != nil {
		db.Close()
		return nil, err
	}

	stmt, err := db.Prepare("INSERT INTO frames (id, camera_id, timestamp, split, image_path) VALUES (?, ?, ?, ?, ?)")
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to prepare frame insert: %w", err)
	}

	return &Catalog{DB: db, insertFrame: stmt}, nil
}

// migrateUp applies all pending migrations from the embedded set. Already
// being at the latest version is not an error.
func migrateUp(db *sql.DB) error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to load embedded migrations: %w", err)
	}

	driver, err := sqlite.WithInstance(db, &sqlite.Config{})
	if err != nil {
		return fmt.Errorf("failed to create sqlite driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}
	// Note: We don't close m here because it would close the underlying DB
	// connection.

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration up failed: %w", err)
	}
	return nil
}

// Close releases the prepared statement and the connection.
func (c *Catalog) Close() error {
	if c.insertFrame != nil {
		if err := c.insertFrame.Close(); err != nil {
			monitoring.Logf("failed to close frame insert statement: %v", err)
		}
	}
	return c.DB.Close()
}

// InsertFrame indexes one saved sample.
func (c *Catalog) InsertFrame(rec FrameRecord) error {
	_, err := c.insertFrame.Exec(rec.ID, rec.CameraID, rec.Timestamp, rec.Split, rec.ImagePath)
	if err != nil {
		return fmt.Errorf("failed to insert frame %s: %w", rec.ID, err)
	}
	return nil
}

// RecentFrames returns the newest catalog rows, most recent first.
func (c *Catalog) RecentFrames(limit int) ([]FrameRecord, error) {
	rows, err := c.Query("SELECT id, camera_id, timestamp, split, image_path FROM frames ORDER BY timestamp DESC LIMIT ?", limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanFrames(rows)
}

// AllFrames returns every catalog row in insertion-timestamp order.
func (c *Catalog) AllFrames() ([]FrameRecord, error) {
	rows, err := c.Query("SELECT id, camera_id, timestamp, split, image_path FROM frames ORDER BY timestamp")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanFrames(rows)
}

func scanFrames(rows *sql.Rows) ([]FrameRecord, error) {
	var records []FrameRecord
	for rows.Next() {
		var rec FrameRecord
		if err := rows.Scan(&rec.ID, &rec.CameraID, &rec.Timestamp, &rec.Split, &rec.ImagePath); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return records, nil
}

// CountsBySplit returns the number of samples per split value.
func (c *Catalog) CountsBySplit() (map[string]int, error) {
	return c.countsBy("split")
}

// SamplesPerCamera returns the number of samples per camera id.
func (c *Catalog) SamplesPerCamera() (map[string]int, error) {
	return c.countsBy("camera_id")
}

func (c *Catalog) countsBy(column string) (map[string]int, error) {
	rows, err := c.Query(fmt.Sprintf("SELECT %s, COUNT(*) FROM frames GROUP BY %s", column, column))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var key string
		var n int
		if err := rows.Scan(&key, &n); err != nil {
			return nil, err
		}
		counts[key] = n
	}
	return counts, rows.Err()
}

// TimestampsByCamera returns each camera's sample timestamps in ascending
// order, for gap statistics and time-series plotting.
func (c *Catalog) TimestampsByCamera() (map[string][]float64, error) {
	rows, err := c.Query("SELECT camera_id, timestamp FROM frames ORDER BY camera_id, timestamp")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	series := make(map[string][]float64)
	for rows.Next() {
		var cameraID string
		var ts float64
		if err := rows.Scan(&cameraID, &ts); err != nil {
			return nil, err
		}
		series[cameraID] = append(series[cameraID], ts)
	}
	return series, rows.Err()
}

// StartRun records a new collection run and returns its id.
func (c *Catalog) StartRun(startedAt float64) (string, error) {
	runID := uuid.New().String()
	if _, err := c.Exec("INSERT INTO runs (run_id, started_at) VALUES (?, ?)", runID, startedAt); err != nil {
		return "", fmt.Errorf("failed to record run: %w", err)
	}
	return runID, nil
}

// IncrementRunSamples bumps a run's accepted-sample counter.
func (c *Catalog) IncrementRunSamples(runID string) error {
	_, err := c.Exec("UPDATE runs SET samples = samples + 1 WHERE run_id = ?", runID)
	return err
}

// RunSamples returns a run's accepted-sample counter.
func (c *Catalog) RunSamples(runID string) (int, error) {
	var n int
	err := c.QueryRow("SELECT samples FROM runs WHERE run_id = ?", runID).Scan(&n)
	return n, err
}
