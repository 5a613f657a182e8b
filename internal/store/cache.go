// Package store provides a SQLite-backed cache for fetched reference rates.
// Transactions are never written here; each export is parsed fresh.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"cloud.google.com/go/civil"

	"github.com/theirongolddev/financas/internal/model"

	_ "modernc.org/sqlite" // register sqlite driver
)

// timeLayout is fixed-width so fetched_at sorts lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Cache provides SQLite-backed rate snapshot caching.
type Cache struct {
	db *sql.DB
}

// Open opens or creates the cache database at the given path.
func Open(dbPath string) (*Cache, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("creating cache dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=synchronous(normal)&_pragma=foreign_keys(on)")
	if err != nil {
		return nil, fmt.Errorf("opening cache db: %w", err)
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return &Cache{db: db}, nil
}

// Close closes the cache database.
func (c *Cache) Close() error {
	return c.db.Close()
}

// SnapshotInfo describes one stored rate snapshot.
type SnapshotInfo struct {
	Endpoint    string
	FetchedAt   time.Time
	RecordCount int
}

// Snapshots lists every stored snapshot, most recent first.
func (c *Cache) Snapshots() ([]SnapshotInfo, error) {
	rows, err := c.db.Query("SELECT endpoint, fetched_at, record_count FROM rate_snapshots ORDER BY fetched_at DESC")
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var result []SnapshotInfo
	for rows.Next() {
		var si SnapshotInfo
		var fetchedAt string
		if err := rows.Scan(&si.Endpoint, &fetchedAt, &si.RecordCount); err != nil {
			return nil, err
		}
		si.FetchedAt, _ = time.Parse(timeLayout, fetchedAt)
		result = append(result, si)
	}
	return result, rows.Err()
}

// Clear deletes every stored snapshot.
func (c *Cache) Clear() error {
	_, err := c.db.Exec("DELETE FROM rate_snapshots")
	return err
}

// Rates returns the snapshot store for one rate endpoint.
func (c *Cache) Rates(endpoint string) *RateCache {
	return &RateCache{db: c.db, endpoint: endpoint}
}

// RateCache persists the last fetched rate history of one endpoint.
type RateCache struct {
	db       *sql.DB
	endpoint string
}

// LoadRates returns the stored records and their fetch time.
// An endpoint with no snapshot returns no records and a zero time.
func (r *RateCache) LoadRates() ([]model.RateRecord, time.Time, error) {
	var fetchedAtStr string
	err := r.db.QueryRow("SELECT fetched_at FROM rate_snapshots WHERE endpoint = ?", r.endpoint).Scan(&fetchedAtStr)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, time.Time{}, nil
	}
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("reading snapshot: %w", err)
	}
	fetchedAt, err := time.Parse(timeLayout, fetchedAtStr)
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("parsing snapshot time %q: %w", fetchedAtStr, err)
	}

	rows, err := r.db.Query(`SELECT start_date, end_date, open_ended, rate_percent
		FROM rate_records WHERE endpoint = ? ORDER BY start_date`, r.endpoint)
	if err != nil {
		return nil, time.Time{}, err
	}
	defer func() { _ = rows.Close() }()

	var records []model.RateRecord
	for rows.Next() {
		var start, end string
		var openEnded int
		var rec model.RateRecord
		if err := rows.Scan(&start, &end, &openEnded, &rec.RatePercent); err != nil {
			return nil, time.Time{}, err
		}
		if rec.Start, err = civil.ParseDate(start); err != nil {
			return nil, time.Time{}, fmt.Errorf("parsing start_date %q: %w", start, err)
		}
		if rec.End, err = civil.ParseDate(end); err != nil {
			return nil, time.Time{}, fmt.Errorf("parsing end_date %q: %w", end, err)
		}
		rec.OpenEnded = openEnded == 1
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, time.Time{}, err
	}
	return records, fetchedAt, nil
}

// SaveRates replaces the endpoint's snapshot with records fetched at fetchedAt.
func (r *RateCache) SaveRates(records []model.RateRecord, fetchedAt time.Time) error {
	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	// Cascades to rate_records.
	if _, err := tx.Exec("DELETE FROM rate_snapshots WHERE endpoint = ?", r.endpoint); err != nil {
		return err
	}

	_, err = tx.Exec("INSERT INTO rate_snapshots (endpoint, fetched_at, record_count) VALUES (?, ?, ?)",
		r.endpoint, fetchedAt.UTC().Format(timeLayout), len(records))
	if err != nil {
		return err
	}

	stmt, err := tx.Prepare(`INSERT OR REPLACE INTO rate_records
		(endpoint, start_date, end_date, open_ended, rate_percent) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer func() { _ = stmt.Close() }()

	for _, rec := range records {
		openEnded := 0
		if rec.OpenEnded {
			openEnded = 1
		}
		if _, err := stmt.Exec(r.endpoint, rec.Start.String(), rec.End.String(), openEnded, rec.RatePercent); err != nil {
			return err
		}
	}

	return tx.Commit()
}
