// Package db keeps an in-memory SQLite mirror of the enriched trips so the
// current dataset can be inspected with ad-hoc SQL from the debug routes.
package db

import (
	"database/sql"
	"fmt"
	"log"
	"time"

	_ "modernc.org/sqlite"

	"github.com/banshee-data/carshare.report/internal/trips"
)

type DB struct {
	*sql.DB
}

// NewMemoryDB opens a private in-memory database and applies all migrations.
func NewMemoryDB() (*DB, error) {
	return NewDB(":memory:")
}

// NewDB opens the SQLite database at path and migrates it to the latest
// schema. An in-memory database lives as long as its single connection, so
// the pool is pinned to one connection that never expires.
func NewDB(path string) (*DB, error) {
	sqlDB, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	sqlDB.SetConnMaxLifetime(0)

	if _, err := sqlDB.Exec(`PRAGMA foreign_keys = ON`); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to set pragmas: %w", err)
	}

	db := &DB{sqlDB}
	if err := db.MigrateUp(); err != nil {
		sqlDB.Close()
		return nil, err
	}
	return db, nil
}

// MirrorState describes the snapshot currently held in the mirror.
type MirrorState struct {
	SnapshotID string    `json:"snapshot_id"`
	SyncedAt   time.Time `json:"synced_at"`
	TripCount  int       `json:"trip_count"`
}

// ReplaceEnrichedTrips swaps the mirror contents for rows in one
// transaction and records snapshotID as the mirrored snapshot.
func (db *DB) ReplaceEnrichedTrips(snapshotID string, rows []trips.EnrichedTrip) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM enriched_trips`); err != nil {
		return fmt.Errorf("failed to clear mirror: %w", err)
	}

	stmt, err := tx.Prepare(`INSERT INTO enriched_trips (
			row_index, pickup_time, dropoff_time, pickup_date,
			distance, revenue, brand, model, city_name
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, r := range rows {
		if _, err := stmt.Exec(
			i,
			nullTime(r.PickupTime),
			nullTime(r.DropoffTime),
			r.PickupDate,
			r.Distance,
			r.Revenue,
			r.Brand,
			r.Model,
			r.CityName,
		); err != nil {
			return fmt.Errorf("failed to insert row %d: %w", i, err)
		}
	}

	if _, err := tx.Exec(
		`INSERT INTO mirror_state (id, snapshot_id, synced_at, trip_count) VALUES (1, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET snapshot_id = excluded.snapshot_id,
			synced_at = excluded.synced_at, trip_count = excluded.trip_count`,
		snapshotID, time.Now().UTC().Format(time.RFC3339Nano), len(rows),
	); err != nil {
		return fmt.Errorf("failed to record mirror state: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	log.Printf("[db] mirrored snapshot %s (%d trips)", snapshotID, len(rows))
	return nil
}

// State returns the mirrored snapshot, or nil before the first sync.
func (db *DB) State() (*MirrorState, error) {
	var (
		st       MirrorState
		syncedAt string
	)
	err := db.QueryRow(`SELECT snapshot_id, synced_at, trip_count FROM mirror_state WHERE id = 1`).
		Scan(&st.SnapshotID, &syncedAt, &st.TripCount)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if st.SyncedAt, err = time.Parse(time.RFC3339Nano, syncedAt); err != nil {
		return nil, fmt.Errorf("invalid synced_at %q: %w", syncedAt, err)
	}
	return &st, nil
}

// RevenueByModel sums revenue per model from the mirror, ordered by model.
func (db *DB) RevenueByModel() ([]trips.Group, error) {
	rows, err := db.Query(`SELECT model, revenue FROM revenue_by_model ORDER BY model`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []trips.Group
	for rows.Next() {
		var g trips.Group
		if err := rows.Scan(&g.Key, &g.Value); err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

// TripsByCity counts mirrored trips per city, ordered by city name.
func (db *DB) TripsByCity() ([]trips.Count, error) {
	rows, err := db.Query(`SELECT city_name, trips FROM trips_by_city ORDER BY city_name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []trips.Count
	for rows.Next() {
		var c trips.Count
		if err := rows.Scan(&c.Key, &c.Count); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func nullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: t.Format(time.RFC3339Nano), Valid: true}
}
