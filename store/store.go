// Package store persists normalized feeds and match results to Postgres.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/transitstat/transitgo/gtfs"
	"github.com/transitstat/transitgo/match"
)

// Store wraps a Postgres connection pool.
type Store struct {
	db *sql.DB
}

// Open connects via the pgx stdlib driver.
func Open(dsn string) (*Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// Ping verifies the connection with a short timeout.
func (s *Store) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return s.db.PingContext(ctx)
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS stops (
		stop_id TEXT PRIMARY KEY,
		stop_code TEXT,
		stop_name TEXT,
		lon DOUBLE PRECISION NOT NULL,
		lat DOUBLE PRECISION NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS routes (
		route_id TEXT PRIMARY KEY,
		agency_id TEXT,
		short_name TEXT,
		long_name TEXT,
		route_type INT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS trips (
		trip_id TEXT PRIMARY KEY,
		route_id TEXT NOT NULL REFERENCES routes(route_id),
		service_id TEXT,
		shape_id TEXT,
		headsign TEXT,
		direction_id INT,
		group_id BIGINT
	)`,
	`CREATE TABLE IF NOT EXISTS stop_times (
		trip_id TEXT NOT NULL REFERENCES trips(trip_id),
		stop_sequence INT NOT NULL,
		stop_id TEXT NOT NULL REFERENCES stops(stop_id),
		arrival_sec INT NOT NULL,
		departure_sec INT NOT NULL,
		PRIMARY KEY (trip_id, stop_sequence)
	)`,
	`CREATE TABLE IF NOT EXISTS service_dates (
		service_id TEXT NOT NULL,
		service_date DATE NOT NULL,
		PRIMARY KEY (service_id, service_date)
	)`,
	`CREATE TABLE IF NOT EXISTS matched_shapes (
		shape_id TEXT PRIMARY KEY,
		crs INT NOT NULL,
		length_m DOUBLE PRECISION NOT NULL,
		gap_fraction DOUBLE PRECISION NOT NULL,
		geometry JSONB NOT NULL
	)`,
}

// EnsureSchema creates the target tables when absent.
func (s *Store) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

// SaveFeed writes the normalized feed in one transaction, replacing previous
// contents.
func (s *Store) SaveFeed(ctx context.Context, feed *gtfs.Feed) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, tbl := range []string{"stop_times", "trips", "service_dates", "stops", "routes"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+tbl); err != nil {
			return fmt.Errorf("clear %s: %w", tbl, err)
		}
	}

	for _, id := range feed.StopIDs() {
		st := feed.Stops[id]
		_, err := tx.ExecContext(ctx,
			`INSERT INTO stops (stop_id, stop_code, stop_name, lon, lat) VALUES ($1,$2,$3,$4,$5)`,
			st.ID, st.Code, st.Name, st.Lon, st.Lat)
		if err != nil {
			return fmt.Errorf("insert stop %s: %w", id, err)
		}
	}
	for _, id := range feed.RouteIDs() {
		r := feed.Routes[id]
		_, err := tx.ExecContext(ctx,
			`INSERT INTO routes (route_id, agency_id, short_name, long_name, route_type) VALUES ($1,$2,$3,$4,$5)`,
			r.ID, r.AgencyID, r.ShortName, r.LongName, r.Type)
		if err != nil {
			return fmt.Errorf("insert route %s: %w", id, err)
		}
	}
	for _, id := range feed.TripIDs() {
		t := feed.Trips[id]
		_, err := tx.ExecContext(ctx,
			`INSERT INTO trips (trip_id, route_id, service_id, shape_id, headsign, direction_id, group_id)
			 VALUES ($1,$2,$3,$4,$5,$6,$7)`,
			t.ID, t.RouteID, t.ServiceID, t.ShapeID, t.Headsign, t.DirectionID, int64(t.GroupID))
		if err != nil {
			return fmt.Errorf("insert trip %s: %w", id, err)
		}
		for _, st := range t.StopTimes {
			_, err := tx.ExecContext(ctx,
				`INSERT INTO stop_times (trip_id, stop_sequence, stop_id, arrival_sec, departure_sec)
				 VALUES ($1,$2,$3,$4,$5)`,
				t.ID, st.Sequence, st.StopID, st.ArrivalSec, st.DepartureSec)
			if err != nil {
				return fmt.Errorf("insert stop_time %s/%d: %w", t.ID, st.Sequence, err)
			}
		}
	}
	for serviceID, dates := range feed.ServiceDates {
		for _, d := range dates {
			_, err := tx.ExecContext(ctx,
				`INSERT INTO service_dates (service_id, service_date) VALUES ($1,$2)`,
				serviceID, d)
			if err != nil {
				return fmt.Errorf("insert service date %s: %w", serviceID, err)
			}
		}
	}
	return tx.Commit()
}

// SaveMatches upserts successfully matched shapes; failed slots are skipped.
func (s *Store) SaveMatches(ctx context.Context, results []match.BatchResult) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, r := range results {
		if r.Err != nil || r.Matched == nil {
			continue
		}
		geom, err := json.Marshal(r.Matched.Geometry)
		if err != nil {
			return fmt.Errorf("marshal geometry %s: %w", r.ShapeID, err)
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO matched_shapes (shape_id, crs, length_m, gap_fraction, geometry)
			 VALUES ($1,$2,$3,$4,$5)
			 ON CONFLICT (shape_id) DO UPDATE SET
			   crs = EXCLUDED.crs,
			   length_m = EXCLUDED.length_m,
			   gap_fraction = EXCLUDED.gap_fraction,
			   geometry = EXCLUDED.geometry`,
			r.ShapeID, r.Matched.CRS, r.Matched.LengthM, r.Matched.GapFraction, geom)
		if err != nil {
			return fmt.Errorf("upsert matched shape %s: %w", r.ShapeID, err)
		}
	}
	return tx.Commit()
}
