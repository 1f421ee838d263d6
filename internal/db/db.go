package db

import (
	"context"
	"database/sql"
	"fmt"

	"grain-admin/internal/logger"
	_ "modernc.org/sqlite"
)

// DB wraps the SQLite connection holding all reference and trade data.
type DB struct {
	sql *sql.DB
}

// Open opens (or creates) the SQLite database at path and runs migrations.
func Open(path string) (*DB, error) {
	sqlDB, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("ping db: %w", err)
	}
	d := &DB{sql: sqlDB}
	if err := d.migrate(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("migrate db: %w", err)
	}
	logger.Success("DB", fmt.Sprintf("Opened %s", path))
	return d, nil
}

// Close closes the database connection.
func (d *DB) Close() error {
	return d.sql.Close()
}

// Ping reports whether the database is reachable.
func (d *DB) Ping(ctx context.Context) error {
	return d.sql.PingContext(ctx)
}

func (d *DB) migrate() error {
	version := 0
	// Try to read current version
	d.sql.QueryRow("SELECT version FROM schema_version ORDER BY version DESC LIMIT 1").Scan(&version)

	if version < 1 {
		_, err := d.sql.Exec(`
			CREATE TABLE IF NOT EXISTS schema_version (version INTEGER PRIMARY KEY);

			CREATE TABLE IF NOT EXISTS regions (
				id   INTEGER PRIMARY KEY AUTOINCREMENT,
				name TEXT NOT NULL UNIQUE
			);

			CREATE TABLE IF NOT EXISTS districts (
				id        INTEGER PRIMARY KEY AUTOINCREMENT,
				name      TEXT NOT NULL,
				region_id INTEGER NOT NULL REFERENCES regions(id)
			);

			CREATE TABLE IF NOT EXISTS localities (
				id          INTEGER PRIMARY KEY AUTOINCREMENT,
				name        TEXT NOT NULL,
				district_id INTEGER NOT NULL REFERENCES districts(id)
			);

			CREATE TABLE IF NOT EXISTS partners (
				id    INTEGER PRIMARY KEY AUTOINCREMENT,
				name  TEXT NOT NULL,
				inn   TEXT,
				email TEXT
			);

			CREATE TABLE IF NOT EXISTS stations (
				code        TEXT PRIMARY KEY,
				name        TEXT NOT NULL,
				region_id   INTEGER REFERENCES regions(id),
				district_id INTEGER REFERENCES districts(id),
				locality_id INTEGER REFERENCES localities(id),
				base        INTEGER NOT NULL DEFAULT 0
			);
			CREATE INDEX IF NOT EXISTS idx_stations_location
				ON stations(region_id, district_id, locality_id);

			CREATE TABLE IF NOT EXISTS elevators (
				id           INTEGER PRIMARY KEY AUTOINCREMENT,
				name         TEXT NOT NULL,
				station_code TEXT NOT NULL REFERENCES stations(code)
			);

			CREATE TABLE IF NOT EXISTS elevator_service_prices (
				id          INTEGER PRIMARY KEY AUTOINCREMENT,
				elevator_id INTEGER NOT NULL REFERENCES elevators(id),
				price       INTEGER NOT NULL,
				ordinal     INTEGER NOT NULL DEFAULT 0
			);
			CREATE INDEX IF NOT EXISTS idx_service_prices_elevator
				ON elevator_service_prices(elevator_id);

			CREATE TABLE IF NOT EXISTS bids (
				id            INTEGER PRIMARY KEY AUTOINCREMENT,
				direction     TEXT NOT NULL CHECK (direction IN ('BUY', 'SELL')),
				nds           TEXT NOT NULL CHECK (nds IN ('EXCLUDED', 'INCLUDED')),
				price         INTEGER NOT NULL,
				quality_class TEXT NOT NULL,
				elevator_id   INTEGER NOT NULL REFERENCES elevators(id),
				partner_id    INTEGER REFERENCES partners(id),
				is_active     INTEGER NOT NULL DEFAULT 1,
				archive_date  TEXT,
				created_at    TEXT NOT NULL
			);
			CREATE INDEX IF NOT EXISTS idx_bids_current
				ON bids(direction, is_active);

			CREATE TABLE IF NOT EXISTS transportation_prices (
				station_from TEXT NOT NULL REFERENCES stations(code),
				station_to   TEXT NOT NULL REFERENCES stations(code),
				price        INTEGER,
				price_nds    INTEGER,
				PRIMARY KEY (station_from, station_to)
			);

			INSERT OR IGNORE INTO schema_version (version) VALUES (1);
		`)
		if err != nil {
			return fmt.Errorf("migration v1: %w", err)
		}
		logger.Info("DB", "Applied migration v1")
	}

	if version < 2 {
		_, err := d.sql.Exec(`
			CREATE INDEX IF NOT EXISTS idx_transportation_to
				ON transportation_prices(station_to);

			INSERT OR IGNORE INTO schema_version (version) VALUES (2);
		`)
		if err != nil {
			return fmt.Errorf("migration v2: %w", err)
		}
		logger.Info("DB", "Applied migration v2 (tariff destination index)")
	}

	return nil
}

// Stats summarizes the stored data volumes for the startup banner.
type Stats struct {
	Stations   int
	Partners   int
	ActiveBids int
	Tariffs    int
}

// Counts gathers the row counts reported at startup.
func (d *DB) Counts(ctx context.Context) (Stats, error) {
	var st Stats
	row := d.sql.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM stations),
			(SELECT COUNT(*) FROM partners),
			(SELECT COUNT(*) FROM bids WHERE is_active = 1 AND archive_date IS NULL),
			(SELECT COUNT(*) FROM transportation_prices)
	`)
	if err := row.Scan(&st.Stations, &st.Partners, &st.ActiveBids, &st.Tariffs); err != nil {
		return Stats{}, fmt.Errorf("count rows: %w", err)
	}
	return st, nil
}
