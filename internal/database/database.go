package database

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// DBPath returns the path to the single shared database under dataDir
func DBPath(dataDir string) string {
	return filepath.Join(dataDir, "tidepredict.db")
}

// Open opens (creating if necessary) the SQLite database at dbPath and
// ensures the fit history schema exists.
func Open(dbPath string) (*sql.DB, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if dbPath == ":memory:" {
		// Each pooled connection would get its own empty database.
		db.SetMaxOpenConns(1)
	}
	// Set pragmas for performance
	_, _ = db.Exec("PRAGMA journal_mode=WAL")
	_, _ = db.Exec("PRAGMA synchronous=NORMAL")

	if err := EnsureSchema(db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// EnsureSchema ensures that the tables written by this program (not by the
// provisioners) exist.
func EnsureSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS harmonic_fits (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			station_code TEXT NOT NULL,
			years TEXT NOT NULL,
			observations INTEGER NOT NULL,
			constituents INTEGER NOT NULL,
			rms_residual REAL NOT NULL,
			fitted_at DATETIME NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_harmonic_fits_station ON harmonic_fits(station_code);
	`)
	if err != nil {
		return fmt.Errorf("creating harmonic_fits table: %w", err)
	}
	return nil
}

// Fit is one row of the harmonic fit history.
type Fit struct {
	StationCode  string
	Years        string
	Observations int
	Constituents int
	RMSResidual  float64
	FittedAt     time.Time
}

// RecordFit appends f to the fit history.
func RecordFit(db *sql.DB, f Fit) error {
	_, err := db.Exec(`
		INSERT INTO harmonic_fits (station_code, years, observations, constituents, rms_residual, fitted_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		f.StationCode, f.Years, f.Observations, f.Constituents, f.RMSResidual, f.FittedAt.UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("recording fit for %s: %w", f.StationCode, err)
	}
	return nil
}

// FitHistory returns the fits recorded for stationCode, newest first.
func FitHistory(db *sql.DB, stationCode string) ([]Fit, error) {
	rows, err := db.Query(`
		SELECT station_code, years, observations, constituents, rms_residual, fitted_at
		FROM harmonic_fits WHERE station_code = ?
		ORDER BY fitted_at DESC, id DESC`, stationCode)
	if err != nil {
		return nil, fmt.Errorf("querying fit history: %w", err)
	}
	defer rows.Close()

	var fits []Fit
	for rows.Next() {
		var f Fit
		var fittedAt string
		if err := rows.Scan(&f.StationCode, &f.Years, &f.Observations, &f.Constituents, &f.RMSResidual, &fittedAt); err != nil {
			return nil, fmt.Errorf("scanning fit: %w", err)
		}
		f.FittedAt, err = time.Parse(time.RFC3339, fittedAt)
		if err != nil {
			return nil, fmt.Errorf("parsing fit time %q: %w", fittedAt, err)
		}
		fits = append(fits, f)
	}
	return fits, rows.Err()
}
