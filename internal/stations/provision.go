package stations

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"
	_ "modernc.org/sqlite"

	"github.com/ngmaloney/tide-terminal/internal/logging"
	"github.com/ngmaloney/tide-terminal/internal/uhslc"
)

var provisionMu sync.Mutex

// Station is a tide gauge from the UHSLC station lists.
type Station struct {
	Code        string  `json:"code"`
	Index       string  `json:"index"`
	Ocean       string  `json:"ocean"`
	Name        string  `json:"name"`
	Country     string  `json:"country"`
	Contributor string  `json:"contributor"`
	Latitude    float64 `json:"lat"`
	Longitude   float64 `json:"lon"`
	DataYears   string  `json:"data_years"`
	LastYear    int     `json:"last_year"`
}

// NeedsProvisioning checks if the stations table is missing or empty
func NeedsProvisioning(db *sql.DB) (bool, error) {
	var count int
	err := db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='tide_stations'").Scan(&count)
	if err != nil {
		return false, fmt.Errorf("checking for tide_stations table: %w", err)
	}
	if count == 0 {
		return true, nil
	}
	if err := db.QueryRow("SELECT COUNT(*) FROM tide_stations").Scan(&count); err != nil {
		return false, fmt.Errorf("counting tide stations: %w", err)
	}
	return count == 0, nil
}

// ProvisionOptions controls ProvisionStationsDatabase.
type ProvisionOptions struct {
	// Refresh rebuilds the table even when it is already populated.
	Refresh bool
	// Progress, when set, receives human readable status lines.
	Progress chan<- string
	Logger   *slog.Logger
}

// ProvisionStationsDatabase downloads the station lists of every ocean and
// stores them in the tide_stations table.
func ProvisionStationsDatabase(ctx context.Context, db *sql.DB, fetcher uhslc.Fetcher, opts ProvisionOptions) error {
	provisionMu.Lock()
	defer provisionMu.Unlock()

	logger := opts.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	if !opts.Refresh {
		needs, err := NeedsProvisioning(db)
		if err != nil {
			return err
		}
		if !needs {
			return nil
		}
	}

	sendProgress := func(msg string) {
		if opts.Progress != nil {
			opts.Progress <- msg
		}
		logger.Info(msg)
	}

	sendProgress("Refreshing stations list from UHSLC...")
	stations, err := fetchAllStations(ctx, fetcher, logger)
	if err != nil {
		return fmt.Errorf("fetching station lists: %w", err)
	}

	sendProgress("Building tide stations database...")
	count, err := buildStationsDatabase(db, stations, opts.Refresh, logger)
	if err != nil {
		return fmt.Errorf("building database: %w", err)
	}

	sendProgress(fmt.Sprintf("Stored %d tide stations", count))
	return nil
}

// fetchAllStations downloads the three ocean lists concurrently.
func fetchAllStations(ctx context.Context, fetcher uhslc.Fetcher, logger *slog.Logger) ([]Station, error) {
	lists := make([][]uhslc.ListEntry, len(uhslc.Oceans))
	g, gctx := errgroup.WithContext(ctx)
	for i, ocean := range uhslc.Oceans {
		i, ocean := i, ocean
		g.Go(func() error {
			entries, err := uhslc.StationList(gctx, fetcher, ocean)
			if err != nil {
				return fmt.Errorf("%s: %w", ocean, err)
			}
			lists[i] = entries
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var stations []Station
	for _, entries := range lists {
		for _, e := range entries {
			s, err := FromListEntry(e)
			if err != nil {
				logger.Warn("skipping station", "index", e.Index, "name", e.Name, "error", err)
				continue
			}
			stations = append(stations, s)
		}
	}
	return stations, nil
}

// FromListEntry converts a parsed station list line.
func FromListEntry(e uhslc.ListEntry) (Station, error) {
	ocean, err := e.Ocean()
	if err != nil {
		return Station{}, err
	}
	lat, lon, err := uhslc.DegreesToDecimal(e.Lat, e.Lon)
	if err != nil {
		return Station{}, err
	}
	last, err := e.LastYear()
	if err != nil {
		return Station{}, err
	}
	return Station{
		Code:        e.Code(),
		Index:       e.Index,
		Ocean:       ocean,
		Name:        e.Name,
		Country:     e.Country,
		Contributor: e.Contributor,
		Latitude:    lat,
		Longitude:   lon,
		DataYears:   e.DataYears,
		LastYear:    last,
	}, nil
}

// buildStationsDatabase creates the tide_stations table and inserts stations
func buildStationsDatabase(db *sql.DB, stations []Station, refresh bool, logger *slog.Logger) (int, error) {
	if refresh {
		if _, err := db.Exec("DROP TABLE IF EXISTS tide_stations"); err != nil {
			return 0, fmt.Errorf("dropping tide_stations table: %w", err)
		}
	}
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS tide_stations (
			code TEXT PRIMARY KEY,
			idx TEXT NOT NULL,
			ocean TEXT NOT NULL,
			name TEXT NOT NULL,
			country TEXT,
			contributor TEXT,
			latitude REAL NOT NULL,
			longitude REAL NOT NULL,
			data_years TEXT,
			last_year INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_tide_stations_coords ON tide_stations(latitude, longitude);
		CREATE INDEX IF NOT EXISTS idx_tide_stations_name ON tide_stations(name);
	`)
	if err != nil {
		return 0, fmt.Errorf("creating tide_stations table: %w", err)
	}

	tx, err := db.Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback() // Rollback on error

	stmt, err := tx.Prepare(`
		INSERT OR REPLACE INTO tide_stations
			(code, idx, ocean, name, country, contributor, latitude, longitude, data_years, last_year)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	count := 0
	for _, s := range stations {
		_, err = stmt.Exec(s.Code, s.Index, s.Ocean, s.Name, s.Country, s.Contributor,
			s.Latitude, s.Longitude, s.DataYears, s.LastYear)
		if err != nil {
			logger.Warn("inserting station", "code", s.Code, "error", err)
			continue
		}
		count++
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing transaction: %w", err)
	}
	return count, nil
}
