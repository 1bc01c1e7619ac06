package stations

import (
	"database/sql"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/ngmaloney/tide-terminal/internal/zonelookup"
)

// ErrStationNotFound is returned when no station matches a query.
var ErrStationNotFound = errors.New("station not found")

// AmbiguousError is returned by FindByName when several stations match.
type AmbiguousError struct {
	Query   string
	Matches []Station
}

func (e *AmbiguousError) Error() string {
	names := make([]string, len(e.Matches))
	for i, s := range e.Matches {
		names[i] = fmt.Sprintf("%s (%s)", s.Name, s.Country)
	}
	return fmt.Sprintf("station name %q ambiguous, the following stations were found: %s",
		e.Query, strings.Join(names, ", "))
}

// StationDistance is a station with its distance from a search point.
type StationDistance struct {
	Station
	Distance float64 // kilometres
}

const selectColumns = `code, idx, ocean, name, country, contributor, latitude, longitude, data_years, last_year`

func scanStation(row interface{ Scan(...any) error }) (Station, error) {
	var s Station
	var country, contributor, years sql.NullString
	err := row.Scan(&s.Code, &s.Index, &s.Ocean, &s.Name, &country, &contributor,
		&s.Latitude, &s.Longitude, &years, &s.LastYear)
	s.Country, s.Contributor, s.DataYears = country.String, contributor.String, years.String
	return s, err
}

func queryStations(db *sql.DB, query string, args ...any) ([]Station, error) {
	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying stations: %w", err)
	}
	defer rows.Close()

	var out []Station
	for rows.Next() {
		s, err := scanStation(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning station: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// ListStations returns every station ordered by name.
func ListStations(db *sql.DB) ([]Station, error) {
	return queryStations(db, "SELECT "+selectColumns+" FROM tide_stations ORDER BY name, code")
}

// FindByName returns the single station whose name contains query, ignoring
// case. When several match, an exact name match is preferred; otherwise an
// *AmbiguousError lists the candidates.
func FindByName(db *sql.DB, query string) (*Station, error) {
	q := strings.TrimSpace(query)
	if q == "" {
		return nil, fmt.Errorf("%w: empty name", ErrStationNotFound)
	}
	matches, err := queryStations(db,
		"SELECT "+selectColumns+" FROM tide_stations WHERE instr(lower(name), lower(?)) > 0 ORDER BY name, code", q)
	if err != nil {
		return nil, err
	}
	switch len(matches) {
	case 0:
		return nil, fmt.Errorf("%w: %q", ErrStationNotFound, query)
	case 1:
		return &matches[0], nil
	}

	var exact []Station
	for _, s := range matches {
		if strings.EqualFold(s.Name, q) {
			exact = append(exact, s)
		}
	}
	if len(exact) == 1 {
		return &exact[0], nil
	}
	return nil, &AmbiguousError{Query: query, Matches: matches}
}

// GetStationByCode retrieves a single station by its code, e.g. "h551a".
func GetStationByCode(db *sql.DB, code string) (*Station, error) {
	s, err := scanStation(db.QueryRow(
		"SELECT "+selectColumns+" FROM tide_stations WHERE code = ?", strings.ToLower(code)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrStationNotFound, code)
	}
	if err != nil {
		return nil, fmt.Errorf("querying station by code: %w", err)
	}
	return &s, nil
}

// FindNearbyStations finds stations within maxDistanceKm of the given
// coordinates, nearest first.
func FindNearbyStations(db *sql.DB, lat, lon, maxDistanceKm float64) ([]StationDistance, error) {
	// Use a bounding box to initially filter stations.
	// One degree of latitude is about 111 km; add a 50% margin.
	latDelta := maxDistanceKm / 111.0 * 1.5
	lonDelta := 360.0
	if c := math.Cos(lat * math.Pi / 180); c > 0.01 {
		lonDelta = math.Min(maxDistanceKm/(111.0*c)*1.5, 360)
	}

	candidates, err := queryStations(db,
		"SELECT "+selectColumns+` FROM tide_stations
		WHERE latitude BETWEEN ? AND ?
		  AND (longitude BETWEEN ? AND ? OR longitude BETWEEN ? AND ? OR longitude BETWEEN ? AND ?)`,
		lat-latDelta, lat+latDelta,
		lon-lonDelta, lon+lonDelta,
		lon-lonDelta+360, lon+lonDelta+360,
		lon-lonDelta-360, lon+lonDelta-360)
	if err != nil {
		return nil, err
	}

	var nearby []StationDistance
	for _, s := range candidates {
		distance := zonelookup.HaversineDistance(lat, lon, s.Latitude, s.Longitude)
		if distance <= maxDistanceKm {
			nearby = append(nearby, StationDistance{Station: s, Distance: distance})
		}
	}
	if len(nearby) == 0 {
		return nil, fmt.Errorf("%w near %.4f, %.4f within %.1f km", ErrStationNotFound, lat, lon, maxDistanceKm)
	}

	// Sort by distance to find the nearest
	sort.Slice(nearby, func(i, j int) bool {
		return nearby[i].Distance < nearby[j].Distance
	})
	return nearby, nil
}
