// Package zonelookup resolves the IANA time zone of a coordinate from time
// zone boundary polygons stored in SQLite.
package zonelookup

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"math"

	_ "modernc.org/sqlite"
)

// HaversineDistance calculates distance in kilometres between two lat/lon points
func HaversineDistance(lat1, lon1, lat2, lon2 float64) float64 {
	const earthRadiusKm = 6371.0

	// Convert to radians
	lat1Rad := lat1 * math.Pi / 180
	lat2Rad := lat2 * math.Pi / 180
	deltaLat := (lat2 - lat1) * math.Pi / 180
	deltaLon := (lon2 - lon1) * math.Pi / 180

	// Haversine formula
	a := math.Sin(deltaLat/2)*math.Sin(deltaLat/2) +
		math.Cos(lat1Rad)*math.Cos(lat2Rad)*
			math.Sin(deltaLon/2)*math.Sin(deltaLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusKm * c
}

type bounds struct {
	minLat, maxLat, minLon, maxLon float64
}

func boundsOf(ring [][2]float64) bounds {
	b := bounds{minLat: math.Inf(1), maxLat: math.Inf(-1), minLon: math.Inf(1), maxLon: math.Inf(-1)}
	for _, p := range ring {
		b.minLon = math.Min(b.minLon, p[0])
		b.maxLon = math.Max(b.maxLon, p[0])
		b.minLat = math.Min(b.minLat, p[1])
		b.maxLat = math.Max(b.maxLat, p[1])
	}
	return b
}

func (b bounds) area() float64 {
	return (b.maxLat - b.minLat) * (b.maxLon - b.minLon)
}

// contains is the even-odd ray casting test on [lon, lat] vertices.
func contains(ring [][2]float64, lat, lon float64) bool {
	inside := false
	for i, j := 0, len(ring)-1; i < len(ring); j, i = i, i+1 {
		xi, yi := ring[i][0], ring[i][1]
		xj, yj := ring[j][0], ring[j][1]
		if (yi > lat) != (yj > lat) && lon < (xj-xi)*(lat-yi)/(yj-yi)+xi {
			inside = !inside
		}
	}
	return inside
}

// Lookup returns the time zone whose boundary contains the point. Enclaves
// are stored as separate rings inside their surrounding zone, so the ring
// with the smallest bounding box wins. ok is false when no ring matches or
// the table has not been provisioned.
func Lookup(db *sql.DB, lat, lon float64) (tzid string, ok bool, err error) {
	if db == nil {
		return "", false, nil
	}
	needs, err := NeedsProvisioning(db)
	if err != nil || needs {
		return "", false, err
	}

	rows, err := db.Query(`
		SELECT tzid, geometry, bbox_min_lat, bbox_max_lat, bbox_min_lon, bbox_max_lon
		FROM time_zones
		WHERE ? BETWEEN bbox_min_lat AND bbox_max_lat
		  AND ? BETWEEN bbox_min_lon AND bbox_max_lon
	`, lat, lon)
	if err != nil {
		return "", false, fmt.Errorf("querying time zones: %w", err)
	}
	defer rows.Close()

	bestArea := math.Inf(1)
	for rows.Next() {
		var id, geometry string
		var b bounds
		if err := rows.Scan(&id, &geometry, &b.minLat, &b.maxLat, &b.minLon, &b.maxLon); err != nil {
			return "", false, fmt.Errorf("scanning time zone: %w", err)
		}
		var ring [][2]float64
		if err := json.Unmarshal([]byte(geometry), &ring); err != nil {
			return "", false, fmt.Errorf("decoding geometry of %s: %w", id, err)
		}
		if contains(ring, lat, lon) && b.area() < bestArea {
			tzid, bestArea, ok = id, b.area(), true
		}
	}
	return tzid, ok, rows.Err()
}

// NauticalZone returns the fixed offset Etc zone for a longitude, as used at
// sea: UTC offset round(lon / 15) hours. Etc zone names invert the sign.
func NauticalZone(lon float64) string {
	offset := int(math.Round(lon / 15))
	switch {
	case offset > 0:
		return fmt.Sprintf("Etc/GMT-%d", offset)
	case offset < 0:
		return fmt.Sprintf("Etc/GMT+%d", -offset)
	}
	return "Etc/GMT"
}

// Resolve returns the boundary zone of a point, or its nautical zone when
// the point is not covered.
func Resolve(db *sql.DB, lat, lon float64) (string, error) {
	tzid, ok, err := Lookup(db, lat, lon)
	if err != nil {
		return "", err
	}
	if !ok {
		return NauticalZone(lon), nil
	}
	return tzid, nil
}
