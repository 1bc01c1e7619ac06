package zonelookup

import (
	"archive/zip"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/jonas-p/go-shp"
	_ "modernc.org/sqlite"

	"github.com/ngmaloney/tide-terminal/internal/logging"
)

const (
	// DefaultBoundaryURL points at the time zone boundary shapefile that
	// also covers territorial waters and open ocean.
	DefaultBoundaryURL = "https://github.com/evansiroky/timezone-boundary-builder/releases/download/2025b/timezones-with-oceans.shapefile.zip"
	shapefileBase      = "combined-shapefile-with-oceans"
)

// NeedsProvisioning reports whether the time_zones table is missing.
func NeedsProvisioning(db *sql.DB) (bool, error) {
	var count int
	err := db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='time_zones'").Scan(&count)
	if err != nil {
		return false, fmt.Errorf("checking for time_zones table: %w", err)
	}
	return count == 0, nil
}

// ProvisionDatabase downloads the boundary shapefile from sourceURL and loads
// it into the time_zones table of db. It does nothing when the table exists.
func ProvisionDatabase(ctx context.Context, db *sql.DB, dataDir, sourceURL string, logger *slog.Logger) error {
	if logger == nil {
		logger = logging.Discard()
	}
	needs, err := NeedsProvisioning(db)
	if err != nil {
		return err
	}
	if !needs {
		return nil
	}
	if sourceURL == "" {
		sourceURL = DefaultBoundaryURL
	}

	logger.Info("time zone table not found, provisioning", "source", sourceURL)
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}

	zipPath := filepath.Join(dataDir, shapefileBase+".zip")
	if err := downloadFile(ctx, zipPath, sourceURL); err != nil {
		return fmt.Errorf("downloading shapefile: %w", err)
	}
	defer os.Remove(zipPath)

	extractDir := filepath.Join(dataDir, "tz-shapefile")
	if err := unzipFile(zipPath, extractDir); err != nil {
		return fmt.Errorf("extracting shapefile: %w", err)
	}
	defer os.RemoveAll(extractDir)

	shapefilePath, err := findShapefile(extractDir)
	if err != nil {
		return err
	}
	count, err := BuildDatabase(shapefilePath, db, logger)
	if err != nil {
		return fmt.Errorf("building database: %w", err)
	}
	logger.Info("provisioned time zone boundaries", "polygons", count)
	return nil
}

// downloadFile downloads a file from a URL to a local path
func downloadFile(ctx context.Context, path, url string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("bad status: %s", resp.Status)
	}

	out, err := os.Create(path)
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = io.Copy(out, resp.Body)
	return err
}

// unzipFile extracts a zip file to a destination directory
func unzipFile(src, dest string) error {
	r, err := zip.OpenReader(src)
	if err != nil {
		return err
	}
	defer r.Close()

	for _, f := range r.File {
		fpath := filepath.Join(dest, f.Name)

		// Check for ZipSlip vulnerability
		if !strings.HasPrefix(fpath, filepath.Clean(dest)+string(os.PathSeparator)) {
			return fmt.Errorf("illegal file path: %s", fpath)
		}

		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(fpath, 0755); err != nil {
				return err
			}
			continue
		}
		if err := os.MkdirAll(filepath.Dir(fpath), 0755); err != nil {
			return err
		}
		if err := extractFile(f, fpath); err != nil {
			return err
		}
	}
	return nil
}

func extractFile(f *zip.File, path string) error {
	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()

	out, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, rc); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

func findShapefile(dir string) (string, error) {
	var found string
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.EqualFold(filepath.Ext(path), ".shp") {
			found = path
			return filepath.SkipAll
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("searching for shapefile: %w", err)
	}
	if found == "" {
		return "", fmt.Errorf("no .shp file in %s", dir)
	}
	return found, nil
}

// BuildDatabase creates the time_zones table from a boundary shapefile. Each
// ring of a polygon is stored as its own row with its bounding box, so a
// point lookup only tests the rings whose box contains it.
func BuildDatabase(shapefilePath string, db *sql.DB, logger *slog.Logger) (int, error) {
	if logger == nil {
		logger = logging.Discard()
	}
	shape, err := shp.Open(shapefilePath)
	if err != nil {
		return 0, fmt.Errorf("opening shapefile: %w", err)
	}
	defer shape.Close()

	tzField := -1
	for i, f := range shape.Fields() {
		if strings.EqualFold(f.String(), "tzid") {
			tzField = i
			break
		}
	}
	if tzField < 0 {
		return 0, fmt.Errorf("shapefile %s has no tzid field", shapefilePath)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS time_zones (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			tzid TEXT NOT NULL,
			geometry TEXT NOT NULL,
			bbox_min_lat REAL NOT NULL,
			bbox_max_lat REAL NOT NULL,
			bbox_min_lon REAL NOT NULL,
			bbox_max_lon REAL NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_time_zones_bbox ON time_zones(
			bbox_min_lat, bbox_max_lat, bbox_min_lon, bbox_max_lon
		);
	`)
	if err != nil {
		return 0, fmt.Errorf("creating time_zones table: %w", err)
	}

	tx, err := db.Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO time_zones (tzid, geometry, bbox_min_lat, bbox_max_lat, bbox_min_lon, bbox_max_lon)
		VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	count := 0
	for shape.Next() {
		n, p := shape.Shape()
		polygon, ok := p.(*shp.Polygon)
		if !ok {
			continue
		}
		tzid := strings.Trim(shape.ReadAttribute(n, tzField), "\x00 ")

		for _, ring := range rings(polygon) {
			geometryJSON, err := json.Marshal(ring)
			if err != nil {
				return count, fmt.Errorf("marshaling geometry for %s: %w", tzid, err)
			}
			box := boundsOf(ring)
			if _, err := stmt.Exec(tzid, string(geometryJSON), box.minLat, box.maxLat, box.minLon, box.maxLon); err != nil {
				return count, fmt.Errorf("inserting %s: %w", tzid, err)
			}
			count++
			if count%1000 == 0 {
				logger.Debug("processing time zone rings", "count", count)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return count, fmt.Errorf("committing transaction: %w", err)
	}
	return count, nil
}

// rings splits a polygon into its outer rings as [lon, lat] pairs. Outer
// rings run clockwise and holes counter-clockwise; holes are dropped since
// whatever fills them is stored as a ring of its own. A polygon without any
// clockwise ring keeps all of its rings.
func rings(polygon *shp.Polygon) [][][2]float64 {
	var outer, holes [][][2]float64
	for partIdx := range polygon.Parts {
		startIdx := int(polygon.Parts[partIdx])
		endIdx := len(polygon.Points)
		if partIdx+1 < len(polygon.Parts) {
			endIdx = int(polygon.Parts[partIdx+1])
		}
		ring := make([][2]float64, 0, endIdx-startIdx)
		for _, point := range polygon.Points[startIdx:endIdx] {
			ring = append(ring, [2]float64{point.X, point.Y})
		}
		if len(ring) < 3 {
			continue
		}
		if signedArea(ring) > 0 {
			holes = append(holes, ring)
		} else {
			outer = append(outer, ring)
		}
	}
	if len(outer) == 0 {
		return holes
	}
	return outer
}

// signedArea is the shoelace area of a [lon, lat] ring, positive when the
// ring runs counter-clockwise.
func signedArea(ring [][2]float64) float64 {
	var sum float64
	for i := range ring {
		j := (i + 1) % len(ring)
		sum += ring[i][0]*ring[j][1] - ring[j][0]*ring[i][1]
	}
	return sum / 2
}
