// Package predictor ties station lookup, harmonic generation and prediction
// together for the command line, the TUI and the HTTP server.
package predictor

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/errgroup"

	"github.com/ngmaloney/tide-terminal/internal/config"
	"github.com/ngmaloney/tide-terminal/internal/database"
	"github.com/ngmaloney/tide-terminal/internal/geocoding"
	"github.com/ngmaloney/tide-terminal/internal/harmdata"
	"github.com/ngmaloney/tide-terminal/internal/harmonics"
	"github.com/ngmaloney/tide-terminal/internal/logging"
	"github.com/ngmaloney/tide-terminal/internal/models"
	"github.com/ngmaloney/tide-terminal/internal/report"
	"github.com/ngmaloney/tide-terminal/internal/stations"
	"github.com/ngmaloney/tide-terminal/internal/tidetime"
	"github.com/ngmaloney/tide-terminal/internal/uhslc"
	"github.com/ngmaloney/tide-terminal/internal/zonelookup"
)

// ErrNoHarmonics is returned when a station has not been through genharm.
var ErrNoHarmonics = errors.New("harmonics data not found; use genharm to generate harmonics for this location")

// fitYears is how many of the most recent archive years genharm fits.
const fitYears = 2

// Geocoder resolves place names for NearPlace.
type Geocoder interface {
	Geocode(ctx context.Context, query string) (*geocoding.Location, error)
}

// Service is safe for concurrent use.
type Service struct {
	cfg        *config.Config
	db         *sql.DB
	fetcher    uhslc.Fetcher
	geocoder   Geocoder
	normalizer *tidetime.Normalizer
	clock      clockwork.Clock
	log        *slog.Logger

	// fileMu serialises read-modify-write cycles of the harmonics file.
	fileMu sync.Mutex
}

// Option configures a Service.
type Option func(*Service)

func WithClock(c clockwork.Clock) Option {
	return func(s *Service) { s.clock = c }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.log = l }
}

// WithGeocoder enables place name searches.
func WithGeocoder(g Geocoder) Option {
	return func(s *Service) { s.geocoder = g }
}

// New creates a Service. fetcher may be nil when no downloads are needed.
func New(cfg *config.Config, db *sql.DB, fetcher uhslc.Fetcher, opts ...Option) *Service {
	s := &Service{
		cfg:     cfg,
		db:      db,
		fetcher: fetcher,
		clock:   clockwork.NewRealClock(),
		log:     logging.Discard(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.normalizer = tidetime.NewNormalizer(
		tidetime.WithDefaultSpan(cfg.DefaultSpan),
		tidetime.WithClock(s.clock),
	)
	return s
}

// Config returns the configuration the service was built with.
func (s *Service) Config() *config.Config { return s.cfg }

// EnsureStations provisions the station table when it is empty, or
// rebuilds it when refresh is set.
func (s *Service) EnsureStations(ctx context.Context, refresh bool, progress chan<- string) error {
	if s.fetcher == nil {
		return fmt.Errorf("no station source configured")
	}
	return stations.ProvisionStationsDatabase(ctx, s.db, s.fetcher, stations.ProvisionOptions{
		Refresh:  refresh,
		Progress: progress,
		Logger:   s.log,
	})
}

// NeedsStations reports whether the station table must be provisioned.
func (s *Service) NeedsStations() (bool, error) {
	return stations.NeedsProvisioning(s.db)
}

// SearchStations returns every station matching query by code or name. No
// match yields an empty slice.
func (s *Service) SearchStations(query string) ([]stations.Station, error) {
	st, err := s.FindStation(query)
	var ambiguous *stations.AmbiguousError
	switch {
	case err == nil:
		return []stations.Station{*st}, nil
	case errors.As(err, &ambiguous):
		return ambiguous.Matches, nil
	case errors.Is(err, stations.ErrStationNotFound):
		return []stations.Station{}, nil
	}
	return nil, err
}

// FindStation resolves a station by code ("h551a") or by name.
func (s *Service) FindStation(query string) (*stations.Station, error) {
	q := strings.TrimSpace(query)
	if looksLikeCode(q) {
		if st, err := stations.GetStationByCode(s.db, q); err == nil {
			return st, nil
		}
	}
	return stations.FindByName(s.db, q)
}

func looksLikeCode(q string) bool {
	if len(q) < 4 || (q[0] != 'h' && q[0] != 'H') {
		return false
	}
	_, err := strconv.Atoi(q[1:4])
	return err == nil
}

// Stations lists every known station.
func (s *Service) Stations() ([]stations.Station, error) {
	return stations.ListStations(s.db)
}

// Nearest returns stations within maxKm of a point.
func (s *Service) Nearest(lat, lon, maxKm float64) ([]stations.StationDistance, error) {
	return stations.FindNearbyStations(s.db, lat, lon, maxKm)
}

// NearPlace geocodes a place name and returns the stations within maxKm of
// it, nearest first.
func (s *Service) NearPlace(ctx context.Context, place string, maxKm float64) (*geocoding.Location, []stations.StationDistance, error) {
	if s.geocoder == nil {
		return nil, nil, fmt.Errorf("place search is not configured")
	}
	loc, err := s.geocoder.Geocode(ctx, place)
	if err != nil {
		return nil, nil, fmt.Errorf("geocoding %q: %w", place, err)
	}
	near, err := s.Nearest(loc.Latitude, loc.Longitude, maxKm)
	if err != nil {
		return nil, nil, err
	}
	return loc, near, nil
}

// Harmonics loads the harmonics file.
func (s *Service) Harmonics() (harmdata.File, error) {
	return harmdata.Load(s.cfg.HarmonicsPath())
}

// Model returns the stored model of a station and its record.
func (s *Service) Model(code string) (*harmonics.Model, harmdata.Record, error) {
	f, err := s.Harmonics()
	if err != nil {
		return nil, harmdata.Record{}, err
	}
	rec, err := f.Get(strings.ToLower(code))
	if err != nil {
		return nil, harmdata.Record{}, fmt.Errorf("%s: %w", code, ErrNoHarmonics)
	}
	m, err := rec.Model(s.cfg.Epoch)
	if err != nil {
		return nil, harmdata.Record{}, fmt.Errorf("reconstructing model for %s: %w", code, err)
	}
	return m, rec, nil
}

// GenerateHarmonics fits a model to the two most recent years in the hourly
// archive of st and stores it in the harmonics file.
func (s *Service) GenerateHarmonics(ctx context.Context, st *stations.Station) (harmdata.Record, error) {
	if s.fetcher == nil {
		return harmdata.Record{}, fmt.Errorf("no data source configured")
	}
	log := s.log.With("station", st.Code, "name", st.Name)
	log.Info("downloading hourly data", "ocean", st.Ocean, "last_year", st.LastYear)

	obs, years, err := uhslc.Hourly(ctx, s.fetcher, st.Ocean, st.Code, st.LastYear, fitYears)
	if err != nil {
		return harmdata.Record{}, fmt.Errorf("downloading data for %s: %w", st.Code, err)
	}

	log.Info("fitting harmonic model", "years", years, "observations", len(obs))
	m, err := harmonics.Decompose(obs, harmonics.Standard(), harmonics.WithEpoch(s.cfg.Epoch))
	if err != nil {
		return harmdata.Record{}, fmt.Errorf("fitting %s: %w", st.Code, err)
	}

	zone, err := zonelookup.Resolve(s.db, st.Latitude, st.Longitude)
	if err != nil {
		return harmdata.Record{}, fmt.Errorf("resolving time zone: %w", err)
	}

	rec := harmdata.Record{
		Lat:         st.Latitude,
		Lon:         st.Longitude,
		TZone:       zone,
		Name:        st.Name,
		Country:     st.Country,
		Contributor: st.Contributor,
		Version:     harmdata.Version,
	}
	rec.SetModel(m)

	if err := s.storeRecord(st.Code, rec); err != nil {
		return harmdata.Record{}, err
	}

	fit := database.Fit{
		StationCode:  st.Code,
		Years:        joinYears(years),
		Observations: len(obs),
		Constituents: m.Len(),
		RMSResidual:  rmsResidual(m, obs),
		FittedAt:     s.clock.Now(),
	}
	if err := database.RecordFit(s.db, fit); err != nil {
		log.Warn("recording fit history", "error", err)
	}
	log.Info("stored harmonics", "time_zone", zone, "rms_residual", fit.RMSResidual)
	return rec, nil
}

func joinYears(years []int) string {
	parts := make([]string, len(years))
	for i, y := range years {
		parts[i] = strconv.Itoa(y)
	}
	return strings.Join(parts, ",")
}

func (s *Service) storeRecord(code string, rec harmdata.Record) error {
	s.fileMu.Lock()
	defer s.fileMu.Unlock()

	f, err := s.Harmonics()
	if err != nil {
		return err
	}
	f[code] = rec
	return harmdata.Save(s.cfg.HarmonicsPath(), f)
}

func rmsResidual(m *harmonics.Model, obs []harmonics.Observation) float64 {
	if len(obs) == 0 {
		return 0
	}
	var sum float64
	for _, o := range obs {
		d := o.Height - m.At(o.Time)
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(obs)))
}

// Prediction is the result of Predict.
type Prediction struct {
	Data     *models.TideData
	Location *time.Location
	Window   harmonics.Window
}

// Predict finds the high and low tides of a station between two local wall
// clock times in the station's zone. Empty begin means now; empty end means
// begin plus the configured default span.
func (s *Service) Predict(code, begin, end string) (*Prediction, error) {
	m, rec, err := s.Model(code)
	if err != nil {
		return nil, err
	}
	loc, err := tidetime.LoadZone(rec.TZone)
	if err != nil {
		return nil, err
	}
	w, err := s.normalizer.ToUTCWindow(begin, end, rec.TZone)
	if err != nil {
		return nil, err
	}
	events, err := harmonics.FindExtrema(m, w,
		harmonics.WithSampleStep(s.cfg.SampleStep),
		harmonics.WithRootTolerance(s.cfg.RootTolerance))
	if err != nil {
		return nil, err
	}
	return &Prediction{
		Data: &models.TideData{
			StationCode: strings.ToLower(code),
			StationName: rec.Name,
			TimeZone:    rec.TZone,
			Events:      events,
			GeneratedAt: s.clock.Now(),
		},
		Location: loc,
		Window:   w,
	}, nil
}

// PredictAll runs Predict for every station in the harmonics file
// concurrently. Results are ordered by station code.
func (s *Service) PredictAll(ctx context.Context, begin, end string) ([]*Prediction, error) {
	f, err := s.Harmonics()
	if err != nil {
		return nil, err
	}
	codes := f.Codes()
	out := make([]*Prediction, len(codes))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(8)
	for i, code := range codes {
		i, code := i, code
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			p, err := s.Predict(code, begin, end)
			if err != nil {
				return fmt.Errorf("%s: %w", code, err)
			}
			out[i] = p
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Data.StationCode < out[j].Data.StationCode })
	return out, nil
}

// Curve samples the water level of a station over the configured graph span
// starting at begin (local wall clock; empty means now).
func (s *Service) Curve(code, begin string) ([]report.Point, error) {
	m, rec, err := s.Model(code)
	if err != nil {
		return nil, err
	}
	w, err := s.normalizer.ToUTCWindow(begin, "", rec.TZone)
	if err != nil {
		return nil, err
	}
	w.End = w.Start.Add(s.cfg.GraphSpan)
	return report.Series(m, w, report.DefaultSeriesStep)
}
