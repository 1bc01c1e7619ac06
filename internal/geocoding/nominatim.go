// Package geocoding resolves place names to coordinates with the
// OpenStreetMap Nominatim search API.
package geocoding

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

const (
	DefaultURL = "https://nominatim.openstreetmap.org/search"
	userAgent  = "tidepredict/1.0" // Required by Nominatim ToS
)

// ErrNoResults is returned when Nominatim knows no place matching a query.
var ErrNoResults = errors.New("no results found")

// Location represents a geocoded location
type Location struct {
	Latitude  float64
	Longitude float64
	Name      string
}

// Geocoder converts place names to coordinates. Calls are spaced at least
// one second apart as the Nominatim usage policy requires.
type Geocoder struct {
	baseURL    string
	httpClient *http.Client
	clock      clockwork.Clock

	mu       sync.Mutex
	lastCall time.Time
}

// Option configures a Geocoder.
type Option func(*Geocoder)

// WithBaseURL points the geocoder at another Nominatim instance.
func WithBaseURL(u string) Option {
	return func(g *Geocoder) { g.baseURL = u }
}

func WithClock(c clockwork.Clock) Option {
	return func(g *Geocoder) { g.clock = c }
}

// NewGeocoder creates a new geocoder
func NewGeocoder(opts ...Option) *Geocoder {
	g := &Geocoder{
		baseURL: DefaultURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		clock: clockwork.NewRealClock(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// nominatimResponse represents the Nominatim API response
type nominatimResponse struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
}

// Geocode returns the best match for a free form place name such as
// "Christchurch, New Zealand".
func (g *Geocoder) Geocode(ctx context.Context, query string) (*Location, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("query cannot be empty")
	}

	params := url.Values{}
	params.Add("format", "json")
	params.Add("limit", "1")
	params.Add("q", query)
	reqURL := fmt.Sprintf("%s?%s", g.baseURL, params.Encode())

	if err := g.wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("nominatim API returned status %d", resp.StatusCode)
	}

	var results []nominatimResponse
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	if len(results) == 0 {
		return nil, fmt.Errorf("%w for '%s'", ErrNoResults, query)
	}

	result := results[0]
	lat, err := strconv.ParseFloat(result.Lat, 64)
	if err != nil {
		return nil, fmt.Errorf("parsing latitude: %w", err)
	}
	lon, err := strconv.ParseFloat(result.Lon, 64)
	if err != nil {
		return nil, fmt.Errorf("parsing longitude: %w", err)
	}

	return &Location{
		Latitude:  lat,
		Longitude: lon,
		Name:      result.DisplayName,
	}, nil
}

// wait blocks until a second has passed since the previous call.
func (g *Geocoder) wait(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.lastCall.IsZero() {
		if d := time.Second - g.clock.Since(g.lastCall); d > 0 {
			select {
			case <-g.clock.After(d):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
	g.lastCall = g.clock.Now()
	return nil
}
