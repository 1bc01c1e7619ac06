// Package tidetime converts between the station-local wall clock that users
// type and read and the UTC instants the harmonic engine works in.
package tidetime

import (
	"errors"
	"fmt"
	"strings"
	"time"
	_ "time/tzdata" // embedded zoneinfo

	"github.com/jonboulle/clockwork"

	"github.com/ngmaloney/tide-terminal/internal/harmonics"
)

// Layout is the only accepted local time format.
const Layout = "2006-01-02 15:04"

// DefaultSpan is the prediction length used when no end time is given.
const DefaultSpan = 72 * time.Hour

var (
	ErrInvalidTimeFormat = errors.New("invalid time format")
	ErrUnknownTimeZone   = errors.New("unknown time zone")
)

// Normalizer turns local begin/end strings into UTC prediction windows.
type Normalizer struct {
	defaultSpan time.Duration
	clock       clockwork.Clock
}

// Option configures a Normalizer.
type Option func(*Normalizer)

// WithDefaultSpan sets the window length used when the end is omitted.
func WithDefaultSpan(d time.Duration) Option {
	return func(n *Normalizer) {
		if d > 0 {
			n.defaultSpan = d
		}
	}
}

// WithClock replaces the clock used when the start is omitted.
func WithClock(c clockwork.Clock) Option {
	return func(n *Normalizer) {
		if c != nil {
			n.clock = c
		}
	}
}

func NewNormalizer(opts ...Option) *Normalizer {
	n := &Normalizer{defaultSpan: DefaultSpan, clock: clockwork.NewRealClock()}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// DefaultSpan returns the window length used when the end is omitted.
func (n *Normalizer) DefaultSpan() time.Duration {
	return n.defaultSpan
}

// ToUTCWindow parses localStart and localEnd as wall clock times in zoneID.
// An empty localStart means now; an empty localEnd means start plus the
// default span.
func (n *Normalizer) ToUTCWindow(localStart, localEnd, zoneID string) (harmonics.Window, error) {
	loc, err := LoadZone(zoneID)
	if err != nil {
		return harmonics.Window{}, err
	}

	var start time.Time
	if strings.TrimSpace(localStart) == "" {
		start = n.clock.Now().In(loc).Truncate(time.Minute)
	} else if start, err = parseLocal(localStart, loc); err != nil {
		return harmonics.Window{}, err
	}

	end := start.Add(n.defaultSpan)
	if strings.TrimSpace(localEnd) != "" {
		if end, err = parseLocal(localEnd, loc); err != nil {
			return harmonics.Window{}, err
		}
	}
	return harmonics.NewWindow(start.UTC(), end.UTC())
}

// Localize converts t to zoneID, rounded to the nearest minute. Exactly 30
// seconds rounds up.
func Localize(t time.Time, zoneID string) (time.Time, error) {
	loc, err := LoadZone(zoneID)
	if err != nil {
		return time.Time{}, err
	}
	return LocalizeIn(t, loc), nil
}

// LocalizeIn is Localize for an already loaded location.
func LocalizeIn(t time.Time, loc *time.Location) time.Time {
	return t.In(loc).Round(time.Minute)
}

// LoadZone resolves an IANA zone ID. The empty string is rejected rather
// than treated as UTC.
func LoadZone(zoneID string) (*time.Location, error) {
	zoneID = strings.TrimSpace(zoneID)
	if zoneID == "" {
		return nil, fmt.Errorf("%w: empty zone id", ErrUnknownTimeZone)
	}
	loc, err := time.LoadLocation(zoneID)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTimeZone, zoneID)
	}
	return loc, nil
}

func parseLocal(s string, loc *time.Location) (time.Time, error) {
	t, err := time.ParseInLocation(Layout, strings.TrimSpace(s), loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q, want YYYY-MM-DD HH:MM", ErrInvalidTimeFormat, s)
	}
	return t, nil
}
