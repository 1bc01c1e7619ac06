package harmonics

import (
	"time"

	"github.com/ngmaloney/tide-terminal/internal/models"
)

const (
	DefaultSampleStep    = 30 * time.Second
	DefaultRootTolerance = time.Millisecond

	maxBisections = 100
)

// Window is the half-open interval [Start, End) searched for extrema.
type Window struct {
	Start time.Time
	End   time.Time
}

// NewWindow returns a window or ErrInvalidWindow when end is not after start.
func NewWindow(start, end time.Time) (Window, error) {
	w := Window{Start: start, End: end}
	return w, w.Validate()
}

// Validate reports ErrInvalidWindow when End is not after Start.
func (w Window) Validate() error {
	if !w.End.After(w.Start) {
		return errorf(ErrInvalidWindow, "end %s is not after start %s",
			w.End.UTC().Format(time.RFC3339), w.Start.UTC().Format(time.RFC3339))
	}
	return nil
}

// Span returns End - Start.
func (w Window) Span() time.Duration {
	return w.End.Sub(w.Start)
}

type extremaConfig struct {
	step      time.Duration
	tolerance time.Duration
}

// ExtremaOption configures FindExtrema.
type ExtremaOption func(*extremaConfig)

// WithSampleStep sets the spacing of derivative samples. Non-positive values
// are ignored.
func WithSampleStep(d time.Duration) ExtremaOption {
	return func(c *extremaConfig) {
		if d > 0 {
			c.step = d
		}
	}
}

// WithRootTolerance sets the width below which bisection stops. Non-positive
// values are ignored.
func WithRootTolerance(d time.Duration) ExtremaOption {
	return func(c *extremaConfig) {
		if d > 0 {
			c.tolerance = d
		}
	}
}

// FindExtrema returns the high and low tides of m inside w in chronological
// order. Highs and lows strictly alternate. A turning point that the window
// boundary cuts off is not reported. Event times are UTC.
func FindExtrema(m *Model, w Window, opts ...ExtremaOption) ([]models.TideEvent, error) {
	if err := w.Validate(); err != nil {
		return nil, err
	}
	events := []models.TideEvent{}
	if m == nil || m.ShortestPeriod() == 0 {
		return events, nil
	}

	cfg := extremaConfig{step: DefaultSampleStep, tolerance: DefaultRootTolerance}
	for _, opt := range opts {
		opt(&cfg)
	}
	// Two roots of the derivative are at least a quarter of the fastest
	// period apart; keep several samples between them.
	if limit := m.ShortestPeriod() / 8; limit > 0 && cfg.step > limit {
		cfg.step = limit
	}

	start := w.Start.UTC()
	span := w.Span()
	base := m.Hours(start)
	slope := func(off time.Duration) float64 {
		return m.slopeAt(base + off.Hours())
	}

	var (
		prevSign int
		prevOff  time.Duration
	)
	for off := time.Duration(0); ; off += cfg.step {
		if off > span {
			off = span
		}
		sign := signOf(slope(off))
		if sign != 0 {
			if prevSign != 0 && sign != prevSign {
				root := bisect(slope, prevOff, off, prevSign, cfg.tolerance)
				if root < span {
					t := start.Add(root)
					typ := models.TideLow
					if prevSign > 0 {
						typ = models.TideHigh
					}
					events = append(events, models.TideEvent{Time: t, Type: typ, Height: m.At(t)})
				}
			}
			prevSign, prevOff = sign, off
		}
		if off == span {
			break
		}
	}
	return events, nil
}

// bisect narrows [lo, hi], across which f changes sign from loSign, until it
// is no wider than tol and returns its midpoint.
func bisect(f func(time.Duration) float64, lo, hi time.Duration, loSign int, tol time.Duration) time.Duration {
	for i := 0; i < maxBisections && hi-lo > tol; i++ {
		mid := lo + (hi-lo)/2
		switch signOf(f(mid)) {
		case 0:
			return mid
		case loSign:
			lo = mid
		default:
			hi = mid
		}
	}
	return lo + (hi-lo)/2
}

func signOf(v float64) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	}
	return 0
}
