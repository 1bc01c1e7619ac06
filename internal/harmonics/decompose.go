package harmonics

import (
	"math"
	"time"

	"gonum.org/v1/gonum/mat"
)

// Observation is a single water level reading.
type Observation struct {
	Time   time.Time
	Height float64 // metres
}

// DefaultMaxCondition is the largest 2-norm condition number of the design
// matrix accepted by Decompose. A record too short to separate the requested
// constituents exceeds it long before the solve itself fails.
const DefaultMaxCondition = 1e6

type decomposeConfig struct {
	epoch        time.Time
	maxCondition float64
}

// DecomposeOption configures Decompose.
type DecomposeOption func(*decomposeConfig)

// WithEpoch sets the instant from which elapsed hours are counted. The same
// epoch must be given to Reconstruct when the model is reloaded.
func WithEpoch(epoch time.Time) DecomposeOption {
	return func(c *decomposeConfig) {
		if !epoch.IsZero() {
			c.epoch = epoch
		}
	}
}

// WithMaxCondition overrides DefaultMaxCondition. Non-positive values are
// ignored.
func WithMaxCondition(c float64) DecomposeOption {
	return func(cfg *decomposeConfig) {
		if c > 0 {
			cfg.maxCondition = c
		}
	}
}

// Decompose fits the amplitude and phase of each constituent in cons, plus
// the mean level, to obs by linear least squares. Z0 in cons is ignored since
// the mean level is always fitted.
// A design matrix whose condition number exceeds the configured maximum fails
// with ErrDecompositionFailed.
//
// Each periodic constituent contributes a cos and a sin column to the design
// matrix; the fitted pair (a, b) is turned into amplitude hypot(a, b) and
// phase atan2(b, a), which is the form A·cos(ωt − φ) evaluated by Model.At.
func Decompose(obs []Observation, cons []Constituent, opts ...DecomposeOption) (*Model, error) {
	cfg := decomposeConfig{epoch: DefaultEpoch, maxCondition: DefaultMaxCondition}
	for _, opt := range opts {
		opt(&cfg)
	}
	epoch := cfg.epoch.UTC()

	if len(obs) == 0 {
		return nil, errorf(ErrInsufficientData, "no observations")
	}

	periodic := make([]Constituent, 0, len(cons))
	seen := make(map[ConstituentID]bool, len(cons))
	for _, c := range cons {
		if seen[c.ID] {
			return nil, errorf(ErrDecompositionFailed, "constituent %s requested twice", c.Name)
		}
		seen[c.ID] = true
		if c.ID == Z0 {
			continue
		}
		periodic = append(periodic, c)
	}

	rows, cols := len(obs), 1+2*len(periodic)
	if rows < cols {
		return nil, errorf(ErrDecompositionFailed, "%d observations for %d unknowns", rows, cols)
	}

	design := mat.NewDense(rows, cols, nil)
	heights := mat.NewVecDense(rows, nil)
	for i, o := range obs {
		if math.IsNaN(o.Height) || math.IsInf(o.Height, 0) {
			return nil, errorf(ErrDecompositionFailed, "observation %d at %s has height %v",
				i, o.Time.UTC().Format(time.RFC3339), o.Height)
		}
		hours := o.Time.Sub(epoch).Hours()
		design.Set(i, 0, 1)
		for j, c := range periodic {
			theta := math.Mod(c.Speed*hours, 360) * deg2rad
			design.Set(i, 1+2*j, math.Cos(theta))
			design.Set(i, 2+2*j, math.Sin(theta))
		}
		heights.SetVec(i, o.Height)
	}

	if c := mat.Cond(design, 2); !(c <= cfg.maxCondition) {
		return nil, errorf(ErrDecompositionFailed, "condition number %.3g over %d observations exceeds %.3g",
			c, rows, cfg.maxCondition)
	}

	var coef mat.VecDense
	if err := coef.SolveVec(design, heights); err != nil {
		return nil, wrapf(ErrDecompositionFailed, err, "least squares solve over %d constituents", len(periodic))
	}

	terms := make([]Term, len(periodic))
	for j, c := range periodic {
		a, b := coef.AtVec(1+2*j), coef.AtVec(2+2*j)
		terms[j] = Term{
			Constituent: c,
			Amplitude:   math.Hypot(a, b),
			Phase:       math.Atan2(b, a) / deg2rad,
		}
	}
	return NewModel(terms, coef.AtVec(0), epoch)
}
