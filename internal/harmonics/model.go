package harmonics

import (
	"math"
	"time"
)

// DefaultEpoch is the reference instant from which elapsed hours are counted.
var DefaultEpoch = time.Date(2000, time.January, 1, 0, 0, 0, 0, time.UTC)

const deg2rad = math.Pi / 180

// Term is one fitted constituent.
type Term struct {
	Constituent Constituent
	Amplitude   float64 // metres, never negative
	Phase       float64 // degrees in [0, 360)
}

// Model is a fitted or reconstructed harmonic tide model. A Model is
// immutable once built and safe for concurrent use.
type Model struct {
	terms     []Term
	meanLevel float64
	epoch     time.Time
}

// NewModel validates terms and builds a Model. Phases are normalized into
// [0, 360). A zero epoch selects DefaultEpoch.
func NewModel(terms []Term, meanLevel float64, epoch time.Time) (*Model, error) {
	if math.IsNaN(meanLevel) || math.IsInf(meanLevel, 0) {
		return nil, errorf(ErrMalformedModel, "mean level %v is not finite", meanLevel)
	}
	seen := make(map[ConstituentID]bool, len(terms))
	out := make([]Term, 0, len(terms))
	for _, t := range terms {
		if t.Constituent.ID == Z0 {
			return nil, errorf(ErrMalformedModel, "Z0 must be folded into the mean level")
		}
		if seen[t.Constituent.ID] {
			return nil, errorf(ErrMalformedModel, "duplicate constituent %s", t.Constituent.Name)
		}
		seen[t.Constituent.ID] = true
		if !(t.Amplitude >= 0) || math.IsInf(t.Amplitude, 0) {
			return nil, errorf(ErrMalformedModel, "amplitude %v of %s", t.Amplitude, t.Constituent.Name)
		}
		if math.IsNaN(t.Phase) || math.IsInf(t.Phase, 0) {
			return nil, errorf(ErrMalformedModel, "phase %v of %s", t.Phase, t.Constituent.Name)
		}
		t.Phase = normalizeDegrees(t.Phase)
		out = append(out, t)
	}
	if epoch.IsZero() {
		epoch = DefaultEpoch
	}
	return &Model{terms: out, meanLevel: meanLevel, epoch: epoch.UTC()}, nil
}

// Reconstruct rebuilds a Model from persisted name/amplitude/phase triples.
// A Z0 entry is folded into the mean level.
func Reconstruct(names []string, amplitudes, phases []float64, meanLevel float64, epoch time.Time) (*Model, error) {
	if len(names) != len(amplitudes) || len(names) != len(phases) {
		return nil, errorf(ErrMalformedModel, "%d constituents, %d amplitudes, %d phases",
			len(names), len(amplitudes), len(phases))
	}
	terms := make([]Term, 0, len(names))
	sawZ0 := false
	for i, name := range names {
		c, err := Lookup(name)
		if err != nil {
			return nil, wrapf(ErrMalformedModel, err, "term %d", i)
		}
		if amplitudes[i] < 0 {
			return nil, errorf(ErrMalformedModel, "negative amplitude %v for %s", amplitudes[i], c.Name)
		}
		if c.ID == Z0 {
			if sawZ0 {
				return nil, errorf(ErrMalformedModel, "duplicate constituent Z0")
			}
			sawZ0 = true
			meanLevel += signedMean(amplitudes[i], phases[i])
			continue
		}
		terms = append(terms, Term{Constituent: c, Amplitude: amplitudes[i], Phase: phases[i]})
	}
	return NewModel(terms, meanLevel, epoch)
}

// signedMean converts a Z0 amplitude/phase pair to a signed offset.
func signedMean(amplitude, phase float64) float64 {
	switch normalizeDegrees(phase) {
	case 0:
		return amplitude
	case 180:
		return -amplitude
	}
	return amplitude * math.Cos(phase*deg2rad)
}

// Serialize returns the model as parallel slices plus the mean level, in
// term order. Reconstruct(Serialize()) yields an identical model.
func (m *Model) Serialize() (names []string, amplitudes, phases []float64, meanLevel float64) {
	names = make([]string, len(m.terms))
	amplitudes = make([]float64, len(m.terms))
	phases = make([]float64, len(m.terms))
	for i, t := range m.terms {
		names[i] = t.Constituent.Name
		amplitudes[i] = t.Amplitude
		phases[i] = t.Phase
	}
	return names, amplitudes, phases, m.meanLevel
}

// Terms returns a copy of the model terms.
func (m *Model) Terms() []Term {
	out := make([]Term, len(m.terms))
	copy(out, m.terms)
	return out
}

func (m *Model) Len() int           { return len(m.terms) }
func (m *Model) MeanLevel() float64 { return m.meanLevel }
func (m *Model) Epoch() time.Time   { return m.epoch }

// Hours returns the hours elapsed between the model epoch and t.
func (m *Model) Hours(t time.Time) float64 {
	return t.Sub(m.epoch).Hours()
}

// At evaluates the water level at t.
func (m *Model) At(t time.Time) float64 {
	return m.heightAt(m.Hours(t))
}

// AtBatch evaluates the water level at each of ts.
func (m *Model) AtBatch(ts []time.Time) []float64 {
	out := make([]float64, len(ts))
	for i, t := range ts {
		out[i] = m.At(t)
	}
	return out
}

// Derivative returns the rate of change of the water level at t in metres per
// hour.
func (m *Model) Derivative(t time.Time) float64 {
	return m.slopeAt(m.Hours(t))
}

func (m *Model) heightAt(hours float64) float64 {
	h := m.meanLevel
	for _, t := range m.terms {
		h += t.Amplitude * math.Cos(angle(t, hours))
	}
	return h
}

// slopeAt is the closed-form derivative of heightAt.
func (m *Model) slopeAt(hours float64) float64 {
	var d float64
	for _, t := range m.terms {
		d -= t.Amplitude * t.Constituent.Speed * deg2rad * math.Sin(angle(t, hours))
	}
	return d
}

// angle returns ω·Δt − φ in radians, reduced to one turn first so large
// elapsed times keep their precision.
func angle(t Term, hours float64) float64 {
	return math.Mod(t.Constituent.Speed*hours-t.Phase, 360) * deg2rad
}

// ShortestPeriod returns the period of the fastest constituent in the model,
// or 0 for a model without periodic terms.
func (m *Model) ShortestPeriod() time.Duration {
	var fastest float64
	for _, t := range m.terms {
		if t.Constituent.Speed > fastest {
			fastest = t.Constituent.Speed
		}
	}
	if fastest == 0 {
		return 0
	}
	return time.Duration(360 / fastest * float64(time.Hour))
}

func normalizeDegrees(d float64) float64 {
	d = math.Mod(d, 360)
	if d < 0 {
		d += 360
	}
	if d >= 360 {
		d = 0
	}
	return d
}
