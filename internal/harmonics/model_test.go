package harmonics

import (
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustReconstruct(t *testing.T, names []string, amps, phases []float64, mean float64) *Model {
	t.Helper()
	m, err := Reconstruct(names, amps, phases, mean, DefaultEpoch)
	require.NoError(t, err)
	return m
}

func TestModel_At(t *testing.T) {
	m := mustReconstruct(t, []string{"M2"}, []float64{1.0}, []float64{0}, 0.5)
	period := M2.Get().Period()

	assert.InDelta(t, 1.5, m.At(DefaultEpoch), 1e-12)
	assert.InDelta(t, -0.5, m.At(DefaultEpoch.Add(period/2)), 1e-6)
	assert.InDelta(t, 0.5, m.At(DefaultEpoch.Add(period/4)), 1e-6)
	assert.InDelta(t, 1.5, m.At(DefaultEpoch.Add(1000*period)), 1e-5)
}

func TestModel_AtPhase(t *testing.T) {
	// A phase of 90 degrees delays the crest by a quarter period.
	m := mustReconstruct(t, []string{"S2"}, []float64{2}, []float64{90}, 0)
	assert.InDelta(t, 2, m.At(DefaultEpoch.Add(3*time.Hour)), 1e-12)
	assert.InDelta(t, 0, m.At(DefaultEpoch), 1e-12)
}

func TestModel_AtBatch(t *testing.T) {
	m := mustReconstruct(t, []string{"M2", "K1"}, []float64{1.1, 0.3}, []float64{20, 200}, 1.0)
	ts := []time.Time{
		time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 3, 1, 6, 0, 0, 0, time.UTC),
		time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC),
	}
	got := m.AtBatch(ts)
	require.Len(t, got, len(ts))
	for i, ti := range ts {
		assert.Equal(t, m.At(ti), got[i])
	}
	assert.Empty(t, m.AtBatch(nil))
}

func TestModel_Derivative(t *testing.T) {
	m := mustReconstruct(t, []string{"M2", "O1"}, []float64{1.1, 0.3}, []float64{20, 200}, 1.0)
	at := time.Date(2024, 6, 1, 3, 0, 0, 0, time.UTC)
	h := time.Second
	numeric := (m.At(at.Add(h)) - m.At(at.Add(-h))) / (2 * h.Hours())
	assert.InDelta(t, numeric, m.Derivative(at), 1e-6)
}

func TestModel_SerializeRoundTrip(t *testing.T) {
	names := []string{"M2", "S2", "K1", "O1", "2N2", "Sa"}
	amps := []float64{1.02, 0.31, 0.12, 0.08, 0.01, 0.05}
	phases := []float64{12.5, 359.9, 720 + 45, -30, 0, 181}
	m := mustReconstruct(t, names, amps, phases, 1.31)

	gotNames, gotAmps, gotPhases, gotMean := m.Serialize()
	assert.Equal(t, names, gotNames)
	assert.Equal(t, amps, gotAmps)
	assert.InDelta(t, 45, gotPhases[2], 1e-9)
	assert.InDelta(t, 330, gotPhases[3], 1e-9)
	assert.Equal(t, 1.31, gotMean)

	again, err := Reconstruct(gotNames, gotAmps, gotPhases, gotMean, m.Epoch())
	require.NoError(t, err)
	assert.Equal(t, m.Terms(), again.Terms())
	assert.Equal(t, m.MeanLevel(), again.MeanLevel())

	for _, ts := range []time.Time{
		DefaultEpoch,
		time.Date(2019, 7, 4, 12, 30, 0, 0, time.UTC),
		time.Date(2031, 1, 1, 0, 0, 1, 0, time.UTC),
	} {
		assert.Equal(t, m.At(ts), again.At(ts))
	}
}

func TestModel_PhasesNormalized(t *testing.T) {
	m := mustReconstruct(t, []string{"M2", "S2", "N2"}, []float64{1, 1, 1}, []float64{-90, 360, 1080.5}, 0)
	for _, term := range m.Terms() {
		assert.GreaterOrEqual(t, term.Phase, 0.0)
		assert.Less(t, term.Phase, 360.0)
	}
	_, _, phases, _ := m.Serialize()
	assert.InDelta(t, 270, phases[0], 1e-9)
	assert.InDelta(t, 0, phases[1], 1e-9)
	assert.InDelta(t, 0.5, phases[2], 1e-9)
}

func TestReconstruct_FoldsZ0(t *testing.T) {
	tests := []struct {
		name  string
		amp   float64
		phase float64
		mean  float64
	}{
		{"positive mean", 0.75, 0, 0.75},
		{"negative mean", 0.75, 180, -0.75},
		{"phase 360", 0.5, 360, 0.5},
		{"oblique phase", 1, 60, 0.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := mustReconstruct(t, []string{"Z0", "M2"}, []float64{tt.amp, 1}, []float64{tt.phase, 0}, 0)
			assert.InDelta(t, tt.mean, m.MeanLevel(), 1e-12)
			assert.Equal(t, 1, m.Len())
			names, _, _, _ := m.Serialize()
			assert.Equal(t, []string{"M2"}, names)
		})
	}
}

func TestReconstruct_Malformed(t *testing.T) {
	tests := []struct {
		name    string
		names   []string
		amps    []float64
		phases  []float64
		unknown bool
	}{
		{"fewer amplitudes", []string{"M2", "S2"}, []float64{1}, []float64{0, 0}, false},
		{"fewer phases", []string{"M2"}, []float64{1}, nil, false},
		{"negative amplitude", []string{"M2"}, []float64{-1}, []float64{0}, false},
		{"duplicate", []string{"M2", "m2"}, []float64{1, 1}, []float64{0, 0}, false},
		{"duplicate Z0", []string{"Z0", "Z0"}, []float64{1, 1}, []float64{0, 0}, false},
		{"unknown name", []string{"M2", "QQ7"}, []float64{1, 1}, []float64{0, 0}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := Reconstruct(tt.names, tt.amps, tt.phases, 0, DefaultEpoch)
			require.Error(t, err)
			assert.Nil(t, m)
			assert.True(t, errors.Is(err, ErrMalformedModel))
			assert.Equal(t, tt.unknown, errors.Is(err, ErrUnknownConstituent))

			var herr *Error
			require.True(t, errors.As(err, &herr))
			assert.Equal(t, ErrMalformedModel, herr.Kind)
		})
	}
}

func TestNewModel_Validation(t *testing.T) {
	_, err := NewModel([]Term{{Constituent: M2.Get(), Amplitude: math.NaN()}}, 0, time.Time{})
	assert.ErrorIs(t, err, ErrMalformedModel)

	_, err = NewModel(nil, math.Inf(1), time.Time{})
	assert.ErrorIs(t, err, ErrMalformedModel)

	m, err := NewModel(nil, 2, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, DefaultEpoch, m.Epoch())
	assert.Equal(t, 2.0, m.At(time.Now()))
	assert.Zero(t, m.ShortestPeriod())
}

func TestModel_EpochShiftsPhase(t *testing.T) {
	other := DefaultEpoch.Add(time.Hour)
	a, err := Reconstruct([]string{"S2"}, []float64{1}, []float64{0}, 0, DefaultEpoch)
	require.NoError(t, err)
	b, err := Reconstruct([]string{"S2"}, []float64{1}, []float64{0}, 0, other)
	require.NoError(t, err)

	at := DefaultEpoch.Add(5 * time.Hour)
	assert.NotEqual(t, a.At(at), b.At(at))
	assert.InDelta(t, a.At(at.Add(-time.Hour)), b.At(at), 1e-12)
}

func TestModel_ConcurrentAt(t *testing.T) {
	m := mustReconstruct(t, []string{"M2", "S2", "K1"}, []float64{1, 0.4, 0.2}, []float64{10, 20, 30}, 0)
	at := time.Date(2025, 5, 5, 5, 5, 0, 0, time.UTC)
	want := m.At(at)

	var wg sync.WaitGroup
	results := make([]float64, 16)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = m.At(at)
		}(i)
	}
	wg.Wait()
	for _, got := range results {
		assert.Equal(t, want, got)
	}
}
