package harmonics

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// hourly samples the model every hour for the given number of days.
func hourly(m *Model, from time.Time, days int) []Observation {
	obs := make([]Observation, 0, days*24)
	for i := 0; i < days*24; i++ {
		t := from.Add(time.Duration(i) * time.Hour)
		obs = append(obs, Observation{Time: t, Height: m.At(t)})
	}
	return obs
}

func constituents(t *testing.T, names ...string) []Constituent {
	t.Helper()
	out := make([]Constituent, len(names))
	for i, n := range names {
		c, err := Lookup(n)
		require.NoError(t, err)
		out[i] = c
	}
	return out
}

func TestDecompose_RecoversSyntheticModel(t *testing.T) {
	names := []string{"M2", "S2", "K1", "O1"}
	amps := []float64{1.2, 0.4, 0.3, 0.2}
	phases := []float64{40, 100, 200, 300}
	truth := mustReconstruct(t, names, amps, phases, 1.5)

	obs := hourly(truth, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), 60)
	fit, err := Decompose(obs, constituents(t, names...))
	require.NoError(t, err)

	gotNames, gotAmps, gotPhases, gotMean := fit.Serialize()
	assert.Equal(t, names, gotNames)
	assert.InDelta(t, 1.5, gotMean, 1e-6)
	for i := range names {
		assert.InDelta(t, amps[i], gotAmps[i], 1e-6, names[i])
		assert.InDelta(t, phases[i], gotPhases[i], 1e-4, names[i])
	}

	probe := time.Date(2024, 9, 1, 7, 0, 0, 0, time.UTC)
	assert.InDelta(t, truth.At(probe), fit.At(probe), 1e-5)
}

func TestDecompose_NegativeMeanAndZ0(t *testing.T) {
	truth := mustReconstruct(t, []string{"M2"}, []float64{0.8}, []float64{123}, -0.25)
	obs := hourly(truth, time.Date(2023, 5, 1, 0, 0, 0, 0, time.UTC), 10)

	fit, err := Decompose(obs, constituents(t, "Z0", "M2"))
	require.NoError(t, err)
	assert.Equal(t, 1, fit.Len())
	assert.InDelta(t, -0.25, fit.MeanLevel(), 1e-8)
	assert.InDelta(t, 123, fit.Terms()[0].Phase, 1e-6)
}

func TestDecompose_Epoch(t *testing.T) {
	epoch := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	truth, err := Reconstruct([]string{"M2", "K1"}, []float64{1, 0.5}, []float64{10, 80}, 0, epoch)
	require.NoError(t, err)
	obs := hourly(truth, time.Date(2021, 2, 1, 0, 0, 0, 0, time.UTC), 30)

	fit, err := Decompose(obs, constituents(t, "M2", "K1"), WithEpoch(epoch))
	require.NoError(t, err)
	assert.Equal(t, epoch, fit.Epoch())
	assert.InDelta(t, 10, fit.Terms()[0].Phase, 1e-6)
	assert.InDelta(t, 80, fit.Terms()[1].Phase, 1e-6)
}

func TestDecompose_Deterministic(t *testing.T) {
	truth := mustReconstruct(t, []string{"M2", "N2", "K1"}, []float64{1, 0.2, 0.3}, []float64{10, 20, 30}, 0.1)
	obs := hourly(truth, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), 35)
	cons := constituents(t, "M2", "N2", "K1")

	a, err := Decompose(obs, cons)
	require.NoError(t, err)
	b, err := Decompose(obs, cons)
	require.NoError(t, err)
	assert.Equal(t, a.Terms(), b.Terms())
	assert.Equal(t, a.MeanLevel(), b.MeanLevel())
}

func TestDecompose_MaxCondition(t *testing.T) {
	truth := mustReconstruct(t, []string{"M2", "N2"}, []float64{1, 0.2}, []float64{10, 20}, 0)
	obs := hourly(truth, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), 35)
	cons := constituents(t, "M2", "N2")

	_, err := Decompose(obs, cons)
	require.NoError(t, err)

	_, err = Decompose(obs, cons, WithMaxCondition(1))
	require.ErrorIs(t, err, ErrDecompositionFailed)
	assert.Contains(t, err.Error(), "condition number")
}

func TestDecompose_Errors(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	flat := func(n int, step time.Duration) []Observation {
		obs := make([]Observation, n)
		for i := range obs {
			obs[i] = Observation{Time: start.Add(time.Duration(i) * step), Height: 1}
		}
		return obs
	}
	withNaN := flat(48, time.Hour)
	withNaN[7].Height = math.NaN()
	truth := mustReconstruct(t, []string{"M2", "S2", "K1"}, []float64{0.9, 0.2, 0.1}, []float64{40, 80, 120}, 1.5)

	tests := []struct {
		name string
		obs  []Observation
		cons []Constituent
		want error
	}{
		{"no observations", nil, constituents(t, "M2"), ErrInsufficientData},
		{"more unknowns than observations", flat(4, time.Hour), constituents(t, "M2", "S2"), ErrDecompositionFailed},
		{"duplicate constituent", flat(48, time.Hour), constituents(t, "M2", "M2"), ErrDecompositionFailed},
		{"non-finite height", withNaN, constituents(t, "M2"), ErrDecompositionFailed},
		// Sampling every 12h aliases S2 onto the mean: singular system.
		{"singular system", flat(20, 12*time.Hour), constituents(t, "S2"), ErrDecompositionFailed},
		// Fifteen days cannot separate S2 from K2 or K1 from P1.
		{"record too short for the standard set", hourly(truth, start, 15), Standard(), ErrDecompositionFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := Decompose(tt.obs, tt.cons)
			require.Error(t, err)
			assert.Nil(t, m)
			assert.True(t, errors.Is(err, tt.want), err.Error())
		})
	}
}
