package database

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDBPath(t *testing.T) {
	assert.Equal(t, filepath.Join("data", "tidepredict.db"), DBPath("data"))
}

func TestFitHistory(t *testing.T) {
	db, err := Open(":memory:")
	require.NoError(t, err)
	defer db.Close()

	older := Fit{StationCode: "h551a", Years: "15,16", Observations: 17000, Constituents: 37, RMSResidual: 0.08,
		FittedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	newer := older
	newer.Years = "16,17"
	newer.FittedAt = older.FittedAt.Add(24 * time.Hour)
	other := older
	other.StationCode = "h091"

	for _, f := range []Fit{older, newer, other} {
		require.NoError(t, RecordFit(db, f))
	}

	fits, err := FitHistory(db, "h551a")
	require.NoError(t, err)
	require.Len(t, fits, 2)
	assert.Equal(t, newer, fits[0])
	assert.Equal(t, older, fits[1])

	none, err := FitHistory(db, "h000")
	require.NoError(t, err)
	assert.Empty(t, none)
}
