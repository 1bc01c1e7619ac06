package harmdata

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ngmaloney/tide-terminal/internal/harmonics"
)

const sampleFile = `{
  "h551a": {
    "cons": ["Z0", "M2", "S2", "K1"],
    "amps": [1.37, 0.93, 0.14, 0.05],
    "phase": [0.0, 312.4, 20.1, 77.0],
    "lat": -43.6, "lon": 172.716667,
    "tzone": "Pacific/Auckland",
    "name": "Lyttelton", "country": "New Zealand",
    "contributor": "Land Information New Zealand",
    "version": "0.4.0"
  }
}`

func TestDecode(t *testing.T) {
	f, err := Decode([]byte(sampleFile))
	require.NoError(t, err)
	assert.Equal(t, []string{"h551a"}, f.Codes())

	r, err := f.Get("h551a")
	require.NoError(t, err)
	assert.Equal(t, "Pacific/Auckland", r.TZone)
	assert.Equal(t, -43.6, r.Lat)

	m, err := r.Model(harmonics.DefaultEpoch)
	require.NoError(t, err)
	assert.Equal(t, 3, m.Len())
	assert.InDelta(t, 1.37, m.MeanLevel(), 1e-12)
}

func TestDecode_LengthMismatch(t *testing.T) {
	_, err := Decode([]byte(`{"h001": {"cons": ["M2", "S2"], "amps": [1], "phase": [0, 0]}}`))
	require.Error(t, err)
	assert.True(t, errors.Is(err, harmonics.ErrMalformedModel))
}

func TestDecode_Empty(t *testing.T) {
	f, err := Decode(nil)
	require.NoError(t, err)
	assert.Empty(t, f)

	_, err = Decode([]byte(`[1, 2]`))
	assert.Error(t, err)
}

func TestGet_NotFound(t *testing.T) {
	_, err := File{}.Get("h999")
	assert.ErrorIs(t, err, ErrStationNotFound)
}

func TestSetModel_RoundTrip(t *testing.T) {
	tests := []struct {
		name      string
		mean      float64
		wantPhase float64
	}{
		{"above datum", 1.25, 0},
		{"below datum", -0.4, 180},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := harmonics.Reconstruct([]string{"M2", "O1"}, []float64{0.9, 0.2}, []float64{45, 300}, tt.mean, harmonics.DefaultEpoch)
			require.NoError(t, err)

			var r Record
			r.SetModel(m)
			assert.Equal(t, []string{"Z0", "M2", "O1"}, r.Cons)
			assert.Equal(t, tt.wantPhase, r.Phase[0])

			back, err := r.Model(harmonics.DefaultEpoch)
			require.NoError(t, err)
			assert.Equal(t, m.Terms(), back.Terms())
			assert.InDelta(t, tt.mean, back.MeanLevel(), 1e-12)

			at := time.Date(2026, 2, 3, 4, 5, 0, 0, time.UTC)
			assert.InDelta(t, m.At(at), back.At(at), 1e-12)
		})
	}
}

func TestSaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "harmdata", "harmonics.json")

	missing, err := Load(path)
	require.NoError(t, err)
	assert.Empty(t, missing)

	f, err := Decode([]byte(sampleFile))
	require.NoError(t, err)
	require.NoError(t, Save(path, f))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, f, loaded)

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestRecord_StoredEpoch(t *testing.T) {
	epoch := time.Date(1990, 1, 1, 0, 0, 0, 0, time.UTC)
	m, err := harmonics.Reconstruct([]string{"M2", "K1"}, []float64{0.9, 0.3}, []float64{45, 120}, 1.1, epoch)
	require.NoError(t, err)

	rec := Record{Name: "Lyttelton", TZone: "Pacific/Auckland", Version: Version}
	rec.SetModel(m)
	assert.True(t, rec.Epoch.Equal(epoch))

	path := filepath.Join(t.TempDir(), "harmonics.json")
	require.NoError(t, Save(path, File{"h551a": rec}))
	f, err := Load(path)
	require.NoError(t, err)
	loaded, err := f.Get("h551a")
	require.NoError(t, err)
	assert.True(t, loaded.Epoch.Equal(epoch))

	// The stored epoch wins over the caller's default.
	back, err := loaded.Model(harmonics.DefaultEpoch)
	require.NoError(t, err)
	assert.True(t, back.Epoch().Equal(epoch))
	at := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	assert.InDelta(t, m.At(at), back.At(at), 1e-9)
}

func TestRecord_EpochFallback(t *testing.T) {
	f, err := Decode([]byte(sampleFile))
	require.NoError(t, err)
	r, err := f.Get("h551a")
	require.NoError(t, err)
	assert.True(t, r.Epoch.IsZero())

	fallback := time.Date(2010, 1, 1, 0, 0, 0, 0, time.UTC)
	m, err := r.Model(fallback)
	require.NoError(t, err)
	assert.True(t, m.Epoch().Equal(fallback))
}
