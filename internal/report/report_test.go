package report

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ngmaloney/tide-terminal/internal/harmonics"
	"github.com/ngmaloney/tide-terminal/internal/models"
)

func auckland(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("Pacific/Auckland")
	require.NoError(t, err)
	return loc
}

var sampleEvents = []models.TideEvent{
	{Time: time.Date(2015, 3, 15, 15, 11, 31, 0, time.UTC), Type: models.TideHigh, Height: 2.3149},
	{Time: time.Date(2015, 3, 15, 21, 25, 10, 0, time.UTC), Type: models.TideLow, Height: 0.456},
	{Time: time.Date(2015, 3, 16, 3, 40, 29, 0, time.UTC), Type: models.TideHigh, Height: 12.5},
	{Time: time.Date(2015, 3, 16, 9, 55, 0, 0, time.UTC), Type: models.TideLow, Height: -0.12},
}

func TestWritePlain(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WritePlain(&buf, sampleEvents, auckland(t)))

	want := []string{
		"2015-03-16 0412 NZDT  2.31 High Tide",
		"2015-03-16 1025 NZDT  0.46 Low Tide",
		"2015-03-16 1640 NZDT 12.50 High Tide",
		"2015-03-16 2255 NZDT -0.12 Low Tide",
	}
	got := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("WritePlain() mismatch (-want +got):\n%s", diff)
	}
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, "Lyttelton", sampleEvents[:2], auckland(t)))

	want := "Lyttelton,2015-03-16,0412,NZDT, 2.31, High Tide\n" +
		"Lyttelton,2015-03-16,1025,NZDT, 0.46, Low Tide\n"
	assert.Equal(t, want, buf.String())
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	data := &models.TideData{StationCode: "h551a", StationName: "Lyttelton", Events: sampleEvents[:1]}
	require.NoError(t, Write(&buf, FormatJSON, data, auckland(t)))

	var got jsonReport
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, "Pacific/Auckland", got.Zone)
	require.Len(t, got.Events, 1)
	assert.Equal(t, "2015-03-16T04:12:00+13:00", got.Events[0].Time)
	assert.Equal(t, "High", got.Events[0].Type)
}

func TestWrite_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, FormatPlain, &models.TideData{}, time.UTC))
	assert.Empty(t, buf.String())
}

func TestParseFormat(t *testing.T) {
	tests := map[string]Format{"": FormatPlain, "t": FormatPlain, "CSV": FormatCSV, "c": FormatCSV, "json": FormatJSON}
	for in, want := range tests {
		got, err := ParseFormat(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseFormat("png")
	assert.Error(t, err)
	assert.Equal(t, "text/csv; charset=utf-8", FormatCSV.ContentType())
}

func TestSeries(t *testing.T) {
	m, err := harmonics.Reconstruct([]string{"M2"}, []float64{1}, []float64{0}, 0.5, harmonics.DefaultEpoch)
	require.NoError(t, err)
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	points, err := Series(m, harmonics.Window{Start: start, End: start.Add(time.Hour)}, 0)
	require.NoError(t, err)
	require.Len(t, points, 11)
	assert.Equal(t, start, points[0].Time)
	assert.Equal(t, start.Add(time.Hour), points[10].Time)
	for _, p := range points {
		assert.Equal(t, m.At(p.Time), p.Height)
	}

	uneven, err := Series(m, harmonics.Window{Start: start, End: start.Add(25 * time.Minute)}, 10*time.Minute)
	require.NoError(t, err)
	require.Len(t, uneven, 4)
	assert.Equal(t, start.Add(25*time.Minute), uneven[3].Time)

	_, err = Series(m, harmonics.Window{Start: start, End: start}, time.Minute)
	assert.ErrorIs(t, err, harmonics.ErrInvalidWindow)
}
