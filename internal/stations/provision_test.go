package stations

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/ngmaloney/tide-terminal/internal/uhslc"
)

func openMemory(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	return db
}

type fakeFetcher struct {
	files map[string]string
	calls int
}

func (f *fakeFetcher) Fetch(_ context.Context, path string) ([]byte, error) {
	f.calls++
	body, ok := f.files[path]
	if !ok {
		return nil, fmt.Errorf("%w: %s", uhslc.ErrNotFound, path)
	}
	return []byte(body), nil
}

func oceanLists() map[string]string {
	return map[string]string{
		"uhslc/rqds/pacific/pacific.lst": `Pacific stations
551A  P  B  Lyttelton          New Zealand     43 36.4S  172 43.0E  1924-2019  CI3  Land Information New Zealand
057  P  A  Honolulu           USA             21 18.4N  157 52.0W  1905-2020  CI1  NOAA
058  P  A  Honolulu B         USA             21 19.0N  157 52.0W  1990-1995  CI1  NOAA
999  P  A  Broken             Nowhere         xx        yy         1990-1995
`,
		"uhslc/rqds/indian/indian.lst": `Indian stations
108  I  A  Port Louis         Mauritius       20 09.0S  057 30.0E  1986-2018  CI1  Mauritius Met
`,
		"uhslc/rqds/atlantic/atlantic.lst": `Atlantic stations
245  A  A  Newlyn             UK              50 06.0N  005 33.0W  1915-2016  CI2  BODC
`,
	}
}

func TestNeedsProvisioning(t *testing.T) {
	db := openMemory(t)

	needs, err := NeedsProvisioning(db)
	require.NoError(t, err)
	assert.True(t, needs, "missing table")

	_, err = db.Exec(`CREATE TABLE tide_stations (code TEXT PRIMARY KEY)`)
	require.NoError(t, err)
	needs, err = NeedsProvisioning(db)
	require.NoError(t, err)
	assert.True(t, needs, "empty table")

	_, err = db.Exec(`INSERT INTO tide_stations (code) VALUES ('h001')`)
	require.NoError(t, err)
	needs, err = NeedsProvisioning(db)
	require.NoError(t, err)
	assert.False(t, needs)
}

func TestProvisionStationsDatabase(t *testing.T) {
	db := openMemory(t)
	fetcher := &fakeFetcher{files: oceanLists()}

	progress := make(chan string, 16)
	require.NoError(t, ProvisionStationsDatabase(context.Background(), db, fetcher, ProvisionOptions{Progress: progress}))
	close(progress)
	var msgs []string
	for m := range progress {
		msgs = append(msgs, m)
	}
	assert.Contains(t, msgs, "Stored 5 tide stations")

	all, err := ListStations(db)
	require.NoError(t, err)
	require.Len(t, all, 5)

	lyt, err := GetStationByCode(db, "H551A")
	require.NoError(t, err)
	assert.Equal(t, "pacific", lyt.Ocean)
	assert.Equal(t, 2019, lyt.LastYear)
	assert.InDelta(t, -43.606667, lyt.Latitude, 1e-5)
	assert.Equal(t, "Land Information New Zealand", lyt.Contributor)

	// Already provisioned: no downloads.
	calls := fetcher.calls
	require.NoError(t, ProvisionStationsDatabase(context.Background(), db, fetcher, ProvisionOptions{}))
	assert.Equal(t, calls, fetcher.calls)

	// Refresh rebuilds from the new lists.
	fetcher.files["uhslc/rqds/atlantic/atlantic.lst"] = "Atlantic stations\n"
	require.NoError(t, ProvisionStationsDatabase(context.Background(), db, fetcher, ProvisionOptions{Refresh: true}))
	all, err = ListStations(db)
	require.NoError(t, err)
	assert.Len(t, all, 4)
}

func TestProvisionStationsDatabase_FetchError(t *testing.T) {
	db := openMemory(t)
	files := oceanLists()
	delete(files, "uhslc/rqds/indian/indian.lst")

	err := ProvisionStationsDatabase(context.Background(), db, &fakeFetcher{files: files}, ProvisionOptions{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, uhslc.ErrNotFound))
	assert.Contains(t, err.Error(), "indian")
}

func TestFromListEntry(t *testing.T) {
	s, err := FromListEntry(uhslc.ListEntry{
		Index: "245", OceanIndex: "A", Name: "Newlyn", Country: "UK",
		Lat: "50 06.0N", Lon: "005 33.0W", DataYears: "1915-2016",
	})
	require.NoError(t, err)
	assert.Equal(t, "h245", s.Code)
	assert.Equal(t, "atlantic", s.Ocean)
	assert.InDelta(t, -5.55, s.Longitude, 1e-9)

	_, err = FromListEntry(uhslc.ListEntry{Index: "1", OceanIndex: "Q", Lat: "0N", Lon: "0E", DataYears: "2000"})
	assert.Error(t, err)
}
