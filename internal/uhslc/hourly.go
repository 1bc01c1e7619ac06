package uhslc

import (
	"archive/zip"
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/ngmaloney/tide-terminal/internal/harmonics"
)

// ErrMissingYear is returned when an archive has no data file for a year.
var ErrMissingYear = errors.New("no data for year")

const (
	missingHigh = 9999
	missingLow  = -9999
)

// ParseHourly reads one yearly data file. The first line is a header. Every
// following line holds a station id, a date with a half-day flag
// (YYYYMMDD1 for hours 00-11, YYYYMMDD2 for 12-23) and twelve hourly values
// in millimetres. Missing values are dropped. Times are UTC.
func ParseHourly(r io.Reader) ([]harmonics.Observation, error) {
	var obs []harmonics.Observation
	scanner := bufio.NewScanner(r)
	line := 0
	for scanner.Scan() {
		line++
		if line == 1 {
			continue
		}
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		fields := strings.Fields(text)
		if len(fields) < 15 {
			return nil, fmt.Errorf("line %d: want 15 fields, got %d", line, len(fields))
		}
		stamp := fields[2]
		if len(stamp) != 9 {
			return nil, fmt.Errorf("line %d: malformed date %q", line, stamp)
		}
		day, err := time.ParseInLocation("20060102", stamp[:8], time.UTC)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if stamp[8] != '1' {
			day = day.Add(12 * time.Hour)
		}
		for j, raw := range fields[3:15] {
			mm, err := strconv.Atoi(raw)
			if err != nil {
				return nil, fmt.Errorf("line %d: value %q: %w", line, raw, err)
			}
			if mm == missingHigh || mm == missingLow {
				continue
			}
			obs = append(obs, harmonics.Observation{
				Time:   day.Add(time.Duration(j) * time.Hour),
				Height: float64(mm) / 1000,
			})
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading data file: %w", err)
	}
	return obs, nil
}

// ReadArchive extracts the observations of the given years from a station's
// hourly zip archive, in chronological order.
func ReadArchive(data []byte, code string, years []int) ([]harmonics.Observation, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("opening archive: %w", err)
	}

	var obs []harmonics.Observation
	for _, year := range years {
		name := MemberName(code, year)
		f, err := zr.Open(name)
		if err != nil {
			return nil, fmt.Errorf("%w %d: %s", ErrMissingYear, year, name)
		}
		yearObs, err := ParseHourly(f)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("parsing %s: %w", name, err)
		}
		obs = append(obs, yearObs...)
	}
	sort.SliceStable(obs, func(i, j int) bool { return obs[i].Time.Before(obs[j].Time) })
	return obs, nil
}

// listLag is how many years an archive may run ahead of the last year in
// the station list.
const listLag = 10

// ArchiveYears lists the years present in an hourly archive in ascending
// order. Data files carry two-digit years; each is placed in the century that
// puts it no later than lastYear plus a small lag.
func ArchiveYears(data []byte, code string, lastYear int) ([]int, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("opening archive: %w", err)
	}
	prefix := "i" + strings.ToLower(code[1:])
	pivot := lastYear + listLag
	var years []int
	for _, f := range zr.File {
		name := strings.ToLower(f.Name[strings.LastIndex(f.Name, "/")+1:])
		if !strings.HasPrefix(name, prefix) || !strings.HasSuffix(name, ".dat") {
			continue
		}
		digits := strings.TrimSuffix(strings.TrimPrefix(name, prefix), ".dat")
		if len(digits) != 2 {
			continue
		}
		yy, err := strconv.Atoi(digits)
		if err != nil {
			continue
		}
		years = append(years, pivot-((pivot-yy)%100+100)%100)
	}
	sort.Ints(years)
	return years, nil
}

// Hourly downloads the archive of code and returns the observations of its
// n most recent years, together with those years. lastYear is the final
// year published in the station list and anchors the two-digit years of the
// data files.
func Hourly(ctx context.Context, f Fetcher, ocean, code string, lastYear, n int) ([]harmonics.Observation, []int, error) {
	path, err := HourlyArchivePath(ocean, code)
	if err != nil {
		return nil, nil, err
	}
	data, err := f.Fetch(ctx, path)
	if err != nil {
		return nil, nil, err
	}
	years, err := ArchiveYears(data, code, lastYear)
	if err != nil {
		return nil, nil, err
	}
	if len(years) == 0 {
		return nil, nil, fmt.Errorf("%w: archive %s has no data files", ErrMissingYear, path)
	}
	if len(years) > n {
		years = years[len(years)-n:]
	}
	obs, err := ReadArchive(data, code, years)
	if err != nil {
		return nil, nil, err
	}
	return obs, years, nil
}
