package uhslc

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// ListEntry is one line of a UHSLC station list.
type ListEntry struct {
	Index       string // e.g. "551A"
	OceanIndex  string // e.g. "P"
	Name        string
	Country     string
	Lat         string // degrees and minutes as published, e.g. "43 36.4S"
	Lon         string
	DataYears   string // e.g. "1924-2019"
	CI          string
	Contributor string
}

// Code returns the station code used for data files.
func (e ListEntry) Code() string {
	return StationCode(e.Index)
}

// Ocean returns the basin name derived from OceanIndex.
func (e ListEntry) Ocean() (string, error) {
	return OceanFromIndex(e.OceanIndex)
}

// LastYear returns the final year with data.
func (e ListEntry) LastYear() (int, error) {
	years := strings.TrimSpace(e.DataYears)
	if i := strings.LastIndexAny(years, "-–"); i >= 0 {
		years = years[i+1:]
	}
	y, err := strconv.Atoi(strings.TrimSpace(years))
	if err != nil {
		return 0, fmt.Errorf("station %s: data years %q: %w", e.Index, e.DataYears, err)
	}
	if y < 100 {
		y += 1900
		if y < 1950 {
			y += 100
		}
	}
	return y, nil
}

var columnGap = regexp.MustCompile(`\s{2,}`)

// ParseStationList reads a station list. Only lines starting with a three
// digit index describe stations; everything else is header text.
func ParseStationList(r io.Reader) ([]ListEntry, error) {
	var entries []ListEntry
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), " \t\r")
		if len(line) < 3 {
			continue
		}
		if _, err := strconv.Atoi(line[:3]); err != nil {
			continue
		}
		cols := columnGap.Split(strings.TrimSpace(line), -1)
		if len(cols) < 8 {
			return nil, fmt.Errorf("station line %q: want at least 8 columns, got %d", line, len(cols))
		}
		e := ListEntry{
			Index:      cols[0],
			OceanIndex: cols[1],
			Name:       cols[3],
			Country:    cols[4],
			Lat:        cols[5],
			Lon:        cols[6],
			DataYears:  cols[7],
		}
		if len(cols) > 8 {
			e.CI = cols[8]
		}
		if len(cols) > 9 {
			e.Contributor = strings.Join(cols[9:], " ")
		}
		entries = append(entries, e)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading station list: %w", err)
	}
	return entries, nil
}

// StationList downloads and parses the station list of ocean.
func StationList(ctx context.Context, f Fetcher, ocean string) ([]ListEntry, error) {
	path, err := StationListPath(ocean)
	if err != nil {
		return nil, err
	}
	data, err := f.Fetch(ctx, path)
	if err != nil {
		return nil, err
	}
	return ParseStationList(bytes.NewReader(data))
}

// ParseCoordinate converts a published coordinate such as "43 36.4S" or
// "172 43.0E" to signed decimal degrees. Plain decimal values are accepted
// as is.
func ParseCoordinate(s string) (float64, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return 0, fmt.Errorf("empty coordinate")
	}
	sign := 1.0
	switch s[len(s)-1] {
	case 'S', 'W':
		sign = -1
		s = s[:len(s)-1]
	case 'N', 'E':
		s = s[:len(s)-1]
	}
	parts := strings.Fields(s)
	if len(parts) == 0 || len(parts) > 2 {
		return 0, fmt.Errorf("malformed coordinate %q", s)
	}
	deg, err := strconv.ParseFloat(parts[0], 64)
	if err != nil {
		return 0, fmt.Errorf("malformed coordinate %q: %w", s, err)
	}
	var minutes float64
	if len(parts) == 2 {
		if minutes, err = strconv.ParseFloat(parts[1], 64); err != nil {
			return 0, fmt.Errorf("malformed coordinate %q: %w", s, err)
		}
		if minutes < 0 || minutes >= 60 {
			return 0, fmt.Errorf("minutes out of range in %q", s)
		}
	}
	if deg < 0 {
		sign, deg = -sign, -deg
	}
	v := sign * (deg + minutes/60)
	if math.Abs(v) > 180 {
		return 0, fmt.Errorf("coordinate %q out of range", s)
	}
	return v, nil
}

// DegreesToDecimal converts a published latitude and longitude pair.
func DegreesToDecimal(lat, lon string) (float64, float64, error) {
	la, err := ParseCoordinate(lat)
	if err != nil {
		return 0, 0, fmt.Errorf("latitude: %w", err)
	}
	if math.Abs(la) > 90 {
		return 0, 0, fmt.Errorf("latitude %q out of range", lat)
	}
	lo, err := ParseCoordinate(lon)
	if err != nil {
		return 0, 0, fmt.Errorf("longitude: %w", err)
	}
	return la, lo, nil
}
