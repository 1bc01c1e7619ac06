// Package uhslc downloads and parses University of Hawaii Sea Level Center
// research quality data: hourly water level archives and station lists.
package uhslc

import (
	"fmt"
	"strings"
)

const root = "uhslc/rqds"

// Oceans lists the basins the server publishes data for.
var Oceans = []string{"pacific", "indian", "atlantic"}

// OceanPath returns the server directory for ocean. Matching ignores case.
func OceanPath(ocean string) (string, error) {
	o := strings.ToLower(strings.TrimSpace(ocean))
	for _, known := range Oceans {
		if o == known {
			return root + "/" + o, nil
		}
	}
	return "", fmt.Errorf("ocean must be one of Pacific, Indian or Atlantic, got %q", ocean)
}

// OceanFromIndex maps the ocean letter of a station list entry (P, I, A) to
// its name.
func OceanFromIndex(idx string) (string, error) {
	if idx != "" {
		switch strings.ToUpper(idx[:1]) {
		case "P":
			return "pacific", nil
		case "I":
			return "indian", nil
		case "A":
			return "atlantic", nil
		}
	}
	return "", fmt.Errorf("unknown ocean index %q", idx)
}

// HourlyArchivePath returns the path of the zip archive holding every hourly
// data file of a station.
func HourlyArchivePath(ocean, code string) (string, error) {
	dir, err := OceanPath(ocean)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s/hourly/%s.zip", dir, strings.ToLower(code)), nil
}

// StationListPath returns the path of the station list for ocean.
func StationListPath(ocean string) (string, error) {
	dir, err := OceanPath(ocean)
	if err != nil {
		return "", err
	}
	o := dir[strings.LastIndex(dir, "/")+1:]
	return fmt.Sprintf("%s/%s.lst", dir, o), nil
}

// StationCode builds the data file code from a station list index, e.g.
// "551A" becomes "h551a".
func StationCode(idx string) string {
	return "h" + strings.ToLower(strings.TrimSpace(idx))
}

// MemberName returns the name of the yearly data file for code inside the
// hourly archive. Only the last two digits of year are used.
func MemberName(code string, year int) string {
	return fmt.Sprintf("i%s%02d.dat", strings.ToLower(code[1:]), year%100)
}
