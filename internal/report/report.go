// Package report renders predicted tide events as text.
package report

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/ngmaloney/tide-terminal/internal/harmonics"
	"github.com/ngmaloney/tide-terminal/internal/models"
	"github.com/ngmaloney/tide-terminal/internal/tidetime"
)

// ErrUnknownFormat is returned by ParseFormat for unrecognised names.
var ErrUnknownFormat = errors.New("unknown output format")

// Format selects an output layout.
type Format string

const (
	FormatPlain Format = "plain"
	FormatCSV   Format = "csv"
	FormatJSON  Format = "json"
)

// ParseFormat accepts a format name or its single letter form ("t" for
// text, "c" for csv, "j" for json). The empty string selects plain.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "t", "text", "plain", "p":
		return FormatPlain, nil
	case "c", "csv":
		return FormatCSV, nil
	case "j", "json":
		return FormatJSON, nil
	}
	return "", fmt.Errorf("%w %q", ErrUnknownFormat, s)
}

// ContentType returns the HTTP media type of the format.
func (f Format) ContentType() string {
	switch f {
	case FormatCSV:
		return "text/csv; charset=utf-8"
	case FormatJSON:
		return "application/json"
	}
	return "text/plain; charset=utf-8"
}

// Write renders data in format f. Event times are shown in loc, rounded to
// the minute.
func Write(w io.Writer, f Format, data *models.TideData, loc *time.Location) error {
	switch f {
	case FormatCSV:
		return WriteCSV(w, data.StationName, data.Events, loc)
	case FormatJSON:
		return WriteJSON(w, data, loc)
	default:
		return WritePlain(w, data.Events, loc)
	}
}

// WritePlain writes one line per event:
//
//	2015-03-16 0412 NZDT  2.31 High Tide
func WritePlain(w io.Writer, events []models.TideEvent, loc *time.Location) error {
	for _, ev := range events {
		t := tidetime.LocalizeIn(ev.Time, loc)
		if _, err := fmt.Fprintf(w, "%s %5.2f %s Tide\n", t.Format("2006-01-02 1504 MST"), ev.Height, ev.Type.Label()); err != nil {
			return fmt.Errorf("writing prediction: %w", err)
		}
	}
	return nil
}

// WriteCSV writes one comma separated line per event:
//
//	Lyttelton,2015-03-16,0412,NZDT, 2.31, High Tide
func WriteCSV(w io.Writer, stationName string, events []models.TideEvent, loc *time.Location) error {
	for _, ev := range events {
		t := tidetime.LocalizeIn(ev.Time, loc)
		if _, err := fmt.Fprintf(w, "%s,%s, %.2f, %s Tide\n", stationName, t.Format("2006-01-02,1504,MST"), ev.Height, ev.Type.Label()); err != nil {
			return fmt.Errorf("writing prediction: %w", err)
		}
	}
	return nil
}

type jsonEvent struct {
	Time   string  `json:"time"`
	Type   string  `json:"type"`
	Height float64 `json:"height"`
}

type jsonReport struct {
	Station string      `json:"station"`
	Name    string      `json:"name"`
	Zone    string      `json:"time_zone"`
	Events  []jsonEvent `json:"events"`
}

// WriteJSON writes the events as a single JSON document with RFC 3339 local
// times.
func WriteJSON(w io.Writer, data *models.TideData, loc *time.Location) error {
	out := jsonReport{
		Station: data.StationCode,
		Name:    data.StationName,
		Zone:    loc.String(),
		Events:  make([]jsonEvent, len(data.Events)),
	}
	for i, ev := range data.Events {
		out.Events[i] = jsonEvent{
			Time:   tidetime.LocalizeIn(ev.Time, loc).Format(time.RFC3339),
			Type:   ev.Type.Label(),
			Height: ev.Height,
		}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("encoding predictions: %w", err)
	}
	return nil
}

// Point is one sample of a water level curve.
type Point struct {
	Time   time.Time
	Height float64
}

// DefaultSeriesStep is the sample spacing used for graphs.
const DefaultSeriesStep = 6 * time.Minute

// Series samples m every step across w, both ends included.
func Series(m *harmonics.Model, w harmonics.Window, step time.Duration) ([]Point, error) {
	if err := w.Validate(); err != nil {
		return nil, err
	}
	if step <= 0 {
		step = DefaultSeriesStep
	}
	n := int(w.Span()/step) + 1
	points := make([]Point, 0, n+1)
	for t := w.Start.UTC(); !t.After(w.End); t = t.Add(step) {
		points = append(points, Point{Time: t, Height: m.At(t)})
	}
	if last := points[len(points)-1].Time; last.Before(w.End) {
		points = append(points, Point{Time: w.End.UTC(), Height: m.At(w.End)})
	}
	return points, nil
}
