package ui

import (
	"context"
	"errors"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/ngmaloney/tide-terminal/internal/geocoding"
	"github.com/ngmaloney/tide-terminal/internal/harmdata"
	"github.com/ngmaloney/tide-terminal/internal/predictor"
	"github.com/ngmaloney/tide-terminal/internal/report"
	"github.com/ngmaloney/tide-terminal/internal/stations"
)

// Backend is the part of predictor.Service the TUI drives.
type Backend interface {
	NeedsStations() (bool, error)
	EnsureStations(ctx context.Context, refresh bool, progress chan<- string) error
	SearchStations(query string) ([]stations.Station, error)
	NearPlace(ctx context.Context, place string, maxKm float64) (*geocoding.Location, []stations.StationDistance, error)
	GenerateHarmonics(ctx context.Context, st *stations.Station) (harmdata.Record, error)
	Predict(code, begin, end string) (*predictor.Prediction, error)
	Curve(code, begin string) ([]report.Point, error)
}

// errMsg is a message type for errors
type errMsg struct {
	err error
}

// provisioningStartedMsg carries the channels of a running station download.
type provisioningStartedMsg struct {
	progressChan <-chan string
	resultChan   <-chan error
}

type provisionStatusMsg string

type provisionResultMsg struct {
	err error
}

// stationsFoundMsg is sent when a station search completes. place is set
// when the stations were found near a geocoded place rather than by name.
type stationsFoundMsg struct {
	stations []stations.Station
	place    *geocoding.Location
	err      error
}

// tidesLoadedMsg is sent when predictions for a station are ready
type tidesLoadedMsg struct {
	prediction *predictor.Prediction
	curve      []report.Point
	generated  bool
	err        error
}

// initiateProvisioning downloads the station lists in the background,
// reporting progress over a channel.
func initiateProvisioning(b Backend) tea.Cmd {
	return func() tea.Msg {
		progress := make(chan string, 8)
		result := make(chan error, 1)
		go func() {
			defer close(progress)
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
			defer cancel()
			result <- b.EnsureStations(ctx, false, progress)
		}()
		return provisioningStartedMsg{progressChan: progress, resultChan: result}
	}
}

// waitForProvisionStatus delivers the next progress line. A closed channel
// yields nil so the wait ends quietly.
func waitForProvisionStatus(ch <-chan string) tea.Cmd {
	return func() tea.Msg {
		status, ok := <-ch
		if !ok {
			return nil
		}
		return provisionStatusMsg(status)
	}
}

func waitForProvisionResult(ch <-chan error) tea.Cmd {
	return func() tea.Msg {
		return provisionResultMsg{err: <-ch}
	}
}

// nearbyRadiusKm bounds the place search fallback.
const nearbyRadiusKm = 150

// searchStations looks stations up by code or name, falling back to the
// stations near a place of that name.
func searchStations(b Backend, query string) tea.Cmd {
	return func() tea.Msg {
		found, err := b.SearchStations(query)
		if err != nil || len(found) > 0 {
			return stationsFoundMsg{stations: found, err: err}
		}

		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		place, near, err := b.NearPlace(ctx, query, nearbyRadiusKm)
		if err != nil {
			return stationsFoundMsg{}
		}
		found = make([]stations.Station, len(near))
		for i, sd := range near {
			found[i] = sd.Station
		}
		return stationsFoundMsg{stations: found, place: place}
	}
}

// loadTides predicts the next days of tides for st, fitting harmonics first
// when the station has none yet.
func loadTides(b Backend, st stations.Station) tea.Cmd {
	return func() tea.Msg {
		generated := false
		pred, err := b.Predict(st.Code, "", "")
		if errors.Is(err, predictor.ErrNoHarmonics) {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
			defer cancel()
			if _, err := b.GenerateHarmonics(ctx, &st); err != nil {
				return tidesLoadedMsg{err: fmt.Errorf("generating harmonics: %w", err)}
			}
			generated = true
			pred, err = b.Predict(st.Code, "", "")
		}
		if err != nil {
			return tidesLoadedMsg{err: err}
		}
		curve, err := b.Curve(st.Code, "")
		if err != nil {
			return tidesLoadedMsg{err: err}
		}
		return tidesLoadedMsg{prediction: pred, curve: curve, generated: generated}
	}
}
