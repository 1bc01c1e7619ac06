package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"

	"github.com/ngmaloney/tide-terminal/internal/stations"
)

// stationItem wraps a Station for use in a list
type stationItem struct {
	station stations.Station
}

// FilterValue implements list.Item
func (s stationItem) FilterValue() string {
	return s.station.Code + " " + s.station.Name
}

// Title implements list.DefaultItem
func (s stationItem) Title() string {
	return fmt.Sprintf("%s - %s", s.station.Code, s.station.Name)
}

// Description implements list.DefaultItem
func (s stationItem) Description() string {
	return fmt.Sprintf("%s • %s • %.2f, %.2f • %s",
		s.station.Country, s.station.Ocean, s.station.Latitude, s.station.Longitude, s.station.DataYears)
}

// createStationList creates a list.Model from stations
func createStationList(found []stations.Station, width, height int) list.Model {
	items := make([]list.Item, len(found))
	for i, st := range found {
		items[i] = stationItem{station: st}
	}

	l := list.New(items, list.NewDefaultDelegate(), width, height)
	l.Title = "Select a Tide Station"
	l.SetShowHelp(true)
	l.SetFilteringEnabled(true)

	return l
}
