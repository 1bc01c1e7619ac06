package models

import "time"

// TideType represents whether a tide is high or low
type TideType string

const (
	TideHigh TideType = "H"
	TideLow  TideType = "L"
)

// Label returns the word used in printed predictions.
func (t TideType) Label() string {
	switch t {
	case TideHigh:
		return "High"
	case TideLow:
		return "Low"
	}
	return string(t)
}

// TideEvent is a turning point of the predicted water level.
type TideEvent struct {
	Time   time.Time
	Type   TideType
	Height float64 // metres relative to the station datum
}

// TideData holds the predicted events for one station over a window.
type TideData struct {
	StationCode string
	StationName string
	TimeZone    string
	Events      []TideEvent // Ordered by time
	GeneratedAt time.Time
}

// GetEventsForDay returns tide events for a specific date, in the location of
// date. Midnight belongs to the day it starts.
func (td *TideData) GetEventsForDay(date time.Time) []TideEvent {
	var events []TideEvent
	startOfDay := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location())
	endOfDay := startOfDay.AddDate(0, 0, 1)

	for _, event := range td.Events {
		if !event.Time.Before(startOfDay) && event.Time.Before(endOfDay) {
			events = append(events, event)
		}
	}
	return events
}

// Days returns the distinct local dates covered by the events, in order.
func (td *TideData) Days(loc *time.Location) []time.Time {
	var days []time.Time
	for _, event := range td.Events {
		t := event.Time.In(loc)
		day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
		if len(days) == 0 || !days[len(days)-1].Equal(day) {
			days = append(days, day)
		}
	}
	return days
}
