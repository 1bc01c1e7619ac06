package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/ngmaloney/tide-terminal/internal/models"
	"github.com/ngmaloney/tide-terminal/internal/tidetime"
)

// renderTidePane renders the predicted tides grouped by local day.
func (m Model) renderTidePane(width int) string {
	var content strings.Builder

	content.WriteString(titleStyle.Render("Tides"))
	content.WriteString("\n\n")

	if m.prediction == nil || len(m.prediction.Data.Events) == 0 {
		content.WriteString(mutedStyle.Render("No tide data available"))
		return paneStyle.Width(width).Render(content.String())
	}

	content.WriteString(renderTideDays(m.prediction.Data, m.prediction.Location, m.clock.Now()))
	return paneStyle.Width(width).Render(content.String())
}

// renderTideDays lists the events of data per day in loc, labelling the
// first two days relative to now.
func renderTideDays(data *models.TideData, loc *time.Location, now time.Time) string {
	var lines []string
	today := now.In(loc)
	todayDate := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, loc)

	for _, date := range data.Days(loc) {
		events := data.GetEventsForDay(date)
		if len(events) == 0 {
			continue
		}

		var dayLabel string
		switch {
		case date.Equal(todayDate):
			dayLabel = "Today"
		case date.Equal(todayDate.AddDate(0, 0, 1)):
			dayLabel = "Tomorrow"
		default:
			dayLabel = date.Format("Monday")
		}
		lines = append(lines, fmt.Sprintf("%s %s", labelStyle.Render(dayLabel), mutedStyle.Render(date.Format("Jan 2"))))

		for _, event := range events {
			local := tidetime.LocalizeIn(event.Time, loc)
			style := lowStyle
			if event.Type == models.TideHigh {
				style = highStyle
			}
			lines = append(lines, fmt.Sprintf("  %s  %s  %5.2f m",
				valueStyle.Render(local.Format("15:04 MST")),
				style.Width(4).Render(event.Type.Label()),
				event.Height))
		}
		lines = append(lines, "")
	}
	return strings.Join(lines, "\n")
}
