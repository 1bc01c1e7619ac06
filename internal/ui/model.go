// Package ui is the interactive terminal front end: search for a station,
// pick one from the matches and browse its predicted tides.
package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/jonboulle/clockwork"

	"github.com/ngmaloney/tide-terminal/internal/geocoding"
	"github.com/ngmaloney/tide-terminal/internal/predictor"
	"github.com/ngmaloney/tide-terminal/internal/report"
	"github.com/ngmaloney/tide-terminal/internal/stations"
)

// AppState represents the current state of the application
type AppState int

const (
	StateSearch       AppState = iota // Search for a station by name or code
	StateStationList                  // Pick one of several matching stations
	StateLoading                      // Predicting (and possibly fitting) tides
	StateDisplay                      // Tides of the selected station
	StateProvisioning                 // Initial station list download
	StateError                        // Error state
)

// Model represents the application's state
type Model struct {
	state  AppState
	width  int
	height int
	err    error

	backend Backend
	clock   clockwork.Clock

	// Search
	searchInput  textinput.Model
	searchQuery  string
	initialQuery string

	// Stations
	stations    []stations.Station
	place       *geocoding.Location
	stationList list.Model
	selected    *stations.Station

	// Data
	prediction *predictor.Prediction
	curve      []report.Point
	generated  bool

	// Provisioning
	spinner           spinner.Model
	provisionStatus   string
	provisionChannels *provisioningStartedMsg
}

// Option configures NewModel.
type Option func(*Model)

// WithClock sets the clock used to label days.
func WithClock(c clockwork.Clock) Option {
	return func(m *Model) { m.clock = c }
}

// WithInitialQuery searches for query as soon as the program starts.
func WithInitialQuery(query string) Option {
	return func(m *Model) { m.initialQuery = query }
}

// NewModel creates a new application model
func NewModel(b Backend, opts ...Option) Model {
	ti := textinput.New()
	ti.Placeholder = "Enter a station name, code or place (e.g. Lyttelton, h551a)..."
	ti.Focus()
	ti.CharLimit = 100
	ti.Width = 60

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	m := Model{
		state:       StateSearch,
		backend:     b,
		clock:       clockwork.NewRealClock(),
		searchInput: ti,
		spinner:     s,
	}
	for _, opt := range opts {
		opt(&m)
	}
	return m
}

// Init checks whether the station list must be downloaded first.
func (m Model) Init() tea.Cmd {
	needed, err := m.backend.NeedsStations()
	if err != nil {
		return func() tea.Msg { return errMsg{err: err} }
	}
	if needed {
		return tea.Batch(m.spinner.Tick, initiateProvisioning(m.backend))
	}
	if m.initialQuery != "" {
		return searchStations(m.backend, m.initialQuery)
	}
	return textinput.Blink
}

// Update handles messages and updates the model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	if msg, ok := msg.(tea.WindowSizeMsg); ok {
		m.width = msg.Width
		m.height = msg.Height
		if m.state == StateStationList {
			m.stationList.SetSize(msg.Width-4, msg.Height-10)
		}
		return m, nil
	}

	switch msg := msg.(type) {
	case errMsg:
		m.err = msg.err
		m.state = StateError
		return m, nil

	case provisioningStartedMsg:
		m.state = StateProvisioning
		m.provisionStatus = "Starting station download..."
		m.provisionChannels = &msg
		return m, tea.Batch(
			waitForProvisionStatus(msg.progressChan),
			waitForProvisionResult(msg.resultChan),
		)

	case provisionStatusMsg:
		m.provisionStatus = string(msg)
		if m.provisionChannels != nil {
			return m, waitForProvisionStatus(m.provisionChannels.progressChan)
		}
		return m, nil

	case provisionResultMsg:
		m.provisionChannels = nil
		if msg.err != nil {
			m.err = fmt.Errorf("provisioning failed: %w", msg.err)
			m.state = StateError
			return m, nil
		}
		m.state = StateSearch
		m.searchInput.Focus()
		if m.initialQuery != "" {
			return m, searchStations(m.backend, m.initialQuery)
		}
		return m, textinput.Blink

	case stationsFoundMsg:
		if msg.err != nil {
			m.err = fmt.Errorf("station search failed: %w", msg.err)
			m.state = StateError
			return m, nil
		}
		m.place = msg.place
		switch len(msg.stations) {
		case 0:
			m.err = fmt.Errorf("no tide stations found matching '%s'", m.query())
			m.state = StateSearch
			return m, nil
		case 1:
			return m.selectStation(msg.stations[0])
		}
		m.stations = msg.stations
		m.stationList = createStationList(msg.stations, m.width-4, m.height-10)
		m.state = StateStationList
		return m, nil

	case tidesLoadedMsg:
		if msg.err != nil {
			m.err = msg.err
			m.state = StateError
			return m, nil
		}
		m.prediction = msg.prediction
		m.curve = msg.curve
		m.generated = msg.generated
		m.state = StateDisplay
		return m, nil
	}

	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		if keyMsg.Type == tea.KeyCtrlC {
			return m, tea.Quit
		}
		// q types into the search box rather than quitting.
		if keyMsg.String() == "q" && m.state != StateSearch && !m.filtering() {
			return m, tea.Quit
		}

		switch m.state {
		case StateSearch:
			return m.handleSearchInput(keyMsg)

		case StateStationList:
			return m.handleStationList(msg)

		case StateDisplay:
			switch keyMsg.String() {
			case "s":
				return m.resetSearch()
			case "r":
				if m.selected != nil {
					m.state = StateLoading
					return m, tea.Batch(m.spinner.Tick, loadTides(m.backend, *m.selected))
				}
			}
			return m, nil

		case StateError:
			return m.resetSearch()
		}
	}

	switch m.state {
	case StateProvisioning, StateLoading:
		m.spinner, cmd = m.spinner.Update(msg)
	case StateSearch:
		m.searchInput, cmd = m.searchInput.Update(msg)
	case StateStationList:
		m.stationList, cmd = m.stationList.Update(msg)
	}
	return m, cmd
}

func (m Model) query() string {
	if m.searchQuery != "" {
		return m.searchQuery
	}
	return m.initialQuery
}

func (m Model) filtering() bool {
	return m.state == StateStationList && m.stationList.FilterState() == list.Filtering
}

func (m Model) resetSearch() (tea.Model, tea.Cmd) {
	m.state = StateSearch
	m.err = nil
	m.searchInput.SetValue("")
	m.searchInput.Focus()
	m.selected = nil
	m.prediction = nil
	m.curve = nil
	m.stations = nil
	m.place = nil
	return m, textinput.Blink
}

func (m Model) selectStation(st stations.Station) (tea.Model, tea.Cmd) {
	m.selected = &st
	m.state = StateLoading
	m.prediction = nil
	m.curve = nil
	return m, tea.Batch(m.spinner.Tick, loadTides(m.backend, st))
}

// handleSearchInput handles keyboard input in search state
func (m Model) handleSearchInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	if m.err != nil && msg.Type != tea.KeyEnter {
		m.err = nil
	}

	if msg.Type == tea.KeyEnter {
		query := m.searchInput.Value()
		if query == "" {
			return m, nil
		}
		m.searchQuery = query
		m.err = nil
		return m, searchStations(m.backend, query)
	}

	m.searchInput, cmd = m.searchInput.Update(msg)
	return m, cmd
}

// handleStationList handles keyboard input in station list state
func (m Model) handleStationList(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	if keyMsg, ok := msg.(tea.KeyMsg); ok && !m.filtering() {
		if keyMsg.Type == tea.KeyEnter {
			if item, ok := m.stationList.SelectedItem().(stationItem); ok {
				return m.selectStation(item.station)
			}
		}
		if keyMsg.String() == "s" || keyMsg.Type == tea.KeyEsc {
			return m.resetSearch()
		}
	}

	m.stationList, cmd = m.stationList.Update(msg)
	return m, cmd
}

// View renders the UI
func (m Model) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	switch m.state {
	case StateProvisioning:
		return m.viewProvisioning()
	case StateSearch:
		return m.viewSearch()
	case StateStationList:
		return m.viewStationList()
	case StateLoading:
		return m.viewLoading()
	case StateDisplay:
		return m.viewDisplay()
	case StateError:
		return m.viewError()
	}

	return ""
}

// viewProvisioning renders the initial setup screen
func (m Model) viewProvisioning() string {
	title := titleStyle.Render("🌊 Tide Terminal Setup")
	status := mutedStyle.Render(m.provisionStatus)
	info := helpStyle.Render("One-time setup: downloading the UHSLC station lists...")

	return lipgloss.JoinVertical(
		lipgloss.Center,
		"",
		title,
		"",
		fmt.Sprintf("%s %s", m.spinner.View(), status),
		"",
		info,
	)
}

// viewError renders the error view
func (m Model) viewError() string {
	title := errorStyle.Render("✗ Error")

	errorMsg := "An unknown error occurred"
	if m.err != nil {
		errorMsg = m.err.Error()
	}
	help := helpStyle.Render("Press any key to return to search • Q: Quit")

	return lipgloss.JoinVertical(lipgloss.Left, title, "", errorMsg, "", help)
}

// viewSearch renders the search view
func (m Model) viewSearch() string {
	title := titleStyle.Render("🌊 Tide Terminal")
	subtitle := mutedStyle.Render("Harmonic tide predictions from UHSLC sea level data")

	searchBox := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("62")).
		Padding(1, 2).
		Width(64).
		Render(m.searchInput.View())

	sections := []string{title, subtitle, "", searchBox}
	if m.err != nil {
		sections = append(sections, "", errorStyle.Padding(0, 2).Render("✗ "+m.err.Error()))
	}
	sections = append(sections,
		"",
		mutedStyle.Render("Examples: Lyttelton | Honolulu | h057"),
		"",
		helpStyle.Render("Press Enter to search • Ctrl+C to quit"),
	)
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// viewStationList renders the station selection list
func (m Model) viewStationList() string {
	title := titleStyle.Render("🌊 Tide Stations")
	subtitle := mutedStyle.Render(fmt.Sprintf("Found %d stations matching %s", len(m.stations), m.query()))
	if m.place != nil {
		subtitle = mutedStyle.Render(fmt.Sprintf("Found %d stations within %d km of %s", len(m.stations), nearbyRadiusKm, m.place.Name))
	}
	help := helpStyle.Render("↑/↓: Navigate • Enter: Select • S/Esc: Back to search • Q: Quit")

	return lipgloss.JoinVertical(lipgloss.Left, title, subtitle, "", m.stationList.View(), "", help)
}

// viewLoading renders the loading view
func (m Model) viewLoading() string {
	s := "Loading tides"
	if m.selected != nil {
		s += fmt.Sprintf(" for %s (%s)", m.selected.Name, m.selected.Code)
	}
	return fmt.Sprintf("%s %s...\n\n%s", m.spinner.View(), s,
		mutedStyle.Render("The first prediction for a station downloads two years of hourly data."))
}

// viewDisplay renders the selected station's tides and water level curve.
func (m Model) viewDisplay() string {
	if m.selected == nil || m.prediction == nil {
		return "No station selected"
	}

	headerStyle := lipgloss.NewStyle().
		Foreground(colorPrimary).
		Bold(true).
		Padding(0, 1).
		MarginBottom(1)
	sections := []string{
		headerStyle.Render(fmt.Sprintf("🌊 %s - %s", m.selected.Code, m.selected.Name)),
		mutedStyle.Render(fmt.Sprintf("📍 %s • %.3f, %.3f • %s",
			m.selected.Country, m.selected.Latitude, m.selected.Longitude, m.prediction.Data.TimeZone)),
	}
	if m.generated {
		sections = append(sections, mutedStyle.Render("Harmonics generated for this station"))
	}

	width := m.width - 6
	if width < 20 {
		width = 20
	}
	if len(m.curve) > 0 {
		span := m.curve[len(m.curve)-1].Time.Sub(m.curve[0].Time)
		sections = append(sections,
			sectionHeaderStyle.Render(fmt.Sprintf("WATER LEVEL (next %.0fh)", span.Hours())),
			sparklineStyle.Render(sparkline(m.curve, width)),
		)
	}

	sections = append(sections,
		m.renderTidePane(width),
		helpStyle.Render("S: New search • R: Refresh • Q: Quit"),
	)
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}
