// Package tui is a terminal front end for the dashboard controller.
// Layout:
// +---------------------------------------------------------------+
// | CDMX Flight Board  [Live]  Next refresh: 87s  Last updated: .. |
// |  ______________________________________      _______________  |
// | | flight table                         |    | airline stats | |
// |  --------------------------------------      ---------------  |
// |                                              | density (h)   | |
// | selected flight details                                       |
// | key help                                                      |
// +---------------------------------------------------------------+
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/yegors/cdmx-flightboard/internal/adsb"
	"github.com/yegors/cdmx-flightboard/internal/board"
	"github.com/yegors/cdmx-flightboard/internal/dashboard"
	"github.com/yegors/cdmx-flightboard/internal/layers"
	"github.com/yegors/cdmx-flightboard/pkg/logger"
)

// sortKeys maps the number row to the table columns, in column order
var sortKeys = []string{"1", "2", "3", "4", "5", "6", "7", "8", "9", "0", "-", "="}

var columnWidths = []int{10, 18, 8, 14, 6, 10, 20, 18, 10, 6, 6, 9}

// commandTimeout bounds a round trip to the dashboard controller
const commandTimeout = 2 * time.Second

// Dashboard is the controller that owns selection, heatmap visibility and sort.
// The terminal only reads its views and sends it commands.
type Dashboard interface {
	View() dashboard.View
	ToggleRow(ctx context.Context, icao24 string) error
	SetHeatmapVisible(ctx context.Context, visible bool) error
	ToggleSort(ctx context.Context, key board.SortKey) (board.SortState, error)
	Done() <-chan struct{}
}

// Refresher triggers an out-of-band fetch
type Refresher interface {
	Refresh() error
}

// Options configures the dashboard
type Options struct {
	TableHeight       int
	NotifyLowAltitude bool
	Area              adsb.BoundingBox // extent of the density panel
}

type viewChangedMsg struct{}

type dashboardDoneMsg struct{}

type notifiedMsg struct {
	err error
}

// Model implements tea.Model
type Model struct {
	dash      Dashboard
	surface   *Surface
	refresher Refresher
	notifier  Notifier
	opts      Options
	logger    *logger.Logger
	clock     func() time.Time

	width     int
	height    int
	theme     Theme
	baseStyle lipgloss.Style
	table     table.Model

	view      dashboard.View
	lastCycle uint64
	rows      []board.Row
	lowSeen   map[string]bool
	notice    string
}

// New creates the model over a dashboard controller whose surface and publisher is
// surface. notifier may be nil.
func New(dash Dashboard, surface *Surface, refresher Refresher, notifier Notifier, opts Options, log *logger.Logger) *Model {
	if opts.TableHeight <= 0 {
		opts.TableHeight = 20
	}

	styles := table.DefaultStyles()
	styles.Selected = lipgloss.NewStyle().Background(DefaultTheme.Highlight)

	m := &Model{
		dash:      dash,
		surface:   surface,
		refresher: refresher,
		notifier:  notifier,
		opts:      opts,
		logger:    log.Named("tui"),
		clock:     time.Now,
		theme:     DefaultTheme,
		baseStyle: lipgloss.NewStyle(),
		lowSeen:   make(map[string]bool),
		table: table.New(
			table.WithColumns(columnsFor(board.DefaultSort())),
			table.WithRows([]table.Row{}),
			table.WithFocused(true),
			table.WithHeight(opts.TableHeight),
			table.WithStyles(styles),
		),
	}
	m.view = dash.View()
	m.refreshTable()
	return m
}

func waitForChange(changes, done <-chan struct{}) tea.Cmd {
	return func() tea.Msg {
		select {
		case <-changes:
			return viewChangedMsg{}
		case <-done:
			return dashboardDoneMsg{}
		}
	}
}

func (m *Model) waitForChange() tea.Cmd {
	return waitForChange(m.surface.Changes(), m.dash.Done())
}

// Init starts listening for dashboard changes
func (m *Model) Init() tea.Cmd {
	return m.waitForChange()
}

// Update handles keys, window resizes and dashboard changes
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) { //nolint:ireturn // required by interface
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if h := msg.Height - 10; h > 5 {
			m.table.SetHeight(h)
		}

	case tea.KeyMsg:
		return m, m.handleKey(msg)

	case viewChangedMsg:
		cmd := m.apply(m.dash.View())
		return m, tea.Batch(cmd, m.waitForChange())

	case dashboardDoneMsg:
		return m, tea.Quit

	case notifiedMsg:
		if msg.err != nil {
			m.logger.Warn("Desktop notification failed", logger.Error(msg.err))
		}
	}
	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) tea.Cmd {
	key := msg.String()
	for i, k := range sortKeys {
		if key == k {
			col := board.Columns[i].Key
			return m.command("Sort", func(ctx context.Context) error {
				_, err := m.dash.ToggleSort(ctx, col)
				return err
			})
		}
	}

	switch key {
	case "q", "ctrl+c":
		return tea.Quit
	case "enter":
		return m.toggleCursorRow()
	case "h":
		visible := !m.view.HeatmapVisible
		return m.command("Heatmap", func(ctx context.Context) error {
			return m.dash.SetHeatmapVisible(ctx, visible)
		})
	case "r":
		if err := m.refresher.Refresh(); err != nil {
			m.notice = "Refresh: " + err.Error()
		} else {
			m.notice = "Refresh requested"
		}
	case "esc":
		if m.table.Focused() {
			m.table.Blur()
		} else {
			m.table.Focus()
		}
	default:
		var cmd tea.Cmd
		m.table, cmd = m.table.Update(msg)
		return cmd
	}
	return nil
}

// command sends one command to the dashboard and installs the resulting view
func (m *Model) command(name string, fn func(ctx context.Context) error) tea.Cmd {
	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	if err := fn(ctx); err != nil {
		m.logger.Debug("Dashboard command failed", logger.String("command", name), logger.Error(err))
		m.notice = name + ": " + err.Error()
	}
	return m.apply(m.dash.View())
}

func (m *Model) toggleCursorRow() tea.Cmd {
	i := m.table.Cursor()
	if i < 0 || i >= len(m.rows) {
		return nil
	}
	key := m.rows[i].ICAO24
	return m.command("Select", func(ctx context.Context) error {
		return m.dash.ToggleRow(ctx, key)
	})
}

// apply installs a dashboard view and returns the notification command for new low flights
func (m *Model) apply(v dashboard.View) tea.Cmd {
	m.view = v

	var cmd tea.Cmd
	if v.Snapshot.Cycle != m.lastCycle {
		m.lastCycle = v.Snapshot.Cycle
		cmd = m.trackLowAltitude(v.Snapshot.Flights)
	}
	m.refreshTable()
	return cmd
}

// trackLowAltitude remembers the current low flights and alerts on new ones
func (m *Model) trackLowAltitude(flights []adsb.FlightRecord) tea.Cmd {
	current := make(map[string]bool)
	var fresh []adsb.FlightRecord
	for _, f := range flights {
		if !f.IsLowAltitude {
			continue
		}
		current[f.ICAO24] = true
		if !m.lowSeen[f.ICAO24] {
			fresh = append(fresh, f)
		}
	}
	m.lowSeen = current

	if !m.opts.NotifyLowAltitude || m.notifier == nil || len(fresh) == 0 {
		return nil
	}

	alerts := lowAltitudeAlerts(fresh)
	notifier := m.notifier
	return func() tea.Msg {
		for _, a := range alerts {
			if err := notifier.Notify(a[0], a[1]); err != nil {
				return notifiedMsg{err: err}
			}
		}
		return notifiedMsg{}
	}
}

func columnsFor(s board.SortState) []table.Column {
	cols := make([]table.Column, len(board.Columns))
	for i, c := range board.Columns {
		cols[i] = table.Column{
			Title: fmt.Sprintf("%s %s%s", sortKeys[i], c.Label, s.Indicator(c.Key)),
			Width: columnWidths[i],
		}
	}
	return cols
}

func (m *Model) refreshTable() {
	m.rows = board.Rows(m.view.Snapshot.Flights, m.view.Sort, m.view.Selected, m.clock())

	rows := make([]table.Row, len(m.rows))
	for i, r := range m.rows {
		callsign := r.Callsign
		if r.Selected {
			callsign = "▶ " + callsign
		}
		altitude := r.Altitude
		if r.LowAltitude {
			altitude = "⚠ " + altitude
		}
		rows[i] = table.Row{
			callsign, r.Airline, r.ICAO24, r.OriginCountry, r.Squawk, r.Status,
			altitude, r.Velocity, r.VerticalRate, r.Distance, r.Track, r.SecondsAgo,
		}
	}

	m.table.SetColumns(columnsFor(m.view.Sort))
	m.table.SetRows(rows)

	// An empty table leaves the cursor at -1
	switch c := m.table.Cursor(); {
	case len(rows) == 0:
	case c < 0:
		m.table.SetCursor(0)
	case c >= len(rows):
		m.table.SetCursor(len(rows) - 1)
	}
}

// View renders the dashboard
func (m *Model) View() string {
	column := m.baseStyle.Padding(1, 0, 0, 0).Render

	return m.baseStyle.
		Width(m.width).
		Render(
			lipgloss.JoinVertical(lipgloss.Left,
				m.viewStatus(),
				column(lipgloss.JoinHorizontal(lipgloss.Top,
					m.viewTable(),
					m.viewStats(),
				)),
				column(m.viewSelection()),
				m.viewHelp(),
			),
		)
}

func (m *Model) viewStatus() string {
	snap := m.view.Snapshot
	indicator := m.baseStyle.
		Foreground(lipgloss.Color("#FFFFFF")).
		Background(m.theme.statusColor(snap.Status)).
		Padding(0, 1).
		Render(board.StatusText(snap))

	heat := "off"
	if m.view.HeatmapVisible {
		heat = "on"
	}

	return lipgloss.JoinHorizontal(lipgloss.Center,
		m.baseStyle.Bold(true).Render("CDMX Flight Board"), "  ",
		indicator, "  ",
		board.CountdownText(snap), "  ",
		board.LastUpdatedText(snap), "  ",
		fmt.Sprintf("Flights: %d", len(snap.Flights)), "  ",
		"Heatmap: "+heat,
	)
}

func (m *Model) viewTable() string {
	return m.baseStyle.
		Border(lipgloss.NormalBorder()).
		BorderForeground(m.theme.Border).
		Render(m.table.View())
}

func (m *Model) viewStats() string {
	var b strings.Builder
	b.WriteString(m.baseStyle.Bold(true).Render("Traffic Analysis"))
	for _, s := range board.AirlineStats(m.view.Snapshot.Flights) {
		fmt.Fprintf(&b, "\n%-22s %3d", s.Airline, s.Count)
	}

	return m.baseStyle.
		Border(lipgloss.NormalBorder()).
		BorderForeground(m.theme.Border).
		Padding(0, 1).
		MarginLeft(1).
		Render(b.String())
}

// viewDensity draws the heat layer as a character grid while it is visible
func (m *Model) viewDensity() string {
	if !m.view.HeatmapVisible {
		return ""
	}
	grid := densityGrid(m.surface.Heat(), m.opts.Area, densityCols, densityRows)
	if grid == nil {
		return ""
	}

	return m.baseStyle.
		Border(lipgloss.NormalBorder()).
		BorderForeground(m.theme.Border).
		Foreground(m.theme.Highlight).
		MarginLeft(1).
		Render(m.baseStyle.Bold(true).Render("Traffic Density") + "\n" + strings.Join(grid, "\n"))
}

func (m *Model) viewSelection() string {
	f, ok := m.view.Snapshot.Find(m.view.Selected)
	if m.view.Selected == "" || !ok {
		return m.baseStyle.Foreground(m.theme.Secondary).Render("No flight selected")
	}

	parts := make([]string, 0, 6)
	for _, row := range layers.TooltipRows(f) {
		parts = append(parts, fmt.Sprintf("%s: %s", row.Label, row.Value))
	}
	parts = append(parts, "Dist: "+board.DistanceText(f.DistanceNmi)+" nmi", "Track: "+board.TrackText(f.TrueTrack))
	return m.baseStyle.Foreground(m.theme.Highlight).Render(strings.Join(parts, "  "))
}

func (m *Model) viewHelp() string {
	help := "1-9 0 - = sort • ↑/↓ move • enter select • h heatmap • r refresh • q quit"
	if m.notice != "" {
		help += "  |  " + m.notice
	}
	return m.baseStyle.Foreground(m.theme.Secondary).Render(help)
}
