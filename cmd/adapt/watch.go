package main

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/NimbleMarkets/ntcharts/canvas/runes"
	"github.com/NimbleMarkets/ntcharts/linechart/streamlinechart"

	"github.com/NickSakito777/adapt/pkg/roarm"
)

type WatchCommand struct {
	Port string `long:"port" short:"p" description:"Serial port of the arm (prompts when omitted)"`
}

const (
	watchHeaderHeight = 2 // title + blank line
	watchLegendHeight = 2 // legend row + blank
	watchFooterHeight = 3 // status box
	watchBorderSize   = 2 // chart border
)

// watchJoints are the series shown on the chart, with a distinct color each.
var watchJoints = []struct {
	name  string
	color string
}{
	{"base", "51"},      // cyan
	{"shoulder", "208"}, // orange
	{"elbow", "226"},    // yellow
	{"hand", "201"},     // magenta
}

var (
	watchTitleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	watchChartStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("240"))
	watchStatusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

type watchModel struct {
	snaps    <-chan roarm.Snapshot
	chart    *streamlinechart.Model
	width    int
	height   int
	last     roarm.Snapshot
	hasLast  bool
	quitting bool
}

type snapMsg roarm.Snapshot

func waitForSnap(snaps <-chan roarm.Snapshot) tea.Cmd {
	return func() tea.Msg {
		return snapMsg(<-snaps)
	}
}

func initialWatchModel(snaps <-chan roarm.Snapshot) watchModel {
	chart := streamlinechart.New(80, 20,
		streamlinechart.WithYRange(-180, 180),
	)
	for _, j := range watchJoints {
		style := lipgloss.NewStyle().Foreground(lipgloss.Color(j.color))
		chart.SetDataSetStyles(j.name, runes.ThinLineStyle, style)
	}
	return watchModel{snaps: snaps, chart: &chart}
}

func (m *watchModel) chartSize() (width, height int) {
	if m.width == 0 || m.height == 0 {
		return 80, 20
	}
	width = m.width - watchBorderSize - 2
	if width < 40 {
		width = 40
	}
	height = m.height - watchHeaderHeight - watchLegendHeight - watchFooterHeight - watchBorderSize
	if height < 10 {
		height = 10
	}
	return width, height
}

func (m watchModel) Init() tea.Cmd {
	return waitForSnap(m.snaps)
}

func (m watchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		w, h := m.chartSize()
		m.chart.Resize(w, h)
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		}

	case snapMsg:
		snap := roarm.Snapshot(msg)
		m.chart.PushDataSet("base", snap.Base)
		m.chart.PushDataSet("shoulder", snap.Shoulder)
		m.chart.PushDataSet("elbow", snap.Elbow)
		m.chart.PushDataSet("hand", snap.Hand)
		m.chart.DrawAll()
		m.last = snap
		m.hasLast = true
		return m, waitForSnap(m.snaps)
	}

	return m, nil
}

func (m watchModel) View() string {
	if m.quitting {
		return "Watch stopped.\n"
	}

	var sb strings.Builder

	sb.WriteString(watchTitleStyle.Render("A.D.A.P.T. Watch"))
	if m.width > 0 {
		sb.WriteString(watchStatusStyle.Render(fmt.Sprintf("  [%dx%d]", m.width, m.height)))
	}
	sb.WriteString("\n\n")

	sb.WriteString(watchChartStyle.Render(m.chart.View()))
	sb.WriteString("\n")

	var legend []string
	for _, j := range watchJoints {
		colorStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(j.color)).Bold(true)
		legend = append(legend, colorStyle.Render("━━")+" "+j.name)
	}
	sb.WriteString(strings.Join(legend, "  "))
	sb.WriteString("\n")

	status := "waiting for the first position report..."
	if m.hasLast {
		status = fmt.Sprintf("s=%.1f° e=%.1f° torS=%d torE=%d",
			m.last.Shoulder, m.last.Elbow, m.last.ShoulderTorque, m.last.ElbowTorque)
		if m.last.HasPhone {
			status += fmt.Sprintf(" phone=%.1f°", m.last.Phone)
		}
	}
	sb.WriteString(watchStatusStyle.Render(status + "  -  press 'q' to quit"))
	sb.WriteString("\n")

	return sb.String()
}

func (c *WatchCommand) Execute(args []string) error {
	ch, err := connectArm(c.Port)
	if err != nil {
		return err
	}
	defer ch.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// The sampler goroutine is the only one touching the channel; the TUI
	// just consumes snapshots.
	snaps := make(chan roarm.Snapshot, 1)
	go func() {
		for ctx.Err() == nil {
			snap, ok := ch.QueryPosition()
			if !ok {
				continue
			}
			select {
			case snaps <- snap:
			default:
				// Drop the stale snapshot, replace with the fresh one.
				select {
				case <-snaps:
				default:
				}
				snaps <- snap
			}
		}
	}()

	p := tea.NewProgram(initialWatchModel(snaps), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("run watch TUI: %w", err)
	}
	return nil
}
