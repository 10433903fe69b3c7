package cli

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/matzehuels/watershed/pkg/hydro"
	"github.com/matzehuels/watershed/pkg/pipeline"
)

// Progress view styles
var (
	barFullStyle  = lipgloss.NewStyle().Foreground(colorCyan)
	barEmptyStyle = lipgloss.NewStyle().Foreground(colorDim)
	recentStyle   = lipgloss.NewStyle().Foreground(colorGray)
)

const (
	barWidth    = 40
	recentLines = 5
)

// =============================================================================
// ProgressModel - Live batch progress
// =============================================================================

// progressMsg reports one recorded outlet.
type progressMsg pipeline.Progress

// runDoneMsg ends the program with the run's outcome.
type runDoneMsg struct {
	result *pipeline.Result
	err    error
}

// ProgressModel is the bubbletea model showing a running batch.
type ProgressModel struct {
	Total    int
	Done     int
	HighRes  int
	LowRes   int
	Failed   int
	Recent   []pipeline.Progress
	Started  time.Time
	Stopping bool

	cancel context.CancelFunc
	result *pipeline.Result
	err    error
}

// NewProgressModel creates a model for a batch of total outlets. cancel is
// called when the user quits before the run finishes.
func NewProgressModel(total int, cancel context.CancelFunc) ProgressModel {
	return ProgressModel{Total: total, Started: time.Now(), cancel: cancel}
}

func (m ProgressModel) Init() tea.Cmd {
	return nil
}

func (m ProgressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			// The in-flight outlets complete; wait for runDoneMsg.
			if !m.Stopping && m.cancel != nil {
				m.cancel()
			}
			m.Stopping = true
		}
	case progressMsg:
		m.Done = msg.Done
		switch msg.Result {
		case string(hydro.ResolutionHigh):
			m.HighRes++
		case string(hydro.ResolutionLow):
			m.LowRes++
		default:
			m.Failed++
		}
		m.Recent = append(m.Recent, pipeline.Progress(msg))
		if len(m.Recent) > recentLines {
			m.Recent = m.Recent[len(m.Recent)-recentLines:]
		}
	case runDoneMsg:
		m.result = msg.result
		m.err = msg.err
		return m, tea.Quit
	}
	return m, nil
}

func (m ProgressModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render("Delineating basins"))
	b.WriteString("\n\n")
	b.WriteString(renderBar(m.Done, m.Total, barWidth))
	b.WriteString(fmt.Sprintf("  %d/%d", m.Done, m.Total))
	b.WriteString("\n\n")

	b.WriteString(fmt.Sprintf("  %s  %s  %s  %s\n",
		styleHighRes.Render(fmt.Sprintf("%d high res", m.HighRes)),
		styleLowRes.Render(fmt.Sprintf("%d low res", m.LowRes)),
		styleIconError.Render(fmt.Sprintf("%d failed", m.Failed)),
		StyleDim.Render(time.Since(m.Started).Round(time.Second).String()),
	))

	if len(m.Recent) > 0 {
		b.WriteString("\n")
	}
	for _, p := range m.Recent {
		line := fmt.Sprintf("  %s %s", iconInfo, p.OutletID)
		if p.Reason != "" {
			line += ": " + p.Reason
		} else {
			line += ": " + hydro.Resolution(p.Result).Label()
		}
		b.WriteString(recentStyle.Render(line))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	if m.Stopping {
		b.WriteString(StyleWarning.Render("  stopping after in-flight outlets..."))
	} else {
		b.WriteString(StyleDim.Render("  q quit"))
	}
	b.WriteString("\n")
	return b.String()
}

// renderBar draws a progress bar of width cells.
func renderBar(done, total, width int) string {
	filled := 0
	if total > 0 {
		filled = done * width / total
	}
	filled = min(max(filled, 0), width)
	return "  " + barFullStyle.Render(strings.Repeat("█", filled)) +
		barEmptyStyle.Render(strings.Repeat("░", width-filled))
}

// runWithProgress runs a batch behind the progress view.
func runWithProgress(ctx context.Context, runner *pipeline.Runner, outlets []hydro.Outlet, opts pipeline.Options) (*pipeline.Result, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := tea.NewProgram(NewProgressModel(len(outlets), cancel), tea.WithOutput(os.Stderr))
	runner.OnProgress = func(pr pipeline.Progress) {
		p.Send(progressMsg(pr))
	}

	go func() {
		result, err := runner.Run(ctx, outlets, opts)
		p.Send(runDoneMsg{result: result, err: err})
	}()

	final, err := p.Run()
	if err != nil {
		return nil, fmt.Errorf("progress view: %w", err)
	}
	m := final.(ProgressModel)
	return m.result, m.err
}
