package cli

import (
	"fmt"
	"strconv"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/matzehuels/watershed/pkg/hydro"
	"github.com/matzehuels/watershed/pkg/ledger"
	"github.com/matzehuels/watershed/pkg/pipeline"
)

// =============================================================================
// Color Palette
// =============================================================================

var (
	colorCyan   = lipgloss.Color("36")  // Teal - primary actions
	colorGreen  = lipgloss.Color("35")  // Green - success
	colorYellow = lipgloss.Color("220") // Amber - warnings
	colorRed    = lipgloss.Color("167") // Soft red - errors
	colorBlue   = lipgloss.Color("75")  // Light blue - links
	colorWhite  = lipgloss.Color("255") // Bright white - values
	colorGray   = lipgloss.Color("245") // Gray - secondary text
	colorDim    = lipgloss.Color("240") // Dim gray - muted text
)

// =============================================================================
// Public Styles
// =============================================================================

var (
	// StyleTitle for main headings.
	StyleTitle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)

	// StyleHighlight for emphasized values.
	StyleHighlight = lipgloss.NewStyle().Foreground(colorCyan)

	// StyleLink for URLs.
	StyleLink = lipgloss.NewStyle().Foreground(colorBlue).Underline(true)

	// StyleDim for secondary/muted text.
	StyleDim = lipgloss.NewStyle().Foreground(colorDim)

	// StyleValue for data values.
	StyleValue = lipgloss.NewStyle().Foreground(colorWhite)

	// StyleNumber for numeric values.
	StyleNumber = lipgloss.NewStyle().Foreground(colorCyan)

	// StyleSuccess for success messages.
	StyleSuccess = lipgloss.NewStyle().Foreground(colorGreen)

	// StyleWarning for warning messages.
	StyleWarning = lipgloss.NewStyle().Foreground(colorYellow)
)

// =============================================================================
// Internal Styles
// =============================================================================

var (
	styleIconSuccess = lipgloss.NewStyle().Foreground(colorGreen)
	styleIconError   = lipgloss.NewStyle().Foreground(colorRed)
	styleIconWarning = lipgloss.NewStyle().Foreground(colorYellow)
	styleIconInfo    = lipgloss.NewStyle().Foreground(colorGray)
	styleIconSpinner = lipgloss.NewStyle().Foreground(colorCyan)

	styleHighRes = lipgloss.NewStyle().Foreground(colorGreen)
	styleLowRes  = lipgloss.NewStyle().Foreground(colorYellow)

	styleCommand = lipgloss.NewStyle().Foreground(colorBlue)
)

// =============================================================================
// Icons
// =============================================================================

const (
	iconSuccess = "✓"
	iconError   = "✗"
	iconWarning = "!"
	iconInfo    = "›"
	iconArrow   = "→"
)

// =============================================================================
// Status Output
// =============================================================================

// printSuccess prints a success message.
func printSuccess(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Println(styleIconSuccess.Render(iconSuccess) + " " + msg)
}

// printError prints an error message.
func printError(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Println(styleIconError.Render(iconError) + " " + msg)
}

// printWarning prints a warning message.
func printWarning(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Println(styleIconWarning.Render(iconWarning) + " " + StyleWarning.Render(msg))
}

// printInfo prints an info/status message.
func printInfo(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Println(styleIconInfo.Render(iconInfo) + " " + msg)
}

// printDetail prints a detail line (indented).
func printDetail(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Println("  " + StyleDim.Render(msg))
}

// =============================================================================
// File Output
// =============================================================================

// printFile prints a file output line.
func printFile(path string) {
	fmt.Println("  " + StyleDim.Render(iconArrow) + " " + StyleValue.Render(path))
}

// =============================================================================
// Key-Value Output
// =============================================================================

// printKeyValue prints a labeled value.
func printKeyValue(key, value string) {
	keyStyle := lipgloss.NewStyle().Foreground(colorGray).Width(12)
	fmt.Println(keyStyle.Render(key) + " " + StyleValue.Render(value))
}

// =============================================================================
// Stats Display
// =============================================================================

// printRunStats prints batch statistics on a single line.
func printRunStats(st pipeline.Stats) {
	parts := []string{
		fmt.Sprintf("%d outlets", st.Outlets),
		fmt.Sprintf("%d regions", st.Regions),
		styleHighRes.Render(fmt.Sprintf("%d high res", st.HighRes)),
		styleLowRes.Render(fmt.Sprintf("%d low res", st.LowRes)),
	}
	if st.Relocated > 0 {
		parts = append(parts, fmt.Sprintf("%d relocated", st.Relocated))
	}
	if st.Failures > 0 {
		parts = append(parts, StyleWarning.Render(fmt.Sprintf("%d failed", st.Failures)))
	}
	parts = append(parts, st.Duration.Round(time.Millisecond).String())

	line := "  "
	for i, part := range parts {
		if i > 0 {
			line += StyleDim.Render(" · ")
		}
		line += StyleDim.Render(part)
	}
	fmt.Println(line)
}

// =============================================================================
// Summary Table
// =============================================================================

// maxTableRows caps the summary table; the full table is in OUTPUT.csv.
const maxTableRows = 25

// renderSummaryTable renders summary rows as a bordered table.
func renderSummaryTable(rows []ledger.Row) string {
	headerStyle := lipgloss.NewStyle().Foreground(colorGray).Bold(true)

	shown := rows
	if len(shown) > maxTableRows {
		shown = shown[:maxTableRows]
	}
	cells := make([][]string, len(shown))
	for i, r := range shown {
		cells[i] = []string{
			r.ID,
			r.Name.Or("—"),
			optionalCell(r.AreaCalc),
			optionalCell(r.AreaReported),
			optionalCell(r.PercDiff),
			optionalCell(r.SnapDist),
			r.Result,
		}
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("ID", "Name", "Area km²", "Reported", "Diff %", "Snap m", "Result").
		Rows(cells...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == -1 {
				return headerStyle
			}
			base := lipgloss.NewStyle().Padding(0, 1)
			if col != 6 || row >= len(shown) {
				return base
			}
			switch shown[row].Result {
			case hydro.ResolutionHigh.Label():
				return base.Foreground(colorGreen)
			case hydro.ResolutionLow.Label():
				return base.Foreground(colorYellow)
			}
			return base.Foreground(colorRed)
		})

	out := t.Render()
	if len(rows) > len(shown) {
		out += "\n" + StyleDim.Render(fmt.Sprintf("  … %d more rows", len(rows)-len(shown)))
	}
	return out
}

// printSummaryTable prints the summary table.
func printSummaryTable(rows []ledger.Row) {
	if len(rows) == 0 {
		return
	}
	fmt.Println(renderSummaryTable(rows))
}

func optionalCell(o hydro.Optional[float64]) string {
	if v, ok := o.Get(); ok {
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	return "—"
}

// =============================================================================
// Commands & Next Steps
// =============================================================================

// printNextStep prints a suggested next command.
func printNextStep(description, cmd string) {
	fmt.Println(StyleDim.Render(description+":") + " " + styleCommand.Render(cmd))
}
