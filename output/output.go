// Package output renders sscp/commands/conformance results as terminal
// tables.
package output

import (
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/springcard/sscp-host/commands"
	"github.com/springcard/sscp-host/conformance"
	"github.com/springcard/sscp-host/sscp"
)

var (
	colorHeader  = text.Colors{text.FgCyan, text.Bold}
	colorLabel   = text.Colors{text.FgYellow}
	colorValue   = text.Colors{text.FgWhite}
	colorSuccess = text.Colors{text.FgGreen}
	colorError   = text.Colors{text.FgRed}
	colorWarn    = text.Colors{text.FgYellow}
)

func getTableStyle() table.Style {
	style := table.StyleRounded
	style.Color.Header = colorHeader
	style.Color.Row = text.Colors{text.FgWhite}
	style.Color.RowAlternate = text.Colors{text.FgHiWhite}
	style.Options.SeparateRows = false
	return style
}

func newTable() table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetStyle(getTableStyle())
	t.Style().Options.SeparateRows = false
	return t
}

// PrintSessionStats prints the session's transport and protocol counters.
func PrintSessionStats(s *sscp.Stats) {
	fmt.Println()
	t := newTable()
	t.SetTitle("SESSION STATISTICS")
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Colors: colorLabel, WidthMin: 18},
		{Number: 2, Colors: colorValue, WidthMin: 30},
	})
	t.AppendRow(table.Row{"Opened", s.WhenOpen.Format("2006-01-02 15:04:05")})
	if !s.WhenSession.IsZero() {
		t.AppendRow(table.Row{"Authenticated", s.WhenSession.Format("2006-01-02 15:04:05")})
	}
	t.AppendRow(table.Row{"Sessions", s.SessionCount})
	t.AppendRow(table.Row{"Timeouts/Retries", s.ErrorCount})
	t.AppendRow(table.Row{"Bytes Sent", s.BytesSent})
	t.AppendRow(table.Row{"Bytes Received", s.BytesReceived})
	t.Render()
}

// PrintDeviceInfo prints the reader's GetInfos record.
func PrintDeviceInfo(info *commands.DeviceInfo) {
	fmt.Println()
	t := newTable()
	t.SetTitle("READER INFORMATION")
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Colors: colorLabel, WidthMin: 18},
		{Number: 2, Colors: colorValue, WidthMin: 30},
	})
	t.AppendRow(table.Row{"Firmware", fmt.Sprintf("%d.%d", info.FirmwareMajor, info.FirmwareMinor)})
	t.AppendRow(table.Row{"Serial Number", fmt.Sprintf("%08X", info.SerialNumber)})
	t.AppendRow(table.Row{"Capabilities", fmt.Sprintf("0x%02X", info.Capabilities)})
	t.Render()
}

// PrintScanResult prints the outcome of a global NFC scan.
func PrintScanResult(r *commands.ScanResult) {
	fmt.Println()
	t := newTable()
	t.SetTitle("SCAN RESULT")
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Colors: colorLabel, WidthMin: 18},
		{Number: 2, Colors: colorValue, WidthMin: 40},
	})
	if !r.CardPresent {
		t.AppendRow(table.Row{"Card Present", colorWarn.Sprint("no")})
		t.Render()
		return
	}
	t.AppendRow(table.Row{"Card Present", colorSuccess.Sprint("yes")})
	t.AppendRow(table.Row{"UID", fmt.Sprintf("%X", r.UID)})
	t.Render()
}

// PrintConformanceReport prints a conformance.Suite's results grouped by
// category.
func PrintConformanceReport(s *conformance.Suite) {
	sum := s.GetSummary()

	fmt.Println()
	t := newTable()
	t.SetTitle("CONFORMANCE SUMMARY")
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Colors: colorLabel, WidthMin: 18},
		{Number: 2, Colors: colorValue, WidthMin: 15},
	})
	t.AppendRow(table.Row{"Total Scenarios", sum.Total})
	t.AppendRow(table.Row{"Passed", colorSuccess.Sprintf("%d", sum.Passed)})
	t.AppendRow(table.Row{"Failed", colorError.Sprintf("%d", sum.Failed)})
	t.AppendRow(table.Row{"Pass Rate", fmt.Sprintf("%.1f%%", sum.PassRate)})
	t.Render()

	fmt.Println()
	t2 := newTable()
	t2.SetTitle("SCENARIOS")
	t2.AppendHeader(table.Row{"Status", "Category", "Scenario", "Detail"})
	t2.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, WidthMin: 6},
		{Number: 2, Colors: colorLabel, WidthMin: 10},
		{Number: 3, Colors: colorValue, WidthMin: 30},
		{Number: 4, Colors: colorValue, WidthMin: 35},
	})
	for _, r := range s.Results {
		status := colorSuccess.Sprint("PASS")
		detail := r.Actual
		if !r.Passed {
			status = colorError.Sprint("FAIL")
			if r.Error != "" {
				detail = r.Error
			} else {
				detail = fmt.Sprintf("expected %s, got %s", r.Expected, r.Actual)
			}
		}
		t2.AppendRow(table.Row{status, r.Category, r.Name, detail})
	}
	t2.Render()
}

// PrintError prints an error message.
func PrintError(msg string) { fmt.Println(colorError.Sprintf("Error: %s", msg)) }

// PrintSuccess prints a success message.
func PrintSuccess(msg string) { fmt.Println(colorSuccess.Sprint(msg)) }

// PrintWarning prints a warning message.
func PrintWarning(msg string) { fmt.Println(colorWarn.Sprint(msg)) }
