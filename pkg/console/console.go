package console

import (
	"fmt"
	"io"
	"math"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/pterm/pterm"

	"github.com/osg-htc/osg-reports/internal/shared/types"
)

// Console is the pterm implementation of ConsoleInterface. Everything it
// prints goes to its writer (stderr by default) so stdout carries only
// report output.
type Console struct {
	out io.Writer
}

// NewConsole creates a Console writing to stderr.
func NewConsole() *Console {
	return NewConsoleWriter(os.Stderr)
}

// NewConsoleWriter creates a Console writing to w. pterm's default output is
// redirected as well, since spinners and prefix printers use it.
func NewConsoleWriter(w io.Writer) *Console {
	pterm.SetDefaultOutput(w)
	color.Output = w
	return &Console{out: w}
}

// LogInfo prints an informational line.
func (c *Console) LogInfo(format string, a ...interface{}) {
	pterm.Info.WithWriter(c.out).Printfln(format, a...)
}

func (c *Console) LogWarning(format string, a ...interface{}) {
	pterm.Warning.WithWriter(c.out).Printfln(format, a...)
}

func (c *Console) LogError(format string, a ...interface{}) {
	pterm.Error.WithWriter(c.out).Printfln(format, a...)
}

func (c *Console) LogSuccess(format string, a ...interface{}) {
	pterm.Success.WithWriter(c.out).Printfln(format, a...)
}

type statusHandle struct {
	spinner *pterm.SpinnerPrinter
}

// Status starts a spinner with the given message.
func (c *Console) Status(message string) types.StatusHandle {
	spinner, _ := pterm.DefaultSpinner.WithWriter(c.out).WithRemoveWhenDone(true).Start(message)
	return &statusHandle{spinner: spinner}
}

func (h *statusHandle) Update(message string) {
	if h.spinner != nil {
		h.spinner.UpdateText(message)
	}
}

func (h *statusHandle) Stop() {
	if h.spinner != nil {
		_ = h.spinner.Stop()
	}
}

type progressHandle struct {
	bar *pterm.ProgressbarPrinter
}

// ProgressWithTotal starts a progress bar of total steps.
func (c *Console) ProgressWithTotal(title string, total int) types.ProgressHandle {
	bar, _ := pterm.DefaultProgressbar.
		WithWriter(c.out).
		WithTotal(total).
		WithTitle(title).
		WithShowElapsedTime(true).
		WithShowCount(true).
		WithRemoveWhenDone(true).
		Start()
	return &progressHandle{bar: bar}
}

func (h *progressHandle) Increment() {
	if h.bar != nil {
		h.bar.Increment()
	}
}

func (h *progressHandle) Stop() {
	if h.bar != nil {
		_, _ = h.bar.Stop()
	}
}

// DisplayTrendBars draws one bar per month scaled to the busiest month,
// colored by the change against the previous month.
func (c *Console) DisplayTrendBars(title string, counts []types.MonthlyCount) {
	peak := 0
	for _, mc := range counts {
		if mc.Count > peak {
			peak = mc.Count
		}
	}

	if peak == 0 {
		c.LogWarning("No activity recorded for this period")
		return
	}

	data := pterm.TableData{
		{"Month", "Count", "", "MoM Change"},
	}

	prev := -1
	for _, mc := range counts {
		bar := strings.Repeat("█", mc.Count*40/peak)
		barColor := pterm.FgBlue.Sprint(bar)
		change := ""

		switch {
		case prev < 0:
		case prev == 0 && mc.Count == 0:
			change = pterm.FgYellow.Sprint("0%")
			barColor = pterm.FgYellow.Sprint(bar)
		case prev == 0:
			change = pterm.FgGreen.Sprint("N/A")
			barColor = pterm.FgGreen.Sprint(bar)
		default:
			pct := float64(mc.Count-prev) * 100 / float64(prev)
			switch {
			case math.Abs(pct) < 0.01:
				change = pterm.FgYellow.Sprint("0%")
				barColor = pterm.FgYellow.Sprint(bar)
			case pct > 999:
				change = pterm.FgGreen.Sprint(">+999%")
				barColor = pterm.FgGreen.Sprint(bar)
			case pct > 0:
				change = pterm.FgGreen.Sprintf("+%.2f%%", pct)
				barColor = pterm.FgGreen.Sprint(bar)
			default:
				change = pterm.FgRed.Sprintf("%.2f%%", pct)
				barColor = pterm.FgRed.Sprint(bar)
			}
		}

		data = append(data, []string{mc.Month, fmt.Sprint(mc.Count), barColor, change})
		prev = mc.Count
	}

	rendered, _ := pterm.DefaultTable.WithHasHeader().WithData(data).Srender()
	panel := pterm.DefaultBox.WithTitle(title).WithBoxStyle(pterm.NewStyle(pterm.FgCyan)).Sprint(rendered)
	fmt.Fprintln(c.out, "\n"+panel)
}
