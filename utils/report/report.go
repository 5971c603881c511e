// Package report renders grouped stacks for the terminal.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-isatty"
	"github.com/samber/lo"
	"github.com/sthembisoo/unique-stacks/utils/stacks"
	"golang.org/x/term"
)

const (
	FormatText  = "text"
	FormatTable = "table"
	FormatJSON  = "json"
)

// Formats lists the accepted output formats.
var Formats = []string{FormatText, FormatTable, FormatJSON}

const (
	bannerPrefix = "============================"
	bannerSuffix = "======================================"

	// room left for the count and percent columns and the table borders
	tableChrome = 30
)

// Write writes r to w in the requested format.
func Write(w io.Writer, r stacks.Report, format string) error {
	switch strings.ToLower(format) {
	case "", FormatText:
		return writeText(w, r)
	case FormatTable:
		return writeTable(w, r)
	case FormatJSON:
		return writeJSON(w, r)
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}
}

func writeText(w io.Writer, r stacks.Report) error {
	if _, err := fmt.Fprintln(w, "Total:", r.Total); err != nil {
		return err
	}

	for _, group := range r.Groups {
		banner := fmt.Sprintf("%s %d %s%% %s", bannerPrefix, group.Count, formatPercent(r.Percent(group.Count)), bannerSuffix)
		if _, err := fmt.Fprintln(w, banner); err != nil {
			return err
		}
		for _, line := range enumerate(group.Stack) {
			if _, err := fmt.Fprintln(w, line); err != nil {
				return err
			}
		}
	}
	return nil
}

func writeTable(w io.Writer, r stacks.Report) error {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	if isTerminal(w) {
		tw.SetStyle(table.StyleColoredBright)
	}
	tw.Style().Options.SeparateRows = true

	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignRight, AlignHeader: text.AlignCenter},
		{Number: 2, Align: text.AlignRight, AlignHeader: text.AlignCenter},
		{Number: 3, Align: text.AlignLeft, AlignHeader: text.AlignCenter, WidthMax: stackColumnWidth(w)},
	})

	tw.AppendHeader(table.Row{"Count", "Percent", "Stack"})
	for _, group := range r.Groups {
		tw.AppendRow(table.Row{
			group.Count,
			fmt.Sprintf("%.2f%%", r.Percent(group.Count)),
			strings.Join(enumerate(group.Stack), "\n"),
		})
	}
	tw.AppendFooter(table.Row{r.Total, "", "Total"})

	_, err := fmt.Fprintln(w, tw.Render())
	return err
}

type jsonGroup struct {
	Count   int      `json:"count"`
	Percent float64  `json:"percent"`
	Stack   []string `json:"stack"`
}

type jsonReport struct {
	Total  int         `json:"total"`
	Groups []jsonGroup `json:"groups"`
}

func writeJSON(w io.Writer, r stacks.Report) error {
	out := jsonReport{
		Total: r.Total,
		Groups: lo.Map(r.Groups, func(group stacks.Group, _ int) jsonGroup {
			return jsonGroup{
				Count:   group.Count,
				Percent: r.Percent(group.Count),
				Stack:   lo.Ternary(group.Stack == nil, []string{}, group.Stack),
			}
		}),
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func enumerate(stack []string) []string {
	return lo.Map(stack, func(label string, i int) string {
		return fmt.Sprintf("[%d] %s", i, label)
	})
}

func formatPercent(percent float64) string {
	return strconv.FormatFloat(percent, 'f', -1, 64)
}

func stackColumnWidth(w io.Writer) int {
	f, ok := w.(*os.File)
	if !ok || !isTerminal(w) {
		return 0
	}
	width, _, err := term.GetSize(int(f.Fd()))
	if err != nil || width <= tableChrome {
		return 0
	}
	return width - tableChrome
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
