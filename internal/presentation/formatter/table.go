package formatter

import (
	"fmt"
	"io"

	"github.com/penwyp/go-cfs-perfmon/internal/analyzer"
	"github.com/penwyp/go-cfs-perfmon/internal/core/model"
	"github.com/penwyp/go-cfs-perfmon/internal/util"
)

// TableFormatter prints one row per plotted ID followed by a totals row.
type TableFormatter struct {
	w io.Writer
}

func NewTableFormatter(w io.Writer) *TableFormatter {
	return &TableFormatter{w: w}
}

func (f *TableFormatter) Format(result *analyzer.Result) error {
	if result == nil || len(result.Stats) == 0 {
		fmt.Fprintln(f.w, "No plotted IDs in the loaded log")
		return nil
	}

	b := newBox(
		[]string{"ID", "Name", "Count", "Min (s)", "Max (s)", "Avg (s)", "Total (s)", "% Span", "% Total", "Over Limit"},
		[]align{alignLeft, alignLeft, alignRight, alignRight, alignRight, alignRight, alignRight, alignRight, alignRight, alignRight},
	)

	p := result.Precision
	rows := make([][]string, 0, len(result.Stats))
	for _, s := range result.Stats {
		rows = append(rows, statRow(s, p))
	}

	t := result.Totals
	footer := []string{
		"Total",
		fmt.Sprintf("%d IDs", t.IDs),
		util.FormatCount(t.Pairs),
		util.FormatSeconds(t.MinDuration, p),
		util.FormatSeconds(t.MaxDuration, p),
		"",
		util.FormatSeconds(t.TotalDuration, p),
		util.FormatPercent(t.PercentActive),
		"",
		util.FormatCount(t.LimitExceeded),
	}

	b.render(f.w, rows, footer)
	fmt.Fprintf(f.w, "Span %s s, active %s s, %s events, %s sequence errors\n",
		util.FormatSeconds(result.Span.AdjustedDataTimeSpan, p),
		util.FormatSeconds(t.TimeActive, p),
		util.FormatCount(len(result.Events)),
		util.FormatCount(result.Summary.SequenceErrors))
	return nil
}

func statRow(s model.AggregateStat, precision int) []string {
	name := s.Name
	if name == "" {
		name = s.Label
	}
	return []string{
		model.FormatID(s.PerfID),
		util.Truncate(name, 32),
		util.FormatCount(s.Count),
		util.FormatSeconds(s.MinDuration, precision),
		util.FormatSeconds(s.MaxDuration, precision),
		util.FormatSeconds(s.AvgDuration, precision),
		util.FormatSeconds(s.TotalDuration, precision),
		util.FormatPercent(s.PercentOfSpan),
		util.FormatPercent(s.PercentOfTotal),
		util.FormatCount(s.LimitExceeded),
	}
}
