package formatter

import (
	"fmt"
	"io"
	"strings"

	"github.com/penwyp/go-cfs-perfmon/internal/analyzer"
	"github.com/penwyp/go-cfs-perfmon/internal/core/model"
	"github.com/penwyp/go-cfs-perfmon/internal/core/statistics"
	"github.com/penwyp/go-cfs-perfmon/internal/util"
)

// SummaryFormatter prints a plain-text report of the loaded logs.
type SummaryFormatter struct {
	w io.Writer
}

func NewSummaryFormatter(w io.Writer) *SummaryFormatter {
	return &SummaryFormatter{w: w}
}

func (f *SummaryFormatter) Format(result *analyzer.Result) error {
	w := f.w
	fmt.Fprintln(w, strings.Repeat("=", 60))
	fmt.Fprintln(w, "Performance Log Summary Report")
	fmt.Fprintln(w, strings.Repeat("=", 60))
	fmt.Fprintln(w)

	if result == nil || len(result.Events) == 0 {
		fmt.Fprintln(w, "No data to summarize")
		fmt.Fprintln(w)
		fmt.Fprintln(w, strings.Repeat("=", 60))
		return nil
	}

	p := result.Precision
	fmt.Fprintln(w, "Logs:")
	for _, s := range result.Sources {
		line := fmt.Sprintf("  %s: %s records from index %d", s.Path, util.FormatCount(s.Records), s.FirstIndex)
		if s.TruncatedBytes > 0 {
			line += fmt.Sprintf(" (%d trailing bytes dropped)", s.TruncatedBytes)
		}
		fmt.Fprintln(w, line)
	}
	fmt.Fprintln(w)

	sp := result.Span
	fmt.Fprintln(w, "Time Span:")
	fmt.Fprintf(w, "  First Time Stamp:     %s s\n", util.FormatSeconds(sp.FirstTimeStamp, p))
	fmt.Fprintf(w, "  Last Time Stamp:      %s s\n", util.FormatSeconds(sp.MaximumTimeStamp, p))
	fmt.Fprintf(w, "  Data Gaps:            %d (%s s)\n", len(sp.DataGaps), util.FormatSeconds(sp.DataGapTotal, p))
	fmt.Fprintf(w, "  Adjusted Span:        %s s\n", util.FormatSeconds(sp.AdjustedDataTimeSpan, p))
	fmt.Fprintln(w)

	sum := result.Summary
	fmt.Fprintln(w, "Events:")
	fmt.Fprintf(w, "  Records:              %s\n", util.FormatCount(sum.Records))
	fmt.Fprintf(w, "  Distinct IDs:         %s\n", util.FormatCount(sum.DistinctIDs))
	fmt.Fprintf(w, "  Sequence Errors:      %s\n", util.FormatCount(sum.SequenceErrors))
	fmt.Fprintf(w, "  Time Anomalies:       %s\n", util.FormatCount(sum.TimeAnomalies))
	fmt.Fprintf(w, "  Overruns:             %s\n", util.FormatCount(sum.Overruns))
	if sum.Overruns > 0 {
		fmt.Fprintf(w, "  Max Overrun:          %s s\n", util.FormatSeconds(sum.MaxOverrun, p))
	}
	fmt.Fprintln(w)

	t := result.Totals
	fmt.Fprintln(w, "Plotted IDs:")
	fmt.Fprintf(w, "  IDs:                  %d\n", t.IDs)
	fmt.Fprintf(w, "  Pairs:                %s\n", util.FormatCount(t.Pairs))
	fmt.Fprintf(w, "  Total Duration:       %s s\n", util.FormatSeconds(t.TotalDuration, p))
	fmt.Fprintf(w, "  Time Active:          %s s (%s)\n", util.FormatSeconds(t.TimeActive, p), util.FormatPercent(t.PercentActive))
	if t.Pairs > 0 {
		fmt.Fprintf(w, "  Shortest:             %s s (%s)\n", util.FormatSeconds(t.MinDuration, p), model.FormatID(t.MinDurationID))
		fmt.Fprintf(w, "  Longest:              %s s (%s)\n", util.FormatSeconds(t.MaxDuration, p), model.FormatID(t.MaxDurationID))
	}
	if t.LimitExceeded > 0 {
		fmt.Fprintln(w, util.FormatWarning(fmt.Sprintf("  %s durations outside their limits", util.FormatCount(t.LimitExceeded))))
	}

	if len(result.Stats) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Busiest IDs:")
		fmt.Fprintln(w, strings.Repeat("-", 60))
		for _, s := range topByTotal(result.Stats, 5) {
			fmt.Fprintf(w, "  %-32s %s s  %s\n", util.Truncate(s.Label, 32),
				util.FormatSeconds(s.TotalDuration, p), util.FormatPercent(s.PercentOfTotal))
		}
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, strings.Repeat("=", 60))
	return nil
}

func topByTotal(stats []model.AggregateStat, n int) []model.AggregateStat {
	sorted := append([]model.AggregateStat(nil), stats...)
	statistics.Sort(sorted, model.SortByValue)
	if len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}
