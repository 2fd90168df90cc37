package formatter

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/penwyp/go-cfs-perfmon/internal/analyzer"
	"github.com/penwyp/go-cfs-perfmon/internal/core/model"
	"github.com/penwyp/go-cfs-perfmon/internal/util"
)

// CSVFormatter writes one line per plotted ID with full precision values.
type CSVFormatter struct {
	w io.Writer
}

func NewCSVFormatter(w io.Writer) *CSVFormatter {
	return &CSVFormatter{w: w}
}

func (f *CSVFormatter) Format(result *analyzer.Result) error {
	writer := csv.NewWriter(f.w)

	headers := []string{
		"id", "name", "count", "entries", "exits",
		"min", "max", "avg", "total", "percent_of_span", "percent_of_total",
		"min_interval", "max_interval", "max_overrun", "limit_exceeded",
	}
	if err := writer.Write(headers); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	if result != nil {
		p := result.Precision
		for _, s := range result.Stats {
			row := []string{
				model.FormatID(s.PerfID),
				s.Label,
				fmt.Sprintf("%d", s.Count),
				fmt.Sprintf("%d", s.EntryCount),
				fmt.Sprintf("%d", s.ExitCount),
				util.FormatSeconds(s.MinDuration, p),
				util.FormatSeconds(s.MaxDuration, p),
				util.FormatSeconds(s.AvgDuration, p),
				util.FormatSeconds(s.TotalDuration, p),
				fmt.Sprintf("%.4f", s.PercentOfSpan),
				fmt.Sprintf("%.4f", s.PercentOfTotal),
				optional(s.MinInterval, p),
				optional(s.MaxInterval, p),
				optional(s.MaxOverrun, p),
				fmt.Sprintf("%d", s.LimitExceeded),
			}
			if err := writer.Write(row); err != nil {
				return fmt.Errorf("failed to write CSV row: %w", err)
			}
		}
	}

	writer.Flush()
	return writer.Error()
}

func optional(v *float64, precision int) string {
	if v == nil {
		return ""
	}
	return util.FormatSeconds(*v, precision)
}
