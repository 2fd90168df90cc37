package formatter

import (
	"fmt"
	"io"
	"strings"

	"github.com/penwyp/go-cfs-perfmon/internal/analyzer"
	"github.com/penwyp/go-cfs-perfmon/internal/core/model"
)

// Formatter renders an analysis result.
type Formatter interface {
	Format(result *analyzer.Result) error
}

// Lookup resolves IDs to their display attributes.
type Lookup interface {
	Get(id uint32) (model.PerformanceID, bool)
}

// Output formats accepted by New.
const (
	OutputTable   = "table"
	OutputJSON    = "json"
	OutputCSV     = "csv"
	OutputSummary = "summary"
)

// New returns the statistics formatter for the named output format.
func New(format string, w io.Writer) (Formatter, error) {
	switch strings.ToLower(format) {
	case "", OutputTable:
		return NewTableFormatter(w), nil
	case OutputJSON:
		return NewJSONFormatter(w), nil
	case OutputCSV:
		return NewCSVFormatter(w), nil
	case OutputSummary:
		return NewSummaryFormatter(w), nil
	default:
		return nil, fmt.Errorf("unknown output format '%s': must be table, json, csv or summary", format)
	}
}

func labelOf(ids Lookup, id uint32) string {
	if ids != nil {
		if pid, ok := ids.Get(id); ok {
			return pid.Label()
		}
	}
	return model.FormatID(id)
}
