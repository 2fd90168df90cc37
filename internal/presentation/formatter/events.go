package formatter

import (
	"fmt"
	"io"
	"strconv"

	"github.com/penwyp/go-cfs-perfmon/internal/analyzer"
	"github.com/penwyp/go-cfs-perfmon/internal/core/model"
	"github.com/penwyp/go-cfs-perfmon/internal/util"
)

// EventsOptions control which events are listed.
type EventsOptions struct {
	ErrorsOnly bool // sequence errors, time anomalies and overruns only
	Offset     int
	Limit      int // 0 = unlimited
	Width      int // terminal width; 0 = util.TerminalWidth()
}

// EventsFormatter lists enriched events.
type EventsFormatter struct {
	w    io.Writer
	ids  Lookup
	opts EventsOptions
}

func NewEventsFormatter(w io.Writer, ids Lookup, opts EventsOptions) *EventsFormatter {
	return &EventsFormatter{w: w, ids: ids, opts: opts}
}

// IsFlagged reports whether an event carries any error or overrun.
func IsFlagged(e model.EnrichedEvent) bool {
	return e.IsSequenceError || e.IsTimeAnomaly || e.Overrun > 0
}

// SelectEvents applies the filter, offset and limit of opts.
func SelectEvents(events []model.EnrichedEvent, opts EventsOptions) []model.EnrichedEvent {
	selected := events
	if opts.ErrorsOnly {
		selected = make([]model.EnrichedEvent, 0)
		for _, e := range events {
			if IsFlagged(e) {
				selected = append(selected, e)
			}
		}
	}
	if opts.Offset > 0 {
		if opts.Offset >= len(selected) {
			return nil
		}
		selected = selected[opts.Offset:]
	}
	if opts.Limit > 0 && opts.Limit < len(selected) {
		selected = selected[:opts.Limit]
	}
	return selected
}

func flagsOf(e model.EnrichedEvent) string {
	flags := ""
	if e.IsSequenceError {
		flags += "S"
	}
	if e.IsTimeAnomaly {
		flags += "T"
	}
	if e.Overrun > 0 {
		flags += "O"
	}
	if flags == "" {
		return "-"
	}
	return flags
}

func (f *EventsFormatter) Format(result *analyzer.Result) error {
	if result == nil {
		fmt.Fprintln(f.w, "No log loaded")
		return nil
	}

	events := SelectEvents(result.Events, f.opts)
	if len(events) == 0 {
		fmt.Fprintln(f.w, "No matching events")
		return nil
	}

	p := result.Precision
	b := newBox(
		[]string{"Index", "ID", "Name", "Type", "Time (s)", "Flags", "Overrun (s)", "Notes"},
		[]align{alignRight, alignLeft, alignLeft, alignLeft, alignRight, alignLeft, alignRight, alignLeft},
	)

	rows := make([][]string, 0, len(events))
	for _, e := range events {
		overrun := ""
		if e.Overrun > 0 {
			overrun = util.FormatSeconds(e.Overrun, p)
		}
		rows = append(rows, []string{
			strconv.Itoa(e.Index),
			model.FormatID(e.PerfID),
			util.Truncate(labelOf(f.ids, e.PerfID), 24),
			e.EventType(),
			util.FormatSeconds(e.TimeStamp, p),
			flagsOf(e),
			overrun,
			e.Notes,
		})
	}

	// Notes take whatever width the other columns leave.
	width := f.opts.Width
	if width <= 0 {
		width = util.TerminalWidth()
	}
	for _, r := range rows {
		b.fit(r[:len(r)-1])
	}
	used := 1
	for _, w := range b.widths[:len(b.widths)-1] {
		used += max(w, b.minimum) + 3
	}
	noteWidth := max(width-used-4, b.minimum)
	for _, r := range rows {
		r[len(r)-1] = util.Truncate(r[len(r)-1], noteWidth)
	}

	b.render(f.w, rows, nil)
	fmt.Fprintf(f.w, "%s of %s events shown (S = sequence error, T = time anomaly, O = overrun)\n",
		util.FormatCount(len(events)), util.FormatCount(len(result.Events)))
	return nil
}
