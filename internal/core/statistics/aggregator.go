package statistics

import (
	"math"
	"sort"
	"strings"

	"github.com/penwyp/go-cfs-perfmon/internal/core/constants"
	"github.com/penwyp/go-cfs-perfmon/internal/core/model"
	"github.com/penwyp/go-cfs-perfmon/internal/core/timebase"
)

// Lookup returns the registry entry of an ID.
type Lookup interface {
	Get(id uint32) (model.PerformanceID, bool)
}

type accumulator struct {
	pid model.PerformanceID

	count   int
	entries int
	exits   int
	total   float64
	min     float64
	max     float64

	open   bool
	openAt float64

	lastEntry     float64
	haveEntry     bool
	minInterval   float64
	maxInterval   float64
	haveInterval  bool
	minOverrun    float64
	maxOverrun    float64
	haveOverrun   bool
	limitExceeded int
}

func (a *accumulator) addDuration(d float64) {
	if a.count == 0 || d < a.min {
		a.min = d
	}
	if a.count == 0 || d > a.max {
		a.max = d
	}
	a.count++
	a.total += d

	if (a.pid.MinValue != nil && d < *a.pid.MinValue) || (a.pid.MaxValue != nil && d > *a.pid.MaxValue) {
		a.limitExceeded++
	}
}

func (a *accumulator) addEntry(e model.EnrichedEvent) {
	a.entries++

	if a.haveEntry {
		interval := e.TimeStamp - a.lastEntry
		if !a.haveInterval || interval < a.minInterval {
			a.minInterval = interval
		}
		if !a.haveInterval || interval > a.maxInterval {
			a.maxInterval = interval
		}
		a.haveInterval = true
	}
	a.lastEntry = e.TimeStamp
	a.haveEntry = true

	if e.Overrun > 0 {
		if !a.haveOverrun || e.Overrun < a.minOverrun {
			a.minOverrun = e.Overrun
		}
		if !a.haveOverrun || e.Overrun > a.maxOverrun {
			a.maxOverrun = e.Overrun
		}
		a.haveOverrun = true
	}

	// A second entry while open restarts the pair.
	a.open = true
	a.openAt = e.TimeStamp
}

func (a *accumulator) addExit(e model.EnrichedEvent) {
	a.exits++
	if !a.open {
		return
	}
	a.addDuration(e.TimeStamp - a.openAt)
	a.open = false
}

func optional(v float64, ok bool) *float64 {
	if !ok {
		return nil
	}
	return &v
}

// Aggregate computes per-ID statistics for every plot-enabled ID present in
// events. Entry/exit pairing is independent of the sequence error flags:
// a repeated entry restarts the pair and an exit without an open entry is
// ignored. The result is fully recomputed on every call.
func Aggregate(events []model.EnrichedEvent, ids Lookup, span timebase.Span, order model.SortOrder) []model.AggregateStat {
	accs := make(map[uint32]*accumulator)
	var ordered []*accumulator

	for _, e := range events {
		acc, ok := accs[e.PerfID]
		if !ok {
			pid, found := ids.Get(e.PerfID)
			if !found {
				pid = model.PerformanceID{ID: e.PerfID, Name: constants.UndefinedName, PlotEnabled: true}
			}
			if !pid.PlotEnabled {
				accs[e.PerfID] = nil
				continue
			}
			acc = &accumulator{pid: pid}
			accs[e.PerfID] = acc
			ordered = append(ordered, acc)
		}
		if acc == nil {
			continue
		}

		if e.IsEntry {
			acc.addEntry(e)
		} else {
			acc.addExit(e)
		}
	}

	var grandTotal float64
	for _, acc := range ordered {
		if acc.count > 0 {
			grandTotal += acc.total
		}
	}

	stats := make([]model.AggregateStat, 0, len(ordered))
	for _, acc := range ordered {
		stat := model.AggregateStat{
			PerfID:        acc.pid.ID,
			Name:          acc.pid.Name,
			Label:         acc.pid.Label(),
			Count:         acc.count,
			EntryCount:    acc.entries,
			ExitCount:     acc.exits,
			MinInterval:   optional(acc.minInterval, acc.haveInterval),
			MaxInterval:   optional(acc.maxInterval, acc.haveInterval),
			MinOverrun:    optional(acc.minOverrun, acc.haveOverrun),
			MaxOverrun:    optional(acc.maxOverrun, acc.haveOverrun),
			LimitExceeded: acc.limitExceeded,
		}
		if acc.count > 0 {
			stat.MinDuration = acc.min
			stat.MaxDuration = acc.max
			stat.TotalDuration = acc.total
			stat.AvgDuration = acc.total / float64(acc.count)
			if span.AdjustedDataTimeSpan > 0 {
				stat.PercentOfSpan = acc.total / span.AdjustedDataTimeSpan * 100
			}
			if grandTotal != 0 {
				stat.PercentOfTotal = acc.total / grandTotal * 100
			}
		}
		stats = append(stats, stat)
	}

	Sort(stats, order)
	return stats
}

// Sort orders stats in place. By name compares labels case-insensitively;
// by value puts the largest total first and breaks ties by name. The ID
// is the final tie-breaker in both orders.
func Sort(stats []model.AggregateStat, order model.SortOrder) {
	byName := func(a, b model.AggregateStat) int {
		la, lb := strings.ToLower(a.Label), strings.ToLower(b.Label)
		if la != lb {
			if la < lb {
				return -1
			}
			return 1
		}
		switch {
		case a.PerfID < b.PerfID:
			return -1
		case a.PerfID > b.PerfID:
			return 1
		}
		return 0
	}

	sort.SliceStable(stats, func(i, j int) bool {
		a, b := stats[i], stats[j]
		if order == model.SortByValue && a.TotalDuration != b.TotalDuration {
			return a.TotalDuration > b.TotalDuration
		}
		return byName(a, b) < 0
	})
}

// Totals summarizes the plotted IDs as a whole.
type Totals struct {
	IDs           int     `json:"ids"`
	Entries       int     `json:"entries"`
	Exits         int     `json:"exits"`
	Pairs         int     `json:"pairs"`
	TotalDuration float64 `json:"totalDuration"`
	MinDuration   float64 `json:"minDuration"`
	MinDurationID uint32  `json:"minDurationId"`
	MaxDuration   float64 `json:"maxDuration"`
	MaxDurationID uint32  `json:"maxDurationId"`
	LimitExceeded int     `json:"limitExceeded"`
	TimeActive    float64 `json:"timeActive"`
	PercentActive float64 `json:"percentActive"`
}

// ComputeTotals combines stats and measures the time during which at least
// one of the IDs in stats had an open entry.
func ComputeTotals(events []model.EnrichedEvent, stats []model.AggregateStat, span timebase.Span) Totals {
	totals := Totals{IDs: len(stats)}
	plotted := make(map[uint32]bool, len(stats))

	havePair := false
	for _, s := range stats {
		plotted[s.PerfID] = true
		totals.Entries += s.EntryCount
		totals.Exits += s.ExitCount
		totals.LimitExceeded += s.LimitExceeded
		if s.Count == 0 {
			continue
		}
		totals.Pairs += s.Count
		totals.TotalDuration += s.TotalDuration
		if !havePair || s.MinDuration < totals.MinDuration ||
			(s.MinDuration == totals.MinDuration && s.PerfID < totals.MinDurationID) {
			totals.MinDuration, totals.MinDurationID = s.MinDuration, s.PerfID
		}
		if !havePair || s.MaxDuration > totals.MaxDuration ||
			(s.MaxDuration == totals.MaxDuration && s.PerfID < totals.MaxDurationID) {
			totals.MaxDuration, totals.MaxDurationID = s.MaxDuration, s.PerfID
		}
		havePair = true
	}

	totals.TimeActive = timeActive(events, plotted)
	if span.AdjustedDataTimeSpan > 0 {
		totals.PercentActive = math.Min(totals.TimeActive/span.AdjustedDataTimeSpan*100, 100)
	}
	return totals
}

func timeActive(events []model.EnrichedEvent, plotted map[uint32]bool) float64 {
	open := make(map[uint32]bool)
	var (
		active  float64
		startAt float64
	)
	for _, e := range events {
		if !plotted[e.PerfID] {
			continue
		}
		if e.IsEntry {
			if !open[e.PerfID] {
				if len(open) == 0 {
					startAt = e.TimeStamp
				}
				open[e.PerfID] = true
			}
			continue
		}
		if !open[e.PerfID] {
			continue
		}
		delete(open, e.PerfID)
		if len(open) == 0 && e.TimeStamp > startAt {
			active += e.TimeStamp - startAt
		}
	}
	return active
}
