package analyzer

import (
	"fmt"
	"time"

	"github.com/penwyp/go-cfs-perfmon/internal/core/model"
	"github.com/penwyp/go-cfs-perfmon/internal/core/registry"
	"github.com/penwyp/go-cfs-perfmon/internal/core/sequencer"
	"github.com/penwyp/go-cfs-perfmon/internal/core/statistics"
	"github.com/penwyp/go-cfs-perfmon/internal/core/timebase"
	"github.com/penwyp/go-cfs-perfmon/internal/util"
)

// Source describes one loaded log.
type Source struct {
	Path           string `json:"path"`
	FirstIndex     int    `json:"firstIndex"`
	Records        int    `json:"records"`
	TruncatedBytes int    `json:"truncatedBytes,omitempty"`
	CacheHit       bool   `json:"cacheHit"`
	Notes          int    `json:"notes"`
}

// Result is one complete, immutable analysis. It is replaced as a whole and
// never modified after publication.
type Result struct {
	Generation uint64    `json:"generation"`
	ComputedAt time.Time `json:"computedAt"`

	Sources    []Source `json:"sources"`
	GapIndexes []int    `json:"gapIndexes,omitempty"`
	Precision  int      `json:"precision"`
	SortOrder  string   `json:"sortOrder"`

	Events  []model.EnrichedEvent `json:"events"`
	Stats   []model.AggregateStat `json:"stats"`
	Totals  statistics.Totals     `json:"totals"`
	Summary sequencer.Summary     `json:"summary"`
	Span    timebase.Span         `json:"span"`
}

// Input is everything a pipeline run needs besides the registry.
type Input struct {
	Records    []model.RawLogRecord
	GapIndexes []int
	Notes      map[int]string
	Sources    []Source
}

// Run executes sequence and aggregation over in. It is a pure function of
// its arguments apart from the unknown IDs it adds to reg.
func Run(in Input, reg *registry.Registry, cfg Config) (*Result, error) {
	normalizer, err := timebase.NewNormalizer(cfg.TimeBase)
	if err != nil {
		return nil, fmt.Errorf("invalid time base: %w", err)
	}

	seqStart := time.Now()
	seq := sequencer.Sequence(in.Records, reg, normalizer, sequencer.Options{
		FrameMarker: cfg.FrameMarker,
		FramePeriod: cfg.FramePeriod,
	})
	for idx, note := range in.Notes {
		if idx >= 0 && idx < len(seq.Events) {
			seq.Events[idx].Notes = note
		}
	}
	util.LogDebug(fmt.Sprintf("Sequencing duration: %v, events: %d, sequence errors: %d",
		time.Since(seqStart), len(seq.Events), seq.Summary.SequenceErrors))

	aggStart := time.Now()
	span := normalizer.ComputeSpan(seq.Events, in.GapIndexes)
	stats := statistics.Aggregate(seq.Events, reg, span, cfg.SortOrder)
	totals := statistics.ComputeTotals(seq.Events, stats, span)
	util.LogDebug(fmt.Sprintf("Aggregation duration: %v, plotted IDs: %d", time.Since(aggStart), len(stats)))

	return &Result{
		ComputedAt: time.Now(),
		Sources:    in.Sources,
		GapIndexes: in.GapIndexes,
		Precision:  normalizer.Precision(),
		SortOrder:  cfg.SortOrder.String(),
		Events:     seq.Events,
		Stats:      stats,
		Totals:     totals,
		Summary:    seq.Summary,
		Span:       span,
	}, nil
}

// Concat joins decoded logs in order and records the index of the first
// record of every log after the first non-empty one.
func Concat(logs [][]model.RawLogRecord) ([]model.RawLogRecord, []int) {
	total := 0
	for _, records := range logs {
		total += len(records)
	}

	out := make([]model.RawLogRecord, 0, total)
	var gaps []int
	for _, records := range logs {
		if len(out) > 0 && len(records) > 0 {
			gaps = append(gaps, len(out))
		}
		out = append(out, records...)
	}
	return out, gaps
}
