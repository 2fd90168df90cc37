// Package sequencer turns decoded records into the enriched event list:
// normalized timestamps, per-ID entry/exit alternation checks, time
// anomalies and frame overruns.
package sequencer

import (
	"github.com/penwyp/go-cfs-perfmon/internal/core/model"
	"github.com/penwyp/go-cfs-perfmon/internal/core/timebase"
)

// Resolver maps a raw ID word to its ID entry and entry flag.
type Resolver interface {
	Resolve(raw uint32) (model.PerformanceID, bool)
}

// Options selects the frame marker used for overrun detection. Overruns
// are only computed when FrameMarker is set and FramePeriod is positive.
type Options struct {
	FrameMarker *uint32
	FramePeriod float64 // seconds
}

// Summary counts the anomalies found in one pass.
type Summary struct {
	Records        int     `json:"records"`
	DistinctIDs    int     `json:"distinctIds"`
	SequenceErrors int     `json:"sequenceErrors"`
	TimeAnomalies  int     `json:"timeAnomalies"`
	Overruns       int     `json:"overruns"`
	MaxOverrun     float64 `json:"maxOverrun"`
}

// Result is the output of Sequence.
type Result struct {
	Events  []model.EnrichedEvent
	Summary Summary
}

// PairState is the alternation state of one ID.
type PairState int

const (
	Closed PairState = iota
	Open
)

// Tracker holds the transient per-ID state machine used for pairing.
type Tracker struct {
	states map[uint32]PairState
}

func NewTracker() *Tracker {
	return &Tracker{states: make(map[uint32]PairState)}
}

// Step advances id by one event and reports whether the event breaks
// alternation. A repeated entry restarts the pair; an orphan exit leaves
// the ID closed.
func (t *Tracker) Step(id uint32, isEntry bool) (valid bool) {
	state := t.states[id]
	if isEntry {
		t.states[id] = Open
		return state == Closed
	}
	if state == Closed {
		return false
	}
	t.states[id] = Closed
	return true
}

func (t *Tracker) State(id uint32) PairState {
	return t.states[id]
}

// Len returns the number of IDs seen.
func (t *Tracker) Len() int {
	return len(t.states)
}

// Sequence enriches records in a single pass. It never fails: every
// anomaly is flagged on the event and counted in the summary.
func Sequence(records []model.RawLogRecord, resolver Resolver, normalizer *timebase.Normalizer, opts Options) Result {
	events := make([]model.EnrichedEvent, len(records))
	summary := Summary{Records: len(records)}
	if len(records) == 0 {
		return Result{Events: events, Summary: summary}
	}

	normalizer.SetOrigin(records[0].RawTimestamp)
	checkOverrun := opts.FrameMarker != nil && opts.FramePeriod > 0

	tracker := NewTracker()
	var (
		lastMarker    float64
		haveMarker    bool
		lastTimeStamp float64
	)

	for i, rec := range records {
		pid, isEntry := resolver.Resolve(rec.IDWord())
		ts := normalizer.Normalize(rec.RawTimestamp)

		event := model.EnrichedEvent{
			Index:     i,
			PerfID:    pid.ID,
			IsEntry:   isEntry,
			TimeStamp: ts,
		}

		if !tracker.Step(pid.ID, isEntry) {
			event.IsSequenceError = true
			summary.SequenceErrors++
		}

		if i > 0 && ts < lastTimeStamp {
			event.IsTimeAnomaly = true
			summary.TimeAnomalies++
		}
		lastTimeStamp = ts

		if checkOverrun && isEntry && pid.ID == *opts.FrameMarker {
			if haveMarker {
				// Excesses that round to zero at display precision are
				// coincident with the period.
				excess := ts - lastMarker - opts.FramePeriod
				if excess > 0 && normalizer.Round(excess) > 0 {
					event.Overrun = excess
					summary.Overruns++
					if excess > summary.MaxOverrun {
						summary.MaxOverrun = excess
					}
				}
			}
			lastMarker = ts
			haveMarker = true
		}

		events[i] = event
	}

	summary.DistinctIDs = tracker.Len()
	return Result{Events: events, Summary: summary}
}
