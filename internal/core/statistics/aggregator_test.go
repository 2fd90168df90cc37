package statistics

import (
	"testing"

	"github.com/penwyp/go-cfs-perfmon/internal/core/model"
	"github.com/penwyp/go-cfs-perfmon/internal/core/registry"
	"github.com/penwyp/go-cfs-perfmon/internal/core/timebase"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ev(id uint32, isEntry bool, ts float64) model.EnrichedEvent {
	return model.EnrichedEvent{PerfID: id, IsEntry: isEntry, TimeStamp: ts}
}

func indexed(events ...model.EnrichedEvent) []model.EnrichedEvent {
	for i := range events {
		events[i].Index = i
	}
	return events
}

func spanOf(seconds float64) timebase.Span {
	return timebase.Span{AdjustedDataTimeSpan: seconds, MaximumTimeStamp: seconds}
}

func statFor(t *testing.T, stats []model.AggregateStat, id uint32) model.AggregateStat {
	t.Helper()
	for _, s := range stats {
		if s.PerfID == id {
			return s
		}
	}
	require.Failf(t, "missing stat", "id %d", id)
	return model.AggregateStat{}
}

func TestAggregateScenario(t *testing.T) {
	reg := registry.New()
	reg.Resolve(5)
	events := indexed(ev(5, true, 1.0), ev(5, false, 3.0))

	stats := Aggregate(events, reg, spanOf(2.0), model.SortByName)

	require.Len(t, stats, 1)
	s := stats[0]
	assert.Equal(t, uint32(5), s.PerfID)
	assert.Equal(t, 1, s.Count)
	assert.Equal(t, 2.0, s.MinDuration)
	assert.Equal(t, 2.0, s.MaxDuration)
	assert.Equal(t, 2.0, s.AvgDuration)
	assert.Equal(t, 2.0, s.TotalDuration)
	assert.Equal(t, 100.0, s.PercentOfSpan)
	assert.Equal(t, 100.0, s.PercentOfTotal)
	assert.Equal(t, "0x00000005", s.Label)
}

func TestAggregateEmpty(t *testing.T) {
	reg := registry.New()
	reg.Register(1, "SCH", model.RGB{})

	stats := Aggregate(nil, reg, timebase.Span{}, model.SortByValue)

	assert.Empty(t, stats)
}

func TestAggregateOrphanExit(t *testing.T) {
	reg := registry.New()
	events := indexed(ev(1, false, 0.5), ev(1, true, 1.0), ev(1, false, 1.5))

	stats := Aggregate(events, reg, spanOf(1.0), model.SortByName)

	s := statFor(t, stats, 1)
	assert.Equal(t, 1, s.Count)
	assert.Equal(t, 0.5, s.TotalDuration)
	assert.Equal(t, 2, s.ExitCount)
	assert.Equal(t, 1, s.EntryCount)
}

func TestAggregateRepeatedEntryRestartsPair(t *testing.T) {
	events := indexed(ev(1, true, 0), ev(1, true, 1.0), ev(1, false, 1.25))

	stats := Aggregate(events, registry.New(), spanOf(1.25), model.SortByName)

	s := statFor(t, stats, 1)
	assert.Equal(t, 1, s.Count)
	assert.Equal(t, 0.25, s.TotalDuration)
}

func TestAggregateIgnoresSequenceFlags(t *testing.T) {
	events := indexed(ev(1, true, 0), ev(1, false, 1))
	events[0].IsSequenceError = true
	events[1].IsTimeAnomaly = true

	stats := Aggregate(events, registry.New(), spanOf(1), model.SortByName)

	assert.Equal(t, 1, statFor(t, stats, 1).Count)
}

func TestAggregateSkipsDisabledIDs(t *testing.T) {
	reg := registry.New()
	reg.SetPlotEnabled(2, false)
	events := indexed(ev(1, true, 0), ev(2, true, 0), ev(2, false, 3), ev(1, false, 1))

	stats := Aggregate(events, reg, spanOf(3), model.SortByName)

	require.Len(t, stats, 1)
	assert.Equal(t, uint32(1), stats[0].PerfID)
	assert.Equal(t, 100.0, stats[0].PercentOfTotal)
}

func TestAggregateZeroCountExcludedFromTotalShare(t *testing.T) {
	events := indexed(ev(1, true, 0), ev(1, false, 1), ev(2, true, 0), ev(3, true, 1), ev(3, false, 4))

	stats := Aggregate(events, registry.New(), spanOf(4), model.SortByName)

	require.Len(t, stats, 3)
	assert.Equal(t, 0, statFor(t, stats, 2).Count)
	assert.Zero(t, statFor(t, stats, 2).AvgDuration)
	assert.Zero(t, statFor(t, stats, 2).PercentOfTotal)
	assert.Equal(t, 25.0, statFor(t, stats, 1).PercentOfTotal)
	assert.Equal(t, 75.0, statFor(t, stats, 3).PercentOfTotal)
	assert.Equal(t, 75.0, statFor(t, stats, 3).PercentOfSpan)
}

func TestAggregateZeroSpan(t *testing.T) {
	events := indexed(ev(1, true, 1), ev(1, false, 1))

	stats := Aggregate(events, registry.New(), timebase.Span{}, model.SortByName)

	assert.Zero(t, stats[0].PercentOfSpan)
	assert.Zero(t, stats[0].PercentOfTotal)
}

func TestAggregateIntervalsOverrunsAndLimits(t *testing.T) {
	reg := registry.New()
	minValue, maxValue := 0.1, 0.3
	reg.Define(registry.Definition{ID: 1, Name: "SCH", MinValue: &minValue, MaxValue: &maxValue})

	events := indexed(
		ev(1, true, 0.0), ev(1, false, 0.2),
		ev(1, true, 1.0), ev(1, false, 1.05),
		ev(1, true, 2.5), ev(1, false, 3.0),
	)
	events[4].Overrun = 0.5

	stats := Aggregate(events, reg, spanOf(3), model.SortByName)

	s := statFor(t, stats, 1)
	assert.Equal(t, 3, s.Count)
	assert.Equal(t, 2, s.LimitExceeded)
	require.NotNil(t, s.MinInterval)
	assert.Equal(t, 1.0, *s.MinInterval)
	assert.Equal(t, 1.5, *s.MaxInterval)
	require.NotNil(t, s.MinOverrun)
	assert.Equal(t, 0.5, *s.MinOverrun)
	assert.Equal(t, 0.5, *s.MaxOverrun)
	assert.Equal(t, "SCH", s.Label)
}

func TestAggregateSingleEntryHasNoInterval(t *testing.T) {
	stats := Aggregate(indexed(ev(1, true, 0)), registry.New(), spanOf(0), model.SortByName)

	assert.Nil(t, stats[0].MinInterval)
	assert.Nil(t, stats[0].MinOverrun)
}

func TestAggregateSortByValueTieBreak(t *testing.T) {
	reg := registry.New()
	reg.Register(1, "C", model.RGB{})
	reg.Register(2, "b", model.RGB{})
	reg.Register(3, "A", model.RGB{})
	events := indexed(
		ev(1, true, 0), ev(1, false, 1),
		ev(2, true, 0), ev(2, false, 5),
		ev(3, true, 0), ev(3, false, 5),
	)

	byValue := Aggregate(events, reg, spanOf(5), model.SortByValue)
	byName := Aggregate(events, reg, spanOf(5), model.SortByName)

	assert.Equal(t, []string{"A", "b", "C"}, labels(byValue))
	assert.Equal(t, []string{"A", "b", "C"}, labels(byName))
}

func TestSortByNameUsesHexForUndefined(t *testing.T) {
	reg := registry.New()
	reg.Register(0x20, "zeta", model.RGB{})
	events := indexed(ev(0x20, true, 0), ev(0x10, true, 0), ev(0x20, false, 1))

	stats := Aggregate(events, reg, spanOf(1), model.SortByName)

	assert.Equal(t, []string{"0x00000010", "zeta"}, labels(stats))
}

func TestSortDuplicateNamesFallBackToID(t *testing.T) {
	stats := []model.AggregateStat{
		{PerfID: 9, Label: "task", TotalDuration: 1},
		{PerfID: 3, Label: "Task", TotalDuration: 1},
	}

	Sort(stats, model.SortByValue)

	assert.Equal(t, uint32(3), stats[0].PerfID)
}

func TestAggregateIdempotent(t *testing.T) {
	reg := registry.New()
	events := indexed(
		ev(4, true, 0), ev(2, true, 0.1), ev(2, false, 0.3), ev(4, false, 0.5),
		ev(7, true, 0.6), ev(7, true, 0.7), ev(7, false, 0.9), ev(2, false, 1.0),
	)

	first := Aggregate(events, reg, spanOf(1), model.SortByValue)
	second := Aggregate(events, reg, spanOf(1), model.SortByValue)

	assert.Equal(t, first, second)
}

func TestComputeTotals(t *testing.T) {
	reg := registry.New()
	events := indexed(
		ev(1, true, 0.0),
		ev(2, true, 0.5),
		ev(1, false, 1.0),
		ev(2, false, 2.0),
		ev(3, true, 5.0),
		ev(3, false, 5.5),
		ev(3, false, 6.0),
	)
	span := spanOf(10)

	stats := Aggregate(events, reg, span, model.SortByName)
	totals := ComputeTotals(events, stats, span)

	assert.Equal(t, 3, totals.IDs)
	assert.Equal(t, 3, totals.Entries)
	assert.Equal(t, 4, totals.Exits)
	assert.Equal(t, 3, totals.Pairs)
	assert.Equal(t, 3.0, totals.TotalDuration)
	assert.Equal(t, 0.5, totals.MinDuration)
	assert.Equal(t, uint32(3), totals.MinDurationID)
	assert.Equal(t, 1.5, totals.MaxDuration)
	assert.Equal(t, uint32(2), totals.MaxDurationID)
	assert.Equal(t, 2.5, totals.TimeActive)
	assert.Equal(t, 25.0, totals.PercentActive)
}

func TestComputeTotalsEmpty(t *testing.T) {
	totals := ComputeTotals(nil, nil, timebase.Span{})

	assert.Equal(t, Totals{}, totals)
}

func labels(stats []model.AggregateStat) []string {
	out := make([]string, len(stats))
	for i, s := range stats {
		out[i] = s.Label
	}
	return out
}
