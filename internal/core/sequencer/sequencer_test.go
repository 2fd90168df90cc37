package sequencer

import (
	"math/rand"
	"testing"

	"github.com/penwyp/go-cfs-perfmon/internal/core/model"
	"github.com/penwyp/go-cfs-perfmon/internal/core/registry"
	"github.com/penwyp/go-cfs-perfmon/internal/core/timebase"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func entry(id uint32, tick uint64) model.RawLogRecord {
	return model.RawLogRecord{PerfID: id, IsEntry: true, RawTimestamp: tick}
}

func exit(id uint32, tick uint64) model.RawLogRecord {
	return model.RawLogRecord{PerfID: id, IsEntry: false, RawTimestamp: tick}
}

func newNormalizer(t *testing.T, cfg timebase.Config) *timebase.Normalizer {
	t.Helper()
	n, err := timebase.NewNormalizer(cfg)
	require.NoError(t, err)
	return n
}

func millis(t *testing.T) *timebase.Normalizer {
	return newNormalizer(t, timebase.Config{TickRate: 1000, Precision: 3})
}

func marker(id uint32) *uint32 {
	return &id
}

func TestSequenceScenario(t *testing.T) {
	records := []model.RawLogRecord{entry(5, 1000), exit(5, 3000)}

	result := Sequence(records, registry.New(), millis(t), Options{})

	assert.Equal(t, []model.EnrichedEvent{
		{Index: 0, PerfID: 5, IsEntry: true, TimeStamp: 1.0},
		{Index: 1, PerfID: 5, IsEntry: false, TimeStamp: 3.0},
	}, result.Events)
	assert.Equal(t, Summary{Records: 2, DistinctIDs: 1}, result.Summary)
}

func TestSequenceEmpty(t *testing.T) {
	result := Sequence(nil, registry.New(), millis(t), Options{})

	assert.Empty(t, result.Events)
	assert.NotNil(t, result.Events)
	assert.Zero(t, result.Summary.DistinctIDs)
}

func TestSequenceErrors(t *testing.T) {
	tests := []struct {
		name           string
		records        []model.RawLogRecord
		expectedErrors []bool
	}{
		{
			name:           "double entry",
			records:        []model.RawLogRecord{entry(1, 1), entry(1, 2), exit(1, 3)},
			expectedErrors: []bool{false, true, false},
		},
		{
			name:           "orphan exit",
			records:        []model.RawLogRecord{exit(1, 1), entry(1, 2), exit(1, 3)},
			expectedErrors: []bool{true, false, false},
		},
		{
			name:           "double exit",
			records:        []model.RawLogRecord{entry(1, 1), exit(1, 2), exit(1, 3)},
			expectedErrors: []bool{false, false, true},
		},
		{
			name:           "interleaved ids are independent",
			records:        []model.RawLogRecord{entry(1, 1), entry(2, 2), exit(1, 3), exit(2, 4)},
			expectedErrors: []bool{false, false, false, false},
		},
		{
			name:           "nested re-entry is flagged",
			records:        []model.RawLogRecord{entry(1, 1), entry(1, 2), exit(1, 3), exit(1, 4)},
			expectedErrors: []bool{false, true, false, true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Sequence(tt.records, registry.New(), millis(t), Options{})

			errorCount := 0
			for i, event := range result.Events {
				assert.Equal(t, tt.expectedErrors[i], event.IsSequenceError, "event %d", i)
				if event.IsSequenceError {
					errorCount++
				}
			}
			assert.Equal(t, errorCount, result.Summary.SequenceErrors)
		})
	}
}

func TestSequenceTimeAnomaly(t *testing.T) {
	records := []model.RawLogRecord{entry(1, 2000), exit(1, 1500), entry(1, 1500), exit(1, 2500)}

	result := Sequence(records, registry.New(), millis(t), Options{})

	assert.False(t, result.Events[0].IsTimeAnomaly)
	assert.True(t, result.Events[1].IsTimeAnomaly)
	assert.False(t, result.Events[2].IsTimeAnomaly, "equal timestamps are not anomalies")
	assert.False(t, result.Events[3].IsTimeAnomaly)
	assert.Equal(t, 1.5, result.Events[1].TimeStamp, "timestamps are not clamped")
	assert.Equal(t, 1, result.Summary.TimeAnomalies)
}

func TestSequenceOverrun(t *testing.T) {
	// Frame marker 10 with a 1 s period; the third frame starts 0.25 s late.
	records := []model.RawLogRecord{
		entry(10, 0), exit(10, 100),
		entry(10, 1000), exit(10, 1100),
		entry(10, 2250), exit(10, 2300),
		entry(20, 2400), exit(20, 2500),
		entry(10, 3250),
	}

	result := Sequence(records, registry.New(), millis(t), Options{FrameMarker: marker(10), FramePeriod: 1.0})

	overruns := make([]float64, len(result.Events))
	for i, event := range result.Events {
		overruns[i] = event.Overrun
	}
	assert.InDeltaSlice(t, []float64{0, 0, 0, 0, 0.25, 0, 0, 0, 0}, overruns, 1e-9)
	assert.Equal(t, 1, result.Summary.Overruns)
	assert.InDelta(t, 0.25, result.Summary.MaxOverrun, 1e-9)
}

func TestSequenceOverrunBelowResolution(t *testing.T) {
	n := newNormalizer(t, timebase.Config{TickRate: 1_000_000, Precision: 3})
	// 1.0002 s between markers is 0.2 ms late, below the 1 ms display step.
	records := []model.RawLogRecord{entry(1, 0), entry(1, 1_000_200), entry(1, 2_200_200)}

	result := Sequence(records, registry.New(), n, Options{FrameMarker: marker(1), FramePeriod: 1.0})

	assert.Zero(t, result.Events[1].Overrun)
	assert.InDelta(t, 0.2, result.Events[2].Overrun, 1e-9)
	assert.Equal(t, 1, result.Summary.Overruns)
}

func TestSequenceOverrunDisabled(t *testing.T) {
	records := []model.RawLogRecord{entry(1, 0), entry(1, 5000)}

	noMarker := Sequence(records, registry.New(), millis(t), Options{FramePeriod: 1})
	noPeriod := Sequence(records, registry.New(), millis(t), Options{FrameMarker: marker(1)})

	assert.Zero(t, noMarker.Events[1].Overrun)
	assert.Zero(t, noPeriod.Events[1].Overrun)
}

func TestSequenceRelativeTime(t *testing.T) {
	n := newNormalizer(t, timebase.Config{TickRate: 1000, Precision: 3, RelativeTime: true})

	result := Sequence([]model.RawLogRecord{entry(1, 5000), exit(1, 7000)}, registry.New(), n, Options{})

	assert.Equal(t, 0.0, result.Events[0].TimeStamp)
	assert.Equal(t, 2.0, result.Events[1].TimeStamp)
}

func TestSequenceRegistersUnknownIDs(t *testing.T) {
	reg := registry.New()
	reg.Register(1, "SCH_Main", model.RGB{R: 1})

	result := Sequence([]model.RawLogRecord{entry(1, 0), entry(2, 1), entry(3, 2)}, reg, millis(t), Options{})

	assert.Equal(t, 3, result.Summary.DistinctIDs)
	assert.Equal(t, 3, reg.Len())
	pid, ok := reg.Get(3)
	require.True(t, ok)
	assert.False(t, pid.IsNamed())
}

func TestSequenceIndexInvariant(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	records := make([]model.RawLogRecord, 5000)
	for i := range records {
		records[i] = model.RawLogRecord{
			PerfID:       uint32(rng.Intn(16)),
			IsEntry:      rng.Intn(2) == 0,
			RawTimestamp: uint64(rng.Int63n(1_000_000)),
		}
	}

	result := Sequence(records, registry.New(), millis(t), Options{FrameMarker: marker(0), FramePeriod: 0.01})

	require.Len(t, result.Events, len(records))
	for i, event := range result.Events {
		assert.Equal(t, i, event.Index)
		assert.Equal(t, records[i].PerfID, event.PerfID)
		assert.Equal(t, records[i].IsEntry, event.IsEntry)
		if event.Overrun != 0 {
			assert.True(t, event.IsEntry && event.PerfID == 0, "overrun only on marker entries")
		}
	}
}

func TestTracker(t *testing.T) {
	tracker := NewTracker()

	assert.Equal(t, Closed, tracker.State(1))
	assert.True(t, tracker.Step(1, true))
	assert.Equal(t, Open, tracker.State(1))
	assert.False(t, tracker.Step(1, true))
	assert.Equal(t, Open, tracker.State(1))
	assert.True(t, tracker.Step(1, false))
	assert.False(t, tracker.Step(1, false))
	assert.Equal(t, Closed, tracker.State(1))
	assert.Equal(t, 1, tracker.Len())
}
