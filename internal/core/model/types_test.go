package model

import (
	"testing"

	"github.com/bytedance/sonic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitIDWord(t *testing.T) {
	tests := []struct {
		name        string
		word        uint32
		expectedID  uint32
		expectEntry bool
	}{
		{name: "entry", word: 0x00000005, expectedID: 5, expectEntry: true},
		{name: "exit", word: 0x80000005, expectedID: 5, expectEntry: false},
		{name: "max id entry", word: 0x7fffffff, expectedID: 0x7fffffff, expectEntry: true},
		{name: "zero exit", word: 0x80000000, expectedID: 0, expectEntry: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, isEntry := SplitIDWord(tt.word)
			assert.Equal(t, tt.expectedID, id)
			assert.Equal(t, tt.expectEntry, isEntry)
		})
	}
}

func TestSplitIDWord_ExitBitDoesNotChangeID(t *testing.T) {
	for _, word := range []uint32{0, 1, 5, 0x1234, 0x7fffffff} {
		withExit, _ := SplitIDWord(word | 0x80000000)
		withoutExit, _ := SplitIDWord(word)
		assert.Equal(t, withoutExit, withExit, "word %#x", word)
	}
}

func TestRawLogRecordIDWord(t *testing.T) {
	assert.Equal(t, uint32(0x00000005), RawLogRecord{PerfID: 5, IsEntry: true}.IDWord())
	assert.Equal(t, uint32(0x80000005), RawLogRecord{PerfID: 5, IsEntry: false}.IDWord())
}

func TestPerformanceIDLabel(t *testing.T) {
	assert.Equal(t, "SCH_PERF_ID", PerformanceID{ID: 7, Name: "SCH_PERF_ID"}.Label())
	assert.Equal(t, "0x00000007", PerformanceID{ID: 7, Name: "undefined"}.Label())
	assert.Equal(t, "0x0000001f", PerformanceID{ID: 31}.Label())
}

func TestRGBHex(t *testing.T) {
	assert.Equal(t, "#00ff00", RGB{G: 255}.Hex())
	assert.Equal(t, "#ffafaf", RGB{R: 255, G: 175, B: 175}.Hex())
}

func TestParseSortOrder(t *testing.T) {
	tests := []struct {
		input       string
		expected    SortOrder
		expectError bool
	}{
		{input: "", expected: SortByName},
		{input: "name", expected: SortByName},
		{input: "VALUE", expected: SortByValue},
		{input: " value ", expected: SortByValue},
		{input: "size", expectError: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			order, err := ParseSortOrder(tt.input)
			if tt.expectError {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, order)
		})
	}
}

func TestEnrichedEventJSON(t *testing.T) {
	event := EnrichedEvent{Index: 3, PerfID: 5, IsEntry: false, TimeStamp: 1.5, Overrun: 0.25}

	data, err := sonic.Marshal(event)
	require.NoError(t, err)

	assert.Contains(t, string(data), `"index":3`)
	assert.Contains(t, string(data), `"overrun":0.25`)
	assert.NotContains(t, string(data), "notes")
	assert.Equal(t, "exit", event.EventType())
}
