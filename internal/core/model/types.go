package model

import (
	"fmt"
	"strings"

	"github.com/penwyp/go-cfs-perfmon/internal/core/constants"
)

// RawLogRecord is one decoded entry/exit record, exactly as found in the log.
type RawLogRecord struct {
	PerfID       uint32 `json:"perfId"`
	IsEntry      bool   `json:"isEntry"`
	RawTimestamp uint64 `json:"rawTimestamp"`
}

// SplitIDWord separates the exit flag from the numeric ID of a raw ID word.
func SplitIDWord(word uint32) (id uint32, isEntry bool) {
	return word & constants.IDMask, word&constants.ExitMask == 0
}

// IDWord rebuilds the on-disk ID word for a record.
func (r RawLogRecord) IDWord() uint32 {
	word := r.PerfID & constants.IDMask
	if !r.IsEntry {
		word |= constants.ExitMask
	}
	return word
}

// RGB is a plot color.
type RGB struct {
	R uint8 `json:"r" yaml:"r"`
	G uint8 `json:"g" yaml:"g"`
	B uint8 `json:"b" yaml:"b"`
}

func (c RGB) Hex() string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// PerformanceID is a known instrumentation point.
type PerformanceID struct {
	ID          uint32   `json:"id"`
	Name        string   `json:"name"`
	Color       RGB      `json:"color"`
	PlotEnabled bool     `json:"plotEnabled"`
	MinValue    *float64 `json:"minValue,omitempty"` // seconds
	MaxValue    *float64 `json:"maxValue,omitempty"` // seconds
	Notes       string   `json:"notes,omitempty"`
}

// IsNamed reports whether the ID came with a name from the ID list.
func (p PerformanceID) IsNamed() bool {
	return p.Name != "" && p.Name != constants.UndefinedName
}

// Label returns the name, or the hex ID for unnamed IDs.
func (p PerformanceID) Label() string {
	if p.IsNamed() {
		return p.Name
	}
	return FormatID(p.ID)
}

// FormatID renders an ID the way the ID list tools print it.
func FormatID(id uint32) string {
	return fmt.Sprintf("0x%08x", id)
}

// EnrichedEvent is a sequenced event. Index always equals its slice position.
type EnrichedEvent struct {
	Index           int     `json:"index"`
	PerfID          uint32  `json:"perfId"`
	IsEntry         bool    `json:"isEntry"`
	TimeStamp       float64 `json:"timeStamp"` // seconds
	IsSequenceError bool    `json:"isSequenceError"`
	IsTimeAnomaly   bool    `json:"isTimeAnomaly"`
	Overrun         float64 `json:"overrun"` // seconds, 0 if none
	Notes           string  `json:"notes,omitempty"`
}

// EventType returns "entry" or "exit".
func (e EnrichedEvent) EventType() string {
	if e.IsEntry {
		return "entry"
	}
	return "exit"
}

// AggregateStat holds the statistics of one plotted ID.
type AggregateStat struct {
	PerfID         uint32  `json:"perfId"`
	Name           string  `json:"name"`
	Label          string  `json:"label"`
	Count          int     `json:"count"`
	EntryCount     int     `json:"entryCount"`
	ExitCount      int     `json:"exitCount"`
	MinDuration    float64 `json:"minDuration"`
	MaxDuration    float64 `json:"maxDuration"`
	AvgDuration    float64 `json:"avgDuration"`
	TotalDuration  float64 `json:"totalDuration"`
	PercentOfSpan  float64 `json:"percentOfSpan"`
	PercentOfTotal float64 `json:"percentOfTotal"`

	MinInterval   *float64 `json:"minInterval,omitempty"`
	MaxInterval   *float64 `json:"maxInterval,omitempty"`
	MinOverrun    *float64 `json:"minOverrun,omitempty"`
	MaxOverrun    *float64 `json:"maxOverrun,omitempty"`
	LimitExceeded int      `json:"limitExceeded"`
}

// SortOrder selects the ordering of aggregate statistics.
type SortOrder int

const (
	SortByName SortOrder = iota
	SortByValue
)

func (s SortOrder) String() string {
	if s == SortByValue {
		return "value"
	}
	return "name"
}

// ParseSortOrder accepts "name" or "value".
func ParseSortOrder(s string) (SortOrder, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "name":
		return SortByName, nil
	case "value":
		return SortByValue, nil
	default:
		return SortByName, fmt.Errorf("invalid sort order '%s': must be 'name' or 'value'", s)
	}
}
