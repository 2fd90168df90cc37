// Package timebase converts raw tick counts to seconds and measures the
// time span covered by a sequenced log.
package timebase

import (
	"errors"
	"fmt"
	"math"
	"strconv"

	"github.com/penwyp/go-cfs-perfmon/internal/core/constants"
	"github.com/penwyp/go-cfs-perfmon/internal/core/model"
	"github.com/penwyp/go-cfs-perfmon/internal/util"
)

// Config holds the time base settings of one analysis.
type Config struct {
	TickRate      float64 // ticks per second
	Precision     int     // decimals used for display
	AutoPrecision bool    // derive Precision from TickRate
	RelativeTime  bool    // measure from the first record instead of tick 0
	LeadingTrim   float64 // seconds excluded from the start of the span
	TrailingTrim  float64 // seconds excluded from the end of the span
}

// DefaultConfig returns a microsecond tick rate with six decimals.
func DefaultConfig() Config {
	return Config{
		TickRate:  constants.DefaultTickRate,
		Precision: constants.DefaultPrecision,
	}
}

var (
	ErrInvalidTickRate  = errors.New("tick rate must be positive")
	ErrInvalidPrecision = fmt.Errorf("precision must be between 0 and %d", constants.MaxPrecision)
	ErrInvalidTrim      = errors.New("span trims must not be negative")
)

// Validate checks the settings for values the normalizer cannot use.
func (c Config) Validate() error {
	if c.TickRate <= 0 || math.IsNaN(c.TickRate) || math.IsInf(c.TickRate, 0) {
		return fmt.Errorf("%w: %v", ErrInvalidTickRate, c.TickRate)
	}
	if !c.AutoPrecision && (c.Precision < 0 || c.Precision > constants.MaxPrecision) {
		return fmt.Errorf("%w: %d", ErrInvalidPrecision, c.Precision)
	}
	if c.LeadingTrim < 0 || c.TrailingTrim < 0 {
		return ErrInvalidTrim
	}
	return nil
}

// AutoPrecision returns the number of decimal digits needed to show one
// tick at tickRate.
func AutoPrecision(tickRate float64) int {
	ticks := int64(tickRate) - 1
	if ticks < 1 {
		return 0
	}
	digits := len(strconv.FormatInt(ticks, 10))
	if digits > constants.MaxPrecision {
		return constants.MaxPrecision
	}
	return digits
}

// Normalizer converts raw timestamps for one analysis. It is not safe for
// concurrent use; build one per pipeline run.
type Normalizer struct {
	cfg       Config
	precision int
	origin    uint64
}

// NewNormalizer validates cfg and builds a normalizer.
func NewNormalizer(cfg Config) (*Normalizer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	precision := cfg.Precision
	if cfg.AutoPrecision {
		precision = AutoPrecision(cfg.TickRate)
	}
	return &Normalizer{cfg: cfg, precision: precision}, nil
}

// SetOrigin fixes the tick subtracted when RelativeTime is enabled.
func (n *Normalizer) SetOrigin(raw uint64) {
	n.origin = raw
}

// Origin returns the tick treated as time zero.
func (n *Normalizer) Origin() uint64 {
	if !n.cfg.RelativeTime {
		return 0
	}
	return n.origin
}

// Normalize converts a raw tick count to seconds. No rounding is applied.
func (n *Normalizer) Normalize(raw uint64) float64 {
	if !n.cfg.RelativeTime {
		return float64(raw) / n.cfg.TickRate
	}
	return float64(int64(raw-n.origin)) / n.cfg.TickRate
}

func (n *Normalizer) Config() Config {
	return n.cfg
}

func (n *Normalizer) TickRate() float64 {
	return n.cfg.TickRate
}

func (n *Normalizer) Precision() int {
	return n.precision
}

// TickDuration is the length of a single tick in seconds.
func (n *Normalizer) TickDuration() float64 {
	return 1 / n.cfg.TickRate
}

// MinimumTimeDelta is the smallest difference shown at the current
// precision. Smaller differences count as coincident.
func (n *Normalizer) MinimumTimeDelta() float64 {
	return math.Pow10(-n.precision)
}

// Round rounds seconds to the display precision.
func (n *Normalizer) Round(seconds float64) float64 {
	scale := math.Pow10(n.precision)
	return math.Round(seconds*scale) / scale
}

// Format renders seconds at the display precision.
func (n *Normalizer) Format(seconds float64) string {
	return util.FormatSeconds(seconds, n.precision)
}

// Span describes the time covered by an event list.
type Span struct {
	FirstTimeStamp       float64   `json:"firstTimeStamp"`
	MaximumTimeStamp     float64   `json:"maximumTimeStamp"`
	DataGaps             []float64 `json:"dataGaps,omitempty"`
	DataGapTotal         float64   `json:"dataGapTotal"`
	AdjustedDataTimeSpan float64   `json:"adjustedDataTimeSpan"`
}

// ComputeSpan measures events. gapIndexes holds the index of the first
// event of every log after the first; the time between that event and its
// predecessor, less one tick, is excluded from the adjusted span.
func (n *Normalizer) ComputeSpan(events []model.EnrichedEvent, gapIndexes []int) Span {
	if len(events) == 0 {
		return Span{}
	}

	span := Span{
		FirstTimeStamp:   events[0].TimeStamp,
		MaximumTimeStamp: events[len(events)-1].TimeStamp,
	}

	for _, idx := range gapIndexes {
		if idx <= 0 || idx >= len(events) {
			continue
		}
		gap := events[idx].TimeStamp - events[idx-1].TimeStamp - n.TickDuration()
		if gap < 0 {
			gap = 0
		}
		span.DataGaps = append(span.DataGaps, gap)
		span.DataGapTotal += gap
	}

	adjusted := span.MaximumTimeStamp - span.FirstTimeStamp - span.DataGapTotal -
		n.cfg.LeadingTrim - n.cfg.TrailingTrim
	if adjusted < 0 {
		adjusted = 0
	}
	span.AdjustedDataTimeSpan = adjusted
	return span
}
