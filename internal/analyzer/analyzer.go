package analyzer

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/penwyp/go-cfs-perfmon/internal/core/model"
	"github.com/penwyp/go-cfs-perfmon/internal/core/registry"
	"github.com/penwyp/go-cfs-perfmon/internal/core/timebase"
	"github.com/penwyp/go-cfs-perfmon/internal/data/cache"
	"github.com/penwyp/go-cfs-perfmon/internal/data/parser"
	"github.com/penwyp/go-cfs-perfmon/internal/util"
	"github.com/spf13/afero"
)

type Config struct {
	TimeBase    timebase.Config
	FrameMarker *uint32
	FramePeriod float64 // seconds
	SortOrder   model.SortOrder
	Concurrency int
	CacheSize   int
}

// DefaultConfig returns the default time base, no frame marker and name
// ordering.
func DefaultConfig() Config {
	return Config{
		TimeBase:  timebase.DefaultConfig(),
		SortOrder: model.SortByName,
	}
}

var (
	ErrNoLog        = errors.New("no log loaded")
	ErrNoPaths      = errors.New("no log files given")
	ErrIndexInvalid = errors.New("event index out of range")
)

// loaded is the decoded input the current result was computed from.
type loaded struct {
	paths   []string
	logs    [][]model.RawLogRecord
	notes   []map[int]string
	sources []Source
}

func (l *loaded) input() Input {
	records, gaps := Concat(l.logs)
	notes := make(map[int]string)
	for i, fileNotes := range l.notes {
		for idx, note := range fileNotes {
			if idx < len(l.logs[i]) {
				notes[l.sources[i].FirstIndex+idx] = note
			}
		}
	}
	return Input{Records: records, GapIndexes: gaps, Notes: notes, Sources: append([]Source(nil), l.sources...)}
}

// Analyzer owns the decode → sequence → aggregate pipeline and publishes
// complete results. Readers never observe a partially built result.
type Analyzer struct {
	fs       afero.Fs
	registry *registry.Registry
	cache    *cache.LogCache
	parser   *parser.Parser

	// writeMu serializes loads and recomputes.
	writeMu sync.Mutex
	config  Config
	data    *loaded

	mu         sync.RWMutex
	current    *Result
	generation uint64
}

// New creates an analyzer reading logs from fs. A nil registry creates an
// empty one.
func New(fs afero.Fs, config Config, reg *registry.Registry) (*Analyzer, error) {
	if err := config.TimeBase.Validate(); err != nil {
		return nil, fmt.Errorf("invalid time base: %w", err)
	}
	if config.FramePeriod < 0 {
		return nil, fmt.Errorf("frame period must not be negative: %v", config.FramePeriod)
	}
	if config.Concurrency <= 0 {
		config.Concurrency = runtime.NumCPU()
	}
	if reg == nil {
		reg = registry.New()
	}

	logCache, err := cache.NewLogCache(fs, config.CacheSize)
	if err != nil {
		return nil, err
	}

	return &Analyzer{
		fs:       fs,
		registry: reg,
		cache:    logCache,
		parser:   parser.NewParser(fs, config.Concurrency, logCache),
		config:   config,
	}, nil
}

func (a *Analyzer) Registry() *registry.Registry {
	return a.registry
}

// Current returns the last published result, or nil before the first
// successful load.
func (a *Analyzer) Current() *Result {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.current
}

// Paths returns the logs of the current result.
func (a *Analyzer) Paths() []string {
	a.writeMu.Lock()
	defer a.writeMu.Unlock()
	if a.data == nil {
		return nil
	}
	return append([]string(nil), a.data.paths...)
}

func (a *Analyzer) publish(result *Result) *Result {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.generation++
	result.Generation = a.generation
	a.current = result
	return result
}

// Load decodes paths in parallel, concatenates them in the given order and
// publishes the new result. On any error the previous result is kept.
func (a *Analyzer) Load(ctx context.Context, paths []string) (*Result, error) {
	if len(paths) == 0 {
		return nil, ErrNoPaths
	}

	a.writeMu.Lock()
	defer a.writeMu.Unlock()

	startTime := time.Now()
	util.LogInfo(fmt.Sprintf("Loading %d performance logs...", len(paths)))

	parseStart := time.Now()
	parsed, err := a.parser.ParseFiles(ctx, paths)
	if err != nil {
		return nil, fmt.Errorf("failed to load logs: %w", err)
	}
	util.LogDebug(fmt.Sprintf("Phase 1 - Decode duration: %v", time.Since(parseStart)))

	stats := NewCacheStats()
	data := &loaded{
		paths:   append([]string(nil), paths...),
		logs:    make([][]model.RawLogRecord, len(parsed)),
		notes:   make([]map[int]string, len(parsed)),
		sources: make([]Source, len(parsed)),
	}
	offset := 0
	for i, p := range parsed {
		stats.Record(p)

		notes, err := LoadNotes(a.fs, p.File)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", p.File, err)
		}

		data.logs[i] = p.Records
		data.notes[i] = notes
		data.sources[i] = Source{
			Path:           p.File,
			FirstIndex:     offset,
			Records:        len(p.Records),
			TruncatedBytes: p.TruncatedBytes,
			CacheHit:       p.CacheHit,
			Notes:          len(notes),
		}
		offset += len(p.Records)
	}
	stats.PrintFinalStats()

	result, err := Run(data.input(), a.registry, a.config)
	if err != nil {
		return nil, err
	}
	a.data = data

	util.LogDebug(fmt.Sprintf("Total load duration: %v", time.Since(startTime)))
	util.LogInfo("Load complete",
		util.F("records", result.Summary.Records),
		util.F("ids", result.Summary.DistinctIDs),
		util.F("sequenceErrors", result.Summary.SequenceErrors),
		util.F("timeAnomalies", result.Summary.TimeAnomalies))

	return a.publish(result), nil
}

// Reload decodes the current logs again, picking up changes on disk.
func (a *Analyzer) Reload(ctx context.Context) (*Result, error) {
	paths := a.Paths()
	if len(paths) == 0 {
		return nil, ErrNoLog
	}
	return a.Load(ctx, paths)
}

func (a *Analyzer) recomputeLocked() (*Result, error) {
	if a.data == nil {
		return nil, ErrNoLog
	}
	result, err := Run(a.data.input(), a.registry, a.config)
	if err != nil {
		return nil, err
	}
	return a.publish(result), nil
}

// Recompute reruns sequencing and aggregation over the loaded records.
// The returned result is the change notification for consumers.
func (a *Analyzer) Recompute() (*Result, error) {
	a.writeMu.Lock()
	defer a.writeMu.Unlock()
	return a.recomputeLocked()
}

// SetPlotEnabled toggles an ID and recomputes. Without a loaded log only
// the registry is updated.
func (a *Analyzer) SetPlotEnabled(id uint32, enabled bool) (*Result, error) {
	a.writeMu.Lock()
	defer a.writeMu.Unlock()

	a.registry.SetPlotEnabled(id, enabled)
	if a.data == nil {
		return nil, nil
	}
	return a.recomputeLocked()
}

// SetSortOrder changes the statistics ordering and recomputes.
func (a *Analyzer) SetSortOrder(order model.SortOrder) (*Result, error) {
	a.writeMu.Lock()
	defer a.writeMu.Unlock()

	a.config.SortOrder = order
	if a.data == nil {
		return nil, nil
	}
	return a.recomputeLocked()
}

// SetNote attaches text to the event at index and persists it next to the
// log the event came from. Empty text removes the note.
func (a *Analyzer) SetNote(index int, text string) (*Result, error) {
	a.writeMu.Lock()
	defer a.writeMu.Unlock()

	if a.data == nil {
		return nil, ErrNoLog
	}

	file := -1
	for i, src := range a.data.sources {
		if index >= src.FirstIndex && index < src.FirstIndex+src.Records {
			file = i
			break
		}
	}
	if index < 0 || file < 0 {
		return nil, fmt.Errorf("%w: %d", ErrIndexInvalid, index)
	}

	local := index - a.data.sources[file].FirstIndex
	notes := make(map[int]string, len(a.data.notes[file])+1)
	for k, v := range a.data.notes[file] {
		notes[k] = v
	}
	if text == "" {
		delete(notes, local)
	} else {
		notes[local] = text
	}

	path := a.data.sources[file].Path
	if err := SaveNotes(a.fs, path, notes); err != nil {
		return nil, err
	}
	a.data.notes[file] = notes
	a.data.sources[file].Notes = len(notes)

	util.LogDebug("Note updated", util.F("path", path), util.F("index", local))
	return a.recomputeLocked()
}
