package fixtures

import (
	"bytes"
	"fmt"
	"path/filepath"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/penwyp/go-cfs-perfmon/internal/core/model"
	"github.com/penwyp/go-cfs-perfmon/internal/data/parser"
	"github.com/spf13/afero"
)

// Well-known IDs used by generated logs
const (
	FrameMarkerID uint32 = 1
	TaskAID       uint32 = 2
	TaskBID       uint32 = 3
)

// LogBuilder accumulates records in order
type LogBuilder struct {
	records []model.RawLogRecord
}

func NewLogBuilder() *LogBuilder {
	return &LogBuilder{}
}

func (b *LogBuilder) Entry(id uint32, tick uint64) *LogBuilder {
	b.records = append(b.records, model.RawLogRecord{PerfID: id, IsEntry: true, RawTimestamp: tick})
	return b
}

func (b *LogBuilder) Exit(id uint32, tick uint64) *LogBuilder {
	b.records = append(b.records, model.RawLogRecord{PerfID: id, IsEntry: false, RawTimestamp: tick})
	return b
}

// Pair appends an entry at start and an exit at end
func (b *LogBuilder) Pair(id uint32, start, end uint64) *LogBuilder {
	return b.Entry(id, start).Exit(id, end)
}

func (b *LogBuilder) Records() []model.RawLogRecord {
	return append([]model.RawLogRecord(nil), b.records...)
}

// Bytes encodes the records with the log magic
func (b *LogBuilder) Bytes() []byte {
	var buf bytes.Buffer
	_ = parser.Encode(&buf, b.records)
	return buf.Bytes()
}

// TestDataGenerator writes binary performance logs to a filesystem
type TestDataGenerator struct {
	fs      afero.Fs
	baseDir string
}

// NewTestDataGenerator creates a new test data generator
func NewTestDataGenerator(fs afero.Fs, baseDir string) *TestDataGenerator {
	return &TestDataGenerator{fs: fs, baseDir: baseDir}
}

func (g *TestDataGenerator) GetBaseDir() string {
	return g.baseDir
}

func (g *TestDataGenerator) path(name string) string {
	return filepath.Join(g.baseDir, name)
}

// WriteRaw writes data verbatim and returns the file path
func (g *TestDataGenerator) WriteRaw(name string, data []byte) (string, error) {
	path := g.path(name)
	if err := g.fs.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", err
	}
	if err := afero.WriteFile(g.fs, path, data, 0644); err != nil {
		return "", err
	}
	return path, nil
}

// WriteLog encodes records into name
func (g *TestDataGenerator) WriteLog(name string, records []model.RawLogRecord) (string, error) {
	var buf bytes.Buffer
	if err := parser.Encode(&buf, records); err != nil {
		return "", err
	}
	return g.WriteRaw(name, buf.Bytes())
}

// WriteCompressedLog encodes records and compresses them with "gz" or "zst"
func (g *TestDataGenerator) WriteCompressedLog(name string, records []model.RawLogRecord, codec string) (string, error) {
	var raw bytes.Buffer
	if err := parser.Encode(&raw, records); err != nil {
		return "", err
	}

	var out bytes.Buffer
	switch codec {
	case "gz":
		w := gzip.NewWriter(&out)
		if _, err := w.Write(raw.Bytes()); err != nil {
			return "", err
		}
		if err := w.Close(); err != nil {
			return "", err
		}
	case "zst":
		w, err := zstd.NewWriter(&out)
		if err != nil {
			return "", err
		}
		if _, err := w.Write(raw.Bytes()); err != nil {
			return "", err
		}
		if err := w.Close(); err != nil {
			return "", err
		}
	default:
		return "", fmt.Errorf("unsupported codec: %s", codec)
	}
	return g.WriteRaw(name, out.Bytes())
}

// FrameSpec shapes a generated frame log. Ticks are in TickRate units.
type FrameSpec struct {
	Frames      int
	StartTick   uint64
	PeriodTicks uint64
	TaskATicks  uint64
	TaskBTicks  uint64
	LateFrames  map[int]uint64 // frame index -> extra delay in ticks
}

// DefaultFrameSpec describes ten 10 ms frames at a 1 MHz tick rate
func DefaultFrameSpec() FrameSpec {
	return FrameSpec{
		Frames:      10,
		StartTick:   1_000_000,
		PeriodTicks: 10_000,
		TaskATicks:  2_000,
		TaskBTicks:  1_000,
	}
}

// BuildFrames lays out one frame marker pair per frame with task A nested
// inside it and task B after task A.
func BuildFrames(spec FrameSpec) []model.RawLogRecord {
	b := NewLogBuilder()
	tick := spec.StartTick
	for i := 0; i < spec.Frames; i++ {
		tick += spec.LateFrames[i]
		frameStart := tick
		b.Entry(FrameMarkerID, frameStart)
		b.Pair(TaskAID, frameStart+10, frameStart+10+spec.TaskATicks)
		bStart := frameStart + 20 + spec.TaskATicks
		b.Pair(TaskBID, bStart, bStart+spec.TaskBTicks)
		b.Exit(FrameMarkerID, bStart+spec.TaskBTicks+10)
		tick = frameStart + spec.PeriodTicks
	}
	return b.Records()
}

// GenerateFrameLog writes BuildFrames(spec) to name
func (g *TestDataGenerator) GenerateFrameLog(name string, spec FrameSpec) (string, error) {
	return g.WriteLog(name, BuildFrames(spec))
}
