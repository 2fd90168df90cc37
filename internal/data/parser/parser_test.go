package parser

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/penwyp/go-cfs-perfmon/internal/core/model"
	"github.com/penwyp/go-cfs-perfmon/internal/data/cache"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var sampleRecords = []model.RawLogRecord{
	{PerfID: 1, IsEntry: true, RawTimestamp: 1000},
	{PerfID: 2, IsEntry: true, RawTimestamp: 1500},
	{PerfID: 2, IsEntry: false, RawTimestamp: 1700},
	{PerfID: 1, IsEntry: false, RawTimestamp: 2000},
}

func gzipBytes(t *testing.T, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := gzip.NewWriter(&buf)
	_, err := w.Write(data)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func zstdBytes(t *testing.T, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	w, err := zstd.NewWriter(&buf)
	require.NoError(t, err)
	_, err = w.Write(data)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func TestOpenDetectsCompression(t *testing.T) {
	raw := encodeRecords(t, sampleRecords)

	tests := []struct {
		name string
		path string
		data []byte
	}{
		{name: "plain", path: "/logs/run.dat", data: raw},
		{name: "gzip", path: "/logs/run.dat.gz", data: gzipBytes(t, raw)},
		{name: "zstd", path: "/logs/run.dat.zst", data: zstdBytes(t, raw)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := afero.NewMemMapFs()
			require.NoError(t, afero.WriteFile(fs, tt.path, tt.data, 0644))

			rc, err := Open(fs, tt.path)
			require.NoError(t, err)
			records, truncated, err := ReadAll(rc)
			require.NoError(t, rc.Close())

			require.NoError(t, err)
			assert.Zero(t, truncated)
			assert.Equal(t, sampleRecords, records)
		})
	}
}

func TestOpenMissingFile(t *testing.T) {
	_, err := Open(afero.NewMemMapFs(), "/nope.dat")
	assert.Error(t, err)
}

func TestOpenCorruptGzip(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/bad.dat.gz", []byte{0x1f, 0x8b, 0x00}, 0644))

	_, err := Open(fs, "/bad.dat.gz")
	assert.Error(t, err)
}

func TestNewParserDefaults(t *testing.T) {
	p := NewParser(afero.NewMemMapFs(), 0, nil)

	assert.Equal(t, 1, p.concurrency)
	assert.Nil(t, p.cache)
}

func TestParseFileUsesCache(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/logs/a.dat", encodeRecords(t, sampleRecords), 0644))
	c, err := cache.NewLogCache(fs, 4)
	require.NoError(t, err)
	p := NewParser(fs, 2, c)

	first, err := p.ParseFile("/logs/a.dat")
	require.NoError(t, err)
	assert.False(t, first.CacheHit)
	assert.Equal(t, cache.MissReasonNotFound, first.MissReason)

	second, err := p.ParseFile("/logs/a.dat")
	require.NoError(t, err)
	assert.True(t, second.CacheHit)
	assert.Equal(t, first.Records, second.Records)
}

// appendingFs appends tail to path the first time a reader of path reaches
// EOF, the way a log still being written grows under a running decode.
type appendingFs struct {
	afero.Fs
	path  string
	tail  []byte
	grown bool
}

func (a *appendingFs) Open(name string) (afero.File, error) {
	f, err := a.Fs.Open(name)
	if err != nil || name != a.path {
		return f, err
	}
	return &appendingFile{File: f, fs: a}, nil
}

type appendingFile struct {
	afero.File
	fs  *appendingFs
	eof bool
}

func (f *appendingFile) Read(p []byte) (int, error) {
	if f.eof {
		return 0, io.EOF
	}
	n, err := f.File.Read(p)
	if errors.Is(err, io.EOF) && !f.fs.grown {
		f.fs.grown = true
		f.eof = true
		w, openErr := f.fs.Fs.OpenFile(f.fs.path, os.O_WRONLY|os.O_APPEND, 0644)
		if openErr != nil {
			return n, openErr
		}
		if _, writeErr := w.Write(f.fs.tail); writeErr != nil {
			w.Close()
			return n, writeErr
		}
		if closeErr := w.Close(); closeErr != nil {
			return n, closeErr
		}
	}
	return n, err
}

func TestParseFileDoesNotCacheGrowingLog(t *testing.T) {
	base := afero.NewMemMapFs()
	initial := encodeRecords(t, sampleRecords[:1])
	full := encodeRecords(t, sampleRecords[:2])
	require.NoError(t, afero.WriteFile(base, "/logs/live.dat", initial, 0644))

	fs := &appendingFs{Fs: base, path: "/logs/live.dat", tail: full[len(initial):]}
	c, err := cache.NewLogCache(base, 4)
	require.NoError(t, err)
	p := NewParser(fs, 1, c)

	first, err := p.ParseFile("/logs/live.dat")
	require.NoError(t, err)
	require.True(t, fs.grown)
	assert.Len(t, first.Records, 1)

	onDisk, err := afero.ReadFile(base, "/logs/live.dat")
	require.NoError(t, err)
	require.Equal(t, full, onDisk)

	second, err := p.ParseFile("/logs/live.dat")
	require.NoError(t, err)
	assert.False(t, second.CacheHit)
	assert.NotEqual(t, cache.MissReasonNone, second.MissReason)
	assert.Equal(t, sampleRecords[:2], second.Records)

	third, err := p.ParseFile("/logs/live.dat")
	require.NoError(t, err)
	assert.True(t, third.CacheHit)
	assert.Equal(t, sampleRecords[:2], third.Records)
}

func TestParseFileBadMagic(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/logs/bad.dat", []byte("not a log at all"), 0644))
	p := NewParser(fs, 1, nil)

	_, err := p.ParseFile("/logs/bad.dat")

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrBadMagic))
	assert.Contains(t, err.Error(), "/logs/bad.dat")
}

func TestParseFilesPreservesOrder(t *testing.T) {
	fs := afero.NewMemMapFs()
	var paths []string
	for i := 0; i < 8; i++ {
		path := fmt.Sprintf("/logs/run%02d.dat", i)
		records := []model.RawLogRecord{{PerfID: uint32(i), IsEntry: true, RawTimestamp: uint64(i)}}
		require.NoError(t, afero.WriteFile(fs, path, encodeRecords(t, records), 0644))
		paths = append(paths, path)
	}
	p := NewParser(fs, 3, nil)

	results, err := p.ParseFiles(context.Background(), paths)

	require.NoError(t, err)
	require.Len(t, results, 8)
	for i, result := range results {
		assert.Equal(t, paths[i], result.File)
		require.Len(t, result.Records, 1)
		assert.Equal(t, uint32(i), result.Records[0].PerfID)
	}
}

func TestParseFilesFailsAsWhole(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/logs/good.dat", encodeRecords(t, sampleRecords), 0644))
	require.NoError(t, afero.WriteFile(fs, "/logs/bad.dat", []byte{0, 0, 0, 0}, 0644))
	p := NewParser(fs, 2, nil)

	results, err := p.ParseFiles(context.Background(), []string{"/logs/good.dat", "/logs/bad.dat"})

	assert.Nil(t, results)
	assert.True(t, errors.Is(err, ErrBadMagic))
}

func TestParseFilesCancelled(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/logs/good.dat", encodeRecords(t, sampleRecords), 0644))
	p := NewParser(fs, 1, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.ParseFiles(ctx, []string{"/logs/good.dat"})

	assert.ErrorIs(t, err, context.Canceled)
}
