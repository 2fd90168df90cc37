package parser

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/penwyp/go-cfs-perfmon/internal/core/model"
	"github.com/penwyp/go-cfs-perfmon/internal/data/cache"
	"github.com/penwyp/go-cfs-perfmon/internal/util"
	"github.com/spf13/afero"
	"golang.org/x/sync/errgroup"
)

var (
	gzipMagic = []byte{0x1f, 0x8b}
	zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}
)

type readCloser struct {
	io.Reader
	closers []func() error
}

func (rc *readCloser) Close() error {
	var firstErr error
	for _, c := range rc.closers {
		if err := c(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Open opens a log on fs. Gzip and zstd archives are detected by their
// leading bytes and decompressed on the fly.
func Open(fs afero.Fs, path string) (io.ReadCloser, error) {
	file, err := fs.Open(path)
	if err != nil {
		return nil, err
	}

	br := bufio.NewReader(file)
	head, _ := br.Peek(len(zstdMagic))

	switch {
	case bytes.HasPrefix(head, gzipMagic):
		gz, err := gzip.NewReader(br)
		if err != nil {
			file.Close()
			return nil, fmt.Errorf("failed to open gzip log %s: %w", path, err)
		}
		return &readCloser{Reader: gz, closers: []func() error{gz.Close, file.Close}}, nil
	case bytes.HasPrefix(head, zstdMagic):
		zr, err := zstd.NewReader(br)
		if err != nil {
			file.Close()
			return nil, fmt.Errorf("failed to open zstd log %s: %w", path, err)
		}
		closeZstd := func() error {
			zr.Close()
			return nil
		}
		return &readCloser{Reader: zr, closers: []func() error{closeZstd, file.Close}}, nil
	default:
		return &readCloser{Reader: br, closers: []func() error{file.Close}}, nil
	}
}

// Parser decodes log files, optionally reusing earlier decodes.
type Parser struct {
	fs          afero.Fs
	concurrency int
	cache       cache.Cache
}

// ParseResult represents the result of parsing a single file.
type ParseResult struct {
	File           string
	Records        []model.RawLogRecord
	TruncatedBytes int
	CacheHit       bool
	MissReason     cache.CacheMissReason
}

// NewParser creates a Parser. A nil cache disables reuse.
func NewParser(fs afero.Fs, concurrency int, c cache.Cache) *Parser {
	if concurrency <= 0 {
		concurrency = 1
	}
	return &Parser{fs: fs, concurrency: concurrency, cache: c}
}

// ParseFile decodes one log file.
func (p *Parser) ParseFile(path string) (ParseResult, error) {
	result := ParseResult{File: path, MissReason: cache.MissReasonNotFound}

	if p.cache != nil {
		cached := p.cache.Get(path)
		if cached.Found {
			result.Records = cached.Entry.Records
			result.TruncatedBytes = cached.Entry.TruncatedBytes
			result.CacheHit = true
			result.MissReason = cache.MissReasonNone
			return result, nil
		}
		result.MissReason = cached.MissReason
	}

	var (
		entry    *cache.Entry
		stampErr error
	)
	if p.cache != nil {
		entry, stampErr = cache.NewEntry(p.fs, path)
	}

	util.LogDebug(fmt.Sprintf("Start decoding file: %s", path))

	rc, err := Open(p.fs, path)
	if err != nil {
		return result, err
	}
	defer rc.Close()

	records, truncated, err := ReadAll(rc)
	if err != nil {
		return result, fmt.Errorf("%s: %w", path, err)
	}
	if truncated > 0 {
		util.LogDebug("Dropped trailing partial record", util.F("path", path), util.F("bytes", truncated))
	}

	result.Records = records
	result.TruncatedBytes = truncated

	switch {
	case p.cache == nil:
	case stampErr != nil:
		util.LogDebug(fmt.Sprintf("Failed to cache decoded log %s: %v", path, stampErr))
	default:
		entry.Records = records
		entry.TruncatedBytes = truncated
		if err := p.cache.Set(entry); err != nil {
			util.LogDebug(fmt.Sprintf("Failed to cache decoded log %s: %v", path, err))
		}
	}

	return result, nil
}

// ParseFiles decodes files concurrently. Results keep the order of paths.
// The first failure cancels the remaining work.
func (p *Parser) ParseFiles(ctx context.Context, paths []string) ([]ParseResult, error) {
	start := time.Now()
	results := make([]ParseResult, len(paths))

	util.LogDebug(fmt.Sprintf("Start concurrent decoding of %d files, concurrency: %d", len(paths), p.concurrency))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(p.concurrency)

	for i, path := range paths {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			fileStart := time.Now()
			result, err := p.ParseFile(path)
			if err != nil {
				util.LogDebug(fmt.Sprintf("File decoding failed: %s, duration %v - %v", path, time.Since(fileStart), err))
				return err
			}
			results[i] = result
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	util.LogDebug(fmt.Sprintf("Concurrent decoding finished, total duration: %v", time.Since(start)))
	return results, nil
}
