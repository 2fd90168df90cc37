package cache

import (
	"fmt"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/penwyp/go-cfs-perfmon/internal/core/model"
	"github.com/penwyp/go-cfs-perfmon/internal/util"
	"github.com/spf13/afero"
)

type CacheMissReason int

const (
	MissReasonNone CacheMissReason = iota
	MissReasonError
	MissReasonInode
	MissReasonSize
	MissReasonModTime
	MissReasonFingerprint
	MissReasonNoFingerprint
	MissReasonNotFound
)

func (r CacheMissReason) String() string {
	switch r {
	case MissReasonNone:
		return "none"
	case MissReasonError:
		return "File stat error"
	case MissReasonInode:
		return "File inode changed"
	case MissReasonSize:
		return "File size changed"
	case MissReasonModTime:
		return "Modification time changed"
	case MissReasonFingerprint:
		return "File fingerprint changed"
	case MissReasonNoFingerprint:
		return "Cached entry has no fingerprint"
	case MissReasonNotFound:
		return "Cache not found"
	default:
		return "Unknown reason"
	}
}

// Entry is one decoded log together with the file attributes it was
// decoded from.
type Entry struct {
	Path           string
	Records        []model.RawLogRecord
	TruncatedBytes int

	Inode       uint64
	Size        int64
	ModTime     int64
	Fingerprint string
}

type CacheResult struct {
	Entry      *Entry
	Found      bool
	MissReason CacheMissReason
}

// Cache stores decoded logs keyed by path.
type Cache interface {
	Get(path string) CacheResult
	Set(entry *Entry) error
	Clear()
	Len() int
}

// LogCache is a bounded in-memory cache of decoded logs. Entries are
// revalidated against the file on every Get.
type LogCache struct {
	fs      afero.Fs
	entries *lru.Cache[string, *Entry]

	hits   atomic.Int64
	misses atomic.Int64
}

const DefaultSize = 32

func NewLogCache(fs afero.Fs, size int) (*LogCache, error) {
	if size <= 0 {
		size = DefaultSize
	}
	entries, err := lru.New[string, *Entry](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create log cache: %w", err)
	}
	return &LogCache{fs: fs, entries: entries}, nil
}

func (c *LogCache) Get(path string) CacheResult {
	entry, ok := c.entries.Get(path)
	if !ok {
		c.misses.Add(1)
		return CacheResult{MissReason: MissReasonNotFound}
	}

	if reason := c.validate(entry); reason != MissReasonNone {
		c.entries.Remove(path)
		c.misses.Add(1)
		return CacheResult{MissReason: reason}
	}

	c.hits.Add(1)
	return CacheResult{Entry: entry, Found: true, MissReason: MissReasonNone}
}

func (c *LogCache) validate(entry *Entry) CacheMissReason {
	current, err := util.GetFileInfo(c.fs, entry.Path)
	if err != nil {
		util.LogDebug(fmt.Sprintf("Cache validation failed for %s: unable to get file info: %v", entry.Path, err))
		return MissReasonError
	}

	if current.Inode != entry.Inode {
		util.LogDebug(fmt.Sprintf("Cache invalidated for %s: inode changed (cached: %d, current: %d)",
			entry.Path, entry.Inode, current.Inode))
		return MissReasonInode
	}
	if current.Size != entry.Size {
		util.LogDebug(fmt.Sprintf("Cache invalidated for %s: size changed (cached: %d, current: %d)",
			entry.Path, entry.Size, current.Size))
		return MissReasonSize
	}
	if current.ModTime != entry.ModTime {
		util.LogDebug(fmt.Sprintf("Cache invalidated for %s: modtime changed (cached: %d, current: %d)",
			entry.Path, entry.ModTime, current.ModTime))
		return MissReasonModTime
	}

	if entry.Fingerprint == "" {
		return MissReasonNoFingerprint
	}
	fingerprint, err := util.CalculateFileFingerprint(c.fs, entry.Path)
	if err != nil {
		return MissReasonNoFingerprint
	}
	if fingerprint != entry.Fingerprint {
		util.LogDebug(fmt.Sprintf("Cache invalidated for %s: fingerprint mismatch (cached: %s, current: %s)",
			entry.Path, entry.Fingerprint, fingerprint))
		return MissReasonFingerprint
	}
	return MissReasonNone
}

// NewEntry captures the current attributes of path. Stamp before decoding
// so a file that grows during the decode fails the next validation.
func NewEntry(fs afero.Fs, path string) (*Entry, error) {
	info, err := util.GetFileInfo(fs, path)
	if err != nil {
		return nil, err
	}
	entry := &Entry{
		Path:    path,
		Inode:   info.Inode,
		Size:    info.Size,
		ModTime: info.ModTime,
	}
	if fingerprint, err := util.CalculateFileFingerprint(fs, path); err == nil {
		entry.Fingerprint = fingerprint
	}
	return entry, nil
}

func (e *Entry) stamped() bool {
	return e.ModTime != 0 || e.Size != 0 || e.Fingerprint != ""
}

// Set stores entry. An entry without file attributes is stamped with the
// current ones.
func (c *LogCache) Set(entry *Entry) error {
	if !entry.stamped() {
		stamp, err := NewEntry(c.fs, entry.Path)
		if err != nil {
			return err
		}
		entry.Inode = stamp.Inode
		entry.Size = stamp.Size
		entry.ModTime = stamp.ModTime
		entry.Fingerprint = stamp.Fingerprint
	}

	c.entries.Add(entry.Path, entry)
	return nil
}

func (c *LogCache) Clear() {
	c.entries.Purge()
}

func (c *LogCache) Len() int {
	return c.entries.Len()
}

// Stats returns the hit and miss counters since creation.
func (c *LogCache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}
