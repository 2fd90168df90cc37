package analyzer

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/penwyp/go-cfs-perfmon/internal/data/cache"
	"github.com/penwyp/go-cfs-perfmon/internal/data/parser"
	"github.com/penwyp/go-cfs-perfmon/internal/util"
)

// CacheStats holds statistics for decoded-log cache usage during one load
type CacheStats struct {
	totalFiles  int64
	cacheHits   int64
	cacheMisses int64
	mu          sync.Mutex
	missDetails []MissDetail
}

// MissDetail records details of a cache miss
type MissDetail struct {
	FilePath string
	Reason   cache.CacheMissReason
}

// NewCacheStats creates a new CacheStats instance
func NewCacheStats() *CacheStats {
	return &CacheStats{
		missDetails: make([]MissDetail, 0),
	}
}

// Record counts one decoded file.
func (cs *CacheStats) Record(result parser.ParseResult) {
	atomic.AddInt64(&cs.totalFiles, 1)
	if result.CacheHit {
		atomic.AddInt64(&cs.cacheHits, 1)
		return
	}

	atomic.AddInt64(&cs.cacheMisses, 1)
	cs.mu.Lock()
	cs.missDetails = append(cs.missDetails, MissDetail{
		FilePath: result.File,
		Reason:   result.MissReason,
	})
	cs.mu.Unlock()
}

// GetStats returns the current statistics and hit rate
func (cs *CacheStats) GetStats() (total, hits, misses int64, hitRate float64) {
	total = atomic.LoadInt64(&cs.totalFiles)
	hits = atomic.LoadInt64(&cs.cacheHits)
	misses = atomic.LoadInt64(&cs.cacheMisses)

	if total > 0 {
		hitRate = float64(hits) / float64(total) * 100
	}

	return
}

// MissReasons counts misses per reason
func (cs *CacheStats) MissReasons() map[cache.CacheMissReason]int {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	counts := make(map[cache.CacheMissReason]int)
	for _, detail := range cs.missDetails {
		counts[detail.Reason]++
	}
	return counts
}

// PrintFinalStats logs the cache statistics and a summary of miss reasons
func (cs *CacheStats) PrintFinalStats() {
	total, hits, misses, hitRate := cs.GetStats()

	util.LogDebug(fmt.Sprintf("Cache statistics: total files %d, hit rate %.1f%% (%d hits/%d misses)",
		total, hitRate, hits, misses))

	if misses > 0 {
		for reason, count := range cs.MissReasons() {
			util.LogDebug(fmt.Sprintf("  %s: %d files", reason, count))
		}
	}
}
