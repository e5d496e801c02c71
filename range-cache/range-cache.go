// Package rangecache caches byte ranges fetched from a remote data source,
// so overlapping reads of index tables and payloads don't re-fetch the same
// regions.
package rangecache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"k8s.io/klog/v2"

	"github.com/open-mv-sandbox/daicon-go/metrics"
)

// Range defines a half-open interval [start, end).
type Range [2]int64

// contains returns true if the given range r2 is entirely contained within r.
func (r Range) contains(r2 Range) bool {
	return r[0] <= r2[0] && r[1] >= r2[1]
}

// isValidFor checks if the range is valid given a total size.
func (r Range) isValidFor(size int64) bool {
	return r[0] >= 0 && r[1] <= size && r[0] <= r[1]
}

type entry struct {
	rng      Range
	data     []byte
	lastRead time.Time
}

// RangeCache manages cached byte ranges over a fetch-through backend.
type RangeCache struct {
	mu sync.Mutex
	// size is the total size of the remote data source.
	size int64
	name string

	// maxMemorySize is the maximum allowed memory usage for the cache;
	// zero means DefaultMaxMemorySize.
	maxMemorySize int64
	occupiedSpace int64

	fetcher func(p []byte, off int64) (n int, err error)

	entries []*entry
}

// DefaultMaxMemorySize bounds cache memory when no explicit limit is given.
const DefaultMaxMemorySize = int64(64 << 20)

// New creates a RangeCache over a fetcher, typically a remote ReadAt.
func New(size int64, name string, fetcher func(p []byte, off int64) (n int, err error), maxMemorySize int64) *RangeCache {
	if fetcher == nil {
		panic("fetcher must not be nil")
	}
	if maxMemorySize <= 0 {
		maxMemorySize = DefaultMaxMemorySize
	}
	return &RangeCache{
		size:          size,
		name:          name,
		maxMemorySize: maxMemorySize,
		fetcher:       fetcher,
	}
}

// Size returns the total size of the data source.
func (rc *RangeCache) Size() int64 {
	return rc.size
}

// OccupiedSpace returns the current memory occupied by the cache.
func (rc *RangeCache) OccupiedSpace() int64 {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	return rc.occupiedSpace
}

// GetRange returns the bytes in [start, start+ln), fetching them from the
// backend if no cached range covers them.
func (rc *RangeCache) GetRange(ctx context.Context, start, ln int64) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	want := Range{start, start + ln}
	if !want.isValidFor(rc.size) {
		return nil, fmt.Errorf("range [%d, %d) is invalid for size %d", want[0], want[1], rc.size)
	}

	rc.mu.Lock()
	defer rc.mu.Unlock()

	for _, e := range rc.entries {
		if e.rng.contains(want) {
			metrics.RangeCacheHitsTotal.WithLabelValues("hit").Inc()
			e.lastRead = time.Now()
			offset := want[0] - e.rng[0]
			return clone(e.data[offset : offset+ln]), nil
		}
	}
	metrics.RangeCacheHitsTotal.WithLabelValues("miss").Inc()

	klog.V(3).Infof("%s: fetching range [%d, %d)", rc.name, want[0], want[1])
	data := make([]byte, ln)
	if _, err := rc.fetcher(data, start); err != nil {
		return nil, fmt.Errorf("failed to fetch range [%d, %d): %w", want[0], want[1], err)
	}
	rc.put(want, data)
	return clone(data), nil
}

// SetRange seeds the cache with bytes the caller already has.
func (rc *RangeCache) SetRange(start, ln int64, data []byte) error {
	rng := Range{start, start + ln}
	if !rng.isValidFor(rc.size) {
		return fmt.Errorf("range [%d, %d) is invalid for size %d", rng[0], rng[1], rc.size)
	}
	if int64(len(data)) != ln {
		return fmt.Errorf("data length %d does not match range length %d", len(data), ln)
	}
	rc.mu.Lock()
	defer rc.mu.Unlock()
	rc.put(rng, clone(data))
	return nil
}

// put stores a fetched range, evicting least-recently-read entries until the
// memory budget holds. Caller must hold mu.
func (rc *RangeCache) put(rng Range, data []byte) {
	rc.entries = append(rc.entries, &entry{rng: rng, data: data, lastRead: time.Now()})
	rc.occupiedSpace += int64(len(data))

	for rc.occupiedSpace > rc.maxMemorySize && len(rc.entries) > 1 {
		oldest := 0
		for i, e := range rc.entries {
			if e.lastRead.Before(rc.entries[oldest].lastRead) {
				oldest = i
			}
		}
		evicted := rc.entries[oldest]
		rc.entries = append(rc.entries[:oldest], rc.entries[oldest+1:]...)
		rc.occupiedSpace -= int64(len(evicted.data))
		klog.V(3).Infof("%s: evicted range [%d, %d)", rc.name, evicted.rng[0], evicted.rng[1])
	}
}

// Close clears the cache.
func (rc *RangeCache) Close() error {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	rc.entries = nil
	rc.occupiedSpace = 0
	return nil
}

func clone(b []byte) []byte {
	return append([]byte(nil), b...)
}
