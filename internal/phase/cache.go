package phase

import (
	"container/list"
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"math"
	"slices"
	"sync"
)

// CachedSegmenter wraps a Segmenter with an in-memory LRU cache keyed by the
// series and options.
type CachedSegmenter struct {
	inner   Segmenter
	cache   *lruCache
	observe func(hit bool)
}

// NewCachedSegmenter creates a cache decorator around a segmenter. observe,
// if non-nil, is called on every lookup.
func NewCachedSegmenter(inner Segmenter, maxEntries int, observe func(hit bool)) *CachedSegmenter {
	if observe == nil {
		observe = func(bool) {}
	}
	return &CachedSegmenter{
		inner:   inner,
		cache:   newLRUCache(maxEntries),
		observe: observe,
	}
}

// Segment implements Segmenter.
func (c *CachedSegmenter) Segment(ctx context.Context, s Series, opts Options) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	key := cacheKey(s, opts)
	if r, ok := c.cache.get(key); ok {
		c.observe(true)
		return cloneResult(r), nil
	}
	c.observe(false)

	r, err := c.inner.Segment(ctx, s, opts)
	if err != nil {
		return r, err
	}
	// Failures are not cached so a cancelled call can be retried.
	c.cache.put(key, cloneResult(r))
	return r, nil
}

// Len returns the number of cached results.
func (c *CachedSegmenter) Len() int {
	return c.cache.len()
}

func cacheKey(s Series, opts Options) string {
	h := sha256.New()
	var buf [8]byte
	for _, v := range s.Values {
		binary.LittleEndian.PutUint64(buf[:], math.Float64bits(v))
		h.Write(buf[:])
	}
	h.Write([]byte{0})
	for _, t := range s.Times {
		binary.LittleEndian.PutUint64(buf[:], uint64(t.UnixNano()))
		h.Write(buf[:])
	}
	o, _ := json.Marshal(opts)
	h.Write(o)
	return hex.EncodeToString(h.Sum(nil))
}

func cloneResult(r Result) Result {
	return Result{
		Periods: slices.Clone(r.Periods),
		Processed: Processed{
			Filtered:   slices.Clone(r.Processed.Filtered),
			Smoothed:   slices.Clone(r.Processed.Smoothed),
			Smoothed2:  slices.Clone(r.Processed.Smoothed2),
			Derivative: slices.Clone(r.Processed.Derivative),
		},
	}
}

// lruCache is a thread-safe LRU cache of segmentation results.
type lruCache struct {
	maxEntries int
	mu         sync.Mutex
	entries    map[string]*list.Element
	order      *list.List // front is most recently used
}

type entry struct {
	key   string
	value Result
}

func newLRUCache(maxEntries int) *lruCache {
	return &lruCache{
		maxEntries: maxEntries,
		entries:    make(map[string]*list.Element),
		order:      list.New(),
	}
}

func (c *lruCache) get(key string) (Result, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.entries[key]
	if !ok {
		return Result{}, false
	}
	c.order.MoveToFront(el)
	return el.Value.(*entry).value, true
}

func (c *lruCache) put(key string, value Result) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.maxEntries <= 0 {
		return
	}
	if el, ok := c.entries[key]; ok {
		el.Value.(*entry).value = value
		c.order.MoveToFront(el)
		return
	}

	c.entries[key] = c.order.PushFront(&entry{key: key, value: value})
	if c.order.Len() > c.maxEntries {
		oldest := c.order.Back()
		c.order.Remove(oldest)
		delete(c.entries, oldest.Value.(*entry).key)
	}
}

func (c *lruCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}
