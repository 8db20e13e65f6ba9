// Package cache provides a small in-memory cache for rendered display
// text, keyed by chapter index and highlight signature.
package cache

import (
	"container/list"
	"errors"
	"sync"

	"github.com/klauspost/compress/zstd"
)

// ErrItemTooLarge is returned when an item exceeds the cache capacity.
var ErrItemTooLarge = errors.New("item too large for cache")

// compressThreshold is the value size above which entries are stored
// zstd-compressed. Chapter text for long documents easily reaches tens
// of kilobytes; short entries are not worth the round trip.
const compressThreshold = 4 * 1024

// Stats holds cache performance metrics.
type Stats struct {
	Capacity  int64
	Size      int64
	ItemCount int64
	Hits      int64
	Misses    int64
	Evictions int64
	HitRate   float64
}

// Memory is an LRU cache with a byte-size capacity. Values above the
// compression threshold are stored zstd-compressed.
type Memory struct {
	capacity int64
	size     int64

	items    map[string]*list.Element
	eviction *list.List

	encoder *zstd.Encoder
	decoder *zstd.Decoder

	mu    sync.Mutex
	stats Stats
}

type entry struct {
	key        string
	value      []byte
	size       int64
	compressed bool
}

// NewMemory creates a cache with the given capacity in bytes.
func NewMemory(capacity int64) (*Memory, error) {
	encoder, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, err
	}
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, err
	}
	return &Memory{
		capacity: capacity,
		items:    make(map[string]*list.Element),
		eviction: list.New(),
		encoder:  encoder,
		decoder:  decoder,
		stats:    Stats{Capacity: capacity},
	}, nil
}

// Get retrieves a value from the cache.
func (c *Memory) Get(key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.items[key]
	if !ok {
		c.stats.Misses++
		return nil, false
	}
	c.eviction.MoveToFront(elem)
	c.stats.Hits++

	e := elem.Value.(*entry)
	if !e.compressed {
		return e.value, true
	}
	out, err := c.decoder.DecodeAll(e.value, nil)
	if err != nil {
		// Corrupt entry, drop it.
		c.removeElement(elem)
		return nil, false
	}
	return out, true
}

// Put stores a value, evicting least recently used entries as needed.
func (c *Memory) Put(key string, value []byte) error {
	stored := value
	compressed := false
	if len(value) > compressThreshold {
		stored = c.encoder.EncodeAll(value, nil)
		compressed = true
	}
	size := int64(len(stored))

	c.mu.Lock()
	defer c.mu.Unlock()

	if size > c.capacity {
		return ErrItemTooLarge
	}

	if elem, ok := c.items[key]; ok {
		e := elem.Value.(*entry)
		c.size += size - e.size
		e.value = stored
		e.size = size
		e.compressed = compressed
		c.eviction.MoveToFront(elem)
		c.stats.Size = c.size
		return nil
	}

	for c.size+size > c.capacity && c.eviction.Len() > 0 {
		c.evictOldest()
	}

	elem := c.eviction.PushFront(&entry{
		key:        key,
		value:      stored,
		size:       size,
		compressed: compressed,
	})
	c.items[key] = elem
	c.size += size
	c.stats.Size = c.size
	return nil
}

// Delete removes an entry.
func (c *Memory) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if elem, ok := c.items[key]; ok {
		c.removeElement(elem)
	}
}

// Clear removes all entries.
func (c *Memory) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = make(map[string]*list.Element)
	c.eviction.Init()
	c.size = 0
	c.stats.Size = 0
}

// Len returns the number of cached entries.
func (c *Memory) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Stats returns a copy of the cache metrics.
func (c *Memory) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	stats := c.stats
	stats.ItemCount = int64(len(c.items))
	if total := stats.Hits + stats.Misses; total > 0 {
		stats.HitRate = float64(stats.Hits) / float64(total)
	}
	return stats
}

func (c *Memory) evictOldest() {
	if elem := c.eviction.Back(); elem != nil {
		c.removeElement(elem)
		c.stats.Evictions++
	}
}

func (c *Memory) removeElement(elem *list.Element) {
	c.eviction.Remove(elem)
	e := elem.Value.(*entry)
	delete(c.items, e.key)
	c.size -= e.size
	c.stats.Size = c.size
}
