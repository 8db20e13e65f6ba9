package cache

import (
	"fmt"
	"sync"
)

// RenderFunc produces display text for a chapter with a highlight
// range applied.
type RenderFunc func(chapterIndex, highlightStart, highlightLength int) string

// Display memoizes rendered chapter text. Entries are keyed by chapter
// index plus highlight signature, and the whole cache is invalidated
// whenever the chapter index changes: stale renders of a chapter the
// reader left are worthless, and dropping them keeps the cache tiny.
type Display struct {
	mu          sync.Mutex
	lru         *Memory
	render      RenderFunc
	lastChapter int
	haveChapter bool
}

// NewDisplay creates a display cache with the given capacity in bytes.
func NewDisplay(capacity int64, render RenderFunc) (*Display, error) {
	lru, err := NewMemory(capacity)
	if err != nil {
		return nil, err
	}
	return &Display{lru: lru, render: render}, nil
}

// Text returns the rendered display text for the chapter and highlight
// signature, rendering on a miss.
func (d *Display) Text(chapterIndex, highlightStart, highlightLength int) string {
	d.mu.Lock()
	if d.haveChapter && chapterIndex != d.lastChapter {
		d.lru.Clear()
	}
	d.lastChapter = chapterIndex
	d.haveChapter = true
	d.mu.Unlock()

	key := displayKey(chapterIndex, highlightStart, highlightLength)
	if cached, ok := d.lru.Get(key); ok {
		return string(cached)
	}

	text := d.render(chapterIndex, highlightStart, highlightLength)
	// Oversized renders are served uncached.
	_ = d.lru.Put(key, []byte(text))
	return text
}

// Stats exposes the underlying cache metrics.
func (d *Display) Stats() Stats {
	return d.lru.Stats()
}

func displayKey(chapter, start, length int) string {
	return fmt.Sprintf("%d:%d:%d", chapter, start, length)
}
