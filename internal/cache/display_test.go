package cache

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
)

// TestDisplayMemoizes verifies repeated lookups with the same
// signature render only once.
func TestDisplayMemoizes(t *testing.T) {
	var renders int32
	d, err := NewDisplay(1<<16, func(chapter, hlStart, hlLen int) string {
		atomic.AddInt32(&renders, 1)
		return fmt.Sprintf("chapter %d highlight %d+%d", chapter, hlStart, hlLen)
	})
	if err != nil {
		t.Fatalf("NewDisplay() error = %v", err)
	}

	first := d.Text(0, 10, 5)
	second := d.Text(0, 10, 5)
	if first != second {
		t.Errorf("cached render %q differs from original %q", second, first)
	}
	if got := atomic.LoadInt32(&renders); got != 1 {
		t.Errorf("render count = %d, want 1", got)
	}

	// A different highlight signature is a different entry.
	d.Text(0, 20, 5)
	if got := atomic.LoadInt32(&renders); got != 2 {
		t.Errorf("render count = %d after new signature, want 2", got)
	}
}

// TestDisplayInvalidatesOnChapterChange verifies moving to another
// chapter drops all cached renders of the previous one.
func TestDisplayInvalidatesOnChapterChange(t *testing.T) {
	var renders int32
	d, err := NewDisplay(1<<16, func(chapter, hlStart, hlLen int) string {
		atomic.AddInt32(&renders, 1)
		return fmt.Sprintf("c%d", chapter)
	})
	if err != nil {
		t.Fatalf("NewDisplay() error = %v", err)
	}

	d.Text(0, 0, 0)
	d.Text(1, 0, 0) // chapter change clears the cache
	d.Text(0, 0, 0) // back again, must re-render

	if got := atomic.LoadInt32(&renders); got != 3 {
		t.Errorf("render count = %d, want 3 (invalidation on each change)", got)
	}
	if stats := d.Stats(); stats.ItemCount != 1 {
		t.Errorf("ItemCount = %d after invalidation, want 1", stats.ItemCount)
	}
}

// TestDisplayConcurrent hammers the display cache from several
// goroutines to surface races under the race detector.
func TestDisplayConcurrent(t *testing.T) {
	d, err := NewDisplay(1<<16, func(chapter, hlStart, hlLen int) string {
		return fmt.Sprintf("c%d h%d", chapter, hlStart)
	})
	if err != nil {
		t.Fatalf("NewDisplay() error = %v", err)
	}

	var wg sync.WaitGroup
	for g := 0; g < 4; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				want := fmt.Sprintf("c%d h%d", g%2, i%10)
				if got := d.Text(g%2, i%10, 0); got != want {
					t.Errorf("Text() = %q, want %q", got, want)
					return
				}
			}
		}(g)
	}
	wg.Wait()
}
