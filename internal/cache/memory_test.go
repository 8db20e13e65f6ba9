package cache

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"testing"
)

// TestMemoryPutGet tests basic storage and retrieval.
func TestMemoryPutGet(t *testing.T) {
	c, err := NewMemory(1024)
	if err != nil {
		t.Fatalf("NewMemory() error = %v", err)
	}

	if _, ok := c.Get("missing"); ok {
		t.Error("Get() on empty cache reported a hit")
	}

	if err := c.Put("a", []byte("hello")); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	got, ok := c.Get("a")
	if !ok {
		t.Fatal("Get() after Put reported a miss")
	}
	if !bytes.Equal(got, []byte("hello")) {
		t.Errorf("Get() = %q, want %q", got, "hello")
	}
	if c.Len() != 1 {
		t.Errorf("Len() = %d, want 1", c.Len())
	}
}

// TestMemoryUpdate verifies updating a key replaces the value and
// adjusts the accounted size.
func TestMemoryUpdate(t *testing.T) {
	c, err := NewMemory(1024)
	if err != nil {
		t.Fatalf("NewMemory() error = %v", err)
	}

	if err := c.Put("k", []byte("short")); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if err := c.Put("k", []byte("a longer value")); err != nil {
		t.Fatalf("Put() update error = %v", err)
	}

	got, _ := c.Get("k")
	if !bytes.Equal(got, []byte("a longer value")) {
		t.Errorf("Get() = %q after update", got)
	}
	if c.Len() != 1 {
		t.Errorf("Len() = %d after update, want 1", c.Len())
	}
	if stats := c.Stats(); stats.Size != int64(len("a longer value")) {
		t.Errorf("Stats().Size = %d, want %d", stats.Size, len("a longer value"))
	}
}

// TestMemoryEviction verifies least recently used entries are evicted
// when the capacity is exceeded.
func TestMemoryEviction(t *testing.T) {
	c, err := NewMemory(30)
	if err != nil {
		t.Fatalf("NewMemory() error = %v", err)
	}

	// Three 10-byte entries fill the cache exactly.
	for _, key := range []string{"a", "b", "c"} {
		if err := c.Put(key, []byte(strings.Repeat(key, 10))); err != nil {
			t.Fatalf("Put(%q) error = %v", key, err)
		}
	}

	// Touch "a" so "b" becomes the oldest.
	if _, ok := c.Get("a"); !ok {
		t.Fatal("Get(a) reported a miss")
	}

	if err := c.Put("d", []byte(strings.Repeat("d", 10))); err != nil {
		t.Fatalf("Put(d) error = %v", err)
	}

	if _, ok := c.Get("b"); ok {
		t.Error("least recently used entry b survived eviction")
	}
	for _, key := range []string{"a", "c", "d"} {
		if _, ok := c.Get(key); !ok {
			t.Errorf("entry %q was evicted, want kept", key)
		}
	}
	if stats := c.Stats(); stats.Evictions != 1 {
		t.Errorf("Stats().Evictions = %d, want 1", stats.Evictions)
	}
}

// TestMemoryItemTooLarge verifies oversized items are rejected.
func TestMemoryItemTooLarge(t *testing.T) {
	c, err := NewMemory(10)
	if err != nil {
		t.Fatalf("NewMemory() error = %v", err)
	}
	err = c.Put("big", []byte(strings.Repeat("x", 100)))
	if !errors.Is(err, ErrItemTooLarge) {
		t.Errorf("Put() oversized error = %v, want ErrItemTooLarge", err)
	}
	if c.Len() != 0 {
		t.Errorf("Len() = %d after rejected put, want 0", c.Len())
	}
}

// TestMemoryCompression verifies values above the threshold survive
// the compressed round trip.
func TestMemoryCompression(t *testing.T) {
	c, err := NewMemory(1 << 20)
	if err != nil {
		t.Fatalf("NewMemory() error = %v", err)
	}

	// Well above compressThreshold and highly compressible, the way
	// rendered chapter text is.
	var b strings.Builder
	for i := 0; i < 500; i++ {
		fmt.Fprintf(&b, "line %d of the chapter being read aloud\n", i)
	}
	value := []byte(b.String())
	if len(value) <= compressThreshold {
		t.Fatalf("test value %d bytes, need > %d", len(value), compressThreshold)
	}

	if err := c.Put("chapter", value); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	got, ok := c.Get("chapter")
	if !ok {
		t.Fatal("Get() reported a miss")
	}
	if !bytes.Equal(got, value) {
		t.Error("compressed round trip corrupted the value")
	}
	// The accounted size is the stored (compressed) size.
	if stats := c.Stats(); stats.Size >= int64(len(value)) {
		t.Errorf("Stats().Size = %d, want below raw size %d", stats.Size, len(value))
	}
}

// TestMemoryDeleteAndClear tests removal operations.
func TestMemoryDeleteAndClear(t *testing.T) {
	c, err := NewMemory(1024)
	if err != nil {
		t.Fatalf("NewMemory() error = %v", err)
	}

	c.Put("a", []byte("1"))
	c.Put("b", []byte("2"))

	c.Delete("a")
	c.Delete("a") // deleting a missing key is fine
	if _, ok := c.Get("a"); ok {
		t.Error("deleted entry still present")
	}

	c.Clear()
	if c.Len() != 0 {
		t.Errorf("Len() = %d after Clear, want 0", c.Len())
	}
	if stats := c.Stats(); stats.Size != 0 {
		t.Errorf("Stats().Size = %d after Clear, want 0", stats.Size)
	}
}

// TestMemoryStats tests hit and miss accounting.
func TestMemoryStats(t *testing.T) {
	c, err := NewMemory(1024)
	if err != nil {
		t.Fatalf("NewMemory() error = %v", err)
	}

	c.Put("a", []byte("1"))
	c.Get("a")
	c.Get("a")
	c.Get("missing")

	stats := c.Stats()
	if stats.Hits != 2 {
		t.Errorf("Stats().Hits = %d, want 2", stats.Hits)
	}
	if stats.Misses != 1 {
		t.Errorf("Stats().Misses = %d, want 1", stats.Misses)
	}
	if got := stats.HitRate; got < 0.66 || got > 0.67 {
		t.Errorf("Stats().HitRate = %v, want about 2/3", got)
	}
	if stats.ItemCount != 1 {
		t.Errorf("Stats().ItemCount = %d, want 1", stats.ItemCount)
	}
	if stats.Capacity != 1024 {
		t.Errorf("Stats().Capacity = %d, want 1024", stats.Capacity)
	}
}
