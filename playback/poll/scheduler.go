// Package poll provides periodic re-derivation of displayable playback
// state for consumers that cannot subscribe to push updates.
package poll

import (
	"context"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/lectorapp/lector/playback"
)

// Source is the live playback state the scheduler derives from. A
// *playback.Session satisfies it.
type Source interface {
	Snapshot() playback.Snapshot
	Chapters() []playback.Chapter
}

// Event is published when the derived chapter index changes.
type Event struct {
	Index           int    // New chapter index, NoChapter when unsegmented
	Title           string // Chapter title, "" when unsegmented
	Progress        float64
	HighlightStart  int
	HighlightLength int
}

// Scheduler re-derives the current chapter index on a fixed interval
// and publishes a change event only when the derived index differs
// from the last published value (edge-triggered, not level-triggered),
// so consumers can animate chapter transitions instead of re-rendering
// every tick. Its lifetime is scoped to the session: Stop it (or
// cancel the context passed to Start) when the session ends so no tick
// references a torn-down session.
type Scheduler struct {
	source   Source
	interval time.Duration
	logger   *log.Logger

	mu            sync.Mutex
	onChange      []func(Event)
	lastPublished int
	running       bool
	stopCh        chan struct{}
}

// NewScheduler creates a scheduler polling at the given interval. A
// nil logger falls back to the default logger.
func NewScheduler(source Source, interval time.Duration, logger *log.Logger) *Scheduler {
	if logger == nil {
		logger = log.Default()
	}
	return &Scheduler{
		source:        source,
		interval:      interval,
		logger:        logger.WithPrefix("poll"),
		lastPublished: playback.NoChapter,
	}
}

// OnChapterChange registers a callback for chapter change events.
func (s *Scheduler) OnChapterChange(fn func(Event)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onChange = append(s.onChange, fn)
}

// Start begins polling. The baseline index is taken from the current
// snapshot so only genuine changes publish. Starting a running
// scheduler is a no-op.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}
	s.running = true
	s.stopCh = make(chan struct{})
	s.lastPublished = s.source.Snapshot().ChapterIndex

	go s.loop(ctx, s.stopCh)
}

// Stop halts polling. Safe to call repeatedly.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}
	s.running = false
	close(s.stopCh)
}

func (s *Scheduler) loop(ctx context.Context, stopCh chan struct{}) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.Stop()
			return
		case <-stopCh:
			return
		case <-ticker.C:
			s.tick()
		}
	}
}

// tick re-derives the chapter index from a snapshot. Ticks never block
// on I/O; deriving is a pure read of an immutable snapshot.
func (s *Scheduler) tick() {
	snap := s.source.Snapshot()

	s.mu.Lock()
	if snap.ChapterIndex == s.lastPublished {
		s.mu.Unlock()
		return
	}
	s.lastPublished = snap.ChapterIndex
	callbacks := make([]func(Event), len(s.onChange))
	copy(callbacks, s.onChange)
	s.mu.Unlock()

	ev := Event{
		Index:           snap.ChapterIndex,
		Progress:        snap.GlobalPosition,
		HighlightStart:  snap.HighlightStart,
		HighlightLength: snap.HighlightLength,
	}
	if chapters := s.source.Chapters(); snap.ChapterIndex >= 0 && snap.ChapterIndex < len(chapters) {
		ev.Title = chapters[snap.ChapterIndex].Title
	}

	s.logger.Debug("chapter changed", "index", ev.Index, "title", ev.Title)
	for _, fn := range callbacks {
		if fn != nil {
			fn(ev)
		}
	}
}
