package playback

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/time/rate"
)

// Session owns the playback state for one reading session. It is the
// single writer: every position mutation (seek, jump, tap, skip,
// autoplay advancement, highlight callbacks) is serialized through its
// mutex, and all readers receive immutable snapshots. A session is
// created when a document begins playback and closed when the reading
// session ends.
type Session struct {
	mu      sync.Mutex
	machine *StateMachine

	engine    SpeechEngine
	loader    Loader
	segmenter Segmenter
	cfg       Config
	logger    *log.Logger

	// Document state, immutable once loaded
	doc        Document
	text       []rune
	chapters   []Chapter
	paragraphs []Paragraph
	mapper     *Mapper
	segmented  bool
	loaded     bool
	loading    bool

	// Playback position
	pos        float64
	chapterIdx int
	playing    bool
	hlStart    int
	hlLen      int

	// Deferred-resume debounce: a seek while a previous seek's resume
	// is pending cancels the pending resume rather than stacking two.
	speakSeq    int
	resumeTimer *time.Timer

	subs   []chan Snapshot
	closed bool

	warnRange rate.Sometimes
	warnClamp rate.Sometimes
}

// NewSession creates a session around the given engine, loader, and
// segmenter. A nil logger falls back to the default logger.
func NewSession(engine SpeechEngine, loader Loader, segmenter Segmenter, cfg Config, logger *log.Logger) *Session {
	if logger == nil {
		logger = log.Default()
	}
	return &Session{
		machine:    NewStateMachine(),
		engine:     engine,
		loader:     loader,
		segmenter:  segmenter,
		cfg:        cfg,
		logger:     logger.WithPrefix("playback"),
		chapterIdx: NoChapter,
		warnRange:  rate.Sometimes{First: 3, Interval: 5 * time.Second},
		warnClamp:  rate.Sometimes{First: 3, Interval: 5 * time.Second},
	}
}

// LoadDocument loads a document through the session's loader and
// segments its text. It blocks until loading completes, the context is
// canceled, or the attempt budget (LoadTimeout at LoadPollInterval
// polls) is exhausted. Progress is forwarded to onProgress when
// non-nil. IsDocumentLoaded only reports true after a successful load.
func (s *Session) LoadDocument(ctx context.Context, doc Document, onProgress ProgressFunc) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	if s.loading {
		s.mu.Unlock()
		return ErrAlreadyLoading
	}
	// A load while playing tears the old session state down first.
	if s.playing {
		s.stopSpeechLocked()
	}
	if cur := s.machine.Current(); cur != StateIdle && cur != StateLoading {
		s.machine.Transition(StateIdle)
	}
	if !s.machine.Transition(StateLoading) {
		s.mu.Unlock()
		return fmt.Errorf("%w: cannot load from %s", ErrInvalidState, s.machine.Current())
	}
	s.loading = true
	s.loaded = false
	s.publishLocked()
	s.mu.Unlock()

	lctx, cancel := context.WithTimeout(ctx, s.cfg.LoadTimeout)
	defer cancel()

	progress := func(p float64, msg string) {
		s.logger.Debug("load progress", "doc", doc.ID, "progress", p, "message", msg)
		if onProgress != nil {
			onProgress(p, msg)
		}
	}

	type result struct {
		text string
		err  error
	}
	resCh := make(chan result, 1)
	go func() {
		text, err := s.loader.Load(lctx, doc, progress)
		resCh <- result{text, err}
	}()

	ticker := time.NewTicker(s.cfg.LoadPollInterval)
	defer ticker.Stop()

	attempts := 0
	for {
		select {
		case r := <-resCh:
			if r.err != nil {
				s.failLoad()
				return fmt.Errorf("loading document %q: %w", doc.ID, r.err)
			}
			s.finishLoad(doc, r.text)
			return nil
		case <-ticker.C:
			attempts++
		case <-lctx.Done():
			s.failLoad()
			return fmt.Errorf("%w (%d attempts)", ErrLoadTimeout, attempts)
		}
	}
}

func (s *Session) finishLoad(doc Document, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.doc = doc
	s.text = []rune(text)
	s.resegmentLocked()
	s.segmented = true

	if len(s.chapters) > 0 {
		s.chapterIdx = 0
		s.pos = s.mapper.PositionForChapterRatio(0, s.cfg.ChapterStartEpsilon)
	} else {
		// Unsegmented fallback: global-position-only navigation.
		s.logger.Info("no chapters found, using unsegmented navigation", "doc", doc.ID)
		s.chapterIdx = NoChapter
		s.pos = 0
	}
	s.hlStart, s.hlLen = 0, 0

	s.loading = false
	s.loaded = true
	s.machine.Transition(StateLoaded)
	s.publishLocked()
}

func (s *Session) failLoad() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading = false
	s.machine.Transition(StateIdle)
	s.publishLocked()
}

func (s *Session) resegmentLocked() {
	s.chapters, s.paragraphs = s.segmenter.Segment(string(s.text))
	s.mapper = NewMapper(s.chapters, len(s.text), s.cfg)
}

// Play starts playback from the current position, or resumes when
// paused.
func (s *Session) Play() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrSessionClosed
	}
	if !s.loaded {
		return ErrNoDocument
	}
	if !s.machine.CanPlay() {
		return fmt.Errorf("%w: cannot play from %s", ErrInvalidState, s.machine.Current())
	}

	if s.machine.Current() == StatePaused {
		if err := s.engine.Resume(); err != nil {
			return fmt.Errorf("resuming engine: %w", err)
		}
	} else {
		if err := s.engine.SetRate(s.cfg.Rate); err != nil {
			return fmt.Errorf("setting rate: %w", err)
		}
		if err := s.speakLocked(); err != nil {
			return fmt.Errorf("starting engine: %w", err)
		}
	}

	s.playing = true
	s.machine.Transition(StatePlaying)
	s.publishLocked()
	return nil
}

// Pause pauses playback. A pending deferred resume is canceled so the
// pause cannot be undone by an earlier seek.
func (s *Session) Pause() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrSessionClosed
	}
	if !s.machine.CanPause() {
		return fmt.Errorf("%w: cannot pause from %s", ErrInvalidState, s.machine.Current())
	}

	s.cancelPendingResumeLocked()
	if err := s.engine.Pause(); err != nil {
		return fmt.Errorf("pausing engine: %w", err)
	}
	s.playing = false
	s.machine.Transition(StatePaused)
	s.publishLocked()
	return nil
}

// Stop halts playback. The position is kept so the reader does not
// lose their place.
func (s *Session) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrSessionClosed
	}
	if !s.loaded {
		return ErrNoDocument
	}
	s.stopSpeechLocked()
	s.machine.Transition(StateLoaded)
	s.publishLocked()
	return nil
}

// SeekTo seeks within the current chapter. The ratio is interpreted as
// chapter-internal progress using the current chapter index, not
// recomputed over the whole document, so a seek unambiguously stays in
// the chapter the reader is looking at. A seek that would cross a
// chapter boundary is pulled back to the nearest safe interior point
// of the original chapter. Bad ratios (NaN, negative, >1) are clamped,
// never rejected.
func (s *Session) SeekTo(ratio float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || !s.loaded {
		s.warnNoopLocked("seek")
		return
	}
	if !s.machine.CanSeek() {
		s.warnNoopLocked("seek")
		return
	}

	prev := s.machine.Current()
	s.machine.Transition(StateSeeking)

	if s.chapterIdx == NoChapter {
		s.pos = clamp(ratio, 0, 1)
	} else {
		target := s.mapper.PositionForChapterRatio(s.chapterIdx, ratio)
		if s.mapper.ChapterIndexForPosition(target) != s.chapterIdx {
			// Crossing a boundary is invalid for a plain seek.
			s.warnClamp.Do(func() {
				s.logger.Warn("seek clamped to chapter interior",
					"chapter", s.chapterIdx, "ratio", ratio)
			})
			target = s.mapper.ClampIntoChapter(s.chapterIdx, target)
		}
		s.pos = target
	}

	s.machine.Transition(prev)
	if s.playing {
		s.scheduleResumeLocked()
	}
	s.publishLocked()
}

// JumpToChapter moves to the start of the given chapter. This and
// natural playback advancement are the only ways the chapter index
// changes. An out-of-range index is a logged no-op.
func (s *Session) JumpToChapter(i int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jumpToChapterLocked(i)
}

func (s *Session) jumpToChapterLocked(i int) {
	if s.closed || !s.loaded || s.mapper == nil || !s.mapper.ValidIndex(i) {
		s.warnRange.Do(func() {
			s.logger.Warn("jump to invalid chapter ignored", "index", i)
		})
		return
	}
	if !s.machine.CanSeek() {
		s.warnNoopLocked("jump")
		return
	}

	prev := s.machine.Current()
	s.machine.Transition(StateChapterTransition)

	s.chapterIdx = i
	s.pos = s.mapper.PositionForChapterRatio(i, s.cfg.ChapterStartEpsilon)
	s.hlStart, s.hlLen = 0, 0

	// Publish the new chapter's state before leaving the transient
	// state so observers see the transition.
	s.publishLocked()
	s.machine.Transition(prev)

	if s.playing {
		s.scheduleResumeLocked()
	}
	s.publishLocked()
}

// NextChapter jumps to the following chapter; a no-op at the last one.
func (s *Session) NextChapter() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.chapterIdx == NoChapter || s.mapper == nil || s.chapterIdx+1 >= s.mapper.ChapterCount() {
		return
	}
	s.jumpToChapterLocked(s.chapterIdx + 1)
}

// PreviousChapter jumps to the preceding chapter; a no-op at the first.
func (s *Session) PreviousChapter() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.chapterIdx == NoChapter || s.chapterIdx-1 < 0 {
		return
	}
	s.jumpToChapterLocked(s.chapterIdx - 1)
}

// TapToSeek resolves a tap gesture on a chapter's progress bar. The
// tap ratio is clamped into the safe interior range, and the chapter
// index is re-asserted at apply time: an autoplay tick that moved the
// index between tap registration and resolution does not redirect the
// tap. When playing, the engine is paused, the position applied, and
// speech resumed after a short delay so the engine reinitializes
// cleanly; when not playing, playback starts directly from the tapped
// position.
func (s *Session) TapToSeek(chapter int, tapRatio float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || !s.loaded {
		s.warnNoopLocked("tap")
		return
	}
	if s.mapper == nil || !s.mapper.ValidIndex(chapter) {
		s.warnRange.Do(func() {
			s.logger.Warn("tap on invalid chapter ignored", "index", chapter)
		})
		return
	}
	if !s.machine.CanSeek() {
		s.warnNoopLocked("tap")
		return
	}

	prev := s.machine.Current()
	if chapter != s.chapterIdx {
		s.machine.Transition(StateChapterTransition)
		s.chapterIdx = chapter
		s.hlStart, s.hlLen = 0, 0
		s.publishLocked()
	} else {
		s.machine.Transition(StateSeeking)
	}

	s.pos = s.mapper.PositionForChapterRatio(chapter, tapRatio)
	s.machine.Transition(prev)

	if s.playing {
		if err := s.engine.Pause(); err != nil {
			s.logger.Error("pausing for tap", "err", err)
		}
		s.scheduleResumeLocked()
	} else {
		if err := s.speakLocked(); err != nil {
			s.logger.Error("starting playback from tap", "err", err)
		} else {
			s.playing = true
			s.machine.Transition(StatePlaying)
		}
	}
	s.publishLocked()
}

// SkipForward shifts the position forward by a fixed wall-clock delta
// of estimated reading, so skips feel equally long in every chapter.
func (s *Session) SkipForward() {
	s.skipBy(s.cfg.SkipOffsetDelta())
}

// SkipBackward shifts the position backward by the same fixed delta.
func (s *Session) SkipBackward() {
	s.skipBy(-s.cfg.SkipOffsetDelta())
}

func (s *Session) skipBy(deltaRunes int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || !s.loaded || len(s.text) == 0 {
		s.warnNoopLocked("skip")
		return
	}
	if !s.machine.CanSeek() {
		s.warnNoopLocked("skip")
		return
	}

	offset := s.mapper.OffsetForPosition(s.pos) + deltaRunes
	if offset < 0 {
		offset = 0
	}
	if offset >= len(s.text) {
		offset = len(s.text) - 1
	}

	newIdx := s.mapper.ChapterIndexForOffset(offset)
	newPos := s.mapper.PositionForOffset(offset)

	prev := s.machine.Current()
	if newIdx != s.chapterIdx {
		// Crossing a boundary by skipping is treated like natural
		// advancement and published as a chapter transition.
		s.machine.Transition(StateChapterTransition)
		s.chapterIdx = newIdx
		s.hlStart, s.hlLen = 0, 0
		s.publishLocked()
	} else {
		s.machine.Transition(StateSeeking)
	}

	if newIdx != NoChapter {
		newPos = s.mapper.ClampIntoChapter(newIdx, newPos)
	}
	s.pos = newPos
	s.machine.Transition(prev)

	if s.playing {
		s.scheduleResumeLocked()
	}
	s.publishLocked()
}

// ApplyHighlight applies a highlight callback from the speech engine.
// chapterTag is the chapter index that was current when the utterance
// started; a callback whose tag no longer matches the current index is
// stale and discarded. offset is a global rune offset. Crossing the
// current chapter's end is natural playback advancement into the next
// chapter.
func (s *Session) ApplyHighlight(chapterTag, offset, length int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || !s.loaded {
		return
	}
	if chapterTag != s.chapterIdx {
		s.logger.Debug("discarding stale highlight",
			"tag", chapterTag, "current", s.chapterIdx)
		return
	}
	if length < 0 {
		length = 0
	}

	if s.chapterIdx == NoChapter {
		s.hlStart = offset
		s.hlLen = length
		s.pos = s.mapper.PositionForOffset(offset)
		s.publishLocked()
		return
	}

	ch := s.chapters[s.chapterIdx]
	if offset+length >= ch.EndIndex && s.chapterIdx+1 < len(s.chapters) {
		// Natural advancement past the chapter's end.
		prev := s.machine.Current()
		s.machine.Transition(StateChapterTransition)
		s.chapterIdx++
		s.pos = s.mapper.PositionForChapterRatio(s.chapterIdx, s.cfg.ChapterStartEpsilon)
		s.hlStart, s.hlLen = 0, 0
		s.publishLocked()
		s.machine.Transition(prev)
		s.publishLocked()
		return
	}

	s.hlStart = offset - ch.StartIndex
	if s.hlStart < 0 {
		s.hlStart = 0
	}
	s.hlLen = length
	s.pos = s.mapper.ClampIntoChapter(s.chapterIdx, s.mapper.PositionForOffset(offset))
	s.publishLocked()
}

// SetRate updates the speech rate.
func (s *Session) SetRate(r float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}
	if r < 0.25 {
		r = 0.25
	}
	if r > 4.0 {
		r = 4.0
	}
	s.cfg.Rate = r
	return s.engine.SetRate(r)
}

// Snapshot returns a read-only copy of the current playback state.
// Safe to call from any number of concurrent pollers.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Chapters returns a copy of the chapter list, re-segmenting lazily
// if the list is empty but text is present.
func (s *Session) Chapters() []Chapter {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.segmented && len(s.text) > 0 {
		s.resegmentLocked()
		s.segmented = true
	}
	out := make([]Chapter, len(s.chapters))
	copy(out, s.chapters)
	return out
}

// Paragraphs returns a copy of the paragraph list.
func (s *Session) Paragraphs() []Paragraph {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Paragraph, len(s.paragraphs))
	copy(out, s.paragraphs)
	return out
}

// ChapterText returns the text slice of chapter i, or "" for an
// invalid index.
func (s *Session) ChapterText(i int) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.mapper == nil || !s.mapper.ValidIndex(i) {
		return ""
	}
	ch := s.chapters[i]
	return string(s.text[ch.StartIndex:ch.EndIndex])
}

// CurrentChapterIndex returns the current chapter index, or NoChapter.
func (s *Session) CurrentChapterIndex() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.chapterIdx
}

// CurrentChapterProgress returns normalized progress within the
// current chapter.
func (s *Session) CurrentChapterProgress() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.mapper == nil || s.chapterIdx == NoChapter {
		return s.pos
	}
	return s.mapper.ChapterProgress(s.chapterIdx, s.pos)
}

// CurrentGlobalPosition returns the normalized global position.
func (s *Session) CurrentGlobalPosition() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pos
}

// IsPlaying reports whether speech is in progress.
func (s *Session) IsPlaying() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.playing
}

// IsDocumentLoaded reports whether a document has finished loading.
func (s *Session) IsDocumentLoaded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loaded
}

// Subscribe registers an observer for state snapshots. Snapshots are
// delivered best-effort: a slow consumer misses intermediate updates
// rather than blocking the session. The returned function cancels the
// subscription.
func (s *Session) Subscribe() (<-chan Snapshot, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch := make(chan Snapshot, 16)
	if s.closed {
		close(ch)
		return ch, func() {}
	}
	s.subs = append(s.subs, ch)

	return ch, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		for i, sub := range s.subs {
			if sub == ch {
				s.subs = append(s.subs[:i], s.subs[i+1:]...)
				close(ch)
				return
			}
		}
	}
}

// Close ends the reading session. All subscriptions are closed and
// further operations fail with ErrSessionClosed.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.stopSpeechLocked()
	s.closed = true
	s.loaded = false
	s.machine.Transition(StateIdle)

	for _, sub := range s.subs {
		close(sub)
	}
	s.subs = nil
	return nil
}

// Internal helpers. All require s.mu held.

func (s *Session) speakLocked() error {
	// Tag the utterance with the chapter index current at speak time
	// so stale highlight callbacks can be detected at apply time.
	tag := s.chapterIdx
	s.speakSeq++
	s.engine.OnHighlight(func(offset, length int) {
		s.ApplyHighlight(tag, offset, length)
	})
	return s.engine.Speak(s.mapper.OffsetForPosition(s.pos))
}

// scheduleResumeLocked pauses speech and restarts it at the current
// position after ResumeDelay. A newer seek replaces a pending resume.
func (s *Session) scheduleResumeLocked() {
	s.cancelPendingResumeLocked()
	s.speakSeq++
	seq := s.speakSeq

	s.resumeTimer = time.AfterFunc(s.cfg.ResumeDelay, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.closed || !s.playing || seq != s.speakSeq {
			return
		}
		if err := s.speakLocked(); err != nil {
			s.logger.Error("deferred resume failed", "err", err)
			return
		}
		s.publishLocked()
	})
}

func (s *Session) cancelPendingResumeLocked() {
	if s.resumeTimer != nil {
		s.resumeTimer.Stop()
		s.resumeTimer = nil
	}
}

func (s *Session) stopSpeechLocked() {
	s.cancelPendingResumeLocked()
	s.speakSeq++
	if s.playing {
		if err := s.engine.Stop(); err != nil {
			s.logger.Error("stopping engine", "err", err)
		}
		s.playing = false
	}
}

func (s *Session) snapshotLocked() Snapshot {
	snap := Snapshot{
		State:           s.machine.Current(),
		GlobalPosition:  s.pos,
		ChapterIndex:    s.chapterIdx,
		Playing:         s.playing,
		HighlightStart:  s.hlStart,
		HighlightLength: s.hlLen,
		DocumentLoaded:  s.loaded,
		Timestamp:       time.Now(),
	}
	if s.mapper != nil && s.chapterIdx != NoChapter {
		snap.ChapterProgress = s.mapper.ChapterProgress(s.chapterIdx, s.pos)
	} else {
		snap.ChapterProgress = s.pos
	}
	return snap
}

func (s *Session) publishLocked() {
	snap := s.snapshotLocked()
	for _, sub := range s.subs {
		select {
		case sub <- snap:
		default:
		}
	}
}

func (s *Session) warnNoopLocked(op string) {
	s.warnRange.Do(func() {
		s.logger.Warn("operation ignored",
			"op", op, "state", s.machine.Current(), "loaded", s.loaded)
	})
}
