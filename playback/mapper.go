package playback

import (
	"math"
	"sort"
)

// Mapper converts between global rune offsets, chapter indices, and
// normalized progress ratios. Chapters are immutable once a document
// is loaded, so all methods are pure and safe to call concurrently
// without synchronization.
type Mapper struct {
	chapters []Chapter
	textLen  int

	// Safe-interior tuning. Ratios are pulled inside
	// [seekFloor, seekCeiling] and positions are kept boundaryMargin
	// of a chapter's span away from its edges so an offset-to-chapter
	// lookup never lands ambiguously on a boundary.
	seekFloor      float64
	seekCeiling    float64
	boundaryMargin float64
}

// NewMapper creates a mapper over the given chapter list. textLen is
// the document length in runes.
func NewMapper(chapters []Chapter, textLen int, cfg Config) *Mapper {
	return &Mapper{
		chapters:       chapters,
		textLen:        textLen,
		seekFloor:      cfg.SeekFloor,
		seekCeiling:    cfg.SeekCeiling,
		boundaryMargin: cfg.BoundaryMargin,
	}
}

// Chapters returns the chapter list the mapper was built over.
func (m *Mapper) Chapters() []Chapter {
	return m.chapters
}

// ChapterCount returns the number of chapters.
func (m *Mapper) ChapterCount() int {
	return len(m.chapters)
}

// ValidIndex reports whether i addresses a chapter.
func (m *Mapper) ValidIndex(i int) bool {
	return i >= 0 && i < len(m.chapters)
}

// ChapterIndexForOffset returns the chapter containing the given rune
// offset. Offsets before the first chapter map to 0 and offsets at or
// past the last chapter map to the last index; the result is always a
// valid index, or NoChapter for an empty chapter list.
func (m *Mapper) ChapterIndexForOffset(offset int) int {
	n := len(m.chapters)
	if n == 0 {
		return NoChapter
	}
	if offset < m.chapters[0].StartIndex {
		return 0
	}
	if offset >= m.chapters[n-1].EndIndex {
		return n - 1
	}
	// First chapter whose end lies beyond the offset.
	i := sort.Search(n, func(i int) bool {
		return m.chapters[i].EndIndex > offset
	})
	if i >= n {
		return n - 1
	}
	return i
}

// ChapterIndexForPosition returns the chapter containing the given
// normalized global position.
func (m *Mapper) ChapterIndexForPosition(pos float64) int {
	return m.ChapterIndexForOffset(m.OffsetForPosition(pos))
}

// ChapterProgress returns progress within chapter i for the given
// global position, clamped to [0,1]. A degenerate chapter span yields
// 0 rather than a division by zero.
func (m *Mapper) ChapterProgress(i int, pos float64) float64 {
	if !m.ValidIndex(i) {
		return 0
	}
	ch := m.chapters[i]
	span := ch.Span()
	if span <= 0 {
		return 0
	}
	return clamp((pos-ch.StartPosition)/span, 0, 1)
}

// PositionForChapterRatio maps a chapter-internal ratio back to a
// global position. The ratio passes through SafeRatio first, so a
// caller asking for the extreme edge of a chapter is moved to the
// nearest safe interior point instead of landing on a boundary.
func (m *Mapper) PositionForChapterRatio(i int, ratio float64) float64 {
	if !m.ValidIndex(i) {
		return clamp(ratio, 0, 1)
	}
	ch := m.chapters[i]
	return ch.StartPosition + m.SafeRatio(ratio)*ch.Span()
}

// SafeRatio clamps a caller-supplied chapter-internal ratio into the
// safe interior range. NaN and negative inputs clamp to the floor;
// inputs past the ceiling clamp down. Bad input never errors.
func (m *Mapper) SafeRatio(ratio float64) float64 {
	if math.IsNaN(ratio) {
		return m.seekFloor
	}
	return clamp(ratio, m.seekFloor, m.seekCeiling)
}

// ClampIntoChapter pulls a global position into the interior of
// chapter i, boundaryMargin of the chapter's span away from either
// edge. Used when a computed position would otherwise sit on (or
// cross) a chapter boundary.
func (m *Mapper) ClampIntoChapter(i int, pos float64) float64 {
	if !m.ValidIndex(i) {
		return clamp(pos, 0, 1)
	}
	ch := m.chapters[i]
	span := ch.Span()
	if span <= 0 {
		return ch.StartPosition
	}
	margin := m.boundaryMargin * span
	return clamp(pos, ch.StartPosition+margin, ch.EndPosition-margin)
}

// OffsetForPosition converts a normalized global position to a rune
// offset, clamped to the valid text range.
func (m *Mapper) OffsetForPosition(pos float64) int {
	if m.textLen == 0 {
		return 0
	}
	if math.IsNaN(pos) {
		return 0
	}
	off := int(math.Round(pos * float64(m.textLen)))
	if off < 0 {
		return 0
	}
	if off >= m.textLen {
		return m.textLen - 1
	}
	return off
}

// PositionForOffset converts a rune offset to a normalized global
// position.
func (m *Mapper) PositionForOffset(offset int) float64 {
	if m.textLen == 0 {
		return 0
	}
	return clamp(float64(offset)/float64(m.textLen), 0, 1)
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) || v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
