// Package playback implements the chapter segmentation and
// playback-position synchronization engine for reading documents aloud.
package playback

import "time"

// NoChapter is the chapter index reported for unsegmented documents.
const NoChapter = -1

// Chapter is a contiguous span of document text treated as one
// playback and navigation unit. Offsets are rune counts into the full
// text; positions are normalized over the whole document.
type Chapter struct {
	Title         string  // Heading text, or an auto-generated label
	StartIndex    int     // First rune of the chapter (inclusive)
	EndIndex      int     // One past the last rune (exclusive)
	StartPosition float64 // StartIndex / total length, in [0,1]
	EndPosition   float64 // EndIndex / total length, in [0,1]
}

// Length returns the chapter length in runes.
func (c Chapter) Length() int {
	return c.EndIndex - c.StartIndex
}

// Span returns the chapter's width on the normalized progress axis.
func (c Chapter) Span() float64 {
	return c.EndPosition - c.StartPosition
}

// Contains reports whether the rune offset falls inside the chapter.
func (c Chapter) Contains(offset int) bool {
	return offset >= c.StartIndex && offset < c.EndIndex
}

// Paragraph is a blank-line-delimited block of text.
type Paragraph struct {
	StartIndex int // First rune of the paragraph (inclusive)
	EndIndex   int // One past the last rune (exclusive)
}

// Document holds text already extracted by an external extractor.
// The text is immutable for the lifetime of a reading session.
type Document struct {
	ID    string
	Title string
	Text  string
}

// Snapshot is a read-only copy of the playback state. All consumers,
// including concurrent pollers, receive snapshots rather than access
// to the live state.
type Snapshot struct {
	State           StateType
	GlobalPosition  float64 // Normalized [0,1] over the whole document
	ChapterIndex    int     // NoChapter for unsegmented documents
	ChapterProgress float64 // Normalized [0,1] within the chapter
	Playing         bool
	HighlightStart  int // Rune offset within the current chapter
	HighlightLength int
	DocumentLoaded  bool
	Timestamp       time.Time
}

// ProgressFunc reports loading progress in [0,1] with a short message.
type ProgressFunc func(progress float64, message string)

// HighlightFunc receives highlight-range callbacks from a speech
// engine. Offsets are global rune offsets into the document text.
type HighlightFunc func(offset, length int)
