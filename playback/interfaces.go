package playback

import "context"

// SpeechEngine is the external text-to-speech engine. It is treated as
// a black box: it accepts a starting offset into the document text and
// reports highlight ranges as it speaks. Implementations must be safe
// for use from a single goroutine at a time; the session serializes
// all calls.
type SpeechEngine interface {
	// Speak starts speaking the document text from the given global
	// rune offset.
	Speak(fromOffset int) error

	// Pause temporarily stops speech.
	Pause() error

	// Resume continues speech from the paused position.
	Resume() error

	// Stop halts speech entirely.
	Stop() error

	// SetRate sets the speech rate multiplier (1.0 = normal).
	SetRate(rate float64) error

	// OnHighlight registers the callback invoked as spoken ranges
	// change. Registering replaces any previous callback. Callbacks
	// must be delivered asynchronously, never from inside Speak.
	OnHighlight(fn HighlightFunc)
}

// Loader retrieves a document's text. Loading is asynchronous from the
// session's point of view; implementations report progress through the
// callback and honor context cancellation.
type Loader interface {
	Load(ctx context.Context, doc Document, onProgress ProgressFunc) (string, error)
}

// Segmenter partitions raw text into chapters and paragraphs. Results
// must be deterministic for identical input.
type Segmenter interface {
	Segment(text string) ([]Chapter, []Paragraph)
}
