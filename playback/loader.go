package playback

import (
	"context"
	"time"
)

// StaticLoader serves a document whose text has already been extracted
// upstream. Useful for tests and for callers that read files
// themselves. Delay, when set, spreads progress reports over the load
// to exercise asynchronous consumers.
type StaticLoader struct {
	Delay time.Duration
}

// Load returns the document's text, reporting coarse progress along
// the way.
func (l *StaticLoader) Load(ctx context.Context, doc Document, onProgress ProgressFunc) (string, error) {
	steps := []struct {
		progress float64
		message  string
	}{
		{0.0, "opening document"},
		{0.5, "reading text"},
		{1.0, "done"},
	}

	for _, step := range steps {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		if onProgress != nil {
			onProgress(step.progress, step.message)
		}
		if l.Delay > 0 && step.progress < 1.0 {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(l.Delay):
			}
		}
	}
	return doc.Text, nil
}
