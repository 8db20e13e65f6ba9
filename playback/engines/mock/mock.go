// Package mock provides a mock speech engine for tests and demos.
package mock

import (
	"sync"

	"github.com/lectorapp/lector/playback"
)

// Engine implements playback.SpeechEngine without producing audio. It
// records every call and lets tests script highlight callbacks.
type Engine struct {
	mu sync.Mutex

	speaking bool
	paused   bool
	rate     float64
	fn       playback.HighlightFunc

	speakOffsets []int
	pauseCalls   int
	resumeCalls  int
	stopCalls    int

	// Failure injection
	FailSpeak  error
	FailPause  error
	FailResume error
}

// New creates a mock engine.
func New() *Engine {
	return &Engine{rate: 1.0}
}

// Speak records the starting offset and marks the engine speaking.
func (e *Engine) Speak(fromOffset int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.FailSpeak != nil {
		return e.FailSpeak
	}
	e.speaking = true
	e.paused = false
	e.speakOffsets = append(e.speakOffsets, fromOffset)
	return nil
}

// Pause marks the engine paused.
func (e *Engine) Pause() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.FailPause != nil {
		return e.FailPause
	}
	e.paused = true
	e.pauseCalls++
	return nil
}

// Resume clears the paused flag.
func (e *Engine) Resume() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.FailResume != nil {
		return e.FailResume
	}
	e.paused = false
	e.speaking = true
	e.resumeCalls++
	return nil
}

// Stop halts speech.
func (e *Engine) Stop() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.speaking = false
	e.paused = false
	e.stopCalls++
	return nil
}

// SetRate records the rate.
func (e *Engine) SetRate(rate float64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.rate = rate
	return nil
}

// OnHighlight registers the highlight callback, replacing any
// previous one.
func (e *Engine) OnHighlight(fn playback.HighlightFunc) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.fn = fn
}

// EmitHighlight delivers a highlight callback through the currently
// registered function, the way a real engine reports spoken ranges.
// It must not be called from inside Speak.
func (e *Engine) EmitHighlight(offset, length int) {
	e.mu.Lock()
	fn := e.fn
	e.mu.Unlock()
	if fn != nil {
		fn(offset, length)
	}
}

// IsSpeaking reports whether the engine is speaking and not paused.
func (e *Engine) IsSpeaking() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.speaking && !e.paused
}

// IsPaused reports whether the engine is paused.
func (e *Engine) IsPaused() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.paused
}

// Rate returns the last rate set.
func (e *Engine) Rate() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.rate
}

// SpeakOffsets returns the offsets of every Speak call.
func (e *Engine) SpeakOffsets() []int {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]int, len(e.speakOffsets))
	copy(out, e.speakOffsets)
	return out
}

// PauseCalls returns the number of Pause calls.
func (e *Engine) PauseCalls() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.pauseCalls
}

// ResumeCalls returns the number of Resume calls.
func (e *Engine) ResumeCalls() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.resumeCalls
}

// StopCalls returns the number of Stop calls.
func (e *Engine) StopCalls() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stopCalls
}
