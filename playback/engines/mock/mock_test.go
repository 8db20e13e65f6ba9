package mock

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/lectorapp/lector/playback"
)

// TestEngineLifecycle tests the recorded speak, pause, resume, and
// stop interactions.
func TestEngineLifecycle(t *testing.T) {
	e := New()

	if err := e.Speak(120); err != nil {
		t.Fatalf("Speak() error = %v", err)
	}
	if !e.IsSpeaking() {
		t.Error("IsSpeaking() = false after Speak")
	}
	if got := e.SpeakOffsets(); len(got) != 1 || got[0] != 120 {
		t.Errorf("SpeakOffsets() = %v, want [120]", got)
	}

	if err := e.Pause(); err != nil {
		t.Fatalf("Pause() error = %v", err)
	}
	if !e.IsPaused() || e.IsSpeaking() {
		t.Error("engine not paused after Pause")
	}

	if err := e.Resume(); err != nil {
		t.Fatalf("Resume() error = %v", err)
	}
	if e.IsPaused() || !e.IsSpeaking() {
		t.Error("engine not speaking after Resume")
	}

	if err := e.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if e.IsSpeaking() {
		t.Error("IsSpeaking() = true after Stop")
	}
	if e.PauseCalls() != 1 || e.ResumeCalls() != 1 || e.StopCalls() != 1 {
		t.Errorf("call counts = (%d, %d, %d), want (1, 1, 1)",
			e.PauseCalls(), e.ResumeCalls(), e.StopCalls())
	}
}

// TestEngineSetRate tests rate recording.
func TestEngineSetRate(t *testing.T) {
	e := New()
	if got := e.Rate(); got != 1.0 {
		t.Errorf("initial Rate() = %v, want 1.0", got)
	}
	if err := e.SetRate(1.75); err != nil {
		t.Fatalf("SetRate() error = %v", err)
	}
	if got := e.Rate(); got != 1.75 {
		t.Errorf("Rate() = %v, want 1.75", got)
	}
}

// TestEngineFailureInjection tests scripted errors.
func TestEngineFailureInjection(t *testing.T) {
	e := New()
	boom := errors.New("boom")

	e.FailSpeak = boom
	if err := e.Speak(0); !errors.Is(err, boom) {
		t.Errorf("Speak() error = %v, want injected failure", err)
	}
	if e.IsSpeaking() {
		t.Error("IsSpeaking() = true after failed Speak")
	}

	e.FailSpeak = nil
	e.FailPause = boom
	if err := e.Speak(0); err != nil {
		t.Fatalf("Speak() error = %v", err)
	}
	if err := e.Pause(); !errors.Is(err, boom) {
		t.Errorf("Pause() error = %v, want injected failure", err)
	}
}

// TestEngineEmitHighlight tests callback registration and delivery.
func TestEngineEmitHighlight(t *testing.T) {
	e := New()

	e.EmitHighlight(10, 5) // no callback registered, must not panic

	var gotOffset, gotLength int
	e.OnHighlight(func(offset, length int) {
		gotOffset, gotLength = offset, length
	})
	e.EmitHighlight(42, 7)
	if gotOffset != 42 || gotLength != 7 {
		t.Errorf("highlight = (%d, %d), want (42, 7)", gotOffset, gotLength)
	}

	// A later registration replaces the callback.
	var second bool
	e.OnHighlight(func(int, int) { second = true })
	e.EmitHighlight(1, 1)
	if !second {
		t.Error("replacement callback not invoked")
	}
}

// chapterStub feeds a session a fixed two-chapter split.
type chapterStub struct{}

func (chapterStub) Segment(text string) ([]playback.Chapter, []playback.Paragraph) {
	total := len([]rune(text))
	half := total / 2
	return []playback.Chapter{
		{Title: "First", StartIndex: 0, EndIndex: half, EndPosition: 0.5},
		{Title: "Second", StartIndex: half, EndIndex: total, StartPosition: 0.5, EndPosition: 1.0},
	}, nil
}

// TestEngineDrivesSession exercises the full callback path: the
// session speaks through the mock, the mock emits highlights, and the
// session's snapshot reflects them.
func TestEngineDrivesSession(t *testing.T) {
	e := New()
	s := playback.NewSession(e, &playback.StaticLoader{}, chapterStub{}, playback.DefaultConfig(), log.New(io.Discard))
	defer s.Close()

	doc := playback.Document{ID: "d", Text: strings.Repeat("x", 1000)}
	if err := s.LoadDocument(context.Background(), doc, nil); err != nil {
		t.Fatalf("LoadDocument() error = %v", err)
	}
	if err := s.Play(); err != nil {
		t.Fatalf("Play() error = %v", err)
	}
	if offsets := e.SpeakOffsets(); len(offsets) != 1 || offsets[0] != 10 {
		t.Fatalf("SpeakOffsets() = %v, want [10] (epsilon into chapter 0)", offsets)
	}

	// The engine reports a spoken range; the session follows it.
	e.EmitHighlight(100, 8)
	snap := s.Snapshot()
	if snap.HighlightStart != 100 || snap.HighlightLength != 8 {
		t.Errorf("highlight = (%d, %d), want (100, 8)", snap.HighlightStart, snap.HighlightLength)
	}
	if snap.ChapterIndex != 0 {
		t.Errorf("ChapterIndex = %d, want 0", snap.ChapterIndex)
	}

	// Reaching the end of chapter 0 advances naturally into chapter 1.
	e.EmitHighlight(495, 10)
	snap = s.Snapshot()
	if snap.ChapterIndex != 1 {
		t.Errorf("ChapterIndex = %d after end-of-chapter highlight, want 1", snap.ChapterIndex)
	}
}
