package playback

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
)

// Messages for Bubble Tea communication between the engine and UIs.

// SnapshotMsg carries a state snapshot published by the session.
type SnapshotMsg struct {
	Snapshot Snapshot
}

// ChapterChangedMsg indicates the current chapter has changed.
type ChapterChangedMsg struct {
	Index    int     // New chapter index, NoChapter when unsegmented
	Title    string  // Chapter title, "" when unsegmented
	Progress float64 // Global position at the time of the change
}

// DocumentLoadedMsg indicates a document finished loading.
type DocumentLoadedMsg struct {
	Document Document
	Chapters int // Number of chapters found, 0 for unsegmented
}

// LoadProgressMsg reports document loading progress.
type LoadProgressMsg struct {
	Progress float64 // In [0,1]
	Message  string
}

// LoadFailedMsg indicates a document load did not complete.
type LoadFailedMsg struct {
	Document Document
	Err      error
}

// SubscriptionClosedMsg indicates the session ended and the snapshot
// stream is gone.
type SubscriptionClosedMsg struct{}

// Commands for async session operations.

// WaitForSnapshotCmd blocks on a subscription channel and delivers the
// next snapshot as a message. Re-issue it after each message to keep
// the stream flowing.
func WaitForSnapshotCmd(ch <-chan Snapshot) tea.Cmd {
	return func() tea.Msg {
		snap, ok := <-ch
		if !ok {
			return SubscriptionClosedMsg{}
		}
		return SnapshotMsg{Snapshot: snap}
	}
}

// LoadDocumentCmd loads a document through the session. Progress is
// delivered to the program via the provided send function; completion
// or failure arrives as the command's message.
func LoadDocumentCmd(ctx context.Context, s *Session, doc Document, send func(tea.Msg)) tea.Cmd {
	return func() tea.Msg {
		onProgress := func(p float64, msg string) {
			if send != nil {
				send(LoadProgressMsg{Progress: p, Message: msg})
			}
		}
		if err := s.LoadDocument(ctx, doc, onProgress); err != nil {
			return LoadFailedMsg{Document: doc, Err: err}
		}
		return DocumentLoadedMsg{Document: doc, Chapters: len(s.Chapters())}
	}
}

// JumpToChapterCmd jumps to a chapter and reports the resulting state.
func JumpToChapterCmd(s *Session, index int) tea.Cmd {
	return func() tea.Msg {
		s.JumpToChapter(index)
		return SnapshotMsg{Snapshot: s.Snapshot()}
	}
}

// SeekCmd seeks within the current chapter and reports the resulting
// state.
func SeekCmd(s *Session, ratio float64) tea.Cmd {
	return func() tea.Msg {
		s.SeekTo(ratio)
		return SnapshotMsg{Snapshot: s.Snapshot()}
	}
}

// TapToSeekCmd resolves a tap gesture and reports the resulting state.
func TapToSeekCmd(s *Session, chapter int, ratio float64) tea.Cmd {
	return func() tea.Msg {
		s.TapToSeek(chapter, ratio)
		return SnapshotMsg{Snapshot: s.Snapshot()}
	}
}
