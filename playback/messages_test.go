package playback

import (
	"context"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// TestWaitForSnapshotCmd tests snapshot delivery through the command.
func TestWaitForSnapshotCmd(t *testing.T) {
	ch := make(chan Snapshot, 1)
	ch <- Snapshot{ChapterIndex: 2, Playing: true}

	msg := WaitForSnapshotCmd(ch)()
	snap, ok := msg.(SnapshotMsg)
	if !ok {
		t.Fatalf("message type = %T, want SnapshotMsg", msg)
	}
	if snap.Snapshot.ChapterIndex != 2 || !snap.Snapshot.Playing {
		t.Errorf("SnapshotMsg = %+v, want chapter 2 playing", snap.Snapshot)
	}
}

// TestWaitForSnapshotCmdClosed verifies a closed subscription yields
// SubscriptionClosedMsg.
func TestWaitForSnapshotCmdClosed(t *testing.T) {
	ch := make(chan Snapshot)
	close(ch)

	msg := WaitForSnapshotCmd(ch)()
	if _, ok := msg.(SubscriptionClosedMsg); !ok {
		t.Errorf("message type = %T, want SubscriptionClosedMsg", msg)
	}
}

// TestLoadDocumentCmd tests the load command's success path including
// progress forwarding.
func TestLoadDocumentCmd(t *testing.T) {
	engine := &fakeEngine{}
	s := NewSession(engine, &StaticLoader{}, stubSegmenter{chapters: testChapters()}, DefaultConfig(), quietLogger())
	defer s.Close()

	var mu sync.Mutex
	var progress int
	send := func(msg tea.Msg) {
		if _, ok := msg.(LoadProgressMsg); ok {
			mu.Lock()
			progress++
			mu.Unlock()
		}
	}

	msg := LoadDocumentCmd(context.Background(), s, testDocument(), send)()
	loaded, ok := msg.(DocumentLoadedMsg)
	if !ok {
		t.Fatalf("message type = %T, want DocumentLoadedMsg", msg)
	}
	if loaded.Chapters != 3 {
		t.Errorf("DocumentLoadedMsg.Chapters = %d, want 3", loaded.Chapters)
	}
	mu.Lock()
	defer mu.Unlock()
	if progress == 0 {
		t.Error("no LoadProgressMsg delivered")
	}
}

// TestLoadDocumentCmdFailure tests the load command's failure path.
func TestLoadDocumentCmdFailure(t *testing.T) {
	cfg := DefaultConfig()
	cfg.LoadTimeout = 200 * time.Millisecond
	cfg.LoadPollInterval = 50 * time.Millisecond
	engine := &fakeEngine{}
	s := NewSession(engine, &slowLoader{delay: 2 * time.Second}, stubSegmenter{}, cfg, quietLogger())
	defer s.Close()

	msg := LoadDocumentCmd(context.Background(), s, testDocument(), nil)()
	failed, ok := msg.(LoadFailedMsg)
	if !ok {
		t.Fatalf("message type = %T, want LoadFailedMsg", msg)
	}
	if failed.Err == nil {
		t.Error("LoadFailedMsg.Err = nil, want error")
	}
}

// TestNavigationCmds tests the jump, seek, and tap commands report the
// resulting state.
func TestNavigationCmds(t *testing.T) {
	s, _ := newLoadedSession(t, DefaultConfig())

	msg := JumpToChapterCmd(s, 1)()
	snap, ok := msg.(SnapshotMsg)
	if !ok {
		t.Fatalf("jump message type = %T, want SnapshotMsg", msg)
	}
	if snap.Snapshot.ChapterIndex != 1 {
		t.Errorf("jump snapshot chapter = %d, want 1", snap.Snapshot.ChapterIndex)
	}

	msg = SeekCmd(s, 0.5)()
	snap, ok = msg.(SnapshotMsg)
	if !ok {
		t.Fatalf("seek message type = %T, want SnapshotMsg", msg)
	}
	if !approxEqual(snap.Snapshot.GlobalPosition, 0.5, 1e-9) {
		t.Errorf("seek snapshot position = %v, want 0.5", snap.Snapshot.GlobalPosition)
	}

	msg = TapToSeekCmd(s, 2, 0.5)()
	snap, ok = msg.(SnapshotMsg)
	if !ok {
		t.Fatalf("tap message type = %T, want SnapshotMsg", msg)
	}
	if snap.Snapshot.ChapterIndex != 2 {
		t.Errorf("tap snapshot chapter = %d, want 2", snap.Snapshot.ChapterIndex)
	}
	if !snap.Snapshot.Playing {
		t.Error("tap snapshot not playing, want playback started")
	}
}
