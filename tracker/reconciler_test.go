package tracker

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"tracker-bot/models"
)

func approvedThread(t *testing.T, h *harness, posts ...models.Post) {
	t.Helper()
	ctx := context.Background()
	for _, p := range posts {
		h.source.publish(p)
	}
	if _, err := h.tracker.Ingest(ctx); err != nil {
		t.Fatal(err)
	}
	for _, p := range posts {
		if err := h.tracker.Approve(ctx, p.ID, bob); err != nil {
			t.Fatal(err)
		}
	}
}

func TestFindUpdatesNeverMovesEpochBackwards(t *testing.T) {
	h := newHarness(t, alice)
	ctx := context.Background()
	p := post("p1", "t1", "alice", 5000)
	p.Edited = 6000
	approvedThread(t, h, p)

	tests := []struct {
		name    string
		edited  int64
		changed int
	}{
		{"never edited", 0, 0},
		{"older edit", 5500, 0},
		{"same edit", 6000, 0},
		{"newer edit", 7000, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			live := p
			live.Edited = tt.edited
			live.Body = "revision " + tt.name
			h.source.setLive(live)

			n, err := h.tracker.FindUpdates(ctx)
			if err != nil || n != tt.changed {
				t.Fatalf("FindUpdates = %d, %v; want %d", n, err, tt.changed)
			}
		})
	}

	stored, _ := h.store.GetPost(ctx, "p1")
	if stored.LastSeenEpoch != 7000 || stored.Text != "revision newer edit" {
		t.Errorf("stored = %+v", stored)
	}
	if ids := h.pending(t); len(ids) != 1 || ids[0] != "t1" {
		t.Errorf("pending = %v", ids)
	}
}

func TestDeletedUpstreamRetiresDigest(t *testing.T) {
	h := newHarness(t, alice)
	ctx := context.Background()
	approvedThread(t, h, post("p1", "t1", "alice", 5000))

	thread, ok, _ := h.store.GetThread(ctx, "t1")
	if !ok {
		t.Fatal("digest not created")
	}

	h.source.setLive(post("p1", "t1", models.DeletedAuthor, 5000))
	n, err := h.tracker.FindUpdates(ctx)
	if err != nil || n != 1 {
		t.Fatalf("FindUpdates = %d, %v", n, err)
	}
	if exists, _ := h.store.PostExists(ctx, "p1"); exists {
		t.Error("deleted post still stored")
	}
	if ids := h.pending(t); len(ids) != 1 || ids[0] != "t1" {
		t.Fatalf("pending = %v, want [t1]", ids)
	}

	drained, err := h.tracker.DrainUpdates(ctx)
	if err != nil || drained != 1 {
		t.Fatalf("DrainUpdates = %d, %v", drained, err)
	}
	if _, ok, _ := h.store.GetThread(ctx, "t1"); ok {
		t.Error("thread record survived")
	}
	if _, ok := h.source.digestText(thread.DigestPostID); ok {
		t.Error("remote digest survived")
	}
	if ids := h.pending(t); len(ids) != 0 {
		t.Errorf("pending = %v, want empty", ids)
	}
}

func TestDeletedUpstreamKeepsOtherPosts(t *testing.T) {
	h := newHarness(t, alice)
	ctx := context.Background()
	approvedThread(t, h, post("p1", "t1", "alice", 5000), post("p2", "t1", "alice", 5100))

	h.source.setLive(post("p1", "t1", models.DeletedAuthor, 5000))
	if _, err := h.tracker.RunCycle(ctx); err != nil {
		t.Fatalf("RunCycle: %v", err)
	}

	thread, ok, _ := h.store.GetThread(ctx, "t1")
	if !ok {
		t.Fatal("digest retired although p2 is still approved")
	}
	text, _ := h.source.digestText(thread.DigestPostID)
	if text == "" || strings.Contains(text, "Body of p1.") || !strings.Contains(text, "Body of p2.") {
		t.Errorf("digest = %q", text)
	}
}

func TestDrainKeepsFailedThreadsQueued(t *testing.T) {
	h := newHarness(t, alice)
	ctx := context.Background()
	seedApproved(t, h, "t1", models.TrackedPost{PostID: "a", Author: "alice", LastSeenEpoch: 1, Text: "a"})
	seedApproved(t, h, "t2", models.TrackedPost{PostID: "b", Author: "alice", LastSeenEpoch: 1, Text: "b"})
	for _, id := range []string{"t1", "t2"} {
		if err := h.store.Enqueue(ctx, id); err != nil {
			t.Fatal(err)
		}
	}

	h.source.submitErr = models.ErrSourceUnavailable
	n, err := h.tracker.DrainUpdates(ctx)
	if n != 0 || !errors.Is(err, models.ErrSourceUnavailable) {
		t.Fatalf("DrainUpdates = %d, %v", n, err)
	}
	if ids := h.pending(t); len(ids) != 2 {
		t.Errorf("pending = %v, both threads must stay queued", ids)
	}

	h.source.submitErr = nil
	n, err = h.tracker.DrainUpdates(ctx)
	if err != nil || n != 2 {
		t.Fatalf("retry DrainUpdates = %d, %v", n, err)
	}
	if ids := h.pending(t); len(ids) != 0 {
		t.Errorf("pending = %v", ids)
	}
}

func TestDrainStopsOnCancel(t *testing.T) {
	h := newHarness(t, alice)
	h.tracker.opts.UpdateDelay = time.Hour
	ctx, cancel := context.WithCancel(context.Background())
	for _, id := range []string{"t1", "t2"} {
		if err := h.store.Enqueue(ctx, id); err != nil {
			t.Fatal(err)
		}
	}

	time.AfterFunc(50*time.Millisecond, cancel)
	n, err := h.tracker.DrainUpdates(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
	if n != 1 {
		t.Errorf("drained %d threads before cancel, want 1", n)
	}
}

func TestForceResyncOverwritesUnconditionally(t *testing.T) {
	h := newHarness(t, alice)
	ctx := context.Background()
	approvedThread(t, h, post("p1", "t1", "alice", 5000), post("p2", "t1", "alice", 5100))

	// Never-edited text change that the detect phase would ignore.
	changed := post("p1", "t1", "alice", 5000)
	changed.Body = "Silently changed."
	h.source.setLive(changed)
	h.source.setLive(post("p2", "t1", models.DeletedAuthor, 5100))

	if n, _ := h.tracker.FindUpdates(ctx); n != 1 {
		t.Fatalf("detect phase saw %d changes, want only the deletion", n)
	}

	n, err := h.tracker.ForceResync(ctx, 30, 0)
	if err != nil {
		t.Fatalf("ForceResync: %v", err)
	}
	if n != 1 {
		t.Errorf("refreshed %d posts, want 1", n)
	}
	stored, _ := h.store.GetPost(ctx, "p1")
	if stored.Text != "Silently changed." || stored.LastSeenEpoch != 5000 {
		t.Errorf("stored = %+v", stored)
	}
	if ids := h.pending(t); len(ids) != 1 || ids[0] != "t1" {
		t.Errorf("pending = %v", ids)
	}
}
