package tracker

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"tracker-bot/database"
	"tracker-bot/models"
)

const testForum = "TestSub"

type fakeSource struct {
	mu sync.Mutex

	recent   []models.Post
	live     map[string]models.Post
	digests  map[string]string // digest id -> text
	pinned   map[string]bool
	deleted  []string
	followed map[string]bool
	nextID   int

	listErr   error
	getErr    error
	submitErr error
	deleteErr error
	getCalls  int
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		live:     make(map[string]models.Post),
		digests:  make(map[string]string),
		pinned:   make(map[string]bool),
		followed: make(map[string]bool),
	}
}

// publish makes p both visible in the recent feed and fetchable by id.
func (f *fakeSource) publish(p models.Post) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.recent = append(f.recent, p)
	f.live[p.ID] = p
}

// setLive changes the upstream state of a post without touching the feed.
func (f *fakeSource) setLive(p models.Post) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.live[p.ID] = p
}

func (f *fakeSource) digestText(id string) (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	text, ok := f.digests[id]
	return text, ok
}

func (f *fakeSource) ListRecent(_ context.Context, _ string, limit int) ([]models.Post, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	posts := append([]models.Post(nil), f.recent...)
	if len(posts) > limit {
		posts = posts[:limit]
	}
	return posts, nil
}

func (f *fakeSource) GetByIDs(_ context.Context, ids []string) ([]models.Post, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.getCalls++
	if f.getErr != nil {
		return nil, f.getErr
	}
	var posts []models.Post
	for _, id := range ids {
		if p, ok := f.live[id]; ok {
			posts = append(posts, p)
		}
	}
	return posts, nil
}

func (f *fakeSource) Submit(_ context.Context, threadID, text string) (models.Post, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.submitErr != nil {
		return models.Post{}, f.submitErr
	}
	f.nextID++
	id := fmt.Sprintf("digest%d", f.nextID)
	f.digests[id] = text
	return models.Post{ID: id, ThreadID: threadID, Author: "trackerbot"}, nil
}

func (f *fakeSource) Edit(_ context.Context, postID, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.digests[postID]; !ok {
		return fmt.Errorf("edit unknown digest %s", postID)
	}
	f.digests[postID] = text
	return nil
}

func (f *fakeSource) Delete(_ context.Context, postID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return f.deleteErr
	}
	delete(f.digests, postID)
	f.deleted = append(f.deleted, postID)
	return nil
}

func (f *fakeSource) PinAndLock(_ context.Context, postID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pinned[postID] = true
	return nil
}

func (f *fakeSource) Follow(_ context.Context, username string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.followed[models.Key(username)] = true
	return username, nil
}

func (f *fakeSource) Unfollow(_ context.Context, username string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.followed, models.Key(username))
	return nil
}

func (f *fakeSource) UserAbout(_ context.Context, username string, recent int) (models.UserAbout, error) {
	return models.UserAbout{Name: username, Created: 1234}, nil
}

type statusChange struct {
	author models.TrackedAuthor
	from   models.AuthorStatus
	by     models.Supervisor
}

type fakeNotifier struct {
	mu         sync.Mutex
	requests   []models.ApprovalRequest
	logs       []models.ModerationEntry
	statuses   []statusChange
	expertises []models.TrackedAuthor

	requestErr error
	logErr     error
}

func (n *fakeNotifier) PostApprovalRequest(_ context.Context, req models.ApprovalRequest) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.requestErr != nil {
		return n.requestErr
	}
	n.requests = append(n.requests, req)
	return nil
}

func (n *fakeNotifier) PostModerationLog(_ context.Context, entry models.ModerationEntry) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.logErr != nil {
		return n.logErr
	}
	n.logs = append(n.logs, entry)
	return nil
}

func (n *fakeNotifier) PostStatusChange(_ context.Context, author models.TrackedAuthor, from models.AuthorStatus, by models.Supervisor) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.statuses = append(n.statuses, statusChange{author: author, from: from, by: by})
	return nil
}

func (n *fakeNotifier) PostExpertiseChange(_ context.Context, author models.TrackedAuthor, _ models.Supervisor) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.expertises = append(n.expertises, author)
	return nil
}

type harness struct {
	tracker  *Tracker
	store    *database.Store
	source   *fakeSource
	notifier *fakeNotifier
}

var testFormat = models.FormatConfig{
	TotalCharLimit:             200,
	ContextCharLimit:           40,
	EntryTemplate:              "{{.Author}} {{.Permalink}} {{.Timestamp}}\n{{.Body}}",
	EntryWithExpertiseTemplate: "{{.Author}} ({{.Expertise}}) {{.Permalink}} {{.Timestamp}}\n{{.Body}}",
	ContextTemplate:            "> {{.Context}}\n",
	CommentTemplate:            "{{.Comment}}",
	Footer:                     "\n\n--footer--",
}

func newHarness(t *testing.T, authors ...models.TrackedAuthor) *harness {
	t.Helper()
	ctx := context.Background()

	store, err := database.Open(ctx, database.DriverSQLite3, filepath.Join(t.TempDir(), "tracker.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	mod := models.Supervisor{Name: "setup", ID: "0"}
	for _, a := range authors {
		if err := store.UpsertAuthor(ctx, a.Username, a.Status, mod); err != nil {
			t.Fatal(err)
		}
		if a.Expertise != "" {
			if err := store.UpdateAuthorExpertise(ctx, a.Username, a.Expertise, mod); err != nil {
				t.Fatal(err)
			}
		}
	}

	source := newFakeSource()
	notifier := &fakeNotifier{}
	tr, err := New(source, store, store, notifier, Options{
		TargetForum:    testForum,
		SourceFeed:     "friends",
		BatchSize:      100,
		MinEpoch:       1000,
		UpdateDayLimit: 30,
		ExpertiseMax:   10,
		Format:         testFormat,
		Now:            func() time.Time { return time.Unix(2_000_000, 0) },
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := tr.LoadRoster(ctx); err != nil {
		t.Fatalf("LoadRoster: %v", err)
	}
	return &harness{tracker: tr, store: store, source: source, notifier: notifier}
}

func post(id, thread, author string, created int64) models.Post {
	return models.Post{
		ID:       id,
		ThreadID: thread,
		Author:   author,
		Forum:    testForum,
		Body:     "Body of " + id + ".",
		Created:  created,
	}
}

func (h *harness) status(t *testing.T, postID string) models.ApprovalStatus {
	t.Helper()
	p, err := h.store.GetPost(context.Background(), postID)
	if err != nil {
		t.Fatalf("GetPost(%s): %v", postID, err)
	}
	return p.Status
}

func (h *harness) pending(t *testing.T) []string {
	t.Helper()
	ids, err := h.store.Pending(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	return ids
}
