// Package tracker watches monitored authors, gates their posts through
// moderator approval and keeps one digest post per thread in sync with the
// approved set.
package tracker

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"tracker-bot/models"
)

// ContentSource is the forum the tracked posts live on.
type ContentSource interface {
	ListRecent(ctx context.Context, feed string, limit int) ([]models.Post, error)
	GetByIDs(ctx context.Context, ids []string) ([]models.Post, error)
	Submit(ctx context.Context, threadID, text string) (models.Post, error)
	Edit(ctx context.Context, postID, text string) error
	Delete(ctx context.Context, postID string) error
	PinAndLock(ctx context.Context, postID string) error
	Follow(ctx context.Context, username string) (string, error)
	Unfollow(ctx context.Context, username string) error
	UserAbout(ctx context.Context, username string, recent int) (models.UserAbout, error)
}

// Store persists authors, posts, context snippets and thread digests.
type Store interface {
	ListAuthors(ctx context.Context) ([]models.TrackedAuthor, error)
	GetAuthor(ctx context.Context, username string) (models.TrackedAuthor, error)
	UpsertAuthor(ctx context.Context, username string, status models.AuthorStatus, by models.Supervisor) error
	UpdateAuthorStatus(ctx context.Context, username string, status models.AuthorStatus, by models.Supervisor) error
	UpdateAuthorExpertise(ctx context.Context, username, expertise string, by models.Supervisor) error
	SaveEditSession(ctx context.Context, username, messageID, channelID string) error
	DeleteEditSession(ctx context.Context, username string) error

	InsertPost(ctx context.Context, p models.TrackedPost, snippets []models.ContextSnippet) (bool, error)
	PostExists(ctx context.Context, postID string) (bool, error)
	GetPost(ctx context.Context, postID string) (models.TrackedPost, error)
	SetPostStatus(ctx context.Context, postID string, status models.ApprovalStatus, by models.Supervisor) (string, error)
	UpdatePostText(ctx context.Context, postID, text string, epoch int64) (bool, error)
	OverwritePost(ctx context.Context, postID, text string, epoch int64) error
	DeletePost(ctx context.Context, postID string) error
	ApprovedPosts(ctx context.Context, threadID string) ([]models.TrackedPost, error)
	PostEpochsSince(ctx context.Context, since int64, limit int) (map[string]int64, error)
	ApprovedEpochs(ctx context.Context, threadID string) (map[string]int64, error)
	ActiveContexts(ctx context.Context, threadID string) (map[string]string, error)

	GetThread(ctx context.Context, threadID string) (models.Thread, bool, error)
	SaveThread(ctx context.Context, threadID, digestPostID string) error
	TouchThread(ctx context.Context, threadID string) error
	RetireThread(ctx context.Context, threadID string, remove func(context.Context) error) error
	ThreadsSince(ctx context.Context, since int64, limit int) ([]string, error)
}

// PendingSet is the queue of threads whose digest must be recomputed.
type PendingSet interface {
	Enqueue(ctx context.Context, threadID string) error
	Dequeue(ctx context.Context, threadID string) error
	Pending(ctx context.Context) ([]string, error)
}

// Notifier delivers moderator-facing messages. Errors mean the message was not delivered.
type Notifier interface {
	PostApprovalRequest(ctx context.Context, req models.ApprovalRequest) error
	PostModerationLog(ctx context.Context, entry models.ModerationEntry) error
	PostStatusChange(ctx context.Context, author models.TrackedAuthor, from models.AuthorStatus, by models.Supervisor) error
	PostExpertiseChange(ctx context.Context, author models.TrackedAuthor, by models.Supervisor) error
}

// Observer receives counters about tracker activity.
type Observer interface {
	PostIngested(author string)
	PostModerated(status models.ApprovalStatus)
	DigestPublished(kind string)
	PendingDepth(n int)
}

type nopObserver struct{}

func (nopObserver) PostIngested(string)                 {}
func (nopObserver) PostModerated(models.ApprovalStatus) {}
func (nopObserver) DigestPublished(string)              {}
func (nopObserver) PendingDepth(int)                    {}

const (
	// recentPostLimit caps how many stored posts one detect pass re-checks.
	recentPostLimit = 1000
	// resyncThreadLimit caps how many threads a forced resync visits.
	resyncThreadLimit = 100
	day               = 24 * time.Hour
)

// Options configures a Tracker.
type Options struct {
	TargetForum    string
	SourceFeed     string
	BatchSize      int
	MinEpoch       int64
	UpdateDayLimit int
	// ApprovalDelay is slept after each approval request.
	ApprovalDelay time.Duration
	// UpdateDelay is slept between digest publishes during a drain.
	UpdateDelay  time.Duration
	ExpertiseMax int
	Format       models.FormatConfig
	Observer     Observer
	Now          func() time.Time
}

// Tracker ties the content source, store and notifier together.
type Tracker struct {
	source   ContentSource
	store    Store
	pending  PendingSet
	notifier Notifier
	opts     Options
	obs      Observer
	now      func() time.Time

	roster  *Roster
	threads *keyedMutex
	authors *keyedMutex
	digest  *digestTemplates
}

// New builds a Tracker. The roster starts empty; call LoadRoster before the first cycle.
func New(source ContentSource, store Store, pending PendingSet, notifier Notifier, opts Options) (*Tracker, error) {
	tmpl, err := parseDigestTemplates(opts.Format)
	if err != nil {
		return nil, err
	}
	if opts.SourceFeed == "" {
		opts.SourceFeed = opts.TargetForum
	}
	t := &Tracker{
		source:   source,
		store:    store,
		pending:  pending,
		notifier: notifier,
		opts:     opts,
		obs:      opts.Observer,
		now:      opts.Now,
		roster:   NewRoster(),
		threads:  newKeyedMutex(),
		authors:  newKeyedMutex(),
		digest:   tmpl,
	}
	if t.obs == nil {
		t.obs = nopObserver{}
	}
	if t.now == nil {
		t.now = time.Now
	}
	return t, nil
}

// LoadRoster replaces the in-memory roster with the stored authors.
func (t *Tracker) LoadRoster(ctx context.Context) error {
	authors, err := t.store.ListAuthors(ctx)
	if err != nil {
		return fmt.Errorf("load roster: %w", err)
	}
	t.roster.Replace(authors)
	log.Printf("[tracker] loaded %d tracked authors", t.roster.Len())
	return nil
}

// Roster exposes the in-memory author roster.
func (t *Tracker) Roster() *Roster {
	return t.roster
}

// CycleResult summarises one scheduled pass.
type CycleResult struct {
	Ingested int
	Changed  int
	Drained  int
}

// RunCycle runs ingestion, the detect phase and the drain phase in order. A
// failing phase is logged and does not prevent the next one from running; the
// joined error reports every failure.
func (t *Tracker) RunCycle(ctx context.Context) (CycleResult, error) {
	var res CycleResult
	var errs []error

	n, err := t.Ingest(ctx)
	res.Ingested = n
	if err != nil {
		errs = append(errs, fmt.Errorf("ingest: %w", err))
	}
	if ctx.Err() != nil {
		return res, errors.Join(append(errs, ctx.Err())...)
	}

	n, err = t.FindUpdates(ctx)
	res.Changed = n
	if err != nil {
		errs = append(errs, fmt.Errorf("find updates: %w", err))
	}
	if ctx.Err() != nil {
		return res, errors.Join(append(errs, ctx.Err())...)
	}

	n, err = t.DrainUpdates(ctx)
	res.Drained = n
	if err != nil {
		errs = append(errs, fmt.Errorf("drain updates: %w", err))
	}

	return res, errors.Join(errs...)
}

type cycleIDKey struct{}

// WithCycleID tags ctx with an id that prefixes the tracker's log lines.
func WithCycleID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, cycleIDKey{}, id)
}

func logf(ctx context.Context, format string, args ...any) {
	if id, ok := ctx.Value(cycleIDKey{}).(string); ok && id != "" {
		log.Printf("[tracker] [%s] "+format, append([]any{id}, args...)...)
		return
	}
	log.Printf("[tracker] "+format, args...)
}

// sleep waits for d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
