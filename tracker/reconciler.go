package tracker

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"tracker-bot/models"
)

func (t *Tracker) windowStart(days int) int64 {
	return t.now().Add(-time.Duration(days) * day).Unix()
}

// FindUpdates re-fetches posts seen within the update window. Posts deleted
// upstream are forgotten and posts edited since they were stored get their new
// text. Either change queues the post's thread. It returns the number of
// changed posts.
func (t *Tracker) FindUpdates(ctx context.Context) (int, error) {
	epochs, err := t.store.PostEpochsSince(ctx, t.windowStart(t.opts.UpdateDayLimit), recentPostLimit)
	if err != nil {
		return 0, err
	}
	if len(epochs) == 0 {
		return 0, nil
	}

	ids := make([]string, 0, len(epochs))
	for id := range epochs {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	live, err := t.source.GetByIDs(ctx, ids)
	if err != nil {
		return 0, fmt.Errorf("fetch tracked posts: %w", err)
	}

	var errs []error
	changed := 0
	for _, p := range live {
		stored, ok := epochs[p.ID]
		if !ok {
			continue
		}
		updated, err := t.detectChange(ctx, p, stored)
		if err != nil {
			logf(ctx, "failed to reconcile post %s: %v", p.ID, err)
			errs = append(errs, fmt.Errorf("post %s: %w", p.ID, err))
			continue
		}
		if updated {
			changed++
		}
	}
	return changed, errors.Join(errs...)
}

func (t *Tracker) detectChange(ctx context.Context, p models.Post, storedEpoch int64) (bool, error) {
	unlock := t.threads.Lock(p.ThreadID)
	defer unlock()

	if p.Deleted() {
		if err := t.store.DeletePost(ctx, p.ID); err != nil {
			return false, err
		}
		logf(ctx, "post %s was deleted upstream, thread %s queued", p.ID, p.ThreadID)
		return true, t.pending.Enqueue(ctx, p.ThreadID)
	}

	// Never-edited posts and revisions not newer than the stored one are unchanged.
	if p.Edited == 0 || p.Edited <= storedEpoch {
		return false, nil
	}
	updated, err := t.store.UpdatePostText(ctx, p.ID, p.Body, p.Edited)
	if err != nil || !updated {
		return false, err
	}
	logf(ctx, "post %s was edited, thread %s queued", p.ID, p.ThreadID)
	return true, t.pending.Enqueue(ctx, p.ThreadID)
}

// DrainUpdates republishes the digest of every queued thread. A thread leaves
// the queue only after its digest was published; failed threads stay queued
// for the next drain. It returns the number of threads drained.
func (t *Tracker) DrainUpdates(ctx context.Context) (int, error) {
	ids, err := t.pending.Pending(ctx)
	if err != nil {
		return 0, err
	}
	t.obs.PendingDepth(len(ids))

	var errs []error
	drained := 0
	for i, threadID := range ids {
		if err := t.drainThread(ctx, threadID); err != nil {
			logf(ctx, "failed to update digest of thread %s: %v", threadID, err)
			errs = append(errs, fmt.Errorf("thread %s: %w", threadID, err))
		} else {
			drained++
			t.obs.PendingDepth(len(ids) - drained)
		}
		if i < len(ids)-1 {
			if err := sleep(ctx, t.opts.UpdateDelay); err != nil {
				return drained, errors.Join(append(errs, err)...)
			}
		}
	}
	return drained, errors.Join(errs...)
}

func (t *Tracker) drainThread(ctx context.Context, threadID string) error {
	unlock := t.threads.Lock(threadID)
	defer unlock()

	if _, err := t.resync(ctx, threadID); err != nil {
		return err
	}
	return t.pending.Dequeue(ctx, threadID)
}

// ForceResync overwrites every approved post of the threads whose digest
// changed within the last days with its live text, ignoring edit timestamps,
// and queues those threads. It sleeps delay between threads and returns the
// number of posts refreshed.
func (t *Tracker) ForceResync(ctx context.Context, days int, delay time.Duration) (int, error) {
	threads, err := t.store.ThreadsSince(ctx, t.windowStart(days), resyncThreadLimit)
	if err != nil {
		return 0, err
	}

	var errs []error
	total := 0
	for i, threadID := range threads {
		n, err := t.resyncThreadPosts(ctx, threadID)
		total += n
		if err != nil {
			logf(ctx, "failed to force update thread %s: %v", threadID, err)
			errs = append(errs, fmt.Errorf("thread %s: %w", threadID, err))
		}
		if i < len(threads)-1 {
			if err := sleep(ctx, delay); err != nil {
				return total, errors.Join(append(errs, err)...)
			}
		}
	}
	logf(ctx, "force update refreshed %d posts in %d threads", total, len(threads))
	return total, errors.Join(errs...)
}

func (t *Tracker) resyncThreadPosts(ctx context.Context, threadID string) (int, error) {
	unlock := t.threads.Lock(threadID)
	defer unlock()

	epochs, err := t.store.ApprovedEpochs(ctx, threadID)
	if err != nil {
		return 0, err
	}
	ids := make([]string, 0, len(epochs))
	for id := range epochs {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var errs []error
	updated := 0
	if len(ids) > 0 {
		live, err := t.source.GetByIDs(ctx, ids)
		if err != nil {
			return 0, fmt.Errorf("fetch posts: %w", err)
		}
		for _, p := range live {
			if _, ok := epochs[p.ID]; !ok {
				continue
			}
			if p.Deleted() {
				err = t.store.DeletePost(ctx, p.ID)
			} else {
				err = t.store.OverwritePost(ctx, p.ID, p.Body, p.Epoch())
			}
			if err != nil {
				errs = append(errs, fmt.Errorf("post %s: %w", p.ID, err))
				continue
			}
			updated++
		}
	}

	if err := t.pending.Enqueue(ctx, threadID); err != nil {
		errs = append(errs, err)
	}
	return updated, errors.Join(errs...)
}
