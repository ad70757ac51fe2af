package tracker

import (
	"context"
	"errors"
	"fmt"

	"tracker-bot/models"
)

// fetchLive returns the current upstream state of a post.
func (t *Tracker) fetchLive(ctx context.Context, postID string) (models.Post, error) {
	live, err := t.source.GetByIDs(ctx, []string{postID})
	if err != nil {
		return models.Post{}, fmt.Errorf("fetch post %s: %w", postID, err)
	}
	for _, p := range live {
		if p.ID == postID {
			return p, nil
		}
	}
	return models.Post{}, fmt.Errorf("post %s: %w", postID, models.ErrNotFound)
}

// rejectDeleted logs an invalid moderation entry for a post removed upstream.
func (t *Tracker) rejectDeleted(ctx context.Context, p models.Post) error {
	err := fmt.Errorf("post %s was deleted upstream: %w", p.ID, models.ErrInvalidState)
	entry := models.ModerationEntry{Post: p, Forum: t.opts.TargetForum, Supervisor: "Invalid Post - Deleted", Invalid: true}
	if logErr := t.notifier.PostModerationLog(ctx, entry); logErr != nil {
		return errors.Join(err, fmt.Errorf("moderation log: %w", logErr))
	}
	return err
}

// Approve marks a post approved, republishes its thread's digest and writes a
// moderation log entry. A post deleted upstream is logged as invalid and
// reported with ErrInvalidState. Failures after the status was stored are
// reported as *models.PartialFailureError.
func (t *Tracker) Approve(ctx context.Context, postID string, by models.Supervisor) error {
	live, err := t.fetchLive(ctx, postID)
	if err != nil {
		return err
	}
	if live.Deleted() {
		return t.rejectDeleted(ctx, live)
	}

	unlock := t.threads.Lock(live.ThreadID)
	threadID, err := t.store.SetPostStatus(ctx, postID, models.ApprovalApproved, by)
	if err != nil {
		unlock()
		return err
	}
	t.obs.PostModerated(models.ApprovalApproved)
	digestID, pubErr := t.resync(ctx, threadID)
	unlock()

	if pubErr != nil {
		logf(ctx, "failed to publish digest of thread %s after approving %s, queued for retry: %v", threadID, postID, pubErr)
		if err := t.pending.Enqueue(ctx, threadID); err != nil {
			pubErr = errors.Join(pubErr, err)
		}
		return &models.PartialFailureError{Step: "publish digest", Err: pubErr}
	}

	entry := models.ModerationEntry{
		Post:         live,
		Forum:        t.opts.TargetForum,
		Supervisor:   by.Name,
		Approved:     true,
		DigestPostID: digestID,
	}
	if err := t.notifier.PostModerationLog(ctx, entry); err != nil {
		return &models.PartialFailureError{Step: "moderation log", Err: err}
	}
	return nil
}

// Deny marks a post denied and writes a moderation log entry. Denying a post
// that was approved queues its thread so the digest drops it.
func (t *Tracker) Deny(ctx context.Context, postID string, by models.Supervisor) error {
	live, err := t.fetchLive(ctx, postID)
	if err != nil {
		return err
	}
	if live.Deleted() {
		return t.rejectDeleted(ctx, live)
	}

	unlock := t.threads.Lock(live.ThreadID)
	prev, err := t.store.GetPost(ctx, postID)
	if err != nil {
		unlock()
		return err
	}
	threadID, err := t.store.SetPostStatus(ctx, postID, models.ApprovalDenied, by)
	if err != nil {
		unlock()
		return err
	}
	t.obs.PostModerated(models.ApprovalDenied)
	var queueErr error
	if prev.Status == models.ApprovalApproved {
		queueErr = t.pending.Enqueue(ctx, threadID)
	}
	unlock()
	if queueErr != nil {
		return &models.PartialFailureError{Step: "queue digest update", Err: queueErr}
	}

	entry := models.ModerationEntry{Post: live, Forum: t.opts.TargetForum, Supervisor: by.Name}
	if err := t.notifier.PostModerationLog(ctx, entry); err != nil {
		return &models.PartialFailureError{Step: "moderation log", Err: err}
	}
	return nil
}

// Switch flips the stored decision of a post and resyncs its thread's digest
// immediately. It returns the new status.
func (t *Tracker) Switch(ctx context.Context, postID string, by models.Supervisor) (models.ApprovalStatus, error) {
	stored, err := t.store.GetPost(ctx, postID)
	if err != nil {
		return models.ApprovalNone, err
	}

	unlock := t.threads.Lock(stored.ThreadID)
	defer unlock()

	// Re-read under the lock; a concurrent action may have changed it.
	stored, err = t.store.GetPost(ctx, postID)
	if err != nil {
		return models.ApprovalNone, err
	}
	next := stored.Status.Flip()
	threadID, err := t.store.SetPostStatus(ctx, postID, next, by)
	if err != nil {
		return stored.Status, err
	}
	t.obs.PostModerated(next)

	if _, err := t.resync(ctx, threadID); err != nil {
		logf(ctx, "failed to resync thread %s after switching %s, queued for retry: %v", threadID, postID, err)
		if qErr := t.pending.Enqueue(ctx, threadID); qErr != nil {
			err = errors.Join(err, qErr)
		}
		return next, &models.PartialFailureError{Step: "publish digest", Err: err}
	}
	logf(ctx, "post %s switched to %s by %s", postID, next, by.Name)
	return next, nil
}
