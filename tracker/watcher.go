package tracker

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"tracker-bot/models"
)

// Ingest fetches the newest posts, records the ones written by tracked authors
// in the target forum and routes them by author status. It returns how many
// posts were recorded. Failures of single posts are logged and joined into the
// returned error without stopping the batch.
func (t *Tracker) Ingest(ctx context.Context) (int, error) {
	posts, err := t.source.ListRecent(ctx, t.opts.SourceFeed, t.opts.BatchSize)
	if err != nil {
		return 0, fmt.Errorf("list recent posts: %w", err)
	}

	var errs []error
	candidates := make([]models.Post, 0, len(posts))
	var parentIDs []string
	for _, p := range posts {
		if !t.accepts(p) {
			continue
		}
		known, err := t.store.PostExists(ctx, p.ID)
		if err != nil {
			errs = append(errs, fmt.Errorf("post %s: %w", p.ID, err))
			continue
		}
		if known {
			continue
		}
		candidates = append(candidates, p)
		if p.IsReply() {
			parentIDs = append(parentIDs, p.ParentID)
		}
	}
	if len(candidates) == 0 {
		return 0, errors.Join(errs...)
	}

	parents := make(map[string]models.Post)
	if len(parentIDs) > 0 {
		fetched, err := t.source.GetByIDs(ctx, parentIDs)
		if err != nil {
			return 0, errors.Join(append(errs, fmt.Errorf("fetch reply contexts: %w", err))...)
		}
		for _, p := range fetched {
			parents[p.ID] = p
		}
	}

	ingested := 0
	for _, p := range candidates {
		if ctx.Err() != nil {
			errs = append(errs, ctx.Err())
			break
		}
		recorded, err := t.ingestPost(ctx, p, parents)
		if err != nil {
			logf(ctx, "failed to ingest post %s by %s: %v", p.ID, p.Author, err)
			errs = append(errs, fmt.Errorf("post %s: %w", p.ID, err))
		}
		if recorded {
			ingested++
		}
	}
	return ingested, errors.Join(errs...)
}

// accepts applies the cheap filters: age, forum and roster membership.
// Suspended and paused authors are dropped here and never recorded.
func (t *Tracker) accepts(p models.Post) bool {
	if p.Created < t.opts.MinEpoch {
		return false
	}
	if !strings.EqualFold(p.Forum, t.opts.TargetForum) {
		return false
	}
	a, ok := t.roster.Find(p.Author)
	if !ok {
		return false
	}
	return a.Status == models.StatusActive || a.Status == models.StatusAutomatic
}

func (t *Tracker) ingestPost(ctx context.Context, p models.Post, parents map[string]models.Post) (bool, error) {
	// The roster may have changed since filtering.
	author, ok := t.roster.Find(p.Author)
	if !ok {
		return false, nil
	}

	unlock := t.threads.Lock(p.ThreadID)
	record := models.TrackedPost{
		PostID:        p.ID,
		ThreadID:      p.ThreadID,
		Author:        p.Author,
		Status:        models.ApprovalNone,
		LastSeenEpoch: p.Epoch(),
		Text:          p.Body,
	}
	snippets := contextChain(p, parents)
	inserted, err := t.store.InsertPost(ctx, record, snippets)
	unlock()
	if err != nil || !inserted {
		return false, err
	}
	t.obs.PostIngested(author.Username)
	logf(ctx, "recorded post %s by %s in thread %s", p.ID, p.Author, p.ThreadID)

	switch author.Status {
	case models.StatusActive:
		req := models.ApprovalRequest{Post: p, Author: author}
		if len(snippets) > 0 {
			req.Context = snippets[0].Text
		}
		if err := t.notifier.PostApprovalRequest(ctx, req); err != nil {
			// Forget the post so the next cycle records it and asks again.
			if delErr := t.store.DeletePost(ctx, p.ID); delErr != nil {
				return true, errors.Join(fmt.Errorf("send approval request: %w", err), delErr)
			}
			return false, fmt.Errorf("send approval request: %w", err)
		}
		if err := sleep(ctx, t.opts.ApprovalDelay); err != nil {
			return true, err
		}
	case models.StatusAutomatic:
		if err := t.Approve(ctx, p.ID, models.AutomaticSupervisor); err != nil {
			return true, fmt.Errorf("automatic approval: %w", err)
		}
	}
	return true, nil
}

// contextChain walks from a reply up through the fetched parents. The direct
// parent is the active snippet; further ancestors found in the batch are kept
// inactive.
func contextChain(p models.Post, parents map[string]models.Post) []models.ContextSnippet {
	var snippets []models.ContextSnippet
	seen := map[string]bool{p.ID: true}
	for id := p.ParentID; id != "" && !seen[id]; {
		parent, ok := parents[id]
		if !ok {
			break
		}
		seen[id] = true
		snippets = append(snippets, models.ContextSnippet{
			ContextID:   parent.ID,
			ThreadID:    p.ThreadID,
			OwnerPostID: p.ID,
			Active:      len(snippets) == 0,
			Text:        parent.Body,
		})
		id = parent.ParentID
	}
	return snippets
}
