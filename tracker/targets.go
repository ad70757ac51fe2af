package tracker

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"tracker-bot/models"
)

// ErrAlreadyTracked is returned when adding an author who is already on the roster.
var ErrAlreadyTracked = errors.New("author is already tracked")

// recentCommentPreview is how many recent comments PreviewAuthor loads.
const recentCommentPreview = 3

// PreviewAuthor loads the source profile of a prospective author. Authors
// already on the roster are refused with ErrAlreadyTracked.
func (t *Tracker) PreviewAuthor(ctx context.Context, username string) (models.UserAbout, error) {
	if _, ok := t.roster.Find(username); ok {
		return models.UserAbout{}, fmt.Errorf("%s: %w", username, ErrAlreadyTracked)
	}
	return t.source.UserAbout(ctx, username, recentCommentPreview)
}

// AddAuthor follows a user on the source and puts them on the roster as Active.
// A previously suspended author keeps their stored expertise.
func (t *Tracker) AddAuthor(ctx context.Context, username string, by models.Supervisor) (models.TrackedAuthor, error) {
	unlock := t.authors.Lock(models.Key(username))
	defer unlock()

	if _, ok := t.roster.Find(username); ok {
		return models.TrackedAuthor{}, fmt.Errorf("%s: %w", username, ErrAlreadyTracked)
	}

	name, err := t.source.Follow(ctx, username)
	if err != nil {
		return models.TrackedAuthor{}, err
	}
	if err := t.store.UpsertAuthor(ctx, name, models.StatusActive, by); err != nil {
		return models.TrackedAuthor{}, err
	}
	author, err := t.store.GetAuthor(ctx, name)
	if err != nil {
		return models.TrackedAuthor{}, err
	}
	t.roster.Put(author)
	logf(ctx, "%s added %s to the roster", by.Name, author.Username)
	return author, nil
}

// SetAuthorStatus changes a tracked author's status and logs the change.
// Suspending goes through SuspendAuthor.
func (t *Tracker) SetAuthorStatus(ctx context.Context, username string, status models.AuthorStatus, by models.Supervisor) (models.TrackedAuthor, error) {
	unlock := t.authors.Lock(models.Key(username))
	defer unlock()

	if status == models.StatusSuspended {
		return t.suspendAuthor(ctx, username, by)
	}
	author, ok := t.roster.Find(username)
	if !ok {
		return models.TrackedAuthor{}, fmt.Errorf("author %s: %w", username, models.ErrNotFound)
	}
	if status == models.StatusUnknown {
		return author, fmt.Errorf("cannot set status %s: %w", status, models.ErrInvalidState)
	}

	from := author.Status
	if err := t.store.UpdateAuthorStatus(ctx, author.Username, status, by); err != nil {
		return author, err
	}
	author, ok = t.roster.Update(author.Username, func(a *models.TrackedAuthor) { a.Status = status })
	if !ok {
		return author, fmt.Errorf("author %s left the roster: %w", username, models.ErrNotFound)
	}

	if err := t.notifier.PostStatusChange(ctx, author, from, by); err != nil {
		return author, &models.PartialFailureError{Step: "status log", Err: err}
	}
	return author, nil
}

// SetAuthorExpertise changes the expertise label shown in digests. Labels
// longer than the configured maximum are cut.
func (t *Tracker) SetAuthorExpertise(ctx context.Context, username, expertise string, by models.Supervisor) (models.TrackedAuthor, error) {
	unlock := t.authors.Lock(models.Key(username))
	defer unlock()

	author, ok := t.roster.Find(username)
	if !ok {
		return models.TrackedAuthor{}, fmt.Errorf("author %s: %w", username, models.ErrNotFound)
	}

	expertise = strings.TrimSpace(expertise)
	if r := []rune(expertise); t.opts.ExpertiseMax > 0 && len(r) > t.opts.ExpertiseMax {
		expertise = string(r[:t.opts.ExpertiseMax])
	}

	if err := t.store.UpdateAuthorExpertise(ctx, author.Username, expertise, by); err != nil {
		return author, err
	}
	author, ok = t.roster.Update(author.Username, func(a *models.TrackedAuthor) { a.Expertise = expertise })
	if !ok {
		return author, fmt.Errorf("author %s left the roster: %w", username, models.ErrNotFound)
	}

	if err := t.notifier.PostExpertiseChange(ctx, author, by); err != nil {
		return author, &models.PartialFailureError{Step: "expertise log", Err: err}
	}
	return author, nil
}

// SuspendAuthor unfollows an author, stores the Suspended status and removes
// them from the roster.
func (t *Tracker) SuspendAuthor(ctx context.Context, username string, by models.Supervisor) (models.TrackedAuthor, error) {
	unlock := t.authors.Lock(models.Key(username))
	defer unlock()
	return t.suspendAuthor(ctx, username, by)
}

// suspendAuthor does the work of SuspendAuthor. The caller holds the author lock.
func (t *Tracker) suspendAuthor(ctx context.Context, username string, by models.Supervisor) (models.TrackedAuthor, error) {
	author, ok := t.roster.Find(username)
	if !ok {
		return models.TrackedAuthor{}, fmt.Errorf("author %s: %w", username, models.ErrNotFound)
	}

	if err := t.source.Unfollow(ctx, author.Username); err != nil && !errors.Is(err, models.ErrNotFound) {
		return author, err
	}
	if err := t.store.UpdateAuthorStatus(ctx, author.Username, models.StatusSuspended, by); err != nil {
		return author, err
	}
	if err := t.store.DeleteEditSession(ctx, author.Username); err != nil {
		logf(ctx, "failed to clear edit session of %s: %v", author.Username, err)
	}
	t.roster.Remove(author.Username)

	from := author.Status
	author.Status = models.StatusSuspended
	author.MessageID, author.ChannelID = "", ""
	if err := t.notifier.PostStatusChange(ctx, author, from, by); err != nil {
		return author, &models.PartialFailureError{Step: "status log", Err: err}
	}
	return author, nil
}

// MassSuspend suspends every listed author, continuing past failures. It
// returns the names that were suspended.
func (t *Tracker) MassSuspend(ctx context.Context, usernames []string, by models.Supervisor) ([]string, error) {
	var suspended []string
	var errs []error
	for _, name := range usernames {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		author, err := t.SuspendAuthor(ctx, name, by)
		var partial *models.PartialFailureError
		if err != nil && !errors.As(err, &partial) {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
			continue
		}
		suspended = append(suspended, author.Username)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
	}
	return suspended, errors.Join(errs...)
}

// OpenEditSession remembers the message hosting an author's edit menu.
func (t *Tracker) OpenEditSession(ctx context.Context, username, messageID, channelID string) error {
	unlock := t.authors.Lock(models.Key(username))
	defer unlock()

	author, ok := t.roster.Find(username)
	if !ok {
		return fmt.Errorf("author %s: %w", username, models.ErrNotFound)
	}
	if err := t.store.SaveEditSession(ctx, author.Username, messageID, channelID); err != nil {
		return err
	}
	t.roster.Update(author.Username, func(a *models.TrackedAuthor) {
		a.MessageID, a.ChannelID = messageID, channelID
	})
	return nil
}

// CloseEditSession forgets an author's edit menu.
func (t *Tracker) CloseEditSession(ctx context.Context, username string) error {
	unlock := t.authors.Lock(models.Key(username))
	defer unlock()

	if err := t.store.DeleteEditSession(ctx, username); err != nil {
		return err
	}
	t.roster.Update(username, func(a *models.TrackedAuthor) {
		a.MessageID, a.ChannelID = "", ""
	})
	return nil
}
