package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"tracker-bot/models"
)

const postColumns = `seq, post_id, thread_id, author, status, supervisor_name, supervisor_id, last_seen_epoch, text`

// InsertPost records a newly observed post together with its context snippets
// in one transaction. It reports false, and writes nothing, when the post id is
// already known.
func (s *Store) InsertPost(ctx context.Context, p models.TrackedPost, snippets []models.ContextSnippet) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, storeErr("begin transaction", err)
	}
	defer tx.Rollback()

	query := s.rebind(`
    INSERT INTO posts (
        post_id, thread_id, author, status, supervisor_name, supervisor_id, last_seen_epoch, text, updated_at
    ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
    ON CONFLICT (post_id) DO NOTHING`)

	res, err := tx.ExecContext(ctx, query,
		p.PostID, p.ThreadID, p.Author, int(p.Status), p.SupervisorName, p.SupervisorID,
		p.LastSeenEpoch, p.Text, s.unix(),
	)
	if err != nil {
		return false, storeErr(fmt.Sprintf("insert post %s", p.PostID), err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, storeErr(fmt.Sprintf("insert post %s", p.PostID), err)
	}
	if n == 0 {
		return false, nil
	}

	ctxQuery := s.rebind(`
    INSERT INTO contexts (context_id, thread_id, owner_post_id, active, text)
    VALUES (?, ?, ?, ?, ?)
    ON CONFLICT (owner_post_id, context_id) DO NOTHING`)
	for _, c := range snippets {
		if _, err := tx.ExecContext(ctx, ctxQuery, c.ContextID, c.ThreadID, c.OwnerPostID, boolToInt(c.Active), c.Text); err != nil {
			return false, storeErr(fmt.Sprintf("insert context %s for %s", c.ContextID, c.OwnerPostID), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return false, storeErr("commit post", err)
	}
	return true, nil
}

// PostExists reports whether a post id has been recorded.
func (s *Store) PostExists(ctx context.Context, postID string) (bool, error) {
	query := s.rebind(`SELECT 1 FROM posts WHERE post_id = ?`)
	var one int
	err := s.db.QueryRowContext(ctx, query, postID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, storeErr(fmt.Sprintf("look up post %s", postID), err)
	}
	return true, nil
}

// GetPost returns the stored record for a post id.
func (s *Store) GetPost(ctx context.Context, postID string) (models.TrackedPost, error) {
	query := s.rebind(`SELECT ` + postColumns + ` FROM posts WHERE post_id = ?`)
	p, err := scanPost(s.db.QueryRowContext(ctx, query, postID))
	if errors.Is(err, sql.ErrNoRows) {
		return p, fmt.Errorf("post %s: %w", postID, models.ErrNotFound)
	}
	if err != nil {
		return p, storeErr(fmt.Sprintf("get post %s", postID), err)
	}
	return p, nil
}

// SetPostStatus records a moderation decision and returns the post's thread id.
func (s *Store) SetPostStatus(ctx context.Context, postID string, status models.ApprovalStatus, by models.Supervisor) (string, error) {
	query := s.rebind(`
    UPDATE posts SET status = ?, supervisor_name = ?, supervisor_id = ?, updated_at = ?
    WHERE post_id = ?
    RETURNING thread_id`)

	var threadID string
	err := s.db.QueryRowContext(ctx, query, int(status), by.Name, by.ID, s.unix(), postID).Scan(&threadID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("post %s: %w", postID, models.ErrNotFound)
	}
	if err != nil {
		return "", storeErr(fmt.Sprintf("set status of post %s", postID), err)
	}
	return threadID, nil
}

// UpdatePostText stores a newer revision of a post. Revisions whose epoch is not
// newer than the stored one are ignored and reported as false.
func (s *Store) UpdatePostText(ctx context.Context, postID, text string, epoch int64) (bool, error) {
	query := s.rebind(`
    UPDATE posts SET text = ?, last_seen_epoch = ?, updated_at = ?
    WHERE post_id = ? AND last_seen_epoch < ?`)

	res, err := s.db.ExecContext(ctx, query, text, epoch, s.unix(), postID, epoch)
	if err != nil {
		return false, storeErr(fmt.Sprintf("update post %s", postID), err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, storeErr(fmt.Sprintf("update post %s", postID), err)
	}
	return n > 0, nil
}

// OverwritePost replaces a post's text unconditionally. The stored epoch never
// moves backwards.
func (s *Store) OverwritePost(ctx context.Context, postID, text string, epoch int64) error {
	query := s.rebind(`
    UPDATE posts SET
        text = ?,
        last_seen_epoch = CASE WHEN last_seen_epoch < ? THEN ? ELSE last_seen_epoch END,
        updated_at = ?
    WHERE post_id = ?`)
	return s.execOne(ctx, query, fmt.Sprintf("post %s", postID), text, epoch, epoch, s.unix(), postID)
}

// DeletePost removes a post and the context snippets it owns.
func (s *Store) DeletePost(ctx context.Context, postID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return storeErr("begin transaction", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, s.rebind(`DELETE FROM contexts WHERE owner_post_id = ?`), postID); err != nil {
		return storeErr(fmt.Sprintf("delete contexts of %s", postID), err)
	}
	if _, err := tx.ExecContext(ctx, s.rebind(`DELETE FROM posts WHERE post_id = ?`), postID); err != nil {
		return storeErr(fmt.Sprintf("delete post %s", postID), err)
	}
	if err := tx.Commit(); err != nil {
		return storeErr("commit delete", err)
	}
	return nil
}

// ApprovedPosts returns the approved posts of a thread, newest revision first.
// Posts with equal epochs keep their insertion order.
func (s *Store) ApprovedPosts(ctx context.Context, threadID string) ([]models.TrackedPost, error) {
	query := s.rebind(`SELECT ` + postColumns + ` FROM posts
    WHERE thread_id = ? AND status = ?
    ORDER BY last_seen_epoch DESC, seq ASC`)

	rows, err := s.db.QueryContext(ctx, query, threadID, int(models.ApprovalApproved))
	if err != nil {
		return nil, storeErr(fmt.Sprintf("query approved posts of %s", threadID), err)
	}
	defer rows.Close()

	var posts []models.TrackedPost
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, storeErr("scan post", err)
		}
		posts = append(posts, p)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("iterate posts", err)
	}
	return posts, nil
}

// PostEpochsSince maps post id to stored epoch for recent posts, newest first,
// capped at limit rows.
func (s *Store) PostEpochsSince(ctx context.Context, since int64, limit int) (map[string]int64, error) {
	query := s.rebind(`
    SELECT post_id, last_seen_epoch FROM posts
    WHERE last_seen_epoch > ?
    ORDER BY last_seen_epoch DESC
    LIMIT ?`)
	return s.queryEpochs(ctx, query, since, limit)
}

// ApprovedEpochs maps post id to stored epoch for the approved posts of a thread.
func (s *Store) ApprovedEpochs(ctx context.Context, threadID string) (map[string]int64, error) {
	query := s.rebind(`SELECT post_id, last_seen_epoch FROM posts WHERE thread_id = ? AND status = ?`)
	return s.queryEpochs(ctx, query, threadID, int(models.ApprovalApproved))
}

func (s *Store) queryEpochs(ctx context.Context, query string, args ...any) (map[string]int64, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storeErr("query post epochs", err)
	}
	defer rows.Close()

	epochs := make(map[string]int64)
	for rows.Next() {
		var id string
		var epoch int64
		if err := rows.Scan(&id, &epoch); err != nil {
			return nil, storeErr("scan post epoch", err)
		}
		epochs[id] = epoch
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("iterate post epochs", err)
	}
	return epochs, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPost(row rowScanner) (models.TrackedPost, error) {
	var p models.TrackedPost
	var status int
	err := row.Scan(&p.Seq, &p.PostID, &p.ThreadID, &p.Author, &status,
		&p.SupervisorName, &p.SupervisorID, &p.LastSeenEpoch, &p.Text)
	p.Status = models.ApprovalStatus(status)
	return p, err
}
