package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"tracker-bot/models"
)

// ActiveContexts maps owner post id to the text of its active context snippet
// for every snippet recorded in a thread.
func (s *Store) ActiveContexts(ctx context.Context, threadID string) (map[string]string, error) {
	query := s.rebind(`SELECT owner_post_id, text FROM contexts WHERE thread_id = ? AND active = 1`)

	rows, err := s.db.QueryContext(ctx, query, threadID)
	if err != nil {
		return nil, storeErr(fmt.Sprintf("query contexts of %s", threadID), err)
	}
	defer rows.Close()

	contexts := make(map[string]string)
	for rows.Next() {
		var owner, text string
		if err := rows.Scan(&owner, &text); err != nil {
			return nil, storeErr("scan context", err)
		}
		contexts[owner] = text
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("iterate contexts", err)
	}
	return contexts, nil
}

// GetThread returns the digest mapping for a thread. The boolean is false when
// no digest has been published for it.
func (s *Store) GetThread(ctx context.Context, threadID string) (models.Thread, bool, error) {
	query := s.rebind(`SELECT thread_id, digest_post_id, updated_at FROM threads WHERE thread_id = ?`)

	var t models.Thread
	err := s.db.QueryRowContext(ctx, query, threadID).Scan(&t.ThreadID, &t.DigestPostID, &t.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return t, false, nil
	}
	if err != nil {
		return t, false, storeErr(fmt.Sprintf("get thread %s", threadID), err)
	}
	return t, true, nil
}

// SaveThread records the digest post published for a thread.
func (s *Store) SaveThread(ctx context.Context, threadID, digestPostID string) error {
	query := s.rebind(`
    INSERT INTO threads (thread_id, digest_post_id, updated_at) VALUES (?, ?, ?)
    ON CONFLICT (thread_id) DO UPDATE SET
        digest_post_id = excluded.digest_post_id,
        updated_at = excluded.updated_at`)
	if _, err := s.db.ExecContext(ctx, query, threadID, digestPostID, s.unix()); err != nil {
		return storeErr(fmt.Sprintf("save thread %s", threadID), err)
	}
	return nil
}

// TouchThread bumps a thread's updated_at after its digest was edited.
func (s *Store) TouchThread(ctx context.Context, threadID string) error {
	query := s.rebind(`UPDATE threads SET updated_at = ? WHERE thread_id = ?`)
	return s.execOne(ctx, query, fmt.Sprintf("thread %s", threadID), s.unix(), threadID)
}

// RetireThread deletes a thread mapping and runs remove inside the same
// transaction. The row is only gone if remove succeeds.
func (s *Store) RetireThread(ctx context.Context, threadID string, remove func(context.Context) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return storeErr("begin transaction", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, s.rebind(`DELETE FROM threads WHERE thread_id = ?`), threadID); err != nil {
		return storeErr(fmt.Sprintf("delete thread %s", threadID), err)
	}
	if err := remove(ctx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return storeErr("commit thread removal", err)
	}
	return nil
}

// ThreadsSince returns threads whose digest changed after since, most recent
// first, capped at limit.
func (s *Store) ThreadsSince(ctx context.Context, since int64, limit int) ([]string, error) {
	query := s.rebind(`
    SELECT thread_id FROM threads
    WHERE updated_at > ?
    ORDER BY updated_at DESC
    LIMIT ?`)

	rows, err := s.db.QueryContext(ctx, query, since, limit)
	if err != nil {
		return nil, storeErr("query threads", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, storeErr("scan thread", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("iterate threads", err)
	}
	return ids, nil
}
