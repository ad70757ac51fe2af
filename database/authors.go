package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"tracker-bot/models"
)

// ListAuthors returns every roster entry that is not suspended, together with
// any open edit menu.
func (s *Store) ListAuthors(ctx context.Context) ([]models.TrackedAuthor, error) {
	query := s.rebind(`
    SELECT a.display_name, a.expertise, a.status,
           COALESCE(e.managing_msg, ''), COALESCE(e.msg_channel, '')
    FROM authors a
    LEFT JOIN edit_sessions e ON e.username = a.username
    WHERE a.status != ?
    ORDER BY a.username`)

	rows, err := s.db.QueryContext(ctx, query, int(models.StatusSuspended))
	if err != nil {
		return nil, storeErr("query authors", err)
	}
	defer rows.Close()

	var authors []models.TrackedAuthor
	for rows.Next() {
		var a models.TrackedAuthor
		var status int
		if err := rows.Scan(&a.Username, &a.Expertise, &status, &a.MessageID, &a.ChannelID); err != nil {
			return nil, storeErr("scan author", err)
		}
		a.Status = models.AuthorStatus(status)
		authors = append(authors, a)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("iterate authors", err)
	}
	return authors, nil
}

// UpsertAuthor adds an author to the roster or reactivates an existing row
// with the given status. The stored expertise is kept on reactivation.
func (s *Store) UpsertAuthor(ctx context.Context, username string, status models.AuthorStatus, by models.Supervisor) error {
	query := s.rebind(`
    INSERT INTO authors (
        username, display_name, status, supervisor_name, supervisor_id,
        last_modifier_name, last_modifier_id, last_modified
    ) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
    ON CONFLICT (username) DO UPDATE SET
        display_name = excluded.display_name,
        status = excluded.status,
        last_modifier_name = excluded.last_modifier_name,
        last_modifier_id = excluded.last_modifier_id,
        last_modified = excluded.last_modified`)

	_, err := s.db.ExecContext(ctx, query,
		models.Key(username), username, int(status), by.Name, by.ID,
		by.Name, by.ID, s.unix(),
	)
	if err != nil {
		return storeErr(fmt.Sprintf("upsert author %s", username), err)
	}
	return nil
}

// GetAuthor returns a roster row regardless of status.
func (s *Store) GetAuthor(ctx context.Context, username string) (models.TrackedAuthor, error) {
	query := s.rebind(`SELECT display_name, expertise, status FROM authors WHERE username = ?`)

	var a models.TrackedAuthor
	var status int
	err := s.db.QueryRowContext(ctx, query, models.Key(username)).Scan(&a.Username, &a.Expertise, &status)
	if errors.Is(err, sql.ErrNoRows) {
		return a, fmt.Errorf("author %s: %w", username, models.ErrNotFound)
	}
	if err != nil {
		return a, storeErr(fmt.Sprintf("get author %s", username), err)
	}
	a.Status = models.AuthorStatus(status)
	return a, nil
}

// UpdateAuthorStatus records a status change and who made it.
func (s *Store) UpdateAuthorStatus(ctx context.Context, username string, status models.AuthorStatus, by models.Supervisor) error {
	query := s.rebind(`
    UPDATE authors SET status = ?, last_modifier_name = ?, last_modifier_id = ?, last_modified = ?
    WHERE username = ?`)
	return s.execOne(ctx, query, fmt.Sprintf("author %s", username),
		int(status), by.Name, by.ID, s.unix(), models.Key(username))
}

// UpdateAuthorExpertise records an expertise change and who made it.
func (s *Store) UpdateAuthorExpertise(ctx context.Context, username, expertise string, by models.Supervisor) error {
	query := s.rebind(`
    UPDATE authors SET expertise = ?, last_modifier_name = ?, last_modifier_id = ?, last_modified = ?
    WHERE username = ?`)
	return s.execOne(ctx, query, fmt.Sprintf("author %s", username),
		expertise, by.Name, by.ID, s.unix(), models.Key(username))
}

// SaveEditSession remembers the message hosting an author's edit menu.
func (s *Store) SaveEditSession(ctx context.Context, username, messageID, channelID string) error {
	query := s.rebind(`
    INSERT INTO edit_sessions (username, managing_msg, msg_channel) VALUES (?, ?, ?)
    ON CONFLICT (username) DO UPDATE SET
        managing_msg = excluded.managing_msg,
        msg_channel = excluded.msg_channel`)
	if _, err := s.db.ExecContext(ctx, query, models.Key(username), messageID, channelID); err != nil {
		return storeErr(fmt.Sprintf("save edit session for %s", username), err)
	}
	return nil
}

// DeleteEditSession forgets an author's edit menu.
func (s *Store) DeleteEditSession(ctx context.Context, username string) error {
	query := s.rebind(`DELETE FROM edit_sessions WHERE username = ?`)
	if _, err := s.db.ExecContext(ctx, query, models.Key(username)); err != nil {
		return storeErr(fmt.Sprintf("delete edit session for %s", username), err)
	}
	return nil
}

// execOne runs an UPDATE that must touch exactly one row.
func (s *Store) execOne(ctx context.Context, query, what string, args ...any) error {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return storeErr("update "+what, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return storeErr("update "+what, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", what, models.ErrNotFound)
	}
	return nil
}
