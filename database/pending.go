package database

import (
	"context"
	"fmt"
)

// Enqueue adds a thread to the pending-update set. Adding a thread twice is a no-op.
func (s *Store) Enqueue(ctx context.Context, threadID string) error {
	query := s.rebind(`
    INSERT INTO update_queue (thread_id, queued_at) VALUES (?, ?)
    ON CONFLICT (thread_id) DO NOTHING`)
	if _, err := s.db.ExecContext(ctx, query, threadID, s.unix()); err != nil {
		return storeErr(fmt.Sprintf("enqueue thread %s", threadID), err)
	}
	return nil
}

// Dequeue removes a thread from the pending-update set.
func (s *Store) Dequeue(ctx context.Context, threadID string) error {
	query := s.rebind(`DELETE FROM update_queue WHERE thread_id = ?`)
	if _, err := s.db.ExecContext(ctx, query, threadID); err != nil {
		return storeErr(fmt.Sprintf("dequeue thread %s", threadID), err)
	}
	return nil
}

// Pending lists queued threads in the order they were first queued.
func (s *Store) Pending(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT thread_id FROM update_queue ORDER BY queued_at, thread_id`)
	if err != nil {
		return nil, storeErr("query update queue", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, storeErr("scan update queue", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("iterate update queue", err)
	}
	return ids, nil
}
