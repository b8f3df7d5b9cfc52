package store

import (
	"context"
	"fmt"
)

// Save upserts the record row. The whole row is replaced in one statement,
// so a reader never observes a partially written record.
func (s *SQLiteStore) Save(ctx context.Context, rec Record) error {
	key, err := ParseID(rec.ID)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO participants
		(id, resource, last_eliminated_at, wins, losses, last_updated)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			resource = excluded.resource,
			last_eliminated_at = excluded.last_eliminated_at,
			wins = excluded.wins,
			losses = excluded.losses,
			last_updated = excluded.last_updated
	`,
		key,
		rec.Resource,
		rec.LastEliminatedAt,
		rec.Wins,
		rec.Losses,
		rec.LastUpdated,
	)
	if err != nil {
		return &PersistenceError{Op: "save", ID: key, Err: fmt.Errorf("upsert participant: %w", err)}
	}

	return nil
}
