package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// Load returns the record for id.
// Returns an error matching ErrRecordNotFound if no row exists.
func (s *SQLiteStore) Load(ctx context.Context, id string) (Record, error) {
	key, err := ParseID(id)
	if err != nil {
		return Record{}, err
	}

	var (
		resource sql.NullInt64
		rec      = Record{ID: key}
	)
	err = s.db.QueryRowContext(ctx, `
		SELECT resource, last_eliminated_at, wins, losses, last_updated
		FROM participants
		WHERE id = ?
	`, key).Scan(&resource, &rec.LastEliminatedAt, &rec.Wins, &rec.Losses, &rec.LastUpdated)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, notFound(key)
	}
	if err != nil {
		return Record{}, &PersistenceError{Op: "load", ID: key, Err: fmt.Errorf("query participant: %w", err)}
	}

	rec.Resource = s.opts.defaultResource()
	if resource.Valid {
		rec.Resource = int(resource.Int64)
	}
	rec.LastEliminatedAt = nonNegative64(rec.LastEliminatedAt)
	rec.Wins = nonNegative(rec.Wins)
	rec.Losses = nonNegative(rec.Losses)
	rec.LastUpdated = nonNegative64(rec.LastUpdated)
	return rec, nil
}

// List returns all participant ids ordered by id.
//
// Returns an empty slice (not nil) if the table is empty.
func (s *SQLiteStore) List(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id FROM participants ORDER BY id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, &PersistenceError{Op: "list", Err: fmt.Errorf("query participants: %w", err)}
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, &PersistenceError{Op: "list", Err: fmt.Errorf("scan participant id: %w", err)}
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, &PersistenceError{Op: "list", Err: fmt.Errorf("iterate participants: %w", err)}
	}
	return ids, nil
}
