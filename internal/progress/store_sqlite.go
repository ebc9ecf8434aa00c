package progress

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"time"
)

//go:embed schema_sqlite.sql
var sqliteSchema string

// SQLiteStore is a SQLite-backed Store for single-node deployments.
// Timestamps are stored as unix milliseconds.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore wraps an open SQLite database and creates its schema.
func NewSQLiteStore(ctx context.Context, db *sql.DB) (*SQLiteStore, error) {
	if db == nil {
		return nil, fmt.Errorf("db is nil")
	}
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		return nil, fmt.Errorf("apply progress schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Get(ctx context.Context, learnerID, lessonID string) (Record, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	rec := Record{LearnerID: learnerID, LessonID: lessonID}
	var updated int64
	err := s.db.QueryRowContext(ctx,
		`SELECT current_index, updated_at FROM lesson_progress
		 WHERE learner_id = ? AND lesson_id = ?`,
		learnerID, lessonID,
	).Scan(&rec.CurrentIndex, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, fmt.Errorf("get progress: %w", err)
	}
	rec.UpdatedAt = time.UnixMilli(updated)
	return rec, nil
}

func (s *SQLiteStore) Save(ctx context.Context, learnerID, lessonID string, index int) (Record, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO lesson_progress (learner_id, lesson_id, current_index, updated_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT (learner_id, lesson_id) DO UPDATE
		 SET current_index = MAX(current_index, excluded.current_index),
		     updated_at = excluded.updated_at`,
		learnerID, lessonID, index, time.Now().UnixMilli(),
	)
	if err != nil {
		return Record{}, fmt.Errorf("save progress: %w", err)
	}
	return s.Get(ctx, learnerID, lessonID)
}

func (s *SQLiteStore) List(ctx context.Context, learnerID string) ([]Record, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	rows, err := s.db.QueryContext(ctx,
		`SELECT lesson_id, current_index, updated_at FROM lesson_progress
		 WHERE learner_id = ? ORDER BY lesson_id`,
		learnerID,
	)
	if err != nil {
		return nil, fmt.Errorf("list progress: %w", err)
	}
	defer rows.Close()

	out := []Record{}
	for rows.Next() {
		rec := Record{LearnerID: learnerID}
		var updated int64
		if err := rows.Scan(&rec.LessonID, &rec.CurrentIndex, &updated); err != nil {
			return nil, fmt.Errorf("scan progress: %w", err)
		}
		rec.UpdatedAt = time.UnixMilli(updated)
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate progress: %w", err)
	}
	return out, nil
}

func (s *SQLiteStore) HealthCheck(ctx context.Context) error {
	return s.db.PingContext(ctx)
}
