package progress

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const dbTimeout = 5 * time.Second

//go:embed schema.sql
var postgresSchema string

// PostgresStore is a PostgreSQL-backed Store implementation.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a PostgreSQL-backed progress store.
func NewPostgresStore(pool *pgxpool.Pool) (*PostgresStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is nil")
	}
	return &PostgresStore{pool: pool}, nil
}

// Migrate creates the progress tables if they do not exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, postgresSchema); err != nil {
		return fmt.Errorf("apply progress schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, learnerID, lessonID string) (Record, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	rec := Record{LearnerID: learnerID, LessonID: lessonID}
	err := s.pool.QueryRow(ctx,
		`SELECT current_index, updated_at
		 FROM lesson_progress
		 WHERE learner_id = $1 AND lesson_id = $2`,
		learnerID, lessonID,
	).Scan(&rec.CurrentIndex, &rec.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, fmt.Errorf("get progress: %w", err)
	}
	return rec, nil
}

func (s *PostgresStore) Save(ctx context.Context, learnerID, lessonID string, index int) (Record, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	rec := Record{LearnerID: learnerID, LessonID: lessonID}
	err := s.pool.QueryRow(ctx,
		`INSERT INTO lesson_progress (learner_id, lesson_id, current_index, updated_at)
		 VALUES ($1, $2, $3, now())
		 ON CONFLICT (learner_id, lesson_id) DO UPDATE
		 SET current_index = GREATEST(lesson_progress.current_index, EXCLUDED.current_index),
		     updated_at = EXCLUDED.updated_at
		 RETURNING current_index, updated_at`,
		learnerID, lessonID, index,
	).Scan(&rec.CurrentIndex, &rec.UpdatedAt)
	if err != nil {
		return Record{}, fmt.Errorf("save progress: %w", err)
	}
	return rec, nil
}

func (s *PostgresStore) List(ctx context.Context, learnerID string) ([]Record, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	rows, err := s.pool.Query(ctx,
		`SELECT lesson_id, current_index, updated_at
		 FROM lesson_progress
		 WHERE learner_id = $1
		 ORDER BY lesson_id`,
		learnerID,
	)
	if err != nil {
		return nil, fmt.Errorf("list progress: %w", err)
	}
	defer rows.Close()

	out := []Record{}
	for rows.Next() {
		rec := Record{LearnerID: learnerID}
		if err := rows.Scan(&rec.LessonID, &rec.CurrentIndex, &rec.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan progress: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate progress: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) HealthCheck(ctx context.Context) error {
	return s.pool.Ping(ctx)
}
