package database

import (
	"context"
	"database/sql"
	"fmt"

	"virtual_persona_bot/internal/domain/queue"
)

type PostgresScheduleRepository struct {
	db *sql.DB
}

func NewPostgresScheduleRepository(db *sql.DB) *PostgresScheduleRepository {
	return &PostgresScheduleRepository{db: db}
}

func (r *PostgresScheduleRepository) Create(ctx context.Context, rec *queue.ScheduleRecord) error {
	query := `INSERT INTO post_schedules (id, persona_id, prompt_queue_id, status)
               VALUES ($1, $2, $3, $4)
               RETURNING created_at`
	err := r.db.QueryRowContext(ctx, query, rec.ID, rec.PersonaID, rec.PromptQueueID, rec.Status).Scan(&rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("error creating post schedule record: %w", err)
	}
	return nil
}

func (r *PostgresScheduleRepository) MarkCompleted(ctx context.Context, id, postID, imageURL string) error {
	query := `UPDATE post_schedules
               SET status = 'completed', post_id = $1, generated_image_url = $2, completed_at = NOW()
               WHERE id = $3`
	res, err := r.db.ExecContext(ctx, query, postID, imageURL, id)
	if err != nil {
		return fmt.Errorf("error marking post schedule %s completed: %w", id, err)
	}
	return checkScheduleUpdated(res, id)
}

func (r *PostgresScheduleRepository) MarkFailed(ctx context.Context, id, errorMessage string) error {
	query := `UPDATE post_schedules
               SET status = 'failed', last_error = $1, completed_at = NOW()
               WHERE id = $2`
	res, err := r.db.ExecContext(ctx, query, errorMessage, id)
	if err != nil {
		return fmt.Errorf("error marking post schedule %s failed: %w", id, err)
	}
	return checkScheduleUpdated(res, id)
}

func checkScheduleUpdated(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("error reading update result for post schedule %s: %w", id, err)
	}
	if n == 0 {
		return ErrScheduleNotFound
	}
	return nil
}
