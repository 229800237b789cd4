package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"virtual_persona_bot/internal/domain/queue"
)

const queueItemColumns = `id, prompt, category, subcategory, priority, status,
	assigned_persona_id, source, post_id, error_message, created_at, processed_at`

type PostgresQueueRepository struct {
	db *sql.DB
}

func NewPostgresQueueRepository(db *sql.DB) *PostgresQueueRepository {
	return &PostgresQueueRepository{db: db}
}

func scanQueueItem(row interface{ Scan(...any) error }) (*queue.Item, error) {
	item := &queue.Item{}
	err := row.Scan(&item.ID, &item.Prompt, &item.Category, &item.Subcategory,
		&item.Priority, &item.Status, &item.AssignedPersonaID, &item.Source,
		&item.PostID, &item.ErrorMessage, &item.CreatedAt, &item.ProcessedAt)
	if err != nil {
		return nil, err
	}
	return item, nil
}

func (r *PostgresQueueRepository) Create(ctx context.Context, item *queue.Item) error {
	query := `INSERT INTO prompt_queue (id, prompt, category, subcategory, priority, status, source)
               VALUES ($1, $2, $3, $4, $5, $6, $7)
               RETURNING created_at`
	err := r.db.QueryRowContext(ctx, query, item.ID, item.Prompt, item.Category,
		item.Subcategory, item.Priority, item.Status, item.Source).Scan(&item.CreatedAt)
	if err != nil {
		return fmt.Errorf("error creating queue item: %w", err)
	}
	return nil
}

func (r *PostgresQueueRepository) GetByID(ctx context.Context, id string) (*queue.Item, error) {
	query := `SELECT ` + queueItemColumns + ` FROM prompt_queue WHERE id = $1`
	item, err := scanQueueItem(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrItemNotFound
		}
		return nil, fmt.Errorf("error getting queue item by ID: %w", err)
	}
	return item, nil
}

// ClaimMatchingForCategory selects and assigns the best pending item in one
// statement. The status guard in both the subquery and the outer UPDATE makes
// the pending -> assigned transition the idempotency barrier: a raced or
// repeated pass affects zero rows and claims nothing.
func (r *PostgresQueueRepository) ClaimMatchingForCategory(ctx context.Context, category, personaID string) (*queue.Item, error) {
	query := `UPDATE prompt_queue
               SET status = 'assigned', assigned_persona_id = $1
               WHERE id = (
                   SELECT id FROM prompt_queue
                   WHERE status = 'pending' AND assigned_persona_id IS NULL
                   ORDER BY CASE WHEN category = $2 THEN 0
                                WHEN category IS NULL THEN 1
                                ELSE 2 END,
                            priority DESC, created_at
                   LIMIT 1
                   FOR UPDATE SKIP LOCKED
               ) AND status = 'pending'
               RETURNING ` + queueItemColumns
	item, err := scanQueueItem(r.db.QueryRowContext(ctx, query, personaID, category))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrItemNotFound
		}
		return nil, fmt.Errorf("error claiming queue item for category %s: %w", category, err)
	}
	return item, nil
}

func (r *PostgresQueueRepository) MarkProcessing(ctx context.Context, id string) error {
	query := `UPDATE prompt_queue SET status = 'processing' WHERE id = $1 AND status = 'assigned'`
	return r.execMark(ctx, query, id)
}

func (r *PostgresQueueRepository) MarkCompleted(ctx context.Context, id, postID string) error {
	query := `UPDATE prompt_queue
               SET status = 'completed', post_id = $1, processed_at = NOW()
               WHERE id = $2`
	if _, err := r.db.ExecContext(ctx, query, postID, id); err != nil {
		return fmt.Errorf("error marking queue item %s completed: %w", id, err)
	}
	return nil
}

func (r *PostgresQueueRepository) MarkFailed(ctx context.Context, id, errorMessage string) error {
	query := `UPDATE prompt_queue
               SET status = 'failed', error_message = $1, processed_at = NOW()
               WHERE id = $2`
	if _, err := r.db.ExecContext(ctx, query, errorMessage, id); err != nil {
		return fmt.Errorf("error marking queue item %s failed: %w", id, err)
	}
	return nil
}

func (r *PostgresQueueRepository) execMark(ctx context.Context, query, id string) error {
	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("error updating queue item %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("error reading update result for queue item %s: %w", id, err)
	}
	if n == 0 {
		return ErrItemNotFound
	}
	return nil
}

func (r *PostgresQueueRepository) Stats(ctx context.Context) (*queue.Stats, error) {
	query := `SELECT status, COUNT(*) FROM prompt_queue GROUP BY status`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("error querying queue stats: %w", err)
	}
	defer rows.Close()

	stats := &queue.Stats{}
	for rows.Next() {
		var status queue.Status
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("error scanning queue stats: %w", err)
		}
		switch status {
		case queue.StatusPending:
			stats.Pending = count
		case queue.StatusAssigned:
			stats.Assigned = count
		case queue.StatusProcessing:
			stats.Processing = count
		case queue.StatusCompleted:
			stats.Completed = count
		case queue.StatusFailed:
			stats.Failed = count
		}
		stats.Total += count
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating queue stats: %w", err)
	}
	return stats, nil
}

func (r *PostgresQueueRepository) DeleteFailedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `DELETE FROM prompt_queue WHERE status = 'failed' AND created_at < $1`
	res, err := r.db.ExecContext(ctx, query, cutoff)
	if err != nil {
		return 0, fmt.Errorf("error deleting old failed queue items: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("error reading delete result for failed queue items: %w", err)
	}
	return n, nil
}
