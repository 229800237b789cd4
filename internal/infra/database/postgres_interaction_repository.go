package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"virtual_persona_bot/internal/domain/interaction"
)

type PostgresInteractionRepository struct {
	db *sql.DB
}

func NewPostgresInteractionRepository(db *sql.DB) *PostgresInteractionRepository {
	return &PostgresInteractionRepository{db: db}
}

func (r *PostgresInteractionRepository) Append(ctx context.Context, entry *interaction.LogEntry) error {
	query := `INSERT INTO interaction_logs
               (id, persona_id, interaction_type, target_user_id, target_post_id,
                target_comment_id, generated_content, thread_depth, created_at)
               VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err := r.db.ExecContext(ctx, query, entry.ID, entry.PersonaID, entry.Type,
		entry.TargetUserID, entry.TargetPostID, entry.TargetCommentID,
		entry.GeneratedContent, entry.ThreadDepth, entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("error appending interaction log entry: %w", err)
	}
	return nil
}

func (r *PostgresInteractionRepository) CountForPersonaSince(ctx context.Context, personaID string, since time.Time) (int, error) {
	query := `SELECT COUNT(*) FROM interaction_logs
               WHERE persona_id = $1 AND created_at >= $2`
	var count int
	if err := r.db.QueryRowContext(ctx, query, personaID, since).Scan(&count); err != nil {
		return 0, fmt.Errorf("error counting interactions for persona %s: %w", personaID, err)
	}
	return count, nil
}

func (r *PostgresInteractionRepository) CountVirtualTargetsSince(ctx context.Context, personaID string, since time.Time) (int, error) {
	query := `SELECT COUNT(*) FROM interaction_logs il
               JOIN virtual_personas vp ON vp.user_id = il.target_user_id
               WHERE il.persona_id = $1 AND il.created_at >= $2`
	var count int
	if err := r.db.QueryRowContext(ctx, query, personaID, since).Scan(&count); err != nil {
		return 0, fmt.Errorf("error counting virtual-target interactions for persona %s: %w", personaID, err)
	}
	return count, nil
}

func (r *PostgresInteractionRepository) LastInteractionAt(ctx context.Context, personaID, targetUserID string) (time.Time, bool, error) {
	query := `SELECT last_interaction_at FROM persona_cooldowns
               WHERE persona_id = $1 AND target_user_id = $2`
	var at time.Time
	err := r.db.QueryRowContext(ctx, query, personaID, targetUserID).Scan(&at)
	if err != nil {
		if err == sql.ErrNoRows {
			return time.Time{}, false, nil
		}
		return time.Time{}, false, fmt.Errorf("error looking up cooldown for persona %s: %w", personaID, err)
	}
	return at, true, nil
}

func (r *PostgresInteractionRepository) TouchCooldown(ctx context.Context, personaID, targetUserID string, at time.Time) error {
	query := `INSERT INTO persona_cooldowns (persona_id, target_user_id, last_interaction_at)
               VALUES ($1, $2, $3)
               ON CONFLICT (persona_id, target_user_id)
               DO UPDATE SET last_interaction_at = EXCLUDED.last_interaction_at`
	if _, err := r.db.ExecContext(ctx, query, personaID, targetUserID, at); err != nil {
		return fmt.Errorf("error updating cooldown for persona %s: %w", personaID, err)
	}
	return nil
}

func (r *PostgresInteractionRepository) DeleteCooldownsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `DELETE FROM persona_cooldowns WHERE last_interaction_at < $1`
	res, err := r.db.ExecContext(ctx, query, cutoff)
	if err != nil {
		return 0, fmt.Errorf("error pruning cooldown rows: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("error reading cooldown prune result: %w", err)
	}
	return n, nil
}
