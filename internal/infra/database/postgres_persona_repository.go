package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"virtual_persona_bot/internal/domain/persona"
)

const personaColumns = `id, user_id, display_name, username, category, activity_level,
	active_hours_start, active_hours_end, daily_token_balance, last_allocated_on,
	is_active, last_active_at, total_posts_made, total_comments_made,
	total_follows_given, created_at, updated_at`

type PostgresPersonaRepository struct {
	db *sql.DB
}

func NewPostgresPersonaRepository(db *sql.DB) *PostgresPersonaRepository {
	return &PostgresPersonaRepository{db: db}
}

func scanPersona(row interface{ Scan(...any) error }) (*persona.Persona, error) {
	p := &persona.Persona{}
	err := row.Scan(&p.ID, &p.UserID, &p.DisplayName, &p.Username, &p.Category,
		&p.ActivityLevel, &p.ActiveHoursStart, &p.ActiveHoursEnd, &p.TokensRemaining,
		&p.LastAllocatedOn, &p.IsActive, &p.LastActiveAt, &p.TotalPostsMade,
		&p.TotalComments, &p.TotalFollows, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (r *PostgresPersonaRepository) GetByID(ctx context.Context, id string) (*persona.Persona, error) {
	query := `SELECT ` + personaColumns + ` FROM virtual_personas WHERE id = $1`
	p, err := scanPersona(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrPersonaNotFound
		}
		return nil, fmt.Errorf("error getting persona by ID: %w", err)
	}
	return p, nil
}

func (r *PostgresPersonaRepository) listWhere(ctx context.Context, where string) ([]*persona.Persona, error) {
	query := `SELECT ` + personaColumns + ` FROM virtual_personas WHERE ` + where + ` ORDER BY username`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("error listing personas: %w", err)
	}
	defer rows.Close()

	personas := make([]*persona.Persona, 0)
	for rows.Next() {
		p, err := scanPersona(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning persona: %w", err)
		}
		personas = append(personas, p)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating personas: %w", err)
	}
	return personas, nil
}

func (r *PostgresPersonaRepository) ListActive(ctx context.Context) ([]*persona.Persona, error) {
	return r.listWhere(ctx, `is_active = TRUE`)
}

func (r *PostgresPersonaRepository) ListActiveWithTokens(ctx context.Context) ([]*persona.Persona, error) {
	return r.listWhere(ctx, `is_active = TRUE AND daily_token_balance > 0`)
}

// AllocateTokens overwrites the token balance, guarded by last_allocated_on
// so a repeated daily reset within the same day is a no-op.
func (r *PostgresPersonaRepository) AllocateTokens(ctx context.Context, id string, tokens int, day time.Time) (bool, error) {
	query := `UPDATE virtual_personas
               SET daily_token_balance = $1, last_allocated_on = $2, updated_at = NOW()
               WHERE id = $3 AND is_active = TRUE
                 AND (last_allocated_on IS NULL OR last_allocated_on < $2)`
	res, err := r.db.ExecContext(ctx, query, tokens, day, id)
	if err != nil {
		return false, fmt.Errorf("error allocating tokens for persona %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("error reading allocation result for persona %s: %w", id, err)
	}
	return n > 0, nil
}

// ConsumeToken decrements the balance with a single conditional statement so
// concurrent publishes can never drive it negative.
func (r *PostgresPersonaRepository) ConsumeToken(ctx context.Context, id string) error {
	query := `UPDATE virtual_personas
               SET daily_token_balance = daily_token_balance - 1,
                   total_posts_made = total_posts_made + 1,
                   last_active_at = NOW(), updated_at = NOW()
               WHERE id = $1 AND daily_token_balance > 0`
	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("error consuming token for persona %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("error reading consume result for persona %s: %w", id, err)
	}
	if n == 0 {
		return ErrInsufficientTokens
	}
	return nil
}

func (r *PostgresPersonaRepository) IncrementInteractionCounters(ctx context.Context, id string, interactionType string, at time.Time) error {
	query := `UPDATE virtual_personas
               SET total_comments_made = total_comments_made + CASE WHEN $1 = 'comment' THEN 1 ELSE 0 END,
                   total_follows_given = total_follows_given + CASE WHEN $1 = 'follow' THEN 1 ELSE 0 END,
                   last_active_at = $2, updated_at = NOW()
               WHERE id = $3`
	if _, err := r.db.ExecContext(ctx, query, interactionType, at, id); err != nil {
		return fmt.Errorf("error updating interaction counters for persona %s: %w", id, err)
	}
	return nil
}

func (r *PostgresPersonaRepository) IsVirtualUser(ctx context.Context, userID string) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM virtual_personas WHERE user_id = $1)`
	var isVirtual bool
	if err := r.db.QueryRowContext(ctx, query, userID).Scan(&isVirtual); err != nil {
		return false, fmt.Errorf("error checking virtual user %s: %w", userID, err)
	}
	return isVirtual, nil
}

func (r *PostgresPersonaRepository) TokenStats(ctx context.Context) (*persona.TokenStats, error) {
	query := `SELECT activity_level, COUNT(*), COALESCE(SUM(daily_token_balance), 0)
               FROM virtual_personas WHERE is_active = TRUE GROUP BY activity_level`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("error querying token stats: %w", err)
	}
	defer rows.Close()

	stats := &persona.TokenStats{ByLevel: make(map[persona.ActivityLevel]persona.TierTokenStats)}
	for rows.Next() {
		var level persona.ActivityLevel
		var tier persona.TierTokenStats
		if err := rows.Scan(&level, &tier.Count, &tier.Tokens); err != nil {
			return nil, fmt.Errorf("error scanning token stats: %w", err)
		}
		stats.ByLevel[level] = tier
		stats.TotalActive += tier.Count
		stats.TotalTokens += tier.Tokens
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating token stats: %w", err)
	}
	return stats, nil
}
