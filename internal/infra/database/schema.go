package database

import (
	"context"
	"database/sql"
	"fmt"
)

// CreateTables creates the subsystem's tables and indexes if they do not
// exist yet. The community tables (posts, comments, follows) are owned by the
// wider application; the statements here only guarantee the minimal columns
// this subsystem touches when running standalone.
func CreateTables(ctx context.Context, db *sql.DB) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS virtual_personas (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL UNIQUE,
			display_name TEXT NOT NULL,
			username TEXT NOT NULL UNIQUE,
			category TEXT NOT NULL,
			activity_level TEXT NOT NULL DEFAULT 'moderate',
			active_hours_start INT NOT NULL DEFAULT 9,
			active_hours_end INT NOT NULL DEFAULT 22,
			daily_token_balance INT NOT NULL DEFAULT 0,
			last_allocated_on DATE,
			is_active BOOLEAN NOT NULL DEFAULT TRUE,
			last_active_at TIMESTAMPTZ,
			total_posts_made INT NOT NULL DEFAULT 0,
			total_comments_made INT NOT NULL DEFAULT 0,
			total_follows_given INT NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_virtual_personas_active
			ON virtual_personas (is_active, activity_level)`,
		`CREATE INDEX IF NOT EXISTS idx_virtual_personas_category
			ON virtual_personas (category)`,

		`CREATE TABLE IF NOT EXISTS prompt_queue (
			id TEXT PRIMARY KEY,
			prompt TEXT NOT NULL,
			category TEXT,
			subcategory TEXT,
			priority INT NOT NULL DEFAULT 5,
			status TEXT NOT NULL DEFAULT 'pending',
			assigned_persona_id TEXT REFERENCES virtual_personas(id) ON DELETE SET NULL,
			source TEXT,
			post_id TEXT,
			error_message TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			processed_at TIMESTAMPTZ
		)`,
		`CREATE INDEX IF NOT EXISTS idx_prompt_queue_status
			ON prompt_queue (status, priority DESC, created_at)`,

		`CREATE TABLE IF NOT EXISTS post_schedules (
			id TEXT PRIMARY KEY,
			persona_id TEXT NOT NULL REFERENCES virtual_personas(id) ON DELETE CASCADE,
			prompt_queue_id TEXT NOT NULL REFERENCES prompt_queue(id) ON DELETE CASCADE,
			generated_image_url TEXT,
			post_id TEXT,
			status TEXT NOT NULL DEFAULT 'processing',
			last_error TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			completed_at TIMESTAMPTZ
		)`,
		`CREATE INDEX IF NOT EXISTS idx_post_schedules_status
			ON post_schedules (status, created_at)`,

		`CREATE TABLE IF NOT EXISTS interaction_logs (
			id TEXT PRIMARY KEY,
			persona_id TEXT NOT NULL REFERENCES virtual_personas(id) ON DELETE CASCADE,
			interaction_type TEXT NOT NULL,
			target_user_id TEXT,
			target_post_id TEXT,
			target_comment_id TEXT,
			generated_content TEXT,
			thread_depth INT NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_interaction_logs_persona
			ON interaction_logs (persona_id, created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_interaction_logs_target
			ON interaction_logs (target_user_id, created_at)`,

		`CREATE TABLE IF NOT EXISTS persona_cooldowns (
			persona_id TEXT NOT NULL REFERENCES virtual_personas(id) ON DELETE CASCADE,
			target_user_id TEXT NOT NULL,
			last_interaction_at TIMESTAMPTZ NOT NULL,
			PRIMARY KEY (persona_id, target_user_id)
		)`,

		`CREATE TABLE IF NOT EXISTS community_posts (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			title TEXT NOT NULL,
			prompt TEXT,
			image_url TEXT,
			category TEXT,
			status TEXT NOT NULL DEFAULT 'published',
			like_count INT NOT NULL DEFAULT 0,
			published_at TIMESTAMPTZ,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_community_posts_published
			ON community_posts (status, published_at DESC)`,

		`CREATE TABLE IF NOT EXISTS comments (
			id TEXT PRIMARY KEY,
			post_id TEXT NOT NULL REFERENCES community_posts(id) ON DELETE CASCADE,
			user_id TEXT NOT NULL,
			content TEXT NOT NULL,
			parent_id TEXT REFERENCES comments(id) ON DELETE SET NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_comments_post
			ON comments (post_id, created_at DESC)`,

		`CREATE TABLE IF NOT EXISTS user_follows (
			follower_id TEXT NOT NULL,
			following_id TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			PRIMARY KEY (follower_id, following_id)
		)`,
	}

	for _, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to execute schema statement: %w", err)
		}
	}
	return nil
}
