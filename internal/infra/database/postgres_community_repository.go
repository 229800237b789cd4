package database

import (
	"context"
	"database/sql"
	"fmt"

	"virtual_persona_bot/internal/domain/community"
)

type PostgresCommunityRepository struct {
	db *sql.DB
}

func NewPostgresCommunityRepository(db *sql.DB) *PostgresCommunityRepository {
	return &PostgresCommunityRepository{db: db}
}

func (r *PostgresCommunityRepository) CreatePost(ctx context.Context, post *community.Post) error {
	query := `INSERT INTO community_posts
               (id, user_id, title, prompt, image_url, category, status, published_at)
               VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
               RETURNING created_at`
	err := r.db.QueryRowContext(ctx, query, post.ID, post.UserID, post.Title,
		post.Prompt, post.ImageURL, post.Category, post.Status, post.PublishedAt).Scan(&post.CreatedAt)
	if err != nil {
		return fmt.Errorf("error creating community post: %w", err)
	}
	return nil
}

func (r *PostgresCommunityRepository) ListRecentPublished(ctx context.Context, limit int, excludeUserID string) ([]*community.Post, error) {
	query := `SELECT p.id, p.user_id, p.title, COALESCE(p.prompt, ''), COALESCE(p.image_url, ''),
                      COALESCE(p.category, ''), p.status, p.like_count,
                      COALESCE(vp.display_name, ''), p.published_at, p.created_at
               FROM community_posts p
               LEFT JOIN virtual_personas vp ON vp.user_id = p.user_id
               WHERE p.status = 'published' AND p.user_id <> $1
               ORDER BY p.published_at DESC
               LIMIT $2`
	rows, err := r.db.QueryContext(ctx, query, excludeUserID, limit)
	if err != nil {
		return nil, fmt.Errorf("error listing recent posts: %w", err)
	}
	defer rows.Close()

	posts := make([]*community.Post, 0)
	for rows.Next() {
		p := &community.Post{}
		if err := rows.Scan(&p.ID, &p.UserID, &p.Title, &p.Prompt, &p.ImageURL,
			&p.Category, &p.Status, &p.LikeCount, &p.AuthorName, &p.PublishedAt, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("error scanning recent post: %w", err)
		}
		posts = append(posts, p)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating recent posts: %w", err)
	}
	return posts, nil
}

func (r *PostgresCommunityRepository) CreateComment(ctx context.Context, c *community.Comment) error {
	query := `INSERT INTO comments (id, post_id, user_id, content, parent_id)
               VALUES ($1, $2, $3, $4, $5)
               RETURNING created_at`
	err := r.db.QueryRowContext(ctx, query, c.ID, c.PostID, c.UserID, c.Content, c.ParentID).Scan(&c.CreatedAt)
	if err != nil {
		return fmt.Errorf("error creating comment: %w", err)
	}
	return nil
}

func (r *PostgresCommunityRepository) NewestComment(ctx context.Context, postID string) (*community.Comment, error) {
	query := `SELECT id, post_id, user_id, content, parent_id, created_at
               FROM comments WHERE post_id = $1
               ORDER BY created_at DESC LIMIT 1`
	c := &community.Comment{}
	err := r.db.QueryRowContext(ctx, query, postID).Scan(&c.ID, &c.PostID, &c.UserID,
		&c.Content, &c.ParentID, &c.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrCommentNotFound
		}
		return nil, fmt.Errorf("error getting newest comment for post %s: %w", postID, err)
	}
	return c, nil
}

// ThreadDepth walks the reply chain up to the root with a recursive CTE. A
// top-level comment has depth 0. The walk is capped to keep a corrupted
// parent cycle from recursing forever.
func (r *PostgresCommunityRepository) ThreadDepth(ctx context.Context, commentID string) (int, error) {
	query := `WITH RECURSIVE chain AS (
                   SELECT id, parent_id, 0 AS depth FROM comments WHERE id = $1
                   UNION ALL
                   SELECT c.id, c.parent_id, chain.depth + 1
                   FROM comments c
                   JOIN chain ON c.id = chain.parent_id
                   WHERE chain.depth < 10
               )
               SELECT MAX(depth) FROM chain`
	var depth sql.NullInt64
	if err := r.db.QueryRowContext(ctx, query, commentID).Scan(&depth); err != nil {
		return 0, fmt.Errorf("error computing thread depth for comment %s: %w", commentID, err)
	}
	if !depth.Valid {
		return 0, ErrCommentNotFound
	}
	return int(depth.Int64), nil
}

func (r *PostgresCommunityRepository) ThreadHistory(ctx context.Context, postID string, limit int) ([]community.ThreadMessage, error) {
	query := `SELECT COALESCE(vp.display_name, 'user'), c.content, vp.id IS NOT NULL
               FROM (
                   SELECT user_id, content, created_at FROM comments
                   WHERE post_id = $1
                   ORDER BY created_at DESC LIMIT $2
               ) c
               LEFT JOIN virtual_personas vp ON vp.user_id = c.user_id
               ORDER BY c.created_at ASC`
	rows, err := r.db.QueryContext(ctx, query, postID, limit)
	if err != nil {
		return nil, fmt.Errorf("error listing thread history for post %s: %w", postID, err)
	}
	defer rows.Close()

	history := make([]community.ThreadMessage, 0)
	for rows.Next() {
		var msg community.ThreadMessage
		if err := rows.Scan(&msg.AuthorName, &msg.Content, &msg.IsPersona); err != nil {
			return nil, fmt.Errorf("error scanning thread history: %w", err)
		}
		history = append(history, msg)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating thread history: %w", err)
	}
	return history, nil
}

func (r *PostgresCommunityRepository) IsFollowing(ctx context.Context, followerUserID, followeeUserID string) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM user_follows WHERE follower_id = $1 AND following_id = $2)`
	var following bool
	if err := r.db.QueryRowContext(ctx, query, followerUserID, followeeUserID).Scan(&following); err != nil {
		return false, fmt.Errorf("error checking follow relation: %w", err)
	}
	return following, nil
}

func (r *PostgresCommunityRepository) CreateFollow(ctx context.Context, followerUserID, followeeUserID string) error {
	query := `INSERT INTO user_follows (follower_id, following_id)
               VALUES ($1, $2)
               ON CONFLICT (follower_id, following_id) DO NOTHING`
	res, err := r.db.ExecContext(ctx, query, followerUserID, followeeUserID)
	if err != nil {
		return fmt.Errorf("error creating follow relation: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("error reading follow insert result: %w", err)
	}
	if n == 0 {
		return ErrAlreadyFollowing
	}
	return nil
}

func (r *PostgresCommunityRepository) IncrementLikeCount(ctx context.Context, postID string) error {
	query := `UPDATE community_posts SET like_count = like_count + 1 WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, postID)
	if err != nil {
		return fmt.Errorf("error incrementing like count for post %s: %w", postID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("error reading like update result for post %s: %w", postID, err)
	}
	if n == 0 {
		return ErrPostNotFound
	}
	return nil
}
