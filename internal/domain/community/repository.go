package community

import "context"

// Repository defines the community-side operations this subsystem needs:
// creating persona-authored posts and applying interaction side effects.
type Repository interface {
	CreatePost(ctx context.Context, post *Post) error

	// ListRecentPublished returns the newest published posts, newest first,
	// excluding those authored by the given user (a persona never targets
	// its own posts).
	ListRecentPublished(ctx context.Context, limit int, excludeUserID string) ([]*Post, error)

	CreateComment(ctx context.Context, c *Comment) error

	// NewestComment returns the most recent comment on a post, or
	// database.ErrCommentNotFound when the post has none.
	NewestComment(ctx context.Context, postID string) (*Comment, error)

	// ThreadDepth returns the comment's distance from the root post:
	// 0 for a top-level comment, parent depth + 1 for a reply.
	ThreadDepth(ctx context.Context, commentID string) (int, error)

	// ThreadHistory returns up to limit of the post's latest comments,
	// oldest first.
	ThreadHistory(ctx context.Context, postID string, limit int) ([]ThreadMessage, error)

	IsFollowing(ctx context.Context, followerUserID, followeeUserID string) (bool, error)
	CreateFollow(ctx context.Context, followerUserID, followeeUserID string) error

	IncrementLikeCount(ctx context.Context, postID string) error
}
