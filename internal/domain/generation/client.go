// Package generation defines the interfaces of the external content
// generation collaborators. Both are treated as unreliable: a failure maps to
// a failed item or interaction, never an in-process retry.
package generation

import "context"

// ImageRequest carries the payload for one image generation call.
type ImageRequest struct {
	Prompt   string
	Category string
}

// ImageGenerator produces an image artifact for a post.
type ImageGenerator interface {
	// GenerateImage returns the URL of the generated artifact.
	GenerateImage(ctx context.Context, req ImageRequest) (string, error)
}

// CommentContext is everything the text collaborator needs to write a
// persona-voiced comment.
type CommentContext struct {
	PersonaName     string
	PersonaUsername string
	PersonaCategory string

	PostTitle    string
	PostPrompt   string
	PostCategory string
	PostAuthor   string

	// ThreadHistory is the recent conversation, oldest first.
	ThreadHistory []ThreadMessage

	// TargetComment is set when replying to a specific comment.
	TargetComment string
}

// ThreadMessage mirrors community.ThreadMessage without importing it, so the
// collaborator boundary stays dependency-free.
type ThreadMessage struct {
	AuthorName string
	Content    string
}

// CommentResult is a generated comment with a quality estimate in [0,1];
// callers drop low-confidence output.
type CommentResult struct {
	Content    string
	Confidence float64
}

// CommentGenerator produces interaction comments.
type CommentGenerator interface {
	GenerateComment(ctx context.Context, cc CommentContext) (CommentResult, error)
}
