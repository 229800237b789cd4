package community

import (
	"database/sql"
	"time"
)

// Post is the slice of a community post this subsystem reads and writes.
// The wider post model (SEO fields, view counters, moderation) lives outside
// this subsystem's boundary.
type Post struct {
	ID          string
	UserID      string
	Title       string
	Prompt      string
	ImageURL    string
	Category    string
	Status      string // persona posts are published directly
	LikeCount   int
	AuthorName  string // joined for interaction context, not persisted here
	PublishedAt time.Time
	CreatedAt   time.Time
}

// Comment is one community comment; ParentID forms reply chains.
type Comment struct {
	ID         string
	PostID     string
	UserID     string
	Content    string
	ParentID   sql.NullString
	AuthorName string
	CreatedAt  time.Time
}

// ThreadMessage is one entry of a post's comment history, shaped for the
// text-generation collaborator.
type ThreadMessage struct {
	AuthorName string
	Content    string
	IsPersona  bool
}
