package database

import "errors"

// Sentinel errors returned by the repositories. Application services compare
// against these to distinguish "nothing to do" from real failure.
var (
	ErrPersonaNotFound    = errors.New("persona not found")
	ErrItemNotFound       = errors.New("queue item not found")
	ErrScheduleNotFound   = errors.New("post schedule record not found")
	ErrCommentNotFound    = errors.New("comment not found")
	ErrPostNotFound       = errors.New("post not found")
	ErrAlreadyFollowing   = errors.New("already following target user")
	ErrInsufficientTokens = errors.New("persona has no posting tokens remaining")
)
