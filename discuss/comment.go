package discuss

import (
	"context"
	"time"
)

// Comment is immutable once created. Author is the commenter's public key in
// its canonical base58 encoding; there is no user record behind it.
type Comment struct {
	ID        string
	PostID    string
	Author    string
	Text      string
	CreatedAt time.Time
}

// CommentRepository persists per-post comment sequences.
//
// Insert must be an atomic append: concurrent inserts for the same post must
// both be recorded without a read-modify-write of the whole collection, and a
// List issued after Insert returns must observe the inserted comment.
type CommentRepository interface {
	Insert(ctx context.Context, comment *Comment) (err error)
	List(ctx context.Context, params *ListCommentsParams) (comments []*Comment, err error)
	Count(ctx context.Context, postID string) (count int, err error)
}

// ListCommentsParams selects a window of a post's comments in newest-first
// order.
type ListCommentsParams struct {
	PostID string
	Offset int
	Limit  int
}

// CommentPage is one window of a post's comments plus the collection size at
// the time of the read.
type CommentPage struct {
	Comments   []*Comment
	TotalCount int
}
