// Package inmemory provides a process-local CommentRepository. It backs
// tests and the databaseless dev mode; comments do not survive a restart.
package inmemory

import (
	"context"
	"sync"

	"github.com/arminmz/sigil/discuss"
)

type CommentRepository struct {
	mu             sync.RWMutex
	comments       map[string]*discuss.Comment
	commentsByPost map[string][]string // insertion order, oldest first
}

var _ discuss.CommentRepository = (*CommentRepository)(nil)

func NewCommentRepository() *CommentRepository {
	return &CommentRepository{
		comments:       make(map[string]*discuss.Comment),
		commentsByPost: make(map[string][]string),
	}
}

// Insert appends the comment to its post's sequence. The append happens
// entirely under the lock, so concurrent inserts for the same post are both
// recorded and a later List observes them.
func (repo *CommentRepository) Insert(ctx context.Context, comment *discuss.Comment) error {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	stored := *comment
	repo.comments[stored.ID] = &stored
	repo.commentsByPost[stored.PostID] = append(repo.commentsByPost[stored.PostID], stored.ID)

	return nil
}

// List returns the requested window in newest-first order.
func (repo *CommentRepository) List(ctx context.Context, params *discuss.ListCommentsParams) ([]*discuss.Comment, error) {
	repo.mu.RLock()
	defer repo.mu.RUnlock()

	ids := repo.commentsByPost[params.PostID]

	comments := make([]*discuss.Comment, 0, max(params.Limit, 0))

	offset := max(params.Offset, 0)

	// ids are oldest first; walk backwards from the end minus offset.
	start := len(ids) - 1 - offset
	for i := start; i >= 0 && len(comments) < params.Limit; i-- {
		if c, ok := repo.comments[ids[i]]; ok {
			copied := *c
			comments = append(comments, &copied)
		}
	}

	return comments, nil
}

func (repo *CommentRepository) Count(ctx context.Context, postID string) (int, error) {
	repo.mu.RLock()
	defer repo.mu.RUnlock()

	return len(repo.commentsByPost[postID]), nil
}
