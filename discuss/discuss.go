// Package discuss implements the wallet-authenticated comment system: a
// submission path that proves the author controls the claimed public key
// before anything is persisted, and a windowed, newest-first read path.
package discuss

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/arminmz/sigil/wallet"
	"github.com/google/uuid"
)

// MaxCommentLength bounds the trimmed comment text.
const MaxCommentLength = 1000

// Read window bounds. A zero limit falls back to DefaultListLimit; anything
// above MaxListLimit is clamped.
const (
	DefaultListLimit = 5
	MaxListLimit     = 50
)

// Invalidator is notified after a comment is durably stored, so cached
// renderings of the post's comment list can be refreshed.
type Invalidator interface {
	InvalidatePost(ctx context.Context, postID string)
}

// InvalidatorFunc adapts a function to the Invalidator interface.
type InvalidatorFunc func(ctx context.Context, postID string)

func (f InvalidatorFunc) InvalidatePost(ctx context.Context, postID string) {
	f(ctx, postID)
}

type Service struct {
	commentRepo CommentRepository
	invalidator Invalidator
	now         func() time.Time
}

type ServiceOption func(*Service)

// WithInvalidator registers the cache invalidation hook.
func WithInvalidator(inv Invalidator) ServiceOption {
	return func(svc *Service) {
		svc.invalidator = inv
	}
}

// WithClock overrides the timestamp source. Used in tests.
func WithClock(now func() time.Time) ServiceOption {
	return func(svc *Service) {
		svc.now = now
	}
}

func NewService(commentRepo CommentRepository, opts ...ServiceOption) *Service {
	svc := &Service{
		commentRepo: commentRepo,
		invalidator: nil,
		now:         time.Now,
	}

	for _, opt := range opts {
		opt(svc)
	}

	return svc
}

// SubmitCommentRequest carries one comment submission. Signature is the
// base64 encoding of a detached Ed25519 signature over the canonical comment
// message; Author is the signer's base58 public key.
//
// Message is what the client claims to have signed. It is accepted on the
// wire for protocol compatibility but never trusted: verification always runs
// against the server-side reconstruction of the canonical message.
type SubmitCommentRequest struct {
	PostID    string
	Text      string
	Author    string
	Signature string
	Message   string
}

// SubmitComment validates a submission, verifies the detached signature
// against the claimed public key, and persists the comment. Exactly one
// durable write happens on success and none on any failure; persistence is
// strictly after verification, so a canceled or failed verification never
// leaves a partial comment behind.
func (svc *Service) SubmitComment(ctx context.Context, req SubmitCommentRequest) (*Comment, error) {
	if req.PostID == "" || req.Text == "" || req.Author == "" || req.Signature == "" {
		return nil, ErrMissingFields
	}

	text := strings.TrimSpace(req.Text)
	if text == "" {
		return nil, ErrEmptyComment
	}

	if len([]rune(text)) > MaxCommentLength {
		return nil, ErrCommentTooLong
	}

	if !wallet.ValidPostID(req.PostID) {
		return nil, ErrInvalidPostID
	}

	author, err := wallet.ParsePublicKey(req.Author)
	if err != nil {
		return nil, ErrInvalidAuthorKey
	}

	sig, err := wallet.DecodeSignature(req.Signature)
	if err != nil {
		return nil, ErrMalformedSignature
	}

	message := wallet.CommentMessage(req.PostID, text)
	if !wallet.Verify(message, sig, author) {
		return nil, ErrSignatureVerificationFailed
	}

	comment := &Comment{
		ID:        uuid.NewString(),
		PostID:    req.PostID,
		Author:    author.String(),
		Text:      text,
		CreatedAt: svc.now().UTC(),
	}

	err = svc.commentRepo.Insert(ctx, comment)
	if err != nil {
		return nil, &StorageError{Op: "insert comment", Err: err}
	}

	if svc.invalidator != nil {
		svc.invalidator.InvalidatePost(ctx, comment.PostID)
	}

	return comment, nil
}

// ListComments returns one newest-first window of a post's comments together
// with the total count. The read path is non-critical for page rendering: a
// broken repository degrades to an empty page instead of an error.
func (svc *Service) ListComments(ctx context.Context, postID string, offset, limit int) (*CommentPage, error) {
	if offset < 0 {
		offset = 0
	}

	if limit <= 0 {
		limit = DefaultListLimit
	}

	if limit > MaxListLimit {
		limit = MaxListLimit
	}

	empty := &CommentPage{Comments: []*Comment{}, TotalCount: 0}

	if postID == "" {
		return empty, nil
	}

	comments, err := svc.commentRepo.List(ctx, &ListCommentsParams{
		PostID: postID,
		Offset: offset,
		Limit:  limit,
	})
	if err != nil {
		slog.ErrorContext(ctx, "failed to list comments", "postId", postID, "error", err)

		return empty, nil
	}

	total, err := svc.commentRepo.Count(ctx, postID)
	if err != nil {
		slog.ErrorContext(ctx, "failed to count comments", "postId", postID, "error", err)

		return empty, nil
	}

	return &CommentPage{Comments: comments, TotalCount: total}, nil
}

// CountComments returns the total number of comments on a post.
func (svc *Service) CountComments(ctx context.Context, postID string) (int, error) {
	count, err := svc.commentRepo.Count(ctx, postID)
	if err != nil {
		return 0, fmt.Errorf("failed to count comments: %w", err)
	}

	return count, nil
}
