package sqlite3

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	sq "github.com/Masterminds/squirrel"
	"github.com/arminmz/sigil/discuss"
)

const tableComments = "comments"

type CommentRepository struct {
	db *sql.DB
}

var _ discuss.CommentRepository = (*CommentRepository)(nil)

func NewCommentRepository(db *sql.DB) *CommentRepository {
	return &CommentRepository{db: db}
}

const (
	commentFieldID        = "id"
	commentFieldPostID    = "post_id"
	commentFieldAuthor    = "author"
	commentFieldText      = "text"
	commentFieldCreatedAt = "created_at"
)

func commentColumns() []string {
	return []string{
		commentFieldID,
		commentFieldPostID,
		commentFieldAuthor,
		commentFieldText,
		commentFieldCreatedAt,
	}
}

func scanComment(row sq.RowScanner) (*discuss.Comment, error) {
	var comment discuss.Comment

	err := row.Scan(
		&comment.ID,
		&comment.PostID,
		&comment.Author,
		&comment.Text,
		&comment.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan row: %w", err)
	}

	return &comment, nil
}

// Insert appends one comment. A single INSERT is the atomic append the
// repository contract requires; there is no read-modify-write of the post's
// collection anywhere on this path.
func (repo *CommentRepository) Insert(ctx context.Context, comment *discuss.Comment) error {
	q := sq.Insert(tableComments).
		Columns(commentColumns()...).
		Values(
			comment.ID,
			comment.PostID,
			comment.Author,
			comment.Text,
			comment.CreatedAt,
		)

	q = q.RunWith(repo.db)

	_, err := q.ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to exec insert: %w", err)
	}

	return nil
}

// List returns the requested window of a post's comments, newest first. The
// id is a pagination tie-breaker for comments created in the same instant.
func (repo *CommentRepository) List(
	ctx context.Context,
	params *discuss.ListCommentsParams,
) ([]*discuss.Comment, error) {
	query := sq.Select(commentColumns()...).
		From(tableComments).
		Where(sq.Eq{commentFieldPostID: params.PostID}).
		OrderBy(commentFieldCreatedAt+" DESC", commentFieldID+" DESC").
		Offset(uint64(params.Offset)).
		Limit(uint64(params.Limit))

	query = query.RunWith(repo.db)

	rows, err := query.QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}

	defer func() {
		err := rows.Close()
		if err != nil {
			slog.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}()

	comments := make([]*discuss.Comment, 0)

	for rows.Next() {
		comment, err := scanComment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan comment failed: %w", err)
		}

		comments = append(comments, comment)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("rows iteration failed: %w", err)
	}

	return comments, nil
}

// Count returns the post's comment total from the (post_id, created_at)
// index, without scanning comment bodies.
func (repo *CommentRepository) Count(ctx context.Context, postID string) (int, error) {
	query := sq.Select("COUNT(*)").
		From(tableComments).
		Where(sq.Eq{commentFieldPostID: postID})

	query = query.RunWith(repo.db)

	var count int

	err := query.QueryRowContext(ctx).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to scan count: %w", err)
	}

	return count, nil
}
