package discuss

import (
	"errors"
	"fmt"
)

// Submission failures. Each maps to one user-facing rejection; all of them
// are recovered inside the service and never escape as panics.
var (
	ErrMissingFields               = errors.New("missing required fields")
	ErrEmptyComment                = errors.New("comment text cannot be empty")
	ErrCommentTooLong              = errors.New("comment text exceeds maximum length")
	ErrInvalidPostID               = errors.New("invalid post id")
	ErrInvalidAuthorKey            = errors.New("invalid author public key format")
	ErrMalformedSignature          = errors.New("malformed signature")
	ErrSignatureVerificationFailed = errors.New("signature verification failed")
)

// StorageError wraps a persistence failure. On the write path it tells the
// caller the comment was not saved; the read path never surfaces it.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage failure during %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}
