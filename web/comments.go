package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/arminmz/sigil/discuss"
)

// CommentJSON is the wire form of a stored comment.
type CommentJSON struct {
	ID        string `json:"id"`
	PostID    string `json:"postId"`
	Author    string `json:"author"`
	Text      string `json:"text"`
	Timestamp string `json:"timestamp"`
}

// CommentPageJSON is the canonical paginated read shape.
type CommentPageJSON struct {
	Comments   []CommentJSON `json:"comments"`
	TotalCount int           `json:"totalCount"`
}

// SubmitCommentJSON is the submission payload. PostID comes from the URL
// path; a postId present in the body must match it.
type SubmitCommentJSON struct {
	PostID    string `json:"postId,omitempty"`
	Text      string `json:"text"`
	Author    string `json:"author"`
	Signature string `json:"signature"`
	Message   string `json:"message,omitempty"`
}

// SubmitResultJSON is the submission response for both outcomes.
type SubmitResultJSON struct {
	Success bool         `json:"success"`
	Comment *CommentJSON `json:"comment,omitempty"`
	Error   string       `json:"error,omitempty"`
}

func toCommentJSON(c *discuss.Comment) CommentJSON {
	return CommentJSON{
		ID:        c.ID,
		PostID:    c.PostID,
		Author:    c.Author,
		Text:      c.Text,
		Timestamp: c.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func (h *Handler) HandleListComments(w http.ResponseWriter, r *http.Request) {
	postID := r.PathValue("postId")

	offset := queryInt(r, "offset", 0)
	limit := queryInt(r, "limit", discuss.DefaultListLimit)

	// The version changes on every stored comment, so a stale window can
	// never revalidate; offset and limit keep distinct windows distinct.
	etag := fmt.Sprintf(`W/"comments-%s-v%d-%d-%d"`, postID, h.versions.version(postID), offset, limit)
	if r.Header.Get("If-None-Match") == etag {
		w.WriteHeader(http.StatusNotModified)

		return
	}

	page, err := h.discussSvc.ListComments(r.Context(), postID, offset, limit)
	if err != nil {
		// ListComments degrades internally; an error here is unexpected.
		slog.ErrorContext(r.Context(), "failed to list comments", "postId", postID, "error", err)

		page = &discuss.CommentPage{Comments: []*discuss.Comment{}, TotalCount: 0}
	}

	resp := CommentPageJSON{
		Comments:   make([]CommentJSON, 0, len(page.Comments)),
		TotalCount: page.TotalCount,
	}

	for _, c := range page.Comments {
		resp.Comments = append(resp.Comments, toCommentJSON(c))
	}

	w.Header().Set("ETag", etag)
	writeJSON(w, r, http.StatusOK, resp)
}

func (h *Handler) HandleSubmitComment(w http.ResponseWriter, r *http.Request) {
	postID := r.PathValue("postId")

	var payload SubmitCommentJSON

	err := json.NewDecoder(r.Body).Decode(&payload)
	if err != nil {
		writeJSON(w, r, http.StatusBadRequest, SubmitResultJSON{
			Success: false,
			Error:   "invalid request body",
		})

		return
	}

	if payload.PostID != "" && payload.PostID != postID {
		writeJSON(w, r, http.StatusBadRequest, SubmitResultJSON{
			Success: false,
			Error:   "post id in body does not match url",
		})

		return
	}

	comment, err := h.discussSvc.SubmitComment(r.Context(), discuss.SubmitCommentRequest{
		PostID:    postID,
		Text:      payload.Text,
		Author:    payload.Author,
		Signature: payload.Signature,
		Message:   payload.Message,
	})
	if err != nil {
		status, message := submitErrorResponse(err)

		if status == http.StatusInternalServerError {
			slog.ErrorContext(r.Context(), "failed to submit comment", "postId", postID, "error", err)
		}

		writeJSON(w, r, status, SubmitResultJSON{Success: false, Error: message})

		return
	}

	c := toCommentJSON(comment)

	writeJSON(w, r, http.StatusCreated, SubmitResultJSON{Success: true, Comment: &c})
}

// submitErrorResponse maps a submission failure to an HTTP status and a
// stable user-facing message. Verification failures are 401: there is no
// credential to retry, only a different signature to produce.
func submitErrorResponse(err error) (int, string) {
	var storageErr *discuss.StorageError

	switch {
	case errors.Is(err, discuss.ErrMissingFields),
		errors.Is(err, discuss.ErrEmptyComment),
		errors.Is(err, discuss.ErrCommentTooLong),
		errors.Is(err, discuss.ErrInvalidPostID),
		errors.Is(err, discuss.ErrInvalidAuthorKey),
		errors.Is(err, discuss.ErrMalformedSignature):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, discuss.ErrSignatureVerificationFailed):
		return http.StatusUnauthorized, err.Error()
	case errors.As(err, &storageErr):
		return http.StatusInternalServerError, "failed to save comment due to a server error"
	default:
		return http.StatusInternalServerError, "failed to save comment due to a server error"
	}
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	err := json.NewEncoder(w).Encode(v)
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to encode json response", "error", err)
	}
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}

	n, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}

	return n
}

// commentVersions tracks a monotonically increasing version per post,
// bumped whenever a comment lands. The version feeds the comment list ETag,
// so clients revalidate cheaply and never see a stale cached list after
// their own submission.
type commentVersions struct {
	mu       sync.Mutex
	versions map[string]uint64
}

func newCommentVersions() *commentVersions {
	return &commentVersions{versions: make(map[string]uint64)}
}

func (cv *commentVersions) bump(postID string) {
	cv.mu.Lock()
	defer cv.mu.Unlock()

	cv.versions[postID]++
}

func (cv *commentVersions) version(postID string) uint64 {
	cv.mu.Lock()
	defer cv.mu.Unlock()

	return cv.versions[postID]
}
