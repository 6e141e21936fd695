package web_test

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/arminmz/sigil/contents"
	"github.com/arminmz/sigil/db/inmemory"
	"github.com/arminmz/sigil/discuss"
	"github.com/arminmz/sigil/wallet"
	"github.com/arminmz/sigil/web"
	"github.com/mr-tron/base58"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	handler *web.Handler
	author  string
	priv    ed25519.PrivateKey
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	postsDir := t.TempDir()

	err := os.WriteFile(
		filepath.Join(postsDir, "my-first-post.md"),
		[]byte("---\ntitle: My First Post\ndate: 2026-01-15\n---\n\nHello from the blog.\n"),
		0o600,
	)
	require.NoError(t, err)

	contentsSvc := contents.NewService(postsDir)

	var handler *web.Handler

	discussSvc := discuss.NewService(
		inmemory.NewCommentRepository(),
		discuss.WithInvalidator(discuss.InvalidatorFunc(func(ctx context.Context, postID string) {
			handler.InvalidatePost(ctx, postID)
		})),
	)

	handler, err = web.NewHandler(contentsSvc, discussSvc)
	require.NoError(t, err)

	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	return &fixture{
		handler: handler,
		author:  base58.Encode(pub),
		priv:    priv,
	}
}

func (f *fixture) submitPayload(postID, text string) web.SubmitCommentJSON {
	message := wallet.CommentMessage(postID, text)

	return web.SubmitCommentJSON{
		Text:      text,
		Author:    f.author,
		Signature: base64.StdEncoding.EncodeToString(ed25519.Sign(f.priv, message)),
		Message:   string(message),
	}
}

func (f *fixture) postComment(t *testing.T, postID string, payload web.SubmitCommentJSON) *httptest.ResponseRecorder {
	t.Helper()

	body, err := json.Marshal(payload)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/posts/"+postID+"/comments", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)

	return rec
}

func decodeSubmitResult(t *testing.T, rec *httptest.ResponseRecorder) web.SubmitResultJSON {
	t.Helper()

	var result web.SubmitResultJSON

	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))

	return result
}

func TestSubmitCommentEndpoint(t *testing.T) {
	t.Parallel()

	t.Run("success", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)

		rec := f.postComment(t, "my-first-post", f.submitPayload("my-first-post", "great post!"))
		require.Equal(t, http.StatusCreated, rec.Code)

		result := decodeSubmitResult(t, rec)
		assert.True(t, result.Success)
		require.NotNil(t, result.Comment)
		assert.NotEmpty(t, result.Comment.ID)
		assert.Equal(t, "my-first-post", result.Comment.PostID)
		assert.Equal(t, f.author, result.Comment.Author)
		assert.Equal(t, "great post!", result.Comment.Text)
		assert.NotEmpty(t, result.Comment.Timestamp)
	})

	t.Run("tampered text is rejected", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)

		payload := f.submitPayload("my-first-post", "original")
		payload.Text = "tampered"

		rec := f.postComment(t, "my-first-post", payload)
		require.Equal(t, http.StatusUnauthorized, rec.Code)

		result := decodeSubmitResult(t, rec)
		assert.False(t, result.Success)
		assert.Equal(t, discuss.ErrSignatureVerificationFailed.Error(), result.Error)
	})

	t.Run("invalid author key", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)

		payload := f.submitPayload("my-first-post", "hello")
		payload.Author = "garbage"

		rec := f.postComment(t, "my-first-post", payload)
		require.Equal(t, http.StatusBadRequest, rec.Code)

		result := decodeSubmitResult(t, rec)
		assert.False(t, result.Success)
		assert.Equal(t, discuss.ErrInvalidAuthorKey.Error(), result.Error)
	})

	t.Run("missing fields", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)

		rec := f.postComment(t, "my-first-post", web.SubmitCommentJSON{Text: "hello"})
		require.Equal(t, http.StatusBadRequest, rec.Code)

		result := decodeSubmitResult(t, rec)
		assert.False(t, result.Success)
		assert.Equal(t, discuss.ErrMissingFields.Error(), result.Error)
	})

	t.Run("body post id must match url", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)

		payload := f.submitPayload("other-post", "hello")
		payload.PostID = "other-post"

		rec := f.postComment(t, "my-first-post", payload)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("invalid json body", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)

		req := httptest.NewRequest(http.MethodPost, "/api/posts/p/comments", bytes.NewReader([]byte("{not json")))
		rec := httptest.NewRecorder()
		f.handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("comments accepted for unknown posts", func(t *testing.T) {
		t.Parallel()

		// The comment store treats the post id as an opaque partition
		// key; it never checks the catalog.
		f := newFixture(t)

		rec := f.postComment(t, "no-such-post", f.submitPayload("no-such-post", "hello"))
		assert.Equal(t, http.StatusCreated, rec.Code)
	})
}

func TestListCommentsEndpoint(t *testing.T) {
	t.Parallel()

	t.Run("empty post", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)

		req := httptest.NewRequest(http.MethodGet, "/api/posts/my-first-post/comments", nil)
		rec := httptest.NewRecorder()
		f.handler.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)

		var page web.CommentPageJSON

		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
		assert.Empty(t, page.Comments)
		assert.Zero(t, page.TotalCount)

		// Empty list still encodes as [], not null.
		assert.Contains(t, rec.Body.String(), `"comments":[]`)
	})

	t.Run("windowed newest first", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)

		for _, text := range []string{"one", "two", "three"} {
			rec := f.postComment(t, "my-first-post", f.submitPayload("my-first-post", text))
			require.Equal(t, http.StatusCreated, rec.Code)
		}

		req := httptest.NewRequest(http.MethodGet, "/api/posts/my-first-post/comments?offset=0&limit=2", nil)
		rec := httptest.NewRecorder()
		f.handler.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)

		var page web.CommentPageJSON

		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
		require.Len(t, page.Comments, 2)
		assert.Equal(t, "three", page.Comments[0].Text)
		assert.Equal(t, "two", page.Comments[1].Text)
		assert.Equal(t, 3, page.TotalCount)
	})

	t.Run("etag revalidation and invalidation", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)

		req := httptest.NewRequest(http.MethodGet, "/api/posts/my-first-post/comments", nil)
		rec := httptest.NewRecorder()
		f.handler.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)

		etag := rec.Header().Get("ETag")
		require.NotEmpty(t, etag)

		req = httptest.NewRequest(http.MethodGet, "/api/posts/my-first-post/comments", nil)
		req.Header.Set("If-None-Match", etag)
		rec = httptest.NewRecorder()
		f.handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNotModified, rec.Code)

		postRec := f.postComment(t, "my-first-post", f.submitPayload("my-first-post", "fresh"))
		require.Equal(t, http.StatusCreated, postRec.Code)

		req = httptest.NewRequest(http.MethodGet, "/api/posts/my-first-post/comments", nil)
		req.Header.Set("If-None-Match", etag)
		rec = httptest.NewRecorder()
		f.handler.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.NotEqual(t, etag, rec.Header().Get("ETag"))
	})
}

func TestPages(t *testing.T) {
	t.Parallel()

	t.Run("home lists posts", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rec := httptest.NewRecorder()
		f.handler.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "My First Post")
		assert.Contains(t, rec.Body.String(), "/blog/my-first-post")
	})

	t.Run("post page renders content and comments", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)

		rec := f.postComment(t, "my-first-post", f.submitPayload("my-first-post", "signed words"))
		require.Equal(t, http.StatusCreated, rec.Code)

		req := httptest.NewRequest(http.MethodGet, "/blog/my-first-post", nil)
		pageRec := httptest.NewRecorder()
		f.handler.ServeHTTP(pageRec, req)

		require.Equal(t, http.StatusOK, pageRec.Code)
		assert.Contains(t, pageRec.Body.String(), "Hello from the blog.")
		assert.Contains(t, pageRec.Body.String(), "Comments (1)")
		assert.Contains(t, pageRec.Body.String(), "signed words")
	})

	t.Run("unknown post is 404", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)

		req := httptest.NewRequest(http.MethodGet, "/blog/nope", nil)
		rec := httptest.NewRecorder()
		f.handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("unknown path is 404", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)

		req := httptest.NewRequest(http.MethodGet, "/whatever", nil)
		rec := httptest.NewRecorder()
		f.handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}
