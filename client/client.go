// Package client implements the comment submission flow from the signing
// side: build the canonical message, obtain a detached signature from the
// caller's wallet, and send the submission to the server.
//
// Failures are classified so callers can tell the user what to do next:
// ErrSigningRejected means retry the signing prompt, ErrCommentRejected
// means the server refused the comment (nothing to retry as-is), and
// ErrServerUnavailable means try again later.
package client

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
)

var (
	ErrSigningRejected   = errors.New("signing rejected by wallet")
	ErrCommentRejected   = errors.New("comment rejected by server")
	ErrServerUnavailable = errors.New("server unavailable")
)

// Signer is the held-key capability: it signs exactly the bytes it is given
// and returns a detached signature. A wallet that refuses to sign (user
// dismissed the prompt) returns an error.
type Signer interface {
	Sign(message []byte) (signature []byte, err error)
}

// Comment mirrors the server's wire form.
type Comment struct {
	ID        string `json:"id"`
	PostID    string `json:"postId"`
	Author    string `json:"author"`
	Text      string `json:"text"`
	Timestamp string `json:"timestamp"`
}

// CommentPage is one window of a post's comments.
type CommentPage struct {
	Comments   []Comment `json:"comments"`
	TotalCount int       `json:"totalCount"`
}

type submitPayload struct {
	Text      string `json:"text"`
	Author    string `json:"author"`
	Signature string `json:"signature"`
	Message   string `json:"message"`
}

type submitResult struct {
	Success bool     `json:"success"`
	Comment *Comment `json:"comment"`
	Error   string   `json:"error"`
}

type Client struct {
	baseURL    string
	httpClient *http.Client

	// CommentMessage must byte-match the server's reconstruction;
	// injected so the client package carries no crypto of its own.
	buildMessage func(postID, text string) []byte
}

func New(baseURL string, buildMessage func(postID, text string) []byte) *Client {
	return &Client{
		baseURL:      baseURL,
		httpClient:   http.DefaultClient,
		buildMessage: buildMessage,
	}
}

// WithHTTPClient overrides the underlying HTTP client.
func (c *Client) WithHTTPClient(httpClient *http.Client) *Client {
	c.httpClient = httpClient

	return c
}

// SubmitComment runs the full flow: canonical message, wallet signature,
// base64 encoding, POST. The author string must be the signer's public key
// in its canonical encoding.
func (c *Client) SubmitComment(ctx context.Context, signer Signer, author, postID, text string) (*Comment, error) {
	message := c.buildMessage(postID, text)

	signature, err := signer.Sign(message)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSigningRejected, err)
	}

	payload := submitPayload{
		Text:      text,
		Author:    author,
		Signature: base64.StdEncoding.EncodeToString(signature),
		Message:   string(message),
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		c.baseURL+"/api/posts/"+url.PathEscape(postID)+"/comments",
		bytes.NewReader(body),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrServerUnavailable, err)
	}

	defer func() {
		_ = resp.Body.Close()
	}()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response: %w", ErrServerUnavailable, err)
	}

	if resp.StatusCode >= http.StatusInternalServerError {
		return nil, fmt.Errorf("%w: http %d", ErrServerUnavailable, resp.StatusCode)
	}

	var result submitResult

	err = json.Unmarshal(respBody, &result)
	if err != nil {
		return nil, fmt.Errorf("%w: malformed response: %w", ErrServerUnavailable, err)
	}

	if !result.Success || result.Comment == nil {
		return nil, fmt.Errorf("%w: %s", ErrCommentRejected, result.Error)
	}

	return result.Comment, nil
}

// ListComments fetches one window of a post's comments.
func (c *Client) ListComments(ctx context.Context, postID string, offset, limit int) (*CommentPage, error) {
	endpoint := c.baseURL + "/api/posts/" + url.PathEscape(postID) + "/comments" +
		"?offset=" + strconv.Itoa(offset) + "&limit=" + strconv.Itoa(limit)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrServerUnavailable, err)
	}

	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: http %d", ErrServerUnavailable, resp.StatusCode)
	}

	var page CommentPage

	err = json.NewDecoder(resp.Body).Decode(&page)
	if err != nil {
		return nil, fmt.Errorf("%w: malformed response: %w", ErrServerUnavailable, err)
	}

	return &page, nil
}
