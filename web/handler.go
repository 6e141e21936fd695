// Package web is the HTTP surface: server-rendered pages for the blog and a
// JSON API for the wallet-signed comment system.
package web

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"maps"
	"net/http"
	"runtime/debug"

	"github.com/arminmz/sigil/contents"
	"github.com/arminmz/sigil/discuss"
)

//go:embed templates/*.gohtml
var templatesFS embed.FS

const defaultSiteTitle = "Sigil"

type Handler struct {
	mux         *http.ServeMux
	handler     http.Handler
	tpl         *template.Template
	contentsSvc *contents.Service
	discussSvc  *discuss.Service
	versions    *commentVersions
}

var _ http.Handler = (*Handler)(nil)

func NewHandler(contentsSvc *contents.Service, discussSvc *discuss.Service) (*Handler, error) {
	h := &Handler{
		mux:         nil,
		handler:     nil,
		tpl:         nil,
		contentsSvc: contentsSvc,
		discussSvc:  discussSvc,
		versions:    newCommentVersions(),
	}

	tpl, err := template.New("").Funcs(template.FuncMap{
		"shortKey": shortKey,
	}).ParseFS(templatesFS, "templates/*.gohtml")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}

	h.tpl = tpl

	h.mux = &http.ServeMux{}
	h.handler = h.mux

	h.registerRoutes()

	h.handler = recoverMiddleware(h.handler)

	return h, nil
}

// InvalidatePost satisfies discuss.Invalidator: a freshly stored comment
// retires any cached rendering of its post's comment list.
func (h *Handler) InvalidatePost(ctx context.Context, postID string) {
	h.versions.bump(postID)
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.handler.ServeHTTP(w, r)
}

func (h *Handler) registerRoutes() {
	h.mux.HandleFunc("/", h.HandleHomePage)
	h.mux.HandleFunc("GET /blog/{slug}", h.HandlePostPage)

	h.mux.HandleFunc("GET /api/posts/{postId}/comments", h.HandleListComments)
	h.mux.HandleFunc("POST /api/posts/{postId}/comments", h.HandleSubmitComment)
}

func recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func(ctx context.Context) {
			if err := recover(); err != nil {
				slog.ErrorContext(
					ctx,
					"recovered from panic",
					"error",
					err,
					"stack",
					string(debug.Stack()),
				)

				http.Error(w, "internal error occurred", http.StatusInternalServerError)
			}
		}(r.Context())

		next.ServeHTTP(w, r)
	})
}

func (h *Handler) renderTemplate(w http.ResponseWriter, r *http.Request, name string, extraData map[string]any) {
	data := map[string]any{
		"CurrentPath": r.URL.Path,
		"Lang":        "en",
		"Dir":         "ltr",
	}

	maps.Copy(data, extraData)

	data["SiteTitle"] = defaultSiteTitle

	if extraData["SiteTitle"] != nil {
		data["SiteTitle"] = fmt.Sprintf("%s | %s", extraData["SiteTitle"], data["SiteTitle"])
	}

	err := h.tpl.ExecuteTemplate(w, name, data)
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to render template", "name", name, "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)

		return
	}
}

func (h *Handler) HandleHomePage(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)

		return
	}

	posts, err := h.contentsSvc.ListPosts(r.Context())
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to list posts", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)

		return
	}

	data := map[string]any{
		"Posts": posts,
	}

	h.renderTemplate(w, r, "home-page.gohtml", data)
}

func (h *Handler) HandlePostPage(w http.ResponseWriter, r *http.Request) {
	slug := r.PathValue("slug")

	post, err := h.contentsSvc.GetPost(r.Context(), slug)
	if err != nil {
		if errors.Is(err, contents.ErrPostNotFound) {
			http.NotFound(w, r)

			return
		}

		slog.ErrorContext(r.Context(), "failed to get post", "slug", slug, "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)

		return
	}

	// The read path is non-critical: ListComments degrades to an empty
	// page on storage failure, so the post still renders.
	page, err := h.discussSvc.ListComments(r.Context(), slug, 0, discuss.DefaultListLimit)
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to list comments", "slug", slug, "error", err)

		page = &discuss.CommentPage{Comments: []*discuss.Comment{}, TotalCount: 0}
	}

	data := map[string]any{
		"SiteTitle":     post.Title,
		"Post":          post,
		"Comments":      page.Comments,
		"CommentsTotal": page.TotalCount,
	}

	h.renderTemplate(w, r, "post-page.gohtml", data)
}

// shortKey abbreviates a base58 public key for display, keeping the first
// and last four characters.
func shortKey(key string) string {
	if len(key) <= 8 {
		return key
	}

	return key[:4] + "..." + key[len(key)-4:]
}
