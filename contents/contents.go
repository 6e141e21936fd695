// Package contents is the post catalog: markdown files in a directory,
// rendered to HTML on read. The file name (without extension) is the slug.
package contents

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/yuin/goldmark"
	meta "github.com/yuin/goldmark-meta"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
)

var ErrPostNotFound = errors.New("post not found")

type Service struct {
	dir      string
	markdown goldmark.Markdown
}

func NewService(dir string) *Service {
	return &Service{
		dir: dir,
		markdown: goldmark.New(
			goldmark.WithExtensions(
				extension.GFM,
				meta.Meta,
			),
		),
	}
}

// ListPosts returns all posts sorted newest first. A missing or unreadable
// posts directory degrades to an empty catalog; a single broken file is
// skipped, not fatal.
func (svc *Service) ListPosts(ctx context.Context) ([]*Post, error) {
	entries, err := os.ReadDir(svc.dir)
	if err != nil {
		slog.WarnContext(ctx, "failed to read posts directory", "dir", svc.dir, "error", err)

		return []*Post{}, nil
	}

	posts := make([]*Post, 0, len(entries))

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".md") {
			continue
		}

		slug := strings.TrimSuffix(entry.Name(), ".md")

		post, err := svc.loadPost(slug)
		if err != nil {
			slog.WarnContext(ctx, "failed to load post", "slug", slug, "error", err)

			continue
		}

		posts = append(posts, post)
	}

	sort.Slice(posts, func(i, j int) bool {
		return posts[i].Date.After(posts[j].Date)
	})

	return posts, nil
}

// GetPost loads and renders one post by slug.
func (svc *Service) GetPost(ctx context.Context, slug string) (*Post, error) {
	if !validSlug(slug) {
		return nil, ErrPostNotFound
	}

	post, err := svc.loadPost(slug)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrPostNotFound
		}

		return nil, fmt.Errorf("failed to load post %q: %w", slug, err)
	}

	return post, nil
}

func (svc *Service) loadPost(slug string) (*Post, error) {
	src, err := os.ReadFile(filepath.Join(svc.dir, slug+".md"))
	if err != nil {
		return nil, fmt.Errorf("failed to read post file: %w", err)
	}

	var buf bytes.Buffer

	pctx := parser.NewContext()

	err = svc.markdown.Convert(src, &buf, parser.WithContext(pctx))
	if err != nil {
		return nil, fmt.Errorf("failed to render markdown: %w", err)
	}

	post := &Post{
		Slug:        slug,
		Title:       slug,
		ContentHTML: template.HTML(buf.String()),
	}

	for key, value := range meta.Get(pctx) {
		s, ok := value.(string)
		if !ok {
			continue
		}

		switch key {
		case "title":
			post.Title = s
		case "excerpt":
			post.Excerpt = s
		case "author":
			post.Author = s
		case "date":
			post.Date = parseDate(s)
		}
	}

	return post, nil
}

func parseDate(s string) time.Time {
	for _, layout := range []string{time.RFC3339, time.DateOnly} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}

	return time.Time{}
}

// validSlug keeps GetPost from walking outside the posts directory.
func validSlug(slug string) bool {
	if slug == "" {
		return false
	}

	return !strings.ContainsAny(slug, `/\`) && slug != "." && slug != ".." && !strings.HasPrefix(slug, ".")
}
