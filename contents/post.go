package contents

import (
	"html/template"
	"time"
)

// Post is one markdown file from the posts directory. Slug doubles as the
// partition key for the post's comments; the comment store treats it as an
// opaque string and never looks back into the catalog.
type Post struct {
	Slug        string
	Title       string
	Date        time.Time
	Excerpt     string
	Author      string
	ContentHTML template.HTML
}
