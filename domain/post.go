// domain/post.go
package domain

import "time"

type Status string

const (
	StatusDraft     Status = "draft"
	StatusPublished Status = "published"
)

// Post is one markdown file with a front-matter header under the content
// directory. CreatedAt and UpdatedAt come from file metadata, not the
// front matter.
type Post struct {
	Slug        string     `json:"slug"`
	Title       string     `json:"title"`
	Content     string     `json:"content"`
	Excerpt     string     `json:"excerpt,omitempty"`
	Category    string     `json:"category,omitempty"`
	Tags        []string   `json:"tags"`
	Status      Status     `json:"status"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	AuthorID    string     `json:"author_id,omitempty"`

	// Extra carries front-matter keys this server does not interpret.
	// They survive read-modify-write cycles untouched.
	Extra map[string]any `json:"-"`

	Path string `json:"-"`
}

func (p *Post) Published() bool { return p.Status == StatusPublished }

// PostInput is a partial post: a nil field means "leave unchanged" on update
// and "use the default" on create.
type PostInput struct {
	Slug     string    `json:"slug"`
	Title    *string   `json:"title"`
	Content  *string   `json:"content"`
	Excerpt  *string   `json:"excerpt"`
	Category *string   `json:"category"`
	Tags     *[]string `json:"tags"`
	Status   *Status   `json:"status"`
	AuthorID string    `json:"-"`
}

// BuildResult is the outcome of one site build invocation. It is returned to
// the caller and never persisted.
type BuildResult struct {
	Success bool   `json:"success"`
	Output  string `json:"output,omitempty"`
	Error   string `json:"error,omitempty"`
}
