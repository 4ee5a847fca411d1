// content/frontmatter.go
package content

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/plumecms/plume-server/domain"
)

// frontMatter is the on-disk header schema. Extra soaks up keys written by
// other tools so they survive a rewrite.
type frontMatter struct {
	Title    string         `yaml:"title"`
	Date     time.Time      `yaml:"date"`
	Draft    bool           `yaml:"draft"`
	Slug     string         `yaml:"slug"`
	Excerpt  string         `yaml:"excerpt,omitempty"`
	Category string         `yaml:"category,omitempty"`
	Tags     []string       `yaml:"tags,omitempty"`
	AuthorID string         `yaml:"author_id,omitempty"`
	Extra    map[string]any `yaml:",inline"`
}

// splitFrontMatter separates the header from the body. The delimiters are
// lines consisting solely of "---": the opening one must be the first line,
// and a "---" embedded in a field value or the body does not count.
func splitFrontMatter(data []byte) (head, body []byte, err error) {
	rest, ok := bytes.CutPrefix(data, []byte("---\n"))
	if !ok {
		return nil, nil, fmt.Errorf("missing front matter delimiters")
	}
	if head, body, ok = bytes.Cut(rest, []byte("\n---\n")); ok {
		return head, body, nil
	}
	// Closing delimiter as the final line, no trailing newline.
	if head, ok = bytes.CutSuffix(rest, []byte("\n---")); ok {
		return head, nil, nil
	}
	return nil, nil, fmt.Errorf("missing front matter delimiters")
}

func decodePost(data []byte) (*domain.Post, error) {
	head, body, err := splitFrontMatter(data)
	if err != nil {
		return nil, err
	}

	var fm frontMatter
	if err := yaml.Unmarshal(head, &fm); err != nil {
		return nil, fmt.Errorf("decode front matter: %w", err)
	}
	if fm.Title == "" {
		return nil, fmt.Errorf("front matter has no title")
	}

	post := &domain.Post{
		Slug:     fm.Slug,
		Title:    fm.Title,
		Content:  string(bytes.TrimSpace(body)),
		Excerpt:  fm.Excerpt,
		Category: fm.Category,
		Tags:     fm.Tags,
		Status:   domain.StatusPublished,
		AuthorID: fm.AuthorID,
		Extra:    fm.Extra,
	}
	if fm.Draft {
		post.Status = domain.StatusDraft
	} else if !fm.Date.IsZero() {
		date := fm.Date
		post.PublishedAt = &date
	}
	if !fm.Date.IsZero() {
		post.CreatedAt = fm.Date
	}
	return post, nil
}

func encodePost(post *domain.Post) ([]byte, error) {
	date := post.CreatedAt
	if post.PublishedAt != nil {
		date = *post.PublishedAt
	}
	if date.IsZero() {
		date = time.Now()
	}

	fm := frontMatter{
		Title:    post.Title,
		Date:     date,
		Draft:    post.Status == domain.StatusDraft,
		Slug:     post.Slug,
		Excerpt:  post.Excerpt,
		Category: post.Category,
		Tags:     post.Tags,
		AuthorID: post.AuthorID,
		Extra:    post.Extra,
	}

	var buf bytes.Buffer
	buf.WriteString("---\n")

	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(&fm); err != nil {
		return nil, fmt.Errorf("encode front matter: %w", err)
	}
	enc.Close()

	buf.WriteString("---\n\n")
	buf.WriteString(post.Content)
	if post.Content != "" && !strings.HasSuffix(post.Content, "\n") {
		buf.WriteByte('\n')
	}

	return buf.Bytes(), nil
}
