// content/store.go
package content

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"github.com/rs/zerolog"

	"github.com/plumecms/plume-server/domain"
)

// lockFile is the advisory lock taken around writes so a second server
// process sharing the content dir cannot interleave a file.
const lockFile = ".plume.lock"

// Store owns the on-disk representation of posts: one markdown file with a
// front-matter header per post, named {slug}.md, under dir. The directory is
// created lazily on the first write.
type Store struct {
	dir string
	log zerolog.Logger

	mu    sync.Mutex
	slugs map[string]*sync.Mutex
}

func NewStore(dir string, log zerolog.Logger) *Store {
	return &Store{
		dir:   dir,
		log:   log.With().Str("component", "content").Logger(),
		slugs: make(map[string]*sync.Mutex),
	}
}

// ListAll returns every parseable post, newest update first. A corrupt file
// is skipped and logged; a missing directory means zero posts.
func (s *Store) ListAll() ([]*domain.Post, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, &StorageError{Op: "readdir", Path: s.dir, Err: err}
	}

	var posts []*domain.Post
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".md") {
			continue
		}
		post, err := s.readPost(filepath.Join(s.dir, entry.Name()))
		if err != nil {
			s.log.Warn().Err(err).Str("file", entry.Name()).Msg("skipping unreadable post")
			continue
		}
		posts = append(posts, post)
	}

	sort.Slice(posts, func(i, j int) bool {
		return posts[i].UpdatedAt.After(posts[j].UpdatedAt)
	})
	return posts, nil
}

func (s *Store) ListPublished() ([]*domain.Post, error) {
	posts, err := s.ListAll()
	if err != nil {
		return nil, err
	}
	var published []*domain.Post
	for _, post := range posts {
		if post.Published() {
			published = append(published, post)
		}
	}
	return published, nil
}

// GetBySlug returns nil without an error when no post has the slug.
func (s *Store) GetBySlug(slug string) (*domain.Post, error) {
	path := s.path(slug)
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, &StorageError{Op: "stat", Path: path, Err: err}
	}
	return s.readPost(path)
}

// Create writes a new post file. The slug comes from the input when given and
// is derived from the title otherwise; an existing file with that slug is a
// conflict, never an overwrite.
func (s *Store) Create(input domain.PostInput) (*domain.Post, error) {
	if input.Title == nil || *input.Title == "" {
		return nil, fmt.Errorf("%w: title is required", ErrInvalidInput)
	}
	if input.Content == nil {
		return nil, fmt.Errorf("%w: content is required", ErrInvalidInput)
	}
	if err := validStatus(input.Status); err != nil {
		return nil, err
	}

	slug := input.Slug
	if slug == "" {
		slug = DeriveSlug(*input.Title)
	}
	if slug == "" {
		return nil, fmt.Errorf("%w: title %q yields an empty slug", ErrInvalidInput, *input.Title)
	}

	unlock := s.lockSlug(slug)
	defer unlock()

	if err := s.ensureDir(); err != nil {
		return nil, err
	}

	path := s.path(slug)
	if _, err := os.Stat(path); err == nil {
		return nil, fmt.Errorf("%w: %s", ErrSlugTaken, slug)
	} else if !errors.Is(err, fs.ErrNotExist) {
		return nil, &StorageError{Op: "stat", Path: path, Err: err}
	}

	post := &domain.Post{
		Slug:      slug,
		Title:     *input.Title,
		Content:   *input.Content,
		Tags:      []string{},
		Status:    domain.StatusDraft,
		CreatedAt: time.Now(),
		AuthorID:  input.AuthorID,
	}
	if input.Excerpt != nil {
		post.Excerpt = *input.Excerpt
	}
	if input.Category != nil {
		post.Category = *input.Category
	}
	if input.Tags != nil {
		post.Tags = *input.Tags
	}
	if input.Status != nil {
		post.Status = *input.Status
	}
	if post.Published() {
		now := time.Now()
		post.PublishedAt = &now
	}

	if err := s.writePost(post); err != nil {
		return nil, err
	}
	// Hand back what a reader would see, not what we think we wrote.
	return s.readPost(path)
}

// Update merges the given fields over the stored post and rewrites the file.
// The first transition to published stamps PublishedAt.
func (s *Store) Update(slug string, input domain.PostInput) (*domain.Post, error) {
	if err := validStatus(input.Status); err != nil {
		return nil, err
	}

	unlock := s.lockSlug(slug)
	defer unlock()

	path := s.path(slug)
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrPostNotFound, slug)
		}
		return nil, &StorageError{Op: "stat", Path: path, Err: err}
	}

	post, err := s.readPost(path)
	if err != nil {
		return nil, err
	}

	if input.Title != nil {
		post.Title = *input.Title
	}
	if input.Content != nil {
		post.Content = *input.Content
	}
	if input.Excerpt != nil {
		post.Excerpt = *input.Excerpt
	}
	if input.Category != nil {
		post.Category = *input.Category
	}
	if input.Tags != nil {
		post.Tags = *input.Tags
	}
	if input.AuthorID != "" {
		post.AuthorID = input.AuthorID
	}
	if input.Status != nil {
		post.Status = *input.Status
		if post.Published() && post.PublishedAt == nil {
			now := time.Now()
			post.PublishedAt = &now
		}
	}

	if err := s.writePost(post); err != nil {
		return nil, err
	}
	return s.readPost(path)
}

// Delete unlinks the post file. There are no cascading effects.
func (s *Store) Delete(slug string) error {
	unlock := s.lockSlug(slug)
	defer unlock()

	path := s.path(slug)
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrPostNotFound, slug)
		}
		return &StorageError{Op: "stat", Path: path, Err: err}
	}

	if err := s.locked(func() error { return os.Remove(path) }); err != nil {
		return &StorageError{Op: "remove", Path: path, Err: err}
	}
	return nil
}

// Search matches query case-insensitively against title, content, excerpt,
// category and tags, across drafts and published posts alike.
func (s *Store) Search(query string) ([]*domain.Post, error) {
	posts, err := s.ListAll()
	if err != nil {
		return nil, err
	}
	q := strings.ToLower(query)
	var hits []*domain.Post
	for _, post := range posts {
		if matches(post, q) {
			hits = append(hits, post)
		}
	}
	return hits, nil
}

func matches(post *domain.Post, q string) bool {
	if strings.Contains(strings.ToLower(post.Title), q) ||
		strings.Contains(strings.ToLower(post.Content), q) ||
		strings.Contains(strings.ToLower(post.Excerpt), q) ||
		strings.Contains(strings.ToLower(post.Category), q) {
		return true
	}
	for _, tag := range post.Tags {
		if strings.Contains(strings.ToLower(tag), q) {
			return true
		}
	}
	return false
}

func (s *Store) path(slug string) string { return filepath.Join(s.dir, slug+".md") }

func (s *Store) ensureDir() error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return &StorageError{Op: "mkdir", Path: s.dir, Err: err}
	}
	return nil
}

// lockSlug serializes in-process writers of one post file so concurrent
// updates cannot produce a truncated or interleaved write.
func (s *Store) lockSlug(slug string) func() {
	s.mu.Lock()
	m, ok := s.slugs[slug]
	if !ok {
		m = &sync.Mutex{}
		s.slugs[slug] = m
	}
	s.mu.Unlock()
	m.Lock()
	return m.Unlock
}

// locked runs fn while holding the cross-process advisory lock. A fresh flock
// per call keeps independent goroutines from sharing one file descriptor.
func (s *Store) locked(fn func() error) error {
	fl := flock.New(filepath.Join(s.dir, lockFile))
	if err := fl.Lock(); err != nil {
		return err
	}
	defer fl.Unlock()
	return fn()
}

func (s *Store) readPost(path string) (*domain.Post, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &StorageError{Op: "read", Path: path, Err: err}
	}

	post, err := decodePost(data)
	if err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}

	post.Path = path
	if post.Slug == "" {
		post.Slug = strings.TrimSuffix(filepath.Base(path), ".md")
	}
	if info, err := os.Stat(path); err == nil {
		post.UpdatedAt = info.ModTime()
		if post.CreatedAt.IsZero() {
			post.CreatedAt = info.ModTime()
		}
	}
	return post, nil
}

func (s *Store) writePost(post *domain.Post) error {
	data, err := encodePost(post)
	if err != nil {
		return &StorageError{Op: "encode", Path: s.path(post.Slug), Err: err}
	}
	if err := s.locked(func() error {
		return os.WriteFile(s.path(post.Slug), data, 0o644)
	}); err != nil {
		return &StorageError{Op: "write", Path: s.path(post.Slug), Err: err}
	}
	return nil
}

func validStatus(status *domain.Status) error {
	if status == nil || *status == domain.StatusDraft || *status == domain.StatusPublished {
		return nil
	}
	return fmt.Errorf("%w: unknown status %q", ErrInvalidInput, *status)
}
