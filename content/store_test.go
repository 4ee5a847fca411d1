// content/store_test.go
package content

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/plumecms/plume-server/domain"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(t.TempDir(), zerolog.Nop())
}

func strp(s string) *string                  { return &s }
func statusp(s domain.Status) *domain.Status { return &s }

func TestCreateDerivesSlugAndDefaultsToDraft(t *testing.T) {
	s := newTestStore(t)

	post, err := s.Create(domain.PostInput{
		Title:    strp("First Post"),
		Content:  strp("Hello"),
		AuthorID: "ed-1",
	})
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if post.Slug != "first-post" {
		t.Errorf("slug = %q, want first-post", post.Slug)
	}
	if post.Status != domain.StatusDraft {
		t.Errorf("status = %q, want draft", post.Status)
	}
	if post.PublishedAt != nil {
		t.Errorf("fresh draft has PublishedAt = %v", post.PublishedAt)
	}
	if post.AuthorID != "ed-1" {
		t.Errorf("author = %q", post.AuthorID)
	}
}

func TestCreateRoundTrip(t *testing.T) {
	s := newTestStore(t)

	created, err := s.Create(domain.PostInput{
		Title:    strp("Round Trip"),
		Content:  strp("# Heading\n\nSome *markdown* body."),
		Excerpt:  strp("short summary"),
		Category: strp("notes"),
		Tags:     &[]string{"go", "testing"},
	})
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	got, err := s.GetBySlug(created.Slug)
	if err != nil {
		t.Fatalf("GetBySlug returned error: %v", err)
	}
	if got == nil {
		t.Fatal("GetBySlug returned nil for a freshly created post")
	}
	if got.Title != created.Title || got.Content != created.Content ||
		got.Excerpt != created.Excerpt || got.Category != created.Category {
		t.Errorf("read back %+v, created %+v", got, created)
	}
	if len(got.Tags) != 2 || got.Tags[0] != "go" || got.Tags[1] != "testing" {
		t.Errorf("tags = %v", got.Tags)
	}
}

func TestCreateRoundTripWithDashesInTitle(t *testing.T) {
	s := newTestStore(t)

	created, err := s.Create(domain.PostInput{
		Title:   strp("Part 1 --- Part 2"),
		Content: strp("body"),
	})
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	got, err := s.GetBySlug(created.Slug)
	if err != nil {
		t.Fatalf("GetBySlug returned error: %v", err)
	}
	if got == nil {
		t.Fatal("GetBySlug returned nil")
	}
	if got.Title != "Part 1 --- Part 2" {
		t.Errorf("title = %q after round trip", got.Title)
	}
	if got.Status != domain.StatusDraft {
		t.Errorf("status = %q, want draft to survive the round trip", got.Status)
	}
	if got.Content != "body" {
		t.Errorf("content = %q", got.Content)
	}
}

func TestCreateConflict(t *testing.T) {
	s := newTestStore(t)

	input := domain.PostInput{Title: strp("Same Title"), Content: strp("a")}
	if _, err := s.Create(input); err != nil {
		t.Fatalf("first Create returned error: %v", err)
	}

	_, err := s.Create(domain.PostInput{Title: strp("Same Title"), Content: strp("b")})
	if !errors.Is(err, ErrSlugTaken) {
		t.Fatalf("second Create returned %v, want ErrSlugTaken", err)
	}

	// The original file must be untouched.
	got, err := s.GetBySlug("same-title")
	if err != nil || got == nil {
		t.Fatalf("GetBySlug after conflict: post=%v err=%v", got, err)
	}
	if got.Content != "a" {
		t.Errorf("conflicting create overwrote content: %q", got.Content)
	}
}

func TestCreateValidation(t *testing.T) {
	s := newTestStore(t)

	cases := []domain.PostInput{
		{Content: strp("no title")},
		{Title: strp(""), Content: strp("empty title")},
		{Title: strp("No Content")},
		{Title: strp("!!!"), Content: strp("unsluggable")},
		{Title: strp("Bad Status"), Content: strp("x"), Status: statusp("archived")},
	}
	for i, input := range cases {
		if _, err := s.Create(input); !errors.Is(err, ErrInvalidInput) {
			t.Errorf("case %d: Create returned %v, want ErrInvalidInput", i, err)
		}
	}
}

func TestCreateAllowsEmptyContent(t *testing.T) {
	s := newTestStore(t)

	post, err := s.Create(domain.PostInput{Title: strp("Stub"), Content: strp("")})
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if post.Content != "" {
		t.Errorf("content = %q, want empty", post.Content)
	}
}

func TestUpdateMergesPartialInput(t *testing.T) {
	s := newTestStore(t)

	if _, err := s.Create(domain.PostInput{
		Title:   strp("Keep Me"),
		Content: strp("original body"),
		Tags:    &[]string{"one"},
	}); err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	got, err := s.Update("keep-me", domain.PostInput{Excerpt: strp("now with excerpt")})
	if err != nil {
		t.Fatalf("Update returned error: %v", err)
	}
	if got.Title != "Keep Me" || got.Content != "original body" || len(got.Tags) != 1 {
		t.Errorf("omitted fields changed: %+v", got)
	}
	if got.Excerpt != "now with excerpt" {
		t.Errorf("excerpt = %q", got.Excerpt)
	}
}

func TestUpdatePublishStampsPublishedAtOnce(t *testing.T) {
	s := newTestStore(t)

	created, err := s.Create(domain.PostInput{Title: strp("Will Publish"), Content: strp("x")})
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	published, err := s.Update(created.Slug, domain.PostInput{Status: statusp(domain.StatusPublished)})
	if err != nil {
		t.Fatalf("Update returned error: %v", err)
	}
	if published.PublishedAt == nil {
		t.Fatal("publish did not set PublishedAt")
	}
	if published.PublishedAt.Before(created.CreatedAt.Add(-time.Second)) {
		t.Errorf("PublishedAt %v before CreatedAt %v", published.PublishedAt, created.CreatedAt)
	}
	first := *published.PublishedAt

	again, err := s.Update(created.Slug, domain.PostInput{Title: strp("Will Publish, Edited")})
	if err != nil {
		t.Fatalf("second Update returned error: %v", err)
	}
	if again.PublishedAt == nil || !again.PublishedAt.Equal(first) {
		t.Errorf("PublishedAt changed on a later edit: %v -> %v", first, again.PublishedAt)
	}
}

func TestUpdateNotFound(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.Update("ghost", domain.PostInput{Title: strp("x")}); !errors.Is(err, ErrPostNotFound) {
		t.Fatalf("Update returned %v, want ErrPostNotFound", err)
	}
}

func TestDelete(t *testing.T) {
	s := newTestStore(t)

	if _, err := s.Create(domain.PostInput{Title: strp("Doomed"), Content: strp("x")}); err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if err := s.Delete("doomed"); err != nil {
		t.Fatalf("Delete returned error: %v", err)
	}

	got, err := s.GetBySlug("doomed")
	if err != nil {
		t.Fatalf("GetBySlug returned error: %v", err)
	}
	if got != nil {
		t.Errorf("post still readable after delete: %+v", got)
	}

	if err := s.Delete("doomed"); !errors.Is(err, ErrPostNotFound) {
		t.Errorf("second Delete returned %v, want ErrPostNotFound", err)
	}
}

func TestGetBySlugAbsentIsNotAnError(t *testing.T) {
	s := newTestStore(t)
	got, err := s.GetBySlug("nope")
	if err != nil {
		t.Fatalf("GetBySlug returned error: %v", err)
	}
	if got != nil {
		t.Errorf("got %+v, want nil", got)
	}
}

func TestGetBySlugCorruptFileIsParseError(t *testing.T) {
	s := newTestStore(t)
	if err := s.ensureDir(); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(s.path("broken"), []byte("no front matter here"), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := s.GetBySlug("broken")
	var parseErr *ParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("GetBySlug returned %v, want *ParseError", err)
	}
}

func TestListAllMissingDirMeansZeroPosts(t *testing.T) {
	s := NewStore(filepath.Join(t.TempDir(), "never-created"), zerolog.Nop())
	posts, err := s.ListAll()
	if err != nil {
		t.Fatalf("ListAll returned error: %v", err)
	}
	if len(posts) != 0 {
		t.Errorf("got %d posts from a missing dir", len(posts))
	}
}

func TestListAllSkipsCorruptFiles(t *testing.T) {
	s := newTestStore(t)

	for _, title := range []string{"Alpha", "Beta", "Gamma"} {
		if _, err := s.Create(domain.PostInput{Title: strp(title), Content: strp("x")}); err != nil {
			t.Fatalf("Create(%s) returned error: %v", title, err)
		}
	}
	if err := os.WriteFile(s.path("corrupt"), []byte("::: not a post :::"), 0o644); err != nil {
		t.Fatal(err)
	}

	posts, err := s.ListAll()
	if err != nil {
		t.Fatalf("ListAll returned error: %v", err)
	}
	if len(posts) != 3 {
		t.Errorf("got %d posts, want 3 (corrupt file skipped)", len(posts))
	}
}

func TestListAllOrdersByUpdatedAtDescending(t *testing.T) {
	s := newTestStore(t)

	for _, title := range []string{"Older", "Newer"} {
		if _, err := s.Create(domain.PostInput{Title: strp(title), Content: strp("x")}); err != nil {
			t.Fatalf("Create(%s) returned error: %v", title, err)
		}
	}
	past := time.Now().Add(-time.Hour)
	if err := os.Chtimes(s.path("older"), past, past); err != nil {
		t.Fatal(err)
	}

	posts, err := s.ListAll()
	if err != nil {
		t.Fatalf("ListAll returned error: %v", err)
	}
	if len(posts) != 2 || posts[0].Slug != "newer" || posts[1].Slug != "older" {
		t.Errorf("unexpected order: %v, %v", posts[0].Slug, posts[1].Slug)
	}
}

func TestListPublishedFiltersDrafts(t *testing.T) {
	s := newTestStore(t)

	if _, err := s.Create(domain.PostInput{Title: strp("Draft One"), Content: strp("x")}); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Create(domain.PostInput{
		Title:   strp("Live One"),
		Content: strp("x"),
		Status:  statusp(domain.StatusPublished),
	}); err != nil {
		t.Fatal(err)
	}

	published, err := s.ListPublished()
	if err != nil {
		t.Fatalf("ListPublished returned error: %v", err)
	}
	if len(published) != 1 || published[0].Slug != "live-one" {
		t.Errorf("published = %+v", published)
	}
}

func TestSearchMatchesAcrossFieldsAndStatuses(t *testing.T) {
	s := newTestStore(t)

	if _, err := s.Create(domain.PostInput{
		Title:   strp("Gardening Notes"),
		Content: strp("tomatoes and basil"),
	}); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Create(domain.PostInput{
		Title:    strp("Unrelated"),
		Content:  strp("nothing to see"),
		Category: strp("horticulture"),
		Tags:     &[]string{"TOMATO"},
		Status:   statusp(domain.StatusPublished),
	}); err != nil {
		t.Fatal(err)
	}

	hits, err := s.Search("tomato")
	if err != nil {
		t.Fatalf("Search returned error: %v", err)
	}
	if len(hits) != 2 {
		t.Fatalf("Search(tomato) found %d posts, want 2 (draft matched too)", len(hits))
	}

	hits, err = s.Search("HORTICULTURE")
	if err != nil {
		t.Fatalf("Search returned error: %v", err)
	}
	if len(hits) != 1 || hits[0].Slug != "unrelated" {
		t.Errorf("category search hits = %+v", hits)
	}

	hits, err = s.Search("no such words anywhere")
	if err != nil {
		t.Fatalf("Search returned error: %v", err)
	}
	if len(hits) != 0 {
		t.Errorf("expected no hits, got %d", len(hits))
	}
}

func TestUpdatePreservesUnknownFrontMatterKeys(t *testing.T) {
	s := newTestStore(t)
	if err := s.ensureDir(); err != nil {
		t.Fatal(err)
	}

	handWritten := `---
title: Hand Written
date: 2024-01-02T15:04:05Z
draft: true
slug: hand-written
layout: wide
---

Body here.
`
	if err := os.WriteFile(s.path("hand-written"), []byte(handWritten), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := s.Update("hand-written", domain.PostInput{Title: strp("Hand Written, Edited")}); err != nil {
		t.Fatalf("Update returned error: %v", err)
	}

	data, err := os.ReadFile(s.path("hand-written"))
	if err != nil {
		t.Fatal(err)
	}
	if want := "layout: wide"; !strings.Contains(string(data), want) {
		t.Errorf("rewrite dropped %q:\n%s", want, data)
	}
}
