// http/handlers.go
package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/plumecms/plume-server/auth"
	"github.com/plumecms/plume-server/builder"
	"github.com/plumecms/plume-server/content"
	"github.com/plumecms/plume-server/domain"
	"github.com/plumecms/plume-server/events"
)

// Server is the thin request layer: verbs in, store and supervisor calls
// out. It owns status codes and nothing else.
type Server struct {
	store *content.Store
	sup   *builder.Supervisor
	hub   *events.Hub
	log   zerolog.Logger
}

func NewServer(store *content.Store, sup *builder.Supervisor, hub *events.Hub, log zerolog.Logger) *Server {
	return &Server{
		store: store,
		sup:   sup,
		hub:   hub,
		log:   log.With().Str("component", "http").Logger(),
	}
}

// Register mounts the API routes; everything under /api sits behind the
// editor token middleware.
func (s *Server) Register(app *fiber.App, authn fiber.Handler) {
	app.Get("/healthz", s.handleHealth)

	api := app.Group("/api", authn)
	api.Get("/posts", s.handleListPosts)
	api.Post("/posts", s.handleCreatePost)
	api.Get("/posts/:slug", s.handleGetPost)
	api.Put("/posts/:slug", s.handleUpdatePost)
	api.Delete("/posts/:slug", s.handleDeletePost)
	api.Post("/build", s.handleBuild)
}

func (s *Server) handleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

func (s *Server) handleListPosts(c *fiber.Ctx) error {
	if q := c.Query("q"); q != "" {
		posts, err := s.store.Search(q)
		if err != nil {
			return s.fail(c, err)
		}
		return c.JSON(postList(posts))
	}

	var (
		posts []*domain.Post
		err   error
	)
	if c.Query("status") == string(domain.StatusPublished) {
		posts, err = s.store.ListPublished()
	} else {
		posts, err = s.store.ListAll()
	}
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(postList(posts))
}

func (s *Server) handleGetPost(c *fiber.Ctx) error {
	post, err := s.store.GetBySlug(c.Params("slug"))
	if err != nil {
		return s.fail(c, err)
	}
	if post == nil {
		return fiber.NewError(fiber.StatusNotFound, "post not found")
	}
	return c.JSON(post)
}

func (s *Server) handleCreatePost(c *fiber.Ctx) error {
	var input domain.PostInput
	if err := c.BodyParser(&input); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	input.AuthorID = auth.EditorID(c)

	post, err := s.store.Create(input)
	if err != nil {
		return s.fail(c, err)
	}

	s.hub.Publish(events.PostCreated, post)
	return c.Status(fiber.StatusCreated).JSON(post)
}

func (s *Server) handleUpdatePost(c *fiber.Ctx) error {
	var input domain.PostInput
	if err := c.BodyParser(&input); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	input.AuthorID = auth.EditorID(c)

	post, err := s.store.Update(c.Params("slug"), input)
	if err != nil {
		return s.fail(c, err)
	}

	s.hub.Publish(events.PostUpdated, post)
	return c.JSON(post)
}

func (s *Server) handleDeletePost(c *fiber.Ctx) error {
	slug := c.Params("slug")

	post, err := s.store.GetBySlug(slug)
	if err != nil {
		return s.fail(c, err)
	}
	if post == nil {
		return fiber.NewError(fiber.StatusNotFound, "post not found")
	}

	if err := s.store.Delete(slug); err != nil {
		return s.fail(c, err)
	}

	s.hub.Publish(events.PostDeleted, post)
	return c.SendStatus(fiber.StatusNoContent)
}

func (s *Server) handleBuild(c *fiber.Ctx) error {
	res, err := s.sup.Build(c.UserContext())
	switch {
	case errors.Is(err, builder.ErrBuildInProgress):
		return c.Status(fiber.StatusConflict).JSON(res)
	case res.Success:
		return c.JSON(res)
	default:
		return c.Status(fiber.StatusBadGateway).JSON(res)
	}
}

// fail translates store errors into status codes.
func (s *Server) fail(c *fiber.Ctx, err error) error {
	var parseErr *content.ParseError
	switch {
	case errors.Is(err, content.ErrPostNotFound):
		return fiber.NewError(fiber.StatusNotFound, "post not found")
	case errors.Is(err, content.ErrSlugTaken):
		return fiber.NewError(fiber.StatusConflict, err.Error())
	case errors.Is(err, content.ErrInvalidInput):
		return fiber.NewError(fiber.StatusUnprocessableEntity, err.Error())
	case errors.As(err, &parseErr):
		s.log.Error().Err(err).Msg("post file is corrupt")
		return fiber.NewError(fiber.StatusInternalServerError, "post file is corrupt")
	default:
		s.log.Error().Err(err).Msg("storage failure")
		return fiber.NewError(fiber.StatusInternalServerError, "storage failure")
	}
}

// postList keeps empty listings as [] instead of null in responses.
func postList(posts []*domain.Post) []*domain.Post {
	if posts == nil {
		return []*domain.Post{}
	}
	return posts
}
