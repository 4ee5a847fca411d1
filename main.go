// main.go
package main

import (
	"context"
	"os"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/rs/zerolog"

	"github.com/plumecms/plume-server/auth"
	"github.com/plumecms/plume-server/builder"
	"github.com/plumecms/plume-server/config"
	"github.com/plumecms/plume-server/content"
	"github.com/plumecms/plume-server/events"
	httphandlers "github.com/plumecms/plume-server/http"
)

func main() {
	cfg := config.Load()

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	log := zerolog.New(os.Stdout).Level(level).With().Timestamp().Logger()

	store := content.NewStore(cfg.ContentDir, log)

	sup, err := builder.NewSupervisor(cfg.SiteDir,
		builder.WithCommand(cfg.BuildCommand, cfg.BuildArgs...),
		builder.WithTimeout(cfg.BuildTimeout),
		builder.WithLogger(log),
	)
	if err != nil {
		log.Fatal().Err(err).Msg("build supervisor misconfigured")
	}

	hub := events.NewHub()
	go hub.Run()

	builder.NewTrigger(hub, sup, log).Start(context.Background())

	server := httphandlers.NewServer(store, sup, hub, log)

	app := fiber.New(fiber.Config{AppName: "plume-server"})
	app.Use(cors.New(cors.Config{
		AllowHeaders: "Content-Type, " + auth.TokenHeader,
	}))
	server.Register(app, auth.Middleware(auth.Config{
		Token:     cfg.EditorToken,
		TokenHash: cfg.EditorTokenHash,
		EditorID:  cfg.EditorID,
	}))

	log.Info().
		Str("port", cfg.Port).
		Str("content_dir", cfg.ContentDir).
		Str("site_dir", cfg.SiteDir).
		Msg("server starting")
	if err := app.Listen(":" + cfg.Port); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}
