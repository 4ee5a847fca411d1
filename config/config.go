// config/config.go
package config

import (
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds environment driven settings. Everything has a usable default
// for local use; the editor token should come from the environment in any
// real deployment.
type Config struct {
	Port            string
	ContentDir      string
	SiteDir         string
	BuildCommand    string
	BuildArgs       []string
	BuildTimeout    time.Duration
	EditorToken     string
	EditorTokenHash string
	EditorID        string
	LogLevel        string
}

// Load reads .env when present, then the environment.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		Port:            getenv("PLUME_PORT", "8080"),
		ContentDir:      getenv("PLUME_CONTENT_DIR", "./site/content/posts"),
		SiteDir:         getenv("PLUME_SITE_DIR", "./site"),
		BuildCommand:    getenv("PLUME_BUILD_COMMAND", "hugo"),
		BuildArgs:       strings.Fields(os.Getenv("PLUME_BUILD_ARGS")),
		BuildTimeout:    getduration("PLUME_BUILD_TIMEOUT", 30*time.Second),
		EditorToken:     getenv("PLUME_TOKEN", "dev"),
		EditorTokenHash: os.Getenv("PLUME_TOKEN_BCRYPT"),
		EditorID:        getenv("PLUME_EDITOR_ID", "editor"),
		LogLevel:        getenv("PLUME_LOG_LEVEL", "info"),
	}
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getduration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
