// auth/auth.go
package auth

import (
	"crypto/subtle"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/crypto/bcrypt"
)

const TokenHeader = "X-Editor-Token"

const editorKey = "editor_id"

type Config struct {
	// Token is the shared editor token, compared in constant time.
	Token string
	// TokenHash is a bcrypt hash of the token; takes precedence over Token.
	TokenHash string
	// EditorID is attached to every authenticated request as the post author.
	EditorID string
}

// Middleware gates editor routes behind the shared token.
func Middleware(cfg Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := c.Get(TokenHeader)
		if token == "" || !cfg.match(token) {
			return fiber.NewError(fiber.StatusUnauthorized, "invalid editor token")
		}
		c.Locals(editorKey, cfg.EditorID)
		return c.Next()
	}
}

func (cfg Config) match(token string) bool {
	if cfg.TokenHash != "" {
		return bcrypt.CompareHashAndPassword([]byte(cfg.TokenHash), []byte(token)) == nil
	}
	return subtle.ConstantTimeCompare([]byte(cfg.Token), []byte(token)) == 1
}

// EditorID returns the editor attached by Middleware, or "" outside it.
func EditorID(c *fiber.Ctx) string {
	if id, ok := c.Locals(editorKey).(string); ok {
		return id
	}
	return ""
}
