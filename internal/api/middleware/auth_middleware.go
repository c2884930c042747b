package middleware

import (
	"log/slog"
	"strings"

	"github.com/gofiber/fiber/v2"
	config "github.com/maheshrc27/contentflow/configs"
	"github.com/maheshrc27/contentflow/internal/service"
	"github.com/maheshrc27/contentflow/pkg/utils"
)

const apiKeyHeader = "X-API-Key"

type AuthMiddleware struct {
	s   service.ApiKeyService
	cfg config.Config
}

func NewAuthMiddleware(cfg config.Config, service service.ApiKeyService) *AuthMiddleware {
	return &AuthMiddleware{s: service, cfg: cfg}
}

// AuthMiddleware accepts the session cookie, a Bearer token or an API key.
func (m *AuthMiddleware) AuthMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		tokenString := c.Cookies(m.cfg.CookieName)
		if tokenString == "" {
			if auth := c.Get(fiber.HeaderAuthorization); strings.HasPrefix(auth, "Bearer ") {
				tokenString = strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
			}
		}
		apiKey := c.Get(apiKeyHeader)
		if apiKey == "" {
			apiKey = c.Query("api_key")
		}

		if tokenString == "" && apiKey == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Missing Keys or cookies",
			})
		}

		if tokenString != "" {
			claims, err := utils.ValidateToken(m.cfg.SecretKey, tokenString)
			if err != nil || claims.Role != "operator" {
				c.Cookie(&fiber.Cookie{
					Name:   m.cfg.CookieName,
					Value:  "",
					Path:   "/",
					MaxAge: -1,
				})

				slog.Info("token validation failed", "path", c.Path())
				return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
					"error": "Invalid or expired token",
				})
			}
			c.Locals("role", claims.Role)
			return c.Next()
		}

		key, err := m.s.Authenticate(c.Context(), apiKey)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid API key",
			})
		}
		c.Locals("role", "api_key")
		c.Locals("api_key_id", key.ID)
		return c.Next()
	}
}
