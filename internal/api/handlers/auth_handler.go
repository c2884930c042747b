package handlers

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	config "github.com/maheshrc27/contentflow/configs"
	"github.com/maheshrc27/contentflow/internal/service"
	"github.com/maheshrc27/contentflow/internal/transfer"
)

type AuthHandler struct {
	s   service.AuthService
	cfg config.Config
}

func NewAuthHandler(cfg config.Config, service service.AuthService) *AuthHandler {
	return &AuthHandler{s: service, cfg: cfg}
}

func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req transfer.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	token, err := h.s.Login(c.Context(), req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid password",
			})
		}
		return serverError(c, err)
	}

	c.Cookie(&fiber.Cookie{
		Name:     h.cfg.CookieName,
		Value:    token,
		HTTPOnly: true,
		Secure:   false,
		SameSite: fiber.CookieSameSiteLaxMode,
		Path:     "/",
		Expires:  time.Now().Add(24 * time.Hour),
	})

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"token": token,
	})
}

func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	c.Cookie(&fiber.Cookie{
		Name:   h.cfg.CookieName,
		Value:  "",
		Path:   "/",
		MaxAge: -1,
	})
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *AuthHandler) LinkedInAuth(c *fiber.Ctx) error {
	authURL, err := h.s.LinkedInAuthURL(c.Context())
	if err != nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	return c.Redirect(authURL)
}

func (h *AuthHandler) LinkedInCallback(c *fiber.Ctx) error {
	if e := c.Query("error"); e != "" {
		return badRequest(c, "LinkedIn authorization failed: "+c.Query("error_description", e))
	}

	token, err := h.s.LinkedInCallback(c.Context(), c.Query("code"), c.Query("state"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "something went wrong",
		})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"message":      "Store this token as LINKEDIN_ACCESS_TOKEN",
		"access_token": token.AccessToken,
		"expires_in":   token.ExpiresIn,
	})
}
