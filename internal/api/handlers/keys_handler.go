package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/maheshrc27/contentflow/internal/service"
)

type ApiKeyHandler struct {
	s service.ApiKeyService
}

func NewApiKeyHandler(service service.ApiKeyService) *ApiKeyHandler {
	return &ApiKeyHandler{s: service}
}

func (h *ApiKeyHandler) CreateApiKey(c *fiber.Ctx) error {
	var in struct {
		Label string `json:"label"`
	}
	_ = c.BodyParser(&in)

	key, meta, err := h.s.Create(c.Context(), in.Label)
	if err != nil {
		if errors.Is(err, service.ErrApiKeyLimit) {
			return badRequest(c, err.Error())
		}
		return serverError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"api_key": key,
		"key":     meta,
	})
}

func (h *ApiKeyHandler) ListKeys(c *fiber.Ctx) error {
	keys, err := h.s.List(c.Context())
	if err != nil {
		return serverError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(keys)
}

func (h *ApiKeyHandler) RemoveAPIKey(c *fiber.Ctx) error {
	id, err := ParamID(c)
	if err != nil {
		return badRequest(c, err.Error())
	}

	ok, err := h.s.Remove(c.Context(), id)
	if err != nil {
		return serverError(c, err)
	}
	if !ok {
		return notFound(c, "API key")
	}
	return c.SendStatus(fiber.StatusOK)
}
