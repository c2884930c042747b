package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/maheshrc27/contentflow/internal/service"
	"github.com/maheshrc27/contentflow/internal/transfer"
)

type GeneratorHandler struct {
	s service.GeneratorService
}

func NewGeneratorHandler(service service.GeneratorService) *GeneratorHandler {
	return &GeneratorHandler{s: service}
}

func (h *GeneratorHandler) Generate(c *fiber.Ctx) error {
	var in transfer.GenerateRequest
	if err := c.BodyParser(&in); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if in.Brief == "" {
		return badRequest(c, "brief is required")
	}

	out, err := h.s.Generate(c.Context(), in.Platform, in.Brief)
	if err != nil {
		return generatorError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(out)
}

func (h *GeneratorHandler) Translate(c *fiber.Ctx) error {
	var in transfer.TranslateRequest
	if err := c.BodyParser(&in); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if in.Language == "" {
		return badRequest(c, "language is required")
	}

	out, err := h.s.Translate(c.Context(), in.Content, in.Language, in.Subject)
	if err != nil {
		return generatorError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(out)
}

func generatorError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, service.ErrGeneratorDisabled):
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": err.Error(),
		})
	case errors.Is(err, service.ErrUnknownPlatform):
		return badRequest(c, err.Error())
	}
	return serverError(c, err)
}
