package handlers

import (
	"errors"
	"log/slog"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/maheshrc27/contentflow/internal/service"
	"github.com/maheshrc27/contentflow/internal/transfer"
)

var errInvalidID = errors.New("invalid id")

func ParamID(c *fiber.Ctx) (int64, error) {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, errInvalidID
	}
	return id, nil
}

func badRequest(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusBadRequest).JSON(transfer.Result{Success: false, Message: message})
}

func notFound(c *fiber.Ctx, what string) error {
	return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
		"error": what + " not found",
	})
}

func serverError(c *fiber.Ctx, err error) error {
	slog.Error(err.Error(), "path", c.Path())
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"error": err.Error(),
	})
}

func result(c *fiber.Ctx, r transfer.Result) error {
	if !r.Success {
		return c.Status(fiber.StatusBadRequest).JSON(r)
	}
	return c.Status(fiber.StatusOK).JSON(r)
}

// postError maps post service errors onto status codes.
func postError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, service.ErrPostNotFound):
		return notFound(c, "post")
	case errors.Is(err, service.ErrPostSent):
		return c.Status(fiber.StatusConflict).JSON(transfer.Result{Success: false, Message: err.Error()})
	case errors.Is(err, service.ErrDuplicateTitle),
		errors.Is(err, service.ErrScheduleInPast),
		errors.Is(err, service.ErrUnknownPlatform),
		errors.Is(err, service.ErrMediaNotFound),
		errors.Is(err, service.ErrEmptyTitle):
		return badRequest(c, err.Error())
	}
	return serverError(c, err)
}
