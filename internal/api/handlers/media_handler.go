package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/maheshrc27/contentflow/internal/models"
	"github.com/maheshrc27/contentflow/internal/service"
	"github.com/maheshrc27/contentflow/internal/transfer"
)

type MediaHandler struct {
	s service.MediaService
}

func NewMediaHandler(service service.MediaService) *MediaHandler {
	return &MediaHandler{s: service}
}

func (h *MediaHandler) ListMedia(c *fiber.Ctx) error {
	media, err := h.s.ListMedia(c.Context())
	if err != nil {
		return serverError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(media)
}

// UploadMedia stores every file of the "files" form field.
func (h *MediaHandler) UploadMedia(c *fiber.Ctx) error {
	form, err := c.MultipartForm()
	if err != nil {
		return badRequest(c, "Unable to parse form")
	}

	files := form.File["files"]
	if len(files) == 0 {
		return badRequest(c, "No files selected")
	}

	saved := make([]*models.MediaAsset, 0, len(files))
	for _, file := range files {
		ma, err := h.s.SaveUpload(c.Context(), file)
		if err != nil {
			if errors.Is(err, service.ErrUnsupportedMedia) {
				return badRequest(c, err.Error())
			}
			return serverError(c, err)
		}
		saved = append(saved, ma)
	}
	return c.Status(fiber.StatusCreated).JSON(saved)
}

// RegisterMedia records a file produced outside the API, such as a rendered
// video.
func (h *MediaHandler) RegisterMedia(c *fiber.Ctx) error {
	var in transfer.MediaRegistration
	if err := c.BodyParser(&in); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if in.FilePath == "" {
		return badRequest(c, "file_path is required")
	}

	ma, err := h.s.RegisterMedia(c.Context(), in.FilePath, models.MediaType(in.FileType), in.OriginalFilename)
	if err != nil {
		if errors.Is(err, service.ErrUnsupportedMedia) || errors.Is(err, service.ErrMediaOutsideDir) {
			return badRequest(c, err.Error())
		}
		return serverError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(ma)
}

func (h *MediaHandler) DeleteMedia(c *fiber.Ctx) error {
	id, err := ParamID(c)
	if err != nil {
		return badRequest(c, err.Error())
	}

	ok, err := h.s.DeleteMedia(c.Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrMediaInUse) {
			return c.Status(fiber.StatusConflict).JSON(transfer.Result{Success: false, Message: err.Error()})
		}
		return serverError(c, err)
	}
	if !ok {
		return notFound(c, "media")
	}
	return c.SendStatus(fiber.StatusOK)
}
