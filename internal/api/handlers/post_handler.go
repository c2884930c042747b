package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/maheshrc27/contentflow/internal/models"
	"github.com/maheshrc27/contentflow/internal/service"
	"github.com/maheshrc27/contentflow/internal/transfer"
)

var views = map[string]models.PostState{
	"programmed":   models.PostStateScheduled,
	"unprogrammed": models.PostStateDraft,
	"sent":         models.PostStateSent,
}

type PostHandler struct {
	s service.PostService
	h service.HistoryService
}

func NewPostHandler(service service.PostService, history service.HistoryService) *PostHandler {
	return &PostHandler{s: service, h: history}
}

func (h *PostHandler) CreatePost(c *fiber.Ctx) error {
	var in transfer.PostCreation
	if err := c.BodyParser(&in); err != nil {
		return badRequest(c, "Invalid request body")
	}

	postID, err := h.s.CreatePost(c.Context(), &in)
	if err != nil {
		return postError(c, err)
	}

	message := "Post saved successfully"
	if in.ScheduledAt != nil {
		message = "Post scheduled successfully"
	}
	return c.Status(fiber.StatusCreated).JSON(transfer.Result{Success: true, Message: message, ID: postID})
}

// ListPosts serves one partition: programmed, unprogrammed or sent.
func (h *PostHandler) ListPosts(c *fiber.Ctx) error {
	state, ok := views[c.Query("view", "programmed")]
	if !ok {
		return badRequest(c, "view must be programmed, unprogrammed or sent")
	}

	posts, err := h.s.GetPostsByState(c.Context(), state, c.Query("platform"))
	if err != nil {
		return serverError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(posts)
}

func (h *PostHandler) GetPost(c *fiber.Ctx) error {
	id, err := ParamID(c)
	if err != nil {
		return badRequest(c, err.Error())
	}

	post, err := h.s.GetPost(c.Context(), id)
	if err != nil {
		return postError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(post)
}

func (h *PostHandler) UpdatePost(c *fiber.Ctx) error {
	id, err := ParamID(c)
	if err != nil {
		return badRequest(c, err.Error())
	}

	var in transfer.PostUpdate
	if err := c.BodyParser(&in); err != nil {
		return badRequest(c, "Invalid request body")
	}

	ok, err := h.s.UpdatePost(c.Context(), id, &in)
	if err != nil {
		return postError(c, err)
	}
	if !ok {
		return notFound(c, "post")
	}
	return c.Status(fiber.StatusOK).JSON(transfer.Result{Success: true, Message: "Post updated successfully", ID: id})
}

func (h *PostHandler) RemovePost(c *fiber.Ctx) error {
	id, err := ParamID(c)
	if err != nil {
		return badRequest(c, err.Error())
	}

	ok, err := h.s.DeletePost(c.Context(), id)
	if err != nil {
		return postError(c, err)
	}
	if !ok {
		return notFound(c, "post")
	}
	return c.SendStatus(fiber.StatusOK)
}

func (h *PostHandler) SchedulePost(c *fiber.Ctx) error {
	id, err := ParamID(c)
	if err != nil {
		return badRequest(c, err.Error())
	}

	var in transfer.ScheduleRequest
	if err := c.BodyParser(&in); err != nil || in.ScheduledAt.IsZero() {
		return badRequest(c, "scheduled_at is required")
	}

	if err := h.s.SchedulePost(c.Context(), id, in.ScheduledAt); err != nil {
		return postError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(transfer.Result{Success: true, Message: "Post scheduled successfully", ID: id})
}

func (h *PostHandler) UnschedulePost(c *fiber.Ctx) error {
	id, err := ParamID(c)
	if err != nil {
		return badRequest(c, err.Error())
	}

	if err := h.s.UnschedulePost(c.Context(), id); err != nil {
		return postError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(transfer.Result{Success: true, Message: "Post unscheduled", ID: id})
}

func (h *PostHandler) LinkMedia(c *fiber.Ctx) error {
	id, err := ParamID(c)
	if err != nil {
		return badRequest(c, err.Error())
	}

	var in transfer.MediaLinkRequest
	if err := c.BodyParser(&in); err != nil {
		return badRequest(c, "Invalid request body")
	}

	if err := h.s.LinkMedia(c.Context(), id, in.MediaIDs); err != nil {
		return postError(c, err)
	}
	return c.SendStatus(fiber.StatusOK)
}

func (h *PostHandler) TitleExists(c *fiber.Ctx) error {
	title := c.Query("title")
	if title == "" {
		return badRequest(c, "title is required")
	}

	exists, err := h.s.TitleExists(c.Context(), title)
	if err != nil {
		return serverError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"exists": exists,
	})
}

func (h *PostHandler) History(c *fiber.Ctx) error {
	id, err := ParamID(c)
	if err != nil {
		return badRequest(c, err.Error())
	}

	history, err := h.h.ListByPost(c.Context(), id)
	if err != nil {
		return serverError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(history)
}
