package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/maheshrc27/contentflow/internal/service"
	"github.com/maheshrc27/contentflow/internal/transfer"
)

type ContactHandler struct {
	s service.ContactService
}

func NewContactHandler(service service.ContactService) *ContactHandler {
	return &ContactHandler{s: service}
}

func (h *ContactHandler) ListContacts(c *fiber.Ctx) error {
	contacts, err := h.s.ListContacts(c.Context())
	if err != nil {
		return serverError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(contacts)
}

func (h *ContactHandler) GetContact(c *fiber.Ctx) error {
	id, err := ParamID(c)
	if err != nil {
		return badRequest(c, err.Error())
	}

	contact, err := h.s.GetContact(c.Context(), id)
	if err != nil {
		return serverError(c, err)
	}
	if contact == nil {
		return notFound(c, "contact")
	}
	return c.Status(fiber.StatusOK).JSON(contact)
}

func (h *ContactHandler) CreateContact(c *fiber.Ctx) error {
	var in transfer.ContactInput
	if err := c.BodyParser(&in); err != nil {
		return badRequest(c, "Invalid request body")
	}
	return result(c, h.s.CreateContact(c.Context(), &in))
}

func (h *ContactHandler) UpdateContact(c *fiber.Ctx) error {
	id, err := ParamID(c)
	if err != nil {
		return badRequest(c, err.Error())
	}

	var in transfer.ContactInput
	if err := c.BodyParser(&in); err != nil {
		return badRequest(c, "Invalid request body")
	}
	return result(c, h.s.UpdateContact(c.Context(), id, &in))
}

func (h *ContactHandler) DeleteContact(c *fiber.Ctx) error {
	id, err := ParamID(c)
	if err != nil {
		return badRequest(c, err.Error())
	}

	ok, err := h.s.DeleteContact(c.Context(), id)
	if err != nil {
		return serverError(c, err)
	}
	if !ok {
		return notFound(c, "contact")
	}
	return c.SendStatus(fiber.StatusOK)
}

// ImportContacts adds every valid row and reports the rejected ones.
func (h *ContactHandler) ImportContacts(c *fiber.Ctx) error {
	var in transfer.ContactImport
	if err := c.BodyParser(&in); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if len(in.Rows) == 0 {
		return badRequest(c, "No rows to import")
	}
	return c.Status(fiber.StatusOK).JSON(h.s.BulkCreateContacts(c.Context(), in.Rows))
}

func (h *ContactHandler) ListLists(c *fiber.Ctx) error {
	lists, err := h.s.ListContactLists(c.Context())
	if err != nil {
		return serverError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(lists)
}

func (h *ContactHandler) CreateList(c *fiber.Ctx) error {
	var in transfer.ContactListInput
	if err := c.BodyParser(&in); err != nil {
		return badRequest(c, "Invalid request body")
	}
	return result(c, h.s.CreateContactList(c.Context(), in.Name))
}

func (h *ContactHandler) DeleteList(c *fiber.Ctx) error {
	id, err := ParamID(c)
	if err != nil {
		return badRequest(c, err.Error())
	}

	ok, err := h.s.DeleteContactList(c.Context(), id)
	if err != nil {
		return serverError(c, err)
	}
	if !ok {
		return notFound(c, "list")
	}
	return c.SendStatus(fiber.StatusOK)
}

func (h *ContactHandler) ListMembers(c *fiber.Ctx) error {
	id, err := ParamID(c)
	if err != nil {
		return badRequest(c, err.Error())
	}

	contacts, err := h.s.ListContactsByList(c.Context(), id)
	if err != nil {
		return serverError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(contacts)
}

func (h *ContactHandler) AddMembers(c *fiber.Ctx) error {
	id, err := ParamID(c)
	if err != nil {
		return badRequest(c, err.Error())
	}

	var in transfer.ListMembers
	if err := c.BodyParser(&in); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if err := h.s.AddContactsToList(c.Context(), id, in.ContactIDs); err != nil {
		return serverError(c, err)
	}
	return c.SendStatus(fiber.StatusOK)
}

func (h *ContactHandler) ResolveRecipients(c *fiber.Ctx) error {
	var in transfer.RecipientsRequest
	if err := c.BodyParser(&in); err != nil {
		return badRequest(c, "Invalid request body")
	}

	kind := service.RecipientKind(in.Kind)
	if kind != service.RecipientEmail && kind != service.RecipientPhone {
		return badRequest(c, "kind must be email or phone")
	}

	recipients, err := h.s.ResolveRecipients(c.Context(), kind, in.ListIDs, in.ContactIDs)
	if err != nil {
		return serverError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"recipients": recipients,
	})
}
