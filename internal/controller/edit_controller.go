package controller

import (
	"ai-text-editor-be/internal/dto"
	"ai-text-editor-be/internal/pkg/serverutils"
	"ai-text-editor-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

// IEditController exposes the stateless proposal endpoint: the caller sends
// the document and history, the answer is a bare proposal.
type IEditController interface {
	RegisterRoutes(r fiber.Router, jwtMiddleware fiber.Handler)
	Propose(ctx *fiber.Ctx) error
}

type editController struct {
	editService service.IEditService
}

func NewEditController(editService service.IEditService) IEditController {
	return &editController{
		editService: editService,
	}
}

func (c *editController) RegisterRoutes(r fiber.Router, jwtMiddleware fiber.Handler) {
	h := r.Group("/edit/v1", jwtMiddleware)
	h.Post("", c.Propose)
}

func (c *editController) Propose(ctx *fiber.Ctx) error {
	var req dto.EditRequest
	if err := ctx.BodyParser(&req); err != nil {
		return serverutils.NewAppError(fiber.StatusBadRequest, "Invalid request body", err)
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	p := c.editService.Propose(ctx.UserContext(), &req)
	return ctx.JSON(p)
}
