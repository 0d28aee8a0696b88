package controller

import (
	"errors"

	"ai-text-editor-be/internal/dto"
	"ai-text-editor-be/internal/pkg/serverutils"
	"ai-text-editor-be/internal/service"
	"ai-text-editor-be/pkg/ingest"
	"ai-text-editor-be/pkg/proposal"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type IEditorController interface {
	RegisterRoutes(r fiber.Router, jwtMiddleware fiber.Handler)
	CreateSession(ctx *fiber.Ctx) error
	ListSessions(ctx *fiber.Ctx) error
	GetSession(ctx *fiber.Ctx) error
	GetHistory(ctx *fiber.Ctx) error
	ListRevisions(ctx *fiber.Ctx) error
	LoadDocument(ctx *fiber.Ctx) error
	UploadDocument(ctx *fiber.Ctx) error
	ManualEdit(ctx *fiber.Ctx) error
	SendMessage(ctx *fiber.Ctx) error
	StartFeedback(ctx *fiber.Ctx) error
	CancelFeedback(ctx *fiber.Ctx) error
	PreviewPending(ctx *fiber.Ctx) error
	ApplyPending(ctx *fiber.Ctx) error
	RejectPending(ctx *fiber.Ctx) error
	DeleteSession(ctx *fiber.Ctx) error
}

type editorController struct {
	editorService service.IEditorService
}

func NewEditorController(editorService service.IEditorService) IEditorController {
	return &editorController{
		editorService: editorService,
	}
}

func (c *editorController) RegisterRoutes(r fiber.Router, jwtMiddleware fiber.Handler) {
	h := r.Group("/editor/v1/sessions", jwtMiddleware)
	h.Post("", c.CreateSession)
	h.Get("", c.ListSessions)
	h.Get(":id", c.GetSession)
	h.Delete(":id", c.DeleteSession)
	h.Get(":id/history", c.GetHistory)
	h.Get(":id/revisions", c.ListRevisions)
	h.Put(":id/document", c.LoadDocument)
	h.Post(":id/upload", c.UploadDocument)
	h.Put(":id/content", c.ManualEdit)
	h.Post(":id/messages", c.SendMessage)
	h.Post(":id/feedback", c.StartFeedback)
	h.Delete(":id/feedback", c.CancelFeedback)
	h.Get(":id/preview", c.PreviewPending)
	h.Post(":id/apply", c.ApplyPending)
	h.Post(":id/reject", c.RejectPending)
}

func (c *editorController) CreateSession(ctx *fiber.Ctx) error {
	userId := serverutils.UserID(ctx)

	var req dto.CreateSessionRequest
	if err := ctx.BodyParser(&req); err != nil {
		return serverutils.NewAppError(fiber.StatusBadRequest, "Invalid request body", err)
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.editorService.CreateSession(ctx.UserContext(), userId, &req)
	if err != nil {
		return editorError(err)
	}
	return ctx.Status(fiber.StatusCreated).JSON(serverutils.SuccessResponse("Session created", res))
}

func (c *editorController) ListSessions(ctx *fiber.Ctx) error {
	res, err := c.editorService.ListSessions(ctx.UserContext(), serverutils.UserID(ctx))
	if err != nil {
		return editorError(err)
	}
	return ctx.JSON(serverutils.SuccessResponse("Success list sessions", res))
}

func (c *editorController) GetSession(ctx *fiber.Ctx) error {
	id, err := sessionID(ctx)
	if err != nil {
		return err
	}
	res, err := c.editorService.GetSession(ctx.UserContext(), serverutils.UserID(ctx), id)
	if err != nil {
		return editorError(err)
	}
	return ctx.JSON(serverutils.SuccessResponse("Success show session", res))
}

func (c *editorController) GetHistory(ctx *fiber.Ctx) error {
	id, err := sessionID(ctx)
	if err != nil {
		return err
	}
	res, err := c.editorService.GetHistory(ctx.UserContext(), serverutils.UserID(ctx), id)
	if err != nil {
		return editorError(err)
	}
	return ctx.JSON(serverutils.SuccessResponse("Success get history", res))
}

func (c *editorController) ListRevisions(ctx *fiber.Ctx) error {
	id, err := sessionID(ctx)
	if err != nil {
		return err
	}
	res, err := c.editorService.ListRevisions(ctx.UserContext(), serverutils.UserID(ctx), id)
	if err != nil {
		return editorError(err)
	}
	return ctx.JSON(serverutils.SuccessResponse("Success list revisions", res))
}

func (c *editorController) LoadDocument(ctx *fiber.Ctx) error {
	id, err := sessionID(ctx)
	if err != nil {
		return err
	}

	var req dto.LoadDocumentRequest
	if err := ctx.BodyParser(&req); err != nil {
		return serverutils.NewAppError(fiber.StatusBadRequest, "Invalid request body", err)
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.editorService.LoadDocument(ctx.UserContext(), serverutils.UserID(ctx), id, &req)
	if err != nil {
		return editorError(err)
	}
	return ctx.JSON(serverutils.SuccessResponse("Document loaded", res))
}

// UploadDocument accepts a multipart form with the document in "file".
func (c *editorController) UploadDocument(ctx *fiber.Ctx) error {
	id, err := sessionID(ctx)
	if err != nil {
		return err
	}

	header, err := ctx.FormFile("file")
	if err != nil {
		return serverutils.NewAppError(fiber.StatusBadRequest, "File is required", err)
	}
	file, err := header.Open()
	if err != nil {
		return serverutils.NewAppError(fiber.StatusBadRequest, "Failed to read file", err)
	}
	defer file.Close()

	res, err := c.editorService.UploadDocument(ctx.UserContext(), serverutils.UserID(ctx), id, header.Filename, file)
	if err != nil {
		return editorError(err)
	}
	return ctx.JSON(serverutils.SuccessResponse("Document uploaded", res))
}

func (c *editorController) ManualEdit(ctx *fiber.Ctx) error {
	id, err := sessionID(ctx)
	if err != nil {
		return err
	}

	var req dto.ManualEditRequest
	if err := ctx.BodyParser(&req); err != nil {
		return serverutils.NewAppError(fiber.StatusBadRequest, "Invalid request body", err)
	}

	res, err := c.editorService.ManualEdit(ctx.UserContext(), serverutils.UserID(ctx), id, &req)
	if err != nil {
		return editorError(err)
	}
	return ctx.JSON(serverutils.SuccessResponse("Document updated", res))
}

func (c *editorController) SendMessage(ctx *fiber.Ctx) error {
	id, err := sessionID(ctx)
	if err != nil {
		return err
	}

	var req dto.SendMessageRequest
	if err := ctx.BodyParser(&req); err != nil {
		return serverutils.NewAppError(fiber.StatusBadRequest, "Invalid request body", err)
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.editorService.SendMessage(ctx.UserContext(), serverutils.UserID(ctx), id, &req)
	if err != nil {
		return editorError(err)
	}
	return ctx.JSON(serverutils.SuccessResponse("Message sent", res))
}

func (c *editorController) StartFeedback(ctx *fiber.Ctx) error {
	id, err := sessionID(ctx)
	if err != nil {
		return err
	}
	res, err := c.editorService.StartFeedback(ctx.UserContext(), serverutils.UserID(ctx), id)
	if err != nil {
		return editorError(err)
	}
	return ctx.JSON(serverutils.SuccessResponse("Feedback mode on", res))
}

func (c *editorController) CancelFeedback(ctx *fiber.Ctx) error {
	id, err := sessionID(ctx)
	if err != nil {
		return err
	}
	res, err := c.editorService.CancelFeedback(ctx.UserContext(), serverutils.UserID(ctx), id)
	if err != nil {
		return editorError(err)
	}
	return ctx.JSON(serverutils.SuccessResponse("Feedback mode off", res))
}

func (c *editorController) PreviewPending(ctx *fiber.Ctx) error {
	id, err := sessionID(ctx)
	if err != nil {
		return err
	}
	res, err := c.editorService.PreviewPending(ctx.UserContext(), serverutils.UserID(ctx), id)
	if err != nil {
		return editorError(err)
	}
	return ctx.JSON(serverutils.SuccessResponse("Success preview proposal", res))
}

func (c *editorController) ApplyPending(ctx *fiber.Ctx) error {
	id, err := sessionID(ctx)
	if err != nil {
		return err
	}
	res, err := c.editorService.ApplyPending(ctx.UserContext(), serverutils.UserID(ctx), id)
	if err != nil {
		return editorError(err)
	}
	return ctx.JSON(serverutils.SuccessResponse("Proposal applied", res))
}

func (c *editorController) RejectPending(ctx *fiber.Ctx) error {
	id, err := sessionID(ctx)
	if err != nil {
		return err
	}
	res, err := c.editorService.RejectPending(ctx.UserContext(), serverutils.UserID(ctx), id)
	if err != nil {
		return editorError(err)
	}
	return ctx.JSON(serverutils.SuccessResponse("Proposal rejected", res))
}

func (c *editorController) DeleteSession(ctx *fiber.Ctx) error {
	id, err := sessionID(ctx)
	if err != nil {
		return err
	}
	if err := c.editorService.DeleteSession(ctx.UserContext(), serverutils.UserID(ctx), id); err != nil {
		return editorError(err)
	}
	return ctx.JSON(serverutils.SuccessResponse[any]("Session deleted", nil))
}

func sessionID(ctx *fiber.Ctx) (uuid.UUID, error) {
	id, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return uuid.Nil, serverutils.NewAppError(fiber.StatusBadRequest, "Invalid session id", err)
	}
	return id, nil
}

// editorError maps service and engine errors onto HTTP statuses.
func editorError(err error) error {
	var applyErr *proposal.ApplyError
	switch {
	case errors.As(err, &applyErr):
		return serverutils.NewAppError(fiber.StatusUnprocessableEntity, "Proposal could not be applied", err, applyErr.Messages()...)
	case errors.Is(err, service.ErrSessionNotFound):
		return serverutils.NewAppError(fiber.StatusNotFound, "Session not found", err)
	case errors.Is(err, service.ErrSessionBusy):
		return serverutils.NewAppError(fiber.StatusConflict, "An AI request is already in progress", err)
	case errors.Is(err, service.ErrStaleResponse):
		return serverutils.NewAppError(fiber.StatusConflict, "The document changed while the AI was answering", err)
	case errors.Is(err, service.ErrNoPendingProposal):
		return serverutils.NewAppError(fiber.StatusConflict, "No pending proposal", err)
	case errors.Is(err, service.ErrEmptyInstruction):
		return serverutils.NewAppError(fiber.StatusBadRequest, "Message is empty", err)
	case errors.Is(err, ingest.ErrTooLarge):
		return serverutils.NewAppError(fiber.StatusRequestEntityTooLarge, "Document is too large", err)
	case errors.Is(err, service.ErrDocumentInvalid):
		return serverutils.NewAppError(fiber.StatusBadRequest, "Document could not be read", err, err.Error())
	}
	return err
}
