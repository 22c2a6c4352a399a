// Package web provides HTTP handlers and REST API endpoints for document editing.
package web

import (
	"net/http"
	"time"

	"github.com/dukex/blockflow/pkg/registry"
	"github.com/dukex/blockflow/pkg/services"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
)

type APIHandlers struct {
	editor    *services.Editor
	validator *validator.Validate
	registry  *registry.Registry
}

func NewAPIHandlers(
	editor *services.Editor,
	validator *validator.Validate,
	registry *registry.Registry,
) *APIHandlers {
	return &APIHandlers{
		editor:    editor,
		validator: validator,
		registry:  registry,
	}
}

// Register mounts every endpoint on router.
func (h *APIHandlers) Register(router fiber.Router) {
	d := router.Group("/documents")
	d.Get("/", h.GetDocuments)
	d.Post("/", h.CreateDocument)
	d.Post("/import", h.ImportDocument)
	d.Get("/:id", h.GetDocument)
	d.Delete("/:id", h.DeleteDocument)
	d.Post("/:id/operations", h.ApplyOperation)
	d.Post("/:id/undo", h.Undo)
	d.Post("/:id/redo", h.Redo)
	d.Post("/:id/save", h.SaveDocument)
	d.Post("/:id/close", h.CloseDocument)
	d.Get("/:id/identifiers", h.GetIdentifiers)
	d.Get("/:id/blocks/:blockId/suggestions", h.GetSuggestions)
	d.Get("/:id/code", h.GenerateCode)

	s := router.Group("/schemas")
	s.Get("/", h.GetSchemas)
	s.Get("/:kind", h.GetSchema)

	router.Get("/health", h.HealthCheck)
}

func (h *APIHandlers) GetDocuments(c fiber.Ctx) error {
	docs, err := h.editor.List(c.Context())
	if err != nil {
		return handleServiceError(c, err)
	}

	summaries := make([]DocumentSummary, 0, len(docs))
	for _, doc := range docs {
		summaries = append(summaries, TransformDocumentSummary(doc))
	}

	return c.JSON(fiber.Map{
		"documents":   summaries,
		"total_count": len(summaries),
	})
}

func (h *APIHandlers) CreateDocument(c fiber.Ctx) error {
	var req CreateDocumentRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	doc, err := h.editor.Create(c.Context(), req.Name, req.RootKind)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(doc)
}

func (h *APIHandlers) ImportDocument(c fiber.Ctx) error {
	var req ImportDocumentRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	doc, err := h.editor.Import(c.Context(), req.Name, req.Source)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(doc)
}

func (h *APIHandlers) GetDocument(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Document ID is required")
	}

	doc, err := h.editor.Get(c.Context(), id)
	if err != nil {
		return handleServiceError(c, err)
	}

	history, err := h.history(c, id)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(DocumentResponse{Document: doc, History: history})
}

func (h *APIHandlers) DeleteDocument(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Document ID is required")
	}

	if err := h.editor.Delete(c.Context(), id); err != nil {
		return handleServiceError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *APIHandlers) ApplyOperation(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Document ID is required")
	}

	var req OperationRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	result, err := h.editor.Apply(c.Context(), id, req.Operation())
	if err != nil {
		return handleServiceError(c, err)
	}

	history, err := h.history(c, id)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(OperationResponse{
		Document: result.Document,
		BlockIDs: result.BlockIDs,
		Location: result.Location,
		History:  history,
	})
}

func (h *APIHandlers) Undo(c fiber.Ctx) error {
	id := c.Params("id")

	doc, err := h.editor.Undo(c.Context(), id)
	if err != nil {
		return handleServiceError(c, err)
	}

	history, err := h.history(c, id)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(DocumentResponse{Document: doc, History: history})
}

func (h *APIHandlers) Redo(c fiber.Ctx) error {
	id := c.Params("id")

	doc, err := h.editor.Redo(c.Context(), id)
	if err != nil {
		return handleServiceError(c, err)
	}

	history, err := h.history(c, id)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(DocumentResponse{Document: doc, History: history})
}

func (h *APIHandlers) SaveDocument(c fiber.Ctx) error {
	id := c.Params("id")

	if _, err := h.editor.Get(c.Context(), id); err != nil {
		return handleServiceError(c, err)
	}

	if err := h.editor.Save(c.Context(), id); err != nil {
		return handleServiceError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *APIHandlers) CloseDocument(c fiber.Ctx) error {
	if err := h.editor.Close(c.Context(), c.Params("id")); err != nil {
		return handleServiceError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *APIHandlers) GetIdentifiers(c fiber.Ctx) error {
	index, err := h.editor.Identifiers(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(IdentifiersResponse{
		Identifiers: index.Identifiers,
		Scopes:      index.Scopes,
	})
}

func (h *APIHandlers) GetSuggestions(c fiber.Ctx) error {
	suggestions, err := h.editor.Suggestions(c.Context(), c.Params("id"), c.Params("blockId"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(fiber.Map{
		"suggestions": suggestions,
	})
}

func (h *APIHandlers) GenerateCode(c fiber.Ctx) error {
	code, err := h.editor.GenerateCode(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(CodeResponse{Code: code})
}

func (h *APIHandlers) GetSchemas(c fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"schemas": h.registry.List(),
	})
}

func (h *APIHandlers) GetSchema(c fiber.Ctx) error {
	schema, ok := h.registry.Get(c.Params("kind"))
	if !ok {
		return notFound(c, "Block kind not found")
	}

	return c.JSON(schema)
}

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	registryCheck := "Registry is healthy"

	regOk := true
	if err := h.registry.HealthCheck(); err != nil {
		registryCheck = "Registry is unhealthy: " + err.Error()
		regOk = false
	}

	repositoryCheck, repOk := h.editor.HealthCheck(c.Context())

	status := "unhealthy"
	message := "Blockflow API is unhealthy"
	httpStatus := http.StatusInternalServerError

	if regOk && repOk {
		status = "healthy"
		message = "Blockflow API is healthy"
		httpStatus = http.StatusOK
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status":  status,
		"message": message,
		"checkers": fiber.Map{
			"registry":   registryCheck,
			"repository": repositoryCheck,
		},
		"timestamp": time.Now().UTC(),
	})
}

func (h *APIHandlers) history(c fiber.Ctx, id string) (HistoryResponse, error) {
	undo, redo, err := h.editor.History(c.Context(), id)
	if err != nil {
		return HistoryResponse{}, err
	}

	return HistoryResponse{Undo: undo, Redo: redo}, nil
}
