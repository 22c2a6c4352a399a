package web

import (
	"errors"

	"github.com/dukex/blockflow/pkg/document"
	"github.com/dukex/blockflow/pkg/services"
	"github.com/gofiber/fiber/v3"
	"github.com/moogar0880/problems"
)

func badRequest(c fiber.Ctx, detail string) error {
	problem := problems.NewStatusProblem(400).
		WithInstance(c.Path()).
		WithType("validation_error").
		WithDetail(detail)

	return c.Status(fiber.StatusBadRequest).JSON(problem)
}

func notFound(c fiber.Ctx, detail string) error {
	problem := problems.NewStatusProblem(404).
		WithInstance(c.Path()).
		WithType("not_found").
		WithDetail(detail)

	return c.Status(fiber.StatusNotFound).JSON(problem)
}

func internalError(c fiber.Ctx, err error) error {
	problem := problems.NewStatusProblem(500).
		WithInstance(c.Path()).
		WithType("internal_error").
		WithError(err)

	return c.Status(fiber.StatusInternalServerError).JSON(problem)
}

// handleServiceError provides typed error handling for service layer errors.
func handleServiceError(c fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, services.ErrDocumentNotFound):
		problem := problems.NewStatusProblem(404).
			WithInstance(c.Path()).
			WithType("document_not_found").
			WithDetail("document not found")

		return c.Status(fiber.StatusNotFound).JSON(problem)

	case errors.Is(err, document.ErrUnsupportedBlockKind):
		problem := problems.NewStatusProblem(404).
			WithInstance(c.Path()).
			WithType("block_kind_not_found").
			WithDetail(err.Error())

		return c.Status(fiber.StatusNotFound).JSON(problem)

	case services.IsNotFoundError(err):
		problem := problems.NewStatusProblem(404).
			WithInstance(c.Path()).
			WithType("not_found").
			WithDetail(err.Error())

		return c.Status(fiber.StatusNotFound).JSON(problem)

	case services.IsConflictError(err):
		problem := problems.NewStatusProblem(409).
			WithInstance(c.Path()).
			WithType("conflict").
			WithDetail(err.Error())

		return c.Status(fiber.StatusConflict).JSON(problem)

	case services.IsValidationError(err):
		problem := problems.NewStatusProblem(400).
			WithInstance(c.Path()).
			WithType("validation_error").
			WithDetail(err.Error())

		return c.Status(fiber.StatusBadRequest).JSON(problem)

	case errors.Is(err, services.ErrCompilerUnavailable):
		problem := problems.NewStatusProblem(501).
			WithInstance(c.Path()).
			WithType("compiler_unavailable").
			WithDetail(err.Error())

		return c.Status(fiber.StatusNotImplemented).JSON(problem)

	default:
		return internalError(c, err)
	}
}
