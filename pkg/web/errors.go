package web

import (
	"errors"

	"github.com/flowzen/flowzen/pkg/identity"
	"github.com/flowzen/flowzen/pkg/persistence"
	"github.com/flowzen/flowzen/pkg/services"
	"github.com/gofiber/fiber/v3"
	"github.com/moogar0880/problems"
)

func problem(c fiber.Ctx, status int, problemType, detail string) error {
	body := problems.NewStatusProblem(status).
		WithInstance(c.Path()).
		WithType(problemType).
		WithDetail(detail)

	return c.Status(status).JSON(body)
}

func badRequest(c fiber.Ctx, detail string) error {
	return problem(c, fiber.StatusBadRequest, "validation_error", detail)
}

func unauthorized(c fiber.Ctx, _ error) error {
	return problem(c, fiber.StatusUnauthorized, "unauthorized", "authentication required")
}

func internalError(c fiber.Ctx, err error) error {
	body := problems.NewStatusProblem(fiber.StatusInternalServerError).
		WithInstance(c.Path()).
		WithType("internal_error").
		WithError(err)

	return c.Status(fiber.StatusInternalServerError).JSON(body)
}

// detail prefers the short message of a ServiceError over the wrapped chain.
func detail(err error, fallback string) string {
	var serviceErr *services.ServiceError
	if errors.As(err, &serviceErr) && serviceErr.Message != "" {
		return serviceErr.Message
	}

	if fallback != "" {
		return fallback
	}

	return err.Error()
}

// handleServiceError provides typed error handling for service layer errors.
func handleServiceError(c fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, services.ErrUnauthorized), errors.Is(err, identity.ErrUnauthorized):
		return unauthorized(c, err)

	case errors.Is(err, services.ErrForbidden):
		return problem(c, fiber.StatusForbidden, "forbidden", "workflow belongs to another user")

	case services.IsValidationError(err):
		return badRequest(c, detail(err, ""))

	case persistence.IsWorkflowNotFound(err):
		return problem(c, fiber.StatusNotFound, "workflow_not_found", "workflow not found")

	case persistence.IsConnectionNotFound(err):
		return problem(c, fiber.StatusNotFound, "connection_not_found", "connection not found")

	case services.IsConflictError(err):
		return problem(c, fiber.StatusConflict, "conflict", detail(err, "save already in progress"))

	case errors.Is(err, services.ErrFlowNotReady):
		return problem(c, fiber.StatusUnprocessableEntity, "flow_not_ready", detail(err, ""))

	case errors.Is(err, services.ErrNoEmailConnection):
		return problem(c, fiber.StatusUnprocessableEntity, "no_email_connection", detail(err, ""))

	case services.IsUnprocessableError(err):
		return problem(c, fiber.StatusUnprocessableEntity, "precondition_failed", detail(err, ""))

	case services.IsUpstreamError(err):
		return problem(c, fiber.StatusBadGateway, "upstream_error", detail(err, ""))

	default:
		return internalError(c, err)
	}
}
