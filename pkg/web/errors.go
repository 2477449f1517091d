package web

import (
	"errors"

	"github.com/gofiber/fiber/v3"
	"github.com/moogar0880/problems"

	"github.com/flowdesk/flowdesk/pkg/persistence"
	"github.com/flowdesk/flowdesk/pkg/services"
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

func forbidden(c fiber.Ctx, detail string) error {
	problem := problems.NewStatusProblem(403).
		WithInstance(c.Path()).
		WithType("forbidden").
		WithDetail(detail)

	return c.Status(fiber.StatusForbidden).JSON(problem)
}

func internalError(c fiber.Ctx, err error) error {
	problem := problems.NewStatusProblem(500).
		WithInstance(c.Path()).
		WithType("internal_error").
		WithError(err)

	return c.Status(fiber.StatusInternalServerError).JSON(problem)
}

// handleServiceError maps the service error taxonomy onto HTTP statuses.
// Node execution failures never reach this path: they are absorbed into the
// instance's node states and returned with a 200.
func handleServiceError(c fiber.Ctx, err error) error {
	switch {
	case persistence.IsInstanceNotFound(err):
		return notFound(c, "flow instance not found")

	case persistence.IsTemplateNotFound(err):
		return notFound(c, "flow template not found")

	case persistence.IsProjectNotFound(err):
		return notFound(c, "project not found")

	case errors.Is(err, services.ErrInvalidTransition):
		problem := problems.NewStatusProblem(400).
			WithInstance(c.Path()).
			WithType("invalid_transition").
			WithDetail(err.Error())

		return c.Status(fiber.StatusBadRequest).JSON(problem)

	case errors.Is(err, services.ErrEmptyInput),
		errors.Is(err, services.ErrUnknownNodeType):
		return badRequest(c, err.Error())

	case errors.Is(err, services.ErrUnauthorizedDelete):
		return forbidden(c, err.Error())

	default:
		return internalError(c, err)
	}
}
