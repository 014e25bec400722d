package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"backoffice/internal/domain"
	applog "backoffice/internal/log"
	"backoffice/internal/search"
)

const genericMessage = "Something went wrong. Please try again."

// Status maps a service error to its HTTP status.
func Status(err error) int {
	switch {
	case err == nil:
		return fiber.StatusOK
	case errors.Is(err, domain.ErrInvalidArgument), errors.Is(err, domain.ErrNoChange):
		return fiber.StatusBadRequest
	case errors.Is(err, domain.ErrInsufficientQuantity),
		errors.Is(err, domain.ErrDuplicateIdentifier),
		errors.Is(err, domain.ErrConflict):
		return fiber.StatusConflict
	case errors.Is(err, domain.ErrOwnershipMismatch), errors.Is(err, domain.ErrForbidden):
		return fiber.StatusForbidden
	case errors.Is(err, domain.ErrNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, search.ErrUnavailable):
		return fiber.StatusServiceUnavailable
	}
	return fiber.StatusInternalServerError
}

// message picks the client-facing text. Typed errors carry their own detail;
// everything else is reduced to the sentinel so wrap context stays internal.
func message(err error) string {
	var iae *domain.InvalidArgumentError
	if errors.As(err, &iae) {
		return iae.Error()
	}
	var iqe *domain.InsufficientQuantityError
	if errors.As(err, &iqe) {
		return iqe.Error()
	}
	for _, s := range []error{
		domain.ErrNoChange, domain.ErrDuplicateIdentifier, domain.ErrConflict,
		domain.ErrOwnershipMismatch, domain.ErrForbidden, domain.ErrNotFound,
		search.ErrUnavailable,
	} {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return genericMessage
}

// fail writes err as a JSON error body and logs it at the right level.
func fail(c *fiber.Ctx, action string, err error) error {
	status := Status(err)
	c.Status(status)
	switch {
	case status >= fiber.StatusInternalServerError:
		applog.Error(c, action, err, nil)
	case status == fiber.StatusForbidden:
		applog.Security(c, action+".denied", map[string]any{"reason": message(err)})
	}
	body := fiber.Map{"error": message(err)}
	var iqe *domain.InsufficientQuantityError
	if errors.As(err, &iqe) {
		body["current"] = iqe.Current
		body["requested"] = iqe.Requested
	}
	return c.JSON(body)
}

func badRequest(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": msg})
}

// ErrorHandler is the app-wide fallback. Client errors raised by fiber
// itself (unknown route, body too large) keep their status and message;
// anything else is logged and answered with a generic message.
func ErrorHandler(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) && fe.Code < fiber.StatusInternalServerError {
		return c.Status(fe.Code).JSON(fiber.Map{"error": fe.Message})
	}
	if s := Status(err); s != fiber.StatusInternalServerError {
		return c.Status(s).JSON(fiber.Map{"error": message(err)})
	}
	applog.Error(c, "server.error", err, nil)
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": genericMessage})
}
