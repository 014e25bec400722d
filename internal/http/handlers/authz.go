package handlers

import (
	"github.com/gofiber/fiber/v2"

	"backoffice/internal/domain"
	applog "backoffice/internal/log"
	"backoffice/internal/services"
)

const (
	actorKey = "actor"
	userKey  = "user"
)

// ResolveActor turns the sid cookie into the request's Actor. Anonymous
// requests get the zero Actor; the Require* guards decide what that means.
func ResolveActor(auth *services.AuthService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		a, u := auth.CurrentActor(c.Cookies("sid"))
		c.Locals(actorKey, a)
		if u != nil {
			c.Locals(userKey, u)
		}
		return c.Next()
	}
}

func actorOf(c *fiber.Ctx) domain.Actor {
	a, _ := c.Locals(actorKey).(domain.Actor)
	return a
}

// RequireUser rejects anonymous requests with 401.
func RequireUser() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if actorOf(c).MemberID == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "login required"})
		}
		return c.Next()
	}
}

// RequireManager admits sellers and operators to the product routes.
// Per-product ownership is still checked by the services; members without a
// seller role get the same ownership answer a foreign seller would.
func RequireManager() fiber.Handler {
	return require("access.denied.manage", domain.Actor.CanManage, domain.ErrOwnershipMismatch)
}

// RequireCenter admits operators only.
func RequireCenter() fiber.Handler {
	return require("access.denied.center", domain.Actor.Elevated, domain.ErrForbidden)
}

func require(action string, ok func(domain.Actor) bool, denied error) fiber.Handler {
	return func(c *fiber.Ctx) error {
		a := actorOf(c)
		if a.MemberID == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "login required"})
		}
		if !ok(a) {
			applog.Security(c, action, map[string]any{"reason": denied.Error()})
			return c.Status(Status(denied)).JSON(fiber.Map{"error": denied.Error()})
		}
		return c.Next()
	}
}
