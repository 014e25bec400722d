package handlers

import (
	"github.com/gofiber/fiber/v2"

	applog "backoffice/internal/log"
	"backoffice/internal/services"
)

type IndexHandler struct {
	Sync *services.IndexSynchronizer
}

// Resync rebuilds every product document from the store. It runs inside the
// request, so callers with large catalogues should prefer the reindex command.
func (h *IndexHandler) Resync(c *fiber.Ctx) error {
	rep, err := h.Sync.Resync(c.UserContext())
	if err != nil {
		return fail(c, "index.resync", err)
	}
	applog.Audit(c, "index.resync.request", nil)
	return c.JSON(rep)
}
