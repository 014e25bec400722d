package handlers

import (
	"github.com/gofiber/fiber/v2"

	"backoffice/internal/log"
	"backoffice/internal/search"
	"backoffice/internal/services"
	"backoffice/internal/validate"
)

type SearchHandler struct {
	Products *services.ProductService
}

func (h *SearchHandler) Search(c *fiber.Ctx) error {
	var q search.Query
	var ok bool
	for _, f := range []struct {
		name string
		dst  *string
	}{{"q", &q.Text}, {"name", &q.Name}, {"brand", &q.Brand}} {
		raw := c.Query(f.name)
		if *f.dst, ok = validate.Q(raw); !ok {
			log.Security(c, "validation.fail", map[string]any{"field": f.name, "value": raw})
			return badRequest(c, "Enter a valid "+f.name+" (letters/numbers only)")
		}
	}
	if q.Category, ok = validate.Category(c.Query("category")); !ok {
		log.Security(c, "validation.fail", map[string]any{"field": "category"})
		return badRequest(c, "Invalid category")
	}
	if q.Page, q.Size, ok = paging(c); !ok {
		return badRequest(c, "Invalid page or size")
	}

	page, err := h.Products.Search(c.UserContext(), q.Normalize())
	if err != nil {
		return fail(c, "search.error", err)
	}
	return c.JSON(page)
}

func paging(c *fiber.Ctx) (page, size int, ok bool) {
	if page, ok = validate.Int(c.Query("page"), 1); !ok {
		return 0, 0, false
	}
	size, ok = validate.Int(c.Query("size"), 0)
	return page, size, ok
}

func (h *SearchHandler) BestSellers(c *fiber.Ctx) error {
	page, size, ok := paging(c)
	if !ok {
		return badRequest(c, "Invalid page or size")
	}
	res, err := h.Products.BestSellers(c.UserContext(), page, size)
	if err != nil {
		return fail(c, "product.bestsellers", err)
	}
	return c.JSON(res)
}

func (h *SearchHandler) Brands(c *fiber.Ctx) error {
	page, size, ok := paging(c)
	if !ok {
		return badRequest(c, "Invalid page or size")
	}
	res, err := h.Products.Brands(c.UserContext(), page, size)
	if err != nil {
		return fail(c, "product.brands", err)
	}
	return c.JSON(res)
}
