package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	"backoffice/internal/domain"
	applog "backoffice/internal/log"
	"backoffice/internal/services"
	"backoffice/internal/validate"
)

type ProductHandler struct {
	Products *services.ProductService
	Stock    *services.StockService
}

// productBody is shared by register and patch; nil means "not sent".
type productBody struct {
	Name           *string          `json:"name"`
	Brand          *string          `json:"brand"`
	CategoryCode   *string          `json:"category"`
	Size           *string          `json:"size"`
	Color          *string          `json:"color"`
	Price          *decimal.Decimal `json:"price"`
	DiscountRate   *int             `json:"discountRate"`
	Stock          *int64           `json:"stock"`
	SoldQuantity   *int64           `json:"soldQuantity"`
	DefectiveStock *int64           `json:"defectiveStock"`
	Description    *string          `json:"description"`
	ImageURL       *string          `json:"imageUrl"`
}

func (b productBody) patch() domain.ProductPatch {
	return domain.ProductPatch{
		Name: b.Name, Brand: b.Brand, CategoryCode: b.CategoryCode,
		Size: b.Size, Color: b.Color, Price: b.Price, DiscountRate: b.DiscountRate,
		Stock: b.Stock, SoldQuantity: b.SoldQuantity, DefectiveStock: b.DefectiveStock,
		Description: b.Description, ImageURL: b.ImageURL,
	}
}

func deref[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}

func (b productBody) newProduct() (domain.NewProduct, bool) {
	if b.Name == nil || b.Brand == nil || b.CategoryCode == nil || b.Price == nil {
		return domain.NewProduct{}, false
	}
	return domain.NewProduct{
		Name:           *b.Name,
		Brand:          *b.Brand,
		CategoryCode:   *b.CategoryCode,
		Size:           deref(b.Size),
		Color:          deref(b.Color),
		Price:          *b.Price,
		DiscountRate:   deref(b.DiscountRate),
		Stock:          deref(b.Stock),
		SoldQuantity:   deref(b.SoldQuantity),
		DefectiveStock: deref(b.DefectiveStock),
		Description:    deref(b.Description),
		ImageURL:       deref(b.ImageURL),
	}, true
}

func productID(c *fiber.Ctx) (int64, bool) {
	return validate.ID(c.Params("id"))
}

func (h *ProductHandler) Get(c *fiber.Ctx) error {
	id, ok := productID(c)
	if !ok {
		return badRequest(c, "invalid product id")
	}
	view, err := h.Products.Get(c.UserContext(), actorOf(c), id)
	if err != nil {
		return fail(c, "product.get", err)
	}
	return c.JSON(view)
}

func (h *ProductHandler) Register(c *fiber.Ctx) error {
	var b productBody
	if err := c.BodyParser(&b); err != nil {
		return badRequest(c, "malformed body")
	}
	in, ok := b.newProduct()
	if !ok {
		return badRequest(c, "name, brand, category and price are required")
	}
	view, err := h.Products.Register(c.UserContext(), actorOf(c), in)
	if err != nil {
		return fail(c, "product.register", err)
	}
	return c.Status(fiber.StatusCreated).JSON(view)
}

func (h *ProductHandler) Update(c *fiber.Ctx) error {
	id, ok := productID(c)
	if !ok {
		return badRequest(c, "invalid product id")
	}
	var b productBody
	if err := c.BodyParser(&b); err != nil {
		return badRequest(c, "malformed body")
	}
	view, err := h.Products.Update(c.UserContext(), actorOf(c), id, b.patch())
	if err != nil {
		return fail(c, "product.update", err)
	}
	return c.JSON(view)
}

func (h *ProductHandler) Delete(c *fiber.Ctx) error {
	id, ok := productID(c)
	if !ok {
		return badRequest(c, "invalid product id")
	}
	if err := h.Products.Delete(c.UserContext(), actorOf(c), id); err != nil {
		return fail(c, "product.delete", err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

type amountBody struct {
	Amount *int64 `json:"amount"`
}

// Adjust serves the four counter endpoints; counter and direction are fixed
// by the route.
func (h *ProductHandler) Adjust(counter domain.Counter, dir domain.Direction) fiber.Handler {
	action := "product." + counter.String() + "." + dir.String()
	return func(c *fiber.Ctx) error {
		id, ok := productID(c)
		if !ok {
			return badRequest(c, "invalid product id")
		}
		var b amountBody
		if err := c.BodyParser(&b); err != nil || b.Amount == nil {
			return badRequest(c, "amount is required")
		}
		var (
			view domain.ManagerView
			err  error
		)
		if counter == domain.CounterSoldQuantity {
			view, err = h.Stock.AdjustSoldQuantity(c.UserContext(), actorOf(c), id, *b.Amount, dir)
		} else {
			view, err = h.Stock.AdjustStock(c.UserContext(), actorOf(c), id, *b.Amount, dir)
		}
		if err != nil {
			return fail(c, action, err)
		}
		applog.Audit(c, action, map[string]any{"product_id": id, "amount": *b.Amount})
		return c.JSON(view)
	}
}
