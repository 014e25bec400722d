package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"backoffice/internal/domain"
	applog "backoffice/internal/log"
	"backoffice/internal/services"
	"backoffice/internal/validate"
)

type CouponHandler struct {
	Coupons *services.CouponService
}

// Best answers with the single most valuable coupon the caller can use on
// the product. No eligible coupon is a 404, not an error.
func (h *CouponHandler) Best(c *fiber.Ctx) error {
	pid, ok := validate.ID(c.Query("productId"))
	if !ok {
		return badRequest(c, "productId is required")
	}
	resp, found, err := h.Coupons.SelectBestCoupon(c.UserContext(), actorOf(c).MemberID, pid)
	if err != nil {
		return fail(c, "coupon.best", err)
	}
	if !found {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "no applicable coupon"})
	}
	return c.JSON(resp)
}

func (h *CouponHandler) Use(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return badRequest(c, "invalid coupon id")
	}
	a, err := h.Coupons.Redeem(c.UserContext(), actorOf(c), id)
	if err != nil {
		return fail(c, "coupon.use", err)
	}
	applog.Audit(c, "coupon.use", map[string]any{"assignment_id": a.ID, "coupon_id": a.Coupon.ID})
	return c.JSON(fiber.Map{
		"id":       a.ID,
		"couponId": a.Coupon.ID,
		"name":     a.Coupon.Name,
		"used":     a.Used,
		"usedAt":   a.UsedAt,
	})
}

type couponBody struct {
	Name         string    `json:"name"`
	DiscountRate int       `json:"discountRate"`
	StartDate    time.Time `json:"startDate"`
	EndDate      time.Time `json:"endDate"`
	AssignBy     string    `json:"assignBy"`
	Target       string    `json:"target"`
	Content      string    `json:"content"`
}

func (h *CouponHandler) Create(c *fiber.Ctx) error {
	var b couponBody
	if err := c.BodyParser(&b); err != nil {
		return badRequest(c, "malformed body")
	}
	cp, err := h.Coupons.Create(c.UserContext(), actorOf(c), domain.NewCoupon{
		Name:         b.Name,
		DiscountRate: b.DiscountRate,
		StartDate:    b.StartDate,
		EndDate:      b.EndDate,
		AssignBy:     b.AssignBy,
		Target:       b.Target,
		Content:      b.Content,
	})
	if err != nil {
		return fail(c, "coupon.create", err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"id":           cp.ID,
		"name":         cp.Name,
		"discountRate": cp.DiscountRate,
		"startDate":    cp.StartDate,
		"endDate":      cp.EndDate,
		"assignBy":     cp.AssignBy,
		"target":       cp.Target,
	})
}

func (h *CouponHandler) AssignMember(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return badRequest(c, "invalid coupon id")
	}
	var b struct {
		MemberID string `json:"memberId"`
	}
	if err := c.BodyParser(&b); err != nil {
		return badRequest(c, "malformed body")
	}
	member, ok := validate.MemberID(b.MemberID)
	if !ok {
		return badRequest(c, "invalid memberId")
	}
	aid, err := h.Coupons.AssignToMember(c.UserContext(), actorOf(c), id, member)
	if err != nil {
		return fail(c, "coupon.assign.member", err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"assignmentId": aid})
}

func (h *CouponHandler) AssignProduct(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return badRequest(c, "invalid coupon id")
	}
	var b struct {
		ProductID int64 `json:"productId"`
	}
	if err := c.BodyParser(&b); err != nil {
		return badRequest(c, "malformed body")
	}
	if b.ProductID < 1 {
		return badRequest(c, "invalid productId")
	}
	aid, err := h.Coupons.AssignToProduct(c.UserContext(), actorOf(c), id, b.ProductID)
	if err != nil {
		return fail(c, "coupon.assign.product", err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"assignmentId": aid})
}
