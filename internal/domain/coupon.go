package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Coupon scopes (assign_by column).
const (
	AssignAll      = "ALL"
	AssignGrade    = "GRADE"
	AssignCategory = "CATEGORY"
	AssignBrand    = "BRAND"
	AssignProduct  = "PRODUCT"
)

// ValidAssignBy reports whether s is a known coupon scope.
func ValidAssignBy(s string) bool {
	switch s {
	case AssignAll, AssignGrade, AssignCategory, AssignBrand, AssignProduct:
		return true
	}
	return false
}

type Coupon struct {
	ID           int64     `db:"id"`
	Name         string    `db:"name"`
	DiscountRate int       `db:"discount_rate"`
	StartDate    time.Time `db:"-"`
	EndDate      time.Time `db:"-"`
	AssignBy     string    `db:"assign_by"`
	Target       string    `db:"target"`
	Content      string    `db:"content"`
}

// Active reports whether now falls inside the inclusive validity window.
func (c Coupon) Active(now time.Time) bool {
	return !now.Before(c.StartDate) && !now.After(c.EndDate)
}

// AppliesTo is the scope predicate for member-held coupons.
func (c Coupon) AppliesTo(p Product) bool {
	switch c.AssignBy {
	case AssignAll, AssignGrade:
		return true
	case AssignCategory:
		return c.Target != "" && strings.HasPrefix(p.CategoryCode, c.Target)
	case AssignBrand:
		return c.Target != "" && strings.EqualFold(c.Target, p.Brand)
	case AssignProduct:
		return c.Target != "" && c.Target == p.ProductNum
	}
	return false
}

// DiscountOn is the amount the coupon takes off price.
func (c Coupon) DiscountOn(price decimal.Decimal) decimal.Decimal {
	return price.Mul(decimal.NewFromInt(int64(c.DiscountRate))).Div(decimal.NewFromInt(100))
}

// Assignment is a MemberCoupon or ProductCoupon row joined to its coupon.
type Assignment struct {
	ID        int64
	Coupon    Coupon
	MemberID  string
	ProductID int64
	IssuedAt  time.Time
	UsedAt    *time.Time
	Used      bool
}

// NewCoupon is the issuance input.
type NewCoupon struct {
	Name         string
	DiscountRate int
	StartDate    time.Time
	EndDate      time.Time
	AssignBy     string
	Target       string
	Content      string
}

// CouponResponse is what coupon selection hands back.
type CouponResponse struct {
	ID             int64           `json:"id"`
	Name           string          `json:"name"`
	DiscountRate   int             `json:"discountRate"`
	StartDate      time.Time       `json:"startDate"`
	EndDate        time.Time       `json:"endDate"`
	AssignBy       string          `json:"assignBy"`
	DiscountAmount decimal.Decimal `json:"discountAmount"`
}
