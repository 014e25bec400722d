package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// ProductDocument is the search projection of a Product. It never points back
// at the authoritative row; everything it carries is copied.
type ProductDocument struct {
	ID             int64           `json:"id"`
	ProductNum     string          `json:"productNum"`
	Name           string          `json:"name"`
	Brand          string          `json:"brand"`
	CategoryCode   string          `json:"categoryCode"`
	CategoryName   string          `json:"categoryName"`
	Size           string          `json:"size"`
	Color          string          `json:"color"`
	Price          decimal.Decimal `json:"price"`
	DiscountRate   int             `json:"discountRate"`
	Stock          int64           `json:"stock"`
	SoldQuantity   int64           `json:"soldQuantity"`
	DefectiveStock int64           `json:"defectiveStock"`
	CreatedAt      string          `json:"createdAt"`
	UpdatedAt      string          `json:"updatedAt"`
	Coupons        []CouponSummary `json:"coupons"`
}

type CouponSummary struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	DiscountRate int       `json:"discountRate"`
	StartDate    time.Time `json:"startDate"`
	EndDate      time.Time `json:"endDate"`
	AssignBy     string    `json:"assignBy"`
}

// Equal compares every searchable field, coupons included.
func (d ProductDocument) Equal(o ProductDocument) bool {
	if d.ID != o.ID || d.ProductNum != o.ProductNum || d.Name != o.Name || d.Brand != o.Brand ||
		d.CategoryCode != o.CategoryCode || d.CategoryName != o.CategoryName ||
		d.Size != o.Size || d.Color != o.Color || !d.Price.Equal(o.Price) ||
		d.DiscountRate != o.DiscountRate || d.Stock != o.Stock || d.SoldQuantity != o.SoldQuantity ||
		d.DefectiveStock != o.DefectiveStock || d.CreatedAt != o.CreatedAt || d.UpdatedAt != o.UpdatedAt {
		return false
	}
	if len(d.Coupons) != len(o.Coupons) {
		return false
	}
	for i := range d.Coupons {
		a, b := d.Coupons[i], o.Coupons[i]
		if a.ID != b.ID || a.Name != b.Name || a.DiscountRate != b.DiscountRate || a.AssignBy != b.AssignBy ||
			!a.StartDate.Equal(b.StartDate) || !a.EndDate.Equal(b.EndDate) {
			return false
		}
	}
	return true
}
