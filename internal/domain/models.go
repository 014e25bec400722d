package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type Category struct {
	Code      string `db:"code" json:"code"`
	Name      string `db:"name" json:"name"`
	CreatedAt string `db:"created_at" json:"-"`
}

// Product is the authoritative row. ProductNum is derived, see services.ProductNum.
type Product struct {
	ID             int64           `db:"id"`
	ProductNum     string          `db:"product_num"`
	Name           string          `db:"name"`
	Brand          string          `db:"brand"`
	CategoryCode   string          `db:"category_code"`
	CategoryName   string          `db:"category_name"`
	Size           string          `db:"size"`
	Color          string          `db:"color"`
	Price          decimal.Decimal `db:"price"`
	DiscountRate   int             `db:"discount_rate"`
	Stock          int64           `db:"stock"`
	SoldQuantity   int64           `db:"sold_quantity"`
	DefectiveStock int64           `db:"defective_stock"`
	Description    string          `db:"description"`
	ImageURL       string          `db:"image_url"`
	Version        int64           `db:"version"`
	CreatedAt      string          `db:"created_at"`
	UpdatedAt      string          `db:"updated_at"`
}

// Counter names one of the two ledger columns on a product.
type Counter int

const (
	CounterStock Counter = iota
	CounterSoldQuantity
)

func (c Counter) String() string {
	if c == CounterSoldQuantity {
		return "sold_quantity"
	}
	return "stock"
}

// Direction of a ledger adjustment.
type Direction int

const (
	Increase Direction = iota
	Decrease
)

func (d Direction) String() string {
	if d == Decrease {
		return "decrease"
	}
	return "increase"
}

// ManagerView is the snapshot returned to sellers and operators after a mutation.
type ManagerView struct {
	ID             int64           `json:"id"`
	ProductNum     string          `json:"productNum"`
	Name           string          `json:"name"`
	Brand          string          `json:"brand"`
	CategoryCode   string          `json:"category"`
	Size           string          `json:"size,omitempty"`
	Color          string          `json:"color,omitempty"`
	Price          decimal.Decimal `json:"price"`
	DiscountRate   int             `json:"discountRate"`
	Stock          int64           `json:"stock"`
	SoldQuantity   int64           `json:"soldQuantity"`
	DefectiveStock int64           `json:"defectiveStock"`
	UpdatedAt      string          `json:"updatedAt,omitempty"`
}

func (p Product) ManagerView() ManagerView {
	return ManagerView{
		ID:             p.ID,
		ProductNum:     p.ProductNum,
		Name:           p.Name,
		Brand:          p.Brand,
		CategoryCode:   p.CategoryCode,
		Size:           p.Size,
		Color:          p.Color,
		Price:          p.Price,
		DiscountRate:   p.DiscountRate,
		Stock:          p.Stock,
		SoldQuantity:   p.SoldQuantity,
		DefectiveStock: p.DefectiveStock,
		UpdatedAt:      p.UpdatedAt,
	}
}

// NewProduct is the registration input.
type NewProduct struct {
	Name           string
	Brand          string
	CategoryCode   string
	Size           string
	Color          string
	Price          decimal.Decimal
	DiscountRate   int
	Stock          int64
	SoldQuantity   int64
	DefectiveStock int64
	Description    string
	ImageURL       string
}

// ProductPatch is a partial update; nil fields are left untouched.
type ProductPatch struct {
	Name           *string
	Brand          *string
	CategoryCode   *string
	Size           *string
	Color          *string
	Price          *decimal.Decimal
	DiscountRate   *int
	Stock          *int64
	SoldQuantity   *int64
	DefectiveStock *int64
	Description    *string
	ImageURL       *string
}

// Timestamp formats t the way every *_at column is stored.
func Timestamp(t time.Time) string { return t.UTC().Format(time.RFC3339) }

// ParseTimestamp is the inverse of Timestamp.
func ParseTimestamp(s string) (time.Time, error) { return time.Parse(time.RFC3339, s) }
