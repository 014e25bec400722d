// Package search holds the product search projection and its index backends.
// The index is derived data: it is never read to make a decision about the
// authoritative store.
package search

import (
	"context"
	"errors"
	"sort"
	"strings"

	"backoffice/internal/domain"
)

// ErrUnavailable is returned while the index is considered down.
var ErrUnavailable = errors.New("search index unavailable")

// Index stores ProductDocuments keyed by product id.
type Index interface {
	Put(ctx context.Context, doc domain.ProductDocument) error
	// Get returns found=false for unknown ids.
	Get(ctx context.Context, id int64) (doc domain.ProductDocument, found bool, err error)
	// Delete is idempotent; deleting an unknown id is not an error.
	Delete(ctx context.Context, id int64) error
	Search(ctx context.Context, q Query) (Page, error)
}

type Query struct {
	Text     string // matched against name, brand and product number
	Name     string // substring of name, case-insensitive
	Category string // category code prefix
	Brand    string // exact, case-insensitive
	Page     int    // 1-based
	Size     int
}

type Page struct {
	Items []domain.ProductDocument `json:"items"`
	Total int                      `json:"total"`
	Page  int                      `json:"page"`
	Size  int                      `json:"size"`
}

const (
	defaultSize = 20
	maxSize     = 100
)

// Normalize clamps paging and trims filters.
func (q Query) Normalize() Query {
	q.Text = strings.TrimSpace(q.Text)
	q.Name = strings.TrimSpace(q.Name)
	q.Category = strings.TrimSpace(q.Category)
	q.Brand = strings.TrimSpace(q.Brand)
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Size < 1 {
		q.Size = defaultSize
	}
	if q.Size > maxSize {
		q.Size = maxSize
	}
	return q
}

func (q Query) offset() int { return (q.Page - 1) * q.Size }

// Project builds the document for p. Coupons are copied so later changes to
// the slice do not leak into the document.
func Project(p domain.Product, coupons []domain.CouponSummary) domain.ProductDocument {
	cs := make([]domain.CouponSummary, len(coupons))
	copy(cs, coupons)
	return domain.ProductDocument{
		ID:             p.ID,
		ProductNum:     p.ProductNum,
		Name:           p.Name,
		Brand:          p.Brand,
		CategoryCode:   p.CategoryCode,
		CategoryName:   p.CategoryName,
		Size:           p.Size,
		Color:          p.Color,
		Price:          p.Price,
		DiscountRate:   p.DiscountRate,
		Stock:          p.Stock,
		SoldQuantity:   p.SoldQuantity,
		DefectiveStock: p.DefectiveStock,
		CreatedAt:      p.CreatedAt,
		UpdatedAt:      p.UpdatedAt,
		Coupons:        cs,
	}
}

func matches(d domain.ProductDocument, q Query) bool {
	if q.Category != "" && !strings.HasPrefix(d.CategoryCode, q.Category) {
		return false
	}
	if q.Brand != "" && !strings.EqualFold(d.Brand, q.Brand) {
		return false
	}
	if q.Name != "" && !strings.Contains(strings.ToLower(d.Name), strings.ToLower(q.Name)) {
		return false
	}
	if q.Text != "" {
		t := strings.ToLower(q.Text)
		if !strings.Contains(strings.ToLower(d.Name), t) &&
			!strings.Contains(strings.ToLower(d.Brand), t) &&
			!strings.Contains(strings.ToLower(d.ProductNum), t) {
			return false
		}
	}
	return true
}

// filterPage applies q to docs in id order. Used by backends without a query engine.
func filterPage(docs []domain.ProductDocument, q Query) Page {
	sort.Slice(docs, func(i, j int) bool { return docs[i].ID < docs[j].ID })
	var hits []domain.ProductDocument
	for _, d := range docs {
		if matches(d, q) {
			hits = append(hits, d)
		}
	}
	p := Page{Items: []domain.ProductDocument{}, Total: len(hits), Page: q.Page, Size: q.Size}
	if off := q.offset(); off < len(hits) {
		end := off + q.Size
		if end > len(hits) {
			end = len(hits)
		}
		p.Items = hits[off:end]
	}
	return p
}
