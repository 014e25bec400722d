package services

import (
	"context"
	"strings"
	"time"

	"backoffice/internal/domain"
	applog "backoffice/internal/log"
	"backoffice/internal/repos"
	"backoffice/internal/search"
)

// ProductService covers the product management surface beyond the counters.
type ProductService struct {
	Products   *repos.ProductRepo
	Categories *repos.CategoryRepo
	Gate       *OwnershipGate
	Sync       *IndexSynchronizer
	Now        func() time.Time
}

func NewProductService(products *repos.ProductRepo, cats *repos.CategoryRepo, gate *OwnershipGate, sync *IndexSynchronizer) *ProductService {
	return &ProductService{Products: products, Categories: cats, Gate: gate, Sync: sync, Now: time.Now}
}

// Register creates a product owned by the actor.
func (s *ProductService) Register(ctx context.Context, actor domain.Actor, in domain.NewProduct) (domain.ManagerView, error) {
	if !actor.CanManage() {
		return domain.ManagerView{}, domain.ErrForbidden
	}
	p := domain.Product{
		Name:           strings.TrimSpace(in.Name),
		Brand:          strings.TrimSpace(in.Brand),
		CategoryCode:   strings.TrimSpace(in.CategoryCode),
		Size:           strings.TrimSpace(in.Size),
		Color:          strings.TrimSpace(in.Color),
		Price:          in.Price,
		DiscountRate:   in.DiscountRate,
		Stock:          in.Stock,
		SoldQuantity:   in.SoldQuantity,
		DefectiveStock: in.DefectiveStock,
		Description:    in.Description,
		ImageURL:       in.ImageURL,
	}
	if err := s.validate(p, true); err != nil {
		return domain.ManagerView{}, err
	}

	now := s.Now()
	num, err := NewProductNum(now, p.Brand, p.Name, p.CategoryCode)
	if err != nil {
		return domain.ManagerView{}, err
	}
	p.ProductNum = num
	p.CreatedAt = domain.Timestamp(now)
	p.UpdatedAt = p.CreatedAt

	id, err := s.Products.Insert(p, actor.MemberID)
	if err != nil {
		return domain.ManagerView{}, err
	}
	saved, err := s.Products.Get(id)
	if err != nil {
		return domain.ManagerView{}, err
	}
	applog.Audit(nil, "product.register", map[string]any{"product_id": id, "product_num": num, "by": actor.MemberID})
	s.Sync.Sync(ctx, saved)
	return saved.ManagerView(), nil
}

// Update applies a partial change. The product number is regenerated when
// brand, name or category change; if the new number is taken nothing is
// written.
func (s *ProductService) Update(ctx context.Context, actor domain.Actor, id int64, patch domain.ProductPatch) (domain.ManagerView, error) {
	cur, err := loadAuthorized(ctx, s.Products, s.Gate, actor, id)
	if err != nil {
		return domain.ManagerView{}, err
	}

	next := cur
	setString(&next.Name, patch.Name)
	setString(&next.Brand, patch.Brand)
	setString(&next.CategoryCode, patch.CategoryCode)
	setString(&next.Size, patch.Size)
	setString(&next.Color, patch.Color)
	if patch.Description != nil {
		next.Description = *patch.Description
	}
	if patch.ImageURL != nil {
		next.ImageURL = *patch.ImageURL
	}
	if patch.Price != nil {
		next.Price = *patch.Price
	}
	if patch.DiscountRate != nil {
		next.DiscountRate = *patch.DiscountRate
	}
	if patch.Stock != nil {
		next.Stock = *patch.Stock
	}
	if patch.SoldQuantity != nil {
		next.SoldQuantity = *patch.SoldQuantity
	}
	if patch.DefectiveStock != nil {
		next.DefectiveStock = *patch.DefectiveStock
	}

	if sameAttributes(cur, next) {
		return domain.ManagerView{}, domain.ErrNoChange
	}
	if err := s.validate(next, next.CategoryCode != cur.CategoryCode); err != nil {
		return domain.ManagerView{}, err
	}
	if next.Brand != cur.Brand || next.Name != cur.Name || next.CategoryCode != cur.CategoryCode {
		num, err := RegenerateProductNum(cur.ProductNum, next.Brand, next.Name, next.CategoryCode)
		if err != nil {
			return domain.ManagerView{}, err
		}
		next.ProductNum = num
	}
	next.UpdatedAt = domain.Timestamp(s.Now())

	if err := s.Products.Update(next); err != nil {
		return domain.ManagerView{}, err
	}
	saved, err := s.Products.Get(id)
	if err != nil {
		return domain.ManagerView{}, err
	}
	applog.Audit(nil, "product.update", map[string]any{"product_id": id, "product_num": saved.ProductNum, "by": actor.MemberID})
	s.Sync.Sync(ctx, saved)
	return saved.ManagerView(), nil
}

// Delete removes the product and its document.
func (s *ProductService) Delete(ctx context.Context, actor domain.Actor, id int64) error {
	if _, err := loadAuthorized(ctx, s.Products, s.Gate, actor, id); err != nil {
		return err
	}
	if err := s.Sync.Remove(ctx, id); err != nil {
		return err
	}
	applog.Audit(nil, "product.delete", map[string]any{"product_id": id, "by": actor.MemberID})
	return nil
}

func (s *ProductService) Get(ctx context.Context, actor domain.Actor, id int64) (domain.ManagerView, error) {
	p, err := loadAuthorized(ctx, s.Products, s.Gate, actor, id)
	if err != nil {
		return domain.ManagerView{}, err
	}
	return p.ManagerView(), nil
}

// Search queries the index. An unavailable index is an error here; this is
// the one read that depends on it.
func (s *ProductService) Search(ctx context.Context, q search.Query) (search.Page, error) {
	ctx, cancel := context.WithTimeout(ctx, s.Sync.timeout())
	defer cancel()
	return s.Sync.Index.Search(ctx, q)
}

// BestSellers lists documents ordered by sold quantity. It reads the store,
// so it keeps working while the index is down.
func (s *ProductService) BestSellers(ctx context.Context, page, size int) (search.Page, error) {
	q := search.Query{Page: page, Size: size}.Normalize()
	ps, total, err := s.Products.BestSellers(q.Size, (q.Page-1)*q.Size)
	if err != nil {
		return search.Page{}, err
	}
	out := search.Page{Items: make([]domain.ProductDocument, 0, len(ps)), Total: total, Page: q.Page, Size: q.Size}
	for _, p := range ps {
		doc, err := s.Sync.Document(p)
		if err != nil {
			return search.Page{}, err
		}
		out.Items = append(out.Items, doc)
	}
	return out, nil
}

type BrandPage struct {
	Items []string `json:"items"`
	Total int      `json:"total"`
	Page  int      `json:"page"`
	Size  int      `json:"size"`
}

func (s *ProductService) Brands(ctx context.Context, page, size int) (BrandPage, error) {
	q := search.Query{Page: page, Size: size}.Normalize()
	brands, total, err := s.Products.Brands(q.Size, (q.Page-1)*q.Size)
	if err != nil {
		return BrandPage{}, err
	}
	return BrandPage{Items: brands, Total: total, Page: q.Page, Size: q.Size}, nil
}

func (s *ProductService) validate(p domain.Product, checkCategory bool) error {
	switch {
	case p.Name == "":
		return domain.NewInvalidArgumentError("name", "required", p.Name)
	case p.Brand == "":
		return domain.NewInvalidArgumentError("brand", "required", p.Brand)
	case p.CategoryCode == "":
		return domain.NewInvalidArgumentError("category", "required", p.CategoryCode)
	case p.Price.IsNegative():
		return domain.NewInvalidArgumentError("price", "must not be negative", p.Price)
	case p.DiscountRate < 0 || p.DiscountRate > 100:
		return domain.NewInvalidArgumentError("discountRate", "must be between 0 and 100", p.DiscountRate)
	case p.Stock < 0:
		return domain.NewInvalidArgumentError("stock", "must not be negative", p.Stock)
	case p.SoldQuantity < 0:
		return domain.NewInvalidArgumentError("soldQuantity", "must not be negative", p.SoldQuantity)
	case p.DefectiveStock < 0:
		return domain.NewInvalidArgumentError("defectiveStock", "must not be negative", p.DefectiveStock)
	}
	if checkCategory {
		ok, err := s.Categories.Exists(p.CategoryCode)
		if err != nil {
			return err
		}
		if !ok {
			return domain.NewInvalidArgumentError("category", "unknown category", p.CategoryCode)
		}
	}
	return nil
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = strings.TrimSpace(*v)
	}
}

func sameAttributes(a, b domain.Product) bool {
	return a.Name == b.Name && a.Brand == b.Brand && a.CategoryCode == b.CategoryCode &&
		a.Size == b.Size && a.Color == b.Color && a.Description == b.Description &&
		a.ImageURL == b.ImageURL && a.Price.Equal(b.Price) && a.DiscountRate == b.DiscountRate &&
		a.Stock == b.Stock && a.SoldQuantity == b.SoldQuantity && a.DefectiveStock == b.DefectiveStock
}
