package services_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"backoffice/internal/domain"
	"backoffice/internal/repos"
	"backoffice/internal/search"
)

func ptr[T any](v T) *T { return &v }

func registerAero(t *testing.T, e *env) domain.ManagerView {
	t.Helper()
	view, err := e.product.Register(context.Background(), sellerA, domain.NewProduct{
		Name: "Aero", Brand: "Northline", CategoryCode: "0101",
		Price: decimal.RequireFromString("120.50"), Stock: 8,
	})
	if err != nil {
		t.Fatal(err)
	}
	return view
}

func TestRegisterProduct(t *testing.T) {
	e := newEnv(t, true)
	view := registerAero(t, e)

	if view.ProductNum != "250601120000NA0101" {
		t.Fatalf("product number: %q", view.ProductNum)
	}
	owner, err := repos.NewMemberProductRepo(e.db).Owner(view.ID)
	if err != nil || owner != "u-seller-a" {
		t.Fatalf("owner=%q err=%v", owner, err)
	}
	doc, found, _ := e.index.Get(context.Background(), view.ID)
	if !found || doc.Name != "Aero" || doc.CategoryName != "Running Shoes" {
		t.Fatalf("document: found=%v %+v", found, doc)
	}
}

func TestRegisterValidation(t *testing.T) {
	e := newEnv(t, true)
	ctx := context.Background()
	base := domain.NewProduct{Name: "X", Brand: "Y", CategoryCode: "0101", Price: decimal.NewFromInt(1)}

	bad := []domain.NewProduct{
		func() domain.NewProduct { p := base; p.CategoryCode = "9999"; return p }(),
		func() domain.NewProduct { p := base; p.Stock = -1; return p }(),
		func() domain.NewProduct { p := base; p.SoldQuantity = -1; return p }(),
		func() domain.NewProduct { p := base; p.Name = " "; return p }(),
		func() domain.NewProduct { p := base; p.Price = decimal.NewFromInt(-5); return p }(),
		func() domain.NewProduct { p := base; p.DiscountRate = 101; return p }(),
	}
	for i, in := range bad {
		if _, err := e.product.Register(ctx, sellerA, in); !errors.Is(err, domain.ErrInvalidArgument) {
			t.Errorf("case %d: want ErrInvalidArgument, got %v", i, err)
		}
	}
	if _, err := e.product.Register(ctx, alice, base); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("plain member registering: want ErrForbidden, got %v", err)
	}
}

func TestRegisterSameSecondCollides(t *testing.T) {
	e := newEnv(t, true)
	registerAero(t, e)
	_, err := e.product.Register(context.Background(), sellerB, domain.NewProduct{
		Name: "Arc", Brand: "Nimbus", CategoryCode: "0101", Price: decimal.NewFromInt(1),
	})
	if !errors.Is(err, domain.ErrDuplicateIdentifier) {
		t.Fatalf("want ErrDuplicateIdentifier, got %v", err)
	}
}

func TestUpdateRegeneratesSuffixOnly(t *testing.T) {
	e := newEnv(t, true)
	ctx := context.Background()

	view, err := e.product.Update(ctx, sellerA, 1, domain.ProductPatch{Name: ptr("Zephyr"), CategoryCode: ptr("0102")})
	if err != nil {
		t.Fatal(err)
	}
	if view.ProductNum != "240101120000SZ0102" {
		t.Fatalf("product number: %q", view.ProductNum)
	}
	doc, _, _ := e.index.Get(ctx, 1)
	if doc.ProductNum != view.ProductNum || doc.CategoryName != "Sneakers" {
		t.Fatalf("document not refreshed: %+v", doc)
	}

	// non-identity fields leave the number alone
	view, err = e.product.Update(ctx, sellerA, 1, domain.ProductPatch{Color: ptr("red")})
	if err != nil || view.ProductNum != "240101120000SZ0102" || view.Color != "red" {
		t.Fatalf("color update: %+v %v", view, err)
	}
}

func TestUpdateCollisionAbortsEverything(t *testing.T) {
	e := newEnv(t, true)
	ctx := context.Background()
	aero := registerAero(t, e)

	// created in the same second as product 1, so the new brand initial clashes
	e.product.Now = func() time.Time { return time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC) }
	aero2, err := e.product.Register(ctx, sellerA, domain.NewProduct{
		Name: "Aero", Brand: "Northline", CategoryCode: "0101", Price: decimal.NewFromInt(90),
	})
	if err != nil {
		t.Fatal(err)
	}
	_, err = e.product.Update(ctx, sellerA, aero2.ID, domain.ProductPatch{
		Brand:       ptr("Stride"),
		Description: ptr("should not be saved"),
		Price:       ptr(decimal.NewFromInt(1)),
	})
	if !errors.Is(err, domain.ErrDuplicateIdentifier) {
		t.Fatalf("want ErrDuplicateIdentifier, got %v", err)
	}
	got, _ := e.products.Get(aero2.ID)
	if got.Brand != "Northline" || got.Description != "" || !got.Price.Equal(decimal.NewFromInt(90)) ||
		got.ProductNum != "240101120000NA0101" {
		t.Fatalf("partial update persisted: %+v", got)
	}
	if aero.ID == aero2.ID {
		t.Fatal("expected two products")
	}
}

func TestUpdateNoChangeAndOwnership(t *testing.T) {
	e := newEnv(t, true)
	ctx := context.Background()

	if _, err := e.product.Update(ctx, sellerA, 1, domain.ProductPatch{Name: ptr("Air Runner")}); !errors.Is(err, domain.ErrNoChange) {
		t.Fatalf("want ErrNoChange, got %v", err)
	}
	if _, err := e.product.Update(ctx, sellerA, 1, domain.ProductPatch{}); !errors.Is(err, domain.ErrNoChange) {
		t.Fatalf("empty patch: want ErrNoChange, got %v", err)
	}
	if _, err := e.product.Update(ctx, sellerB, 1, domain.ProductPatch{Color: ptr("blue")}); !errors.Is(err, domain.ErrOwnershipMismatch) {
		t.Fatalf("want ErrOwnershipMismatch, got %v", err)
	}
	if _, err := e.product.Update(ctx, sellerA, 1, domain.ProductPatch{Stock: ptr(int64(-1))}); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Fatalf("want ErrInvalidArgument, got %v", err)
	}
	if _, err := e.product.Update(ctx, center, 1, domain.ProductPatch{CategoryCode: ptr("7777")}); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Fatalf("unknown category: want ErrInvalidArgument, got %v", err)
	}
}

func TestDeleteProduct(t *testing.T) {
	e := newEnv(t, true)
	ctx := context.Background()
	_ = e.sync.Index.Put(ctx, search.Project(mustGet(t, e, 2), nil))

	if err := e.product.Delete(ctx, sellerA, 2); !errors.Is(err, domain.ErrOwnershipMismatch) {
		t.Fatalf("non-owner delete: %v", err)
	}
	if err := e.product.Delete(ctx, sellerB, 2); err != nil {
		t.Fatal(err)
	}
	if _, err := e.products.Get(2); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("row still there: %v", err)
	}
	if _, found, _ := e.index.Get(ctx, 2); found {
		t.Fatal("document still there")
	}
	if _, err := e.product.Get(ctx, center, 2); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("operator get after delete: %v", err)
	}
}

func TestSearchThroughIndex(t *testing.T) {
	e := newEnv(t, true)
	ctx := context.Background()
	if _, err := e.sync.Resync(ctx); err != nil {
		t.Fatal(err)
	}
	page, err := e.product.Search(ctx, search.Query{Brand: "northline"})
	if err != nil {
		t.Fatal(err)
	}
	if page.Total != 1 || page.Items[0].Name != "Trail Jacket" {
		t.Fatalf("search: %+v", page)
	}
}

func TestBestSellersAndBrands(t *testing.T) {
	e := newEnv(t, true)
	ctx := context.Background()
	// the listing reads the store, not the index
	e.index.setDown(true)
	if _, err := e.stock.IncreaseSoldQuantity(ctx, sellerB, 2, 7); err != nil {
		t.Fatal(err)
	}

	page, err := e.product.BestSellers(ctx, 1, 0)
	if err != nil {
		t.Fatal(err)
	}
	if page.Total != 2 || len(page.Items) != 2 || page.Items[0].ID != 2 || page.Items[1].ID != 1 {
		t.Fatalf("best sellers: %+v", page)
	}
	if page.Items[1].SoldQuantity != 3 || len(page.Items[1].Coupons) != 1 {
		t.Fatalf("product 1 document: %+v", page.Items[1])
	}

	brands, err := e.product.Brands(ctx, 1, 0)
	if err != nil {
		t.Fatal(err)
	}
	if brands.Total != 2 || len(brands.Items) != 2 || brands.Items[0] != "Northline" || brands.Items[1] != "Stride" {
		t.Fatalf("brands: %+v", brands)
	}
	second, _ := e.product.Brands(ctx, 2, 1)
	if len(second.Items) != 1 || second.Items[0] != "Stride" || second.Size != 1 {
		t.Fatalf("brands page 2: %+v", second)
	}
}

func mustGet(t *testing.T, e *env, id int64) domain.Product {
	t.Helper()
	p, err := e.products.Get(id)
	if err != nil {
		t.Fatal(err)
	}
	return p
}
