package repos_test

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"backoffice/internal/domain"
	"backoffice/internal/repos"
)

func memdb(t *testing.T, demo bool) *sqlx.DB {
	t.Helper()
	db, err := repos.OpenDB("sqlite", ":memory:", demo)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestOpenDBSeedsAreIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seed.db")
	for i := 0; i < 2; i++ {
		db, err := repos.OpenDB("sqlite", path, true)
		if err != nil {
			t.Fatalf("open #%d: %v", i+1, err)
		}
		_ = db.Close()
	}
	db, err := repos.OpenDB("sqlite", path, false)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	var n int
	if err := db.Get(&n, `SELECT COUNT(*) FROM products`); err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Fatalf("want 2 demo products, got %d", n)
	}
	if err := db.Get(&n, `SELECT COUNT(*) FROM coupons`); err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Fatalf("want 2 demo coupons, got %d", n)
	}
}

func TestProductRepo_GetJoinsCategory(t *testing.T) {
	db := memdb(t, true)
	r := repos.NewProductRepo(db)

	p, err := r.Get(1)
	if err != nil {
		t.Fatal(err)
	}
	if p.Name != "Air Runner" || p.CategoryName != "Running Shoes" || p.Stock != 10 || p.SoldQuantity != 3 {
		t.Fatalf("unexpected product: %+v", p)
	}
	if !p.Price.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("price: %s", p.Price)
	}
	if _, err := r.Get(999); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}

func TestProductRepo_SetCounterVersionCheck(t *testing.T) {
	db := memdb(t, true)
	r := repos.NewProductRepo(db)
	p, _ := r.Get(1)

	if err := r.SetCounter(p.ID, domain.CounterStock, 7, p.Version, time.Now()); err != nil {
		t.Fatal(err)
	}
	// stale version loses
	if err := r.SetCounter(p.ID, domain.CounterStock, 1, p.Version, time.Now()); !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("want ErrConflict, got %v", err)
	}
	if err := r.SetCounter(999, domain.CounterStock, 1, 1, time.Now()); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
	got, _ := r.Get(1)
	if got.Stock != 7 || got.Version != p.Version+1 || got.SoldQuantity != 3 {
		t.Fatalf("unexpected row after update: %+v", got)
	}
}

func TestProductRepo_InsertAndDuplicateNumber(t *testing.T) {
	db := memdb(t, true)
	r := repos.NewProductRepo(db)
	mp := repos.NewMemberProductRepo(db)

	now := domain.Timestamp(time.Now())
	p := domain.Product{
		ProductNum: "250301101500SR0101", Name: "Road", Brand: "Stride", CategoryCode: "0101",
		Price: decimal.RequireFromString("89.90"), Stock: 4, CreatedAt: now, UpdatedAt: now,
	}
	id, err := r.Insert(p, "u-seller-a")
	if err != nil {
		t.Fatal(err)
	}
	owner, err := mp.Owner(id)
	if err != nil || owner != "u-seller-a" {
		t.Fatalf("owner=%q err=%v", owner, err)
	}
	if _, err := r.Insert(p, "u-seller-b"); !errors.Is(err, domain.ErrDuplicateIdentifier) {
		t.Fatalf("want ErrDuplicateIdentifier, got %v", err)
	}
	ok, err := mp.OwnsNameBrand("u-seller-a", "Road", "Stride")
	if err != nil || !ok {
		t.Fatalf("ownership by name/brand not found: %v", err)
	}
	ok, _ = mp.OwnsNameBrand("u-seller-b", "Road", "Stride")
	if ok {
		t.Fatal("seller b must not own Road/Stride")
	}
}

func TestProductRepo_UpdateRejectsTakenNumber(t *testing.T) {
	db := memdb(t, true)
	r := repos.NewProductRepo(db)

	p, _ := r.Get(2)
	p.ProductNum = "240101120000SA0101" // belongs to product 1
	if err := r.Update(p); !errors.Is(err, domain.ErrDuplicateIdentifier) {
		t.Fatalf("want ErrDuplicateIdentifier, got %v", err)
	}
	got, _ := r.Get(2)
	if got.ProductNum != "240102093000NT0201" {
		t.Fatalf("row changed after rejected update: %+v", got)
	}

	// keeping its own number is fine
	got.Description = "waterproof"
	if err := r.Update(got); err != nil {
		t.Fatal(err)
	}
	stale := got
	stale.Description = "again"
	if err := r.Update(stale); !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("want ErrConflict for stale version, got %v", err)
	}
}

func TestProductRepo_DeleteRemovesLinks(t *testing.T) {
	db := memdb(t, true)
	r := repos.NewProductRepo(db)

	if err := r.Delete(1); err != nil {
		t.Fatal(err)
	}
	var n int
	_ = db.Get(&n, `SELECT COUNT(*) FROM product_coupons WHERE product_id = 1`)
	if n != 0 {
		t.Fatalf("product coupons left behind: %d", n)
	}
	_ = db.Get(&n, `SELECT COUNT(*) FROM member_products WHERE product_id = 1`)
	if n != 0 {
		t.Fatalf("owner link left behind: %d", n)
	}
	if err := r.Delete(1); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}

func TestProductRepo_IDsAfter(t *testing.T) {
	db := memdb(t, true)
	r := repos.NewProductRepo(db)
	ids, err := r.IDsAfter(0, 1)
	if err != nil || len(ids) != 1 || ids[0] != 1 {
		t.Fatalf("page 1: %v %v", ids, err)
	}
	ids, _ = r.IDsAfter(ids[0], 10)
	if len(ids) != 1 || ids[0] != 2 {
		t.Fatalf("page 2: %v", ids)
	}
}

func TestCouponRepo_AssignAndUse(t *testing.T) {
	db := memdb(t, true)
	r := repos.NewCouponRepo(db)
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	c, err := r.Create(domain.NewCoupon{
		Name: "Brand 15", DiscountRate: 15, AssignBy: domain.AssignBrand, Target: "stride",
		StartDate: now.Add(-time.Hour), EndDate: now.Add(time.Hour),
	}, now)
	if err != nil {
		t.Fatal(err)
	}
	if !c.StartDate.Equal(now.Add(-time.Hour)) || c.AssignBy != domain.AssignBrand {
		t.Fatalf("coupon round trip: %+v", c)
	}

	aid, err := r.AssignToMember(c.ID, "u-bob", now)
	if err != nil {
		t.Fatal(err)
	}
	held, err := r.UnusedForMember("u-bob")
	if err != nil || len(held) != 1 || held[0].Coupon.ID != c.ID || held[0].Used {
		t.Fatalf("unused for bob: %+v %v", held, err)
	}

	if err := r.MarkMemberCouponUsed(aid, now); err != nil {
		t.Fatal(err)
	}
	if err := r.MarkMemberCouponUsed(aid, now); !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("second use: want ErrConflict, got %v", err)
	}
	a, err := r.MemberAssignment(aid)
	if err != nil || !a.Used || a.UsedAt == nil {
		t.Fatalf("assignment after use: %+v %v", a, err)
	}
	held, _ = r.UnusedForMember("u-bob")
	if len(held) != 0 {
		t.Fatalf("used coupon still listed: %+v", held)
	}
	if _, err := r.Get(c.ID + 100); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}

func TestCouponRepo_ProductSummaries(t *testing.T) {
	db := memdb(t, true)
	r := repos.NewCouponRepo(db)

	sums, err := r.ProductSummaries(1)
	if err != nil {
		t.Fatal(err)
	}
	if len(sums) != 1 || sums[0].Name != "Shoes 20" || sums[0].DiscountRate != 20 {
		t.Fatalf("demo product coupon missing: %+v", sums)
	}
	sums, _ = r.ProductSummaries(2)
	if len(sums) != 0 {
		t.Fatalf("product 2 has no coupons, got %+v", sums)
	}
}

func TestCategoryRepo_Exists(t *testing.T) {
	db := memdb(t, false)
	r := repos.NewCategoryRepo(db)
	ok, err := r.Exists("0101")
	if err != nil || !ok {
		t.Fatalf("0101 should exist: %v", err)
	}
	ok, _ = r.Exists("9999")
	if ok {
		t.Fatal("9999 should not exist")
	}
	cats, _ := r.List()
	if len(cats) == 0 || cats[0].Code != "01" {
		t.Fatalf("list order: %+v", cats)
	}
}

func TestUserRepo_Sessions(t *testing.T) {
	db := memdb(t, false)
	r := repos.NewUserRepo(db)
	u, err := r.ByEmail("ALICE@backoffice.test")
	if err != nil || u.ID != "u-alice" {
		t.Fatalf("by email: %+v %v", u, err)
	}
	if err := r.BindSession("sid-1", u.ID); err != nil {
		t.Fatal(err)
	}
	su, err := r.SessionUser("sid-1")
	if err != nil || su.ID != "u-alice" {
		t.Fatalf("session user: %+v %v", su, err)
	}
	_ = r.UnbindSession("sid-1")
	if _, err := r.SessionUser("sid-1"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("unbound session: want ErrNotFound, got %v", err)
	}
	if _, err := r.ByID("u-ghost"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("unknown user: want ErrNotFound, got %v", err)
	}
}
