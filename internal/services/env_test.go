package services_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"

	"backoffice/internal/domain"
	"backoffice/internal/repos"
	"backoffice/internal/search"
	"backoffice/internal/services"
)

var (
	sellerA = domain.Actor{MemberID: "u-seller-a", Caps: domain.CapOwner}
	sellerB = domain.Actor{MemberID: "u-seller-b", Caps: domain.CapOwner}
	center  = domain.Actor{MemberID: "u-center", Caps: domain.CapElevated}
	alice   = domain.Actor{MemberID: "u-alice"}
)

var fixedNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

// brokenIndex is a MemoryIndex that can be switched off. getDown fails
// reads only and is set before any concurrent use.
type brokenIndex struct {
	*search.MemoryIndex
	mu      sync.Mutex
	down    bool
	getDown bool
}

var errIndexDown = errors.New("index down")

func (b *brokenIndex) setDown(v bool) {
	b.mu.Lock()
	b.down = v
	b.mu.Unlock()
}

func (b *brokenIndex) isDown() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.down
}

func (b *brokenIndex) Put(ctx context.Context, d domain.ProductDocument) error {
	if b.isDown() {
		return errIndexDown
	}
	return b.MemoryIndex.Put(ctx, d)
}

func (b *brokenIndex) Get(ctx context.Context, id int64) (domain.ProductDocument, bool, error) {
	if b.isDown() || b.getDown {
		return domain.ProductDocument{}, false, errIndexDown
	}
	return b.MemoryIndex.Get(ctx, id)
}

func (b *brokenIndex) Delete(ctx context.Context, id int64) error {
	if b.isDown() {
		return errIndexDown
	}
	return b.MemoryIndex.Delete(ctx, id)
}

type env struct {
	db       *sqlx.DB
	products *repos.ProductRepo
	coupons  *repos.CouponRepo
	index    *brokenIndex
	sync     *services.IndexSynchronizer
	stock    *services.StockService
	product  *services.ProductService
	coupon   *services.CouponService
}

func newEnv(t *testing.T, demo bool) *env {
	t.Helper()
	db, err := repos.OpenDB("sqlite", ":memory:", demo)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })

	products := repos.NewProductRepo(db)
	coupons := repos.NewCouponRepo(db)
	idx := &brokenIndex{MemoryIndex: search.NewMemoryIndex()}
	syncer := &services.IndexSynchronizer{
		Index:    idx,
		Products: products,
		Coupons:  coupons,
		Timeout:  time.Second,
		Workers:  4,
	}
	gate := services.NewOwnershipGate(repos.NewMemberProductRepo(db))
	now := func() time.Time { return fixedNow }

	stock := services.NewStockService(products, gate, syncer, nil)
	stock.Now = now
	product := services.NewProductService(products, repos.NewCategoryRepo(db), gate, syncer)
	product.Now = now
	coupon := services.NewCouponService(coupons, products, repos.NewUserRepo(db), syncer, nil)
	coupon.Now = now

	return &env{db: db, products: products, coupons: coupons, index: idx, sync: syncer,
		stock: stock, product: product, coupon: coupon}
}

func (e *env) stockOf(t *testing.T, id int64) int64 {
	t.Helper()
	p, err := e.products.Get(id)
	if err != nil {
		t.Fatal(err)
	}
	return p.Stock
}
