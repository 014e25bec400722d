package services_test

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"testing"
	"time"

	"backoffice/internal/domain"
	"backoffice/internal/repos"
	"backoffice/internal/services"
)

func TestDecreaseStock_ExhaustsThenRefuses(t *testing.T) {
	e := newEnv(t, true)
	ctx := context.Background()

	if _, err := e.stock.DecreaseStock(ctx, sellerA, 1, 15); !errors.Is(err, domain.ErrInsufficientQuantity) {
		t.Fatalf("decrease 15 of 10: want ErrInsufficientQuantity, got %v", err)
	}
	if got := e.stockOf(t, 1); got != 10 {
		t.Fatalf("stock changed after a refused decrease: %d", got)
	}

	view, err := e.stock.DecreaseStock(ctx, sellerA, 1, 10)
	if err != nil {
		t.Fatal(err)
	}
	if view.Stock != 0 || view.ID != 1 || view.ProductNum != "240101120000SA0101" {
		t.Fatalf("snapshot after decrease: %+v", view)
	}

	_, err = e.stock.DecreaseStock(ctx, sellerA, 1, 1)
	var iq *domain.InsufficientQuantityError
	if !errors.As(err, &iq) {
		t.Fatalf("decrease 1 of 0: want InsufficientQuantityError, got %v", err)
	}
	if iq.ProductID != 1 || iq.Counter != domain.CounterStock || iq.Current != 0 || iq.Requested != 1 {
		t.Fatalf("error details: %+v", iq)
	}
}

func TestIncreaseThenDecreaseRoundTrip(t *testing.T) {
	e := newEnv(t, true)
	ctx := context.Background()
	before := e.stockOf(t, 2)

	if _, err := e.stock.IncreaseStock(ctx, center, 2, 7); err != nil {
		t.Fatal(err)
	}
	if _, err := e.stock.DecreaseStock(ctx, center, 2, 7); err != nil {
		t.Fatal(err)
	}
	if got := e.stockOf(t, 2); got != before {
		t.Fatalf("round trip: want %d, got %d", before, got)
	}
}

func TestNegativeDeltaRejectedBeforeLookup(t *testing.T) {
	e := newEnv(t, true)
	// unknown product: the argument check must win over not-found and ownership
	_, err := e.stock.IncreaseStock(context.Background(), alice, 999, -1)
	if !errors.Is(err, domain.ErrInvalidArgument) {
		t.Fatalf("want ErrInvalidArgument, got %v", err)
	}
	_, err = e.stock.DecreaseSoldQuantity(context.Background(), sellerA, 1, -3)
	if !domain.IsInvalidArgument(err) {
		t.Fatalf("want InvalidArgumentError, got %v", err)
	}
}

func TestSoldQuantityFollowsTheSameRule(t *testing.T) {
	e := newEnv(t, true)
	ctx := context.Background()

	if _, err := e.stock.DecreaseSoldQuantity(ctx, sellerA, 1, 4); !errors.Is(err, domain.ErrInsufficientQuantity) {
		t.Fatalf("decrease 4 of 3: %v", err)
	}
	view, err := e.stock.DecreaseSoldQuantity(ctx, sellerA, 1, 3)
	if err != nil || view.SoldQuantity != 0 {
		t.Fatalf("decrease 3 of 3: %+v %v", view, err)
	}
	if _, err := e.stock.DecreaseSoldQuantity(ctx, sellerA, 1, 0); !errors.Is(err, domain.ErrInsufficientQuantity) {
		t.Fatalf("decrease at zero must fail, got %v", err)
	}
	view, err = e.stock.IncreaseSoldQuantity(ctx, sellerA, 1, 5)
	if err != nil || view.SoldQuantity != 5 || view.Stock != 10 {
		t.Fatalf("increase sold: %+v %v", view, err)
	}
}

func TestNonOwnerCannotTouchCounters(t *testing.T) {
	e := newEnv(t, true)
	ctx := context.Background()

	cases := []struct {
		name  string
		actor domain.Actor
		id    int64
		want  error
	}{
		{"other seller, existing product", sellerB, 1, domain.ErrOwnershipMismatch},
		{"other seller, missing product", sellerB, 999, domain.ErrOwnershipMismatch},
		{"plain member", alice, 1, domain.ErrOwnershipMismatch},
		{"anonymous", domain.Actor{}, 2, domain.ErrOwnershipMismatch},
		{"operator, missing product", center, 999, domain.ErrNotFound},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if _, err := e.stock.IncreaseStock(ctx, c.actor, c.id, 1); !errors.Is(err, c.want) {
				t.Fatalf("want %v, got %v", c.want, err)
			}
		})
	}
	if got := e.stockOf(t, 1); got != 10 {
		t.Fatalf("denied calls changed stock: %d", got)
	}
	if _, err := e.stock.IncreaseStock(ctx, sellerB, 2, 1); err != nil {
		t.Fatalf("owner of product 2 should pass: %v", err)
	}
}

func TestCountersStayNonNegative(t *testing.T) {
	e := newEnv(t, true)
	ctx := context.Background()
	r := rand.New(rand.NewSource(42))

	for i := 0; i < 200; i++ {
		delta := int64(r.Intn(8))
		var err error
		switch r.Intn(4) {
		case 0:
			_, err = e.stock.IncreaseStock(ctx, sellerA, 1, delta)
		case 1:
			_, err = e.stock.DecreaseStock(ctx, sellerA, 1, delta)
		case 2:
			_, err = e.stock.IncreaseSoldQuantity(ctx, sellerA, 1, delta)
		case 3:
			_, err = e.stock.DecreaseSoldQuantity(ctx, sellerA, 1, delta)
		}
		if err != nil && !errors.Is(err, domain.ErrInsufficientQuantity) {
			t.Fatalf("step %d: unexpected error %v", i, err)
		}
		p, _ := e.products.Get(1)
		if p.Stock < 0 || p.SoldQuantity < 0 {
			t.Fatalf("step %d: negative counter %+v", i, p)
		}
	}
}

func TestStockWriteSurvivesIndexOutage(t *testing.T) {
	e := newEnv(t, true)
	ctx := context.Background()
	e.index.setDown(true)

	view, err := e.stock.DecreaseStock(ctx, sellerA, 1, 4)
	if err != nil {
		t.Fatalf("index outage must not fail the write: %v", err)
	}
	if view.Stock != 6 || e.stockOf(t, 1) != 6 {
		t.Fatalf("authoritative write lost: view=%d", view.Stock)
	}
	if e.index.Len() != 0 {
		t.Fatal("nothing should have reached the index")
	}
}

func TestStockChangeReachesIndex(t *testing.T) {
	e := newEnv(t, true)
	ctx := context.Background()
	if _, err := e.stock.IncreaseStock(ctx, sellerA, 1, 2); err != nil {
		t.Fatal(err)
	}
	doc, found, _ := e.index.Get(ctx, 1)
	if !found || doc.Stock != 12 || len(doc.Coupons) != 1 {
		t.Fatalf("document after sync: found=%v %+v", found, doc)
	}
}

// racingStore lets another writer commit between the read and the counter
// write.
type racingStore struct {
	*repos.ProductRepo
	interleave func()
}

func (r *racingStore) SetCounter(id int64, c domain.Counter, value, version int64, at time.Time) error {
	if r.interleave != nil {
		r.interleave()
		r.interleave = nil
	}
	return r.ProductRepo.SetCounter(id, c, value, version, at)
}

func TestLostVersionRaceIsConflict(t *testing.T) {
	e := newEnv(t, true)
	ctx := context.Background()
	store := &racingStore{ProductRepo: e.products, interleave: func() {
		if _, err := e.db.Exec(`UPDATE products SET version = version + 1 WHERE id = 1`); err != nil {
			t.Fatal(err)
		}
	}}
	stock := services.NewStockService(store, services.NewOwnershipGate(repos.NewMemberProductRepo(e.db)), e.sync, nil)

	_, err := stock.DecreaseStock(ctx, sellerA, 1, 4)
	if !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("want ErrConflict, got %v", err)
	}
	if got := e.stockOf(t, 1); got != 10 {
		t.Fatalf("stock changed by a rejected write: %d", got)
	}

	// the next attempt reads the new version and lands
	if _, err := stock.DecreaseStock(ctx, sellerA, 1, 4); err != nil {
		t.Fatal(err)
	}
	if got := e.stockOf(t, 1); got != 6 {
		t.Fatalf("stock after retry: %d", got)
	}
}

func TestIncreaseOverflowIsInvalidArgument(t *testing.T) {
	e := newEnv(t, true)
	_, err := e.stock.IncreaseStock(context.Background(), center, 1, math.MaxInt64)
	if !errors.Is(err, domain.ErrInvalidArgument) {
		t.Fatalf("want ErrInvalidArgument, got %v", err)
	}
	if got := e.stockOf(t, 1); got != 10 {
		t.Fatalf("stock changed: %d", got)
	}
}
