package services

import (
	"context"
	"errors"
	"math"
	"time"

	"backoffice/internal/domain"
	"backoffice/internal/metrics"
)

// CounterStore reads products and writes single counters under a version
// check. *repos.ProductRepo implements it.
type CounterStore interface {
	Get(id int64) (domain.Product, error)
	SetCounter(id int64, counter domain.Counter, value, version int64, at time.Time) error
}

// StockService guards the stock and sold quantity counters.
type StockService struct {
	Products CounterStore
	Gate     *OwnershipGate
	Sync     *IndexSynchronizer
	Metrics  *metrics.Metrics
	Now      func() time.Time
}

func NewStockService(products CounterStore, gate *OwnershipGate, sync *IndexSynchronizer, m *metrics.Metrics) *StockService {
	return &StockService{Products: products, Gate: gate, Sync: sync, Metrics: m, Now: time.Now}
}

func (s *StockService) IncreaseStock(ctx context.Context, actor domain.Actor, productID, delta int64) (domain.ManagerView, error) {
	return s.AdjustStock(ctx, actor, productID, delta, domain.Increase)
}

func (s *StockService) DecreaseStock(ctx context.Context, actor domain.Actor, productID, delta int64) (domain.ManagerView, error) {
	return s.AdjustStock(ctx, actor, productID, delta, domain.Decrease)
}

func (s *StockService) IncreaseSoldQuantity(ctx context.Context, actor domain.Actor, productID, delta int64) (domain.ManagerView, error) {
	return s.AdjustSoldQuantity(ctx, actor, productID, delta, domain.Increase)
}

func (s *StockService) DecreaseSoldQuantity(ctx context.Context, actor domain.Actor, productID, delta int64) (domain.ManagerView, error) {
	return s.AdjustSoldQuantity(ctx, actor, productID, delta, domain.Decrease)
}

func (s *StockService) AdjustStock(ctx context.Context, actor domain.Actor, productID, delta int64, dir domain.Direction) (domain.ManagerView, error) {
	return s.adjust(ctx, actor, productID, domain.CounterStock, delta, dir)
}

func (s *StockService) AdjustSoldQuantity(ctx context.Context, actor domain.Actor, productID, delta int64, dir domain.Direction) (domain.ManagerView, error) {
	return s.adjust(ctx, actor, productID, domain.CounterSoldQuantity, delta, dir)
}

// adjust reads, validates and then writes one counter. The write only lands
// if the row is unchanged since the read.
func (s *StockService) adjust(ctx context.Context, actor domain.Actor, productID int64, counter domain.Counter, delta int64, dir domain.Direction) (view domain.ManagerView, err error) {
	defer func() { s.Metrics.Ledger(counter.String(), dir.String(), err) }()

	if delta < 0 {
		return view, domain.NewInvalidArgumentError("amount", "must not be negative", delta)
	}
	p, err := loadAuthorized(ctx, s.Products, s.Gate, actor, productID)
	if err != nil {
		return view, err
	}

	current := p.Stock
	if counter == domain.CounterSoldQuantity {
		current = p.SoldQuantity
	}
	next, err := applyDelta(current, delta, dir)
	if err != nil {
		var iq *domain.InsufficientQuantityError
		if errors.As(err, &iq) {
			iq.ProductID, iq.Counter = productID, counter
		}
		return view, err
	}

	if err := s.Products.SetCounter(productID, counter, next, p.Version, s.Now()); err != nil {
		return view, err
	}
	updated, err := s.Products.Get(productID)
	if err != nil {
		return view, err
	}
	s.Sync.Sync(ctx, updated)
	return updated.ManagerView(), nil
}

// applyDelta is the counter rule shared by stock and sold quantity.
func applyDelta(current, delta int64, dir domain.Direction) (int64, error) {
	if delta < 0 {
		return current, domain.NewInvalidArgumentError("amount", "must not be negative", delta)
	}
	if dir == domain.Increase {
		if delta > math.MaxInt64-current {
			return current, domain.NewInvalidArgumentError("amount", "would overflow the counter", delta)
		}
		return current + delta, nil
	}
	if current <= 0 || delta > current {
		return current, &domain.InsufficientQuantityError{Current: current, Requested: delta}
	}
	next := current - delta
	if next < 0 {
		next = 0
	}
	return next, nil
}
