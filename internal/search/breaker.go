package search

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sony/gobreaker"

	"backoffice/internal/domain"
)

// Guarded puts a circuit breaker in front of an Index. While open, calls fail
// fast with ErrUnavailable instead of waiting on a dead backend.
type Guarded struct {
	inner Index
	cb    *gobreaker.CircuitBreaker
}

type BreakerSettings struct {
	Failures      uint32        // consecutive failures before opening
	Cooldown      time.Duration // open -> half-open
	OnStateChange func(state gobreaker.State)
}

func NewGuarded(inner Index, s BreakerSettings) *Guarded {
	if s.Failures == 0 {
		s.Failures = 5
	}
	st := gobreaker.Settings{
		Name:    "search-index",
		Timeout: s.Cooldown,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= s.Failures
		},
	}
	if s.OnStateChange != nil {
		st.OnStateChange = func(_ string, _, to gobreaker.State) { s.OnStateChange(to) }
	}
	return &Guarded{inner: inner, cb: gobreaker.NewCircuitBreaker(st)}
}

func (g *Guarded) State() gobreaker.State { return g.cb.State() }

func (g *Guarded) Put(ctx context.Context, doc domain.ProductDocument) error {
	_, err := g.cb.Execute(func() (interface{}, error) {
		return nil, g.inner.Put(ctx, doc)
	})
	return wrapOpen(err)
}

func (g *Guarded) Get(ctx context.Context, id int64) (domain.ProductDocument, bool, error) {
	type got struct {
		doc   domain.ProductDocument
		found bool
	}
	v, err := g.cb.Execute(func() (interface{}, error) {
		d, ok, err := g.inner.Get(ctx, id)
		return got{d, ok}, err
	})
	if err != nil {
		return domain.ProductDocument{}, false, wrapOpen(err)
	}
	r := v.(got)
	return r.doc, r.found, nil
}

func (g *Guarded) Delete(ctx context.Context, id int64) error {
	_, err := g.cb.Execute(func() (interface{}, error) {
		return nil, g.inner.Delete(ctx, id)
	})
	return wrapOpen(err)
}

func (g *Guarded) Search(ctx context.Context, q Query) (Page, error) {
	v, err := g.cb.Execute(func() (interface{}, error) {
		return g.inner.Search(ctx, q)
	})
	if err != nil {
		return Page{}, wrapOpen(err)
	}
	return v.(Page), nil
}

func wrapOpen(err error) error {
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return err
}
