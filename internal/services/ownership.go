package services

import (
	"context"
	"errors"

	"backoffice/internal/domain"
	"backoffice/internal/repos"
)

// OwnershipGate decides whether an actor may manage a product.
type OwnershipGate struct {
	Owners *repos.MemberProductRepo
}

func NewOwnershipGate(owners *repos.MemberProductRepo) *OwnershipGate {
	return &OwnershipGate{Owners: owners}
}

// Authorize allows platform operators unconditionally, and owners when they
// have registered a product with the same name and brand as p.
func (g *OwnershipGate) Authorize(_ context.Context, actor domain.Actor, p domain.Product) error {
	if actor.Elevated() {
		return nil
	}
	if !actor.Has(domain.CapOwner) || actor.MemberID == "" {
		return domain.ErrOwnershipMismatch
	}
	ok, err := g.Owners.OwnsNameBrand(actor.MemberID, p.Name, p.Brand)
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrOwnershipMismatch
	}
	return nil
}

// productLoader is what the gate-guarded services need from the store.
type productLoader interface {
	Get(id int64) (domain.Product, error)
}

// loadAuthorized reads the product and runs the gate on its persisted
// name and brand. Non-operators get ErrOwnershipMismatch for unknown ids too.
func loadAuthorized(ctx context.Context, products productLoader, gate *OwnershipGate, actor domain.Actor, id int64) (domain.Product, error) {
	p, err := products.Get(id)
	if errors.Is(err, domain.ErrNotFound) {
		if actor.Elevated() {
			return p, domain.ErrNotFound
		}
		return p, domain.ErrOwnershipMismatch
	}
	if err != nil {
		return p, err
	}
	if err := gate.Authorize(ctx, actor, p); err != nil {
		return domain.Product{}, err
	}
	return p, nil
}
