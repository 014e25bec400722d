package repos

import (
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"backoffice/internal/domain"
)

// MemberProductRepo reads the seller-to-product registration table.
type MemberProductRepo struct{ db *sqlx.DB }

func NewMemberProductRepo(db *sqlx.DB) *MemberProductRepo { return &MemberProductRepo{db: db} }

// OwnsNameBrand reports whether memberID has registered any product with
// exactly this name and brand.
func (r *MemberProductRepo) OwnsNameBrand(memberID, name, brand string) (bool, error) {
	var n int
	err := r.db.Get(&n, r.db.Rebind(`
  SELECT COUNT(*)
  FROM member_products mp
  JOIN products p ON p.id = mp.product_id
  WHERE mp.member_id = ? AND p.name = ? AND p.brand = ?
`), memberID, name, brand)
	return n > 0, err
}

// Owner returns the member a product is registered to.
func (r *MemberProductRepo) Owner(productID int64) (string, error) {
	var id string
	err := r.db.Get(&id, r.db.Rebind(`SELECT member_id FROM member_products WHERE product_id = ?`), productID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", domain.ErrNotFound
	}
	return id, err
}
