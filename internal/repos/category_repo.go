package repos

import (
	"github.com/jmoiron/sqlx"

	"backoffice/internal/domain"
)

type CategoryRepo struct{ db *sqlx.DB }

func NewCategoryRepo(db *sqlx.DB) *CategoryRepo { return &CategoryRepo{db: db} }

func (r *CategoryRepo) List() ([]domain.Category, error) {
	var out []domain.Category
	err := r.db.Select(&out, `
  SELECT
    code,
    name,
    COALESCE(created_at,'') AS created_at
  FROM categories
  ORDER BY code
`)
	return out, err
}

func (r *CategoryRepo) Exists(code string) (bool, error) {
	var n int
	err := r.db.Get(&n, r.db.Rebind(`SELECT COUNT(*) FROM categories WHERE code = ?`), code)
	return n > 0, err
}
