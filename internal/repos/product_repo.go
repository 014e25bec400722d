package repos

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"backoffice/internal/domain"
)

type ProductRepo struct{ db *sqlx.DB }

func NewProductRepo(db *sqlx.DB) *ProductRepo { return &ProductRepo{db: db} }

const productCols = `
    p.id, p.product_num, p.name, p.brand, p.category_code,
    COALESCE(c.name,'') AS category_name,
    p.size, p.color, p.price, p.discount_rate,
    p.stock, p.sold_quantity, p.defective_stock,
    p.description, p.image_url, p.version,
    p.created_at, COALESCE(p.updated_at,'') AS updated_at`

// Get loads a product with its category name. Unknown ids give domain.ErrNotFound.
func (r *ProductRepo) Get(id int64) (domain.Product, error) {
	var p domain.Product
	err := r.db.Get(&p, r.db.Rebind(`
  SELECT `+productCols+`
  FROM products p
  LEFT JOIN categories c ON c.code = p.category_code
  WHERE p.id = ?
`), id)
	if errors.Is(err, sql.ErrNoRows) {
		return p, domain.ErrNotFound
	}
	return p, err
}

// ProductNumTaken reports whether num belongs to a product other than excludeID.
func (r *ProductRepo) ProductNumTaken(num string, excludeID int64) (bool, error) {
	return productNumTaken(r.db, num, excludeID)
}

// binder is satisfied by both *sqlx.DB and *sqlx.Tx.
type binder interface {
	sqlx.Queryer
	Rebind(string) string
}

func productNumTaken(q binder, num string, excludeID int64) (bool, error) {
	var n int
	err := sqlx.Get(q, &n, q.Rebind(`SELECT COUNT(*) FROM products WHERE product_num = ? AND id <> ?`), num, excludeID)
	return n > 0, err
}

// Insert stores a new product and its owner link in one transaction and
// returns the assigned id.
func (r *ProductRepo) Insert(p domain.Product, ownerID string) (int64, error) {
	tx, err := r.db.Beginx()
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	taken, err := productNumTaken(tx, p.ProductNum, 0)
	if err != nil {
		return 0, err
	}
	if taken {
		return 0, domain.ErrDuplicateIdentifier
	}

	var id int64
	err = tx.Get(&id, tx.Rebind(`
  INSERT INTO products(product_num, name, brand, category_code, size, color, price, discount_rate,
                       stock, sold_quantity, defective_stock, description, image_url, version, created_at, updated_at)
  VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,1,?,?)
  RETURNING id
`), p.ProductNum, p.Name, p.Brand, p.CategoryCode, p.Size, p.Color, p.Price.String(), p.DiscountRate,
		p.Stock, p.SoldQuantity, p.DefectiveStock, p.Description, p.ImageURL, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, domain.ErrDuplicateIdentifier
		}
		return 0, err
	}
	if ownerID != "" {
		if _, err := tx.Exec(tx.Rebind(`
  INSERT INTO member_products(member_id, product_id, created_at) VALUES (?,?,?)
`), ownerID, id, p.CreatedAt); err != nil {
			return 0, err
		}
	}
	return id, tx.Commit()
}

// SetCounter writes one counter if the row still carries version. A lost race
// gives domain.ErrConflict; a vanished row gives domain.ErrNotFound.
func (r *ProductRepo) SetCounter(id int64, counter domain.Counter, value, version int64, at time.Time) error {
	col := "stock"
	if counter == domain.CounterSoldQuantity {
		col = "sold_quantity"
	}
	res, err := r.db.Exec(r.db.Rebind(fmt.Sprintf(`
  UPDATE products SET %s = ?, version = version + 1, updated_at = ?
  WHERE id = ? AND version = ?
`, col)), value, domain.Timestamp(at), id, version)
	if err != nil {
		return err
	}
	return r.checkApplied(res, id)
}

// Update rewrites every mutable column of p if the row still carries
// p.Version. The product number collision check runs inside the same
// transaction as the write.
func (r *ProductRepo) Update(p domain.Product) error {
	tx, err := r.db.Beginx()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	taken, err := productNumTaken(tx, p.ProductNum, p.ID)
	if err != nil {
		return err
	}
	if taken {
		return domain.ErrDuplicateIdentifier
	}

	res, err := tx.Exec(tx.Rebind(`
  UPDATE products SET
    product_num = ?, name = ?, brand = ?, category_code = ?, size = ?, color = ?,
    price = ?, discount_rate = ?, stock = ?, sold_quantity = ?, defective_stock = ?,
    description = ?, image_url = ?, updated_at = ?, version = version + 1
  WHERE id = ? AND version = ?
`), p.ProductNum, p.Name, p.Brand, p.CategoryCode, p.Size, p.Color,
		p.Price.String(), p.DiscountRate, p.Stock, p.SoldQuantity, p.DefectiveStock,
		p.Description, p.ImageURL, p.UpdatedAt, p.ID, p.Version)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicateIdentifier
		}
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		var exists int
		if err := tx.Get(&exists, tx.Rebind(`SELECT COUNT(*) FROM products WHERE id = ?`), p.ID); err != nil {
			return err
		}
		if exists == 0 {
			return domain.ErrNotFound
		}
		return domain.ErrConflict
	}
	return tx.Commit()
}

// Delete removes the product with its coupon and owner links.
func (r *ProductRepo) Delete(id int64) error {
	tx, err := r.db.Beginx()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(tx.Rebind(`DELETE FROM product_coupons WHERE product_id = ?`), id); err != nil {
		return err
	}
	if _, err := tx.Exec(tx.Rebind(`DELETE FROM member_products WHERE product_id = ?`), id); err != nil {
		return err
	}
	res, err := tx.Exec(tx.Rebind(`DELETE FROM products WHERE id = ?`), id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	return tx.Commit()
}

// IDsAfter pages through product ids in ascending order.
func (r *ProductRepo) IDsAfter(after int64, limit int) ([]int64, error) {
	var ids []int64
	err := r.db.Select(&ids, r.db.Rebind(`
  SELECT id FROM products WHERE id > ? ORDER BY id LIMIT ?
`), after, limit)
	return ids, err
}

// BestSellers pages products by sold quantity, highest first. Ties keep
// registration order.
func (r *ProductRepo) BestSellers(limit, offset int) ([]domain.Product, int, error) {
	var total int
	if err := r.db.Get(&total, `SELECT COUNT(*) FROM products`); err != nil {
		return nil, 0, err
	}
	var ps []domain.Product
	err := r.db.Select(&ps, r.db.Rebind(`
  SELECT `+productCols+`
  FROM products p
  LEFT JOIN categories c ON c.code = p.category_code
  ORDER BY p.sold_quantity DESC, p.id
  LIMIT ? OFFSET ?
`), limit, offset)
	return ps, total, err
}

// Brands pages the distinct brand names in ascending order.
func (r *ProductRepo) Brands(limit, offset int) ([]string, int, error) {
	var total int
	if err := r.db.Get(&total, `SELECT COUNT(DISTINCT brand) FROM products`); err != nil {
		return nil, 0, err
	}
	brands := []string{}
	err := r.db.Select(&brands, r.db.Rebind(`
  SELECT DISTINCT brand FROM products ORDER BY brand LIMIT ? OFFSET ?
`), limit, offset)
	return brands, total, err
}

func (r *ProductRepo) checkApplied(res sql.Result, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	var exists int
	if err := r.db.Get(&exists, r.db.Rebind(`SELECT COUNT(*) FROM products WHERE id = ?`), id); err != nil {
		return err
	}
	if exists == 0 {
		return domain.ErrNotFound
	}
	return domain.ErrConflict
}
