package repos

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"golang.org/x/crypto/bcrypt"
	_ "modernc.org/sqlite"

	"backoffice/internal/domain"
)

// OpenDB connects, creates the schema and seeds baseline data (categories,
// users). Demo products and coupons are added when seedDemo is set.
func OpenDB(driver, dsn string, seedDemo bool) (*sqlx.DB, error) {
	if driver == "" {
		driver = "sqlite"
	}
	db, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, err
	}
	// each new connection to an in-memory sqlite database is a fresh, empty database
	if driver == "sqlite" && strings.Contains(dsn, ":memory:") {
		db.SetMaxOpenConns(1)
	}
	if err = db.Ping(); err != nil {
		return nil, err
	}

	if err := ensureSchema(db); err != nil {
		return nil, err
	}
	if err := seedBaseline(db); err != nil {
		return nil, err
	}
	if seedDemo {
		if err := seedDemoData(db); err != nil {
			return nil, err
		}
	}
	return db, nil
}

// isUniqueViolation recognises unique-constraint errors from both drivers.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func ensureSchema(db *sqlx.DB) error {
	schema := sqliteSchema
	if db.DriverName() == "postgres" {
		schema = postgresSchema
	}
	_, err := db.Exec(schema)
	return err
}

const sqliteSchema = `
PRAGMA foreign_keys = ON;

CREATE TABLE IF NOT EXISTS categories(
  code TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  created_at TEXT DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS products(
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  product_num TEXT NOT NULL,
  name TEXT NOT NULL,
  brand TEXT NOT NULL,
  category_code TEXT NOT NULL REFERENCES categories(code) ON DELETE RESTRICT,
  size TEXT NOT NULL DEFAULT '',
  color TEXT NOT NULL DEFAULT '',
  price NUMERIC NOT NULL CHECK (price >= 0),
  discount_rate INTEGER NOT NULL DEFAULT 0 CHECK (discount_rate BETWEEN 0 AND 100),
  stock INTEGER NOT NULL DEFAULT 0 CHECK (stock >= 0),
  sold_quantity INTEGER NOT NULL DEFAULT 0 CHECK (sold_quantity >= 0),
  defective_stock INTEGER NOT NULL DEFAULT 0,
  description TEXT NOT NULL DEFAULT '',
  image_url TEXT NOT NULL DEFAULT '',
  version INTEGER NOT NULL DEFAULT 1,
  created_at TEXT NOT NULL,
  updated_at TEXT NOT NULL DEFAULT ''
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_products_product_num ON products(product_num);
CREATE INDEX IF NOT EXISTS idx_products_name_brand ON products(name, brand);
CREATE INDEX IF NOT EXISTS idx_products_category ON products(category_code);

CREATE TABLE IF NOT EXISTS users(
  id TEXT PRIMARY KEY,
  email TEXT NOT NULL UNIQUE,
  name TEXT NOT NULL,
  password_hash TEXT NOT NULL,
  role TEXT NOT NULL CHECK (role IN ('USER','ADMIN','CENTER')),
  created_at TEXT DEFAULT CURRENT_TIMESTAMP,
  updated_at TEXT
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_users_email ON users(LOWER(email));

CREATE TABLE IF NOT EXISTS sessions(
  id TEXT PRIMARY KEY,               -- same value as the 'sid' cookie
  user_id TEXT NULL REFERENCES users(id) ON DELETE SET NULL,
  created_at TEXT DEFAULT CURRENT_TIMESTAMP,
  last_seen  TEXT
);
CREATE INDEX IF NOT EXISTS idx_sessions_user ON sessions(user_id);

-- one owner per product
CREATE TABLE IF NOT EXISTS member_products(
  member_id  TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
  product_id INTEGER NOT NULL UNIQUE REFERENCES products(id) ON DELETE CASCADE,
  created_at TEXT,
  PRIMARY KEY (member_id, product_id)
);

CREATE TABLE IF NOT EXISTS coupons(
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  name TEXT NOT NULL,
  discount_rate INTEGER NOT NULL CHECK (discount_rate BETWEEN 0 AND 100),
  start_date TEXT NOT NULL,
  end_date TEXT NOT NULL,
  assign_by TEXT NOT NULL CHECK (assign_by IN ('ALL','GRADE','CATEGORY','BRAND','PRODUCT')),
  target TEXT NOT NULL DEFAULT '',
  content TEXT NOT NULL DEFAULT '',
  created_at TEXT
);

CREATE TABLE IF NOT EXISTS member_coupons(
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  coupon_id INTEGER NOT NULL REFERENCES coupons(id) ON DELETE CASCADE,
  member_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
  issued_at TEXT NOT NULL,
  used_at TEXT,
  is_used INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_member_coupons_member ON member_coupons(member_id);

CREATE TABLE IF NOT EXISTS product_coupons(
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  coupon_id INTEGER NOT NULL REFERENCES coupons(id) ON DELETE CASCADE,
  product_id INTEGER NOT NULL REFERENCES products(id) ON DELETE CASCADE,
  issued_at TEXT NOT NULL,
  used_at TEXT,
  is_used INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_product_coupons_product ON product_coupons(product_id);
`

const postgresSchema = `
CREATE TABLE IF NOT EXISTS categories(
  code TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  created_at TEXT DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS products(
  id BIGSERIAL PRIMARY KEY,
  product_num TEXT NOT NULL,
  name TEXT NOT NULL,
  brand TEXT NOT NULL,
  category_code TEXT NOT NULL REFERENCES categories(code) ON DELETE RESTRICT,
  size TEXT NOT NULL DEFAULT '',
  color TEXT NOT NULL DEFAULT '',
  price NUMERIC(14,2) NOT NULL CHECK (price >= 0),
  discount_rate INTEGER NOT NULL DEFAULT 0 CHECK (discount_rate BETWEEN 0 AND 100),
  stock BIGINT NOT NULL DEFAULT 0 CHECK (stock >= 0),
  sold_quantity BIGINT NOT NULL DEFAULT 0 CHECK (sold_quantity >= 0),
  defective_stock BIGINT NOT NULL DEFAULT 0,
  description TEXT NOT NULL DEFAULT '',
  image_url TEXT NOT NULL DEFAULT '',
  version BIGINT NOT NULL DEFAULT 1,
  created_at TEXT NOT NULL,
  updated_at TEXT NOT NULL DEFAULT ''
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_products_product_num ON products(product_num);
CREATE INDEX IF NOT EXISTS idx_products_name_brand ON products(name, brand);
CREATE INDEX IF NOT EXISTS idx_products_category ON products(category_code);

CREATE TABLE IF NOT EXISTS users(
  id TEXT PRIMARY KEY,
  email TEXT NOT NULL UNIQUE,
  name TEXT NOT NULL,
  password_hash TEXT NOT NULL,
  role TEXT NOT NULL CHECK (role IN ('USER','ADMIN','CENTER')),
  created_at TEXT DEFAULT CURRENT_TIMESTAMP,
  updated_at TEXT
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_users_email ON users(LOWER(email));

CREATE TABLE IF NOT EXISTS sessions(
  id TEXT PRIMARY KEY,
  user_id TEXT NULL REFERENCES users(id) ON DELETE SET NULL,
  created_at TEXT DEFAULT CURRENT_TIMESTAMP,
  last_seen  TEXT
);
CREATE INDEX IF NOT EXISTS idx_sessions_user ON sessions(user_id);

CREATE TABLE IF NOT EXISTS member_products(
  member_id  TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
  product_id BIGINT NOT NULL UNIQUE REFERENCES products(id) ON DELETE CASCADE,
  created_at TEXT,
  PRIMARY KEY (member_id, product_id)
);

CREATE TABLE IF NOT EXISTS coupons(
  id BIGSERIAL PRIMARY KEY,
  name TEXT NOT NULL,
  discount_rate INTEGER NOT NULL CHECK (discount_rate BETWEEN 0 AND 100),
  start_date TEXT NOT NULL,
  end_date TEXT NOT NULL,
  assign_by TEXT NOT NULL CHECK (assign_by IN ('ALL','GRADE','CATEGORY','BRAND','PRODUCT')),
  target TEXT NOT NULL DEFAULT '',
  content TEXT NOT NULL DEFAULT '',
  created_at TEXT
);

CREATE TABLE IF NOT EXISTS member_coupons(
  id BIGSERIAL PRIMARY KEY,
  coupon_id BIGINT NOT NULL REFERENCES coupons(id) ON DELETE CASCADE,
  member_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
  issued_at TEXT NOT NULL,
  used_at TEXT,
  is_used BOOLEAN NOT NULL DEFAULT FALSE
);
CREATE INDEX IF NOT EXISTS idx_member_coupons_member ON member_coupons(member_id);

CREATE TABLE IF NOT EXISTS product_coupons(
  id BIGSERIAL PRIMARY KEY,
  coupon_id BIGINT NOT NULL REFERENCES coupons(id) ON DELETE CASCADE,
  product_id BIGINT NOT NULL REFERENCES products(id) ON DELETE CASCADE,
  issued_at TEXT NOT NULL,
  used_at TEXT,
  is_used BOOLEAN NOT NULL DEFAULT FALSE
);
CREATE INDEX IF NOT EXISTS idx_product_coupons_product ON product_coupons(product_id);
`

// seedBaseline ensures the category tree and the demo accounts exist (idempotent).
func seedBaseline(db *sqlx.DB) error {
	tx, err := db.Beginx()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	cats := []domain.Category{
		{Code: "01", Name: "Shoes"},
		{Code: "0101", Name: "Running Shoes"},
		{Code: "0102", Name: "Sneakers"},
		{Code: "02", Name: "Outerwear"},
		{Code: "0201", Name: "Jackets"},
	}
	for _, c := range cats {
		if _, err := tx.Exec(tx.Rebind(`
			INSERT INTO categories(code, name) VALUES(?, ?)
			ON CONFLICT(code) DO NOTHING
		`), c.Code, c.Name); err != nil {
			return err
		}
	}

	type u struct {
		ID, Email, Name, Role string
	}
	users := []u{
		{"u-center", "center@backoffice.test", "Center", domain.RoleCenter},
		{"u-seller-a", "seller.a@backoffice.test", "Seller A", domain.RoleSeller},
		{"u-seller-b", "seller.b@backoffice.test", "Seller B", domain.RoleSeller},
		{"u-alice", "alice@backoffice.test", "Alice", domain.RoleUser},
		{"u-bob", "bob@backoffice.test", "Bob", domain.RoleUser},
	}
	var n int
	if err := tx.Get(&n, `SELECT COUNT(*) FROM users`); err != nil {
		return err
	}
	if n == 0 {
		h, err := bcrypt.GenerateFromPassword([]byte("Passw0rd!"), bcrypt.DefaultCost)
		if err != nil {
			return err
		}
		for _, x := range users {
			if _, err := tx.Exec(tx.Rebind(`
				INSERT INTO users(id,email,name,password_hash,role)
				VALUES(?,?,?,?,?)
				ON CONFLICT(email) DO NOTHING
			`), x.ID, x.Email, x.Name, string(h), x.Role); err != nil {
				return err
			}
		}
	}
	return tx.Commit()
}

// seedDemoData adds two products with owners and a couple of coupons.
// Safe to run on every startup (idempotent).
func seedDemoData(db *sqlx.DB) error {
	tx, err := db.Beginx()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	now := domain.Timestamp(time.Now())
	products := []struct {
		num, name, brand, cat, owner, price string
		stock, sold                         int64
	}{
		{"240101120000SA0101", "Air Runner", "Stride", "0101", "u-seller-a", "100", 10, 3},
		{"240102093000NT0201", "Trail Jacket", "Northline", "0201", "u-seller-b", "250", 5, 0},
	}
	for _, p := range products {
		if _, err := tx.Exec(tx.Rebind(`
			INSERT INTO products(product_num, name, brand, category_code, price, stock, sold_quantity, created_at, updated_at)
			SELECT ?, ?, ?, ?, ?, ?, ?, ?, ?
			WHERE NOT EXISTS (SELECT 1 FROM products WHERE product_num = ?)
		`), p.num, p.name, p.brand, p.cat, p.price, p.stock, p.sold, now, now, p.num); err != nil {
			return fmt.Errorf("seed product %s: %w", p.num, err)
		}
		if _, err := tx.Exec(tx.Rebind(`
			INSERT INTO member_products(member_id, product_id, created_at)
			SELECT ?, id, ? FROM products WHERE product_num = ?
			ON CONFLICT DO NOTHING
		`), p.owner, now, p.num); err != nil {
			return fmt.Errorf("seed owner %s: %w", p.num, err)
		}
	}

	var n int
	if err := tx.Get(&n, `SELECT COUNT(*) FROM coupons`); err != nil {
		return err
	}
	if n == 0 {
		log.Println("[seed] inserting demo coupons")
		start := domain.Timestamp(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
		end := domain.Timestamp(time.Date(2099, 12, 31, 23, 59, 59, 0, time.UTC))
		tx.MustExec(tx.Rebind(`INSERT INTO coupons(name, discount_rate, start_date, end_date, assign_by, target, content, created_at)
			VALUES (?, 10, ?, ?, 'ALL', '', 'welcome coupon', ?), (?, 20, ?, ?, 'CATEGORY', '01', 'shoes week', ?)`),
			"Welcome 10", start, end, now, "Shoes 20", start, end, now)
		tx.MustExec(tx.Rebind(`INSERT INTO member_coupons(coupon_id, member_id, issued_at, is_used)
			SELECT id, 'u-alice', ?, ? FROM coupons WHERE name = 'Welcome 10'`), now, false)
		tx.MustExec(tx.Rebind(`INSERT INTO product_coupons(coupon_id, product_id, issued_at, is_used)
			SELECT c.id, p.id, ?, ? FROM coupons c, products p WHERE c.name = 'Shoes 20' AND p.product_num = '240101120000SA0101'`), now, false)
	}
	return tx.Commit()
}
