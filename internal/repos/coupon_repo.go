package repos

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"backoffice/internal/domain"
)

type CouponRepo struct{ db *sqlx.DB }

func NewCouponRepo(db *sqlx.DB) *CouponRepo { return &CouponRepo{db: db} }

// couponRow mirrors the coupons table; dates are stored as RFC3339 text.
type couponRow struct {
	ID           int64  `db:"id"`
	Name         string `db:"name"`
	DiscountRate int    `db:"discount_rate"`
	StartDate    string `db:"start_date"`
	EndDate      string `db:"end_date"`
	AssignBy     string `db:"assign_by"`
	Target       string `db:"target"`
	Content      string `db:"content"`
}

func (row couponRow) coupon() (domain.Coupon, error) {
	start, err := domain.ParseTimestamp(row.StartDate)
	if err != nil {
		return domain.Coupon{}, fmt.Errorf("coupon %d start_date: %w", row.ID, err)
	}
	end, err := domain.ParseTimestamp(row.EndDate)
	if err != nil {
		return domain.Coupon{}, fmt.Errorf("coupon %d end_date: %w", row.ID, err)
	}
	return domain.Coupon{
		ID:           row.ID,
		Name:         row.Name,
		DiscountRate: row.DiscountRate,
		StartDate:    start,
		EndDate:      end,
		AssignBy:     row.AssignBy,
		Target:       row.Target,
		Content:      row.Content,
	}, nil
}

type assignmentRow struct {
	couponRow
	AssignmentID int64          `db:"assignment_id"`
	MemberID     string         `db:"member_id"`
	ProductID    int64          `db:"product_id"`
	IssuedAt     string         `db:"issued_at"`
	UsedAt       sql.NullString `db:"used_at"`
	Used         bool           `db:"is_used"`
}

func (row assignmentRow) assignment() (domain.Assignment, error) {
	c, err := row.coupon()
	if err != nil {
		return domain.Assignment{}, err
	}
	a := domain.Assignment{
		ID:        row.AssignmentID,
		Coupon:    c,
		MemberID:  row.MemberID,
		ProductID: row.ProductID,
		Used:      row.Used,
	}
	if t, err := domain.ParseTimestamp(row.IssuedAt); err == nil {
		a.IssuedAt = t
	}
	if row.UsedAt.Valid && row.UsedAt.String != "" {
		if t, err := domain.ParseTimestamp(row.UsedAt.String); err == nil {
			a.UsedAt = &t
		}
	}
	return a, nil
}

const couponCols = `c.id, c.name, c.discount_rate, c.start_date, c.end_date, c.assign_by, c.target, c.content`

func (r *CouponRepo) Create(nc domain.NewCoupon, at time.Time) (domain.Coupon, error) {
	var id int64
	err := r.db.Get(&id, r.db.Rebind(`
  INSERT INTO coupons(name, discount_rate, start_date, end_date, assign_by, target, content, created_at)
  VALUES (?,?,?,?,?,?,?,?)
  RETURNING id
`), nc.Name, nc.DiscountRate, domain.Timestamp(nc.StartDate), domain.Timestamp(nc.EndDate),
		nc.AssignBy, nc.Target, nc.Content, domain.Timestamp(at))
	if err != nil {
		return domain.Coupon{}, err
	}
	return r.Get(id)
}

func (r *CouponRepo) Get(id int64) (domain.Coupon, error) {
	var row couponRow
	err := r.db.Get(&row, r.db.Rebind(`SELECT `+couponCols+` FROM coupons c WHERE c.id = ?`), id)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Coupon{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Coupon{}, err
	}
	return row.coupon()
}

// AssignToMember issues coupon couponID to a member and returns the assignment id.
func (r *CouponRepo) AssignToMember(couponID int64, memberID string, at time.Time) (int64, error) {
	var id int64
	err := r.db.Get(&id, r.db.Rebind(`
  INSERT INTO member_coupons(coupon_id, member_id, issued_at, is_used)
  VALUES (?,?,?,?)
  RETURNING id
`), couponID, memberID, domain.Timestamp(at), false)
	return id, err
}

// AssignToProduct attaches coupon couponID to a product and returns the assignment id.
func (r *CouponRepo) AssignToProduct(couponID, productID int64, at time.Time) (int64, error) {
	var id int64
	err := r.db.Get(&id, r.db.Rebind(`
  INSERT INTO product_coupons(coupon_id, product_id, issued_at, is_used)
  VALUES (?,?,?,?)
  RETURNING id
`), couponID, productID, domain.Timestamp(at), false)
	return id, err
}

// UnusedForProduct lists product-level assignments not yet used, oldest first.
func (r *CouponRepo) UnusedForProduct(productID int64) ([]domain.Assignment, error) {
	var rows []assignmentRow
	err := r.db.Select(&rows, r.db.Rebind(`
  SELECT `+couponCols+`,
         pc.id AS assignment_id, '' AS member_id, pc.product_id,
         pc.issued_at, pc.used_at, pc.is_used
  FROM product_coupons pc
  JOIN coupons c ON c.id = pc.coupon_id
  WHERE pc.product_id = ? AND pc.is_used = ?
  ORDER BY pc.id
`), productID, false)
	if err != nil {
		return nil, err
	}
	return toAssignments(rows)
}

// UnusedForMember lists member-held assignments not yet used, oldest first.
func (r *CouponRepo) UnusedForMember(memberID string) ([]domain.Assignment, error) {
	var rows []assignmentRow
	err := r.db.Select(&rows, r.db.Rebind(`
  SELECT `+couponCols+`,
         mc.id AS assignment_id, mc.member_id, 0 AS product_id,
         mc.issued_at, mc.used_at, mc.is_used
  FROM member_coupons mc
  JOIN coupons c ON c.id = mc.coupon_id
  WHERE mc.member_id = ? AND mc.is_used = ?
  ORDER BY mc.id
`), memberID, false)
	if err != nil {
		return nil, err
	}
	return toAssignments(rows)
}

// MemberAssignment loads one member coupon assignment.
func (r *CouponRepo) MemberAssignment(id int64) (domain.Assignment, error) {
	var row assignmentRow
	err := r.db.Get(&row, r.db.Rebind(`
  SELECT `+couponCols+`,
         mc.id AS assignment_id, mc.member_id, 0 AS product_id,
         mc.issued_at, mc.used_at, mc.is_used
  FROM member_coupons mc
  JOIN coupons c ON c.id = mc.coupon_id
  WHERE mc.id = ?
`), id)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Assignment{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Assignment{}, err
	}
	return row.assignment()
}

// MarkMemberCouponUsed flips is_used once. A second call gives domain.ErrConflict.
func (r *CouponRepo) MarkMemberCouponUsed(id int64, at time.Time) error {
	res, err := r.db.Exec(r.db.Rebind(`
  UPDATE member_coupons SET is_used = ?, used_at = ?
  WHERE id = ? AND is_used = ?
`), true, domain.Timestamp(at), id, false)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrConflict
	}
	return nil
}

// ProductSummaries returns the unused product-level coupons of a product as
// they appear in its search document.
func (r *CouponRepo) ProductSummaries(productID int64) ([]domain.CouponSummary, error) {
	as, err := r.UnusedForProduct(productID)
	if err != nil {
		return nil, err
	}
	out := make([]domain.CouponSummary, 0, len(as))
	for _, a := range as {
		out = append(out, domain.CouponSummary{
			ID:           a.Coupon.ID,
			Name:         a.Coupon.Name,
			DiscountRate: a.Coupon.DiscountRate,
			StartDate:    a.Coupon.StartDate,
			EndDate:      a.Coupon.EndDate,
			AssignBy:     a.Coupon.AssignBy,
		})
	}
	return out, nil
}

func toAssignments(rows []assignmentRow) ([]domain.Assignment, error) {
	out := make([]domain.Assignment, 0, len(rows))
	for _, row := range rows {
		a, err := row.assignment()
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}
