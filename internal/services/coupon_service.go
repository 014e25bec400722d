package services

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"backoffice/internal/domain"
	applog "backoffice/internal/log"
	"backoffice/internal/metrics"
	"backoffice/internal/repos"
)

type CouponService struct {
	Coupons  *repos.CouponRepo
	Products *repos.ProductRepo
	Users    *repos.UserRepo
	Sync     *IndexSynchronizer
	Metrics  *metrics.Metrics
	Now      func() time.Time
}

func NewCouponService(coupons *repos.CouponRepo, products *repos.ProductRepo, users *repos.UserRepo, sync *IndexSynchronizer, m *metrics.Metrics) *CouponService {
	return &CouponService{Coupons: coupons, Products: products, Users: users, Sync: sync, Metrics: m, Now: time.Now}
}

// SelectBestCoupon picks the coupon with the largest discount on the
// product's current price among the product's own unused coupons and the
// member's unused coupons that apply to it. found is false when nothing is
// eligible.
func (s *CouponService) SelectBestCoupon(_ context.Context, memberID string, productID int64) (resp domain.CouponResponse, found bool, err error) {
	defer func() {
		switch {
		case err != nil:
			s.Metrics.Coupon("error")
		case found:
			s.Metrics.Coupon("selected")
		default:
			s.Metrics.Coupon("none")
		}
	}()

	p, err := s.Products.Get(productID)
	if err != nil {
		return resp, false, err
	}
	candidates, err := s.Coupons.UnusedForProduct(productID)
	if err != nil {
		return resp, false, err
	}
	if memberID != "" {
		held, err := s.Coupons.UnusedForMember(memberID)
		if err != nil {
			return resp, false, err
		}
		for _, a := range held {
			if a.Coupon.AppliesTo(p) {
				candidates = append(candidates, a)
			}
		}
	}

	now := s.Now()
	seen := map[int64]bool{}
	var best domain.Coupon
	var bestAmount decimal.Decimal
	for _, a := range candidates {
		c := a.Coupon
		if a.Used || seen[c.ID] || !c.Active(now) {
			continue
		}
		seen[c.ID] = true
		amount := c.DiscountOn(p.Price)
		if !found || better(c, amount, best, bestAmount) {
			best, bestAmount, found = c, amount, true
		}
	}
	if !found {
		return resp, false, nil
	}
	return domain.CouponResponse{
		ID:             best.ID,
		Name:           best.Name,
		DiscountRate:   best.DiscountRate,
		StartDate:      best.StartDate,
		EndDate:        best.EndDate,
		AssignBy:       best.AssignBy,
		DiscountAmount: bestAmount,
	}, true, nil
}

// better orders candidates: larger amount, then later end date, then lower id.
func better(c domain.Coupon, amount decimal.Decimal, best domain.Coupon, bestAmount decimal.Decimal) bool {
	if cmp := amount.Cmp(bestAmount); cmp != 0 {
		return cmp > 0
	}
	if !c.EndDate.Equal(best.EndDate) {
		return c.EndDate.After(best.EndDate)
	}
	return c.ID < best.ID
}

// Create issues a new coupon definition. Operators only.
func (s *CouponService) Create(_ context.Context, actor domain.Actor, nc domain.NewCoupon) (domain.Coupon, error) {
	if !actor.Elevated() {
		return domain.Coupon{}, domain.ErrForbidden
	}
	nc.Name = strings.TrimSpace(nc.Name)
	nc.AssignBy = strings.ToUpper(strings.TrimSpace(nc.AssignBy))
	nc.Target = strings.TrimSpace(nc.Target)
	switch {
	case nc.Name == "":
		return domain.Coupon{}, domain.NewInvalidArgumentError("name", "required", nc.Name)
	case nc.DiscountRate < 1 || nc.DiscountRate > 100:
		return domain.Coupon{}, domain.NewInvalidArgumentError("discountRate", "must be between 1 and 100", nc.DiscountRate)
	case nc.StartDate.IsZero() || nc.EndDate.IsZero() || nc.EndDate.Before(nc.StartDate):
		return domain.Coupon{}, domain.NewInvalidArgumentError("endDate", "must not be before startDate", nc.EndDate)
	case !domain.ValidAssignBy(nc.AssignBy):
		return domain.Coupon{}, domain.NewInvalidArgumentError("assignBy", "unknown scope", nc.AssignBy)
	}
	if nc.Target == "" && (nc.AssignBy == domain.AssignCategory || nc.AssignBy == domain.AssignBrand || nc.AssignBy == domain.AssignProduct) {
		return domain.Coupon{}, domain.NewInvalidArgumentError("target", "required for "+nc.AssignBy, nc.Target)
	}
	c, err := s.Coupons.Create(nc, s.Now())
	if err != nil {
		return c, err
	}
	applog.Audit(nil, "coupon.create", map[string]any{"coupon_id": c.ID, "by": actor.MemberID})
	return c, nil
}

// AssignToMember issues a coupon to a member. Operators only.
func (s *CouponService) AssignToMember(_ context.Context, actor domain.Actor, couponID int64, memberID string) (int64, error) {
	if !actor.Elevated() {
		return 0, domain.ErrForbidden
	}
	if _, err := s.Coupons.Get(couponID); err != nil {
		return 0, err
	}
	if _, err := s.Users.ByID(memberID); err != nil {
		return 0, err
	}
	id, err := s.Coupons.AssignToMember(couponID, memberID, s.Now())
	if err != nil {
		return 0, err
	}
	applog.Audit(nil, "coupon.assign.member", map[string]any{"coupon_id": couponID, "member_id": memberID, "by": actor.MemberID})
	return id, nil
}

// AssignToProduct attaches a coupon to a product and refreshes the
// product's document, which lists its coupons. Operators only.
func (s *CouponService) AssignToProduct(ctx context.Context, actor domain.Actor, couponID, productID int64) (int64, error) {
	if !actor.Elevated() {
		return 0, domain.ErrForbidden
	}
	if _, err := s.Coupons.Get(couponID); err != nil {
		return 0, err
	}
	p, err := s.Products.Get(productID)
	if err != nil {
		return 0, err
	}
	id, err := s.Coupons.AssignToProduct(couponID, productID, s.Now())
	if err != nil {
		return 0, err
	}
	applog.Audit(nil, "coupon.assign.product", map[string]any{"coupon_id": couponID, "product_id": productID, "by": actor.MemberID})
	s.Sync.Sync(ctx, p)
	return id, nil
}

// Redeem marks a member coupon as used by its holder. Someone else's
// assignment is reported as not found.
func (s *CouponService) Redeem(_ context.Context, actor domain.Actor, assignmentID int64) (domain.Assignment, error) {
	a, err := s.Coupons.MemberAssignment(assignmentID)
	if err != nil {
		return a, err
	}
	if actor.MemberID == "" || a.MemberID != actor.MemberID {
		return domain.Assignment{}, domain.ErrNotFound
	}
	if a.Used {
		return a, domain.ErrConflict
	}
	now := s.Now()
	if !a.Coupon.Active(now) {
		return a, domain.NewInvalidArgumentError("coupon", "outside its validity window", a.Coupon.ID)
	}
	if err := s.Coupons.MarkMemberCouponUsed(assignmentID, now); err != nil {
		return a, err
	}
	return s.Coupons.MemberAssignment(assignmentID)
}
