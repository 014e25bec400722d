package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/jmoiron/sqlx"

	"backoffice/internal/config"
	"backoffice/internal/domain"
	"backoffice/internal/metrics"
	"backoffice/internal/repos"
	"backoffice/internal/search"
	"backoffice/internal/services"
)

type Deps struct {
	Auth *services.AuthService
	Sync *services.IndexSynchronizer

	AuthHandler    *AuthHandler
	ProductHandler *ProductHandler
	CouponHandler  *CouponHandler
	SearchHandler  *SearchHandler
	IndexHandler   *IndexHandler
}

// NewDeps wires repositories and services over db and idx. m may be nil.
func NewDeps(db *sqlx.DB, idx search.Index, cfg config.IndexConfig, m *metrics.Metrics) *Deps {
	userRepo := repos.NewUserRepo(db)
	prodRepo := repos.NewProductRepo(db)
	catRepo := repos.NewCategoryRepo(db)
	couponRepo := repos.NewCouponRepo(db)
	ownerRepo := repos.NewMemberProductRepo(db)

	authSvc := &services.AuthService{Users: userRepo}
	syncer := &services.IndexSynchronizer{
		Index:    idx,
		Products: prodRepo,
		Coupons:  couponRepo,
		Metrics:  m,
		Timeout:  cfg.Timeout,
		Workers:  cfg.ResyncWorkers,
	}
	gate := services.NewOwnershipGate(ownerRepo)
	stockSvc := services.NewStockService(prodRepo, gate, syncer, m)
	prodSvc := services.NewProductService(prodRepo, catRepo, gate, syncer)
	couponSvc := services.NewCouponService(couponRepo, prodRepo, userRepo, syncer, m)

	return &Deps{
		Auth:           authSvc,
		Sync:           syncer,
		AuthHandler:    &AuthHandler{Auth: authSvc},
		ProductHandler: &ProductHandler{Products: prodSvc, Stock: stockSvc},
		CouponHandler:  &CouponHandler{Coupons: couponSvc},
		SearchHandler:  &SearchHandler{Products: prodSvc},
		IndexHandler:   &IndexHandler{Sync: syncer},
	}
}

// Routes mounts the /api/v1 surface on r.
func (d *Deps) Routes(r fiber.Router) {
	api := r.Group("/api/v1", ResolveActor(d.Auth))

	api.Post("/auth/login", d.AuthHandler.Login)
	api.Post("/auth/logout", d.AuthHandler.Logout)

	api.Get("/products/search", d.SearchHandler.Search)
	api.Get("/products/best-sellers", d.SearchHandler.BestSellers)
	api.Get("/products/brands", d.SearchHandler.Brands)

	api.Get("/coupons/best", RequireUser(), d.CouponHandler.Best)
	api.Post("/coupons/member-coupons/:id/use", RequireUser(), d.CouponHandler.Use)

	manage := api.Group("/manage")

	products := manage.Group("/products", RequireManager())
	products.Post("", d.ProductHandler.Register)
	products.Get("/:id", d.ProductHandler.Get)
	products.Patch("/:id", d.ProductHandler.Update)
	products.Delete("/:id", d.ProductHandler.Delete)
	products.Post("/:id/stock/increase", d.ProductHandler.Adjust(domain.CounterStock, domain.Increase))
	products.Post("/:id/stock/decrease", d.ProductHandler.Adjust(domain.CounterStock, domain.Decrease))
	products.Post("/:id/sold-quantity/increase", d.ProductHandler.Adjust(domain.CounterSoldQuantity, domain.Increase))
	products.Post("/:id/sold-quantity/decrease", d.ProductHandler.Adjust(domain.CounterSoldQuantity, domain.Decrease))

	coupons := manage.Group("/coupons", RequireCenter())
	coupons.Post("", d.CouponHandler.Create)
	coupons.Post("/:id/members", d.CouponHandler.AssignMember)
	coupons.Post("/:id/products", d.CouponHandler.AssignProduct)

	manage.Post("/index/resync", RequireCenter(), d.IndexHandler.Resync)
}
