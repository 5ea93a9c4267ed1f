// Package router wires each service binary: Handler ← Service ← Repository ←
// DB/Redis, plus the peer client for cross-service validation. One builder per
// service; they share the middleware chain but nothing else — each service
// owns its storage and talks to the others over HTTP only.
package router

import (
	"time"

	"github.com/ndevops25/e-commerce-microservices/internal/cache"
	"github.com/ndevops25/e-commerce-microservices/internal/config"
	"github.com/ndevops25/e-commerce-microservices/internal/handler"
	"github.com/ndevops25/e-commerce-microservices/internal/infra"
	"github.com/ndevops25/e-commerce-microservices/internal/middleware"
	"github.com/ndevops25/e-commerce-microservices/internal/peer"
	"github.com/ndevops25/e-commerce-microservices/internal/repository"
	"github.com/ndevops25/e-commerce-microservices/internal/service"
	"github.com/ndevops25/e-commerce-microservices/internal/worker"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// newEngine builds a Gin engine with the shared middleware chain.
// Order matters: request id first so every log line carries it.
func newEngine(cfg *config.Config) *gin.Engine {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.Recovery())
	r.Use(middleware.CORS())
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.RateLimiter(1000, time.Minute)) // 1000 req/min per IP
	return r
}

// breakerMap collects the named breakers of a peer client for health output.
func breakerMap(peers *peer.Client, services ...string) map[string]*infra.Breaker {
	m := make(map[string]*infra.Breaker, len(services))
	for _, s := range services {
		if b := peers.Breaker(s); b != nil {
			m[s] = b
		}
	}
	return m
}

// Categories builds the categories service engine. No peers: categories is
// the one service that references nothing outside itself.
func Categories(cfg *config.Config, db *gorm.DB) *gin.Engine {
	r := newEngine(cfg)

	repo := repository.NewCategoryRepository(db)
	svc := service.NewCategoryService(repo)
	h := handler.NewCategoriesHandler(svc)

	r.GET("/health", handler.Health(handler.HealthDeps{DB: db}))

	cats := r.Group("/categories")
	{
		cats.POST("", h.Create)
		cats.GET("", h.List)
		cats.GET("/hierarchy", h.Hierarchy)
		cats.GET("/slug/:slug", h.GetBySlug)
		cats.GET("/:id", h.Get)
		cats.GET("/:id/subtree", h.Subtree)
		cats.GET("/:id/attributes", h.Attributes)
		cats.PUT("/:id", h.Update)
		cats.PATCH("/:id/parent", h.SetParent)
		cats.DELETE("/:id", h.Deactivate)
	}
	return r
}

// Suppliers builds the suppliers service engine. Deliveries are accepted
// synchronously and propagated to the products service by the worker pool.
func Suppliers(cfg *config.Config, db *gorm.DB, rdb *redis.Client, peers *peer.Client) *gin.Engine {
	r := newEngine(cfg)

	repo := repository.NewSupplierRepository(db)
	dispatcher := worker.NewDispatcher(rdb)
	svc := service.NewSupplierService(repo, dispatcher)
	h := handler.NewSuppliersHandler(svc)

	r.GET("/health", handler.Health(handler.HealthDeps{
		DB:       db,
		Redis:    rdb,
		Breakers: breakerMap(peers, peer.ServiceProducts),
	}))

	sups := r.Group("/suppliers")
	{
		sups.POST("", h.Create)
		sups.GET("", h.List)
		sups.GET("/:id", h.Get)
		sups.PUT("/:id", h.Update)
		sups.PATCH("/:id/active", h.SetActive)

		sups.POST("/:id/contacts", h.AddContact)
		sups.GET("/:id/contacts", h.ListContacts)

		sups.POST("/:id/deliveries", h.RecordDelivery)
		sups.GET("/:id/deliveries", h.ListDeliveries)
		sups.GET("/:id/deliveries/:delivery_id", h.GetDelivery)
		sups.POST("/:id/deliveries/:delivery_id/retry", h.RetryDelivery)
	}
	return r
}

// Products builds the products service engine. Writes validate category and
// supplier references through the peer client before anything is stored.
func Products(cfg *config.Config, db *gorm.DB, peers *peer.Client) *gin.Engine {
	r := newEngine(cfg)

	repo := repository.NewProductRepository(db)
	svc := service.NewProductService(repo, peers)
	h := handler.NewProductsHandler(svc)

	r.GET("/health", handler.Health(handler.HealthDeps{
		DB:       db,
		Breakers: breakerMap(peers, peer.ServiceCategories, peer.ServiceSuppliers),
	}))

	prods := r.Group("/products")
	{
		prods.POST("", h.Create)
		prods.GET("", h.List)
		prods.GET("/category/:category_id", h.ListByCategory)
		prods.GET("/supplier/:supplier_id", h.ListBySupplier)
		prods.GET("/:id", h.Get)
		prods.PUT("/:id", h.Update)
		prods.PATCH("/:id/stock", h.ApplyStockDelta)
		prods.PATCH("/:id/price", h.ApplyPriceChange)
		prods.GET("/:id/price-history", h.PriceHistory)
	}
	return r
}

// Reviews builds the reviews service engine. Product references are verified
// on submit; listings are enriched from a bounded TTL cache that degrades to
// stale data during a catalog outage.
func Reviews(cfg *config.Config, db *gorm.DB, peers *peer.Client) *gin.Engine {
	r := newEngine(cfg)

	repo := repository.NewReviewRepository(db)
	productCache := cache.NewProductCache(peers, cfg.ProductCacheTTL(), cfg.ProductCacheEntries)
	svc := service.NewReviewService(repo, peers, productCache)
	h := handler.NewReviewsHandler(svc)

	r.GET("/health", handler.Health(handler.HealthDeps{
		DB:       db,
		Breakers: breakerMap(peers, peer.ServiceProducts),
	}))

	revs := r.Group("/reviews")
	{
		revs.POST("", h.Submit)
		revs.GET("/pending", h.ListPending)
		revs.GET("/products/:id", h.ListByProduct)
		revs.GET("/products/:id/summary", h.Summary)
		revs.GET("/:id", h.Get)
		revs.POST("/:id/approve", h.Approve)
		revs.POST("/:id/reject", h.Reject)
	}

	return r
}
