package http

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

type RouterConfig struct {
	JWTSecret          []byte
	RequestTimeout     time.Duration
	MaxRequestBodySize int64
}

// HealthCheck reports whether the backing store is reachable.
type HealthCheck func(ctx context.Context) error

func NewRouter(
	cfg RouterConfig,
	base zerolog.Logger,
	carts CartService,
	products ProductService,
	health HealthCheck,
) http.Handler {
	cartHandler := NewCartHandler(carts)
	productHandler := NewProductHandler(products)

	r := chi.NewRouter()

	r.Use(middleware.RealIP)
	r.Use(RequestIDMiddleware(base))
	r.Use(AccessLog)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(cfg.RequestTimeout))
	r.Use(middleware.RequestSize(cfg.MaxRequestBodySize))
	r.Use(middleware.Compress(5))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		if err := health(r.Context()); err != nil {
			respondJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Get("/products/{id}", productHandler.Get)

	r.Group(func(r chi.Router) {
		r.Use(Authenticate(cfg.JWTSecret))

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", cartHandler.GetCart)
			r.Put("/", cartHandler.UpdateQuantity)
			r.Delete("/", cartHandler.ClearCart)
			r.Post("/add", cartHandler.AddItem)
			r.Delete("/product", cartHandler.RemoveItem)
		})

		r.Get("/products", productHandler.List)

		r.Group(func(r chi.Router) {
			r.Use(RequireAdmin)
			r.Post("/products", productHandler.Create)
			r.Put("/products/{id}", productHandler.Update)
			r.Delete("/products/{id}", productHandler.Delete)
		})
	})

	return r
}
