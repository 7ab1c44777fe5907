package http

import (
	"context"
	"net/http"
	"time"

	"github.com/fjod/go_storefront/internal/storefront"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// HealthCheck reports a dependency failure; nil means healthy.
type HealthCheck func(ctx context.Context) error

type RouterOptions struct {
	RequestTimeout     time.Duration
	MaxRequestBodySize int64
	SecureCookie       bool
	// Checks are run by /health, keyed by dependency name.
	Checks map[string]HealthCheck
}

func NewRouter(svc *storefront.Service, opts RouterOptions) http.Handler {
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 30 * time.Second
	}
	if opts.MaxRequestBodySize <= 0 {
		opts.MaxRequestBodySize = 1 << 20 // 1MB
	}

	confirmTimeout := opts.RequestTimeout + svc.SuccessDelay()

	products := NewProductHandler(svc.Catalog(), opts.RequestTimeout)
	carts := NewCartHandler(svc, opts.RequestTimeout)
	wishlists := NewWishlistHandler(svc, opts.RequestTimeout)
	checkouts := NewCheckoutHandler(svc, opts.RequestTimeout)
	payments := NewPaymentHandler(svc, opts.RequestTimeout, confirmTimeout)
	orders := NewOrdersHandler(svc, opts.RequestTimeout)

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	r.Use(MaxBodyMiddleware(opts.MaxRequestBodySize))

	r.With(middleware.Timeout(opts.RequestTimeout)).Get("/health", healthHandler(opts.Checks))

	r.Route("/api/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(opts.RequestTimeout))
			r.Get("/products", products.List)
			r.Get("/products/{id}", products.Get)
			r.Get("/categories", products.Categories)
		})

		r.Group(func(r chi.Router) {
			r.Use(SessionMiddleware(opts.SecureCookie))

			// confirm waits out the success delay
			r.With(middleware.Timeout(confirmTimeout)).Post("/payment/{provider}/confirm", payments.Confirm)

			r.Group(func(r chi.Router) {
				r.Use(middleware.Timeout(opts.RequestTimeout))

				r.Route("/cart", func(r chi.Router) {
					r.Get("/", carts.GetCart)
					r.Delete("/", carts.ClearCart)
					r.Post("/items", carts.AddItem)
					r.Put("/items/{product_id}", carts.UpdateQuantity)
					r.Delete("/items/{product_id}", carts.RemoveItem)
				})

				r.Route("/wishlist", func(r chi.Router) {
					r.Get("/", wishlists.Get)
					r.Delete("/", wishlists.Clear)
					r.Post("/items", wishlists.Add)
					r.Post("/items/{product_id}/toggle", wishlists.Toggle)
					r.Delete("/items/{product_id}", wishlists.Remove)
					r.Post("/items/{product_id}/move-to-cart", wishlists.MoveToCart)
				})

				r.Post("/checkout", checkouts.Submit)
				r.Get("/checkout/draft", checkouts.GetDraft)

				r.Get("/payment/{provider}", payments.Prepare)
				r.Get("/payment/{provider}/status", payments.Status)

				r.Get("/confirmation", orders.Confirmation)
				r.Get("/orders", orders.List)
				r.Get("/orders/{number}", orders.Get)
			})
		})
	})

	return otelhttp.NewHandler(r, "storefront",
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return r.Method + " " + r.URL.Path
		}))
}

func healthHandler(checks map[string]HealthCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		status := http.StatusOK
		body := map[string]string{"status": "ok"}
		for name, check := range checks {
			if err := check(ctx); err != nil {
				status = http.StatusServiceUnavailable
				body["status"] = "degraded"
				body[name] = err.Error()
			} else {
				body[name] = "ok"
			}
		}
		respondJSON(w, status, body)
	}
}
