package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hatbazar/marketplace-backend/api/controllers"
	ordercontrollers "github.com/hatbazar/marketplace-backend/api/controllers/orders"
	paymentcontrollers "github.com/hatbazar/marketplace-backend/api/controllers/payments"
	vendorcontrollers "github.com/hatbazar/marketplace-backend/api/controllers/vendor"
	"github.com/hatbazar/marketplace-backend/api/middleware"
	"github.com/hatbazar/marketplace-backend/internal/orders"
	"github.com/hatbazar/marketplace-backend/internal/payments"
	"github.com/hatbazar/marketplace-backend/internal/payouts"
	"github.com/hatbazar/marketplace-backend/pkg/config"
	"github.com/hatbazar/marketplace-backend/pkg/enums"
	"github.com/hatbazar/marketplace-backend/pkg/logger"
	pkgredis "github.com/hatbazar/marketplace-backend/pkg/redis"
)

// Deps carries everything the router wires into handlers.
type Deps struct {
	Config   *config.Config
	Logger   *logger.Logger
	Redis    *pkgredis.Client
	Pingers  map[string]controllers.Pinger
	Orders   orders.Service
	Payments payments.Service
	Payouts  payouts.Service
	Gatherer prometheus.Gatherer
}

func NewRouter(deps Deps) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps.Pingers))
	})

	if deps.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics",
			promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Get("/api/public/ping", controllers.PublicPing())

	var idempotencyStore pkgredis.IdempotencyStore
	if deps.Redis != nil {
		idempotencyStore = deps.Redis
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.Idempotency(idempotencyStore, logg))

		r.Route("/orders", func(r chi.Router) {
			r.Post("/", ordercontrollers.Create(deps.Orders, logg))
			r.Get("/", ordercontrollers.List(deps.Orders, logg))
			r.Get("/{orderId}", ordercontrollers.Detail(deps.Orders, logg))
			r.Post("/{orderId}/cancel", ordercontrollers.Cancel(deps.Orders, logg))
			r.Post("/{orderId}/return", ordercontrollers.Return(deps.Orders, logg))
		})

		r.Route("/payments", func(r chi.Router) {
			r.Post("/{orderId}/initiate", paymentcontrollers.Initiate(deps.Payments, logg))
			r.Post("/{orderId}/verify", paymentcontrollers.Verify(deps.Payments, logg))
		})

		r.Route("/vendor", func(r chi.Router) {
			r.Use(middleware.RequireRole(enums.MemberRoleVendor.String(), logg))
			r.Get("/orders", vendorcontrollers.Orders(deps.Orders, logg))
			r.Post("/orders/{orderId}/advance", vendorcontrollers.AdvanceOrder(deps.Orders, logg))
			r.Get("/balance", vendorcontrollers.Balance(deps.Payouts, logg))
			r.Route("/payouts", func(r chi.Router) {
				r.Post("/", vendorcontrollers.RequestPayout(deps.Payouts, logg))
				r.Get("/", vendorcontrollers.ListPayouts(deps.Payouts, logg))
			})
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.RequireRole(enums.MemberRoleAdmin.String(), logg))
			r.Route("/payouts", func(r chi.Router) {
				r.Get("/", controllers.AdminPendingPayouts(deps.Payouts, logg))
				r.Post("/{payoutId}/resolve", controllers.AdminResolvePayout(deps.Payouts, logg))
			})
		})
	})

	return r
}
