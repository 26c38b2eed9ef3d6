package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/printfarm-backend/api/controllers"
	ordercontrollers "github.com/angelmondragon/printfarm-backend/api/controllers/orders"
	"github.com/angelmondragon/printfarm-backend/api/middleware"
	"github.com/angelmondragon/printfarm-backend/internal/orders"
	"github.com/angelmondragon/printfarm-backend/pkg/config"
	"github.com/angelmondragon/printfarm-backend/pkg/db"
	"github.com/angelmondragon/printfarm-backend/pkg/logger"
	"github.com/angelmondragon/printfarm-backend/pkg/redis"
)

// RouterParams groups the services the HTTP surface dispatches to.
type RouterParams struct {
	DB      db.Pinger
	Redis   *redis.Client
	Orders  orders.Service
	Stock   controllers.StockReader
	Gateway controllers.StockGateway
	Catalog controllers.UnitWeightCorrector
	Depot   controllers.SpoolDepot
	Metrics http.Handler
}

func NewRouter(cfg *config.Config, logg *logger.Logger, params RouterParams) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.HTTP.CORSAllowedOrigins),
	)

	ready := map[string]controllers.Pinger{}
	if params.DB != nil {
		ready["db"] = params.DB
	}
	if params.Redis != nil {
		ready["redis"] = params.Redis
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, ready))
	})
	if params.Metrics != nil {
		r.Handle("/metrics", params.Metrics)
	}

	r.Route("/api/v1", func(r chi.Router) {
		if params.Redis != nil {
			r.Use(middleware.WriteRateLimit(middleware.WriteRateLimitPolicy{
				Window: cfg.HTTP.WriteRateWindow,
				Limit:  cfg.HTTP.WriteRateLimit,
			}, params.Redis, logg))
			r.Use(middleware.Idempotency(params.Redis, cfg.HTTP.IdempotencyTTL, logg))
		}

		r.Route("/orders", func(r chi.Router) {
			r.Post("/", ordercontrollers.Create(params.Orders, logg))
			r.Get("/{orderCode}", ordercontrollers.Detail(params.Orders, logg))
			r.Delete("/{orderCode}", ordercontrollers.Delete(params.Orders, logg))
			r.Post("/{orderCode}/lines/{lineId}/status", ordercontrollers.TransitionLine(params.Orders, logg))
		})

		r.Route("/products/{productId}", func(r chi.Router) {
			r.Get("/stock", controllers.ProductStock(params.Stock, logg))
			r.Post("/stock", controllers.ProductStockOperation(params.Gateway, logg))
			r.Patch("/unit-weight", controllers.ProductUnitWeight(params.Catalog, logg))
		})

		r.Route("/filaments", func(r chi.Router) {
			r.Get("/", controllers.FilamentList(params.Depot, logg))
			r.Post("/", controllers.FilamentRegister(params.Depot, logg))
			r.Get("/{filamentId}/usage", controllers.FilamentUsage(params.Depot, logg))
		})
	})

	return r
}
