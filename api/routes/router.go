package routes

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rushela/Smart-Waste-Management-System-sub000/api/controllers"
	"github.com/rushela/Smart-Waste-Management-System-sub000/api/middleware"
	collectionsvc "github.com/rushela/Smart-Waste-Management-System-sub000/internal/collections"
	invoicesvc "github.com/rushela/Smart-Waste-Management-System-sub000/internal/invoices"
	paymentsvc "github.com/rushela/Smart-Waste-Management-System-sub000/internal/payments"
	residentsvc "github.com/rushela/Smart-Waste-Management-System-sub000/internal/residents"
	"github.com/rushela/Smart-Waste-Management-System-sub000/pkg/config"
	"github.com/rushela/Smart-Waste-Management-System-sub000/pkg/db"
	"github.com/rushela/Smart-Waste-Management-System-sub000/pkg/enums"
	"github.com/rushela/Smart-Waste-Management-System-sub000/pkg/logger"
	"github.com/rushela/Smart-Waste-Management-System-sub000/pkg/redis"
)

const (
	chargeRateLimit  = 10
	chargeRateWindow = time.Minute
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	database *db.Client,
	redisClient *redis.Client,
	registry *prometheus.Registry,
	collectionService collectionsvc.Service,
	paymentService paymentsvc.Service,
	invoiceRepo invoicesvc.Repository,
	residentRepo residentsvc.Repository,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, database, redisClient))
	})

	if registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.Idempotency(redisClient, logg))

		r.Route("/payments", func(r chi.Router) {
			r.Group(func(r chi.Router) {
				r.Use(middleware.RateLimit(redisClient, logg, chargeRateLimit, chargeRateWindow))
				r.Post("/charge", controllers.ChargePayment(paymentService, logg))
			})
			r.Get("/", controllers.ListPayments(paymentService, logg))
			r.Get("/{paymentId}", controllers.GetPayment(paymentService, logg))
			r.Post("/{paymentId}/confirm", controllers.ConfirmPayment(paymentService, logg))
			r.Post("/{paymentId}/void", controllers.VoidPayment(paymentService, logg))
		})

		r.Route("/collections", func(r chi.Router) {
			r.Get("/", controllers.ListCollections(collectionService, logg))

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireRole(logg, string(enums.ActorRoleWorker), string(enums.ActorRoleAdmin)))
				r.Post("/", controllers.RecordCollection(collectionService, logg))
				r.Patch("/{eventId}", controllers.AmendCollection(collectionService, logg))
				r.Delete("/{eventId}", controllers.RetractCollection(collectionService, logg))
			})
		})

		r.Route("/invoices", func(r chi.Router) {
			r.Get("/", controllers.ListInvoices(invoiceRepo, logg))

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireRole(logg, string(enums.ActorRoleAdmin)))
				r.Post("/", controllers.CreateInvoice(invoiceRepo, residentRepo, logg))
			})
		})
	})

	return r
}
