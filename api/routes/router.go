package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/lmarchetti/stagepass-backend/api/controllers"
	webhookcontrollers "github.com/lmarchetti/stagepass-backend/api/controllers/webhooks"
	"github.com/lmarchetti/stagepass-backend/api/middleware"
	"github.com/lmarchetti/stagepass-backend/internal/artists"
	"github.com/lmarchetti/stagepass-backend/internal/auth"
	"github.com/lmarchetti/stagepass-backend/internal/bookings"
	"github.com/lmarchetti/stagepass-backend/internal/events"
	"github.com/lmarchetti/stagepass-backend/internal/inventory"
	"github.com/lmarchetti/stagepass-backend/internal/payments"
	"github.com/lmarchetti/stagepass-backend/internal/venues"
	"github.com/lmarchetti/stagepass-backend/pkg/config"
	"github.com/lmarchetti/stagepass-backend/pkg/db"
	"github.com/lmarchetti/stagepass-backend/pkg/enums"
	"github.com/lmarchetti/stagepass-backend/pkg/logger"
	"github.com/lmarchetti/stagepass-backend/pkg/metrics"
	pkgredis "github.com/lmarchetti/stagepass-backend/pkg/redis"
)

// RouterParams bundles everything the HTTP surface needs.
type RouterParams struct {
	Config      *config.Config
	Logger      *logger.Logger
	DBPing      db.Pinger
	Redis       *pkgredis.Client
	HTTPMetrics *metrics.HTTPMetrics
	Registry    *prometheus.Registry
	AuthService auth.Service
	Register    auth.RegisterService
	Artists     artists.Service
	Venues      venues.Service
	Events      events.Service
	Inventory   inventory.Service
	Bookings    bookings.Service
	Payments    payments.Service
}

func NewRouter(p RouterParams) http.Handler {
	cfg := p.Config
	logg := p.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.CORS(),
		middleware.Logging(logg),
		middleware.Metrics(p.HTTPMetrics),
	)

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginEmailLimit,
	)
	registerPolicy := middleware.NewAuthRateLimitPolicy(
		"register",
		cfg.AuthRateLimit.RegisterWindow,
		cfg.AuthRateLimit.RegisterIPLimit,
		cfg.AuthRateLimit.RegisterEmailLimit,
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, p.DBPing, p.Redis, logg))
	})

	if p.Registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(p.Registry, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.With(middleware.AuthRateLimit(loginPolicy, p.Redis, logg)).Post("/login", controllers.AuthLogin(p.AuthService, logg))
		r.With(middleware.AuthRateLimit(registerPolicy, p.Redis, logg)).Post("/register", controllers.AuthRegister(p.Register, logg))
	})

	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.Post("/payments", webhookcontrollers.PaymentWebhook(p.Payments, cfg.PaymentWebhook.Secret, logg))
	})

	// Browsing the catalog needs no account.
	r.Route("/api/v1/events", func(r chi.Router) {
		r.Get("/", controllers.EventListPublished(p.Events, logg))
		r.Get("/{eventID}", controllers.EventGet(p.Events, logg))
		r.Get("/{eventID}/availability", controllers.EventAvailability(p.Inventory, logg))
	})
	r.Get("/api/v1/artists", controllers.ArtistList(p.Artists, logg))
	r.Get("/api/v1/artists/{artistID}", controllers.ArtistGet(p.Artists, logg))
	r.Get("/api/v1/venues", controllers.VenueList(p.Venues, logg))
	r.Get("/api/v1/venues/{venueID}", controllers.VenueGet(p.Venues, logg))

	r.Route("/api/v1/bookings", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.Idempotency(p.Redis, cfg.Booking.IdempotencyTTL, logg))

		r.Post("/", controllers.BookingCreate(p.Bookings, logg))
		r.Get("/", controllers.BookingList(p.Bookings, logg))
		r.Get("/{bookingID}", controllers.BookingGet(p.Bookings, logg))
		r.Get("/{bookingID}/receipt", controllers.BookingReceipt(p.Bookings, logg))
		r.Post("/{bookingID}/cancel", controllers.BookingCancel(p.Bookings, logg))
	})

	// Catalog mutations are reserved for organizers and admins.
	r.Group(func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.RequireRoles(logg,
			string(enums.UserRoleOrganizer),
			string(enums.UserRoleAdmin),
		))

		r.Post("/api/v1/artists", controllers.ArtistCreate(p.Artists, logg))
		r.Patch("/api/v1/artists/{artistID}", controllers.ArtistUpdate(p.Artists, logg))
		r.Post("/api/v1/venues", controllers.VenueCreate(p.Venues, logg))
		r.Patch("/api/v1/venues/{venueID}", controllers.VenueUpdate(p.Venues, logg))

		r.Route("/api/v1/organizer/events", func(r chi.Router) {
			r.Post("/", controllers.EventCreate(p.Events, logg))
			r.Get("/", controllers.EventListMine(p.Events, logg))
			r.Patch("/{eventID}", controllers.EventUpdate(p.Events, logg))
			r.Post("/{eventID}/publish", controllers.EventPublish(p.Events, logg))
			r.Post("/{eventID}/cancel", controllers.EventCancel(p.Events, logg))
			r.Post("/{eventID}/complete", controllers.EventComplete(p.Events, logg))
		})
	})

	// Support surface: payment corrections and venue removal stay admin-only.
	r.Group(func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.RequireRoles(logg, string(enums.UserRoleAdmin)))

		r.Post("/api/admin/v1/bookings/{bookingID}/payment-status", controllers.AdminBookingPaymentStatus(p.Payments, logg))
		r.Delete("/api/admin/v1/venues/{venueID}", controllers.VenueDelete(p.Venues, logg))
	})

	return r
}
