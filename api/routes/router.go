package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/enrollment-backend/api/controllers"
	"github.com/angelmondragon/enrollment-backend/api/middleware"
	"github.com/angelmondragon/enrollment-backend/internal/applications"
	"github.com/angelmondragon/enrollment-backend/internal/auth"
	"github.com/angelmondragon/enrollment-backend/internal/clearance"
	"github.com/angelmondragon/enrollment-backend/internal/ledger"
	"github.com/angelmondragon/enrollment-backend/internal/notifications"
	"github.com/angelmondragon/enrollment-backend/internal/provisioning"
	"github.com/angelmondragon/enrollment-backend/internal/recurring"
	"github.com/angelmondragon/enrollment-backend/internal/registration"
	"github.com/angelmondragon/enrollment-backend/pkg/config"
	"github.com/angelmondragon/enrollment-backend/pkg/enums"
	"github.com/angelmondragon/enrollment-backend/pkg/logger"
	pkgredis "github.com/angelmondragon/enrollment-backend/pkg/redis"
)

// Deps carries everything the HTTP surface calls into.
type Deps struct {
	Config        *config.Config
	Logger        *logger.Logger
	DB            controllers.Pinger
	Redis         controllers.Pinger
	Idempotency   pkgredis.ResponseStore
	Gatherer      prometheus.Gatherer
	Auth          auth.Service
	Applications  applications.Service
	Ledger        ledger.Service
	Clearance     clearance.Service
	Provisioning  provisioning.Service
	Registration  registration.Service
	Recurring     recurring.Generator
	Notifications notifications.Service
}

func NewRouter(d Deps) http.Handler {
	cfg, logg := d.Config, d.Logger
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, map[string]controllers.Pinger{
			"db":    d.DB,
			"redis": d.Redis,
		}))
	})
	if d.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Post("/api/v1/auth/login", controllers.AuthLogin(d.Auth, logg))

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.Idempotency(d.Idempotency, logg))

		r.Post("/auth/password", controllers.AuthChangePassword(d.Auth, logg))

		r.Route("/applications", func(r chi.Router) {
			r.With(middleware.RequireRole(logg, enums.RoleRegistrar)).Post("/", controllers.SubmitApplication(d.Applications, logg))
			r.Route("/{applicationId}", func(r chi.Router) {
				r.Get("/", controllers.GetApplication(d.Applications, logg))
				r.Get("/ledger", controllers.ApplicationLedger(d.Ledger, logg))
				r.Get("/trainee", controllers.GetTrainee(d.Registration, logg))

				r.Group(func(r chi.Router) {
					r.Use(middleware.RequireRole(logg, enums.RoleRegistrar))
					r.Post("/screen", controllers.ScreenApplication(d.Applications, logg))
					r.Post("/reject", controllers.RejectApplication(d.Applications, logg))
					r.Post("/admit", controllers.AdmitApplication(d.Applications, logg))
					r.Post("/provision", controllers.ProvisionAccount(d.Provisioning, logg))
					r.Get("/provisioning", controllers.ProvisioningHistory(d.Provisioning, logg))
					r.Post("/register", controllers.RegisterApplicant(d.Registration, logg))
					r.Post("/finalize", controllers.FinalizeRegistration(d.Registration, logg))
				})
			})
		})

		r.Route("/ledger/{ledgerEntryId}", func(r chi.Router) {
			r.Get("/", controllers.GetLedgerEntry(d.Ledger, logg))
			r.With(middleware.RequireRole(logg, enums.RoleBursar)).Post("/payments", controllers.RecordPayment(d.Clearance, logg))
		})

		r.Get("/trainees/{traineeId}/ledger", controllers.TraineeLedger(d.Ledger, logg))

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", controllers.ListNotifications(d.Notifications, logg))
			r.Post("/{notificationId}/read", controllers.MarkNotificationRead(d.Notifications, logg))
			r.Post("/read-all", controllers.MarkAllNotificationsRead(d.Notifications, logg))
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.RequireRole(logg, enums.RoleAdmin))
			r.Post("/recurring-fees/{period}", controllers.GenerateRecurringFees(d.Recurring, logg))
		})
	})

	return r
}
