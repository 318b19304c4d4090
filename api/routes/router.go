package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/medok/medok-backend/api/controllers"
	"github.com/medok/medok-backend/api/middleware"
	"github.com/medok/medok-backend/internal/auth"
	"github.com/medok/medok-backend/internal/chat"
	"github.com/medok/medok-backend/internal/exchanges"
	"github.com/medok/medok-backend/internal/mailer"
	"github.com/medok/medok-backend/internal/media"
	"github.com/medok/medok-backend/internal/profiles"
	"github.com/medok/medok-backend/internal/reference"
	"github.com/medok/medok-backend/internal/shifts"
	"github.com/medok/medok-backend/pkg/auth/session"
	"github.com/medok/medok-backend/pkg/config"
	"github.com/medok/medok-backend/pkg/logger"
	"github.com/medok/medok-backend/pkg/metrics"
	pkgredis "github.com/medok/medok-backend/pkg/redis"
)

// RedisStore is the slice of the Redis client the HTTP layer needs: rate limits and idempotency.
type RedisStore interface {
	pkgredis.IdempotencyStore
	middleware.RateLimitStore
}

// Params carries everything the router wires into handlers.
type Params struct {
	Config   *config.Config
	Logger   *logger.Logger
	Sessions session.AccessSessionChecker
	Redis    RedisStore
	Health   map[string]controllers.Pinger
	Gatherer prometheus.Gatherer
	Metrics  *metrics.HTTPMetrics

	Auth      auth.Service
	Reference reference.Service
	Profiles  profiles.Service
	Avatars   media.Service
	Shifts    shifts.Service
	Exchanges exchanges.Service
	Chat      chat.Service
	Realtime  controllers.RoomStreamer
	Mailer    mailer.Service
}

func NewRouter(p Params) http.Handler {
	cfg, logg := p.Config, p.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.Metrics(p.Metrics),
		middleware.CORS(cfg.Client.AllowedOrigins),
	)

	limits := cfg.AuthRateLimit
	loginPolicy := middleware.AuthRateLimitPolicy{Name: "login", Window: limits.LoginWindow, PerIP: limits.LoginIPLimit, PerEmail: limits.LoginEmailLimit}
	registerPolicy := middleware.AuthRateLimitPolicy{Name: "register", Window: limits.RegisterWindow, PerIP: limits.RegisterIPLimit, PerEmail: limits.RegisterEmailLimit}

	var idemStore pkgredis.IdempotencyStore
	if p.Redis != nil {
		idemStore = p.Redis
	}
	idempotent := middleware.Idempotent(idemStore, logg, middleware.IdempotencyTTL)
	idempotentExchange := middleware.Idempotent(idemStore, logg, middleware.ExchangeIdempotencyTTL)
	authenticated := middleware.Auth(cfg.JWT, p.Sessions, logg)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, p.Health))
	})
	if p.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(p.Gatherer, promhttp.HandlerOpts{}))
	}

	// Emailed links are opened from a mail client, so the signed token is the only credential.
	r.HandleFunc("/shift-exchange/{action}/{requesterId}/{shiftDate}", controllers.ExchangeLink(p.Exchanges, logg))

	r.Route("/functions/v1", func(r chi.Router) {
		r.Use(authenticated)
		r.Post("/send-shift-exchange-email", controllers.SendShiftExchangeEmail(p.Mailer, logg))
		r.Post("/send-shift-exchange-response", controllers.SendShiftExchangeResponse(p.Mailer, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.APIKey(cfg.Client.APIKey, logg))

		r.Route("/auth", func(r chi.Router) {
			r.With(middleware.AuthRateLimit(loginPolicy, p.Redis, logg)).Post("/login", controllers.AuthLogin(p.Auth, logg))
			r.With(middleware.AuthRateLimit(registerPolicy, p.Redis, logg)).Post("/register", controllers.AuthRegister(p.Auth, logg))
			r.Post("/logout", controllers.AuthLogout(p.Auth, cfg.JWT, logg))
			r.Post("/refresh", controllers.AuthRefresh(p.Auth, cfg.JWT, logg))
			r.With(authenticated).Get("/session", controllers.AuthSession(p.Auth, logg))
			r.With(authenticated).Post("/password", controllers.AuthChangePassword(p.Auth, logg))
		})

		r.Get("/regions", controllers.Regions(p.Reference, logg))
		r.Get("/regions/{regionId}/hospitals", controllers.RegionHospitals(p.Reference, logg))

		r.Group(func(r chi.Router) {
			r.Use(authenticated)

			r.Route("/profiles", func(r chi.Router) {
				r.Get("/me", controllers.ProfileMe(p.Profiles, logg))
				r.Patch("/me", controllers.ProfileUpdate(p.Profiles, logg))
				r.Post("/me/avatar", controllers.ProfileAvatar(p.Avatars, cfg.Media.MaxAvatarBytes, logg))
				r.Get("/{profileId}", controllers.ProfileGet(p.Profiles, logg))
			})

			r.Route("/shifts", func(r chi.Router) {
				r.Get("/", controllers.ShiftList(p.Shifts, logg))
				r.With(idempotent).Post("/", controllers.ShiftCreate(p.Shifts, logg))
				r.Patch("/{shiftId}", controllers.ShiftUpdate(p.Shifts, logg))
			})

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireHospital(logg))

				r.Get("/team", controllers.Team(p.Profiles, logg))

				r.Route("/exchanges", func(r chi.Router) {
					r.Get("/", controllers.ExchangeList(p.Exchanges, logg))
					r.With(idempotentExchange).Post("/", controllers.ExchangeCreate(p.Exchanges, logg))
					r.With(idempotentExchange).Post("/{requestId}/respond", controllers.ExchangeRespond(p.Exchanges, logg))
				})

				r.Route("/chat/rooms", func(r chi.Router) {
					r.Get("/", controllers.ChatRooms(p.Chat, logg))
					r.Get("/{roomId}/messages", controllers.ChatMessages(p.Chat, logg))
					r.With(idempotent).Post("/{roomId}/messages", controllers.ChatSend(p.Chat, logg))
					r.Get("/{roomId}/stream", controllers.ChatStream(p.Realtime, logg))
				})
			})
		})
	})

	return r
}
