package gateway

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/AnriTapel/logitrades/internal/auth"
)

type RouterOptions struct {
	AllowedOrigins []string
	AuthLimiter    *RateLimiter
	Metrics        http.Handler
}

func NewRouter(h *Handlers, hub *Hub, jwtSvc *auth.JWTService, opts RouterOptions) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	requireAuth := auth.Middleware(jwtSvc)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
	})
	if opts.Metrics != nil {
		r.Handle("/metrics", opts.Metrics)
	}

	r.Route("/api/v1/auth", func(r chi.Router) {
		if opts.AuthLimiter != nil {
			r.Use(opts.AuthLimiter.Handler)
		}
		r.Post("/signup", h.Signup)
		r.Post("/login", h.Login)
		r.Get("/me", h.Me)
		r.Post("/refresh", h.Refresh)
		r.Post("/logout", h.Logout)
		r.Post("/verify-email", h.VerifyEmail)
		r.Post("/forgot-password", h.ForgotPassword)
		r.Post("/reset-password", h.ResetPassword)
		r.With(requireAuth).Post("/resend-verification", h.ResendVerification)
	})

	r.Route("/api/v1/trades", func(r chi.Router) {
		r.Use(requireAuth)
		r.Get("/", h.ListTrades)
		r.Post("/", h.CreateTrade)
		r.Get("/export", h.ExportTrades)
		r.Post("/import", h.ImportTrades)
		r.Post("/delete", h.DeleteTrades)
		r.Get("/{id}", h.GetTrade)
		r.Put("/{id}", h.UpdateTrade)
		r.Delete("/{id}", h.DeleteTrade)
	})

	if hub != nil {
		r.With(requireAuth).Get("/ws", ServeWS(hub, newUpgrader(opts.AllowedOrigins), h.logger))
	}

	return r
}
