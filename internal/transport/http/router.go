package http

import (
	"net/http"
	"time"

	httpmw "github.com/cwrk-planet/room-relay/internal/transport/http/middleware"

	"github.com/go-chi/chi/v5"
	middlewareChi "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

type RouterConfig struct {
	AllowedOrigins []string
	JWTSecret      string
	AuthRequired   bool
}

// NewRouter mounts the socket endpoint, room reads, health and metrics.
// metrics may be nil.
func NewRouter(h *Handler, ws http.HandlerFunc, metrics http.Handler, cfg RouterConfig) http.Handler {
	r := chi.NewRouter()
	r.Use(middlewareChi.RequestID)
	r.Use(httpmw.RequestLogger)
	r.Use(middlewareChi.RealIP)
	r.Use(middlewareChi.Recoverer)

	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
		MaxAge:         300,
	}))

	auth := func(next http.Handler) http.Handler { return next }
	if cfg.JWTSecret != "" || cfg.AuthRequired {
		auth = httpmw.Auth(cfg.JWTSecret, cfg.AuthRequired)
	}

	r.Group(func(pr chi.Router) {
		pr.Use(auth)

		// WS endpoint; no timeout, the connection is hijacked
		pr.Get("/ws/rooms/{id}", ws)

		pr.Group(func(api chi.Router) {
			api.Use(middlewareChi.Timeout(30 * time.Second))
			api.Get("/rooms/{id}", h.GetRoom)
			api.Get("/rooms/{id}/messages", h.GetChatHistory)
		})
	})

	// health
	r.Get("/healthz", h.Healthz)
	r.Get("/readyz", h.Readyz)
	if metrics != nil {
		r.Handle("/metrics", metrics)
	}

	return r
}
