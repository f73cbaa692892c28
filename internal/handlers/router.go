package handlers

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"

	"github.com/animechat/server/internal/database"
	"github.com/animechat/server/internal/middleware"
	"github.com/animechat/server/internal/respond"
)

var (
	_ UserStore      = (*database.UserStore)(nil)
	_ FriendStore    = (*database.FriendStore)(nil)
	_ MessageStore   = (*database.MessageStore)(nil)
	_ WatchlistStore = (*database.WatchlistStore)(nil)
)

// Pinger reports whether the database is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// RouterConfig carries the HTTP-level collaborators of the API.
type RouterConfig struct {
	Gate        *middleware.AuthGate
	CORSOrigins []string

	// AuthRateLimit requests per AuthRateWindow are allowed per client IP
	// on signup and login. Zero disables the limit.
	AuthRateLimit  int
	AuthRateWindow time.Duration

	// AssetsDir is served under /assets when set.
	AssetsDir string

	Health         Pinger
	Observer       middleware.HTTPObserver
	MetricsHandler http.Handler
}

// NewRouter mounts every route of the API.
func NewRouter(s *APIServer, cfg RouterConfig) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.LogMiddleware(s.Logger))
	if cfg.Observer != nil {
		r.Use(middleware.Metrics(cfg.Observer))
	}
	r.Use(chimw.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/healthz", s.health(cfg.Health))
	if cfg.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", cfg.MetricsHandler)
	}
	if cfg.AssetsDir != "" {
		r.Handle("/assets/*", http.StripPrefix("/assets/", http.FileServer(http.Dir(cfg.AssetsDir))))
	}

	gate := cfg.Gate.Handler

	r.Route("/api/users", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			if cfg.AuthRateLimit > 0 {
				r.Use(httprate.Limit(
					cfg.AuthRateLimit,
					cfg.AuthRateWindow,
					httprate.WithKeyFuncs(httprate.KeyByIP),
					httprate.WithLimitHandler(func(w http.ResponseWriter, _ *http.Request) {
						respond.JSON(w, http.StatusTooManyRequests, respond.Message{Message: "too many requests"})
					}),
				))
			}
			r.Post("/auth/signup", s.Signup)
			r.Post("/auth/login", s.Login)
		})

		r.Group(func(r chi.Router) {
			r.Use(gate)
			r.Get("/", s.ListUsers)
			r.Get("/me", s.Me)
			r.Post("/search", s.SearchUsers)
			r.Get("/{id}", s.GetUser)
		})
	})

	r.Route("/api/friend", func(r chi.Router) {
		r.Use(gate)
		r.Post("/add", s.AddFriend)
		r.Post("/accept", s.AcceptFriend)
		r.Post("/remove", s.RemoveFriend)
		r.Get("/list", s.ListFriends)
		r.Get("/requests", s.ListFriendRequests)
	})

	r.Route("/api/chat", func(r chi.Router) {
		r.Use(gate)
		r.Post("/send", s.SendMessage)
		r.Post("/", s.GetMessages)
		r.Get("/{id}", s.GetMessages)
	})

	r.Route("/api/watchlist", func(r chi.Router) {
		r.Use(gate)
		r.Get("/", s.ListWatchlist)
		r.Post("/add", s.AddWatchlist)
		r.Post("/check", s.CheckWatchlist)
		r.Delete("/delete", s.DeleteWatchlist)
		r.Get("/{id}", s.ListUserWatchlist)
	})

	r.With(cfg.Gate.WithQueryToken().Handler).Get("/ws", s.RelayWS)

	return r
}

func (s *APIServer) health(p Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if p != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := p.Ping(ctx); err != nil {
				s.Logger.WithError(err).Warn("health check failed")
				respond.JSON(w, http.StatusServiceUnavailable, respond.Message{Message: "database unavailable"})
				return
			}
		}
		respond.JSON(w, http.StatusOK, respond.Message{Message: "ok"})
	}
}

// OriginPatterns turns CORS origins such as "http://localhost:5173" into
// the host patterns websocket.AcceptOptions expects.
func OriginPatterns(origins []string) []string {
	out := make([]string, 0, len(origins))
	for _, o := range origins {
		if u, err := url.Parse(o); err == nil && u.Host != "" {
			out = append(out, u.Host)
			continue
		}
		out = append(out, o)
	}
	return out
}
