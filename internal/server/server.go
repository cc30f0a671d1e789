package server

import (
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/dukerupert/mise/internal/handler"
	"github.com/dukerupert/mise/internal/middleware"
	"github.com/dukerupert/mise/internal/store"
	ws "github.com/dukerupert/mise/internal/websocket"
)

const (
	authRateLimit  = 10
	authRateWindow = time.Minute
)

// Options carries the collaborators chosen at startup. Provider and Objects
// may be nil, which disables OAuth and uploads respectively. A nil Limiter
// selects the in-memory limiter.
type Options struct {
	Secure         bool
	AllowedOrigins []string
	Provider       handler.IdentityProvider
	Objects        handler.ObjectStore
	Limiter        middleware.Limiter
}

type Server struct {
	db             *sql.DB
	hub            *ws.Hub
	authH          *handler.AuthHandler
	oauthH         *handler.OAuthHandler
	recipeH        *handler.RecipeHandler
	categoryH      *handler.TaxonomyHandler
	cuisineH       *handler.TaxonomyHandler
	tagH           *handler.TagHandler
	userH          *handler.UserHandler
	uploadH        *handler.UploadHandler
	sessionStore   *store.SessionStore
	limiter        middleware.Limiter
	memLimiter     *middleware.RateLimiter
	secure         bool
	allowedOrigins []string
	logger         *slog.Logger
}

func New(db *sql.DB, opts Options, logger *slog.Logger) *Server {
	hub := ws.NewHub(logger.With("component", "websocket"))
	httpLogger := logger.With("component", "http")

	userStore := store.NewUserStore(db)
	sessionStore := store.NewSessionStore(db)
	recipeStore := store.NewRecipeStore(db)

	authH := handler.NewAuthHandler(userStore, sessionStore, opts.Secure, httpLogger)
	recipeH := handler.NewRecipeHandler(recipeStore, hub, httpLogger)

	s := &Server{
		db:             db,
		hub:            hub,
		authH:          authH,
		recipeH:        recipeH,
		categoryH:      handler.NewTaxonomyHandler(store.NewCategoryStore(db), httpLogger),
		cuisineH:       handler.NewTaxonomyHandler(store.NewCuisineStore(db), httpLogger),
		tagH:           handler.NewTagHandler(store.NewTagStore(db), httpLogger),
		userH:          handler.NewUserHandler(userStore, recipeH, httpLogger),
		uploadH:        handler.NewUploadHandler(opts.Objects, httpLogger),
		sessionStore:   sessionStore,
		limiter:        opts.Limiter,
		secure:         opts.Secure,
		allowedOrigins: opts.AllowedOrigins,
		logger:         logger,
	}
	if opts.Provider != nil {
		s.oauthH = handler.NewOAuthHandler(opts.Provider, userStore, authH, logger.With("component", "oauth"))
	}
	if s.limiter == nil {
		s.memLimiter = middleware.NewRateLimiter()
		s.limiter = s.memLimiter
	}
	return s
}

// SessionStore returns the session store for cleanup tasks.
func (s *Server) SessionStore() *store.SessionStore {
	return s.sessionStore
}

// RateLimiter returns the in-memory limiter for cleanup tasks, or nil when
// a shared limiter is in use.
func (s *Server) RateLimiter() *middleware.RateLimiter {
	return s.memLimiter
}

// Hub returns the live feed hub.
func (s *Server) Hub() *ws.Hub {
	return s.hub
}

func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.healthHandler)

	// Auth
	mux.Handle("POST /api/auth", s.rateLimited(s.authH.Login))
	mux.HandleFunc("DELETE /api/auth", s.authH.Logout)
	mux.Handle("DELETE /api/auth/sessions", protect(s.authH.LogoutAll))
	mux.Handle("POST /api/auth/register", s.rateLimited(s.authH.Register))
	mux.Handle("GET /api/auth/me", protect(s.authH.Me))
	if s.oauthH != nil {
		mux.Handle("GET /api/auth/google", s.rateLimited(s.oauthH.Start))
		mux.HandleFunc("GET /api/auth/google/callback", s.oauthH.Callback)
	}

	// Recipes
	mux.HandleFunc("GET /api/recipes", s.recipeH.List)
	mux.HandleFunc("GET /api/recipes/{slug}", s.recipeH.Get)
	mux.Handle("POST /api/recipes", protect(s.recipeH.Create))
	mux.Handle("PATCH /api/recipes", protect(s.recipeH.Update))
	mux.Handle("PATCH /api/recipes/{id}", protect(s.recipeH.Update))
	mux.Handle("DELETE /api/recipes", protect(s.recipeH.Delete))
	mux.Handle("DELETE /api/recipes/{id}", protect(s.recipeH.Delete))

	// Taxonomy and tags
	mux.HandleFunc("GET /api/categories", s.categoryH.List)
	mux.Handle("POST /api/categories", protect(s.categoryH.Create))
	mux.HandleFunc("GET /api/cuisines", s.cuisineH.List)
	mux.Handle("POST /api/cuisines", protect(s.cuisineH.Create))
	mux.HandleFunc("GET /api/tags", s.tagH.Popular)

	// Users
	mux.Handle("GET /api/users/me", protect(s.userH.GetMe))
	mux.Handle("PUT /api/users/me", protect(s.userH.UpdateMe))
	mux.HandleFunc("GET /api/users/{username}", s.userH.Get)
	mux.HandleFunc("GET /api/users/{username}/recipes", s.userH.Recipes)

	// Uploads
	mux.Handle("POST /api/upload", protect(s.uploadH.Upload))
	mux.Handle("DELETE /api/upload", protect(s.uploadH.Delete))

	// Live feed
	mux.HandleFunc("GET /ws/recipes", ws.HandleWebSocket(s.hub, originHosts(s.allowedOrigins), s.logger.With("component", "websocket")))

	var h http.Handler = mux
	h = middleware.LoadSession(s.sessionStore, s.secure, s.logger.With("component", "session"))(h)
	h = middleware.CORS(s.allowedOrigins)(h)
	h = middleware.RequestLogger(s.logger.With("component", "http"))(h)
	return middleware.RequestID(h)
}

// originHosts reduces origins to the host patterns the feed upgrader matches.
func originHosts(origins []string) []string {
	hosts := make([]string, 0, len(origins))
	for _, o := range origins {
		if u, err := url.Parse(o); err == nil && u.Host != "" {
			hosts = append(hosts, u.Host)
		}
	}
	return hosts
}

func protect(h http.HandlerFunc) http.Handler {
	return middleware.RequireAuth(h)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	status, code := "ok", http.StatusOK
	if err := s.db.PingContext(r.Context()); err != nil {
		s.logger.Error("health check", "error", err)
		status, code = "unavailable", http.StatusServiceUnavailable
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"status": status})
}

func (s *Server) rateLimited(h http.HandlerFunc) http.Handler {
	rl := middleware.RateLimit(s.limiter, middleware.RealIP, authRateLimit, authRateWindow, s.logger.With("component", "ratelimit"))
	return rl(h)
}
