package server

import (
	"database/sql"
	"log/slog"
	"net/http"
	"time"

	"github.com/dukerupert/marinda/internal/auth"
	"github.com/dukerupert/marinda/internal/config"
	"github.com/dukerupert/marinda/internal/handler"
	"github.com/dukerupert/marinda/internal/middleware"
	"github.com/dukerupert/marinda/internal/push"
	"github.com/dukerupert/marinda/internal/realtime"
	"github.com/dukerupert/marinda/internal/registry"
	"github.com/dukerupert/marinda/internal/store"
)

// apiRequestsPerMinute bounds authenticated API traffic per client address.
const apiRequestsPerMinute = 300

type Server struct {
	db          *sql.DB
	hub         *realtime.Hub
	tokens      *auth.TokenService
	members     *store.FamilyMemberStore
	memberH     *handler.FamilyMemberHandler
	choreH      *handler.ChoreHandler
	templateH   *handler.TemplateHandler
	wishlistH   *handler.WishlistHandler
	settingsH   *handler.SettingsHandler
	pushH       *handler.PushHandler
	rateLimiter *middleware.RateLimiter
	pinAttempts int
	pinWindow   time.Duration
	logger      *slog.Logger
}

// New wires the HTTP surface. pushSvc may be nil, in which case the push
// routes are not registered.
func New(db *sql.DB, reg *registry.Registry, hub *realtime.Hub, tokens *auth.TokenService, pushSvc *push.Service, cfg config.Config, logger *slog.Logger) *Server {
	members := store.NewFamilyMemberStore(db)

	var pushH *handler.PushHandler
	if pushSvc != nil {
		pushH = handler.NewPushHandler(store.NewPushStore(db), pushSvc, logger.With("component", "push_handler"))
	}

	return &Server{
		db:          db,
		hub:         hub,
		tokens:      tokens,
		members:     members,
		memberH:     handler.NewFamilyMemberHandler(reg, members, logger.With("component", "family_member")),
		choreH:      handler.NewChoreHandler(reg, logger.With("component", "chore")),
		templateH:   handler.NewTemplateHandler(reg, logger.With("component", "chore_template")),
		wishlistH:   handler.NewWishlistHandler(reg, logger.With("component", "wishlist")),
		settingsH:   handler.NewSettingsHandler(reg, logger.With("component", "settings")),
		pushH:       pushH,
		rateLimiter: middleware.NewRateLimiter(),
		pinAttempts: cfg.PINAttempts,
		pinWindow:   cfg.PINWindow,
		logger:      logger,
	}
}

// RateLimiter returns the rate limiter for cleanup tasks.
func (s *Server) RateLimiter() *middleware.RateLimiter {
	return s.rateLimiter
}

func (s *Server) Router() http.Handler {
	outerMux := http.NewServeMux()

	// Public routes (no auth required)
	outerMux.HandleFunc("GET /health", s.healthHandler)

	// Protected routes, wrapped with RequireMember
	protectedMux := http.NewServeMux()
	s.registerProtectedRoutes(protectedMux)

	rl := middleware.RateLimit(s.rateLimiter, middleware.RealIP, apiRequestsPerMinute, time.Minute)
	authMiddleware := middleware.RequireMember(s.tokens, s.members)
	outerMux.Handle("/", rl(authMiddleware(protectedMux)))

	return middleware.RequestLogger(s.logger.With("component", "http"))(outerMux)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := s.db.PingContext(r.Context()); err != nil {
		s.logger.Error("health check", "error", err)
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte(`{"status":"unavailable"}`))
		return
	}
	w.Write([]byte(`{"status":"ok"}`))
}

// pinProtected requires a parent with a PIN to confirm it.
func (s *Server) pinProtected(h http.HandlerFunc) http.Handler {
	return middleware.RequirePIN(s.members, s.rateLimiter, s.pinAttempts, s.pinWindow)(h)
}

// gated applies the PIN check to handlers for operations that require one.
func (s *Server) gated(op auth.Operation, h http.HandlerFunc) http.Handler {
	if !auth.PINOperations[op] {
		return h
	}
	return s.pinProtected(h)
}

func (s *Server) registerProtectedRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /ws", realtime.HandleWebSocket(s.hub, s.logger.With("component", "websocket")))

	// Members and ledger
	mux.HandleFunc("GET /api/members", s.memberH.List)
	mux.HandleFunc("GET /api/members/{id}/ledger", s.memberH.Ledger)
	mux.Handle("POST /api/members/{id}/adjustments", s.gated(auth.OpLedgerAdjust, s.memberH.Adjust))
	mux.Handle("POST /api/members/{id}/pin", s.pinProtected(s.memberH.SetPIN))
	mux.Handle("DELETE /api/members/{id}/pin", s.pinProtected(s.memberH.ClearPIN))
	mux.HandleFunc("GET /api/ledger/reconcile", s.memberH.Reconcile)
	mux.HandleFunc("GET /api/points/value", s.memberH.PointsValue)

	// Chore templates
	mux.HandleFunc("GET /api/chore-templates", s.templateH.List)
	mux.HandleFunc("POST /api/chore-templates", s.templateH.Create)
	mux.HandleFunc("PUT /api/chore-templates/{id}", s.templateH.Update)
	mux.HandleFunc("POST /api/chore-templates/{id}/archive", s.templateH.Archive)
	mux.HandleFunc("POST /api/chore-templates/{id}/unarchive", s.templateH.Unarchive)

	// Chores
	mux.HandleFunc("GET /api/chores", s.choreH.List)
	mux.HandleFunc("POST /api/chores", s.choreH.Create)
	mux.HandleFunc("POST /api/chores/sweep", s.choreH.Sweep)
	mux.HandleFunc("GET /api/chores/{id}", s.choreH.Get)
	mux.HandleFunc("PUT /api/chores/{id}", s.choreH.Update)
	mux.HandleFunc("DELETE /api/chores/{id}", s.choreH.Delete)
	mux.HandleFunc("POST /api/chores/{id}/submit", s.choreH.Submit)
	mux.Handle("POST /api/chores/{id}/approve", s.gated(auth.OpChoreApprove, s.choreH.Approve))
	mux.Handle("POST /api/chores/{id}/reject", s.gated(auth.OpChoreReject, s.choreH.Reject))
	mux.HandleFunc("GET /api/reports/expired-chores", s.choreH.ExpiredReport)

	// Wishlist
	mux.HandleFunc("GET /api/wishlist", s.wishlistH.List)
	mux.HandleFunc("POST /api/wishlist", s.wishlistH.Create)
	mux.HandleFunc("PUT /api/wishlist/{id}", s.wishlistH.Update)
	mux.HandleFunc("DELETE /api/wishlist/{id}", s.wishlistH.Delete)
	mux.HandleFunc("GET /api/wishlist/{id}/preview", s.wishlistH.Preview)
	mux.Handle("POST /api/wishlist/{id}/fulfill", s.gated(auth.OpWishlistFulfillAny, s.wishlistH.Fulfill))

	// Settings
	mux.HandleFunc("GET /api/settings/wishlist", s.settingsH.GetWishlist)
	mux.Handle("PUT /api/settings/wishlist", s.gated(auth.OpSettingsUpdate, s.settingsH.UpdateWishlist))
	mux.HandleFunc("GET /api/settings/chores", s.settingsH.GetChores)
	mux.Handle("PUT /api/settings/chores", s.gated(auth.OpSettingsUpdate, s.settingsH.UpdateChores))

	// Push notification API routes
	if s.pushH != nil {
		mux.HandleFunc("GET /api/push/vapid-key", s.pushH.GetVAPIDKey)
		mux.HandleFunc("POST /api/push/subscribe", s.pushH.Subscribe)
		mux.HandleFunc("DELETE /api/push/subscriptions/{id}", s.pushH.Unsubscribe)
	}
}
