// Package http serves the JSON API: auth and sessions, expense entry,
// categories and budgets, preferences, rollover, recurring templates,
// analytics, plus the operational endpoints.
package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"sprout/internal/cache"
	"sprout/internal/config"
	"sprout/internal/core"
	"sprout/internal/log"
	authmw "sprout/internal/middleware/auth"
	"sprout/internal/middleware/ratelimit"
	"sprout/internal/middleware/security"
	"sprout/internal/middleware/trace"
	"sprout/internal/services"
	"sprout/internal/storage"
)

// Deps carries the server's collaborators. The caches are the same instances
// the services read through; the server only inspects them for /ready and
// /metrics.
type Deps struct {
	Config *config.Config
	Repo   *storage.Repository
	Logger *log.Logger

	Auth        *services.AuthService
	Expenses    *services.ExpenseService
	Categories  *services.CategoryService
	Preferences *services.PreferencesService
	Rollover    *services.RolloverService
	Summaries   *services.SummaryService
	Analytics   *services.AnalyticsService
	Recurring   *services.RecurringService

	LimitCache    cache.Cache[core.Money]
	CategoryCache cache.Cache[[]core.Category]
}

// appMetrics aggregates process-level counters for /metrics.
type appMetrics struct {
	uptime        time.Time
	totalExpenses int64
}

type Server struct {
	http.Server

	cfg    *config.Config
	repo   *storage.Repository
	logger *log.Logger

	auth        *services.AuthService
	expenses    *services.ExpenseService
	categories  *services.CategoryService
	preferences *services.PreferencesService
	rollover    *services.RolloverService
	summaries   *services.SummaryService
	analytics   *services.AnalyticsService
	recurring   *services.RecurringService

	sessions        *authmw.Middleware
	traceMiddleware *trace.Middleware
	rateLimiter     *ratelimit.Limiter
	headers         *security.HeadersMiddleware
	detector        *security.Detector

	limitCache    cache.Cache[core.Money]
	categoryCache cache.Cache[[]core.Category]

	appMetrics   appMetrics
	shutdownOnce sync.Once
}

// NewServer wires middleware and routes, returning a ready-to-run server.
func NewServer(deps Deps) *Server {
	s := &Server{
		cfg:    deps.Config,
		repo:   deps.Repo,
		logger: deps.Logger.WithComponent(log.ComponentHTTP),

		auth:        deps.Auth,
		expenses:    deps.Expenses,
		categories:  deps.Categories,
		preferences: deps.Preferences,
		rollover:    deps.Rollover,
		summaries:   deps.Summaries,
		analytics:   deps.Analytics,
		recurring:   deps.Recurring,

		rateLimiter: ratelimit.NewLimiter(ratelimit.DefaultConfig()),
		headers:     security.NewHeadersMiddleware(security.DefaultHeadersConfig()),
		detector:    security.NewDetector(),

		limitCache:    deps.LimitCache,
		categoryCache: deps.CategoryCache,

		appMetrics: appMetrics{uptime: time.Now()},
	}
	s.traceMiddleware = trace.NewMiddleware(s.detector.ExtractClientIP, deps.Logger)
	s.sessions = authmw.NewMiddleware(deps.Auth, deps.Config.SessionTTL, deps.Config.SecureCookies, s.handleUnauthorized)

	s.Server = http.Server{
		Addr:    deps.Config.Addr(),
		Handler: s.routes(),
	}
	return s
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	// Operational surface, unauthenticated.
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /api/health", s.handleHealth)
	mux.HandleFunc("GET /ready", s.handleReady)
	mux.HandleFunc("GET /metrics", s.handleMetrics)

	// Public auth endpoints.
	mux.HandleFunc("POST /api/auth/signup", s.handleSignup)
	mux.HandleFunc("POST /api/auth/login", s.handleLogin)
	mux.HandleFunc("POST /api/auth/forgot-password", s.handleForgotPassword)
	mux.HandleFunc("POST /api/auth/reset-password", s.handleResetPassword)

	// Everything else under /api requires a session.
	protected := http.NewServeMux()

	protected.HandleFunc("POST /api/auth/logout", s.handleLogout)
	protected.HandleFunc("GET /api/auth/me", s.handleMe)

	protected.HandleFunc("GET /api/expenses", s.handleListExpenses)
	protected.HandleFunc("POST /api/expenses", s.handleCreateExpense)
	protected.HandleFunc("PUT /api/expenses/{id}", s.handleUpdateExpense)
	protected.HandleFunc("POST /api/expenses/{id}", s.handleUpdateExpense)
	protected.HandleFunc("DELETE /api/expenses/{id}", s.handleDeleteExpense)
	protected.HandleFunc("GET /api/summary", s.handleSummary)
	protected.HandleFunc("GET /api/history", s.handleHistory)

	protected.HandleFunc("GET /api/categories", s.handleListCategories)
	protected.HandleFunc("POST /api/categories", s.handleCreateCategory)
	protected.HandleFunc("DELETE /api/categories/{id}", s.handleDeleteCategory)
	protected.HandleFunc("PUT /api/categories/{id}/budget", s.handleSetCategoryBudget)
	protected.HandleFunc("POST /api/categories/{id}/budget", s.handleSetCategoryBudget)
	protected.HandleFunc("PUT /api/categories/budgets", s.handleBulkBudgets)
	protected.HandleFunc("POST /api/categories/budgets", s.handleBulkBudgets)
	protected.HandleFunc("GET /api/categories/budget-tracking", s.handleBudgetTracking)

	protected.HandleFunc("GET /api/preferences/daily-limit", s.handleGetDailyLimit)
	protected.HandleFunc("POST /api/preferences/daily-limit", s.handleSetDailyLimit)
	protected.HandleFunc("PUT /api/preferences/daily-limit", s.handleSetDailyLimit)
	protected.HandleFunc("GET /api/preferences/category-requirement", s.handleGetCategoryRequirement)
	protected.HandleFunc("POST /api/preferences/category-requirement", s.handleSetCategoryRequirement)
	protected.HandleFunc("PUT /api/preferences/category-requirement", s.handleSetCategoryRequirement)
	protected.HandleFunc("GET /api/preferences/budgets", s.handleBudgetProjections)
	protected.HandleFunc("GET /api/preferences/date-simulation", s.handleGetDateSimulation)
	protected.HandleFunc("POST /api/preferences/date-simulation", s.handleSetDateSimulation)
	protected.HandleFunc("DELETE /api/preferences/date-simulation", s.handleClearDateSimulation)

	// Rollover settings answer on both historical paths.
	protected.HandleFunc("GET /api/preferences/rollover-settings", s.handleGetRolloverSettings)
	protected.HandleFunc("POST /api/preferences/rollover-settings", s.handleSetRolloverSettings)
	protected.HandleFunc("GET /api/rollover/settings", s.handleGetRolloverSettings)
	protected.HandleFunc("POST /api/rollover/settings", s.handleSetRolloverSettings)

	protected.HandleFunc("GET /api/rollover/current-budget", s.handleCurrentBudget)
	protected.HandleFunc("POST /api/rollover/process-day-transition", s.handleProcessDayTransition)
	protected.HandleFunc("GET /api/rollover/history", s.handleRolloverHistory)

	protected.HandleFunc("GET /api/recurring-expenses", s.handleListRecurring)
	protected.HandleFunc("POST /api/recurring-expenses", s.handleCreateRecurring)
	protected.HandleFunc("POST /api/recurring-expenses/process", s.handleProcessRecurring)
	protected.HandleFunc("PUT /api/recurring-expenses/{id}", s.handleUpdateRecurring)
	protected.HandleFunc("DELETE /api/recurring-expenses/{id}", s.handleDeleteRecurring)

	protected.HandleFunc("GET /api/analytics/daily-spending", s.handleDailySpending)
	protected.HandleFunc("GET /api/analytics/category-breakdown", s.handleCategoryBreakdown)
	protected.HandleFunc("GET /api/analytics/weekly-heatmap", s.handleWeeklyHeatmap)

	mux.Handle("/api/", s.sessions.Require(protected))

	var handler http.Handler = mux
	handler = s.rateLimiter.Middleware(s.detector.ExtractClientIP, s.handleRateLimited)(handler)
	handler = s.suspicionCheck(handler)
	handler = s.headers.Middleware(handler)
	handler = log.RequestIDMiddleware(func(r *http.Request) string {
		return trace.GetRequestID(r.Context())
	})(handler)
	handler = log.Middleware(s.logger)(handler)
	handler = s.traceMiddleware.Middleware(handler)
	return handler
}

// suspicionCheck flags request patterns the detector considers hostile. It
// only logs; blocking stays with the rate limiter.
func (s *Server) suspicionCheck(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.detector.DetectSuspiciousRequest(r) {
			s.logger.WarnContext(r.Context(), "Suspicious request detected",
				log.FieldMethod, r.Method,
				log.FieldPath, r.URL.Path,
				log.FieldClientIP, s.detector.ExtractClientIP(r))
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleRateLimited(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Retry-After", "60")
	writeJSON(w, http.StatusTooManyRequests, map[string]string{
		"error": "Rate limit exceeded. Please try again later.",
	})
}

func (s *Server) handleUnauthorized(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusUnauthorized, map[string]string{
		"error": "Authentication required",
	})
}

// Shutdown stops the rate limiter's cleanup goroutine and drains in-flight
// requests.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.rateLimiter.Stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}
