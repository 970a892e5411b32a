package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"kharcha/internal/identity"
	"kharcha/internal/log"
	"kharcha/internal/middleware/ratelimit"
	"kharcha/internal/middleware/security"
	"kharcha/internal/middleware/trace"
	"kharcha/internal/services"
)

// Options wires the server to the services it exposes.
type Options struct {
	Addr     string
	Ledger   *services.LedgerService
	Reports  *services.ReportService
	Resolver *identity.Resolver
	Syncer   *identity.Syncer

	// WebhookSecret guards the identity webhook; empty rejects every call.
	WebhookSecret      string
	RateLimitPerMinute int
	Logger             *log.Logger
}

type Server struct {
	http.Server
	ledger   *services.LedgerService
	reports  *services.ReportService
	resolver *identity.Resolver
	syncer   *identity.Syncer

	webhookSecret string
	logger        *log.Logger
	startedAt     time.Time

	rateLimiter      *ratelimit.Limiter
	securityDetector *security.Detector
	traceMiddleware  *trace.Middleware
	shutdownOnce     sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	logger = logger.WithComponent(log.ComponentHTTP)

	detector := security.NewDetector()
	s := &Server{
		ledger:           opts.Ledger,
		reports:          opts.Reports,
		resolver:         opts.Resolver,
		syncer:           opts.Syncer,
		webhookSecret:    opts.WebhookSecret,
		logger:           logger,
		startedAt:        time.Now(),
		rateLimiter:      ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.RateLimitPerMinute}),
		securityDetector: detector,
		traceMiddleware:  trace.NewMiddleware(logger, detector.ExtractClientIP),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /metrics", s.handleMetrics)

	mux.Handle("GET /api/dashboard", s.authed(s.handleDashboard))
	mux.Handle("GET /api/spending", s.authed(s.handleSpending))
	mux.Handle("GET /api/spending/categories", s.authed(s.handleSpendingByCategory))
	mux.Handle("GET /api/budgets/status", s.authed(s.handleBudgetStatus))

	mux.Handle("GET /api/transactions", s.authed(s.handleListTransactions))
	mux.Handle("GET /api/transactions/recent", s.authed(s.handleRecentTransactions))
	mux.Handle("POST /api/transactions", s.limited(s.authed(s.handleCreateTransaction)))
	mux.Handle("PATCH /api/transactions/{id}", s.limited(s.authed(s.handleUpdateTransaction)))
	mux.Handle("DELETE /api/transactions/{id}", s.limited(s.authed(s.handleDeleteTransaction)))

	mux.Handle("GET /api/categories", s.authed(s.handleListCategories))
	mux.Handle("POST /api/categories", s.limited(s.authed(s.handleCreateCategory)))
	mux.Handle("PATCH /api/categories/{id}", s.limited(s.authed(s.handleUpdateCategory)))
	mux.Handle("DELETE /api/categories/{id}", s.limited(s.authed(s.handleDeleteCategory)))

	mux.Handle("PUT /api/budgets/monthly", s.limited(s.authed(s.handleUpsertMonthlyBudget)))
	mux.Handle("PUT /api/budgets/categories", s.limited(s.authed(s.handleUpsertCategoryBudget)))

	mux.Handle("POST /webhooks/identity", s.limited(http.HandlerFunc(s.handleIdentityWebhook)))

	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	s.Server = http.Server{
		Addr:              opts.Addr,
		Handler:           s.traceMiddleware.Middleware(detector.Middleware(headers.Middleware(mux))),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

// limited applies the per-IP rate limit; reads are not limited.
func (s *Server) limited(next http.Handler) http.Handler {
	return s.rateLimiter.Middleware(s.securityDetector.ExtractClientIP, func(w http.ResponseWriter, r *http.Request) {
		log.FromContext(r.Context()).WarnContext(r.Context(), "Rate limit exceeded",
			log.FieldClientIP, s.securityDetector.ExtractClientIP(r),
			log.FieldMethod, r.Method,
			log.FieldPath, r.URL.Path)
		w.Header().Set("Retry-After", "60")
		writeJSON(w, http.StatusTooManyRequests, errorResponse{Error: "rate limit exceeded"})
	})(next)
}

// Shutdown stops background routines and drains the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.rateLimiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}
