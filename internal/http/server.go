package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"fina/internal/ledger"
	"fina/internal/log"
	"fina/internal/middleware/ratelimit"
	"fina/internal/middleware/security"
	"fina/internal/middleware/trace"
)

const defaultRequestTimeout = 15 * time.Second

// ReadyCheck reports whether a dependency can serve traffic.
type ReadyCheck func(ctx context.Context) error

// Server is the JSON API over a ledger.Service.
type Server struct {
	http.Server

	svc            *ledger.Service
	logger         *log.Logger
	limiter        *ratelimit.Limiter
	detector       *security.Detector
	tracer         *trace.Middleware
	checks         map[string]ReadyCheck
	requestTimeout time.Duration
	rateConfig     ratelimit.Config
	started        time.Time
	shutdownOnce   sync.Once
}

type Option func(*Server)

// WithReadyCheck adds a named dependency check to /readyz.
func WithReadyCheck(name string, check ReadyCheck) Option {
	return func(s *Server) { s.checks[name] = check }
}

func WithRateLimit(cfg ratelimit.Config) Option {
	return func(s *Server) { s.rateConfig = cfg }
}

func WithRequestTimeout(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.requestTimeout = d
		}
	}
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(addr string, svc *ledger.Service, logger *log.Logger, opts ...Option) *Server {
	if logger == nil {
		logger = log.Discard()
	}
	s := &Server{
		svc:            svc,
		logger:         logger.WithComponent(log.ComponentHTTP),
		detector:       security.NewDetector(),
		checks:         make(map[string]ReadyCheck),
		requestTimeout: defaultRequestTimeout,
		rateConfig:     ratelimit.DefaultConfig(),
		started:        time.Now(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.limiter = ratelimit.NewLimiter(s.rateConfig)
	s.tracer = trace.NewMiddleware(s.logger, s.detector.ExtractClientIP)

	mux := http.NewServeMux()
	s.routes(mux)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           s.middleware(mux),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       s.requestTimeout,
		WriteTimeout:      s.requestTimeout + 5*time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

func (s *Server) routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /metrics", s.handleMetrics)

	mux.HandleFunc("POST /api/users", s.handleRegister)
	mux.HandleFunc("POST /api/auth/verify", s.handleVerifyPassword)
	mux.HandleFunc("GET /api/users/{userID}", s.handleGetUser)
	mux.HandleFunc("PATCH /api/users/{userID}", s.handleUpdateProfile)
	mux.HandleFunc("DELETE /api/users/{userID}", s.handleDeleteUser)
	mux.HandleFunc("POST /api/users/{userID}/password", s.handleResetPassword)
	mux.HandleFunc("POST /api/users/{userID}/deactivate", s.handleDeactivate)

	mux.HandleFunc("GET /api/users/{userID}/balances", s.handleBalances)
	mux.HandleFunc("GET /api/users/{userID}/report", s.handleReport)
	mux.HandleFunc("GET /api/users/{userID}/cashflow", s.handleCashflow)

	mux.HandleFunc("GET /api/users/{userID}/wallets", s.handleListWallets)
	mux.HandleFunc("POST /api/users/{userID}/wallets", s.handleCreateWallet)
	mux.HandleFunc("GET /api/users/{userID}/wallets/{id}", s.handleGetWallet)
	mux.HandleFunc("PUT /api/users/{userID}/wallets/{id}", s.handleUpdateWallet)
	mux.HandleFunc("DELETE /api/users/{userID}/wallets/{id}", s.handleDeleteWallet)

	mux.HandleFunc("GET /api/users/{userID}/categories", s.handleListCategories)
	mux.HandleFunc("POST /api/users/{userID}/categories", s.handleCreateCategory)
	mux.HandleFunc("PUT /api/users/{userID}/categories/{id}", s.handleUpdateCategory)
	mux.HandleFunc("DELETE /api/users/{userID}/categories/{id}", s.handleDeleteCategory)

	mux.HandleFunc("GET /api/users/{userID}/transactions", s.handleListTransactions)
	mux.HandleFunc("POST /api/users/{userID}/transactions", s.handleCreateTransaction)
	mux.HandleFunc("GET /api/users/{userID}/transactions/{id}", s.handleGetTransaction)
	mux.HandleFunc("PUT /api/users/{userID}/transactions/{id}", s.handleUpdateTransaction)
	mux.HandleFunc("DELETE /api/users/{userID}/transactions/{id}", s.handleDeleteTransaction)

	mux.HandleFunc("POST /api/users/{userID}/transfers", s.handleCreateTransfer)
}

// middleware wraps h, outermost first: tracing, request screening, security
// headers, rate limiting of writes, and the per-request timeout.
func (s *Server) middleware(h http.Handler) http.Handler {
	h = s.withTimeout(h)
	h = s.limiter.Middleware(s.detector.ExtractClientIP, s.onRateLimit,
		http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete)(h)
	h = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(h)
	h = s.detector.Middleware(s.onSuspicious)(h)
	return s.tracer.Middleware(h)
}

func (s *Server) withTimeout(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), s.requestTimeout)
		defer cancel()
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) onRateLimit(w http.ResponseWriter, r *http.Request) {
	log.FromContext(r.Context()).WarnContext(r.Context(), "Rate limit exceeded",
		log.FieldClientIP, s.detector.ExtractClientIP(r),
		log.FieldMethod, r.Method,
		log.FieldPath, r.URL.Path)
	TooManyRequestsError().Write(w)
}

func (s *Server) onSuspicious(r *http.Request, reason string) {
	log.FromContext(r.Context()).WarnContext(r.Context(), "Suspicious request blocked",
		"reason", reason,
		log.FieldClientIP, s.detector.ExtractClientIP(r),
		log.FieldPath, r.URL.Path)
}

// Shutdown stops background goroutines and drains the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}

// userID parses the {userID} path value, writing a 400 on failure.
func (s *Server) userID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := PathID(r, "userID")
	if err != nil {
		writeError(w, r, log.OpRead, err)
		return 0, false
	}
	return id, true
}

// userAndID parses both {userID} and {id}.
func (s *Server) userAndID(w http.ResponseWriter, r *http.Request, op string) (int64, int64, bool) {
	userID, err := PathID(r, "userID")
	if err != nil {
		writeError(w, r, op, err)
		return 0, 0, false
	}
	id, err := PathID(r, "id")
	if err != nil {
		writeError(w, r, op, err)
		return 0, 0, false
	}
	return userID, id, true
}
