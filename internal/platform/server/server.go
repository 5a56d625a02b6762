// Package server exposes the wallet over JSON/HTTP. Errors cross the
// wire as {error_code, message, details} with the status mapped from the
// code; everything except login, health and metrics sits behind the JWT
// middleware.
package server

import (
	"encoding/json"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/brwallet/pix-wallet-go/internal/platform/auth"
	"github.com/brwallet/pix-wallet-go/internal/platform/wallet"
)

type Server struct {
	accounts *wallet.Accounts
	engine   *wallet.Engine
	auth     *auth.Service
	metrics  *Metrics
	logf     func(string, ...any)
	limiter  *limiterStore
}

type Option func(*Server)

func WithLogger(logf func(string, ...any)) Option {
	return func(s *Server) { s.logf = logf }
}

func WithMetrics(m *Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

// WithRateLimit enables per-client request throttling.
func WithRateLimit(rps float64, burst int) Option {
	return func(s *Server) { s.limiter = newLimiterStore(rps, burst) }
}

func New(accounts *wallet.Accounts, engine *wallet.Engine, authSvc *auth.Service, opts ...Option) *Server {
	s := &Server{
		accounts: accounts,
		engine:   engine,
		auth:     authSvc,
		logf:     func(string, ...any) {},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// publicPaths skip the JWT middleware.
var publicPaths = []string{"/v1/login", "/healthz", "/metrics"}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /v1/login", s.handleLogin)
	mux.HandleFunc("POST /v1/logout", s.handleLogout)

	mux.HandleFunc("POST /v1/accounts", s.handleAccountCreate)
	mux.HandleFunc("GET /v1/accounts", s.handleAccountList)
	mux.HandleFunc("GET /v1/accounts/{id}", s.handleAccountGet)
	mux.HandleFunc("PUT /v1/accounts/{id}", s.handleAccountUpdate)
	mux.HandleFunc("DELETE /v1/accounts/{id}", s.handleAccountDelete)
	mux.HandleFunc("POST /v1/accounts/{id}/fund", s.handleAccountFund)

	mux.HandleFunc("POST /v1/accounts/{id}/withdraws", s.handleWithdrawCreate)
	mux.HandleFunc("GET /v1/accounts/{id}/withdraws", s.handleWithdrawList)
	mux.HandleFunc("GET /v1/accounts/{id}/withdraws/{withdraw_id}", s.handleWithdrawGet)

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	mux.Handle("GET /metrics", promhttp.Handler())

	var handler http.Handler = mux
	handler = auth.Middleware(s.auth, s.writeError, publicPaths)(handler)
	if s.limiter != nil {
		handler = rateLimitMiddleware(s.limiter, handler)
	}
	return s.instrument(handler)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		route := r.Pattern
		if route == "" {
			route = r.URL.Path
		}
		s.metrics.observeHTTP(r.Method, route, rec.status)
	})
}

type errorBody struct {
	ErrorCode string         `json:"error_code"`
	Message   string         `json:"message"`
	Details   map[string]any `json:"details,omitempty"`
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logf("http: encode response: %v", err)
	}
}

// writeError maps a wallet error onto the wire envelope. Unknown errors
// are reported as INTERNAL_ERROR with the cause kept server-side.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	we, ok := wallet.As(err)
	if !ok {
		s.logf("http: %s %s: %v", r.Method, r.URL.Path, err)
		we = wallet.E(wallet.CodeInternalError, nil)
	}
	if we.Status() >= http.StatusInternalServerError {
		s.logf("http: %s %s: %v", r.Method, r.URL.Path, err)
	}
	s.writeJSON(w, we.Status(), errorBody{
		ErrorCode: string(we.Code),
		Message:   we.Message,
		Details:   we.Details,
	})
}

func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return wallet.E(wallet.CodeInvalidDataType, map[string]any{"reason": err.Error()})
	}
	return nil
}
